package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmailExists       = errors.New("email already registered")
	ErrInvalidCredential = errors.New("incorrect email or password")
	ErrUnauthenticated   = errors.New("could not validate credentials")
	ErrInactiveUser      = errors.New("inactive user")
	ErrForbidden         = errors.New("the user doesn't have enough privileges")
	ErrNotFound          = errors.New("resource not found")

	ErrMessageEmpty   = errors.New("message content is empty")
	ErrMessageEnqueue = errors.New("message enqueue failed")
)
