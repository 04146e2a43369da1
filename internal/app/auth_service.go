package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"ragchat-api/internal/model"
	"ragchat-api/internal/pkg/password"
	"ragchat-api/internal/repository"
)

const (
	MinPasswordLength = 8
	TokenTypeBearer   = "bearer"
)

// UserStore is the credential store the auth flows read and write.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	UpdateStatus(ctx context.Context, id uint, isActive bool) error
	UpdateSuperuser(ctx context.Context, id uint, isSuperuser bool) error
}

type TokenCodec interface {
	Issue(subject string) (string, error)
	Validate(token string) (string, error)
}

// OutcomeRecorder counts auth outcomes per operation.
type OutcomeRecorder interface {
	Record(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) Record(string, string) {}

type AuthService struct {
	users    UserStore
	hasher   password.Hasher
	tokens   TokenCodec
	recorder OutcomeRecorder
	logger   *slog.Logger
	validate *validator.Validate
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	AccessToken string
	TokenType   string
	User        *model.User
}

func NewAuthService(users UserStore, hasher password.Hasher, tokens TokenCodec, recorder OutcomeRecorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "auth")),
		validate: validator.New(),
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	user, err := s.register(ctx, input)
	s.recorder.Record("register", outcomeOf(err))
	return user, err
}

func (s *AuthService) register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := strings.TrimSpace(input.Email)
	if err := s.validateCredentials(email, input.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: digest,
		FullName:     optionalString(input.FullName),
		IsActive:     true,
		IsSuperuser:  false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	result, err := s.login(ctx, input)
	s.recorder.Record("login", outcomeOf(err))
	return result, err
}

func (s *AuthService) login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredential
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.VerifyDummy(input.Password)
		return nil, ErrInvalidCredential
	}
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token failed: %w", err)
	}
	return &AuthResult{AccessToken: token, TokenType: TokenTypeBearer, User: user}, nil
}

// Authenticate resolves a bearer token to an active principal. The user is
// re-read on every call so deactivation takes effect immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	user, err := s.authenticate(ctx, token)
	s.recorder.Record("authenticate", outcomeOf(err))
	return user, err
}

func (s *AuthService) authenticate(ctx context.Context, token string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	subject, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.DebugContext(ctx, "token subject not found")
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// RequireSuperuser narrows an already authenticated principal.
func RequireSuperuser(user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsSuperuser {
		return nil, ErrForbidden
	}
	return user, nil
}

func (s *AuthService) validateCredentials(email, plain string) error {
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(plain) < MinPasswordLength || len(plain) > password.MaxLength {
		return ErrInvalidInput
	}
	return nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrEmailExists):
		return "duplicate_email"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credentials"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInactiveUser):
		return "inactive"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
