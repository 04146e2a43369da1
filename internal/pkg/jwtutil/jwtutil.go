package jwtutil

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTTL = 30 * time.Minute

var (
	// ErrInvalidToken is the only validation failure callers ever see.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrMissingSecret        = errors.New("jwt secret is required")
	ErrUnsupportedAlgorithm = errors.New("unsupported jwt algorithm")
	ErrEmptySubject         = errors.New("jwt subject is empty")
)

type Options struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
	Leeway    time.Duration
	Logger    *slog.Logger
}

// Codec issues and validates HMAC-signed access tokens whose subject is the
// principal's email. It holds no mutable state.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	parser *jwt.Parser
	logger *slog.Logger
}

func NewCodec(opts Options) (*Codec, error) {
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, ErrMissingSecret
	}

	alg := strings.ToUpper(strings.TrimSpace(opts.Algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, opts.Algorithm)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	leeway := opts.Leeway
	if leeway < 0 {
		leeway = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Codec{
		secret: []byte(opts.Secret),
		method: method,
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(leeway),
		),
		logger: logger.With(slog.String("component", "jwt")),
	}, nil
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Issue signs a token for subject that expires after the configured TTL.
func (c *Codec) Issue(subject string) (string, error) {
	return c.IssueWithTTL(subject, c.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime. A zero or negative ttl
// yields a token that is already expired.
func (c *Codec) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", ErrEmptySubject
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// Validate returns the subject of a well-signed, unexpired token. Every failure
// collapses to ErrInvalidToken; the concrete reason only reaches the log.
func (c *Codec) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		c.logRejection(err)
		return "", ErrInvalidToken
	}
	if !token.Valid {
		c.logger.Warn("token rejected", slog.String("reason", "not valid"))
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		c.logger.Warn("token rejected", slog.String("reason", "missing subject"), slog.String("jti", claims.ID))
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (c *Codec) logRejection(err error) {
	reason := rejectionReason(err)
	if reason == "expired" || reason == "malformed" {
		c.logger.Debug("token rejected", slog.String("reason", reason))
		return
	}
	c.logger.Warn("token rejected", slog.String("reason", reason), slog.Any("error", err))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing claim"
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not yet valid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	default:
		return "invalid"
	}
}
