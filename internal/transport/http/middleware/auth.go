package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ragchat-api/internal/app"
	"ragchat-api/internal/model"
	"ragchat-api/internal/transport/http/response"
)

const ContextUserKey = "current_user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// AuthJWT resolves the bearer token to an active user and stores it in the
// gin context under ContextUserKey.
func AuthJWT(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, response.CodeUnauthenticated, app.ErrUnauthenticated.Error())
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrUnauthenticated):
				response.Unauthorized(c, response.CodeUnauthenticated, err.Error())
			case errors.Is(err, app.ErrInactiveUser):
				response.Error(c, http.StatusBadRequest, response.CodeInactiveUser, err.Error())
			default:
				logger.ErrorContext(c.Request.Context(), "authenticate request failed", slog.Any("error", err))
				response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "authentication failed")
			}
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireSuperuser must be chained after AuthJWT.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := CurrentUser(c)
		if _, err := app.RequireSuperuser(user); err != nil {
			if errors.Is(err, app.ErrForbidden) {
				response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
			} else {
				response.Unauthorized(c, response.CodeUnauthenticated, err.Error())
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok && user != nil
}

// BearerToken extracts the credential from an Authorization header. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
