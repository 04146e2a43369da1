package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ragchat-api/internal/app"
	"ragchat-api/internal/model"
)

type stubAuthenticator struct {
	user *model.User
	err  error
	got  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*model.User, error) {
	s.got = token
	return s.user, s.err
}

func newGatedEngine(auth Authenticator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handlers := append([]gin.HandlerFunc{AuthJWT(auth, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Email)
	})
	engine.GET("/protected", handlers...)
	return engine
}

func serve(engine *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer    ", "", false},
		{"abc.def.ghi", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestAuthJWT(t *testing.T) {
	auth := &stubAuthenticator{user: &model.User{ID: 1, Email: "a@x.com", IsActive: true}}
	rec := serve(newGatedEngine(auth), "Bearer good-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", rec.Body.String())
	assert.Equal(t, "good-token", auth.got)
}

func TestAuthJWT_Failures(t *testing.T) {
	tests := map[string]struct {
		header    string
		err       error
		status    int
		challenge bool
	}{
		"missing header": {header: "", status: http.StatusUnauthorized, challenge: true},
		"invalid token":  {header: "Bearer bad", err: app.ErrUnauthenticated, status: http.StatusUnauthorized, challenge: true},
		"inactive":       {header: "Bearer ok", err: app.ErrInactiveUser, status: http.StatusBadRequest},
		"store failure":  {header: "Bearer ok", err: assert.AnError, status: http.StatusInternalServerError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(newGatedEngine(&stubAuthenticator{err: tt.err}), tt.header)
			assert.Equal(t, tt.status, rec.Code)
			if tt.challenge {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			} else {
				assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireSuperuser(t *testing.T) {
	member := &stubAuthenticator{user: &model.User{ID: 1, Email: "a@x.com", IsActive: true}}
	rec := serve(newGatedEngine(member, RequireSuperuser()), "Bearer t")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &stubAuthenticator{user: &model.User{ID: 2, Email: "root@x.com", IsActive: true, IsSuperuser: true}}
	rec = serve(newGatedEngine(admin, RequireSuperuser()), "Bearer t")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root@x.com", rec.Body.String())
}

func TestRequireSuperuser_WithoutBaseGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", RequireSuperuser(), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(engine, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	var logs bytes.Buffer
	engine.Use(RequestID(), RequestLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
	assert.Contains(t, logs.String(), "request_id=req-123")

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}
