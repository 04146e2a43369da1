package handler

import (
	"github.com/gin-gonic/gin"

	"ragchat-api/internal/app"
	"ragchat-api/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,max=255"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginFormRequest follows the OAuth2 password grant field names; username
// carries the email.
type LoginFormRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeError(c, err, "register failed")
		return
	}

	response.Created(c, user.Public())
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}
	h.login(c, req.Email, req.Password)
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	var req LoginFormRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidPayload(c)
		return
	}
	h.login(c, req.Username, req.Password)
}

func (h *AuthHandler) login(c *gin.Context, email, password string) {
	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    email,
		Password: password,
	})
	if err != nil {
		writeError(c, err, "login failed")
		return
	}

	response.OK(c, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	response.OK(c, user.Public())
}
