package handler

import (
	"github.com/gin-gonic/gin"

	"ragchat-api/internal/app"
	"ragchat-api/internal/model"
	"ragchat-api/internal/transport/http/response"
)

type AdminHandler struct {
	adminService *app.AdminService
}

type ListUsersQuery struct {
	Offset int `form:"offset" binding:"min=0"`
	Limit  int `form:"limit" binding:"min=0,max=200"`
}

type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func NewAdminHandler(adminService *app.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var query ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c)
		return
	}

	users, err := h.adminService.ListUsers(c.Request.Context(), query.Offset, query.Limit)
	if err != nil {
		writeError(c, err, "list users failed")
		return
	}

	out := make([]model.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	response.OK(c, out)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.adminService.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get user failed")
		return
	}
	response.OK(c, user.Public())
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	actor, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}

	user, err := h.adminService.SetUserStatus(c.Request.Context(), actor, id, *req.IsActive)
	if err != nil {
		writeError(c, err, "update user status failed")
		return
	}
	response.OK(c, user.Public())
}
