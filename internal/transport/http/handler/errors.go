package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragchat-api/internal/app"
	"ragchat-api/internal/model"
	"ragchat-api/internal/transport/http/middleware"
	"ragchat-api/internal/transport/http/response"
)

// writeError maps service errors to the response envelope. Anything it does
// not recognise is attached to the context for the request logger and
// reported with fallback.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
	case errors.Is(err, app.ErrInactiveUser):
		response.Error(c, http.StatusBadRequest, response.CodeInactiveUser, err.Error())
	case errors.Is(err, app.ErrInvalidCredential):
		response.Unauthorized(c, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, app.ErrUnauthenticated):
		response.Unauthorized(c, response.CodeUnauthenticated, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrMessageEnqueue):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func invalidPayload(c *gin.Context) {
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
}

func mustCurrentUser(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthenticated, app.ErrUnauthenticated.Error())
		return nil, false
	}
	return user, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
