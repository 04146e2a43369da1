package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck reports whether a backing service is reachable.
type DependencyCheck func(ctx context.Context) error

type ServiceInfo struct {
	Name      string
	Env       string
	Version   string
	StartedAt time.Time
}

type HealthHandler struct {
	info   ServiceInfo
	checks map[string]DependencyCheck
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(info ServiceInfo, checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{info: info, checks: checks}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the " + h.info.Name,
		"version": h.info.Version,
		"docs":    "/api/v1",
	})
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	allOK := true
	dependencies := make(map[string]dependencyStatus, len(names))
	for _, name := range names {
		status := dependencyStatus{OK: true}
		if err := h.checks[name](ctx); err != nil {
			status = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
		}
		dependencies[name] = status
	}

	statusCode := http.StatusOK
	status := "healthy"
	if !allOK {
		statusCode = http.StatusServiceUnavailable
		status = "degraded"
	}

	c.JSON(statusCode, gin.H{
		"status":       status,
		"app":          h.info.Name,
		"env":          h.info.Env,
		"version":      h.info.Version,
		"uptime_sec":   int(time.Since(h.info.StartedAt).Seconds()),
		"dependencies": dependencies,
	})
}
