package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	pkgconfig "github.com/guzelclinic/guzel/src/pkg/config"
)

// Pinger reports whether the database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	db        Pinger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, startTime: time.Now()}
}

// HealthStatus represents the system health status
type HealthStatus struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health reports service and database status. A released database
// (after a restore) reports "restart_required".
func (h *HealthHandler) Health(c echo.Context) error {
	status := HealthStatus{
		Status:     "healthy",
		Version:    pkgconfig.Version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:  time.Now().UTC(),
		Components: map[string]string{"database": "healthy"},
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		status.Status = "restart_required"
		status.Components["database"] = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
}
