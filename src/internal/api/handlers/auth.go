package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/guzelclinic/guzel/src/internal/auth"
	"github.com/guzelclinic/guzel/src/internal/database"
)

// DBProvider hands out the live gorm handle. It fails once the database has
// been released for a restore.
type DBProvider interface {
	DB() (*gorm.DB, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	db          DBProvider
	authService *auth.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db DBProvider, authService *auth.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		db:          db,
		authService: authService,
		log:         log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
	IsAdmin     bool      `json:"is_admin"`
}

// Login handles user login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	db, err := h.db.DB()
	if err != nil {
		if errors.Is(err, database.ErrClosed) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable, restart required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	user, err := auth.Authenticate(db, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Warn().Str("username", req.Username).Str("remote_ip", c.RealIP()).Msg("login failed")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		Username:    user.Username,
		IsAdmin:     user.IsAdmin,
	})
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
}
