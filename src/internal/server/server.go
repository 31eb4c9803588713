package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	echoMiddleware "github.com/guzelclinic/guzel/src/internal/api/middleware"
	"github.com/guzelclinic/guzel/src/internal/auth"
	"github.com/guzelclinic/guzel/src/internal/backup"
	"github.com/guzelclinic/guzel/src/internal/config"
	"github.com/guzelclinic/guzel/src/internal/database"
	apperrors "github.com/guzelclinic/guzel/src/internal/errors"
	"github.com/guzelclinic/guzel/src/internal/settings"
)

// Options wires the server to the application components
type Options struct {
	Config   *config.Config
	Store    *database.Store
	Manager  *backup.Manager
	Settings *settings.Store
	Logger   zerolog.Logger
}

// Server represents the HTTP API server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	store    *database.Store
	manager  *backup.Manager
	settings *settings.Store
	auth     *auth.AuthService
	log      zerolog.Logger
}

// New creates a new server instance
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		config:   opts.Config,
		store:    opts.Store,
		manager:  opts.Manager,
		settings: opts.Settings,
		auth: auth.NewAuthService(
			opts.Config.Security.SecretKey,
			"guzel",
			opts.Config.Security.TokenTTL,
		),
		log: opts.Logger.With().Str("component", "server").Logger(),
	}

	e.Validator = NewEchoValidator()
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler(s.log)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on address until Shutdown is called
func (s *Server) Start(address string) error {
	s.log.Info().Str("address", address).Msg("server listening")
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	s.echo.Use(echoMiddleware.RequestLogger(s.log))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit("64K"))
	s.echo.Use(echoMiddleware.Security())
	s.echo.Use(echoMiddleware.RateLimit(s.config.Server.RateLimit, s.config.Server.RateBurst))
}
