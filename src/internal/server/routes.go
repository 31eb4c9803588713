package server

import (
	"github.com/guzelclinic/guzel/src/internal/api/handlers"
	"github.com/guzelclinic/guzel/src/internal/auth"
)

// setupRoutes configures all application routes
func (s *Server) setupRoutes() {
	authMiddleware := auth.NewMiddleware(s.auth)

	apiV1 := s.echo.Group("/api/v1", authMiddleware.Auth())

	handlers.NewHealthHandler(s.store).RegisterRoutes(apiV1)
	handlers.NewAuthHandler(s.store, s.auth, s.log).RegisterRoutes(apiV1)

	admin := apiV1.Group("", authMiddleware.RequireAdmin())
	handlers.NewBackupHandler(s.manager, s.settings, s.log).RegisterRoutes(admin)
}
