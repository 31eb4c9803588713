package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/guzelclinic/guzel/src/internal/backup"
	apperrors "github.com/guzelclinic/guzel/src/internal/errors"
)

// SettingsReloader re-reads settings after a restore replaced the file
type SettingsReloader interface {
	Reload() error
}

// BackupHandler handles backup and restore endpoints
type BackupHandler struct {
	manager  *backup.Manager
	settings SettingsReloader
	log      zerolog.Logger
}

// NewBackupHandler creates a new backup handler. settings may be nil.
func NewBackupHandler(manager *backup.Manager, settings SettingsReloader, log zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		manager:  manager,
		settings: settings,
		log:      log,
	}
}

// CreateBackupRequest selects the backup form
type CreateBackupRequest struct {
	Kind string `json:"kind" validate:"omitempty,oneof=full simple"`
}

// RestoreRequest names a backup inside the backup directory
type RestoreRequest struct {
	Filename string `json:"filename" validate:"required"`
}

// AutoBackupRequest runs the due check on demand
type AutoBackupRequest struct {
	IntervalDays int    `json:"interval_days" validate:"gte=0"`
	Kind         string `json:"kind" validate:"omitempty,oneof=full simple"`
}

// ListBackups lists available backups, newest first
func (h *BackupHandler) ListBackups(c echo.Context) error {
	entries, err := h.manager.ListBackups()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"backups": entries,
		"total":   len(entries),
	})
}

// CreateBackup creates a new backup synchronously
func (h *BackupHandler) CreateBackup(c echo.Context) error {
	var req CreateBackupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var (
		path string
		err  error
	)
	if backup.Kind(req.Kind) == backup.KindSimple {
		path, err = h.manager.CreateSimpleBackup(ctx)
	} else {
		path, err = h.manager.CreateFullBackup(ctx)
	}
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"path": path,
	})
}

// RestoreBackup restores from a backup in the backup directory
func (h *BackupHandler) RestoreBackup(c echo.Context) error {
	var req RestoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	path, err := h.manager.ResolveBackup(req.Filename)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.manager.Restore(c.Request().Context(), path); err != nil {
		return h.fail(c, err)
	}

	if h.settings != nil {
		if err := h.settings.Reload(); err != nil {
			h.log.Warn().Err(err).Msg("failed to reload settings after restore")
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"restored":         req.Filename,
		"restart_required": true,
	})
}

// AutoBackup creates a backup when the newest one is older than the interval
func (h *BackupHandler) AutoBackup(c echo.Context) error {
	var req AutoBackupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	kind := backup.KindFull
	if req.Kind != "" {
		kind = backup.Kind(req.Kind)
	}

	path, created, err := h.manager.AutoBackupIfDue(c.Request().Context(), req.IntervalDays, kind)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"created": created,
		"path":    path,
	})
}

// DeleteBackup deletes a backup file
func (h *BackupHandler) DeleteBackup(c echo.Context) error {
	path, err := h.manager.ResolveBackup(c.Param("filename"))
	if err != nil {
		return h.fail(c, err)
	}

	deleted, err := h.manager.DeleteBackup(path)
	if err != nil {
		return h.fail(c, err)
	}
	if !deleted {
		return apperrors.JSON(c, http.StatusNotFound, apperrors.CodeNotFound, "backup not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// fail writes err as a JSON error with the status matching its kind
func (h *BackupHandler) fail(c echo.Context, err error) error {
	status, code := StatusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("code", code).Msg("backup request failed")
	}
	return apperrors.JSON(c, status, code, err.Error())
}

// StatusForError maps backup engine errors to HTTP statuses
func StatusForError(err error) (int, string) {
	kind := backup.KindOf(err)
	code := kind.Code()

	switch {
	case errors.Is(err, os.ErrNotExist) && kind == backup.ErrRestore:
		return http.StatusNotFound, apperrors.CodeNotFound
	case errors.Is(err, backup.ErrBackupExists):
		return http.StatusConflict, code
	}

	switch kind {
	case backup.ErrUnsupportedArchive:
		return http.StatusBadRequest, code
	case backup.ErrArchiveCorrupt, backup.ErrManifestMissing, backup.ErrManifestCorrupt, backup.ErrDatabaseMissing:
		return http.StatusUnprocessableEntity, code
	case backup.ErrSnapshot, backup.ErrArchiveWrite, backup.ErrRestore, backup.ErrPartialRestore:
		return http.StatusInternalServerError, code
	}
	return http.StatusInternalServerError, apperrors.CodeInternal
}

// RegisterRoutes registers backup routes
func (h *BackupHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/backups", h.ListBackups)
	g.POST("/backups", h.CreateBackup)
	g.POST("/backups/restore", h.RestoreBackup)
	g.POST("/backups/auto", h.AutoBackup)
	g.DELETE("/backups/:filename", h.DeleteBackup)
}
