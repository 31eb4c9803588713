package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/guzelclinic/guzel/src/internal/backup"
	"github.com/guzelclinic/guzel/src/internal/config"
	"github.com/guzelclinic/guzel/src/internal/database"
	"github.com/guzelclinic/guzel/src/internal/settings"
	"github.com/guzelclinic/guzel/src/pkg/utils"
)

// app holds the components every command works with
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    *database.Store
	settings *settings.Store
	manager  *backup.Manager
}

func newApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := utils.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.CreateDirectories(); err != nil {
		return nil, err
	}

	store, err := database.Open(database.Config{
		Path:           cfg.Database.Path,
		MaxConnections: cfg.Database.MaxConnections,
		Debug:          cfg.Debug,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := store.Migrate(cfg.Database.AdminPassword); err != nil {
		store.CloseAllConnections()
		return nil, err
	}

	st, err := settings.Open(cfg.Paths.Settings)
	if err != nil {
		store.CloseAllConnections()
		return nil, err
	}

	manager, err := backup.NewManager(store, backup.Options{
		Paths: backup.Paths{
			SettingsFile:    cfg.Paths.Settings,
			TranslationsDir: cfg.Paths.Translations,
			BackupDir:       st.BackupDir(cfg.Paths.Data),
			TempDir:         cfg.Paths.Temp,
		},
		KeepLast: st.BackupKeepLast(),
		Logger:   log,
	})
	if err != nil {
		store.CloseAllConnections()
		return nil, err
	}

	return &app{cfg: cfg, log: log, store: store, settings: st, manager: manager}, nil
}

// startupBackup takes the automatic backup when settings enable it and one
// is due. Failures are logged and never stop startup.
func (a *app) startupBackup(ctx context.Context) {
	if !a.settings.AutoBackup() {
		return
	}
	kind, err := a.settings.BackupKind()
	if err != nil {
		a.log.Warn().Err(err).Msg("invalid backup kind in settings, using full")
		kind = backup.KindFull
	}

	path, created, err := a.manager.AutoBackupIfDue(ctx, a.settings.BackupIntervalDays(), kind)
	switch {
	case err != nil:
		a.log.Error().Err(err).Msg("automatic backup failed")
	case created:
		a.log.Info().Str("path", path).Msg("automatic backup created")
	}
}

func (a *app) Close() {
	if err := a.store.CloseAllConnections(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close database")
	}
}
