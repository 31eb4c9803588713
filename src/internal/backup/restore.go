package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Restore replaces live state with the backup at backupPath. A .zip file
// is restored as a full archive, a .db file as a simple database copy.
//
// Live state is untouched unless the returned error is ErrPartialRestore.
// After a successful restore the application must be restarted; open
// database handles are closed but not reopened.
func (m *Manager) Restore(ctx context.Context, backupPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var restore func(context.Context, string) error
	switch strings.ToLower(filepath.Ext(backupPath)) {
	case fullExt:
		restore = m.restoreFull
	case simpleExt:
		restore = m.restoreSimple
	default:
		return newError(ErrUnsupportedArchive, "restore", backupPath, nil)
	}

	exists, err := fileExists(backupPath)
	if err != nil {
		return newError(ErrRestore, "restore", backupPath, err)
	}
	if !exists {
		return newError(ErrRestore, "restore", backupPath, os.ErrNotExist)
	}
	same, err := sameFile(backupPath, m.store.FilePath())
	if err != nil {
		return newError(ErrRestore, "restore", backupPath, err)
	}
	if same {
		return newError(ErrRestore, "restore", backupPath, ErrLiveDatabase)
	}

	m.log.Info().Str("path", backupPath).Msg("backup: restore started")
	if err := restore(ctx, backupPath); err != nil {
		m.log.Error().Err(err).Str("path", backupPath).Msg("backup: restore failed")
		return err
	}
	m.log.Info().Str("path", backupPath).Msg("backup: restore completed, restart required")
	return nil
}

// restoreFull extracts, validates and then replaces database, settings and translations
func (m *Manager) restoreFull(ctx context.Context, archivePath string) error {
	restoreDir, err := os.MkdirTemp(tempRoot(m.paths.TempDir), "guzel-restore-*")
	if err != nil {
		return newError(ErrRestore, "create restore directory", archivePath, err)
	}
	defer func() {
		if err := os.RemoveAll(restoreDir); err != nil {
			m.log.Warn().Err(err).Str("dir", restoreDir).Msg("backup: failed to remove restore directory")
		}
	}()

	// Validation happens entirely on the extracted copy
	if err := Unpack(archivePath, restoreDir); err != nil {
		return err
	}

	manifest, err := ReadManifest(restoreDir)
	if err != nil {
		return err
	}
	m.log.Debug().
		Str("version", manifest.Version).
		Time("backup_date", manifest.BackupDate.Time).
		Msg("backup: manifest validated")

	dbBackup := filepath.Join(restoreDir, DatabaseFileName)
	exists, err := fileExists(dbBackup)
	if err != nil {
		return newError(ErrRestore, "inspect archive", archivePath, err)
	}
	if !exists {
		return newError(ErrDatabaseMissing, "restore", archivePath, nil)
	}

	if err := ctx.Err(); err != nil {
		return newError(ErrRestore, "restore", archivePath, err)
	}

	if err := m.store.CloseAllConnections(); err != nil {
		return newError(ErrRestore, "close database", m.store.FilePath(), err)
	}

	// From here on live files are being replaced
	if err := m.replaceDatabase(dbBackup); err != nil {
		return newError(ErrPartialRestore, "restore database", m.store.FilePath(), err)
	}

	settingsBackup := filepath.Join(restoreDir, SettingsFileName)
	if exists, err := fileExists(settingsBackup); err != nil {
		return newError(ErrPartialRestore, "restore settings", settingsBackup, err)
	} else if exists && m.paths.SettingsFile != "" {
		if err := os.MkdirAll(filepath.Dir(m.paths.SettingsFile), 0o755); err != nil {
			return newError(ErrPartialRestore, "restore settings", m.paths.SettingsFile, err)
		}
		if err := copyFile(settingsBackup, m.paths.SettingsFile); err != nil {
			return newError(ErrPartialRestore, "restore settings", m.paths.SettingsFile, err)
		}
	}

	translationsBackup := filepath.Join(restoreDir, TranslationsDirName)
	if exists, err := dirExists(translationsBackup); err != nil {
		return newError(ErrPartialRestore, "restore translations", translationsBackup, err)
	} else if exists && m.paths.TranslationsDir != "" {
		if err := replaceTranslations(translationsBackup, m.paths.TranslationsDir); err != nil {
			return newError(ErrPartialRestore, "restore translations", m.paths.TranslationsDir, err)
		}
	}

	return nil
}

// restoreSimple overwrites the live database with a raw .db copy.
// No manifest is consulted even when a same-named .zip exists.
func (m *Manager) restoreSimple(ctx context.Context, dbPath string) error {
	if err := ctx.Err(); err != nil {
		return newError(ErrRestore, "restore", dbPath, err)
	}
	if err := m.store.CloseAllConnections(); err != nil {
		return newError(ErrRestore, "close database", m.store.FilePath(), err)
	}
	if err := m.replaceDatabase(dbPath); err != nil {
		return newError(ErrPartialRestore, "restore database", m.store.FilePath(), err)
	}
	return nil
}

// replaceDatabase overwrites the live database file in place. WAL and shared
// memory sidecars belong to the old file and are removed first.
func (m *Manager) replaceDatabase(src string) error {
	livePath := m.store.FilePath()
	for _, sidecar := range []string{livePath + "-wal", livePath + "-shm"} {
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(livePath), 0o755); err != nil {
		return err
	}
	return copyFile(src, livePath)
}

// replaceTranslations swaps the live translations directory for the backed up
// one. Live files absent from the backup are lost.
func replaceTranslations(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	_, err := copyJSONFiles(src, dst)
	return err
}
