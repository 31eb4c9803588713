package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Manager
type Options struct {
	Paths
	// KeepLast bounds the number of backups kept after an automatic backup. 0 keeps all.
	KeepLast int
	Logger   zerolog.Logger
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// Manager handles backup and restore operations.
// Every operation runs to completion on the calling goroutine.
type Manager struct {
	store     Store
	paths     Paths
	keepLast  int
	catalog   *Catalog
	assembler *Assembler
	log       zerolog.Logger
	now       func() time.Time

	// serializes operations issued through this Manager
	mu sync.Mutex
}

// NewManager creates a new backup manager and makes sure the backup directory exists
func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("backup: nil store")
	}
	if strings.TrimSpace(store.FilePath()) == "" {
		return nil, errors.New("backup: database path is empty")
	}
	if strings.TrimSpace(opts.BackupDir) == "" {
		return nil, errors.New("backup: backup directory is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(opts.BackupDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create backup directory: %w", err)
	}

	m := &Manager{
		store:     store,
		paths:     opts.Paths,
		keepLast:  opts.KeepLast,
		catalog:   NewCatalog(opts.BackupDir),
		assembler: NewAssembler(store, opts.Paths, opts.Now),
		log:       opts.Logger.With().Str("component", "backup").Logger(),
		now:       opts.Now,
	}
	m.removeStalePartials()
	return m, nil
}

// removeStalePartials deletes partial files left by an interrupted write.
// Only names that would become a recognized backup are touched.
func (m *Manager) removeStalePartials() {
	entries, err := os.ReadDir(m.paths.BackupDir)
	if err != nil {
		m.log.Warn().Err(err).Str("dir", m.paths.BackupDir).Msg("backup: failed to scan for partial files")
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, partialSuffix) {
			continue
		}
		if _, ok := ParseFilename(strings.TrimSuffix(name, partialSuffix)); !ok {
			continue
		}
		path := filepath.Join(m.paths.BackupDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warn().Err(err).Str("path", path).Msg("backup: failed to remove partial file")
			continue
		}
		m.log.Info().Str("path", path).Msg("backup: removed partial file")
	}
}

// Catalog returns the catalog over the backup directory
func (m *Manager) Catalog() *Catalog { return m.catalog }

// CreateFullBackup captures database, settings and translations into a new
// zip archive in the backup directory and returns its path.
func (m *Manager) CreateFullBackup(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createFull(ctx)
}

func (m *Manager) createFull(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(ErrSnapshot, "create full backup", "", err)
	}

	outputPath, err := m.reserveOutput(FullBackupName(m.now()))
	if err != nil {
		return "", err
	}

	stagingDir, err := m.assembler.Assemble()
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			m.log.Warn().Err(err).Str("dir", stagingDir).Msg("backup: failed to remove staging directory")
		}
	}()

	if err := Pack(stagingDir, outputPath); err != nil {
		return "", err
	}

	m.logCreated(KindFull, outputPath)
	return outputPath, nil
}

// CreateSimpleBackup copies the raw database file into the backup directory
// and returns the copy's path.
func (m *Manager) CreateSimpleBackup(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSimple(ctx)
}

func (m *Manager) createSimple(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(ErrSnapshot, "create simple backup", "", err)
	}

	outputPath, err := m.reserveOutput(SimpleBackupName(m.now()))
	if err != nil {
		return "", err
	}

	if cp, ok := m.store.(Checkpointer); ok {
		if err := cp.Checkpoint(); err != nil {
			return "", newError(ErrSnapshot, "checkpoint database", m.store.FilePath(), err)
		}
	}
	if err := copyFileAtomic(m.store.FilePath(), outputPath); err != nil {
		return "", newError(ErrSnapshot, "copy database", m.store.FilePath(), err)
	}

	m.logCreated(KindSimple, outputPath)
	return outputPath, nil
}

// reserveOutput resolves name inside the backup directory and refuses to
// overwrite an existing backup taken within the same second.
func (m *Manager) reserveOutput(name string) (string, error) {
	outputPath, err := filepath.Abs(filepath.Join(m.paths.BackupDir, name))
	if err != nil {
		return "", newError(ErrArchiveWrite, "resolve output", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", newError(ErrArchiveWrite, "create backup directory", m.paths.BackupDir, err)
	}
	if _, err := os.Stat(outputPath); err == nil {
		return "", newError(ErrArchiveWrite, "create backup", outputPath, ErrBackupExists)
	}
	return outputPath, nil
}

func (m *Manager) logCreated(kind Kind, path string) {
	ev := m.log.Info().Str("kind", string(kind)).Str("path", path)
	if info, err := os.Stat(path); err == nil {
		ev = ev.Int64("size", info.Size())
	}
	ev.Msg("backup: created")
}

// ListBackups returns the backups in the backup directory, newest first
func (m *Manager) ListBackups() ([]CatalogEntry, error) {
	return m.catalog.List()
}

// DeleteBackup removes a backup file. It returns false when the file does not
// exist. Only recognized backup filenames directly inside the backup
// directory are deleted.
func (m *Manager) DeleteBackup(path string) (bool, error) {
	if _, ok := ParseFilename(filepath.Base(path)); !ok {
		return false, newError(ErrUnsupportedArchive, "delete backup", path, nil)
	}
	inside, err := m.inBackupDir(path)
	if err != nil {
		return false, newError(ErrUnsupportedArchive, "delete backup", path, err)
	}
	if !inside {
		return false, newError(ErrUnsupportedArchive, "delete backup", path, ErrOutsideBackupDir)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete backup %s: %w", path, err)
	}
	m.log.Info().Str("path", path).Msg("backup: deleted")
	return true, nil
}

func (m *Manager) inBackupDir(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absDir, err := filepath.Abs(m.paths.BackupDir)
	if err != nil {
		return false, err
	}
	return filepath.Dir(absPath) == absDir, nil
}

// ResolveBackup maps a bare filename to its path inside the backup directory.
// Names containing path elements or not matching a backup pattern are rejected.
func (m *Manager) ResolveBackup(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) {
		return "", newError(ErrUnsupportedArchive, "resolve backup", filename, errors.New("invalid backup filename"))
	}
	if _, ok := ParseFilename(filename); !ok {
		return "", newError(ErrUnsupportedArchive, "resolve backup", filename, nil)
	}
	return filepath.Abs(filepath.Join(m.paths.BackupDir, filename))
}
