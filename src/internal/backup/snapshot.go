package backup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Assembler gathers the live database, settings and translations into a
// staging directory ready for Pack.
type Assembler struct {
	store Store
	paths Paths
	now   func() time.Time
}

// NewAssembler creates an assembler over the given store and paths
func NewAssembler(store Store, paths Paths, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{store: store, paths: paths, now: now}
}

// Assemble builds a fresh staging directory and returns its path. The caller
// owns the directory and must remove it. On error nothing is left behind.
func (a *Assembler) Assemble() (string, error) {
	stagingDir := filepath.Join(tempRoot(a.paths.TempDir), "guzel-staging-"+uuid.NewString())

	// A leftover directory from a crashed run is a clean slate
	if err := os.RemoveAll(stagingDir); err != nil {
		return "", newError(ErrSnapshot, "assemble", stagingDir, err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", newError(ErrSnapshot, "assemble", stagingDir, err)
	}

	if err := a.populate(stagingDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return "", err
	}
	return stagingDir, nil
}

func (a *Assembler) populate(stagingDir string) error {
	// Flush pending writes so the copied file is self-contained
	if cp, ok := a.store.(Checkpointer); ok {
		if err := cp.Checkpoint(); err != nil {
			return newError(ErrSnapshot, "checkpoint database", a.store.FilePath(), err)
		}
	}

	dbPath := a.store.FilePath()
	if err := copyFile(dbPath, filepath.Join(stagingDir, DatabaseFileName)); err != nil {
		return newError(ErrSnapshot, "copy database", dbPath, err)
	}

	if a.paths.SettingsFile != "" {
		exists, err := fileExists(a.paths.SettingsFile)
		if err != nil {
			return newError(ErrSnapshot, "copy settings", a.paths.SettingsFile, err)
		}
		if exists {
			if err := copyFile(a.paths.SettingsFile, filepath.Join(stagingDir, SettingsFileName)); err != nil {
				return newError(ErrSnapshot, "copy settings", a.paths.SettingsFile, err)
			}
		}
	}

	if a.paths.TranslationsDir != "" {
		exists, err := dirExists(a.paths.TranslationsDir)
		if err != nil {
			return newError(ErrSnapshot, "copy translations", a.paths.TranslationsDir, err)
		}
		if exists {
			if _, err := copyJSONFiles(a.paths.TranslationsDir, filepath.Join(stagingDir, TranslationsDirName)); err != nil {
				return newError(ErrSnapshot, "copy translations", a.paths.TranslationsDir, err)
			}
		}
	}

	if err := WriteManifest(stagingDir, DefaultDescription, a.now()); err != nil {
		return newError(ErrSnapshot, "write manifest", stagingDir, err)
	}
	return nil
}
