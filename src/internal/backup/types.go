package backup

import (
	"time"
)

// Fixed names inside a full backup archive
const (
	DatabaseFileName    = "guzel_clinic.db"
	SettingsFileName    = "settings.json"
	TranslationsDirName = "translations"
	ManifestFileName    = "backup_metadata.json"
)

// FormatVersion is the archive format written into every manifest
const FormatVersion = "1.0.0"

// DefaultDescription is the manifest description used for full backups
const DefaultDescription = "Guzel Beauty Clinic Backup"

// Kind distinguishes the two backup forms
type Kind string

const (
	// KindFull is a zip archive with database, settings, translations and manifest
	KindFull Kind = "full"

	// KindSimple is a raw copy of the database file
	KindSimple Kind = "simple"
)

// ParseKind converts a user supplied string to a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFull, KindSimple:
		return Kind(s), nil
	}
	return "", newError(ErrUnsupportedArchive, "parse kind", s, nil)
}

// Store is the live database owner as seen by the backup engine.
// The engine reads FilePath for capture and overwrites it on restore.
type Store interface {
	FilePath() string
	CloseAllConnections() error
}

// Checkpointer is implemented by stores that can flush pending writes
// into the main database file before it is copied.
type Checkpointer interface {
	Checkpoint() error
}

// Paths locates the live files the engine captures and restores
type Paths struct {
	// SettingsFile is the application settings JSON file
	SettingsFile string
	// TranslationsDir holds one JSON file per language
	TranslationsDir string
	// BackupDir is where backup files are written and listed
	BackupDir string
	// TempDir is the parent of staging and restore directories. Empty means os.TempDir().
	TempDir string
}

// Manifest is the metadata record stored in every full archive
type Manifest struct {
	BackupDate  ManifestTime `json:"backup_date"`
	Version     string       `json:"version"`
	Description string       `json:"description"`
}

// CatalogEntry describes one backup file found in the backup directory
type CatalogEntry struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
	Kind      Kind      `json:"kind"`
}
