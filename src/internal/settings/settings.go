// Package settings owns settings.json, the user-editable preferences file
// shared with the desktop client and captured in every full backup.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/guzelclinic/guzel/src/internal/backup"
)

// Keys read by the backup scheduler
const (
	KeyAutoBackup         = "backup.auto_backup"
	KeyBackupIntervalDays = "backup.backup_interval_days"
	KeyBackupLocation     = "backup.backup_location"
	KeyBackupKeepLast     = "backup.keep_last"
	KeyBackupKind         = "backup.kind"
)

// Defaults returns the settings written when no settings file exists
func Defaults() map[string]any {
	return map[string]any{
		"theme":    "light",
		"language": "ar",
		"clinic_info": map[string]any{
			"name":         "مركز جوزيل للتجميل",
			"phone":        "+963956961395",
			"address":      "سوريا - ريف دمشق التل موقف طيبة مقابل امركز الثقافي الجديد",
			"email":        "",
			"social_media": map[string]any{},
		},
		"backup": map[string]any{
			"auto_backup":          true,
			"backup_interval_days": 1,
			"backup_location":      "backups/",
			"keep_last":            0,
			"kind":                 string(backup.KindFull),
		},
		"notifications": map[string]any{
			"appointment_reminder":  true,
			"reminder_hours_before": 24,
		},
	}
}

// Store reads and writes settings.json
type Store struct {
	path string

	mu sync.RWMutex
	v  *viper.Viper
}

// Open loads the settings file at path, creating it with Defaults when it
// does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the file from disk. It is needed after a restore replaced it.
func (s *Store) Reload() error {
	v := viper.New()
	v.SetConfigType("json")
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	f, err := os.Open(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := writeJSON(s.path, Defaults()); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("failed to open settings: %w", err)
	default:
		defer f.Close()
		if err := v.ReadConfig(f); err != nil {
			return fmt.Errorf("failed to parse settings %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
	return nil
}

// Get returns the value at a dotted key such as "clinic_info.name"
func (s *Store) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.Get(key)
}

// GetString returns the value at key as a string
func (s *Store) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}

// Set stores value at key and persists the file
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return writeJSON(s.path, s.v.AllSettings())
}

// AutoBackup reports whether a backup should be attempted at startup
func (s *Store) AutoBackup() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(KeyAutoBackup)
}

// BackupIntervalDays is the minimum age in days of the newest backup before
// another automatic one is taken.
func (s *Store) BackupIntervalDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt(KeyBackupIntervalDays)
}

// BackupKeepLast is the retention count for automatic backups; 0 keeps all
func (s *Store) BackupKeepLast() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt(KeyBackupKeepLast)
}

// BackupKind is the kind of backup taken automatically
func (s *Store) BackupKind() (backup.Kind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return backup.ParseKind(s.v.GetString(KeyBackupKind))
}

// BackupDir resolves backup_location. Relative locations are taken relative
// to baseDir.
func (s *Store) BackupDir(baseDir string) string {
	s.mu.RLock()
	loc := s.v.GetString(KeyBackupLocation)
	s.mu.RUnlock()

	if loc == "" {
		loc = "backups"
	}
	if filepath.IsAbs(loc) {
		return filepath.Clean(loc)
	}
	return filepath.Join(baseDir, loc)
}

// writeJSON keeps non-ASCII text readable and uses 4-space indentation so
// the file stays compatible with the desktop client.
func writeJSON(path string, data map[string]any) error {
	out, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
