package backup

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Filename patterns. The timestamp embedded in the name is the only record
// of when a backup was taken; there is no index file.
const (
	fullPrefix       = "guzel_clinic_backup_"
	fullExt          = ".zip"
	fullTimeLayout   = "20060102_150405"
	simplePrefix     = "guzel_backup_"
	simpleExt        = ".db"
	simpleTimeLayout = "2006-01-02_15-04-05"
)

// FullBackupName returns the archive filename for a full backup taken at t
func FullBackupName(t time.Time) string {
	return fullPrefix + t.Format(fullTimeLayout) + fullExt
}

// SimpleBackupName returns the filename for a simple backup taken at t
func SimpleBackupName(t time.Time) string {
	return simplePrefix + t.Format(simpleTimeLayout) + simpleExt
}

// ParseFilename recognizes a backup filename and extracts its timestamp and
// kind. Names that do not match either pattern exactly are rejected.
func ParseFilename(name string) (CatalogEntry, bool) {
	var (
		stamp, layout string
		kind          Kind
	)
	switch {
	case strings.HasPrefix(name, fullPrefix) && strings.HasSuffix(name, fullExt):
		stamp = strings.TrimSuffix(strings.TrimPrefix(name, fullPrefix), fullExt)
		layout, kind = fullTimeLayout, KindFull
	case strings.HasPrefix(name, simplePrefix) && strings.HasSuffix(name, simpleExt):
		stamp = strings.TrimSuffix(strings.TrimPrefix(name, simplePrefix), simpleExt)
		layout, kind = simpleTimeLayout, KindSimple
	default:
		return CatalogEntry{}, false
	}

	ts, err := time.ParseInLocation(layout, stamp, time.Local)
	if err != nil {
		return CatalogEntry{}, false
	}
	return CatalogEntry{Filename: name, Timestamp: ts, Kind: kind}, true
}

// Catalog lists the backups in a directory. It keeps no state between calls.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog over dir
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir returns the scanned directory
func (c *Catalog) Dir() string { return c.dir }

// List scans the directory and returns recognized backups, newest first.
// A missing directory is an empty catalog.
func (c *Catalog) List() ([]CatalogEntry, error) {
	absDir, err := filepath.Abs(c.dir)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(absDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []CatalogEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]CatalogEntry, 0, len(dirEntries))
	for _, d := range dirEntries {
		if !d.Type().IsRegular() {
			continue
		}
		entry, ok := ParseFilename(d.Name())
		if !ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		entry.Path = filepath.Join(absDir, d.Name())
		entry.Size = info.Size()
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// Latest returns the newest backup, or nil when there is none
func (c *Catalog) Latest() (*CatalogEntry, error) {
	entries, err := c.List()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
