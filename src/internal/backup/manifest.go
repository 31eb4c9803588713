package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// legacyTimeLayouts are the naive ISO-8601 forms written by the first
// version of the clinic application (no zone, local time).
var legacyTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ManifestTime marshals as RFC 3339 and accepts the legacy naive form on input
type ManifestTime struct {
	time.Time
}

func (t ManifestTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *ManifestTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("backup_date: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range legacyTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("backup_date: unrecognized timestamp %q", s)
}

// WriteManifest writes backup_metadata.json into dir, replacing any existing one
func WriteManifest(dir, description string, now time.Time) error {
	manifest := Manifest{
		BackupDate:  ManifestTime{now},
		Version:     FormatVersion,
		Description: description,
	}

	data, err := json.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644)
}

// ReadManifest loads and validates backup_metadata.json from dir
func ReadManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFileName)

	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newError(ErrManifestMissing, "read manifest", manifestPath, nil)
	}
	if err != nil {
		return nil, newError(ErrManifestCorrupt, "read manifest", manifestPath, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, newError(ErrManifestCorrupt, "read manifest", manifestPath, err)
	}
	if err := validateManifest(&manifest); err != nil {
		return nil, newError(ErrManifestCorrupt, "read manifest", manifestPath, err)
	}
	return &manifest, nil
}

// validateManifest rejects manifests written by an incompatible format
func validateManifest(m *Manifest) error {
	if strings.TrimSpace(m.Version) == "" {
		return errors.New("missing version")
	}
	if m.BackupDate.IsZero() {
		return errors.New("missing backup_date")
	}
	if majorVersion(m.Version) != majorVersion(FormatVersion) {
		return fmt.Errorf("unsupported format version %s (current %s)", m.Version, FormatVersion)
	}
	return nil
}

func majorVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	major, _, _ := strings.Cut(v, ".")
	return major
}
