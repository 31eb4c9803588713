package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		wantOK   bool
		wantKind Kind
		wantTime time.Time
	}{
		{
			name:     "full archive",
			filename: "guzel_clinic_backup_20240102_030405.zip",
			wantOK:   true,
			wantKind: KindFull,
			wantTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
		},
		{
			name:     "simple copy",
			filename: "guzel_backup_2024-01-02_03-04-05.db",
			wantOK:   true,
			wantKind: KindSimple,
			wantTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
		},
		{name: "full with simple timestamp", filename: "guzel_clinic_backup_2024-01-02_03-04-05.zip"},
		{name: "simple with full timestamp", filename: "guzel_backup_20240102_030405.db"},
		{name: "garbage timestamp", filename: "guzel_clinic_backup_notatime.zip"},
		{name: "partial archive", filename: "guzel_clinic_backup_20240102_030405.zip.partial"},
		{name: "foreign file", filename: "notes.txt"},
		{name: "live database", filename: "guzel_clinic.db"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entry, ok := ParseFilename(tt.filename)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantKind, entry.Kind)
			assert.True(t, tt.wantTime.Equal(entry.Timestamp), "timestamp = %v", entry.Timestamp)
		})
	}
}

func TestCatalogList_NewestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	t1 := time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local)
	t2 := t1.Add(26 * time.Hour)
	t3 := t2.Add(90 * time.Minute)

	// Written out of chronological order on purpose
	files := map[string]string{
		SimpleBackupName(t2): "two",
		FullBackupName(t3):   "three!",
		FullBackupName(t1):   "1",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	entries, err := NewCatalog(dir).List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, FullBackupName(t3), entries[0].Filename)
	assert.Equal(t, SimpleBackupName(t2), entries[1].Filename)
	assert.Equal(t, FullBackupName(t1), entries[2].Filename)

	assert.Equal(t, KindFull, entries[0].Kind)
	assert.Equal(t, KindSimple, entries[1].Kind)
	assert.Equal(t, int64(len("three!")), entries[0].Size)
	assert.True(t, filepath.IsAbs(entries[0].Path))
}

func TestCatalogList_SkipsUnrecognized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := FullBackupName(time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local))
	for _, name := range []string{
		good,
		"guzel_clinic_backup_20241301_000000.zip", // month 13
		"guzel_backup_yesterday.db",
		"readme.md",
		"guzel_clinic_backup_20240601_120000.zip.partial",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "guzel_backup_2024-01-01_00-00-00.db"), 0o755))

	entries, err := NewCatalog(dir).List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, good, entries[0].Filename)
}

func TestCatalogList_MissingDirectory(t *testing.T) {
	t.Parallel()

	entries, err := NewCatalog(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	latest, err := NewCatalog(filepath.Join(t.TempDir(), "nope")).Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)
}
