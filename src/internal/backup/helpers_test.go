package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	path        string
	closeCalls  int
	checkpoints int
	closeErr    error
}

func (f *fakeStore) FilePath() string { return f.path }

func (f *fakeStore) CloseAllConnections() error {
	f.closeCalls++
	return f.closeErr
}

func (f *fakeStore) Checkpoint() error {
	f.checkpoints++
	return nil
}

// testClock is a settable clock for Options.Now
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// liveEnv is an on-disk application state: database, settings and translations
type liveEnv struct {
	root  string
	store *fakeStore
	paths Paths
}

func newLiveEnv(t *testing.T) *liveEnv {
	t.Helper()
	root := t.TempDir()
	env := &liveEnv{
		root:  root,
		store: &fakeStore{path: filepath.Join(root, "data", "guzel_clinic.db")},
		paths: Paths{
			SettingsFile:    filepath.Join(root, "data", "settings.json"),
			TranslationsDir: filepath.Join(root, "data", "translations"),
			BackupDir:       filepath.Join(root, "backups"),
			TempDir:         filepath.Join(root, "tmp"),
		},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(env.store.path), 0o755))
	require.NoError(t, os.MkdirAll(env.paths.TempDir, 0o755))
	return env
}

func (e *liveEnv) writeDB(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.store.path, []byte(content), 0o644))
}

func (e *liveEnv) writeSettings(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.paths.SettingsFile, []byte(content), 0o644))
}

func (e *liveEnv) writeTranslation(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.paths.TranslationsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.paths.TranslationsDir, name), []byte(content), 0o644))
}

func (e *liveEnv) manager(t *testing.T, clock *testClock) *Manager {
	t.Helper()
	opts := Options{Paths: e.paths, Logger: zerolog.Nop()}
	if clock != nil {
		opts.Now = clock.Now
	}
	m, err := NewManager(e.store, opts)
	require.NoError(t, err)
	return m
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
