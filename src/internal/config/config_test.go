package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	data := t.TempDir()
	t.Setenv("GUZEL_PATHS_DATA", data)

	cfg, err := Load(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, data, cfg.Paths.Data)
	assert.Equal(t, filepath.Join(data, "settings.json"), cfg.Paths.Settings)
	assert.Equal(t, filepath.Join(data, "translations"), cfg.Paths.Translations)
	assert.Equal(t, filepath.Join(data, "guzel_clinic.db"), cfg.Database.Path)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8642, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:8642", cfg.Address())
	assert.Equal(t, 15*time.Minute, cfg.Security.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Len(t, cfg.Security.SecretKey, 64, "a secret key is generated when unset")
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	data := t.TempDir()
	path := writeConfig(t, `
paths:
  data: `+data+`
  settings: "{paths.data}/conf/settings.json"
server:
  port: 9000
log:
  level: DEBUG
security:
  secret_key: 0123456789abcdef0123
`)
	t.Setenv("GUZEL_SERVER_HOST", "0.0.0.0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(data, "conf", "settings.json"), cfg.Paths.Settings)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0123456789abcdef0123", cfg.Security.SecretKey)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("GUZEL_PATHS_DATA", t.TempDir())

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"port out of range", "server:\n  port: 70000\n", "Port"},
		{"unknown log level", "log:\n  level: loud\n", "Level"},
		{"short secret", "security:\n  secret_key: abc\n", "SecretKey"},
		{"negative rate", "server:\n  rate_limit: -1\n", "RateLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCreateDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		Paths: PathsConfig{
			Data:         filepath.Join(root, "data"),
			Temp:         filepath.Join(root, "tmp"),
			Settings:     filepath.Join(root, "data", "settings.json"),
			Translations: filepath.Join(root, "data", "translations"),
		},
		Database: DatabaseConfig{Path: filepath.Join(root, "db", "guzel_clinic.db")},
	}
	require.NoError(t, cfg.CreateDirectories())

	for _, dir := range []string{"data", "tmp", "data/translations", "db"} {
		assert.DirExists(t, filepath.Join(root, dir))
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("GUZEL_TEST_DIR", "/srv/guzel")
	assert.Equal(t, "/srv/guzel/data", expandPath("$GUZEL_TEST_DIR/data"))
	assert.Equal(t, "/srv/guzel/data", expandPath("%GUZEL_TEST_DIR%/data"))
	assert.Equal(t, "", expandPath(""))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
}
