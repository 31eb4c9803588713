package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/guzelclinic/guzel/src/internal/auth"
	"github.com/guzelclinic/guzel/src/internal/backup"
	"github.com/guzelclinic/guzel/src/internal/config"
	"github.com/guzelclinic/guzel/src/internal/database"
	"github.com/guzelclinic/guzel/src/internal/database/models"
	"github.com/guzelclinic/guzel/src/internal/settings"
)

type ServerSuite struct {
	suite.Suite

	dir      string
	store    *database.Store
	manager  *backup.Manager
	settings *settings.Store
	server   *Server
	token    string
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	t := s.T()
	s.dir = t.TempDir()

	cfg := &config.Config{
		Paths: config.PathsConfig{
			Data:         s.dir,
			Temp:         filepath.Join(s.dir, "tmp"),
			Settings:     filepath.Join(s.dir, "settings.json"),
			Translations: filepath.Join(s.dir, "translations"),
		},
		Database: config.DatabaseConfig{Path: filepath.Join(s.dir, backup.DatabaseFileName)},
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Security: config.SecurityConfig{SecretKey: "0123456789abcdef0123456789abcdef", TokenTTL: time.Minute},
	}
	require.NoError(t, cfg.CreateDirectories())

	store, err := database.Open(database.Config{Path: cfg.Database.Path, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { store.CloseAllConnections() })
	require.NoError(t, store.Migrate("admin"))
	s.store = store

	s.settings, err = settings.Open(cfg.Paths.Settings)
	require.NoError(t, err)

	s.manager, err = backup.NewManager(store, backup.Options{
		Paths: backup.Paths{
			SettingsFile:    cfg.Paths.Settings,
			TranslationsDir: cfg.Paths.Translations,
			BackupDir:       s.settings.BackupDir(cfg.Paths.Data),
			TempDir:         cfg.Paths.Temp,
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	s.server = New(Options{
		Config:   cfg,
		Store:    store,
		Manager:  s.manager,
		Settings: s.settings,
		Logger:   zerolog.Nop(),
	})

	s.token = s.login("admin", "admin")
}

func (s *ServerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) login(username, password string) string {
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](s *ServerSuite, rec *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *ServerSuite) TestHealthIsPublic() {
	rec := s.do(http.MethodGet, "/api/v1/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))
	s.NotEmpty(rec.Header().Get("X-Request-Id"))
}

func (s *ServerSuite) TestAuthentication() {
	rec := s.do(http.MethodGet, "/api/v1/backups", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	body := decode[map[string]string](s, rec)
	s.Equal("unauthorized", body["code"])
	s.Equal("missing authentication", body["error"])
	s.NotEmpty(body["request_id"])

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin"})
	s.Equal(http.StatusBadRequest, rec.Code)

	// Staff accounts cannot manage backups
	db, err := s.store.DB()
	s.Require().NoError(err)
	hash, err := auth.HashPassword("user1")
	s.Require().NoError(err)
	s.Require().NoError(db.Create(&models.User{Username: "user1", PasswordHash: hash}).Error)

	staff := s.login("user1", "user1")
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/v1/backups", staff, nil).Code)
}

func (s *ServerSuite) TestCreateAndList() {
	rec := s.do(http.MethodPost, "/api/v1/backups", s.token, map[string]string{"kind": "full"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]string](s, rec)
	s.True(strings.HasPrefix(filepath.Base(created["path"]), "guzel_clinic_backup_"))

	rec = s.do(http.MethodPost, "/api/v1/backups", s.token, map[string]string{"kind": "simple"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/backups", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	list := decode[struct {
		Backups []backup.CatalogEntry `json:"backups"`
		Total   int                   `json:"total"`
	}](s, rec)
	s.Equal(2, list.Total)
	kinds := []backup.Kind{list.Backups[0].Kind, list.Backups[1].Kind}
	s.ElementsMatch([]backup.Kind{backup.KindFull, backup.KindSimple}, kinds)

	rec = s.do(http.MethodPost, "/api/v1/backups", s.token, map[string]string{"kind": "weekly"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestAutoBackup() {
	rec := s.do(http.MethodPost, "/api/v1/backups/auto", s.token, map[string]any{"interval_days": 1, "kind": "simple"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	first := decode[map[string]any](s, rec)
	s.Equal(true, first["created"])

	rec = s.do(http.MethodPost, "/api/v1/backups/auto", s.token, map[string]any{"interval_days": 1, "kind": "simple"})
	s.Require().Equal(http.StatusOK, rec.Code)
	second := decode[map[string]any](s, rec)
	s.Equal(false, second["created"])
	s.Equal("", second["path"])
}

func (s *ServerSuite) TestRestoreValidation() {
	tests := []struct {
		filename string
		want     int
	}{
		{"", http.StatusBadRequest},
		{"../guzel_backup_2024-01-02_03-04-05.db", http.StatusBadRequest},
		{"notes.txt", http.StatusBadRequest},
		{"guzel_backup_2024-01-02_03-04-05.db", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := s.do(http.MethodPost, "/api/v1/backups/restore", s.token, map[string]string{"filename": tt.filename})
		s.Equal(tt.want, rec.Code, "%q: %s", tt.filename, rec.Body.String())
	}

	// A corrupt archive is rejected before the live database is touched
	corrupt := backup.FullBackupName(time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))
	s.Require().NoError(os.WriteFile(filepath.Join(s.manager.Catalog().Dir(), corrupt), []byte("junk"), 0o644))
	rec := s.do(http.MethodPost, "/api/v1/backups/restore", s.token, map[string]string{"filename": corrupt})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal("archive_corrupt", decode[map[string]string](s, rec)["code"])
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/v1/health", "", nil).Code)
}

func (s *ServerSuite) TestRestoreRequiresRestart() {
	rec := s.do(http.MethodPost, "/api/v1/backups", s.token, map[string]string{"kind": "full"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	filename := filepath.Base(decode[map[string]string](s, rec)["path"])

	s.Require().NoError(s.settings.Set("theme", "dark"))

	rec = s.do(http.MethodPost, "/api/v1/backups/restore", s.token, map[string]string{"filename": filename})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]any](s, rec)
	s.Equal(true, resp["restart_required"])
	s.Equal(filename, resp["restored"])

	// Settings came back from the archive and were reloaded
	s.Equal("light", s.settings.GetString("theme"))

	s.Equal(http.StatusServiceUnavailable, s.do(http.MethodGet, "/api/v1/health", "", nil).Code)
	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "admin"})
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *ServerSuite) TestDelete() {
	rec := s.do(http.MethodPost, "/api/v1/backups", s.token, map[string]string{"kind": "simple"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	filename := filepath.Base(decode[map[string]string](s, rec)["path"])

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/backups/"+filename, s.token, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/api/v1/backups/"+filename, s.token, nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, "/api/v1/backups/guzel_clinic.db", s.token, nil).Code)
}

func TestRateLimitApplies(t *testing.T) {
	dir := t.TempDir()
	store, err := database.Open(database.Config{Path: filepath.Join(dir, "x.db"), Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { store.CloseAllConnections() })

	mgr, err := backup.NewManager(store, backup.Options{Paths: backup.Paths{BackupDir: filepath.Join(dir, "b")}})
	require.NoError(t, err)

	srv := New(Options{
		Config: &config.Config{
			Server:   config.ServerConfig{RateLimit: 0.001, RateBurst: 2},
			Security: config.SecurityConfig{SecretKey: "0123456789abcdef", TokenTTL: time.Minute},
		},
		Store:   store,
		Manager: mgr,
		Logger:  zerolog.Nop(),
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
