package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guzelclinic/guzel/src/internal/database/models"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret", "guzel", time.Minute)
	user := &models.User{ID: 7, Username: "admin", IsAdmin: true}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsAdmin)

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewAuthService("other-secret", "guzel", time.Minute)
		_, err := other.ValidateToken(token.AccessToken)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		later := NewAuthService("test-secret", "guzel", time.Minute)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ValidateToken(token.AccessToken)
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	svc := NewAuthService("test-secret", "guzel", time.Minute)
	mw := NewMiddleware(svc)

	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/v1/health", ok, mw.Auth())
	e.GET("/api/v1/backups", ok, mw.Auth(), mw.RequireAdmin())

	adminToken, err := svc.GenerateToken(&models.User{ID: 1, Username: "admin", IsAdmin: true})
	require.NoError(t, err)
	staffToken, err := svc.GenerateToken(&models.User{ID: 2, Username: "user1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"public path", "/api/v1/health", "", http.StatusOK},
		{"missing header", "/api/v1/backups", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/v1/backups", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/api/v1/backups", "Bearer nope", http.StatusUnauthorized},
		{"non admin", "/api/v1/backups", "Bearer " + staffToken.AccessToken, http.StatusForbidden},
		{"admin", "/api/v1/backups", "Bearer " + adminToken.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSetPasswordAndAuthenticate(t *testing.T) {
	db := openTestDB(t)

	_, err := SetPassword(db, "reception", "short", false)
	assert.Error(t, err)
	_, err = SetPassword(db, "", "long enough", false)
	assert.Error(t, err)

	created, err := SetPassword(db, "reception", "first-password", false)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.IsAdmin)

	user, err := Authenticate(db, "reception", "first-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	updated, err := SetPassword(db, "reception", "second-password", true)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.IsAdmin)

	_, err = Authenticate(db, "reception", "first-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(db, "nobody", "second-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Resetting without --admin keeps the flag
	again, err := SetPassword(db, "reception", "third-password", false)
	require.NoError(t, err)
	assert.True(t, again.IsAdmin)
}
