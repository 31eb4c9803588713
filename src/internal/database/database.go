package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guzelclinic/guzel/src/internal/database/models"
)

// ErrClosed is returned once CloseAllConnections has released the database
var ErrClosed = errors.New("database: store is closed")

// Config controls how the clinic database is opened
type Config struct {
	Path           string
	MaxConnections int
	Debug          bool
	Logger         zerolog.Logger
}

// Store owns the clinic database file and its connection pool
type Store struct {
	path string
	log  zerolog.Logger

	mu     sync.Mutex
	db     *gorm.DB
	closed bool
}

// Open opens (creating if needed) the SQLite database at cfg.Path
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database: path is required")
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Configure logger - use Silent for production, Info for debug
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		path: path,
		db:   db,
		log:  cfg.Logger.With().Str("component", "database").Logger(),
	}, nil
}

// FilePath returns the absolute path of the database file
func (s *Store) FilePath() string {
	return s.path
}

// DB returns the gorm handle, or ErrClosed after CloseAllConnections
func (s *Store) DB() (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.db, nil
}

// Ping checks that the database still answers
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.DB()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the clinic schema and seeds default data
func (s *Store) Migrate(adminPassword string) error {
	db, err := s.DB()
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := InitializeDefaultData(db, adminPassword); err != nil {
		return fmt.Errorf("failed to initialize default data: %w", err)
	}
	return nil
}

// Checkpoint folds the write-ahead log into the main database file so a
// plain file copy sees every committed transaction.
func (s *Store) Checkpoint() error {
	db, err := s.DB()
	if err != nil {
		return err
	}
	if err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// CloseAllConnections releases every pooled connection. It is safe to call
// more than once; the store is unusable afterwards.
func (s *Store) CloseAllConnections() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.closed = true
	s.log.Info().Str("path", s.path).Msg("database connections closed")
	return nil
}
