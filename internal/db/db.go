// Package db provides SQLite database access for GeoForce.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	_ "modernc.org/sqlite"
)

const dataDirPerms = 0o750

// Config contains database connection settings.
type Config struct {
	// Path is the SQLite file. Use ":memory:" for a private in-memory database.
	Path string

	// BusyTimeoutMs is the SQLite busy_timeout pragma.
	BusyTimeoutMs int

	// MaxConnections limits open connections.
	MaxConnections int
}

// DefaultConfig returns defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		BusyTimeoutMs:  5000,
		MaxConnections: 1,
	}
}

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

// Open connects to SQLite and applies pragmas. Call Migrate before use.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("db path is required")
	}
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, dataDirPerms); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}
	if cfg.BusyTimeoutMs <= 0 {
		cfg.BusyTimeoutMs = 5000
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	conn.SetMaxOpenConns(cfg.MaxConnections)
	conn.SetMaxIdleConns(cfg.MaxConnections)

	if err := applyPragmas(conn, cfg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	logger := logging.Component("db")
	logger.Debug().Str("path", cfg.Path).Msg("database opened")
	return &DB{DB: conn, path: cfg.Path, logger: logger}, nil
}

// OpenInMemory opens a migrated private in-memory database.
func OpenInMemory() (*DB, error) {
	db, err := Open(Config{Path: ":memory:", MaxConnections: 1})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close releases the connection. Safe on nil.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Transaction runs fn in a transaction, committing when fn returns nil.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func applyPragmas(conn *sql.DB, cfg Config) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", cfg.BusyTimeoutMs),
	}
	if cfg.Path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;")
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
