// Package db is the clinic's storage layer: a single local SQLite file
// holding patients, practitioners, availability slots, sessions, medical
// records and user accounts.
//
// The package has two halves:
//
//   - Schema Manager (migrations.go, init.go): Initialize brings a brand-new,
//     legacy or current database file up to the current schema without losing
//     rows, and guarantees an admin account exists. It must complete before
//     any repository call.
//   - Repository Layer (patients.go, sessions.go, ...): entity-scoped create,
//     read, update, delete, list and search operations. Each call is its own
//     short statement or transaction; nothing spans several user actions.
//
// Referential rules (cascades, SET NULL, uniqueness) are declared in the
// schema and enforced by SQLite, not by application code. Foreign keys are
// switched on for every pooled connection through the DSN.
//
// Workflow:
//
//	database, err := db.Open("clinica.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//
//	report, err := database.Initialize()
//	if err != nil {
//	    return err // fatal: do not continue startup
//	}
//	id, err := database.CreatePatient(&model.Patient{...})
package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clinicware/clinic/internal/clinic/auth"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "clinica.db"

// DB wraps the SQLite connection pool and implements the repository
// operations.
type DB struct {
	conn       *sqlx.DB
	path       string
	driver     string
	hasher     *auth.Hasher
	logger     *slog.Logger
	appVersion string
}

// Options configures OpenWithOptions. The zero value is usable.
type Options struct {
	// Driver selects the registered SQL driver ("sqlite3" by default).
	Driver string
	// Hasher creates and verifies password hashes (bcrypt by default).
	Hasher *auth.Hasher
	// Logger receives schema and account events (slog.Default() by default).
	Logger *slog.Logger
	// AppVersion is the semantic version of the running application,
	// recorded in the database by Initialize. Empty skips the check.
	AppVersion string
}

// Open opens (creating if needed) the database file at path with default
// options. The schema is not touched until Initialize is called.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions opens the database file at path.
func OpenWithOptions(path string, opts Options) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("failed to open database: empty path")
	}
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	spec, ok := drivers[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("failed to open database: unknown driver %q", opts.Driver)
	}
	if opts.Hasher == nil {
		opts.Hasher = auth.NewHasher(false)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sqlx.Open(spec.name, spec.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(spec.maxOpenConns)
	conn.SetMaxIdleConns(spec.maxOpenConns)
	conn.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range spec.pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	return &DB{
		conn:       conn,
		path:       path,
		driver:     opts.Driver,
		hasher:     opts.Hasher,
		logger:     opts.Logger,
		appVersion: opts.AppVersion,
	}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying connection pool.
func (db *DB) RawDB() *sqlx.DB {
	return db.conn
}

// Close checkpoints the WAL and closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.logger.Warn("failed to checkpoint WAL", "error", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// inTx runs fn inside a transaction that is committed when fn returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}
