package db

import (
	"context"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/clinicware/clinic/internal/clinic/model"
)

const (
	// DefaultAdminUsername and DefaultAdminPassword are used when a database
	// has no admin account. The password must be changed after first login.
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// InitReport describes what Initialize did.
type InitReport struct {
	// SchemaVersion is the schema version after initialization.
	SchemaVersion int
	// Applied lists the migrations applied by this run (empty when the file
	// was already current).
	Applied []int
	// PreviousAppVersion is the application version recorded by the last
	// run, if any.
	PreviousAppVersion string
	// DefaultAdmin is set when the default admin account was created. It
	// holds the plaintext password, which is not logged anywhere; the caller
	// shows it to the operator once.
	DefaultAdmin *DefaultAdminCredentials
}

// DefaultAdminCredentials are the credentials of a freshly created admin.
type DefaultAdminCredentials struct {
	Username string
	Password string
}

// Initialize brings the database up to the current schema and ensures an
// admin account exists. It is idempotent and safe on a brand-new file, on a
// file written by an older version of the application and on a current one.
//
// Any error is fatal to startup; no repository operation may run until
// Initialize has succeeded.
func (db *DB) Initialize() (*InitReport, error) {
	return db.InitializeContext(context.Background())
}

// InitializeContext is Initialize with context support.
func (db *DB) InitializeContext(ctx context.Context) (*InitReport, error) {
	applied, err := RunMigrations(ctx, db.conn.DB, defaultMigrations)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	for _, v := range applied {
		db.logger.Info("applied schema migration", "version", v, "path", db.path)
	}
	if err := EnsureSchema(ctx, db.conn.DB, defaultMigrations); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	report := &InitReport{Applied: applied}
	if report.SchemaVersion, err = db.SchemaVersion(ctx); err != nil {
		return nil, err
	}

	if report.PreviousAppVersion, err = db.recordAppVersion(ctx); err != nil {
		return nil, err
	}

	if report.DefaultAdmin, err = db.ensureAdmin(ctx); err != nil {
		return nil, err
	}

	return report, nil
}

// recordAppVersion stores the running version unless the file was last
// opened by a newer one, which is only warned about.
func (db *DB) recordAppVersion(ctx context.Context) (string, error) {
	previous, err := getMeta(ctx, db.conn, appVersionKey)
	if err != nil {
		return "", err
	}
	if db.appVersion == "" || !semver.IsValid(db.appVersion) {
		return previous, nil
	}
	if semver.IsValid(previous) && semver.Compare(previous, db.appVersion) > 0 {
		db.logger.Warn("database was last opened by a newer application version",
			"database_version", previous, "app_version", db.appVersion)
		return previous, nil
	}
	if previous != db.appVersion {
		if err := setMeta(ctx, db.conn, appVersionKey, db.appVersion); err != nil {
			return "", err
		}
	}
	return previous, nil
}

// ensureAdmin creates the default admin when no admin account exists. If a
// non-admin account already uses the default username it is promoted and its
// password reset, so the reported credentials always work.
func (db *DB) ensureAdmin(ctx context.Context) (*DefaultAdminCredentials, error) {
	var admins int
	if err := db.conn.GetContext(ctx, &admins, `SELECT COUNT(*) FROM usuarios WHERE nivel_acesso = ?`, string(model.AccessAdmin)); err != nil {
		return nil, storageErr("count admin users", err)
	}
	if admins > 0 {
		return nil, nil
	}

	hash, err := db.hasher.Hash(DefaultAdminPassword)
	if err != nil {
		return nil, err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO usuarios (nome_usuario, senha_hash, nivel_acesso) VALUES (?, ?, ?)
		ON CONFLICT (nome_usuario) DO UPDATE SET
			senha_hash = excluded.senha_hash,
			nivel_acesso = excluded.nivel_acesso`,
		DefaultAdminUsername, hash, string(model.AccessAdmin),
	)
	if err != nil {
		return nil, translate("create default admin", err, nil)
	}

	db.logger.Warn("created default admin account; change its password", "username", DefaultAdminUsername)
	return &DefaultAdminCredentials{Username: DefaultAdminUsername, Password: DefaultAdminPassword}, nil
}
