package db

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinicware/clinic/internal/clinic/auth"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "clinica.db")
}

func testOptions() Options {
	return Options{
		Hasher: &auth.Hasher{Cost: bcrypt.MinCost},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// openTestDB opens path without initializing the schema.
func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := OpenWithOptions(path, testOptions())
	if err != nil {
		t.Fatalf("OpenWithOptions() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestDB returns an initialized database in a temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db := openTestDB(t, testDBPath(t))
	if _, err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return db
}
