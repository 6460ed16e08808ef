package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ncruces/go-sqlite3"
)

var (
	// ErrNotFound is returned by reads when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity is matched (errors.Is) by every constraint violation.
	ErrIntegrity = errors.New("integrity constraint violated")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", ErrIntegrity)
	// ErrDuplicateMedicalRecord is returned when a patient already has a record.
	ErrDuplicateMedicalRecord = fmt.Errorf("%w: patient already has a medical record", ErrIntegrity)
	// ErrForeignKey is returned when a referenced patient or practitioner
	// does not exist.
	ErrForeignKey = fmt.Errorf("%w: referenced row does not exist", ErrIntegrity)

	// ErrInvalidCredentials is returned by VerifyUser for an unknown
	// username and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrLastAdmin is returned when an operation would leave no admin user.
	ErrLastAdmin = errors.New("cannot remove the last admin user")
	// ErrSchemaTooNew is returned by Initialize for a file written by a newer
	// schema than this code knows.
	ErrSchemaTooNew = errors.New("database schema is newer than this application")
)

// StorageError is a failure of the storage engine that is not a constraint
// violation: I/O, locking, malformed schema and similar.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// translate maps an engine error from op onto the package's taxonomy.
// unique is the integrity error to report for a uniqueness violation; nil
// means plain ErrIntegrity.
func translate(op string, err error, unique error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	case isUniqueViolation(err):
		if unique == nil {
			unique = ErrIntegrity
		}
		return fmt.Errorf("failed to %s: %w: %w", op, unique, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("failed to %s: %w: %w", op, ErrForeignKey, err)
	case isConstraintViolation(err):
		return fmt.Errorf("failed to %s: %w: %w", op, ErrIntegrity, err)
	default:
		return storageErr(op, err)
	}
}

// Drivers other than ncruces report constraint failures only in the
// message, so the text is checked as well.
func isUniqueViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) ||
		errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY) ||
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isConstraintViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT) ||
		strings.Contains(err.Error(), "constraint failed")
}
