package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/backup"
	"github.com/clinicware/clinic/internal/clinic/db"
	"github.com/clinicware/clinic/internal/clinic/model"
)

// runCLI executes the command tree against dbPath as the default admin.
// Later arguments override the leading defaults.
func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--db", dbPath, "--no-color", "-o", "table", "--user", "admin"}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	teardown()
	resetFlags(rootCmd)
	return out.String(), err
}

// resetFlags clears flag values left over from the previous execution.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func newCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLINIC_HOME", dir)
	t.Setenv(PasswordEnv, db.DefaultAdminPassword)
	return filepath.Join(dir, "clinica.db")
}

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestInitAndStatus(t *testing.T) {
	dbPath := newCLI(t)

	out, err := runCLI(t, dbPath, "init")
	require.NoError(t, err)
	require.Contains(t, out, "Database ready")
	require.Contains(t, out, fmt.Sprintf("Schema version: %d", db.CurrentSchemaVersion()))

	out, err = runCLI(t, dbPath, "init", "-o", "json")
	require.NoError(t, err)
	summary := decodeJSON[initSummary](t, out)
	require.Empty(t, summary.Applied)
	require.False(t, summary.CreatedAdmin)

	out, err = runCLI(t, dbPath, "status", "-o", "json")
	require.NoError(t, err)
	report := decodeJSON[statusReport](t, out)
	require.Equal(t, db.CurrentSchemaVersion(), report.SchemaVersion)
	require.Equal(t, 1, report.Counts.Users)
	require.Equal(t, 1, report.Counts.Admins)
	require.Positive(t, report.SizeBytes)
}

func TestPatientWorkflow(t *testing.T) {
	dbPath := newCLI(t)

	_, err := runCLI(t, dbPath, "patient", "add", "--name", "Ana Silva", "--birth", "15/03/2015", "--guardian", "Maria Silva")
	require.NoError(t, err)
	_, err = runCLI(t, dbPath, "patient", "add", "--name", "Bruno Costa", "--birth", "2010-07-01", "--guardian", "Rita Costa")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "patient", "list", "-o", "json")
	require.NoError(t, err)
	patients := decodeJSON[[]model.Patient](t, out)
	require.Len(t, patients, 2)
	require.Equal(t, "Ana Silva", patients[0].FullName)
	require.Equal(t, "2015-03-15", patients[0].BirthDate)

	out, err = runCLI(t, dbPath, "patient", "list", "--search", "ANA")
	require.NoError(t, err)
	require.Contains(t, out, "15/03/2015")
	require.NotContains(t, out, "Bruno")

	_, err = runCLI(t, dbPath, "patient", "edit", "1", "--guardian", "João Silva")
	require.NoError(t, err)
	out, err = runCLI(t, dbPath, "patient", "show", "1", "-o", "json")
	require.NoError(t, err)
	shown := decodeJSON[model.Patient](t, out)
	require.Equal(t, "João Silva", shown.GuardianName)
	require.Equal(t, "Ana Silva", shown.FullName)

	_, err = runCLI(t, dbPath, "patient", "add", "--name", "Sem Data", "--guardian", "Rita Costa")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "birth_date", verr.Field)

	_, err = runCLI(t, dbPath, "patient", "show", "99")
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestSessionsAndRecord(t *testing.T) {
	dbPath := newCLI(t)

	_, err := runCLI(t, dbPath, "patient", "add", "--name", "Ana Silva", "--birth", "15/03/2015", "--guardian", "Maria Silva")
	require.NoError(t, err)
	_, err = runCLI(t, dbPath, "practitioner", "add", "--name", "Paula Reis", "--specialty", "Fonoaudiologia")
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "session", "add", "--patient", "1", "--practitioner", "1",
		"--date", "10/06/2024", "--start", "14h", "--end", "14h50", "--level", "beginner", "--summary", "Avaliação inicial")
	require.NoError(t, err)
	_, err = runCLI(t, dbPath, "session", "add", "--patient", "1", "--date", "17/06/2024")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "session", "list", "--patient", "1", "-o", "json")
	require.NoError(t, err)
	sessions := decodeJSON[[]model.Session](t, out)
	require.Len(t, sessions, 2)
	require.Equal(t, "2024-06-17", sessions[0].Date, "newest first")
	require.Nil(t, sessions[0].PractitionerName)
	require.Equal(t, "14:00", sessions[1].StartTime)
	require.Equal(t, "14:50", sessions[1].EndTime)
	require.Equal(t, string(model.EvolutionBeginner), sessions[1].EvolutionLevel)
	require.NotNil(t, sessions[1].PractitionerName)
	require.Equal(t, "Paula Reis", *sessions[1].PractitionerName)

	_, err = runCLI(t, dbPath, "session", "add", "--patient", "42", "--date", "17/06/2024")
	require.ErrorIs(t, err, db.ErrForeignKey)

	_, err = runCLI(t, dbPath, "record", "edit", "1", "--complaint", "Atraso na fala")
	require.NoError(t, err)
	out, err = runCLI(t, dbPath, "record", "show", "1", "-o", "json")
	require.NoError(t, err)
	rec := decodeJSON[model.MedicalRecord](t, out)
	require.Equal(t, "Atraso na fala", rec.ChiefComplaint)
	require.Equal(t, int64(1), rec.PatientID)

	_, err = runCLI(t, dbPath, "patient", "delete", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--yes")

	_, err = runCLI(t, dbPath, "patient", "delete", "1", "--yes")
	require.NoError(t, err)
	out, err = runCLI(t, dbPath, "session", "list", "-o", "json")
	require.NoError(t, err)
	require.Empty(t, decodeJSON[[]model.Session](t, out))
}

func TestAvailabilityDates(t *testing.T) {
	dbPath := newCLI(t)

	_, err := runCLI(t, dbPath, "practitioner", "add", "--name", "Paula Reis")
	require.NoError(t, err)
	for _, date := range []string{"12/06/2024", "10/06/2024", "10/06/2024", "01/07/2024"} {
		_, err = runCLI(t, dbPath, "availability", "add", "-p", "1", "--date", date, "--start", "09:00", "--end", "12:00")
		require.NoError(t, err)
	}

	out, err := runCLI(t, dbPath, "availability", "dates", "-p", "1", "--month", "06/2024", "-o", "json")
	require.NoError(t, err)
	require.Equal(t, []string{"2024-06-10", "2024-06-12"}, decodeJSON[[]string](t, out))

	out, err = runCLI(t, dbPath, "availability", "list", "-p", "1", "--date", "10/06/2024", "-o", "json")
	require.NoError(t, err)
	require.Len(t, decodeJSON[[]model.Availability](t, out), 2)

	_, err = runCLI(t, dbPath, "availability", "add", "-p", "1", "--date", "10/06/2024", "--start", "12:00", "--end", "09:00")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAccessControl(t *testing.T) {
	dbPath := newCLI(t)

	t.Setenv(NewPasswordEnv, "segredo1")
	_, err := runCLI(t, dbPath, "user", "add", "carla", "--access", "therapist")
	require.NoError(t, err)

	t.Setenv(PasswordEnv, "segredo1")
	_, err = runCLI(t, dbPath, "--user", "carla", "patient", "list")
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "--user", "carla", "user", "list")
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = runCLI(t, dbPath, "--user", "carla", "practitioner", "add", "--name", "Paula Reis")
	require.ErrorIs(t, err, auth.ErrForbidden)

	t.Setenv(PasswordEnv, "wrong-password")
	_, err = runCLI(t, dbPath, "patient", "list")
	require.ErrorIs(t, err, db.ErrInvalidCredentials)
	_, err = runCLI(t, dbPath, "--user", "nobody", "patient", "list")
	require.ErrorIs(t, err, db.ErrInvalidCredentials)
	require.Equal(t, "invalid username or password", describeError(err))
}

func TestUserManagement(t *testing.T) {
	dbPath := newCLI(t)

	t.Setenv(NewPasswordEnv, "segredo1")
	_, err := runCLI(t, dbPath, "user", "add", "carla")
	require.NoError(t, err)
	_, err = runCLI(t, dbPath, "user", "add", "carla")
	require.ErrorIs(t, err, db.ErrDuplicateUsername)

	out, err := runCLI(t, dbPath, "user", "list", "-o", "json")
	require.NoError(t, err)
	users := decodeJSON[[]model.UserInfo](t, out)
	require.Len(t, users, 2)

	_, err = runCLI(t, dbPath, "user", "role", "admin", "therapist")
	require.ErrorIs(t, err, db.ErrLastAdmin)

	_, err = runCLI(t, dbPath, "user", "role", "carla", "admin")
	require.NoError(t, err)

	t.Setenv(NewPasswordEnv, "nova-senha")
	_, err = runCLI(t, dbPath, "user", "passwd")
	require.NoError(t, err)
	t.Setenv(PasswordEnv, "nova-senha")
	out, err = runCLI(t, dbPath, "login")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as admin")

	_, err = runCLI(t, dbPath, "user", "delete", "admin", "--yes")
	require.Error(t, err)
	_, err = runCLI(t, dbPath, "user", "delete", "carla", "--yes")
	require.NoError(t, err)
}

func TestBackupExportImport(t *testing.T) {
	dbPath := newCLI(t)
	backupDir := filepath.Join(t.TempDir(), "backups")

	_, err := runCLI(t, dbPath, "patient", "add", "--name", "Ana Silva", "--birth", "15/03/2015", "--guardian", "Maria Silva")
	require.NoError(t, err)
	out, err := runCLI(t, dbPath, "backup", "export", "--dir", backupDir, "-o", "json")
	require.NoError(t, err)
	res := decodeJSON[backup.Result](t, out)
	require.Equal(t, 1, res.Patients)
	require.FileExists(t, res.Path)

	restored := filepath.Join(filepath.Dir(dbPath), "restored.db")
	_, err = runCLI(t, restored, "backup", "import", res.Path)
	require.NoError(t, err)
	out, err = runCLI(t, restored, "patient", "list", "-o", "json")
	require.NoError(t, err)
	patients := decodeJSON[[]model.Patient](t, out)
	require.Len(t, patients, 1)
	require.Equal(t, "Ana Silva", patients[0].FullName)

	_, err = runCLI(t, restored, "backup", "import", res.Path)
	require.ErrorIs(t, err, db.ErrDatabaseNotEmpty)
}

func TestConfigInit(t *testing.T) {
	dbPath := newCLI(t)
	path := filepath.Join(t.TempDir(), "clinic.toml")

	_, err := runCLI(t, dbPath, "config", "init", "--path", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `path = "clinica.db"`)

	_, err = runCLI(t, dbPath, "config", "init", "--path", path)
	require.Error(t, err)
	_, err = runCLI(t, dbPath, "config", "init", "--path", path, "--force")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "config", "show", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, dbPath)
	require.NoFileExists(t, dbPath, "config commands do not open the database")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&model.ValidationError{Field: "full_name", Message: "is required"}, "invalid full_name: is required"},
		{fmt.Errorf("get patient: %w", db.ErrNotFound), "not found"},
		{db.ErrLastAdmin, "at least one admin account must remain"},
		{db.ErrForeignKey, "the referenced patient or practitioner does not exist"},
		{errors.New("disk full"), "disk full"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, describeError(tt.err))
	}
}
