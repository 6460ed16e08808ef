package db

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strconv"
	"testing"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/model"
)

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Open(\"\") should fail")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	opts := testOptions()
	opts.Driver = "postgres"
	if _, err := OpenWithOptions(testDBPath(t), opts); err == nil {
		t.Fatal("OpenWithOptions() with unknown driver should fail")
	}
}

func TestInitialize_FreshFile(t *testing.T) {
	db := openTestDB(t, testDBPath(t))

	report, err := db.Initialize()
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if report.SchemaVersion != CurrentSchemaVersion() {
		t.Errorf("SchemaVersion = %d, want %d", report.SchemaVersion, CurrentSchemaVersion())
	}
	if len(report.Applied) != len(DefaultMigrations()) {
		t.Errorf("Applied = %v, want all %d migrations", report.Applied, len(DefaultMigrations()))
	}
	if report.DefaultAdmin == nil {
		t.Fatal("DefaultAdmin should be reported on a fresh file")
	}
	if report.DefaultAdmin.Username != DefaultAdminUsername || report.DefaultAdmin.Password != DefaultAdminPassword {
		t.Errorf("DefaultAdmin = %+v", report.DefaultAdmin)
	}

	for _, table := range []string{"pacientes", "sessoes", "profissionais", "disponibilidades", "prontuarios", "usuarios"} {
		var count int
		err := db.conn.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}

	info, err := db.VerifyUser(DefaultAdminUsername, DefaultAdminPassword)
	if err != nil {
		t.Fatalf("VerifyUser(default admin) failed: %v", err)
	}
	if info.Access != model.AccessAdmin {
		t.Errorf("default admin access = %q, want admin", info.Access)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	path := testDBPath(t)
	db := openTestDB(t, path)

	if _, err := db.Initialize(); err != nil {
		t.Fatalf("First Initialize() failed: %v", err)
	}
	before, err := db.TableColumns(context.Background(), "sessoes")
	if err != nil {
		t.Fatalf("TableColumns() failed: %v", err)
	}

	report, err := db.Initialize()
	if err != nil {
		t.Fatalf("Second Initialize() failed: %v", err)
	}
	if len(report.Applied) != 0 {
		t.Errorf("second run applied %v, want none", report.Applied)
	}
	if report.DefaultAdmin != nil {
		t.Error("second run should not report the default admin again")
	}

	after, err := db.TableColumns(context.Background(), "sessoes")
	if err != nil {
		t.Fatalf("TableColumns() failed: %v", err)
	}
	if !slices.Equal(before, after) {
		t.Errorf("columns changed: %v -> %v", before, after)
	}
	seen := make(map[string]bool)
	for _, c := range after {
		if seen[c] {
			t.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	var users int
	if err := db.conn.Get(&users, `SELECT COUNT(*) FROM usuarios`); err != nil {
		t.Fatal(err)
	}
	if users != 1 {
		t.Errorf("users = %d, want 1", users)
	}
}

func TestInitialize_RecreatesMissingTables(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, testDBPath(t))
	if _, err := db.Initialize(); err != nil {
		t.Fatalf("First Initialize() failed: %v", err)
	}

	tables := []string{"prontuarios", "sessoes"}
	want := make(map[string][]string)
	for _, table := range tables {
		cols, err := db.TableColumns(ctx, table)
		if err != nil {
			t.Fatalf("TableColumns(%s) failed: %v", table, err)
		}
		want[table] = cols
		if _, err := db.RawDB().Exec(`DROP TABLE ` + table); err != nil {
			t.Fatalf("DROP TABLE %s failed: %v", table, err)
		}
	}

	report, err := db.Initialize()
	if err != nil {
		t.Fatalf("Second Initialize() failed: %v", err)
	}
	if len(report.Applied) != 0 {
		t.Errorf("second run applied %v, want none", report.Applied)
	}
	if report.SchemaVersion != CurrentSchemaVersion() {
		t.Errorf("SchemaVersion = %d, want %d", report.SchemaVersion, CurrentSchemaVersion())
	}

	for _, table := range tables {
		got, err := db.TableColumns(ctx, table)
		if err != nil {
			t.Fatalf("TableColumns(%s) failed: %v", table, err)
		}
		if !slices.Equal(got, want[table]) {
			t.Errorf("%s columns = %v, want %v", table, got, want[table])
		}
	}

	pid := createPatient(t, db, "Ana Silva")
	if _, err := db.GetOrCreateMedicalRecord(pid); err != nil {
		t.Errorf("GetOrCreateMedicalRecord() after recreate failed: %v", err)
	}
	if _, err := db.CreateSession(&model.Session{PatientID: pid, Date: "2024-01-05", StartTime: "09:00", EndTime: "10:00"}); err != nil {
		t.Errorf("CreateSession() after recreate failed: %v", err)
	}
}

func TestInitialize_ReopenKeepsData(t *testing.T) {
	path := testDBPath(t)
	db := openTestDB(t, path)
	if _, err := db.Initialize(); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreatePatient(&model.Patient{FullName: "Ana Silva", BirthDate: "2015-03-10", GuardianName: "Maria Silva"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	db2 := openTestDB(t, path)
	if _, err := db2.Initialize(); err != nil {
		t.Fatalf("Initialize() on reopen failed: %v", err)
	}
	patients, err := db2.ListPatients()
	if err != nil {
		t.Fatal(err)
	}
	if len(patients) != 1 {
		t.Errorf("patients = %d, want 1", len(patients))
	}
}

// createLegacyFile writes the shape produced by the old application: no
// version marker, sessions without evolution or time columns, a weekly
// availability table and a SHA-256 admin hash.
func createLegacyFile(t *testing.T, path string) {
	t.Helper()
	raw, err := sql.Open(DriverSQLite, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()

	stmts := []string{
		`CREATE TABLE pacientes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nome_completo TEXT NOT NULL,
			data_nascimento TEXT NOT NULL,
			nome_responsavel TEXT NOT NULL
		)`,
		`CREATE TABLE sessoes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paciente_id INTEGER NOT NULL,
			data_sessao TEXT NOT NULL,
			resumo_sessao TEXT,
			FOREIGN KEY (paciente_id) REFERENCES pacientes (id) ON DELETE CASCADE
		)`,
		`CREATE TABLE profissionais (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nome_completo TEXT NOT NULL,
			especialidade TEXT,
			contato TEXT
		)`,
		`CREATE TABLE disponibilidades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profissional_id INTEGER NOT NULL,
			dia_semana INTEGER NOT NULL,
			hora_inicio TEXT NOT NULL,
			hora_fim TEXT NOT NULL
		)`,
		`CREATE TABLE usuarios (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nome_usuario TEXT NOT NULL UNIQUE,
			senha_hash TEXT NOT NULL,
			nivel_acesso TEXT NOT NULL
		)`,
		`INSERT INTO pacientes (nome_completo, data_nascimento, nome_responsavel) VALUES ('João Souza', '2012-07-01', 'Carla Souza')`,
		`INSERT INTO sessoes (paciente_id, data_sessao, resumo_sessao) VALUES (1, '2023-11-20', 'primeira sessão')`,
		`INSERT INTO profissionais (nome_completo) VALUES ('Dra. Lima')`,
		`INSERT INTO disponibilidades (profissional_id, dia_semana, hora_inicio, hora_fim) VALUES (1, 2, '08:00', '12:00')`,
		`INSERT INTO usuarios (nome_usuario, senha_hash, nivel_acesso) VALUES ('recepcao', '` + auth.LegacyHash("segredo1") + `', 'admin')`,
	}
	for _, stmt := range stmts {
		if _, err := raw.Exec(stmt); err != nil {
			t.Fatalf("legacy setup %q: %v", stmt, err)
		}
	}
}

func TestInitialize_AdoptsLegacyFile(t *testing.T) {
	path := testDBPath(t)
	createLegacyFile(t, path)

	db := openTestDB(t, path)
	report, err := db.Initialize()
	if err != nil {
		t.Fatalf("Initialize() on legacy file failed: %v", err)
	}
	if report.DefaultAdmin != nil {
		t.Error("legacy file already has an admin; no default admin expected")
	}

	cols, err := db.TableColumns(context.Background(), "sessoes")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"nivel_evolucao", "observacoes_evolucao", "plano_terapeutico", "profissional_id", "hora_inicio", "hora_fim"} {
		if !slices.Contains(cols, want) {
			t.Errorf("sessoes missing column %q (have %v)", want, cols)
		}
	}

	sessions, err := db.ListSessionsByPatient(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Summary != "primeira sessão" {
		t.Errorf("legacy session not preserved: %+v", sessions)
	}
	if sessions[0].PractitionerID != nil || sessions[0].StartTime != "" {
		t.Errorf("legacy session should have no practitioner or times: %+v", sessions[0])
	}

	var archived int
	if err := db.conn.Get(&archived, `SELECT COUNT(*) FROM `+LegacyWeeklyAvailabilityTable); err != nil {
		t.Fatalf("weekly availability not archived: %v", err)
	}
	if archived != 1 {
		t.Errorf("archived weekly rows = %d, want 1", archived)
	}
	if _, err := db.CreateAvailability(&model.Availability{PractitionerID: 1, Date: "2024-02-06", StartTime: "08:00", EndTime: "09:00"}); err != nil {
		t.Errorf("CreateAvailability() on adopted file failed: %v", err)
	}
}

func TestVerifyUser_UpgradesLegacyHash(t *testing.T) {
	path := testDBPath(t)
	createLegacyFile(t, path)
	db := openTestDB(t, path)
	if _, err := db.Initialize(); err != nil {
		t.Fatal(err)
	}

	info, err := db.VerifyUser("recepcao", "segredo1")
	if err != nil {
		t.Fatalf("VerifyUser(legacy) failed: %v", err)
	}
	if info.Access != model.AccessAdmin {
		t.Errorf("Access = %q, want admin", info.Access)
	}

	var stored string
	if err := db.conn.Get(&stored, `SELECT senha_hash FROM usuarios WHERE nome_usuario = 'recepcao'`); err != nil {
		t.Fatal(err)
	}
	if auth.IsLegacyHash(stored) {
		t.Error("legacy hash should have been upgraded")
	}
	if _, err := db.VerifyUser("recepcao", "segredo1"); err != nil {
		t.Errorf("VerifyUser() after upgrade failed: %v", err)
	}
}

func TestInitialize_SchemaTooNew(t *testing.T) {
	db := newTestDB(t)
	future := strconv.Itoa(CurrentSchemaVersion() + 1)
	if _, err := db.conn.Exec(`UPDATE schema_meta SET value = ? WHERE key = ?`, future, schemaVersionKey); err != nil {
		t.Fatal(err)
	}

	_, err := db.Initialize()
	if !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("Initialize() error = %v, want ErrSchemaTooNew", err)
	}
}

func TestInitialize_RecordsAppVersion(t *testing.T) {
	path := testDBPath(t)

	opts := testOptions()
	opts.AppVersion = "v1.2.0"
	db, err := OpenWithOptions(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Initialize(); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	opts.AppVersion = "v1.1.0"
	older, err := OpenWithOptions(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer older.Close()
	report, err := older.Initialize()
	if err != nil {
		t.Fatalf("Initialize() by older app failed: %v", err)
	}
	if report.PreviousAppVersion != "v1.2.0" {
		t.Errorf("PreviousAppVersion = %q, want v1.2.0", report.PreviousAppVersion)
	}

	var stored string
	if err := older.conn.Get(&stored, `SELECT value FROM schema_meta WHERE key = ?`, appVersionKey); err != nil {
		t.Fatal(err)
	}
	if stored != "v1.2.0" {
		t.Errorf("stored app version = %q, older app must not downgrade it", stored)
	}
}

func TestInitialize_PromotesNonAdminDefaultUsername(t *testing.T) {
	path := testDBPath(t)
	db := openTestDB(t, path)
	if _, err := db.Initialize(); err != nil {
		t.Fatal(err)
	}
	// Leave only a therapist named "admin" behind.
	if _, err := db.conn.Exec(`UPDATE usuarios SET nivel_acesso = 'therapist', senha_hash = 'x' WHERE nome_usuario = 'admin'`); err != nil {
		t.Fatal(err)
	}

	report, err := db.Initialize()
	if err != nil {
		t.Fatal(err)
	}
	if report.DefaultAdmin == nil {
		t.Fatal("expected default admin to be restored")
	}
	info, err := db.VerifyUser(DefaultAdminUsername, DefaultAdminPassword)
	if err != nil {
		t.Fatalf("VerifyUser() failed: %v", err)
	}
	if info.Access != model.AccessAdmin {
		t.Errorf("Access = %q, want admin", info.Access)
	}
}
