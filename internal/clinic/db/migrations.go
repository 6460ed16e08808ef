package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const (
	schemaVersionKey = "schema_version"
	appVersionKey    = "app_version"

	// LegacyWeeklyAvailabilityTable receives the rows of the old
	// weekly-recurrence availability table when a legacy file is upgraded.
	LegacyWeeklyAvailabilityTable = "disponibilidades_semanais_legado"
)

// Migration is one named, ordered schema step. Up must be idempotent: a
// legacy file has no version marker, so every step runs against tables that
// may already be partly or fully in shape.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create patients and sessions",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS pacientes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					nome_completo TEXT NOT NULL,
					data_nascimento TEXT NOT NULL, -- YYYY-MM-DD
					nome_responsavel TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS sessoes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					paciente_id INTEGER NOT NULL,
					data_sessao TEXT NOT NULL, -- YYYY-MM-DD
					resumo_sessao TEXT,
					FOREIGN KEY (paciente_id) REFERENCES pacientes (id) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "add session evolution fields",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return addColumns(ctx, tx, "sessoes", []columnSpec{
				{name: "nivel_evolucao", definition: "TEXT"},
				{name: "observacoes_evolucao", definition: "TEXT"},
				{name: "plano_terapeutico", definition: "TEXT"},
			})
		},
	},
	{
		Version:     3,
		Description: "create practitioners",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS profissionais (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					nome_completo TEXT NOT NULL,
					especialidade TEXT,
					contato TEXT
				)`,
			)
		},
	},
	{
		Version:     4,
		Description: "add session practitioner and times",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return addColumns(ctx, tx, "sessoes", []columnSpec{
				{name: "profissional_id", definition: "INTEGER REFERENCES profissionais (id) ON DELETE SET NULL"},
				{name: "hora_inicio", definition: "TEXT"},
				{name: "hora_fim", definition: "TEXT"},
			})
		},
	},
	{
		Version:     5,
		Description: "date-specific availability",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			weekly, err := columnExists(ctx, tx, "disponibilidades", "dia_semana")
			if err != nil {
				return err
			}
			if weekly {
				// Old weekly-recurrence shape: keep the rows under another name.
				if _, err := tx.ExecContext(ctx, `ALTER TABLE disponibilidades RENAME TO `+LegacyWeeklyAvailabilityTable); err != nil {
					return fmt.Errorf("archive weekly availability: %w", err)
				}
			}
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS disponibilidades (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					profissional_id INTEGER NOT NULL,
					data TEXT NOT NULL, -- YYYY-MM-DD
					hora_inicio TEXT NOT NULL, -- HH:MM
					hora_fim TEXT NOT NULL, -- HH:MM
					CHECK (hora_fim > hora_inicio),
					FOREIGN KEY (profissional_id) REFERENCES profissionais (id) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     6,
		Description: "create medical records",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS prontuarios (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					paciente_id INTEGER NOT NULL UNIQUE,
					queixa_principal TEXT,
					historico_medico TEXT,
					anamnese TEXT,
					informacoes_adicionais TEXT,
					FOREIGN KEY (paciente_id) REFERENCES pacientes (id) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     7,
		Description: "create users",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS usuarios (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					nome_usuario TEXT NOT NULL UNIQUE,
					senha_hash TEXT NOT NULL,
					nivel_acesso TEXT NOT NULL
				)`,
			)
		},
	},
	{
		Version:     8,
		Description: "add lookup indexes",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE INDEX IF NOT EXISTS idx_pacientes_nome ON pacientes (nome_completo)`,
				`CREATE INDEX IF NOT EXISTS idx_sessoes_paciente_data ON sessoes (paciente_id, data_sessao)`,
				`CREATE INDEX IF NOT EXISTS idx_sessoes_profissional ON sessoes (profissional_id)`,
				`CREATE INDEX IF NOT EXISTS idx_disponibilidades_profissional_data ON disponibilidades (profissional_id, data)`,
			)
		},
	},
}

// DefaultMigrations returns a copy of the built-in migration sequence.
func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// CurrentSchemaVersion is the version reached after all built-in migrations.
func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// RunMigrations applies every migration newer than the stored schema
// version, each in its own transaction, and returns the versions applied.
func RunMigrations(ctx context.Context, conn *sql.DB, migrations []Migration) ([]int, error) {
	if conn == nil {
		return nil, fmt.Errorf("run migrations: db is nil")
	}

	if err := ensureMigrationTables(ctx, conn); err != nil {
		return nil, err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := readSchemaVersion(ctx, conn)
	if err != nil {
		return nil, err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return nil, fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, maxVersion)
	}

	var applied []int
	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return applied, storageErr(fmt.Sprintf("begin migration v%d", migration.Version), err)
		}

		if err := migration.Up(ctx, tx); err != nil {
			_ = tx.Rollback()
			return applied, storageErr(fmt.Sprintf("apply migration v%d (%s)", migration.Version, migration.Description), err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
			migration.Version, migration.Description, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return applied, storageErr(fmt.Sprintf("record migration v%d", migration.Version), err)
		}

		if err := setMeta(ctx, tx, schemaVersionKey, strconv.Itoa(migration.Version)); err != nil {
			_ = tx.Rollback()
			return applied, err
		}

		if err := tx.Commit(); err != nil {
			return applied, storageErr(fmt.Sprintf("commit migration v%d", migration.Version), err)
		}
		applied = append(applied, migration.Version)
	}

	return applied, nil
}

// EnsureSchema re-runs every migration step up to the stored schema
// version in a single transaction without recording anything. It restores
// tables and columns that went missing from a file already marked current.
func EnsureSchema(ctx context.Context, conn *sql.DB, migrations []Migration) error {
	if conn == nil {
		return fmt.Errorf("ensure schema: db is nil")
	}

	current, err := readSchemaVersion(ctx, conn)
	if err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin ensure schema", err)
	}
	for _, migration := range ordered {
		if migration.Version > current {
			break
		}
		if err := migration.Up(ctx, tx); err != nil {
			_ = tx.Rollback()
			return storageErr(fmt.Sprintf("ensure migration v%d (%s)", migration.Version, migration.Description), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit ensure schema", err)
	}
	return nil
}

func ensureMigrationTables(ctx context.Context, conn *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`,
		`INSERT OR IGNORE INTO schema_meta (key, value) VALUES ('` + schemaVersionKey + `', '0')`,
	}
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return storageErr("ensure migration tables", err)
		}
	}
	return nil
}

// SchemaVersion returns the schema version stored in the database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return readSchemaVersion(ctx, db.conn.DB)
}

func readSchemaVersion(ctx context.Context, conn *sql.DB) (int, error) {
	raw, err := getMeta(ctx, conn, schemaVersionKey)
	if err != nil {
		return 0, err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, storageErr("parse schema version", fmt.Errorf("%q: %w", raw, err))
	}
	return version, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getMeta(ctx context.Context, q queryer, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageErr("read "+key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, e execer, key, value string) error {
	if _, err := e.ExecContext(ctx, `INSERT OR REPLACE INTO schema_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
		return storageErr("write "+key, err)
	}
	return nil
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}

func execAll(ctx context.Context, tx *sql.Tx, statements ...string) error {
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type columnSpec struct {
	name       string
	definition string
}

// addColumns adds each missing column as nullable with no backfill.
func addColumns(ctx context.Context, tx *sql.Tx, table string, columns []columnSpec) error {
	for _, column := range columns {
		exists, err := columnExists(ctx, tx, table, column.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := tx.ExecContext(ctx, `ALTER TABLE `+table+` ADD COLUMN `+column.name+` `+column.definition); err != nil {
			return fmt.Errorf("add %s.%s: %w", table, column.name, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query table info %s: %w", table, err)
	}
	return count > 0, nil
}

// TableColumns returns the column names of table in declaration order.
func (db *DB) TableColumns(ctx context.Context, table string) ([]string, error) {
	var names []string
	if err := db.conn.SelectContext(ctx, &names, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table); err != nil {
		return nil, storageErr("read columns of "+table, err)
	}
	return names, nil
}
