package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clinicware/clinic/internal/clinic/model"
)

// ErrDatabaseNotEmpty is returned by RestoreSnapshot when clinical tables
// already hold rows.
var ErrDatabaseNotEmpty = errors.New("database already contains clinical data")

// SnapshotUser is an account including its password hash, as carried in
// backups.
type SnapshotUser struct {
	ID           int64             `db:"id" json:"id"`
	Username     string            `db:"nome_usuario" json:"username"`
	PasswordHash string            `db:"senha_hash" json:"password_hash"`
	Access       model.AccessLevel `db:"nivel_acesso" json:"access"`
}

// Snapshot is the full content of a database with ids preserved.
type Snapshot struct {
	Patients       []*model.Patient
	Practitioners  []*model.Practitioner
	Availability   []*model.Availability
	Sessions       []*model.Session
	MedicalRecords []*model.MedicalRecord
	Users          []*SnapshotUser
}

// ExportSnapshot reads every row of every entity in one read transaction.
func (db *DB) ExportSnapshot() (*Snapshot, error) {
	return db.ExportSnapshotContext(context.Background())
}

// ExportSnapshotContext exports a snapshot with context support.
func (db *DB) ExportSnapshotContext(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		queries := []struct {
			dest  any
			query string
		}{
			{&snap.Patients, selectPatients + ` ORDER BY id`},
			{&snap.Practitioners, selectPractitioners + ` ORDER BY id`},
			{&snap.Availability, selectAvailability + ` ORDER BY id`},
			{&snap.Sessions, selectSessions + ` ORDER BY s.id`},
			{&snap.MedicalRecords, selectRecords + ` ORDER BY id`},
			{&snap.Users, selectUsers + ` ORDER BY id`},
		}
		for _, q := range queries {
			if err := tx.SelectContext(ctx, q.dest, q.query); err != nil {
				return storageErr("export snapshot", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// RestoreSnapshot loads snap into an initialized database whose clinical
// tables are empty, keeping every id. When snap carries users they replace
// the existing accounts, so the default admin does not survive a restore.
func (db *DB) RestoreSnapshot(snap *Snapshot) error {
	return db.RestoreSnapshotContext(context.Background(), snap)
}

// RestoreSnapshotContext restores a snapshot with context support.
func (db *DB) RestoreSnapshotContext(ctx context.Context, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		var rows int
		if err := tx.GetContext(ctx, &rows, `
			SELECT (SELECT COUNT(*) FROM pacientes) + (SELECT COUNT(*) FROM profissionais) +
			       (SELECT COUNT(*) FROM disponibilidades) + (SELECT COUNT(*) FROM sessoes) +
			       (SELECT COUNT(*) FROM prontuarios)`); err != nil {
			return storageErr("check database is empty", err)
		}
		if rows > 0 {
			return fmt.Errorf("failed to restore snapshot: %w", ErrDatabaseNotEmpty)
		}

		for _, p := range snap.Patients {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pacientes (id, nome_completo, data_nascimento, nome_responsavel) VALUES (?, ?, ?, ?)`,
				p.ID, p.FullName, p.BirthDate, p.GuardianName); err != nil {
				return translate("restore patient", err, nil)
			}
		}
		for _, p := range snap.Practitioners {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO profissionais (id, nome_completo, especialidade, contato) VALUES (?, ?, ?, ?)`,
				p.ID, p.FullName, nullString(p.Specialty), nullString(p.Contact)); err != nil {
				return translate("restore practitioner", err, nil)
			}
		}
		for _, a := range snap.Availability {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO disponibilidades (id, profissional_id, data, hora_inicio, hora_fim) VALUES (?, ?, ?, ?, ?)`,
				a.ID, a.PractitionerID, a.Date, a.StartTime, a.EndTime); err != nil {
				return translate("restore availability", err, nil)
			}
		}
		for _, s := range snap.Sessions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sessoes (
					id, paciente_id, profissional_id, data_sessao, hora_inicio, hora_fim,
					resumo_sessao, nivel_evolucao, observacoes_evolucao, plano_terapeutico
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, s.PatientID, nullInt64(s.PractitionerID), s.Date,
				nullString(s.StartTime), nullString(s.EndTime),
				s.Summary, s.EvolutionLevel, s.EvolutionNotes, s.TherapeuticPlan); err != nil {
				return translate("restore session", err, nil)
			}
		}
		for _, r := range snap.MedicalRecords {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO prontuarios (id, paciente_id, queixa_principal, historico_medico, anamnese, informacoes_adicionais)
				VALUES (?, ?, ?, ?, ?, ?)`,
				r.ID, r.PatientID, r.ChiefComplaint, r.MedicalHistory, r.Anamnesis, r.AdditionalInfo); err != nil {
				return translate("restore medical record", err, ErrDuplicateMedicalRecord)
			}
		}

		if len(snap.Users) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM usuarios`); err != nil {
			return translate("replace users", err, nil)
		}
		for _, u := range snap.Users {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO usuarios (id, nome_usuario, senha_hash, nivel_acesso) VALUES (?, ?, ?, ?)`,
				u.ID, u.Username, u.PasswordHash, string(u.Access)); err != nil {
				return translate("restore user", err, ErrDuplicateUsername)
			}
		}
		return nil
	})
}

// validateSnapshot runs every record through its validation rules before
// anything is written.
func validateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("failed to restore snapshot: nil snapshot")
	}
	for _, p := range snap.Patients {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("patient %d: %w", p.ID, err)
		}
	}
	for _, p := range snap.Practitioners {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("practitioner %d: %w", p.ID, err)
		}
	}
	for _, a := range snap.Availability {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("availability %d: %w", a.ID, err)
		}
	}
	for _, s := range snap.Sessions {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("session %d: %w", s.ID, err)
		}
	}
	for _, r := range snap.MedicalRecords {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("medical record %d: %w", r.ID, err)
		}
	}
	admins := 0
	for _, u := range snap.Users {
		if err := model.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
		if err := model.ValidateAccess(u.Access); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
		if u.PasswordHash == "" {
			return fmt.Errorf("user %d: %w", u.ID, &model.ValidationError{Field: "password_hash", Message: "is required"})
		}
		if u.Access == model.AccessAdmin {
			admins++
		}
	}
	if len(snap.Users) > 0 && admins == 0 {
		return fmt.Errorf("failed to restore snapshot: %w", ErrLastAdmin)
	}
	return nil
}
