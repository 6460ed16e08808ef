package db

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/clinicware/clinic/internal/clinic/model"
)

const selectPatients = `SELECT id, nome_completo, data_nascimento, nome_responsavel FROM pacientes`

// CreatePatient inserts a patient and returns its new id. p.ID is set too.
func (db *DB) CreatePatient(p *model.Patient) (int64, error) {
	return db.CreatePatientContext(context.Background(), p)
}

// CreatePatientContext inserts a patient with context support.
func (db *DB) CreatePatientContext(ctx context.Context, p *model.Patient) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO pacientes (nome_completo, data_nascimento, nome_responsavel) VALUES (?, ?, ?)`,
		p.FullName, p.BirthDate, p.GuardianName,
	)
	if err != nil {
		return 0, translate("create patient", err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read patient id", err)
	}
	p.ID = id
	return id, nil
}

// GetPatient returns the patient with the given id, or ErrNotFound.
func (db *DB) GetPatient(id int64) (*model.Patient, error) {
	return db.GetPatientContext(context.Background(), id)
}

// GetPatientContext returns a patient with context support.
func (db *DB) GetPatientContext(ctx context.Context, id int64) (*model.Patient, error) {
	var p model.Patient
	if err := db.conn.GetContext(ctx, &p, selectPatients+` WHERE id = ?`, id); err != nil {
		return nil, translate("get patient", err, nil)
	}
	return &p, nil
}

// ListPatients returns all patients ordered by name.
func (db *DB) ListPatients() ([]*model.Patient, error) {
	return db.ListPatientsContext(context.Background())
}

// ListPatientsContext returns all patients with context support.
func (db *DB) ListPatientsContext(ctx context.Context) ([]*model.Patient, error) {
	var patients []*model.Patient
	if err := db.conn.SelectContext(ctx, &patients, selectPatients+` ORDER BY nome_completo COLLATE NOCASE, id`); err != nil {
		return nil, translate("list patients", err, nil)
	}
	return patients, nil
}

// SearchPatients returns the patients whose name contains term, ignoring
// case, ordered by name. A blank term lists every patient.
//
// Matching is done in Go because SQLite's LIKE only folds ASCII case and
// patient names are full of accented letters.
func (db *DB) SearchPatients(term string) ([]*model.Patient, error) {
	return db.SearchPatientsContext(context.Background(), term)
}

// SearchPatientsContext searches patients with context support.
func (db *DB) SearchPatientsContext(ctx context.Context, term string) ([]*model.Patient, error) {
	patients, err := db.ListPatientsContext(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return patients, nil
	}
	return lo.Filter(patients, func(p *model.Patient, _ int) bool {
		return strings.Contains(strings.ToLower(p.FullName), needle)
	}), nil
}

// UpdatePatient replaces every mutable field of the patient with id p.ID.
// Updating an id that does not exist affects nothing and is not an error.
func (db *DB) UpdatePatient(p *model.Patient) error {
	return db.UpdatePatientContext(context.Background(), p)
}

// UpdatePatientContext updates a patient with context support.
func (db *DB) UpdatePatientContext(ctx context.Context, p *model.Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE pacientes
		SET nome_completo = ?,
		    data_nascimento = ?,
		    nome_responsavel = ?
		WHERE id = ?`,
		p.FullName, p.BirthDate, p.GuardianName, p.ID,
	)
	return translate("update patient", err, nil)
}

// DeletePatient removes a patient together with its sessions and medical
// record. Deleting an unknown id is not an error.
func (db *DB) DeletePatient(id int64) error {
	return db.DeletePatientContext(context.Background(), id)
}

// DeletePatientContext deletes a patient with context support.
func (db *DB) DeletePatientContext(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM pacientes WHERE id = ?`, id)
	return translate("delete patient", err, nil)
}
