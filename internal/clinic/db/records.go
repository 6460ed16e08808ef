package db

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/clinicware/clinic/internal/clinic/model"
)

const selectRecords = `
	SELECT id, paciente_id,
	       COALESCE(queixa_principal, '') AS queixa_principal,
	       COALESCE(historico_medico, '') AS historico_medico,
	       COALESCE(anamnese, '') AS anamnese,
	       COALESCE(informacoes_adicionais, '') AS informacoes_adicionais
	FROM prontuarios`

// GetMedicalRecord returns the record of a patient, or ErrNotFound.
func (db *DB) GetMedicalRecord(patientID int64) (*model.MedicalRecord, error) {
	return db.GetMedicalRecordContext(context.Background(), patientID)
}

// GetMedicalRecordContext returns a patient's record with context support.
func (db *DB) GetMedicalRecordContext(ctx context.Context, patientID int64) (*model.MedicalRecord, error) {
	var r model.MedicalRecord
	if err := db.conn.GetContext(ctx, &r, selectRecords+` WHERE paciente_id = ?`, patientID); err != nil {
		return nil, translate("get medical record", err, nil)
	}
	return &r, nil
}

// CreateMedicalRecord inserts the record of r.PatientID. A second record for
// the same patient fails with ErrDuplicateMedicalRecord.
func (db *DB) CreateMedicalRecord(r *model.MedicalRecord) (int64, error) {
	return db.CreateMedicalRecordContext(context.Background(), r)
}

// CreateMedicalRecordContext inserts a record with context support.
func (db *DB) CreateMedicalRecordContext(ctx context.Context, r *model.MedicalRecord) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO prontuarios (paciente_id, queixa_principal, historico_medico, anamnese, informacoes_adicionais)
		VALUES (?, ?, ?, ?, ?)`,
		r.PatientID, r.ChiefComplaint, r.MedicalHistory, r.Anamnesis, r.AdditionalInfo,
	)
	if err != nil {
		return 0, translate("create medical record", err, ErrDuplicateMedicalRecord)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read medical record id", err)
	}
	r.ID = id
	return id, nil
}

// GetOrCreateMedicalRecord returns the patient's record, creating a blank one
// first if none exists. Repeated calls return the same record.
func (db *DB) GetOrCreateMedicalRecord(patientID int64) (*model.MedicalRecord, error) {
	return db.GetOrCreateMedicalRecordContext(context.Background(), patientID)
}

// GetOrCreateMedicalRecordContext is GetOrCreateMedicalRecord with context
// support.
func (db *DB) GetOrCreateMedicalRecordContext(ctx context.Context, patientID int64) (*model.MedicalRecord, error) {
	r, err := db.GetMedicalRecordContext(ctx, patientID)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	blank := &model.MedicalRecord{PatientID: patientID}
	if err := blank.Validate(); err != nil {
		return nil, err
	}

	var out model.MedicalRecord
	err = db.inTx(ctx, func(tx *sqlx.Tx) error {
		// The unique paciente_id makes a concurrent creator lose quietly.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prontuarios (paciente_id, queixa_principal, historico_medico, anamnese, informacoes_adicionais)
			VALUES (?, '', '', '', '')
			ON CONFLICT (paciente_id) DO NOTHING`, patientID); err != nil {
			return translate("create medical record", err, ErrDuplicateMedicalRecord)
		}
		if err := tx.GetContext(ctx, &out, selectRecords+` WHERE paciente_id = ?`, patientID); err != nil {
			return translate("get medical record", err, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMedicalRecord replaces the four text fields of r.PatientID's record.
func (db *DB) UpdateMedicalRecord(r *model.MedicalRecord) error {
	return db.UpdateMedicalRecordContext(context.Background(), r)
}

// UpdateMedicalRecordContext updates a record with context support.
func (db *DB) UpdateMedicalRecordContext(ctx context.Context, r *model.MedicalRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE prontuarios
		SET queixa_principal = ?,
		    historico_medico = ?,
		    anamnese = ?,
		    informacoes_adicionais = ?
		WHERE paciente_id = ?`,
		r.ChiefComplaint, r.MedicalHistory, r.Anamnesis, r.AdditionalInfo, r.PatientID,
	)
	return translate("update medical record", err, nil)
}
