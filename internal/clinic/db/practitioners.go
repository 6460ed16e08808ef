package db

import (
	"context"

	"github.com/clinicware/clinic/internal/clinic/model"
)

const selectPractitioners = `
	SELECT id, nome_completo,
	       COALESCE(especialidade, '') AS especialidade,
	       COALESCE(contato, '') AS contato
	FROM profissionais`

// CreatePractitioner inserts a practitioner and returns its new id.
func (db *DB) CreatePractitioner(p *model.Practitioner) (int64, error) {
	return db.CreatePractitionerContext(context.Background(), p)
}

// CreatePractitionerContext inserts a practitioner with context support.
func (db *DB) CreatePractitionerContext(ctx context.Context, p *model.Practitioner) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO profissionais (nome_completo, especialidade, contato) VALUES (?, ?, ?)`,
		p.FullName, nullString(p.Specialty), nullString(p.Contact),
	)
	if err != nil {
		return 0, translate("create practitioner", err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read practitioner id", err)
	}
	p.ID = id
	return id, nil
}

// GetPractitioner returns the practitioner with the given id, or ErrNotFound.
func (db *DB) GetPractitioner(id int64) (*model.Practitioner, error) {
	return db.GetPractitionerContext(context.Background(), id)
}

// GetPractitionerContext returns a practitioner with context support.
func (db *DB) GetPractitionerContext(ctx context.Context, id int64) (*model.Practitioner, error) {
	var p model.Practitioner
	if err := db.conn.GetContext(ctx, &p, selectPractitioners+` WHERE id = ?`, id); err != nil {
		return nil, translate("get practitioner", err, nil)
	}
	return &p, nil
}

// ListPractitioners returns all practitioners ordered by name.
func (db *DB) ListPractitioners() ([]*model.Practitioner, error) {
	return db.ListPractitionersContext(context.Background())
}

// ListPractitionersContext lists practitioners with context support.
func (db *DB) ListPractitionersContext(ctx context.Context) ([]*model.Practitioner, error) {
	var out []*model.Practitioner
	if err := db.conn.SelectContext(ctx, &out, selectPractitioners+` ORDER BY nome_completo COLLATE NOCASE, id`); err != nil {
		return nil, translate("list practitioners", err, nil)
	}
	return out, nil
}

// UpdatePractitioner replaces every mutable field of practitioner p.ID.
func (db *DB) UpdatePractitioner(p *model.Practitioner) error {
	return db.UpdatePractitionerContext(context.Background(), p)
}

// UpdatePractitionerContext updates a practitioner with context support.
func (db *DB) UpdatePractitionerContext(ctx context.Context, p *model.Practitioner) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE profissionais SET nome_completo = ?, especialidade = ?, contato = ? WHERE id = ?`,
		p.FullName, nullString(p.Specialty), nullString(p.Contact), p.ID,
	)
	return translate("update practitioner", err, nil)
}

// DeletePractitioner removes a practitioner and its availability slots.
// Sessions it conducted keep their rows with no practitioner assigned.
func (db *DB) DeletePractitioner(id int64) error {
	return db.DeletePractitionerContext(context.Background(), id)
}

// DeletePractitionerContext deletes a practitioner with context support.
func (db *DB) DeletePractitionerContext(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM profissionais WHERE id = ?`, id)
	return translate("delete practitioner", err, nil)
}
