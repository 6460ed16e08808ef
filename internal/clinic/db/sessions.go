package db

import (
	"context"

	"github.com/clinicware/clinic/internal/clinic/model"
)

// selectSessions reads nullable text columns as empty strings and joins the
// assigned practitioner's name, which stays NULL when unassigned.
const selectSessions = `
	SELECT s.id, s.paciente_id, s.profissional_id, s.data_sessao,
	       COALESCE(s.hora_inicio, '') AS hora_inicio,
	       COALESCE(s.hora_fim, '') AS hora_fim,
	       COALESCE(s.resumo_sessao, '') AS resumo_sessao,
	       COALESCE(s.nivel_evolucao, '') AS nivel_evolucao,
	       COALESCE(s.observacoes_evolucao, '') AS observacoes_evolucao,
	       COALESCE(s.plano_terapeutico, '') AS plano_terapeutico,
	       p.nome_completo AS practitioner_name
	FROM sessoes s
	LEFT JOIN profissionais p ON p.id = s.profissional_id`

const orderSessions = ` ORDER BY s.data_sessao DESC, COALESCE(s.hora_inicio, '') DESC, s.id DESC`

// CreateSession inserts a session and returns its new id. A patient or
// practitioner that does not exist yields ErrForeignKey.
func (db *DB) CreateSession(s *model.Session) (int64, error) {
	return db.CreateSessionContext(context.Background(), s)
}

// CreateSessionContext inserts a session with context support.
func (db *DB) CreateSessionContext(ctx context.Context, s *model.Session) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessoes (
			paciente_id, profissional_id, data_sessao, hora_inicio, hora_fim,
			resumo_sessao, nivel_evolucao, observacoes_evolucao, plano_terapeutico
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PatientID, nullInt64(s.PractitionerID), s.Date,
		nullString(s.StartTime), nullString(s.EndTime),
		s.Summary, s.EvolutionLevel, s.EvolutionNotes, s.TherapeuticPlan,
	)
	if err != nil {
		return 0, translate("create session", err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read session id", err)
	}
	s.ID = id
	return id, nil
}

// GetSession returns the session with the given id, or ErrNotFound.
func (db *DB) GetSession(id int64) (*model.Session, error) {
	return db.GetSessionContext(context.Background(), id)
}

// GetSessionContext returns a session with context support.
func (db *DB) GetSessionContext(ctx context.Context, id int64) (*model.Session, error) {
	var s model.Session
	if err := db.conn.GetContext(ctx, &s, selectSessions+` WHERE s.id = ?`, id); err != nil {
		return nil, translate("get session", err, nil)
	}
	return &s, nil
}

// ListSessionsByPatient returns a patient's sessions, newest first.
func (db *DB) ListSessionsByPatient(patientID int64) ([]*model.Session, error) {
	return db.ListSessionsByPatientContext(context.Background(), patientID)
}

// ListSessionsByPatientContext lists a patient's sessions with context support.
func (db *DB) ListSessionsByPatientContext(ctx context.Context, patientID int64) ([]*model.Session, error) {
	var out []*model.Session
	if err := db.conn.SelectContext(ctx, &out, selectSessions+` WHERE s.paciente_id = ?`+orderSessions, patientID); err != nil {
		return nil, translate("list sessions", err, nil)
	}
	return out, nil
}

// ListSessions returns every session, newest first.
func (db *DB) ListSessions() ([]*model.Session, error) {
	return db.ListSessionsContext(context.Background())
}

// ListSessionsContext lists every session with context support.
func (db *DB) ListSessionsContext(ctx context.Context) ([]*model.Session, error) {
	var out []*model.Session
	if err := db.conn.SelectContext(ctx, &out, selectSessions+orderSessions); err != nil {
		return nil, translate("list sessions", err, nil)
	}
	return out, nil
}

// UpdateSession replaces the mutable fields of session s.ID. The owning
// patient never changes.
func (db *DB) UpdateSession(s *model.Session) error {
	return db.UpdateSessionContext(context.Background(), s)
}

// UpdateSessionContext updates a session with context support.
func (db *DB) UpdateSessionContext(ctx context.Context, s *model.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sessoes
		SET profissional_id = ?,
		    data_sessao = ?,
		    hora_inicio = ?,
		    hora_fim = ?,
		    resumo_sessao = ?,
		    nivel_evolucao = ?,
		    observacoes_evolucao = ?,
		    plano_terapeutico = ?
		WHERE id = ?`,
		nullInt64(s.PractitionerID), s.Date,
		nullString(s.StartTime), nullString(s.EndTime),
		s.Summary, s.EvolutionLevel, s.EvolutionNotes, s.TherapeuticPlan,
		s.ID,
	)
	return translate("update session", err, nil)
}

// DeleteSession removes a session. Deleting an unknown id is not an error.
func (db *DB) DeleteSession(id int64) error {
	return db.DeleteSessionContext(context.Background(), id)
}

// DeleteSessionContext deletes a session with context support.
func (db *DB) DeleteSessionContext(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessoes WHERE id = ?`, id)
	return translate("delete session", err, nil)
}
