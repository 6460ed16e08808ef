package db

import (
	"context"
	"fmt"

	"github.com/clinicware/clinic/internal/clinic/model"
)

const selectAvailability = `SELECT id, profissional_id, data, hora_inicio, hora_fim FROM disponibilidades`

// CreateAvailability inserts an availability slot and returns its new id.
// Overlapping slots are accepted.
func (db *DB) CreateAvailability(a *model.Availability) (int64, error) {
	return db.CreateAvailabilityContext(context.Background(), a)
}

// CreateAvailabilityContext inserts a slot with context support.
func (db *DB) CreateAvailabilityContext(ctx context.Context, a *model.Availability) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO disponibilidades (profissional_id, data, hora_inicio, hora_fim) VALUES (?, ?, ?, ?)`,
		a.PractitionerID, a.Date, a.StartTime, a.EndTime,
	)
	if err != nil {
		return 0, translate("create availability", err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read availability id", err)
	}
	a.ID = id
	return id, nil
}

// GetAvailability returns the slot with the given id, or ErrNotFound.
func (db *DB) GetAvailability(id int64) (*model.Availability, error) {
	return db.GetAvailabilityContext(context.Background(), id)
}

// GetAvailabilityContext returns a slot with context support.
func (db *DB) GetAvailabilityContext(ctx context.Context, id int64) (*model.Availability, error) {
	var a model.Availability
	if err := db.conn.GetContext(ctx, &a, selectAvailability+` WHERE id = ?`, id); err != nil {
		return nil, translate("get availability", err, nil)
	}
	return &a, nil
}

// ListAvailability returns a practitioner's slots on one ISO date, ordered
// by start time.
func (db *DB) ListAvailability(practitionerID int64, date string) ([]*model.Availability, error) {
	return db.ListAvailabilityContext(context.Background(), practitionerID, date)
}

// ListAvailabilityContext lists a day's slots with context support.
func (db *DB) ListAvailabilityContext(ctx context.Context, practitionerID int64, date string) ([]*model.Availability, error) {
	if err := model.ValidateDate("date", date); err != nil {
		return nil, err
	}
	var out []*model.Availability
	err := db.conn.SelectContext(ctx, &out,
		selectAvailability+` WHERE profissional_id = ? AND data = ? ORDER BY hora_inicio, id`,
		practitionerID, date,
	)
	if err != nil {
		return nil, translate("list availability", err, nil)
	}
	return out, nil
}

// ListAvailabilityByPractitioner returns every slot of a practitioner,
// ordered by date and start time.
func (db *DB) ListAvailabilityByPractitioner(practitionerID int64) ([]*model.Availability, error) {
	return db.ListAvailabilityByPractitionerContext(context.Background(), practitionerID)
}

// ListAvailabilityByPractitionerContext lists slots with context support.
func (db *DB) ListAvailabilityByPractitionerContext(ctx context.Context, practitionerID int64) ([]*model.Availability, error) {
	var out []*model.Availability
	err := db.conn.SelectContext(ctx, &out,
		selectAvailability+` WHERE profissional_id = ? ORDER BY data, hora_inicio, id`,
		practitionerID,
	)
	if err != nil {
		return nil, translate("list availability", err, nil)
	}
	return out, nil
}

// ListAvailableDates returns the distinct ISO dates in the given month on
// which the practitioner has at least one slot, ascending.
func (db *DB) ListAvailableDates(practitionerID int64, year, month int) ([]string, error) {
	return db.ListAvailableDatesContext(context.Background(), practitionerID, year, month)
}

// ListAvailableDatesContext lists available dates with context support.
func (db *DB) ListAvailableDatesContext(ctx context.Context, practitionerID int64, year, month int) ([]string, error) {
	if month < 1 || month > 12 {
		return nil, &model.ValidationError{Field: "month", Message: fmt.Sprintf("must be between 1 and 12, got %d", month)}
	}
	if year < 1 || year > 9999 {
		return nil, &model.ValidationError{Field: "year", Message: fmt.Sprintf("must be between 1 and 9999, got %d", year)}
	}
	var dates []string
	err := db.conn.SelectContext(ctx, &dates,
		`SELECT DISTINCT data FROM disponibilidades WHERE profissional_id = ? AND data LIKE ? ORDER BY data`,
		practitionerID, fmt.Sprintf("%04d-%02d-%%", year, month),
	)
	if err != nil {
		return nil, translate("list available dates", err, nil)
	}
	return dates, nil
}

// UpdateAvailability replaces every field of slot a.ID.
func (db *DB) UpdateAvailability(a *model.Availability) error {
	return db.UpdateAvailabilityContext(context.Background(), a)
}

// UpdateAvailabilityContext updates a slot with context support.
func (db *DB) UpdateAvailabilityContext(ctx context.Context, a *model.Availability) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE disponibilidades SET profissional_id = ?, data = ?, hora_inicio = ?, hora_fim = ? WHERE id = ?`,
		a.PractitionerID, a.Date, a.StartTime, a.EndTime, a.ID,
	)
	return translate("update availability", err, nil)
}

// DeleteAvailability removes a slot.
func (db *DB) DeleteAvailability(id int64) error {
	return db.DeleteAvailabilityContext(context.Background(), id)
}

// DeleteAvailabilityContext deletes a slot with context support.
func (db *DB) DeleteAvailabilityContext(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM disponibilidades WHERE id = ?`, id)
	return translate("delete availability", err, nil)
}
