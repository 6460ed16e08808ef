package db

import "context"

// Stats holds row counts per entity.
type Stats struct {
	Patients       int `db:"patients" json:"patients" yaml:"patients"`
	Practitioners  int `db:"practitioners" json:"practitioners" yaml:"practitioners"`
	Availability   int `db:"availability" json:"availability" yaml:"availability"`
	Sessions       int `db:"sessions" json:"sessions" yaml:"sessions"`
	MedicalRecords int `db:"medical_records" json:"medical_records" yaml:"medical_records"`
	Users          int `db:"users" json:"users" yaml:"users"`
	Admins         int `db:"admins" json:"admins" yaml:"admins"`
}

// Stats counts the rows of every entity table.
func (db *DB) Stats() (*Stats, error) {
	return db.StatsContext(context.Background())
}

// StatsContext counts rows with context support.
func (db *DB) StatsContext(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.conn.GetContext(ctx, &s, `
		SELECT
			(SELECT COUNT(*) FROM pacientes) AS patients,
			(SELECT COUNT(*) FROM profissionais) AS practitioners,
			(SELECT COUNT(*) FROM disponibilidades) AS availability,
			(SELECT COUNT(*) FROM sessoes) AS sessions,
			(SELECT COUNT(*) FROM prontuarios) AS medical_records,
			(SELECT COUNT(*) FROM usuarios) AS users,
			(SELECT COUNT(*) FROM usuarios WHERE nivel_acesso = 'admin') AS admins`)
	if err != nil {
		return nil, storageErr("count rows", err)
	}
	return &s, nil
}
