package model

// Availability is an open slot of a practitioner on a specific date.
// Overlapping slots for the same practitioner are allowed.
type Availability struct {
	ID             int64  `db:"id" json:"id" yaml:"id"`
	PractitionerID int64  `db:"profissional_id" json:"practitioner_id" yaml:"practitioner_id"`
	Date           string `db:"data" json:"date" yaml:"date"`
	StartTime      string `db:"hora_inicio" json:"start_time" yaml:"start_time"`
	EndTime        string `db:"hora_fim" json:"end_time" yaml:"end_time"`
}

// Validate checks the practitioner reference, the date and that the end
// time is strictly after the start time.
func (a *Availability) Validate() error {
	if a.PractitionerID <= 0 {
		return invalid("practitioner_id", "is required")
	}
	if err := ValidateDate("date", a.Date); err != nil {
		return err
	}
	return ValidateTimeRange(a.StartTime, a.EndTime)
}
