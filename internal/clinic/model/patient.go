package model

import (
	"fmt"
	"time"
)

// Patient is the person receiving therapy. Sessions and the medical record
// hang off it and are removed with it.
type Patient struct {
	ID           int64  `db:"id" json:"id" yaml:"id"`
	FullName     string `db:"nome_completo" json:"full_name" yaml:"full_name"`
	BirthDate    string `db:"data_nascimento" json:"birth_date" yaml:"birth_date"` // YYYY-MM-DD
	GuardianName string `db:"nome_responsavel" json:"guardian_name" yaml:"guardian_name"`
}

// Validate checks the required fields of a patient.
func (p *Patient) Validate() error {
	if err := requireText("full_name", p.FullName); err != nil {
		return err
	}
	if err := ValidateDate("birth_date", p.BirthDate); err != nil {
		return err
	}
	if err := requireText("guardian_name", p.GuardianName); err != nil {
		return err
	}
	return nil
}

// Age returns the patient's age in whole years on asOf.
func (p *Patient) Age(asOf time.Time) (int, error) {
	birth, err := time.Parse(DateLayout, p.BirthDate)
	if err != nil {
		return 0, fmt.Errorf("invalid birth date %q: %w", p.BirthDate, err)
	}
	return AgeOn(birth, asOf), nil
}

// AgeOn returns the number of completed years between birth and asOf.
// A date before birth yields 0.
func AgeOn(birth, asOf time.Time) int {
	by, bm, bd := birth.Date()
	ay, am, ad := asOf.Date()
	age := ay - by
	if am < bm || (am == bm && ad < bd) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
