package model

import "strings"

// EvolutionLevel grades a patient's progress in a session.
type EvolutionLevel string

const (
	EvolutionBeginner     EvolutionLevel = "Beginner"
	EvolutionIntermediate EvolutionLevel = "Intermediate"
	EvolutionAdvanced     EvolutionLevel = "Advanced"
	EvolutionMaintenance  EvolutionLevel = "Maintenance"
)

// EvolutionLevels lists the accepted levels in progression order.
func EvolutionLevels() []EvolutionLevel {
	return []EvolutionLevel{EvolutionBeginner, EvolutionIntermediate, EvolutionAdvanced, EvolutionMaintenance}
}

// ParseEvolutionLevel matches s case-insensitively against the known levels.
func ParseEvolutionLevel(s string) (EvolutionLevel, bool) {
	for _, lvl := range EvolutionLevels() {
		if strings.EqualFold(strings.TrimSpace(s), string(lvl)) {
			return lvl, true
		}
	}
	return "", false
}

// Session is one therapy encounter. The practitioner reference is optional
// and becomes nil when the practitioner is deleted.
type Session struct {
	ID              int64  `db:"id" json:"id" yaml:"id"`
	PatientID       int64  `db:"paciente_id" json:"patient_id" yaml:"patient_id"`
	PractitionerID  *int64 `db:"profissional_id" json:"practitioner_id" yaml:"practitioner_id"`
	Date            string `db:"data_sessao" json:"date" yaml:"date"`
	StartTime       string `db:"hora_inicio" json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime         string `db:"hora_fim" json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Summary         string `db:"resumo_sessao" json:"summary,omitempty" yaml:"summary,omitempty"`
	EvolutionLevel  string `db:"nivel_evolucao" json:"evolution_level,omitempty" yaml:"evolution_level,omitempty"`
	EvolutionNotes  string `db:"observacoes_evolucao" json:"evolution_notes,omitempty" yaml:"evolution_notes,omitempty"`
	TherapeuticPlan string `db:"plano_terapeutico" json:"therapeutic_plan,omitempty" yaml:"therapeutic_plan,omitempty"`

	// PractitionerName is denormalized from the practitioner table on reads.
	// It is nil when no practitioner is assigned.
	PractitionerName *string `db:"practitioner_name" json:"practitioner_name" yaml:"practitioner_name"`
}

// Validate checks the patient reference, the date, the optional time range
// and the evolution level. A recognized level is rewritten to its canonical
// spelling.
func (s *Session) Validate() error {
	if s.PatientID <= 0 {
		return invalid("patient_id", "is required")
	}
	if s.PractitionerID != nil && *s.PractitionerID <= 0 {
		return invalid("practitioner_id", "must be a positive id")
	}
	if err := ValidateDate("date", s.Date); err != nil {
		return err
	}
	switch {
	case s.StartTime != "" && s.EndTime != "":
		if err := ValidateTimeRange(s.StartTime, s.EndTime); err != nil {
			return err
		}
	case s.StartTime != "":
		if err := ValidateTime("start_time", s.StartTime); err != nil {
			return err
		}
	case s.EndTime != "":
		if err := ValidateTime("end_time", s.EndTime); err != nil {
			return err
		}
	}
	if s.EvolutionLevel != "" {
		lvl, ok := ParseEvolutionLevel(s.EvolutionLevel)
		if !ok {
			return invalid("evolution_level", "must be one of Beginner, Intermediate, Advanced, Maintenance (got %q)", s.EvolutionLevel)
		}
		s.EvolutionLevel = string(lvl)
	}
	return nil
}
