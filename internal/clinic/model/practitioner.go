package model

// Practitioner is a clinician who conducts sessions and declares availability.
type Practitioner struct {
	ID        int64  `db:"id" json:"id" yaml:"id"`
	FullName  string `db:"nome_completo" json:"full_name" yaml:"full_name"`
	Specialty string `db:"especialidade" json:"specialty,omitempty" yaml:"specialty,omitempty"`
	Contact   string `db:"contato" json:"contact,omitempty" yaml:"contact,omitempty"`
}

// Validate checks the required fields of a practitioner.
func (p *Practitioner) Validate() error {
	return requireText("full_name", p.FullName)
}
