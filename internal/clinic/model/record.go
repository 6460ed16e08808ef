package model

// MedicalRecord is the long-form clinical history of a patient.
// There is at most one per patient.
type MedicalRecord struct {
	ID             int64  `db:"id" json:"id" yaml:"id"`
	PatientID      int64  `db:"paciente_id" json:"patient_id" yaml:"patient_id"`
	ChiefComplaint string `db:"queixa_principal" json:"chief_complaint" yaml:"chief_complaint"`
	MedicalHistory string `db:"historico_medico" json:"medical_history" yaml:"medical_history"`
	Anamnesis      string `db:"anamnese" json:"anamnesis" yaml:"anamnesis"`
	AdditionalInfo string `db:"informacoes_adicionais" json:"additional_info" yaml:"additional_info"`
}

// Validate checks the patient reference. All text fields are optional.
func (r *MedicalRecord) Validate() error {
	if r.PatientID <= 0 {
		return invalid("patient_id", "is required")
	}
	return nil
}
