package backup

import (
	"fmt"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/clinicware/clinic/internal/clinic/model"
)

// RosterSheet is the worksheet WriteRoster fills.
const RosterSheet = "Pacientes"

// WriteRoster saves the patients as an xlsx spreadsheet at path, one row
// per patient with the age computed on asOf.
func WriteRoster(path string, patients []*model.Patient, asOf time.Time) error {
	headers := map[string]string{
		"A1": "ID",
		"B1": "Nome completo",
		"C1": "Data de nascimento",
		"D1": "Idade",
		"E1": "Responsável",
	}

	file := excelize.NewFile()
	file.NewSheet(RosterSheet)
	file.DeleteSheet("Sheet1")
	for k, v := range headers {
		file.SetCellValue(RosterSheet, k, v)
	}
	file.SetColWidth(RosterSheet, "B", "B", 36)
	file.SetColWidth(RosterSheet, "C", "C", 18)
	file.SetColWidth(RosterSheet, "E", "E", 36)

	for i, p := range patients {
		appendRosterRow(file, i+2, p, asOf)
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}

func appendRosterRow(file *excelize.File, row int, p *model.Patient, asOf time.Time) {
	file.SetCellValue(RosterSheet, fmt.Sprintf("A%d", row), p.ID)
	file.SetCellValue(RosterSheet, fmt.Sprintf("B%d", row), p.FullName)
	birth := p.BirthDate
	if t, err := time.Parse(model.DateLayout, p.BirthDate); err == nil {
		birth = t.Format("02/01/2006")
	}
	file.SetCellValue(RosterSheet, fmt.Sprintf("C%d", row), birth)
	if age, err := p.Age(asOf); err == nil {
		file.SetCellValue(RosterSheet, fmt.Sprintf("D%d", row), age)
	}
	file.SetCellValue(RosterSheet, fmt.Sprintf("E%d", row), p.GuardianName)
}
