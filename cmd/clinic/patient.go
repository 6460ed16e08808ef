package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/backup"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

var patientCmd = &cobra.Command{
	Use:     "patient",
	GroupID: "records",
	Short:   "Register and look up patients",
}

var patientAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Register a patient",
	Example: `  clinic patient add --name "Ana Silva" --birth 15/03/2015 --guardian "Maria Silva"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		p, err := patientFromFlags(cmd, &model.Patient{})
		if err != nil {
			return err
		}
		if _, err := app.store.CreatePatientContext(cmd.Context(), p); err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, p)
		}
		fmt.Fprintf(app.out, "%s Registered patient %d: %s\n", ui.RenderPass("✓"), p.ID, p.FullName)
		return nil
	},
}

var patientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patients, optionally filtered by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		term, _ := cmd.Flags().GetString("search")
		patients, err := app.store.SearchPatientsContext(cmd.Context(), term)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(patients))
		for _, p := range patients {
			rows = append(rows, patientRow(p))
		}
		return ui.Print(app.out, app.format, patients,
			[]string{"ID", "Name", "Birth date", "Age", "Guardian"}, rows, "No patients found")
	},
}

var patientShowCmd = &cobra.Command{
	Use:   "show PATIENT_ID",
	Short: "Show a patient and their sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		id, err := parseID("patient", args[0])
		if err != nil {
			return err
		}
		p, err := app.store.GetPatientContext(ctx, id)
		if err != nil {
			return err
		}
		sessions, err := app.store.ListSessionsByPatientContext(ctx, id)
		if err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, struct {
				model.Patient `yaml:",inline"`
				Sessions      []*model.Session `json:"sessions" yaml:"sessions"`
			}{*p, sessions})
		}

		fmt.Fprintf(app.out, "%s\n\n", ui.RenderAccent(p.FullName))
		fmt.Fprintf(app.out, "  ID:         %d\n", p.ID)
		fmt.Fprintf(app.out, "  Birth date: %s\n", displayDate(p.BirthDate))
		if age, err := p.Age(app.now()); err == nil {
			fmt.Fprintf(app.out, "  Age:        %d\n", age)
		}
		fmt.Fprintf(app.out, "  Guardian:   %s\n\n", orDash(p.GuardianName))
		fmt.Fprintf(app.out, "%s\n", ui.RenderBold(fmt.Sprintf("Sessions (%d)", len(sessions))))
		if len(sessions) == 0 {
			fmt.Fprintf(app.out, "  %s\n", ui.RenderMuted("No sessions yet"))
			return nil
		}
		fmt.Fprintln(app.out, ui.Table(sessionHeaders, sessionRows(sessions)))
		return nil
	},
}

var patientEditCmd = &cobra.Command{
	Use:   "edit PATIENT_ID",
	Short: "Change a patient's details",
	Long:  "Change a patient's details. Only the flags given are changed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		id, err := parseID("patient", args[0])
		if err != nil {
			return err
		}
		p, err := app.store.GetPatientContext(ctx, id)
		if err != nil {
			return err
		}
		if p, err = patientFromFlags(cmd, p); err != nil {
			return err
		}
		if err := app.store.UpdatePatientContext(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Updated patient %d\n", ui.RenderPass("✓"), p.ID)
		return nil
	},
}

var patientDeleteCmd = &cobra.Command{
	Use:   "delete PATIENT_ID",
	Short: "Delete a patient with their sessions and medical record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		id, err := parseID("patient", args[0])
		if err != nil {
			return err
		}
		p, err := app.store.GetPatientContext(ctx, id)
		if err != nil {
			return err
		}
		ok, err := confirmDelete(cmd, fmt.Sprintf("patient %q and all their sessions", p.FullName))
		if err != nil || !ok {
			return err
		}
		if err := app.store.DeletePatientContext(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Deleted patient %d\n", ui.RenderPass("✓"), id)
		return nil
	},
}

var patientExportCmd = &cobra.Command{
	Use:   "export-xlsx [FILE]",
	Short: "Write the patient roster to a spreadsheet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		path := "pacientes.xlsx"
		if len(args) == 1 {
			path = args[0]
		}
		patients, err := app.store.ListPatientsContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := backup.WriteRoster(path, patients, app.now()); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		fmt.Fprintf(app.out, "%s Wrote %d patients to %s\n", ui.RenderPass("✓"), len(patients), abs)
		return nil
	},
}

// patientFromFlags applies the flags that were set to p.
func patientFromFlags(cmd *cobra.Command, p *model.Patient) (*model.Patient, error) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.FullName, _ = flags.GetString("name")
	}
	if flags.Changed("birth") {
		s, _ := flags.GetString("birth")
		iso, err := inputDate("birth date", s)
		if err != nil {
			return nil, err
		}
		p.BirthDate = iso
	}
	if flags.Changed("guardian") {
		p.GuardianName, _ = flags.GetString("guardian")
	}
	return p, nil
}

func patientRow(p *model.Patient) []string {
	age := "-"
	if n, err := p.Age(app.now()); err == nil {
		age = fmt.Sprint(n)
	}
	return []string{formatID(p.ID), p.FullName, displayDate(p.BirthDate), age, orDash(p.GuardianName)}
}

func init() {
	for _, c := range []*cobra.Command{patientAddCmd, patientEditCmd} {
		c.Flags().String("name", "", "full name")
		c.Flags().String("birth", "", "birth date (DD/MM/YYYY)")
		c.Flags().String("guardian", "", "guardian's name")
	}
	patientListCmd.Flags().StringP("search", "s", "", "case-insensitive name fragment")
	patientDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	patientCmd.AddCommand(patientAddCmd, patientListCmd, patientShowCmd, patientEditCmd, patientDeleteCmd, patientExportCmd)
	rootCmd.AddCommand(patientCmd)
}
