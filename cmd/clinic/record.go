package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

var recordCmd = &cobra.Command{
	Use:     "record",
	GroupID: "records",
	Short:   "View and edit a patient's medical record",
}

var recordShowCmd = &cobra.Command{
	Use:   "show PATIENT_ID",
	Short: "Show a patient's medical record, creating an empty one if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		patientID, err := parseID("patient", args[0])
		if err != nil {
			return err
		}
		patient, err := app.store.GetPatientContext(ctx, patientID)
		if err != nil {
			return err
		}
		rec, err := app.store.GetOrCreateMedicalRecordContext(ctx, patientID)
		if err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, rec)
		}

		fmt.Fprintf(app.out, "%s\n\n", ui.RenderAccent("Medical record: "+patient.FullName))
		for _, section := range recordSections(rec) {
			fmt.Fprintf(app.out, "%s\n  %s\n\n", ui.RenderBold(section.title), orDash(*section.body))
		}
		return nil
	},
}

var recordEditCmd = &cobra.Command{
	Use:   "edit PATIENT_ID",
	Short: "Change sections of a patient's medical record",
	Long: `Change sections of a patient's medical record. Only the flags given
are changed. Pass "-" as a value to read that section from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		patientID, err := parseID("patient", args[0])
		if err != nil {
			return err
		}
		rec, err := app.store.GetOrCreateMedicalRecordContext(ctx, patientID)
		if err != nil {
			return err
		}
		for _, section := range recordSections(rec) {
			if !cmd.Flags().Changed(section.flag) {
				continue
			}
			v, _ := cmd.Flags().GetString(section.flag)
			if *section.body, err = inputText(v); err != nil {
				return err
			}
		}
		if err := app.store.UpdateMedicalRecordContext(ctx, rec); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Updated medical record of patient %d\n", ui.RenderPass("✓"), patientID)
		return nil
	},
}

type recordSection struct {
	flag  string
	title string
	body  *string
}

func recordSections(rec *model.MedicalRecord) []recordSection {
	return []recordSection{
		{"complaint", "Chief complaint", &rec.ChiefComplaint},
		{"history", "Medical history", &rec.MedicalHistory},
		{"anamnesis", "Anamnesis", &rec.Anamnesis},
		{"info", "Additional information", &rec.AdditionalInfo},
	}
}

func init() {
	recordEditCmd.Flags().String("complaint", "", "chief complaint")
	recordEditCmd.Flags().String("history", "", "medical history")
	recordEditCmd.Flags().String("anamnesis", "", "anamnesis")
	recordEditCmd.Flags().String("info", "", "additional information")

	recordCmd.AddCommand(recordShowCmd, recordEditCmd)
	rootCmd.AddCommand(recordCmd)
}
