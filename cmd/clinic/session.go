package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

var sessionHeaders = []string{"ID", "Date", "Time", "Practitioner", "Level", "Summary"}

func sessionRows(sessions []*model.Session) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			formatID(s.ID),
			displayDate(s.Date),
			sessionTime(s),
			practitionerName(s),
			orDash(s.EvolutionLevel),
			orDash(truncate(s.Summary, 40)),
		})
	}
	return rows
}

func sessionTime(s *model.Session) string {
	switch {
	case s.StartTime != "" && s.EndTime != "":
		return s.StartTime + "-" + s.EndTime
	case s.StartTime != "":
		return s.StartTime
	default:
		return "-"
	}
}

func practitionerName(s *model.Session) string {
	if s.PractitionerName == nil {
		return "-"
	}
	return *s.PractitionerName
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var sessionCmd = &cobra.Command{
	Use:     "session",
	GroupID: "records",
	Short:   "Record therapy sessions",
}

var sessionAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Record a session",
	Example: `  clinic session add --patient 3 --practitioner 1 --date today --start 14h --end 14h50 --level beginner --summary "Primeira avaliação"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		s := &model.Session{}
		s.PatientID, _ = cmd.Flags().GetInt64("patient")
		s, err := sessionFromFlags(cmd, s)
		if err != nil {
			return err
		}
		if _, err := app.store.CreateSessionContext(cmd.Context(), s); err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, s)
		}
		fmt.Fprintf(app.out, "%s Recorded session %d on %s\n", ui.RenderPass("✓"), s.ID, displayDate(s.Date))
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		patientID, _ := cmd.Flags().GetInt64("patient")
		var (
			sessions []*model.Session
			err      error
		)
		if patientID > 0 {
			sessions, err = app.store.ListSessionsByPatientContext(ctx, patientID)
		} else {
			sessions, err = app.store.ListSessionsContext(ctx)
		}
		if err != nil {
			return err
		}
		return ui.Print(app.out, app.format, sessions, sessionHeaders, sessionRows(sessions), "No sessions recorded")
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Show a session's notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		id, err := parseID("session", args[0])
		if err != nil {
			return err
		}
		s, err := app.store.GetSessionContext(ctx, id)
		if err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, s)
		}
		patient, err := app.store.GetPatientContext(ctx, s.PatientID)
		if err != nil {
			return err
		}

		fmt.Fprintf(app.out, "%s\n\n", ui.RenderAccent(fmt.Sprintf("Session %d: %s", s.ID, patient.FullName)))
		fmt.Fprintf(app.out, "  Date:         %s\n", displayDate(s.Date))
		fmt.Fprintf(app.out, "  Time:         %s\n", sessionTime(s))
		fmt.Fprintf(app.out, "  Practitioner: %s\n", practitionerName(s))
		fmt.Fprintf(app.out, "  Level:        %s\n\n", orDash(s.EvolutionLevel))
		for _, section := range []struct{ title, body string }{
			{"Summary", s.Summary},
			{"Evolution notes", s.EvolutionNotes},
			{"Therapeutic plan", s.TherapeuticPlan},
		} {
			fmt.Fprintf(app.out, "%s\n  %s\n\n", ui.RenderBold(section.title), orDash(section.body))
		}
		return nil
	},
}

var sessionEditCmd = &cobra.Command{
	Use:   "edit SESSION_ID",
	Short: "Change a session's notes",
	Long:  "Change a session's notes. Only the flags given are changed; --practitioner 0 unassigns.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		id, err := parseID("session", args[0])
		if err != nil {
			return err
		}
		s, err := app.store.GetSessionContext(ctx, id)
		if err != nil {
			return err
		}
		if s, err = sessionFromFlags(cmd, s); err != nil {
			return err
		}
		if err := app.store.UpdateSessionContext(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Updated session %d\n", ui.RenderPass("✓"), s.ID)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete SESSION_ID",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		id, err := parseID("session", args[0])
		if err != nil {
			return err
		}
		ok, err := confirmDelete(cmd, fmt.Sprintf("session %d", id))
		if err != nil || !ok {
			return err
		}
		if err := app.store.DeleteSessionContext(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Deleted session %d\n", ui.RenderPass("✓"), id)
		return nil
	},
}

// sessionFromFlags applies the flags that were set to s. Free-text flags
// accept "-" to read the text from stdin.
func sessionFromFlags(cmd *cobra.Command, s *model.Session) (*model.Session, error) {
	flags := cmd.Flags()
	if flags.Changed("practitioner") {
		id, _ := flags.GetInt64("practitioner")
		if id == 0 {
			s.PractitionerID = nil
		} else {
			s.PractitionerID = &id
		}
	}

	var err error
	if flags.Changed("date") {
		v, _ := flags.GetString("date")
		if s.Date, err = inputDate("date", v); err != nil {
			return nil, err
		}
	}
	if flags.Changed("start") {
		v, _ := flags.GetString("start")
		if s.StartTime, err = inputTime("start time", v); err != nil {
			return nil, err
		}
	}
	if flags.Changed("end") {
		v, _ := flags.GetString("end")
		if s.EndTime, err = inputTime("end time", v); err != nil {
			return nil, err
		}
	}
	if flags.Changed("level") {
		v, _ := flags.GetString("level")
		if lvl, ok := model.ParseEvolutionLevel(v); ok {
			v = string(lvl)
		}
		s.EvolutionLevel = v
	}

	for name, dst := range map[string]*string{
		"summary": &s.Summary,
		"notes":   &s.EvolutionNotes,
		"plan":    &s.TherapeuticPlan,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, _ := flags.GetString(name)
		if *dst, err = inputText(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func init() {
	sessionAddCmd.Flags().Int64("patient", 0, "patient id")
	_ = sessionAddCmd.MarkFlagRequired("patient")
	for _, c := range []*cobra.Command{sessionAddCmd, sessionEditCmd} {
		c.Flags().Int64("practitioner", 0, "practitioner id")
		c.Flags().String("date", "", "session date (DD/MM/YYYY, or e.g. \"hoje\")")
		c.Flags().String("start", "", "start time (HH:MM)")
		c.Flags().String("end", "", "end time (HH:MM)")
		c.Flags().String("level", "", "evolution level: Beginner, Intermediate, Advanced or Maintenance")
		c.Flags().String("summary", "", "session summary (\"-\" reads stdin)")
		c.Flags().String("notes", "", "evolution notes (\"-\" reads stdin)")
		c.Flags().String("plan", "", "therapeutic plan (\"-\" reads stdin)")
	}
	sessionListCmd.Flags().Int64("patient", 0, "only this patient's sessions")
	sessionDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	sessionCmd.AddCommand(sessionAddCmd, sessionListCmd, sessionShowCmd, sessionEditCmd, sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}
