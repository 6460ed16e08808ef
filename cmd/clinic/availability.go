package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/datefmt"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

var availabilityHeaders = []string{"ID", "Date", "Start", "End"}

func availabilityRows(slots []*model.Availability) [][]string {
	rows := make([][]string, 0, len(slots))
	for _, a := range slots {
		rows = append(rows, []string{formatID(a.ID), displayDate(a.Date), a.StartTime, a.EndTime})
	}
	return rows
}

var availabilityCmd = &cobra.Command{
	Use:     "availability",
	Aliases: []string{"slot"},
	GroupID: "records",
	Short:   "Manage practitioners' date-specific availability",
}

var availabilityAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add an availability slot",
	Example: `  clinic availability add --practitioner 1 --date 10/06/2024 --start 09:00 --end 12:00`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionSchedule); err != nil {
			return err
		}
		flags := cmd.Flags()
		a := &model.Availability{}
		a.PractitionerID, _ = flags.GetInt64("practitioner")
		var err error
		date, _ := flags.GetString("date")
		if a.Date, err = inputDate("date", date); err != nil {
			return err
		}
		start, _ := flags.GetString("start")
		if a.StartTime, err = inputTime("start time", start); err != nil {
			return err
		}
		end, _ := flags.GetString("end")
		if a.EndTime, err = inputTime("end time", end); err != nil {
			return err
		}
		if _, err := app.store.CreateAvailabilityContext(cmd.Context(), a); err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, a)
		}
		fmt.Fprintf(app.out, "%s Added slot %d: %s %s-%s\n", ui.RenderPass("✓"), a.ID, displayDate(a.Date), a.StartTime, a.EndTime)
		return nil
	},
}

var availabilityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a practitioner's slots, on one date or all of them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionSchedule); err != nil {
			return err
		}
		practitionerID, _ := cmd.Flags().GetInt64("practitioner")
		date, _ := cmd.Flags().GetString("date")
		iso, err := inputDate("date", date)
		if err != nil {
			return err
		}

		var slots []*model.Availability
		if iso == "" {
			slots, err = app.store.ListAvailabilityByPractitionerContext(ctx, practitionerID)
		} else {
			slots, err = app.store.ListAvailabilityContext(ctx, practitionerID, iso)
		}
		if err != nil {
			return err
		}
		return ui.Print(app.out, app.format, slots, availabilityHeaders, availabilityRows(slots), "No availability")
	},
}

var availabilityDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List the dates in a month on which a practitioner has slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionSchedule); err != nil {
			return err
		}
		practitionerID, _ := cmd.Flags().GetInt64("practitioner")
		month, _ := cmd.Flags().GetString("month")
		if month == "" {
			month = app.now().Format("01/2006")
		}
		year, m, err := datefmt.ParseMonth(month, app.now())
		if err != nil {
			return &model.ValidationError{Field: "month", Message: err.Error()}
		}
		dates, err := app.store.ListAvailableDatesContext(cmd.Context(), practitionerID, year, int(m))
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(dates))
		for _, d := range dates {
			rows = append(rows, []string{displayDate(d)})
		}
		return ui.Print(app.out, app.format, dates, []string{"Date"}, rows,
			fmt.Sprintf("No availability in %02d/%d", int(m), year))
	},
}

var availabilityDeleteCmd = &cobra.Command{
	Use:   "delete SLOT_ID",
	Short: "Delete an availability slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionSchedule); err != nil {
			return err
		}
		id, err := parseID("slot", args[0])
		if err != nil {
			return err
		}
		if err := app.store.DeleteAvailabilityContext(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Deleted slot %d\n", ui.RenderPass("✓"), id)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{availabilityAddCmd, availabilityListCmd, availabilityDatesCmd} {
		c.Flags().Int64P("practitioner", "p", 0, "practitioner id")
		_ = c.MarkFlagRequired("practitioner")
	}
	availabilityAddCmd.Flags().String("date", "", "date (DD/MM/YYYY, or e.g. \"tomorrow\")")
	availabilityAddCmd.Flags().String("start", "", "start time (HH:MM)")
	availabilityAddCmd.Flags().String("end", "", "end time (HH:MM)")
	availabilityListCmd.Flags().String("date", "", "only this date")
	availabilityDatesCmd.Flags().String("month", "", "month as MM/YYYY (default: current month)")

	availabilityCmd.AddCommand(availabilityAddCmd, availabilityListCmd, availabilityDatesCmd, availabilityDeleteCmd)
	rootCmd.AddCommand(availabilityCmd)
}
