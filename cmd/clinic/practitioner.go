package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

var practitionerCmd = &cobra.Command{
	Use:     "practitioner",
	Aliases: []string{"pro"},
	GroupID: "records",
	Short:   "Manage practitioners (changes need an admin)",
}

var practitionerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a practitioner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionManagePractitioner); err != nil {
			return err
		}
		p := practitionerFromFlags(cmd, &model.Practitioner{})
		if _, err := app.store.CreatePractitionerContext(cmd.Context(), p); err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, p)
		}
		fmt.Fprintf(app.out, "%s Registered practitioner %d: %s\n", ui.RenderPass("✓"), p.ID, p.FullName)
		return nil
	},
}

var practitionerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List practitioners",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionSchedule); err != nil {
			return err
		}
		practitioners, err := app.store.ListPractitionersContext(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(practitioners))
		for _, p := range practitioners {
			rows = append(rows, []string{formatID(p.ID), p.FullName, orDash(p.Specialty), orDash(p.Contact)})
		}
		return ui.Print(app.out, app.format, practitioners,
			[]string{"ID", "Name", "Specialty", "Contact"}, rows, "No practitioners registered")
	},
}

var practitionerShowCmd = &cobra.Command{
	Use:   "show PRACTITIONER_ID",
	Short: "Show a practitioner and their availability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionSchedule); err != nil {
			return err
		}
		id, err := parseID("practitioner", args[0])
		if err != nil {
			return err
		}
		p, err := app.store.GetPractitionerContext(ctx, id)
		if err != nil {
			return err
		}
		slots, err := app.store.ListAvailabilityByPractitionerContext(ctx, id)
		if err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, struct {
				model.Practitioner `yaml:",inline"`
				Availability       []*model.Availability `json:"availability" yaml:"availability"`
			}{*p, slots})
		}

		fmt.Fprintf(app.out, "%s\n\n", ui.RenderAccent(p.FullName))
		fmt.Fprintf(app.out, "  ID:        %d\n", p.ID)
		fmt.Fprintf(app.out, "  Specialty: %s\n", orDash(p.Specialty))
		fmt.Fprintf(app.out, "  Contact:   %s\n\n", orDash(p.Contact))
		fmt.Fprintf(app.out, "%s\n", ui.RenderBold("Availability"))
		if len(slots) == 0 {
			fmt.Fprintf(app.out, "  %s\n", ui.RenderMuted("No slots"))
			return nil
		}
		fmt.Fprintln(app.out, ui.Table(availabilityHeaders, availabilityRows(slots)))
		return nil
	},
}

var practitionerEditCmd = &cobra.Command{
	Use:   "edit PRACTITIONER_ID",
	Short: "Change a practitioner's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionManagePractitioner); err != nil {
			return err
		}
		id, err := parseID("practitioner", args[0])
		if err != nil {
			return err
		}
		p, err := app.store.GetPractitionerContext(ctx, id)
		if err != nil {
			return err
		}
		if err := app.store.UpdatePractitionerContext(ctx, practitionerFromFlags(cmd, p)); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Updated practitioner %d\n", ui.RenderPass("✓"), p.ID)
		return nil
	},
}

var practitionerDeleteCmd = &cobra.Command{
	Use:   "delete PRACTITIONER_ID",
	Short: "Delete a practitioner",
	Long: `Delete a practitioner and their availability slots. Sessions they
attended are kept and lose the practitioner reference.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionManagePractitioner); err != nil {
			return err
		}
		id, err := parseID("practitioner", args[0])
		if err != nil {
			return err
		}
		p, err := app.store.GetPractitionerContext(ctx, id)
		if err != nil {
			return err
		}
		ok, err := confirmDelete(cmd, fmt.Sprintf("practitioner %q", p.FullName))
		if err != nil || !ok {
			return err
		}
		if err := app.store.DeletePractitionerContext(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Deleted practitioner %d\n", ui.RenderPass("✓"), id)
		return nil
	},
}

func practitionerFromFlags(cmd *cobra.Command, p *model.Practitioner) *model.Practitioner {
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.FullName, _ = flags.GetString("name")
	}
	if flags.Changed("specialty") {
		p.Specialty, _ = flags.GetString("specialty")
	}
	if flags.Changed("contact") {
		p.Contact, _ = flags.GetString("contact")
	}
	return p
}

func init() {
	for _, c := range []*cobra.Command{practitionerAddCmd, practitionerEditCmd} {
		c.Flags().String("name", "", "full name")
		c.Flags().String("specialty", "", "specialty, e.g. Fonoaudiologia")
		c.Flags().String("contact", "", "phone or e-mail")
	}
	practitionerDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	practitionerCmd.AddCommand(practitionerAddCmd, practitionerListCmd, practitionerShowCmd, practitionerEditCmd, practitionerDeleteCmd)
	rootCmd.AddCommand(practitionerCmd)
}
