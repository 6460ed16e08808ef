package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/db"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

// PasswordEnv supplies the acting user's password for unattended use.
const PasswordEnv = "CLINIC_PASSWORD"

// credentials resolves who is acting: the username from --user, CLINIC_USER
// or auth.username, the password from CLINIC_PASSWORD or a prompt.
func credentials() (string, string, error) {
	username := app.cfg.Auth.Username
	password, hasPassword := os.LookupEnv(PasswordEnv)
	if username != "" && hasPassword {
		return username, password, nil
	}

	if username == "" {
		if err := ui.LoginForm(&username, &password); err != nil {
			if errors.Is(err, ui.ErrNotInteractive) {
				return "", "", fmt.Errorf("%w: pass --user and set %s", auth.ErrNoActor, PasswordEnv)
			}
			return "", "", err
		}
		return username, password, nil
	}

	password, err := ui.ReadPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		if errors.Is(err, ui.ErrNotInteractive) {
			return "", "", fmt.Errorf("%w: set %s", auth.ErrNoActor, PasswordEnv)
		}
		return "", "", err
	}
	return username, password, nil
}

// requireActor logs in and checks that the actor may perform action.
func requireActor(cmd *cobra.Command, action auth.Action) (*auth.Actor, error) {
	username, password, err := credentials()
	if err != nil {
		return nil, err
	}
	actor, err := auth.Login(cmd.Context(), app.store, username, password)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(action); err != nil {
		return nil, err
	}
	app.log.Debug("authorized", "user", actor.Username, "action", string(action))
	return actor, nil
}

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "admin",
	Short:   "Check credentials and show the access level",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password, err := credentials()
		if err != nil {
			return err
		}
		actor, err := auth.Login(cmd.Context(), app.store, username, password)
		if err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, actor)
		}
		fmt.Fprintf(app.out, "%s Logged in as %s (%s)\n", ui.RenderPass("✓"), ui.RenderBold(actor.Username), actor.Access)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "admin",
	Short:   "Create or upgrade the database schema",
	Long: `Create the database file if needed and bring its schema up to date.

Safe to run any number of times. Files written by older versions of the
application are adopted in place: missing columns are added and the weekly
availability table is kept under a new name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := app.initReport
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, initSummary{
				Path:               app.store.Path(),
				SchemaVersion:      report.SchemaVersion,
				Applied:            report.Applied,
				PreviousAppVersion: report.PreviousAppVersion,
				CreatedAdmin:       report.DefaultAdmin != nil,
			})
		}
		fmt.Fprintf(app.out, "%s Database ready: %s\n", ui.RenderPass("✓"), app.store.Path())
		fmt.Fprintf(app.out, "  Schema version: %d\n", report.SchemaVersion)
		if len(report.Applied) == 0 {
			fmt.Fprintf(app.out, "  %s\n", ui.RenderMuted("No migrations needed"))
		}
		for _, v := range report.Applied {
			fmt.Fprintf(app.out, "  Applied migration %d\n", v)
		}
		if report.PreviousAppVersion != "" && report.PreviousAppVersion != Version {
			fmt.Fprintf(app.out, "  Upgraded from %s to %s\n", report.PreviousAppVersion, Version)
		}
		return nil
	},
}

type initSummary struct {
	Path               string `json:"path" yaml:"path"`
	SchemaVersion      int    `json:"schema_version" yaml:"schema_version"`
	Applied            []int  `json:"applied" yaml:"applied"`
	PreviousAppVersion string `json:"previous_app_version,omitempty" yaml:"previous_app_version,omitempty"`
	CreatedAdmin       bool   `json:"created_admin" yaml:"created_admin"`
}

type statusReport struct {
	Path          string    `json:"path" yaml:"path"`
	SizeBytes     int64     `json:"size_bytes" yaml:"size_bytes"`
	SchemaVersion int       `json:"schema_version" yaml:"schema_version"`
	AppVersion    string    `json:"app_version" yaml:"app_version"`
	Counts        *db.Stats `json:"counts" yaml:"counts"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "admin",
	Short:   "Show database location, schema version and record counts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := requireActor(cmd, auth.ActionClinical); err != nil {
			return err
		}
		stats, err := app.store.StatsContext(ctx)
		if err != nil {
			return err
		}
		version, err := app.store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		report := statusReport{
			Path:          app.store.Path(),
			SchemaVersion: version,
			AppVersion:    Version,
			Counts:        stats,
		}
		if info, err := os.Stat(report.Path); err == nil {
			report.SizeBytes = info.Size()
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, report)
		}

		fmt.Fprintf(app.out, "%s\n\n", ui.RenderAccent("Clinic database"))
		fmt.Fprintf(app.out, "  File:    %s (%.1f KB)\n", filepath.Clean(report.Path), float64(report.SizeBytes)/1024)
		fmt.Fprintf(app.out, "  Schema:  v%d\n", report.SchemaVersion)
		fmt.Fprintf(app.out, "  App:     %s\n\n", report.AppVersion)
		rows := [][]string{
			{"Patients", fmt.Sprint(stats.Patients)},
			{"Practitioners", fmt.Sprint(stats.Practitioners)},
			{"Availability slots", fmt.Sprint(stats.Availability)},
			{"Sessions", fmt.Sprint(stats.Sessions)},
			{"Medical records", fmt.Sprint(stats.MedicalRecords)},
			{"Users", fmt.Sprintf("%d (%d admin)", stats.Users, stats.Admins)},
		}
		fmt.Fprintln(app.out, ui.Table([]string{"Records", "Count"}, rows))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the clinic version",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoDB: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clinic %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, initCmd, statusCmd, versionCmd)
}
