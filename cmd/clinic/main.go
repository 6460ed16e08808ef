// Command clinic manages the records of a small therapy clinic: patients,
// practitioners and their availability, therapy sessions, medical records and
// user accounts, all kept in a single SQLite file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/config"
	"github.com/clinicware/clinic/internal/clinic/db"
	"github.com/clinicware/clinic/internal/clinic/logging"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

// Version is stamped at build time with -ldflags "-X main.Version=…".
var Version = "v0.1.0"

// annotationNoDB marks commands that run without opening the database.
const annotationNoDB = "clinic/no-db"

// appState is what PersistentPreRunE prepares for every command.
type appState struct {
	loader     *config.Loader
	cfg        config.Config
	log        *logging.Logger
	store      *db.DB
	initReport *db.InitReport
	format     ui.Format
	out        io.Writer
	now        func() time.Time
}

var app = &appState{now: time.Now}

var (
	configFile   string
	dbPathFlag   string
	driverFlag   string
	outputFlag   string
	userFlag     string
	logLevelFlag string
	noColorFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "clinic",
	Short: "Clinic records: patients, sessions, schedules and users",
	Long: `clinic keeps the records of a therapy clinic in one SQLite file
(clinica.db by default).

Every command that touches clinical data asks who is acting. Pass --user (or
set CLINIC_USER) and CLINIC_PASSWORD to run unattended; otherwise you are
prompted.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Clinical records:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: clinic.toml in $CLINIC_HOME, user config dir or cwd)")
	flags.StringVar(&dbPathFlag, "db", "", "database file (default clinica.db)")
	flags.StringVar(&driverFlag, "driver", "", "SQL driver: sqlite3, or libsql in libsql builds")
	flags.StringVarP(&outputFlag, "output", "o", "table", "output format: table, json or yaml")
	flags.StringVarP(&userFlag, "user", "u", "", "username to act as (env CLINIC_USER)")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	app.loader = config.NewLoader()
	v := app.loader.Viper()
	_ = v.BindPFlag("database.path", flags.Lookup("db"))
	_ = v.BindPFlag("database.driver", flags.Lookup("driver"))
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("auth.username", flags.Lookup("user"))
	_ = v.BindEnv("auth.username", "CLINIC_AUTH_USERNAME", "CLINIC_USER")
}

// setup loads config, builds the logger and opens and initializes the
// database. Any failure here is fatal to the command.
func setup(cmd *cobra.Command, args []string) error {
	app.out = cmd.OutOrStdout()
	ui.SetOutput(app.out)
	if noColorFlag {
		ui.DisableColor()
	}

	format, err := ui.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	app.format = format

	cfg, err := app.loader.Load(config.LoadOptions{ConfigPath: configFile})
	if err != nil {
		return err
	}
	app.cfg = cfg

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return err
	}
	app.log = logger

	if skipsDatabase(cmd) {
		return nil
	}

	store, err := db.OpenWithOptions(cfg.Database.Path, db.Options{
		Driver:     cfg.Database.Driver,
		Hasher:     auth.NewHasher(cfg.Auth.LegacyHash),
		Logger:     logger.Logger,
		AppVersion: Version,
	})
	if err != nil {
		return err
	}
	app.store = store

	report, err := store.InitializeContext(cmd.Context())
	if err != nil {
		return fmt.Errorf("cannot start: %w", err)
	}
	app.initReport = report
	if report.DefaultAdmin != nil {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "\n%s Created default admin account\n", ui.RenderWarn("⚠"))
		fmt.Fprintf(errOut, "   Username: %s\n", report.DefaultAdmin.Username)
		fmt.Fprintf(errOut, "   Password: %s\n", report.DefaultAdmin.Password)
		fmt.Fprintf(errOut, "   Change it now with 'clinic user passwd'\n\n")
	}
	return nil
}

func skipsDatabase(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationNoDB] == "true" || cmd.Name() == "help" {
		return true
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

// teardown releases what setup opened. It is safe to call more than once.
func teardown() {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing database: %v\n", err)
		}
		app.store = nil
	}
	if app.log != nil {
		_ = app.log.Close()
		app.log = nil
	}
}

func main() {
	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), describeError(err))
		os.Exit(1)
	}
}

// describeError turns the errors users can act on into plain messages.
func describeError(err error) string {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("invalid %s: %s", verr.Field, verr.Message)
	case errors.Is(err, db.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, auth.ErrForbidden):
		return "permission denied: " + err.Error()
	case errors.Is(err, db.ErrDuplicateUsername):
		return "that username is already taken"
	case errors.Is(err, db.ErrDuplicateMedicalRecord):
		return "this patient already has a medical record"
	case errors.Is(err, db.ErrForeignKey):
		return "the referenced patient or practitioner does not exist"
	case errors.Is(err, db.ErrLastAdmin):
		return "at least one admin account must remain"
	case errors.Is(err, db.ErrNotFound):
		return "not found"
	case errors.Is(err, db.ErrSchemaTooNew):
		return err.Error() + " (upgrade clinic)"
	default:
		return err.Error()
	}
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: kind + " id", Message: fmt.Sprintf("must be a positive number (got %q)", s)}
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// confirmDelete asks before a destructive command unless --yes was given.
func confirmDelete(cmd *cobra.Command, what string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	ok, err := ui.Confirm(fmt.Sprintf("Delete %s?", what))
	if errors.Is(err, ui.ErrNotInteractive) {
		return false, fmt.Errorf("refusing to delete %s without --yes", what)
	}
	return ok, err
}
