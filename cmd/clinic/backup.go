package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/auth"
	"github.com/clinicware/clinic/internal/clinic/backup"
	"github.com/clinicware/clinic/internal/clinic/config"
	"github.com/clinicware/clinic/internal/clinic/db"
	"github.com/clinicware/clinic/internal/clinic/ui"
	"github.com/clinicware/clinic/internal/clinic/watch"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: "admin",
	Short:   "Export, restore and automatically back up the database",
	Long: `Backups are JSON Lines files holding every patient, practitioner, slot,
session, medical record and user account (with password hashes). They can
be restored into an empty database with the original ids.`,
}

func backupDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return app.cfg.Backup.Dir
}

// exportAndPrune writes one backup and applies the retention limit.
func exportAndPrune(ctx context.Context, dir string) (*backup.Result, error) {
	res, err := backup.ExportFile(ctx, app.store, dir, Version, app.now())
	if err != nil {
		return nil, err
	}
	removed, err := backup.Prune(dir, app.cfg.Backup.Keep)
	if err != nil {
		return res, err
	}
	for _, path := range removed {
		app.log.Debug("pruned old backup", "path", path)
	}
	return res, nil
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionBackup); err != nil {
			return err
		}
		res, err := exportAndPrune(cmd.Context(), backupDir(cmd))
		if err != nil {
			return err
		}
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, res)
		}
		fmt.Fprintf(app.out, "%s Backup written to %s\n", ui.RenderPass("✓"), res.Path)
		printBackupCounts(res)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Restore a backup into an empty database",
	Long: `Restore a backup into a database with no clinical records. The user
accounts in the backup replace the existing ones, including the default
admin created on first start.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionBackup); err != nil {
			return err
		}
		res, err := backup.ImportFile(cmd.Context(), app.store, args[0], db.CurrentSchemaVersion())
		if err != nil {
			return err
		}
		app.log.Info("restored backup", "id", res.ID, "path", res.Path)
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, res)
		}
		fmt.Fprintf(app.out, "%s Restored backup %s\n", ui.RenderPass("✓"), res.ID)
		printBackupCounts(res)
		return nil
	},
}

var backupWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Back up automatically whenever the database changes",
	Long: `Watch the database file and write a backup once it has been quiet for
backup.debounce (30s by default). Old backups beyond backup.keep are removed.
Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireActor(cmd, auth.ActionBackup); err != nil {
			return err
		}
		dir := backupDir(cmd)
		onStart, _ := cmd.Flags().GetBool("now")

		w, err := watch.New(app.store.Path(), func(ctx context.Context) error {
			res, err := exportAndPrune(ctx, dir)
			if err != nil {
				return err
			}
			app.log.Info("backup written", "path", res.Path, "patients", res.Patients, "sessions", res.Sessions)
			return nil
		}, &watch.Config{
			Debounce:      app.cfg.Backup.Debounce,
			BackupOnStart: onStart,
			Logger:        app.log.Logger,
		})
		if err != nil {
			return err
		}

		app.loader.Watch(func(cfg config.Config) {
			if err := app.log.SetLevel(cfg.Logging.Level); err != nil {
				app.log.Warn("ignoring log level from config", "error", err)
				return
			}
			app.log.Info("config reloaded", "log_level", cfg.Logging.Level)
		}, func(err error) {
			app.log.Warn("ignoring invalid config change", "error", err)
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		abs, _ := filepath.Abs(dir)
		fmt.Fprintf(app.out, "%s Watching %s, backups go to %s (Ctrl+C to stop)\n",
			ui.RenderAccent("▶"), app.store.Path(), abs)
		if err := w.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Stopped after %d backups\n", ui.RenderPass("✓"), w.Runs())
		return nil
	},
}

func printBackupCounts(res *backup.Result) {
	fmt.Fprintf(app.out, "  %d patients, %d practitioners, %d slots, %d sessions, %d records, %d users\n",
		res.Patients, res.Practitioners, res.Availability, res.Sessions, res.MedicalRecords, res.Users)
}

func init() {
	for _, c := range []*cobra.Command{backupExportCmd, backupWatchCmd} {
		c.Flags().String("dir", "", "backup directory (default backup.dir)")
	}
	backupWatchCmd.Flags().Bool("now", false, "write a backup immediately on start")

	backupCmd.AddCommand(backupExportCmd, backupImportCmd, backupWatchCmd)
	rootCmd.AddCommand(backupCmd)
}
