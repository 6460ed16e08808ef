package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clinicware/clinic/internal/clinic/config"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "admin",
	Short:   "Create or inspect the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Long: `Write clinic.toml with the default settings. The file goes to
$CLINIC_HOME when set, otherwise to the current directory.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = config.FileName
			if home := os.Getenv(config.HomeEnv); home != "" {
				path = filepath.Join(home, config.FileName)
			}
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteFile(path, config.DefaultConfig(), force); err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s Wrote %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective configuration",
	Long:        "Print the configuration after merging defaults, the config file, .env, CLINIC_* variables and flags.",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.format != ui.FormatTable {
			return ui.Encode(app.out, app.format, app.cfg)
		}
		data, err := config.Encode(app.cfg)
		if err != nil {
			return err
		}
		source := app.loader.File()
		if source == "" {
			source = "defaults (no config file found)"
		}
		fmt.Fprintf(app.out, "%s\n\n%s", ui.RenderMuted("# "+source), data)
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("path", "", "file to write (default clinic.toml)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
