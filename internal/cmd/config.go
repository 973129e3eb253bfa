package cmd

import (
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/scrollkit/internal/config"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting in the data config",
	Long: heredoc.Doc(`
		Store a setting in the data config. Keys use dots to reach nested
		fields. Values are JSON; anything that is not valid JSON is stored as
		a string.
	`),
	Example: heredoc.Doc(`
		# Leave a blank row between entries
		scrollkit config set list.spacing 1

		# Only list Go and Markdown files
		scrollkit config set source.include '["**/*.go", "**/*.md"]'
	`),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setupApp(cmd)
		if err != nil {
			return err
		}
		return setField(cfg, args[0], args[1])
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the project config",
	Long: heredoc.Doc(`
		Write the effective list and source settings to .scrollkit.json in the
		working directory, so they can be tuned for this project.
	`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setupApp(cmd)
		if err != nil {
			return err
		}
		path, err := config.InitProject(cfg)
		if errors.Is(err, config.ErrProjectInitialized) {
			fmt.Fprintln(cmd.OutOrStdout(), "Project config already exists:", cfg.ProjectConfig())
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
}

func setField(cfg *config.Config, key, value string) error {
	if gjson.Valid(value) {
		return cfg.SetRawConfigField(key, value)
	}
	return cfg.SetConfigField(key, value)
}
