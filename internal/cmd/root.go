package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/scrollkit/internal/config"
	"github.com/charmbracelet/scrollkit/internal/log"
	"github.com/charmbracelet/scrollkit/internal/source"
	"github.com/charmbracelet/scrollkit/internal/tui/list"
	"github.com/charmbracelet/scrollkit/internal/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	addSourceFlags(rootCmd)
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("generate", "n", 0, "List N generated entries instead of scanning")
	cmd.Flags().StringArrayP("glob", "g", nil, "Only list paths matching the glob (repeatable)")
	cmd.Flags().Bool("hidden", false, "Include dot files and directories")
	cmd.Flags().Int("depth", 0, "Maximum directory depth, 0 for no limit")
	cmd.Flags().Bool("no-watch", false, "Do not re-scan when files change")
	cmd.Flags().Bool("details", false, "Show size, modification time and a preview line")
}

var rootCmd = &cobra.Command{
	Use:   "scrollkit [dir]",
	Short: "Browse large listings in the terminal",
	Long: heredoc.Doc(`
		Scrollkit lists the files under a directory in a virtualized list: only
		the rows on screen are rendered, however large the listing is. The
		listing follows changes on disk and can be narrowed with a fuzzy filter.
	`),
	Example: heredoc.Doc(`
		# List the current directory
		scrollkit

		# List Go files under ./internal, with details
		scrollkit internal --glob '**/*.go' --details

		# Scroll through a million generated entries
		scrollkit --generate 1000000
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setupApp(cmd)
		if err != nil {
			return err
		}
		defer log.RecoverPanic("main", nil)

		src, err := sourceFromFlags(cmd, cfg, args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		overrides := listOverrides(cmd)
		overrides(&cfg.List)
		opts := []list.ListOption{
			list.WithLayout(cfg.List),
			list.WithLayoutOverrides(overrides),
		}
		if updates, err := config.Watch(ctx, cfg.WorkingDir(), cfg.Options.Debug); err != nil {
			slog.Warn("Config changes will not be picked up", "error", err)
		} else {
			opts = append(opts, list.WithConfigUpdates(updates))
		}

		m, err := list.New(src, opts...)
		if err != nil {
			return fmt.Errorf("failed to create list: %w", err)
		}
		defer m.Close()

		program := tea.NewProgram(
			m,
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(ctx),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	},
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
	); err != nil {
		os.Exit(1)
	}
}

// setupApp resolves the working directory, loads the config and starts
// logging.
func setupApp(cmd *cobra.Command) (*config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	cwd, _ := cmd.Flags().GetString("cwd")

	cwd, err := ResolveCwd(cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cwd, debug)
	if err != nil {
		return nil, err
	}

	debug = cfg.Options.Debug || cfg.Options.LogLevel == "debug"
	log.Setup(filepath.Join(cfg.Options.DataDirectory, "logs", "scrollkit.log"), debug)
	slog.Info("Starting", "version", version.Version, "cwd", cwd)
	return cfg, nil
}

// ResolveCwd changes into cwd when it is set and returns the absolute
// working directory.
func ResolveCwd(cwd string) (string, error) {
	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}

// sourceFromFlags combines the source section of the config with the command
// line. Flags win.
func sourceFromFlags(cmd *cobra.Command, cfg *config.Config, args []string) (list.Source, error) {
	flags := cmd.Flags()
	if n, _ := flags.GetInt("generate"); n > 0 {
		return list.Source{Entries: source.Generate(n)}, nil
	} else if n < 0 {
		return list.Source{}, fmt.Errorf("--generate must not be negative, got %d", n)
	}

	root := cfg.WorkingDir()
	if len(args) > 0 {
		root = args[0]
		if !filepath.IsAbs(root) {
			root = filepath.Join(cfg.WorkingDir(), root)
		}
	}

	opts := source.Options{
		Include:  cfg.Source.Include,
		Ignore:   cfg.Source.Ignore,
		Hidden:   cfg.Source.Hidden,
		MaxDepth: cfg.Source.MaxDepth,
	}
	if globs, _ := flags.GetStringArray("glob"); len(globs) > 0 {
		opts.Include = globs
	}
	if flags.Changed("hidden") {
		opts.Hidden, _ = flags.GetBool("hidden")
	}
	if flags.Changed("depth") {
		opts.MaxDepth, _ = flags.GetInt("depth")
	}
	watch := cfg.WatchEnabled()
	if noWatch, _ := flags.GetBool("no-watch"); noWatch {
		watch = false
	}

	return list.Source{
		Root:     root,
		Options:  opts,
		Watch:    watch,
		Debounce: time.Duration(cfg.Source.DebounceMS) * time.Millisecond,
	}, nil
}

// listOverrides returns the list settings given on the command line. They
// are applied to the loaded layout and again to every reloaded one.
func listOverrides(cmd *cobra.Command) func(*config.ListOptions) {
	flags := cmd.Flags()
	return func(layout *config.ListOptions) {
		if flags.Changed("details") {
			layout.ShowDetails, _ = flags.GetBool("details")
		}
	}
}
