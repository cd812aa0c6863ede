// Package main is the entry point for the dashbot CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/dashbot/internal/config"
	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/report"
	"github.com/flemzord/dashbot/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// defaultReportFile is read by "generate" when no file is given.
const defaultReportFile = "latest_report.txt"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command that loads the configuration.
type globalFlags struct {
	configPath string
	logLevel   string
	dataDir    string
	outputDir  string
}

func (f *globalFlags) params() (app.RunParams, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return app.RunParams{}, fmt.Errorf("invalid --log-level %q: %w", f.logLevel, err)
	}
	return app.RunParams{
		ConfigPath: f.configPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		DataDir:    f.dataDir,
		OutputDir:  f.outputDir,
		LogLevel:   level,
	}, nil
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "dashbot",
		Short:         "Telegram bot turning daily ОКК reports into dashboards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Override the history data directory")
	pf.StringVar(&flags.outputDir, "output-dir", "", "Override the dashboard output directory")

	root.AddCommand(
		versionCmd(),
		startCmd(flags),
		configCmd(),
		generateCmd(flags),
		cleanupCmd(flags),
		initCmd(),
		serviceCmd(flags),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dashbot %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd(flags *globalFlags) *cobra.Command {
	var reloadInterval time.Duration
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot with all configured modules",
		Long: "Start the bot. Editing the config file or sending SIGHUP rebuilds\n" +
			"the bot with the new configuration once it validates.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}
			params.ReloadInterval = reloadInterval
			return app.Run(cmd.Context(), params)
		},
	}
	cmd.Flags().DurationVar(&reloadInterval, "reload-interval", 5*time.Second, "how often to poll the config file for changes")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			// Provision every module once so module-level validation runs too.
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			appCtx := core.NewAppContext(logger, os.TempDir(), os.TempDir())
			appCtx = appCtx.WithModuleConfigs(cfg.Modules)
			ids := config.Resolve(cfg)
			application := core.NewApp(appCtx)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

func generateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [report.txt]",
		Short: "Build a dashboard from a report file without Telegram",
		Long: "Reads a daily report (default " + defaultReportFile + ", '-' for stdin), " +
			"updates the history, renders the dashboard and publishes it when a " +
			"publish module is configured.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultReportFile
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readReport(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			params, err := flags.params()
			if err != nil {
				return err
			}
			params.Offline = true
			rt, err := app.Build(cmd.Context(), params)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			if _, err := rt.Pipeline.Cleanup(cmd.Context()); err != nil {
				rt.Logger.Warn("cleanup failed", "error", err)
			}

			res, err := rt.Pipeline.Generate(cmd.Context(), text)
			var parseErr *report.ParseError
			if errors.As(err, &parseErr) {
				return fmt.Errorf("invalid report format: %w", err)
			}
			if err != nil {
				return err
			}
			defer func() { _ = rt.Pipeline.Release(res, true) }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dashboard for %s generated (run %s)\n", res.Date.Format(report.DateLayout), res.RunID)
			for _, p := range res.Pages {
				fmt.Fprintf(out, "  page  %s\n", p)
			}
			fmt.Fprintf(out, "  host  %s\n", res.Host)
			switch {
			case res.Published:
				fmt.Fprintln(out, "Published to the remote host.")
			case res.PublishErr != nil:
				fmt.Fprintf(out, "Upload failed: %v\n", res.PublishErr)
			}
			return nil
		},
	}
}

func readReport(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading report: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("reading report: %s is empty", path)
	}
	return text, nil
}

func cleanupCmd(flags *globalFlags) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete dated dashboard pages past their retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must be non-negative, got %d", keep)
			}
			params, err := flags.params()
			if err != nil {
				return err
			}
			params.Offline = true
			rt, err := app.Build(cmd.Context(), params)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			if !cmd.Flags().Changed("keep") {
				keep = rt.Pipeline.RetentionDays()
			}
			res, err := rt.Pipeline.CleanupKeep(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d file(s), freed %s (older than %s) in %s\n",
				res.Deleted, humanize.Bytes(res.Bytes), res.Cutoff.Format(report.DateLayout), rt.Pipeline.OutputDir())
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Days to keep (default: dashboard.retention_days)")
	return cmd
}

func serviceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage dashbot as an OS service",
	}
	actions := append(slices.Clone(app.ServiceActions), "run")
	for _, action := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: serviceShort(action),
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				params, err := flags.params()
				if err != nil {
					return err
				}
				if action == "install" && params.ConfigPath == "" {
					if params.ConfigPath, err = config.FindPath(""); err != nil {
						return err
					}
				}
				return app.ControlService(action, params)
			},
		})
	}
	return cmd
}

func serviceShort(action string) string {
	if action == "run" {
		return "Run under the service manager (used by the installed service)"
	}
	return strings.ToUpper(action[:1]) + action[1:] + " the dashbot service"
}
