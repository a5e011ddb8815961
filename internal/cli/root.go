package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/branding"
	"github.com/itsrobel/qs/internal/config"
	"github.com/itsrobel/qs/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// Persistent flags and the per-run state PersistentPreRunE builds from them.
var (
	catalogPath string
	logLevel    string
	logFormat   string

	settings *config.Settings
	logger   *zerolog.Logger
	runID    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog file to use instead of the built-in one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperr.New(apperr.InvalidArgument, "", err)
	})
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` generates Go projects from a declarative catalog: directories,
templated files and the toolchain commands that turn them into a runnable app.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			if err := config.Override(config.KeyLogLevel, logLevel); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("log-format") {
			if err := config.Override(config.KeyLogFormat, logFormat); err != nil {
				return err
			}
		}

		s, err := config.Current()
		if err != nil {
			return err
		}
		settings = s

		runID = logging.NewRunID()
		l, err := logging.New(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat, runID)
		if err != nil {
			return apperr.New(apperr.InvalidArgument, "log settings", err)
		}
		logger = l
		return nil
	},
}

// Execute runs the root command with build info injected via ldflags.
// An interrupt cancels the run between command steps.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Main runs the CLI and returns the process exit code, printing a one-line
// diagnostic for any failure.
func Main(version, commit, date string) int {
	err := Execute(version, commit, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return apperr.ExitCode(err)
}

// exactArgs is cobra.ExactArgs with the error classified as bad input.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return apperr.New(apperr.InvalidArgument, "", err)
		}
		return nil
	}
}
