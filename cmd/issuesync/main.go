package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issuesync/issuesync/internal/config"
	"github.com/issuesync/issuesync/internal/debug"
	"github.com/issuesync/issuesync/internal/telemetry"
	"github.com/issuesync/issuesync/internal/ui"
)

var (
	configFile  string
	jsonOutput  bool
	verboseFlag bool // Enable verbose/debug output
	quietFlag   bool // Suppress non-essential output
	noColorFlag bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "issuesync",
	Short: "issuesync - mirror GitHub issues into an Airtable table",
	Long: `Mirror the issues of one GitHub repository into one Airtable table.

Rows are keyed by issue number. Missing rows are created, changed rows are
updated, and rows without a matching issue are never touched.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "issuesync version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupSignalContext()
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		ui.ApplyColorMode(noColorFlag)

		if err := config.Initialize(configFile); err != nil {
			return &config.ConfigurationError{Problems: []string{err.Error()}}
		}
		if err := bindConfigFlags(cmd); err != nil {
			return err
		}

		closer, err := debug.Setup(debug.LogOptions{
			Level:  config.GetString("log.level"),
			Format: config.GetString("log.format"),
			File:   config.GetString("log.file"),
		}, cmd.ErrOrStderr())
		if err != nil {
			return &config.ConfigurationError{Problems: []string{err.Error()}}
		}
		logCloser = closer

		if err := telemetry.Init(rootCtx, "issuesync", Version); err != nil {
			debug.Logger().Warn("telemetry disabled", "error", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./issuesync.yaml, then ~/.config/issuesync/issuesync.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file (rotated) instead of stderr")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

// bindConfigFlags lets explicitly set flags override every other
// configuration source. Flags a command does not define are skipped.
func bindConfigFlags(cmd *cobra.Command) error {
	for _, k := range config.Keys {
		if k.Flag == "" {
			continue
		}
		if err := config.BindFlag(k.Key, cmd.Flags().Lookup(k.Flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", k.Flag, err)
		}
	}
	return nil
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func shutdown() {
	ctx := rootCtx
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry.Shutdown(context.WithoutCancel(ctx))
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	if rootCancel != nil {
		rootCancel()
	}
}

// reportedError marks an error whose details were already rendered.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// exitCode maps an error onto the process exit status: 2 for bad
// configuration, 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		// PersistentPostRun is skipped when RunE fails.
		shutdown()

		var reported *reportedError
		if !errors.As(err, &reported) {
			if jsonOutput {
				outputJSONError(os.Stderr, err)
			} else {
				fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFailIcon(), err)
			}
		}
	}
	os.Exit(exitCode(err))
}
