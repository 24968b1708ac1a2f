// Package cmd provides the CLI commands for skillbase.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/logging"
	"github.com/skillbase/skillbase/internal/output"
	"github.com/skillbase/skillbase/internal/router"
	"github.com/skillbase/skillbase/pkg/version"
)

// Persistent flags shared by every command.
var (
	robotMode  bool
	projectDir string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the skillbase CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skillbase",
		Short: "Layered skill knowledge base with hybrid retrieval",
		Long: `Skillbase indexes markdown skill files across layered roots
(global > org > user > project > local) and serves them back with
hybrid BM25 + semantic search, adaptive signal weighting, and
budgeted progressive disclosure.

Run 'skillbase init' in a project to get started.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("skillbase version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&robotMode, "robot", false, "Emit machine-readable JSON on stdout (no ANSI, no status lines)")
	cmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Project directory to operate on")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the skillbase log directory")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = teardownLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newFeedbackCmd())
	cmd.AddCommand(newSuggestWeightsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug_logging_enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// ExecuteContext runs the root command under ctx so signals cancel
// long-running commands like index --watch.
func ExecuteContext(ctx context.Context) error {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

// outWriter builds the output writer for a command honoring --robot.
func outWriter(cmd *cobra.Command) *output.Writer {
	mode := output.ModeHuman
	if robotMode {
		mode = output.ModeRobot
	}
	return output.New(cmd.OutOrStdout(), mode)
}

// failure reports err on the command's output and returns it. Robot mode
// gets the status-union envelope on stdout, the same failure shape the
// search envelope carries; human mode gets a single stderr-style line,
// and cobra still surfaces the error for the exit code.
func failure(out *output.Writer, err error) error {
	if out.Robot() {
		_ = out.JSON(map[string]any{"status": router.ErrorStatus(err)})
	} else {
		out.Error(err.Error())
	}
	return err
}
