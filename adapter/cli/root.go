// Package cli is the klarity command line: the root command, its global
// flags and the App that subcommands run against.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/klarity/pkg/observability"
)

var (
	verbose    bool
	jsonOutput bool
	logger     *slog.Logger
)

type startedAtKey struct{}

var rootCmd = &cobra.Command{
	Use:   "klarity",
	Short: "A shared inbox for you and your agents",
	Long: `Klarity keeps one inbox of ideas, tasks and notes in sync across devices.

Items live in a JSON file in your GitHub repository. Every device merges
remote changes into its local copy, so nothing captured anywhere is lost.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = observability.WithCorrelationID(ctx, "")
		cmd.SetContext(context.WithValue(ctx, startedAtKey{}, time.Now()))
		cliLogger().DebugContext(cmd.Context(), "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		started, ok := cmd.Context().Value(startedAtKey{}).(time.Time)
		if !ok {
			return
		}
		cliLogger().DebugContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			observability.DurationKey, time.Since(started).Milliseconds(),
		)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
}

// Execute runs the command line and exits non-zero on error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// AddCommand mounts a command group under the root.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

func SetLogger(l *slog.Logger) { logger = l }

func cliLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Verbose reports whether --verbose was given.
func Verbose() bool { return verbose }

// JSONOutput reports whether --json was given.
func JSONOutput() bool { return jsonOutput }
