package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/audio"
	"github.com/roach88/mydays/internal/planner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Now overrides the wall clock (for testing). Defaults to time.Now.
	Now func() time.Time

	// IDs overrides the task id generator (for testing).
	IDs planner.IDGenerator

	// Audio overrides the audio output (for testing). Defaults to the
	// system player command.
	Audio audio.Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mydays CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mydays",
		Short: "mydays - a personal calendar and task tracker",
		Long: `A personal calendar and task tracker with recurring tasks.

State is kept in a local SQLite database and, when a remote is configured,
synced to a per-user document on the remote server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(opts.Verbose)
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return NewExitError(ExitCommandError, err.Error())
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/mydays/config.yaml)")

	cmd.AddCommand(
		newAddCommand(opts),
		newDayCommand(opts),
		newDoneCommand(opts),
		newEditCommand(opts),
		newRmCommand(opts),
		newMoveCommand(opts),
		newSearchCommand(opts),
		newSetCommand(opts),
		newSyncCommand(opts),
		newServeCommand(opts),
	)

	return cmd
}

// Execute runs the CLI with the process arguments, reports a failure in
// the selected output format and returns the exit code.
func Execute(ctx context.Context) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	out := &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	out.ReportError(err)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
