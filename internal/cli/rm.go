package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/planner"
)

func newRmCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		onDate string
		scope  string
	)

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task or an occurrence of a recurring task",
		Long: `Delete a task together with its subtasks.

For a recurring task, --date selects an occurrence and --scope decides what
goes: "this" skips that one day, "future" ends the series the day before.
Deleting from the first day of a series removes the whole series.

Example:
  mydays rm 4f2a9c1e
  mydays rm 4f2a9c1e --date 2025-03-17
  mydays rm 4f2a9c1e --date 2025-03-17 --scope future`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := parseScope(scope)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := commandContext(cmd)

			a.pull(ctx)
			id, err := a.lookupID(args[0])
			if err != nil {
				return err
			}
			day, err := a.parseOptionalDay(onDate)
			if err != nil {
				return err
			}

			changed, err := a.edit(ctx, func(p *planner.Planner) (bool, error) {
				return p.DeleteOccurrence(planner.Ref{TemplateID: id, Date: day}, sc), nil
			})
			if err != nil {
				return err
			}
			if !changed {
				return WrapExitError(ExitFailure, ErrCodeNotFound,
					fmt.Sprintf("task %s has no occurrence to delete on %s", shortID(id), day), nil)
			}
			return a.out.Success(resultView{
				Message: fmt.Sprintf("Deleted %s (%s)", shortID(id), sc),
				ID:      id,
			})
		},
	}
	cmd.Flags().StringVarP(&onDate, "date", "d", "", "occurrence date of a recurring task")
	cmd.Flags().StringVar(&scope, "scope", "this", "what to delete from a series (this|future)")
	return cmd
}

func parseScope(s string) (planner.Scope, error) {
	switch strings.ToLower(s) {
	case "", "this":
		return planner.ScopeThis, nil
	case "future":
		return planner.ScopeFuture, nil
	}
	return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid --scope %q (must be this or future)", s))
}
