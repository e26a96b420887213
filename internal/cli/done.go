package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/planner"
)

func newDoneCommand(rootOpts *RootOptions) *cobra.Command {
	var onDate string

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle completion of a task",
		Long: `Mark a task complete, or incomplete if it already is.

For a recurring task, --date selects the occurrence; without it the first
day of the series is toggled.

Example:
  mydays done 4f2a9c1e
  mydays done 4f2a9c1e --date 2025-03-17`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var occ planner.Occurrence
			changed, err := a.edit(ctx, func(p *planner.Planner) (bool, error) {
				var ok bool
				occ, ok = p.ToggleCompletion(planner.Ref{TemplateID: id, Date: day})
				return ok, nil
			})
			if err != nil {
				return err
			}
			if !changed {
				return WrapExitError(ExitFailure, ErrCodeNotFound,
					fmt.Sprintf("task %s does not occur on %s", shortID(id), day), nil)
			}

			verb := "Reopened"
			if occ.Completed {
				verb = "Completed"
			}
			view := newOccurrenceView(occ)
			return a.out.Success(resultView{
				Message: fmt.Sprintf("%s %q on %s", verb, occ.Title, occ.Date),
				ID:      id,
				Task:    &view,
			})
		},
	}
	cmd.Flags().StringVarP(&onDate, "date", "d", "", "occurrence date of a recurring task")
	return cmd
}
