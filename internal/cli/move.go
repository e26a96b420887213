package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/planner"
)

func newMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		from string
		by   int
	)

	cmd := &cobra.Command{
		Use:   "move <id> [to]",
		Short: "Move a task to another day",
		Long: `Move a task so that it lands on another day. A recurring series moves
as a whole, so that the occurrence given by --date lands on the new day.
Moving a series clears its completion and skip history.

With --by the task moves by a number of days instead.

Example:
  mydays move 4f2a9c1e tomorrow
  mydays move 4f2a9c1e 2025-03-20 --date 2025-03-17
  mydays move 4f2a9c1e --by -7`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			byDays := cmd.Flags().Changed("by")
			if byDays == (len(args) == 2) {
				return NewExitError(ExitCommandError, "give either a target day or --by")
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
			fromDay, err := a.parseOptionalDay(from)
			if err != nil {
				return err
			}
			ref := planner.Ref{TemplateID: id, Date: fromDay}

			var fn func(p *planner.Planner) (bool, error)
			if byDays {
				fn = func(p *planner.Planner) (bool, error) {
					return p.ShiftSeries(ref, by), nil
				}
			} else {
				to, err := a.parseDay(args[1])
				if err != nil {
					return err
				}
				fn = func(p *planner.Planner) (bool, error) {
					return p.MoveOccurrence(ref, to), nil
				}
			}

			changed, err := a.edit(ctx, fn)
			if err != nil {
				return err
			}
			if !changed {
				return a.out.Success(resultView{Message: "Nothing to move", ID: id})
			}

			var day string
			a.state.View(func(p *planner.Planner) {
				if t, ok := p.Template(id); ok {
					day = t.Date.String()
				}
			})
			return a.out.Success(resultView{
				Message: fmt.Sprintf("Moved %s, now starting %s", shortID(id), day),
				ID:      id,
			})
		},
	}
	cmd.Flags().StringVarP(&from, "date", "d", "", "occurrence of a recurring task to move")
	cmd.Flags().IntVar(&by, "by", 0, "move by this many days instead")
	return cmd
}
