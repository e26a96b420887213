package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/planner"
)

func newDayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "Show what is planned for a day",
		Long: `Show the tasks of a day, including occurrences of recurring tasks.
Subtasks are listed under their parent.

Example:
  mydays day
  mydays day tomorrow
  mydays day 2025-03-20 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			day, err := a.parseDay(arg)
			if err != nil {
				return err
			}

			a.pull(commandContext(cmd))
			var occs []planner.Occurrence
			a.state.View(func(p *planner.Planner) {
				occs = p.OccurrencesOn(day)
			})
			return a.out.Success(newDayView(day, occs))
		},
	}
}
