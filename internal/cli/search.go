package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/search"
)

func newSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find tasks and dates",
		Long: `Search for a month, a date, a weekday or a task title.

Month names jump to the next such month, dates like 3/15 or "March 15" jump
to that day, and weekday names ("friday", "next friday") list the coming
four. Anything else matches task titles within six months of today,
nearest first.

Example:
  mydays search dentist
  mydays search "next friday"
  mydays search 3/15/2026`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			a.pull(commandContext(cmd))
			var results []search.Result
			a.state.View(func(p *planner.Planner) {
				results = search.Lookup(p, query, a.today())
			})
			if results == nil {
				results = []search.Result{}
			}
			return a.out.Success(searchView{Query: query, Results: results})
		},
	}
}
