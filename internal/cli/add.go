package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/task"
)

// taskFlags are the task fields shared by add and edit.
type taskFlags struct {
	Date       string
	Category   string
	Priority   string
	Repeat     string
	Until      string
	Count      int
	Subtasks   []string
	ClearUntil bool
}

func (f *taskFlags) register(cmd *cobra.Command, dateHelp string) {
	cmd.Flags().StringVarP(&f.Date, "date", "d", "", dateHelp)
	cmd.Flags().StringVarP(&f.Category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&f.Priority, "priority", "p", "", "priority (none|low|medium|high)")
	cmd.Flags().StringVarP(&f.Repeat, "repeat", "r", "", "recurrence (none|daily|weekly|biweekly|monthly|yearly)")
	cmd.Flags().StringVar(&f.Until, "until", "", "last day of a recurring series (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.Count, "count", 0, "number of occurrences of a recurring series")
	cmd.Flags().StringArrayVarP(&f.Subtasks, "sub", "s", nil, "subtask title (repeatable)")
}

// newAddCommand creates the add command.
func newAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &taskFlags{}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task, optionally recurring and with subtasks.

Example:
  mydays add "Dentist" --date 2025-03-20 --category Health --priority high
  mydays add "Gym" --repeat weekly --count 10
  mydays add "Move house" --sub "Book van" --sub "Pack kitchen"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, rootOpts, flags, strings.Join(args, " "))
		},
	}
	flags.register(cmd, "date (YYYY-MM-DD, today, tomorrow; default today)")
	return cmd
}

func runAdd(cmd *cobra.Command, rootOpts *RootOptions, flags *taskFlags, title string) error {
	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := commandContext(cmd)

	day, err := a.parseDay(flags.Date)
	if err != nil {
		return err
	}
	draft := planner.Draft{
		Date:            day,
		Title:           title,
		Category:        flags.Category,
		Priority:        task.Priority(strings.ToLower(flags.Priority)),
		RecurrenceCount: flags.Count,
	}
	if draft.Category == "" {
		draft.Category = a.defaultCategory()
	}
	if draft.Recurrence, err = parseRepeat(flags.Repeat); err != nil {
		return err
	}
	if flags.Until != "" {
		end, err := a.parseDay(flags.Until)
		if err != nil {
			return err
		}
		draft.RecurrenceEnd = &end
	}
	for _, s := range flags.Subtasks {
		draft.Subtasks = append(draft.Subtasks, planner.SubtaskDraft{Title: s})
	}

	a.pull(ctx)
	var id string
	if _, err := a.edit(ctx, func(p *planner.Planner) (bool, error) {
		id, err = p.Create(draft)
		return err == nil, err
	}); err != nil {
		return err
	}

	return a.out.Success(resultView{
		Message: fmt.Sprintf("Added %q on %s  %s", strings.TrimSpace(title), day, shortID(id)),
		ID:      id,
	})
}

// defaultCategory is the first configured category.
func (a *app) defaultCategory() string {
	cats := a.state.Settings().Categories
	if len(cats) == 0 {
		return ""
	}
	return cats[0].Name
}

func parseRepeat(s string) (task.Recurrence, error) {
	if s == "" {
		return task.RecurrenceNone, nil
	}
	r, err := task.ParseRecurrence(s)
	if err != nil {
		return "", WrapExitError(ExitCommandError, ErrCodeUsage, "invalid --repeat", err)
	}
	return r, nil
}

// parseOptionalDay parses a date argument that may be empty.
func (a *app) parseOptionalDay(s string) (date.Day, error) {
	if s == "" {
		return date.Day{}, nil
	}
	return a.parseDay(s)
}
