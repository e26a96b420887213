package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/task"
)

type editFlags struct {
	taskFlags
	Title      string
	RemoveSubs []string
}

func newEditCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &editFlags{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Long: `Change the fields of a task. Only the flags given are changed.

Editing a recurring task changes the whole series. --sub adds subtasks and
--remove-sub removes them by id.

Example:
  mydays edit 4f2a9c1e --title "Dentist (moved)" --date 2025-03-21
  mydays edit 4f2a9c1e --repeat none
  mydays edit 4f2a9c1e --clear-until`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, rootOpts, flags, args[0])
		},
	}
	flags.register(cmd, "new date of the task")
	cmd.Flags().StringVarP(&flags.Title, "title", "t", "", "new title")
	cmd.Flags().BoolVar(&flags.ClearUntil, "clear-until", false, "make a recurring series open-ended")
	cmd.Flags().StringArrayVar(&flags.RemoveSubs, "remove-sub", nil, "id of a subtask to remove (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("clear-until", "until")
	cmd.MarkFlagsMutuallyExclusive("clear-until", "count")
	return cmd
}

func runEdit(cmd *cobra.Command, rootOpts *RootOptions, flags *editFlags, arg string) error {
	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := commandContext(cmd)

	a.pull(ctx)
	id, err := a.lookupID(arg)
	if err != nil {
		return err
	}

	var t task.Template
	var subs []planner.SubtaskDraft
	a.state.View(func(p *planner.Planner) {
		t, subs, _ = p.PatchFor(id)
	})
	oldDate := t.Date
	if err := flags.apply(cmd, a, &t); err != nil {
		return err
	}
	// Subtasks on the parent's day follow it.
	for i := range subs {
		if subs[i].Date == oldDate {
			subs[i].Date = t.Date
		}
	}
	if subs, err = flags.applySubtasks(a, subs); err != nil {
		return err
	}

	changed, err := a.edit(ctx, func(p *planner.Planner) (bool, error) {
		return p.Update(t, subs)
	})
	if err != nil {
		return err
	}
	if !changed {
		return WrapExitError(ExitFailure, ErrCodeNotFound, fmt.Sprintf("task %s no longer exists", shortID(id)), nil)
	}
	return a.out.Success(resultView{
		Message: fmt.Sprintf("Updated %q  %s", strings.TrimSpace(t.Title), shortID(id)),
		ID:      id,
	})
}

// apply copies the flags the user set onto t.
func (f *editFlags) apply(cmd *cobra.Command, a *app, t *task.Template) error {
	changed := cmd.Flags().Changed
	var err error

	if changed("title") {
		t.Title = f.Title
	}
	if changed("date") {
		if t.Date, err = a.parseDay(f.Date); err != nil {
			return err
		}
	}
	if changed("category") {
		t.Category = f.Category
	}
	if changed("priority") {
		t.Priority = task.Priority(strings.ToLower(f.Priority))
	}
	if changed("repeat") {
		if t.Recurrence, err = parseRepeat(f.Repeat); err != nil {
			return err
		}
	}
	if changed("until") {
		end, err := a.parseDay(f.Until)
		if err != nil {
			return err
		}
		t.RecurrenceEnd = &end
		t.RecurrenceCount = 0
	}
	if changed("count") {
		t.RecurrenceCount = f.Count
		if f.Count <= 0 {
			t.RecurrenceCount = 0
		}
	}
	if f.ClearUntil {
		t.RecurrenceEnd = nil
		t.RecurrenceCount = 0
	}
	return nil
}

// applySubtasks removes and appends subtasks as requested.
func (f *editFlags) applySubtasks(a *app, subs []planner.SubtaskDraft) ([]planner.SubtaskDraft, error) {
	for _, arg := range f.RemoveSubs {
		id, err := a.lookupID(arg)
		if err != nil {
			return nil, err
		}
		i := indexSubtask(subs, id)
		if i < 0 {
			return nil, WrapExitError(ExitFailure, ErrCodeNotFound,
				fmt.Sprintf("%s is not a subtask of this task", shortID(id)), nil)
		}
		subs = append(subs[:i], subs[i+1:]...)
	}
	for _, title := range f.Subtasks {
		subs = append(subs, planner.SubtaskDraft{Title: title})
	}
	return subs, nil
}

func indexSubtask(subs []planner.SubtaskDraft, id string) int {
	for i, s := range subs {
		if s.ID == id {
			return i
		}
	}
	return -1
}
