package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/search"
	"github.com/roach88/mydays/internal/state"
	"github.com/roach88/mydays/internal/task"
)

// shortIDLen is how much of an id text output shows. Ids resolve by
// unique suffix, and the tail of a UUIDv7 is its random part.
const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[len(id)-shortIDLen:]
}

func longDate(d date.Day) string {
	return fmt.Sprintf("%s, %s %d, %d", d.Weekday(), d.Month(), d.DayOfMonth(), d.Year())
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// occurrenceView is one entry of a day as printed by the CLI.
type occurrenceView struct {
	ID         string           `json:"id"`
	Date       date.Day         `json:"date"`
	Title      string           `json:"title"`
	Category   string           `json:"category,omitempty"`
	Priority   task.Priority    `json:"priority,omitempty"`
	Recurrence task.Recurrence  `json:"recurrence,omitempty"`
	Completed  bool             `json:"completed"`
	Instance   bool             `json:"instance,omitempty"`
	Subtasks   []occurrenceView `json:"subtasks,omitempty"`
}

func newOccurrenceView(o planner.Occurrence) occurrenceView {
	v := occurrenceView{
		ID:         o.OriginalID,
		Date:       o.Date,
		Title:      o.Title,
		Category:   o.Category,
		Priority:   o.Priority,
		Recurrence: o.Recurrence,
		Completed:  o.Completed,
		Instance:   o.Instance,
	}
	for _, s := range o.Subtasks {
		v.Subtasks = append(v.Subtasks, newOccurrenceView(s))
	}
	return v
}

func (v occurrenceView) line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", checkbox(v.Completed), v.Title)

	var tags []string
	if v.Category != "" {
		tags = append(tags, v.Category)
	}
	if v.Priority != "" && v.Priority != task.PriorityNone {
		tags = append(tags, string(v.Priority))
	}
	if v.Recurrence != task.RecurrenceNone {
		tags = append(tags, string(v.Recurrence))
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(tags, ", "))
	}
	fmt.Fprintf(&b, "  %s", shortID(v.ID))
	return b.String()
}

func (v occurrenceView) String() string {
	return v.line()
}

// dayView is the output of `mydays day`.
type dayView struct {
	Date        date.Day         `json:"date"`
	Occurrences []occurrenceView `json:"occurrences"`
}

func newDayView(d date.Day, occs []planner.Occurrence) dayView {
	v := dayView{Date: d, Occurrences: []occurrenceView{}}
	for _, o := range occs {
		v.Occurrences = append(v.Occurrences, newOccurrenceView(o))
	}
	return v
}

func (v dayView) String() string {
	var b strings.Builder
	b.WriteString(longDate(v.Date))
	if len(v.Occurrences) == 0 {
		b.WriteString("\n  nothing planned")
	}
	for _, o := range v.Occurrences {
		fmt.Fprintf(&b, "\n  %s", o.line())
		for _, s := range o.Subtasks {
			fmt.Fprintf(&b, "\n      %s", s.line())
		}
	}
	return b.String()
}

// resultView reports a mutation.
type resultView struct {
	Message string          `json:"message"`
	ID      string          `json:"id,omitempty"`
	Task    *occurrenceView `json:"task,omitempty"`
}

func (v resultView) String() string {
	return v.Message
}

// searchView is the output of `mydays search`.
type searchView struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func (v searchView) String() string {
	if len(v.Results) == 0 {
		return fmt.Sprintf("no results for %q", v.Query)
	}
	lines := make([]string, 0, len(v.Results))
	for _, r := range v.Results {
		switch r.Kind {
		case search.KindTask:
			line := fmt.Sprintf("%s  %s %s", r.Date, checkbox(r.Completed), r.Label)
			if r.Category != "" {
				line += fmt.Sprintf(" (%s)", r.Category)
			}
			lines = append(lines, line+"  "+shortID(r.TemplateID))
		default:
			lines = append(lines, fmt.Sprintf("%s  %s", r.Date, r.Label))
		}
	}
	return strings.Join(lines, "\n")
}

// settingsView is the output of `mydays set` without arguments.
type settingsView struct {
	Theme          string            `json:"theme"`
	Sound          string            `json:"sound"`
	View           string            `json:"view"`
	Categories     []state.Category  `json:"categories"`
	CategoryColors map[string]string `json:"categoryColors"`
	CustomThemes   []string          `json:"customThemes"`
}

func newSettingsView(s state.Settings) settingsView {
	themes := make([]string, 0, len(s.CustomThemes))
	for name := range s.CustomThemes {
		themes = append(themes, name)
	}
	sort.Strings(themes)
	return settingsView{
		Theme:          s.Theme,
		Sound:          s.Sound,
		View:           s.View,
		Categories:     s.Categories,
		CategoryColors: s.CategoryColors,
		CustomThemes:   themes,
	}
}

func (v settingsView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "theme: %s\nsound: %s\nview:  %s\ncategories:", v.Theme, v.Sound, v.View)
	for _, c := range v.Categories {
		color := c.Color
		if override, ok := v.CategoryColors[c.Name]; ok {
			color = override
		}
		fmt.Fprintf(&b, "\n  %s %s", c.Name, color)
	}
	if len(v.CustomThemes) > 0 {
		fmt.Fprintf(&b, "\ncustom themes: %s", strings.Join(v.CustomThemes, ", "))
	}
	return b.String()
}

// syncView is the output of `mydays sync`.
type syncView struct {
	Status   string `json:"status"`
	Remote   string `json:"remote"`
	Baseline string `json:"baseline,omitempty"`
	Pending  bool   `json:"pendingPush"`
}

func (v syncView) String() string {
	s := fmt.Sprintf("%s with %s", strings.ToLower(v.Status), v.Remote)
	if v.Baseline != "" {
		s += fmt.Sprintf(" (baseline %s)", v.Baseline)
	}
	if v.Pending {
		s += ", push pending"
	}
	return s
}
