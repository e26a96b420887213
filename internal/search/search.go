// Package search resolves the free-text lookup box: date jumps and task
// title matches.
//
// A query is tried, in order, as a month name, an explicit date, a weekday
// and finally a title substring. The first interpretation that produces a
// result wins.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/recurrence"
	"github.com/roach88/mydays/internal/task"
)

const (
	// MaxResults caps the number of title matches.
	MaxResults = 20

	// WindowMonths is how far recurring templates are expanded either
	// side of today.
	WindowMonths = 6

	// weekdayCandidates is how many weekly dates a weekday query yields.
	weekdayCandidates = 4

	// pastPenalty multiplies the distance of past occurrences.
	pastPenalty = 4
)

// Kind is the type of a lookup result.
type Kind string

const (
	KindMonth Kind = "month"
	KindDate  Kind = "date"
	KindTask  Kind = "task"
)

// Result is one lookup result. For month jumps Date is the first of the
// month.
type Result struct {
	Kind       Kind     `json:"kind"`
	Label      string   `json:"label"`
	Date       date.Day `json:"date"`
	TemplateID string   `json:"templateId,omitempty"`
	Category   string   `json:"category,omitempty"`
	Completed  bool     `json:"completed"`
}

// Source is the task collection searched by Lookup. *planner.Planner
// satisfies it.
type Source interface {
	Templates() []task.Template
	Completed(k task.MarkerKey) bool
	Skipped(k task.MarkerKey) bool
}

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)
	textDate  = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})$`)
	weekday   = regexp.MustCompile(`^(next\s+)?([a-z]+)$`)
)

var monthAbbr = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Lookup resolves query relative to today. An empty query returns nil.
func Lookup(src Source, query string, today date.Day) []Result {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	lower := strings.ToLower(q)

	if m, ok := parseMonth(lower); ok {
		year := today.Year()
		if m <= today.Month() {
			year++
		}
		return []Result{{
			Kind:  KindMonth,
			Label: fmt.Sprintf("Go to %s %d", m, year),
			Date:  date.New(year, m, 1),
		}}
	}

	if d, ok := parseDate(lower, today); ok {
		return []Result{dateResult(d)}
	}

	if res := weekdayResults(lower, today); res != nil {
		return res
	}

	return matchTitles(src, q, today)
}

func parseMonth(s string) (time.Month, bool) {
	for i, abbr := range monthAbbr {
		m := time.Month(i + 1)
		if s == abbr || s == strings.ToLower(m.String()) {
			return m, true
		}
	}
	return 0, false
}

// parseDate accepts M/D, M/D/YYYY and "Month D". Dates that do not exist
// (2/30) are rejected.
func parseDate(s string, today date.Day) (date.Day, bool) {
	if m := slashDate.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return exactDate(year, month, day)
	}
	if m := textDate.FindStringSubmatch(s); m != nil {
		month, ok := parseMonth(m[1])
		if !ok {
			return date.Day{}, false
		}
		day, _ := strconv.Atoi(m[2])
		return exactDate(today.Year(), int(month), day)
	}
	return date.Day{}, false
}

func exactDate(year, month, day int) (date.Day, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return date.Day{}, false
	}
	d := date.New(year, time.Month(month), day)
	if d.Month() != time.Month(month) {
		return date.Day{}, false
	}
	return d, true
}

func dateResult(d date.Day) Result {
	return Result{
		Kind:  KindDate,
		Label: fmt.Sprintf("Go to %s %d, %d", d.Month(), d.DayOfMonth(), d.Year()),
		Date:  d,
	}
}

// weekdayResults yields the next four dates falling on the named weekday.
// A plain weekday includes today; "next <weekday>" starts after today.
func weekdayResults(s string, today date.Day) []Result {
	m := weekday.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	wd, ok := weekdayNames[m[2]]
	if !ok {
		return nil
	}

	offset := (int(wd) - int(today.Weekday()) + 7) % 7
	if offset == 0 && m[1] != "" {
		offset = 7
	}
	first := today.AddDays(offset)

	out := make([]Result, 0, weekdayCandidates)
	for i := 0; i < weekdayCandidates; i++ {
		d := first.AddDays(7 * i)
		r := dateResult(d)
		r.Label = fmt.Sprintf("Go to %s, %s %d, %d", d.Weekday(), d.Month(), d.DayOfMonth(), d.Year())
		out = append(out, r)
	}
	return out
}

type candidate struct {
	Result
	score int
}

// matchTitles finds templates whose title contains q, case-folded.
// Non-recurring templates match on their own date; recurring ones are
// expanded over the window around today.
func matchTitles(src Source, q string, today date.Day) []Result {
	fold := cases.Fold()
	needle := fold.String(q)

	from := today.AddDate(0, -WindowMonths, 0)
	to := today.AddDate(0, WindowMonths, 0)

	var cands []candidate
	add := func(t task.Template, d date.Day, completed bool) {
		cands = append(cands, candidate{
			Result: Result{
				Kind:       KindTask,
				Label:      t.Title,
				Date:       d,
				TemplateID: t.ID,
				Category:   t.Category,
				Completed:  completed,
			},
			score: score(today, d),
		})
	}

	for _, t := range src.Templates() {
		if t.Blank() || !strings.Contains(fold.String(t.Title), needle) {
			continue
		}
		if !t.Recurring() {
			add(t, t.Date, t.Completed)
			continue
		}

		for d := from; !d.After(to); d = d.AddDays(1) {
			if _, ok := recurrence.InstanceOn(t, d); !ok {
				continue
			}
			key := task.MarkerKey{TemplateID: t.ID, Date: d}
			if src.Skipped(key) {
				continue
			}
			add(t, d, src.Completed(key))
		}

		origin := task.MarkerKey{TemplateID: t.ID, Date: t.Date}
		if !t.Date.Before(from) && !t.Date.After(to) && !src.Completed(origin) && !src.Skipped(origin) {
			add(t, t.Date, false)
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		return !cands[i].Completed && cands[j].Completed
	})

	type seenKey struct {
		title string
		day   date.Day
	}
	seen := make(map[seenKey]struct{})
	var out []Result
	for _, c := range cands {
		k := seenKey{c.Label, c.Date}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c.Result)
		if len(out) == MaxResults {
			break
		}
	}
	return out
}

// score is the distance from today in days; past days weigh more.
func score(today, d date.Day) int {
	diff := date.Between(today, d)
	if diff < 0 {
		return -diff * pastPenalty
	}
	return diff
}
