package planner

import (
	"strings"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/recurrence"
	"github.com/roach88/mydays/internal/task"
)

// SubtaskDraft describes a subtask in a create or update. ID is empty for
// new subtasks. A zero Date means the parent's date.
type SubtaskDraft struct {
	ID    string
	Title string
	Date  date.Day
}

// Draft is the input of Create.
type Draft struct {
	Date          date.Day
	Title         string
	Category      string
	Priority      task.Priority
	Recurrence    task.Recurrence
	RecurrenceEnd *date.Day

	// RecurrenceCount, when positive, limits a recurring series to that
	// many occurrences and overrides RecurrenceEnd.
	RecurrenceCount int

	Subtasks []SubtaskDraft
}

// Scope selects what DeleteOccurrence removes.
type Scope int

const (
	// ScopeThis suppresses one occurrence of a series.
	ScopeThis Scope = iota
	// ScopeFuture removes an occurrence and everything after it.
	ScopeFuture
)

func (s Scope) String() string {
	if s == ScopeFuture {
		return "future"
	}
	return "this"
}

// Create validates the draft, stores a new template with a fresh id and
// creates one subtask record per subtask draft. It returns the new id.
func (p *Planner) Create(d Draft) (string, error) {
	t := task.Template{
		Date:            d.Date,
		Title:           strings.TrimSpace(d.Title),
		Category:        d.Category,
		Priority:        d.Priority,
		Recurrence:      d.Recurrence,
		RecurrenceEnd:   d.RecurrenceEnd,
		RecurrenceCount: d.RecurrenceCount,
	}
	if err := normalise(&t); err != nil {
		return "", err
	}

	t.ID = p.ids.Generate()
	p.templates = append(p.templates, t.Clone())
	for _, sd := range d.Subtasks {
		p.addSubtask(t, sd)
	}
	return t.ID, nil
}

// PatchFor returns the current template and its subtasks in the shape
// Update expects, for callers that edit a few fields.
func (p *Planner) PatchFor(id string) (task.Template, []SubtaskDraft, bool) {
	t, ok := p.Template(id)
	if !ok {
		return task.Template{}, nil, false
	}
	var subs []SubtaskDraft
	for _, c := range p.templates {
		if c.ParentID == id {
			subs = append(subs, SubtaskDraft{ID: c.ID, Title: c.Title, Date: c.Date})
		}
	}
	return t, subs, true
}

// Update replaces the template with the same id wholesale and reconciles
// its subtask records against subtasks by id: children missing from the
// list are removed, retained ones get the listed title and date and the new
// parent title, and entries without a known id are created. It reports
// false for an unknown id.
func (p *Planner) Update(t task.Template, subtasks []SubtaskDraft) (bool, error) {
	i := p.index(t.ID)
	if i < 0 {
		return false, nil
	}
	t = t.Clone()
	t.Title = strings.TrimSpace(t.Title)
	if err := normalise(&t); err != nil {
		return false, err
	}
	p.templates[i] = t

	desired := make(map[string]SubtaskDraft, len(subtasks))
	for _, sd := range subtasks {
		if sd.ID != "" {
			desired[sd.ID] = sd
		}
	}

	existing := make(map[string]bool)
	kept := p.templates[:0]
	for _, c := range p.templates {
		if c.ParentID != t.ID {
			kept = append(kept, c)
			continue
		}
		sd, ok := desired[c.ID]
		if !ok || strings.TrimSpace(sd.Title) == "" {
			p.dropMarkers(c.ID)
			continue
		}
		existing[c.ID] = true
		c.Title = strings.TrimSpace(sd.Title)
		c.Date = subtaskDate(t, sd)
		c.ParentTitle = t.Title
		kept = append(kept, c)
	}
	p.templates = kept

	for _, sd := range subtasks {
		if sd.ID != "" && existing[sd.ID] {
			continue
		}
		p.addSubtask(t, sd)
	}
	return true, nil
}

func (p *Planner) addSubtask(parent task.Template, sd SubtaskDraft) {
	title := strings.TrimSpace(sd.Title)
	if title == "" {
		return
	}
	p.templates = append(p.templates, task.Template{
		ID:          p.ids.Generate(),
		Date:        subtaskDate(parent, sd),
		Title:       title,
		Category:    parent.Category,
		Priority:    task.PriorityLow,
		ParentID:    parent.ID,
		ParentTitle: parent.Title,
	})
}

func subtaskDate(parent task.Template, sd SubtaskDraft) date.Day {
	if sd.Date.IsZero() {
		return parent.Date
	}
	return sd.Date
}

// normalise validates t in place and derives the series end from a
// recurrence count.
func normalise(t *task.Template) error {
	if t.Title == "" {
		return invalid("title", "must not be blank")
	}
	if t.Date.IsZero() {
		return invalid("date", "is required")
	}
	if !t.Priority.Valid() {
		return invalid("priority", "unknown priority %q", t.Priority)
	}
	if t.Priority == "" {
		t.Priority = task.PriorityNone
	}
	if !t.Recurrence.Valid() {
		return invalid("recurrence", "unknown recurrence %q", t.Recurrence)
	}

	if !t.Recurring() {
		t.RecurrenceEnd = nil
		t.RecurrenceCount = 0
		return nil
	}
	t.Completed = false
	if t.RecurrenceCount > 0 {
		t.RecurrenceCount = recurrence.ClampCount(t.RecurrenceCount)
		end := recurrence.EndAfter(t.Recurrence, t.Date, t.RecurrenceCount)
		t.RecurrenceEnd = &end
	}
	if t.RecurrenceEnd != nil && t.RecurrenceEnd.Before(t.Date) {
		return invalid("recurrenceEnd", "%s is before %s", t.RecurrenceEnd, t.Date)
	}
	return nil
}

// ToggleCompletion flips the completion of the occurrence at ref. For a
// recurring template this creates or removes the completion marker; for an
// ordinary template it flips Completed. The Celebrator runs when the
// occurrence becomes complete. It returns the occurrence after the change
// and false if ref does not address an occurrence.
func (p *Planner) ToggleCompletion(ref Ref) (Occurrence, bool) {
	i := p.index(ref.TemplateID)
	if i < 0 {
		return Occurrence{}, false
	}
	t := &p.templates[i]

	if !t.Recurring() {
		t.Completed = !t.Completed
		o, _ := p.occurrenceAt(*t, date.Day{})
		p.celebrate(o)
		return o, true
	}

	day := ref.Date
	if day.IsZero() {
		day = t.Date
	}
	if _, ok := p.occurrenceAt(*t, day); !ok {
		return Occurrence{}, false
	}
	key := task.MarkerKey{TemplateID: t.ID, Date: day}
	if p.Completed(key) {
		delete(p.done, key)
	} else {
		p.done[key] = struct{}{}
	}
	o, _ := p.occurrenceAt(*t, day)
	p.celebrate(o)
	return o, true
}

func (p *Planner) celebrate(o Occurrence) {
	if o.Completed && p.celebrator != nil {
		p.celebrator.Celebrate(o)
	}
}

// DeleteOccurrence removes the occurrence at ref.
//
// ScopeThis on a recurring template records a skip marker for the day
// (idempotent). ScopeFuture from a day after the origin ends the series the
// day before and purges markers on or after that day; from the origin it
// deletes the whole series. Non-recurring templates are always deleted
// whole, with their subtasks. It reports whether anything changed.
func (p *Planner) DeleteOccurrence(ref Ref, scope Scope) bool {
	i := p.index(ref.TemplateID)
	if i < 0 {
		return false
	}
	t := p.templates[i]
	day := ref.Date
	if day.IsZero() {
		day = t.Date
	}

	if !t.Recurring() {
		p.deleteSeries(t.ID)
		return true
	}

	switch scope {
	case ScopeThis:
		if _, ok := p.occurrenceAt(t, day); !ok {
			return false
		}
		key := task.MarkerKey{TemplateID: t.ID, Date: day}
		if p.Skipped(key) {
			return false
		}
		p.skips[key] = struct{}{}
		return true

	case ScopeFuture:
		if !day.After(t.Date) {
			p.deleteSeries(t.ID)
			return true
		}
		end := day.AddDays(-1)
		if t.RecurrenceEnd == nil || end.Before(*t.RecurrenceEnd) {
			// The end date now bounds the series; a count would recompute it
			// on the next update.
			p.templates[i].RecurrenceEnd = &end
			p.templates[i].RecurrenceCount = 0
		}
		p.dropMarkersFrom(t.ID, day)
		return true
	}
	return false
}

// deleteSeries removes a template, its subtasks and every marker keyed to
// any of them.
func (p *Planner) deleteSeries(id string) {
	kept := p.templates[:0]
	for _, t := range p.templates {
		if t.ID == id || t.ParentID == id {
			p.dropMarkers(t.ID)
			continue
		}
		kept = append(kept, t)
	}
	p.templates = kept
}

func (p *Planner) dropMarkers(id string) {
	p.dropMarkersFrom(id, date.Day{})
}

// dropMarkersFrom removes markers of id dated on or after from. A zero
// from removes all of them.
func (p *Planner) dropMarkersFrom(id string, from date.Day) {
	for _, set := range []map[task.MarkerKey]struct{}{p.done, p.skips} {
		for k := range set {
			if k.TemplateID == id && (from.IsZero() || !k.Date.Before(from)) {
				delete(set, k)
			}
		}
	}
}

// ShiftSeries moves the template at ref by delta days. A recurring series
// moves its origin and end and loses all of its markers, because markers
// are keyed by absolute date. A non-recurring template carries its
// subtasks along.
func (p *Planner) ShiftSeries(ref Ref, delta int) bool {
	i := p.index(ref.TemplateID)
	if i < 0 || delta == 0 {
		return false
	}
	t := &p.templates[i]
	t.Date = t.Date.AddDays(delta)
	if t.RecurrenceEnd != nil {
		end := t.RecurrenceEnd.AddDays(delta)
		t.RecurrenceEnd = &end
	}

	if t.Recurring() {
		p.dropMarkers(t.ID)
		return true
	}
	for j := range p.templates {
		if p.templates[j].ParentID == t.ID {
			p.templates[j].Date = p.templates[j].Date.AddDays(delta)
		}
	}
	return true
}

// MoveOccurrence shifts the series owning ref so that the occurrence at
// ref lands on to.
func (p *Planner) MoveOccurrence(ref Ref, to date.Day) bool {
	t, ok := p.Template(ref.TemplateID)
	if !ok {
		return false
	}
	from := ref.Date
	if from.IsZero() {
		from = t.Date
	}
	return p.ShiftSeries(ref, date.Between(from, to))
}

// PruneBlank removes templates whose title is blank, treating them as
// abandoned drafts, along with their subtasks and markers. It returns the
// number of templates removed.
func (p *Planner) PruneBlank() int {
	var blank []string
	for _, t := range p.templates {
		if t.Blank() {
			blank = append(blank, t.ID)
		}
	}
	before := len(p.templates)
	for _, id := range blank {
		p.deleteSeries(id)
	}
	return before - len(p.templates)
}
