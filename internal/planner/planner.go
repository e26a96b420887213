// Package planner is the in-memory task store model: the flat collection
// of templates, completion markers and skip markers, with the queries and
// mutations the calendar performs on it.
//
// All operations are synchronous and local. Operations addressed at an
// unknown template are no-ops that report false; a Planner is not safe for
// concurrent use (internal/state serialises access).
package planner

import (
	"sort"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/recurrence"
	"github.com/roach88/mydays/internal/task"
)

// Celebrator is told when an occurrence becomes complete.
type Celebrator interface {
	Celebrate(o Occurrence)
}

// Planner holds the task collection.
//
// INVARIANTS:
//   - template ids are unique
//   - at most one completion and one skip marker per (template, date)
//   - markers and subtasks of a deleted template are deleted with it
type Planner struct {
	templates []task.Template
	done      map[task.MarkerKey]struct{}
	skips     map[task.MarkerKey]struct{}

	ids        IDGenerator
	celebrator Celebrator
}

// Option configures a Planner.
type Option func(*Planner)

// WithIDGenerator overrides the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Planner) { p.ids = g }
}

// WithCelebrator sets the completion side effect.
func WithCelebrator(c Celebrator) Option {
	return func(p *Planner) { p.celebrator = c }
}

// New builds a Planner from stored records. Duplicate template ids keep the
// first record; duplicate markers collapse.
func New(records task.Records, opts ...Option) *Planner {
	p := &Planner{
		ids: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Load(records)
	return p
}

// Load replaces the whole collection.
func (p *Planner) Load(records task.Records) {
	p.templates = p.templates[:0]
	p.done = make(map[task.MarkerKey]struct{})
	p.skips = make(map[task.MarkerKey]struct{})

	seen := make(map[string]bool)
	for _, r := range records {
		switch r.Kind {
		case task.KindTemplate:
			if r.Template == nil || seen[r.Template.ID] {
				continue
			}
			seen[r.Template.ID] = true
			p.templates = append(p.templates, r.Template.Clone())
		case task.KindCompletion:
			if r.Marker != nil {
				p.done[*r.Marker] = struct{}{}
			}
		case task.KindSkip:
			if r.Marker != nil {
				p.skips[*r.Marker] = struct{}{}
			}
		}
	}
}

// Records returns the collection in storage order: templates in insertion
// order, then completion markers, then skip markers, each marker group
// sorted by (template id, date) so equal collections encode identically.
func (p *Planner) Records() task.Records {
	out := make(task.Records, 0, len(p.templates)+len(p.done)+len(p.skips))
	for _, t := range p.templates {
		out = append(out, task.TemplateRecord(t))
	}
	for _, k := range sortedKeys(p.done) {
		out = append(out, task.CompletionRecord(k))
	}
	for _, k := range sortedKeys(p.skips) {
		out = append(out, task.SkipRecord(k))
	}
	return out
}

func sortedKeys(set map[task.MarkerKey]struct{}) []task.MarkerKey {
	keys := make([]task.MarkerKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TemplateID != keys[j].TemplateID {
			return keys[i].TemplateID < keys[j].TemplateID
		}
		return keys[i].Date.Before(keys[j].Date)
	})
	return keys
}

// Templates returns copies of all templates in insertion order.
func (p *Planner) Templates() []task.Template {
	out := make([]task.Template, len(p.templates))
	for i, t := range p.templates {
		out[i] = t.Clone()
	}
	return out
}

// Template returns the template with the given id.
func (p *Planner) Template(id string) (task.Template, bool) {
	i := p.index(id)
	if i < 0 {
		return task.Template{}, false
	}
	return p.templates[i].Clone(), true
}

// Completed reports whether a completion marker exists for k.
func (p *Planner) Completed(k task.MarkerKey) bool {
	_, ok := p.done[k]
	return ok
}

// Skipped reports whether a skip marker exists for k.
func (p *Planner) Skipped(k task.MarkerKey) bool {
	_, ok := p.skips[k]
	return ok
}

// MarkerCount returns the number of completion and skip markers.
func (p *Planner) MarkerCount() (done, skipped int) {
	return len(p.done), len(p.skips)
}

func (p *Planner) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range p.templates {
		if p.templates[i].ID == id {
			return i
		}
	}
	return -1
}

// Ref addresses one occurrence: the owning template and the day. A zero
// Date means the template's own date.
type Ref struct {
	TemplateID string
	Date       date.Day
}

// Occurrence is one entry of a day: a template dated that day or an
// instance of a recurring template, with completion overlaid.
type Occurrence struct {
	task.Template

	// OriginalID is the owning template id; equal to ID for templates.
	OriginalID string

	// Instance marks a transient recurrence instance.
	Instance bool

	// Subtasks holds child occurrences regrouped under this parent.
	Subtasks []Occurrence
}

// Ref returns the address of o.
func (o Occurrence) Ref() Ref {
	return Ref{TemplateID: o.OriginalID, Date: o.Date}
}

// OccurrencesOn returns everything scheduled on d: templates dated d and
// instances of recurring templates, minus skipped occurrences, with
// completion markers applied. Subtasks whose parent occurs the same day
// are moved under it; a subtask whose parent has no occurrence on d stays
// at the top level.
func (p *Planner) OccurrencesOn(d date.Day) []Occurrence {
	var flat []Occurrence

	for _, t := range p.templates {
		if t.Date != d {
			continue
		}
		o := Occurrence{Template: t.Clone(), OriginalID: t.ID}
		if t.Recurring() {
			key := task.MarkerKey{TemplateID: t.ID, Date: d}
			if p.Skipped(key) {
				continue
			}
			o.Completed = p.Completed(key)
		}
		flat = append(flat, o)
	}

	for _, t := range p.templates {
		inst, ok := recurrence.InstanceOn(t, d)
		if !ok {
			continue
		}
		key := task.MarkerKey{TemplateID: t.ID, Date: d}
		if p.Skipped(key) {
			continue
		}
		o := Occurrence{Template: inst.Template, OriginalID: inst.OriginalID, Instance: true}
		o.Completed = p.Completed(key)
		flat = append(flat, o)
	}

	return groupSubtasks(flat)
}

func groupSubtasks(flat []Occurrence) []Occurrence {
	parents := make(map[string]int)
	var top []Occurrence
	for _, o := range flat {
		if o.IsSubtask() {
			continue
		}
		parents[o.OriginalID] = len(top)
		top = append(top, o)
	}

	// Orphans follow the top-level entries.
	out := make([]Occurrence, 0, len(flat))
	var orphans []Occurrence
	for _, o := range flat {
		if !o.IsSubtask() {
			continue
		}
		if i, ok := parents[o.ParentID]; ok {
			top[i].Subtasks = append(top[i].Subtasks, o)
			continue
		}
		orphans = append(orphans, o)
	}
	out = append(out, top...)
	return append(out, orphans...)
}

// occurrenceAt materialises the occurrence of t on d without the skip
// filter. It returns false if t has no occurrence on d.
func (p *Planner) occurrenceAt(t task.Template, d date.Day) (Occurrence, bool) {
	if d.IsZero() || d == t.Date {
		o := Occurrence{Template: t.Clone(), OriginalID: t.ID}
		if t.Recurring() {
			o.Completed = p.Completed(task.MarkerKey{TemplateID: t.ID, Date: t.Date})
		}
		return o, true
	}
	inst, ok := recurrence.InstanceOn(t, d)
	if !ok {
		return Occurrence{}, false
	}
	o := Occurrence{Template: inst.Template, OriginalID: t.ID, Instance: true}
	o.Completed = p.Completed(task.MarkerKey{TemplateID: t.ID, Date: d})
	return o, true
}
