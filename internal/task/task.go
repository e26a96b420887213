// Package task defines the task records stored in the single tasks
// collection: templates (ordinary or recurring tasks, including subtasks)
// and the completion and skip markers keyed to one occurrence of a
// recurring template.
package task

import (
	"fmt"
	"strings"

	"github.com/roach88/mydays/internal/date"
)

// Priority of a task.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority. The empty value is
// accepted and treated as PriorityNone.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Recurrence is the repeat rule of a template. The empty value means the
// template does not recur.
type Recurrence string

const (
	RecurrenceNone     Recurrence = ""
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
	RecurrenceYearly   Recurrence = "yearly"
)

// ParseRecurrence accepts the rule names plus "none".
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	if r == "none" {
		return RecurrenceNone, nil
	}
	if !r.Valid() {
		return "", fmt.Errorf("unknown recurrence %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known rule (or none).
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly,
		RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Template is the persisted base record of a task.
//
// Completed is only meaningful for non-recurring templates; completion of a
// recurring occurrence is recorded with a completion marker.
type Template struct {
	ID              string
	Date            date.Day
	Title           string
	Category        string
	Priority        Priority
	Completed       bool
	Recurrence      Recurrence
	RecurrenceEnd   *date.Day
	RecurrenceCount int
	ParentID        string
	ParentTitle     string
}

// Recurring reports whether the template repeats.
func (t Template) Recurring() bool {
	return t.Recurrence != RecurrenceNone
}

// IsSubtask reports whether the template belongs to a parent template.
func (t Template) IsSubtask() bool {
	return t.ParentID != ""
}

// Blank reports whether the title is empty or whitespace only.
func (t Template) Blank() bool {
	return strings.TrimSpace(t.Title) == ""
}

// Clone returns a copy that shares no pointers with t.
func (t Template) Clone() Template {
	c := t
	if t.RecurrenceEnd != nil {
		end := *t.RecurrenceEnd
		c.RecurrenceEnd = &end
	}
	return c
}

// MarkerKey addresses one occurrence of a recurring template.
type MarkerKey struct {
	TemplateID string
	Date       date.Day
}

func (k MarkerKey) String() string {
	return k.TemplateID + "@" + k.Date.String()
}

// Kind tags a record in the collection.
type Kind string

const (
	KindTemplate   Kind = "template"
	KindCompletion Kind = "done"
	KindSkip       Kind = "skip"
)

// Record is one element of the tasks collection: exactly one of Template
// or Marker is set, according to Kind.
type Record struct {
	Kind     Kind
	Template *Template
	Marker   *MarkerKey
}

// TemplateRecord wraps a template.
func TemplateRecord(t Template) Record {
	c := t.Clone()
	return Record{Kind: KindTemplate, Template: &c}
}

// CompletionRecord wraps a completion marker.
func CompletionRecord(k MarkerKey) Record {
	return Record{Kind: KindCompletion, Marker: &k}
}

// SkipRecord wraps a skip marker.
func SkipRecord(k MarkerKey) Record {
	return Record{Kind: KindSkip, Marker: &k}
}
