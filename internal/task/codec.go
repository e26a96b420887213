package task

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/mydays/internal/date"
)

// Legacy marker ids embed the owning template id and the date:
// "<templateId>_done_<date>" and "<templateId>_skip_<date>".
const (
	legacyDoneSep = "_done_"
	legacySkipSep = "_skip_"
)

// wireRecord is the JSON shape of a Record. The legacy fields are only
// read, never written.
type wireRecord struct {
	Kind            Kind       `json:"kind,omitempty"`
	ID              string     `json:"id,omitempty"`
	TemplateID      string     `json:"templateId,omitempty"`
	Date            string     `json:"date,omitempty"`
	Title           string     `json:"title,omitempty"`
	Category        string     `json:"category,omitempty"`
	Priority        Priority   `json:"priority,omitempty"`
	Completed       bool       `json:"completed,omitempty"`
	Recurrence      Recurrence `json:"recurrence,omitempty"`
	RecurrenceEnd   string     `json:"recurrenceEnd,omitempty"`
	RecurrenceCount int        `json:"recurrenceCount,omitempty"`
	ParentID        string     `json:"parentId,omitempty"`
	ParentTitle     string     `json:"parentTitle,omitempty"`

	CompletionMarker bool   `json:"completionMarker,omitempty"`
	SkipMarker       bool   `json:"skipMarker,omitempty"`
	OriginalID       string `json:"originalId,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindTemplate:
		if r.Template == nil {
			return nil, fmt.Errorf("template record without template")
		}
		t := r.Template
		w := wireRecord{
			Kind:            KindTemplate,
			ID:              t.ID,
			Date:            t.Date.String(),
			Title:           t.Title,
			Category:        t.Category,
			Priority:        t.Priority,
			Completed:       t.Completed,
			Recurrence:      t.Recurrence,
			RecurrenceCount: t.RecurrenceCount,
			ParentID:        t.ParentID,
			ParentTitle:     t.ParentTitle,
		}
		if t.RecurrenceEnd != nil {
			w.RecurrenceEnd = t.RecurrenceEnd.String()
		}
		return json.Marshal(w)
	case KindCompletion, KindSkip:
		if r.Marker == nil {
			return nil, fmt.Errorf("%s record without marker key", r.Kind)
		}
		return json.Marshal(wireRecord{
			Kind:       r.Kind,
			TemplateID: r.Marker.TemplateID,
			Date:       r.Marker.Date.String(),
		})
	default:
		return nil, fmt.Errorf("unknown record kind %q", r.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Records without a kind are
// read in the legacy flat format and normalised.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	kind := w.Kind
	if kind == "" {
		kind, w = upgradeLegacy(w)
	}

	switch kind {
	case KindTemplate:
		t, err := w.template()
		if err != nil {
			return err
		}
		*r = Record{Kind: KindTemplate, Template: &t}
	case KindCompletion, KindSkip:
		if w.TemplateID == "" {
			return fmt.Errorf("%s marker without template id", kind)
		}
		d, err := date.Parse(w.Date)
		if err != nil {
			return fmt.Errorf("%s marker: %w", kind, err)
		}
		*r = Record{Kind: kind, Marker: &MarkerKey{TemplateID: w.TemplateID, Date: d}}
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
	return nil
}

func (w wireRecord) template() (Template, error) {
	if w.ID == "" {
		return Template{}, fmt.Errorf("template without id")
	}
	d, err := date.Parse(w.Date)
	if err != nil {
		return Template{}, fmt.Errorf("template %s: %w", w.ID, err)
	}
	rec := w.Recurrence
	if rec == "none" {
		rec = RecurrenceNone
	}
	if !rec.Valid() {
		return Template{}, fmt.Errorf("template %s: unknown recurrence %q", w.ID, rec)
	}
	t := Template{
		ID:              w.ID,
		Date:            d,
		Title:           w.Title,
		Category:        w.Category,
		Priority:        w.Priority,
		Completed:       w.Completed,
		Recurrence:      rec,
		RecurrenceCount: w.RecurrenceCount,
		ParentID:        w.ParentID,
		ParentTitle:     w.ParentTitle,
	}
	if t.Priority == "" {
		t.Priority = PriorityNone
	}
	if w.RecurrenceEnd != "" {
		end, err := date.Parse(w.RecurrenceEnd)
		if err != nil {
			return Template{}, fmt.Errorf("template %s: recurrence end: %w", w.ID, err)
		}
		t.RecurrenceEnd = &end
	}
	return t, nil
}

// upgradeLegacy maps a kind-less record onto the tagged form. Marker ids
// of the form "<templateId>_done_<date>" are split on the last separator
// so template ids containing underscores survive.
func upgradeLegacy(w wireRecord) (Kind, wireRecord) {
	switch {
	case w.CompletionMarker:
		if i := strings.LastIndex(w.ID, legacyDoneSep); i > 0 {
			w.TemplateID = w.ID[:i]
			w.Date = w.ID[i+len(legacyDoneSep):]
		}
		return KindCompletion, w
	case w.SkipMarker:
		w.TemplateID = w.OriginalID
		if i := strings.LastIndex(w.ID, legacySkipSep); i > 0 {
			if w.TemplateID == "" {
				w.TemplateID = w.ID[:i]
			}
			if w.Date == "" {
				w.Date = w.ID[i+len(legacySkipSep):]
			}
		}
		return KindSkip, w
	default:
		return KindTemplate, w
	}
}

// Records is the tasks collection as stored. Decoding skips records that
// cannot be read instead of failing the whole collection.
type Records []Record

// UnmarshalJSON implements json.Unmarshaler.
func (rs *Records) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Records, 0, len(raw))
	for i, item := range raw {
		var r Record
		if err := json.Unmarshal(item, &r); err != nil {
			slog.Warn("dropping unreadable task record", "index", i, "error", err)
			continue
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}
