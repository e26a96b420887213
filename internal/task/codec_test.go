package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mydays/internal/date"
)

func TestRecord_TemplateJSON(t *testing.T) {
	end := date.MustParse("2025-03-01")
	rec := TemplateRecord(Template{
		ID:            "t1",
		Date:          date.MustParse("2025-01-01"),
		Title:         "Gym",
		Category:      "Health",
		Priority:      PriorityHigh,
		Recurrence:    RecurrenceWeekly,
		RecurrenceEnd: &end,
	})

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "template",
		"id": "t1",
		"date": "2025-01-01",
		"title": "Gym",
		"category": "Health",
		"priority": "high",
		"recurrence": "weekly",
		"recurrenceEnd": "2025-03-01"
	}`, string(b))

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, KindTemplate, back.Kind)
	assert.Equal(t, rec.Template.Title, back.Template.Title)
	assert.Equal(t, "2025-03-01", back.Template.RecurrenceEnd.String())
}

func TestRecord_MarkerJSON(t *testing.T) {
	rec := SkipRecord(MarkerKey{TemplateID: "t1", Date: date.MustParse("2025-01-08")})

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"skip","templateId":"t1","date":"2025-01-08"}`, string(b))
}

func TestRecord_LegacyCompletionMarker(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"id":"lx9k_a1_done_2025-01-08","completionMarker":true}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, KindCompletion, rec.Kind)
	assert.Equal(t, "lx9k_a1", rec.Marker.TemplateID)
	assert.Equal(t, "2025-01-08", rec.Marker.Date.String())
}

func TestRecord_LegacySkipMarker(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"id":"t1_skip_2025-01-08","skipMarker":true,"originalId":"t1","date":"2025-01-08"}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, KindSkip, rec.Kind)
	assert.Equal(t, MarkerKey{TemplateID: "t1", Date: date.MustParse("2025-01-08")}, *rec.Marker)
}

func TestRecord_LegacyTemplateWithNulls(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{
		"id": "abc",
		"date": "2025-02-01",
		"title": "Dentist",
		"priority": "none",
		"recurrence": null,
		"recurrenceEnd": null,
		"completed": false
	}`), &rec)
	require.NoError(t, err)

	require.Equal(t, KindTemplate, rec.Kind)
	assert.False(t, rec.Template.Recurring())
	assert.Nil(t, rec.Template.RecurrenceEnd)
}

func TestRecords_SkipsUnreadable(t *testing.T) {
	var rs Records
	err := json.Unmarshal([]byte(`[
		{"kind":"template","id":"a","date":"2025-01-01","title":"ok"},
		{"kind":"template","id":"b","date":"not-a-date","title":"bad"},
		{"kind":"done","date":"2025-01-02"},
		{"kind":"done","templateId":"a","date":"2025-01-02"}
	]`), &rs)
	require.NoError(t, err)

	require.Len(t, rs, 2)
	assert.Equal(t, KindTemplate, rs[0].Kind)
	assert.Equal(t, KindCompletion, rs[1].Kind)
}

func TestParseRecurrence(t *testing.T) {
	r, err := ParseRecurrence("Weekly")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceWeekly, r)

	r, err = ParseRecurrence("none")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceNone, r)

	_, err = ParseRecurrence("fortnightly")
	assert.Error(t, err)
}
