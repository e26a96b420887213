package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/task"
	"github.com/roach88/mydays/internal/testutil"
)

var start = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func openTestState(t *testing.T, kv *testutil.MemoryKV, opts ...Option) (*State, *testutil.ManualClock) {
	t.Helper()
	clk := testutil.NewManualClock(start)
	opts = append([]Option{WithClock(clk)}, opts...)
	s := Open(context.Background(), kv, opts...)
	t.Cleanup(s.Close)
	return s, clk
}

func addTask(t *testing.T, s *State, title string) string {
	t.Helper()
	var id string
	err := s.Edit(context.Background(), func(p *planner.Planner) (bool, error) {
		var err error
		id, err = p.Create(planner.Draft{Date: date.MustParse("2025-01-01"), Title: title})
		return err == nil, err
	})
	require.NoError(t, err)
	return id
}

func TestOpen_Defaults(t *testing.T) {
	s, _ := openTestState(t, testutil.NewMemoryKV())

	got := s.Settings()
	assert.Equal(t, "sunset", got.Theme)
	assert.Equal(t, "chime", got.Sound)
	assert.Equal(t, "week", got.View)
	require.Len(t, got.Categories, 4)
	assert.Equal(t, "Personal", got.Categories[0].Name)
	assert.NotNil(t, got.CustomThemes)
	assert.NotNil(t, got.CategoryColors)
	assert.Zero(t, s.Revision())
}

func TestOpen_CorruptValuesFallBack(t *testing.T) {
	kv := testutil.NewMemoryKV()
	kv.Put(KeyTheme, `"forest"`)
	kv.Put(KeySound, `{not json`)
	kv.Put(KeyTasks, `[{"kind":"template","id":"a","date":"2025-01-01","title":"Keep"},{"kind":"bogus"}]`)

	s, _ := openTestState(t, kv)

	got := s.Settings()
	assert.Equal(t, "forest", got.Theme)
	assert.Equal(t, "chime", got.Sound)
	s.View(func(p *planner.Planner) {
		assert.Len(t, p.Templates(), 1)
	})
}

func TestEdit_PersistsAndNotifies(t *testing.T) {
	kv := testutil.NewMemoryKV()
	s, _ := openTestState(t, kv)

	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) { changes = append(changes, c) })

	addTask(t, s, "Dentist")

	require.Len(t, changes, 1)
	assert.Equal(t, int64(1), changes[0].Revision)
	assert.False(t, changes[0].Remote)
	assert.Contains(t, kv.Raw(KeyTasks), `"Dentist"`)

	reopened, _ := openTestState(t, kv)
	reopened.View(func(p *planner.Planner) {
		require.Len(t, p.Templates(), 1)
		assert.Equal(t, "Dentist", p.Templates()[0].Title)
	})

	unsubscribe()
	addTask(t, s, "Gym")
	assert.Len(t, changes, 1)
}

func TestEdit_NoChangeNoRevision(t *testing.T) {
	kv := testutil.NewMemoryKV()
	s, _ := openTestState(t, kv)

	err := s.Edit(context.Background(), func(p *planner.Planner) (bool, error) {
		return p.DeleteOccurrence(planner.Ref{TemplateID: "missing"}, planner.ScopeThis), nil
	})
	require.NoError(t, err)
	assert.Zero(t, s.Revision())
	assert.Zero(t, kv.Sets(KeyTasks))
}

func TestEdit_ValidationErrorPropagates(t *testing.T) {
	s, _ := openTestState(t, testutil.NewMemoryKV())

	err := s.Edit(context.Background(), func(p *planner.Planner) (bool, error) {
		_, err := p.Create(planner.Draft{Date: date.MustParse("2025-01-01"), Title: " "})
		return err == nil, err
	})
	assert.True(t, planner.IsValidation(err))
	assert.Zero(t, s.Revision())
}

func TestEdit_WriteFailureKeepsMemoryState(t *testing.T) {
	kv := testutil.NewMemoryKV()
	kv.FailWrites = true
	s, _ := openTestState(t, kv)

	addTask(t, s, "Offline")

	s.View(func(p *planner.Planner) {
		assert.Len(t, p.Templates(), 1)
	})
	assert.Empty(t, kv.Raw(KeyTasks))
}

func TestReload_PicksUpWritesFromAnotherProcess(t *testing.T) {
	kv := testutil.NewMemoryKV()
	s, _ := openTestState(t, kv)
	other, _ := openTestState(t, kv)

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	assert.False(t, s.Reload(context.Background()), "nothing written yet")

	addTask(t, other, "From the other process")
	other.SetTheme(context.Background(), "forest")

	require.True(t, s.Reload(context.Background()))
	s.View(func(p *planner.Planner) {
		require.Len(t, p.Templates(), 1)
		assert.Equal(t, "From the other process", p.Templates()[0].Title)
	})
	assert.Equal(t, "forest", s.Settings().Theme)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Remote)

	before, _ := s.Fingerprint()
	after, _ := other.Fingerprint()
	assert.Equal(t, after, before)

	assert.False(t, s.Reload(context.Background()), "second reload is a no-op")
	assert.Len(t, changes, 1)
}

func TestReload_SkippedAfterWriteFailure(t *testing.T) {
	kv := testutil.NewMemoryKV()
	s, _ := openTestState(t, kv)

	kv.FailWrites = true
	addTask(t, s, "Not persisted")
	kv.FailWrites = false

	assert.False(t, s.Reload(context.Background()))
	s.View(func(p *planner.Planner) {
		assert.Len(t, p.Templates(), 1, "memory stays ahead of the store")
	})
}

func TestApply_OverwritesOnlyPresentFields(t *testing.T) {
	kv := testutil.NewMemoryKV()
	s, _ := openTestState(t, kv)
	addTask(t, s, "Local")

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	s.Apply(context.Background(), Document{
		Theme:          ptr("ocean"),
		CategoryColors: &map[string]string{"Home": "#000000"},
	})

	got := s.Settings()
	assert.Equal(t, "ocean", got.Theme)
	assert.Equal(t, "chime", got.Sound)
	assert.Equal(t, map[string]string{"Home": "#000000"}, got.CategoryColors)
	s.View(func(p *planner.Planner) {
		assert.Len(t, p.Templates(), 1, "absent tasks field leaves tasks alone")
	})
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Remote)
	assert.Equal(t, `"ocean"`, kv.Raw(KeyTheme))

	s.Apply(context.Background(), Document{})
	assert.Len(t, changes, 1, "empty document is a no-op")
}

func TestApply_EmptyTaskListClears(t *testing.T) {
	s, _ := openTestState(t, testutil.NewMemoryKV())
	addTask(t, s, "Old")

	s.Apply(context.Background(), Document{Tasks: &task.Records{}})

	s.View(func(p *planner.Planner) {
		assert.Empty(t, p.Templates())
	})
}

func TestSnapshot_CarriesEveryField(t *testing.T) {
	s, _ := openTestState(t, testutil.NewMemoryKV())

	doc := s.Snapshot()
	assert.NotNil(t, doc.Theme)
	assert.NotNil(t, doc.Sound)
	assert.NotNil(t, doc.View)
	require.NotNil(t, doc.Tasks)
	assert.NotNil(t, *doc.Tasks, "empty collection encodes as []")
	assert.NotNil(t, doc.Categories)
	assert.NotNil(t, doc.CustomThemes)
	assert.NotNil(t, doc.CategoryColors)

	data, err := MarshalCanonical(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tasks":[]`)
}

func TestFingerprint_TracksContent(t *testing.T) {
	s, _ := openTestState(t, testutil.NewMemoryKV())

	fp0, rev0 := s.Fingerprint()
	again, _ := s.Fingerprint()
	assert.Equal(t, fp0, again)
	assert.Zero(t, rev0)

	s.SetTheme(context.Background(), "forest")
	fp1, rev1 := s.Fingerprint()
	assert.NotEqual(t, fp0, fp1)
	assert.Equal(t, int64(1), rev1)

	s.SetTheme(context.Background(), "sunset")
	fp2, rev2 := s.Fingerprint()
	assert.Equal(t, fp0, fp2, "same content, same fingerprint")
	assert.Equal(t, int64(2), rev2)

	snap, err := FingerprintOf(s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, fp2, snap)
}

func TestFingerprint_NormalisesUnicode(t *testing.T) {
	composed := Document{Theme: ptr("caf\u00e9")}
	decomposed := Document{Theme: ptr("cafe\u0301")}

	a, err := FingerprintOf(composed)
	require.NoError(t, err)
	b, err := FingerprintOf(decomposed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(Document{View: ptr("<week & month>")})
	require.NoError(t, err)
	assert.Equal(t, `{"view":"<week & month>"}`, string(data))
}

func TestFingerprint_TextRoundTrip(t *testing.T) {
	fp, err := FingerprintOf(Document{Sound: ptr("coin")})
	require.NoError(t, err)

	text, err := fp.MarshalText()
	require.NoError(t, err)
	var back Fingerprint
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, fp, back)
	assert.Len(t, fp.Short(), 12)

	assert.Error(t, back.UnmarshalText([]byte("abcd")))
	require.NoError(t, back.UnmarshalText(nil))
	assert.True(t, back.IsZero())
}

func TestSyncMeta_RoundTrip(t *testing.T) {
	kv := testutil.NewMemoryKV()
	s, _ := openTestState(t, kv)

	assert.Equal(t, SyncMeta{}, s.SyncMeta(context.Background()))

	fp, _ := s.Fingerprint()
	want := SyncMeta{Baseline: fp, Remote: fp, PendingPush: true}
	s.SaveSyncMeta(context.Background(), want)

	reopened, _ := openTestState(t, kv)
	assert.Equal(t, want, reopened.SyncMeta(context.Background()))
	assert.Zero(t, s.Revision(), "metadata is not part of the document")
}

func TestCleanup_PrunesBlankAfterIdleDelay(t *testing.T) {
	s, clk := openTestState(t, testutil.NewMemoryKV())

	blank := task.Template{ID: "draft", Date: date.MustParse("2025-01-01"), Title: "  "}
	s.Apply(context.Background(), Document{Tasks: &task.Records{
		task.TemplateRecord(blank),
	}})
	addTask(t, s, "Another")

	clk.Advance(2 * time.Second)
	s.View(func(p *planner.Planner) { assert.Len(t, p.Templates(), 2) })

	addTask(t, s, "Resets the timer")
	clk.Advance(2 * time.Second)
	s.View(func(p *planner.Planner) { assert.Len(t, p.Templates(), 3) })

	clk.Advance(time.Second)
	s.View(func(p *planner.Planner) {
		assert.Len(t, p.Templates(), 2)
		_, ok := p.Template("draft")
		assert.False(t, ok)
	})
}

func TestCleanup_Disabled(t *testing.T) {
	s, clk := openTestState(t, testutil.NewMemoryKV(), WithCleanupDelay(0))

	s.Apply(context.Background(), Document{Tasks: &task.Records{
		task.TemplateRecord(task.Template{ID: "draft", Date: date.MustParse("2025-01-01")}),
	}})
	clk.Advance(time.Hour)

	s.View(func(p *planner.Planner) { assert.Len(t, p.Templates(), 1) })
	assert.Zero(t, clk.Pending())
}
