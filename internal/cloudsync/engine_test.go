package cloudsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/remote"
	"github.com/roach88/mydays/internal/state"
	"github.com/roach88/mydays/internal/task"
	"github.com/roach88/mydays/internal/testutil"
)

const user = "u1"

var epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// hookRemote runs onFetch inside Fetch, after the remote answered and
// before the answer is returned, to model a request in flight.
type hookRemote struct {
	remote.Remote
	onFetch func()
}

func (h *hookRemote) Fetch(ctx context.Context, id string) (remote.Row, error) {
	row, err := h.Remote.Fetch(ctx, id)
	if h.onFetch != nil {
		h.onFetch()
	}
	return row, err
}

type harness struct {
	t   *testing.T
	ctx context.Context
	clk *testutil.ManualClock
	kv  *testutil.MemoryKV
	st  *state.State
	rem *remote.Memory
	eng *Engine

	remoteApplies int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		ctx: context.Background(),
		clk: testutil.NewManualClock(epoch),
		kv:  testutil.NewMemoryKV(),
		rem: remote.NewMemory(),
	}
	h.open(h.rem)
	return h
}

// open (re)creates the state and engine over the harness's KV, as a
// process restart would.
func (h *harness) open(r remote.Remote) {
	h.st = state.Open(h.ctx, h.kv, state.WithClock(h.clk), state.WithCleanupDelay(0))
	h.st.Subscribe(func(c state.Change) {
		if c.Remote {
			h.remoteApplies++
		}
	})
	h.eng = New(h.ctx, h.st, r, h.clk, Config{UserID: user})
}

// start subscribes the engine and runs the mount, as Run would.
func (h *harness) start() {
	h.eng.start()
	h.t.Cleanup(h.eng.stop)
	h.settle()
}

func (h *harness) settle() {
	h.eng.drain(h.ctx)
}

func (h *harness) advance(d time.Duration) {
	h.clk.Advance(d)
	h.settle()
}

func (h *harness) remoteRow() remote.Row {
	h.t.Helper()
	row, ok := h.rem.Get(remote.RowID(user))
	require.True(h.t, ok, "remote document missing")
	return row
}

func (h *harness) putRemote(doc state.Document) {
	h.t.Helper()
	require.NoError(h.t, h.rem.Put(remote.Row{
		ID:        remote.RowID(user),
		Owner:     user,
		Data:      doc,
		UpdatedAt: epoch,
	}))
}

func (h *harness) localFP() state.Fingerprint {
	fp, _ := h.st.Fingerprint()
	return fp
}

func str(s string) *string { return &s }

func TestMount_NotFoundPushesLocal(t *testing.T) {
	h := newHarness(t)
	h.start()

	assert.Equal(t, StatusSynced, h.eng.Status())
	fetches, upserts := h.rem.Calls()
	assert.Equal(t, 1, fetches)
	assert.Equal(t, 1, upserts)

	row := h.remoteRow()
	assert.Equal(t, user, row.Owner)
	remoteFP, err := state.FingerprintOf(row.Data)
	require.NoError(t, err)
	assert.Equal(t, h.localFP(), remoteFP)

	meta := h.st.SyncMeta(h.ctx)
	assert.Equal(t, h.localFP(), meta.Baseline)
	assert.False(t, meta.PendingPush)
}

func TestMount_PullsExistingDocument(t *testing.T) {
	h := newHarness(t)
	h.putRemote(state.Document{Theme: str("forest"), View: str("month")})
	h.start()

	assert.Equal(t, StatusSynced, h.eng.Status())
	got := h.st.Settings()
	assert.Equal(t, "forest", got.Theme)
	assert.Equal(t, "month", got.View)
	assert.Equal(t, "chime", got.Sound, "absent field keeps local value")
	assert.Equal(t, 1, h.remoteApplies)

	_, upserts := h.rem.Calls()
	assert.Zero(t, upserts)
}

func TestConvergence_AfterDebouncedPush(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.st.SetTheme(h.ctx, "forest")
	h.settle()
	assert.Equal(t, StatusDirty, h.eng.Status())

	h.advance(DefaultDebounce)

	assert.Equal(t, StatusSynced, h.eng.Status())
	remoteFP, err := state.FingerprintOf(h.remoteRow().Data)
	require.NoError(t, err)
	assert.Equal(t, h.localFP(), remoteFP)
	assert.Equal(t, h.localFP(), h.st.SyncMeta(h.ctx).Baseline)
}

func TestDebounce_SupersededChangesPushOnce(t *testing.T) {
	h := newHarness(t)
	h.start()
	_, before := h.rem.Calls()

	h.st.SetTheme(h.ctx, "forest")
	h.settle()
	h.advance(time.Second)
	h.st.SetSound(h.ctx, "coin")
	h.settle()
	h.advance(time.Second)

	_, upserts := h.rem.Calls()
	assert.Equal(t, before, upserts, "no push inside the quiet window")

	h.advance(500 * time.Millisecond)
	_, upserts = h.rem.Calls()
	assert.Equal(t, before+1, upserts)

	row := h.remoteRow()
	assert.Equal(t, "forest", *row.Data.Theme)
	assert.Equal(t, "coin", *row.Data.Sound)
}

func TestDebounce_UndoneEditDoesNotPush(t *testing.T) {
	h := newHarness(t)
	h.start()
	_, before := h.rem.Calls()

	h.st.SetTheme(h.ctx, "forest")
	h.st.SetTheme(h.ctx, "sunset")
	h.settle()
	h.advance(DefaultDebounce)

	_, upserts := h.rem.Calls()
	assert.Equal(t, before, upserts)
	assert.Equal(t, StatusSynced, h.eng.Status())
}

func TestEchoSuppression_IdenticalPullSkipsSetters(t *testing.T) {
	h := newHarness(t)
	h.start()
	revBefore := h.st.Revision()

	h.advance(DefaultPollInterval)
	h.advance(DefaultPollInterval)

	fetches, _ := h.rem.Calls()
	assert.Equal(t, 3, fetches, "mount plus two polls")
	assert.Zero(t, h.remoteApplies)
	assert.Equal(t, revBefore, h.st.Revision())
}

func TestPoll_AppliesRemoteChangeOnce(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.putRemote(state.Document{Theme: str("ocean")})
	h.advance(DefaultPollInterval)
	assert.Equal(t, "ocean", h.st.Settings().Theme)
	assert.Equal(t, 1, h.remoteApplies)

	h.advance(DefaultPollInterval)
	assert.Equal(t, 1, h.remoteApplies, "same payload is not applied twice")

	_, upserts := h.rem.Calls()
	assert.Equal(t, 1, upserts, "applying a pull does not trigger a push")
	assert.Equal(t, StatusSynced, h.eng.Status())
}

func TestPendingPush_VisibilityRetriesPushNotPull(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.rem.SetOffline(true)
	h.st.SetSound(h.ctx, "coin")
	h.settle()
	h.advance(DefaultDebounce)

	assert.Equal(t, StatusPendingPush, h.eng.Status())
	assert.True(t, h.st.SyncMeta(h.ctx).PendingPush)

	// Another device writes while this one is offline.
	h.rem.SetOffline(false)
	h.putRemote(state.Document{Theme: str("ocean")})
	fetchesBefore, upsertsBefore := h.rem.Calls()

	h.eng.SetVisible(true)
	h.settle()

	fetches, upserts := h.rem.Calls()
	assert.Equal(t, fetchesBefore, fetches, "no pull while a push is pending")
	assert.Equal(t, upsertsBefore+1, upserts)
	assert.Equal(t, StatusSynced, h.eng.Status())
	assert.False(t, h.st.SyncMeta(h.ctx).PendingPush)

	row := h.remoteRow()
	assert.Equal(t, "coin", *row.Data.Sound)
	assert.Equal(t, "sunset", *row.Data.Theme, "local state wins, last write")
	assert.Equal(t, "sunset", h.st.Settings().Theme)
}

func TestPolling_StopsWhileHidden(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.eng.SetVisible(false)
	h.settle()
	before, _ := h.rem.Calls()

	h.advance(4 * DefaultPollInterval)
	fetches, _ := h.rem.Calls()
	assert.Equal(t, before, fetches)

	h.eng.SetVisible(true)
	h.settle()
	fetches, _ = h.rem.Calls()
	assert.Equal(t, before+1, fetches, "visible again reconciles at once")

	h.advance(DefaultPollInterval)
	fetches, _ = h.rem.Calls()
	assert.Equal(t, before+2, fetches, "polling resumed")
}

func TestMount_OfflineThenEditPushesInsteadOfPulling(t *testing.T) {
	h := newHarness(t)
	h.putRemote(state.Document{Theme: str("ocean")})
	h.rem.SetOffline(true)
	h.start()

	assert.Equal(t, StatusUnsynced, h.eng.Status())

	h.st.SetTheme(h.ctx, "forest")
	h.settle()
	h.rem.SetOffline(false)
	h.advance(DefaultDebounce)

	assert.Equal(t, StatusSynced, h.eng.Status())
	assert.Equal(t, "forest", h.st.Settings().Theme)
	assert.Equal(t, "forest", *h.remoteRow().Data.Theme)
	assert.Zero(t, h.remoteApplies)
}

func TestMount_OfflineRetriedByPoll(t *testing.T) {
	h := newHarness(t)
	h.putRemote(state.Document{Theme: str("ocean")})
	h.rem.SetOffline(true)
	h.start()
	assert.Equal(t, StatusUnsynced, h.eng.Status())

	h.rem.SetOffline(false)
	h.advance(DefaultPollInterval)

	assert.Equal(t, StatusSynced, h.eng.Status())
	assert.Equal(t, "ocean", h.st.Settings().Theme)
}

func TestRestart_PersistedPendingPushIsRetried(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.rem.SetOffline(true)
	h.st.SetView(h.ctx, "month")
	h.settle()
	h.advance(DefaultDebounce)
	require.Equal(t, StatusPendingPush, h.eng.Status())
	h.eng.stop()

	h.rem.SetOffline(false)
	h.putRemote(state.Document{View: str("day")})
	h.open(h.rem)
	fetchesBefore, _ := h.rem.Calls()

	status, err := h.eng.RunOnce(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, status)

	fetches, _ := h.rem.Calls()
	assert.Equal(t, fetchesBefore, fetches, "pending push is retried before any pull")
	assert.Equal(t, "month", *h.remoteRow().Data.View)
	assert.Equal(t, "month", h.st.Settings().View)
}

func TestRestart_OfflineEditIsPushed(t *testing.T) {
	h := newHarness(t)
	status, err := h.eng.RunOnce(h.ctx)
	require.NoError(t, err)
	require.Equal(t, StatusSynced, status)

	// Edit made by a process that never ran the engine.
	h.open(h.rem)
	h.st.SetTheme(h.ctx, "forest")

	h.open(h.rem)
	fetchesBefore, upsertsBefore := h.rem.Calls()
	status, err = h.eng.RunOnce(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, status)

	fetches, upserts := h.rem.Calls()
	assert.Equal(t, fetchesBefore, fetches)
	assert.Equal(t, upsertsBefore+1, upserts)
	assert.Equal(t, "forest", *h.remoteRow().Data.Theme)
}

func TestPull_DiscardedWhenLocalChangesInFlight(t *testing.T) {
	h := newHarness(t)
	hook := &hookRemote{Remote: h.rem}
	h.open(hook)
	h.start()

	h.putRemote(state.Document{Theme: str("ocean")})
	hook.onFetch = func() {
		hook.onFetch = nil
		h.st.SetSound(h.ctx, "pop")
	}
	h.advance(DefaultPollInterval)

	assert.Equal(t, "sunset", h.st.Settings().Theme, "stale pull not applied")
	assert.Zero(t, h.remoteApplies)
	assert.Equal(t, StatusDirty, h.eng.Status())

	h.advance(DefaultDebounce)
	row := h.remoteRow()
	assert.Equal(t, "pop", *row.Data.Sound)
	assert.Equal(t, "sunset", *row.Data.Theme)
	assert.Equal(t, StatusSynced, h.eng.Status())
}

func TestRunOnce_FreshDeviceAdoptsRemote(t *testing.T) {
	h := newHarness(t)
	h.putRemote(state.Document{Sound: str("quack")})

	status, err := h.eng.RunOnce(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, status)
	assert.Equal(t, "quack", h.st.Settings().Sound)

	_, upserts := h.rem.Calls()
	assert.Zero(t, upserts)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.eng.Run(ctx) }()

	require.Eventually(t, func() bool {
		return h.eng.Status() == StatusSynced
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunOnce_EditWhileUnsyncedIsPushed(t *testing.T) {
	h := newHarness(t)
	h.putRemote(state.Document{Theme: str("ocean")})
	h.rem.SetOffline(true)

	status, err := h.eng.RunOnce(h.ctx)
	assert.ErrorIs(t, err, ErrNotSynced)
	assert.Equal(t, StatusUnsynced, status)

	h.st.SetTheme(h.ctx, "forest")
	h.eng.NotifyLocalChange()
	h.rem.SetOffline(false)

	status, err = h.eng.RunOnce(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, status)
	assert.Equal(t, "forest", *h.remoteRow().Data.Theme)
	assert.Equal(t, "forest", h.st.Settings().Theme)
	assert.Zero(t, h.clk.Pending(), "no debounce timer left behind")
}

func TestWatch_PendingEditFromSharedStoreIsPushedNotPulled(t *testing.T) {
	h := newHarness(t)
	h.start()
	require.Equal(t, StatusSynced, h.eng.Status())

	// A one-shot command in another process edits the same store while
	// the remote is unreachable.
	h.rem.SetOffline(true)
	other := state.Open(h.ctx, h.kv, state.WithClock(h.clk), state.WithCleanupDelay(0))
	otherEng := New(h.ctx, other, h.rem, h.clk, Config{UserID: user})
	require.NoError(t, other.Edit(h.ctx, func(p *planner.Planner) (bool, error) {
		_, err := p.Create(planner.Draft{Date: date.MustParse("2025-01-02"), Title: "Offline edit"})
		return err == nil, err
	}))
	otherEng.NotifyLocalChange()
	_, err := otherEng.RunOnce(h.ctx)
	require.ErrorIs(t, err, ErrNotSynced)
	require.True(t, other.SyncMeta(h.ctx).PendingPush)

	// Another device then writes the remote document.
	h.rem.SetOffline(false)
	h.putRemote(state.Document{Theme: str("forest"), Tasks: &task.Records{}})
	fetchesBefore, _ := h.rem.Calls()

	h.advance(DefaultPollInterval)

	fetches, _ := h.rem.Calls()
	assert.Equal(t, fetchesBefore, fetches, "pending edit is pushed before any pull")
	assert.Zero(t, h.remoteApplies)
	h.st.View(func(p *planner.Planner) {
		require.Len(t, p.Templates(), 1)
		assert.Equal(t, "Offline edit", p.Templates()[0].Title)
	})

	row := h.remoteRow()
	require.NotNil(t, row.Data.Tasks)
	assert.Len(t, *row.Data.Tasks, 1)
	assert.False(t, h.st.SyncMeta(h.ctx).PendingPush)

	h.advance(DefaultDebounce)
	assert.Equal(t, StatusSynced, h.eng.Status())

	reopened := state.Open(h.ctx, h.kv)
	reopened.View(func(p *planner.Planner) {
		assert.Len(t, p.Templates(), 1, "edit survives in the store")
	})
}
