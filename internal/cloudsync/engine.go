// Package cloudsync keeps the local state consistent with the user's remote
// document.
//
// The protocol is whole-document last-write-wins with a local baseline:
// the engine remembers the fingerprint of the state it last confirmed on
// the remote. A local edit is pushed after a quiet period; a pull is only
// trusted while the local state still equals the baseline, so an edit that
// has not reached the remote is never overwritten by a pull. A failed push
// leaves the baseline stale and sets a pending flag, which makes the next
// reconcile push again instead of pulling.
//
// All protocol decisions run on one goroutine (Run). Timers and state
// subscribers only enqueue events.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/mydays/internal/clock"
	"github.com/roach88/mydays/internal/remote"
	"github.com/roach88/mydays/internal/state"
)

// Default tuning. Neither value is part of the protocol.
const (
	DefaultDebounce     = 1500 * time.Millisecond
	DefaultPollInterval = 15 * time.Second
)

// ErrNotSynced reports that local state could not be confirmed on the
// remote.
var ErrNotSynced = errors.New("local state not confirmed on remote")

// Status is the engine's view of local vs remote.
type Status string

const (
	// StatusUnsynced means the initial pull has not completed.
	StatusUnsynced Status = "UNSYNCED"
	// StatusSynced means local and remote are believed identical.
	StatusSynced Status = "SYNCED"
	// StatusDirty means local changed since the last confirmed sync.
	StatusDirty Status = "DIRTY"
	// StatusPendingPush means a push failed and must succeed before any
	// pull is trusted.
	StatusPendingPush Status = "PENDING_PUSH"
)

// Config configures an Engine.
type Config struct {
	// UserID selects the remote document (remote.RowID).
	UserID string

	Debounce     time.Duration
	PollInterval time.Duration

	// Hidden starts the engine in the background: no polling until
	// SetVisible(true).
	Hidden bool
}

// Engine is the sync engine for one user document.
type Engine struct {
	state  *state.State
	remote remote.Remote
	clock  clock.Clock
	cfg    Config
	rowID  string

	queue *eventQueue

	// Loop-owned. Only the goroutine running handle touches these.
	meta        state.SyncMeta
	visible     bool
	editedEarly bool
	debounce    clock.Timer
	debounceGen uint64
	poll        clock.Timer
	pollGen     uint64
	unsubscribe func()

	mu     sync.Mutex
	status Status
}

// New creates an engine. It reads the persisted sync metadata but does not
// touch the remote until Run or RunOnce.
func New(ctx context.Context, st *state.State, r remote.Remote, clk clock.Clock, cfg Config) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		state:   st,
		remote:  r,
		clock:   clk,
		cfg:     cfg,
		rowID:   remote.RowID(cfg.UserID),
		queue:   newEventQueue(),
		meta:    st.SyncMeta(ctx),
		visible: !cfg.Hidden,
		status:  StatusUnsynced,
	}
}

// Status returns the current status. Safe for concurrent use.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	prev := e.status
	e.status = s
	e.mu.Unlock()
	if prev != s {
		slog.Debug("sync status", "from", prev, "to", s, "row", e.rowID)
	}
}

// NotifyLocalChange reports a local edit. State subscribers call this
// automatically while Run is active.
func (e *Engine) NotifyLocalChange() {
	e.queue.Enqueue(event{kind: eventLocalChange})
}

// SetVisible reports the foreground state. Becoming visible reconciles
// immediately and resumes polling; becoming hidden stops polling.
func (e *Engine) SetVisible(visible bool) {
	e.queue.Enqueue(event{kind: eventVisibility, visible: visible})
}

// Run mounts the engine and processes events until ctx is cancelled.
// Run must be called at most once.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("sync engine starting", "row", e.rowID, "debounce", e.cfg.Debounce, "poll", e.cfg.PollInterval)
	e.start()
	defer e.stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync engine stopping", "row", e.rowID, "status", e.Status())
			return ctx.Err()
		case <-e.queue.Wait():
			e.drain(ctx)
		}
	}
}

// RunOnce brings local and remote into agreement once, synchronously:
// the mount on first use, otherwise one reconcile. Local changes reported
// with NotifyLocalChange since the last call are taken into account, so
// an edit made while unsynced is pushed rather than pulled over. It must
// not be used while Run is active. ErrNotSynced is returned when the
// remote could not be confirmed.
func (e *Engine) RunOnce(ctx context.Context) (Status, error) {
	e.drain(ctx)
	e.stopDebounce()

	if e.Status() == StatusUnsynced {
		e.mount(ctx)
	} else {
		e.reconcile(ctx)
	}
	if err := ctx.Err(); err != nil {
		return e.Status(), err
	}
	if s := e.Status(); s != StatusSynced {
		return s, ErrNotSynced
	}
	return StatusSynced, nil
}

func (e *Engine) start() {
	e.unsubscribe = e.state.Subscribe(func(c state.Change) {
		if !c.Remote {
			e.NotifyLocalChange()
		}
	})
	e.queue.Enqueue(event{kind: eventMount})
}

func (e *Engine) stop() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.stopDebounce()
	e.stopPoll()
	e.queue.Close()
}

// drain handles every queued event.
func (e *Engine) drain(ctx context.Context) {
	for ctx.Err() == nil {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		e.handle(ctx, ev)
	}
}

func (e *Engine) handle(ctx context.Context, ev event) {
	slog.Debug("sync event", "kind", ev.kind.String(), "queued", e.queue.Len(), "row", e.rowID)
	switch ev.kind {
	case eventMount:
		e.mount(ctx)
		e.schedulePoll()

	case eventLocalChange:
		e.onLocalChange()

	case eventDebounce:
		if ev.gen != e.debounceGen {
			return
		}
		e.debounce = nil
		e.onDebounce(ctx)

	case eventVisibility:
		e.visible = ev.visible
		if !ev.visible {
			e.stopPoll()
			return
		}
		e.reconcile(ctx)
		e.schedulePoll()

	case eventPoll:
		if ev.gen != e.pollGen || !e.visible {
			return
		}
		e.poll = nil
		e.reconcile(ctx)
		e.schedulePoll()
	}
}

// mount performs the initial synchronisation. Local state that changed
// since the last confirmed sync, or a push left pending by a previous
// run, is pushed; otherwise the remote is pulled. A network failure
// leaves the engine unsynced for the next poll or visibility change to
// retry.
func (e *Engine) mount(ctx context.Context) {
	e.refresh(ctx)
	local, _ := e.state.Fingerprint()
	diverged := !e.meta.Baseline.IsZero() && local != e.meta.Baseline
	if e.meta.PendingPush || diverged || e.editedEarly {
		slog.Info("sync mount: local state ahead of remote, pushing", "row", e.rowID)
		if e.push(ctx) {
			e.editedEarly = false
		}
		return
	}

	row, err := e.fetch(ctx)
	switch {
	case remote.IsNotFound(err):
		slog.Info("sync mount: no remote document, pushing local state", "row", e.rowID)
		e.push(ctx)
		return
	case err != nil:
		slog.Warn("sync mount failed, will retry", "row", e.rowID, "error", err)
		return
	}

	if e.applyPulled(ctx, row, local) {
		e.setStatus(StatusSynced)
	}
}

func (e *Engine) onLocalChange() {
	switch e.Status() {
	case StatusUnsynced:
		e.editedEarly = true
	case StatusSynced:
		e.setStatus(StatusDirty)
	}
	e.restartDebounce()
}

func (e *Engine) onDebounce(ctx context.Context) {
	if e.Status() == StatusUnsynced {
		e.mount(ctx)
		return
	}
	e.refresh(ctx)
	local, _ := e.state.Fingerprint()
	if local == e.meta.Baseline {
		// Echo of a pull, or an edit that was undone.
		e.meta.PendingPush = false
		e.saveMeta(ctx)
		e.setStatus(StatusSynced)
		return
	}
	e.push(ctx)
}

// reconcile is the visibility and polling step: push if local is ahead,
// otherwise pull. Never both in one cycle.
func (e *Engine) reconcile(ctx context.Context) {
	if e.Status() == StatusUnsynced {
		e.mount(ctx)
		return
	}

	e.refresh(ctx)
	local, _ := e.state.Fingerprint()
	if e.meta.PendingPush || local != e.meta.Baseline {
		e.push(ctx)
		return
	}

	row, err := e.fetch(ctx)
	if err != nil {
		if !remote.IsNotFound(err) {
			slog.Warn("sync pull failed", "row", e.rowID, "error", err)
			return
		}
		// Deleted remotely; recreate it from the synced local state.
		e.push(ctx)
		return
	}
	e.applyPulled(ctx, row, local)
}

// applyPulled applies a pulled document unless it is an echo or the local
// state changed while the request was in flight. localBefore is the local
// fingerprint taken before the request. It reports whether local and
// remote now agree.
func (e *Engine) applyPulled(ctx context.Context, row remote.Row, localBefore state.Fingerprint) bool {
	payload, err := state.FingerprintOf(row.Data)
	if err != nil {
		slog.Warn("sync pull: unreadable payload ignored", "row", e.rowID, "error", err)
		return false
	}
	if payload == e.meta.Remote {
		slog.Debug("sync pull: unchanged", "row", e.rowID, "fingerprint", payload.Short())
		return true
	}

	e.refresh(ctx)
	if now, _ := e.state.Fingerprint(); now != localBefore || e.meta.PendingPush {
		slog.Debug("sync pull: discarded, local state changed in flight", "row", e.rowID)
		return false
	}

	e.state.Apply(ctx, row.Data)
	applied, _ := e.state.Fingerprint()
	e.meta.Baseline = applied
	e.meta.Remote = payload
	e.meta.PendingPush = false
	e.saveMeta(ctx)

	slog.Info("sync pull: applied remote document", "row", e.rowID,
		"fingerprint", payload.Short(), "updated_at", row.UpdatedAt)
	return true
}

// push uploads the current snapshot. It reports success.
func (e *Engine) push(ctx context.Context) bool {
	snap := e.state.Snapshot()
	fp, err := state.FingerprintOf(snap)
	if err != nil {
		slog.Error("sync push: cannot encode local state", "row", e.rowID, "error", err)
		return false
	}

	err = e.remote.Upsert(ctx, remote.Row{
		ID:        e.rowID,
		Owner:     e.cfg.UserID,
		Data:      snap,
		UpdatedAt: e.clock.Now().UTC(),
	})
	if err != nil {
		e.meta.PendingPush = true
		e.saveMeta(ctx)
		if e.Status() != StatusUnsynced {
			e.setStatus(StatusPendingPush)
		}
		slog.Warn("sync push failed, will retry", "row", e.rowID, "error", err,
			"network", remote.IsNetworkFailure(err))
		return false
	}

	e.meta.Baseline = fp
	e.meta.Remote = fp
	e.meta.PendingPush = false
	e.saveMeta(ctx)

	if now, _ := e.state.Fingerprint(); now == fp {
		e.setStatus(StatusSynced)
	} else {
		e.setStatus(StatusDirty)
	}
	slog.Info("sync push: stored local state", "row", e.rowID, "fingerprint", fp.Short())
	return true
}

func (e *Engine) fetch(ctx context.Context) (remote.Row, error) {
	row, err := e.remote.Fetch(ctx, e.rowID)
	if err != nil {
		return remote.Row{}, fmt.Errorf("fetch %s: %w", e.rowID, err)
	}
	return row, nil
}

// refresh picks up the state and the pending flag written by another
// process sharing the local store, such as a one-shot command whose push
// failed. Either one then makes the next decision a push.
func (e *Engine) refresh(ctx context.Context) {
	if e.state.Reload(ctx) {
		slog.Info("sync: local store changed by another process", "row", e.rowID)
	}
	if !e.meta.PendingPush && e.state.SyncMeta(ctx).PendingPush {
		e.meta.PendingPush = true
	}
}

func (e *Engine) saveMeta(ctx context.Context) {
	e.state.SaveSyncMeta(ctx, e.meta)
}

func (e *Engine) restartDebounce() {
	e.stopDebounce()
	e.debounceGen++
	gen := e.debounceGen
	e.debounce = e.clock.AfterFunc(e.cfg.Debounce, func() {
		e.queue.Enqueue(event{kind: eventDebounce, gen: gen})
	})
}

func (e *Engine) stopDebounce() {
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}

// schedulePoll arms the polling timer while visible, replacing any armed
// one.
func (e *Engine) schedulePoll() {
	e.stopPoll()
	if !e.visible {
		return
	}
	e.pollGen++
	gen := e.pollGen
	e.poll = e.clock.AfterFunc(e.cfg.PollInterval, func() {
		e.queue.Enqueue(event{kind: eventPoll, gen: gen})
	})
}

func (e *Engine) stopPoll() {
	if e.poll != nil {
		e.poll.Stop()
		e.poll = nil
	}
	// Invalidate a tick that already fired but is still queued.
	e.pollGen++
}
