// Package state holds the local application state: the task collection and
// the settings synced with it.
//
// Every change is written through to the local KV store, bumps the
// revision counter and is fanned out to subscribers (the sync engine). The
// content fingerprint is cached per revision, so asking whether the local
// state still equals a sync baseline costs one comparison between changes.
//
// State is safe for concurrent use.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/mydays/internal/clock"
	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/task"
)

// DefaultCleanupDelay is how long the task collection must stay unchanged
// before blank drafts are pruned.
const DefaultCleanupDelay = 3 * time.Second

// Change describes one state change delivered to subscribers.
type Change struct {
	Revision int64

	// Remote is set when the change came from applying a remote document.
	Remote bool
}

// State is the local application state.
type State struct {
	mu       sync.Mutex
	kv       KV
	planner  *planner.Planner
	settings Settings

	rev    Revision
	fpRev  int64
	fp     Fingerprint
	subs   map[int]func(Change)
	nextID int

	clock        clock.Clock
	cleanupDelay time.Duration
	cleanup      clock.Timer
	closed       bool
	writeFailed  bool

	plannerOpts []planner.Option
}

// Option configures a State.
type Option func(*State)

// WithClock sets the clock used for the idle cleanup timer.
func WithClock(c clock.Clock) Option {
	return func(s *State) { s.clock = c }
}

// WithCleanupDelay sets the idle delay before blank drafts are pruned.
// Zero disables the cleanup.
func WithCleanupDelay(d time.Duration) Option {
	return func(s *State) { s.cleanupDelay = d }
}

// WithPlannerOptions passes options to the task planner.
func WithPlannerOptions(opts ...planner.Option) Option {
	return func(s *State) { s.plannerOpts = append(s.plannerOpts, opts...) }
}

// Open loads the state from kv. Missing or corrupt keys fall back to their
// defaults; Open itself does not fail on bad data.
func Open(ctx context.Context, kv KV, opts ...Option) *State {
	s := &State{
		kv:           kv,
		subs:         make(map[int]func(Change)),
		clock:        clock.Real{},
		cleanupDelay: DefaultCleanupDelay,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.settings, s.planner = s.read(ctx)
	slog.Debug("state loaded", "templates", len(s.planner.Templates()))
	return s
}

// read loads the persisted settings and tasks with their fallbacks.
func (s *State) read(ctx context.Context) (Settings, *planner.Planner) {
	def := DefaultSettings()
	set := Settings{
		Theme:          load(ctx, s.kv, KeyTheme, def.Theme),
		Sound:          load(ctx, s.kv, KeySound, def.Sound),
		View:           load(ctx, s.kv, KeyView, def.View),
		Categories:     load(ctx, s.kv, KeyCategories, def.Categories),
		CustomThemes:   load(ctx, s.kv, KeyCustomThemes, def.CustomThemes),
		CategoryColors: load(ctx, s.kv, KeyCategoryColors, def.CategoryColors),
	}
	records := load(ctx, s.kv, KeyTasks, task.Records{})
	return set.clone(), planner.New(records, s.plannerOpts...)
}

// Reload re-reads the persisted state so that writes made by another
// process sharing the store become visible. When the content differs, the
// in-memory state is replaced and subscribers are notified with a local
// change. Reload does nothing once a write of this State has failed,
// because memory is then ahead of the store. It reports whether the state
// changed.
func (s *State) Reload(ctx context.Context) bool {
	s.mu.Lock()
	if s.writeFailed {
		s.mu.Unlock()
		return false
	}
	set, p := s.read(ctx)
	stored, err := FingerprintOf(documentOf(set, p))
	if err != nil {
		s.mu.Unlock()
		return false
	}
	current, err := FingerprintOf(s.snapshotLocked())
	if err != nil || current == stored {
		s.mu.Unlock()
		return false
	}

	s.settings, s.planner = set, p
	s.scheduleCleanupLocked()
	notify := s.commitLocked(false)
	s.mu.Unlock()

	slog.Debug("state reloaded from store", "templates", len(p.Templates()))
	notify()
	return true
}

// Close stops the idle cleanup timer. Later changes no longer schedule it.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cleanup != nil {
		s.cleanup.Stop()
		s.cleanup = nil
	}
}

// Revision returns the current revision.
func (s *State) Revision() int64 {
	return s.rev.Current()
}

// Subscribe registers fn to be called after every change, outside the
// state lock. It returns a function that removes the subscription.
func (s *State) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Settings returns a copy of the current settings.
func (s *State) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.clone()
}

// View runs fn with read access to the task planner. fn must not retain or
// mutate p.
func (s *State) View(fn func(p *planner.Planner)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.planner)
}

// Edit runs fn with write access to the task planner. When fn reports a
// change the tasks are persisted, the revision is bumped and subscribers
// are notified. An error from fn is returned as-is.
func (s *State) Edit(ctx context.Context, fn func(p *planner.Planner) (bool, error)) error {
	s.mu.Lock()
	changed, err := fn(s.planner)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.save(ctx, KeyTasks, s.planner.Records())
	s.scheduleCleanupLocked()
	notify := s.commitLocked(false)
	s.mu.Unlock()

	notify()
	return nil
}

// SetTheme sets the active theme.
func (s *State) SetTheme(ctx context.Context, v string) {
	s.setting(ctx, Document{Theme: &v})
}

// SetSound sets the completion sound.
func (s *State) SetSound(ctx context.Context, v string) {
	s.setting(ctx, Document{Sound: &v})
}

// SetView sets the calendar view.
func (s *State) SetView(ctx context.Context, v string) {
	s.setting(ctx, Document{View: &v})
}

// SetCategories replaces the category list.
func (s *State) SetCategories(ctx context.Context, v []Category) {
	s.setting(ctx, Document{Categories: &v})
}

// SetCustomThemes replaces the custom themes.
func (s *State) SetCustomThemes(ctx context.Context, v map[string]CustomTheme) {
	s.setting(ctx, Document{CustomThemes: &v})
}

// SetCategoryColors replaces the per-category colour overrides.
func (s *State) SetCategoryColors(ctx context.Context, v map[string]string) {
	s.setting(ctx, Document{CategoryColors: &v})
}

func (s *State) setting(ctx context.Context, doc Document) {
	s.mu.Lock()
	s.applyLocked(ctx, doc)
	notify := s.commitLocked(false)
	s.mu.Unlock()
	notify()
}

// Apply overwrites every field present in doc, persists them and notifies
// subscribers with a remote change. A document with no fields is a no-op.
func (s *State) Apply(ctx context.Context, doc Document) {
	s.mu.Lock()
	if !s.applyLocked(ctx, doc) {
		s.mu.Unlock()
		return
	}
	notify := s.commitLocked(true)
	s.mu.Unlock()
	notify()
}

// applyLocked reports whether doc carried any field.
func (s *State) applyLocked(ctx context.Context, doc Document) bool {
	applied := false
	if doc.Theme != nil {
		s.settings.Theme = *doc.Theme
		s.save(ctx, KeyTheme, s.settings.Theme)
		applied = true
	}
	if doc.Sound != nil {
		s.settings.Sound = *doc.Sound
		s.save(ctx, KeySound, s.settings.Sound)
		applied = true
	}
	if doc.View != nil {
		s.settings.View = *doc.View
		s.save(ctx, KeyView, s.settings.View)
		applied = true
	}
	if doc.Categories != nil {
		s.settings.Categories = append([]Category{}, (*doc.Categories)...)
		s.save(ctx, KeyCategories, s.settings.Categories)
		applied = true
	}
	if doc.CustomThemes != nil {
		s.settings.CustomThemes = cloneThemes(*doc.CustomThemes)
		s.save(ctx, KeyCustomThemes, s.settings.CustomThemes)
		applied = true
	}
	if doc.CategoryColors != nil {
		colors := make(map[string]string, len(*doc.CategoryColors))
		for k, v := range *doc.CategoryColors {
			colors[k] = v
		}
		s.settings.CategoryColors = colors
		s.save(ctx, KeyCategoryColors, s.settings.CategoryColors)
		applied = true
	}
	if doc.Tasks != nil {
		s.planner.Load(*doc.Tasks)
		s.save(ctx, KeyTasks, s.planner.Records())
		s.scheduleCleanupLocked()
		applied = true
	}
	return applied
}

// commitLocked bumps the revision and returns the notification to run once
// the lock is released.
func (s *State) commitLocked(remote bool) func() {
	c := Change{Revision: s.rev.Next(), Remote: remote}
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(c)
		}
	}
}

// Snapshot returns the whole state as a document with every field present.
func (s *State) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Document {
	return documentOf(s.settings.clone(), s.planner)
}

func documentOf(set Settings, p *planner.Planner) Document {
	return Document{
		Theme:          ptr(set.Theme),
		Sound:          ptr(set.Sound),
		View:           ptr(set.View),
		Tasks:          ptr(p.Records()),
		Categories:     ptr(set.Categories),
		CustomThemes:   ptr(set.CustomThemes),
		CategoryColors: ptr(set.CategoryColors),
	}
}

// Fingerprint returns the fingerprint of the current snapshot and the
// revision it belongs to. The value is computed at most once per revision.
func (s *State) Fingerprint() (Fingerprint, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := s.rev.Current()
	if s.fp.IsZero() || s.fpRev != rev {
		fp, err := FingerprintOf(s.snapshotLocked())
		if err != nil {
			// Unencodable state cannot be synced; a zero fingerprint never
			// equals a baseline.
			slog.Error("state: fingerprint failed", "error", err)
			return Fingerprint{}, rev
		}
		s.fp, s.fpRev = fp, rev
	}
	return s.fp, rev
}

// save writes through to the store. Callers hold s.mu.
func (s *State) save(ctx context.Context, key string, v any) {
	if !save(ctx, s.kv, key, v) {
		s.writeFailed = true
	}
}

func (s *State) scheduleCleanupLocked() {
	if s.closed || s.cleanupDelay <= 0 {
		return
	}
	if s.cleanup != nil {
		s.cleanup.Stop()
	}
	s.cleanup = s.clock.AfterFunc(s.cleanupDelay, s.pruneBlank)
}

func (s *State) pruneBlank() {
	var pruned int
	err := s.Edit(context.Background(), func(p *planner.Planner) (bool, error) {
		pruned = p.PruneBlank()
		return pruned > 0, nil
	})
	if err == nil && pruned > 0 {
		slog.Debug("pruned blank tasks", "count", pruned)
	}
}
