package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/audio"
	"github.com/roach88/mydays/internal/clock"
	"github.com/roach88/mydays/internal/cloudsync"
	"github.com/roach88/mydays/internal/config"
	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/planner"
	"github.com/roach88/mydays/internal/remote"
	"github.com/roach88/mydays/internal/state"
	"github.com/roach88/mydays/internal/store"
)

// setupLogging installs the process logger. Logs go to stderr so they
// never mix with command output.
func setupLogging(verbose bool) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// app is the per-command wiring: config, database, state and sync.
type app struct {
	opts   *RootOptions
	cfg    *config.Config
	out    *OutputFormatter
	db     *store.Store
	state  *state.State
	player *audio.Player
	engine *cloudsync.Engine
}

type appOption func(*appSettings)

type appSettings struct {
	cleanup bool
}

// withCleanup enables the idle cleanup timer, for long-running commands.
func withCleanup() appOption {
	return func(s *appSettings) { s.cleanup = true }
}

func openApp(cmd *cobra.Command, opts *RootOptions, appOpts ...appOption) (*app, error) {
	var settings appSettings
	for _, o := range appOpts {
		o(&settings)
	}

	out := newFormatter(cmd, opts)
	cfg, db, err := openDatabase(opts)
	if err != nil {
		return nil, err
	}

	a := &app{opts: opts, cfg: cfg, out: out, db: db}

	if cfg.Sound {
		opener := opts.Audio
		if opener == nil {
			opener = audio.OpenCommandDevice
		}
		a.player = audio.NewPlayer(opener)
	}
	celebrator := audio.NewCelebrator(a.player, out.GetErrWriter())

	plannerOpts := []planner.Option{planner.WithCelebrator(celebrator)}
	if opts.IDs != nil {
		plannerOpts = append(plannerOpts, planner.WithIDGenerator(opts.IDs))
	}
	cleanup := time.Duration(0)
	if settings.cleanup {
		cleanup = cfg.CleanupDelay.Std()
	}

	ctx := commandContext(cmd)
	a.state = state.Open(ctx, db,
		state.WithPlannerOptions(plannerOpts...),
		state.WithCleanupDelay(cleanup),
	)
	celebrator.SetSound(a.state.Settings().Sound)
	a.state.Subscribe(func(state.Change) {
		celebrator.SetSound(a.state.Settings().Sound)
	})

	if cfg.Remote.URL != "" {
		client := remote.NewClient(cfg.Remote.URL, cfg.Remote.Timeout.Std())
		a.engine = cloudsync.New(ctx, a.state, client, clock.Real{}, cloudsync.Config{
			UserID:       cfg.UserID,
			Debounce:     cfg.Sync.Debounce.Std(),
			PollInterval: cfg.Sync.PollInterval.Std(),
		})
	}
	return a, nil
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openDatabase loads the configuration and opens the database it names.
func openDatabase(opts *RootOptions) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeStore, "failed to create database directory", err)
	}
	slog.Debug("opening database", "path", cfg.Database)
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return cfg, db, nil
}

// Close releases the app. It waits for a completion sound to finish.
func (a *app) Close() {
	a.state.Close()
	if a.player != nil {
		if err := a.player.Close(); err != nil {
			slog.Debug("closing audio", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// suspendAudio cuts sounds still playing so that shutdown does not wait
// for them.
func (a *app) suspendAudio() {
	if a.player != nil {
		a.player.Suspend()
	}
}

func (a *app) now() time.Time {
	if a.opts.Now != nil {
		return a.opts.Now()
	}
	return time.Now()
}

func (a *app) today() date.Day {
	return date.FromTime(a.now())
}

// pull brings in remote changes before a command reads or edits the
// state. Failures are logged; the command works on local state.
func (a *app) pull(ctx context.Context) {
	if a.engine == nil {
		return
	}
	if status, err := a.engine.RunOnce(ctx); err != nil {
		slog.Info("sync before command did not complete", "status", status, "error", err)
	}
}

// push reports a local edit and tries to store it remotely. A failed push
// is retried by the next command.
func (a *app) push(ctx context.Context) {
	if a.engine == nil {
		return
	}
	a.engine.NotifyLocalChange()
	if status, err := a.engine.RunOnce(ctx); err != nil {
		slog.Info("sync after edit did not complete", "status", status, "error", err)
	}
}

// edit applies fn to the planner and pushes on change. Validation errors
// map to ExitFailure.
func (a *app) edit(ctx context.Context, fn func(p *planner.Planner) (bool, error)) (bool, error) {
	var changed bool
	err := a.state.Edit(ctx, func(p *planner.Planner) (bool, error) {
		var err error
		changed, err = fn(p)
		return changed, err
	})
	if err != nil {
		if planner.IsValidation(err) {
			return false, WrapExitError(ExitFailure, ErrCodeValidation, "task rejected", err)
		}
		return false, err
	}
	if changed {
		a.push(ctx)
	}
	return changed, nil
}

// resolveID finds the template an id argument names: the full id or a
// unique prefix or suffix of it.
func resolveID(p *planner.Planner, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", WrapExitError(ExitCommandError, ErrCodeUsage, "empty task id", nil)
	}
	if _, ok := p.Template(arg); ok {
		return arg, nil
	}

	var matches []string
	for _, t := range p.Templates() {
		if strings.HasPrefix(t.ID, arg) || strings.HasSuffix(t.ID, arg) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", WrapExitError(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no task matches %q", arg), nil)
	default:
		return "", WrapExitError(ExitFailure, ErrCodeNotFound,
			fmt.Sprintf("%q matches %d tasks", arg, len(matches)), errors.New(strings.Join(matches, ", ")))
	}
}

// lookupID resolves arg against the current planner.
func (a *app) lookupID(arg string) (string, error) {
	var id string
	var err error
	a.state.View(func(p *planner.Planner) {
		id, err = resolveID(p, arg)
	})
	return id, err
}

// parseDay parses a date flag, defaulting to today when empty.
func (a *app) parseDay(s string) (date.Day, error) {
	if s == "" {
		return a.today(), nil
	}
	switch strings.ToLower(s) {
	case "today":
		return a.today(), nil
	case "tomorrow":
		return a.today().AddDays(1), nil
	case "yesterday":
		return a.today().AddDays(-1), nil
	}
	d, err := date.Parse(s)
	if err != nil {
		return date.Day{}, WrapExitError(ExitCommandError, ErrCodeUsage, "invalid date", err)
	}
	return d, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, or when
// the command's own context ends. onSignal runs on a signal, before the
// context is cancelled.
func signalContext(cmd *cobra.Command, onSignal ...func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(commandContext(cmd))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			for _, fn := range onSignal {
				fn()
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
