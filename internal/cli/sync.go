package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/cloudsync"
	"github.com/roach88/mydays/internal/config"
)

func newSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronise with the remote document store",
		Long: `Bring the local state and the remote document into agreement once and
report the result. Every other command already does this on a best-effort
basis; sync reports failures.

With --watch, keep running until SIGINT or SIGTERM. Each poll first
re-reads the local database, so an edit saved by another command that
could not reach the remote is pushed before any remote change is pulled.

Example:
  mydays sync
  mydays sync --watch --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var appOpts []appOption
			if watch {
				appOpts = append(appOpts, withCleanup())
			}
			a, err := openApp(cmd, rootOpts, appOpts...)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.engine == nil {
				return WrapExitError(ExitCommandError, ErrCodeConfig,
					"no remote configured (set remote.url or "+config.EnvRemote+")", nil)
			}

			if watch {
				ctx, cancel := signalContext(cmd, a.suspendAudio)
				defer cancel()
				if err := a.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return WrapExitError(ExitFailure, ErrCodeSync, "sync stopped", err)
				}
				return nil
			}

			ctx := commandContext(cmd)
			status, err := a.engine.RunOnce(ctx)
			view := a.syncView(ctx, status)
			if err != nil {
				if errors.Is(err, cloudsync.ErrNotSynced) {
					return WrapExitError(ExitFailure, ErrCodeSync, view.String(), err)
				}
				return err
			}
			return a.out.Success(view)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep syncing until interrupted")
	return cmd
}

func (a *app) syncView(ctx context.Context, status cloudsync.Status) syncView {
	meta := a.state.SyncMeta(ctx)
	v := syncView{
		Status:  string(status),
		Remote:  a.cfg.Remote.URL,
		Pending: meta.PendingPush,
	}
	if !meta.Baseline.IsZero() {
		v.Baseline = meta.Baseline.Short()
	}
	return v
}
