package cli

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/remote"
)

func newServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document store other devices sync with",
		Long: `Run the HTTP document server. Devices point remote.url at it and
keep their state in one document per user.

The server uses the configured database and listens on the configured
address unless --listen is given. It stops on SIGINT or SIGTERM.

Example:
  mydays serve
  mydays serve --listen 0.0.0.0:8787`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					slog.Error("error closing database", "error", err)
				}
			}()

			addr := cfg.Listen
			if cmd.Flags().Changed("listen") {
				addr = listen
			}
			if !rootOpts.Verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			newFormatter(cmd, rootOpts).VerboseLog("serving %s on %s", cfg.Database, addr)
			if err := remote.NewServer(db).Run(ctx, addr); err != nil {
				return WrapExitError(ExitFailure, ErrCodeGeneric, "server failed", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	return cmd
}
