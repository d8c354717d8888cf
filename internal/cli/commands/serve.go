package commands

import (
	"github.com/leapstack-labs/sqlfront/internal/server"
	"github.com/leapstack-labs/sqlfront/pkg/changefeed"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	DedupSize int
	Keys      []string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the formatter over HTTP",
		Long: `Start an HTTP server exposing tokenize, parse, format and canonicalize
as JSON endpoints under /api, plus a change feed.

Change events posted to /api/changes are streamed to subscribers of
/api/changes/stream as server-sent events. When --driver is set, each
event is also applied to that database.`,
		Example: `  sqlfront serve
  sqlfront serve --listen :9000 --dialect postgres
  sqlfront serve --driver sqlite --dsn replica.db --key id`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("listen", "", "Address to listen on (default \"127.0.0.1:8765\")")
	cmd.Flags().IntVar(&opts.DedupSize, "dedup", 1024, "Number of recent event ids remembered for deduplication")
	cmd.Flags().StringSliceVarP(&opts.Keys, "key", "k", []string{"id"}, "Key columns used when applying events")
	addConnectionFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	transform, err := loadTransform(cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:        cfg.Listen,
		Dialect:     cfg.SourceDialect(),
		ToDialect:   cfg.TargetDialect(),
		IndentWidth: cfg.IndentWidth,
		MaxDepth:    cfg.MaxDepth,
		Transform:   transform,
		DedupSize:   opts.DedupSize,
		Logger:      cmdCtx.Logger,
	})

	if cfg.Driver != "" {
		runner, cleanup, err := connect(cmd.Context(), cmdCtx)
		if err != nil {
			return err
		}
		defer cleanup()
		dedup := changefeed.NewDedup(opts.DedupSize)
		srv.Feed().Subscribe(changefeed.Wildcard, dedup.Wrap(changefeed.Apply(runner, opts.Keys)))
		cmdCtx.Logger.Info("applying change feed", "driver", cfg.Driver)
	}

	cmdCtx.Renderer.Muted("listening on http://" + cfg.Listen)
	cmdCtx.Renderer.Muted("Press Ctrl+C to stop")
	return srv.Serve(cmd.Context())
}
