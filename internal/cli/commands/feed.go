package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/changefeed"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// FeedOptions holds options for the feed command.
type FeedOptions struct {
	Keys      []string
	Apply     bool
	DedupSize int
}

// NewFeedCommand creates the feed command.
func NewFeedCommand() *cobra.Command {
	opts := &FeedOptions{}

	cmd := &cobra.Command{
		Use:   "feed [file]",
		Short: "Turn a change feed into SQL statements",
		Long: `Read change events, one JSON object per line, and turn each into the
INSERT, UPDATE or DELETE statement that replays it.

Each event has an id, a table, an operation (insert, update or delete) and
before/after rows. By default the statements are printed for the target
dialect. With --apply they are run against the database selected by
--driver and --dsn; events with an id already applied are skipped.`,
		Example: `  sqlfront feed --to postgres changes.jsonl
  tail -f changes.jsonl | sqlfront feed --apply --driver sqlite --dsn replica.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Keys, "key", "k", []string{"id"}, "Key columns identifying a row")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Run the statements against the database")
	cmd.Flags().IntVar(&opts.DedupSize, "dedup", 1024, "Number of recent event ids remembered for deduplication")
	addConnectionFlags(cmd)

	return cmd
}

// statementView is the structured form of a printed statement.
type statementView struct {
	ID   string `json:"id" yaml:"id"`
	SQL  string `json:"sql" yaml:"sql"`
	Args []any  `json:"args" yaml:"args"`
}

func runFeed(cmd *cobra.Command, args []string, opts *FeedOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return fmt.Errorf("failed to open feed: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	router := changefeed.NewRouter(cmdCtx.Logger)
	handler, cleanup, err := feedHandler(ctx, cmdCtx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	dedup := changefeed.NewDedup(opts.DedupSize)
	router.Subscribe(changefeed.Wildcard, dedup.Wrap(handler))

	events := make(chan changefeed.Event)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return decodeEvents(gctx, in, events)
	})
	g.Go(func() error {
		return router.Run(gctx, events)
	})
	return g.Wait()
}

// feedHandler returns the handler for each event: applying it to a
// database, or printing the statement that would.
func feedHandler(ctx context.Context, cmdCtx *CommandContext, opts *FeedOptions) (changefeed.Handler, func(), error) {
	if opts.Apply {
		runner, cleanup, err := connect(ctx, cmdCtx)
		if err != nil {
			return nil, nil, err
		}
		apply := changefeed.Apply(runner, opts.Keys)
		return func(ctx context.Context, ev changefeed.Event) error {
			if err := apply(ctx, ev); err != nil {
				return err
			}
			cmdCtx.Logger.Debug("applied change", "id", ev.ID, "table", ev.Table, "operation", ev.Operation)
			return nil
		}, cleanup, nil
	}

	target := cmdCtx.Cfg.TargetDialect()
	if target == nil {
		target = cmdCtx.Cfg.SourceDialect()
	}
	r := cmdCtx.Renderer
	var mu sync.Mutex
	return func(_ context.Context, ev changefeed.Event) error {
		text, args, err := changefeed.Statement(ev, opts.Keys, target)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		mu.Lock()
		defer mu.Unlock()
		if r.Mode() == output.ModeText {
			r.Printf("%s;\n", text)
			if len(args) > 0 {
				r.Printf("-- args: %v\n", args)
			}
			return nil
		}
		return r.Data(statementView{ID: ev.ID, SQL: text, Args: args})
	}, func() {}, nil
}

// decodeEvents reads a stream of JSON objects and sends them as events.
func decodeEvents(ctx context.Context, in io.Reader, out chan<- changefeed.Event) error {
	dec := json.NewDecoder(in)
	dec.UseNumber()
	for n := 1; ; n++ {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("event %d: %w", n, err)
		}
		ev, err := changefeed.Decode(normalizeNumbers(raw).(map[string]any))
		if err != nil {
			return fmt.Errorf("event %d: %w", n, err)
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// normalizeNumbers turns json.Number values into int64 where they are
// integral and float64 otherwise, so drivers see native types.
func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	default:
		return v
	}
}
