package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/sqlfront/internal/cli/config"
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/spf13/cobra"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Format   string
	PrintSQL bool
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "Run a SQL script against a database",
		Long: `Parse a SQL script in the configured dialect, render each statement for
the database named by --driver, and run the statements in order.

Statements that return rows are printed; the others report how many rows
they affected. Execution stops at the first failing statement.`,
		Example: `  sqlfront exec --driver sqlite --dsn app.db schema.sql
  sqlfront exec --dialect postgres --driver duckdb --format csv report.sql
  echo "SELECT 1 AS one" | sqlfront exec --driver sqlite`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().BoolVar(&opts.PrintSQL, "print-sql", false, "Print each statement as sent to the database")
	addConnectionFlags(cmd)

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return resultFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// addConnectionFlags registers the flags selecting a database.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", "", "Database driver ("+joinNames(adapter.ListAdapters())+")")
	cmd.Flags().String("dsn", "", "Data source name passed to the driver")
	_ = cmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "none registered"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

// connect opens the configured database. The returned cleanup disconnects.
func connect(ctx context.Context, cmdCtx *CommandContext) (*adapter.Runner, func(), error) {
	cfg := cmdCtx.Cfg
	a, err := adapter.NewAdapter(adapterConfig(cfg), cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Connect(ctx, adapterConfig(cfg)); err != nil {
		return nil, nil, err
	}
	runner := adapter.NewRunner(a, cfg.SourceDialect(), cmdCtx.Logger)
	runner.MaxDepth = cfg.MaxDepth
	cleanup := func() {
		if err := a.Disconnect(); err != nil {
			cmdCtx.Logger.Warn("failed to disconnect", "error", err)
		}
	}
	return runner, cleanup, nil
}

func adapterConfig(cfg *config.Config) adapter.Config {
	return adapter.Config{Driver: cfg.Driver, DSN: cfg.DSN, Params: cfg.Params}
}

func runExec(cmd *cobra.Command, args []string, opts *ExecOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if !slices.Contains(resultFormats, opts.Format) && opts.Format != "markdown" {
		return fmt.Errorf("unknown format %q (expected table, json, csv or md)", opts.Format)
	}
	sources, err := readSources(cmd, args)
	if err != nil {
		return err
	}
	src := sources[0]

	runner, cleanup, err := connect(cmd.Context(), cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	results, runErr := runner.RunScript(cmd.Context(), src.Text)

	r := cmdCtx.Renderer
	for _, res := range results {
		if opts.PrintSQL {
			r.Muted(res.SQL)
		}
		if res.Rows != nil {
			if err := renderRows(r.Writer(), res.Rows, opts.Format); err != nil {
				return err
			}
			continue
		}
		if res.RowsAffected >= 0 {
			r.Muted(fmt.Sprintf("%d rows affected", res.RowsAffected))
		}
	}
	if runErr != nil {
		if len(results) == 0 {
			// Parse failures come back before any statement runs.
			if _, ok := output.Position(runErr); ok {
				return cmdCtx.report(src, runErr)
			}
		}
		return runErr
	}
	return nil
}
