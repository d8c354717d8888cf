package commands

import (
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"github.com/leapstack-labs/sqlfront/pkg/format"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/spf13/cobra"
)

// CanonOptions holds options for the canon command.
type CanonOptions struct {
	Tree bool
}

// NewCanonCommand creates the canon command.
func NewCanonCommand() *cobra.Command {
	opts := &CanonOptions{}

	cmd := &cobra.Command{
		Use:   "canon [file]",
		Short: "Rewrite SQL into its canonical form",
		Long: `Canonicalize SQL: shorthand constructs such as a::int or {'k': v} are
rewritten into the explicit constructs they stand for, spelled for the
output dialect.

A Starlark script given with --transform can rewrite every node on the
way out. It must define transform(node) returning a node dict or None.

On a terminal the canonical SQL is printed; with --output json or yaml,
or with --tree, the canonical portable tree is printed instead.`,
		Example: `  sqlfront canon --dialect postgres query.sql
  sqlfront canon --dialect postgres --to duckdb --tree query.sql
  sqlfront canon --transform lowercase_functions.star query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanon(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "Print the canonical tree instead of SQL")

	return cmd
}

func runCanon(cmd *cobra.Command, args []string, opts *CanonOptions) error {
	cmdCtx := NewCommandContext(cmd)
	sources, err := readSources(cmd, args)
	if err != nil {
		return err
	}
	src := sources[0]

	transform, err := loadTransform(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	popts := cmdCtx.Cfg.ParseOptions()
	popts.Logger = cmdCtx.Logger
	tree, err := parser.Parse(src.Text, popts)
	if err != nil {
		return cmdCtx.report(src, err)
	}

	fctx := cmdCtx.Cfg.FormatContext()
	canonical, err := canon.Canonicalize(tree, fctx, transform)
	if err != nil {
		return cmdCtx.report(src, err)
	}

	r := cmdCtx.Renderer
	if opts.Tree || r.Mode() != output.ModeText {
		return r.Data(canonical)
	}
	text, err := format.Tree(canonical, fctx)
	if err != nil {
		return cmdCtx.report(src, err)
	}
	r.Println(text)
	return nil
}
