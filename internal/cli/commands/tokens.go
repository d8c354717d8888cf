package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/spf13/cobra"
)

// TokensOptions holds options for the tokens command.
type TokensOptions struct {
	Whitespace bool
	Flat       bool
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	opts := &TokensOptions{}

	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print the token stream of SQL input",
		Long: `Tokenize SQL input and print the resulting tokens.

Parenthesis, bracket and brace groups are shown as nested blocks unless
--flat is given. Comments are included with --comments.`,
		Example: `  sqlfront tokens query.sql
  echo "SELECT 1" | sqlfront tokens --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Whitespace, "whitespace", false, "Emit whitespace tokens")
	cmd.Flags().BoolVar(&opts.Flat, "flat", false, "Emit delimiters as flat punctuation instead of blocks")

	return cmd
}

func runTokens(cmd *cobra.Command, args []string, opts *TokensOptions) error {
	cmdCtx := NewCommandContext(cmd)
	sources, err := readSources(cmd, args)
	if err != nil {
		return err
	}
	src := sources[0]

	var views []output.TokenView
	for tok, err := range parser.Tokenize(parser.Text(src.Text), parser.TokenizeOptions{
		Dialect:          cmdCtx.Cfg.SourceDialect(),
		EmitWhitespace:   opts.Whitespace,
		EmitComments:     cmdCtx.Cfg.EmitComments,
		StructuredBlocks: !opts.Flat,
	}) {
		if err != nil {
			return cmdCtx.report(src, err)
		}
		views = append(views, output.ViewToken(tok))
	}

	r := cmdCtx.Renderer
	if r.Mode() != output.ModeText {
		return r.Data(views)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Pos", "Kind", "Text"})
	appendTokenRows(t, views, 0)
	t.Render()
	return nil
}

func appendTokenRows(t table.Writer, views []output.TokenView, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, v := range views {
		t.AppendRow(table.Row{fmt.Sprintf("%d:%d", v.Line, v.Column), indent + v.Kind, fmt.Sprintf("%q", v.Text)})
		if len(v.Children) > 0 {
			appendTokenRows(t, v.Children, depth+1)
		}
	}
}
