package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/spf13/cobra"
)

// ParseOptions holds options for the parse command.
type ParseOptions struct {
	Kind string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse SQL and print its syntax tree",
		Long: `Parse SQL input and print the syntax tree.

On a terminal the tree is drawn as an outline. With --output json or yaml
the portable tree form is printed, which other tools can read back.`,
		Example: `  sqlfront parse query.sql
  sqlfront parse --dialect postgres --output json query.sql
  echo "a + b * 2" | sqlfront parse --kind Expr`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Parse input as this node kind instead of a script")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	cmdCtx := NewCommandContext(cmd)
	sources, err := readSources(cmd, args)
	if err != nil {
		return err
	}
	src := sources[0]

	popts := cmdCtx.Cfg.ParseOptions()
	popts.Logger = cmdCtx.Logger

	var tree *ast.Node
	if opts.Kind != "" {
		tree, err = parser.ParseKind(opts.Kind, src.Text, popts)
	} else {
		tree, err = parser.Parse(src.Text, popts)
	}
	if err != nil {
		return cmdCtx.report(src, err)
	}

	r := cmdCtx.Renderer
	if r.Mode() != output.ModeText {
		return r.Data(ast.ToPortable(tree))
	}
	writeOutline(r.Writer(), tree)
	return nil
}

// writeOutline draws n as an indented outline.
func writeOutline(w io.Writer, n *ast.Node) {
	l := list.NewWriter()
	l.SetOutputMirror(w)
	l.SetStyle(list.StyleConnectedLight)
	l.AppendItem(n.Kind)
	l.Indent()
	outlineFields(l, n)
	l.Render()
}

func outlineFields(l list.Writer, n *ast.Node) {
	for _, f := range n.Fields {
		outlineValue(l, f.Name, f.Value)
	}
}

func outlineValue(l list.Writer, label string, v ast.Value) {
	switch v := v.(type) {
	case *ast.Node:
		l.AppendItem(fmt.Sprintf("%s: %s", label, v.Kind))
		l.Indent()
		outlineFields(l, v)
		l.UnIndent()
	case ast.List:
		l.AppendItem(fmt.Sprintf("%s [%d]", label, len(v.Items)))
		l.Indent()
		for i, item := range v.Items {
			outlineValue(l, strconv.Itoa(i), item)
		}
		l.UnIndent()
	case ast.Lit:
		l.AppendItem(fmt.Sprintf("%s: %s %q", label, v.Token, v.Text))
	}
}
