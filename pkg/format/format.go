// Package format renders syntax trees back to SQL text.
//
// Rendering is driven by the grammar: each node is printed by walking the
// rule of its kind, so anything the parser accepts can be printed and
// parsed again to an equal tree. Keywords are upper-cased, identifiers are
// quoted as the output dialect requires, and layout follows the break and
// indent hints of the rules when IndentWidth is positive.
package format

import (
	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/grammar"
	"github.com/leapstack-labs/sqlfront/pkg/sqlgrammar"
)

// Context controls rendering.
type Context struct {
	// Dialect the tree was parsed under. Nil means dialect.Default().
	Dialect *dialect.Dialect
	// ToDialect requests output in another dialect. Constructs the target
	// cannot spell natively are rewritten through their kind's Morph.
	ToDialect *dialect.Dialect
	// IndentWidth is the number of spaces per level. Zero renders on a
	// single line.
	IndentWidth int
	// Grammar is the kind table. Nil means sqlgrammar.Table().
	Grammar *grammar.Table
}

// Output returns the dialect text is rendered in.
func (c Context) Output() *dialect.Dialect {
	if c.ToDialect != nil {
		return c.ToDialect
	}
	if c.Dialect != nil {
		return c.Dialect
	}
	return dialect.Default()
}

// Table returns the kind table in use.
func (c Context) Table() *grammar.Table {
	if c.Grammar != nil {
		return c.Grammar
	}
	return sqlgrammar.Table()
}

// Stringify renders n as SQL text.
func Stringify(n *ast.Node, ctx Context) (string, error) {
	p := newPrinter(ctx)
	if err := p.node(n); err != nil {
		return "", err
	}
	return p.String(), nil
}

// Tree renders a portable tree as SQL text.
func Tree(t ast.Tree, ctx Context) (string, error) {
	n, err := ast.FromPortable(t, ctx.Table())
	if err != nil {
		return "", err
	}
	return Stringify(n, ctx)
}
