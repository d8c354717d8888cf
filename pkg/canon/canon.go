// Package canon lowers syntax trees to their canonical, dialect-neutral
// shape: shorthand constructs are rewritten into the explicit constructs
// they stand for, spelled for a chosen dialect.
package canon

import (
	"fmt"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/format"
)

// maxMorphs bounds chained rewrites of a single node.
const maxMorphs = 8

// Transform is applied to every node tree produced, bottom-up.
type Transform func(ast.Tree) (ast.Tree, error)

// Canonicalize rewrites every node whose kind declares a morph target and
// returns the portable tree of the result. The dialect (ctx.ToDialect, or
// ctx.Dialect when unset) only chooses spellings, such as the name of the
// function that builds an object. transform may be nil. The input is not
// modified, and canonicalizing a canonical tree yields the same tree.
func Canonicalize(n *ast.Node, ctx format.Context, transform Transform) (ast.Tree, error) {
	lowered, err := Lower(n, ctx)
	if err != nil {
		return nil, err
	}
	return ast.ToPortableFunc(lowered, transform)
}

// Lower is Canonicalize without the conversion to a portable tree.
func Lower(n *ast.Node, ctx format.Context) (*ast.Node, error) {
	g := ctx.Table()
	d := ctx.Output()
	return ast.Rewrite(n, func(m *ast.Node) (*ast.Node, error) {
		start := m.Kind
		for range maxMorphs {
			k, ok := g.Kind(m.Kind)
			if !ok {
				return nil, &ast.StructuralError{Path: m.Kind, Message: fmt.Sprintf("unknown node kind %q", m.Kind)}
			}
			if k.Morph == nil {
				return m, nil
			}
			next, err := k.Morph(m, d)
			if err != nil {
				return nil, fmt.Errorf("canonicalize %s: %w", m.Kind, err)
			}
			if next.Kind == m.Kind {
				return next, nil
			}
			m = next
		}
		return nil, fmt.Errorf("canonicalize %s: too many rewrites", start)
	})
}

// Render canonicalizes n and renders the result as SQL text in the output
// dialect of ctx.
func Render(n *ast.Node, ctx format.Context, transform Transform) (string, error) {
	tree, err := Canonicalize(n, ctx, transform)
	if err != nil {
		return "", err
	}
	return format.Tree(tree, ctx)
}
