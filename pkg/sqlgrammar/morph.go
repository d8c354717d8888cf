package sqlgrammar

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
)

// UnsupportedError reports a construct the output dialect has no spelling for.
type UnsupportedError struct {
	Kind    string
	Dialect string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("dialect %s cannot express %s", e.Dialect, e.Kind)
}

// arrayLiteralDialects read the ARRAY[...] literal.
var arrayLiteralDialects = []string{dialect.NamePostgres, dialect.NameDuckDB}

// morphCast rewrites x::t to CAST(x AS t).
func morphCast(n *ast.Node, _ *dialect.Dialect) (*ast.Node, error) {
	out := ast.New(KindCastExpr)
	if v, ok := n.Get("operand"); ok {
		out.Set("expr", v)
	}
	if v, ok := n.Get("type"); ok {
		out.Set("type", v)
	}
	out.Span = n.Span
	return out, nil
}

// morphObject rewrites {'k': v, ...} to a call of the dialect's object
// builder with alternating key and value arguments, in entry order.
func morphObject(n *ast.Node, d *dialect.Dialect) (*ast.Node, error) {
	var args []ast.Value
	for _, e := range n.Items("entries") {
		entry, ok := e.(*ast.Node)
		if !ok {
			continue
		}
		if key, ok := entry.Get("key"); ok {
			args = append(args, ast.New(KindStringLit, ast.F("value", key)))
		}
		if value, ok := entry.Get("value"); ok {
			args = append(args, value)
		}
	}
	return call(d.ObjectBuilder, args, n), nil
}

// morphArray rewrites [a, b] to a call of the dialect's array builder.
// Dialects without one keep the literal when they can read it.
func morphArray(n *ast.Node, d *dialect.Dialect) (*ast.Node, error) {
	if d.ArrayBuilder == "" {
		if !slices.Contains(arrayLiteralDialects, d.Name) {
			return nil, &UnsupportedError{Kind: KindArrayLiteral, Dialect: d.Name}
		}
		out := ast.New(KindArrayLiteral, ast.F("array", ast.Keyword("ARRAY")))
		if v, ok := n.Get("items"); ok {
			out.Set("items", v)
		}
		out.Span = n.Span
		return out, nil
	}
	return call(d.ArrayBuilder, n.Items("items"), n), nil
}

func call(name string, args []ast.Value, from *ast.Node) *ast.Node {
	out := ast.New(KindFunctionCall, ast.F("name", ast.Word(name)))
	if len(args) > 0 {
		out.Set("args", ast.List{Items: args})
	}
	out.Span = from.Span
	return out
}
