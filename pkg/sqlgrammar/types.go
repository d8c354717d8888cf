package sqlgrammar

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	g "github.com/leapstack-labs/sqlfront/pkg/grammar"
)

func fixed(dt ast.DataType) func(*ast.Node, g.TypeContext) ast.DataType {
	return func(*ast.Node, g.TypeContext) ast.DataType { return dt }
}

var boolean = fixed(ast.Boolean)

// operandType forwards to the type of a single child slot.
func operandType(slot string) func(*ast.Node, g.TypeContext) ast.DataType {
	return func(n *ast.Node, tc g.TypeContext) ast.DataType {
		v, ok := n.Get(slot)
		if !ok {
			return ast.Unknown
		}
		return tc.Infer(v)
	}
}

// arithmetic types an operator chain. Concatenation yields text; otherwise
// the chain is numeric if any operand is.
func arithmetic(n *ast.Node, tc g.TypeContext) ast.DataType {
	v, _ := n.Get("operands")
	list, ok := v.(ast.List)
	if !ok || len(list.Items) == 0 {
		return ast.Unknown
	}
	for _, sep := range list.Seps {
		if sep == "||" {
			return ast.Text
		}
	}
	result := ast.Integer
	for _, item := range list.Items {
		switch dt := tc.Infer(item); dt {
		case ast.Integer:
		case ast.Numeric:
			result = ast.Numeric
		default:
			return ast.Unknown
		}
	}
	if result == ast.Integer && tc.Dialect != nil && tc.Dialect.Name == dialect.NameMySQL && slices.Contains(list.Seps, "/") {
		return ast.Numeric // mysql division yields a decimal
	}
	return result
}

func castType(n *ast.Node, _ g.TypeContext) ast.DataType {
	return TypeNameOf(n.Child("type"))
}

// TypeNameOf maps a TypeName node to a DataType.
func TypeNameOf(t *ast.Node) ast.DataType {
	if t == nil {
		return ast.Unknown
	}
	name := t.Text("name")
	if mod := t.Text("modifier"); mod != "" {
		name += " " + mod
	}
	if zone := t.Text("zone"); strings.HasPrefix(strings.ToUpper(zone), "WITH ") {
		return ast.Timestamp
	}
	return ast.TypeOf(name)
}

func caseType(n *ast.Node, tc g.TypeContext) ast.DataType {
	for _, w := range n.Items("whens") {
		if when, ok := w.(*ast.Node); ok {
			if dt := tc.Infer(valueOf(when, "then")); dt.IsKnown() && dt != ast.Null {
				return dt
			}
		}
	}
	if v, ok := n.Get("else"); ok {
		return tc.Infer(v)
	}
	return ast.Unknown
}

func valueOf(n *ast.Node, slot string) ast.Value {
	v, _ := n.Get(slot)
	return v
}

var functionTypes = map[string]ast.DataType{
	"count":             ast.Integer,
	"length":            ast.Integer,
	"char_length":       ast.Integer,
	"avg":               ast.Numeric,
	"round":             ast.Numeric,
	"lower":             ast.Text,
	"upper":             ast.Text,
	"trim":              ast.Text,
	"concat":            ast.Text,
	"substring":         ast.Text,
	"replace":           ast.Text,
	"now":               ast.Timestamp,
	"current_timestamp": ast.Timestamp,
	"json_object":       ast.JSON,
	"json_build_object": ast.JSON,
	"json_array":        ast.JSON,
	"list_value":        ast.Array,
}

// functionType knows a handful of common functions; sum, min, max and
// coalesce take the type of their arguments.
func functionType(n *ast.Node, tc g.TypeContext) ast.DataType {
	name := strings.ToLower(n.Text("name"))
	if dt, ok := functionTypes[name]; ok {
		return dt
	}
	switch name {
	case "sum", "min", "max", "abs", "coalesce", "nullif", "ifnull":
		for _, arg := range n.Items("args") {
			if dt := tc.Infer(arg); dt.IsKnown() && dt != ast.Null {
				return dt
			}
		}
	}
	return ast.Unknown
}
