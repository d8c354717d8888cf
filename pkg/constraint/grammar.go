package constraint

import (
	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/grammar"
)

// Category tags every constraint kind.
const Category = "table_constraint"

var referentialActions = grammar.OneOf{Texts: []string{"CASCADE", "RESTRICT", "SET NULL", "SET DEFAULT", "NO ACTION"}}

func columnList(slot string) grammar.Item {
	return grammar.Item{Rule: grammar.Parens(grammar.List(slot, grammar.Ident{}, grammar.Comma, 1))}
}

// body returns the rule of a constraint after its optional name clause.
func body(k Kind, expr string) grammar.Seq {
	var items []grammar.Item
	switch k {
	case PrimaryKey:
		items = []grammar.Item{grammar.K("PRIMARY KEY"), columnList(slotColumns)}
	case Unique:
		items = []grammar.Item{grammar.K("UNIQUE"), columnList(slotColumns)}
	case ForeignKey:
		items = []grammar.Item{
			grammar.K("FOREIGN KEY"), columnList(slotColumns),
			grammar.K("REFERENCES"), grammar.S(slotRefTable, grammar.Ident{}),
			grammar.Opt(columnList(slotRefColumns)),
			grammar.Opt(grammar.Group(grammar.K("ON DELETE"), grammar.S(slotOnDelete, referentialActions))),
			grammar.Opt(grammar.Group(grammar.K("ON UPDATE"), grammar.S(slotOnUpdate, referentialActions))),
		}
	case Check:
		items = []grammar.Item{
			grammar.K("CHECK"),
			{Rule: grammar.Parens(grammar.S(slotCheck, grammar.Ref{Kind: expr}))},
		}
	}
	return grammar.Seq{Items: items}
}

// Kinds returns the grammar kinds of the table constraints. expr names the
// expression kind used by CHECK; extra categories are added to each kind.
func Kinds(expr string, categories ...string) []*grammar.Kind {
	cats := append([]string{Category}, categories...)
	var out []*grammar.Kind
	for _, k := range []Kind{PrimaryKey, ForeignKey, Unique, Check} {
		b := body(k, expr)
		rule := grammar.Seq{Items: append([]grammar.Item{
			grammar.Opt(grammar.Group(grammar.K("CONSTRAINT"), grammar.S(slotName, grammar.Ident{}))),
		}, b.Items...)}
		out = append(out, &grammar.Kind{
			Name:       k.String(),
			Rule:       rule,
			Categories: cats,
			Parse:      parseHook(k, b),
		})
	}
	return out
}

var nameClause = grammar.Seq{Items: []grammar.Item{grammar.S(slotName, grammar.Ident{})}}

// parseHook parses a constraint in two steps: the optional CONSTRAINT name
// clause is consumed first, then the body is matched and its columns are
// extracted into a Constraint. A body that does not match is a plain
// mismatch so sibling constraint kinds get their turn.
func parseHook(k Kind, b grammar.Seq) grammar.ParseFunc {
	return func(c grammar.Cursor, _ *grammar.Kind) (*ast.Node, bool, error) {
		var name ast.Value
		if c.Accept("CONSTRAINT") {
			fields, ok, err := c.Match(nameClause)
			if err != nil || !ok {
				return nil, false, err
			}
			name, _ = (&ast.Node{Fields: fields}).Get(slotName)
		}
		fields, ok, err := c.Match(b)
		if err != nil || !ok {
			return nil, false, err
		}
		n := &ast.Node{Kind: k.String(), Fields: fields}
		if name != nil {
			n.Set(slotName, name)
		}
		con, err := FromNode(n)
		if err != nil {
			return nil, false, err
		}
		return con.Node(), true, nil
	}
}
