// Package sqlgrammar is the SQL grammar: the kind table for scripts of
// SELECT, INSERT, UPDATE, DELETE and CREATE TABLE statements and the
// expression language they share.
//
// # Expressions
//
// Precedence is expressed by layering, loosest first:
//
//	OrExpr         → AndExpr {OR AndExpr}
//	AndExpr        → predicate {AND predicate}
//	predicate      → NOT predicate | comparison forms | Additive
//	Additive       → Multiplicative {(+ | - | ||) Multiplicative}
//	Multiplicative → operand {(* | / | %) operand}
//	operand        → sign operand | primary::type | primary
//
// Each layer collapses when it holds a single operand, so "a" parses to a
// ColumnRef rather than five wrappers around one.
//
// Every comparison form begins with an Additive operand and therefore
// refines Additive; the table tries them before the bare operand without
// any explicit priority. Priorities are only used where the structure does
// not decide: x::t must be tried before the primary it starts with, and a
// parenthesized subquery or row constructor before a parenthesized
// expression.
package sqlgrammar

import (
	"sync"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/constraint"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	g "github.com/leapstack-labs/sqlfront/pkg/grammar"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Kind names referenced outside the grammar.
const (
	KindScript         = "Script"
	KindQuery          = "Query"
	KindSelect         = "SelectStmt"
	KindSetOperation   = "SetOperation"
	KindExpr           = "Expr"
	KindColumnRef      = "ColumnRef"
	KindFunctionCall   = "FunctionCall"
	KindCastExpr       = "CastExpr"
	KindCastShorthand  = "CastShorthand"
	KindObjectLiteral  = "ObjectLiteral"
	KindArrayLiteral   = "ArrayLiteral"
	KindStringLit      = "StringLit"
	KindNumberLit      = "NumberLit"
	KindCreateTable    = "CreateTableStmt"
	KindColumnDef      = "ColumnDef"
	KindTypeName       = "TypeName"
	KindStar           = "Star"
	KindComparison     = "Comparison"
	KindAdditive       = "Additive"
	KindMultiplicative = "Multiplicative"
)

// Categories.
const (
	catStatement        = "statement"
	catTable            = "table"
	catPredicate        = "predicate"
	catOperand          = "operand"
	catPrimary          = "primary"
	catTableElement     = "table_element"
	catColumnConstraint = "column_constraint"
)

// Priorities.
const (
	priorityCastShorthand = 10
	prioritySubquery      = 5
	priorityRow           = 1
	priorityQualifiedStar = 1
	priorityArray         = 1
)

var (
	expr  = g.Ref{Kind: KindExpr}
	query = g.Ref{Kind: KindQuery}

	// castDialects spell x::t natively.
	castDialects = []string{dialect.NamePostgres, dialect.NameDuckDB}
)

var table = sync.OnceValue(func() *g.Table {
	return g.MustTable(KindScript, kinds()...)
})

// Table returns the SQL kind table. It is built once and shared read-only.
func Table() *g.Table {
	return table()
}

// DataType infers the static type of an expression node parsed with this
// grammar. ast.Unknown is returned when the type cannot be known statically.
func DataType(n *ast.Node, d *dialect.Dialect) ast.DataType {
	return Table().DataType(n, d)
}

func seq(items ...g.Item) g.Seq {
	return g.Seq{Items: items}
}

func brk(it g.Item) g.Item {
	it.Break = true
	return it
}

func indent(it g.Item) g.Item {
	it.Indent = true
	return it
}

func tight(it g.Item) g.Item {
	it.Tight = true
	return it
}

func block(delim token.Kind, items ...g.Item) g.Item {
	return g.Item{Rule: g.Block{Delim: delim, Inner: seq(items...)}}
}

func parens(items ...g.Item) g.Item {
	return block(token.ParenBlock, items...)
}

// alias is the optional [AS] name suffix of select items and tables.
func alias() g.Item {
	return g.Opt(g.Group(g.Opt(g.S("as", g.Lit{Text: "AS"})), g.S("alias", g.Ident{})))
}

func bounded(it g.Item, maxItems int) g.Item {
	it.Max = maxItems
	return it
}

func not() g.Item {
	return g.Opt(g.S("not", g.Lit{Text: "NOT"}))
}

func kinds() []*g.Kind {
	var ks []*g.Kind
	ks = append(ks, statementKinds()...)
	ks = append(ks, tableKinds()...)
	ks = append(ks, ddlKinds()...)
	ks = append(ks, constraint.Kinds(KindExpr, catTableElement)...)
	ks = append(ks, expressionKinds()...)
	ks = append(ks, primaryKinds()...)
	return ks
}

func statementKinds() []*g.Kind {
	returning := g.Opt(brk(g.Group(g.K("RETURNING"),
		g.List("returning", g.Alt{Kinds: []string{"QualifiedStar", "SelectItem", KindStar}}, g.Comma, 1))))
	where := g.Opt(brk(g.Group(g.K("WHERE"), g.S("where", expr))))

	return []*g.Kind{
		{
			Name: KindScript,
			Rule: seq(
				brk(g.List("statements", g.Category{Name: catStatement}, g.Lit{Text: ";"}, 1)),
				g.Opt(g.S("terminator", g.Lit{Text: ";"})),
			),
		},
		{
			Name:       KindQuery,
			Categories: []string{catStatement},
			Rule:       g.Alt{Kinds: []string{KindSetOperation, KindSelect}},
		},
		{
			Name: KindSetOperation,
			Rule: seq(
				g.S("left", g.Ref{Kind: KindSelect}),
				brk(g.S("op", g.OneOf{Texts: []string{"UNION ALL", "UNION", "INTERSECT", "EXCEPT"}})),
				brk(g.S("right", query)),
			),
		},
		{
			Name: KindSelect,
			Rule: seq(
				g.Opt(g.Group(g.K("WITH"), g.List("with", g.Ref{Kind: "CommonTableExpr"}, g.Comma, 1))),
				brk(g.K("SELECT")),
				g.Opt(g.S("distinct", g.Lit{Text: "DISTINCT"})),
				indent(g.List("columns", g.Alt{Kinds: []string{"QualifiedStar", "SelectItem", KindStar}}, g.Comma, 1)),
				g.Opt(brk(g.Group(g.K("FROM"), g.List("from", g.Category{Name: catTable}, g.Comma, 1)))),
				brk(g.List("joins", g.Ref{Kind: "Join"}, nil, 0)),
				where,
				g.Opt(brk(g.Group(g.K("GROUP BY"), g.List("groupBy", expr, g.Comma, 1)))),
				g.Opt(brk(g.Group(g.K("HAVING"), g.S("having", expr)))),
				g.Opt(brk(g.Group(g.K("ORDER BY"), g.List("orderBy", g.Ref{Kind: "OrderItem"}, g.Comma, 1)))),
				g.Opt(brk(g.Group(g.K("LIMIT"), g.S("limit", expr)))),
				g.Opt(brk(g.Group(g.K("OFFSET"), g.S("offset", expr)))),
			),
		},
		{
			Name: "CommonTableExpr",
			Rule: seq(
				g.S("name", g.Ident{}),
				g.Opt(parens(g.List("columns", g.Ident{}, g.Comma, 1))),
				g.K("AS"),
				parens(g.S("query", query)),
			),
		},
		{
			Name: KindStar,
			// Excluded from the operand category so that "*" is only
			// accepted where a star is explicitly allowed.
			Priority:   g.Exclude,
			Categories: []string{catOperand},
			Rule:       seq(g.K("*")),
		},
		{
			Name:     "QualifiedStar",
			Priority: priorityQualifiedStar,
			Rule:     seq(g.S("table", g.Ident{}), tight(g.K(".")), tight(g.K("*"))),
		},
		{
			Name: "SelectItem",
			Rule: seq(g.S("expr", expr), alias()),
		},
		{
			Name: "OrderItem",
			Rule: seq(
				g.S("expr", expr),
				g.Opt(g.S("direction", g.OneOf{Texts: []string{"ASC", "DESC"}})),
				g.Opt(g.Group(g.K("NULLS"), g.S("nulls", g.OneOf{Texts: []string{"FIRST", "LAST"}}))),
			),
		},
		{
			Name:       "InsertStmt",
			Categories: []string{catStatement},
			Rule: seq(
				g.K("INSERT INTO"),
				g.S("table", g.Ref{Kind: "TableName"}),
				g.Opt(parens(g.List("columns", g.Ident{}, g.Comma, 1))),
				brk(g.S("source", g.Alt{Kinds: []string{"ValuesClause", KindQuery}})),
				returning,
			),
		},
		{
			Name: "ValuesClause",
			Rule: seq(g.K("VALUES"), indent(g.List("rows", g.Ref{Kind: "ValuesRow"}, g.Comma, 1))),
		},
		{
			Name: "ValuesRow",
			Rule: seq(parens(g.List("values", g.Alt{Kinds: []string{"DefaultValue", KindExpr}}, g.Comma, 1))),
		},
		{Name: "DefaultValue", Rule: seq(g.K("DEFAULT"))},
		{
			Name:       "UpdateStmt",
			Categories: []string{catStatement},
			Rule: seq(
				g.K("UPDATE"),
				g.S("table", g.Ref{Kind: "TableName"}),
				brk(g.K("SET")),
				indent(g.List("assignments", g.Ref{Kind: "Assignment"}, g.Comma, 1)),
				g.Opt(brk(g.Group(g.K("FROM"), g.List("from", g.Category{Name: catTable}, g.Comma, 1)))),
				where,
				returning,
			),
		},
		{
			Name: "Assignment",
			Rule: seq(g.S("column", g.Ident{}), g.K("="), g.S("value", g.Alt{Kinds: []string{"DefaultValue", KindExpr}})),
		},
		{
			Name:       "DeleteStmt",
			Categories: []string{catStatement},
			Rule: seq(
				g.K("DELETE FROM"),
				g.S("table", g.Ref{Kind: "TableName"}),
				g.Opt(brk(g.Group(g.K("USING"), g.List("using", g.Category{Name: catTable}, g.Comma, 1)))),
				where,
				returning,
			),
		},
	}
}

func tableKinds() []*g.Kind {
	return []*g.Kind{
		{
			Name:       "TableName",
			Categories: []string{catTable},
			Rule: seq(
				bounded(g.Item{Slot: "name", Rule: g.Ident{}, Repeat: true, Min: 1, Sep: g.Lit{Text: "."}}, 3),
				alias(),
			),
		},
		{
			Name:       "DerivedTable",
			Categories: []string{catTable},
			Rule:       seq(parens(g.S("query", query)), alias()),
		},
		{
			Name: "Join",
			Rule: seq(
				g.Opt(g.S("type", g.OneOf{Texts: []string{
					"INNER", "LEFT OUTER", "LEFT", "RIGHT OUTER", "RIGHT", "FULL OUTER", "FULL", "CROSS",
				}})),
				g.K("JOIN"),
				g.S("table", g.Category{Name: catTable}),
				g.Opt(g.Group(g.K("ON"), g.S("on", expr))),
				g.Opt(g.Group(g.K("USING"), parens(g.List("using", g.Ident{}, g.Comma, 1)))),
			),
		},
	}
}

func ddlKinds() []*g.Kind {
	return []*g.Kind{
		{
			Name:       KindCreateTable,
			Categories: []string{catStatement},
			Rule: seq(
				g.K("CREATE TABLE"),
				g.Opt(g.S("ifNotExists", g.Lit{Text: "IF NOT EXISTS"})),
				bounded(g.Item{Slot: "table", Rule: g.Ident{}, Repeat: true, Min: 1, Sep: g.Lit{Text: "."}}, 3),
				g.Item{Rule: g.Block{
					Delim:  token.ParenBlock,
					Inner:  seq(brk(g.List("elements", g.Category{Name: catTableElement}, g.Comma, 1))),
					Indent: true,
				}},
			),
		},
		{
			Name:       KindColumnDef,
			Categories: []string{catTableElement},
			Rule: seq(
				g.S("name", g.Ident{}),
				g.S("type", g.Ref{Kind: KindTypeName}),
				g.List("constraints", g.Category{Name: catColumnConstraint}, nil, 0),
			),
		},
		{
			Name: KindTypeName,
			Rule: seq(
				g.S("name", g.Ident{}),
				g.Opt(g.S("modifier", g.OneOf{Texts: []string{"PRECISION", "VARYING"}})),
				g.Opt(tight(parens(g.List("params", g.Number{}, g.Comma, 1)))),
				g.Opt(g.S("zone", g.OneOf{Texts: []string{"WITH TIME ZONE", "WITHOUT TIME ZONE"}})),
			),
		},
		{Name: "NotNullColumn", Categories: []string{catColumnConstraint}, Rule: seq(g.K("NOT NULL"))},
		{Name: "NullColumn", Categories: []string{catColumnConstraint}, Rule: seq(g.K("NULL"))},
		{Name: "PrimaryKeyColumn", Categories: []string{catColumnConstraint}, Rule: seq(g.K("PRIMARY KEY"))},
		{Name: "UniqueColumn", Categories: []string{catColumnConstraint}, Rule: seq(g.K("UNIQUE"))},
		{
			Name:       "DefaultColumn",
			Categories: []string{catColumnConstraint},
			Rule:       seq(g.K("DEFAULT"), g.S("value", expr)),
		},
		{
			Name:       "ReferencesColumn",
			Categories: []string{catColumnConstraint},
			Rule: seq(
				g.K("REFERENCES"),
				g.S("table", g.Ident{}),
				g.Opt(parens(g.List("columns", g.Ident{}, g.Comma, 1))),
			),
		},
		{
			Name:       "CheckColumn",
			Categories: []string{catColumnConstraint},
			Rule:       seq(g.K("CHECK"), parens(g.S("expr", expr))),
		},
	}
}

func expressionKinds() []*g.Kind {
	return []*g.Kind{
		{Name: KindExpr, Rule: g.Ref{Kind: "OrExpr"}},
		{
			Name:     "OrExpr",
			Rule:     seq(g.List("operands", g.Ref{Kind: "AndExpr"}, g.Lit{Text: "OR"}, 1)),
			Collapse: "operands",
			DataType: boolean,
		},
		{
			Name:     "AndExpr",
			Rule:     seq(g.List("operands", g.Category{Name: catPredicate}, g.Lit{Text: "AND"}, 1)),
			Collapse: "operands",
			DataType: boolean,
		},
		{
			Name:       "NotExpr",
			Categories: []string{catPredicate},
			Rule:       seq(g.K("NOT"), g.S("operand", g.Category{Name: catPredicate})),
			DataType:   boolean,
		},
		{
			Name:       "IsNull",
			Categories: []string{catPredicate},
			Rule:       seq(g.S("operand", g.Ref{Kind: KindAdditive}), g.K("IS"), not(), g.K("NULL")),
			DataType:   boolean,
		},
		{
			Name:       "Between",
			Categories: []string{catPredicate},
			Rule: seq(
				g.S("operand", g.Ref{Kind: KindAdditive}), not(), g.K("BETWEEN"),
				g.S("low", g.Ref{Kind: KindAdditive}), g.K("AND"), g.S("high", g.Ref{Kind: KindAdditive}),
			),
			DataType: boolean,
		},
		{
			// Declared before InList: a parenthesized query must not be read
			// as a one-element list.
			Name:       "InSubquery",
			Categories: []string{catPredicate},
			Rule:       seq(g.S("operand", g.Ref{Kind: KindAdditive}), not(), g.K("IN"), parens(g.S("query", query))),
			DataType:   boolean,
		},
		{
			Name:       "InList",
			Categories: []string{catPredicate},
			Rule: seq(
				g.S("operand", g.Ref{Kind: KindAdditive}), not(), g.K("IN"),
				parens(g.List("items", expr, g.Comma, 1)),
			),
			DataType: boolean,
		},
		{
			Name:       "Like",
			Categories: []string{catPredicate},
			Rule: seq(
				g.S("operand", g.Ref{Kind: KindAdditive}), not(),
				g.S("op", g.OneOf{Texts: []string{"LIKE", "ILIKE"}}),
				g.S("pattern", g.Ref{Kind: KindAdditive}),
			),
			DataType: boolean,
		},
		{
			Name:       KindComparison,
			Categories: []string{catPredicate},
			Rule: seq(
				g.S("left", g.Ref{Kind: KindAdditive}),
				g.S("op", g.OneOf{Texts: []string{"=", "<>", "!=", "<=", ">=", "<", ">"}}),
				g.S("right", g.Ref{Kind: KindAdditive}),
			),
			DataType: boolean,
		},
		{
			Name:       "Exists",
			Categories: []string{catPredicate},
			Rule:       seq(g.K("EXISTS"), parens(g.S("query", query))),
			DataType:   boolean,
		},
		{
			Name:       KindAdditive,
			Categories: []string{catPredicate},
			Rule: seq(g.Item{
				Slot: "operands", Rule: g.Ref{Kind: KindMultiplicative},
				Repeat: true, Min: 1, Max: g.Unbounded,
				Sep: g.OneOf{Texts: []string{"+", "-", "||"}}, KeepSeps: true,
			}),
			Collapse: "operands",
			DataType: arithmetic,
		},
		{
			Name: KindMultiplicative,
			Rule: seq(g.Item{
				Slot: "operands", Rule: g.Category{Name: catOperand},
				Repeat: true, Min: 1, Max: g.Unbounded,
				Sep: g.OneOf{Texts: []string{"*", "/", "%"}}, KeepSeps: true,
			}),
			Collapse: "operands",
			DataType: arithmetic,
		},
		{
			Name:       "SignedExpr",
			Categories: []string{catOperand},
			Rule:       seq(g.S("sign", g.OneOf{Texts: []string{"-", "+"}}), tight(g.S("operand", g.Category{Name: catOperand}))),
			DataType:   operandType("operand"),
		},
		{
			Name:       KindCastShorthand,
			Categories: []string{catOperand},
			Priority:   priorityCastShorthand,
			Dialects:   castDialects,
			Rule: seq(
				g.S("operand", g.Category{Name: catPrimary}),
				tight(g.K("::")),
				tight(g.S("type", g.Ref{Kind: KindTypeName})),
			),
			MorphsTo: KindCastExpr,
			Morph:    morphCast,
			DataType: castType,
		},
	}
}

func primaryKinds() []*g.Kind {
	primary := []string{catOperand, catPrimary}
	return []*g.Kind{
		{
			Name:       "SubqueryExpr",
			Categories: primary,
			Priority:   prioritySubquery,
			Rule:       seq(parens(g.S("query", query))),
		},
		{
			Name:       "RowExpr",
			Categories: primary,
			Priority:   priorityRow,
			Rule:       seq(parens(g.List("items", expr, g.Comma, 2))),
		},
		{
			Name:       "ParenExpr",
			Categories: primary,
			Rule:       seq(parens(g.S("expr", expr))),
			DataType:   operandType("expr"),
		},
		{
			Name:       KindNumberLit,
			Categories: primary,
			Rule:       seq(g.S("value", g.Number{})),
			DataType:   operandType("value"),
		},
		{
			Name:       KindStringLit,
			Categories: primary,
			Rule:       seq(g.S("value", g.String{})),
			DataType:   fixed(ast.Text),
		},
		{
			Name:       "BoolLit",
			Categories: primary,
			Rule:       seq(g.S("value", g.OneOf{Texts: []string{"TRUE", "FALSE"}})),
			DataType:   boolean,
		},
		{
			Name:       "NullLit",
			Categories: primary,
			Rule:       seq(g.K("NULL")),
			DataType:   fixed(ast.Null),
		},
		{
			Name:       "ParamRef",
			Categories: primary,
			Rule:       seq(g.S("value", g.Param{})),
		},
		{
			Name:       KindCastExpr,
			Categories: primary,
			Rule: seq(
				g.K("CAST"),
				tight(parens(g.S("expr", expr), g.K("AS"), g.S("type", g.Ref{Kind: KindTypeName}))),
			),
			DataType: castType,
		},
		{
			Name:       "CaseExpr",
			Categories: primary,
			Rule: seq(
				g.K("CASE"),
				g.Opt(g.S("operand", expr)),
				indent(g.List("whens", g.Ref{Kind: "WhenClause"}, nil, 1)),
				g.Opt(indent(g.Group(g.K("ELSE"), g.S("else", expr)))),
				brk(g.K("END")),
			),
			DataType: caseType,
		},
		{
			Name: "WhenClause",
			Rule: seq(g.K("WHEN"), g.S("when", expr), g.K("THEN"), g.S("then", expr)),
		},
		{
			Name:       KindFunctionCall,
			Categories: primary,
			Refines:    []string{KindColumnRef},
			Rule: seq(
				g.S("name", g.Ident{}),
				tight(parens(
					g.Opt(g.S("distinct", g.Lit{Text: "DISTINCT"})),
					g.List("args", g.Alt{Kinds: []string{KindExpr, KindStar}}, g.Comma, 0),
				)),
			),
			DataType: functionType,
		},
		{
			Name:       "QualifiedColumnRef",
			Categories: primary,
			Refines:    []string{KindColumnRef},
			Rule:       seq(g.S("table", g.Ident{}), tight(g.K(".")), tight(g.S("column", g.Ident{}))),
		},
		{
			Name:       KindColumnRef,
			Categories: primary,
			Rule:       seq(g.S("name", g.Ident{})),
		},
		{
			Name:       KindObjectLiteral,
			Categories: primary,
			Dialects:   []string{dialect.NamePostgres, dialect.NameDuckDB},
			Rule:       seq(block(token.BraceBlock, g.List("entries", g.Ref{Kind: "ObjectEntry"}, g.Comma, 0))),
			MorphsTo:   KindFunctionCall,
			Morph:      morphObject,
			DataType:   fixed(ast.JSON),
		},
		{
			Name: "ObjectEntry",
			Rule: seq(g.S("key", g.String{}), tight(g.K(":")), g.S("value", expr)),
		},
		{
			Name:       KindArrayLiteral,
			Categories: primary,
			// "array" is an ordinary word in some dialects
			Priority: priorityArray,
			Dialects: arrayLiteralDialects,
			Rule: seq(
				g.Opt(g.S("array", g.Lit{Text: "ARRAY"})),
				block(token.BracketBlock, g.List("items", expr, g.Comma, 0)),
			),
			MorphsTo: KindFunctionCall,
			Morph:    morphArray,
			DataType: fixed(ast.Array),
		},
	}
}
