package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/leapstack-labs/sqlfront/pkg/sqlgrammar"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

func statement(t *testing.T, src string, d *dialect.Dialect) *ast.Node {
	t.Helper()
	script, err := parser.Parse(src, parser.Options{Dialect: d})
	require.NoError(t, err)
	require.Equal(t, sqlgrammar.KindScript, script.Kind)
	stmts := script.Items("statements")
	require.Len(t, stmts, 1)
	return stmts[0].(*ast.Node)
}

func column(n *ast.Node, i int) *ast.Node {
	item := n.Items("columns")[i].(*ast.Node)
	if item.Kind == "SelectItem" {
		return item.Child("expr")
	}
	return item
}

func TestParseSelect(t *testing.T) {
	got := statement(t, "SELECT a, b FROM t WHERE x = 1", nil)

	item := func(name string) ast.Value {
		return ast.New("SelectItem", ast.F("expr", ast.New("ColumnRef", ast.F("name", ast.Word(name)))))
	}
	want := ast.New(sqlgrammar.KindSelect,
		ast.F("columns", ast.List{Items: []ast.Value{item("a"), item("b")}}),
		ast.F("from", ast.List{Items: []ast.Value{
			ast.New("TableName", ast.F("name", ast.List{Items: []ast.Value{ast.Word("t")}})),
		}}),
		ast.F("where", ast.New(sqlgrammar.KindComparison,
			ast.F("left", ast.New("ColumnRef", ast.F("name", ast.Word("x")))),
			ast.F("op", ast.Lit{Token: token.Operator, Text: "="}),
			ast.F("right", ast.New("NumberLit", ast.F("value", ast.Number("1")))),
		)),
	)
	assert.True(t, ast.Equal(want, got), "got %v", ast.ToPortable(got))
	assert.Equal(t, 0, got.Span.Start.Offset)
	assert.Equal(t, 30, got.Span.End.Offset)
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		name    string
		dialect *dialect.Dialect
		src     string
		kind    string
	}{
		{"column", nil, "SELECT a", "ColumnRef"},
		{"function beats column", nil, "SELECT count(x)", "FunctionCall"},
		{"count star", nil, "SELECT count(*)", "FunctionCall"},
		{"qualified column", nil, "SELECT t.a", "QualifiedColumnRef"},
		{"qualified star", nil, "SELECT t.*", "QualifiedStar"},
		{"star", nil, "SELECT *", "Star"},
		{"subquery beats parens", nil, "SELECT (SELECT 1)", "SubqueryExpr"},
		{"row beats parens", nil, "SELECT (1, 2)", "RowExpr"},
		{"parens", nil, "SELECT (1 + 2)", "ParenExpr"},
		{"additive", nil, "SELECT a + b * c", "Additive"},
		{"multiplicative", nil, "SELECT a * b", "Multiplicative"},
		{"signed", nil, "SELECT -a", "SignedExpr"},
		{"between", nil, "SELECT a BETWEEN 1 AND 2", "Between"},
		{"in list", nil, "SELECT a IN (1, 2)", "InList"},
		{"in single", nil, "SELECT a IN (1)", "InList"},
		{"in subquery", nil, "SELECT a NOT IN (SELECT b FROM t)", "InSubquery"},
		{"is null", nil, "SELECT a IS NOT NULL", "IsNull"},
		{"like", nil, "SELECT a LIKE 'x%'", "Like"},
		{"and", nil, "SELECT a = 1 AND b = 2", "AndExpr"},
		{"or", nil, "SELECT a OR NOT b", "OrExpr"},
		{"exists", nil, "SELECT EXISTS (SELECT 1)", "Exists"},
		{"case", nil, "SELECT CASE WHEN a THEN 1 ELSE 2 END", "CaseExpr"},
		{"cast", nil, "SELECT CAST(a AS numeric(10, 2))", "CastExpr"},
		{"bool", nil, "SELECT TRUE", "BoolLit"},
		{"null", nil, "SELECT NULL", "NullLit"},
		{"param", dialect.Postgres, "SELECT $1", "ParamRef"},
		{"named param", dialect.SQLite, "SELECT :name", "ParamRef"},
		{"named param in comparison", nil, "SELECT a = :id", "Comparison"},
		{"cast shorthand", dialect.Postgres, "SELECT a::int", "CastShorthand"},
		{"object literal", dialect.Postgres, "SELECT {'a': 1}", "ObjectLiteral"},
		{"array literal", dialect.Postgres, "SELECT ARRAY[1, 2]", "ArrayLiteral"},
		{"duckdb array word", dialect.DuckDB, "SELECT array[1]", "ArrayLiteral"},
		{"duckdb list", dialect.DuckDB, "SELECT [1, 2]", "ArrayLiteral"},
		{"dollar string", dialect.Postgres, "SELECT $$x$$", "StringLit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := statement(t, tt.src, tt.dialect)
			assert.Equal(t, tt.kind, column(stmt, 0).Kind)
		})
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind string
	}{
		{"union", "SELECT a FROM t UNION ALL SELECT b FROM u", "SetOperation"},
		{"with", "WITH x (a) AS (SELECT 1) SELECT a FROM x", "SelectStmt"},
		{"joins", "SELECT * FROM t AS a LEFT JOIN u b ON a.id = b.id CROSS JOIN v", "SelectStmt"},
		{"derived", "SELECT * FROM (SELECT 1) AS d", "SelectStmt"},
		{"clauses", "SELECT a, count(*) FROM s.t GROUP BY a HAVING count(*) > 1 ORDER BY a DESC NULLS LAST LIMIT 10 OFFSET 5", "SelectStmt"},
		{"insert", "INSERT INTO t (a, b) VALUES (1, DEFAULT), (2, 3)", "InsertStmt"},
		{"insert select", "INSERT INTO t SELECT * FROM u", "InsertStmt"},
		{"update", "UPDATE t SET a = 1, b = DEFAULT WHERE c IS NULL", "UpdateStmt"},
		{"delete", "DELETE FROM t WHERE a < 0", "DeleteStmt"},
		{"create", "CREATE TABLE IF NOT EXISTS s.t (id integer PRIMARY KEY, name varchar(20) NOT NULL DEFAULT 'x', CHECK (id > 0))", "CreateTableStmt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, statement(t, tt.src, nil).Kind)
		})
	}
}

func TestParseScript(t *testing.T) {
	script, err := parser.Parse("SELECT 1; -- one\nSELECT 2;", parser.Options{})
	require.NoError(t, err)
	assert.Len(t, script.Items("statements"), 2)
	assert.True(t, script.Has("terminator"))
}

func TestParseExpressionShape(t *testing.T) {
	n, err := parser.ParseKind(sqlgrammar.KindExpr, "a + b * c - d", parser.Options{})
	require.NoError(t, err)
	require.Equal(t, sqlgrammar.KindAdditive, n.Kind)

	v, _ := n.Get("operands")
	operands := v.(ast.List)
	require.Len(t, operands.Items, 3)
	assert.Equal(t, []string{"+", "-"}, operands.Seps)
	assert.Equal(t, sqlgrammar.KindMultiplicative, operands.Items[1].(*ast.Node).Kind)
}

func TestParseStarOnlyWhereAllowed(t *testing.T) {
	_, err := parser.ParseKind(sqlgrammar.KindExpr, "*", parser.Options{})
	require.Error(t, err)

	_, err = parser.ParseKind(sqlgrammar.KindExpr, "count(*)", parser.Options{})
	require.NoError(t, err)
}

func TestParseDialectRestrictedKinds(t *testing.T) {
	for _, src := range []string{"SELECT a::int", "SELECT {'a': 1}", "SELECT [1]"} {
		_, err := parser.Parse(src, parser.Options{Dialect: dialect.MySQL})
		var se *parser.SyntaxError
		assert.True(t, errors.As(err, &se), "%s: got %v", src, err)
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := parser.Parse("SELECT a FROM", parser.Options{})
	var se *parser.SyntaxError
	require.True(t, errors.As(err, &se), "got %v", err)

	assert.Equal(t, 1, se.Furthest.Line)
	assert.Equal(t, 14, se.Furthest.Column)
	assert.Equal(t, 13, se.Furthest.Offset)
	assert.Equal(t, "end of input", se.Found)
	assert.Equal(t, []string{`"("`, "identifier"}, se.Expected)
	assert.Contains(t, se.Error(), "line 1, column 14")
}

func TestParseSyntaxErrorInsideBlock(t *testing.T) {
	_, err := parser.Parse("SELECT CAST(a AS)", parser.Options{})
	var se *parser.SyntaxError
	require.True(t, errors.As(err, &se), "got %v", err)

	// the position of the closing parenthesis, not past it
	assert.Equal(t, 16, se.Furthest.Offset)
	assert.Equal(t, 17, se.Furthest.Column)
}

func TestParseTrailingInput(t *testing.T) {
	_, err := parser.Parse("SELECT a b c", parser.Options{})
	var se *parser.SyntaxError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, 11, se.Furthest.Offset)
	assert.Equal(t, `"c"`, se.Found)
}

func TestParseStructuralError(t *testing.T) {
	_, err := parser.Parse("SELECT f(a b)", parser.Options{})
	var se *parser.StructuralError
	require.True(t, errors.As(err, &se), "got %v", err)

	assert.Equal(t, 11, se.Pos.Offset)
	assert.True(t, strings.HasSuffix(se.Path, "FunctionCall"), se.Path)
	assert.True(t, strings.HasPrefix(se.Path, "Script > "), se.Path)
	assert.Contains(t, se.Message, `"b"`)
}

func TestParseDepthLimit(t *testing.T) {
	deep := "SELECT " + strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300)
	_, err := parser.Parse(deep, parser.Options{})
	var de *parser.DepthError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, parser.DefaultMaxDepth, de.Limit)

	_, err = parser.Parse("SELECT 1", parser.Options{MaxDepth: 3})
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, 3, de.Limit)

	shallow := "SELECT " + strings.Repeat("(", 20) + "1" + strings.Repeat(")", 20)
	_, err = parser.Parse(shallow, parser.Options{})
	assert.NoError(t, err)
}

func TestParseEmpty(t *testing.T) {
	for _, src := range []string{"", "  -- nothing\n"} {
		_, err := parser.Parse(src, parser.Options{})
		assert.ErrorIs(t, err, parser.ErrEmptyInput)
	}
}

func TestParseLexError(t *testing.T) {
	_, err := parser.Parse("SELECT 'open", parser.Options{})
	var le *parser.LexError
	assert.True(t, errors.As(err, &le), "got %v", err)
}

func TestParseUnknownKind(t *testing.T) {
	_, err := parser.ParseKind("Nope", "a", parser.Options{})
	assert.ErrorContains(t, err, `unknown kind "Nope"`)
}

func TestParseDeterministic(t *testing.T) {
	src := "SELECT a, f(b, c) AS d FROM t JOIN u USING (id) WHERE a IN (1, 2) AND b LIKE 'x'"
	first, err := parser.Parse(src, parser.Options{})
	require.NoError(t, err)
	for range 5 {
		again, err := parser.Parse(src, parser.Options{})
		require.NoError(t, err)
		assert.True(t, ast.Equal(first, again))
		assert.Equal(t, ast.ToPortable(first), ast.ToPortable(again))
	}

	_, err1 := parser.Parse("SELECT a FROM WHERE", parser.Options{})
	_, err2 := parser.Parse("SELECT a FROM WHERE", parser.Options{})
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
}

func TestParseTokensIgnoresTrivia(t *testing.T) {
	toks, err := parser.TokenizeString("SELECT /* c */ a -- d\n FROM t", parser.TokenizeOptions{
		StructuredBlocks: true,
		EmitComments:     true,
		EmitWhitespace:   true,
	})
	require.NoError(t, err)

	withTrivia, err := parser.ParseTokens(sqlgrammar.KindScript, toks, parser.Options{})
	require.NoError(t, err)
	plain, err := parser.Parse("SELECT a FROM t", parser.Options{})
	require.NoError(t, err)
	assert.True(t, ast.Equal(plain, withTrivia))
}

func TestParseReader(t *testing.T) {
	n, err := parser.ParseReader(strings.NewReader("SELECT a FROM t"), parser.Options{})
	require.NoError(t, err)
	assert.Len(t, n.Items("statements"), 1)
}

func TestPortableRoundTripParsed(t *testing.T) {
	inputs := []string{
		"SELECT DISTINCT a AS x, \"Mixed Case\", 'str', 1.5 FROM s.t WHERE a || 'b' = 'c' ORDER BY 1",
		"CREATE TABLE t (id int, CONSTRAINT pk PRIMARY KEY (id))",
		"UPDATE t SET a = a + 1 RETURNING *",
	}
	for _, src := range inputs {
		n, err := parser.Parse(src, parser.Options{})
		require.NoError(t, err)
		back, err := ast.FromPortable(ast.ToPortable(n), sqlgrammar.Table())
		require.NoError(t, err, src)
		assert.True(t, ast.Equal(n, back), src)
	}
}
