package sqlgrammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/leapstack-labs/sqlfront/pkg/sqlgrammar"
)

func TestDataType(t *testing.T) {
	tests := []struct {
		name    string
		dialect *dialect.Dialect
		src     string
		want    ast.DataType
	}{
		{"integer", nil, "1", ast.Integer},
		{"decimal", nil, "1.5", ast.Numeric},
		{"scientific", nil, "1e3", ast.Numeric},
		{"string", nil, "'a'", ast.Text},
		{"null", nil, "NULL", ast.Null},
		{"bool", nil, "TRUE", ast.Boolean},
		{"column", nil, "a", ast.Unknown},
		{"comparison", nil, "a = 1", ast.Boolean},
		{"and", nil, "a AND b", ast.Boolean},
		{"not", nil, "NOT a", ast.Boolean},
		{"in", nil, "a IN (1, 2)", ast.Boolean},
		{"integer sum", nil, "1 + 2 * 3", ast.Integer},
		{"widened", nil, "1 + 2.5", ast.Numeric},
		{"unknown operand", nil, "1 + a", ast.Unknown},
		{"concat", nil, "a || 'b'", ast.Text},
		{"division", nil, "4 / 2", ast.Integer},
		{"mysql division", dialect.MySQL, "4 / 2", ast.Numeric},
		{"parens", nil, "(1.5)", ast.Numeric},
		{"signed", nil, "-1", ast.Integer},
		{"cast", nil, "CAST(a AS bigint)", ast.Integer},
		{"cast varying", nil, "CAST(a AS character varying(10))", ast.Text},
		{"cast timestamptz", nil, "CAST(a AS timestamp WITH TIME ZONE)", ast.Timestamp},
		{"cast shorthand", dialect.Postgres, "a::text", ast.Text},
		{"custom type", dialect.Postgres, "a::uuid", ast.DataType{Name: "uuid"}},
		{"case", nil, "CASE WHEN a THEN NULL WHEN b THEN 'x' END", ast.Text},
		{"case else", nil, "CASE WHEN a THEN b ELSE 2 END", ast.Integer},
		{"count", nil, "COUNT(*)", ast.Integer},
		{"sum of numeric", nil, "sum(1.5)", ast.Numeric},
		{"coalesce", nil, "coalesce(NULL, 'x')", ast.Text},
		{"unknown function", nil, "f(1)", ast.Unknown},
		{"object", dialect.Postgres, "{'a': 1}", ast.JSON},
		{"array", dialect.DuckDB, "[1, 2]", ast.Array},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := parser.ParseKind(sqlgrammar.KindExpr, tt.src, parser.Options{Dialect: tt.dialect})
			require.NoError(t, err)
			assert.Equal(t, tt.want, sqlgrammar.DataType(n, tt.dialect))
		})
	}
}

func TestTypeNameOf(t *testing.T) {
	n, err := parser.ParseKind(sqlgrammar.KindTypeName, "double precision", parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, ast.Numeric, sqlgrammar.TypeNameOf(n))
	assert.Equal(t, ast.Unknown, sqlgrammar.TypeNameOf(nil))
}

func TestTableIsValid(t *testing.T) {
	tbl := sqlgrammar.Table()
	assert.Same(t, tbl, sqlgrammar.Table())
	assert.Equal(t, sqlgrammar.KindScript, tbl.Entry())

	for _, name := range []string{
		sqlgrammar.KindSelect, sqlgrammar.KindCastShorthand, sqlgrammar.KindObjectLiteral,
		"PrimaryKeyConstraint", "ForeignKeyConstraint", "UniqueConstraint", "CheckConstraint",
	} {
		assert.True(t, tbl.Known(name), name)
	}

	all, required := tbl.Slots(sqlgrammar.KindSelect)
	assert.Subset(t, all, []string{"with", "distinct", "columns", "from", "joins", "where", "orderBy", "limit"})
	assert.Equal(t, []string{"columns"}, required)
}

func TestArrayMorphWithoutSpelling(t *testing.T) {
	n, err := parser.ParseKind(sqlgrammar.KindExpr, "ARRAY[1, 2]", parser.Options{Dialect: dialect.Postgres})
	require.NoError(t, err)
	k, ok := sqlgrammar.Table().Kind(n.Kind)
	require.True(t, ok)

	_, err = k.Morph(n, dialect.ANSI)
	var ue *sqlgrammar.UnsupportedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, sqlgrammar.KindArrayLiteral, ue.Kind)
	assert.Equal(t, dialect.NameANSI, ue.Dialect)
}

func TestMorphs(t *testing.T) {
	tbl := sqlgrammar.Table()
	tests := []struct {
		name    string
		from    *dialect.Dialect
		src     string
		to      *dialect.Dialect
		kind    string
		fnName  string
		numArgs int
	}{
		{"cast", dialect.Postgres, "a::int", dialect.MySQL, sqlgrammar.KindCastExpr, "", 0},
		{"object to mysql", dialect.Postgres, "{'a': 1, 'b': 2}", dialect.MySQL, sqlgrammar.KindFunctionCall, "JSON_OBJECT", 4},
		{"object to postgres", dialect.DuckDB, "{'a': 1}", dialect.Postgres, sqlgrammar.KindFunctionCall, "json_build_object", 2},
		{"array to sqlite", dialect.DuckDB, "[1, 2, 3]", dialect.SQLite, sqlgrammar.KindFunctionCall, "json_array", 3},
		{"array kept", dialect.DuckDB, "[1]", dialect.Postgres, sqlgrammar.KindArrayLiteral, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := parser.ParseKind(sqlgrammar.KindExpr, tt.src, parser.Options{Dialect: tt.from})
			require.NoError(t, err)
			k, ok := tbl.Kind(n.Kind)
			require.True(t, ok)
			require.NotNil(t, k.Morph)

			out, err := k.Morph(n, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, out.Kind)
			if tt.fnName != "" {
				assert.Equal(t, tt.fnName, out.Text("name"))
				assert.Len(t, out.Items("args"), tt.numArgs)
			}
		})
	}
}
