package parser_test

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// chunked splits src into pieces of n bytes, ignoring rune boundaries.
func chunked(src string, n int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(src) > 0 {
			k := min(n, len(src))
			if !yield(src[:k]) {
				return
			}
			src = src[k:]
		}
	}
}

func collect(t *testing.T, seq iter.Seq2[token.Token, error]) []token.Token {
	t.Helper()
	var toks []token.Token
	for tok, err := range seq {
		require.NoError(t, err)
		toks = append(toks, tok)
	}
	return toks
}

func TestTokenizeBlocks(t *testing.T) {
	toks, err := parser.TokenizeString("(a, b, (c, d))", parser.TokenizeOptions{StructuredBlocks: true})
	require.NoError(t, err)
	require.Len(t, toks, 2)

	outer := toks[0]
	assert.Equal(t, token.ParenBlock, outer.Kind)
	assert.Equal(t, token.EOF, toks[1].Kind)
	require.Len(t, outer.Children, 5)

	inner := outer.Children[4]
	assert.Equal(t, token.ParenBlock, inner.Kind)
	assert.Equal(t, "(c, d)", token.Source(inner))
	assert.Equal(t, " ", inner.Leading)
	assert.Equal(t, 7, inner.Span.Start.Offset)
	assert.Equal(t, 13, inner.Span.End.Offset)
}

func TestTokenizeLossless(t *testing.T) {
	inputs := []string{
		"SELECT a, b FROM t",
		"  select /* hint */ x -- trailing\n from ( y ) ;\n",
		"SELECT f( 1 , [2, 3] , { 'k': 4 } )  ",
		"",
		"\n\n",
	}
	for _, src := range inputs {
		for _, structured := range []bool{false, true} {
			toks, err := parser.TokenizeString(src, parser.TokenizeOptions{StructuredBlocks: structured})
			require.NoError(t, err)
			assert.Equal(t, src, token.Concat(toks), "structured=%v", structured)
			assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
		}
	}
}

func TestTokenizeChunkInvariance(t *testing.T) {
	src := "SELECT \"Ünïcode\", 'it''s', $$body$$, x::int -- note\nFROM t WHERE (a >= 1.5e-3) /* c */"
	opts := parser.TokenizeOptions{Dialect: dialect.Postgres, StructuredBlocks: true, EmitComments: true}

	want := collect(t, parser.Tokenize(parser.Text(src), opts))
	for _, n := range []int{1, 2, 3, 7, 64} {
		got := collect(t, parser.Tokenize(chunked(src, n), opts))
		assert.Equal(t, want, got, "chunk size %d", n)
	}
}

func TestTokenizeKinds(t *testing.T) {
	tests := []struct {
		name    string
		dialect *dialect.Dialect
		src     string
		kind    token.Kind
		text    string
	}{
		{"ansi double quote", dialect.ANSI, `"a b"`, token.QuotedIdent, "a b"},
		{"doubled quote", dialect.ANSI, `"a""b"`, token.QuotedIdent, `a"b`},
		{"mysql double quote", dialect.MySQL, `"x"`, token.String, "x"},
		{"mysql backtick", dialect.MySQL, "`order`", token.QuotedIdent, "order"},
		{"mysql backslash", dialect.MySQL, `'a\'b'`, token.String, "a'b"},
		{"ansi backslash kept", dialect.ANSI, `'a\b'`, token.String, `a\b`},
		{"escape string", dialect.Postgres, `E'a\nb'`, token.EscapeString, "a\nb"},
		{"dollar string", dialect.Postgres, "$$it's$$", token.DollarString, "it's"},
		{"tagged dollar", dialect.Postgres, "$fn$ $$ $fn$", token.DollarString, " $$ "},
		{"positional param", dialect.Postgres, "$12", token.Param, "$12"},
		{"question param", dialect.MySQL, "?", token.Param, "?"},
		{"named param", dialect.SQLite, ":name", token.Param, ":name"},
		{"unicode named param", dialect.Postgres, ":größe", token.Param, ":größe"},
		{"hex escape", dialect.Postgres, `E'\x41\x4a'`, token.EscapeString, "AJ"},
		{"short hex escape", dialect.Postgres, `E'\x9z'`, token.EscapeString, "\tz"},
		{"octal escape", dialect.Postgres, `E'\101\0'`, token.EscapeString, "A\x00"},
		{"octal stops at three digits", dialect.Postgres, `E'\1011'`, token.EscapeString, "A1"},
		{"unicode escape", dialect.Postgres, `E'\u00e9'`, token.EscapeString, "é"},
		{"long unicode escape", dialect.Postgres, `E'\U0001F600'`, token.EscapeString, "\U0001F600"},
		{"utf8 bytes", dialect.Postgres, `E'\xc3\xa9'`, token.EscapeString, "é"},
		{"scientific", dialect.ANSI, "1.5e-3", token.Number, "1.5e-3"},
		{"leading dot", dialect.ANSI, ".5", token.Number, ".5"},
		{"keyword", dialect.ANSI, "select", token.Keyword, "select"},
		{"identifier", dialect.ANSI, "total_1", token.Ident, "total_1"},
		{"cast operator", dialect.Postgres, "::", token.Operator, "::"},
		{"json arrow", dialect.Postgres, "->>", token.Operator, "->>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := parser.TokenizeString(tt.src, parser.TokenizeOptions{Dialect: tt.dialect})
			require.NoError(t, err)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.kind, toks[0].Kind)
			assert.Equal(t, tt.text, toks[0].Text)
			assert.Equal(t, tt.src, toks[0].Raw)
		})
	}
}

func TestTokenizeColonContexts(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []token.Kind
	}{
		{"parameters", "SELECT :a, :b", []token.Kind{token.Keyword, token.Param, token.Punct, token.Param}},
		{"after operator", "x = :id", []token.Kind{token.Ident, token.Operator, token.Param}},
		{"cast", "a::int", []token.Kind{token.Ident, token.Operator, token.Ident}},
		{"assignment", "x := y", []token.Kind{token.Ident, token.Operator, token.Ident}},
		{"slice", "a[1:n]", []token.Kind{token.Ident, token.Punct, token.Number, token.Punct, token.Ident, token.Punct}},
		{"object key", "{'k':v}", []token.Kind{token.Punct, token.String, token.Punct, token.Ident, token.Punct}},
		{"after closer", "f(x):y", []token.Kind{token.Ident, token.Punct, token.Ident, token.Punct, token.Punct, token.Ident}},
		{"colon before space", ": x", []token.Kind{token.Punct, token.Ident}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := parser.TokenizeString(tt.src, parser.TokenizeOptions{Dialect: dialect.DuckDB})
			require.NoError(t, err)
			var kinds []token.Kind
			for _, tok := range toks[:len(toks)-1] {
				kinds = append(kinds, tok.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestCloserStart(t *testing.T) {
	toks, err := parser.TokenizeString("f(\n  a )", parser.TokenizeOptions{StructuredBlocks: true})
	require.NoError(t, err)
	require.Len(t, toks, 3)

	blk := toks[1]
	require.Equal(t, token.ParenBlock, blk.Kind)
	assert.Equal(t, token.Position{Offset: 7, Line: 2, Column: 5}, blk.CloserStart())
	assert.Equal(t, toks[0].Span.End, toks[0].CloserStart())
}

func TestTokenizeSignIsOperator(t *testing.T) {
	toks, err := parser.TokenizeString("-1", parser.TokenizeOptions{})
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, token.Operator, toks[0].Kind)
	assert.Equal(t, token.Number, toks[1].Kind)
}

func TestTokenizeTrivia(t *testing.T) {
	toks, err := parser.TokenizeString("a -- x\n/* y */b", parser.TokenizeOptions{EmitComments: true})
	require.NoError(t, err)

	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{token.Ident, token.LineComment, token.BlockComment, token.Ident, token.EOF}, kinds)
	assert.Equal(t, "\n", toks[2].Leading)

	toks, err = parser.TokenizeString("a  b", parser.TokenizeOptions{EmitWhitespace: true})
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, token.Whitespace, toks[1].Kind)
	assert.Equal(t, "  ", toks[1].Text)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		dialect *dialect.Dialect
		src     string
		offset  int
		message string
	}{
		{"unterminated string", dialect.ANSI, "SELECT 'abc", 7, "unterminated string literal"},
		{"unterminated identifier", dialect.ANSI, `SELECT "abc`, 7, "unterminated quoted identifier"},
		{"unterminated comment", dialect.ANSI, "SELECT /* x", 7, "unterminated block comment"},
		{"unmatched opener", dialect.ANSI, "SELECT (1", 7, `unmatched "("`},
		{"unmatched closer", dialect.ANSI, "SELECT 1)", 8, `unmatched ")"`},
		{"mismatched closer", dialect.ANSI, "SELECT (1]", 9, `expected ")"`},
		{"unexpected character", dialect.ANSI, "SELECT `a`", 7, "unexpected character"},
		{"invalid escape", dialect.Postgres, `SELECT E'\q'`, 9, "invalid escape"},
		{"hex escape without digits", dialect.Postgres, `SELECT E'\xg'`, 9, "invalid escape"},
		{"short unicode escape", dialect.Postgres, `SELECT E'\u12'`, 9, "invalid escape"},
		{"surrogate unicode escape", dialect.Postgres, `SELECT E'\ud800'`, 9, "invalid escape"},
		{"dollar without quoting", dialect.MySQL, "SELECT $$a$$", 7, "unexpected character"},
	}
	for _, tt := range tests {
		for _, structured := range []bool{false, true} {
			t.Run(tt.name, func(t *testing.T) {
				_, err := parser.TokenizeString(tt.src, parser.TokenizeOptions{Dialect: tt.dialect, StructuredBlocks: structured})
				var le *parser.LexError
				require.True(t, errors.As(err, &le), "got %v", err)
				assert.Equal(t, tt.offset, le.Span.Start.Offset)
				assert.Contains(t, le.Message, tt.message)
			})
		}
	}
}

func TestTokenizeStopsAtUnterminatedDollar(t *testing.T) {
	src := "SELECT 1, $tag$ abc"
	for _, structured := range []bool{false, true} {
		var (
			toks  []token.Token
			errs  []error
			after int
		)
		for tok, err := range parser.Tokenize(chunked(src, 4), parser.TokenizeOptions{Dialect: dialect.Postgres, StructuredBlocks: structured}) {
			if len(errs) > 0 {
				after++
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			toks = append(toks, tok)
		}

		require.Len(t, errs, 1)
		var le *parser.LexError
		require.True(t, errors.As(errs[0], &le))
		assert.Equal(t, 10, le.Span.Start.Offset)
		assert.True(t, strings.Contains(le.Message, "$tag$"))
		assert.Zero(t, after, "nothing follows the error")
		for _, tok := range toks {
			assert.LessOrEqual(t, tok.Span.End.Offset, 10)
		}
	}
}

func TestTokenizeEarlyStop(t *testing.T) {
	var n int
	for range parser.Tokenize(parser.Text("a b c d"), parser.TokenizeOptions{}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestChunksReader(t *testing.T) {
	src := "SELECT a FROM t WHERE b = 'x'"
	var b strings.Builder
	for c := range parser.Chunks(strings.NewReader(src), 3) {
		assert.LessOrEqual(t, len(c), 3)
		b.WriteString(c)
	}
	assert.Equal(t, src, b.String())
}
