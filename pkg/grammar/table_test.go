package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/grammar"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

func names(kinds []*grammar.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.Name
	}
	return out
}

func testTable(t *testing.T) *grammar.Table {
	t.Helper()
	tbl, err := grammar.NewTable("Root",
		&grammar.Kind{Name: "Root", Rule: grammar.Seq{Items: []grammar.Item{
			grammar.S("value", grammar.Category{Name: "value"}),
		}}},
		&grammar.Kind{Name: "Word", Categories: []string{"value"}, Rule: grammar.Seq{Items: []grammar.Item{
			grammar.S("name", grammar.Ident{}),
		}}},
		// Call begins with a Word, so it refines Word.
		&grammar.Kind{Name: "Call", Categories: []string{"value"}, Rule: grammar.Seq{Items: []grammar.Item{
			grammar.S("callee", grammar.Ref{Kind: "Word"}),
			{Rule: grammar.Parens(grammar.List("items", grammar.Ref{Kind: "Word"}, grammar.Comma, 0))},
		}}},
		&grammar.Kind{Name: "Dotted", Categories: []string{"value"}, Refines: []string{"Word"}, Rule: grammar.Seq{Items: []grammar.Item{
			grammar.S("table", grammar.Ident{}), grammar.K("."), grammar.S("name", grammar.Ident{}),
		}}},
		&grammar.Kind{Name: "Star", Categories: []string{"value"}, Priority: grammar.Exclude, Rule: grammar.Lit{Text: "*"}},
		&grammar.Kind{Name: "Urgent", Categories: []string{"value"}, Priority: 10, Rule: grammar.Seq{Items: []grammar.Item{
			grammar.K("!"), grammar.S("name", grammar.Ident{}),
		}}},
	)
	require.NoError(t, err)
	return tbl
}

func TestOrderSpecificity(t *testing.T) {
	tbl := testTable(t)

	assert.Equal(t, 0, tbl.Depth("Word"))
	assert.Equal(t, 1, tbl.Depth("Call"))
	assert.Equal(t, 1, tbl.Depth("Dotted"))

	assert.Equal(t, []string{"Call", "Word"}, names(tbl.Order([]string{"Word", "Call"})))
	assert.Equal(t, []string{"Call", "Word"}, names(tbl.Order([]string{"Call", "Word"})))
}

func TestOrderPriorityBeatsSpecificity(t *testing.T) {
	tbl := testTable(t)
	got := names(tbl.Order([]string{"Word", "Call", "Urgent"}))
	assert.Equal(t, []string{"Urgent", "Call", "Word"}, got)
}

func TestCategoryExclusion(t *testing.T) {
	tbl := testTable(t)

	got := names(tbl.Category("value"))
	assert.Equal(t, []string{"Urgent", "Call", "Dotted", "Word"}, got)
	assert.NotContains(t, got, "Star")

	// explicit references still reach excluded kinds
	assert.Equal(t, []string{"Word", "Star"}, names(tbl.Order([]string{"Star", "Word"})))
	assert.Equal(t, []string{"Star"}, names(tbl.Candidates(grammar.Ref{Kind: "Star"})))
}

func TestOrderDeterministic(t *testing.T) {
	tbl := testTable(t)
	first := names(tbl.Order([]string{"Dotted", "Word", "Call"}))
	for range 50 {
		assert.Equal(t, first, names(tbl.Order([]string{"Dotted", "Word", "Call"})))
	}
	// declaration order breaks the Call/Dotted tie
	assert.Equal(t, []string{"Call", "Dotted", "Word"}, first)
}

func TestSlots(t *testing.T) {
	tbl := testTable(t)

	all, required := tbl.Slots("Call")
	assert.Equal(t, []string{"callee", "items"}, all)
	assert.Equal(t, []string{"callee"}, required)
	assert.True(t, tbl.Known("Dotted"))
	assert.False(t, tbl.Known("Nope"))
}

func TestNewTableValidation(t *testing.T) {
	ident := grammar.S("name", grammar.Ident{})

	tests := []struct {
		name    string
		kinds   []*grammar.Kind
		wantErr string
	}{
		{
			name:    "unknown ref",
			kinds:   []*grammar.Kind{{Name: "Root", Rule: grammar.Ref{Kind: "Missing"}}},
			wantErr: "unknown kind Missing",
		},
		{
			name: "optional without slot",
			kinds: []*grammar.Kind{{Name: "Root", Rule: grammar.Seq{Items: []grammar.Item{
				grammar.Opt(grammar.K("DISTINCT")), ident,
			}}}},
			wantErr: "optional item must bind a slot",
		},
		{
			name: "repeat without slot",
			kinds: []*grammar.Kind{{Name: "Root", Rule: grammar.Seq{Items: []grammar.Item{
				{Rule: grammar.Ident{}, Repeat: true, Max: grammar.Unbounded},
			}}}},
			wantErr: "repeated item must bind a slot",
		},
		{
			name: "left recursion",
			kinds: []*grammar.Kind{{Name: "Root", Rule: grammar.Seq{Items: []grammar.Item{
				grammar.S("left", grammar.Ref{Kind: "Root"}), grammar.K("+"), ident,
			}}}},
			wantErr: "left recursive",
		},
		{
			name: "refinement cycle",
			kinds: []*grammar.Kind{
				{Name: "Root", Refines: []string{"Other"}, Rule: grammar.Seq{Items: []grammar.Item{ident}}},
				{Name: "Other", Refines: []string{"Root"}, Rule: grammar.Seq{Items: []grammar.Item{ident}}},
			},
			wantErr: "refinement cycle",
		},
		{
			name:    "empty category",
			kinds:   []*grammar.Kind{{Name: "Root", Rule: grammar.Category{Name: "nothing"}}},
			wantErr: "category nothing has no members",
		},
		{
			name: "morph without target",
			kinds: []*grammar.Kind{{Name: "Root", Rule: grammar.Seq{Items: []grammar.Item{ident}},
				Morph: func(n *ast.Node, _ *dialect.Dialect) (*ast.Node, error) { return n, nil }}},
			wantErr: "MorphsTo and Morph must be set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.NewTable("Root", tt.kinds...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDataTypeLiterals(t *testing.T) {
	tbl := testTable(t)
	assert.Equal(t, ast.Integer, tbl.DataType(ast.Number("42"), nil))
	assert.Equal(t, ast.Numeric, tbl.DataType(ast.Number("4.2"), nil))
	assert.Equal(t, ast.Text, tbl.DataType(ast.Lit{Token: token.DollarString, Text: "x"}, nil))
	assert.Equal(t, ast.Unknown, tbl.DataType(ast.New("Word", ast.F("name", ast.Word("a"))), nil))
}
