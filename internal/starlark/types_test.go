package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "float64", input: 3.5, wantStr: "3.5"},
		{name: "bool", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "string slice", input: []string{"a", "b"}, wantStr: `["a", "b"]`},
		{name: "any slice", input: []any{"x", 1, true}, wantStr: `["x", 1, True]`},
		{name: "map", input: map[string]any{"node": "ColumnRef"}, wantStr: `{"node": "ColumnRef"}`},
		{name: "unsupported", input: struct{}{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestToGo(t *testing.T) {
	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.String("items"), starlark.NewList([]starlark.Value{starlark.String("a")})))

	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{name: "none", input: starlark.None, want: nil},
		{name: "string", input: starlark.String("x"), want: "x"},
		{name: "int", input: starlark.MakeInt(7), want: int64(7)},
		{name: "float", input: starlark.Float(1.5), want: 1.5},
		{name: "bool", input: starlark.False, want: false},
		{name: "tuple", input: starlark.Tuple{starlark.String("a"), starlark.MakeInt(1)}, want: []any{"a", int64(1)}},
		{name: "dict", input: dict, want: map[string]any{"items": []any{"a"}}},
		{name: "huge int", input: starlark.MakeInt(1).Lsh(100), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToGoRejectsNonStringKeys(t *testing.T) {
	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.MakeInt(1), starlark.None))
	_, err := ToGo(dict)
	assert.ErrorContains(t, err, "dict key must be string, got int")
}

func TestDialectInfoDefaultsOutput(t *testing.T) {
	v := DialectInfo{Name: "duckdb"}.ToStarlark()
	assert.Equal(t, `dialect(name = "duckdb", output = "duckdb")`, v.String())
}
