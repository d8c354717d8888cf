package cursor_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/sqlfront/pkg/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceWalk(t *testing.T) {
	c, err := cursor.NewSlice([]string{"id", "name"}, [][]any{{1, "a"}, {2, "b"}})
	require.NoError(t, err)

	assert.False(t, c.AtEnd())
	row, ok := c.CurrentRow()
	require.True(t, ok)
	v, ok := row.Get("name")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	c.Advance()
	row, ok = c.CurrentRow()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": 2, "name": "b"}, row.Map())

	c.Advance()
	assert.True(t, c.AtEnd())
	_, ok = c.CurrentRow()
	assert.False(t, ok)

	c.Advance()
	assert.True(t, c.AtEnd(), "advancing past the end stays at the end")

	c.Reset()
	assert.False(t, c.AtEnd())
}

func TestSliceIndex(t *testing.T) {
	c, err := cursor.NewSlice([]string{"x"}, [][]any{{1}, {2}, {3}})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	row, ok := c.Index(2)
	require.True(t, ok)
	assert.Equal(t, []any{3}, row.Values)

	_, ok = c.Index(3)
	assert.False(t, ok)
	_, ok = c.Index(-1)
	assert.False(t, ok)
}

func TestNewSliceRejectsRaggedRows(t *testing.T) {
	_, err := cursor.NewSlice([]string{"a", "b"}, [][]any{{1, 2}, {3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values, want 2")
}

func TestEmptySlice(t *testing.T) {
	c, err := cursor.NewSlice([]string{"a"}, nil)
	require.NoError(t, err)
	assert.True(t, c.AtEnd())
	_, ok := c.CurrentRow()
	assert.False(t, ok)
}

func TestAll(t *testing.T) {
	c, err := cursor.NewSlice([]string{"n"}, [][]any{{1}, {2}, {3}})
	require.NoError(t, err)
	c.Advance()

	var got []any
	for row := range cursor.All(c) {
		got = append(got, row.Values[0])
	}
	assert.Equal(t, []any{2, 3}, got)
	assert.True(t, c.AtEnd())
}

func TestAllStopsEarly(t *testing.T) {
	c, err := cursor.NewSlice([]string{"n"}, [][]any{{1}, {2}, {3}})
	require.NoError(t, err)

	for range cursor.All(c) {
		break
	}
	row, ok := c.CurrentRow()
	require.True(t, ok)
	assert.Equal(t, []any{2}, row.Values)
}

func TestMaterialize(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantRows  [][]any
		errMsg    string
	}{
		{
			name: "rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).
					AddRow(int64(1), []byte("alice")).
					AddRow(int64(2), "bob")
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			wantRows: [][]any{{int64(1), "alice"}, {int64(2), "bob"}},
		},
		{
			name: "no rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
			},
		},
		{
			name: "row error",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).
					AddRow(1, "alice").
					RowError(0, assert.AnError)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			errMsg: "error iterating rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			rows, err := db.Query("SELECT id, name FROM users")
			require.NoError(t, err)

			c, err := cursor.Materialize(rows)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name"}, c.Columns())
			assert.Equal(t, len(tt.wantRows), c.Len())

			var got [][]any
			for row := range cursor.All(c) {
				got = append(got, row.Values)
			}
			assert.Equal(t, tt.wantRows, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
