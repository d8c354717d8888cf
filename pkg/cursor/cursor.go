// Package cursor exposes materialized row sets as a position-tracking
// sequence. Rows are always fully loaded before a cursor is handed out;
// nothing here talks to storage while iterating.
package cursor

import (
	"database/sql"
	"fmt"
	"iter"
)

// Row is one result row. Values are aligned with Columns.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row keyed by column name. A later duplicate column name
// wins.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// Cursor walks a row sequence.
type Cursor interface {
	// AtEnd reports whether the cursor is past the last row.
	AtEnd() bool
	// Advance moves to the next row. It is a no-op at the end.
	Advance()
	// CurrentRow returns the row under the cursor, or false at the end.
	CurrentRow() (Row, bool)
}

// Slice is a Cursor over rows held in memory.
type Slice struct {
	columns []string
	rows    [][]any
	pos     int
}

// NewSlice returns a cursor over rows. Each row must have one value per
// column.
func NewSlice(columns []string, rows [][]any) (*Slice, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Slice{columns: columns, rows: rows}, nil
}

func (s *Slice) AtEnd() bool { return s.pos >= len(s.rows) }

func (s *Slice) Advance() {
	if s.pos < len(s.rows) {
		s.pos++
	}
}

func (s *Slice) CurrentRow() (Row, bool) {
	if s.AtEnd() {
		return Row{}, false
	}
	return Row{Columns: s.columns, Values: s.rows[s.pos]}, true
}

// Columns returns the column names.
func (s *Slice) Columns() []string { return s.columns }

// Len returns the number of rows.
func (s *Slice) Len() int { return len(s.rows) }

// Index returns the i-th row regardless of the cursor position.
func (s *Slice) Index(i int) (Row, bool) {
	if i < 0 || i >= len(s.rows) {
		return Row{}, false
	}
	return Row{Columns: s.columns, Values: s.rows[i]}, true
}

// Reset moves the cursor back to the first row.
func (s *Slice) Reset() { s.pos = 0 }

// All yields the remaining rows of c, advancing it.
func All(c Cursor) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for !c.AtEnd() {
			row, ok := c.CurrentRow()
			if !ok {
				return
			}
			c.Advance()
			if !yield(row) {
				return
			}
		}
	}
}

// Materialize reads every row of rows into a Slice and closes rows. Byte
// slices are converted to strings so the result does not alias driver
// buffers.
func Materialize(rows *sql.Rows) (*Slice, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return &Slice{columns: columns, rows: data}, nil
}
