package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlfront/pkg/cursor"
)

// Result formats accepted by --format.
var resultFormats = []string{"table", "json", "csv", "md"}

// renderRows writes a result set in the given format.
func renderRows(w io.Writer, rows *cursor.Slice, format string) error {
	switch format {
	case "json":
		return renderJSON(w, rows)
	case "csv", "md", "markdown":
		t := newTable(w, rows)
		if format == "csv" {
			t.RenderCSV()
		} else {
			t.RenderMarkdown()
		}
		return nil
	case "", "table":
		if rows.Len() == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		t := newTable(w, rows)
		t.SetStyle(table.StyleLight)
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", rows.Len())
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected table, json, csv or md)", format)
	}
}

func newTable(w io.Writer, rows *cursor.Slice) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	cols := rows.Columns()
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for i := range rows.Len() {
		row, _ := rows.Index(i)
		out := make(table.Row, len(row.Values))
		for j, v := range row.Values {
			out[j] = formatValue(v)
		}
		t.AppendRow(out)
	}
	return t
}

func renderJSON(w io.Writer, rows *cursor.Slice) error {
	results := make([]map[string]any, 0, rows.Len())
	for i := range rows.Len() {
		row, _ := rows.Index(i)
		results = append(results, row.Map())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
