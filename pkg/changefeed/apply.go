package changefeed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
)

// ErrNothingToUpdate is returned for updates that only touch key columns.
var ErrNothingToUpdate = errors.New("no non-key columns to update")

// Statement returns SQL that replays ev against a table of the same name,
// spelled for d with one placeholder per argument. keys name the columns
// identifying a row for updates and deletes; updates match on the before
// image when present and on the after image otherwise. Columns are emitted
// in sorted order.
func Statement(ev Event, keys []string, d *dialect.Dialect) (string, []any, error) {
	if err := ev.Validate(); err != nil {
		return "", nil, err
	}
	if d == nil {
		d = dialect.Default()
	}
	b := &stmtBuilder{d: d}
	table := b.table(ev.Table)

	switch ev.Operation {
	case Insert:
		cols := sortedColumns(ev.After)
		names := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, c := range cols {
			names[i] = d.QuoteIdentifierIfNeeded(c)
			marks[i] = b.arg(ev.After[c])
		}
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table,
			strings.Join(names, ", "), strings.Join(marks, ", ")), b.args, nil

	case Update:
		var sets []string
		for _, c := range sortedColumns(ev.After) {
			if slices.Contains(keys, c) {
				continue
			}
			sets = append(sets, d.QuoteIdentifierIfNeeded(c)+" = "+b.arg(ev.After[c]))
		}
		if len(sets) == 0 {
			return "", nil, fmt.Errorf("update on %s: %w", ev.Table, ErrNothingToUpdate)
		}
		match := ev.Before
		if match == nil {
			match = ev.After
		}
		where, err := b.where(ev, match, keys)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where), b.args, nil

	default: // Delete
		where, err := b.where(ev, ev.Before, keys)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), b.args, nil
	}
}

type stmtBuilder struct {
	d    *dialect.Dialect
	args []any
}

func (b *stmtBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.FormatPlaceholder(len(b.args))
}

func (b *stmtBuilder) table(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = b.d.QuoteIdentifierIfNeeded(p)
	}
	return strings.Join(parts, ".")
}

func (b *stmtBuilder) where(ev Event, row Row, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%s on %s: no key columns", ev.Operation, ev.Table)
	}
	conds := make([]string, len(keys))
	for i, k := range keys {
		v, ok := row[k]
		if !ok {
			return "", fmt.Errorf("%s on %s: key column %q missing", ev.Operation, ev.Table, k)
		}
		col := b.d.QuoteIdentifierIfNeeded(k)
		if v == nil {
			conds[i] = col + " IS NULL"
			continue
		}
		conds[i] = col + " = " + b.arg(v)
	}
	return strings.Join(conds, " AND "), nil
}

func sortedColumns(r Row) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	return cols
}

// Apply returns a handler that replays each event on the database behind
// runner. Statements are built in the runner's source dialect, parsed, and
// rendered for its target, so the same feed can be applied to any
// registered database.
func Apply(runner *adapter.Runner, keys []string) Handler {
	return func(ctx context.Context, ev Event) error {
		text, args, err := Statement(ev, keys, runner.Source)
		if err != nil {
			return err
		}
		script, err := parser.Parse(text, parser.Options{Dialect: runner.Source, Logger: runner.Logger})
		if err != nil {
			return fmt.Errorf("parse %s statement: %w", ev.Operation, err)
		}
		stmt, ok := script.Items("statements")[0].(*ast.Node)
		if !ok {
			return fmt.Errorf("parse %s statement: no statement", ev.Operation)
		}
		_, err = runner.Run(ctx, stmt, args...)
		return err
	}
}
