package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/cursor"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/format"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/leapstack-labs/sqlfront/pkg/sqlgrammar"
)

// Result is the outcome of one statement.
type Result struct {
	// SQL is the text sent to the database.
	SQL string
	// Rows holds the result set of statements that return rows.
	Rows *cursor.Slice
	// RowsAffected is -1 when the driver cannot report it.
	RowsAffected int64
}

// Runner renders syntax trees for a database and runs them.
type Runner struct {
	DB *sql.DB
	// Source is the dialect statements are written in.
	Source *dialect.Dialect
	// Target is the dialect of the database. Nil means Source.
	Target *dialect.Dialect
	// MaxDepth bounds parse nesting; 0 uses the parser default.
	MaxDepth int
	Logger   *slog.Logger
}

// NewRunner returns a runner over a connected adapter.
func NewRunner(a Adapter, source *dialect.Dialect, logger *slog.Logger) *Runner {
	return &Runner{DB: a.DB(), Source: source, Target: a.Dialect(), Logger: logger}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) context() format.Context {
	return format.Context{Dialect: r.Source, ToDialect: r.Target}
}

// Render returns the SQL text of stmt in the target dialect.
func (r *Runner) Render(stmt *ast.Node) (string, error) {
	return format.Stringify(stmt, r.context())
}

// Run renders and executes one statement. Statements that return rows are
// materialized into Result.Rows.
func (r *Runner) Run(ctx context.Context, stmt *ast.Node, args ...any) (Result, error) {
	text, err := r.Render(stmt)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render %s: %w", stmt.Kind, err)
	}
	r.logger().Debug("running statement", slog.String("kind", stmt.Kind), slog.String("sql", text))

	res := Result{SQL: text}
	if ReturnsRows(stmt) {
		rows, err := queryRows(ctx, r.DB, text, args...)
		if err != nil {
			return res, err
		}
		res.Rows = rows
		res.RowsAffected = int64(rows.Len())
		return res, nil
	}
	res.RowsAffected, err = exec(ctx, r.DB, text, args...)
	return res, err
}

// RunScript parses src in the source dialect and runs its statements in
// order, stopping at the first failure. Results of the statements that
// completed are returned alongside the error.
func (r *Runner) RunScript(ctx context.Context, src string) ([]Result, error) {
	script, err := parser.Parse(src, parser.Options{Dialect: r.Source, MaxDepth: r.MaxDepth, Logger: r.Logger})
	if err != nil {
		return nil, err
	}

	var results []Result
	for i, item := range script.Items("statements") {
		stmt, ok := item.(*ast.Node)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.Run(ctx, stmt)
		if err != nil {
			return results, fmt.Errorf("statement %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// ReturnsRows reports whether a statement produces a result set.
func ReturnsRows(stmt *ast.Node) bool {
	switch stmt.Kind {
	case sqlgrammar.KindSelect, sqlgrammar.KindSetOperation:
		return true
	}
	return stmt.Has("returning")
}
