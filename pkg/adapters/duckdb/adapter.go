// Package duckdb provides a DuckDB database adapter.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlfront/pkg/adapters/duckdb"
package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return dialect.DuckDB
}

// Connect opens the database at cfg.DSN, in memory when empty, then loads
// the configured extensions and applies settings.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	if err := a.Open(ctx, "duckdb", cfg.DSN, cfg); err != nil {
		return err
	}
	for _, stmt := range setupStatements(params) {
		if _, err := a.Exec(ctx, stmt); err != nil {
			_ = a.Disconnect()
			return fmt.Errorf("failed to configure duckdb: %w", err)
		}
	}
	return nil
}

func setupStatements(p *Params) []string {
	var stmts []string
	for _, ext := range p.Extensions {
		name := dialect.DuckDB.QuoteIdentifierIfNeeded(ext)
		stmts = append(stmts, "INSTALL "+name, "LOAD "+name)
	}
	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("SET %s = %s",
			dialect.DuckDB.QuoteIdentifierIfNeeded(k), dialect.DuckDB.QuoteString(p.Settings[k])))
	}
	return stmts
}

var _ adapter.Adapter = (*Adapter)(nil)
