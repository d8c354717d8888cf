// Package sqlite provides a SQLite database adapter backed by the pure-Go
// modernc.org/sqlite driver.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlfront/pkg/adapters/sqlite"
package sqlite

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return dialect.SQLite
}

// Connect opens the database file at cfg.DSN, in memory when empty.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	if err := a.Open(ctx, "sqlite", dsn, cfg); err != nil {
		return err
	}
	// Every pooled connection to ":memory:" would be a separate database.
	a.Handle.SetMaxOpenConns(1)
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
