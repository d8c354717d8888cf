package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlfront/pkg/cursor"
)

// ErrNotConnected is returned when a statement runs before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides the database/sql plumbing shared by the driver
// adapters. Embed it and implement Connect and Dialect.
type BaseSQLAdapter struct {
	Handle *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Open opens and pings a database/sql handle for driverName.
func (b *BaseSQLAdapter) Open(ctx context.Context, driverName, dsn string, cfg Config) error {
	b.logger().Debug("opening database", slog.String("driver", driverName))

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driverName, err)
	}

	b.Handle = db
	b.Cfg = cfg
	return nil
}

// DB returns the open handle.
func (b *BaseSQLAdapter) DB() *sql.DB {
	return b.Handle
}

// Disconnect closes the database handle.
func (b *BaseSQLAdapter) Disconnect() error {
	if b.Handle == nil {
		return nil
	}
	b.logger().Debug("closing database connection")
	err := b.Handle.Close()
	b.Handle = nil
	return err
}

// Exec executes a statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return exec(ctx, b.Handle, query, args...)
}

// Query executes a statement and materializes its rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, query string, args ...any) (*cursor.Slice, error) {
	return queryRows(ctx, b.Handle, query, args...)
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.Handle != nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func exec(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	if db == nil {
		return 0, ErrNotConnected
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute SQL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report it; the statement itself succeeded.
		return -1, nil
	}
	return n, nil
}

func queryRows(ctx context.Context, db *sql.DB, query string, args ...any) (*cursor.Slice, error) {
	if db == nil {
		return nil, ErrNotConnected
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return cursor.Materialize(rows)
}
