// Package adapter connects parsed SQL to database/sql drivers.
//
// The transport itself (connection lifecycle against a server) belongs to
// the driver packages under pkg/adapters. This package holds the contract
// they implement, a registry keyed by driver name, and Runner, which renders
// syntax trees for the target dialect and returns results as cursors.
package adapter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/sqlfront/pkg/dialect"
)

// Config selects a driver and the database to open.
type Config struct {
	// Driver is a registered adapter name (postgres, sqlite, duckdb).
	Driver string `mapstructure:"driver"`
	// DSN is passed to the driver unchanged. Empty means an in-memory
	// database where the driver supports one.
	DSN string `mapstructure:"dsn"`
	// Params holds driver-specific settings.
	Params map[string]any `mapstructure:"params"`
}

// Transport is the connection lifecycle of a database.
type Transport interface {
	Connect(ctx context.Context, cfg Config) error
	Disconnect() error
}

// Adapter is a Transport backed by a database/sql handle.
type Adapter interface {
	Transport
	// DB returns the open handle, or nil before Connect.
	DB() *sql.DB
	// Dialect returns the SQL dialect the database speaks.
	Dialect() *dialect.Dialect
}

// UnsupportedOperationError is returned by transports that declare an
// operation without implementing it.
type UnsupportedOperationError struct {
	Op        string
	Transport string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported by the %s transport", e.Op, e.Transport)
}

// Remote is the network transport boundary. Talking a wire protocol to a
// server is outside this module; every lifecycle call fails with
// *UnsupportedOperationError. Use a driver adapter instead.
type Remote struct {
	Name string
}

func (r Remote) Connect(context.Context, Config) error {
	return &UnsupportedOperationError{Op: "connect", Transport: r.name()}
}

func (r Remote) Disconnect() error {
	return &UnsupportedOperationError{Op: "disconnect", Transport: r.name()}
}

func (r Remote) name() string {
	if r.Name == "" {
		return "remote"
	}
	return r.Name
}

var _ Transport = Remote{}
