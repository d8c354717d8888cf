// Package postgres provides a PostgreSQL database adapter backed by pgx.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlfront/pkg/adapters/postgres"
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return dialect.Postgres
}

// Connect establishes a connection to PostgreSQL. cfg.DSN is used as is;
// when empty the DSN is built from cfg.Params.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		p, err := parseParams(cfg.Params)
		if err != nil {
			return err
		}
		dsn = p.DSN()
	}
	return a.Open(ctx, "pgx", dsn, cfg)
}

// Params holds discrete connection settings.
type Params struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN constructs a key=value connection string.
func (p Params) DSN() string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
	}
	if p.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", p.Database))
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", sslmode))
	if p.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", p.User))
	}
	if p.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", p.Password))
	}
	return strings.Join(parts, " ")
}

func parseParams(raw map[string]any) (Params, error) {
	var p Params
	if err := mapstructure.WeakDecode(raw, &p); err != nil {
		return p, fmt.Errorf("invalid postgres params: %w", err)
	}
	return p, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
