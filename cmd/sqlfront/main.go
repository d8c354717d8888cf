// Package main provides the sqlfront command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/sqlfront/internal/cli"

	_ "github.com/leapstack-labs/sqlfront/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/sqlfront/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlfront/pkg/adapters/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
