package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/spf13/cobra"
)

// Version is the build version, set at link time.
var Version = "dev"

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the sqlfront version, the Go runtime, and the dialects and database drivers compiled in.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "sqlfront v%s (%s)\n", version, runtime.Version())
			_, _ = fmt.Fprintf(w, "dialects: %s\n", strings.Join(dialect.List(), ", "))
			_, _ = fmt.Fprintf(w, "drivers:  %s\n", joinNames(adapter.ListAdapters()))
		},
	}
}
