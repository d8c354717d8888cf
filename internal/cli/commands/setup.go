package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqlfront/internal/cli/config"
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	starctx "github.com/leapstack-labs/sqlfront/internal/starlark"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, or defaults when none was
// loaded (as in tests that run a command directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Defaults()
}

// source is a named piece of SQL input.
type source struct {
	Name string
	Text string
}

// readSources reads the files named by args, or standard input when args
// is empty or "-".
func readSources(cmd *cobra.Command, args []string) ([]source, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []source{{Name: "<stdin>", Text: string(content)}}, nil
	}
	sources := make([]source, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		sources = append(sources, source{Name: path, Text: string(content)})
	}
	return sources, nil
}

// loadTransform compiles the configured transform script, if any.
func loadTransform(cfg *config.Config, logger *slog.Logger) (canon.Transform, error) {
	if cfg.Transform == "" {
		return nil, nil
	}
	out := cfg.SourceDialect()
	if to := cfg.TargetDialect(); to != nil {
		out = to
	}
	hook, err := starctx.LoadFile(cfg.Transform, starctx.Options{
		Dialect: starctx.DialectInfo{Name: cfg.SourceDialect().Name, Output: out.Name},
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return hook.Transform(), nil
}

// ReportedError marks an error whose diagnostic has already been printed.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// report prints a diagnostic for err against src.
func (c *CommandContext) report(src source, err error) error {
	c.Renderer.Diagnostic(src.Name, src.Text, err)
	return &ReportedError{Err: err}
}
