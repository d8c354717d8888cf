package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"github.com/leapstack-labs/sqlfront/pkg/format"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/spf13/cobra"
)

// FmtOptions holds options for the fmt command.
type FmtOptions struct {
	Write bool
	Check bool
	Watch bool
	Canon bool
}

// errNotFormatted is returned by --check when a file would change.
var errNotFormatted = errors.New("some files are not formatted")

// watchDebounce coalesces bursts of write events for one file.
const watchDebounce = 100 * time.Millisecond

// NewFmtCommand creates the fmt command.
func NewFmtCommand() *cobra.Command {
	opts := &FmtOptions{}

	cmd := &cobra.Command{
		Use:   "fmt [files...]",
		Short: "Format SQL",
		Long: `Format SQL files or standard input.

Keywords are upper-cased, identifiers are quoted only when the output
dialect requires it, and clauses are laid out with --indent spaces per
level (0 prints each statement on one line). With --to the output is
translated to another dialect.`,
		Example: `  sqlfront fmt query.sql
  sqlfront fmt -w models/*.sql
  sqlfront fmt --dialect postgres --to mysql query.sql
  sqlfront fmt --check models/*.sql
  sqlfront fmt -w --watch models/*.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write result to the source file instead of stdout")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "Exit with an error if any file is not formatted")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-format files when they change")
	cmd.Flags().BoolVar(&opts.Canon, "canonical", false, "Rewrite shorthand constructs before printing")

	return cmd
}

func runFmt(cmd *cobra.Command, args []string, opts *FmtOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if opts.Watch && len(args) == 0 {
		return errors.New("--watch needs at least one file")
	}

	sources, err := readSources(cmd, args)
	if err != nil {
		return err
	}

	var transform canon.Transform
	if opts.Canon {
		if transform, err = loadTransform(cmdCtx.Cfg, cmdCtx.Logger); err != nil {
			return err
		}
	}

	unformatted := 0
	for _, src := range sources {
		changed, err := formatSource(cmdCtx, src, opts, transform)
		if err != nil {
			return err
		}
		if changed && opts.Check {
			unformatted++
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), src.Name)
		}
	}
	if unformatted > 0 {
		return fmt.Errorf("%w (%d)", errNotFormatted, unformatted)
	}

	if opts.Watch {
		return watchSources(cmd.Context(), cmdCtx, args, opts, transform)
	}
	return nil
}

// formatText formats src under the configured dialects.
func formatText(cmdCtx *CommandContext, text string, canonical bool, transform canon.Transform) (string, error) {
	popts := cmdCtx.Cfg.ParseOptions()
	popts.Logger = cmdCtx.Logger
	tree, err := parser.Parse(text, popts)
	if err != nil {
		return "", err
	}
	ctx := cmdCtx.Cfg.FormatContext()
	if canonical {
		return canon.Render(tree, ctx, transform)
	}
	return format.Stringify(tree, ctx)
}

// formatSource formats one source and reports whether formatting changed it.
func formatSource(cmdCtx *CommandContext, src source, opts *FmtOptions, transform canon.Transform) (bool, error) {
	out, err := formatText(cmdCtx, src.Text, opts.Canon, transform)
	if err != nil {
		return false, cmdCtx.report(src, err)
	}
	out += "\n"
	changed := out != src.Text

	switch {
	case opts.Check:
	case opts.Write && src.Name != "<stdin>":
		if !changed {
			return false, nil
		}
		info, err := os.Stat(src.Name)
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", src.Name, err)
		}
		if err := os.WriteFile(src.Name, []byte(out), info.Mode().Perm()); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", src.Name, err)
		}
		cmdCtx.Renderer.Muted("formatted " + src.Name)
	default:
		cmdCtx.Renderer.Printf("%s", out)
	}
	return changed, nil
}

// watchSources re-formats the named files whenever they are written, until
// ctx is cancelled. Directories are watched rather than files so editors
// that replace files on save are still seen.
func watchSources(ctx context.Context, cmdCtx *CommandContext, paths []string, opts *FmtOptions, transform canon.Transform) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}
	cmdCtx.Renderer.Muted(fmt.Sprintf("watching %d file(s), press Ctrl+C to stop", len(watched)))

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !watched[event.Name] {
				continue
			}
			name := event.Name
			mu.Lock()
			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(watchDebounce, func() {
				content, err := os.ReadFile(filepath.Clean(name))
				if err != nil {
					cmdCtx.Logger.Error("failed to read changed file", "file", name, "error", err)
					return
				}
				cmdCtx.Logger.Debug("file changed, formatting", "file", name)
				// Diagnostics are printed by formatSource; keep watching.
				_, _ = formatSource(cmdCtx, source{Name: name, Text: string(content)}, opts, transform)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Error("watcher error", "error", err)
		}
	}
}
