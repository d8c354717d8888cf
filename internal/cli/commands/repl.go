package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/spf13/cobra"
)

const (
	replPrompt       = "sqlfront> "
	replContinuation = "     ...> "
)

// replModes are the ways the REPL can show a statement.
var replModes = []string{"fmt", "canon", "tree", "tokens"}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive formatting shell",
		Long: `Start an interactive shell. Each statement, terminated by a semicolon,
is parsed in the current dialect and shown according to the current mode:
formatted, canonicalized, as a syntax tree, or as tokens.

Type .help inside the shell for the dot commands.`,
		Example: `  sqlfront repl
  sqlfront repl --dialect postgres --to mysql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(replModes, mode) {
				return fmt.Errorf("unknown mode %q (expected %s)", mode, strings.Join(replModes, ", "))
			}
			return runREPL(cmd, mode)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "fmt", "Initial display mode: "+strings.Join(replModes, ", "))
	return cmd
}

// replSession is the mutable state of one shell.
type replSession struct {
	cmdCtx    *CommandContext
	mode      string
	transform canon.Transform
	out       io.Writer
	errOut    io.Writer
}

func runREPL(cmd *cobra.Command, mode string) error {
	base := NewCommandContext(cmd)
	cfg := *base.Cfg
	cmdCtx := &CommandContext{
		Cfg:      &cfg,
		Logger:   base.Logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeText),
	}
	transform, err := loadTransform(&cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	s := &replSession{
		cmdCtx:    cmdCtx,
		mode:      mode,
		transform: transform,
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(s.out, "sqlfront %s (dialect: %s)\n", Version, cfg.SourceDialect().Name)
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := s.dotCommand(line); quit {
				break
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContinuation)
			continue
		}
		rl.SetPrompt(replPrompt)
		text := buf.String()
		buf.Reset()

		if err := s.show(text); err != nil {
			_, _ = fmt.Fprintln(s.errOut, output.FormatDiagnostic(cmdCtx.Renderer.Styles(), "<repl>", text, err))
		}
	}
	return nil
}

// historyFile returns the per-user history path, or "" when no cache
// directory is available.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "sqlfront")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func newREPLCompleter() *readline.PrefixCompleter {
	dialects := func(string) []string { return dialect.List() }
	modes := make([]readline.PrefixCompleterInterface, 0, len(replModes))
	for _, m := range replModes {
		modes = append(modes, readline.PcItem(m))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".dialect", readline.PcItemDynamic(dialects)),
		readline.PcItem(".to", readline.PcItemDynamic(dialects)),
		readline.PcItem(".indent"),
		readline.PcItem(".mode", modes...),
		readline.PcItem(".quit"),
	)
}

// show displays one statement in the current mode.
func (s *replSession) show(text string) error {
	cfg := s.cmdCtx.Cfg
	switch s.mode {
	case "tokens":
		t := table.NewWriter()
		t.SetOutputMirror(s.out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Pos", "Kind", "Text"})
		var views []output.TokenView
		for tok, err := range parser.Tokenize(parser.Text(text), parser.TokenizeOptions{
			Dialect:          cfg.SourceDialect(),
			EmitComments:     cfg.EmitComments,
			StructuredBlocks: true,
		}) {
			if err != nil {
				return err
			}
			views = append(views, output.ViewToken(tok))
		}
		appendTokenRows(t, views, 0)
		t.Render()
	case "tree":
		popts := cfg.ParseOptions()
		popts.Logger = s.cmdCtx.Logger
		tree, err := parser.Parse(text, popts)
		if err != nil {
			return err
		}
		writeOutline(s.out, tree)
	default:
		formatted, err := formatText(s.cmdCtx, text, s.mode == "canon", s.transform)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(s.out, formatted)
	}
	return nil
}

// dotCommand runs a shell command and reports whether the shell should exit.
func (s *replSession) dotCommand(line string) bool {
	parts := strings.Fields(line)
	cfg := s.cmdCtx.Cfg

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(s.out)
	case ".dialect":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "dialect: %s\n", cfg.SourceDialect().Name)
			return false
		}
		d, err := dialect.Lookup(parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		cfg.Dialect = d.Name
	case ".to":
		if len(parts) < 2 {
			cfg.ToDialect = ""
			_, _ = fmt.Fprintln(s.out, "output dialect cleared")
			return false
		}
		d, err := dialect.Lookup(parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		cfg.ToDialect = d.Name
	case ".indent":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "indent: %d\n", cfg.IndentWidth)
			return false
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .indent <width>")
			return false
		}
		cfg.IndentWidth = n
	case ".mode":
		if len(parts) < 2 || !slices.Contains(replModes, parts[1]) {
			_, _ = fmt.Fprintf(s.errOut, "Usage: .mode %s\n", strings.Join(replModes, "|"))
			return false
		}
		s.mode = parts[1]
	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `Commands:
  .dialect [name]    Show or set the input dialect
  .to [name]         Set the output dialect (no name clears it)
  .indent [width]    Show or set the indent width (0 prints one line)
  .mode MODE         Display mode: fmt, canon, tree, tokens
  .help              Show this help
  .quit              Exit the shell

Statements end with a semicolon and may span lines.`
	_, _ = fmt.Fprintln(w, help)
}
