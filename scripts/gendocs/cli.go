package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqlfront/internal/cli"
	"github.com/leapstack-labs/sqlfront/internal/cli/config"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandGroups orders the command index. Commands missing from every
// group are listed under "Other".
var commandGroups = []struct {
	title    string
	summary  string
	commands []string
}{
	{"Inspect", "Look at how SQL is tokenized and parsed.", []string{"tokens", "parse"}},
	{"Rewrite", "Print SQL in a normalized layout, another dialect or canonical form.", []string{"fmt", "canon"}},
	{"Run", "Execute SQL and change feeds against a database, or serve the API.", []string{"exec", "feed", "repl", "serve"}},
}

// generateCLIDocs writes an index page and one page per visible command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range visibleCommands(root) {
		pages[cmd.Name()+".md"] = commandPage(cmd)
	}
	for name, content := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func visibleCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.IsAvailableCommand() {
			out = append(out, cmd)
		}
	}
	return out
}

// groupOf returns the group title of a command name.
func groupOf(name string) string {
	for _, g := range commandGroups {
		if slices.Contains(g.commands, name) {
			return g.title
		}
	}
	return "Other"
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for sqlfront")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/sqlfront/cmd/sqlfront@latest")

	commands := visibleCommands(root)
	titles := make([]string, 0, len(commandGroups)+1)
	for _, g := range commandGroups {
		titles = append(titles, g.title)
	}
	titles = append(titles, "Other")
	for _, title := range titles {
		var rows [][]string
		for _, cmd := range commands {
			if groupOf(cmd.Name()) == title {
				link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
				rows = append(rows, []string{link, cleanDescription(cmd.Short)})
			}
		}
		if len(rows) == 0 {
			continue
		}
		w.Header(2, title)
		for _, g := range commandGroups {
			if g.title == title {
				w.Paragraph(g.summary)
			}
		}
		w.Table([]string{"Command", "Description"}, rows)
	}

	w.Header(2, "Input")
	w.Paragraph("Commands taking a file read standard input when it is omitted or given as " + InlineCode("-") +
		". Input is read in the " + InlineCode("--dialect") + " dialect; the accepted names are " +
		dialectNames() + ". See [Dialects](/reference/dialects) for what each one changes.")

	w.Header(2, "Global Options")
	flagsTable(w, root, root.PersistentFlags())

	w.Header(2, "Environment")
	w.Paragraph("Each configuration key can be set as " + InlineCode(config.EnvPrefix+"<KEY>") +
		". Flags given on the command line win over the environment, which wins over " + InlineCode("sqlfront.yaml") + ".")
	var env []string
	for _, f := range configSchema() {
		env = append(env, InlineCode(config.EnvPrefix+strings.ToUpper(f.Name)))
	}
	w.BulletList(env)

	w.Header(2, "Exit Status")
	w.Table([]string{"Status", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Any error, reported on stderr. SQL errors are shown with their position."},
		{InlineCode("1"), InlineCode("fmt --check") + " found files that would change"},
	})
	return w.Bytes()
}

// dialectNames lists the registered dialects.
func dialectNames() string {
	names := dialect.List()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = InlineCode(n)
	}
	return strings.Join(quoted, ", ")
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, "sqlfront "+cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}
	w.CodeBlock("bash", "sqlfront "+cmd.Use)

	if strings.Contains(cmd.Use, "[file") {
		w.Paragraph("Reads standard input when no file is given.")
	}
	if len(cmd.Aliases) > 0 {
		w.Paragraph("Also available as " + strings.Join(cmd.Aliases, ", ") + ".")
	}

	if local := cmd.LocalNonPersistentFlags(); local.HasAvailableFlags() {
		w.Header(2, "Options")
		flagsTable(w, cmd, local)
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	var related []string
	group := groupOf(cmd.Name())
	for _, sib := range visibleCommands(cmd.Root()) {
		if sib != cmd && groupOf(sib.Name()) == group {
			related = append(related, fmt.Sprintf("[%s](/cli/%s)", InlineCode(sib.Name()), sib.Name()))
		}
	}
	if len(related) > 0 {
		w.Header(2, "See Also")
		w.Paragraph(strings.Join(related, ", ") + ", and the [global options](/cli/#global-options).")
	}
	return w.Bytes()
}

// flagsTable writes the visible flags of a set. The Values column is filled
// from the flag's shell completion, so it follows the dialect registry and
// the output formats the commands accept.
func flagsTable(w *MarkdownWriter, cmd *cobra.Command, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		var def string
		switch f.DefValue {
		case "", "[]", "false":
		default:
			def = InlineCode(f.DefValue)
		}
		rows = append(rows, []string{name, f.Value.Type(), def, flagValues(cmd, f.Name), cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Type", "Default", "Values", "Description"}, rows)
}

func flagValues(cmd *cobra.Command, name string) string {
	complete, ok := cmd.GetFlagCompletionFunc(name)
	if !ok {
		return ""
	}
	values, _ := complete(cmd, nil, "")
	out := make([]string, len(values))
	for i, v := range values {
		// completions may carry a tab-separated description
		v, _, _ = strings.Cut(v, "\t")
		out[i] = InlineCode(v)
	}
	return strings.Join(out, " ")
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	var (
		common string
		seen   bool
	)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !seen {
			common, seen = indent, true
			continue
		}
		n := 0
		for n < len(common) && n < len(indent) && common[n] == indent[n] {
			n++
		}
		common = common[:n]
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, common)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
