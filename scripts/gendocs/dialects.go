package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/dialect"
)

// generateDialectDocs writes the dialect overview and one reserved word
// list per dialect.
func generateDialectDocs(outDir string) error {
	log.Printf("Generating dialect docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Dialects", "SQL dialects understood by sqlfront")
	w.GeneratedMarker()

	w.Header(1, "Dialects")
	w.Paragraph("Each dialect fixes the lexical rules used when tokenizing and the spellings chosen when printing. " +
		"Pass one to " + InlineCode("--dialect") + " to read it and to " + InlineCode("--to") + " to write it.")

	headers := []string{"Dialect", "Quoted identifier", "Placeholder", "Cast operator", "Object builder", "Array builder", "Reserved words"}
	var rows [][]string
	for _, name := range dialect.List() {
		d, _ := dialect.Get(name)
		rows = append(rows, []string{
			InlineCode(d.Name),
			InlineCode(d.QuoteIdentifier("name")),
			InlineCode(d.FormatPlaceholder(1)),
			yesNo(d.CastOperator),
			orDash(d.ObjectBuilder),
			orDash(d.ArrayBuilder),
			fmt.Sprintf("%d", len(d.ReservedWords())),
		})
	}
	w.Table(headers, rows)

	w.Header(2, "Lexical Features")
	featHeaders := []string{"Dialect", "Double-quoted strings", "Backtick identifiers", "Dollar quoting", "E'' strings", "Backslash escapes"}
	var featRows [][]string
	for _, name := range dialect.List() {
		d, _ := dialect.Get(name)
		featRows = append(featRows, []string{
			InlineCode(d.Name),
			yesNo(d.DoubleQuotedStrings),
			yesNo(d.BacktickIdentifiers),
			yesNo(d.DollarQuoting),
			yesNo(d.EscapeStrings),
			yesNo(d.BackslashEscapes),
		})
	}
	w.Table(featHeaders, featRows)

	for _, name := range dialect.List() {
		d, _ := dialect.Get(name)
		w.Header(2, d.Name)
		w.Paragraph("Reserved words are quoted when used as identifiers:")
		words := d.ReservedWords()
		sort.Strings(words)
		w.CodeBlock("text", wrapWords(words, 72))
	}

	filename := filepath.Join(outDir, "dialects.md")
	log.Printf("  Generated dialects.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return InlineCode(s)
}

// wrapWords joins words into lines no longer than width.
func wrapWords(words []string, width int) string {
	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
