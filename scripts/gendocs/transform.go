package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	starctx "github.com/leapstack-labs/sqlfront/internal/starlark"
)

// globalDocs describes the predeclared names of transform scripts.
var globalDocs = map[string][2]string{
	"dialect": {"struct", "Dialect information: " + InlineCode("dialect.name") + " is the input dialect, " + InlineCode("dialect.output") + " the output dialect"},
	"node":    {"function", InlineCode("node(kind, **slots)") + " builds a node dict"},
	"literal": {"function", InlineCode("literal(class, text)") + " builds a literal dict; class is quoted, string, number or param"},
	"kind":    {"function", InlineCode("kind(value)") + " returns the node kind of a dict, or None"},
}

// generateTransformDocs documents the transform script environment.
func generateTransformDocs(outDir string) error {
	log.Printf("Generating transform docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Transform Scripts", "Rewriting syntax trees with Starlark")
	w.GeneratedMarker()

	w.Header(1, "Transform Scripts")
	w.Paragraph("A transform script is a Starlark file defining " + InlineCode("transform(n)") + ". " +
		"During canonicalization it is called once per node, children first, with the node as a dict. " +
		"Returning a dict replaces the node and returning None keeps it.")

	w.Header(2, "Globals")
	var names []string
	for name := range starctx.Predeclared(starctx.DialectInfo{}) {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := []string{"Name", "Type", "Description"}
	var rows [][]string
	for _, name := range names {
		doc, ok := globalDocs[name]
		if !ok {
			doc = [2]string{"-", "-"}
		}
		rows = append(rows, []string{InlineCode(name), doc[0], doc[1]})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("python", `def transform(n):
    if kind(n) == "FunctionCall":
        n["name"] = n["name"].upper()
        return n
    if kind(n) == "ColumnRef" and n["name"] == "ssn":
        return node("StringLit", value = literal("string", "***"))
    return None`)

	w.CodeBlock("bash", "sqlfront canon --transform rewrite.star query.sql")

	filename := filepath.Join(outDir, "transform.md")
	log.Printf("  Generated transform.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
