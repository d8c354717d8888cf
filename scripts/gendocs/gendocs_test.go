package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanExample(t *testing.T) {
	got := cleanExample("  sqlfront fmt a.sql\n    --check\n  sqlfront exec b.sql")
	assert.Equal(t, "sqlfront fmt a.sql\n  --check\nsqlfront exec b.sql", got)
}

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Header(2, "Keys")
	w.Table([]string{"Key", "Description"}, [][]string{{InlineCode("dsn"), cleanDescription("spaces per\n  level")}})

	assert.Contains(t, w.String(), "## Keys\n\n")
	assert.Contains(t, w.String(), "`dsn`")
	assert.Contains(t, w.String(), "spaces per level")
}

func TestWrapWords(t *testing.T) {
	assert.Equal(t, "ab cd\nef", wrapWords([]string{"ab", "cd", "ef"}, 5))
}

func TestGenerators(t *testing.T) {
	for name, g := range generators {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, g.fn(dir))
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.NotEmpty(t, entries)

			content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
			require.NoError(t, err)
			assert.Contains(t, string(content), generatedHeader)
		})
	}
}

func TestCLIPages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "## Inspect")
	assert.Contains(t, string(index), "[`exec`](/cli/exec)")
	assert.Contains(t, string(index), "`ansi`, `duckdb`, `mysql`, `postgres`, `sqlite`")
	assert.Contains(t, string(index), "`SQLFRONT_TO_DIALECT`")
	assert.Contains(t, string(index), "`auto` `text` `json` `yaml`")

	exec, err := os.ReadFile(filepath.Join(dir, "exec.md"))
	require.NoError(t, err)
	assert.Contains(t, string(exec), "# sqlfront exec")
	assert.Contains(t, string(exec), "`table` `json` `csv` `md`")
	assert.Contains(t, string(exec), "Reads standard input when no file is given.")
	assert.Contains(t, string(exec), "[`feed`](/cli/feed)")

	// generating again must not be affected by the first run
	again := t.TempDir()
	require.NoError(t, generateCLIDocs(again))
	second, err := os.ReadFile(filepath.Join(again, "exec.md"))
	require.NoError(t, err)
	assert.Equal(t, string(exec), string(second))
}
