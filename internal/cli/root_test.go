package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlfront/internal/cli/config"
	_ "github.com/leapstack-labs/sqlfront/pkg/adapters/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func TestRootFlagsReachCommands(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{
			name:  "dialect and indent",
			args:  []string{"fmt", "-d", "postgres", "--indent", "0"},
			stdin: "select a::int from t",
			want:  "SELECT a::int FROM t\n",
		},
		{
			name:  "translate",
			args:  []string{"fmt", "--dialect", "postgres", "--to", "mysql", "--indent", "0"},
			stdin: "select $1",
			want:  "SELECT ?\n",
		},
		{
			name:  "canonicalize",
			args:  []string{"canon", "-d", "pg", "--indent", "0", "-o", "text"},
			stdin: "select a::int",
			want:  "SELECT CAST(a AS int)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	_, _, err := execute(t, "select 1", "fmt", "--dialect", "oracle")
	require.ErrorContains(t, err, "invalid dialect")

	_, _, err = execute(t, "select 1", "fmt", "--output", "xml")
	require.ErrorContains(t, err, "invalid output")
}

func TestRootVerboseLogsToStderr(t *testing.T) {
	_, errOut, err := execute(t, "select 1", "exec", "-v", "--driver", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, errOut, "running statement")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlfront")

	_, _, err = execute(t, "", "completion", "tcsh")
	require.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "sqlfront dev\n", out)
}
