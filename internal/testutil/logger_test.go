package testutil_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlfront/internal/testutil"
)

func TestCaptureLogger(t *testing.T) {
	logger, buf := testutil.CaptureLogger()
	logger.Debug("parsing", slog.String("kind", "Script"))
	logger.With(slog.Int("n", 2)).Warn("slow")

	lines := buf.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, `level=DEBUG msg=parsing kind=Script`, lines[0])
	assert.Equal(t, `level=WARN msg=slow n=2`, lines[1])
}

func TestCaptureLoggerEmpty(t *testing.T) {
	_, buf := testutil.CaptureLogger()
	assert.Empty(t, buf.Lines())
	assert.Empty(t, buf.String())
}

func TestNewTestLoggerLevelFromEnv(t *testing.T) {
	t.Setenv(testutil.LevelEnv, "warn")
	logger := testutil.NewTestLogger(t)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
}
