// Package testutil provides logging helpers for sqlfront tests.
package testutil

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
)

// LevelEnv overrides the level of test loggers, e.g. SQLFRONT_TEST_LOG=warn
// to quiet parser tracing under -v.
const LevelEnv = "SQLFRONT_TEST_LOG"

// NewTestLogger returns a logger that writes to t.Log, tagged with the test
// name. Output appears only for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, handlerOptions())).
		With(slog.String("test", t.Name()))
}

// CaptureLogger returns a logger recording every entry at debug level and
// above, and the buffer holding them. Timestamps are omitted so entries can
// be compared verbatim.
func CaptureLogger() (*slog.Logger, *Buffer) {
	buf := &Buffer{}
	opts := handlerOptions()
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(buf, opts)), buf
}

// Buffer is a log sink safe for concurrent writers.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the logged entries, one per line.
func (b *Buffer) Lines() []string {
	s := strings.TrimRight(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func handlerOptions() *slog.HandlerOptions {
	level := slog.LevelDebug
	if v := os.Getenv(LevelEnv); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
