package starlark

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// transformFunc is the function a script must define.
const transformFunc = "transform"

// DefaultMaxSteps bounds the work of one transform call.
const DefaultMaxSteps = 1_000_000

// Hook is a compiled transform script.
type Hook struct {
	filename string
	fn       starlark.Callable
	pool     *ThreadPool
	maxSteps uint64
}

// Options configures Load.
type Options struct {
	Dialect DialectInfo
	// MaxSteps bounds each transform call; 0 means DefaultMaxSteps.
	MaxSteps uint64
	Logger   *slog.Logger
}

// LoadFile reads and compiles a transform script.
func LoadFile(path string, opts Options) (*Hook, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transform script: %w", err)
	}
	return Load(path, src, opts)
}

// Load compiles src and looks up its transform function. The script's top
// level runs once, here.
func Load(filename string, src []byte, opts Options) (*Hook, error) {
	pool := NewThreadPool(0, opts.Logger)
	thread := pool.Get(filename)
	defer pool.Put(thread)

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, Predeclared(opts.Dialect))
	if err != nil {
		return nil, &EvalError{File: filename, Message: err.Error()}
	}
	v, ok := globals[transformFunc]
	if !ok {
		return nil, &EvalError{File: filename, Message: "script does not define transform(node)"}
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, &EvalError{File: filename, Message: fmt.Sprintf("transform is a %s, not a function", v.Type())}
	}

	maxSteps := opts.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Hook{filename: filename, fn: fn, pool: pool, maxSteps: maxSteps}, nil
}

// Transform returns the hook as a canonicalization transform. It is safe
// for concurrent use.
func (h *Hook) Transform() canon.Transform {
	return h.apply
}

func (h *Hook) apply(tree ast.Tree) (ast.Tree, error) {
	kind, _ := tree[ast.KindKey].(string)

	arg, err := GoToStarlark(map[string]any(tree))
	if err != nil {
		return nil, h.errorf(kind, "convert node: %v", err)
	}

	thread := h.pool.Get(h.filename)
	thread.Steps = 0
	thread.SetMaxExecutionSteps(h.maxSteps)

	out, err := starlark.Call(thread, h.fn, starlark.Tuple{arg}, nil)
	if err != nil {
		// A cancelled thread stays cancelled; drop it.
		return nil, h.errorf(kind, "%v", err)
	}
	h.pool.Put(thread)
	if out == starlark.None {
		return tree, nil
	}

	v, err := ToGo(out)
	if err != nil {
		return nil, h.errorf(kind, "result: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, h.errorf(kind, "result must be a dict or None, got %s", out.Type())
	}
	if _, ok := m[ast.KindKey].(string); !ok {
		return nil, h.errorf(kind, "result has no %q key", ast.KindKey)
	}
	return m, nil
}

func (h *Hook) errorf(kind, format string, args ...any) error {
	return &EvalError{File: h.filename, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// EvalError represents a failure loading or running a transform script.
type EvalError struct {
	File    string
	Kind    string // node kind being transformed, empty while loading
	Message string
}

func (e *EvalError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: transform %s: %s", e.File, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
