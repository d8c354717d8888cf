package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// LexError is a fatal tokenizer error. The token stream ends after it.
type LexError struct {
	Span    token.Span
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d (offset %d): %s",
		e.Span.Start.Line, e.Span.Start.Column, e.Span.Start.Offset, e.Message)
}

// SyntaxError is returned when no grammar alternative matched at the
// top-level entry point. Furthest is the deepest position any alternative
// reached and Expected lists what would have been accepted there.
type SyntaxError struct {
	Furthest token.Position
	Found    string
	Expected []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "syntax error at line %d, column %d", e.Furthest.Line, e.Furthest.Column)
	if e.Found != "" {
		fmt.Fprintf(&b, ": unexpected %s", e.Found)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, ", expected %s", strings.Join(e.Expected, ", "))
	}
	return b.String()
}

// StructuralError reports a block whose contents were not fully consumed
// by the rule that claimed it.
type StructuralError = ast.StructuralError

// DepthError is returned when rule nesting exceeds Options.MaxDepth.
type DepthError struct {
	Pos   token.Position
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("nesting depth limit %d exceeded at line %d, column %d", e.Limit, e.Pos.Line, e.Pos.Column)
}

// ErrEmptyInput is returned when the input holds no tokens.
var ErrEmptyInput = errors.New("empty input")

// Common error messages
const (
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedIdent   = "unterminated quoted identifier"
	ErrUnterminatedDollar  = "unterminated dollar-quoted string %s"
	ErrUnterminatedComment = "unterminated block comment"
	ErrInvalidEscape       = "invalid escape sequence \\%c"
	ErrUnexpectedChar      = "unexpected character %q"
	ErrUnmatchedOpener     = "unmatched %q"
	ErrUnmatchedCloser     = "unmatched %q"
	ErrMismatchedCloser    = "expected %q to close %q opened at line %d, column %d, found %q"
	ErrTrailingInBlock     = "unexpected %s inside %s"
)
