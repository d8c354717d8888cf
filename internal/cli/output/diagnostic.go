package output

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Diagnostic is the machine-readable form of a parse or render error.
type Diagnostic struct {
	Message  string   `json:"message" yaml:"message"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int      `json:"column,omitempty" yaml:"column,omitempty"`
	Offset   int      `json:"offset,omitempty" yaml:"offset,omitempty"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Expected []string `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// NewDiagnostic describes err, locating it in the source when possible.
func NewDiagnostic(err error) Diagnostic {
	d := Diagnostic{Message: err.Error()}
	if pos, ok := Position(err); ok {
		d.Line, d.Column, d.Offset = pos.Line, pos.Column, pos.Offset
	}
	var se *parser.SyntaxError
	if errors.As(err, &se) {
		d.Expected = se.Expected
	}
	var ste *parser.StructuralError
	if errors.As(err, &ste) {
		d.Path = ste.Path
	}
	return d
}

// Position returns the source position err refers to.
func Position(err error) (token.Position, bool) {
	var (
		le  *parser.LexError
		se  *parser.SyntaxError
		ste *parser.StructuralError
		de  *parser.DepthError
	)
	switch {
	case errors.As(err, &le):
		return le.Span.Start, true
	case errors.As(err, &se):
		return se.Furthest, true
	case errors.As(err, &ste):
		return ste.Pos, ste.Pos.Line > 0
	case errors.As(err, &de):
		return de.Pos, true
	}
	return token.Position{}, false
}

// Diagnostic writes err to the diagnostic writer. When the error carries a
// position, the offending source line is quoted with a caret under the
// column. name labels the source, such as a file path.
func (r *Renderer) Diagnostic(name, src string, err error) {
	_, _ = fmt.Fprintln(r.errOut, FormatDiagnostic(r.styles, name, src, err))
}

// FormatDiagnostic renders err the way Renderer.Diagnostic prints it.
func FormatDiagnostic(s Styles, name, src string, err error) string {
	var b strings.Builder
	b.WriteString(s.Error.Render("error:"))
	b.WriteString(" ")
	b.WriteString(err.Error())

	pos, ok := Position(err)
	if !ok || pos.Line <= 0 {
		return b.String()
	}
	lines := strings.Split(src, "\n")
	if pos.Line > len(lines) {
		return b.String()
	}

	if name == "" {
		name = "<stdin>"
	}
	num := strconv.Itoa(pos.Line)
	pad := strings.Repeat(" ", len(num))
	line := strings.TrimRight(lines[pos.Line-1], "\r")
	col := max(pos.Column, 1)

	fmt.Fprintf(&b, "\n%s%s %s:%d:%d", pad, s.Gutter.Render("-->"), name, pos.Line, pos.Column)
	fmt.Fprintf(&b, "\n%s %s", pad, s.Gutter.Render("|"))
	fmt.Fprintf(&b, "\n%s %s %s", s.Gutter.Render(num), s.Gutter.Render("|"), line)
	fmt.Fprintf(&b, "\n%s %s %s%s", pad, s.Gutter.Render("|"), caretIndent(line, col), s.Caret.Render("^"))
	return b.String()
}

// caretIndent returns the padding that puts a caret under column col,
// keeping tabs so the caret lines up with the quoted line.
func caretIndent(line string, col int) string {
	var b strings.Builder
	i := 1
	for _, r := range line {
		if i >= col {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
		i++
	}
	for ; i < col; i++ {
		b.WriteRune(' ')
	}
	return b.String()
}
