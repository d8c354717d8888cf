package format

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/grammar"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Printer renders nodes by walking their grammar rules.
type Printer struct {
	g           *grammar.Table
	out         *dialect.Dialect
	translating bool
	width       int
	upper       cases.Caser

	output      strings.Builder
	depth       int
	atLineStart bool
	last        string // last token written
	glue        bool   // next token attaches to the previous one
	params      int    // positional parameters seen
	named       map[string]int
}

func newPrinter(ctx Context) *Printer {
	from := ctx.Dialect
	if from == nil {
		from = dialect.Default()
	}
	out := ctx.Output()
	return &Printer{
		g:           ctx.Table(),
		out:         out,
		translating: out != from,
		width:       ctx.IndentWidth,
		upper:       cases.Upper(language.Und),
		atLineStart: true,
	}
}

// String returns the rendered text.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), " \n")
}

var (
	noSpaceBefore = map[string]bool{",": true, ";": true, ")": true, "]": true, "}": true, ".": true, "::": true, ":": true}
	noSpaceAfter  = map[string]bool{"(": true, "[": true, "{": true, ".": true, "::": true}
)

// write emits one token, deciding the separating whitespace.
func (p *Printer) write(s string) {
	switch {
	case p.output.Len() == 0:
	case p.atLineStart:
		p.writeIndent()
	case p.glue || noSpaceBefore[s] || noSpaceAfter[p.last]:
		// "--" and "/*" would start a comment
		if (strings.HasSuffix(p.last, "-") && strings.HasPrefix(s, "-")) ||
			(strings.HasSuffix(p.last, "/") && strings.HasPrefix(s, "*")) {
			p.output.WriteByte(' ')
		}
	default:
		p.output.WriteByte(' ')
	}
	p.output.WriteString(s)
	p.last = s
	p.glue = false
	p.atLineStart = false
}

func (p *Printer) writeln() {
	if p.width <= 0 || p.output.Len() == 0 || p.atLineStart {
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	p.output.WriteString(strings.Repeat(" ", p.depth*p.width))
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// keyword writes a keyword or multi-word keyword phrase.
func (p *Printer) keyword(s string) {
	for _, w := range strings.Fields(s) {
		if isWord(w) {
			w = p.upper.String(w)
		}
		p.write(w)
	}
}

func (p *Printer) node(n *ast.Node) error {
	if n == nil {
		return &ast.StructuralError{Message: "nil node"}
	}
	k, ok := p.g.Kind(n.Kind)
	if !ok {
		return &ast.StructuralError{Path: n.Kind, Message: fmt.Sprintf("unknown node kind %q", n.Kind)}
	}
	if p.translating && k.Morph != nil && !k.Supports(p.out) {
		morphed, err := k.Morph(n, p.out)
		if err != nil {
			return fmt.Errorf("rewrite %s for %s: %w", n.Kind, p.out.Name, err)
		}
		if morphed.Kind != n.Kind {
			return p.node(morphed)
		}
		n = morphed
	}
	return p.rule(k.Rule, n, nil)
}

// rule prints r for node n. v is the value an enclosing item bound to r.
func (p *Printer) rule(r grammar.Rule, n *ast.Node, v ast.Value) error {
	switch r := r.(type) {
	case grammar.Seq:
		for _, it := range r.Items {
			if err := p.item(it, n); err != nil {
				return err
			}
		}
		return nil
	case grammar.Block:
		open, closing := r.Delim.Delimiters()
		p.write(open)
		if r.Indent {
			p.indent()
			p.writeln()
		}
		err := p.rule(r.Inner, n, v)
		if r.Indent {
			p.dedent()
			p.writeln()
		}
		p.write(closing)
		return err
	case grammar.Lit:
		// a bound literal only records presence; the rule has the spelling
		p.keyword(r.Text)
		return nil
	case grammar.OneOf:
		lit, ok := v.(ast.Lit)
		if ok {
			for _, text := range r.Texts {
				if strings.EqualFold(text, lit.Text) {
					p.keyword(text)
					return nil
				}
			}
		}
		return &ast.StructuralError{Path: n.Kind, Message: fmt.Sprintf("expected one of %s", grammar.Describe(r))}
	}
	return p.value(n, v)
}

func (p *Printer) value(n *ast.Node, v ast.Value) error {
	switch v := v.(type) {
	case *ast.Node:
		return p.node(v)
	case ast.Lit:
		p.lit(v)
		return nil
	case nil:
		return &ast.StructuralError{Path: n.Kind, Message: "missing value"}
	}
	return &ast.StructuralError{Path: n.Kind, Message: fmt.Sprintf("unexpected %T", v)}
}

func (p *Printer) item(it grammar.Item, n *ast.Node) error {
	if it.Slot == "" {
		if it.Optional && !present(it.Rule, n) {
			return nil
		}
		return p.hinted(it, func() error { return p.rule(it.Rule, n, nil) })
	}

	v, ok := n.Get(it.Slot)
	if !ok {
		if it.Optional || (it.Repeat && it.Min == 0) {
			return nil
		}
		return &ast.StructuralError{Path: n.Kind, Message: fmt.Sprintf("missing required slot %q", it.Slot)}
	}
	if it.Repeat {
		return p.list(it, n, v)
	}
	return p.hinted(it, func() error { return p.rule(it.Rule, n, v) })
}

// hinted applies the layout hints of a single item around print.
func (p *Printer) hinted(it grammar.Item, print func() error) error {
	switch {
	case it.Indent:
		p.indent()
		defer p.dedent()
		p.writeln()
	case it.Break:
		p.writeln()
	}
	if it.Tight {
		p.glue = true
	}
	return print()
}

func (p *Printer) list(it grammar.Item, n *ast.Node, v ast.Value) error {
	list, ok := v.(ast.List)
	if !ok {
		return &ast.StructuralError{Path: n.Kind + "." + it.Slot, Message: fmt.Sprintf("expected a list, got %T", v)}
	}
	if it.Indent {
		p.indent()
		defer p.dedent()
	}
	for i, item := range list.Items {
		if i > 0 && it.Sep != nil {
			p.separator(it.Sep, list, i-1)
		}
		if it.Indent || it.Break {
			p.writeln()
		}
		if i == 0 && it.Tight {
			p.glue = true
		}
		if err := p.rule(it.Rule, n, item); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) separator(sep grammar.Rule, list ast.List, i int) {
	if i < len(list.Seps) && list.Seps[i] != "" {
		p.keyword(list.Seps[i])
		return
	}
	switch s := sep.(type) {
	case grammar.Lit:
		p.keyword(s.Text)
	case grammar.OneOf:
		p.keyword(s.Texts[0])
	}
}

func (p *Printer) lit(l ast.Lit) {
	switch l.Token {
	case token.Keyword, token.Operator, token.Punct:
		p.keyword(l.Text)
	case token.Ident:
		p.write(p.out.QuoteIdentifierIfNeeded(l.Text))
	case token.QuotedIdent:
		p.write(p.out.QuoteIdentifier(l.Text))
	case token.DollarString:
		if p.out.DollarQuoting && l.Raw != "" {
			p.write(l.Raw)
			return
		}
		p.write(p.out.QuoteString(l.Text))
	case token.String, token.EscapeString:
		p.write(p.out.QuoteString(l.Text))
	case token.Param:
		p.write(p.param(l.Text))
	default:
		p.write(l.Text)
	}
}

// param renumbers placeholders when translating between dialects.
func (p *Printer) param(text string) string {
	if !p.translating {
		return text
	}
	switch {
	case strings.HasPrefix(text, "$"):
		p.params++
		if n, err := strconv.Atoi(text[1:]); err == nil {
			return p.out.FormatPlaceholder(n)
		}
	case strings.HasPrefix(text, ":"):
		// a repeated name binds the same numbered argument
		if n, ok := p.named[text]; ok && p.out.Placeholder == dialect.PlaceholderDollar {
			return p.out.FormatPlaceholder(n)
		}
		p.params++
		if p.named == nil {
			p.named = make(map[string]int)
		}
		if _, ok := p.named[text]; !ok {
			p.named[text] = p.params
		}
	default:
		p.params++
	}
	return p.out.FormatPlaceholder(p.params)
}

// present reports whether any slot bound by r is set on n.
func present(r grammar.Rule, n *ast.Node) bool {
	for _, it := range grammar.SlotItems(r) {
		if n.Has(it.Slot) {
			return true
		}
	}
	return false
}

func isWord(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) < 0
}
