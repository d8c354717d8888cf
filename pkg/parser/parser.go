// Package parser turns SQL text into generic syntax trees.
//
// # Usage
//
//	tree, err := parser.Parse("SELECT a, b FROM t", parser.Options{Dialect: dialect.Postgres})
//	if err != nil {
//	    // *LexError, *SyntaxError, *StructuralError or *DepthError
//	}
//
// # How it works
//
// The tokenizer (Tokenize) groups parentheses, brackets and braces into
// block tokens. The parser then interprets the declarative rules of a
// grammar.Table against that token tree: literals match one token, sequences
// match their items in order, and alternatives are tried in the order the
// table assigns them (priority, then structural specificity, then
// declaration order), committing to the first that matches. A failed
// alternative leaves no trace; a block claimed by a rule must be consumed
// entirely or the parse fails with a StructuralError.
//
// Results of kind attempts are memoized per position, so backtracking over
// shared prefixes (every comparison starts with the same operand) stays
// linear in practice.
package parser

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/grammar"
	"github.com/leapstack-labs/sqlfront/pkg/sqlgrammar"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// DefaultMaxDepth bounds nested kind attempts.
const DefaultMaxDepth = 1000

// Options configures a parse.
type Options struct {
	// Dialect selects tokenizer rules and dialect-restricted kinds. Nil
	// means dialect.Default().
	Dialect *dialect.Dialect
	// Grammar is the kind table. Nil means sqlgrammar.Table().
	Grammar *grammar.Table
	// MaxDepth bounds nesting; 0 means DefaultMaxDepth.
	MaxDepth int
	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Dialect == nil {
		o.Dialect = dialect.Default()
	}
	if o.Grammar == nil {
		o.Grammar = sqlgrammar.Table()
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Parse parses src as the grammar's entry kind (a script of statements for
// the SQL grammar).
func Parse(src string, opts Options) (*ast.Node, error) {
	opts = opts.withDefaults()
	return ParseKind(opts.Grammar.Entry(), src, opts)
}

// ParseReader parses the text read from r as the grammar's entry kind.
func ParseReader(r io.Reader, opts Options) (*ast.Node, error) {
	opts = opts.withDefaults()
	toks, err := collect(Chunks(r, 0), opts.Dialect)
	if err != nil {
		return nil, err
	}
	return ParseTokens(opts.Grammar.Entry(), toks, opts)
}

// ParseKind parses src as the named kind. The whole input must be consumed.
func ParseKind(kind, src string, opts Options) (*ast.Node, error) {
	opts = opts.withDefaults()
	toks, err := collect(Text(src), opts.Dialect)
	if err != nil {
		return nil, err
	}
	return ParseTokens(kind, toks, opts)
}

func collect(chunks iter.Seq[string], d *dialect.Dialect) ([]token.Token, error) {
	var toks []token.Token
	for tok, err := range Tokenize(chunks, TokenizeOptions{Dialect: d, StructuredBlocks: true}) {
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

// ParseTokens parses a structured token sequence as the named kind. Trivia
// tokens are ignored and a trailing EOF token is optional.
func ParseTokens(kind string, toks []token.Token, opts Options) (*ast.Node, error) {
	opts = opts.withDefaults()
	k, ok := opts.Grammar.Kind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	toks = stripTrivia(toks)
	var end token.Position
	if n := len(toks); n > 0 && toks[n-1].Kind == token.EOF {
		end = toks[n-1].Span.Start
		toks = toks[:n-1]
	} else if n > 0 {
		end = toks[n-1].Span.End
	}
	if len(toks) == 0 {
		return nil, ErrEmptyInput
	}

	p := &parser{
		g:        opts.Grammar,
		d:        opts.Dialect,
		maxDepth: opts.MaxDepth,
		memo:     make(map[memoKey]memoEntry),
		furthest: -1,
	}
	top := span{toks: toks, end: end}
	node, pos, ok, err := p.kind(k, top, 0)
	if err != nil {
		return nil, err
	}
	if ok && pos == len(toks) {
		opts.Logger.Debug("parsed",
			slog.String("kind", kind),
			slog.Int("tokens", len(toks)),
			slog.Int("memo", len(p.memo)),
			slog.String("dialect", opts.Dialect.Name))
		return node, nil
	}
	if ok {
		p.fail(top, pos, "end of input")
	}
	return nil, p.syntaxError()
}

// span is a token sequence being parsed: the top-level input or the children
// of a block. end is where the sequence stops in the source.
type span struct {
	toks []token.Token
	end  token.Position
}

func (s span) at(pos int) token.Token {
	if pos < len(s.toks) {
		return s.toks[pos]
	}
	return token.Token{Kind: token.EOF, Span: token.Span{Start: s.end, End: s.end}}
}

type memoKey struct {
	kind  string
	first *token.Token
	pos   int
}

type memoEntry struct {
	node *ast.Node
	end  int
	ok   bool
}

type parser struct {
	g        *grammar.Table
	d        *dialect.Dialect
	maxDepth int
	depth    int
	stack    []string
	memo     map[memoKey]memoEntry

	// diagnostics: the furthest failure and what was expected there
	furthest int
	pos      token.Position
	found    string
	expected []string
}

// kind attempts k at pos.
func (p *parser) kind(k *grammar.Kind, s span, pos int) (*ast.Node, int, bool, error) {
	var key memoKey
	if len(s.toks) > 0 {
		key = memoKey{kind: k.Name, first: &s.toks[0], pos: pos}
		if e, hit := p.memo[key]; hit {
			return e.node, e.end, e.ok, nil
		}
	}

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, pos, false, &DepthError{Pos: s.at(pos).Span.Start, Limit: p.maxDepth}
	}
	p.stack = append(p.stack, k.Name)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	var (
		node *ast.Node
		end  = pos
		ok   bool
		err  error
	)
	if k.Parse != nil {
		c := &hookCursor{p: p, s: s, pos: pos}
		node, ok, err = k.Parse(c, k)
		end = c.pos
		if ok && node != nil && node.Kind == "" {
			node.Kind = k.Name
		}
	} else {
		var (
			fields []ast.Field
			v      ast.Value
		)
		v, end, ok, err = p.eval(k.Rule, s, pos, &fields)
		if child, isNode := v.(*ast.Node); ok && isNode && len(fields) == 0 {
			node = child // alias kind
		} else if ok {
			node = &ast.Node{Kind: k.Name, Fields: fields}
		}
	}
	if err != nil {
		return nil, pos, false, err
	}
	if !ok || node == nil {
		ok, node, end = false, nil, pos
	} else {
		if end > pos && node.Kind == k.Name {
			node.Span = token.Span{Start: s.toks[pos].Span.Start, End: s.toks[end-1].Span.End}
		}
		node = collapse(k, node)
	}

	if key.first != nil {
		p.memo[key] = memoEntry{node: node, end: end, ok: ok}
	}
	return node, end, ok, nil
}

// collapse replaces a node holding a single operand with the operand.
func collapse(k *grammar.Kind, n *ast.Node) *ast.Node {
	if k.Collapse == "" || len(n.Fields) != 1 {
		return n
	}
	list, ok := n.Fields[0].Value.(ast.List)
	if !ok || n.Fields[0].Name != k.Collapse || len(list.Items) != 1 {
		return n
	}
	if child, ok := list.Items[0].(*ast.Node); ok {
		return child
	}
	return n
}

// eval runs r at pos. Sequences bind their slots into fields and return a
// nil value; every other rule returns the value it matched. On no match the
// position is unchanged and fields are left as they were.
func (p *parser) eval(r grammar.Rule, s span, pos int, fields *[]ast.Field) (ast.Value, int, bool, error) {
	switch r := r.(type) {
	case grammar.Seq:
		mark := len(*fields)
		cur := pos
		for _, it := range r.Items {
			end, ok, err := p.item(it, s, cur, fields)
			if err != nil {
				return nil, pos, false, err
			}
			if !ok {
				*fields = (*fields)[:mark]
				return nil, pos, false, nil
			}
			cur = end
		}
		return nil, cur, true, nil

	case grammar.Lit:
		words := r.Words()
		for i, w := range words {
			if !s.at(pos + i).Is(w) {
				p.fail(s, pos+i, grammar.Describe(grammar.Lit{Text: w}))
				return nil, pos, false, nil
			}
		}
		return ast.Lit{Token: litToken(r.Text), Text: r.Text}, pos + len(words), true, nil

	case grammar.OneOf:
		for _, text := range r.Texts {
			if n := matchWords(s, pos, text); n > 0 {
				return ast.Lit{Token: litToken(text), Text: text}, pos + n, true, nil
			}
		}
		p.fail(s, pos, grammar.Describe(r))
		return nil, pos, false, nil

	case grammar.Alt, grammar.Category, grammar.Ref:
		for _, k := range p.g.Candidates(r) {
			if !k.Supports(p.d) {
				continue
			}
			node, end, ok, err := p.kind(k, s, pos)
			if err != nil {
				return nil, pos, false, err
			}
			if ok {
				return node, end, true, nil
			}
		}
		return nil, pos, false, nil

	case grammar.Block:
		tok := s.at(pos)
		if tok.Kind != r.Delim {
			p.fail(s, pos, grammar.Describe(r))
			return nil, pos, false, nil
		}
		inner := span{toks: tok.Children, end: tok.CloserStart()}
		mark := len(*fields)
		v, end, ok, err := p.eval(r.Inner, inner, 0, fields)
		if err != nil || !ok {
			return nil, pos, false, err
		}
		if end < len(inner.toks) {
			*fields = (*fields)[:mark]
			extra := inner.toks[end]
			return nil, pos, false, &StructuralError{
				Pos:     extra.Span.Start,
				Path:    strings.Join(p.stack, " > "),
				Message: fmt.Sprintf(ErrTrailingInBlock, describe(extra), tok.Kind),
			}
		}
		return v, pos + 1, true, nil

	case grammar.Ident:
		if tok := s.at(pos); tok.Kind == token.Ident || tok.Kind == token.QuotedIdent {
			return ast.Lit{Token: tok.Kind, Text: tok.Text}, pos + 1, true, nil
		}
	case grammar.Number:
		if tok := s.at(pos); tok.Kind == token.Number {
			return ast.Lit{Token: tok.Kind, Text: tok.Text}, pos + 1, true, nil
		}
	case grammar.String:
		if tok := s.at(pos); tok.Kind.IsString() {
			lit := ast.Lit{Token: tok.Kind, Text: tok.Text}
			if tok.Kind == token.DollarString {
				lit.Raw = tok.Raw
			}
			return lit, pos + 1, true, nil
		}
	case grammar.Param:
		if tok := s.at(pos); tok.Kind == token.Param {
			return ast.Lit{Token: tok.Kind, Text: tok.Text}, pos + 1, true, nil
		}
	default:
		return nil, pos, false, fmt.Errorf("unsupported rule %T", r)
	}
	p.fail(s, pos, grammar.Describe(r))
	return nil, pos, false, nil
}

// item matches one sequence item, binding its slot.
func (p *parser) item(it grammar.Item, s span, pos int, fields *[]ast.Field) (int, bool, error) {
	if it.Repeat {
		return p.repeat(it, s, pos, fields)
	}
	v, end, ok, err := p.eval(it.Rule, s, pos, fields)
	if err != nil {
		return pos, false, err
	}
	if !ok {
		return pos, it.Optional, nil
	}
	if it.Slot != "" {
		*fields = append(*fields, ast.Field{Name: it.Slot, Value: v})
	}
	return end, true, nil
}

func (p *parser) repeat(it grammar.Item, s span, pos int, fields *[]ast.Field) (int, bool, error) {
	var list ast.List
	cur := pos
	for it.Max == grammar.Unbounded || len(list.Items) < it.Max {
		next := cur
		var sep ast.Value
		if len(list.Items) > 0 && it.Sep != nil {
			var scratch []ast.Field
			v, end, ok, err := p.eval(it.Sep, s, cur, &scratch)
			if err != nil {
				return pos, false, err
			}
			if !ok {
				break
			}
			sep, next = v, end
		}
		v, end, ok, err := p.eval(it.Rule, s, next, fields)
		if err != nil {
			return pos, false, err
		}
		if !ok {
			break
		}
		list.Items = append(list.Items, v)
		if it.KeepSeps && sep != nil {
			list.Seps = append(list.Seps, sepText(sep))
		}
		cur = end
	}
	if len(list.Items) < it.Min {
		return pos, it.Optional, nil
	}
	if len(list.Items) > 0 {
		*fields = append(*fields, ast.Field{Name: it.Slot, Value: list})
	}
	return cur, true, nil
}

func sepText(v ast.Value) string {
	if lit, ok := v.(ast.Lit); ok {
		return lit.Text
	}
	return ""
}

// fail records a mismatch for diagnostics. Only the furthest position is
// kept, with every expectation seen there.
func (p *parser) fail(s span, pos int, want string) {
	tok := s.at(pos)
	off := tok.Span.Start.Offset
	switch {
	case off > p.furthest:
		p.furthest = off
		p.pos = tok.Span.Start
		p.found = describe(tok)
		p.expected = append(p.expected[:0], want)
	case off == p.furthest && !slices.Contains(p.expected, want):
		p.expected = append(p.expected, want)
	}
}

func (p *parser) syntaxError() error {
	expected := slices.Clone(p.expected)
	slices.Sort(expected)
	return &SyntaxError{Furthest: p.pos, Found: p.found, Expected: expected}
}

// matchWords returns how many tokens the words of text match at pos, or 0.
func matchWords(s span, pos int, text string) int {
	words := strings.Fields(text)
	for i, w := range words {
		if !s.at(pos + i).Is(w) {
			return 0
		}
	}
	return len(words)
}

// litToken classifies a declared literal spelling.
func litToken(text string) token.Kind {
	switch {
	case text == "," || text == ";" || text == "." || text == ":":
		return token.Punct
	case strings.IndexFunc(text, isIdentStart) == 0:
		return token.Keyword
	}
	return token.Operator
}

func describe(t token.Token) string {
	switch {
	case t.Kind == token.EOF:
		return "end of input"
	case t.Kind.IsBlock():
		open, _ := t.Kind.Delimiters()
		return fmt.Sprintf("%q", open)
	}
	return fmt.Sprintf("%q", t.Raw)
}

// stripTrivia drops whitespace and comment tokens, recursing into blocks.
func stripTrivia(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind.IsTrivia() {
			continue
		}
		if t.Kind.IsBlock() {
			t.Children = stripTrivia(t.Children)
		}
		out = append(out, t)
	}
	return out
}

// hookCursor exposes the parser to custom parse hooks.
type hookCursor struct {
	p   *parser
	s   span
	pos int
}

func (c *hookCursor) Peek() token.Token { return c.s.at(c.pos) }

func (c *hookCursor) Accept(text string) bool {
	v, end, ok, _ := c.p.eval(grammar.Lit{Text: text}, c.s, c.pos, nil)
	if ok && v != nil {
		c.pos = end
	}
	return ok
}

func (c *hookCursor) Match(r grammar.Rule) ([]ast.Field, bool, error) {
	var fields []ast.Field
	_, end, ok, err := c.p.eval(r, c.s, c.pos, &fields)
	if err != nil || !ok {
		return nil, false, err
	}
	c.pos = end
	return fields, true, nil
}

func (c *hookCursor) Dialect() *dialect.Dialect { return c.p.d }

var _ grammar.Cursor = (*hookCursor)(nil)
