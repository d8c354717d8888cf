package parser

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// maxBlockDepth bounds block nesting in the tokenizer.
const maxBlockDepth = 512

// TokenizeOptions configures the tokenizer.
type TokenizeOptions struct {
	// Dialect selects quoting rules. Nil means dialect.Default().
	Dialect *dialect.Dialect
	// EmitWhitespace emits whitespace runs as tokens instead of folding
	// them into the next token's Leading text.
	EmitWhitespace bool
	// EmitComments emits comments as tokens.
	EmitComments bool
	// StructuredBlocks groups (), [] and {} into block tokens whose
	// Children hold the nested sequence. When false, delimiters are emitted
	// as flat punctuation tokens but are still required to balance.
	StructuredBlocks bool
}

// operators is ordered so that longer spellings win.
var operators = []string{
	"->>", "::", ":=", "=>", "<=", ">=", "<>", "!=", "||", "->", "<<", ">>", "@>", "<@", "&&",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "~", "^", "&", "|", "#", "@",
}

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

// lexer tokenizes SQL pulled from a chunk stream.
type lexer struct {
	s       *stream
	d       *dialect.Dialect
	opts    TokenizeOptions
	pending strings.Builder // skipped trivia awaiting the next token
	open    []token.Token   // unclosed openers in flat mode
	prev    token.Token     // last non-trivia token
}

func newLexer(next func() (string, bool), opts TokenizeOptions) *lexer {
	d := opts.Dialect
	if d == nil {
		d = dialect.Default()
	}
	return &lexer{s: newStream(next), d: d, opts: opts}
}

// Tokenize returns a lazy, single-use token sequence over the given chunks.
// The sequence ends with an EOF token, or with a non-nil *LexError after
// which nothing else is produced.
func Tokenize(chunks iter.Seq[string], opts TokenizeOptions) iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		next, stop := iter.Pull(chunks)
		defer stop()
		l := newLexer(next, opts)
		for {
			tok, err := l.next()
			if err != nil {
				yield(token.Token{}, err)
				return
			}
			if !yield(tok, nil) || tok.Kind == token.EOF {
				return
			}
		}
	}
}

// TokenizeString tokenizes src and collects the tokens, EOF included.
func TokenizeString(src string, opts TokenizeOptions) ([]token.Token, error) {
	var tokens []token.Token
	for tok, err := range Tokenize(Text(src), opts) {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// next returns the next top-level token.
func (l *lexer) next() (token.Token, error) {
	tok, err := l.nextRaw()
	if err != nil {
		return token.Token{}, err
	}
	switch {
	case isOpener(tok):
		if l.opts.StructuredBlocks {
			return l.block(tok, 1)
		}
		if len(l.open) >= maxBlockDepth {
			return token.Token{}, &LexError{Span: tok.Span, Message: "blocks nested too deeply"}
		}
		l.open = append(l.open, tok)
	case isCloser(tok):
		if l.opts.StructuredBlocks || len(l.open) == 0 {
			return token.Token{}, &LexError{Span: tok.Span, Message: fmt.Sprintf(ErrUnmatchedCloser, tok.Text)}
		}
		top := l.open[len(l.open)-1]
		if want := closers[top.Text]; want != tok.Text {
			return token.Token{}, mismatched(top, tok)
		}
		l.open = l.open[:len(l.open)-1]
	case tok.Kind == token.EOF && len(l.open) > 0:
		top := l.open[len(l.open)-1]
		return token.Token{}, &LexError{Span: top.Span, Message: fmt.Sprintf(ErrUnmatchedOpener, top.Text)}
	}
	return tok, nil
}

// block reads the children of a block opened by open, up to and including
// the matching closer.
func (l *lexer) block(open token.Token, depth int) (token.Token, error) {
	if depth > maxBlockDepth {
		return token.Token{}, &LexError{Span: open.Span, Message: "blocks nested too deeply"}
	}
	kind, _ := token.BlockKind(open.Text[0])
	blk := token.Token{
		Kind:    kind,
		Text:    open.Text,
		Leading: open.Leading,
		Span:    token.Span{Start: open.Span.Start},
	}
	for {
		tok, err := l.nextRaw()
		if err != nil {
			return token.Token{}, err
		}
		switch {
		case tok.Kind == token.EOF:
			return token.Token{}, &LexError{Span: open.Span, Message: fmt.Sprintf(ErrUnmatchedOpener, open.Text)}
		case isOpener(tok):
			child, err := l.block(tok, depth+1)
			if err != nil {
				return token.Token{}, err
			}
			blk.Children = append(blk.Children, child)
		case isCloser(tok):
			if closers[open.Text] != tok.Text {
				return token.Token{}, mismatched(open, tok)
			}
			blk.Trailing = tok.Leading
			blk.Span.End = tok.Span.End
			return blk, nil
		default:
			blk.Children = append(blk.Children, tok)
		}
	}
}

func mismatched(open, found token.Token) error {
	return &LexError{
		Span: found.Span,
		Message: fmt.Sprintf(ErrMismatchedCloser, closers[open.Text], open.Text,
			open.Span.Start.Line, open.Span.Start.Column, found.Text),
	}
}

func isOpener(t token.Token) bool {
	return t.Kind == token.Punct && (t.Text == "(" || t.Text == "[" || t.Text == "{")
}

func isCloser(t token.Token) bool {
	return t.Kind == token.Punct && (t.Text == ")" || t.Text == "]" || t.Text == "}")
}

// nextRaw returns the next flat token, handling trivia according to the
// options.
func (l *lexer) nextRaw() (token.Token, error) {
	for {
		start := l.s.pos
		r := l.s.peek()
		var kind token.Kind
		switch {
		case r != eof && unicode.IsSpace(r):
			for r := l.s.peek(); r != eof && unicode.IsSpace(r); r = l.s.peek() {
				l.s.advance()
			}
			kind = token.Whitespace
		case r == '-' && l.s.peekByte(1) == '-':
			for r := l.s.peek(); r != eof && r != '\n'; r = l.s.peek() {
				l.s.advance()
			}
			kind = token.LineComment
		case r == '/' && l.s.peekByte(1) == '*':
			if err := l.blockComment(start); err != nil {
				return token.Token{}, err
			}
			kind = token.BlockComment
		default:
			tok, err := l.scan(start)
			if err != nil {
				return token.Token{}, err
			}
			tok.Leading = l.takePending()
			l.prev = tok
			return tok, nil
		}

		raw := l.s.take()
		emit := l.opts.EmitComments
		if kind == token.Whitespace {
			emit = l.opts.EmitWhitespace
		}
		if emit {
			return token.Token{
				Kind:    kind,
				Text:    raw,
				Raw:     raw,
				Leading: l.takePending(),
				Span:    token.Span{Start: start, End: l.s.pos},
			}, nil
		}
		l.pending.WriteString(raw)
	}
}

func (l *lexer) takePending() string {
	s := l.pending.String()
	l.pending.Reset()
	return s
}

// blockComment consumes a /* ... */ comment.
func (l *lexer) blockComment(start token.Position) error {
	l.s.advanceN(2)
	for {
		if l.s.hasPrefix("*/") {
			l.s.advanceN(2)
			return nil
		}
		if l.s.advance() == eof {
			return &LexError{Span: token.Span{Start: start, End: l.s.pos}, Message: ErrUnterminatedComment}
		}
	}
}

// scan reads one non-trivia token.
func (l *lexer) scan(start token.Position) (token.Token, error) {
	r := l.s.peek()
	var (
		kind token.Kind
		text string
		err  error
	)
	switch {
	case r == eof:
		return token.Token{Kind: token.EOF, Span: token.Span{Start: start, End: start}}, nil
	case r == '\'':
		kind = token.String
		text, err = l.quoted('\'', l.d.BackslashEscapes, false, start, ErrUnterminatedString)
	case (r == 'e' || r == 'E') && l.d.EscapeStrings && l.s.peekByte(1) == '\'':
		l.s.advance()
		kind = token.EscapeString
		text, err = l.quoted('\'', true, true, start, ErrUnterminatedString)
	case r == '"' && l.d.DoubleQuotedStrings:
		kind = token.String
		text, err = l.quoted('"', l.d.BackslashEscapes, false, start, ErrUnterminatedString)
	case r == '"':
		kind = token.QuotedIdent
		text, err = l.quoted('"', false, false, start, ErrUnterminatedIdent)
	case r == '`' && l.d.BacktickIdentifiers:
		kind = token.QuotedIdent
		text, err = l.quoted('`', false, false, start, ErrUnterminatedIdent)
	case r == '$':
		return l.dollar(start)
	case r == '?':
		l.s.advance()
		kind = token.Param
	case r == ':' && l.namedParam():
		l.s.advance()
		for r := l.s.peek(); isIdentPart(r); r = l.s.peek() {
			l.s.advance()
		}
		kind = token.Param
	case isDigit(r) || (r == '.' && isDigit(rune(l.s.peekByte(1)))):
		l.number()
		kind = token.Number
	case isIdentStart(r):
		for r := l.s.peek(); isIdentPart(r); r = l.s.peek() {
			l.s.advance()
		}
		kind = token.Ident
	case strings.ContainsRune("()[]{}", r):
		l.s.advance()
		kind = token.Punct
	default:
		kind, err = l.symbol(start)
	}
	if err != nil {
		return token.Token{}, err
	}

	raw := l.s.take()
	if kind != token.String && kind != token.EscapeString && kind != token.QuotedIdent {
		text = raw
	}
	if kind == token.Ident && l.d.IsReservedWord(raw) {
		kind = token.Keyword
	}
	return token.Token{
		Kind: kind,
		Text: text,
		Raw:  raw,
		Span: token.Span{Start: start, End: l.s.pos},
	}, nil
}

// namedParam reports whether the ':' under the cursor starts a :name
// parameter. After an operand the colon is punctuation, as in array slices
// and object keys.
func (l *lexer) namedParam() bool {
	if r, _ := l.s.peekRune(1); !isIdentStart(r) {
		return false
	}
	switch l.prev.Kind {
	case token.Ident, token.QuotedIdent, token.Number, token.Param,
		token.String, token.EscapeString, token.DollarString:
		return false
	case token.Punct:
		return !isCloser(l.prev)
	}
	return true
}

// symbol reads an operator or punctuation mark using longest match.
func (l *lexer) symbol(start token.Position) (token.Kind, error) {
	for _, op := range operators {
		if l.s.hasPrefix(op) {
			l.s.advanceN(len(op))
			return token.Operator, nil
		}
	}
	switch r := l.s.peek(); r {
	case ',', ';', '.', ':':
		l.s.advance()
		return token.Punct, nil
	default:
		l.s.advance()
		return token.EOF, &LexError{
			Span:    token.Span{Start: start, End: l.s.pos},
			Message: fmt.Sprintf(ErrUnexpectedChar, r),
		}
	}
}

// quoted reads a literal delimited by q, where a doubled q stands for one.
// With backslash set, backslash escapes are decoded; strict makes unknown
// escapes an error instead of yielding the escaped character.
func (l *lexer) quoted(q rune, backslash, strict bool, start token.Position, unterminated string) (string, error) {
	l.s.advance()
	var b strings.Builder
	for {
		r := l.s.peek()
		switch {
		case r == eof:
			return "", &LexError{Span: token.Span{Start: start, End: l.s.pos}, Message: unterminated}
		case r == q:
			l.s.advance()
			if l.s.peek() != q {
				return b.String(), nil
			}
			l.s.advance()
			b.WriteRune(q)
		case r == '\\' && backslash:
			escPos := l.s.pos
			l.s.advance()
			e := l.s.advance()
			if e == eof {
				return "", &LexError{Span: token.Span{Start: start, End: l.s.pos}, Message: unterminated}
			}
			var (
				decoded string
				ok      bool
			)
			if strict && isCodeEscape(e) {
				decoded, ok = l.escapeCode(e)
			} else {
				decoded, ok = decodeEscape(e)
			}
			if !ok {
				if strict {
					return "", &LexError{Span: token.Span{Start: escPos, End: l.s.pos}, Message: fmt.Sprintf(ErrInvalidEscape, e)}
				}
				decoded = string(e)
			}
			b.WriteString(decoded)
		default:
			b.WriteRune(l.s.advance())
		}
	}
}

func decodeEscape(e rune) (string, bool) {
	switch e {
	case 'n':
		return "\n", true
	case 't':
		return "\t", true
	case 'r':
		return "\r", true
	case 'b':
		return "\b", true
	case 'f':
		return "\f", true
	case '0':
		return "\x00", true
	case '\\', '\'', '"':
		return string(e), true
	}
	return "", false
}

func isCodeEscape(e rune) bool {
	return e >= '0' && e <= '7' || e == 'x' || e == 'u' || e == 'U'
}

// escapeCode decodes the numeric escapes of E'' strings once the escape
// letter e has been consumed: \ooo octal and \xhh hex bytes, \uXXXX and
// \UXXXXXXXX code points.
func (l *lexer) escapeCode(e rune) (string, bool) {
	switch e {
	case 'x':
		v, n := 0, 0
		for ; n < 2 && isHexDigit(l.s.peek()); n++ {
			v = v<<4 | hexValue(l.s.advance())
		}
		if n == 0 {
			return "", false
		}
		return string([]byte{byte(v)}), true
	case 'u', 'U':
		width := 4
		if e == 'U' {
			width = 8
		}
		v := 0
		for range width {
			if !isHexDigit(l.s.peek()) {
				return "", false
			}
			v = v<<4 | hexValue(l.s.advance())
		}
		if !utf8.ValidRune(rune(v)) {
			return "", false
		}
		return string(rune(v)), true
	default:
		v := int(e - '0')
		for i := 0; i < 2 && isOctalDigit(l.s.peek()); i++ {
			v = v<<3 | int(l.s.advance()-'0')
		}
		return string([]byte{byte(v)}), true
	}
}

func isOctalDigit(r rune) bool {
	return r >= '0' && r <= '7'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func hexValue(r rune) int {
	switch {
	case r >= 'a':
		return int(r-'a') + 10
	case r >= 'A':
		return int(r-'A') + 10
	}
	return int(r - '0')
}

// dollar reads a positional parameter ($1) or a dollar-quoted string. The
// closing tag must repeat the opening tag exactly.
func (l *lexer) dollar(start token.Position) (token.Token, error) {
	if isDigit(rune(l.s.peekByte(1))) {
		l.s.advance()
		for isDigit(l.s.peek()) {
			l.s.advance()
		}
		raw := l.s.take()
		return token.Token{Kind: token.Param, Text: raw, Raw: raw, Span: token.Span{Start: start, End: l.s.pos}}, nil
	}
	if !l.d.DollarQuoting {
		l.s.advance()
		return token.Token{}, &LexError{Span: token.Span{Start: start, End: l.s.pos}, Message: fmt.Sprintf(ErrUnexpectedChar, '$')}
	}

	n := 1
	for {
		b := l.s.peekByte(n)
		if b == '$' {
			break
		}
		if !isTagByte(b, n == 1) {
			l.s.advance()
			return token.Token{}, &LexError{Span: token.Span{Start: start, End: l.s.pos}, Message: fmt.Sprintf(ErrUnexpectedChar, '$')}
		}
		n++
	}
	l.s.advanceN(n + 1)
	tag := l.s.lit.String()

	var body strings.Builder
	for !l.s.hasPrefix(tag) {
		r := l.s.advance()
		if r == eof {
			return token.Token{}, &LexError{
				Span:    token.Span{Start: start, End: l.s.pos},
				Message: fmt.Sprintf(ErrUnterminatedDollar, tag),
			}
		}
		body.WriteRune(r)
	}
	l.s.advanceN(len(tag))
	raw := l.s.take()
	return token.Token{
		Kind: token.DollarString,
		Text: body.String(),
		Raw:  raw,
		Span: token.Span{Start: start, End: l.s.pos},
	}, nil
}

// number reads an integer, decimal or scientific literal. A sign is never
// part of the literal; the parser decides between operator and sign.
func (l *lexer) number() {
	for isDigit(l.s.peek()) {
		l.s.advance()
	}
	if l.s.peek() == '.' && isDigit(rune(l.s.peekByte(1))) {
		l.s.advance()
		for isDigit(l.s.peek()) {
			l.s.advance()
		}
	}
	if r := l.s.peek(); r == 'e' || r == 'E' {
		n := 1
		if b := l.s.peekByte(1); b == '+' || b == '-' {
			n = 2
		}
		if isDigit(rune(l.s.peekByte(n))) {
			l.s.advanceN(n)
			for isDigit(l.s.peek()) {
				l.s.advance()
			}
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return dialect.IsIdentStart(r)
}

func isIdentPart(r rune) bool {
	return r != eof && dialect.IsIdentPart(r)
}

func isTagByte(b byte, first bool) bool {
	switch {
	case b == '_', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case !first && b >= '0' && b <= '9':
		return true
	}
	return false
}
