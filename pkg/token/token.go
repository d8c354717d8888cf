// Package token defines the lexical tokens produced by the tokenizer.
//
// A token is immutable once produced. Block tokens (parenthesis, bracket and
// brace groups) carry their nested token sequence in Children instead of a
// text value, so a whole statement can be handed around as a tree of tokens.
package token

import (
	"fmt"
	"strings"
)

// Kind classifies a token.
type Kind int32

const (
	// Special tokens
	EOF Kind = iota
	Whitespace
	LineComment
	BlockComment

	// Words
	Ident       // unquoted identifier
	QuotedIdent // "ident" or `ident`
	Keyword     // reserved word of the active dialect

	// Literals
	Number
	String       // 'text'
	DollarString // $tag$ text $tag$
	EscapeString // E'text\n'
	Param        // $1, ?, :name

	// Symbols
	Punct    // , ; . :
	Operator // + - * / = <> :: || ...

	// Blocks
	ParenBlock   // ( ... )
	BracketBlock // [ ... ]
	BraceBlock   // { ... }
)

var kindNames = map[Kind]string{
	EOF:          "EOF",
	Whitespace:   "whitespace",
	LineComment:  "line_comment",
	BlockComment: "block_comment",
	Ident:        "identifier",
	QuotedIdent:  "quoted_identifier",
	Keyword:      "keyword",
	Number:       "number",
	String:       "string",
	DollarString: "dollar_string",
	EscapeString: "escape_string",
	Param:        "param",
	Punct:        "punctuation",
	Operator:     "operator",
	ParenBlock:   "paren_block",
	BracketBlock: "bracket_block",
	BraceBlock:   "brace_block",
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", k)
}

// IsBlock reports whether k is one of the block kinds.
func (k Kind) IsBlock() bool {
	return k == ParenBlock || k == BracketBlock || k == BraceBlock
}

// IsTrivia reports whether k is whitespace or a comment.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == LineComment || k == BlockComment
}

// IsString reports whether k is any of the string literal kinds.
func (k Kind) IsString() bool {
	return k == String || k == DollarString || k == EscapeString
}

// Delimiters returns the opening and closing delimiter of a block kind.
func (k Kind) Delimiters() (open, closing string) {
	switch k {
	case ParenBlock:
		return "(", ")"
	case BracketBlock:
		return "[", "]"
	case BraceBlock:
		return "{", "}"
	}
	return "", ""
}

// BlockKind returns the block kind opened by the given delimiter.
func BlockKind(open byte) (Kind, bool) {
	switch open {
	case '(':
		return ParenBlock, true
	case '[':
		return BracketBlock, true
	case '{':
		return BraceBlock, true
	}
	return EOF, false
}

// Token represents a lexical token with position information.
type Token struct {
	Kind Kind
	// Text is the decoded value: identifier name without quotes, string
	// contents with escapes resolved, operator or keyword spelling.
	Text string
	// Raw is the exact source text of a non-block token.
	Raw string
	// Leading holds whitespace and comments skipped before this token when
	// the tokenizer was not asked to emit them.
	Leading string
	// Children is the nested sequence of a block token.
	Children []Token
	// Trailing holds skipped trivia between the last child and the closer.
	Trailing string
	Span     Span
}

// Is reports whether the token is a keyword, identifier, punctuation or
// operator spelled text, ignoring case.
func (t Token) Is(text string) bool {
	switch t.Kind {
	case Keyword, Ident, Punct, Operator:
		return strings.EqualFold(t.Text, text)
	}
	return false
}

// IsWord reports whether the token is an unquoted word (keyword or identifier).
func (t Token) IsWord() bool {
	return t.Kind == Keyword || t.Kind == Ident
}

func (t Token) String() string {
	if t.Kind.IsBlock() {
		open, closing := t.Kind.Delimiters()
		return fmt.Sprintf("%s%s…%s@%s", t.Kind, open, closing, t.Span.Start)
	}
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Raw, t.Span.Start)
}

// CloserStart returns the position of a block's closing delimiter, which is
// where its children end. For other tokens it is the end of the token.
func (t Token) CloserStart() Position {
	end := t.Span.End
	if t.Kind.IsBlock() && end.Offset > t.Span.Start.Offset {
		end.Offset--
		end.Column--
	}
	return end
}

// Source reproduces the exact source text of a token, excluding its leading
// trivia. For blocks this is the opener, the children, the trailing trivia
// and the closer.
func Source(t Token) string {
	if !t.Kind.IsBlock() {
		return t.Raw
	}
	open, closing := t.Kind.Delimiters()
	var b strings.Builder
	b.WriteString(open)
	b.WriteString(Concat(t.Children))
	b.WriteString(t.Trailing)
	b.WriteString(closing)
	return b.String()
}

// Concat re-concatenates a token sequence, leading trivia included.
func Concat(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Leading)
		b.WriteString(Source(t))
	}
	return b.String()
}
