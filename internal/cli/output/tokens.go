package output

import "github.com/leapstack-labs/sqlfront/pkg/token"

// TokenView is the structured form of a token.
type TokenView struct {
	Kind     string      `json:"kind" yaml:"kind"`
	Text     string      `json:"text,omitempty" yaml:"text,omitempty"`
	Line     int         `json:"line" yaml:"line"`
	Column   int         `json:"column" yaml:"column"`
	Children []TokenView `json:"children,omitempty" yaml:"children,omitempty"`
}

// ViewToken converts tok. Blocks show their delimiters as text.
func ViewToken(tok token.Token) TokenView {
	v := TokenView{
		Kind:   tok.Kind.String(),
		Text:   tok.Text,
		Line:   tok.Span.Start.Line,
		Column: tok.Span.Start.Column,
	}
	if tok.Kind.IsBlock() {
		open, closing := tok.Kind.Delimiters()
		v.Text = open + closing
		for _, child := range tok.Children {
			v.Children = append(v.Children, ViewToken(child))
		}
	}
	return v
}
