package ast

import "github.com/leapstack-labs/sqlfront/pkg/token"

// Equal reports whether two trees are structurally equal. Spans, field order
// and the spelling details that do not survive a portable round trip (the
// quoting style of a string, whether a word was a keyword) are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || len(a.Fields) != len(b.Fields) {
		return false
	}
	for _, f := range a.Fields {
		other, ok := b.Get(f.Name)
		if !ok || !EqualValue(f.Value, other) {
			return false
		}
	}
	return true
}

// EqualValue reports whether two slot values are structurally equal.
func EqualValue(a, b Value) bool {
	switch a := a.(type) {
	case *Node:
		bn, ok := b.(*Node)
		return ok && Equal(a, bn)
	case Lit:
		bl, ok := b.(Lit)
		return ok && litClass(a.Token) == litClass(bl.Token) && a.Text == bl.Text
	case List:
		bl, ok := b.(List)
		if !ok || len(a.Items) != len(bl.Items) || !equalSeps(a.Seps, bl.Seps) {
			return false
		}
		for i := range a.Items {
			if !EqualValue(a.Items[i], bl.Items[i]) {
				return false
			}
		}
		return true
	}
	return a == nil && b == nil
}

func equalSeps(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// litClass groups token kinds whose distinction is not preserved by the
// portable form.
func litClass(k token.Kind) token.Kind {
	switch k {
	case token.Ident, token.Keyword, token.Operator, token.Punct:
		return token.Ident
	case token.String, token.EscapeString, token.DollarString:
		return token.String
	}
	return k
}
