// Package ast defines the generic syntax tree produced by the parser.
//
// Every node is a Kind name plus an ordered list of named fields (slots).
// A field holds a child *Node, a Lit, or a List of either. A node owns its
// children exclusively; no subtree is shared between two parents.
package ast

import (
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// PendingPrefix marks the pending counterpart of a slot on builder nodes.
const PendingPrefix = "$"

// Value is the closed set of slot values: *Node, Lit and List.
type Value interface {
	value()
}

// Node is a parsed or constructed syntax tree node.
type Node struct {
	Kind   string
	Fields []Field
	Span   token.Span
}

// Field is a named slot of a node.
type Field struct {
	Name  string
	Value Value
}

// Lit is a terminal value: an identifier, literal, keyword or operator.
type Lit struct {
	Token token.Kind
	// Text is the decoded value. Keywords and operators bound to a slot
	// hold their declared spelling.
	Text string
	// Raw is the original spelling, kept for dollar-quoted strings.
	Raw string
}

// List is an ordered sequence of values. Seps holds the separator spelling
// between consecutive items when the separator carries meaning (operators).
type List struct {
	Items []Value
	Seps  []string
}

func (*Node) value() {}
func (Lit) value()   {}
func (List) value()  {}

// New returns a node of the given kind with the given fields.
func New(kind string, fields ...Field) *Node {
	return &Node{Kind: kind, Fields: fields}
}

// F is shorthand for building a Field.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Word returns an identifier literal.
func Word(text string) Lit {
	return Lit{Token: token.Ident, Text: text}
}

// Keyword returns a keyword literal.
func Keyword(text string) Lit {
	return Lit{Token: token.Keyword, Text: text}
}

// Number returns a numeric literal.
func Number(text string) Lit {
	return Lit{Token: token.Number, Text: text}
}

// String returns a string literal.
func String(text string) Lit {
	return Lit{Token: token.String, Text: text}
}

// Get returns the value of the named field.
func (n *Node) Get(name string) (Value, bool) {
	if n == nil {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the named field is present.
func (n *Node) Has(name string) bool {
	_, ok := n.Get(name)
	return ok
}

// Child returns the named field if it holds a node.
func (n *Node) Child(name string) *Node {
	v, _ := n.Get(name)
	child, _ := v.(*Node)
	return child
}

// Text returns the text of the named field if it holds a literal.
func (n *Node) Text(name string) string {
	v, _ := n.Get(name)
	if lit, ok := v.(Lit); ok {
		return lit.Text
	}
	return ""
}

// Items returns the items of the named field if it holds a list.
func (n *Node) Items(name string) []Value {
	v, _ := n.Get(name)
	if list, ok := v.(List); ok {
		return list.Items
	}
	return nil
}

// Set replaces the named field, appending it if absent.
func (n *Node) Set(name string, v Value) {
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			n.Fields[i].Value = v
			return
		}
	}
	n.Fields = append(n.Fields, Field{Name: name, Value: v})
}

// Delete removes the named field.
func (n *Node) Delete(name string) {
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			n.Fields = append(n.Fields[:i], n.Fields[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Span: n.Span, Fields: make([]Field, len(n.Fields))}
	for i, f := range n.Fields {
		c.Fields[i] = Field{Name: f.Name, Value: cloneValue(f.Value)}
	}
	return c
}

func cloneValue(v Value) Value {
	switch v := v.(type) {
	case *Node:
		return v.Clone()
	case List:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = cloneValue(item)
		}
		return List{Items: items, Seps: append([]string(nil), v.Seps...)}
	default:
		return v
	}
}

// Walk traverses the tree depth-first, calling fn for each node. Children
// are skipped when fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, f := range n.Fields {
		walkValue(f.Value, fn)
	}
}

func walkValue(v Value, fn func(*Node) bool) {
	switch v := v.(type) {
	case *Node:
		Walk(v, fn)
	case List:
		for _, item := range v.Items {
			walkValue(item, fn)
		}
	}
}

// Rewrite rebuilds the tree bottom-up: children are rewritten first, then
// fn is called with the node holding the rewritten children. The input tree
// is not modified.
func Rewrite(n *Node, fn func(*Node) (*Node, error)) (*Node, error) {
	if n == nil {
		return nil, nil
	}
	out := &Node{Kind: n.Kind, Span: n.Span, Fields: make([]Field, len(n.Fields))}
	for i, f := range n.Fields {
		v, err := rewriteValue(f.Value, fn)
		if err != nil {
			return nil, err
		}
		out.Fields[i] = Field{Name: f.Name, Value: v}
	}
	return fn(out)
}

func rewriteValue(v Value, fn func(*Node) (*Node, error)) (Value, error) {
	switch v := v.(type) {
	case *Node:
		return Rewrite(v, fn)
	case List:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			r, err := rewriteValue(item, fn)
			if err != nil {
				return nil, err
			}
			items[i] = r
		}
		return List{Items: items, Seps: append([]string(nil), v.Seps...)}, nil
	default:
		return v, nil
	}
}
