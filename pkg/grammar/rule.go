// Package grammar holds the declarative syntax rules that drive the parser
// and the printer, and the immutable kind table that arbitrates between
// overlapping alternatives.
//
// Rules are plain data. Nothing is parsed while a rule is built; the parser
// interprets them against a token sequence and the printer walks them to
// render a node.
package grammar

import (
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Unbounded is the Max value of a repetition without an upper limit.
const Unbounded = -1

// Rule is one of Seq, Lit, OneOf, Alt, Category, Ref, Block, Ident, Number,
// String and Param.
type Rule interface {
	rule()
}

// Seq matches its items in order. Slots bound by items of a nested Seq are
// bound on the enclosing node.
type Seq struct {
	Items []Item
}

// Item is one element of a sequence.
type Item struct {
	// Slot names the field the matched value is bound to. Unbound literals
	// are regenerated from the rule when printing.
	Slot string
	Rule Rule
	// Optional items may be absent. An optional item must bind a slot,
	// directly or through a nested Seq or Block, so that printing can tell
	// whether it was present.
	Optional bool

	// Repeat makes the item match between Min and Max times (Max may be
	// Unbounded), with Sep between consecutive matches. The slot holds a
	// List. With Min 0 an empty repetition leaves the slot unbound.
	Repeat   bool
	Min, Max int
	Sep      Rule
	// KeepSeps records the matched separator spelling in List.Seps.
	KeepSeps bool

	// Presentation hints, ignored by the parser.
	Break  bool // start on a new line
	Indent bool // place each repetition on its own indented line
	Tight  bool // no space before the item
}

// Lit matches a fixed keyword or punctuation sequence. Text may hold several
// words separated by spaces ("GROUP BY"); each is matched as its own token,
// ignoring case.
type Lit struct {
	Text string
}

// OneOf matches any one of a set of literal spellings. It must be bound to
// a slot so the printer knows which spelling was matched.
type OneOf struct {
	Texts []string
}

// Alt matches one of the named kinds, tried in table order.
type Alt struct {
	Kinds []string
}

// Category matches any kind tagged with the category, tried in table order.
// Kinds with the Exclude priority are left out.
type Category struct {
	Name string
}

// Ref matches exactly one kind, regardless of its priority.
type Ref struct {
	Kind string
}

// Block matches a structured block token of the given kind and parses Inner
// against its children. Inner must consume every child.
type Block struct {
	Delim  token.Kind // token.ParenBlock, BracketBlock or BraceBlock
	Inner  Rule
	Indent bool // place the contents on their own indented lines
}

// Ident matches an identifier, quoted or not.
type Ident struct{}

// Number matches a numeric literal.
type Number struct{}

// String matches any string literal.
type String struct{}

// Param matches a positional parameter.
type Param struct{}

func (Seq) rule()      {}
func (Lit) rule()      {}
func (OneOf) rule()    {}
func (Alt) rule()      {}
func (Category) rule() {}
func (Ref) rule()      {}
func (Block) rule()    {}
func (Ident) rule()    {}
func (Number) rule()   {}
func (String) rule()   {}
func (Param) rule()    {}

// Words splits a literal into the tokens it matches.
func (l Lit) Words() []string {
	return strings.Fields(l.Text)
}

// Describe returns a short human-readable form of a rule for diagnostics.
func Describe(r Rule) string {
	switch r := r.(type) {
	case Lit:
		return `"` + r.Text + `"`
	case OneOf:
		quoted := make([]string, len(r.Texts))
		for i, t := range r.Texts {
			quoted[i] = `"` + t + `"`
		}
		return strings.Join(quoted, " or ")
	case Alt:
		return strings.Join(r.Kinds, " or ")
	case Category:
		return r.Name
	case Ref:
		return r.Kind
	case Block:
		open, _ := r.Delim.Delimiters()
		return `"` + open + `"`
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Param:
		return "parameter"
	case Seq:
		if len(r.Items) > 0 {
			return Describe(r.Items[0].Rule)
		}
	}
	return "?"
}

// Helpers for building rules. They keep grammar tables readable.

// S binds rule to slot.
func S(slot string, r Rule) Item {
	return Item{Slot: slot, Rule: r}
}

// K is an unbound literal item.
func K(text string) Item {
	return Item{Rule: Lit{Text: text}}
}

// Opt makes an item optional.
func Opt(it Item) Item {
	it.Optional = true
	return it
}

// Group is an unbound nested sequence item.
func Group(items ...Item) Item {
	return Item{Rule: Seq{Items: items}}
}

// List binds a repetition of r separated by sep to slot. A nil sep means
// no separator.
func List(slot string, r Rule, sep Rule, min int) Item {
	return Item{Slot: slot, Rule: r, Repeat: true, Min: min, Max: Unbounded, Sep: sep}
}

// Comma is the comma separator.
var Comma = Lit{Text: ","}

// Parens wraps inner items in a parenthesis block.
func Parens(items ...Item) Block {
	return Block{Delim: token.ParenBlock, Inner: Seq{Items: items}}
}
