package grammar

import (
	"math"
	"slices"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Priorities.
const (
	// Neutral is the default priority.
	Neutral = 0
	// Exclude keeps a kind out of every Category. It stays reachable
	// through Ref and explicit Alt lists.
	Exclude = math.MinInt32
)

// Kind describes one node type.
type Kind struct {
	Name string
	// Rule recognizes the kind and drives printing. Kinds with a Parse hook
	// still declare a Rule describing their printed form. A kind whose rule
	// is an Alt, Category or Ref is an alias: parsing it yields the matched
	// node itself.
	Rule Rule
	// Priority orders alternatives; higher is tried first.
	Priority int
	// Categories this kind belongs to.
	Categories []string
	// Refines lists kinds this one is a structural refinement of, in
	// addition to the refinement implied by a leading Ref item.
	Refines []string

	// MorphsTo names the kind Morph produces when canonicalizing.
	MorphsTo string
	Morph    func(n *ast.Node, d *dialect.Dialect) (*ast.Node, error)

	// Parse replaces rule interpretation with a custom hook.
	Parse ParseFunc
	// Slots and Required override the slots derived from Rule. They are
	// used by kinds whose Parse hook binds fields the rule does not name.
	Slots    []string
	Required []string

	// Collapse names a repeated slot. A node whose only field is that slot
	// holding a single node is replaced by the node.
	Collapse string

	// DataType infers the static type of an expression node.
	DataType func(n *ast.Node, tc TypeContext) ast.DataType

	// Dialects restricts the kind to the named dialects. Empty means all.
	Dialects []string
}

// Supports reports whether the kind is available in dialect d.
func (k *Kind) Supports(d *dialect.Dialect) bool {
	return len(k.Dialects) == 0 || d == nil || slices.Contains(k.Dialects, d.Name)
}

// TypeContext is passed to DataType functions.
type TypeContext struct {
	Dialect *dialect.Dialect
	// Infer returns the type of a child value.
	Infer func(v ast.Value) ast.DataType
}

// Cursor is the parser state seen by a Parse hook. It is positioned at the
// start of the kind; the parser rewinds it when the hook reports no match.
type Cursor interface {
	// Peek returns the next token without consuming it, or an EOF token at
	// the end of the current sequence.
	Peek() token.Token
	// Accept consumes the literal text when it comes next.
	Accept(text string) bool
	// Match runs r at the current position and returns the fields it bound.
	// On no match the cursor does not move.
	Match(r Rule) ([]ast.Field, bool, error)
	// Dialect returns the dialect being parsed.
	Dialect() *dialect.Dialect
}

// ParseFunc is a custom parse hook. It returns ok=false for an ordinary
// mismatch; a non-nil error aborts the whole parse.
type ParseFunc func(c Cursor, k *Kind) (n *ast.Node, ok bool, err error)
