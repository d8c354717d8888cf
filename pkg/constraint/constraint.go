// Package constraint implements table constraints (primary key, foreign key,
// unique, check) as builder nodes: values that can be assembled and edited
// programmatically as well as parsed, and that keep a proposed edit next to
// the confirmed value until it is promoted or discarded.
package constraint

import (
	"fmt"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Kind is the closed set of constraint kinds.
type Kind int

const (
	PrimaryKey Kind = iota
	ForeignKey
	Unique
	Check
)

// Node kind names.
const (
	KindPrimaryKey = "PrimaryKeyConstraint"
	KindForeignKey = "ForeignKeyConstraint"
	KindUnique     = "UniqueConstraint"
	KindCheck      = "CheckConstraint"
)

var kindNames = [...]string{
	PrimaryKey: KindPrimaryKey,
	ForeignKey: KindForeignKey,
	Unique:     KindUnique,
	Check:      KindCheck,
}

// String returns the node kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a node kind name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Slot names.
const (
	slotName       = "name"
	slotColumns    = "columns"
	slotRefTable   = "refTable"
	slotRefColumns = "refColumns"
	slotOnDelete   = "onDelete"
	slotOnUpdate   = "onUpdate"
	slotCheck      = "check"
)

// Ident is a constraint, table or column name. A quoted name keeps its exact
// spelling and is always printed quoted; a plain name follows the output
// dialect's quoting rules.
type Ident struct {
	Name   string
	Quoted bool
}

// Plain returns an unquoted identifier.
func Plain(name string) Ident {
	return Ident{Name: name}
}

// Quote returns a quoted identifier.
func Quote(name string) Ident {
	return Ident{Name: name, Quoted: true}
}

// Idents returns plain identifiers for names.
func Idents(names ...string) []Ident {
	out := make([]Ident, len(names))
	for i, n := range names {
		out[i] = Plain(n)
	}
	return out
}

func (i Ident) String() string {
	return i.Name
}

func (i Ident) lit() ast.Lit {
	if i.Quoted {
		return ast.Lit{Token: token.QuotedIdent, Text: i.Name}
	}
	return ast.Word(i.Name)
}

func identOf(v ast.Value) (Ident, bool) {
	lit, ok := v.(ast.Lit)
	if !ok {
		return Ident{}, false
	}
	return Ident{Name: lit.Text, Quoted: lit.Token == token.QuotedIdent}, true
}

// ForeignRef is the referenced side of a foreign key.
type ForeignRef struct {
	Table    Ident
	Columns  []Ident
	OnDelete string
	OnUpdate string
}

// Constraint is a table constraint. Name and Columns are pending-aware; the
// payload fields depend on Kind.
type Constraint struct {
	Kind    Kind
	Name    Pending[Ident]
	Columns Pending[[]Ident]

	Ref   *ForeignRef // ForeignKey
	Check *ast.Node   // Check expression

	pending bool
}

// New returns an empty constraint of kind k.
func New(k Kind) *Constraint {
	return &Constraint{Kind: k}
}

// SetPending switches the constraint into or out of pending mode. In pending
// mode setters write proposals instead of authoritative values.
func (c *Constraint) SetPending(on bool) {
	c.pending = on
}

// IsPending reports whether the constraint is in pending mode.
func (c *Constraint) IsPending() bool {
	return c.pending
}

// SetName sets the constraint name.
func (c *Constraint) SetName(name Ident) {
	c.Name.Set(name, c.pending)
}

// SetColumns sets the constrained columns.
func (c *Constraint) SetColumns(cols []Ident) {
	c.Columns.Set(append([]Ident(nil), cols...), c.pending)
}

// HasPending reports whether any property carries a non-empty proposal.
func (c *Constraint) HasPending() bool {
	return c.Name.HasPending() || c.Columns.HasPending()
}

// Promote makes every proposal authoritative.
func (c *Constraint) Promote() {
	c.Name.Promote()
	c.Columns.Promote()
}

// Discard drops every proposal.
func (c *Constraint) Discard() {
	c.Name.Discard()
	c.Columns.Discard()
}

// Node converts the constraint to a syntax tree node. Proposals are bound to
// the "$"-prefixed slots when non-empty.
func (c *Constraint) Node() *ast.Node {
	n := ast.New(c.Kind.String())
	if name := c.Name.Get(); name.Name != "" {
		n.Set(slotName, name.lit())
	}
	if c.Name.HasPending() {
		n.Set(ast.PendingPrefix+slotName, c.Name.Proposed.lit())
	}
	if cols := c.Columns.Get(); len(cols) > 0 {
		n.Set(slotColumns, words(cols))
	}
	if c.Columns.HasPending() {
		n.Set(ast.PendingPrefix+slotColumns, words(*c.Columns.Proposed))
	}
	switch c.Kind {
	case ForeignKey:
		if c.Ref != nil {
			n.Set(slotRefTable, c.Ref.Table.lit())
			if len(c.Ref.Columns) > 0 {
				n.Set(slotRefColumns, words(c.Ref.Columns))
			}
			if c.Ref.OnDelete != "" {
				n.Set(slotOnDelete, ast.Keyword(c.Ref.OnDelete))
			}
			if c.Ref.OnUpdate != "" {
				n.Set(slotOnUpdate, ast.Keyword(c.Ref.OnUpdate))
			}
		}
	case Check:
		if c.Check != nil {
			n.Set(slotCheck, c.Check.Clone())
		}
	}
	return n
}

// FromNode rebuilds a constraint from a syntax tree node. Pending slots are
// replayed in pending mode so both sides are restored.
func FromNode(n *ast.Node) (*Constraint, error) {
	k, ok := ParseKind(n.Kind)
	if !ok {
		return nil, &ast.StructuralError{Path: n.Kind, Message: fmt.Sprintf("%s is not a constraint", n.Kind)}
	}
	c := New(k)
	if v, ok := n.Get(slotName); ok {
		if name, ok := identOf(v); ok {
			c.SetName(name)
		}
	}
	c.SetColumns(idents(n.Items(slotColumns)))

	c.SetPending(true)
	if v, ok := n.Get(ast.PendingPrefix + slotName); ok {
		if name, ok := identOf(v); ok {
			c.SetName(name)
		}
	}
	if n.Has(ast.PendingPrefix + slotColumns) {
		c.SetColumns(idents(n.Items(ast.PendingPrefix + slotColumns)))
	}
	c.SetPending(false)

	switch k {
	case ForeignKey:
		c.Ref = &ForeignRef{
			Columns:  idents(n.Items(slotRefColumns)),
			OnDelete: n.Text(slotOnDelete),
			OnUpdate: n.Text(slotOnUpdate),
		}
		if v, ok := n.Get(slotRefTable); ok {
			c.Ref.Table, _ = identOf(v)
		}
		if c.Ref.Table.Name == "" {
			return nil, &ast.StructuralError{Path: n.Kind, Message: "foreign key without referenced table"}
		}
	case Check:
		c.Check = n.Child(slotCheck)
		if c.Check == nil {
			return nil, &ast.StructuralError{Path: n.Kind, Message: "check constraint without expression"}
		}
		c.Check = c.Check.Clone()
	}
	return c, nil
}

// ToPortable returns the portable tree of the constraint.
func (c *Constraint) ToPortable() ast.Tree {
	return ast.ToPortable(c.Node())
}

// FromPortable rebuilds a constraint from its portable tree. Schema may be
// nil to skip kind and slot validation.
func FromPortable(t ast.Tree, s ast.Schema) (*Constraint, error) {
	n, err := ast.FromPortable(t, s)
	if err != nil {
		return nil, err
	}
	return FromNode(n)
}

func words(items []Ident) ast.List {
	list := ast.List{Items: make([]ast.Value, len(items))}
	for i, it := range items {
		list.Items[i] = it.lit()
	}
	return list
}

func idents(items []ast.Value) []Ident {
	var out []Ident
	for _, it := range items {
		if id, ok := identOf(it); ok {
			out = append(out, id)
		}
	}
	return out
}
