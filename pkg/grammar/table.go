package grammar

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Table is the immutable set of kinds of a grammar. It is safe for
// concurrent use; the only mutable state is the order memo.
type Table struct {
	entry      string
	kinds      map[string]*Kind
	index      map[string]int // declaration order
	categories map[string][]string
	depth      map[string]int
	slots      map[string]slotInfo

	orders sync.Map // memo key -> []*Kind
}

type slotInfo struct {
	all      []string
	required []string
}

// NewTable validates kinds and builds a table whose top-level kind is entry.
func NewTable(entry string, kinds ...*Kind) (*Table, error) {
	t := &Table{
		entry:      entry,
		kinds:      make(map[string]*Kind, len(kinds)),
		index:      make(map[string]int, len(kinds)),
		categories: make(map[string][]string),
		depth:      make(map[string]int, len(kinds)),
		slots:      make(map[string]slotInfo, len(kinds)),
	}
	for i, k := range kinds {
		if k == nil || k.Name == "" {
			return nil, fmt.Errorf("kind %d: missing name", i)
		}
		if _, dup := t.kinds[k.Name]; dup {
			return nil, fmt.Errorf("kind %s: declared twice", k.Name)
		}
		if k.Rule == nil {
			return nil, fmt.Errorf("kind %s: missing rule", k.Name)
		}
		t.kinds[k.Name] = k
		t.index[k.Name] = i
		for _, c := range k.Categories {
			t.categories[c] = append(t.categories[c], k.Name)
		}
	}
	if _, ok := t.kinds[entry]; !ok {
		return nil, fmt.Errorf("entry kind %s is not declared", entry)
	}

	var errs []error
	for _, k := range kinds {
		if err := t.validate(k.Name, k.Rule); err != nil {
			errs = append(errs, fmt.Errorf("kind %s: %w", k.Name, err))
		}
		if k.MorphsTo != "" {
			if _, ok := t.kinds[k.MorphsTo]; !ok {
				errs = append(errs, fmt.Errorf("kind %s: morphs to unknown kind %s", k.Name, k.MorphsTo))
			}
		}
		if (k.Morph == nil) != (k.MorphsTo == "") {
			errs = append(errs, fmt.Errorf("kind %s: MorphsTo and Morph must be set together", k.Name))
		}
		if base, ok := leadingRef(k.Rule); ok && base == k.Name {
			errs = append(errs, fmt.Errorf("kind %s: left recursive", k.Name))
		}
		for _, r := range k.Refines {
			if _, ok := t.kinds[r]; !ok {
				errs = append(errs, fmt.Errorf("kind %s: refines unknown kind %s", k.Name, r))
			}
		}
		info := slotInfo{}
		collectSlots(k.Rule, true, &info)
		if k.Slots != nil {
			info = slotInfo{all: k.Slots, required: k.Required}
		}
		if k.Collapse != "" && !slices.Contains(info.all, k.Collapse) {
			errs = append(errs, fmt.Errorf("kind %s: collapse slot %s is not bound by the rule", k.Name, k.Collapse))
		}
		t.slots[k.Name] = info
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if _, err := t.refinementDepth(k.Name, nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is meant for package
// level grammar tables.
func MustTable(entry string, kinds ...*Kind) *Table {
	t, err := NewTable(entry, kinds...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) validate(kind string, r Rule) error {
	switch r := r.(type) {
	case Seq:
		for i, it := range r.Items {
			if err := t.validateItem(kind, it); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	case Lit:
		if len(r.Words()) == 0 {
			return errors.New("empty literal")
		}
	case OneOf:
		if len(r.Texts) == 0 {
			return errors.New("empty literal set")
		}
	case Alt:
		if len(r.Kinds) == 0 {
			return errors.New("empty alternative")
		}
		for _, name := range r.Kinds {
			if _, ok := t.kinds[name]; !ok {
				return fmt.Errorf("unknown kind %s", name)
			}
		}
	case Category:
		if len(t.categories[r.Name]) == 0 {
			return fmt.Errorf("category %s has no members", r.Name)
		}
	case Ref:
		if _, ok := t.kinds[r.Kind]; !ok {
			return fmt.Errorf("unknown kind %s", r.Kind)
		}
	case Block:
		if !r.Delim.IsBlock() {
			return fmt.Errorf("block delimiter %s is not a block kind", r.Delim)
		}
		return t.validate(kind, r.Inner)
	case Ident, Number, String, Param:
	default:
		return fmt.Errorf("unsupported rule %T", r)
	}
	return nil
}

func (t *Table) validateItem(kind string, it Item) error {
	if it.Rule == nil {
		return errors.New("missing rule")
	}
	if err := t.validate(kind, it.Rule); err != nil {
		return err
	}
	valued := producesValue(it.Rule)
	switch {
	case it.Slot != "" && !valued:
		return fmt.Errorf("slot %s is bound to a rule without a value", it.Slot)
	case it.Repeat && it.Slot == "":
		return errors.New("repeated item must bind a slot")
	case it.Repeat && it.Max != Unbounded && (it.Max < 1 || it.Max < it.Min):
		return fmt.Errorf("slot %s: invalid repetition bounds %d..%d", it.Slot, it.Min, it.Max)
	case it.Optional && it.Slot == "" && !bindsSlot(it.Rule):
		return errors.New("optional item must bind a slot")
	case it.Slot == "" && isOneOf(it.Rule):
		return errors.New("literal set must bind a slot")
	case it.KeepSeps && it.Sep == nil:
		return fmt.Errorf("slot %s keeps separators but has none", it.Slot)
	}
	if it.Sep != nil {
		return t.validate(kind, it.Sep)
	}
	return nil
}

func isOneOf(r Rule) bool {
	_, ok := r.(OneOf)
	return ok
}

// producesValue reports whether r yields a value that can be bound.
func producesValue(r Rule) bool {
	switch r := r.(type) {
	case Seq:
		return false
	case Block:
		return producesValue(r.Inner)
	}
	return true
}

// bindsSlot reports whether r binds at least one slot on the enclosing node.
func bindsSlot(r Rule) bool {
	switch r := r.(type) {
	case Seq:
		for _, it := range r.Items {
			if it.Slot != "" || bindsSlot(it.Rule) {
				return true
			}
		}
	case Block:
		return bindsSlot(r.Inner)
	}
	return false
}

// collectSlots gathers slot names in rule order.
func collectSlots(r Rule, required bool, info *slotInfo) {
	switch r := r.(type) {
	case Seq:
		for _, it := range r.Items {
			req := required && !it.Optional && !(it.Repeat && it.Min == 0)
			if it.Slot != "" {
				info.all = append(info.all, it.Slot)
				if req {
					info.required = append(info.required, it.Slot)
				}
				continue
			}
			collectSlots(it.Rule, req, info)
		}
	case Block:
		collectSlots(r.Inner, required, info)
	}
}

// SlotItems returns the slot-binding items of a rule in rule order.
func SlotItems(r Rule) []Item {
	var out []Item
	var walk func(Rule)
	walk = func(r Rule) {
		switch r := r.(type) {
		case Seq:
			for _, it := range r.Items {
				if it.Slot != "" {
					out = append(out, it)
					continue
				}
				walk(it.Rule)
			}
		case Block:
			walk(r.Inner)
		}
	}
	walk(r)
	return out
}

// leadingRef returns the kind referenced by the first required item of a
// sequence, if any.
func leadingRef(r Rule) (string, bool) {
	switch r := r.(type) {
	case Seq:
		for _, it := range r.Items {
			if it.Optional || (it.Repeat && it.Min == 0) {
				continue
			}
			return leadingRef(it.Rule)
		}
	case Ref:
		return r.Kind, true
	}
	return "", false
}

// refines returns the kinds k is a direct refinement of.
func (t *Table) refines(k *Kind) []string {
	out := k.Refines
	if base, ok := leadingRef(k.Rule); ok && base != k.Name && !slices.Contains(out, base) {
		out = append(append([]string(nil), out...), base)
	}
	return out
}

// refinementDepth is 0 for a kind that refines nothing, and one more than
// the deepest kind it refines otherwise.
func (t *Table) refinementDepth(name string, visiting []string) (int, error) {
	if d, ok := t.depth[name]; ok {
		return d, nil
	}
	if slices.Contains(visiting, name) {
		return 0, fmt.Errorf("refinement cycle: %s -> %s", strings.Join(visiting, " -> "), name)
	}
	visiting = append(visiting, name)
	depth := 0
	for _, base := range t.refines(t.kinds[name]) {
		d, err := t.refinementDepth(base, visiting)
		if err != nil {
			return 0, err
		}
		depth = max(depth, d+1)
	}
	t.depth[name] = depth
	return depth, nil
}

// Entry returns the top-level kind name.
func (t *Table) Entry() string { return t.entry }

// Kind returns the named kind.
func (t *Table) Kind(name string) (*Kind, bool) {
	k, ok := t.kinds[name]
	return k, ok
}

// Kinds returns all kinds in declaration order.
func (t *Table) Kinds() []*Kind {
	out := make([]*Kind, len(t.kinds))
	for name, i := range t.index {
		out[i] = t.kinds[name]
	}
	return out
}

// Depth returns the refinement depth of the named kind.
func (t *Table) Depth(name string) int { return t.depth[name] }

// Order returns the named kinds in the order the parser tries them:
// priority first (highest wins), then refinement depth (deepest wins), then
// declaration order. The result is memoized and must not be modified.
func (t *Table) Order(names []string) []*Kind {
	key := strings.Join(names, "\x00")
	if v, ok := t.orders.Load(key); ok {
		return v.([]*Kind)
	}
	out := make([]*Kind, 0, len(names))
	for _, n := range names {
		if k, ok := t.kinds[n]; ok && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	t.sort(out)
	v, _ := t.orders.LoadOrStore(key, out)
	return v.([]*Kind)
}

// Category returns the members of a category in parse order, leaving out
// kinds with the Exclude priority.
func (t *Table) Category(name string) []*Kind {
	key := "category:" + name
	if v, ok := t.orders.Load(key); ok {
		return v.([]*Kind)
	}
	var out []*Kind
	for _, n := range t.categories[name] {
		if k := t.kinds[n]; k.Priority != Exclude {
			out = append(out, k)
		}
	}
	t.sort(out)
	v, _ := t.orders.LoadOrStore(key, out)
	return v.([]*Kind)
}

// Candidates returns the kinds an Alt, Category or Ref rule may produce, in
// parse order.
func (t *Table) Candidates(r Rule) []*Kind {
	switch r := r.(type) {
	case Alt:
		return t.Order(r.Kinds)
	case Category:
		return t.Category(r.Name)
	case Ref:
		if k, ok := t.kinds[r.Kind]; ok {
			return []*Kind{k}
		}
	}
	return nil
}

func (t *Table) sort(kinds []*Kind) {
	sort.SliceStable(kinds, func(i, j int) bool {
		a, b := kinds[i], kinds[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if da, db := t.depth[a.Name], t.depth[b.Name]; da != db {
			return da > db
		}
		return t.index[a.Name] < t.index[b.Name]
	})
}

// Known reports whether kind is declared. Together with Slots it makes the
// table an ast.Schema.
func (t *Table) Known(kind string) bool {
	_, ok := t.kinds[kind]
	return ok
}

// Slots returns the slots of kind in rule order and the required subset.
func (t *Table) Slots(kind string) (all, required []string) {
	info := t.slots[kind]
	return info.all, info.required
}

// DataType infers the static type of a value. Kinds without a DataType
// function, and anything else not understood, yield ast.Unknown.
func (t *Table) DataType(v ast.Value, d *dialect.Dialect) ast.DataType {
	switch v := v.(type) {
	case *ast.Node:
		k, ok := t.kinds[v.Kind]
		if !ok || k.DataType == nil {
			return ast.Unknown
		}
		return k.DataType(v, TypeContext{
			Dialect: d,
			Infer:   func(c ast.Value) ast.DataType { return t.DataType(c, d) },
		})
	case ast.Lit:
		switch {
		case v.Token == token.Number:
			if strings.ContainsAny(v.Text, ".eE") {
				return ast.Numeric
			}
			return ast.Integer
		case v.Token.IsString():
			return ast.Text
		}
	}
	return ast.Unknown
}

var _ ast.Schema = (*Table)(nil)
