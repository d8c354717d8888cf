package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// Tree is the portable, dialect-neutral structural form of a node: a plain
// map holding the kind under KindKey and one entry per slot. Trees contain
// only maps, slices and strings, so they encode directly to JSON or YAML.
type Tree = map[string]any

// KindKey is the tree key holding the node kind.
const KindKey = "node"

// Literal keys used for terminals that are not plain words.
const (
	keyQuoted = "quoted"
	keyString = "string"
	keyNumber = "number"
	keyParam  = "param"
)

// Schema describes the node kinds a tree may reference.
type Schema interface {
	// Known reports whether kind exists.
	Known(kind string) bool
	// Slots returns the slot names of kind in declaration order, and the
	// subset that must be present.
	Slots(kind string) (all, required []string)
}

// ToPortable converts a node to its portable tree.
func ToPortable(n *Node) Tree {
	t, _ := ToPortableFunc(n, nil)
	return t
}

// ToPortableFunc converts a node to its portable tree, passing every
// produced node tree through fn bottom-up. fn may be nil.
func ToPortableFunc(n *Node, fn func(Tree) (Tree, error)) (Tree, error) {
	if n == nil {
		return nil, nil
	}
	t := Tree{KindKey: n.Kind}
	for _, f := range n.Fields {
		v, err := encodeValue(f.Value, fn)
		if err != nil {
			return nil, err
		}
		t[f.Name] = v
	}
	if fn == nil {
		return t, nil
	}
	return fn(t)
}

func encodeValue(v Value, fn func(Tree) (Tree, error)) (any, error) {
	switch v := v.(type) {
	case *Node:
		return ToPortableFunc(v, fn)
	case Lit:
		return encodeLit(v), nil
	case List:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			e, err := encodeValue(item, fn)
			if err != nil {
				return nil, err
			}
			items[i] = e
		}
		if len(v.Seps) == 0 {
			return items, nil
		}
		seps := make([]any, len(v.Seps))
		for i, s := range v.Seps {
			seps[i] = s
		}
		return map[string]any{"items": items, "seps": seps}, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func encodeLit(l Lit) any {
	switch litClass(l.Token) {
	case token.QuotedIdent:
		return map[string]any{keyQuoted: l.Text}
	case token.String:
		return map[string]any{keyString: l.Text}
	case token.Number:
		return map[string]any{keyNumber: l.Text}
	case token.Param:
		return map[string]any{keyParam: l.Text}
	}
	return l.Text
}

// FromPortable rebuilds a node from its portable tree. Unknown kinds, unknown
// slots and missing required slots are reported as *StructuralError.
func FromPortable(t Tree, s Schema) (*Node, error) {
	return decodeNode(t, s, "$")
}

func decodeNode(t map[string]any, s Schema, path string) (*Node, error) {
	kind, ok := t[KindKey].(string)
	if !ok || kind == "" {
		return nil, &StructuralError{Path: path, Message: "missing node kind"}
	}
	if s != nil && !s.Known(kind) {
		return nil, &StructuralError{Path: path, Message: fmt.Sprintf("unknown node kind %q", kind)}
	}

	names, err := fieldOrder(t, kind, s, path)
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: kind}
	for _, name := range names {
		v, err := decodeValue(t[name], s, path+"."+name)
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, Field{Name: name, Value: v})
	}
	return n, nil
}

// fieldOrder returns the slot names present in t, in schema order when a
// schema is available and sorted otherwise.
func fieldOrder(t map[string]any, kind string, s Schema, path string) ([]string, error) {
	var present []string
	for k := range t {
		if k != KindKey {
			present = append(present, k)
		}
	}
	if s == nil {
		sort.Strings(present)
		return present, nil
	}

	all, required := s.Slots(kind)
	for _, r := range required {
		if _, ok := t[r]; !ok {
			return nil, &StructuralError{Path: path, Message: fmt.Sprintf("%s: missing required slot %q", kind, r)}
		}
	}
	index := make(map[string]int, len(all))
	for i, name := range all {
		index[name] = i
	}
	for _, k := range present {
		if _, ok := index[strings.TrimPrefix(k, PendingPrefix)]; !ok {
			return nil, &StructuralError{Path: path, Message: fmt.Sprintf("%s: unknown slot %q", kind, k)}
		}
	}
	sort.Slice(present, func(i, j int) bool {
		a, b := present[i], present[j]
		ia, ib := index[strings.TrimPrefix(a, PendingPrefix)], index[strings.TrimPrefix(b, PendingPrefix)]
		if ia != ib {
			return ia < ib
		}
		// authoritative slot before its pending counterpart
		return !strings.HasPrefix(a, PendingPrefix)
	})
	return present, nil
}

func decodeValue(v any, s Schema, path string) (Value, error) {
	switch v := v.(type) {
	case string:
		return Word(v), nil
	case []any:
		return decodeList(v, nil, s, path)
	case map[string]any:
		if _, ok := v[KindKey]; ok {
			return decodeNode(v, s, path)
		}
		if items, ok := v["items"].([]any); ok {
			seps, _ := v["seps"].([]any)
			return decodeList(items, seps, s, path)
		}
		return decodeLit(v, path)
	case nil:
		return nil, &StructuralError{Path: path, Message: "null value"}
	}
	return Word(fmt.Sprint(v)), nil
}

func decodeList(items, seps []any, s Schema, path string) (Value, error) {
	list := List{Items: make([]Value, len(items))}
	for i, item := range items {
		v, err := decodeValue(item, s, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		list.Items[i] = v
	}
	for _, sep := range seps {
		list.Seps = append(list.Seps, fmt.Sprint(sep))
	}
	return list, nil
}

func decodeLit(m map[string]any, path string) (Value, error) {
	if len(m) != 1 {
		return nil, &StructuralError{Path: path, Message: "literal must have exactly one key"}
	}
	for k, raw := range m {
		text := fmt.Sprint(raw)
		switch k {
		case keyQuoted:
			return Lit{Token: token.QuotedIdent, Text: text}, nil
		case keyString:
			return Lit{Token: token.String, Text: text}, nil
		case keyNumber:
			return Lit{Token: token.Number, Text: text}, nil
		case keyParam:
			return Lit{Token: token.Param, Text: text}, nil
		default:
			return nil, &StructuralError{Path: path, Message: fmt.Sprintf("unknown literal key %q", k)}
		}
	}
	return nil, nil
}
