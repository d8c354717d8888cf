package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"go.starlark.net/starlark"
)

// literalClasses are the keys of non-word literal dicts in a portable tree.
var literalClasses = map[string]bool{"quoted": true, "string": true, "number": true, "param": true}

// Predeclared returns the globals visible to transform scripts:
//
//	dialect             struct with name and output
//	node(kind, **slots) builds a node dict
//	literal(class, text) builds a literal dict (quoted, string, number, param)
//	kind(value)         the node kind of a dict, or None
func Predeclared(info DialectInfo) starlark.StringDict {
	return starlark.StringDict{
		"dialect": info.ToStarlark(),
		"node":    starlark.NewBuiltin("node", builtinNode),
		"literal": starlark.NewBuiltin("literal", builtinLiteral),
		"kind":    starlark.NewBuiltin("kind", builtinKind),
	}
}

func builtinNode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var kind string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 1, &kind); err != nil {
		return nil, err
	}
	dict := starlark.NewDict(len(kwargs) + 1)
	if err := dict.SetKey(starlark.String(ast.KindKey), starlark.String(kind)); err != nil {
		return nil, err
	}
	for _, kv := range kwargs {
		if err := dict.SetKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func builtinLiteral(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var class, text string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "class", &class, "text", &text); err != nil {
		return nil, err
	}
	if !literalClasses[class] {
		classes := make([]string, 0, len(literalClasses))
		for c := range literalClasses {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		return nil, fmt.Errorf("%s: unknown class %q (want one of %v)", b.Name(), class, classes)
	}
	dict := starlark.NewDict(1)
	if err := dict.SetKey(starlark.String(class), starlark.String(text)); err != nil {
		return nil, err
	}
	return dict, nil
}

func builtinKind(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return starlark.None, nil
	}
	k, found, err := dict.Get(starlark.String(ast.KindKey))
	if err != nil || !found {
		return starlark.None, err
	}
	return k, nil
}
