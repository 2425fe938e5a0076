// Package context provides the pluggable binding environment the
// expression evaluator resolves dotted paths against.
package context

import (
	"sort"
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
)

// Context resolves dotted paths (e.g. "budget.remaining") to Values and
// allows writing new bindings.
type Context interface {
	Get(path string) (ast.Value, bool)
	Has(path string) bool
	Set(path string, value ast.Value)
	AsObject() ast.Value
}

// MapContext is the default in-memory Context, backed by a tree of nested
// maps so dotted paths address nested scopes the way object literals do.
type MapContext struct {
	data map[string]any
}

// NewMapContext returns an empty MapContext.
func NewMapContext() *MapContext {
	return &MapContext{data: map[string]any{}}
}

// NewMapContextFromObject seeds a MapContext from an object Value, as when
// a Fold's STATE becomes the working context for subsequent statements.
func NewMapContextFromObject(obj ast.Value) *MapContext {
	c := NewMapContext()
	for _, m := range obj.Obj {
		c.Set(m.Key, m.Value)
	}
	return c
}

func (c *MapContext) Get(path string) (ast.Value, bool) {
	if path == "" {
		return ast.Value{}, false
	}
	parts := strings.Split(path, ".")
	var current any = c.data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return ast.Value{}, false
		}
		next, exists := m[part]
		if !exists {
			return ast.Value{}, false
		}
		current = next
	}
	v, ok := current.(ast.Value)
	if !ok {
		return ast.Value{}, false
	}
	return v, true
}

func (c *MapContext) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

func (c *MapContext) Set(path string, value ast.Value) {
	if path == "" {
		return
	}
	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		c.data[path] = value
		return
	}
	current := c.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		nested, isMap := next.(map[string]any)
		if !ok || !isMap {
			nested = map[string]any{}
			current[part] = nested
		}
		current = nested
	}
	current[parts[len(parts)-1]] = value
}

// AsObject renders the whole context tree as a single object Value, keys
// sorted for determinism.
func (c *MapContext) AsObject() ast.Value {
	return mapToObject(c.data)
}

func mapToObject(m map[string]any) ast.Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	members := make([]ast.ObjectMember, 0, len(keys))
	for _, k := range keys {
		switch v := m[k].(type) {
		case ast.Value:
			members = append(members, ast.ObjectMember{Key: k, Value: v})
		case map[string]any:
			members = append(members, ast.ObjectMember{Key: k, Value: mapToObject(v)})
		}
	}
	return ast.Object(members)
}
