package prompt

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Ordered is implemented by insertion-ordered mappings (core.Mapping). The
// renderer treats them like maps but iterates them in declaration order.
type Ordered interface {
	Keys() []string
	Lookup(key string) (any, bool)
}

// Pair is the value bound to "this" while iterating a mapping.
type Pair struct {
	Key   string
	Value any
}

// String renders a pair as "key: value".
func (p Pair) String() string { return fmt.Sprintf("%s: %v", p.Key, p.Value) }

// layer is one level of the rendering scope. vars holds the promoted
// fields (a mapping of some kind), this is the value of the "this" name.
type layer struct {
	vars    any
	this    any
	hasThis bool
}

func (l layer) lookup(name string) (any, bool) {
	if l.vars != nil {
		if v, ok := member(l.vars, name); ok {
			return v, true
		}
	}
	if l.hasThis && name == "this" {
		return l.this, true
	}
	return nil, false
}

// newLayer builds the scope layer for a section value: mapping fields are
// promoted and the value itself is reachable as "this".
func newLayer(value any) layer {
	if p, ok := value.(Pair); ok {
		return layer{vars: map[string]any{"key": p.Key, "value": p.Value}, this: p, hasThis: true}
	}
	if isMapping(value) {
		return layer{vars: value, this: value, hasThis: true}
	}
	return layer{this: value, hasThis: true}
}

// scope is a stack of layers; the innermost layer is the last element.
type scope []layer

func (s scope) push(l layer) scope {
	out := make(scope, len(s), len(s)+1)
	copy(out, s)
	return append(out, l)
}

// resolve looks the first path segment up from the innermost layer outwards.
// The first layer that contains it wins entirely; the rest of the path is
// walked on that value only, and a missing member yields nil.
func (s scope) resolve(path []string) any {
	if len(path) == 0 {
		return nil
	}
	for i := len(s) - 1; i >= 0; i-- {
		value, ok := s[i].lookup(path[0])
		if !ok {
			continue
		}
		for _, segment := range path[1:] {
			if value == nil {
				return nil
			}
			value, _ = member(value, segment)
		}
		return value
	}
	return nil
}

// member returns the named member of a mapping, or falls back to attribute
// lookup on structs. Pointers and interfaces are dereferenced.
func member(value any, name string) (any, bool) {
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[name]
		return v, ok
	case Ordered:
		return m.Lookup(name)
	case nil:
		return nil, false
	}

	rv := indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		return structField(rv, name)
	}
	return nil, false
}

func structField(rv reflect.Value, name string) (any, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name || strings.EqualFold(f.Name, name) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isMapping(value any) bool {
	switch value.(type) {
	case map[string]any, Ordered:
		return true
	case nil:
		return false
	}
	rv := indirect(reflect.ValueOf(value))
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// truthy reports whether a value enables an {{#if}} or {{#each}} section.
// nil, false, zero numbers, empty strings and empty collections are falsy.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case Ordered:
		return len(v.Keys()) > 0
	}
	rv := indirect(reflect.ValueOf(value))
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	}
	return true
}

// items expands an {{#each}} target. Mappings yield key/value pairs,
// sequences yield their elements and any other value is a one-element
// sequence.
func items(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case Ordered:
		keys := v.Keys()
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			val, _ := v.Lookup(k)
			out = append(out, Pair{Key: k, Value: val})
		}
		return out
	case map[string]any:
		return sortedPairs(v)
	case string, []byte:
		return []any{v}
	}

	rv := indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return []any{value}
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return sortedPairs(m)
	}
	return []any{value}
}

func sortedPairs(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = Pair{Key: k, Value: m[k]}
	}
	return out
}

// stringify renders a resolved value for substitution.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	return fmt.Sprint(value)
}
