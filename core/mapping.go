package core

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Mapping is an insertion-ordered, string-keyed map. Persona worldview, style
// and example records are decoded into Mappings so templates iterate them in
// the order they were declared. A Mapping is not safe for concurrent writes;
// once handed to a Persona it is treated as read-only.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: map[string]any{}}
}

// MappingOf builds a Mapping from alternating key/value arguments. It is
// mainly a convenience for tests and static configuration.
func MappingOf(kv ...any) *Mapping {
	m := NewMapping()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return m
}

// Set inserts or replaces a value. Replacing keeps the original position.
func (m *Mapping) Set(key string, value any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Lookup returns the value stored under key and whether it exists.
func (m *Mapping) Lookup(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Get returns the value stored under key or nil.
func (m *Mapping) Get(key string) any {
	v, _ := m.Lookup(key)
	return v
}

// GetString returns the value under key when it is a string.
func (m *Mapping) GetString(key string) string {
	s, _ := m.Get(key).(string)
	return s
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// ToMap converts the Mapping (recursively) into plain Go maps and slices.
func (m *Mapping) ToMap() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out[k] = plain(m.values[k])
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case *Mapping:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// Format implements fmt.Formatter so a Mapping prints like a Go map while
// keeping insertion order.
func (m *Mapping) Format(f fmt.State, _ rune) {
	var b strings.Builder
	b.WriteString("map[")
	for i, k := range m.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%v", k, m.values[k])
	}
	b.WriteByte(']')
	_, _ = f.Write([]byte(b.String()))
}

// MarshalJSON encodes the Mapping as a JSON object preserving key order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, k := range m.Keys() {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		stream.WriteVal(m.values[k])
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}
