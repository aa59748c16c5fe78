package persona

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/banter/core"
)

const mergeKey = "<<"

// toValue converts a YAML node into core values: mappings become
// *core.Mapping, sequences []any and scalars their resolved Go type.
func toValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return toValue(n.Content[0])
	case yaml.AliasNode:
		return toValue(n.Alias)
	case yaml.MappingNode:
		return toMapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := toValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func toMapping(n *yaml.Node) (*core.Mapping, error) {
	m := core.NewMapping()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]

		if k.Kind == yaml.ScalarNode && k.Value == mergeKey && k.ShortTag() == "!!merge" {
			if err := merge(m, v); err != nil {
				return nil, err
			}
			continue
		}

		value, err := toValue(v)
		if err != nil {
			return nil, err
		}
		m.Set(k.Value, value)
	}
	return m, nil
}

// merge applies a "<<" merge key. Explicit keys of the surrounding mapping
// are set afterwards and therefore override merged ones.
func merge(dst *core.Mapping, n *yaml.Node) error {
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		v, err := toValue(src)
		if err != nil {
			return err
		}
		m, ok := v.(*core.Mapping)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		for _, key := range m.Keys() {
			if _, exists := dst.Lookup(key); !exists {
				dst.Set(key, m.Get(key))
			}
		}
	}
	return nil
}
