package prompt

import (
	"strings"
	"sync"
)

// Renderer expands the mustache-style prompt templates used by agents.
//
// Supported grammar:
//   - {{a.b.c}} substitutes a dotted path, unresolved paths render as ""
//   - {{#each expr}}...{{/each}} iterates a mapping (key/value/this) or a
//     sequence (this, mapping fields promoted); a scalar iterates once
//   - {{#if expr}}...{{/if}} renders its body once when expr is truthy
//
// Name lookups walk the scope from the innermost section outwards and the
// first layer that defines the root name wins. A Renderer caches parsed
// templates and is safe for concurrent use.
type Renderer struct {
	cache sync.Map // template source -> []node
}

// NewRenderer returns a ready to use Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render expands template against context.
func (r *Renderer) Render(template string, context map[string]any) (string, error) {
	if !strings.Contains(template, openDelim) {
		return template, nil
	}

	nodes, err := r.compile(template)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(template))
	execute(&b, nodes, scope{{vars: context}})
	return b.String(), nil
}

// Validate parses template and reports malformed sections without rendering.
func (r *Renderer) Validate(template string) error {
	_, err := r.compile(template)
	return err
}

func (r *Renderer) compile(template string) ([]node, error) {
	if cached, ok := r.cache.Load(template); ok {
		return cached.([]node), nil
	}
	nodes, err := parse(template)
	if err != nil {
		return nil, err
	}
	r.cache.Store(template, nodes)
	return nodes, nil
}

// Render expands template with a throwaway Renderer.
func Render(template string, context map[string]any) (string, error) {
	return NewRenderer().Render(template, context)
}

func execute(b *strings.Builder, nodes []node, s scope) {
	for i := range nodes {
		n := &nodes[i]
		switch n.kind {
		case textNode:
			b.WriteString(n.text)
		case varNode:
			b.WriteString(stringify(s.resolve(n.path)))
		case ifNode:
			value := s.resolve(n.path)
			if truthy(value) {
				execute(b, n.body, s.push(newLayer(value)))
			}
		case eachNode:
			value := s.resolve(n.path)
			if !truthy(value) {
				continue
			}
			for _, item := range items(value) {
				execute(b, n.body, s.push(newLayer(item)))
			}
		}
	}
}
