package persona

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/banter/core"
)

// Catalog is the set of personas declared in one file, in declaration order.
type Catalog struct {
	keys     []string
	personas map[string]core.Persona
}

// NewCatalog builds a catalog from already constructed personas.
func NewCatalog(personas ...core.Persona) *Catalog {
	c := &Catalog{personas: make(map[string]core.Persona, len(personas))}
	for _, p := range personas {
		c.add(p)
	}
	return c
}

func (c *Catalog) add(p core.Persona) {
	if _, ok := c.personas[p.Key]; !ok {
		c.keys = append(c.keys, p.Key)
	}
	c.personas[p.Key] = p
}

// Keys returns the persona keys in declaration order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of personas.
func (c *Catalog) Len() int { return len(c.keys) }

// Get returns the persona declared under key.
func (c *Catalog) Get(key string) (core.Persona, error) {
	p, ok := c.personas[key]
	if !ok {
		return core.Persona{}, fmt.Errorf("%w: %s", core.ErrUnknownPersona, key)
	}
	return p, nil
}

// Select returns the personas for keys in the given order. Every unknown
// key is reported in a single error.
func (c *Catalog) Select(keys ...string) ([]core.Persona, error) {
	var (
		out     = make([]core.Persona, 0, len(keys))
		missing []string
	)
	for _, k := range keys {
		p, ok := c.personas[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out = append(out, p)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (available: %s)", core.ErrUnknownPersona,
			strings.Join(missing, ", "), strings.Join(c.keys, ", "))
	}
	return out, nil
}

// Load decodes a persona catalog from YAML. A document without a
// "personas" mapping yields an empty catalog.
func Load(r io.Reader) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewCatalog(), nil
		}
		return nil, fmt.Errorf("decode personas: %w", err)
	}

	root, err := toValue(&doc)
	if err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	if root == nil {
		return NewCatalog(), nil
	}
	top, ok := root.(*core.Mapping)
	if !ok {
		return nil, errors.New("decode personas: document must be a mapping")
	}

	c := NewCatalog()
	raw, ok := top.Lookup("personas")
	if !ok || raw == nil {
		return c, nil
	}
	records, ok := raw.(*core.Mapping)
	if !ok {
		return nil, errors.New("decode personas: personas must be a mapping")
	}
	for _, key := range records.Keys() {
		record, ok := records.Get(key).(*core.Mapping)
		if !ok && records.Get(key) != nil {
			return nil, fmt.Errorf("decode personas: persona %s must be a mapping", key)
		}
		c.add(FromRecord(key, record))
	}
	return c, nil
}

// LoadFile reads a persona catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open personas: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// FromRecord constructs a persona from its declarative record. Unknown
// fields are ignored, absent optional fields default to empty values and
// the name defaults to key.
func FromRecord(key string, record *core.Mapping) core.Persona {
	p := core.Persona{
		Key:       key,
		Name:      key,
		Role:      str(record.Get("role")),
		Worldview: mapping(record.Get("worldview")),
		Style:     mapping(record.Get("style")),
		Examples:  []any{},
	}
	if name := str(record.Get("name")); name != "" {
		p.Name = name
	}
	if examples, ok := record.Get("examples").([]any); ok {
		p.Examples = examples
	}
	if llm, ok := record.Get("llm").(*core.Mapping); ok {
		p.LLM = core.LLMConfig{
			Provider:  str(llm.Get("provider")),
			Model:     str(llm.Get("model")),
			APIKey:    str(llm.Get("api_key")),
			APIKeyEnv: str(llm.Get("api_key_env")),
			Display:   str(llm.Get("display")),
		}
		if opts, ok := llm.Get("client_options").(*core.Mapping); ok {
			p.LLM.ClientOptions = opts.ToMap()
		}
	}
	return p
}

func mapping(v any) *core.Mapping {
	if m, ok := v.(*core.Mapping); ok {
		return m
	}
	return core.NewMapping()
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
