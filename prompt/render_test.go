package prompt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/banter/core"
)

func render(t *testing.T, tmpl string, ctx map[string]any) string {
	t.Helper()
	out, err := NewRenderer().Render(tmpl, ctx)
	require.NoError(t, err)
	return out
}

func TestRender_Variables(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		ctx  map[string]any
		want string
	}{
		{"dotted path", "{{a.b}}", map[string]any{"a": map[string]any{"b": "x"}}, "x"},
		{"missing member", "{{a.b}}", map[string]any{"a": map[string]any{}}, ""},
		{"missing root", "{{missing}}", map[string]any{}, ""},
		{"mid path nil", "{{a.b.c}}", map[string]any{"a": map[string]any{"b": nil}}, ""},
		{"non string", "n={{n}} f={{f}} b={{b}}", map[string]any{"n": 42, "f": 1.5, "b": true}, "n=42 f=1.5 b=true"},
		{"whitespace in tag", "{{ name }}", map[string]any{"name": "Ada"}, "Ada"},
		{"no tags", "plain text", nil, "plain text"},
		{"nil context", "[{{x}}]", nil, "[]"},
		{"empty tag kept", "{{}}", nil, "{{}}"},
		{"unclosed tag kept", "a {{b", map[string]any{"b": "x"}, "a {{b"},
		{"triple braces", "{{{x}}}", map[string]any{"x": "y"}, "{y}"},
		{"stray close kept", "a{{/if}}b", nil, "a{{/if}}b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.tmpl, tt.ctx))
		})
	}
}

func TestRender_StructAttributes(t *testing.T) {
	type inner struct {
		Label string `json:"label"`
	}
	type outer struct {
		Name  string
		Inner *inner
	}

	ctx := map[string]any{"v": outer{Name: "n", Inner: &inner{Label: "l"}}}
	assert.Equal(t, "n/l", render(t, "{{v.name}}/{{v.Inner.label}}", ctx))
	assert.Equal(t, "", render(t, "{{v.unknown.deeper}}", ctx))
}

func TestRender_Each(t *testing.T) {
	t.Run("sequence", func(t *testing.T) {
		out := render(t, "{{#each items}}{{this}},{{/each}}", map[string]any{"items": []any{1, 2, 3}})
		assert.Equal(t, "1,2,3,", out)
	})

	t.Run("typed slice", func(t *testing.T) {
		out := render(t, "{{#each items}}[{{this}}]{{/each}}", map[string]any{"items": []string{"a", "b"}})
		assert.Equal(t, "[a][b]", out)
	})

	t.Run("empty and unresolved", func(t *testing.T) {
		ctx := map[string]any{"empty": []any{}, "zero": 0}
		assert.Equal(t, "", render(t, "{{#each empty}}x{{/each}}", ctx))
		assert.Equal(t, "", render(t, "{{#each missing}}x{{/each}}", ctx))
		assert.Equal(t, "", render(t, "{{#each zero}}x{{/each}}", ctx))
	})

	t.Run("scalar iterates once", func(t *testing.T) {
		assert.Equal(t, "<7>", render(t, "{{#each n}}<{{this}}>{{/each}}", map[string]any{"n": 7}))
		assert.Equal(t, "<abc>", render(t, "{{#each s}}<{{this}}>{{/each}}", map[string]any{"s": "abc"}))
	})

	t.Run("mapping elements promote fields", func(t *testing.T) {
		ctx := map[string]any{"history": []any{
			map[string]any{"speaker": "a", "text": "hi"},
			map[string]any{"speaker": "b", "text": "yo"},
		}}
		out := render(t, "{{#each history}}{{speaker}}: {{text}}\n{{/each}}", ctx)
		assert.Equal(t, "a: hi\nb: yo\n", out)
	})

	t.Run("ordered mapping keeps declaration order", func(t *testing.T) {
		style := core.MappingOf("tone", "dry", "pace", "fast", "accent", "none")
		out := render(t, "{{#each style}}{{key}}={{value}};{{/each}}", map[string]any{"style": style})
		assert.Equal(t, "tone=dry;pace=fast;accent=none;", out)
	})

	t.Run("plain map iterates sorted", func(t *testing.T) {
		ctx := map[string]any{"m": map[string]any{"b": 2, "a": 1}}
		assert.Equal(t, "a: 1 b: 2 ", render(t, "{{#each m}}{{this}} {{/each}}", ctx))
	})
}

func TestRender_If(t *testing.T) {
	ctx := map[string]any{"flag": true, "flag2": "x", "off": false, "none": "", "obj": map[string]any{"name": "inner"}}

	assert.Equal(t, "yes", render(t, "{{#if flag}}{{#if flag2}}yes{{/if}}{{/if}}", ctx))
	assert.Equal(t, "", render(t, "{{#if off}}no{{/if}}", ctx))
	assert.Equal(t, "", render(t, "{{#if none}}no{{/if}}", ctx))
	assert.Equal(t, "", render(t, "{{#if missing}}no{{/if}}", ctx))
	assert.Equal(t, "inner", render(t, "{{#if obj}}{{name}}{{/if}}", ctx))
	assert.Equal(t, "x", render(t, "{{#if flag2}}{{this}}{{/if}}", ctx))
}

func TestRender_InnerScopeShadowsOuter(t *testing.T) {
	ctx := map[string]any{"items": []any{map[string]any{"x": "inner"}}, "x": "outer"}
	assert.Equal(t, "inner", render(t, "{{#each items}}{{x}}{{/each}}", ctx))
}

func TestRender_NoMergeAcrossLayers(t *testing.T) {
	// the inner layer defines "a", so a.b is not looked up in the outer one
	ctx := map[string]any{
		"a":     map[string]any{"b": "outer"},
		"items": []any{map[string]any{"a": map[string]any{"c": "inner"}}},
	}
	assert.Equal(t, "[]", render(t, "{{#each items}}[{{a.b}}]{{/each}}", ctx))
}

func TestRender_OuterNamesVisibleInSections(t *testing.T) {
	ctx := map[string]any{"topic": "cats", "items": []any{1, 2}}
	assert.Equal(t, "cats1cats2", render(t, "{{#each items}}{{topic}}{{this}}{{/each}}", ctx))
}

func TestRender_MixedNesting(t *testing.T) {
	ctx := map[string]any{
		"rows": []any{
			map[string]any{"show": true, "cells": []any{"a", "b"}},
			map[string]any{"show": false, "cells": []any{"c"}},
		},
	}
	tmpl := "{{#each rows}}{{#if show}}{{#each cells}}{{this}}{{/each}}|{{/if}}{{/each}}"
	assert.Equal(t, "ab|", render(t, tmpl, ctx))

	tmpl = "{{#if rows}}{{#each rows}}{{#if show}}S{{/if}}{{/each}}{{/if}}"
	assert.Equal(t, "S", render(t, tmpl, ctx))
}

func TestRender_Errors(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render("{{#each items}}x", map[string]any{"items": []any{1}})
	assert.ErrorIs(t, err, ErrUnterminatedSection)

	// a close tag of the other kind never ends a section
	_, err = r.Render("{{#if a}}{{#each b}}x{{/if}}", nil)
	assert.ErrorIs(t, err, ErrUnterminatedSection)

	_, err = r.Render("{{#each a}}{{#if b}}x{{/each}}{{/if}}", nil)
	assert.ErrorIs(t, err, ErrUnterminatedSection)

	assert.ErrorIs(t, r.Validate("{{#if a}}"), ErrUnterminatedSection)
	assert.NoError(t, r.Validate("{{#if a}}{{/if}}"))
}

func TestRender_ForeignCloseTagIsText(t *testing.T) {
	ctx := map[string]any{"a": true, "items": []any{1, 2}}

	assert.Equal(t, "x{{/each}}y", render(t, "{{#if a}}x{{/each}}y{{/if}}", ctx))
	assert.Equal(t, "1{{/if}}2{{/if}}", render(t, "{{#each items}}{{this}}{{/if}}{{/each}}", ctx))
	assert.Equal(t, "12", render(t, "{{#if a}}{{#each items}}{{this}}{{/each}}{{/if}}", ctx))
	assert.NoError(t, NewRenderer().Validate("{{#if a}}{{/each}}{{/if}}"))
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer()
	tmpl := "{{#each m}}{{key}}{{/each}}"
	ctx := map[string]any{"m": map[string]any{"z": 1, "y": 2, "x": 3}}

	first, err := r.Render(tmpl, ctx)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		out, err := r.Render(tmpl, ctx)
		require.NoError(t, err)
		assert.Equal(t, first, out)
	}
}

func TestRender_Concurrent(t *testing.T) {
	r := NewRenderer()
	tmpl := "{{#each items}}{{this}}{{/each}}"

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, err := r.Render(tmpl, map[string]any{"items": []any{n}})
			assert.NoError(t, err)
			assert.Equal(t, stringify(n), out)
		}(i)
	}
	wg.Wait()
}
