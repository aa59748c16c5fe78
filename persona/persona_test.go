package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/banter/core"
)

const catalogYAML = `
defaults: &style
  tone: calm
  voice: alloy

personas:
  PRO:
    name: Optimist
    role: Argues for the proposal
    worldview:
      values: [growth, reach]
      fears: stagnation
    style:
      <<: *style
      voice: nova
    examples:
      - text: "Let's ship it!"
    llm:
      provider: openai
      model: gpt-4o-mini
      display: GPT
      api_key_env: PRO_KEY
      client_options:
        temperature: 0.7
    unknown_field: ignored
  CON:
    role: Argues against
`

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"PRO", "CON"}, c.Keys())
	assert.Equal(t, 2, c.Len())

	pro, err := c.Get("PRO")
	require.NoError(t, err)
	assert.Equal(t, "PRO", pro.Key)
	assert.Equal(t, "Optimist", pro.Name)
	assert.Equal(t, "Argues for the proposal", pro.Role)
	assert.Equal(t, []string{"values", "fears"}, pro.Worldview.Keys())
	assert.Equal(t, []any{"growth", "reach"}, pro.Worldview.Get("values"))
	assert.Equal(t, []string{"tone", "voice"}, pro.Style.Keys())
	assert.Equal(t, "nova", pro.Voice())
	require.Len(t, pro.Examples, 1)
	assert.Equal(t, "Let's ship it!", pro.Examples[0].(*core.Mapping).GetString("text"))

	assert.Equal(t, core.LLMConfig{
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		APIKeyEnv:     "PRO_KEY",
		Display:       "GPT",
		ClientOptions: map[string]any{"temperature": 0.7},
	}, pro.LLM)
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	con, err := c.Get("CON")
	require.NoError(t, err)
	assert.Equal(t, "CON", con.Name, "name defaults to the key")
	assert.Equal(t, 0, con.Worldview.Len())
	assert.Equal(t, 0, con.Style.Len())
	assert.Empty(t, con.Examples)
	assert.Empty(t, con.Voice())
	assert.Equal(t, core.LLMConfig{}, con.LLM)

	ctx := con.TemplateContext()
	assert.Equal(t, "CON", ctx["key"])
	assert.Equal(t, []any{}, ctx["examples"])
}

func TestLoad_EmptyDocuments(t *testing.T) {
	for _, doc := range []string{"", "other: 1\n", "personas:\n"} {
		c, err := Load(strings.NewReader(doc))
		require.NoError(t, err, doc)
		assert.Equal(t, 0, c.Len())
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, doc := range []string{
		"- a\n- b\n",
		"personas: [a, b]\n",
		"personas:\n  PRO: just a string\n",
		"personas: {PRO: {name: [unclosed}\n",
	} {
		_, err := Load(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestCatalog_Select(t *testing.T) {
	c, err := Load(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	selected, err := c.Select("CON", "PRO")
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "CON", selected[0].Key)
	assert.Equal(t, "PRO", selected[1].Key)

	_, err = c.Select("PRO", "CHAOS", "TROLL")
	require.ErrorIs(t, err, core.ErrUnknownPersona)
	assert.Contains(t, err.Error(), "CHAOS, TROLL")

	_, err = c.Get("CHAOS")
	assert.ErrorIs(t, err, core.ErrUnknownPersona)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromRecord_NilRecord(t *testing.T) {
	p := FromRecord("X", nil)
	assert.Equal(t, "X", p.Key)
	assert.Equal(t, "X", p.Name)
	assert.NotNil(t, p.Worldview)
	assert.NotNil(t, p.Style)
}
