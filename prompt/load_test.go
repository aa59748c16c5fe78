package prompt

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/banter/core"
)

func TestLoadSet(t *testing.T) {
	fsys := fstest.MapFS{
		"system.md":    {Data: []byte("You are {{persona.name}}.")},
		"developer.md": {Data: []byte("Rule: {{round_rule}}")},
		"user.md":      {Data: []byte("Topic: {{topic}}")},
	}

	set, err := LoadSet(fsys)
	require.NoError(t, err)
	assert.Equal(t, "You are {{persona.name}}.", set.System)
	assert.Equal(t, "Rule: {{round_rule}}", set.Developer)
	assert.Equal(t, "Topic: {{topic}}", set.User)
}

func TestLoadSet_MissingTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"system.md": {Data: []byte("s")},
		"user.md":   {Data: []byte("u")},
	}

	_, err := LoadSet(fsys)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingPrompt)
	assert.Contains(t, err.Error(), "developer.md")
}

func TestLoadSetDir(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{"system.md": "s", "developer.md": "d", "user.md": "u"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	set, err := LoadSetDir(dir)
	require.NoError(t, err)
	assert.Equal(t, core.PromptSet{System: "s", Developer: "d", User: "u"}, set)

	_, err = LoadSetDir(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, core.ErrMissingPrompt)
}

func TestValidateSet(t *testing.T) {
	r := NewRenderer()
	assert.NoError(t, ValidateSet(r, core.PromptSet{System: "{{a}}", Developer: "", User: "{{#if x}}{{/if}}"}))

	err := ValidateSet(r, core.PromptSet{User: "{{#each x}}"})
	assert.ErrorIs(t, err, ErrUnterminatedSection)
	assert.Contains(t, err.Error(), "user.md")
}
