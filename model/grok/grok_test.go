package grok

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/banter/model"
)

func TestFactory(t *testing.T) {
	c, err := Factory(model.FactoryConfig{Model: "grok-beta", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, model.Info{Name: "grok-beta", Provider: "grok"}, model.Describe(c))

	_, ok := model.AsAsync(c)
	assert.True(t, ok)
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, model.Info{Name: DefaultModel, Provider: "grok"}, New().Info())
}
