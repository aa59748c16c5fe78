// Package providers registers the built-in model providers with a
// model.Registry.
package providers

import (
	"github.com/hupe1980/banter/model"
	"github.com/hupe1980/banter/model/anthropic"
	"github.com/hupe1980/banter/model/gemini"
	"github.com/hupe1980/banter/model/grok"
	"github.com/hupe1980/banter/model/openai"
)

// Default environment variables holding provider API keys.
const (
	OpenAIKeyEnv    = "OPENAI_API_KEY"
	GeminiKeyEnv    = "GEMINI_API_KEY"
	GrokKeyEnv      = "GROK_API_KEY"
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// Register adds openai, gemini, grok and anthropic to r.
func Register(r *model.Registry) {
	r.Register("openai", OpenAIKeyEnv, openai.Factory)
	r.Register("gemini", GeminiKeyEnv, gemini.Factory)
	r.Register("grok", GrokKeyEnv, grok.Factory)
	r.Register("anthropic", AnthropicKeyEnv, anthropic.Factory)
}

// NewRegistry returns a registry with every built-in provider registered.
func NewRegistry(optFns ...func(o *model.RegistryOptions)) *model.Registry {
	r := model.NewRegistry(optFns...)
	Register(r)
	return r
}
