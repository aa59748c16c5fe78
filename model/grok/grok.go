// Package grok provides a model.Client for xAI's Grok models. The xAI API
// is OpenAI compatible, so the client is the openai adapter pointed at the
// xAI endpoint.
package grok

import (
	"github.com/hupe1980/banter/model"
	"github.com/hupe1980/banter/model/openai"
)

// BaseURL is the xAI API root.
const BaseURL = "https://api.x.ai/v1/"

// DefaultModel is used when no model is configured.
const DefaultModel = "grok-2-latest"

// New creates a Grok client. Options are applied after the xAI defaults.
func New(optFns ...func(o *openai.Options)) *openai.Client {
	fns := append([]func(o *openai.Options){func(o *openai.Options) {
		o.Model = DefaultModel
		o.Provider = "grok"
		o.BaseURL = BaseURL
	}}, optFns...)
	return openai.New(fns...)
}

// Factory builds a Grok client from registry configuration. A base_url
// client option overrides the xAI endpoint.
func Factory(cfg model.FactoryConfig) (model.Client, error) {
	return New(openai.WithFactoryConfig(cfg)), nil
}
