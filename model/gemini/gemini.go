// Package gemini adapts the Google Gemini API (google.golang.org/genai) to
// model.Client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hupe1980/banter/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Options configure the Gemini client adapter.
type Options struct {
	Model  string
	APIKey string
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	Timeout time.Duration
	// Defaults are generation options applied to every call.
	Defaults model.CallOptions
	// SafetySettings are sent with every request.
	SafetySettings []*genai.SafetySetting
}

// Client wraps the genai Models service behind model.Client.
type Client struct {
	client *genai.Client
	opts   Options
}

// New creates a Gemini API client.
func New(ctx context.Context, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{Model: DefaultModel, Defaults: model.CallOptions{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPOptions.Timeout = genai.Ptr(opts.Timeout)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, opts: opts}, nil
}

// Factory builds a client from registry configuration. The client option
// generation_config supplies default generation options, safety_settings a
// list of {category, threshold} records, base_url the endpoint and timeout
// (seconds) the request timeout.
func Factory(cfg model.FactoryConfig) (model.Client, error) {
	return New(context.Background(), WithFactoryConfig(cfg))
}

// WithFactoryConfig applies registry configuration to Options.
func WithFactoryConfig(cfg model.FactoryConfig) func(o *Options) {
	return func(o *Options) {
		o.Model = cfg.Model
		o.APIKey = cfg.APIKey
		if o.Defaults == nil {
			o.Defaults = model.CallOptions{}
		}
		for k, v := range cfg.Options {
			switch k {
			case "base_url":
				if s, ok := v.(string); ok {
					o.BaseURL = s
				}
			case "timeout":
				if secs, ok := model.CallOptions(cfg.Options).Float(k); ok {
					o.Timeout = time.Duration(secs * float64(time.Second))
				}
			case "generation_config":
				if gc, ok := v.(map[string]any); ok {
					for gk, gv := range gc {
						o.Defaults[gk] = gv
					}
				}
			case "safety_settings":
				o.SafetySettings = safetySettings(v)
			}
		}
	}
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, messages []model.Message, opts model.CallOptions) (string, error) {
	contents, config := c.buildRequest(messages, opts)
	resp, err := c.client.Models.GenerateContent(ctx, c.opts.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", err)
	}
	return resp.Text(), nil
}

// CompleteAsync implements model.AsyncClient using the streaming endpoint.
func (c *Client) CompleteAsync(ctx context.Context, messages []model.Message, opts model.CallOptions) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	contents, config := c.buildRequest(messages, opts)

	go func() {
		defer close(out)
		defer close(errCh)

		var text strings.Builder
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.opts.Model, contents, config) {
			if err != nil {
				errCh <- fmt.Errorf("gemini streaming error: %w", err)
				return
			}
			if resp != nil {
				text.WriteString(resp.Text())
			}
		}
		out <- text.String()
	}()

	return out, errCh
}

// buildRequest joins system messages into the system instruction and maps
// the remaining roles onto Gemini's user/model roles. Empty messages are
// dropped; a request without contents gets a single empty user turn.
func (c *Client) buildRequest(messages []model.Message, opts model.CallOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := model.SplitSystem(messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		if m.Content == "" {
			continue
		}
		role := genai.RoleUser
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: ""}}})
	}

	config := generationConfig(c.opts.Defaults.Merge(flatten(opts)))
	config.SafetySettings = c.opts.SafetySettings
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return contents, config
}

// flatten lifts a nested generation_config call option to the top level.
func flatten(opts model.CallOptions) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		if gc, ok := v.(map[string]any); ok && k == "generation_config" {
			for gk, gv := range gc {
				out[gk] = gv
			}
			continue
		}
		out[k] = v
	}
	return out
}

func generationConfig(opts model.CallOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if v, ok := opts.Float("temperature"); ok {
		cfg.Temperature = genai.Ptr(float32(v))
	}
	if v, ok := opts.Float("top_p"); ok {
		cfg.TopP = genai.Ptr(float32(v))
	}
	if v, ok := opts.Float("top_k"); ok {
		cfg.TopK = genai.Ptr(float32(v))
	}
	if v, ok := opts.Float("presence_penalty"); ok {
		cfg.PresencePenalty = genai.Ptr(float32(v))
	}
	if v, ok := opts.Float("frequency_penalty"); ok {
		cfg.FrequencyPenalty = genai.Ptr(float32(v))
	}
	for _, key := range []string{"max_output_tokens", "max_tokens"} {
		if v, ok := opts.Int(key); ok {
			cfg.MaxOutputTokens = int32(v)
			break
		}
	}
	if v, ok := opts.Int("candidate_count"); ok {
		cfg.CandidateCount = int32(v)
	}
	if v, ok := opts.Int("seed"); ok {
		cfg.Seed = genai.Ptr(int32(v))
	}
	if v, ok := opts.Text("response_mime_type"); ok {
		cfg.ResponseMIMEType = v
	}
	if raw, ok := opts["stop_sequences"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				cfg.StopSequences = append(cfg.StopSequences, str)
			}
		}
	}
	return cfg
}

func safetySettings(v any) []*genai.SafetySetting {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []*genai.SafetySetting
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		category, _ := m["category"].(string)
		threshold, _ := m["threshold"].(string)
		if category == "" || threshold == "" {
			continue
		}
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(category),
			Threshold: genai.HarmBlockThreshold(threshold),
		})
	}
	return out
}

// Info implements model.Describer.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: "gemini"}
}
