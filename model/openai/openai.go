// Package openai adapts the OpenAI Chat Completions API to model.Client.
// Any OpenAI compatible endpoint (xAI Grok, local gateways) can be reached
// by overriding the base URL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/banter/model"
)

// Options configure the OpenAI client adapter.
type Options struct {
	Model        string
	Provider     string
	APIKey       string
	BaseURL      string
	Organization string
	Timeout      time.Duration
	MaxRetries   int
	// Defaults are generation options applied to every call; per-call
	// options override them key by key.
	Defaults model.CallOptions
}

// Client wraps the OpenAI Chat Completions API behind model.Client.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates a client using the official SDK. Credentials not set in
// Options are read by the SDK from OPENAI_API_KEY.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(opts.Organization))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	if opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))
	}

	client := openai.NewClient(reqOpts...)
	return &Client{client: &client, opts: opts}
}

// NewFromClient wraps an existing SDK client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:      openai.ChatModelGPT4oMini,
		Provider:   "openai",
		MaxRetries: -1,
		Defaults:   model.CallOptions{},
	}
}

// Factory builds a client from registry configuration. The client options
// base_url, organization, timeout (seconds) and max_retries configure the
// transport; every other key becomes a default generation option.
func Factory(cfg model.FactoryConfig) (model.Client, error) {
	return New(WithFactoryConfig(cfg)), nil
}

// WithFactoryConfig applies registry configuration to Options.
func WithFactoryConfig(cfg model.FactoryConfig) func(o *Options) {
	return func(o *Options) {
		o.Model = cfg.Model
		o.APIKey = cfg.APIKey
		if o.Defaults == nil {
			o.Defaults = model.CallOptions{}
		}
		defaults := model.CallOptions(cfg.Options)
		for k, v := range cfg.Options {
			switch k {
			case "base_url":
				if s, ok := v.(string); ok {
					o.BaseURL = s
				}
			case "organization":
				if s, ok := v.(string); ok {
					o.Organization = s
				}
			case "timeout":
				if secs, ok := defaults.Float(k); ok {
					o.Timeout = time.Duration(secs * float64(time.Second))
				}
			case "max_retries":
				if n, ok := defaults.Int(k); ok {
					o.MaxRetries = int(n)
				}
			default:
				o.Defaults[k] = v
			}
		}
	}
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, messages []model.Message, opts model.CallOptions) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(messages, opts))
	if err != nil {
		return "", fmt.Errorf("%s api error: %w", c.opts.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", c.opts.Provider)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteAsync implements model.AsyncClient on top of the streaming API.
// The deltas are accumulated so the delivered text equals what Complete
// would have returned.
func (c *Client) CompleteAsync(ctx context.Context, messages []model.Message, opts model.CallOptions) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	params := c.buildParams(messages, opts)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		var (
			text    strings.Builder
			choices bool
		)
		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Index != 0 {
					continue
				}
				choices = true
				text.WriteString(ch.Delta.Content)
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("%s streaming error: %w", c.opts.Provider, err)
			return
		}
		if !choices {
			errCh <- errors.New(c.opts.Provider + ": no choices returned")
			return
		}
		out <- text.String()
	}()

	return out, errCh
}

// buildParams converts messages and merged options into request parameters.
func (c *Client) buildParams(messages []model.Message, opts model.CallOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: buildMessages(messages),
		Model:    c.opts.Model,
	}

	merged := c.opts.Defaults.Merge(opts)
	if v, ok := merged.Float("temperature"); ok {
		params.Temperature = openai.Float(v)
	}
	if v, ok := merged.Float("top_p"); ok {
		params.TopP = openai.Float(v)
	}
	if v, ok := merged.Float("presence_penalty"); ok {
		params.PresencePenalty = openai.Float(v)
	}
	if v, ok := merged.Float("frequency_penalty"); ok {
		params.FrequencyPenalty = openai.Float(v)
	}
	if v, ok := merged.Int("max_tokens"); ok {
		params.MaxTokens = openai.Int(v)
	}
	if v, ok := merged.Int("max_completion_tokens"); ok {
		params.MaxCompletionTokens = openai.Int(v)
	}
	if v, ok := merged.Int("seed"); ok {
		params.Seed = openai.Int(v)
	}
	if v, ok := merged.Text("user"); ok {
		params.User = openai.String(v)
	}
	return params
}

func buildMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	if len(out) == 0 {
		out = append(out, openai.UserMessage(""))
	}
	return out
}

// Info implements model.Describer.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: c.opts.Provider}
}
