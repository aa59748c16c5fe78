// Package anthropic adapts the Anthropic Messages API to model.Client.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/banter/model"
)

// Options configures the Anthropic client adapter.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	// Defaults are generation options applied to every call.
	Defaults model.CallOptions
}

// Client wraps the Anthropic Messages API behind model.Client.
type Client struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 1024,
		Defaults:  model.CallOptions{},
	}
}

// New creates a client using the official SDK. Without an API key the SDK
// reads ANTHROPIC_API_KEY.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Client{client: &client, opts: opts}
}

// NewFromClient wraps an existing SDK client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Factory builds a client from registry configuration. base_url and
// timeout (seconds) configure the transport; other keys become default
// generation options.
func Factory(cfg model.FactoryConfig) (model.Client, error) {
	return New(WithFactoryConfig(cfg)), nil
}

// WithFactoryConfig applies registry configuration to Options.
func WithFactoryConfig(cfg model.FactoryConfig) func(o *Options) {
	return func(o *Options) {
		o.Model = anthropic.Model(cfg.Model)
		o.APIKey = cfg.APIKey
		if o.Defaults == nil {
			o.Defaults = model.CallOptions{}
		}
		opts := model.CallOptions(cfg.Options)
		for k, v := range cfg.Options {
			switch k {
			case "base_url":
				if s, ok := v.(string); ok {
					o.BaseURL = s
				}
			case "timeout":
				if secs, ok := opts.Float(k); ok {
					o.Timeout = time.Duration(secs * float64(time.Second))
				}
			default:
				o.Defaults[k] = v
			}
		}
	}
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, messages []model.Message, opts model.CallOptions) (string, error) {
	params, err := c.buildParams(messages, opts)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	return text(resp), nil
}

// CompleteAsync implements model.AsyncClient on top of the streaming API.
func (c *Client) CompleteAsync(ctx context.Context, messages []model.Message, opts model.CallOptions) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)

	params, err := c.buildParams(messages, opts)
	if err != nil {
		errCh <- err
		close(out)
		close(errCh)
		return out, errCh
	}

	go func() {
		defer close(out)
		defer close(errCh)

		stream := c.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		msg := anthropic.Message{}
		for stream.Next() {
			if err := msg.Accumulate(stream.Current()); err != nil {
				errCh <- fmt.Errorf("anthropic streaming error: %w", err)
				return
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
			return
		}
		out <- text(&msg)
	}()

	return out, errCh
}

func (c *Client) buildParams(messages []model.Message, opts model.CallOptions) (anthropic.MessageNewParams, error) {
	system, rest := model.SplitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
	}
	for _, m := range rest {
		if m.Content == "" {
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == model.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
	}
	if len(params.Messages) == 0 {
		return params, errors.New("anthropic: at least one non-empty user message is required")
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	merged := c.opts.Defaults.Merge(opts)
	if v, ok := merged.Float("temperature"); ok {
		params.Temperature = anthropic.Float(v)
	}
	if v, ok := merged.Float("top_p"); ok {
		params.TopP = anthropic.Float(v)
	}
	if v, ok := merged.Int("top_k"); ok {
		params.TopK = anthropic.Int(v)
	}
	if v, ok := merged.Int("max_tokens"); ok {
		params.MaxTokens = v
	}
	return params, nil
}

func text(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Info implements model.Describer.
func (c *Client) Info() model.Info {
	return model.Info{Name: string(c.opts.Model), Provider: "anthropic"}
}
