package model

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Message roles understood by every provider adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to a model client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// CallOptions are per-call generation overrides ("temperature", "max_tokens",
// "top_p", ...). Adapters pick the keys they understand and ignore the rest.
type CallOptions map[string]any

// Merge returns a new CallOptions with o's entries overridden by overrides.
func (o CallOptions) Merge(overrides map[string]any) CallOptions {
	out := make(CallOptions, len(o)+len(overrides))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Float returns the numeric option key as float64.
func (o CallOptions) Float(key string) (float64, bool) {
	switch v := o[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// Int returns the numeric option key as int64. Fractional values are rejected.
func (o CallOptions) Int(key string) (int64, bool) {
	f, ok := o.Float(key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// Text returns the option key when it is a string.
func (o CallOptions) Text(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

// Client produces the text of one completion for a message list.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts CallOptions) (string, error)
}

// AsyncClient is implemented by clients with a native non-blocking call
// path. CompleteAsync delivers exactly one value (text or error) and closes
// both channels afterwards.
type AsyncClient interface {
	Client
	CompleteAsync(ctx context.Context, messages []Message, opts CallOptions) (<-chan string, <-chan error)
}

// AsAsync reports whether c offers a native asynchronous path.
func AsAsync(c Client) (AsyncClient, bool) {
	ac, ok := c.(AsyncClient)
	return ac, ok
}

// Go runs c.Complete on its own goroutine and delivers the result with the
// AsyncClient channel contract. Clients without a native async path are
// driven through it.
func Go(ctx context.Context, c Client, messages []Message, opts CallOptions) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		text, err := c.Complete(ctx, messages, opts)
		if err != nil {
			errCh <- err
			return
		}
		out <- text
	}()
	return out, errCh
}

// CompleteAsync uses the native async path of c when available and falls
// back to Go otherwise.
func CompleteAsync(ctx context.Context, c Client, messages []Message, opts CallOptions) (<-chan string, <-chan error) {
	if ac, ok := AsAsync(c); ok {
		return ac.CompleteAsync(ctx, messages, opts)
	}
	return Go(ctx, c, messages, opts)
}

// Info contains metadata about a model client.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Describer is implemented by clients that can report their Info.
type Describer interface {
	Info() Info
}

// Describe returns the Info of c, or a generic one for clients that do not
// describe themselves.
func Describe(c Client) Info {
	if d, ok := c.(Describer); ok {
		return d.Info()
	}
	return Info{Name: fmt.Sprintf("%T", c), Provider: "unknown"}
}

// LastUser returns the content of the last user message, or "".
func LastUser(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// SplitSystem separates system messages from the rest. Non-empty system
// contents are joined by a blank line, as providers with a dedicated system
// instruction field expect a single text.
func SplitSystem(messages []Message) (string, []Message) {
	var (
		system []string
		rest   = make([]Message, 0, len(messages))
	)
	for _, m := range messages {
		if m.Role == RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
