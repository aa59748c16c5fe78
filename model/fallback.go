package model

import (
	"context"
	"errors"
	"fmt"
)

// FallbackClient tries its clients in order and returns the first
// successful completion. When every client fails the joined errors are
// returned, so errors.Is still matches each provider's failure.
type FallbackClient struct {
	clients []Client
}

// NewFallbackClient returns a client that falls back through clients.
func NewFallbackClient(clients ...Client) *FallbackClient {
	return &FallbackClient{clients: clients}
}

// Complete implements Client.
func (f *FallbackClient) Complete(ctx context.Context, messages []Message, opts CallOptions) (string, error) {
	if len(f.clients) == 0 {
		return "", errors.New("fallback client has no clients")
	}
	var errs []error
	for _, c := range f.clients {
		text, err := c.Complete(ctx, messages, opts)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", errors.Join(append(errs, err)...)
		}
		errs = append(errs, fmt.Errorf("%s: %w", Describe(c).Provider, err))
	}
	return "", errors.Join(errs...)
}

// Info implements Describer with the info of the primary client.
func (f *FallbackClient) Info() Info {
	if len(f.clients) == 0 {
		return Info{Provider: "fallback"}
	}
	return Describe(f.clients[0])
}
