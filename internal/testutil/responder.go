package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/banter/core"
)

// ScriptedResponder is a deterministic core.Responder. Each call replies
// "<key> #<n> (<history length>)" unless Err is set, and records the
// requests it received. Gate, when non-nil, blocks every call until it is
// closed or the context ends.
type ScriptedResponder struct {
	ID   string
	Err  error
	Gate chan struct{}

	mu       sync.Mutex
	requests []core.TurnRequest
}

var _ core.Responder = (*ScriptedResponder)(nil)

// NewScriptedResponder creates a responder speaking as key.
func NewScriptedResponder(key string) *ScriptedResponder {
	return &ScriptedResponder{ID: key}
}

// Key implements core.Responder.
func (r *ScriptedResponder) Key() string { return r.ID }

// Requests returns a copy of the received requests.
func (r *ScriptedResponder) Requests() []core.TurnRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.TurnRequest(nil), r.requests...)
}

// Respond implements core.Responder.
func (r *ScriptedResponder) Respond(ctx context.Context, req core.TurnRequest) (core.Turn, error) {
	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return core.Turn{}, ctx.Err()
		}
	}

	r.mu.Lock()
	r.requests = append(r.requests, req)
	n := len(r.requests)
	r.mu.Unlock()

	if r.Err != nil {
		return core.Turn{}, r.Err
	}
	return core.NewTurn(r.ID, fmt.Sprintf("%s #%d (%d)", r.ID, n, len(req.History))), nil
}

// RespondAsync implements core.Responder.
func (r *ScriptedResponder) RespondAsync(ctx context.Context, req core.TurnRequest) (<-chan core.Turn, <-chan error) {
	out := make(chan core.Turn, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		t, err := r.Respond(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		out <- t
	}()
	return out, errCh
}
