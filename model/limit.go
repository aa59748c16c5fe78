package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ErrCallBudgetExceeded is returned once a CallBudget is used up.
var ErrCallBudgetExceeded = errors.New("model call budget exceeded")

// CallBudget caps the number of model calls in a run. It may be shared by
// several clients.
type CallBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallBudget creates a budget of max calls. max == 0 means unlimited.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max}
}

// Take reserves one call and fails when the budget is exhausted.
func (b *CallBudget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.count >= b.max {
		return fmt.Errorf("%w: %d calls", ErrCallBudgetExceeded, b.max)
	}
	b.count++
	return nil
}

// Count returns the number of calls taken.
func (b *CallBudget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (b *CallBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max == 0 {
		return -1
	}
	return b.max - b.count
}

// LimitOptions configure a limited client.
type LimitOptions struct {
	// Budget caps the total number of calls (nil = unlimited).
	Budget *CallBudget
	// Limiter paces calls (nil = no pacing).
	Limiter *rate.Limiter
}

// LimitedClient wraps a Client with a call budget and request pacing.
type LimitedClient struct {
	next Client
	opts LimitOptions
}

// NewLimitedClient wraps next.
func NewLimitedClient(next Client, optFns ...func(o *LimitOptions)) *LimitedClient {
	opts := LimitOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LimitedClient{next: next, opts: opts}
}

func (l *LimitedClient) acquire(ctx context.Context) error {
	if l.opts.Budget != nil {
		if err := l.opts.Budget.Take(); err != nil {
			return err
		}
	}
	if l.opts.Limiter != nil {
		return l.opts.Limiter.Wait(ctx)
	}
	return nil
}

// Complete implements Client.
func (l *LimitedClient) Complete(ctx context.Context, messages []Message, opts CallOptions) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	return l.next.Complete(ctx, messages, opts)
}

// CompleteAsync implements AsyncClient. It returns immediately; the budget
// and pacing wait run in the background before the wrapped client is
// called, keeping its native async path when it has one.
func (l *LimitedClient) CompleteAsync(ctx context.Context, messages []Message, opts CallOptions) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if err := l.acquire(ctx); err != nil {
			errCh <- err
			return
		}
		textCh, nextErrCh := CompleteAsync(ctx, l.next, messages, opts)
		for textCh != nil || nextErrCh != nil {
			select {
			case text, ok := <-textCh:
				if ok {
					out <- text
					return
				}
				textCh = nil
			case err, ok := <-nextErrCh:
				if ok && err != nil {
					errCh <- err
					return
				}
				nextErrCh = nil
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return out, errCh
}

// Info implements Describer.
func (l *LimitedClient) Info() Info { return Describe(l.next) }
