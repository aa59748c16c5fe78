package core

import (
	"context"
	"sync"

	"github.com/hupe1980/banter/logging"
)

// ConversationOptions configures a Conversation.
type ConversationOptions struct {
	// ID overrides the generated conversation id.
	ID string
	// Logger receives step lifecycle logs (defaults to a no-op logger).
	Logger logging.Logger
}

// Conversation is the transcript shared by a group of responders together
// with the step protocol that extends it.
//
// Contract:
//   - Turns are only ever appended, never reordered or removed
//   - Step / StepAsync compute the new turn completely before appending it,
//     so a failed responder call leaves the transcript unchanged
//   - Preload seeds history while idle and before the first step
//   - Turns are stored and returned as deep copies, so callers never share
//     parameter maps with the transcript
//
// Callers are expected to drive a Conversation from a single flow; a step
// attempted while another one is in flight fails with ErrConversationBusy.
type Conversation struct {
	ID    string
	Topic string

	mu       sync.Mutex
	turns    []Turn
	stepping bool
	steps    int

	*loggerAdapter
}

// NewConversation creates an idle conversation about topic.
func NewConversation(topic string, optFns ...func(o *ConversationOptions)) *Conversation {
	opts := ConversationOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ID == "" {
		opts.ID = NewID()
	}
	return &Conversation{
		ID:            opts.ID,
		Topic:         topic,
		turns:         []Turn{},
		loggerAdapter: newLoggerAdapter(opts.Logger),
	}
}

// Turns returns a copy of the transcript.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTurns(c.turns)
}

func cloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t.Clone()
	}
	return out
}

// Len returns the number of turns in the transcript.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// History returns the transcript in mapping form.
func (c *Conversation) History() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]map[string]any, len(c.turns))
	for i, t := range c.turns {
		history[i] = t.Clone().Map()
	}
	return history
}

// Preload appends externally supplied turns without invoking any responder.
func (c *Conversation) Preload(turns ...Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stepping {
		return ErrConversationBusy
	}
	if c.steps > 0 {
		return ErrHistorySealed
	}
	c.turns = append(c.turns, cloneTurns(turns)...)
	c.LogDebug("conversation.preload", "conversation", c.ID, "turns", len(turns))
	return nil
}

// Step asks r for the next turn and appends it. Responder errors are
// returned unchanged and leave the transcript untouched.
func (c *Conversation) Step(ctx context.Context, r Responder, opts StepOptions) (Turn, error) {
	req, err := c.begin(r, opts)
	if err != nil {
		return Turn{}, err
	}
	turn, err := r.Respond(ctx, req)
	return c.finish(r, turn, err)
}

// StepAsync is the asynchronous twin of Step. The only suspension point is
// the responder call; the request snapshot is taken before StepAsync
// returns. Exactly one value is delivered: the appended Turn or an error.
func (c *Conversation) StepAsync(ctx context.Context, r Responder, opts StepOptions) (<-chan Turn, <-chan error) {
	out := make(chan Turn, 1)
	errCh := make(chan error, 1)

	req, err := c.begin(r, opts)
	if err != nil {
		errCh <- err
		close(out)
		close(errCh)
		return out, errCh
	}

	turnCh, respErrCh := r.RespondAsync(ctx, req)

	go func() {
		defer close(out)
		defer close(errCh)

		turn, err := Await(ctx, turnCh, respErrCh)
		turn, err = c.finish(r, turn, err)
		if err != nil {
			errCh <- err
			return
		}
		out <- turn
	}()

	return out, errCh
}

// begin moves the conversation from idle to stepping and snapshots the request.
func (c *Conversation) begin(r Responder, opts StepOptions) (TurnRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stepping {
		return TurnRequest{}, ErrConversationBusy
	}
	c.stepping = true

	history := cloneTurns(c.turns)

	c.LogDebug("conversation.step.start", "conversation", c.ID, "responder", r.Key(), "turns", len(history))

	return TurnRequest{
		Topic:       c.Topic,
		History:     history,
		RoundRule:   opts.RoundRule,
		LengthLimit: opts.LengthLimit,
		LLMOptions:  opts.LLMOptions,
	}, nil
}

// finish moves the conversation back to idle, appending turn when err is nil.
func (c *Conversation) finish(r Responder, turn Turn, err error) (Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepping = false
	if err != nil {
		c.LogWarn("conversation.step.error", "conversation", c.ID, "responder", r.Key(), "error", err)
		return Turn{}, err
	}
	c.turns = append(c.turns, turn.Clone())
	c.steps++
	c.LogDebug("conversation.step.complete", "conversation", c.ID, "speaker", turn.Speaker, "turns", len(c.turns))
	return turn, nil
}

// Await blocks until one result of an asynchronous turn producer is
// available or ctx is done. A producer that closes both channels without
// delivering anything yields ErrNoReply.
func Await(ctx context.Context, turnCh <-chan Turn, errCh <-chan error) (Turn, error) {
	for turnCh != nil || errCh != nil {
		select {
		case t, ok := <-turnCh:
			if ok {
				return t, nil
			}
			turnCh = nil
		case err, ok := <-errCh:
			if ok && err != nil {
				return Turn{}, err
			}
			errCh = nil
		case <-ctx.Done():
			return Turn{}, ctx.Err()
		}
	}
	return Turn{}, ErrNoReply
}
