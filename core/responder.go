package core

import "context"

// TurnRequest carries everything a Responder needs to produce the next turn.
// History is a snapshot; responders must not retain or mutate it.
type TurnRequest struct {
	Topic       string
	History     []Turn
	RoundRule   string
	LengthLimit int
	LLMOptions  map[string]any
}

// Responder produces one reply for a conversation snapshot. The blocking
// and asynchronous variants must yield identical turns for identical input.
//
// RespondAsync delivers exactly one value: either a Turn on the first
// channel or an error on the second. Both channels are closed afterwards.
type Responder interface {
	Key() string
	Respond(ctx context.Context, req TurnRequest) (Turn, error)
	RespondAsync(ctx context.Context, req TurnRequest) (<-chan Turn, <-chan error)
}

// StepOptions are the per-call overrides accepted by Conversation.Step.
// Zero values select the responder's defaults.
type StepOptions struct {
	RoundRule   string
	LengthLimit int
	LLMOptions  map[string]any
}
