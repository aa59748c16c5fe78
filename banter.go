// Package banter drives persona-backed agents through rounds of a shared
// conversation. A Session wraps a core.Conversation and a fixed speaking
// order; each round every responder takes exactly one turn. Most
// applications:
//  1. Load personas (persona.LoadFile) and prompts (prompt.LoadSetDir)
//  2. Build agents (agent.BuildAll) from a model.Registry
//  3. Create a Session and call Run or RunAsync
//
// Post-turn side effects (playback, printing, persistence) are attached as
// TurnHooks and run in order after every produced turn.
package banter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/logging"
)

// Configuration errors returned by New.
var (
	ErrInvalidRounds = errors.New("rounds must be at least 1")
	ErrNoResponders  = errors.New("at least one responder is required")
)

// TurnHook runs after every produced turn. round is 1-based. A non-nil
// error aborts the run.
type TurnHook func(ctx context.Context, turn core.Turn, round int) error

// RoundTurn is a produced turn together with the round it was produced in.
type RoundTurn struct {
	Round int
	Turn  core.Turn
}

// Options configures a Session.
type Options struct {
	// Rounds is the number of rounds; every responder speaks once per round.
	Rounds int
	// RoundRule, LengthLimit and LLMOptions are forwarded with every step.
	RoundRule   string
	LengthLimit int
	LLMOptions  map[string]any
	// Delay pauses between consecutive turns.
	Delay time.Duration
	// Hooks run in order after every turn.
	Hooks []TurnHook
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Session runs rounds of a conversation. A Session is single-use per run;
// running it twice continues the same transcript.
type Session struct {
	conv       *core.Conversation
	responders []core.Responder
	opts       Options
}

// New creates a session speaking in the order of responders.
func New(conv *core.Conversation, responders []core.Responder, optFns ...func(o *Options)) (*Session, error) {
	opts := Options{
		Rounds: 1,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Rounds < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRounds, opts.Rounds)
	}
	if len(responders) == 0 {
		return nil, ErrNoResponders
	}
	if conv == nil {
		return nil, errors.New("conversation is required")
	}
	return &Session{
		conv:       conv,
		responders: append([]core.Responder(nil), responders...),
		opts:       opts,
	}, nil
}

// Conversation returns the driven conversation.
func (s *Session) Conversation() *core.Conversation { return s.conv }

// AddHook appends a hook. It must not be called while a run is in progress.
func (s *Session) AddHook(h TurnHook) { s.opts.Hooks = append(s.opts.Hooks, h) }

func (s *Session) stepOptions() core.StepOptions {
	return core.StepOptions{
		RoundRule:   s.opts.RoundRule,
		LengthLimit: s.opts.LengthLimit,
		LLMOptions:  s.opts.LLMOptions,
	}
}

// Run executes all rounds with the blocking step and returns the produced
// turns. On error the turns produced so far are returned with it.
func (s *Session) Run(ctx context.Context) ([]RoundTurn, error) {
	var produced []RoundTurn
	err := s.run(ctx, func(ctx context.Context, r core.Responder) (core.Turn, error) {
		return s.conv.Step(ctx, r, s.stepOptions())
	}, func(rt RoundTurn) error {
		produced = append(produced, rt)
		return nil
	})
	return produced, err
}

// RunAsync executes all rounds with the asynchronous step. Turns are
// streamed in order; the error channel receives at most one error. Both
// channels are closed when the run ends.
func (s *Session) RunAsync(ctx context.Context) (<-chan RoundTurn, <-chan error) {
	out := make(chan RoundTurn)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		err := s.run(ctx, func(ctx context.Context, r core.Responder) (core.Turn, error) {
			turnCh, stepErrCh := s.conv.StepAsync(ctx, r, s.stepOptions())
			return core.Await(ctx, turnCh, stepErrCh)
		}, func(rt RoundTurn) error {
			select {
			case out <- rt:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

type stepFunc func(ctx context.Context, r core.Responder) (core.Turn, error)

func (s *Session) run(ctx context.Context, step stepFunc, emit func(RoundTurn) error) error {
	log := s.opts.Logger
	total := s.opts.Rounds * len(s.responders)
	n := 0

	log.Info("session.start", "conversation", s.conv.ID, "rounds", s.opts.Rounds, "responders", len(s.responders))
	for round := 1; round <= s.opts.Rounds; round++ {
		for _, r := range s.responders {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			turn, err := step(ctx, r)
			if err != nil {
				log.Error("session.turn.error", "round", round, "responder", r.Key(), "error", err)
				return fmt.Errorf("round %d, %s: %w", round, r.Key(), err)
			}
			n++
			if tl, ok := log.(logging.TurnLogger); ok {
				tl.LogTurn(turn.Speaker, round, len(turn.Text))
			} else {
				log.Debug("session.turn", "round", round, "speaker", turn.Speaker, "duration_ms", time.Since(start).Milliseconds())
			}

			if err := emit(RoundTurn{Round: round, Turn: turn}); err != nil {
				return err
			}
			for _, h := range s.opts.Hooks {
				if err := h(ctx, turn, round); err != nil {
					return fmt.Errorf("round %d, %s: hook: %w", round, r.Key(), err)
				}
			}

			if s.opts.Delay > 0 && n < total {
				if err := sleep(ctx, s.opts.Delay); err != nil {
					return err
				}
			}
		}
	}
	log.Info("session.complete", "conversation", s.conv.ID, "turns", n)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
