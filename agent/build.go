package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/model"
	"github.com/hupe1980/banter/prompt"
)

// BuildAll binds every persona to a client from registry concurrently and
// returns the agents in the order of personas. The first failure cancels
// the remaining bindings and is returned.
func BuildAll(ctx context.Context, personas []core.Persona, prompts core.PromptSet, renderer *prompt.Renderer, registry *model.Registry, optFns ...func(o *Options)) ([]*Agent, error) {
	if renderer == nil {
		renderer = prompt.NewRenderer()
	}

	agents := make([]*Agent, len(personas))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range personas {
		g.Go(func() error {
			a, err := NewFromPersona(gctx, p, prompts, renderer, registry, optFns...)
			if err != nil {
				return err
			}
			agents[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agents, nil
}

// Responders converts agents to the responder interface used by a Conversation.
func Responders(agents []*Agent) []core.Responder {
	out := make([]core.Responder, len(agents))
	for i, a := range agents {
		out[i] = a
	}
	return out
}
