package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/logging"
	"github.com/hupe1980/banter/model"
	"github.com/hupe1980/banter/prompt"
)

// Defaults applied when a request leaves the round rule or length limit unset.
const (
	DefaultRoundRule   = "Keep the banter friendly."
	DefaultLengthLimit = 280
)

// Options configure an Agent.
type Options struct {
	// RoundRule is used when a request carries none.
	RoundRule string
	// LengthLimit is used when a request carries none (0). Negative
	// request limits are passed through unchanged.
	LengthLimit int
	// LLMDisplay is the label stamped on produced turns.
	LLMDisplay string
	// Parameters are stamped on produced turns (e.g. playback voice).
	Parameters map[string]any
	// WrapClient, when set, decorates the model client (fallback, limits).
	WrapClient func(model.Client) model.Client
	// Logger receives respond lifecycle logs.
	Logger logging.Logger
}

// Agent binds one persona to the shared prompts, the renderer and a model
// client. It holds no per-conversation state and may serve several
// conversations.
type Agent struct {
	key      string
	persona  core.Persona
	prompts  core.PromptSet
	renderer *prompt.Renderer
	client   model.Client
	opts     Options
	logger   logging.Logger
}

// compile-time check
var _ core.Responder = (*Agent)(nil)

// New creates an agent speaking as key.
func New(key string, persona core.Persona, prompts core.PromptSet, renderer *prompt.Renderer, client model.Client, optFns ...func(o *Options)) *Agent {
	opts := Options{
		RoundRule:   DefaultRoundRule,
		LengthLimit: DefaultLengthLimit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if renderer == nil {
		renderer = prompt.NewRenderer()
	}
	if opts.WrapClient != nil {
		client = opts.WrapClient(client)
	}
	return &Agent{
		key:      key,
		persona:  persona,
		prompts:  prompts,
		renderer: renderer,
		client:   client,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// NewFromPersona resolves the persona's model binding from registry and
// creates an agent keyed by the persona key. The turn label comes from the
// binding and a declared style voice is stamped as parameters.style.voice.
func NewFromPersona(ctx context.Context, persona core.Persona, prompts core.PromptSet, renderer *prompt.Renderer, registry *model.Registry, optFns ...func(o *Options)) (*Agent, error) {
	binding, err := registry.Resolve(ctx, model.Config{
		Provider:  persona.LLM.Provider,
		Model:     persona.LLM.Model,
		APIKey:    persona.LLM.APIKey,
		APIKeyEnv: persona.LLM.APIKeyEnv,
		Display:   persona.LLM.Display,
		Options:   persona.LLM.ClientOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", persona.Key, err)
	}

	fns := append([]func(o *Options){func(o *Options) {
		o.LLMDisplay = binding.Display
		if voice := persona.Voice(); voice != "" {
			o.Parameters = map[string]any{"style": map[string]any{"voice": voice}}
		}
	}}, optFns...)
	return New(persona.Key, persona, prompts, renderer, binding.Client, fns...), nil
}

// Key implements core.Responder.
func (a *Agent) Key() string { return a.key }

// Persona returns the bound persona.
func (a *Agent) Persona() core.Persona { return a.persona }

// LLMDisplay returns the label stamped on produced turns.
func (a *Agent) LLMDisplay() string { return a.opts.LLMDisplay }

// Parameters returns a copy of the parameters stamped on produced turns.
func (a *Agent) Parameters() map[string]any { return core.CloneParameters(a.opts.Parameters) }

// Client returns the bound model client.
func (a *Agent) Client() model.Client { return a.client }

// Respond implements core.Responder. Client errors are returned unchanged.
func (a *Agent) Respond(ctx context.Context, req core.TurnRequest) (core.Turn, error) {
	messages, err := a.Messages(req)
	if err != nil {
		return core.Turn{}, err
	}

	start := time.Now()
	text, err := a.client.Complete(ctx, messages, model.CallOptions(req.LLMOptions))
	a.logCall(start, err)
	if err != nil {
		return core.Turn{}, err
	}
	return a.turn(text), nil
}

// RespondAsync implements core.Responder. Prompts are rendered before it
// returns; only the client call runs in the background, natively when the
// client is a model.AsyncClient and on a goroutine otherwise.
func (a *Agent) RespondAsync(ctx context.Context, req core.TurnRequest) (<-chan core.Turn, <-chan error) {
	out := make(chan core.Turn, 1)
	errCh := make(chan error, 1)

	messages, err := a.Messages(req)
	if err != nil {
		errCh <- err
		close(out)
		close(errCh)
		return out, errCh
	}

	start := time.Now()
	textCh, clientErrCh := model.CompleteAsync(ctx, a.client, messages, model.CallOptions(req.LLMOptions))

	go func() {
		defer close(out)
		defer close(errCh)

		text, err := awaitText(ctx, textCh, clientErrCh)
		a.logCall(start, err)
		if err != nil {
			errCh <- err
			return
		}
		out <- a.turn(text)
	}()

	return out, errCh
}

// Messages renders the three prompts for req: system, developer (as a
// second system message) and user, in that order. Every template sees the
// same context.
func (a *Agent) Messages(req core.TurnRequest) ([]model.Message, error) {
	tctx := a.TemplateContext(req)

	system, err := a.renderer.Render(a.prompts.System, tctx)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	developer, err := a.renderer.Render(a.prompts.Developer, tctx)
	if err != nil {
		return nil, fmt.Errorf("render developer prompt: %w", err)
	}
	user, err := a.renderer.Render(a.prompts.User, tctx)
	if err != nil {
		return nil, fmt.Errorf("render user prompt: %w", err)
	}

	return []model.Message{
		model.System(system),
		model.System(developer),
		model.User(user),
	}, nil
}

// TemplateContext builds the rendering context for req.
func (a *Agent) TemplateContext(req core.TurnRequest) map[string]any {
	roundRule := req.RoundRule
	if roundRule == "" {
		roundRule = a.opts.RoundRule
	}
	lengthLimit := req.LengthLimit
	if lengthLimit == 0 {
		lengthLimit = a.opts.LengthLimit
	}

	history := make([]any, len(req.History))
	for i, t := range req.History {
		history[i] = t.Map()
	}

	return map[string]any{
		"persona":      a.persona.TemplateContext(),
		"round_rule":   roundRule,
		"length_limit": lengthLimit,
		"topic":        req.Topic,
		"history":      history,
	}
}

func (a *Agent) turn(text string) core.Turn {
	t := core.NewTurn(a.key, text)
	t.LLMDisplay = a.opts.LLMDisplay
	if len(a.opts.Parameters) > 0 {
		t.Parameters = core.CloneParameters(a.opts.Parameters)
	}
	return t
}

func (a *Agent) logCall(start time.Time, err error) {
	info := model.Describe(a.client)
	if l, ok := a.logger.(logging.CallLogger); ok {
		l.LogLLMCall(info.Provider+"/"+info.Name, time.Since(start), err == nil, err)
		return
	}
	if err != nil {
		a.logger.Warn("agent.respond.error", "agent", a.key, "provider", info.Provider, "model", info.Name, "duration", time.Since(start), "error", err)
		return
	}
	a.logger.Debug("agent.respond.complete", "agent", a.key, "provider", info.Provider, "model", info.Name, "duration", time.Since(start))
}

// awaitText waits for one result of an asynchronous client call.
func awaitText(ctx context.Context, textCh <-chan string, errCh <-chan error) (string, error) {
	for textCh != nil || errCh != nil {
		select {
		case text, ok := <-textCh:
			if ok {
				return text, nil
			}
			textCh = nil
		case err, ok := <-errCh:
			if ok && err != nil {
				return "", err
			}
			errCh = nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", core.ErrNoReply
}
