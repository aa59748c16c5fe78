package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/hupe1980/banter"
	"github.com/hupe1980/banter/agent"
	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/history"
	"github.com/hupe1980/banter/logging"
	"github.com/hupe1980/banter/model"
	"github.com/hupe1980/banter/model/providers"
	"github.com/hupe1980/banter/persona"
	"github.com/hupe1980/banter/playback"
	"github.com/hupe1980/banter/prompt"
)

// newRegistry is replaced in tests.
var newRegistry = providers.NewRegistry

func runBanter(ctx context.Context, cfg config, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Rounds < 1 {
		return fmt.Errorf("--rounds must be at least 1")
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{Level: level, Format: cfg.LogFormat, Output: stderr, Component: "cli"})
	defer logger.StartTimer("banter.run")()

	catalog, err := persona.LoadFile(cfg.Personas)
	if err != nil {
		return err
	}
	selected, err := catalog.Select(cfg.Agents...)
	if err != nil {
		return err
	}

	prompts, err := prompt.LoadSetDir(cfg.Prompts)
	if err != nil {
		return err
	}
	renderer := prompt.NewRenderer()
	if err := prompt.ValidateSet(renderer, prompts); err != nil {
		return err
	}

	registry := newRegistry(func(o *model.RegistryOptions) {
		o.DefaultProvider = cfg.DefaultProvider
		o.DefaultModel = cfg.DefaultModel
		o.Logger = logger.WithComponent("model")
	})
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn("registry close failed", "error", err)
		}
	}()

	wrap, err := clientWrapper(ctx, cfg, registry)
	if err != nil {
		return err
	}

	agents, err := agent.BuildAll(ctx, selected, prompts, renderer, registry, func(o *agent.Options) {
		o.WrapClient = wrap
		o.Logger = logger.WithComponent("agent")
	})
	if err != nil {
		return err
	}

	conv := core.NewConversation(cfg.Topic, func(o *core.ConversationOptions) {
		o.Logger = logger.WithComponent("conversation")
	})
	rep := newReporter(stdout, cfg.JSON, catalog, agents)

	if cfg.History != "" {
		turns, err := history.LoadFile(cfg.History)
		if err != nil {
			return err
		}
		if err := conv.Preload(turns...); err != nil {
			return err
		}
		rep.preloaded(turns)
	}

	hooks := []banter.TurnHook{rep.hook}
	if url := strings.TrimSpace(cfg.PlaybackURL); url != "" && !strings.EqualFold(url, "none") {
		pb := playback.New(url, func(o *playback.Options) { o.Logger = logger.WithComponent("playback") })
		hooks = append(hooks, pb.Hook)
	}

	session, err := banter.New(conv, agent.Responders(agents), func(o *banter.Options) {
		o.Rounds = cfg.Rounds
		o.RoundRule = cfg.RoundRule
		o.LengthLimit = cfg.LengthLimit
		o.Delay = cfg.Delay
		o.Hooks = hooks
		o.Logger = logger.WithConversation(conv.ID)
	})
	if err != nil {
		return err
	}

	if cfg.Sync {
		_, err = session.Run(ctx)
	} else {
		out, errCh := session.RunAsync(ctx)
		for range out {
		}
		err = <-errCh
	}
	if err != nil {
		return err
	}

	if cfg.Save != "" {
		if err := history.WriteFile(cfg.Save, conv.Turns()); err != nil {
			return err
		}
	}
	return rep.finish()
}

// clientWrapper composes the fallback provider and the call limits around
// every agent client.
func clientWrapper(ctx context.Context, cfg config, registry *model.Registry) (func(model.Client) model.Client, error) {
	var fallback model.Client
	if cfg.FallbackProvider != "" {
		binding, err := registry.Resolve(ctx, model.Config{Provider: cfg.FallbackProvider})
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
		fallback = binding.Client
	}

	limits := model.LimitOptions{}
	if cfg.MaxCalls > 0 {
		limits.Budget = model.NewCallBudget(cfg.MaxCalls)
	}
	if cfg.RPS > 0 {
		limits.Limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return func(c model.Client) model.Client {
		if fallback != nil {
			c = model.NewFallbackClient(c, fallback)
		}
		if limits.Budget != nil || limits.Limiter != nil {
			c = model.NewLimitedClient(c, func(o *model.LimitOptions) { *o = limits })
		}
		return c
	}, nil
}

// reporter prints turns as they are produced and collects reporting records.
type reporter struct {
	w       io.Writer
	asJSON  bool
	labels  map[string]string
	params  map[string]map[string]any
	records []history.Record
}

func newReporter(w io.Writer, asJSON bool, catalog *persona.Catalog, agents []*agent.Agent) *reporter {
	r := &reporter{
		w:      w,
		asJSON: asJSON,
		labels: map[string]string{},
		params: map[string]map[string]any{},
	}
	for _, key := range catalog.Keys() {
		p, _ := catalog.Get(key)
		label := p.LLM.Display
		if label == "" {
			label = p.LLM.Provider
		}
		r.labels[key] = label
	}
	for _, a := range agents {
		r.labels[a.Key()] = a.LLMDisplay()
		r.params[a.Key()] = a.Parameters()
	}
	return r
}

func (r *reporter) record(t core.Turn) history.Record {
	rec := history.NewRecord(t, r.labels[t.Speaker], r.params[t.Speaker])
	r.records = append(r.records, rec)
	return rec
}

func (r *reporter) preloaded(turns []core.Turn) {
	for _, t := range turns {
		rec := r.record(t)
		if !r.asJSON {
			fmt.Fprintf(r.w, "- %s\n", rec.Line())
		}
	}
	if len(turns) > 0 && !r.asJSON {
		fmt.Fprint(r.w, "\nContinuing conversation...\n\n")
	}
}

func (r *reporter) hook(_ context.Context, t core.Turn, round int) error {
	rec := r.record(t)
	if !r.asJSON {
		fmt.Fprintf(r.w, "[%d] %s\n\n", round, rec.Line())
	}
	return nil
}

func (r *reporter) finish() error {
	if r.asJSON {
		return history.WriteRecords(r.w, r.records)
	}
	fmt.Fprintln(r.w, "Conversation complete. Final transcript:")
	for _, rec := range r.records {
		fmt.Fprintf(r.w, "- %s\n", rec.Line())
	}
	return nil
}
