// Package main is the entry point for the banter command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultTopic       = "Should we launch a banter podcast for our social-media reader?"
	defaultPlaybackURL = "http://127.0.0.1:5053/"
	playbackURLEnv     = "BANTER_FLASK_URL"
)

var defaultAgents = []string{"PRO", "CON", "CHAOS", "MOD"}

// config holds the parsed command line flags.
type config struct {
	Topic            string
	Agents           []string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	Rounds           int
	History          string
	Save             string
	RoundRule        string
	LengthLimit      int
	Delay            time.Duration
	PlaybackURL      string
	JSON             bool
	Personas         string
	Prompts          string
	Sync             bool
	LogLevel         string
	LogFormat        string
	MaxCalls         int
	RPS              float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config{}

	rootCmd := &cobra.Command{
		Use:   "banter",
		Short: "Run a persona-driven banter session between LLM agents",
		Long: `banter loads personas and prompt templates, binds every selected persona
to a model provider and lets the agents take turns on a shared topic. Each
round every agent speaks once, in the order given by --agents.

Example:
  banter --agents PRO,CON --rounds 2 --playback-url none`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBanter(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	playbackURL := os.Getenv(playbackURLEnv)
	if playbackURL == "" {
		playbackURL = defaultPlaybackURL
	}

	f := rootCmd.Flags()
	f.StringVar(&cfg.Topic, "topic", defaultTopic, "Conversation topic shared with every agent")
	f.StringSliceVar(&cfg.Agents, "agents", defaultAgents, "Ordered list of persona keys to include")
	f.StringVar(&cfg.DefaultProvider, "default-provider", "openai", "Provider used when a persona declares none")
	f.StringVar(&cfg.DefaultModel, "default-model", "gpt-4o-mini", "Model used when a persona declares none")
	f.StringVar(&cfg.FallbackProvider, "fallback-provider", "", "Provider tried when an agent's provider fails")
	f.IntVar(&cfg.Rounds, "rounds", 1, "Number of rounds; each agent speaks once per round")
	f.StringVar(&cfg.History, "history", "", "JSON file providing prior conversation history")
	f.StringVar(&cfg.Save, "save", "", "Write the final transcript as JSON to this file")
	f.StringVar(&cfg.RoundRule, "round-rule", "", "Override the default round rule shared with agents")
	f.IntVar(&cfg.LengthLimit, "length-limit", 0, "Override the default character limit shared with agents")
	f.DurationVar(&cfg.Delay, "delay", 0, "Pause after each turn (e.g. to allow external playback)")
	f.StringVar(&cfg.PlaybackURL, "playback-url", playbackURL, "Playback server base URL; 'none' disables playback")
	f.BoolVar(&cfg.JSON, "json", false, "Output the conversation as JSON records instead of plain text")
	f.StringVar(&cfg.Personas, "personas", "codex/personas.yaml", "Persona catalog (YAML)")
	f.StringVar(&cfg.Prompts, "prompts", "codex/prompts", "Directory with system.md, developer.md and user.md")
	f.BoolVar(&cfg.Sync, "sync", false, "Use blocking model calls instead of the asynchronous path")
	f.StringVar(&cfg.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogFormat, "log-format", "text", "Log format (text or json)")
	f.IntVar(&cfg.MaxCalls, "max-calls", 0, "Maximum number of model calls for the run (0 = unlimited)")
	f.Float64Var(&cfg.RPS, "rps", 0, "Maximum model requests per second (0 = unlimited)")

	return rootCmd
}
