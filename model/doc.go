// Package model defines the provider agnostic client contract used by
// agents to turn rendered prompts into text.
//
// A Client returns the generated text for an ordered list of messages. The
// optional AsyncClient capability is probed at runtime with AsAsync;
// clients without it are driven on a goroutine by Go.
//
// Concrete providers live in sub packages (openai, grok, anthropic, gemini).
// The Registry builds and caches them from persona configuration. MockClient
// is a deterministic offline client registered as provider "echo".
//
// FallbackClient and LimitedClient decorate any Client with provider
// substitution, a run-wide CallBudget and request pacing.
package model
