package testutil

import "github.com/hupe1980/banter/core"

// TurnBuilder provides a fluent helper for constructing turns in tests.
// Example:
//
//	t := NewTurnBuilder("PRO").Text("hello").Display("openai").Voice("nova").Build()
type TurnBuilder struct {
	turn core.Turn
}

// NewTurnBuilder creates a builder for a turn spoken by speaker.
func NewTurnBuilder(speaker string) *TurnBuilder {
	return &TurnBuilder{turn: core.Turn{Speaker: speaker}}
}

// Text sets the utterance (chainable).
func (b *TurnBuilder) Text(t string) *TurnBuilder { b.turn.Text = t; return b }

// Display sets the model label (chainable).
func (b *TurnBuilder) Display(d string) *TurnBuilder { b.turn.LLMDisplay = d; return b }

// Param sets one parameter (chainable).
func (b *TurnBuilder) Param(key string, value any) *TurnBuilder {
	if b.turn.Parameters == nil {
		b.turn.Parameters = map[string]any{}
	}
	b.turn.Parameters[key] = value
	return b
}

// Voice sets parameters.style.voice (chainable).
func (b *TurnBuilder) Voice(v string) *TurnBuilder {
	return b.Param("style", map[string]any{"voice": v})
}

// Build returns the turn.
func (b *TurnBuilder) Build() core.Turn { return b.turn }

// Turns builds plain speaker/text turns from alternating arguments.
func Turns(speakerText ...string) []core.Turn {
	out := make([]core.Turn, 0, len(speakerText)/2)
	for i := 0; i+1 < len(speakerText); i += 2 {
		out = append(out, core.NewTurn(speakerText[i], speakerText[i+1]))
	}
	return out
}
