package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Turn is one produced utterance. After creation it should be treated as
// immutable; the only meaningful relation between turns is their order in a
// Conversation.
type Turn struct {
	Speaker    string         `json:"speaker"`
	Text       string         `json:"text"`
	LLMDisplay string         `json:"llm_display,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// NewTurn creates a turn for speaker with surrounding whitespace removed from text.
func NewTurn(speaker, text string) Turn {
	return Turn{Speaker: speaker, Text: strings.TrimSpace(text)}
}

// Clone returns a copy of t whose Parameters share no maps or slices with t.
func (t Turn) Clone() Turn {
	t.Parameters = CloneParameters(t.Parameters)
	return t
}

// CloneParameters deep-copies nested maps and slices of a parameter map.
// A nil map stays nil.
func CloneParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	return cloneValue(params).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Map returns the mapping form used for template history, preload files and
// reporting. Optional keys are only present when non-empty.
func (t Turn) Map() map[string]any {
	m := map[string]any{
		"speaker": t.Speaker,
		"text":    t.Text,
	}
	if t.LLMDisplay != "" {
		m["llm_display"] = t.LLMDisplay
	}
	if len(t.Parameters) > 0 {
		m["parameters"] = t.Parameters
	}
	return m
}

// TurnFromMap reconstructs a Turn from its mapping form. speaker and text are
// required strings; llm_display and parameters are optional.
func TurnFromMap(m map[string]any) (Turn, error) {
	speaker, ok := m["speaker"].(string)
	if !ok {
		return Turn{}, fmt.Errorf("%w: missing string field %q", ErrMalformedTurn, "speaker")
	}
	text, ok := m["text"].(string)
	if !ok {
		return Turn{}, fmt.Errorf("%w: missing string field %q", ErrMalformedTurn, "text")
	}
	t := Turn{Speaker: speaker, Text: text}
	if raw, ok := m["llm_display"]; ok && raw != nil {
		display, ok := raw.(string)
		if !ok {
			return Turn{}, fmt.Errorf("%w: llm_display must be a string", ErrMalformedTurn)
		}
		t.LLMDisplay = display
	}
	if raw, ok := m["parameters"]; ok && raw != nil {
		params, ok := raw.(map[string]any)
		if !ok {
			return Turn{}, fmt.Errorf("%w: parameters must be an object", ErrMalformedTurn)
		}
		if len(params) > 0 {
			t.Parameters = params
		}
	}
	return t, nil
}

// NewID generates a new unique identifier for conversations.
func NewID() string { return uuid.NewString() }
