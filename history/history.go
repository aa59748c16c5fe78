// Package history reads and writes transcripts in their mapping form and
// builds the reporting records printed by the CLI.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/hupe1980/banter/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load decodes a JSON array of turn mappings. Every entry must be an object
// with string speaker and text; anything else is core.ErrMalformedTurn.
func Load(r io.Reader) ([]core.Turn, error) {
	var raw []any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty history", core.ErrMalformedTurn)
		}
		return nil, fmt.Errorf("decode history: %w", err)
	}

	turns := make([]core.Turn, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not an object", core.ErrMalformedTurn, i)
		}
		t, err := core.TurnFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// LoadFile reads a history file.
func LoadFile(path string) ([]core.Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Write encodes turns as an indented JSON array of turn mappings, the
// format Load reads back.
func Write(w io.Writer, turns []core.Turn) error {
	out := make([]map[string]any, len(turns))
	for i, t := range turns {
		out[i] = t.Map()
	}
	return writeJSON(w, out)
}

// WriteFile writes turns to path.
func WriteFile(path string, turns []core.Turn) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	if err := Write(f, turns); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Record is the reporting form of one turn.
type Record struct {
	Agent      string         `json:"agent"`
	LLM        string         `json:"llm"`
	Text       string         `json:"text"`
	Parameters map[string]any `json:"parameters"`
}

// NewRecord builds the record for t. The label is the turn's llm_display,
// else fallbackLabel; parameters fall back to fallbackParams when the turn
// carries none.
func NewRecord(t core.Turn, fallbackLabel string, fallbackParams map[string]any) Record {
	label := t.LLMDisplay
	if label == "" {
		label = fallbackLabel
	}
	params := t.Parameters
	if len(params) == 0 {
		params = fallbackParams
	}
	if params == nil {
		params = map[string]any{}
	}
	return Record{Agent: t.Speaker, LLM: label, Text: t.Text, Parameters: params}
}

// Line renders the record as "SPEAKER (label): text", omitting an empty label.
func (r Record) Line() string {
	if r.LLM == "" {
		return fmt.Sprintf("%s: %s", r.Agent, r.Text)
	}
	return fmt.Sprintf("%s (%s): %s", r.Agent, r.LLM, r.Text)
}

// WriteRecords encodes records as an indented JSON array.
func WriteRecords(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	return writeJSON(w, records)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
