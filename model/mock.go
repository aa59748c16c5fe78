package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is a deterministic in-memory Client for tests, examples and
// offline runs. Without a canned response it echoes the last user message.
type MockClient struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     [][]Message
}

// NewMockClient constructs a MockClient reporting name as its model.
func NewMockClient(name string) *MockClient {
	return &MockClient{
		info:      Info{Name: name, Provider: "echo"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for a user prompt.
func (m *MockClient) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[strings.TrimSpace(prompt)] = response
}

// FailWith makes every following call return err. A nil err clears it.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the message lists received so far.
func (m *MockClient) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, messages []Message, _ CallOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]Message(nil), messages...))
	if m.err != nil {
		return "", m.err
	}

	prompt := strings.TrimSpace(LastUser(messages))
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("[echo] %s", prompt), nil
}

// CompleteAsync implements AsyncClient.
func (m *MockClient) CompleteAsync(ctx context.Context, messages []Message, opts CallOptions) (<-chan string, <-chan error) {
	return Go(ctx, m, messages, opts)
}

// Info implements Describer.
func (m *MockClient) Info() Info { return m.info }
