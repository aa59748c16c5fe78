package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncOnly struct {
	text string
	err  error
}

func (s syncOnly) Complete(context.Context, []Message, CallOptions) (string, error) {
	return s.text, s.err
}

func TestCallOptions(t *testing.T) {
	opts := CallOptions{"temperature": 0.5, "max_tokens": 100, "frac": 1.5, "user": "u", "bad": "x"}

	f, ok := opts.Float("temperature")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, f, 1e-9)

	n, ok := opts.Int("max_tokens")
	assert.True(t, ok)
	assert.Equal(t, int64(100), n)

	_, ok = opts.Int("frac")
	assert.False(t, ok)
	_, ok = opts.Float("bad")
	assert.False(t, ok)

	s, ok := opts.Text("user")
	assert.True(t, ok)
	assert.Equal(t, "u", s)

	merged := opts.Merge(map[string]any{"temperature": 0.9, "top_p": 0.1})
	assert.Equal(t, 0.9, merged["temperature"])
	assert.Equal(t, 0.1, merged["top_p"])
	assert.Equal(t, 0.5, opts["temperature"], "merge must not modify the receiver")
}

func TestAsAsync(t *testing.T) {
	_, ok := AsAsync(syncOnly{})
	assert.False(t, ok)

	_, ok = AsAsync(NewMockClient("m"))
	assert.True(t, ok)
}

func TestGo(t *testing.T) {
	out, errCh := Go(context.Background(), syncOnly{text: "hi"}, nil, nil)
	assert.Equal(t, "hi", <-out)
	assert.NoError(t, <-errCh)

	boom := errors.New("boom")
	out, errCh = CompleteAsync(context.Background(), syncOnly{err: boom}, nil, nil)
	assert.ErrorIs(t, <-errCh, boom)
	_, open := <-out
	assert.False(t, open)
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{System("a"), System(""), System("b"), User("u")})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{User("u")}, rest)
}

func TestLastUser(t *testing.T) {
	assert.Equal(t, "", LastUser(nil))
	assert.Equal(t, "second", LastUser([]Message{User("first"), System("s"), User("second"), {Role: RoleAssistant, Content: "a"}}))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, Info{Name: "m", Provider: "echo"}, Describe(NewMockClient("m")))
	assert.Equal(t, "unknown", Describe(syncOnly{}).Provider)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient("echo-1")
	ctx := context.Background()

	text, err := m.Complete(ctx, []Message{System("sys"), User("  hello  ")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[echo] hello", text)

	m.AddResponse("hello", "canned")
	text, err = m.Complete(ctx, []Message{User("hello")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "canned", text)

	out, errCh := m.CompleteAsync(ctx, []Message{User("hello")}, nil)
	assert.Equal(t, "canned", <-out)
	assert.NoError(t, <-errCh)

	boom := errors.New("boom")
	m.FailWith(boom)
	_, err = m.Complete(ctx, []Message{User("hello")}, nil)
	assert.ErrorIs(t, err, boom)

	assert.Len(t, m.Calls(), 4)
}

func TestMockClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockClient("m").Complete(ctx, []Message{User("x")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackClient(t *testing.T) {
	ctx := context.Background()
	first := errors.New("first down")
	second := errors.New("second down")

	f := NewFallbackClient(syncOnly{err: first}, syncOnly{text: "ok"})
	text, err := f.Complete(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	f = NewFallbackClient(syncOnly{err: first}, syncOnly{err: second})
	_, err = f.Complete(ctx, nil, nil)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)

	_, err = NewFallbackClient().Complete(ctx, nil, nil)
	assert.Error(t, err)
}
