package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)
	require.NoError(t, b.Take())
	require.NoError(t, b.Take())
	assert.ErrorIs(t, b.Take(), ErrCallBudgetExceeded)
	assert.Equal(t, 2, b.Count())
	assert.Equal(t, 0, b.Remaining())

	unlimited := NewCallBudget(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Take())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestLimitedClient_Budget(t *testing.T) {
	budget := NewCallBudget(1)
	c := NewLimitedClient(NewMockClient("m"), func(o *LimitOptions) { o.Budget = budget })
	ctx := context.Background()

	text, err := c.Complete(ctx, []Message{User("a")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[echo] a", text)

	_, err = c.Complete(ctx, []Message{User("b")}, nil)
	assert.ErrorIs(t, err, ErrCallBudgetExceeded)

	out, errCh := c.CompleteAsync(ctx, []Message{User("c")}, nil)
	assert.ErrorIs(t, <-errCh, ErrCallBudgetExceeded)
	_, open := <-out
	assert.False(t, open)

	assert.Equal(t, Info{Name: "m", Provider: "echo"}, c.Info())
}

func TestLimitedClient_Pacing(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	c := NewLimitedClient(NewMockClient("m"), func(o *LimitOptions) { o.Limiter = limiter })

	_, err := c.Complete(context.Background(), []Message{User("a")}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, []Message{User("b")}, nil)
	assert.Error(t, err, "second call must wait for the next token")
}

func TestLimitedClient_CompleteAsyncDoesNotBlockCaller(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	c := NewLimitedClient(NewMockClient("m"), func(o *LimitOptions) { o.Limiter = limiter })

	out, errCh := c.CompleteAsync(context.Background(), []Message{User("a")}, nil)
	assert.Equal(t, "[echo] a", <-out)
	assert.NoError(t, <-errCh)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	var (
		out2   <-chan string
		errCh2 <-chan error
	)
	go func() {
		out2, errCh2 = c.CompleteAsync(ctx, []Message{User("b")}, nil)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("CompleteAsync blocked while waiting for the rate limiter")
	}

	cancel()
	assert.Error(t, <-errCh2)
	_, open := <-out2
	assert.False(t, open)
}
