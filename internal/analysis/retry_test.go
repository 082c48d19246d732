package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.waits))
	copy(out, t.waits)
	return out
}

func testRetrier(timer *fakeTimer) *Retrier {
	return NewRetrier().WithTimer(func() backoff.Timer { return timer })
}

func TestRetrier_RetriesRateLimitWithDoublingWaits(t *testing.T) {
	timer := newFakeTimer()
	r := testRetrier(timer)

	calls := 0
	out, err := r.Do(context.Background(), "test", func() (string, error) {
		calls++
		if calls <= 3 {
			return "", NewRateLimitError("test", 429, "slow down")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, timer.Waits())
}

func TestRetrier_GivesUpAfterFiveRetries(t *testing.T) {
	timer := newFakeTimer()
	r := testRetrier(timer)

	calls := 0
	_, err := r.Do(context.Background(), "test", func() (string, error) {
		calls++
		return "", errors.New("Rate limit reached for requests")
	})

	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 6, calls)
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second,
	}, timer.Waits())
}

func TestRetrier_OtherErrorsAreNotRetried(t *testing.T) {
	timer := newFakeTimer()
	r := testRetrier(timer)

	calls := 0
	boom := NewProviderError(ErrTypeAuthentication, "test", "bad key")
	_, err := r.Do(context.Background(), "test", func() (string, error) {
		calls++
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.Waits())
}

func TestRetrier_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrier()
	r.OnRetry = func(error, time.Duration) { cancel() }

	_, err := r.Do(ctx, "test", func() (string, error) {
		return "", NewRateLimitError("test", 429, "slow down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
