package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCircuitBreaker_TripsOnConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	config := DefaultCircuitBreakerConfig("broker")
	config.FailureThreshold = 2
	config.Timeout = time.Hour
	config.OnStateChange = func(_ string, _, to gobreaker.State) { transitions = append(transitions, to) }

	cb := NewCircuitBreaker(config, quietLogger())
	boom := errors.New("broker down")

	for i := 0; i < 2; i++ {
		err := cb.Run(context.Background(), func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	assert.Equal(t, 2, StateValue(cb.State()))

	called := false
	err := cb.Run(context.Background(), func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("x"), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Run(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(0), cb.Counts().Requests)
}

func TestRetry(t *testing.T) {
	config := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}

	t.Run("succeeds after failures", func(t *testing.T) {
		attempts := 0
		got, err := RetryWithResult(context.Background(), config, func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up", func(t *testing.T) {
		boom := errors.New("still down")
		err := Retry(context.Background(), config, func() error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "max retries (3)")
	})

	t.Run("stops on non-retryable", func(t *testing.T) {
		permanent := errors.New("bad credentials")
		c := *config
		c.Retryable = func(err error) bool { return !errors.Is(err, permanent) }
		attempts := 0
		err := Retry(context.Background(), &c, func() error { attempts++; return permanent })
		assert.Equal(t, permanent, err)
		assert.Equal(t, 1, attempts)
	})
}
