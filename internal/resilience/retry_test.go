package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fastRetry keeps backoff in the microseconds so tests stay quick.
func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     10 * time.Microsecond,
		Multiplier:     2,
	}
}

var errTransient = NewTransientError(errors.New("429 too many requests"), 429)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(4), func(_ context.Context) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls)
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(5), func(_ context.Context) error {
		calls++
		return errors.New("invalid api key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour}, func(_ context.Context) error {
		calls++
		cancel()
		return errTransient
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Do(ctx, RetryConfig{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, func(_ context.Context) error {
		return errTransient
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_CustomShouldRetryAndOnRetry(t *testing.T) {
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }
	var attempts []int
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	calls := 0
	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("retry me")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoVal(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (float64, error) {
		calls++
		if calls == 1 {
			return 0, errTransient
		}
		return 1149.99, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1149.99, v)

	v, err = DoVal(context.Background(), fastRetry(2), func(_ context.Context) (float64, error) {
		return 42, errors.New("bad")
	})
	require.Error(t, err)
	assert.Zero(t, v)
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(RetryConfig{JitterFraction: -1})
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Zero(t, cfg.JitterFraction)
	assert.NotNil(t, cfg.ShouldRetry)
}

func TestComputeBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, computeBackoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, computeBackoff(1, cfg))
	assert.Equal(t, 400*time.Millisecond, computeBackoff(2, cfg))
	assert.Equal(t, time.Second, computeBackoff(10, cfg))

	cfg.JitterFraction = 0.5
	for range 100 {
		d := computeBackoff(1, cfg)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryLogger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	RetryLogger("pricing", "seed lookup")(2, errTransient)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "retrying operation", entry.Message)
	assert.Equal(t, "pricing", entry.ContextMap()["service"])
	assert.Equal(t, int64(2), entry.ContextMap()["attempt"])
}
