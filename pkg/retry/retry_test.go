package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	bderrors "bookmarkdl/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 20; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	var retried []int

	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("browser did not start")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry:     func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) },
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")

	err := Do(context.Background(), func() error {
		attempts++
		return boom
	}, &Config{MaxAttempts: 2, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "max retry attempts (2) exceeded")
	assert.Equal(t, 2, attempts)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	cfgErr := bderrors.New(bderrors.ErrorTypeConfig, "browser binary not found", nil)

	err := Do(context.Background(), func() error {
		attempts++
		return cfgErr
	}, &Config{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	assert.Equal(t, cfgErr, err)
	assert.Equal(t, 1, attempts)
}

func TestDoCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error { return errors.New("transient") }, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	v, err := DoWithResult(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("once")
		}
		return "ws://127.0.0.1:9222", nil
	}, &Config{MaxAttempts: 2, Backoff: &ConstantBackoff{}})

	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222", v)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(bderrors.New(bderrors.ErrorTypeConfig, "bad", nil)))
	assert.True(t, DefaultRetryIf(errors.New("flaky")))
	assert.True(t, DefaultRetryIf(bderrors.New(bderrors.ErrorTypeSession, "launch", nil)))
}
