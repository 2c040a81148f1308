package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/logger"
)

// Operation is a function that might need retrying
type Operation func() error

// OperationWithResult returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf decides whether err is worth another attempt
	RetryIf func(error) bool
	// OnRetry is called before each retry
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries everything except cancellation and config errors
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return bderrors.TypeOf(err) != bderrors.ErrorTypeConfig
}

// Do executes op until it succeeds, the error is not retryable, attempts
// run out or ctx is done
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultExponentialBackoff()
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("Operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt == cfg.MaxAttempts {
			continue
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WithError(err).WarnWithFields("Retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"delay":        delay,
			"max_attempts": cfg.MaxAttempts,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult is Do for operations that return a value
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
