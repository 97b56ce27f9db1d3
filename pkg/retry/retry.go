package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
)

var (
	// ErrNotReady is returned by an operation whose condition does not hold yet
	ErrNotReady = errors.New("condition not met yet")
	// ErrTimeout is returned when Config.Timeout elapses before the operation succeeds
	ErrTimeout = errors.New("timed out waiting for condition")
)

// Operation is a function that might need to be attempted more than once
type Operation func(ctx context.Context) error

// OperationWithResult is an Operation that also returns a result
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Timeout bounds the whole sequence of attempts (0 means no bound besides Context)
	Timeout time.Duration
	// Backoff strategy to use between attempts
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a configuration that polls with exponential backoff for 30 seconds
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Backoff: DefaultExponentialBackoff(),
		RetryIf: DefaultRetryIf,
		Context: context.Background(),
		Logger:  logger.GetLogger(),
	}
}

// DefaultRetryIf retries everything except cancellation and fatal crawl errors
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if t := errs.TypeOf(err); t != "" && errs.IsFatal(t) {
		return false
	}

	return true
}

// Do executes op until it succeeds, returns a non-retryable error, runs out of
// attempts, or the timeout elapses. A timeout is reported as ErrTimeout wrapping
// the last operation error.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, cfg.Timeout)
		defer cancel()
	}

	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		// An operation interrupted by our own deadline is a timeout, not a hard failure.
		if ctx.Err() != nil {
			return stopped(parent, cfg, lastErr)
		}

		if !retryIf(err) {
			return err
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		delay := backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.DebugWithFields("retrying operation", map[string]interface{}{
				"attempt":  attempt,
				"error":    err.Error(),
				"delay_ms": delay.Milliseconds(),
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return stopped(parent, cfg, lastErr)
		}
	}
}

// stopped builds the error returned once the retry context is done
func stopped(parent context.Context, cfg *Config, lastErr error) error {
	if parent.Err() != nil {
		return fmt.Errorf("retry cancelled: %w", parent.Err())
	}
	if cfg.Logger != nil {
		cfg.Logger.WarnWithFields("retry timed out", map[string]interface{}{
			"timeout":    cfg.Timeout,
			"last_error": lastErr.Error(),
		})
	}
	return fmt.Errorf("%w after %v: %w", ErrTimeout, cfg.Timeout, lastErr)
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)

	return result, err
}
