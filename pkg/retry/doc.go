// Package retry provides bounded, backoff-driven repetition of an operation.
//
// The crawler uses it to poll the results page until it settles: each attempt
// reads the page, returns ErrNotReady while the condition does not hold, and
// the loop stops at success, a non-retryable error, MaxAttempts, or Timeout.
//
//	cfg := &retry.Config{
//		Timeout: 30 * time.Second,
//		Backoff: retry.DefaultExponentialBackoff(),
//		Context: ctx,
//	}
//	page, err := retry.DoWithResult(func(ctx context.Context) (int, error) {
//		n, err := readActivePage(ctx)
//		if err == nil && n == previous {
//			return 0, retry.ErrNotReady
//		}
//		return n, err
//	}, cfg)
//	if errors.Is(err, retry.ErrTimeout) {
//		// page never settled
//	}
//
// Cancellation of cfg.Context is reported as a wrapped context error, never as
// ErrTimeout.
package retry
