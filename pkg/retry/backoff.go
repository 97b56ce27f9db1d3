package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy decides how long to sleep before poll attempt n+1.
// Attempt numbers start at 1; attempt 0 never waits.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt up to MaxDelay.
// JitterFactor spreads each delay uniformly over ±JitterFactor of its value.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff is tuned for reading page state out of a live
// browser: the table usually redraws within a few hundred milliseconds.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := eb.BaseDelay
	for i := 1; i < attempt && (eb.MaxDelay <= 0 || delay < eb.MaxDelay); i++ {
		delay = time.Duration(float64(delay) * eb.Multiplier)
	}
	if eb.MaxDelay > 0 && delay > eb.MaxDelay {
		delay = eb.MaxDelay
	}

	if eb.JitterFactor <= 0 {
		return delay
	}
	spread := float64(delay) * eb.JitterFactor
	return max(0, delay+time.Duration(spread*(2*rand.Float64()-1)))
}

// ConstantBackoff waits the same Delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay unless ctx ends first, in which case ctx.Err() is returned
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
