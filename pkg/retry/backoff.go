package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "followgraph/pkg/errors"
)

// BackoffStrategy computes the pause before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay before retry number attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt up to MaxDelay.
// JitterFactor (0 to 1) spreads each delay by up to that fraction either way.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff starts at one second and caps at a minute
func DefaultExponentialBackoff() *ExponentialBackoff {
	return NewExponentialBackoff(time.Second, time.Minute, 2.0)
}

// NewExponentialBackoff builds an exponential backoff from configured values.
// A multiplier below 1 falls back to 2.
func NewExponentialBackoff(base, max time.Duration, multiplier float64) *ExponentialBackoff {
	if multiplier < 1 {
		multiplier = 2.0
	}
	return &ExponentialBackoff{
		BaseDelay:    base,
		MaxDelay:     max,
		Multiplier:   multiplier,
		JitterFactor: 0.1,
	}
}

// NextDelay implements BackoffStrategy
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	return jitter(delay, eb.JitterFactor)
}

func jitter(delay, factor float64) time.Duration {
	if factor > 0 {
		spread := delay * factor
		delay += rand.Float64()*2*spread - spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff waits the same Delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay implements BackoffStrategy
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// ByErrorType picks a strategy by the API error type of the failure, and
// Default for everything else.
type ByErrorType struct {
	Strategies map[errs.ErrorType]BackoffStrategy
	Default    BackoffStrategy
}

// For returns the strategy for err; it fits Config.BackoffFor
func (b *ByErrorType) For(err error) BackoffStrategy {
	if s, ok := b.Strategies[errs.TypeOf(err)]; ok {
		return s
	}
	return b.Default
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
