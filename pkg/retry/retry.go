package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"followgraph/pkg/config"
	errs "followgraph/pkg/errors"
	"followgraph/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// BackoffFor picks a strategy per error; it takes precedence over Backoff
	BackoffFor func(err error) BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// WaitIf reports errors that pause the operation without consuming an
	// attempt, together with how long to pause
	WaitIf func(error) (time.Duration, bool)
	// MaxWaits caps the number of WaitIf pauses (0 means unlimited)
	MaxWaits int
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// OnWait is called before each WaitIf pause
	OnWait func(err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	// Check for context errors (don't retry)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Check if it's an API error
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	// Default to retrying unknown errors
	return true
}

// RateLimitWait returns a WaitIf predicate that pauses on rate limit errors
// until the reset time they carry, or for fallback when none is known.
func RateLimitWait(fallback time.Duration) func(error) (time.Duration, bool) {
	return func(err error) (time.Duration, bool) {
		if !errs.IsRateLimit(err) {
			return 0, false
		}
		if reset, ok := errs.ResetTime(err); ok {
			if d := time.Until(reset); d > 0 {
				return d, true
			}
			return 0, true
		}
		return fallback, true
	}
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	attempt := 0
	waits := 0

	for {
		attempt++

		// Check if we've exceeded max attempts
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt - 1,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		lastErr = err

		// Quota pauses repeat the same attempt
		if cfg.WaitIf != nil {
			if delay, ok := cfg.WaitIf(err); ok && (cfg.MaxWaits <= 0 || waits < cfg.MaxWaits) {
				waits++
				attempt--
				if cfg.OnWait != nil {
					cfg.OnWait(err, delay)
				}
				if cfg.Logger != nil {
					cfg.Logger.WarnWithFields("pausing before retry", map[string]interface{}{
						"error":    err.Error(),
						"delay_ms": delay.Milliseconds(),
						"pauses":   waits,
					})
				}
				if err := Wait(ctx, delay); err != nil {
					return fmt.Errorf("retry cancelled: %w", err)
				}
				continue
			}
		}

		// Check if we should retry this error
		if !retryIf(err) {
			if cfg.Logger != nil {
				cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return err
		}

		// No point sleeping before an attempt we will not make
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			continue
		}

		backoff := cfg.Backoff
		if cfg.BackoffFor != nil {
			backoff = cfg.BackoffFor(err)
		}
		if backoff == nil {
			backoff = DefaultExponentialBackoff()
		}
		delay := backoff.NextDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
					"attempt": attempt,
					"reason":  err.Error(),
				})
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// Retrier provides a reusable retry mechanism
type Retrier struct {
	config *Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retrier{config: cfg}
}

// Do executes an operation with retry logic
func (r *Retrier) Do(op Operation) error {
	return Do(op, r.config)
}

// Config returns a copy of the retrier configuration
func (r *Retrier) Config() Config {
	return *r.config
}

// WithContext returns a new retrier with updated context
func (r *Retrier) WithContext(ctx context.Context) *Retrier {
	newConfig := *r.config
	newConfig.Context = ctx
	return &Retrier{config: &newConfig}
}

// WithOnWait returns a new retrier with updated pause callback
func (r *Retrier) WithOnWait(fn func(err error, delay time.Duration)) *Retrier {
	newConfig := *r.config
	newConfig.OnWait = fn
	return &Retrier{config: &newConfig}
}

// FromConfig builds the retry policy for one endpoint. Transient errors are
// retried MaxRetries times; server errors start from twice the retry delay
// since an overloaded API rarely recovers within seconds. Rate limit errors
// pause until the reported reset, or for one window, without consuming a
// retry.
func FromConfig(cfg config.RateLimitConfig, window time.Duration, log logger.Logger) *Retrier {
	transient := NewExponentialBackoff(cfg.RetryDelay, cfg.MaxRetryDelay, cfg.BackoffMultiplier)
	backoff := &ByErrorType{
		Strategies: map[errs.ErrorType]BackoffStrategy{
			errs.ErrorTypeServerError: NewExponentialBackoff(2*cfg.RetryDelay, cfg.MaxRetryDelay, cfg.BackoffMultiplier),
		},
		Default: transient,
	}

	return NewRetrier(&Config{
		MaxAttempts: cfg.MaxRetries + 1,
		Backoff:     transient,
		BackoffFor:  backoff.For,
		RetryIf:     DefaultRetryIf,
		WaitIf:      RateLimitWait(window),
		Context:     context.Background(),
		Logger:      log,
	})
}
