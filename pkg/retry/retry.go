package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- share of the delay added as noise
}

// DefaultConfig returns the backoff used against the Kaiten API:
// 6 retries starting at 1.2s, doubling each time, capped at 16s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   6,
		InitialDelay: 1200 * time.Millisecond,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// RetryableError is an interface for errors that explicitly declare their retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

// DelayHinter is implemented by errors that carry a server-provided wait,
// such as an HTTP Retry-After header. A hint replaces the computed backoff.
type DelayHinter interface {
	RetryAfter() (time.Duration, bool)
}

// Backoff returns the un-jittered delay before retry number attempt (1-based).
func (c *Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
		if c.MaxDelay > 0 && delay >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && time.Duration(delay) > c.MaxDelay {
		return c.MaxDelay
	}
	return time.Duration(delay)
}

// applyJitter adds random jitter to a delay to prevent thundering herd.
// Jitter is calculated as: delay +/- (delay * jitterFactor * random(-1 to +1))
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || delay <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// IsRetryable determines if an error is transient and worth retrying.
// Errors implementing RetryableError decide for themselves; network timeouts
// are retryable; everything else is treated as permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// delayFor picks the wait before retry number attempt, honoring a server hint.
func delayFor(cfg *Config, attempt int, err error) time.Duration {
	var hinter DelayHinter
	if errors.As(err, &hinter) {
		if d, ok := hinter.RetryAfter(); ok {
			return d
		}
	}
	return applyJitter(cfg.Backoff(attempt), cfg.JitterFactor)
}

// DoIfRetryable executes fn until it succeeds, fails permanently, or MaxRetries
// retries have been spent. The result of the last attempt is always returned
// together with its error. Waits respect context cancellation.
func DoIfRetryable[T any](ctx context.Context, cfg *Config, fn func(attempt int) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		result T
		err    error
	)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = fn(attempt)
		if err == nil {
			return result, nil
		}

		// Don't retry non-transient errors
		if !IsRetryable(err) || attempt == cfg.MaxRetries {
			return result, err
		}

		timer := time.NewTimer(delayFor(cfg, attempt+1, err))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		}
	}

	return result, err
}
