package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy defaults used for request/response command exchanges.
const (
	// DefaultMaxAttempts is the total number of tries per command,
	// including the first.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the delay after the first failed attempt.
	// It doubles after every further failure.
	DefaultBaseDelay = 1 * time.Second
)

// Policy retries an operation with exponentially growing delays.
//
// Unlike Backoff, a Policy is stateless and bounded: it is meant for
// short command exchanges, not long-lived recovery loops.
type Policy struct {
	// MaxAttempts caps the total number of tries, including the first.
	// Zero or negative means DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay is the wait after the first failure. Each further
	// failure doubles it. Zero or negative means DefaultBaseDelay.
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// DefaultPolicy returns the policy used for hub commands.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done. The error from the last
// attempt is returned.
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %w)", err, lastErr)
			}
			return err
		}

		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %w)", ctx.Err(), lastErr)
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

// DoValue runs op under the policy and returns its result.
func DoValue[T any](ctx context.Context, p Policy, op func(attempt int) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(attempt int) error {
		v, err := op(attempt)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
