package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Policy controls how many times an operation runs and how long to wait
// between attempts.
type Policy struct {
	MaxAttempts int           // Total attempts including the first; values < 1 mean 1
	Backoff     time.Duration // Delay after a failed attempt
	Multiplier  float64       // Backoff growth factor; <= 1 keeps the delay fixed
	MaxBackoff  time.Duration // Cap on the grown delay; 0 = uncapped
	Jitter      bool          // Randomize each delay to delay * [0.5, 1.5)
}

// Fixed returns a fixed-backoff policy, the reference behavior for fetch
// retries.
func Fixed(maxAttempts int, backoff time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Backoff: backoff}
}

// Classifier reports whether an error is worth another attempt.
type Classifier func(error) bool

// ExhaustedError is returned when every attempt failed with a retryable
// error. It carries the attempt count and the last error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs op until it succeeds, a non-retryable error occurs, the budget is
// exhausted, or ctx is done. It returns the number of attempts made.
//
// Non-retryable errors come back unchanged; exhaustion comes back as an
// *ExhaustedError wrapping the last failure.
func Do(ctx context.Context, logger *slog.Logger, pol Policy, retryable Classifier, op func(context.Context) error) (int, error) {
	_, attempts, err := DoValue(ctx, logger, pol, retryable, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return attempts, err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, logger *slog.Logger, pol Policy, retryable Classifier, op func(context.Context) (T, error)) (T, int, error) {
	var zero T

	if logger == nil {
		logger = slog.Default()
	}
	if retryable == nil {
		retryable = Transient
	}
	if pol.MaxAttempts < 1 {
		pol.MaxAttempts = 1
	}

	var lastErr error
	delay := pol.Backoff

	for attempt := 1; attempt <= pol.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := delay
			if pol.Jitter {
				wait = jitter(wait)
			}
			logger.Debug("retrying",
				"attempt", attempt,
				"backoff", wait,
			)

			select {
			case <-ctx.Done():
				return zero, attempt - 1, ctx.Err()
			case <-time.After(wait):
			}

			delay = pol.next(delay)
		}

		v, err := op(ctx)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err

		logger.Warn("attempt failed",
			"attempt", attempt,
			"max_attempts", pol.MaxAttempts,
			"error", err,
		)

		if !retryable(err) {
			return zero, attempt, err
		}
	}

	return zero, pol.MaxAttempts, &ExhaustedError{Attempts: pol.MaxAttempts, Last: lastErr}
}

// next grows the delay per the policy.
func (p Policy) next(d time.Duration) time.Duration {
	if p.Multiplier <= 1 {
		return d
	}
	grown := time.Duration(float64(d) * p.Multiplier)
	if p.MaxBackoff > 0 && grown > p.MaxBackoff {
		return p.MaxBackoff
	}
	return grown
}

// jitter spreads a delay over [d/2, 3d/2) so synchronized retries don't
// stampede the provider.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int64N(int64(d)))
}
