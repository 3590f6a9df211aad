package delivery

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// permanentError marks a failure that retrying cannot fix, like a platform
// nobody has a client for or credentials that are structurally missing.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryPolicy.Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// RetryPolicy retries an operation with exponential backoff and jitter.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
}

// Delay returns the wait before the given retry. attempt is zero-based: the
// delay between the first failure and the second try is Delay(0).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	backoff := p.Base << attempt
	// up to 25% jitter keeps simultaneous failures from retrying in lockstep
	jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))
	return backoff + jitter
}

// Do runs fn until it succeeds, returns a permanent error, the context ends,
// or MaxAttempts is exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay(attempt - 1)):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
