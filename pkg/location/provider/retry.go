package provider

import (
	"context"
	stderrors "errors"
	"time"
)

// transientError marks a lookup failure worth another attempt: a network
// error or a 5xx answer.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// retry runs fn up to attempts times, doubling delay after each transient
// failure. Other errors end the loop at once. The last error is returned
// when every attempt fails, or ctx.Err() if ctx ends while waiting.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !stderrors.As(err, new(*transientError)) {
			return err
		}

		if i < attempts-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
				delay *= 2
			}
		}
	}
	return lastErr
}
