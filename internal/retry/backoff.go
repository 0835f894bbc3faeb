// Package retry repeats an operation with exponential backoff.  wbtcp
// uses it to wait for a simulation that has not bound its socket yet.
package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Refused reports whether err is a refused connection, the usual sign
// of a server that is still starting.
func Refused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// ── Backoff ──────────────────────────────────────────────────────────

const (
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
)

// Backoff doubles the delay after each failed attempt up to MaxDelay.
type Backoff struct {
	InitialDelay time.Duration // default 100ms
	MaxDelay     time.Duration // default 2s
	MaxAttempts  int           // total tries; 0 retries until ctx ends

	// Retryable, when set, limits retries to the errors it accepts.
	// Everything else is returned at once.
	Retryable func(error) bool
}

// ForAttempts returns a Backoff that retries refused connections,
// trying at most n times in total.
func ForAttempts(n int) *Backoff {
	return &Backoff{
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		MaxAttempts:  n,
		Retryable:    Refused,
	}
}

// Do calls fn until it succeeds, fails permanently, runs out of
// attempts, or ctx is done.  The attempt passed to fn is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.InitialDelay
	if delay <= 0 {
		delay = defaultInitialDelay
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if b.Retryable != nil && !b.Retryable(err) {
			return err
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), err))
		case <-t.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
