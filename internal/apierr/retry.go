package apierr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DiscoveryPolicy retries a live model listing once. Listing is a
// convenience path: the caller falls back to its static table afterwards.
var DiscoveryPolicy = Policy{Attempts: 2, BaseDelay: 250 * time.Millisecond, MaxDelay: time.Second}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrTimeout)
}

// Policy bounds a retry loop. Attempts counts the first call; values below
// 1 mean a single call. Delays double from BaseDelay up to MaxDelay.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Backoff returns the pause before retry n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	d := max(p.BaseDelay, time.Millisecond)
	ceiling := max(p.MaxDelay, d)
	for i := 1; i < n && d < ceiling; i++ {
		d *= 2
	}
	return min(d, ceiling)
}

// Retry calls fn until it succeeds, returns a non-transient error, the
// attempts run out, or ctx ends.
func Retry[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)

	for n := 1; ; n++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		if n == attempts {
			return zero, fmt.Errorf("gave up after %d attempts: %w", attempts, err)
		}

		t := time.NewTimer(p.Backoff(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}
