package apierr_test

// Notes:
// - Retry only repeats transient failures (see IsTransient)
// - Policies use millisecond delays so the suite stays fast
// - Backoff is tested as a pure function; Retry only for observable call counts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alnah/go-somas/internal/apierr"
)

var fastPolicy = apierr.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

// ---------------------------------------------------------------------------
// TestPolicyBackoff
// ---------------------------------------------------------------------------

func TestPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := apierr.Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}
	tests := []struct {
		n    int
		want time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 350 * time.Millisecond},
		{10, 350 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.n); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestPolicyBackoff_ZeroValues(t *testing.T) {
	t.Parallel()

	var p apierr.Policy
	if got := p.Backoff(1); got != time.Millisecond {
		t.Errorf("zero policy Backoff(1) = %v, want 1ms", got)
	}
	if got := p.Backoff(5); got != time.Millisecond {
		t.Errorf("zero policy Backoff(5) = %v, want 1ms cap", got)
	}
}

func TestDiscoveryPolicy(t *testing.T) {
	t.Parallel()

	if apierr.DiscoveryPolicy.Attempts != 2 {
		t.Errorf("DiscoveryPolicy.Attempts = %d, want a single retry", apierr.DiscoveryPolicy.Attempts)
	}
}

// ---------------------------------------------------------------------------
// TestRetry
// ---------------------------------------------------------------------------

func TestRetry_FirstCallSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := apierr.Retry(context.Background(), fastPolicy, func() ([]string, error) {
		calls++
		return []string{"sonar"}, nil
	})

	if err != nil {
		t.Fatalf("Retry() unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "sonar" {
		t.Errorf("Retry() = %v, want [sonar]", got)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := apierr.Retry(context.Background(), fastPolicy, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("HTTP 503: %w", apierr.ErrServer)
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("Retry() unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("Retry() = %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := apierr.Retry(context.Background(), fastPolicy, func() (int, error) {
		calls++
		return 0, apierr.ErrAuthFailed
	})

	if !errors.Is(err, apierr.ErrAuthFailed) {
		t.Errorf("Retry() error = %v, want ErrAuthFailed", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for a permanent error", calls)
	}
}

func TestRetry_AttemptsExhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := apierr.Retry(context.Background(), fastPolicy, func() (int, error) {
		calls++
		return 0, apierr.ErrRateLimit
	})

	if !errors.Is(err, apierr.ErrRateLimit) {
		t.Errorf("Retry() error = %v, want wrapped ErrRateLimit", err)
	}
	if calls != fastPolicy.Attempts {
		t.Errorf("calls = %d, want %d", calls, fastPolicy.Attempts)
	}
}

func TestRetry_NonPositiveAttemptsCallsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := apierr.Retry(context.Background(), apierr.Policy{Attempts: -1}, func() (int, error) {
		calls++
		return 0, apierr.ErrTimeout
	})

	if err == nil || calls != 1 {
		t.Errorf("calls = %d, err = %v; want one failing call", calls, err)
	}
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	slow := apierr.Policy{Attempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := apierr.Retry(ctx, slow, func() (int, error) {
			calls++
			return 0, apierr.ErrTransport
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Retry() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Retry did not stop on cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
