package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func passing() error { return nil }

func TestBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	b := NewBreaker(BreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenProbes: 1})

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Execute(failing, nil); !errors.Is(err, errBoom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if state := b.State(); state != StateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	_ = b.Execute(failing, nil)
	if state := b.State(); state != StateOpen {
		t.Fatalf("expected open after threshold, got %s", state)
	}

	called := false
	err := b.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run while open")
	}

	now = now.Add(6 * time.Second)
	if state := b.State(); state != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", state)
	}
	if err := b.Execute(passing, nil); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if state := b.State(); state != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", state)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Second})

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	_ = b.Execute(failing, nil)
	now = now.Add(2 * time.Second)
	_ = b.Execute(failing, nil)

	if state := b.State(); state != StateOpen {
		t.Fatalf("expected open after failed probe, got %s", state)
	}
}

func TestBreaker_IgnoresNonCountedErrors(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Enabled: true, FailureThreshold: 1})
	notCounted := func(error) bool { return false }

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing, notCounted); !errors.Is(err, errBoom) {
			t.Fatalf("expected fn error, got %v", err)
		}
	}
	if state := b.State(); state != StateClosed {
		t.Fatalf("expected closed, got %s", state)
	}
}

func TestBreaker_DisabledIsNil(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{})
	if b != nil {
		t.Fatalf("expected nil breaker when disabled")
	}
	if err := b.Execute(passing, nil); err != nil {
		t.Fatalf("nil breaker should run fn: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("nil breaker reports closed")
	}
}
