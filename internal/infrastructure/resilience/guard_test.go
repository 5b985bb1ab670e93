package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuardPropagatesCalleeErrorUnchanged(t *testing.T) {
	guard := NewGuard(DefaultConfig())
	want := errors.New("backend exploded")

	err := guard.Execute(context.Background(), "op", func(context.Context) error {
		return want
	}, nil)
	if !errors.Is(err, want) {
		t.Fatalf("expected callee error unchanged, got %v", err)
	}
}

func TestGuardNeverRetries(t *testing.T) {
	guard := NewGuard(DefaultConfig())
	calls := 0

	_ = guard.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("fail")
	}, nil)
	if calls != 1 {
		t.Fatalf("expected exactly one invocation, got %d", calls)
	}
}

func TestGuardOpensAfterFailureRatio(t *testing.T) {
	cfg := Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      3,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
	guard := NewGuard(cfg)

	for i := 0; i < 3; i++ {
		_ = guard.Execute(context.Background(), "op", func(context.Context) error {
			return errors.New("fail")
		}, nil)
	}

	err := guard.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("callee must not run while breaker is open")
		return nil
	}, nil)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open-circuit error, got %v", err)
	}
}

func TestGuardIgnoresContextCancellation(t *testing.T) {
	cfg := Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
	guard := NewGuard(cfg)

	for i := 0; i < 5; i++ {
		_ = guard.Execute(context.Background(), "op", func(context.Context) error {
			return context.Canceled
		}, nil)
	}

	ran := false
	_ = guard.Execute(context.Background(), "op", func(context.Context) error {
		ran = true
		return nil
	}, nil)
	if !ran {
		t.Fatalf("cancellations must not trip the breaker")
	}
}

func TestGuardDisabledCallsThrough(t *testing.T) {
	guard := NewGuard(Config{BreakerEnabled: false})
	ran := false

	err := guard.Execute(context.Background(), "op", func(context.Context) error {
		ran = true
		return nil
	}, nil)
	if err != nil || !ran {
		t.Fatalf("expected direct call-through, ran=%v err=%v", ran, err)
	}
}
