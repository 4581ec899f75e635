package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, 1, func() error {
		return errors.New("always fails")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry with cancelled context returned %v, want context.Canceled", err)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait should succeed immediately: %v", err)
	}
}

func TestRateLimiterSpacing(t *testing.T) {
	// 6000/min = one slot every 10ms. Three calls past the free first slot
	// must take at least two full intervals.
	rl := NewRateLimiter(6000)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("three Waits took %v, want at least ~20ms of pacing", elapsed)
	}
}

func TestRateLimiterCancelledWhileWaiting(t *testing.T) {
	rl := NewRateLimiter(1) // one request per minute
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled context = %v, want context.Canceled", err)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if NewLogger(level, "json") == nil {
			t.Fatalf("NewLogger(%q) returned nil", level)
		}
	}
	if NewLogger("info", "text") == nil {
		t.Fatal("NewLogger text format returned nil")
	}
}
