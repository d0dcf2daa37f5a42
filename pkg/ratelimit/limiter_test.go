package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if rl.Allow() {
		t.Error("request beyond burst should be rejected")
	}
}

func TestTokensRefill(t *testing.T) {
	rl := NewRateLimiter(100, 5)

	for i := 0; i < 5; i++ {
		rl.Allow()
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !rl.Allow() {
		t.Error("bucket should refill after waiting")
	}
}

func TestWaitImmediate(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("wait with available token took %v", elapsed)
	}
}

func TestWaitBlocksOnEmptyBucket(t *testing.T) {
	rl := NewRateLimiter(100, 1)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
	// 100 tokens/sec: the second token arrives ~10ms after the first
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("expected wait of ~10ms, got %v", elapsed)
	}
}

func TestWaitCanceled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestSetRate(t *testing.T) {
	rl := NewRateLimiter(10, 20)

	rl.SetRate(50)
	if rl.Rate() != 50 {
		t.Errorf("expected rate 50, got %v", rl.Rate())
	}

	// Raising rate above burst lifts the burst with it
	rl.SetRate(100)
	if rl.Burst() < 100 {
		t.Errorf("expected burst >= 100, got %v", rl.Burst())
	}

	rl.SetRate(0)
	if rl.Rate() != 100 {
		t.Errorf("non-positive rate should be ignored, got %v", rl.Rate())
	}
}

func TestDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.Rate() <= 0 || rl.Burst() < rl.Rate() {
		t.Errorf("expected sane defaults, got rate %v burst %v", rl.Rate(), rl.Burst())
	}
}
