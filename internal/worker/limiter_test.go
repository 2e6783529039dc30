package worker

import (
	"context"
	"testing"
	"time"
)

// tryWait reports whether key gets a token within a short deadline
func tryWait(l *Limiter, key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, key) == nil
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("Expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("Expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "ollama"); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	if err := limiter.Wait(context.Background(), "openai"); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "openai"); err == nil {
		t.Error("Expected wait to fail on a cancelled context")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(0.01, 1)

	if !tryWait(limiter, "openai") {
		t.Fatal("Expected first call to pass")
	}

	// Burst 1 is consumed and the refill takes far longer than the deadline
	if tryWait(limiter, "openai") {
		t.Error("Expected second call to be throttled")
	}

	// Keys are throttled independently
	if !tryWait(limiter, "ollama") {
		t.Error("Expected other key to pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !tryWait(limiter, "openai") {
			t.Fatalf("Expected unlimited limiter to allow call %d", i)
		}
	}
}
