package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestTryAcquire_ExhaustsBudget(t *testing.T) {
	limiter := NewLimiter(3, time.Hour, nil)

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("acquire %d should succeed within budget", i+1)
		}
	}
	if limiter.TryAcquire() {
		t.Errorf("acquire beyond budget should fail")
	}
	if remaining := limiter.Remaining(); remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestReset_RestoresBudget(t *testing.T) {
	limiter := NewLimiter(2, time.Hour, nil)

	limiter.TryAcquire()
	limiter.TryAcquire()
	if limiter.TryAcquire() {
		t.Fatalf("budget should be exhausted before reset")
	}

	limiter.reset()

	if !limiter.TryAcquire() {
		t.Errorf("acquire should succeed after window reset")
	}
	if remaining := limiter.Remaining(); remaining != 1 {
		t.Errorf("expected 1 remaining after reset and one acquire, got %d", remaining)
	}
}

func TestTryAcquire_ConcurrentNeverOversells(t *testing.T) {
	const limit = 10
	limiter := NewLimiter(limit, time.Hour, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Errorf("expected exactly %d grants, got %d", limit, granted)
	}
}
