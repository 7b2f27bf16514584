package sandbox

import (
	"sync"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !rl.allow("p1", now) {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if rl.allow("p1", now) {
		t.Fatalf("call 4 should be rejected within the window")
	}

	// First call at exactly window expiry starts a fresh window with count 1.
	later := now.Add(time.Minute)
	if !rl.allow("p1", later) {
		t.Fatalf("first call of new window should be allowed")
	}
	if got := rl.remaining("p1", later); got != 2 {
		t.Fatalf("new window should have count 1, remaining 2, got %d", got)
	}
}

func TestRateLimiterPerPluginIsolation(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	now := time.Now()

	if !rl.allow("p1", now) {
		t.Fatalf("p1 first call should pass")
	}
	if rl.allow("p1", now) {
		t.Fatalf("p1 second call should be rejected")
	}
	if !rl.allow("p2", now) {
		t.Fatalf("p2 must not share p1's window")
	}
}

func TestRateLimiterConcurrentSamePlugin(t *testing.T) {
	rl := newRateLimiter(50, time.Minute)
	now := time.Now()

	// Pre-create the window so every goroutine hits the increment path.
	rl.allow("p1", now)

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			done <- rl.allow("p1", now)
		}()
	}

	allowed := 1 // the priming call
	for i := 0; i < 100; i++ {
		if <-done {
			allowed++
		}
	}
	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed calls, got %d", allowed)
	}
}

func TestRateLimiterConcurrentWindowCreation(t *testing.T) {
	// No priming call: every goroutine races on creating the window. Only
	// one may win the creation; the rest must count against its window.
	rl := newRateLimiter(5, time.Minute)
	now := time.Now()

	const callers = 16
	var start sync.WaitGroup
	start.Add(1)
	done := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		go func() {
			start.Wait()
			done <- rl.allow("p1", now)
		}()
	}
	start.Done()

	allowed := 0
	for i := 0; i < callers; i++ {
		if <-done {
			allowed++
		}
	}
	if allowed != 5 {
		t.Fatalf("expected exactly 5 allowed calls across concurrent window creation, got %d", allowed)
	}
	if got := rl.remaining("p1", now); got != 0 {
		t.Fatalf("window should be exhausted, remaining %d", got)
	}
}
