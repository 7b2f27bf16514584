package sandbox

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// window is the per-plugin rate-limit state. Its mutex serializes
// logically-concurrent calls for the same plugin id; the cache TTL only
// garbage-collects idle entries, the resetAt field is the source of truth.
type window struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

type rateLimiter struct {
	max     int
	length  time.Duration
	windows *cache.Cache
}

func newRateLimiter(max int, length time.Duration) *rateLimiter {
	return &rateLimiter{
		max:     max,
		length:  length,
		windows: cache.New(length, 2*length),
	}
}

// allow records one call for the plugin and reports whether it fits the
// current window. A fresh window starts exactly at expiry of the previous
// one, with this call counted as 1.
func (rl *rateLimiter) allow(pluginId string, now time.Time) bool {
	for {
		v, found := rl.windows.Get(pluginId)
		if !found {
			w := &window{count: 1, resetAt: now.Add(rl.length)}
			// Add is atomic on the cache: exactly one concurrent creator
			// wins, the rest retry against the winner's window.
			if err := rl.windows.Add(pluginId, w, rl.length); err == nil {
				return true
			}
			continue
		}

		w := v.(*window)
		w.mu.Lock()

		if !now.Before(w.resetAt) {
			w.count = 1
			w.resetAt = now.Add(rl.length)
			rl.windows.Set(pluginId, w, rl.length)
			w.mu.Unlock()
			return true
		}

		w.count++
		ok := w.count <= rl.max
		w.mu.Unlock()
		return ok
	}
}

// remaining reports how many calls the plugin has left in its current
// window. Used for advisory headers and telemetry only.
func (rl *rateLimiter) remaining(pluginId string, now time.Time) int {
	v, found := rl.windows.Get(pluginId)
	if !found {
		return rl.max
	}
	w := v.(*window)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !now.Before(w.resetAt) {
		return rl.max
	}
	left := rl.max - w.count
	if left < 0 {
		return 0
	}
	return left
}
