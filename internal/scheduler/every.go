package scheduler

import (
	"sync"
	"time"
)

// StopFunc cancels a running ticker. Calling it more than once is a no-op.
type StopFunc func()

// Every fires fn on the given interval from its own goroutine. The
// scheduler module uses it to drive the gateway's periodic events; the
// returned StopFunc tears the ticker down on shutdown.
func Every(interval time.Duration, fn func()) StopFunc {
	if interval <= 0 || fn == nil {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}
