// Package sandbox wraps plugin operation execution in runtime guardrails:
// a sliding per-plugin rate limit, a cancellable timeout, payload content
// inspection and advisory resource observation. It cannot preempt CPU-bound
// work inside a misbehaving operation; timeouts fire at the next
// cooperative cancellation point.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/event"
	"github.com/patrickmn/go-cache"
	"github.com/plugward/plugward/internal/eventType"
)

var (
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrExecutionTimeout = errors.New("execution timed out")
)

// Operation is a plugin-initiated unit of work. It must respect ctx
// cancellation as terminal and non-retryable.
type Operation func(ctx context.Context) (any, error)

// ActiveOperation is the bookkeeping entry kept while an operation runs.
type ActiveOperation struct {
	PluginId  string
	StartedAt time.Time
	cancel    context.CancelFunc
}

type Config struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
	DefaultTimeout  time.Duration
	MaxPayloadBytes int64
	MaxMemoryBytes  uint64
	SlowThreshold   time.Duration
}

// Executor is one sandbox instance. State is process-wide for the lifetime
// of the security subsystem and never persisted; a restart clears it.
type Executor struct {
	cfg     Config
	limiter *rateLimiter
	active  *cache.Cache // operation id -> *ActiveOperation
}

func New(cfg Config) *Executor {
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 1 << 20
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 5 * time.Second
	}
	return &Executor{
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		active:  cache.New(cache.NoExpiration, time.Minute),
	}
}

type execOptions struct {
	timeout time.Duration
}

type ExecOption func(*execOptions)

// WithTimeout overrides the default per-operation timeout.
func WithTimeout(d time.Duration) ExecOption {
	return func(o *execOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Execute runs op under the sandbox guardrails. The rate gate runs before
// the operation; bookkeeping is removed in every terminal state.
func (e *Executor) Execute(ctx context.Context, pluginId string, op Operation, opts ...ExecOption) (any, error) {
	o := execOptions{timeout: e.cfg.DefaultTimeout}
	for _, apply := range opts {
		apply(&o)
	}

	if !e.limiter.allow(pluginId, time.Now()) {
		e.violation(pluginId, "rate-limit", fmt.Sprintf("more than %d requests in %s", e.cfg.RateLimitMax, e.cfg.RateLimitWindow))
		return nil, fmt.Errorf("plugin %s: %w", pluginId, ErrRateLimited)
	}

	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	opId := uuid.NewString()
	e.active.Set(opId, &ActiveOperation{PluginId: pluginId, StartedAt: time.Now(), cancel: cancel}, cache.NoExpiration)
	defer e.active.Delete(opId)

	memBefore := heapInUse()
	start := time.Now()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		v, err := op(opCtx)
		done <- outcome{value: v, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-opCtx.Done():
		// Cancellation already propagated through opCtx; the goroutine exits
		// at its next cooperative point and the buffered channel absorbs it.
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			res = outcome{err: fmt.Errorf("plugin %s after %s: %w", pluginId, o.timeout, ErrExecutionTimeout)}
		} else {
			res = outcome{err: opCtx.Err()}
		}
	}

	duration := time.Since(start)
	e.observe(pluginId, opId, duration, memBefore, res.err)

	return res.value, res.err
}

// ActiveOperations reports the number of operations currently in flight.
func (e *Executor) ActiveOperations() int {
	return e.active.ItemCount()
}

// CancelPlugin cancels every in-flight operation belonging to the plugin.
func (e *Executor) CancelPlugin(pluginId string) int {
	n := 0
	for _, item := range e.active.Items() {
		if op, ok := item.Object.(*ActiveOperation); ok && op.PluginId == pluginId {
			op.cancel()
			n++
		}
	}
	return n
}

// Remaining reports the plugin's unused calls in the current rate window.
func (e *Executor) Remaining(pluginId string) int {
	return e.limiter.remaining(pluginId, time.Now())
}

// observe emits the per-operation metrics entry and advisory violations.
// Memory checks happen after the fact: the host cannot reclaim what a
// finished operation already allocated.
func (e *Executor) observe(pluginId, opId string, duration time.Duration, memBefore uint64, opErr error) {
	success := opErr == nil

	slog.Info("operation finished",
		slog.String("_scope", "sandbox"),
		slog.String("plugin", pluginId),
		slog.String("op", opId),
		slog.Duration("duration", duration),
		slog.Bool("success", success))
	event.Async(eventType.SandboxOpCompleted, event.M{
		"plugin":   pluginId,
		"op":       opId,
		"duration": duration,
		"success":  success,
	})

	if success && duration > e.cfg.SlowThreshold {
		slog.Warn("slow plugin operation",
			slog.String("_scope", "sandbox"),
			slog.String("plugin", pluginId),
			slog.Duration("duration", duration))
		event.Async(eventType.SandboxSlowOp, event.M{"plugin": pluginId, "duration": duration})
	}

	if e.cfg.MaxMemoryBytes > 0 {
		if after := heapInUse(); after > memBefore && after-memBefore > e.cfg.MaxMemoryBytes {
			e.violation(pluginId, "memory", fmt.Sprintf("heap grew by %d bytes during operation", after-memBefore))
		}
	}
}

func (e *Executor) violation(pluginId, kind, detail string) {
	slog.Warn("sandbox violation",
		slog.String("_scope", "sandbox"),
		slog.String("plugin", pluginId),
		slog.String("kind", kind),
		slog.String("detail", detail))
	event.Async(eventType.SandboxViolation, event.M{
		"plugin": pluginId,
		"kind":   kind,
		"detail": detail,
	})
}

func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse
}
