// Package jsenv provides the constrained script environment plugin
// operations run in. It is the execution-time counterpart to the permission
// package's constrained context: generic safety (sanitized logging, a
// restricted fetch, bounded JSON) rather than per-capability gating.
package jsenv

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// Env wraps one goja VM. Goja is not thread safe; the mutex serializes all
// entry points.
type Env struct {
	vm       *goja.Runtime
	mu       sync.Mutex
	registry *require.Registry
}

// RunScript evaluates src inside the environment.
func (e *Env) RunScript(src string) (goja.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.RunString(src)
}

// Call invokes a previously defined global function by name.
func (e *Env) Call(name string, params ...any) (goja.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, ok := goja.AssertFunction(e.vm.Get(name))
	if !ok {
		return nil, fmt.Errorf("function %q is not defined", name)
	}
	vals := make([]goja.Value, len(params))
	for i, p := range params {
		vals[i] = e.vm.ToValue(p)
	}
	return fn(goja.Undefined(), vals...)
}

// HasFunction reports whether a callable global with the name exists.
func (e *Env) HasFunction(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := goja.AssertFunction(e.vm.Get(name))
	return ok
}

// VM exposes the underlying runtime for host-side injections.
func (e *Env) VM() *goja.Runtime {
	return e.vm
}
