package jsenv

import (
	"sync"

	"github.com/dop251/goja"
)

const maxKvEntries = 1024

// RamKv is a bounded in-memory key/value store shared with scripts. One
// store per plugin keeps values across executions within a process
// lifetime; nothing is persisted.
type RamKv struct {
	data map[string]interface{}
	mu   sync.RWMutex
}

func NewRamKv() *RamKv {
	return &RamKv{data: make(map[string]interface{})}
}

func (kv *RamKv) Set(key string, val interface{}) bool {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, exists := kv.data[key]; !exists && len(kv.data) >= maxKvEntries {
		return false
	}
	kv.data[key] = val
	return true
}

func (kv *RamKv) Get(key string) (interface{}, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.data[key]
	return v, ok
}

func (kv *RamKv) Del(key string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
}

func (kv *RamKv) Has(key string) bool {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	_, ok := kv.data[key]
	return ok
}

// buildStoreProxy builds the kv object exposed to scripts.
func buildStoreProxy(vm *goja.Runtime, store *RamKv) *goja.Object {
	obj := vm.NewObject()

	obj.Set("set", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		val := call.Argument(1).Export()
		if !store.Set(key, val) {
			panic(vm.NewTypeError("kv.set: store is full (%d entries)", maxKvEntries))
		}
		return goja.Undefined()
	})

	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		defaultValue := call.Argument(1)
		val, exists := store.Get(key)
		if !exists {
			if defaultValue != nil {
				return defaultValue
			}
			return goja.Undefined()
		}
		return vm.ToValue(val)
	})

	obj.Set("del", func(call goja.FunctionCall) goja.Value {
		store.Del(call.Argument(0).String())
		return goja.Undefined()
	})

	obj.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(store.Has(call.Argument(0).String()))
	})

	return obj
}
