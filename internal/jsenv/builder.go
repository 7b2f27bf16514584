package jsenv

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

const (
	maxLogLineLength  = 500
	maxJSONBytes      = 256 << 10 // parse/stringify payload ceiling
	defaultFetchLimit = 5 * time.Second
)

var scriptFragmentPattern = regexp.MustCompile(`(?i)(<\s*/?\s*script[^>]*>|javascript:)`)

// Injector customizes the VM at build time.
type Injector func(vm *goja.Runtime) error

// Builder assembles an Env. Every facility is opt-in; an empty build yields
// a bare VM with nothing but ECMAScript builtins.
type Builder struct {
	pluginId     string
	console      bool
	fetch        bool
	fetchClient  *http.Client
	boundedJSON  bool
	kv           *RamKv
	injectors    []Injector
}

func NewBuilder(pluginId string) *Builder {
	return &Builder{pluginId: pluginId}
}

// WithSanitizedConsole injects console.log/warn/error with script-fragment
// stripping and length truncation.
func (b *Builder) WithSanitizedConsole() *Builder {
	b.console = true
	return b
}

// WithRestrictedFetch injects a fetch restricted to http/https with a short
// enforced timeout and a response body cap. A nil client gets a default one.
func (b *Builder) WithRestrictedFetch(client *http.Client) *Builder {
	b.fetch = true
	b.fetchClient = client
	return b
}

// WithBoundedJSON replaces JSON.parse/JSON.stringify with size-capped
// wrappers.
func (b *Builder) WithBoundedJSON() *Builder {
	b.boundedJSON = true
	return b
}

// WithMemoryKv injects a kv object backed by the given store, or a fresh one.
func (b *Builder) WithMemoryKv(kv ...*RamKv) *Builder {
	if len(kv) > 0 && kv[0] != nil {
		b.kv = kv[0]
	} else {
		b.kv = NewRamKv()
	}
	return b
}

// WithInjector registers a custom build-time injection.
func (b *Builder) WithInjector(inj Injector) *Builder {
	if inj != nil {
		b.injectors = append(b.injectors, inj)
	}
	return b
}

// Build assembles the environment.
func (b *Builder) Build() (*Env, error) {
	registry := new(require.Registry)
	vm := goja.New()
	registry.Enable(vm)

	env := &Env{vm: vm, registry: registry}

	if b.console {
		if err := b.injectConsole(vm); err != nil {
			return nil, err
		}
	}
	if b.fetch {
		client := b.fetchClient
		if client == nil {
			client = &http.Client{Timeout: defaultFetchLimit}
		}
		if err := injectFetch(vm, b.pluginId, client); err != nil {
			return nil, err
		}
	}
	if b.boundedJSON {
		if err := injectBoundedJSON(vm); err != nil {
			return nil, err
		}
	}
	if b.kv != nil {
		vm.Set("kv", buildStoreProxy(vm, b.kv))
	}

	for _, inj := range b.injectors {
		if err := inj(vm); err != nil {
			return nil, err
		}
	}

	return env, nil
}

func (b *Builder) injectConsole(vm *goja.Runtime) error {
	obj := vm.NewObject()
	pluginId := b.pluginId

	logAt := func(level slog.Level) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				parts = append(parts, a.String())
			}
			msg := SanitizeLogLine(strings.Join(parts, " "))
			slog.Log(context.Background(), level, msg, slog.String("_scope", "plugin"), slog.String("plugin", pluginId))
			return goja.Undefined()
		}
	}

	if err := obj.Set("log", logAt(slog.LevelInfo)); err != nil {
		return err
	}
	if err := obj.Set("warn", logAt(slog.LevelWarn)); err != nil {
		return err
	}
	if err := obj.Set("error", logAt(slog.LevelError)); err != nil {
		return err
	}
	return vm.Set("console", obj)
}

// SanitizeLogLine strips script fragments and javascript: handlers from a
// log line and truncates it.
func SanitizeLogLine(s string) string {
	s = scriptFragmentPattern.ReplaceAllString(s, "")
	if len(s) > maxLogLineLength {
		s = s[:maxLogLineLength] + "...[truncated]"
	}
	return s
}

func injectBoundedJSON(vm *goja.Runtime) error {
	jsonObj := vm.NewObject()

	if err := jsonObj.Set("parse", func(call goja.FunctionCall) goja.Value {
		raw := call.Argument(0).String()
		if len(raw) > maxJSONBytes {
			panic(vm.NewTypeError("JSON.parse: payload exceeds %d bytes", maxJSONBytes))
		}
		var out any
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			panic(vm.NewTypeError("JSON.parse: %v", err))
		}
		return vm.ToValue(out)
	}); err != nil {
		return err
	}

	if err := jsonObj.Set("stringify", func(call goja.FunctionCall) goja.Value {
		b, err := json.Marshal(call.Argument(0).Export())
		if err != nil {
			panic(vm.NewTypeError("JSON.stringify: %v", err))
		}
		if len(b) > maxJSONBytes {
			panic(vm.NewTypeError("JSON.stringify: result exceeds %d bytes", maxJSONBytes))
		}
		return vm.ToValue(string(b))
	}); err != nil {
		return err
	}

	return vm.Set("JSON", jsonObj)
}
