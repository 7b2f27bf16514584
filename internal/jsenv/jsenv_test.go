package jsenv

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRunScriptAndCall(t *testing.T) {
	env, err := NewBuilder("p1").Build()
	if err != nil {
		t.Fatalf("build env: %v", err)
	}

	if _, err := env.RunScript(`function add(a, b) { return a + b; }`); err != nil {
		t.Fatalf("load script: %v", err)
	}

	v, err := env.Call("add", 1, 2)
	if err != nil {
		t.Fatalf("call add: %v", err)
	}
	if got := v.Export(); got != int64(3) && got != 3 {
		t.Fatalf("unexpected add result: %#v", got)
	}

	if env.HasFunction("missing") {
		t.Fatalf("missing function reported present")
	}
	if _, err := env.Call("missing"); err == nil {
		t.Fatalf("calling a missing function should error")
	}
}

func TestSanitizeLogLine(t *testing.T) {
	got := SanitizeLogLine(`hi <script>alert(1)</script> there javascript:void(0)`)
	if strings.Contains(got, "<script") || strings.Contains(strings.ToLower(got), "javascript:") {
		t.Fatalf("script fragments survived: %q", got)
	}

	long := SanitizeLogLine(strings.Repeat("a", maxLogLineLength+100))
	if !strings.HasSuffix(long, "...[truncated]") {
		t.Fatalf("long line not truncated: %d bytes", len(long))
	}
}

func TestSanitizedConsole(t *testing.T) {
	env, err := NewBuilder("p1").WithSanitizedConsole().Build()
	if err != nil {
		t.Fatalf("build env: %v", err)
	}
	if _, err := env.RunScript(`console.log("hello", "<script>x</script>"); console.warn("w"); console.error("e");`); err != nil {
		t.Fatalf("console calls failed: %v", err)
	}
}

func TestRestrictedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	env, err := NewBuilder("p1").
		WithRestrictedFetch(&http.Client{Timeout: 2 * time.Second}).
		Build()
	if err != nil {
		t.Fatalf("build env: %v", err)
	}

	v, err := env.RunScript(`fetch(` + "`" + srv.URL + "`" + `).status`)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := v.Export(); got != int64(200) && got != 200 {
		t.Fatalf("unexpected status: %#v", got)
	}

	if _, err := env.RunScript(`fetch("file:///etc/passwd")`); err == nil {
		t.Fatalf("non-http scheme must be rejected")
	}
	if _, err := env.RunScript(`fetch("")`); err == nil {
		t.Fatalf("empty url must be rejected")
	}
}

func TestBoundedJSON(t *testing.T) {
	env, err := NewBuilder("p1").WithBoundedJSON().Build()
	if err != nil {
		t.Fatalf("build env: %v", err)
	}

	v, err := env.RunScript(`JSON.parse('{"a":1}').a`)
	if err != nil {
		t.Fatalf("JSON.parse: %v", err)
	}
	if got := v.Export(); got != int64(1) && got != float64(1) {
		t.Fatalf("unexpected parse result: %#v", got)
	}

	if _, err := env.RunScript(`JSON.parse("not json")`); err == nil {
		t.Fatalf("invalid JSON should throw")
	}

	v, err = env.RunScript(`JSON.stringify({b: 2})`)
	if err != nil {
		t.Fatalf("JSON.stringify: %v", err)
	}
	if got := v.String(); got != `{"b":2}` {
		t.Fatalf("unexpected stringify result: %q", got)
	}
}

func TestMemoryKv(t *testing.T) {
	store := NewRamKv()
	env, err := NewBuilder("p1").WithMemoryKv(store).Build()
	if err != nil {
		t.Fatalf("build env: %v", err)
	}

	if _, err := env.RunScript(`kv.set("greeting", "hi")`); err != nil {
		t.Fatalf("kv.set: %v", err)
	}
	if v, ok := store.Get("greeting"); !ok || v != "hi" {
		t.Fatalf("store did not observe the write: %v %v", v, ok)
	}

	v, err := env.RunScript(`kv.get("missing", "fallback")`)
	if err != nil {
		t.Fatalf("kv.get: %v", err)
	}
	if v.String() != "fallback" {
		t.Fatalf("default value not returned: %q", v.String())
	}

	if _, err := env.RunScript(`kv.del("greeting")`); err != nil {
		t.Fatalf("kv.del: %v", err)
	}
	if store.Has("greeting") {
		t.Fatalf("delete did not propagate")
	}
}

func TestKvBounded(t *testing.T) {
	store := NewRamKv()
	for i := 0; i < maxKvEntries; i++ {
		if !store.Set(fmt.Sprintf("key-%d", i), i) {
			t.Fatalf("fill failed at %d", i)
		}
	}
	if store.Set("one-too-many", 1) {
		t.Fatalf("store accepted entry beyond its bound")
	}
}
