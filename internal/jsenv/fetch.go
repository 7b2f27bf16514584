package jsenv

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dop251/goja"
)

const fetchMaxBodyBytes = int64(10 << 20) // 10MiB

// injectFetch installs a synchronous, scheme-restricted fetch. The client's
// timeout is the enforcement point for hung endpoints; plugins cannot
// override it. The response is a plain object: {status, ok, headers, body,
// json()}.
func injectFetch(vm *goja.Runtime, pluginId string, client *http.Client) error {
	if vm == nil {
		return errors.New("vm is nil")
	}
	if client == nil {
		return errors.New("http client is nil")
	}

	return vm.Set("fetch", func(call goja.FunctionCall) goja.Value {
		rawURL := strings.TrimSpace(call.Argument(0).String())
		if rawURL == "" {
			panic(vm.NewTypeError("fetch: url is required"))
		}

		parsedURL, err := url.Parse(rawURL)
		if err != nil {
			panic(vm.NewTypeError("fetch: invalid url: %v", err))
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			panic(vm.NewTypeError("fetch: unsupported scheme: %s", parsedURL.Scheme))
		}

		slog.Debug("plugin fetch",
			slog.String("_scope", "plugin"),
			slog.String("plugin", pluginId),
			slog.String("url", parsedURL.Redacted()))

		method := http.MethodGet
		headers := http.Header{}
		var bodyReader io.Reader

		if opts := call.Argument(1); opts != nil && !goja.IsUndefined(opts) && !goja.IsNull(opts) {
			obj := opts.ToObject(vm)
			if v := obj.Get("method"); v != nil && !goja.IsUndefined(v) {
				method = strings.ToUpper(v.String())
			}
			if v := obj.Get("headers"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
				hObj := v.ToObject(vm)
				for _, key := range hObj.Keys() {
					headers.Set(key, hObj.Get(key).String())
				}
			}
			if v := obj.Get("body"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
				bodyReader = bytes.NewReader([]byte(v.String()))
			}
		}

		req, err := http.NewRequest(method, parsedURL.String(), bodyReader)
		if err != nil {
			panic(vm.NewTypeError("fetch: %v", err))
		}
		req.Header = headers

		resp, err := client.Do(req)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBodyBytes))
		if err != nil {
			panic(vm.NewGoError(err))
		}

		respHeaders := map[string]string{}
		for key := range resp.Header {
			respHeaders[key] = resp.Header.Get(key)
		}

		out := vm.NewObject()
		out.Set("status", resp.StatusCode)
		out.Set("ok", resp.StatusCode >= 200 && resp.StatusCode < 300)
		out.Set("headers", respHeaders)
		out.Set("body", string(body))
		out.Set("json", func(goja.FunctionCall) goja.Value {
			parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
			if !ok {
				panic(vm.NewTypeError("fetch: JSON.parse unavailable"))
			}
			v, err := parse(goja.Undefined(), vm.ToValue(string(body)))
			if err != nil {
				panic(err)
			}
			return v
		})
		return out
	})
}
