package permission

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/gookit/event"
	"github.com/plugward/plugward/internal/eventType"
)

const (
	maxStorageKeyLength   = 128
	maxStorageValueLength = 8192
	maxNotificationLength = 200
	maxClipboardLength    = 1000
)

// CapabilityError is returned by every constrained-context method whose
// capability was not granted. Denials are loud so callers cannot mistake
// them for empty results.
type CapabilityError struct {
	PluginId   string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("plugin %s: capability denied: %s", e.PluginId, e.Capability)
}

// DeviceInfo is the bounded snapshot exposed to deviceInfo-granted plugins.
type DeviceInfo struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	NumCPU   int    `json:"numCpu"`
	Hostname string `json:"hostname"`
}

// ConstrainedContext exposes to a plugin exactly the host operations its
// capabilities allow. Each operation is resolved to either a bounded real
// implementation or a denial stub once, at build time, so there is no
// per-call policy evaluation.
type ConstrainedContext struct {
	pluginId string

	readStorageFn    func(key string) (string, error)
	writeStorageFn   func(key, value string) error
	readCookiesFn    func() (map[string]string, error)
	notifyFn         func(title, message string) error
	readClipboardFn  func() (string, error)
	writeClipboardFn func(text string) error
	deviceInfoFn     func() (DeviceInfo, error)
}

// Context builds a constrained context for the plugin from its current
// grants. Grants changed after the build are not observed; rebuild per
// operation batch.
func (m *Manager) Context(pluginId string) *ConstrainedContext {
	perms := m.Get(pluginId)
	ctx := &ConstrainedContext{pluginId: pluginId}

	deny := func(capability string) *CapabilityError {
		return &CapabilityError{PluginId: pluginId, Capability: capability}
	}

	if perms.LocalStorage {
		ctx.readStorageFn = func(key string) (string, error) {
			m.mu.RLock()
			defer m.mu.RUnlock()
			kv := m.storage[pluginId]
			if kv == nil {
				return "", nil
			}
			return kv[key], nil
		}
		ctx.writeStorageFn = func(key, value string) error {
			if len(key) > maxStorageKeyLength {
				return fmt.Errorf("storage key exceeds %d characters", maxStorageKeyLength)
			}
			if len(value) > maxStorageValueLength {
				value = value[:maxStorageValueLength]
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.storage[pluginId] == nil {
				m.storage[pluginId] = make(map[string]string)
			}
			m.storage[pluginId][key] = value
			return nil
		}
	} else {
		ctx.readStorageFn = func(string) (string, error) { return "", deny(CapLocalStorage) }
		ctx.writeStorageFn = func(string, string) error { return deny(CapLocalStorage) }
	}

	if perms.Cookies {
		src := m.cookieSource
		ctx.readCookiesFn = func() (map[string]string, error) {
			if src == nil {
				return map[string]string{}, nil
			}
			out := make(map[string]string)
			for name, value := range src() {
				if sensitiveCookie(name) {
					out[name] = "[redacted]"
					continue
				}
				out[name] = value
			}
			return out, nil
		}
	} else {
		ctx.readCookiesFn = func() (map[string]string, error) { return nil, deny(CapCookies) }
	}

	if perms.Notifications {
		ctx.notifyFn = func(title, message string) error {
			if len(message) > maxNotificationLength {
				message = message[:maxNotificationLength] + "..."
			}
			notifyHost(pluginId, title, message)
			return nil
		}
	} else {
		ctx.notifyFn = func(string, string) error { return deny(CapNotifications) }
	}

	if perms.Clipboard {
		ctx.readClipboardFn = func() (string, error) {
			m.mu.RLock()
			defer m.mu.RUnlock()
			return m.clip[pluginId], nil
		}
		ctx.writeClipboardFn = func(text string) error {
			if len(text) > maxClipboardLength {
				text = text[:maxClipboardLength]
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			m.clip[pluginId] = text
			return nil
		}
	} else {
		ctx.readClipboardFn = func() (string, error) { return "", deny(CapClipboard) }
		ctx.writeClipboardFn = func(string) error { return deny(CapClipboard) }
	}

	if perms.DeviceInfo {
		ctx.deviceInfoFn = func() (DeviceInfo, error) {
			host, _ := os.Hostname()
			return DeviceInfo{
				OS:       runtime.GOOS,
				Arch:     runtime.GOARCH,
				NumCPU:   runtime.NumCPU(),
				Hostname: host,
			}, nil
		}
	} else {
		ctx.deviceInfoFn = func() (DeviceInfo, error) { return DeviceInfo{}, deny(CapDeviceInfo) }
	}

	return ctx
}

func (c *ConstrainedContext) PluginId() string { return c.pluginId }

func (c *ConstrainedContext) ReadStorage(key string) (string, error) {
	return c.readStorageFn(key)
}

func (c *ConstrainedContext) WriteStorage(key, value string) error {
	return c.writeStorageFn(key, value)
}

func (c *ConstrainedContext) ReadCookies() (map[string]string, error) {
	return c.readCookiesFn()
}

func (c *ConstrainedContext) ShowNotification(title, message string) error {
	return c.notifyFn(title, message)
}

func (c *ConstrainedContext) ReadClipboard() (string, error) {
	return c.readClipboardFn()
}

func (c *ConstrainedContext) WriteClipboard(text string) error {
	return c.writeClipboardFn(text)
}

func (c *ConstrainedContext) ReadDeviceInfo() (DeviceInfo, error) {
	return c.deviceInfoFn()
}

// notifyHost hands a plugin notification to the host through the event bus.
// The message is already truncated by the caller.
func notifyHost(pluginId, title, message string) {
	slog.Info("plugin notification",
		slog.String("_scope", "plugin"),
		slog.String("plugin", pluginId),
		slog.String("title", title))
	event.Async(eventType.PluginNotification, event.M{
		"plugin":  pluginId,
		"title":   title,
		"message": message,
	})
}

func sensitiveCookie(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"session", "auth", "token", "sid", "csrf"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
