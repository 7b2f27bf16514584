// Package permission holds per-plugin capability grants and builds
// capability-constrained execution contexts. The store is default-deny:
// absent plugins fall back to a record where only file upload is allowed.
package permission

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/plugward/plugward/internal/manifest"
)

// Host capability names. These gate sensitive host operations and are
// distinct from the manifest's declared capability flags.
const (
	CapFileUpload    = "fileUpload"
	CapNetworkAccess = "networkAccess"
	CapLocalStorage  = "localStorage"
	CapCookies       = "cookies"
	CapNotifications = "notifications"
	CapClipboard     = "clipboard"
	CapCamera        = "camera"
	CapMicrophone    = "microphone"
	CapLocation      = "location"
	CapDeviceInfo    = "deviceInfo"
)

// Permissions is the fixed record of capability flags kept per plugin.
type Permissions struct {
	FileUpload    bool `json:"fileUpload"`
	NetworkAccess bool `json:"networkAccess"`
	LocalStorage  bool `json:"localStorage"`
	Cookies       bool `json:"cookies"`
	Notifications bool `json:"notifications"`
	Clipboard     bool `json:"clipboard"`
	Camera        bool `json:"camera"`
	Microphone    bool `json:"microphone"`
	Location      bool `json:"location"`
	DeviceInfo    bool `json:"deviceInfo"`
}

// DefaultPermissions is the record used for plugins without stored grants.
func DefaultPermissions() Permissions {
	return Permissions{FileUpload: true}
}

func (p Permissions) get(name string) bool {
	switch name {
	case CapFileUpload:
		return p.FileUpload
	case CapNetworkAccess:
		return p.NetworkAccess
	case CapLocalStorage:
		return p.LocalStorage
	case CapCookies:
		return p.Cookies
	case CapNotifications:
		return p.Notifications
	case CapClipboard:
		return p.Clipboard
	case CapCamera:
		return p.Camera
	case CapMicrophone:
		return p.Microphone
	case CapLocation:
		return p.Location
	case CapDeviceInfo:
		return p.DeviceInfo
	}
	return false
}

func (p *Permissions) set(name string, v bool) bool {
	switch name {
	case CapFileUpload:
		p.FileUpload = v
	case CapNetworkAccess:
		p.NetworkAccess = v
	case CapLocalStorage:
		p.LocalStorage = v
	case CapCookies:
		p.Cookies = v
	case CapNotifications:
		p.Notifications = v
	case CapClipboard:
		p.Clipboard = v
	case CapMicrophone:
		p.Microphone = v
	case CapCamera:
		p.Camera = v
	case CapLocation:
		p.Location = v
	case CapDeviceInfo:
		p.DeviceInfo = v
	default:
		return false
	}
	return true
}

// OpDecision reports whether an operation may proceed and, if not, which
// capabilities are missing.
type OpDecision struct {
	Allowed bool     `json:"allowed"`
	Missing []string `json:"missingCapabilities,omitempty"`
}

// Operation kinds accepted by CheckOperation, mapped to the capabilities
// they require.
var operationRequirements = map[string][]string{
	"uploadFile":       {CapFileUpload},
	"networkRequest":   {CapNetworkAccess},
	"storeData":        {CapLocalStorage},
	"showNotification": {CapNotifications},
	"accessClipboard":  {CapClipboard},
	"readDeviceInfo":   {CapDeviceInfo},
}

// CookieSource supplies the host's cookie jar to constrained contexts. The
// context redacts sensitive entries before plugins see them.
type CookieSource func() map[string]string

// Manager is a per-subsystem capability store. Instances are independent;
// tests and embedding hosts may run several side by side.
type Manager struct {
	mu      sync.RWMutex
	grants  map[string]Permissions
	storage map[string]map[string]string // plugin id -> bounded kv
	clip    map[string]string            // plugin id -> clipboard content

	cookieSource CookieSource
}

type ManagerOption func(*Manager)

// WithCookieSource sets the host cookie provider used by constrained
// contexts with the cookies capability.
func WithCookieSource(src CookieSource) ManagerOption {
	return func(m *Manager) { m.cookieSource = src }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		grants:  make(map[string]Permissions),
		storage: make(map[string]map[string]string),
		clip:    make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Grant merges a partial capability update into the plugin's record. Keys
// outside the update are untouched; an empty patch only materializes the
// default record. Unknown capability names are rejected.
func (m *Manager) Grant(pluginId string, patch map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	perms, ok := m.grants[pluginId]
	if !ok {
		perms = DefaultPermissions()
	}
	for name, v := range patch {
		if !perms.set(name, v) {
			return fmt.Errorf("unknown capability %q", name)
		}
	}
	m.grants[pluginId] = perms
	return nil
}

// Get returns the plugin's permission record, falling back to the default.
// There is no "missing permissions" state.
func (m *Manager) Get(pluginId string) Permissions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if perms, ok := m.grants[pluginId]; ok {
		return perms
	}
	return DefaultPermissions()
}

// Has reports whether the plugin currently holds the capability.
func (m *Manager) Has(pluginId, capability string) bool {
	return m.Get(pluginId).get(capability)
}

// RevokeAll removes the stored record; subsequent lookups fall back to the
// default. Bounded storage and clipboard content are dropped with it.
func (m *Manager) RevokeAll(pluginId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, pluginId)
	delete(m.storage, pluginId)
	delete(m.clip, pluginId)
}

// CheckOperation maps an operation kind to its required capabilities and
// reports which are missing. Unknown operation kinds require nothing and are
// allowed; this permissive default is deliberate and logged so it is
// auditable.
func (m *Manager) CheckOperation(pluginId, operation string) OpDecision {
	required, known := operationRequirements[operation]
	if !known {
		slog.Debug("unknown operation kind, allowing by default",
			slog.String("plugin", pluginId), slog.String("operation", operation))
		return OpDecision{Allowed: true}
	}

	perms := m.Get(pluginId)
	var missing []string
	for _, name := range required {
		if !perms.get(name) {
			missing = append(missing, name)
		}
	}
	return OpDecision{Allowed: len(missing) == 0, Missing: missing}
}

// AutoGrant derives conservative grants from a manifest's declared intent.
// It only ever grants what the declared capabilities already imply: upload
// and manual entry need network access to reach their endpoints, batch
// processing needs progress notifications.
func (m *Manager) AutoGrant(pluginId string, declared []string) error {
	patch := map[string]bool{}
	for _, c := range declared {
		switch c {
		case manifest.CapFileUpload:
			patch[CapFileUpload] = true
			patch[CapNetworkAccess] = true
		case manifest.CapManualEntry:
			patch[CapNetworkAccess] = true
		case manifest.CapBatchProcessing:
			patch[CapNotifications] = true
		}
	}
	if len(patch) == 0 {
		// Still materialize the record so the grant is visible.
		return m.Grant(pluginId, nil)
	}
	return m.Grant(pluginId, patch)
}
