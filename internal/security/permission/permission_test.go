package permission

import (
	"testing"

	"github.com/plugward/plugward/internal/manifest"
)

func TestDefaultRecord(t *testing.T) {
	m := NewManager()
	perms := m.Get("unseen")
	if !perms.FileUpload {
		t.Fatalf("default record must allow file upload")
	}
	if perms.NetworkAccess || perms.LocalStorage || perms.Cookies || perms.Notifications ||
		perms.Clipboard || perms.Camera || perms.Microphone || perms.Location || perms.DeviceInfo {
		t.Fatalf("default record must deny everything else: %+v", perms)
	}
}

func TestEmptyGrantIsNoOp(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", nil); err != nil {
		t.Fatalf("empty grant: %v", err)
	}
	if got, want := m.Get("p1"), DefaultPermissions(); got != want {
		t.Fatalf("empty grant changed the record: %+v", got)
	}
}

func TestGrantMergesWithoutDroppingPrior(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", map[string]bool{CapNetworkAccess: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := m.Grant("p1", map[string]bool{CapClipboard: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	perms := m.Get("p1")
	if !perms.NetworkAccess {
		t.Fatalf("second grant dropped networkAccess")
	}
	if !perms.Clipboard {
		t.Fatalf("clipboard not granted")
	}
	if !perms.FileUpload {
		t.Fatalf("baseline fileUpload lost")
	}
}

func TestGrantUnknownCapability(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", map[string]bool{"teleport": true}); err == nil {
		t.Fatalf("expected error for unknown capability")
	}
}

func TestRevokeAllRestoresDefault(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", map[string]bool{CapNetworkAccess: true, CapCookies: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	m.RevokeAll("p1")
	if got, want := m.Get("p1"), DefaultPermissions(); got != want {
		t.Fatalf("revoke did not restore default: %+v", got)
	}
}

func TestHas(t *testing.T) {
	m := NewManager()
	if !m.Has("p1", CapFileUpload) {
		t.Fatalf("fileUpload should be allowed by default")
	}
	if m.Has("p1", CapNetworkAccess) {
		t.Fatalf("networkAccess should be denied by default")
	}
	if m.Has("p1", "nonsense") {
		t.Fatalf("unknown capability should read as false")
	}
}

func TestCheckOperation(t *testing.T) {
	m := NewManager()

	d := m.CheckOperation("p1", "uploadFile")
	if !d.Allowed {
		t.Fatalf("uploadFile should be allowed by default")
	}

	d = m.CheckOperation("p1", "networkRequest")
	if d.Allowed {
		t.Fatalf("networkRequest should be denied by default")
	}
	if len(d.Missing) != 1 || d.Missing[0] != CapNetworkAccess {
		t.Fatalf("expected missing networkAccess, got %v", d.Missing)
	}

	if err := m.Grant("p1", map[string]bool{CapNetworkAccess: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if d := m.CheckOperation("p1", "networkRequest"); !d.Allowed {
		t.Fatalf("networkRequest should be allowed after grant, missing %v", d.Missing)
	}
}

func TestCheckOperationUnknownKindAllowed(t *testing.T) {
	m := NewManager()
	d := m.CheckOperation("p1", "somethingNew")
	if !d.Allowed || len(d.Missing) != 0 {
		t.Fatalf("unknown operation kinds require no capabilities, got %+v", d)
	}
}

func TestAutoGrant(t *testing.T) {
	m := NewManager()
	err := m.AutoGrant("p1", []string{manifest.CapFileUpload, manifest.CapBatchProcessing})
	if err != nil {
		t.Fatalf("autoGrant: %v", err)
	}

	perms := m.Get("p1")
	if !perms.NetworkAccess {
		t.Fatalf("fileUpload intent implies networkAccess")
	}
	if !perms.Notifications {
		t.Fatalf("batchProcessing intent implies notifications")
	}
	if perms.Cookies || perms.Clipboard || perms.Camera {
		t.Fatalf("autoGrant must stay conservative: %+v", perms)
	}
}

func TestAutoGrantNoDeclaredCapabilities(t *testing.T) {
	m := NewManager()
	if err := m.AutoGrant("p1", nil); err != nil {
		t.Fatalf("autoGrant: %v", err)
	}
	if got, want := m.Get("p1"), DefaultPermissions(); got != want {
		t.Fatalf("expected default record, got %+v", got)
	}
}
