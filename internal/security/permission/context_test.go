package permission

import (
	"errors"
	"strings"
	"testing"
)

func TestDeniedCapabilityNamesItself(t *testing.T) {
	m := NewManager()
	ctx := m.Context("p1")

	cases := []struct {
		capability string
		call       func() error
	}{
		{CapLocalStorage, func() error { _, err := ctx.ReadStorage("k"); return err }},
		{CapLocalStorage, func() error { return ctx.WriteStorage("k", "v") }},
		{CapCookies, func() error { _, err := ctx.ReadCookies(); return err }},
		{CapNotifications, func() error { return ctx.ShowNotification("t", "m") }},
		{CapClipboard, func() error { _, err := ctx.ReadClipboard(); return err }},
		{CapClipboard, func() error { return ctx.WriteClipboard("x") }},
		{CapDeviceInfo, func() error { _, err := ctx.ReadDeviceInfo(); return err }},
	}

	for _, tc := range cases {
		err := tc.call()
		if err == nil {
			t.Fatalf("expected denial for %s", tc.capability)
		}
		var capErr *CapabilityError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CapabilityError, got %T: %v", err, err)
		}
		if capErr.Capability != tc.capability {
			t.Fatalf("denial names %q, want %q", capErr.Capability, tc.capability)
		}
	}
}

func TestStorageBounds(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", map[string]bool{CapLocalStorage: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ctx := m.Context("p1")

	if err := ctx.WriteStorage(strings.Repeat("k", maxStorageKeyLength+1), "v"); err == nil {
		t.Fatalf("oversized key should be rejected")
	}

	big := strings.Repeat("v", maxStorageValueLength+100)
	if err := ctx.WriteStorage("big", big); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ctx.ReadStorage("big")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != maxStorageValueLength {
		t.Fatalf("value not truncated: %d bytes", len(got))
	}
}

func TestStorageIsolatedPerPlugin(t *testing.T) {
	m := NewManager()
	for _, id := range []string{"p1", "p2"} {
		if err := m.Grant(id, map[string]bool{CapLocalStorage: true}); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	c1 := m.Context("p1")
	c2 := m.Context("p2")

	if err := c1.WriteStorage("shared", "one"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, _ := c2.ReadStorage("shared"); got != "" {
		t.Fatalf("plugin p2 can read p1's storage: %q", got)
	}
}

func TestCookieRedaction(t *testing.T) {
	src := func() map[string]string {
		return map[string]string{
			"theme":      "dark",
			"session_id": "secret-session",
			"authToken":  "secret-auth",
		}
	}
	m := NewManager(WithCookieSource(src))
	if err := m.Grant("p1", map[string]bool{CapCookies: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ctx := m.Context("p1")

	cookies, err := ctx.ReadCookies()
	if err != nil {
		t.Fatalf("read cookies: %v", err)
	}
	if cookies["theme"] != "dark" {
		t.Fatalf("benign cookie altered: %q", cookies["theme"])
	}
	if cookies["session_id"] != "[redacted]" || cookies["authToken"] != "[redacted]" {
		t.Fatalf("sensitive cookies leaked: %v", cookies)
	}
}

func TestClipboardTruncation(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", map[string]bool{CapClipboard: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ctx := m.Context("p1")

	if err := ctx.WriteClipboard(strings.Repeat("x", maxClipboardLength+50)); err != nil {
		t.Fatalf("write clipboard: %v", err)
	}
	got, err := ctx.ReadClipboard()
	if err != nil {
		t.Fatalf("read clipboard: %v", err)
	}
	if len(got) != maxClipboardLength {
		t.Fatalf("clipboard not truncated: %d bytes", len(got))
	}
}

func TestContextSnapshotsGrants(t *testing.T) {
	m := NewManager()
	ctx := m.Context("p1")

	// Granting after the build must not change the already-built context.
	if err := m.Grant("p1", map[string]bool{CapClipboard: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := ctx.WriteClipboard("x"); err == nil {
		t.Fatalf("stale context should still deny")
	}
	if err := m.Context("p1").WriteClipboard("x"); err != nil {
		t.Fatalf("rebuilt context should allow: %v", err)
	}
}

func TestDeviceInfoSnapshot(t *testing.T) {
	m := NewManager()
	if err := m.Grant("p1", map[string]bool{CapDeviceInfo: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	info, err := m.Context("p1").ReadDeviceInfo()
	if err != nil {
		t.Fatalf("device info: %v", err)
	}
	if info.OS == "" || info.NumCPU <= 0 {
		t.Fatalf("implausible snapshot: %+v", info)
	}
}
