package validator

import (
	"strings"
	"testing"

	"github.com/plugward/plugward/internal/manifest"
)

func goodManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Id:          "amz-1",
		Name:        "Amazon Receipts",
		Version:     "1.0.0",
		FileTypes:   []string{"csv"},
		MaxFileSize: 1000000,
		Endpoints: map[string]string{
			manifest.EndpointUpload: "https://good.example/up",
		},
		Capabilities: map[string]bool{manifest.CapFileUpload: true},
	}
}

func TestValidateGoodManifest(t *testing.T) {
	v := New(Options{})
	res := v.Validate(goodManifest())
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
	if res.Level != LevelSecure {
		t.Fatalf("expected level secure, got %s", res.Level)
	}
}

func TestValidateMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*manifest.Manifest)
		field  string
	}{
		{"id", func(m *manifest.Manifest) { m.Id = "" }, "id"},
		{"name", func(m *manifest.Manifest) { m.Name = "" }, "name"},
		{"version", func(m *manifest.Manifest) { m.Version = "" }, "version"},
		{"upload", func(m *manifest.Manifest) { delete(m.Endpoints, manifest.EndpointUpload) }, "endpoints.upload"},
		{"fileTypes", func(m *manifest.Manifest) { m.FileTypes = nil }, "fileTypes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := New(Options{})
			m := goodManifest()
			tc.mutate(m)
			res := v.Validate(m)
			if res.Valid {
				t.Fatalf("expected invalid manifest")
			}
			found := 0
			for _, e := range res.Errors {
				if strings.Contains(e, "missing required field: "+tc.field) {
					found++
				}
			}
			if found != 1 {
				t.Fatalf("expected exactly one error naming %q, got %v", tc.field, res.Errors)
			}
		})
	}
}

func TestValidateDangerousFileType(t *testing.T) {
	v := New(Options{})
	m := goodManifest()
	m.FileTypes = []string{"exe"}
	res := v.Validate(m)
	if res.Valid {
		t.Fatalf("expected invalid manifest")
	}
	if res.Level != LevelCritical {
		t.Fatalf("expected level critical, got %s", res.Level)
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "dangerous file type") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dangerous file type error, got %v", res.Errors)
	}
}

func TestValidateFileTypeNormalization(t *testing.T) {
	v := New(Options{})
	m := goodManifest()
	m.FileTypes = []string{".EXE"}
	res := v.Validate(m)
	if res.Valid {
		t.Fatalf("expected .EXE to be normalized and rejected")
	}
}

func TestValidateIdRules(t *testing.T) {
	v := New(Options{})

	m := goodManifest()
	m.Id = "ab"
	if res := v.Validate(m); res.Valid {
		t.Fatalf("expected too-short id to fail")
	}

	m = goodManifest()
	m.Id = "my-admin-plugin"
	res := v.Validate(m)
	if res.Valid {
		t.Fatalf("expected reserved substring to fail")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "reserved substring") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reserved substring error, got %v", res.Errors)
	}

	m = goodManifest()
	m.Id = "Upper-Case"
	if res := v.Validate(m); res.Valid {
		t.Fatalf("expected uppercase id to fail")
	}
}

func TestValidateVersionWarningOnly(t *testing.T) {
	v := New(Options{})
	m := goodManifest()
	m.Version = "latest"
	res := v.Validate(m)
	if !res.Valid {
		t.Fatalf("bad version must not block: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a version warning")
	}
	if res.Level != LevelLow {
		t.Fatalf("expected level low, got %s", res.Level)
	}
}

func TestValidateEndpointRules(t *testing.T) {
	v := New(Options{})

	m := goodManifest()
	m.Endpoints[manifest.EndpointUpload] = "ftp://files.example/up"
	if res := v.Validate(m); res.Valid {
		t.Fatalf("expected unsupported scheme to fail")
	}

	m = goodManifest()
	m.Endpoints[manifest.EndpointUpload] = "https://good.example/up/../../etc"
	if res := v.Validate(m); res.Valid {
		t.Fatalf("expected traversal path to fail")
	}

	m = goodManifest()
	m.Endpoints[manifest.EndpointUpload] = "https://good.example/" + strings.Repeat("a", 300)
	if res := v.Validate(m); res.Valid {
		t.Fatalf("expected overlong URL to fail")
	}

	m = goodManifest()
	m.Endpoints[manifest.EndpointUpload] = "not-a-url"
	if res := v.Validate(m); res.Valid {
		t.Fatalf("expected relative URL to fail")
	}
}

func TestValidateProductionEndpointRules(t *testing.T) {
	prod := New(Options{Production: true})
	dev := New(Options{})

	m := goodManifest()
	m.Endpoints[manifest.EndpointUpload] = "https://127.0.0.1/up"
	if res := dev.Validate(m); !res.Valid {
		t.Fatalf("loopback host should pass outside production: %v", res.Errors)
	}
	if res := prod.Validate(m); res.Valid {
		t.Fatalf("loopback host must fail in production")
	}

	m = goodManifest()
	m.Endpoints[manifest.EndpointUpload] = "http://good.example/up"
	res := prod.Validate(m)
	if !res.Valid {
		t.Fatalf("http in production is a warning, not an error: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected http warning in production")
	}
}

func TestValidateCapabilityHeuristics(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})

	m := goodManifest()
	m.Capabilities[manifest.CapBatchProcessing] = true
	res := v.Validate(m)
	if len(res.Warnings) == 0 {
		t.Fatalf("expected capability co-occurrence warning")
	}

	m.Source = "official"
	res = v.Validate(m)
	if len(res.Warnings) != 0 {
		t.Fatalf("trusted source should suppress heuristics, got %v", res.Warnings)
	}
}

func TestValidateContentScan(t *testing.T) {
	v := New(Options{})
	m := goodManifest()
	m.Description = "great plugin <script>alert(1)</script>"
	res := v.Validate(m)
	if !res.Valid {
		t.Fatalf("content scan must not block: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected suspicious content warning")
	}
}

func TestValidateLevelMediumOnManyWarnings(t *testing.T) {
	v := New(Options{})
	m := goodManifest()
	m.Version = "latest"
	m.FileTypes = []string{"csv", "zzz", "yyy", "xxx"}
	res := v.Validate(m)
	if !res.Valid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Warnings) <= 3 {
		t.Fatalf("test setup expected more than 3 warnings, got %d", len(res.Warnings))
	}
	if res.Level != LevelMedium {
		t.Fatalf("expected level medium, got %s", res.Level)
	}
}

func TestValidateNilManifest(t *testing.T) {
	v := New(Options{})
	res := v.Validate(nil)
	if res.Valid || res.Level != LevelCritical {
		t.Fatalf("nil manifest must be critical, got %+v", res)
	}
}
