package integrity

import (
	"strings"
	"testing"

	"github.com/plugward/plugward/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m := &manifest.Manifest{
		Id:          "amz-1",
		Name:        "Amazon Receipts",
		Version:     "1.0.0",
		FileTypes:   []string{"csv"},
		MaxFileSize: 1000000,
		Endpoints: map[string]string{
			manifest.EndpointUpload: "https://good.example/up",
		},
		Capabilities: map[string]bool{manifest.CapFileUpload: true},
		Source:       "official",
		Signature: &manifest.Signature{
			Value:     "sha256:" + strings.Repeat("ab", 32),
			Algorithm: "sha256",
			Version:   "1",
			Timestamp: 1700000000,
		},
	}
	hash, err := CanonicalHash(m)
	require.NoError(t, err)
	m.ContentHash = hash
	return m
}

func TestCanonicalHashDeterministic(t *testing.T) {
	m := signedManifest(t)
	h1, err := CanonicalHash(m)
	require.NoError(t, err)
	h2, err := CanonicalHash(m)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	m.Version = "1.0.1"
	h3, err := CanonicalHash(m)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestVerifyFullyTrustedManifest(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})
	res := v.Verify(signedManifest(t))

	assert.True(t, res.Valid)
	assert.Equal(t, 100.0, res.TrustScore)
	assert.Equal(t, RiskLow, res.RiskLevel)
	assert.Empty(t, res.Recommendations)
}

func TestVerifyHashMismatchIsCritical(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})
	m := signedManifest(t)
	m.ContentHash = strings.Repeat("0", 64)

	res := v.Verify(m)
	assert.Less(t, res.TrustScore, 100.0)

	var hashCheck *Check
	for i := range res.Checks {
		if res.Checks[i].Name == "contentHash" {
			hashCheck = &res.Checks[i]
		}
	}
	require.NotNil(t, hashCheck)
	assert.False(t, hashCheck.Passed)
	assert.Equal(t, SeverityCritical, hashCheck.Severity)
	assert.Contains(t, strings.Join(res.Recommendations, " "), "tampered")
}

func TestVerifyMissingSignature(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})
	m := signedManifest(t)
	m.Signature = nil

	res := v.Verify(m)
	for _, c := range res.Checks {
		if c.Name == "signature" {
			assert.False(t, c.Passed)
			assert.Equal(t, SeverityHigh, c.Severity)
		}
	}
	// 3 of 4 checks pass: still at threshold.
	assert.True(t, res.Valid)
	assert.Equal(t, RiskMedium, res.RiskLevel)
}

func TestVerifyWrongSignatureVersion(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})
	m := signedManifest(t)
	m.Signature.Version = "2"

	res := v.Verify(m)
	for _, c := range res.Checks {
		if c.Name == "signature" {
			assert.False(t, c.Passed)
			assert.Equal(t, SeverityMedium, c.Severity)
		}
	}
}

func TestVerifyUnknownSourceIsFlaggedNotBlocking(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})
	m := signedManifest(t)
	m.Source = "somewhere-else"
	hash, err := CanonicalHash(m)
	require.NoError(t, err)
	m.ContentHash = hash

	res := v.Verify(m)
	assert.True(t, res.Valid, "unknown source alone must not fail verification")
	for _, c := range res.Checks {
		if c.Name == "source" {
			assert.False(t, c.Passed)
			assert.Equal(t, SeverityLow, c.Severity)
		}
	}
}

func TestVerifyTamperIndicators(t *testing.T) {
	v := New(Options{Production: true, TrustedSources: []string{"official"}})
	m := signedManifest(t)
	m.Capabilities["superuser"] = true
	m.Endpoints["detect"] = "http://localhost:9000/detect"
	hash, err := CanonicalHash(m)
	require.NoError(t, err)
	m.ContentHash = hash

	res := v.Verify(m)
	var tamper *Check
	for i := range res.Checks {
		if res.Checks[i].Name == "tampering" {
			tamper = &res.Checks[i]
		}
	}
	require.NotNil(t, tamper)
	assert.False(t, tamper.Passed)
	assert.Equal(t, SeverityHigh, tamper.Severity)
	assert.Contains(t, tamper.Message, "superuser")
	assert.Contains(t, tamper.Message, "local address")
}

func TestVerifyNeverPanics(t *testing.T) {
	v := New(Options{})
	res := v.Verify(nil)

	require.Len(t, res.Checks, 1)
	assert.False(t, res.Valid)
	assert.Equal(t, 0.0, res.TrustScore)
	assert.Equal(t, RiskCritical, res.RiskLevel)
	assert.Equal(t, SeverityCritical, res.Checks[0].Severity)
}

func TestReportFlattening(t *testing.T) {
	v := New(Options{TrustedSources: []string{"official"}})
	m := signedManifest(t)
	res := v.Verify(m)

	r := NewReport(m.Id, res)
	assert.Equal(t, "amz-1", r.PluginId)
	assert.Equal(t, 100, r.TrustScore)
	assert.True(t, r.Passed)
	assert.Len(t, r.Checks, 4)
	for _, c := range r.Checks {
		assert.Equal(t, "PASS", c.Status)
	}
	assert.Contains(t, r.Summary, "PASS")
	assert.Contains(t, r.Summary, "4/4")
}
