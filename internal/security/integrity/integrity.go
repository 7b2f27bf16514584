// Package integrity verifies the provenance of a plugin manifest: signature
// shape, recomputed content hash, trusted-source membership and a set of
// tamper heuristics. It never reports defects as Go errors; every outcome is
// a structured CheckResult so callers can render itemized diagnostics.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/plugward/plugward/internal/manifest"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Check is the outcome of one independent verification step.
type Check struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// CheckResult aggregates all checks run against one manifest.
type CheckResult struct {
	Valid           bool      `json:"valid"`
	TrustScore      float64   `json:"trustScore"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Checks          []Check   `json:"checks"`
	Recommendations []string  `json:"recommendations"`
}

const (
	checkSignature = "signature"
	checkHash      = "contentHash"
	checkSource    = "source"
	checkTamper    = "tampering"

	// Acceptance threshold, compared at full precision.
	trustThreshold = 75.0

	supportedSignatureVersion = "1"
)

// algorithm prefix, colon, at least a sha256's worth of hex.
var signatureValuePattern = regexp.MustCompile(`^[a-z0-9-]+:[0-9a-f]{64,}$`)

var versionShapePattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

type Options struct {
	// Production marks loopback/private endpoint hosts as tamper indicators.
	Production     bool
	TrustedSources []string
}

type Verifier struct {
	opts    Options
	trusted map[string]bool
}

func New(opts Options) *Verifier {
	trusted := make(map[string]bool, len(opts.TrustedSources))
	for _, s := range opts.TrustedSources {
		trusted[s] = true
	}
	return &Verifier{opts: opts, trusted: trusted}
}

// Verify runs the four independent checks and scores the result. It never
// panics past its contract: an internal failure degrades to a single
// critical-severity failed check with a zero trust score.
func (v *Verifier) Verify(m *manifest.Manifest) (res *CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			res = &CheckResult{
				Valid:      false,
				TrustScore: 0,
				RiskLevel:  RiskCritical,
				Checks: []Check{{
					Name:     "internal",
					Passed:   false,
					Message:  fmt.Sprintf("verification failed internally: %v", r),
					Severity: SeverityCritical,
				}},
				Recommendations: []string{"verification could not complete; do not install this plugin"},
			}
		}
	}()

	if m == nil {
		panic("nil manifest")
	}

	checks := []Check{
		v.checkSignature(m),
		v.checkContentHash(m),
		v.checkSource(m),
		v.checkTampering(m),
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	score := float64(passed) / float64(len(checks)) * 100

	res = &CheckResult{
		Valid:           score >= trustThreshold,
		TrustScore:      score,
		RiskLevel:       riskFromScore(score),
		Checks:          checks,
		Recommendations: recommendations(checks),
	}
	return res
}

func riskFromScore(score float64) RiskLevel {
	switch {
	case score >= 90:
		return RiskLow
	case score >= trustThreshold:
		return RiskMedium
	case score >= 50:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func (v *Verifier) checkSignature(m *manifest.Manifest) Check {
	c := Check{Name: checkSignature}
	sig := m.Signature
	switch {
	case sig == nil:
		c.Message = "manifest carries no signature"
		c.Severity = SeverityHigh
	case sig.Version != supportedSignatureVersion:
		c.Message = fmt.Sprintf("unsupported signature scheme version %q", sig.Version)
		c.Severity = SeverityMedium
	case !signatureValuePattern.MatchString(sig.Value):
		c.Message = "signature value is malformed"
		c.Severity = SeverityHigh
	default:
		c.Passed = true
		c.Message = "signature structure is valid"
		c.Severity = SeverityInfo
	}
	return c
}

func (v *Verifier) checkContentHash(m *manifest.Manifest) Check {
	c := Check{Name: checkHash}
	if m.ContentHash == "" {
		c.Message = "manifest declares no content hash"
		c.Severity = SeverityMedium
		return c
	}
	computed, err := CanonicalHash(m)
	if err != nil {
		panic(err) // recovered by Verify
	}
	if !strings.EqualFold(computed, m.ContentHash) {
		c.Message = "declared content hash does not match manifest content"
		c.Severity = SeverityCritical
		return c
	}
	c.Passed = true
	c.Message = "content hash verified"
	c.Severity = SeverityInfo
	return c
}

func (v *Verifier) checkSource(m *manifest.Manifest) Check {
	c := Check{Name: checkSource}
	if v.trusted[m.Source] {
		c.Passed = true
		c.Message = fmt.Sprintf("source %q is trusted", m.Source)
		c.Severity = SeverityInfo
		return c
	}
	// Unknown sources are flagged, not rejected; policy belongs to the caller.
	if m.Source == "" {
		c.Message = "manifest declares no source"
	} else {
		c.Message = fmt.Sprintf("source %q is not in the trusted list", m.Source)
	}
	c.Severity = SeverityLow
	return c
}

// checkTampering collects indicator-style anomalies into one combined check.
func (v *Verifier) checkTampering(m *manifest.Manifest) Check {
	var issues []string

	if strings.TrimSpace(m.Id) == "" || m.Id != strings.TrimSpace(m.Id) {
		issues = append(issues, "identity field is malformed")
	}

	if v.opts.Production {
		for kind, raw := range m.Endpoints {
			if localEndpoint(raw) {
				issues = append(issues, fmt.Sprintf("endpoint %s targets a local address", kind))
			}
		}
	}

	var unknown []string
	for name := range m.Capabilities {
		if !manifest.KnownCapabilities[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		issues = append(issues, fmt.Sprintf("unknown capabilities requested: %s", strings.Join(unknown, ", ")))
	}

	if m.Version != "" && !versionShapePattern.MatchString(m.Version) {
		issues = append(issues, fmt.Sprintf("version %q is anomalous", m.Version))
	}

	c := Check{Name: checkTamper}
	if len(issues) > 0 {
		c.Message = strings.Join(issues, "; ")
		c.Severity = SeverityHigh
		return c
	}
	c.Passed = true
	c.Message = "no tamper indicators found"
	c.Severity = SeverityInfo
	return c
}

func localEndpoint(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range []string{"localhost", "127.0.0.1", "0.0.0.0", "[::1]", "192.168.", "10.", "172.16."} {
		if strings.Contains(lower, "://"+marker) || strings.Contains(lower, "://www."+marker) {
			return true
		}
	}
	return false
}

func recommendations(checks []Check) []string {
	var recs []string
	for _, c := range checks {
		if c.Passed {
			continue
		}
		switch c.Name {
		case checkSignature:
			recs = append(recs, "obtain a signed build of this plugin before enabling it")
		case checkHash:
			recs = append(recs, "do not install: manifest content may have been tampered with")
		case checkSource:
			recs = append(recs, "exercise caution: plugin comes from an unknown source")
		case checkTamper:
			recs = append(recs, "review the manifest manually; tamper indicators were found")
		}
	}
	return recs
}

// canonicalPayload is the stable subset of a manifest covered by the content
// hash: identity, endpoints and requested capabilities. Map iteration order
// is neutralized by sorting.
type canonicalPayload struct {
	Id           string     `json:"id"`
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Endpoints    [][2]string `json:"endpoints"`
	Capabilities []string   `json:"capabilities"`
}

// CanonicalHash recomputes the sha256 content hash of a manifest. The same
// manifest always yields the same hash.
func CanonicalHash(m *manifest.Manifest) (string, error) {
	p := canonicalPayload{
		Id:      m.Id,
		Name:    m.Name,
		Version: m.Version,
	}

	kinds := make([]string, 0, len(m.Endpoints))
	for kind := range m.Endpoints {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		p.Endpoints = append(p.Endpoints, [2]string{kind, m.Endpoints[kind]})
	}

	p.Capabilities = m.DeclaredCapabilities()
	sort.Strings(p.Capabilities)

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("canonical serialization: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
