// Package validator performs static structural validation of plugin
// manifests. All checks run even when earlier ones fail, so one pass yields
// the full defect list. Errors block registration; warnings are advisory.
package validator

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/plugward/plugward/internal/manifest"
)

// Level classifies a validation outcome.
type Level string

const (
	LevelSecure   Level = "secure"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelCritical Level = "critical"
)

// Result accumulates the outcome of one Validate call.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Level    Level    `json:"level"`
}

type Options struct {
	// Production tightens endpoint checks: private/loopback hosts become
	// errors and plain http becomes a warning.
	Production bool
	// TrustedSources suppresses the capability co-occurrence warnings for
	// manifests declaring one of these source values.
	TrustedSources []string
}

type Validator struct {
	opts    Options
	trusted map[string]bool
}

func New(opts Options) *Validator {
	trusted := make(map[string]bool, len(opts.TrustedSources))
	for _, s := range opts.TrustedSources {
		trusted[s] = true
	}
	return &Validator{opts: opts, trusted: trusted}
}

// Validate runs every check family against m and derives the security level
// from the error and warning counts. It never returns nil.
func (v *Validator) Validate(m *manifest.Manifest) *Result {
	res := &Result{}
	if m == nil {
		res.addError("manifest is nil")
		res.finish()
		return res
	}

	v.checkRequiredFields(m, res)
	v.checkIdentifier(m, res)
	v.checkVersion(m, res)
	v.checkEndpoints(m, res)
	v.checkFileTypes(m, res)
	v.checkMaxFileSize(m, res)
	v.checkCapabilityHeuristics(m, res)
	v.checkContent(m, res)

	res.finish()
	return res
}

func (r *Result) addError(format string, a ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, a...))
}

func (r *Result) addWarning(format string, a ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, a...))
}

// finish derives Valid and Level. Any error is critical; more than three
// warnings is medium; any warning is low; otherwise secure.
func (r *Result) finish() {
	r.Valid = len(r.Errors) == 0
	switch {
	case len(r.Errors) > 0:
		r.Level = LevelCritical
	case len(r.Warnings) > 3:
		r.Level = LevelMedium
	case len(r.Warnings) > 0:
		r.Level = LevelLow
	default:
		r.Level = LevelSecure
	}
}

func (v *Validator) checkRequiredFields(m *manifest.Manifest, res *Result) {
	if m.Id == "" {
		res.addError("missing required field: id")
	}
	if m.Name == "" {
		res.addError("missing required field: name")
	}
	if m.Version == "" {
		res.addError("missing required field: version")
	}
	if m.Endpoints[manifest.EndpointUpload] == "" {
		res.addError("missing required field: endpoints.upload")
	}
	if len(m.FileTypes) == 0 {
		res.addError("missing required field: fileTypes")
	}
}

func (v *Validator) checkIdentifier(m *manifest.Manifest, res *Result) {
	if m.Id == "" {
		return // already reported as missing
	}
	if !idPattern.MatchString(m.Id) {
		res.addError("plugin id %q must be 3-50 lowercase alphanumeric characters or hyphens", m.Id)
	}
	for _, s := range sensitiveIdSubstrings {
		if strings.Contains(m.Id, s) {
			res.addError("plugin id %q contains reserved substring %q", m.Id, s)
		}
	}
}

func (v *Validator) checkVersion(m *manifest.Manifest, res *Result) {
	if m.Version == "" {
		return
	}
	if !versionPattern.MatchString(m.Version) {
		res.addWarning("version %q is not a semantic version (expected MAJOR.MINOR.PATCH)", m.Version)
	}
}

func (v *Validator) checkEndpoints(m *manifest.Manifest, res *Result) {
	// Deterministic order so result diffs are stable.
	kinds := make([]string, 0, len(m.Endpoints))
	for kind := range m.Endpoints {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		raw := m.Endpoints[kind]
		if raw == "" {
			continue
		}
		if len(raw) > maxEndpointURLLength {
			res.addError("endpoint %s exceeds %d characters", kind, maxEndpointURLLength)
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			res.addError("endpoint %s is not an absolute URL: %q", kind, raw)
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			res.addError("endpoint %s uses unsupported scheme %q", kind, u.Scheme)
			continue
		}
		if v.opts.Production {
			if isPrivateHost(u.Hostname()) {
				res.addError("endpoint %s points at a private or loopback host %q", kind, u.Hostname())
			}
			if u.Scheme == "http" {
				res.addWarning("endpoint %s uses http; https is required in production", kind)
			}
		}
		if strings.Contains(u.Path, "..") || strings.Contains(u.Path, "//") {
			res.addError("endpoint %s path contains a traversal sequence", kind)
		}
	}
}

func (v *Validator) checkFileTypes(m *manifest.Manifest, res *Result) {
	for _, ft := range m.FileTypes {
		norm := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ft), "."))
		if norm == "" {
			continue
		}
		if dangerousFileTypes[norm] {
			res.addError("dangerous file type not allowed: %s", norm)
			continue
		}
		if !commonSafeFileTypes[norm] {
			res.addWarning("uncommon file type: %s", norm)
		}
	}
}

func (v *Validator) checkMaxFileSize(m *manifest.Manifest, res *Result) {
	if m.MaxFileSize <= 0 {
		res.addError("maxFileSize must be a positive number of bytes")
		return
	}
	if m.MaxFileSize > maxFileSizeCeiling {
		res.addError("maxFileSize %d exceeds the %d byte ceiling", m.MaxFileSize, maxFileSizeCeiling)
		return
	}
	if m.MaxFileSize > maxFileSizeSoft {
		res.addWarning("maxFileSize %d is unusually large", m.MaxFileSize)
	}
}

// checkCapabilityHeuristics flags capability combinations that widen the
// attack surface. Trusted-source manifests are exempt.
func (v *Validator) checkCapabilityHeuristics(m *manifest.Manifest, res *Result) {
	if v.trusted[m.Source] {
		return
	}
	if m.HasCapability(manifest.CapBatchProcessing) && m.HasCapability(manifest.CapFileUpload) {
		res.addWarning("capability combination batchProcessing+fileUpload allows bulk exfiltration; review before enabling")
	}
	if m.HasCapability(manifest.CapImageProcessing) && m.HasCapability(manifest.CapBatchProcessing) {
		res.addWarning("capability combination imageProcessing+batchProcessing is resource intensive; review before enabling")
	}
}

func (v *Validator) checkContent(m *manifest.Manifest, res *Result) {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('\n')
	sb.WriteString(m.Description)
	kinds := make([]string, 0, len(m.Endpoints))
	for kind := range m.Endpoints {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		sb.WriteByte('\n')
		sb.WriteString(kind)
		sb.WriteByte('=')
		sb.WriteString(m.Endpoints[kind])
	}
	text := sb.String()

	for _, p := range suspiciousContentPatterns {
		if p.MatchString(text) {
			res.addWarning("manifest content matches suspicious pattern %q", p.String())
		}
	}
}

// isPrivateHost reports whether the hostname resolves textually to a
// loopback, link-local or RFC1918 address, or is a well-known local name.
// No DNS lookup is performed; this is a static check.
func isPrivateHost(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".local") || lower == "0.0.0.0" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
