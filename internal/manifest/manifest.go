// Package manifest defines the declarative description a third-party upload
// plugin submits at registration time. A manifest is treated as immutable
// once registered; any change requires re-registration, which re-runs the
// whole security pipeline.
package manifest

// Endpoint kinds a manifest may declare. Upload is mandatory.
const (
	EndpointUpload   = "upload"
	EndpointDetect   = "detect"
	EndpointManual   = "manual"
	EndpointValidate = "validate"
	EndpointStatus   = "status"
)

// Capability flags a manifest may request.
const (
	CapFileUpload        = "fileUpload"
	CapManualEntry       = "manualEntry"
	CapBatchProcessing   = "batchProcessing"
	CapImageProcessing   = "imageProcessing"
	CapDataValidation    = "dataValidation"
	CapEncryptionSupport = "encryptionSupport"
)

// KnownCapabilities is the closed set of capability flags a manifest may
// declare. Anything outside this set is treated as an escalation attempt by
// integrity verification.
var KnownCapabilities = map[string]bool{
	CapFileUpload:        true,
	CapManualEntry:       true,
	CapBatchProcessing:   true,
	CapImageProcessing:   true,
	CapDataValidation:    true,
	CapEncryptionSupport: true,
}

// Signature carries the provenance attestation attached by a plugin publisher.
type Signature struct {
	Value     string `json:"value"`
	Algorithm string `json:"algorithm"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// Manifest is the registration-time description of a plugin.
type Manifest struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`

	FileTypes   []string          `json:"fileTypes"`
	MaxFileSize int64             `json:"maxFileSize"`
	Endpoints   map[string]string `json:"endpoints"`

	Capabilities map[string]bool `json:"capabilities"`

	// Provenance, all optional.
	Signature   *Signature `json:"signature,omitempty"`
	ContentHash string     `json:"contentHash,omitempty"`
	Source      string     `json:"source,omitempty"`
}

// DeclaredCapabilities returns the capability flags the manifest requests,
// i.e. those set to true.
func (m *Manifest) DeclaredCapabilities() []string {
	var caps []string
	for name, on := range m.Capabilities {
		if on {
			caps = append(caps, name)
		}
	}
	return caps
}

// HasCapability reports whether the manifest declares the given capability.
func (m *Manifest) HasCapability(name string) bool {
	return m.Capabilities[name]
}
