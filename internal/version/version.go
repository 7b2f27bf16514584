package version

// Set at build time via -ldflags.
var (
	CurrentVersion = "dev"
	VersionHash    = "unknown"
)
