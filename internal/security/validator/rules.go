package validator

import "regexp"

const (
	maxEndpointURLLength = 200

	// Hard ceiling on declared maxFileSize; anything above is rejected.
	maxFileSizeCeiling = int64(100 << 20) // 100MiB
	// Softer threshold; sizes above it are flagged but accepted.
	maxFileSizeSoft = int64(50 << 20) // 50MiB
)

var idPattern = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)

// Substrings never allowed in a plugin id, regardless of syntax.
var sensitiveIdSubstrings = []string{"admin", "system", "root", "config", "__"}

// Optional leading v, MAJOR.MINOR.PATCH, optional pre-release suffix.
var versionPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// Extensions that can carry or unpack executable content. Always rejected.
var dangerousFileTypes = map[string]bool{
	"exe": true, "bat": true, "cmd": true, "com": true, "scr": true,
	"pif": true, "msi": true, "dll": true, "vbs": true, "js": true,
	"jse": true, "wsf": true, "ps1": true, "sh": true, "jar": true,
	"apk": true, "app": true, "deb": true, "rpm": true, "dmg": true,
	"iso": true, "gadget": true,
}

// Extensions an upload plugin commonly handles. Anything outside this list
// is flagged, not blocked.
var commonSafeFileTypes = map[string]bool{
	"csv": true, "xls": true, "xlsx": true, "pdf": true, "txt": true,
	"json": true, "xml": true, "doc": true, "docx": true,
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"heic": true, "tiff": true, "bmp": true,
}

// Patterns checked against manifest free text and serialized endpoints.
// Matches are advisory: descriptions legitimately mention these tokens often
// enough that a hard block would reject honest manifests.
var suspiciousContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)document\.`),
	regexp.MustCompile(`(?i)window\.`),
}
