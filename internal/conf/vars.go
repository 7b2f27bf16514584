package conf

var (
	// Conf is the live configuration. Replaced wholesale on reload; listeners
	// of eventType.ConfigUpdated observe the swap.
	Conf *Config
)

type Config struct {
	Listen    string   `json:"listen"`
	AllowCors bool     `json:"allow_cors"`
	Database  Database `json:"database"`
	Security  Security `json:"security"`
}

type Database struct {
	DatabaseType string `json:"database_type"` // sqlite (default) or mysql
	DatabaseFile string `json:"database_file"`
	DatabaseHost string `json:"database_host"`
	DatabasePort string `json:"database_port"`
	DatabaseUser string `json:"database_user"`
	DatabasePass string `json:"database_pass"`
	DatabaseName string `json:"database_name"`
}

type Security struct {
	Production              bool     `json:"production"`                // stricter endpoint checks: https required, no private hosts
	TrustedSources          []string `json:"trusted_sources"`           // manifest source values accepted by integrity verification
	RateLimitMax            int      `json:"rate_limit_max"`            // requests per plugin per window
	RateLimitWindowSeconds  int      `json:"rate_limit_window_seconds"` // sliding window length
	ExecutionTimeoutSeconds int      `json:"execution_timeout_seconds"` // default per-operation timeout
	MaxPayloadBytes         int64    `json:"max_payload_bytes"`         // outbound request payload ceiling
	MaxMemoryBytes          uint64   `json:"max_memory_bytes"`          // advisory per-operation memory ceiling
	SlowOperationMillis     int      `json:"slow_operation_millis"`     // successful operations slower than this are logged
	AuditPreserveHours      int      `json:"audit_preserve_hours"`      // audit rows older than this are pruned
}
