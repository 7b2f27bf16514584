package conf

// Default returns the configuration used when no config file exists yet.
func Default() Config {
	return Config{
		Listen:    "0.0.0.0:25810",
		AllowCors: false,
		Database: Database{
			DatabaseType: "sqlite",
			DatabaseFile: "./data/plugward.db",
		},
		Security: Security{
			Production:              false,
			TrustedSources:          []string{"official", "verified-partner"},
			RateLimitMax:            100,
			RateLimitWindowSeconds:  60,
			ExecutionTimeoutSeconds: 30,
			MaxPayloadBytes:         1 << 20, // 1MiB
			MaxMemoryBytes:          50 << 20,
			SlowOperationMillis:     5000,
			AuditPreserveHours:      720,
		},
	}
}
