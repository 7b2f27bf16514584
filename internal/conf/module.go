package conf

import (
	"encoding/json"
	"os"

	"github.com/gookit/event"
	"github.com/plugward/plugward/cmd/flags"
	"github.com/plugward/plugward/internal/eventType"
	"go.uber.org/fx"
)

// FxModule provides the configuration loader and associated startup side-effects.
//
// It loads configuration and also keeps the global variable Conf updated so
// packages outside the fx graph can read it.
func FxModule() fx.Option {
	return fx.Options(
		fx.Provide(loadConfig),
		fx.Invoke(announceConfig),
	)
}

func loadConfig() (*Config, error) {
	var cst *Config
	if _, err := os.Stat(flags.ConfigFile); os.IsNotExist(err) {
		t := Default()
		cst = &t

		b, err := json.MarshalIndent(cst, "", "  ")
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(flags.ConfigFile, b, 0644); err != nil {
			return nil, err
		}
	} else {
		b, err := os.ReadFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}

		cst = &Config{}
		if err := json.Unmarshal(b, cst); err != nil {
			return nil, err
		}
	}

	applyDefaults(cst)
	if flags.Listen != "" {
		cst.Listen = flags.Listen
	}
	Conf = cst
	return Conf, nil
}

func announceConfig(cfg *Config) error {
	err, _ := event.Trigger(eventType.ConfigUpdated, event.M{
		"old": Config{},
		"new": *cfg,
	})
	return err
}

// applyDefaults fills zero-value security knobs so a hand-edited config file
// that omits a field does not disable the corresponding guardrail.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Security.RateLimitMax <= 0 {
		cfg.Security.RateLimitMax = def.Security.RateLimitMax
	}
	if cfg.Security.RateLimitWindowSeconds <= 0 {
		cfg.Security.RateLimitWindowSeconds = def.Security.RateLimitWindowSeconds
	}
	if cfg.Security.ExecutionTimeoutSeconds <= 0 {
		cfg.Security.ExecutionTimeoutSeconds = def.Security.ExecutionTimeoutSeconds
	}
	if cfg.Security.MaxPayloadBytes <= 0 {
		cfg.Security.MaxPayloadBytes = def.Security.MaxPayloadBytes
	}
	if cfg.Security.MaxMemoryBytes == 0 {
		cfg.Security.MaxMemoryBytes = def.Security.MaxMemoryBytes
	}
	if cfg.Security.SlowOperationMillis <= 0 {
		cfg.Security.SlowOperationMillis = def.Security.SlowOperationMillis
	}
	if cfg.Security.AuditPreserveHours <= 0 {
		cfg.Security.AuditPreserveHours = def.Security.AuditPreserveHours
	}
	if len(cfg.Security.TrustedSources) == 0 {
		cfg.Security.TrustedSources = def.Security.TrustedSources
	}
	if cfg.Database.DatabaseType == "" {
		cfg.Database.DatabaseType = def.Database.DatabaseType
	}
	if cfg.Database.DatabaseFile == "" {
		cfg.Database.DatabaseFile = def.Database.DatabaseFile
	}
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
}
