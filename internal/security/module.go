// Package security wires the four admission-and-execution stages into the
// dependency graph: manifest validation, integrity verification, capability
// grants and sandboxed execution.
package security

import (
	"time"

	"github.com/plugward/plugward/internal/conf"
	"github.com/plugward/plugward/internal/security/integrity"
	"github.com/plugward/plugward/internal/security/permission"
	"github.com/plugward/plugward/internal/security/sandbox"
	"github.com/plugward/plugward/internal/security/validator"
	"go.uber.org/fx"
)

func FxModule() fx.Option {
	return fx.Provide(
		provideValidator,
		provideVerifier,
		providePermissionManager,
		provideExecutor,
	)
}

func provideValidator(cfg *conf.Config) *validator.Validator {
	return validator.New(validator.Options{
		Production:     cfg.Security.Production,
		TrustedSources: cfg.Security.TrustedSources,
	})
}

func provideVerifier(cfg *conf.Config) *integrity.Verifier {
	return integrity.New(integrity.Options{
		Production:     cfg.Security.Production,
		TrustedSources: cfg.Security.TrustedSources,
	})
}

func providePermissionManager() *permission.Manager {
	return permission.NewManager()
}

func provideExecutor(cfg *conf.Config) *sandbox.Executor {
	return sandbox.New(sandbox.Config{
		RateLimitMax:    cfg.Security.RateLimitMax,
		RateLimitWindow: time.Duration(cfg.Security.RateLimitWindowSeconds) * time.Second,
		DefaultTimeout:  time.Duration(cfg.Security.ExecutionTimeoutSeconds) * time.Second,
		MaxPayloadBytes: cfg.Security.MaxPayloadBytes,
		MaxMemoryBytes:  cfg.Security.MaxMemoryBytes,
		SlowThreshold:   time.Duration(cfg.Security.SlowOperationMillis) * time.Millisecond,
	})
}
