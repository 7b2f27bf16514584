// Package plugin runs the admission pipeline that every manifest passes
// before its plugin may execute: validation, integrity verification,
// capability provisioning and persistence. Accepted plugins execute inside
// the sandbox through a capability-constrained JS environment.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/event"
	"github.com/patrickmn/go-cache"
	"github.com/plugward/plugward/internal/database/auditlog"
	"github.com/plugward/plugward/internal/database/models"
	"github.com/plugward/plugward/internal/database/plugins"
	"github.com/plugward/plugward/internal/eventType"
	"github.com/plugward/plugward/internal/jsenv"
	"github.com/plugward/plugward/internal/manifest"
	"github.com/plugward/plugward/internal/security/integrity"
	"github.com/plugward/plugward/internal/security/permission"
	"github.com/plugward/plugward/internal/security/sandbox"
	"github.com/plugward/plugward/internal/security/validator"
	"gorm.io/gorm"
)

var (
	ErrPluginNotFound  = errors.New("plugin not found")
	ErrPluginDisabled  = errors.New("plugin is disabled")
	ErrPayloadRejected = errors.New("request payload rejected")
)

// Pipeline owns the four security stages and the per-plugin JS environments.
type Pipeline struct {
	validator *validator.Validator
	verifier  *integrity.Verifier
	perms     *permission.Manager
	exec      *sandbox.Executor

	envs *cache.Cache // plugin id -> *jsenv.Env
	kv   *jsenv.RamKv
}

func NewPipeline(v *validator.Validator, iv *integrity.Verifier, pm *permission.Manager, ex *sandbox.Executor) *Pipeline {
	return &Pipeline{
		validator: v,
		verifier:  iv,
		perms:     pm,
		exec:      ex,
		envs:      cache.New(cache.NoExpiration, 10*time.Minute),
		kv:        jsenv.NewRamKv(),
	}
}

// RegisterOutcome is what a registration attempt produced. Validation is
// always present; Integrity only when validation passed.
type RegisterOutcome struct {
	Accepted   bool              `json:"accepted"`
	Reason     string            `json:"reason,omitempty"`
	Validation *validator.Result `json:"validation"`
	Integrity  *integrity.Report `json:"integrity,omitempty"`
}

// Register runs a manifest through validation and integrity verification,
// persists it on acceptance and provisions its initial capability grants.
func (p *Pipeline) Register(m *manifest.Manifest) (*RegisterOutcome, error) {
	res := p.validator.Validate(m)
	if !res.Valid {
		out := &RegisterOutcome{Validation: res, Reason: "manifest validation failed"}
		id := ""
		if m != nil {
			id = m.Id
		}
		auditlog.Log(id, "rejection", "manifest validation failed", strings.Join(res.Errors, "; "))
		event.Async(eventType.PluginRejected, event.M{"plugin": id, "errors": res.Errors})
		return out, nil
	}

	check := p.verifier.Verify(m)
	report := integrity.NewReport(m.Id, check)
	if !check.Valid {
		auditlog.Log(m.Id, "rejection", "integrity verification failed", report.Summary)
		event.Async(eventType.PluginIntegrityFailed, event.M{"plugin": m.Id, "trust": check.TrustScore})
		return &RegisterOutcome{
			Validation: res,
			Integrity:  report,
			Reason:     "integrity verification failed",
		}, nil
	}

	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	rec := &models.Plugin{
		Id:              m.Id,
		Name:            m.Name,
		Version:         m.Version,
		Source:          m.Source,
		Body:            string(body),
		ValidationLevel: string(res.Level),
		TrustScore:      check.TrustScore,
		RiskLevel:       string(check.RiskLevel),
		Enabled:         true,
	}
	if err := plugins.Save(rec); err != nil {
		return nil, fmt.Errorf("persist plugin: %w", err)
	}

	if err := p.perms.AutoGrant(m.Id, m.DeclaredCapabilities()); err != nil {
		return nil, fmt.Errorf("provision grants: %w", err)
	}
	if err := plugins.UpdateGrants(m.Id, p.perms.Get(m.Id)); err != nil {
		return nil, fmt.Errorf("persist grants: %w", err)
	}
	p.envs.Delete(m.Id)

	auditlog.Log(m.Id, "registration", "plugin registered",
		fmt.Sprintf("version %s, level %s, trust %.0f%%", m.Version, res.Level, check.TrustScore))
	event.Async(eventType.PluginRegistered, event.M{
		"plugin": m.Id,
		"level":  string(res.Level),
		"trust":  check.TrustScore,
	})

	return &RegisterOutcome{Accepted: true, Validation: res, Integrity: report}, nil
}

// Report re-verifies a stored plugin and returns a fresh integrity report
// alongside the validation level recorded at admission.
func (p *Pipeline) Report(pluginId string) (*integrity.Report, *models.Plugin, error) {
	rec, err := plugins.Get(pluginId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPluginNotFound
		}
		return nil, nil, err
	}
	m, err := plugins.Manifest(rec)
	if err != nil {
		return nil, nil, err
	}
	check := p.verifier.Verify(m)
	return integrity.NewReport(pluginId, check), rec, nil
}

// ExecuteRequest describes one sandboxed operation. Script is evaluated
// first when present; Function is then called with Args. Payload, when set,
// passes through request screening before anything runs.
type ExecuteRequest struct {
	Operation string          `json:"operation,omitempty"`
	Script    string          `json:"script,omitempty"`
	Function  string          `json:"function,omitempty"`
	Args      []any           `json:"args,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	TimeoutMs int             `json:"timeout_ms,omitempty"`
}

// Execute runs one operation for a registered plugin under the sandbox's
// rate, time and payload constraints.
func (p *Pipeline) Execute(ctx context.Context, pluginId string, req *ExecuteRequest) (any, error) {
	rec, err := plugins.Get(pluginId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPluginNotFound
		}
		return nil, err
	}
	if !rec.Enabled {
		return nil, ErrPluginDisabled
	}

	if len(req.Payload) > 0 {
		check := p.exec.ValidateRequest(pluginId, req.Payload)
		if !check.Secure {
			auditlog.Log(pluginId, "sandbox", "payload rejected",
				fmt.Sprintf("risk %s: %s", check.RiskLevel, strings.Join(check.Issues, "; ")))
			return nil, fmt.Errorf("%w: %s", ErrPayloadRejected, strings.Join(check.Issues, "; "))
		}
	}

	if req.Operation != "" {
		decision := p.perms.CheckOperation(pluginId, req.Operation)
		if !decision.Allowed {
			auditlog.Log(pluginId, "permission", "operation denied",
				fmt.Sprintf("%s requires %s", req.Operation, strings.Join(decision.Missing, ", ")))
			event.Async(eventType.PluginPermissionDenied, event.M{
				"plugin":    pluginId,
				"operation": req.Operation,
				"missing":   decision.Missing,
			})
			return nil, &permission.CapabilityError{PluginId: pluginId, Capability: decision.Missing[0]}
		}
	}

	env, err := p.envFor(pluginId)
	if err != nil {
		return nil, err
	}

	op := func(_ context.Context) (any, error) {
		if req.Script != "" {
			if _, err := env.RunScript(req.Script); err != nil {
				return nil, err
			}
		}
		if req.Function != "" {
			v, err := env.Call(req.Function, req.Args...)
			if err != nil {
				return nil, err
			}
			return v.Export(), nil
		}
		return nil, nil
	}

	var opts []sandbox.ExecOption
	if req.TimeoutMs > 0 {
		opts = append(opts, sandbox.WithTimeout(time.Duration(req.TimeoutMs)*time.Millisecond))
	}
	result, err := p.exec.Execute(ctx, pluginId, op, opts...)
	if err != nil {
		if errors.Is(err, sandbox.ErrRateLimited) || errors.Is(err, sandbox.ErrExecutionTimeout) {
			auditlog.Log(pluginId, "sandbox", "operation refused", err.Error())
		} else {
			auditlog.Log(pluginId, "execution", "operation failed", err.Error())
		}
		return nil, err
	}
	return result, nil
}

// Grants returns the plugin's effective permission record.
func (p *Pipeline) Grants(pluginId string) permission.Permissions {
	return p.perms.Get(pluginId)
}

// UpdateGrants merges a capability patch, persists the result and drops the
// cached JS environment so the next execution sees the new grants.
func (p *Pipeline) UpdateGrants(pluginId string, patch map[string]bool) (permission.Permissions, error) {
	if _, err := plugins.Get(pluginId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return permission.Permissions{}, ErrPluginNotFound
		}
		return permission.Permissions{}, err
	}
	if err := p.perms.Grant(pluginId, patch); err != nil {
		return permission.Permissions{}, err
	}
	effective := p.perms.Get(pluginId)
	if err := plugins.UpdateGrants(pluginId, effective); err != nil {
		return permission.Permissions{}, err
	}
	p.envs.Delete(pluginId)
	auditlog.Log(pluginId, "permission", "grants updated", fmt.Sprintf("%v", patch))
	return effective, nil
}

// Remove deletes a plugin, revokes its grants and cancels anything it still
// has running.
func (p *Pipeline) Remove(pluginId string) error {
	if _, err := plugins.Get(pluginId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPluginNotFound
		}
		return err
	}
	cancelled := p.exec.CancelPlugin(pluginId)
	p.perms.RevokeAll(pluginId)
	p.envs.Delete(pluginId)
	if err := plugins.Delete(pluginId); err != nil {
		return err
	}
	auditlog.Log(pluginId, "registration", "plugin removed",
		fmt.Sprintf("%d running operations cancelled", cancelled))
	return nil
}

// envFor returns the plugin's cached JS environment, building it from the
// current grants on first use. Grant changes invalidate the cache so the
// capability dispatch is re-resolved.
func (p *Pipeline) envFor(pluginId string) (*jsenv.Env, error) {
	if cached, found := p.envs.Get(pluginId); found {
		return cached.(*jsenv.Env), nil
	}
	b := jsenv.NewBuilder(pluginId).
		WithSanitizedConsole().
		WithBoundedJSON().
		WithMemoryKv(p.kv).
		WithInjector(hostInjector(p.perms.Context(pluginId)))
	if p.perms.Has(pluginId, permission.CapNetworkAccess) {
		b = b.WithRestrictedFetch(&http.Client{Timeout: 10 * time.Second})
	}
	env, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build js environment for %s: %w", pluginId, err)
	}
	p.envs.Set(pluginId, env, cache.NoExpiration)
	return env, nil
}
