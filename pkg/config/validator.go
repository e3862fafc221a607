package config

import (
	"fmt"
	"net/netip"
	"net/url"

	"github.com/Masterminds/semver/v3"

	"github.com/openagora/agora/pkg/models"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	// Validate sections first, then seeds: listings cross-reference the
	// external agent seeds, so agents are validated before listings.

	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateProxy(); err != nil {
		return fmt.Errorf("proxy validation failed: %w", err)
	}

	if err := v.validateStreams(); err != nil {
		return fmt.Errorf("streams validation failed: %w", err)
	}

	if err := v.validateWebhooks(); err != nil {
		return fmt.Errorf("webhooks validation failed: %w", err)
	}

	if err := v.validateExternalAgents(); err != nil {
		return fmt.Errorf("external agent validation failed: %w", err)
	}

	if err := v.validateListings(); err != nil {
		return fmt.Errorf("listing validation failed: %w", err)
	}

	if err := v.validateVersions(); err != nil {
		return fmt.Errorf("version validation failed: %w", err)
	}

	if err := v.validatePolicies(); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s.Port < 1 || s.Port > 65535 {
		return NewValidationError("server", "server", "port", fmt.Errorf("must be between 1 and 65535, got %d", s.Port))
	}
	return nil
}

func (v *ConfigValidator) validateQueue() error {
	q := v.cfg.Queue
	if q.WorkerCount < 1 {
		return NewValidationError("queue", "queue", "worker_count", fmt.Errorf("must be at least 1, got %d", q.WorkerCount))
	}
	if q.RunTimeout <= 0 {
		return NewValidationError("queue", "queue", "run_timeout", fmt.Errorf("must be positive"))
	}
	if q.DefaultQuotas.MaxPerWindow > 0 && q.RateWindow <= 0 {
		return NewValidationError("queue", "queue", "rate_window", fmt.Errorf("must be positive when max_per_window is set"))
	}
	return nil
}

func (v *ConfigValidator) validateProxy() error {
	p := v.cfg.Proxy
	if p.MaxConcurrency < 1 {
		return NewValidationError("proxy", "proxy", "max_concurrency", fmt.Errorf("must be at least 1, got %d", p.MaxConcurrency))
	}
	if p.RequestTimeout <= 0 {
		return NewValidationError("proxy", "proxy", "request_timeout", fmt.Errorf("must be positive"))
	}
	if p.CircuitErrorRate <= 0 || p.CircuitErrorRate > 1 {
		return NewValidationError("proxy", "proxy", "circuit_error_rate", fmt.Errorf("must be in (0, 1], got %g", p.CircuitErrorRate))
	}
	if p.Retry.Multiplier < 1 {
		return NewValidationError("proxy", "proxy", "retry.multiplier", fmt.Errorf("must be at least 1, got %g", p.Retry.Multiplier))
	}
	return nil
}

func (v *ConfigValidator) validateStreams() error {
	s := v.cfg.Streams
	if s.SubscriberBuffer < 1 {
		return NewValidationError("streams", "streams", "subscriber_buffer", fmt.Errorf("must be at least 1, got %d", s.SubscriberBuffer))
	}
	if s.SyncWait <= 0 {
		return NewValidationError("streams", "streams", "sync_wait", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *ConfigValidator) validateWebhooks() error {
	w := v.cfg.Webhooks
	if w.Workers < 1 {
		return NewValidationError("webhooks", "webhooks", "workers", fmt.Errorf("must be at least 1, got %d", w.Workers))
	}
	if w.MaxAttempts < 1 {
		return NewValidationError("webhooks", "webhooks", "max_attempts", fmt.Errorf("must be at least 1, got %d", w.MaxAttempts))
	}
	return nil
}

func (v *ConfigValidator) validateExternalAgents() error {
	seen := make(map[string]bool, len(v.cfg.ExternalAgents))
	for _, agent := range v.cfg.ExternalAgents {
		if agent.ID == "" {
			return NewValidationError("external_agent", "(unnamed)", "id", ErrMissingRequiredField)
		}
		if seen[agent.ID] {
			return NewValidationError("external_agent", agent.ID, "id", fmt.Errorf("duplicate agent id"))
		}
		seen[agent.ID] = true

		if agent.BaseURL == "" {
			return NewValidationError("external_agent", agent.ID, "base_url", ErrMissingRequiredField)
		}
		u, err := url.Parse(agent.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return NewValidationError("external_agent", agent.ID, "base_url", fmt.Errorf("must be an absolute http(s) URL: %s", agent.BaseURL))
		}

		switch agent.Streaming {
		case "", models.StreamProtocolSSE, models.StreamProtocolWebSocket, models.StreamProtocolChunked, models.StreamProtocolNone:
		default:
			return NewValidationError("external_agent", agent.ID, "streaming", fmt.Errorf("invalid protocol: %s", agent.Streaming))
		}

		switch agent.Auth.Method {
		case "", models.AuthMethodNone, models.AuthMethodAPIKey, models.AuthMethodBearer, models.AuthMethodBasic:
		default:
			return NewValidationError("external_agent", agent.ID, "auth.method", fmt.Errorf("invalid method: %s", agent.Auth.Method))
		}
	}
	return nil
}

func (v *ConfigValidator) validateListings() error {
	agents := make(map[string]bool, len(v.cfg.ExternalAgents))
	for _, a := range v.cfg.ExternalAgents {
		agents[a.ID] = true
	}

	seen := make(map[string]bool, len(v.cfg.Listings))
	for _, l := range v.cfg.Listings {
		if l.AgentID == "" {
			return NewValidationError("listing", "(unnamed)", "agent_id", ErrMissingRequiredField)
		}
		if seen[l.AgentID] {
			return NewValidationError("listing", l.AgentID, "agent_id", fmt.Errorf("duplicate listing"))
		}
		seen[l.AgentID] = true

		if l.Name == "" {
			return NewValidationError("listing", l.AgentID, "name", ErrMissingRequiredField)
		}
		if l.Kind != "local" && l.Kind != "external" {
			return NewValidationError("listing", l.AgentID, "kind", fmt.Errorf("must be local or external, got %q", l.Kind))
		}
		if l.Tier != "" && l.Tier != "free" && l.Tier != "standard" && l.Tier != "premium" {
			return NewValidationError("listing", l.AgentID, "tier", fmt.Errorf("must be free, standard or premium, got %q", l.Tier))
		}

		// Seeded external listings must reference a seeded agent; otherwise
		// the marketplace advertises something nothing can dispatch to.
		if l.Kind == "external" && !agents[l.AgentID] {
			return NewValidationError("listing", l.AgentID, "agent_id", fmt.Errorf("external agent '%s' not found", l.AgentID))
		}
	}
	return nil
}

func (v *ConfigValidator) validateVersions() error {
	seen := make(map[string]bool, len(v.cfg.Versions))
	for _, ver := range v.cfg.Versions {
		if ver.ArtifactID == "" {
			return NewValidationError("version", "(unnamed)", "artifact_id", ErrMissingRequiredField)
		}
		if seen[ver.ArtifactID] {
			return NewValidationError("version", ver.ArtifactID, "artifact_id", fmt.Errorf("duplicate version record"))
		}
		seen[ver.ArtifactID] = true

		if ver.Kind != "agent" && ver.Kind != "tool" {
			return NewValidationError("version", ver.ArtifactID, "kind", fmt.Errorf("must be agent or tool, got %q", ver.Kind))
		}
		if _, err := semver.NewVersion(ver.Version); err != nil {
			return NewValidationError("version", ver.ArtifactID, "version", fmt.Errorf("invalid semver %q", ver.Version))
		}
		if ver.MinCompatibleVersion != "" {
			if _, err := semver.NewVersion(ver.MinCompatibleVersion); err != nil {
				return NewValidationError("version", ver.ArtifactID, "min_compatible_version", fmt.Errorf("invalid semver %q", ver.MinCompatibleVersion))
			}
		}
	}
	return nil
}

func (v *ConfigValidator) validatePolicies() error {
	for _, p := range v.cfg.Policies {
		if p.Name == "" {
			return NewValidationError("policy", "(unnamed)", "name", ErrMissingRequiredField)
		}
		if p.Effect != string(models.EffectAllow) && p.Effect != string(models.EffectDeny) {
			return NewValidationError("policy", p.Name, "effect", fmt.Errorf("must be allow or deny, got %q", p.Effect))
		}
		if len(p.Actions.Allowed) == 0 && len(p.Actions.Denied) == 0 {
			return NewValidationError("policy", p.Name, "actions", fmt.Errorf("at least one allowed or denied action required"))
		}

		for _, set := range [][]models.Condition{p.SubjectConditions, p.ResourceConditions, p.EnvironmentConditions} {
			for _, cond := range set {
				if cond.Attribute == "" {
					return NewValidationError("policy", p.Name, "conditions", fmt.Errorf("condition attribute is required"))
				}
				if !validOperator(cond.Operator) {
					return NewValidationError("policy", p.Name, "conditions", fmt.Errorf("invalid operator: %s", cond.Operator))
				}
			}
		}

		if tr := p.TimeRestrictions; tr != nil {
			if tr.StartHour != nil && (*tr.StartHour < 0 || *tr.StartHour > 23) {
				return NewValidationError("policy", p.Name, "time_restrictions.start_hour", fmt.Errorf("must be 0-23, got %d", *tr.StartHour))
			}
			if tr.EndHour != nil && (*tr.EndHour < 0 || *tr.EndHour > 23) {
				return NewValidationError("policy", p.Name, "time_restrictions.end_hour", fmt.Errorf("must be 0-23, got %d", *tr.EndHour))
			}
			for _, day := range tr.DaysOfWeek {
				if day < 0 || day > 6 {
					return NewValidationError("policy", p.Name, "time_restrictions.days_of_week", fmt.Errorf("must be 0-6, got %d", day))
				}
			}
		}

		if ir := p.IPRestrictions; ir != nil {
			for _, cidr := range append(append([]string{}, ir.Allowed...), ir.Blocked...) {
				if _, err := netip.ParsePrefix(cidr); err != nil {
					if _, err := netip.ParseAddr(cidr); err != nil {
						return NewValidationError("policy", p.Name, "ip_restrictions", fmt.Errorf("invalid CIDR or address: %s", cidr))
					}
				}
			}
		}
	}
	return nil
}

func validOperator(op string) bool {
	switch op {
	case models.OpEquals, models.OpNotEquals,
		models.OpContains, models.OpNotContains,
		models.OpIn, models.OpNotIn,
		models.OpGreaterThan, models.OpLessThan, models.OpBetween,
		models.OpMatchesRegex, models.OpStartsWith, models.OpEndsWith,
		models.OpIsNull, models.OpIsNotNull:
		return true
	}
	return false
}
