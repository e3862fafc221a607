// Package policy implements attribute-based access control. Policies are
// evaluated in ascending priority order against a cached in-memory policy
// set; the first matching policy decides, and no match denies. Every
// evaluation leaves a best-effort audit record.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openagora/agora/ent"
	entpolicy "github.com/openagora/agora/ent/policy"
	"github.com/openagora/agora/ent/policyaudit"
	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/models"
)

// Engine answers access requests and manages the policy store. Evaluation
// reads only the in-memory cache, so a database outage degrades to the last
// loaded policy set rather than failing requests.
type Engine struct {
	client *ent.Client
	cache  *cache
}

// NewEngine creates a policy engine. Call Start to load the cache and begin
// periodic refresh; until the first load the policy set is empty and every
// request is denied.
func NewEngine(client *ent.Client, cfg *config.PolicyConfig) *Engine {
	if client == nil {
		panic("policy.NewEngine: client must not be nil")
	}
	if cfg == nil {
		cfg = config.DefaultPolicyConfig()
	}
	return &Engine{
		client: client,
		cache:  newCache(client, cfg.CacheRefreshInterval),
	}
}

// Start performs the initial policy load and starts the background
// refresher.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.cache.refresh(ctx); err != nil {
		return fmt.Errorf("initial policy load failed: %w", err)
	}
	e.cache.start()
	return nil
}

// Stop halts the background refresher and waits for it to exit.
func (e *Engine) Stop() {
	e.cache.stop()
}

// Evaluate answers one access request. The decision is deterministic for a
// given policy set; the only side effect is the audit append, which runs on
// a detached context so a cancelled request still leaves its trail.
func (e *Engine) Evaluate(_ context.Context, req *models.AccessRequest) *models.Decision {
	start := time.Now()
	decision := e.decide(req, start)
	decision.Elapsed = time.Since(start)
	e.audit(req, decision)
	return decision
}

// decide scans the applicable policies in priority order. Scanning halts at
// the first match, so an explicit deny must carry a lower priority number
// than any allow it is meant to override.
func (e *Engine) decide(req *models.AccessRequest, now time.Time) *models.Decision {
	for _, p := range e.cache.forTenant(req.TenantID) {
		if !matches(p, req, now) {
			continue
		}
		return &models.Decision{
			Allowed:         p.Effect == entpolicy.EffectAllow,
			MatchedPolicyID: p.ID,
			MatchedPolicies: []string{p.ID},
			Reason:          fmt.Sprintf("matched policy '%s'", p.Name),
		}
	}
	return &models.Decision{
		Allowed: false,
		Reason:  "no matching policy",
	}
}

// matches reports whether every gate of the policy holds: time window, IP
// restrictions, action list, and all three condition sets.
func matches(p *ent.Policy, req *models.AccessRequest, now time.Time) bool {
	if !timeAllows(p.TimeRestrictions, now) {
		return false
	}
	if !ipAllows(p.IPRestrictions, req.ClientIP) {
		return false
	}
	if !actionAllowed(p.Actions, req.Action) {
		return false
	}
	if !evaluateConditions(p.SubjectConditions, models.MatchMode(p.SubjectMatch), req) {
		return false
	}
	if !evaluateConditions(p.ResourceConditions, models.MatchMode(p.ResourceMatch), req) {
		return false
	}
	return evaluateConditions(p.EnvironmentConditions, models.MatchMode(p.EnvironmentMatch), req)
}

// actionAllowed checks the policy's action lists. The deny list is
// consulted first; a "*" entry in the allow list matches every action.
func actionAllowed(actions *models.ActionSet, action string) bool {
	if actions == nil {
		return false
	}
	for _, denied := range actions.Denied {
		if denied == action {
			return false
		}
	}
	for _, allowed := range actions.Allowed {
		if allowed == "*" || allowed == action {
			return true
		}
	}
	return false
}

func (e *Engine) audit(req *models.AccessRequest, d *models.Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome := policyaudit.DecisionDeny
	if d.Allowed {
		outcome = policyaudit.DecisionAllow
	}

	builder := e.client.PolicyAudit.Create().
		SetID(uuid.New().String()).
		SetTenantID(req.TenantID).
		SetSubjectID(req.SubjectID).
		SetResource(req.Resource).
		SetAction(req.Action).
		SetDecision(outcome).
		SetEvaluationUs(d.Elapsed.Microseconds()).
		SetRequest(auditSnapshot(req))
	if len(d.MatchedPolicies) > 0 {
		builder = builder.SetMatchedPolicyIds(d.MatchedPolicies)
	}

	if _, err := builder.Save(ctx); err != nil {
		slog.Error("Failed to append policy audit record",
			"tenant_id", req.TenantID,
			"subject_id", req.SubjectID,
			"action", req.Action,
			"error", err)
	}
}

// auditSnapshot captures the attribute maps the decision was computed from.
func auditSnapshot(req *models.AccessRequest) map[string]interface{} {
	snapshot := make(map[string]interface{}, 4)
	if len(req.Subject) > 0 {
		snapshot["subject"] = req.Subject
	}
	if len(req.ResourceAtt) > 0 {
		snapshot["resource_attributes"] = req.ResourceAtt
	}
	if len(req.Environment) > 0 {
		snapshot["environment"] = req.Environment
	}
	if req.ClientIP != "" {
		snapshot["client_ip"] = req.ClientIP
	}
	return snapshot
}
