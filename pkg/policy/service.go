package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openagora/agora/ent"
	entpolicy "github.com/openagora/agora/ent/policy"
	"github.com/openagora/agora/ent/policyaudit"
	"github.com/openagora/agora/ent/roleassignment"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/services"
)

var knownOperators = map[string]struct{}{
	models.OpEquals:       {},
	models.OpNotEquals:    {},
	models.OpContains:     {},
	models.OpNotContains:  {},
	models.OpIn:           {},
	models.OpNotIn:        {},
	models.OpGreaterThan:  {},
	models.OpLessThan:     {},
	models.OpBetween:      {},
	models.OpMatchesRegex: {},
	models.OpStartsWith:   {},
	models.OpEndsWith:     {},
	models.OpIsNull:       {},
	models.OpIsNotNull:    {},
}

// CreatePolicy stores a new policy and reloads the cache so the next
// evaluation sees it.
func (e *Engine) CreatePolicy(ctx context.Context, req models.PolicyRequest) (*ent.Policy, error) {
	if err := validatePolicyRequest(&req); err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	builder := e.client.Policy.Create().
		SetID(id).
		SetName(req.Name).
		SetNillableTenantID(req.TenantID).
		SetEffect(entpolicy.Effect(req.Effect)).
		SetActions(&req.Actions)
	if req.Priority != nil {
		builder = builder.SetPriority(*req.Priority)
	}
	if req.Enabled != nil {
		builder = builder.SetEnabled(*req.Enabled)
	}
	if len(req.SubjectConditions) > 0 {
		builder = builder.SetSubjectConditions(req.SubjectConditions)
	}
	if req.SubjectMatch != "" {
		builder = builder.SetSubjectMatch(entpolicy.SubjectMatch(req.SubjectMatch))
	}
	if len(req.ResourceConditions) > 0 {
		builder = builder.SetResourceConditions(req.ResourceConditions)
	}
	if req.ResourceMatch != "" {
		builder = builder.SetResourceMatch(entpolicy.ResourceMatch(req.ResourceMatch))
	}
	if len(req.EnvironmentConditions) > 0 {
		builder = builder.SetEnvironmentConditions(req.EnvironmentConditions)
	}
	if req.EnvironmentMatch != "" {
		builder = builder.SetEnvironmentMatch(entpolicy.EnvironmentMatch(req.EnvironmentMatch))
	}
	if req.TimeRestrictions != nil {
		builder = builder.SetTimeRestrictions(req.TimeRestrictions)
	}
	if req.IPRestrictions != nil {
		builder = builder.SetIPRestrictions(req.IPRestrictions)
	}
	if req.Description != "" {
		builder = builder.SetDescription(req.Description)
	}

	created, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, services.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	e.cache.invalidate()
	return created, nil
}

// UpdatePolicy replaces a policy in full: fields absent from the request
// revert to their defaults.
func (e *Engine) UpdatePolicy(ctx context.Context, id string, req models.PolicyRequest) (*ent.Policy, error) {
	if err := validatePolicyRequest(&req); err != nil {
		return nil, err
	}

	builder := e.client.Policy.UpdateOneID(id).
		SetName(req.Name).
		SetEffect(entpolicy.Effect(req.Effect)).
		SetActions(&req.Actions)
	if req.TenantID != nil {
		builder = builder.SetTenantID(*req.TenantID)
	} else {
		builder = builder.ClearTenantID()
	}
	if req.Priority != nil {
		builder = builder.SetPriority(*req.Priority)
	} else {
		builder = builder.SetPriority(100)
	}
	if req.Enabled != nil {
		builder = builder.SetEnabled(*req.Enabled)
	} else {
		builder = builder.SetEnabled(true)
	}
	if len(req.SubjectConditions) > 0 {
		builder = builder.SetSubjectConditions(req.SubjectConditions)
	} else {
		builder = builder.ClearSubjectConditions()
	}
	builder = builder.SetSubjectMatch(entpolicy.SubjectMatch(matchOrDefault(req.SubjectMatch)))
	if len(req.ResourceConditions) > 0 {
		builder = builder.SetResourceConditions(req.ResourceConditions)
	} else {
		builder = builder.ClearResourceConditions()
	}
	builder = builder.SetResourceMatch(entpolicy.ResourceMatch(matchOrDefault(req.ResourceMatch)))
	if len(req.EnvironmentConditions) > 0 {
		builder = builder.SetEnvironmentConditions(req.EnvironmentConditions)
	} else {
		builder = builder.ClearEnvironmentConditions()
	}
	builder = builder.SetEnvironmentMatch(entpolicy.EnvironmentMatch(matchOrDefault(req.EnvironmentMatch)))
	if req.TimeRestrictions != nil {
		builder = builder.SetTimeRestrictions(req.TimeRestrictions)
	} else {
		builder = builder.ClearTimeRestrictions()
	}
	if req.IPRestrictions != nil {
		builder = builder.SetIPRestrictions(req.IPRestrictions)
	} else {
		builder = builder.ClearIPRestrictions()
	}
	if req.Description != "" {
		builder = builder.SetDescription(req.Description)
	} else {
		builder = builder.ClearDescription()
	}

	updated, err := builder.Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, services.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	e.cache.invalidate()
	return updated, nil
}

// DeletePolicy removes a policy permanently.
func (e *Engine) DeletePolicy(ctx context.Context, id string) error {
	if err := e.client.Policy.DeleteOneID(id).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return services.ErrPolicyNotFound
		}
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	e.cache.invalidate()
	return nil
}

// GetPolicy returns one policy by id, disabled ones included.
func (e *Engine) GetPolicy(ctx context.Context, id string) (*ent.Policy, error) {
	p, err := e.client.Policy.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, services.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

// ListPolicies returns policies in evaluation order. An empty tenant id
// returns every policy; otherwise the result is what Evaluate would
// consider for that tenant: global rows plus the tenant's own.
func (e *Engine) ListPolicies(ctx context.Context, tenantID string) ([]*ent.Policy, error) {
	query := e.client.Policy.Query()
	if tenantID != "" {
		query = query.Where(
			entpolicy.Or(
				entpolicy.TenantIDIsNil(),
				entpolicy.TenantIDEQ(tenantID),
			),
		)
	}

	policies, err := query.
		Order(ent.Asc(entpolicy.FieldPriority), ent.Asc(entpolicy.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

// AssignRole grants a role to a subject. Granting an already-held role
// refreshes its expiry.
func (e *Engine) AssignRole(ctx context.Context, req models.RoleAssignmentRequest) (*ent.RoleAssignment, error) {
	if req.TenantID == "" {
		return nil, services.NewValidationError("tenant_id", "tenant_id is required")
	}
	if req.SubjectID == "" {
		return nil, services.NewValidationError("subject_id", "subject_id is required")
	}
	if !KnownRole(req.Role) {
		return nil, services.NewValidationError("role", fmt.Sprintf("unknown role '%s'", req.Role))
	}

	created, err := e.client.RoleAssignment.Create().
		SetID(uuid.New().String()).
		SetTenantID(req.TenantID).
		SetSubjectID(req.SubjectID).
		SetRole(req.Role).
		SetNillableExpiresAt(req.ExpiresAt).
		Save(ctx)
	if err == nil {
		return created, nil
	}
	if !ent.IsConstraintError(err) {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	update := e.client.RoleAssignment.Update().
		Where(
			roleassignment.TenantIDEQ(req.TenantID),
			roleassignment.SubjectIDEQ(req.SubjectID),
			roleassignment.RoleEQ(req.Role),
		)
	if req.ExpiresAt != nil {
		update = update.SetExpiresAt(*req.ExpiresAt)
	} else {
		update = update.ClearExpiresAt()
	}
	if _, err := update.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh role assignment: %w", err)
	}

	return e.client.RoleAssignment.Query().
		Where(
			roleassignment.TenantIDEQ(req.TenantID),
			roleassignment.SubjectIDEQ(req.SubjectID),
			roleassignment.RoleEQ(req.Role),
		).
		Only(ctx)
}

// RevokeRole removes a role grant. Revoking an absent grant is a no-op.
func (e *Engine) RevokeRole(ctx context.Context, tenantID, subjectID, role string) error {
	_, err := e.client.RoleAssignment.Delete().
		Where(
			roleassignment.TenantIDEQ(tenantID),
			roleassignment.SubjectIDEQ(subjectID),
			roleassignment.RoleEQ(role),
		).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// AuditTrail returns recent access decisions, newest first. An empty
// tenant id spans all tenants.
func (e *Engine) AuditTrail(ctx context.Context, tenantID string, limit int) ([]*ent.PolicyAudit, error) {
	if limit <= 0 {
		limit = 50
	}

	query := e.client.PolicyAudit.Query()
	if tenantID != "" {
		query = query.Where(policyaudit.TenantIDEQ(tenantID))
	}

	return query.
		Order(ent.Desc(policyaudit.FieldCreatedAt)).
		Limit(limit).
		All(ctx)
}

// PurgeAudits deletes access decisions older than the retention period.
func (e *Engine) PurgeAudits(_ context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention_days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	// Use background context with timeout
	purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := e.client.PolicyAudit.Delete().
		Where(policyaudit.CreatedAtLT(cutoff)).
		Exec(purgeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge policy audits: %w", err)
	}

	return count, nil
}

// Seed installs configured policies at boot. Existing ids are left
// untouched so operator edits survive restarts.
func (e *Engine) Seed(ctx context.Context, seeds []models.PolicyRequest) error {
	for _, seed := range seeds {
		if seed.ID == "" {
			return services.NewValidationError("id", "seed policies must carry a stable id")
		}
		exists, err := e.client.Policy.Query().
			Where(entpolicy.IDEQ(seed.ID)).
			Exist(ctx)
		if err != nil {
			return fmt.Errorf("failed to check policy seed '%s': %w", seed.ID, err)
		}
		if exists {
			continue
		}
		if _, err := e.CreatePolicy(ctx, seed); err != nil {
			return fmt.Errorf("failed to seed policy '%s': %w", seed.ID, err)
		}
	}
	return nil
}

func validatePolicyRequest(req *models.PolicyRequest) error {
	if req.Name == "" {
		return services.NewValidationError("name", "name is required")
	}
	if req.Effect != string(models.EffectAllow) && req.Effect != string(models.EffectDeny) {
		return services.NewValidationError("effect", "effect must be 'allow' or 'deny'")
	}
	if len(req.Actions.Allowed) == 0 {
		return services.NewValidationError("actions", "at least one allowed action is required")
	}
	if req.Priority != nil && *req.Priority < 0 {
		return services.NewValidationError("priority", "priority must be non-negative")
	}
	for _, mode := range []string{req.SubjectMatch, req.ResourceMatch, req.EnvironmentMatch} {
		if mode != "" && mode != string(models.MatchAll) && mode != string(models.MatchAny) {
			return services.NewValidationError("match", "match mode must be 'all' or 'any'")
		}
	}
	for _, set := range [][]models.Condition{req.SubjectConditions, req.ResourceConditions, req.EnvironmentConditions} {
		for _, cond := range set {
			if cond.Attribute == "" {
				return services.NewValidationError("conditions", "condition attribute is required")
			}
			if _, ok := knownOperators[cond.Operator]; !ok {
				return services.NewValidationError("conditions", fmt.Sprintf("unknown operator '%s'", cond.Operator))
			}
		}
	}
	return nil
}

func matchOrDefault(mode string) string {
	if mode == "" {
		return string(models.MatchAll)
	}
	return mode
}
