package models

import "time"

// MatchMode controls how a condition set combines its members.
type MatchMode string

// Match modes.
const (
	MatchAll MatchMode = "all" // every condition must hold (AND)
	MatchAny MatchMode = "any" // at least one condition must hold (OR)
)

// Effect is the outcome a policy produces when it matches.
type Effect string

// Policy effects.
const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Condition operators. Comparisons against missing attributes evaluate to
// false, except OpIsNull which evaluates to true.
const (
	OpEquals       = "equals"
	OpNotEquals    = "not_equals"
	OpContains     = "contains"
	OpNotContains  = "not_contains"
	OpIn           = "in"
	OpNotIn        = "not_in"
	OpGreaterThan  = "greater_than"
	OpLessThan     = "less_than"
	OpBetween      = "between"
	OpMatchesRegex = "matches_regex"
	OpStartsWith   = "starts_with"
	OpEndsWith     = "ends_with"
	OpIsNull       = "is_null"
	OpIsNotNull    = "is_not_null"
)

// Condition is a single attribute comparison. Attribute paths use dot
// notation for nested lookups, e.g. "subject.roles" or "resource.tier".
type Condition struct {
	Attribute string      `json:"attribute" yaml:"attribute"`
	Operator  string      `json:"operator" yaml:"operator"`
	Value     interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// ActionSet is the action allow/deny list of a policy. A "*" entry in
// Allowed matches every action.
type ActionSet struct {
	Allowed []string `json:"allowed" yaml:"allowed"`
	Denied  []string `json:"denied,omitempty" yaml:"denied,omitempty"`
}

// TimeRestrictions bounds when a policy applies. Hour windows support
// overnight ranges where StartHour > EndHour (e.g. 22 to 6).
type TimeRestrictions struct {
	ValidFrom  *time.Time `json:"valid_from,omitempty" yaml:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
	DaysOfWeek []int      `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"` // 0 = Sunday .. 6 = Saturday
	StartHour  *int       `json:"start_hour,omitempty" yaml:"start_hour,omitempty"`
	EndHour    *int       `json:"end_hour,omitempty" yaml:"end_hour,omitempty"`
	Timezone   string     `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// IPRestrictions holds CIDR allow/block lists. The block list is checked
// first; a non-empty allow list then requires a match.
type IPRestrictions struct {
	Allowed []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Blocked []string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// PolicyRequest is the create/update payload for a policy. Also the shape
// of policy seeds in the configuration file.
type PolicyRequest struct {
	ID                    string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name                  string            `json:"name" yaml:"name"`
	TenantID              *string           `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	Priority              *int              `json:"priority,omitempty" yaml:"priority,omitempty"`
	Effect                string            `json:"effect" yaml:"effect"`
	Enabled               *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SubjectConditions     []Condition       `json:"subject_conditions,omitempty" yaml:"subject_conditions,omitempty"`
	SubjectMatch          string            `json:"subject_match,omitempty" yaml:"subject_match,omitempty"`
	ResourceConditions    []Condition       `json:"resource_conditions,omitempty" yaml:"resource_conditions,omitempty"`
	ResourceMatch         string            `json:"resource_match,omitempty" yaml:"resource_match,omitempty"`
	Actions               ActionSet         `json:"actions" yaml:"actions"`
	EnvironmentConditions []Condition       `json:"environment_conditions,omitempty" yaml:"environment_conditions,omitempty"`
	EnvironmentMatch      string            `json:"environment_match,omitempty" yaml:"environment_match,omitempty"`
	TimeRestrictions      *TimeRestrictions `json:"time_restrictions,omitempty" yaml:"time_restrictions,omitempty"`
	IPRestrictions        *IPRestrictions   `json:"ip_restrictions,omitempty" yaml:"ip_restrictions,omitempty"`
	Description           string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// RoleAssignmentRequest grants a role to a subject within a tenant.
type RoleAssignmentRequest struct {
	TenantID  string     `json:"tenant_id" yaml:"tenant_id"`
	SubjectID string     `json:"subject_id" yaml:"subject_id"`
	Role      string     `json:"role" yaml:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// AccessRequest is one authorization question posed to the policy engine.
type AccessRequest struct {
	TenantID    string                 `json:"tenant_id"`
	SubjectID   string                 `json:"subject_id"`
	Subject     map[string]interface{} `json:"subject,omitempty"`
	Resource    string                 `json:"resource"`
	ResourceAtt map[string]interface{} `json:"resource_attributes,omitempty"`
	Action      string                 `json:"action"`
	Environment map[string]interface{} `json:"environment,omitempty"`
	ClientIP    string                 `json:"client_ip,omitempty"`
}

// Decision is the outcome of evaluating an AccessRequest.
type Decision struct {
	Allowed         bool          `json:"allowed"`
	MatchedPolicyID string        `json:"matched_policy_id,omitempty"`
	MatchedPolicies []string      `json:"matched_policies,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	Elapsed         time.Duration `json:"-"`
}
