package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openagora/agora/ent/roleassignment"
)

// Role names understood by the fixed permission table.
const (
	RoleAdmin     = "admin"
	RoleOperator  = "operator"
	RoleDeveloper = "developer"
	RoleViewer    = "viewer"
)

// rolePermissions is the fixed role table. Permissions use "<area>:<verb>"
// naming; a "*" entry grants everything.
var rolePermissions = map[string][]string{
	RoleAdmin: {"*"},
	RoleOperator: {
		"jobs:read", "jobs:submit", "jobs:cancel",
		"agents:read", "agents:execute",
		"queue:read", "provenance:read",
	},
	RoleDeveloper: {
		"jobs:read", "jobs:submit", "jobs:cancel",
		"agents:read", "agents:execute",
	},
	RoleViewer: {"jobs:read", "agents:read"},
}

// KnownRole reports whether the fixed table defines the role.
func KnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// RolePermissions returns the permission list of a role, nil for unknown
// roles.
func RolePermissions(role string) []string {
	return rolePermissions[role]
}

// RolesFor returns the unexpired roles assigned to a subject, sorted for
// stable output.
func (e *Engine) RolesFor(ctx context.Context, tenantID, subjectID string) ([]string, error) {
	rows, err := e.client.RoleAssignment.Query().
		Where(
			roleassignment.TenantIDEQ(tenantID),
			roleassignment.SubjectIDEQ(subjectID),
			roleassignment.Or(
				roleassignment.ExpiresAtIsNil(),
				roleassignment.ExpiresAtGT(time.Now()),
			),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load role assignments: %w", err)
	}

	roles := make([]string, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	sort.Strings(roles)
	return roles, nil
}

// HasPermission reports whether any of the subject's roles grants the
// permission, directly or through the wildcard.
func (e *Engine) HasPermission(ctx context.Context, tenantID, subjectID, permission string) (bool, error) {
	roles, err := e.RolesFor(ctx, tenantID, subjectID)
	if err != nil {
		return false, err
	}

	for _, role := range roles {
		for _, granted := range rolePermissions[role] {
			if granted == "*" || granted == permission {
				return true, nil
			}
		}
	}
	return false, nil
}
