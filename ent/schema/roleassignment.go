package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// RoleAssignment holds the schema definition for per-tenant subject roles.
// Permissions derive from the fixed role table in pkg/policy.
type RoleAssignment struct {
	ent.Schema
}

// Fields of the RoleAssignment.
func (RoleAssignment) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("assignment_id").
			Unique().
			Immutable(),
		field.String("tenant_id"),
		field.String("subject_id"),
		field.String("role"),
		field.Time("expires_at").
			Optional().
			Nillable().
			Comment("Expired assignments are filtered on read"),
		field.Time("created_at").
			Default(time.Now),
	}
}

// Indexes of the RoleAssignment.
func (RoleAssignment) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "subject_id", "role").
			Unique(),
		index.Fields("tenant_id", "subject_id"),
	}
}
