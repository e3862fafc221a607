package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PolicyAudit holds the schema definition for access decision audit rows.
// One row is appended per policy evaluation; writes are best-effort.
type PolicyAudit struct {
	ent.Schema
}

// Fields of the PolicyAudit.
func (PolicyAudit) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("audit_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("subject_id").
			Immutable(),
		field.String("resource").
			Immutable(),
		field.String("action").
			Immutable(),
		field.Enum("decision").
			Values("allow", "deny").
			Immutable(),
		field.JSON("matched_policy_ids", []string{}).
			Optional(),
		field.Int64("evaluation_us").
			Comment("Evaluation wall time in microseconds"),
		field.JSON("request", map[string]interface{}{}).
			Optional().
			Comment("Snapshot of the evaluated request attributes"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the PolicyAudit.
func (PolicyAudit) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "created_at"),
		index.Fields("decision", "created_at"),
	}
}
