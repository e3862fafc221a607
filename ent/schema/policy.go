package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/openagora/agora/pkg/models"
)

// Policy holds the schema definition for ABAC policies. A policy with a nil
// tenant_id is global and applies to every tenant.
type Policy struct {
	ent.Schema
}

// Fields of the Policy.
func (Policy) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("policy_id").
			Unique().
			Immutable(),
		field.String("name"),
		field.String("tenant_id").
			Optional().
			Nillable().
			Comment("Nil means the policy is global"),
		field.Int("priority").
			Default(100).
			Comment("Lower number evaluates first"),
		field.Enum("effect").
			Values("allow", "deny"),
		field.Bool("enabled").
			Default(true),
		field.JSON("subject_conditions", []models.Condition{}).
			Optional(),
		field.Enum("subject_match").
			Values("all", "any").
			Default("all"),
		field.JSON("resource_conditions", []models.Condition{}).
			Optional(),
		field.Enum("resource_match").
			Values("all", "any").
			Default("all"),
		field.JSON("actions", &models.ActionSet{}),
		field.JSON("environment_conditions", []models.Condition{}).
			Optional(),
		field.Enum("environment_match").
			Values("all", "any").
			Default("all"),
		field.JSON("time_restrictions", &models.TimeRestrictions{}).
			Optional(),
		field.JSON("ip_restrictions", &models.IPRestrictions{}).
			Optional(),
		field.String("description").
			Optional(),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Policy.
func (Policy) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("enabled", "priority"),
		index.Fields("tenant_id", "enabled"),
	}
}
