package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// VersionRecord holds the schema definition for agent and tool lifecycle
// state. The record id is the artifact id, so each artifact has exactly one
// current record.
type VersionRecord struct {
	ent.Schema
}

// Fields of the VersionRecord.
func (VersionRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("artifact_id").
			Unique().
			Immutable(),
		field.Enum("kind").
			Values("agent", "tool"),
		field.String("version").
			Comment("Current semver of the artifact"),
		field.Enum("status").
			Values("active", "deprecated", "sunset").
			Default("active"),
		field.Time("deprecated_at").
			Optional().
			Nillable(),
		field.String("reason").
			Optional().
			Nillable(),
		field.String("replacement_id").
			Optional().
			Nillable(),
		field.Time("sunset_date").
			Optional().
			Nillable().
			Comment("After this instant the artifact may no longer be used"),
		field.String("min_compatible_version").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the VersionRecord.
func (VersionRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("status", "sunset_date"),
	}
}
