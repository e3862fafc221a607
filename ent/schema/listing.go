package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Listing holds the schema definition for marketplace listings. Every
// runnable agent, local or external, has exactly one listing; the listing id
// is the agent id used across the API.
type Listing struct {
	ent.Schema
}

// Fields of the Listing.
func (Listing) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("agent_id").
			Unique().
			Immutable(),
		field.String("name"),
		field.Text("description").
			Optional().
			Comment("Full-text searchable"),
		field.String("category").
			Default("general"),
		field.Enum("tier").
			Values("free", "standard", "premium").
			Default("free"),
		field.JSON("tags", []string{}).
			Optional(),
		field.JSON("input_schema", map[string]interface{}{}).
			Optional().
			Comment("JSON Schema applied to execution input at the boundary"),
		field.JSON("capabilities", []string{}).
			Optional(),
		field.Enum("kind").
			Values("local", "external"),
		field.Bool("featured").
			Default(false),
		field.Int("install_count").
			Default(0),
		field.Int64("max_duration_ms").
			Optional().
			Nillable().
			Comment("Per-job execution ceiling enforced by the orchestrator"),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Listing.
func (Listing) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("category"),
		index.Fields("tier"),
		index.Fields("kind"),
		index.Fields("featured"),
	}
}
