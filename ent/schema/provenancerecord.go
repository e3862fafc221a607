package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/openagora/agora/pkg/models"
)

// ProvenanceRecord holds the schema definition for the append-only audit
// trail. Rows are written once and never updated.
type ProvenanceRecord struct {
	ent.Schema
}

// Fields of the ProvenanceRecord.
func (ProvenanceRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("record_id").
			Unique().
			Immutable(),
		field.Time("timestamp").
			Default(time.Now).
			Immutable(),
		field.String("trace_id").
			Immutable(),
		field.String("run_id").
			Immutable().
			Comment("Job id of the originating run"),
		field.String("step_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Enum("event_type").
			Values("llm_call", "tool_call", "error", "state_change", "dispatch", "webhook").
			Immutable(),
		field.JSON("llm_meta", &models.LLMCallMeta{}).
			Optional().
			Comment("Set for llm_call events"),
		field.JSON("tool_meta", &models.ToolCallMeta{}).
			Optional().
			Comment("Set for tool_call events"),
		field.JSON("error_meta", &models.ErrorMeta{}).
			Optional(),
		field.JSON("content", map[string]interface{}{}).
			Optional().
			Comment("Full payloads, persisted only when the run has debug set"),
	}
}

// Indexes of the ProvenanceRecord.
func (ProvenanceRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id", "timestamp"),
		index.Fields("trace_id"),
		index.Fields("tenant_id", "timestamp"),
		index.Fields("event_type", "timestamp"),
	}
}
