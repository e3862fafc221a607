package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Job holds the schema definition for the Job entity. A Job is the durable
// record of one asynchronous execution request.
type Job struct {
	ent.Schema
}

// Fields of the Job.
func (Job) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Comment("Marketplace agent this job executes"),
		field.String("tenant_id"),
		field.String("user_id").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("pending", "processing", "completed", "failed", "cancelled").
			Default("pending"),
		field.Int("progress").
			Default(0).
			Comment("Percent complete, monotonically non-decreasing"),
		field.JSON("input", map[string]interface{}{}),
		field.JSON("output", map[string]interface{}{}).
			Optional(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("error_code").
			Optional().
			Nillable(),
		field.Float("cost").
			Optional().
			Nillable().
			Comment("Monetary cost accumulated by the run"),
		field.String("webhook_url").
			Optional().
			Nillable(),
		field.String("provider").
			Optional().
			Nillable().
			Comment("Provider name once the dispatch target is chosen"),
		field.String("worker_id").
			Optional().
			Nillable(),
		field.Int("priority").
			Default(5).
			Comment("Queue priority, higher dequeues earlier"),
		field.String("trace_id").
			Comment("Correlates provenance records across steps"),
		field.String("idempotency_key").
			Optional().
			Nillable(),
		field.Int64("estimated_duration_ms").
			Optional().
			Nillable(),
		field.Bool("debug").
			Default(false).
			Comment("When set, provenance stores full content instead of hashes only"),
		field.Time("created_at").
			Default(time.Now),
		field.Time("started_at").
			Optional().
			Nillable().
			Comment("When a worker claimed the job (pending to processing)"),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the Job.
func (Job) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "status"),
		index.Fields("status", "created_at"),
		index.Fields("agent_id"),
		index.Fields("trace_id"),

		// Idempotent submit: at most one job per (tenant, idempotency_key).
		index.Fields("tenant_id", "idempotency_key").
			Unique().
			Annotations(entsql.IndexWhere("idempotency_key IS NOT NULL")),
	}
}
