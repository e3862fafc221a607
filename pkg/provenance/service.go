// Package provenance maintains the append-only execution audit trail.
// Records are written once, never updated, and queried by trace, run, or
// time window.
package provenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openagora/agora/ent"
	"github.com/openagora/agora/ent/provenancerecord"
	"github.com/openagora/agora/pkg/models"
)

// Record contains the domain-level data for one provenance append.
// Exactly one of the meta fields is expected to be set, matching EventType.
type Record struct {
	TraceID   string
	RunID     string
	StepID    *string
	TenantID  string
	EventType string                 // One of the models.Provenance* constants
	LLMMeta   *models.LLMCallMeta    // Set for llm_call events
	ToolMeta  *models.ToolCallMeta   // Set for tool_call events
	ErrorMeta *models.ErrorMeta      // Set for error events
	Content   map[string]interface{} // Persisted only when Debug is set
	Debug     bool
}

// Service appends and queries provenance records.
type Service struct {
	client *ent.Client
}

// NewService creates a new provenance Service.
func NewService(client *ent.Client) *Service {
	if client == nil {
		panic("provenance.NewService: client must not be nil")
	}
	return &Service{client: client}
}

// Log appends one record. Writes are best-effort: failures are logged and
// never propagated, so a provenance outage cannot fail the originating
// operation. The write uses a detached context so a cancelled request does
// not lose its trail.
func (s *Service) Log(_ context.Context, rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	builder := s.client.ProvenanceRecord.Create().
		SetID(uuid.New().String()).
		SetTimestamp(time.Now()).
		SetTraceID(rec.TraceID).
		SetRunID(rec.RunID).
		SetTenantID(rec.TenantID).
		SetEventType(provenancerecord.EventType(rec.EventType))

	if rec.StepID != nil {
		builder = builder.SetStepID(*rec.StepID)
	}
	if rec.LLMMeta != nil {
		builder = builder.SetLlmMeta(rec.LLMMeta)
	}
	if rec.ToolMeta != nil {
		builder = builder.SetToolMeta(rec.ToolMeta)
	}
	if rec.ErrorMeta != nil {
		builder = builder.SetErrorMeta(rec.ErrorMeta)
	}
	if rec.Debug && rec.Content != nil {
		builder = builder.SetContent(rec.Content)
	}

	if _, err := builder.Save(ctx); err != nil {
		slog.Error("Failed to append provenance record",
			"trace_id", rec.TraceID,
			"run_id", rec.RunID,
			"event_type", rec.EventType,
			"error", err)
	}
}

// ByTrace returns all records for a trace, oldest first.
func (s *Service) ByTrace(ctx context.Context, traceID string) ([]*ent.ProvenanceRecord, error) {
	return s.client.ProvenanceRecord.Query().
		Where(provenancerecord.TraceIDEQ(traceID)).
		Order(ent.Asc(provenancerecord.FieldTimestamp)).
		All(ctx)
}

// ByRun returns all records for a run, oldest first.
func (s *Service) ByRun(ctx context.Context, runID string) ([]*ent.ProvenanceRecord, error) {
	return s.client.ProvenanceRecord.Query().
		Where(provenancerecord.RunIDEQ(runID)).
		Order(ent.Asc(provenancerecord.FieldTimestamp)).
		All(ctx)
}

// Recent returns the newest records, optionally filtered by event type.
func (s *Service) Recent(ctx context.Context, limit int, eventType string) ([]*ent.ProvenanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.client.ProvenanceRecord.Query()
	if eventType != "" {
		query = query.Where(provenancerecord.EventTypeEQ(provenancerecord.EventType(eventType)))
	}

	return query.
		Order(ent.Desc(provenancerecord.FieldTimestamp)).
		Limit(limit).
		All(ctx)
}

// Stats aggregates records inside [from, to): counts per event type plus
// total LLM cost and token usage.
func (s *Service) Stats(ctx context.Context, from, to time.Time) (*models.ProvenanceStats, error) {
	var rows []struct {
		EventType string `json:"event_type"`
		Count     int    `json:"count"`
	}
	err := s.client.ProvenanceRecord.Query().
		Where(
			provenancerecord.TimestampGTE(from),
			provenancerecord.TimestampLT(to),
		).
		GroupBy(provenancerecord.FieldEventType).
		Aggregate(ent.Count()).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	stats := &models.ProvenanceStats{
		From:         from,
		To:           to,
		CountsByType: make(map[string]int, len(rows)),
	}
	for _, row := range rows {
		stats.CountsByType[row.EventType] = row.Count
		stats.TotalRecords += row.Count
	}

	// Cost and token totals live inside the llm_meta JSON blob, which SQL
	// aggregation cannot reach; sum the llm_call rows in the window.
	llmCalls, err := s.client.ProvenanceRecord.Query().
		Where(
			provenancerecord.TimestampGTE(from),
			provenancerecord.TimestampLT(to),
			provenancerecord.EventTypeEQ(provenancerecord.EventTypeLlmCall),
		).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range llmCalls {
		if rec.LlmMeta == nil {
			continue
		}
		stats.TotalCost += rec.LlmMeta.Cost
		stats.TotalTokens += rec.LlmMeta.PromptTokens + rec.LlmMeta.CompletionTokens
	}

	return stats, nil
}

// Purge deletes provenance records older than the retention period. The
// trail is append-only in normal operation; retention cleanup is the only
// writer allowed to remove rows.
func (s *Service) Purge(_ context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention_days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	// Use background context with timeout
	purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.ProvenanceRecord.Delete().
		Where(provenancerecord.TimestampLT(cutoff)).
		Exec(purgeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge provenance records: %w", err)
	}

	return count, nil
}
