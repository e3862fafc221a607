package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openagora/agora/ent"
	entjob "github.com/openagora/agora/ent/job"
	entlisting "github.com/openagora/agora/ent/listing"
	"github.com/openagora/agora/pkg/agents"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/provenance"
	"github.com/openagora/agora/pkg/queue"
	"github.com/openagora/agora/pkg/services"
	"github.com/openagora/agora/pkg/tokenizer"
	"github.com/openagora/agora/pkg/webhooks"
)

const (
	providerLocal    = "local"
	providerExternal = "external"
)

// Execute drives one dequeued run to a terminal state. It implements
// queue.Executor. Errors the run itself produces become terminal job states
// and stream events; only infrastructure failures propagate to the worker.
func (o *Orchestrator) Execute(ctx context.Context, item *queue.Item) error {
	job, err := o.deps.Jobs.GetByID(ctx, item.ID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			// Deleted while queued; nothing to run.
			return nil
		}
		return fmt.Errorf("loading job %s: %w", item.ID, err)
	}

	listing, err := o.deps.Listings.Get(ctx, job.AgentID)
	if err != nil {
		o.finishAborted(ctx, job, fmt.Errorf("%w: listing for '%s' disappeared", services.ErrAgentNotFound, job.AgentID))
		return nil
	}
	provider := providerLocal
	if listing.Kind == entlisting.KindExternal {
		provider = providerExternal
	}

	workerID := queue.WorkerIDFromContext(ctx)
	if workerID == "" {
		workerID = "direct"
	}
	claimed, err := o.deps.Jobs.MarkProcessing(ctx, job.ID, workerID, provider)
	if err != nil {
		return fmt.Errorf("claiming job %s: %w", job.ID, err)
	}
	if !claimed {
		// Cancelled while queued.
		slog.Info("Skipping run, job no longer pending", "job_id", job.ID)
		return nil
	}

	o.logTransition(ctx, job, string(entjob.StatusPending), string(entjob.StatusProcessing))
	o.deps.Hub.Publish(job.ID, models.EventStart, models.StartPayload{
		JobID:    job.ID,
		AgentID:  job.AgentID,
		Provider: provider,
	})
	o.deps.Provenance.Log(ctx, provenance.Record{
		TraceID:   job.TraceID,
		RunID:     job.ID,
		TenantID:  job.TenantID,
		EventType: models.ProvenanceDispatch,
		Content:   map[string]interface{}{"agent_id": job.AgentID, "provider": provider},
		Debug:     job.Debug,
	})

	started := time.Now()
	scope := o.deps.Tokenizer.NewScope()
	defer scope.Clear()

	var (
		output map[string]interface{}
		cost   *float64
		usage  *models.UsageInfo
		runErr error
	)
	if provider == providerExternal {
		output, cost, usage, runErr = o.dispatchExternal(ctx, job, scope)
	} else {
		output, cost, usage, runErr = o.dispatchLocal(ctx, job)
	}
	if runErr != nil {
		o.finishAborted(ctx, job, runErr)
		return nil
	}

	if usage != nil {
		o.deps.Provenance.Log(ctx, provenance.Record{
			TraceID:   job.TraceID,
			RunID:     job.ID,
			TenantID:  job.TenantID,
			EventType: models.ProvenanceLLMCall,
			LLMMeta: &models.LLMCallMeta{
				Model:            job.AgentID,
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				Cost:             costValue(cost),
				DurationMs:       time.Since(started).Milliseconds(),
			},
			Debug: job.Debug,
		})
	}

	ok, err := o.deps.Jobs.MarkCompleted(ctx, job.ID, output, cost)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	if !ok {
		// A cancel won the race; its transition produced the terminal
		// events already.
		slog.Warn("Run finished but job was already terminal", "job_id", job.ID)
		return nil
	}

	o.logTransition(ctx, job, string(entjob.StatusProcessing), string(entjob.StatusCompleted))
	o.deps.Webhooks.Enqueue(deref(job.WebhookURL), webhooks.Event{
		Event:   webhooks.EventJobCompleted,
		JobID:   job.ID,
		AgentID: job.AgentID,
		Status:  string(entjob.StatusCompleted),
		Output:  output,
	})
	o.deps.Hub.Publish(job.ID, models.EventDone, models.DonePayload{
		Status: string(entjob.StatusCompleted),
		Output: output,
		Cost:   cost,
	})
	return nil
}

func (o *Orchestrator) dispatchLocal(ctx context.Context, job *ent.Job) (map[string]interface{}, *float64, *models.UsageInfo, error) {
	agent, ok := o.deps.Agents.Get(job.AgentID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: '%s' has no local implementation", services.ErrAgentUnavailable, job.AgentID)
	}

	out, err := agent.Execute(ctx, agents.Input{
		JobID:    job.ID,
		TenantID: job.TenantID,
		TraceID:  job.TraceID,
		Payload:  job.Input,
		Emit:     o.emitFunc(ctx, job, nil),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return out.Result, out.Cost, out.Usage, nil
}

func (o *Orchestrator) dispatchExternal(ctx context.Context, job *ent.Job, scope *tokenizer.Scope) (map[string]interface{}, *float64, *models.UsageInfo, error) {
	task := job.Input
	if o.deps.TokenizerConfig.Enabled {
		masked, err := tokenizeTask(scope, job.Input)
		if err != nil {
			if !o.deps.TokenizerConfig.FailOpen {
				return nil, nil, nil, fmt.Errorf("tokenizing outbound payload: %w", err)
			}
			slog.Warn("Tokenization failed, sending payload unmasked",
				"job_id", job.ID,
				"error", err)
		} else {
			task = masked
		}
	}

	request := &models.AgentExecuteRequest{
		Task:      task,
		Stream:    true,
		RequestID: job.ID,
	}
	response, err := o.deps.Proxy.ExecuteStreaming(ctx, job.AgentID, request, o.emitFunc(ctx, job, scope))
	if err != nil {
		return nil, nil, nil, err
	}

	output := resultToOutput(response.Result)
	if scope.TokenCount() > 0 {
		output = detokenizeOutput(scope, output)
	}
	var cost *float64
	if response.Usage != nil {
		cost = response.Usage.Cost
	}
	return output, cost, response.Usage, nil
}

// emitFunc adapts intermediate events from an executing agent to the hub.
// Run lifecycle events are owned by the executor and filtered out here;
// progress events also update the job row; payloads from external agents
// are detokenized before fan-out.
func (o *Orchestrator) emitFunc(ctx context.Context, job *ent.Job, scope *tokenizer.Scope) func(string, interface{}) {
	return func(eventType string, data interface{}) {
		switch eventType {
		case models.EventStart, models.EventDone, models.EventError:
			return
		case models.EventProgress:
			if pct, ok := progressPercent(data); ok {
				if _, err := o.deps.Jobs.UpdateProgress(ctx, job.ID, pct); err != nil {
					slog.Warn("Progress update failed", "job_id", job.ID, "error", err)
				}
			}
		}
		if scope != nil && scope.TokenCount() > 0 {
			data = detokenizeValue(scope, data)
		}
		o.deps.Hub.Publish(job.ID, eventType, data)
	}
}

// finishAborted writes the terminal state for a failed or cancelled run and
// emits the corresponding events.
func (o *Orchestrator) finishAborted(ctx context.Context, job *ent.Job, runErr error) {
	if errors.Is(runErr, context.Canceled) {
		ok, err := o.deps.Jobs.MarkCancelled(ctx, job.ID)
		if err != nil || !ok {
			slog.Warn("Cancelled run could not be marked", "job_id", job.ID, "error", err)
		}
		o.logTransition(ctx, job, string(entjob.StatusProcessing), string(entjob.StatusCancelled))
		o.deps.Webhooks.Enqueue(deref(job.WebhookURL), webhooks.Event{
			Event:   webhooks.EventJobCancelled,
			JobID:   job.ID,
			AgentID: job.AgentID,
			Status:  string(entjob.StatusCancelled),
		})
		o.deps.Hub.Publish(job.ID, models.EventDone, models.DonePayload{
			Status: string(entjob.StatusCancelled),
		})
		return
	}

	message, code, retryable := classifyRunError(runErr)
	ok, err := o.deps.Jobs.MarkFailed(ctx, job.ID, message, code)
	if err != nil || !ok {
		slog.Warn("Failed run could not be marked", "job_id", job.ID, "error", err)
	}

	o.deps.Provenance.Log(ctx, provenance.Record{
		TraceID:   job.TraceID,
		RunID:     job.ID,
		TenantID:  job.TenantID,
		EventType: models.ProvenanceError,
		ErrorMeta: &models.ErrorMeta{Message: message, Code: code},
		Debug:     job.Debug,
	})
	o.logTransition(ctx, job, string(entjob.StatusProcessing), string(entjob.StatusFailed))
	o.deps.Webhooks.Enqueue(deref(job.WebhookURL), webhooks.Event{
		Event:   webhooks.EventJobFailed,
		JobID:   job.ID,
		AgentID: job.AgentID,
		Status:  string(entjob.StatusFailed),
		Error:   message,
	})
	// Publishing the error event also closes the run's stream.
	o.deps.Hub.Publish(job.ID, models.EventError, models.ErrorPayload{
		Message:   message,
		Code:      code,
		Retryable: retryable,
	})
}

func classifyRunError(err error) (message, code string, retryable bool) {
	var upstream *services.UpstreamError
	var validation *services.ValidationError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout):
		return "run exceeded its time budget", "timeout", true
	case errors.Is(err, services.ErrMaxRetriesExceeded):
		return err.Error(), "max_retries_exceeded", true
	case errors.Is(err, services.ErrAgentUnavailable):
		return err.Error(), "agent_unavailable", true
	case errors.Is(err, services.ErrAgentDisabled):
		return err.Error(), "agent_disabled", false
	case errors.Is(err, services.ErrAgentNotFound):
		return err.Error(), "agent_not_found", false
	case errors.As(err, &upstream):
		return upstream.Error(), fmt.Sprintf("upstream_%d", upstream.Status), upstream.Retryable
	case errors.As(err, &validation):
		return validation.Error(), "invalid_input", false
	default:
		return err.Error(), "internal", false
	}
}

// logTransition appends a state_change record. The transition detail rides
// in content and is therefore persisted only for debug runs; the record
// itself still timestamps the hop.
func (o *Orchestrator) logTransition(ctx context.Context, job *ent.Job, from, to string) {
	o.deps.Provenance.Log(ctx, provenance.Record{
		TraceID:   job.TraceID,
		RunID:     job.ID,
		TenantID:  job.TenantID,
		EventType: models.ProvenanceStateChange,
		Content:   map[string]interface{}{"from": from, "to": to},
		Debug:     job.Debug,
	})
}

// tokenizeTask masks the task payload, keeping its JSON object shape.
func tokenizeTask(scope *tokenizer.Scope, input map[string]interface{}) (map[string]interface{}, error) {
	masked, err := scope.Tokenize(input)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(masked), &out); err != nil {
		return nil, fmt.Errorf("tokenized payload is not an object: %w", err)
	}
	return out, nil
}

// detokenizeValue restores tokens inside an arbitrary event payload by
// rewriting its JSON form. The detection patterns never produce
// replacements that would break JSON framing.
func detokenizeValue(scope *tokenizer.Scope, data interface{}) interface{} {
	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}
	restored := scope.Detokenize(string(raw))
	var out interface{}
	if err := json.Unmarshal([]byte(restored), &out); err != nil {
		return data
	}
	return out
}

func detokenizeOutput(scope *tokenizer.Scope, output map[string]interface{}) map[string]interface{} {
	restored := detokenizeValue(scope, output)
	if m, ok := restored.(map[string]interface{}); ok {
		return m
	}
	return output
}

// resultToOutput normalizes an upstream result to the job's output shape.
func resultToOutput(result interface{}) map[string]interface{} {
	switch v := result.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return v
	default:
		return map[string]interface{}{"result": v}
	}
}

func progressPercent(data interface{}) (int, bool) {
	switch v := data.(type) {
	case models.ProgressPayload:
		return v.Percent, true
	case *models.ProgressPayload:
		return v.Percent, true
	case map[string]interface{}:
		switch n := v["percent"].(type) {
		case float64:
			return int(n), true
		case int:
			return n, true
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return 0, false
			}
			return int(f), true
		}
	}
	return 0, false
}

func costValue(cost *float64) float64 {
	if cost == nil {
		return 0
	}
	return *cost
}
