// Package agents hosts the in-process agent runtime: the execution
// interface every local agent implements, a registry keyed by agent id,
// and the builtin agents shipped with the server.
package agents

import (
	"context"

	"github.com/openagora/agora/pkg/models"
)

// EmitFunc receives intermediate stream events during an execution.
type EmitFunc func(eventType string, data interface{})

// Input carries one task into a local agent. Emit is nil when the caller
// does not stream; agents must treat it as optional.
type Input struct {
	JobID    string
	TenantID string
	TraceID  string
	Payload  map[string]interface{}
	Emit     EmitFunc
}

// emit forwards one event when streaming is enabled.
func (in Input) emit(eventType string, data interface{}) {
	if in.Emit != nil {
		in.Emit(eventType, data)
	}
}

// Output is the result of a completed execution.
type Output struct {
	Result map[string]interface{}
	Cost   *float64
	Usage  *models.UsageInfo
}

// Agent is a named in-process task executor. Execute must honor context
// cancellation at suspension points; the runtime cancels the context on
// job cancellation and timeout.
type Agent interface {
	ID() string
	Describe() models.CapabilityCard
	Execute(ctx context.Context, in Input) (*Output, error)
}
