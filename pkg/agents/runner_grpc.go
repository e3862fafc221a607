package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/openagora/agora/pkg/models"
	runnerv1 "github.com/openagora/agora/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// RunnerAgent executes model-backed tasks on a runner sidecar via gRPC.
// The sidecar streams incremental frames; deltas are forwarded as run
// events while the final result and usage are collected for the caller.
type RunnerAgent struct {
	id     string
	model  string
	conn   *grpc.ClientConn
	client runnerv1.RunnerServiceClient
}

// NewRunnerAgent connects to the runner sidecar at addr.
func NewRunnerAgent(id, model, addr string) (*RunnerAgent, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to runner at %s: %w", addr, err)
	}
	return &RunnerAgent{
		id:     id,
		model:  model,
		conn:   conn,
		client: runnerv1.NewRunnerServiceClient(conn),
	}, nil
}

func (a *RunnerAgent) ID() string { return a.id }

func (a *RunnerAgent) Describe() models.CapabilityCard {
	return models.CapabilityCard{
		Name:         a.id,
		Description:  fmt.Sprintf("Model-backed agent executing %s on a runner sidecar", a.model),
		Version:      "1.0.0",
		Capabilities: []string{"model"},
		InputSchema:  map[string]interface{}{"type": "object"},
	}
}

// Execute sends the task to the sidecar and consumes the response stream
// until it closes. A runner-reported error fails the run immediately.
func (a *RunnerAgent) Execute(ctx context.Context, in Input) (*Output, error) {
	req, err := toRunRequest(in, a.model)
	if err != nil {
		return nil, err
	}
	stream, err := a.client.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("gRPC Run call failed: %w", err)
	}

	out := &Output{}
	var text strings.Builder
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("runner stream failed: %w", err)
		}
		switch c := resp.Content.(type) {
		case *runnerv1.RunResponse_Text:
			text.WriteString(c.Text.Content)
			in.emit(models.EventToken, models.TokenPayload{Text: c.Text.Content})
		case *runnerv1.RunResponse_Thinking:
			in.emit(models.EventThinking, models.ThinkingPayload{Text: c.Thinking.Content})
		case *runnerv1.RunResponse_Progress:
			in.emit(models.EventProgress, models.ProgressPayload{
				Percent: int(c.Progress.Percent),
				Detail:  c.Progress.Detail,
			})
		case *runnerv1.RunResponse_Usage:
			out.Usage = fromProtoUsage(c.Usage)
			out.Cost = out.Usage.Cost
		case *runnerv1.RunResponse_Result:
			out.Result = decodeRunnerResult(c.Result.Content)
		case *runnerv1.RunResponse_Error:
			return nil, fmt.Errorf("runner error [%s]: %s", c.Error.Code, c.Error.Message)
		}
	}

	// Runners that never send an explicit result frame report the
	// accumulated text.
	if out.Result == nil {
		out.Result = map[string]interface{}{"text": text.String()}
	}
	return out, nil
}

// Close releases the gRPC connection.
func (a *RunnerAgent) Close() error {
	return a.conn.Close()
}

func toRunRequest(in Input, model string) (*runnerv1.RunRequest, error) {
	task, err := json.Marshal(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task payload: %w", err)
	}
	return &runnerv1.RunRequest{
		JobId:    in.JobID,
		TenantId: in.TenantID,
		TraceId:  in.TraceID,
		Task:     string(task),
		Model:    model,
	}, nil
}

func fromProtoUsage(u *runnerv1.UsageInfo) *models.UsageInfo {
	usage := &models.UsageInfo{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
	}
	if u.Cost > 0 {
		cost := u.Cost
		usage.Cost = &cost
	}
	return usage
}

// decodeRunnerResult parses the runner's JSON result document, wrapping
// plain text that does not decode as an object.
func decodeRunnerResult(raw string) map[string]interface{} {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		return doc
	}
	return map[string]interface{}{"text": raw}
}
