package agents

import (
	"context"

	"github.com/openagora/agora/pkg/models"
)

// EchoAgent returns its input unchanged. It exists for smoke tests,
// integration probes, and demos.
type EchoAgent struct{}

func (EchoAgent) ID() string { return "echo" }

func (EchoAgent) Describe() models.CapabilityCard {
	return models.CapabilityCard{
		Name:         "Echo",
		Description:  "Returns the submitted payload unchanged",
		Version:      "1.0.0",
		Capabilities: []string{"diagnostics"},
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}
}

func (EchoAgent) Execute(ctx context.Context, in Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.emit(models.EventProgress, models.ProgressPayload{Percent: 50})
	return &Output{
		Result: map[string]interface{}{"echo": in.Payload},
	}, nil
}
