package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/openagora/agora/ent"
	"github.com/openagora/agora/pkg/services"
)

// schemaCache holds compiled listing input schemas keyed by agent id,
// recompiled when the listing's updated_at moves.
type schemaCache struct {
	mu      sync.Mutex
	entries map[string]*schemaEntry
}

type schemaEntry struct {
	compiled  *jsonschema.Schema
	updatedAt time.Time
}

func newSchemaCache() *schemaCache {
	return &schemaCache{entries: make(map[string]*schemaEntry)}
}

// validateInput checks the submission payload against the listing's JSON
// Schema. Listings without a schema accept anything. A schema that does not
// compile is logged and skipped rather than making the agent unusable.
func (o *Orchestrator) validateInput(l *ent.Listing, input map[string]interface{}) error {
	if len(l.InputSchema) == 0 {
		return nil
	}

	sch, err := o.schemas.get(l)
	if err != nil {
		slog.Warn("Listing input schema does not compile, skipping validation",
			"agent_id", l.ID,
			"error", err)
		return nil
	}

	// The input map arrives from JSON decoding, which is exactly the value
	// shape the validator expects.
	var inst interface{} = input
	if input == nil {
		inst = map[string]interface{}{}
	}
	if err := sch.Validate(inst); err != nil {
		return services.NewValidationError("input", err.Error())
	}
	return nil
}

func (c *schemaCache) get(l *ent.Listing) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[l.ID]; ok && e.updatedAt.Equal(l.UpdatedAt) {
		return e.compiled, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", l.InputSchema); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	c.entries[l.ID] = &schemaEntry{compiled: compiled, updatedAt: l.UpdatedAt}
	return compiled, nil
}
