package validation

import (
	"context"

	"github.com/rendis/flowmon/pkg/schema"
)

// Validator checks diagram input before it reaches the layout engine.
// Structural checks use JSON Schema Draft 2020-12.
type Validator interface {
	ValidateGraph(ctx context.Context, g *schema.Graph) error
	ValidateGraphJSON(ctx context.Context, raw []byte) (*schema.Graph, error)
	ValidateDefinition(def *schema.WorkflowDefinition) error
}
