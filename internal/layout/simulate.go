package layout

import (
	"context"

	"github.com/rendis/flowmon/pkg/schema"
)

// Publisher receives snapshots in tick order.
type Publisher func(*Snapshot)

// Simulate runs a full layout synchronously and returns the final snapshot.
// publish, when non-nil, sees every intermediate snapshot at the configured
// cadence. ctx is checked between ticks; on cancellation the last computed
// state is returned together with ctx.Err().
func Simulate(ctx context.Context, g *schema.Graph, cfg Config, publish Publisher) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}

	sim := NewSimulation(g, cfg)
	workflowID := ""
	if g != nil {
		workflowID = g.WorkflowID
	}
	for {
		if err := ctx.Err(); err != nil {
			sim.Cancel()
			snap := takeSnapshot(sim.Arena(), sim.State(), 0)
			snap.WorkflowID = workflowID
			return snap, err
		}
		res := sim.Step()
		if res.Publish {
			snap := takeSnapshot(sim.Arena(), sim.State(), 0)
			snap.WorkflowID = workflowID
			if publish != nil {
				publish(snap)
			}
			if res.Final {
				return snap, nil
			}
		}
	}
}
