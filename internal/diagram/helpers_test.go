package diagram

import (
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

func node(id string, status schema.NodeStatus) schema.DiagramNode {
	return schema.DiagramNode{ID: id, Label: id, Type: schema.NodeTypeTask, Status: status}
}

func edge(src, dst string, t schema.EdgeType) schema.DiagramEdge {
	return schema.DiagramEdge{ID: src + "->" + dst, Source: src, Target: dst, Type: t}
}

func pos(id string, x, y, r float64) layout.NodePosition {
	return layout.NodePosition{ID: id, X: x, Y: y, Radius: r}
}

// sampleGraph is a small laid-out pipeline: start, two stages, a substage,
// end, plus one edge pointing at a node that does not exist.
func sampleGraph() (*schema.Graph, *layout.Snapshot) {
	g := &schema.Graph{
		WorkflowID:    "wf-1",
		WorkflowTitle: "Daily <PnL>",
		Nodes: []schema.DiagramNode{
			node("start", schema.NodeStatusCompleted),
			node("stage-1", schema.NodeStatusInProgress),
			node("substage-10", schema.NodeStatusFailed),
			node("stage-2", schema.NodeStatusPending),
			node("end", ""),
		},
		Edges: []schema.DiagramEdge{
			edge("start", "stage-1", schema.EdgeTypeSuccess),
			edge("stage-1", "substage-10", schema.EdgeTypeFailure),
			edge("stage-1", "stage-2", schema.EdgeTypeCondition),
			edge("stage-2", "end", schema.EdgeTypeDefault),
			edge("stage-2", "ghost", schema.EdgeTypeDefault),
		},
	}
	g.Nodes[2].Data = map[string]any{"stageId": 1}
	snap := &layout.Snapshot{
		WorkflowID: "wf-1",
		Iteration:  42,
		Final:      true,
		Nodes: []layout.NodePosition{
			pos("start", 600, 200, 70),
			pos("stage-1", 600, 400, 60),
			pos("substage-10", 800, 420, 40),
			pos("stage-2", 600, 600, 60),
			pos("end", 600, 800, 70),
		},
	}
	return g, snap
}
