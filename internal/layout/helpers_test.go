package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/rendis/flowmon/pkg/schema"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.FrameInterval = 0
	return cfg
}

func node(id string) schema.DiagramNode {
	return schema.DiagramNode{ID: id, Type: schema.NodeTypeTask, Label: id, Status: schema.NodeStatusPending}
}

func edge(from, to string) schema.DiagramEdge {
	return schema.DiagramEdge{ID: from + "->" + to, Source: from, Target: to}
}

func graphOf(nodes []schema.DiagramNode, edges []schema.DiagramEdge) *schema.Graph {
	return &schema.Graph{WorkflowID: "wf-test", WorkflowTitle: "Test", Nodes: nodes, Edges: edges}
}

// chainGraph returns n task nodes connected in a line.
func chainGraph(n int) *schema.Graph {
	nodes := make([]schema.DiagramNode, n)
	var edges []schema.DiagramEdge
	for i := range n {
		nodes[i] = node(fmt.Sprintf("task-%d", i))
		if i > 0 {
			edges = append(edges, edge(nodes[i-1].ID, nodes[i].ID))
		}
	}
	return graphOf(nodes, edges)
}

// stageChain returns start -> stage-1 .. stage-n -> end.
func stageChain(stages int) *schema.Graph {
	nodes := []schema.DiagramNode{node("start")}
	for i := 1; i <= stages; i++ {
		nodes = append(nodes, node(fmt.Sprintf("stage-%d", i)))
	}
	nodes = append(nodes, node("end"))
	var edges []schema.DiagramEdge
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, edge(nodes[i-1].ID, nodes[i].ID))
	}
	return graphOf(nodes, edges)
}

// completeGraph connects every pair of n nodes.
func completeGraph(n int) *schema.Graph {
	nodes := make([]schema.DiagramNode, n)
	for i := range n {
		nodes[i] = node(fmt.Sprintf("k-%d", i))
	}
	var edges []schema.DiagramEdge
	for i := range n {
		for j := i + 1; j < n; j++ {
			edges = append(edges, edge(nodes[i].ID, nodes[j].ID))
		}
	}
	return graphOf(nodes, edges)
}

func mustPos(t *testing.T, snap *Snapshot, id string) NodePosition {
	t.Helper()
	p, ok := snap.Position(id)
	if !ok {
		t.Fatalf("node %q missing from snapshot", id)
	}
	return p
}

func dist(a, b NodePosition) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
