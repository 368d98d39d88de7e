package expressions

import (
	"context"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

// Engine evaluates expressions over diagram data.
// Three implementations: Expr (node highlight predicates), CEL (graph
// admission rules), GoJQ (queries over layout results).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// NodeEnv is the variable set a highlight predicate sees for one node.
func NodeEnv(n *schema.DiagramNode) map[string]any {
	kind, index := layout.ClassifyID(n.ID)
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	return map[string]any{
		"id":        n.ID,
		"type":      string(n.Type),
		"label":     n.Label,
		"status":    string(n.Status),
		"kind":      kind.String(),
		"index":     index,
		"stageId":   n.DataString("stageId"),
		"processId": n.DataString("processId"),
		"data":      data,
	}
}

// GraphEnv is the variable set an admission rule sees: the node and edge
// lists as plain maps plus workflow identity.
func GraphEnv(g *schema.Graph) map[string]any {
	nodes := make([]any, 0, len(g.Nodes))
	for i := range g.Nodes {
		nodes = append(nodes, NodeEnv(&g.Nodes[i]))
	}
	edges := make([]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, map[string]any{
			"id":     e.ID,
			"source": e.Source,
			"target": e.Target,
			"label":  e.Label,
			"type":   string(e.Type),
		})
	}
	return map[string]any{
		"nodes": nodes,
		"edges": edges,
		"workflow": map[string]any{
			"id":    g.WorkflowID,
			"title": g.WorkflowTitle,
		},
	}
}
