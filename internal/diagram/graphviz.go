package diagram

import (
	"bytes"
	"context"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

// RenderImage renders a graph as a PNG using graphviz's dot layout.
// Substages with a stageId are drawn inside a dashed cluster per stage.
func RenderImage(ctx context.Context, g *schema.Graph) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeRender, "diagram: create graphviz").WithCause(err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeRender, "diagram: create graph").WithCause(err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if g.WorkflowTitle != "" {
		graph.SetLabel(g.WorkflowTitle)
	}

	clusters := make(map[string]*cgraph.Graph)
	gvNodes := make(map[string]*cgraph.Node, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if gvNodes[n.ID] != nil {
			continue
		}
		parent := graph
		kind, _ := layout.ClassifyID(n.ID)
		if stage := n.DataString("stageId"); kind == layout.KindSubstage && stage != "" {
			sub, ok := clusters[stage]
			if !ok {
				sub, err = graph.CreateSubGraphByName("cluster_stage_" + stage)
				if err != nil {
					return nil, schema.NewErrorf(schema.ErrCodeRender, "diagram: create cluster for stage %s", stage).WithCause(err)
				}
				sub.SetLabel("stage " + stage)
				sub.SetStyle(cgraph.DashedGraphStyle)
				clusters[stage] = sub
			}
			parent = sub
		}

		gvNode, err := parent.CreateNodeByName(n.ID)
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeRender, "diagram: create node").WithNode(n.ID).WithCause(err)
		}
		label := firstLine(n.Label)
		if label == "" {
			label = n.ID
		}
		gvNode.SetLabel(label)
		applyNodeStyle(gvNode, n, kind)
		gvNodes[n.ID] = gvNode
	}

	for _, e := range g.Edges {
		from, to := gvNodes[e.Source], gvNodes[e.Target]
		if from == nil || to == nil {
			continue
		}
		gvEdge, err := graph.CreateEdgeByName(e.ID, from, to)
		if err != nil {
			continue
		}
		if e.Label != "" {
			gvEdge.SetLabel(e.Label)
		}
		style := edgeStyle(e.Type)
		gvEdge.SetColor(style.Stroke)
		if style.Dash != "" {
			gvEdge.SetStyle(cgraph.DashedEdgeStyle)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeRender, "diagram: render PNG: %v", err).WithCause(err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets shape by kind and type, and fill by status.
func applyNodeStyle(gvNode *cgraph.Node, n *schema.DiagramNode, kind layout.NodeKind) {
	switch {
	case kind == layout.KindStart || kind == layout.KindEnd:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.6)
		gvNode.SetHeight(0.6)
	case n.Type == schema.NodeTypeChoice:
		gvNode.SetShape(cgraph.DiamondShape)
	case n.Type == schema.NodeTypeWait:
		gvNode.SetShape(cgraph.EllipseShape)
	case n.Type == schema.NodeTypeParallel || n.Type == schema.NodeTypeMap:
		gvNode.SetShape(cgraph.HexagonShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	style := statusStyle(n.Status)
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	gvNode.SetFillColor(style.Fill)
	gvNode.SetColor(style.Stroke)
	gvNode.SetFontColor("white")
	if n.Status == schema.NodeStatusPending || n.Status == "" {
		gvNode.SetFontColor("black")
	}
}
