package diagram

import (
	"fmt"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/viewport"
	"github.com/rendis/flowmon/pkg/schema"
)

const (
	arrowGap      = 6.0
	defaultWidth  = 1200.0
	defaultHeight = 1000.0
)

// RenderOptions carries the per-view state the renderer passes through.
type RenderOptions struct {
	Viewport    viewport.State
	Selected    string
	Highlighted map[string]bool
	Width       float64
	Height      float64
}

// NodeShape is one node ready to draw.
type NodeShape struct {
	ID          string
	Label       string
	Type        schema.NodeType
	Status      schema.NodeStatus
	X, Y        float64
	Radius      float64
	Style       NodeStyle
	TypeIcon    string
	Badge       bool
	Selected    bool
	Highlighted bool
}

// EdgeShape is one edge ready to draw.
type EdgeShape struct {
	ID     string
	Source string
	Target string
	Path   string
	Label  string
	LabelX float64
	LabelY float64
	Style  EdgeStyle
}

// Scene is the full projection of a graph and a layout snapshot.
type Scene struct {
	WorkflowID    string
	WorkflowTitle string
	Width         float64
	Height        float64
	Transform     string
	Animated      bool
	Nodes         []NodeShape
	Edges         []EdgeShape
	SkippedEdges  int
	Iteration     int
	Final         bool
}

// BuildScene projects g onto the positions in snap. Nodes without a
// published position (the snapshot predates them) are left out, as are
// edges whose endpoints are missing.
func BuildScene(g *schema.Graph, snap *layout.Snapshot, opts RenderOptions) Scene {
	sc := Scene{
		Width:     opts.Width,
		Height:    opts.Height,
		Transform: opts.Viewport.Transform(),
		Animated:  opts.Viewport.Animated(),
	}
	if sc.Width <= 0 {
		sc.Width = defaultWidth
	}
	if sc.Height <= 0 {
		sc.Height = defaultHeight
	}
	if opts.Viewport.Zoom == 0 {
		sc.Transform = viewport.State{Zoom: 1}.Transform()
	}
	if g == nil {
		return sc
	}
	sc.WorkflowID = g.WorkflowID
	sc.WorkflowTitle = g.WorkflowTitle
	if snap != nil {
		sc.Iteration = snap.Iteration
		sc.Final = snap.Final
	}

	placed := make(map[string]layout.NodePosition, len(g.Nodes))
	for _, n := range g.Nodes {
		pos, ok := snap.Position(n.ID)
		if !ok {
			continue
		}
		if _, dup := placed[n.ID]; dup {
			continue
		}
		placed[n.ID] = pos
		kind, _ := layout.ClassifyID(n.ID)
		selected := n.ID == opts.Selected
		label := n.Label
		if label == "" {
			label = n.ID
		}
		sc.Nodes = append(sc.Nodes, NodeShape{
			ID:          n.ID,
			Label:       label,
			Type:        n.Type,
			Status:      n.Status,
			X:           pos.X,
			Y:           pos.Y,
			Radius:      pos.Radius,
			Style:       statusStyle(n.Status),
			TypeIcon:    typeIcon(n.Type),
			Badge:       kind.IsAnchor() || selected,
			Selected:    selected,
			Highlighted: opts.Highlighted[n.ID],
		})
	}

	for i, e := range g.Edges {
		src, okSrc := placed[e.Source]
		dst, okDst := placed[e.Target]
		if !okSrc || !okDst {
			sc.SkippedEdges++
			continue
		}
		shape := EdgeShape{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Label:  e.Label,
			Style:  edgeStyle(e.Type),
		}
		if shape.ID == "" {
			shape.ID = fmt.Sprintf("edge-%d", i)
		}
		if e.Source == e.Target {
			c := point{X: src.X, Y: src.Y}
			shape.Path = selfLoopPath(c, src.Radius)
			shape.LabelX, shape.LabelY = c.X, c.Y-src.Radius*2
			sc.Edges = append(sc.Edges, shape)
			continue
		}
		start, ctrl, end, ok := edgeCurve(
			point{X: src.X, Y: src.Y}, point{X: dst.X, Y: dst.Y},
			src.Radius, dst.Radius, arrowGap,
		)
		if !ok {
			// Overlapping circles leave nothing visible to draw.
			continue
		}
		shape.Path = fmt.Sprintf("M %s %s Q %s %s %s %s",
			f(start.X), f(start.Y), f(ctrl.X), f(ctrl.Y), f(end.X), f(end.Y))
		mid := quadPoint(start, ctrl, end, 0.5)
		shape.LabelX, shape.LabelY = mid.X, mid.Y
		sc.Edges = append(sc.Edges, shape)
	}
	return sc
}
