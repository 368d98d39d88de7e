package diagram

import "github.com/rendis/flowmon/pkg/schema"

// NodeStyle is the resolved look of a node status.
type NodeStyle struct {
	Fill   string
	Stroke string
	Icon   string
	Spin   bool
}

// EdgeStyle is the resolved look of an edge type.
type EdgeStyle struct {
	Stroke string
	Dash   string
	Marker string
}

// statusStyle maps a node status onto its colors and status icon.
func statusStyle(status schema.NodeStatus) NodeStyle {
	switch status {
	case schema.NodeStatusCompleted:
		return NodeStyle{Fill: "#22c55e", Stroke: "#15803d", Icon: "✓"}
	case schema.NodeStatusInProgress:
		return NodeStyle{Fill: "#3b82f6", Stroke: "#1d4ed8", Icon: "⟳", Spin: true}
	case schema.NodeStatusPending:
		return NodeStyle{Fill: "#f59e0b", Stroke: "#b45309", Icon: "…"}
	case schema.NodeStatusFailed:
		return NodeStyle{Fill: "#ef4444", Stroke: "#b91c1c", Icon: "✕"}
	default:
		return NodeStyle{Fill: "#9ca3af", Stroke: "#4b5563", Icon: "•"}
	}
}

// typeIcon returns the glyph drawn inside a node for its workflow type.
func typeIcon(t schema.NodeType) string {
	switch t {
	case schema.NodeTypeChoice:
		return "◇"
	case schema.NodeTypeParallel:
		return "⇉"
	case schema.NodeTypeMap:
		return "⊞"
	case schema.NodeTypeWait:
		return "⧗"
	case schema.NodeTypePass:
		return "→"
	case schema.NodeTypeFail:
		return "✕"
	case schema.NodeTypeSucceed:
		return "★"
	default:
		return "▣"
	}
}

// edgeStyle maps an edge type onto stroke color, dash pattern and marker.
func edgeStyle(t schema.EdgeType) EdgeStyle {
	switch t {
	case schema.EdgeTypeSuccess:
		return EdgeStyle{Stroke: "#16a34a", Marker: "arrow-success"}
	case schema.EdgeTypeFailure:
		return EdgeStyle{Stroke: "#dc2626", Dash: "6 4", Marker: "arrow-failure"}
	case schema.EdgeTypeCondition:
		return EdgeStyle{Stroke: "#7c3aed", Dash: "2 4", Marker: "arrow-condition"}
	default:
		return EdgeStyle{Stroke: "#6b7280", Marker: "arrow-default"}
	}
}

// markerStyles lists every arrowhead marker the SVG defines.
var markerStyles = []EdgeStyle{
	edgeStyle(schema.EdgeTypeDefault),
	edgeStyle(schema.EdgeTypeSuccess),
	edgeStyle(schema.EdgeTypeFailure),
	edgeStyle(schema.EdgeTypeCondition),
}
