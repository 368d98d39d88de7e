package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

// RenderMermaid renders a graph as a Mermaid flowchart. Substages that
// carry a stageId are grouped in a subgraph per stage. Edges with unknown
// endpoints are skipped, as in the SVG renderer.
func RenderMermaid(g *schema.Graph) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if g.WorkflowTitle != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", g.WorkflowTitle)
	}

	known := make(map[string]bool, len(g.Nodes))
	groups := make(map[string][]*schema.DiagramNode)
	var groupOrder []string
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if known[n.ID] {
			continue
		}
		known[n.ID] = true

		kind, _ := layout.ClassifyID(n.ID)
		if kind == layout.KindSubstage {
			if stage := n.DataString("stageId"); stage != "" {
				if _, ok := groups[stage]; !ok {
					groupOrder = append(groupOrder, stage)
				}
				groups[stage] = append(groups[stage], n)
				continue
			}
		}
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(n))
	}

	for _, stage := range groupOrder {
		fmt.Fprintf(&b, "    subgraph %s[\"stage %s\"]\n", mermaidSafeID("group-stage-"+stage), stage)
		for _, n := range groups[stage] {
			fmt.Fprintf(&b, "        %s\n", mermaidNodeDef(n))
		}
		b.WriteString("    end\n")
	}

	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		arrow := mermaidArrow(e.Type)
		if e.Label != "" {
			fmt.Fprintf(&b, "    %s %s|%s| %s\n", mermaidSafeID(e.Source), arrow, mermaidEscapeLabel(e.Label), mermaidSafeID(e.Target))
		} else {
			fmt.Fprintf(&b, "    %s %s %s\n", mermaidSafeID(e.Source), arrow, mermaidSafeID(e.Target))
		}
	}

	b.WriteString("\n")
	for _, st := range []schema.NodeStatus{
		schema.NodeStatusCompleted, schema.NodeStatusInProgress, schema.NodeStatusPending, schema.NodeStatusFailed,
	} {
		style := statusStyle(st)
		fmt.Fprintf(&b, "    classDef %s fill:%s,stroke:%s,color:#fff\n", mermaidStatusClass(st), style.Fill, style.Stroke)
	}

	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if cls := mermaidStatusClass(n.Status); cls != "" {
			fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(n.ID), cls)
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition: anchors are circles,
// the rest take their shape from the node type.
func mermaidNodeDef(n *schema.DiagramNode) string {
	id := mermaidSafeID(n.ID)
	label := n.Label
	if label == "" {
		label = n.ID
	}
	label = mermaidEscapeLabel(firstLine(label))

	if kind, _ := layout.ClassifyID(n.ID); kind == layout.KindStart || kind == layout.KindEnd {
		return fmt.Sprintf("%s((%q))", id, label)
	}
	switch n.Type {
	case schema.NodeTypeChoice:
		return fmt.Sprintf("%s{%q}", id, label)
	case schema.NodeTypeWait:
		return fmt.Sprintf("%s([%q])", id, label)
	case schema.NodeTypeParallel, schema.NodeTypeMap:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case schema.NodeTypeSucceed, schema.NodeTypeFail:
		return fmt.Sprintf("%s(((%q)))", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

func mermaidArrow(t schema.EdgeType) string {
	switch t {
	case schema.EdgeTypeSuccess:
		return "==>"
	case schema.EdgeTypeFailure, schema.EdgeTypeCondition:
		return "-.->"
	default:
		return "-->"
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier. "end"
// closes a subgraph in Mermaid, so it gets a suffix.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	safe := r.Replace(id)
	if strings.EqualFold(safe, "end") {
		safe += "_"
	}
	return safe
}

// mermaidEscapeLabel replaces characters that end a quoted Mermaid label.
func mermaidEscapeLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(s)
}

// mermaidStatusClass maps a node status to a Mermaid class name.
func mermaidStatusClass(status schema.NodeStatus) string {
	switch status {
	case schema.NodeStatusCompleted:
		return "completed"
	case schema.NodeStatusFailed:
		return "failed"
	case schema.NodeStatusInProgress:
		return "running"
	case schema.NodeStatusPending:
		return "pending"
	default:
		return ""
	}
}

// firstLine returns the first line of a possibly multi-line label.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
