package diagram

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

// asciiRowBand is the vertical distance within which laid-out nodes share a row.
const asciiRowBand = 60.0

// statusTag returns a short ASCII indicator for a node status.
func statusTag(status schema.NodeStatus) string {
	switch status {
	case schema.NodeStatusCompleted:
		return "[OK]"
	case schema.NodeStatusFailed:
		return "[FAIL]"
	case schema.NodeStatusInProgress:
		return "[RUN]"
	case schema.NodeStatusPending:
		return "[PEND]"
	default:
		return ""
	}
}

// RenderASCII renders a graph as rows of boxes ordered by the laid-out y
// coordinate (left to right by x within a row), followed by the edge list.
// With a nil snapshot every node gets its own row in input order.
func RenderASCII(g *schema.Graph, snap *layout.Snapshot) string {
	var b strings.Builder

	if g.WorkflowTitle != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", g.WorkflowTitle)
	}

	rows := asciiRows(g, snap)
	for i, row := range rows {
		boxes := make([]asciiBox, 0, len(row))
		for _, n := range row {
			boxes = append(boxes, makeBox(n))
		}
		renderBoxRow(&b, boxes)
		if i < len(rows)-1 {
			renderConnector(&b)
		}
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	var edges []string
	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		line := fmt.Sprintf("  %s ─→ %s", e.Source, e.Target)
		if e.Type != "" && e.Type != schema.EdgeTypeDefault {
			line += " (" + string(e.Type) + ")"
		}
		edges = append(edges, line)
	}
	if len(edges) > 0 {
		b.WriteString("\n--- edges ---\n")
		b.WriteString(strings.Join(edges, "\n"))
		b.WriteByte('\n')
	}

	return b.String()
}

// asciiRows groups nodes into rows. Nodes missing from the snapshot are
// appended as a final row.
func asciiRows(g *schema.Graph, snap *layout.Snapshot) [][]*schema.DiagramNode {
	type placed struct {
		node *schema.DiagramNode
		x, y float64
	}
	var (
		withPos []placed
		rest    []*schema.DiagramNode
		seen    = make(map[string]bool, len(g.Nodes))
	)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if p, ok := snap.Position(n.ID); ok {
			withPos = append(withPos, placed{node: n, x: p.X, y: p.Y})
			continue
		}
		rest = append(rest, n)
	}

	var rows [][]*schema.DiagramNode
	if snap == nil {
		for _, n := range rest {
			rows = append(rows, []*schema.DiagramNode{n})
		}
		return rows
	}

	sort.SliceStable(withPos, func(i, j int) bool { return withPos[i].y < withPos[j].y })
	var (
		current []placed
		rowTop  float64
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool { return current[i].x < current[j].x })
		row := make([]*schema.DiagramNode, len(current))
		for i, p := range current {
			row[i] = p.node
		}
		rows = append(rows, row)
		current = nil
	}
	for _, p := range withPos {
		if len(current) > 0 && p.y-rowTop > asciiRowBand {
			flush()
		}
		if len(current) == 0 {
			rowTop = p.y
		}
		current = append(current, p)
	}
	flush()
	if len(rest) > 0 {
		rows = append(rows, rest)
	}
	return rows
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node: label, then status tag.
func makeBox(n *schema.DiagramNode) asciiBox {
	label := firstLine(n.Label)
	if label == "" {
		label = n.ID
	}
	content := []string{label}
	if tag := statusTag(n.Status); tag != "" {
		content = append(content, tag)
	}

	maxLen := 0
	for _, line := range content {
		if l := utf8.RuneCountInString(line); l > maxLen {
			maxLen = l
		}
	}
	width := maxLen + 4

	lines := make([]string, 0, len(content)+2)
	lines = append(lines, "┌"+strings.Repeat("─", width-2)+"┐")
	for _, line := range content {
		pad := maxLen - utf8.RuneCountInString(line)
		lines = append(lines, "│ "+line+strings.Repeat(" ", pad)+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")

	return asciiBox{lines: lines, width: width}
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between rows.
func renderConnector(b *strings.Builder) {
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}
