package diagram

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

const svgStyle = `
    .node { cursor: pointer; }
    .node text { font-family: ui-sans-serif, system-ui, sans-serif; pointer-events: none; }
    .node .label { font-size: 13px; fill: #111827; }
    .node .icon { font-size: 18px; fill: #ffffff; }
    .node .status { font-size: 12px; fill: #ffffff; }
    .node .badge rect { fill: #111827; opacity: 0.85; }
    .node .badge text { font-size: 10px; fill: #f9fafb; }
    .node.selected circle.body { stroke: #111827; stroke-width: 4; }
    .highlight { fill: none; stroke: #facc15; stroke-width: 5; stroke-dasharray: 8 4; }
    .spin { fill: none; stroke: #bfdbfe; stroke-width: 3; stroke-dasharray: 20 12; transform-box: fill-box; transform-origin: center; animation: spin 1.2s linear infinite; }
    .edge { fill: none; stroke-width: 2; }
    .edge-label { font-family: ui-sans-serif, system-ui, sans-serif; font-size: 11px; fill: #374151; }
    #viewport.animated { transition: transform 0.2s ease-out; }
    @keyframes spin { to { transform: rotate(360deg); } }
`

// Render lays g over snap and writes the resulting SVG document to w.
func Render(w io.Writer, g *schema.Graph, snap *layout.Snapshot, opts RenderOptions) error {
	return RenderSVG(w, BuildScene(g, snap, opts))
}

// RenderSVG writes sc as a standalone SVG document. Every node group carries
// a data-node-id attribute that the diagram page uses to report clicks.
func RenderSVG(w io.Writer, sc Scene) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p(`<svg xmlns="http://www.w3.org/2000/svg" class="workflow-diagram" width="%s" height="%s" viewBox="0 0 %s %s" data-workflow-id="%s" data-iteration="%d" data-final="%t">`+"\n",
		f(sc.Width), f(sc.Height), f(sc.Width), f(sc.Height), esc(sc.WorkflowID), sc.Iteration, sc.Final)
	if sc.WorkflowTitle != "" {
		p("  <title>%s</title>\n", esc(sc.WorkflowTitle))
	}
	p("  <style>%s  </style>\n", svgStyle)

	p("  <defs>\n")
	for _, m := range markerStyles {
		p(`    <marker id="%s" viewBox="0 0 10 10" refX="8" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n",
			m.Marker, m.Stroke)
	}
	p("  </defs>\n")

	class := ""
	if sc.Animated {
		class = ` class="animated"`
	}
	p(`  <g id="viewport"%s transform="%s">`+"\n", class, sc.Transform)

	p("    <g class=\"edges\">\n")
	for _, e := range sc.Edges {
		writeEdge(p, e)
	}
	p("    </g>\n")

	p("    <g class=\"nodes\">\n")
	for _, n := range sc.Nodes {
		writeNode(p, n)
	}
	p("    </g>\n")

	p("  </g>\n</svg>\n")
	return bw.Flush()
}

func writeEdge(p func(string, ...any), e EdgeShape) {
	dash := ""
	if e.Style.Dash != "" {
		dash = fmt.Sprintf(` stroke-dasharray="%s"`, e.Style.Dash)
	}
	p(`      <path class="edge" data-edge-id="%s" d="%s" stroke="%s"%s marker-end="url(#%s)"/>`+"\n",
		esc(e.ID), e.Path, e.Style.Stroke, dash, e.Style.Marker)
	if e.Label != "" {
		p(`      <text class="edge-label" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
			f(e.LabelX), f(e.LabelY), esc(e.Label))
	}
}

func writeNode(p func(string, ...any), n NodeShape) {
	class := "node"
	if n.Selected {
		class += " selected"
	}
	p(`      <g class="%s" data-node-id="%s" data-status="%s">`+"\n", class, esc(n.ID), esc(string(n.Status)))
	if n.Highlighted {
		p(`        <circle class="highlight" cx="%s" cy="%s" r="%s"/>`+"\n", f(n.X), f(n.Y), f(n.Radius+8))
	}
	p(`        <circle class="body" cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" stroke-width="2"/>`+"\n",
		f(n.X), f(n.Y), f(n.Radius), n.Style.Fill, n.Style.Stroke)
	if n.Style.Spin {
		p(`        <circle class="spin" cx="%s" cy="%s" r="%s"/>`+"\n", f(n.X), f(n.Y), f(n.Radius-6))
	}
	p(`        <text class="icon" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
		f(n.X), f(n.Y-4), esc(n.TypeIcon))
	p(`        <text class="status" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
		f(n.X), f(n.Y+14), esc(n.Style.Icon))
	p(`        <text class="label" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
		f(n.X), f(n.Y+n.Radius+16), esc(n.Label))
	if n.Badge {
		w := float64(len(n.ID))*6 + 10
		p(`        <g class="badge"><rect x="%s" y="%s" width="%s" height="16" rx="8"/><text x="%s" y="%s" text-anchor="middle">%s</text></g>`+"\n",
			f(n.X-w/2), f(n.Y-n.Radius-22), f(w), f(n.X), f(n.Y-n.Radius-10), esc(n.ID))
	}
	p("      </g>\n")
}

func esc(s string) string {
	return html.EscapeString(s)
}
