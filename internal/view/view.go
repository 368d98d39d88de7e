package view

import (
	"context"
	"io"
	"maps"
	"sync"
	"time"

	"github.com/rendis/flowmon/internal/diagram"
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/viewport"
	"github.com/rendis/flowmon/pkg/schema"
)

// View is one open diagram: a graph, its running layout, a viewport and a
// selection. The layout and the viewport never share state; they are
// composed only when the view is rendered.
type View struct {
	ID         string
	WorkflowID string
	CreatedAt  time.Time

	runner    *layout.Runner
	viewport  *viewport.Controller
	selection *diagram.Selection
	manager   *Manager

	// swapMu serializes graph swaps so graph and runner stay in step.
	swapMu sync.Mutex

	mu          sync.RWMutex
	graph       *schema.Graph
	expression  string
	highlighted map[string]bool
}

// Info is the JSON summary of a view.
type Info struct {
	ID         string           `json:"id"`
	WorkflowID string           `json:"workflow_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Nodes      int              `json:"nodes"`
	Edges      int              `json:"edges"`
	Generation uint64           `json:"generation"`
	State      string           `json:"state"`
	Selected   string           `json:"selected,omitempty"`
	Highlight  string           `json:"highlight,omitempty"`
	Viewport   viewport.State   `json:"viewport"`
	Snapshot   *layout.Snapshot `json:"snapshot,omitempty"`
}

// Graph returns the graph currently laid out by the view.
func (v *View) Graph() *schema.Graph {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.graph
}

// Snapshot returns the latest layout of the current generation, or nil
// before the first layout starts.
func (v *View) Snapshot() *layout.Snapshot {
	return v.runner.Latest()
}

// Wait blocks until the current layout generation ends.
func (v *View) Wait(ctx context.Context) error {
	return v.runner.Wait(ctx)
}

// Viewport returns the current pan/zoom state.
func (v *View) Viewport() viewport.State {
	return v.viewport.State()
}

// Selected returns the selected node id, or "".
func (v *View) Selected() string {
	return v.selection.Selected()
}

// Highlighted returns a copy of the ids matched by the highlight expression.
func (v *View) Highlighted() map[string]bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.highlighted)
}

// Info summarizes the view for the panel and the MCP server.
func (v *View) Info() Info {
	v.mu.RLock()
	g, expr := v.graph, v.expression
	v.mu.RUnlock()

	info := Info{
		ID:         v.ID,
		WorkflowID: v.WorkflowID,
		CreatedAt:  v.CreatedAt,
		Generation: v.runner.Generation(),
		State:      v.runner.State().String(),
		Selected:   v.selection.Selected(),
		Highlight:  expr,
		Viewport:   v.viewport.State(),
		Snapshot:   v.runner.Latest(),
	}
	if g != nil {
		info.Nodes = len(g.Nodes)
		info.Edges = len(g.Edges)
	}
	return info
}

// ApplyViewport feeds a pointer, wheel or button gesture to the viewport.
func (v *View) ApplyViewport(ctx context.Context, e viewport.Event) (viewport.State, error) {
	st, err := v.viewport.Apply(e)
	if err != nil {
		return st, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	v.manager.publish(ctx, v, "", schema.EventViewViewport, st)
	return st, nil
}

// Click toggles the selection of nodeID and returns the new selection.
// Ids that are not in the graph are ignored, like clicks on the background.
func (v *View) Click(nodeID string) string {
	g := v.Graph()
	if g == nil || g.NodeByID(nodeID) == nil {
		return v.selection.Selected()
	}
	return v.selection.Click(nodeID)
}

// SetHighlight evaluates expression against every node and outlines the
// matches. An empty expression clears the highlight.
func (v *View) SetHighlight(ctx context.Context, expression string) (map[string]bool, error) {
	g := v.Graph()
	matched, err := v.manager.highlighter.Highlight(ctx, expression, g)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.expression = expression
	v.highlighted = matched
	v.mu.Unlock()
	return maps.Clone(matched), nil
}

// Render writes the view as an SVG document over the latest snapshot.
func (v *View) Render(w io.Writer) error {
	v.mu.RLock()
	g := v.graph
	highlighted := v.highlighted
	v.mu.RUnlock()

	return diagram.Render(w, g, v.runner.Latest(), diagram.RenderOptions{
		Viewport:    v.viewport.State(),
		Selected:    v.selection.Selected(),
		Highlighted: highlighted,
	})
}

// setGraph replaces the graph and restarts the layout from scratch. The
// selection survives only when its node is still present; the highlight
// expression is re-evaluated against the new nodes.
func (v *View) setGraph(ctx context.Context, runCtx context.Context, g *schema.Graph) {
	v.swapMu.Lock()
	defer v.swapMu.Unlock()

	v.mu.Lock()
	v.graph = g
	expr := v.expression
	v.mu.Unlock()

	if sel := v.selection.Selected(); sel != "" && g.NodeByID(sel) == nil {
		v.selection.Clear()
	}
	if expr != "" {
		if _, err := v.SetHighlight(ctx, expr); err != nil {
			v.manager.logger.WarnContext(ctx, "highlight dropped after refresh", "expression", expr, "error", err)
			v.mu.Lock()
			v.expression = ""
			v.highlighted = nil
			v.mu.Unlock()
		}
	}
	v.runner.Start(runCtx, g)
}
