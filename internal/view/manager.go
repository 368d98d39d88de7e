package view

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowmon/internal/diagram"
	"github.com/rendis/flowmon/internal/expressions"
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/logging"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/streaming"
	"github.com/rendis/flowmon/internal/validation"
	"github.com/rendis/flowmon/internal/viewport"
	"github.com/rendis/flowmon/pkg/schema"
)

// Highlighter matches nodes against a predicate expression.
type Highlighter interface {
	Highlight(ctx context.Context, expression string, g *schema.Graph) (map[string]bool, error)
}

// Manager owns every open view. Layouts run on a manager-scoped context so
// that they outlive the request that opened them; Shutdown stops them all.
type Manager struct {
	store       store.Store
	hub         streaming.EventHub
	validator   validation.Validator
	highlighter Highlighter
	cfg         layout.Config
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	views map[string]*View
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithValidator checks every graph before its layout starts.
func WithValidator(v validation.Validator) Option {
	return func(m *Manager) { m.validator = v }
}

// WithHighlighter replaces the default expr-based highlighter.
func WithHighlighter(h Highlighter) Option {
	return func(m *Manager) { m.highlighter = h }
}

// NewManager creates a manager. st may be nil when only ad-hoc graphs are
// opened; hub may be nil to disable event publishing.
func NewManager(st store.Store, hub streaming.EventHub, cfg layout.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:  st,
		hub:    hub,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		views:  make(map[string]*View),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if m.highlighter == nil {
		m.highlighter = expressions.NewExprEngine()
	}
	return m, nil
}

// LoadGraph builds the diagram of a stored workflow from its definition and
// the latest node states.
func (m *Manager) LoadGraph(ctx context.Context, workflowID string) (*schema.Graph, error) {
	if m.store == nil {
		return nil, schema.NewError(schema.ErrCodeNotFound, "no workflow store configured")
	}
	wf, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	states, err := m.store.ListNodeStates(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	g, err := diagram.Build(wf.ID, &wf.Definition, states)
	if err != nil {
		return nil, err
	}
	if wf.Name != "" {
		g.WorkflowTitle = wf.Name
	}
	return g, nil
}

// Open loads a stored workflow and starts laying it out in a new view.
func (m *Manager) Open(ctx context.Context, workflowID string) (*View, error) {
	g, err := m.LoadGraph(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return m.OpenGraph(ctx, g)
}

// OpenGraph starts laying out an ad-hoc graph in a new view.
func (m *Manager) OpenGraph(ctx context.Context, g *schema.Graph) (*View, error) {
	if g == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph is nil")
	}
	if m.validator != nil {
		if err := m.validator.ValidateGraph(ctx, g); err != nil {
			return nil, err
		}
	}
	if err := m.ctx.Err(); err != nil {
		return nil, schema.NewError(schema.ErrCodeCancelled, "view manager is shut down").WithCause(err)
	}

	v := &View{
		ID:         uuid.New().String(),
		WorkflowID: g.WorkflowID,
		CreatedAt:  time.Now().UTC(),
		viewport:   viewport.New(),
		manager:    m,
	}
	v.selection = diagram.NewSelection(func(nodeID string) {
		m.publish(m.ctx, v, nodeID, schema.EventViewSelection, map[string]any{
			"clicked":  nodeID,
			"selected": v.selection.Selected(),
		})
	})

	runner, err := layout.NewRunner(m.cfg,
		layout.WithLogger(m.logger),
		layout.WithPublisher(func(snap *layout.Snapshot) { m.publishSnapshot(v, snap) }),
	)
	if err != nil {
		return nil, err
	}
	v.runner = runner

	m.mu.Lock()
	m.views[v.ID] = v
	m.mu.Unlock()

	runCtx := logging.WithView(m.ctx, v.WorkflowID, v.ID)
	v.setGraph(ctx, runCtx, g)

	m.publish(ctx, v, "", schema.EventViewOpened, map[string]any{"nodes": len(g.Nodes), "edges": len(g.Edges)})
	logging.LogWith(logging.WithView(ctx, v.WorkflowID, v.ID), m.logger).Info("view opened",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
	)
	return v, nil
}

// Get returns the view with the given id.
func (m *Manager) Get(viewID string) (*View, error) {
	m.mu.RLock()
	v, ok := m.views[viewID]
	m.mu.RUnlock()
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "view %q not found", viewID)
	}
	return v, nil
}

// List returns every open view, oldest first.
func (m *Manager) List() []*View {
	m.mu.RLock()
	out := make([]*View, 0, len(m.views))
	for _, v := range m.views {
		out = append(out, v)
	}
	m.mu.RUnlock()
	sortViews(out)
	return out
}

// ForWorkflow returns the open views of one workflow, oldest first.
func (m *Manager) ForWorkflow(workflowID string) []*View {
	m.mu.RLock()
	var out []*View
	for _, v := range m.views {
		if v.WorkflowID == workflowID {
			out = append(out, v)
		}
	}
	m.mu.RUnlock()
	sortViews(out)
	return out
}

// OpenWorkflows returns the distinct workflow ids with at least one open view.
func (m *Manager) OpenWorkflows() []string {
	m.mu.RLock()
	seen := make(map[string]bool)
	var ids []string
	for _, v := range m.views {
		if v.WorkflowID != "" && !seen[v.WorkflowID] {
			seen[v.WorkflowID] = true
			ids = append(ids, v.WorkflowID)
		}
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Close stops the layout of a view and forgets it.
func (m *Manager) Close(ctx context.Context, viewID string) error {
	m.mu.Lock()
	v, ok := m.views[viewID]
	delete(m.views, viewID)
	m.mu.Unlock()
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "view %q not found", viewID)
	}

	running := v.runner.State() == layout.StateRunning
	v.runner.Stop()
	if running {
		m.publish(ctx, v, "", schema.EventLayoutCancelled, map[string]any{"generation": v.runner.Generation()})
	}
	m.publish(ctx, v, "", schema.EventViewClosed, nil)
	logging.LogWith(logging.WithView(ctx, v.WorkflowID, v.ID), m.logger).Info("view closed")
	return nil
}

// RefreshWorkflow rebuilds the graph of a stored workflow and restarts the
// layout of every view showing it. It returns the number of views refreshed.
func (m *Manager) RefreshWorkflow(ctx context.Context, workflowID string) (int, error) {
	views := m.ForWorkflow(workflowID)
	if len(views) == 0 {
		return 0, nil
	}
	g, err := m.LoadGraph(ctx, workflowID)
	if err != nil {
		return 0, err
	}
	if m.validator != nil {
		if err := m.validator.ValidateGraph(ctx, g); err != nil {
			return 0, err
		}
	}
	for _, v := range views {
		v.setGraph(ctx, logging.WithView(m.ctx, v.WorkflowID, v.ID), g)
	}

	m.publish(ctx, &View{WorkflowID: workflowID}, "", schema.EventWorkflowRefreshed, map[string]any{"views": len(views)})
	logging.LogWith(logging.WithWorkflowID(ctx, workflowID), m.logger).Info("workflow refreshed",
		slog.Int("views", len(views)),
	)
	return len(views), nil
}

// Shutdown stops every layout and closes every view.
func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	views := m.views
	m.views = make(map[string]*View)
	m.mu.Unlock()
	for _, v := range views {
		v.runner.Stop()
	}
}

func (m *Manager) publishSnapshot(v *View, snap *layout.Snapshot) {
	m.publish(m.ctx, v, "", schema.EventLayoutSnapshot, snap)
	if snap.Final {
		m.publish(m.ctx, v, "", schema.EventLayoutConverged, map[string]any{
			"generation": snap.Generation,
			"iteration":  snap.Iteration,
			"energy":     snap.Energy,
		})
	}
}

func (m *Manager) publish(ctx context.Context, v *View, nodeID, eventType string, payload any) {
	if m.hub == nil {
		return
	}
	err := m.hub.Publish(context.WithoutCancel(ctx), streaming.StreamEvent{
		WorkflowID: v.WorkflowID,
		ViewID:     v.ID,
		NodeID:     nodeID,
		EventType:  eventType,
		Payload:    payload,
	})
	if err != nil {
		m.logger.Warn("publish failed", "event_type", eventType, "error", err)
	}
}

func sortViews(views []*View) {
	slices.SortFunc(views, func(a, b *View) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
