package panel

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/rendis/flowmon/internal/diagram"
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/view"
	"github.com/rendis/flowmon/pkg/schema"
)

// --- Page data types ---

type pageData struct {
	Title  string
	Active string
}

type workflowsData struct {
	pageData
	Workflows []*store.Workflow
	Views     []view.Info
	Live      map[string]bool
	Statuses  []schema.WorkflowStatus
	Status    string
	Limit     int
	Offset    int
}

type workflowDetailData struct {
	pageData
	Workflow *store.Workflow
	View     view.Info
	SVG      template.HTML
	States   []*store.NodeState
	Jobs     []*store.RefreshJob
}

// --- Page handlers ---

func (s *PanelServer) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	filter := store.WorkflowFilter{Limit: limit, Offset: offset}
	if status != "" {
		st := schema.WorkflowStatus(status)
		filter.Status = &st
	}
	workflows, err := s.deps.Store.ListWorkflows(ctx, filter)
	if err != nil {
		s.deps.Logger.Error("list workflows", "error", err)
		http.Error(w, "failed to list workflows", http.StatusInternalServerError)
		return
	}

	var infos []view.Info
	for _, v := range s.deps.Views.List() {
		infos = append(infos, v.Info())
	}
	live := make(map[string]bool)
	for _, id := range s.deps.Views.OpenWorkflows() {
		live[id] = true
	}

	s.renderPage(w, "workflows.html", workflowsData{
		pageData:  pageData{Title: "Workflows", Active: "workflows"},
		Workflows: workflows,
		Views:     infos,
		Live:      live,
		Status:    status,
		Limit:     limit,
		Offset:    offset,
		Statuses: []schema.WorkflowStatus{
			schema.WorkflowStatusPending,
			schema.WorkflowStatusInProgress,
			schema.WorkflowStatusCompleted,
			schema.WorkflowStatusFailed,
		},
	})
}

// handleWorkflowDetail opens a view of the workflow, or reattaches to the
// one named by ?view=, and renders the diagram page around it.
func (s *PanelServer) handleWorkflowDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	wf, err := s.deps.Store.GetWorkflow(ctx, id)
	if err != nil {
		http.Error(w, errorMessage(err), statusFor(err))
		return
	}

	v, err := s.attachView(r, id)
	if err != nil {
		http.Error(w, errorMessage(err), statusFor(err))
		return
	}

	var svg bytes.Buffer
	if err := v.Render(&svg); err != nil {
		s.deps.Logger.Error("render diagram", "workflow_id", id, "error", err)
		http.Error(w, "failed to render diagram", http.StatusInternalServerError)
		return
	}

	states, _ := s.deps.Store.ListNodeStates(ctx, id)
	jobs, _ := s.deps.Store.ListRefreshJobs(ctx, store.RefreshJobFilter{WorkflowID: id})

	title := wf.Name
	if title == "" {
		title = wf.ID
	}
	s.renderPage(w, "workflow_detail.html", workflowDetailData{
		pageData: pageData{Title: title, Active: "workflows"},
		Workflow: wf,
		View:     v.Info(),
		SVG:      template.HTML(svg.String()),
		States:   states,
		Jobs:     jobs,
	})
}

func (s *PanelServer) attachView(r *http.Request, workflowID string) (*view.View, error) {
	if viewID := r.URL.Query().Get("view"); viewID != "" {
		if v, err := s.deps.Views.Get(viewID); err == nil && v.WorkflowID == workflowID {
			return v, nil
		}
	}
	return s.deps.Views.Open(r.Context(), workflowID)
}

// --- Diagram exports ---

// handleDiagramSVG renders the current state of a view when ?view= is set,
// otherwise a freshly computed final layout.
func (s *PanelServer) handleDiagramSVG(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer

	if viewID := r.URL.Query().Get("view"); viewID != "" {
		v, err := s.deps.Views.Get(viewID)
		if err != nil {
			writeFlowError(w, err)
			return
		}
		if v.WorkflowID != id {
			writeError(w, http.StatusNotFound, "view does not belong to this workflow")
			return
		}
		if err := v.Render(&buf); err != nil {
			writeFlowError(w, err)
			return
		}
	} else {
		g, snap, err := s.layoutWorkflow(r, id)
		if err != nil {
			writeFlowError(w, err)
			return
		}
		if err := diagram.Render(&buf, g, snap, diagram.RenderOptions{}); err != nil {
			writeFlowError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *PanelServer) handleDiagramMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Views.LoadGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(diagram.RenderMermaid(g)))
}

func (s *PanelServer) handleDiagramPNG(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Views.LoadGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	png, err := diagram.RenderImage(r.Context(), g)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *PanelServer) handleDiagramASCII(w http.ResponseWriter, r *http.Request) {
	g, snap, err := s.layoutWorkflow(r, r.PathValue("id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(diagram.RenderASCII(g, snap)))
}

// layoutWorkflow builds a stored workflow's graph and lays it out to completion.
func (s *PanelServer) layoutWorkflow(r *http.Request, id string) (*schema.Graph, *layout.Snapshot, error) {
	g, err := s.deps.Views.LoadGraph(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	snap, err := layout.Simulate(r.Context(), g, s.deps.Layout, nil)
	if err != nil {
		if schema.IsCode(err, schema.ErrCodeValidation) {
			return nil, nil, err
		}
		return nil, nil, schema.NewError(schema.ErrCodeCancelled, "layout interrupted").WithCause(err)
	}
	return g, snap, nil
}
