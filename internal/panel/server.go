package panel

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/refresher"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/streaming"
	"github.com/rendis/flowmon/internal/validation"
	"github.com/rendis/flowmon/internal/view"
	"github.com/rendis/flowmon/pkg/schema"
)

//go:embed templates static
var content embed.FS

// StatusRecorder records node status transitions. Satisfied by store.EventLog.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, workflowID, nodeID string, status schema.NodeStatus, message string) (*store.Event, error)
}

// PanelDeps holds the dependencies for the panel server. Recorder,
// Refresher and Validator are optional.
type PanelDeps struct {
	Store     store.Store
	Views     *view.Manager
	Hub       streaming.EventHub
	Recorder  StatusRecorder
	Refresher *refresher.Refresher
	Validator validation.Validator
	Layout    layout.Config
	Logger    *slog.Logger
}

// PanelServer serves the diagram panel: workflow pages, SVG and export
// endpoints, the view interaction API and SSE streams.
type PanelServer struct {
	deps  PanelDeps
	pages map[string]*template.Template
}

// NewPanelServer creates a new PanelServer with parsed templates.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Layout.MaxIterations == 0 {
		deps.Layout = layout.DefaultConfig()
	}

	funcMap := template.FuncMap{
		"json":        toJSON,
		"timeAgo":     timeAgo,
		"statusBadge": statusBadge,
		"truncate":    truncate,
		"add":         add,
		"subtract":    subtract,
	}

	base := template.Must(
		template.New("").Funcs(funcMap).ParseFS(content, "templates/base.html"),
	)

	// Each page clones the shared set so that its {{define "content"}}
	// doesn't collide with others.
	pageFiles := []string{
		"workflows.html",
		"workflow_detail.html",
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone := template.Must(base.Clone())
		pages[pf] = template.Must(clone.ParseFS(content, "templates/"+pf))
	}

	return &PanelServer{
		deps:  deps,
		pages: pages,
	}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleWorkflows)
	mux.HandleFunc("GET /workflows/{id}", s.handleWorkflowDetail)

	// Diagram exports.
	mux.HandleFunc("GET /workflows/{id}/diagram.svg", s.handleDiagramSVG)
	mux.HandleFunc("GET /workflows/{id}/diagram.mmd", s.handleDiagramMermaid)
	mux.HandleFunc("GET /workflows/{id}/diagram.png", s.handleDiagramPNG)
	mux.HandleFunc("GET /workflows/{id}/diagram.txt", s.handleDiagramASCII)

	// SSE streams.
	mux.HandleFunc("GET /sse/views/{view}", s.handleSSEView)
	mux.HandleFunc("GET /sse/workflows/{id}", s.handleSSEWorkflow)

	// Views.
	mux.HandleFunc("GET /api/views", s.handleListViews)
	mux.HandleFunc("POST /api/views", s.handleOpenView)
	mux.HandleFunc("GET /api/views/{view}", s.handleGetView)
	mux.HandleFunc("DELETE /api/views/{view}", s.handleCloseView)
	mux.HandleFunc("POST /api/views/{view}/viewport", s.handleViewport)
	mux.HandleFunc("POST /api/views/{view}/click", s.handleClick)
	mux.HandleFunc("PUT /api/views/{view}/highlight", s.handleHighlight)

	// Ad-hoc layout.
	mux.HandleFunc("POST /api/layout", s.handleLayout)

	// Workflow metadata.
	mux.HandleFunc("GET /api/workflows", s.handleListWorkflows)
	mux.HandleFunc("POST /api/workflows", s.handleCreateWorkflow)
	mux.HandleFunc("GET /api/workflows/{id}", s.handleGetWorkflow)
	mux.HandleFunc("DELETE /api/workflows/{id}", s.handleDeleteWorkflow)
	mux.HandleFunc("GET /api/workflows/{id}/events", s.handleWorkflowEvents)
	mux.HandleFunc("POST /api/workflows/{id}/nodes/{node}/status", s.handleNodeStatus)
	mux.HandleFunc("POST /api/workflows/{id}/refresh", s.handleRefreshWorkflow)

	// Refresh jobs.
	mux.HandleFunc("GET /api/refresh-jobs", s.handleListRefreshJobs)
	mux.HandleFunc("POST /api/refresh-jobs", s.handleCreateRefreshJob)
	mux.HandleFunc("PUT /api/refresh-jobs/{id}", s.handleUpdateRefreshJob)
	mux.HandleFunc("DELETE /api/refresh-jobs/{id}", s.handleDeleteRefreshJob)

	return mux
}

// renderPage executes a page template by name.
func (s *PanelServer) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
