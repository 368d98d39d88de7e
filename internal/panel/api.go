package panel

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/view"
	"github.com/rendis/flowmon/internal/viewport"
	"github.com/rendis/flowmon/pkg/schema"
)

const maxGraphBytes = 4 << 20

// --- Views ---

func (s *PanelServer) handleListViews(w http.ResponseWriter, r *http.Request) {
	workflowID := r.URL.Query().Get("workflow_id")
	var views []*view.View
	if workflowID != "" {
		views = s.deps.Views.ForWorkflow(workflowID)
	} else {
		views = s.deps.Views.List()
	}
	infos := make([]view.Info, 0, len(views))
	for _, v := range views {
		info := v.Info()
		info.Snapshot = nil
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *PanelServer) handleOpenView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WorkflowID string `json:"workflow_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.WorkflowID == "" {
		writeError(w, http.StatusBadRequest, "workflow_id is required")
		return
	}
	v, err := s.deps.Views.Open(r.Context(), body.WorkflowID)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"view_id":     v.ID,
		"workflow_id": v.WorkflowID,
		"stream":      "/sse/views/" + v.ID,
	})
}

func (s *PanelServer) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Views.Get(r.PathValue("view"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Info())
}

func (s *PanelServer) handleCloseView(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Views.Close(r.Context(), r.PathValue("view")); err != nil {
		writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleViewport applies one pointer, wheel or button gesture and returns
// the transform the page should apply to the viewport group.
func (s *PanelServer) handleViewport(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Views.Get(r.PathValue("view"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	var ev viewport.Event
	if !decodeJSON(w, r, &ev) {
		return
	}
	st, err := v.ApplyViewport(r.Context(), ev)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zoom":      st.Zoom,
		"pan":       st.Pan,
		"dragging":  st.Dragging,
		"transform": st.Transform(),
		"animated":  st.Animated(),
	})
}

func (s *PanelServer) handleClick(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Views.Get(r.PathValue("view"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	var body struct {
		NodeID string `json:"node_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": v.Click(body.NodeID)})
}

func (s *PanelServer) handleHighlight(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Views.Get(r.PathValue("view"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	var body struct {
		Expression string `json:"expression"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	matched, err := v.SetHighlight(r.Context(), body.Expression)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	writeJSON(w, http.StatusOK, map[string]any{"expression": body.Expression, "highlighted": ids})
}

// --- Ad-hoc layout ---

// handleLayout lays out a posted graph to completion and returns the final
// snapshot. ?seed= overrides the configured seed.
func (s *PanelServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxGraphBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(raw) > maxGraphBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "graph document too large")
		return
	}

	var g *schema.Graph
	if s.deps.Validator != nil {
		g, err = s.deps.Validator.ValidateGraphJSON(r.Context(), raw)
		if err != nil {
			writeFlowError(w, err)
			return
		}
	} else {
		g = &schema.Graph{}
		if err := json.Unmarshal(raw, g); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	cfg := s.deps.Layout
	if seed := r.URL.Query().Get("seed"); seed != "" {
		n, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be a non-negative integer")
			return
		}
		cfg.Seed = n
	}

	snap, err := layout.Simulate(r.Context(), g, cfg, nil)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// --- Workflows ---

func (s *PanelServer) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	filter := store.WorkflowFilter{
		ProcessID: r.URL.Query().Get("process_id"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		st := schema.WorkflowStatus(status)
		filter.Status = &st
	}
	workflows, err := s.deps.Store.ListWorkflows(r.Context(), filter)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if workflows == nil {
		workflows = []*store.Workflow{}
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (s *PanelServer) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID         string                    `json:"id"`
		Name       string                    `json:"name"`
		Definition schema.WorkflowDefinition `json:"definition"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Definition.Stages == nil {
		body.Definition.Stages = []schema.StageDefinition{}
	}
	if s.deps.Validator != nil {
		if err := s.deps.Validator.ValidateDefinition(&body.Definition); err != nil {
			writeFlowError(w, err)
			return
		}
	}

	now := time.Now().UTC()
	wf := &store.Workflow{
		ID:         body.ID,
		Name:       body.Name,
		Definition: body.Definition,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.deps.Store.CreateWorkflow(r.Context(), wf); err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (s *PanelServer) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.deps.Store.GetWorkflow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// handleDeleteWorkflow closes the workflow's views before deleting it.
func (s *PanelServer) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := s.deps.Store.GetWorkflow(ctx, id); err != nil {
		writeFlowError(w, err)
		return
	}
	for _, v := range s.deps.Views.ForWorkflow(id) {
		_ = s.deps.Views.Close(ctx, v.ID)
	}
	if err := s.deps.Store.DeleteWorkflow(ctx, id); err != nil {
		writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *PanelServer) handleWorkflowEvents(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	events, err := s.deps.Store.GetEvents(r.Context(), r.PathValue("id"), since)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleNodeStatus records a node status transition and refreshes every
// open view of the workflow.
func (s *PanelServer) handleNodeStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recorder == nil {
		writeError(w, http.StatusNotImplemented, "status recording is not enabled")
		return
	}
	ctx := r.Context()
	id, nodeID := r.PathValue("id"), r.PathValue("node")

	var body struct {
		Status  schema.NodeStatus `json:"status"`
		Message string            `json:"message"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	switch body.Status {
	case schema.NodeStatusPending, schema.NodeStatusInProgress, schema.NodeStatusCompleted, schema.NodeStatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "status must be one of pending, in-progress, completed, failed")
		return
	}
	if _, err := s.deps.Store.GetWorkflow(ctx, id); err != nil {
		writeFlowError(w, err)
		return
	}

	event, err := s.deps.Recorder.RecordStatus(ctx, id, nodeID, body.Status, body.Message)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	views, err := s.deps.Views.RefreshWorkflow(ctx, id)
	if err != nil {
		s.deps.Logger.Warn("refresh after status change failed", "workflow_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": event, "views": views})
}

func (s *PanelServer) handleRefreshWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := s.deps.Store.GetWorkflow(ctx, id); err != nil {
		writeFlowError(w, err)
		return
	}
	views, err := s.deps.Views.RefreshWorkflow(ctx, id)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"views": views})
}

// --- Refresh jobs ---

func (s *PanelServer) handleListRefreshJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Store.ListRefreshJobs(r.Context(), store.RefreshJobFilter{
		WorkflowID: r.URL.Query().Get("workflow_id"),
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*store.RefreshJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *PanelServer) handleCreateRefreshJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refresher == nil {
		writeError(w, http.StatusNotImplemented, "refresher is not enabled")
		return
	}
	var body struct {
		WorkflowID     string `json:"workflow_id"`
		CronExpression string `json:"cron_expression"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	job, err := s.deps.Refresher.Schedule(r.Context(), body.WorkflowID, body.CronExpression)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *PanelServer) handleUpdateRefreshJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := s.deps.Store.UpdateRefreshJob(ctx, id, store.RefreshJobUpdate{Enabled: body.Enabled}); err != nil {
		writeFlowError(w, err)
		return
	}
	job, err := s.deps.Store.GetRefreshJob(ctx, id)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *PanelServer) handleDeleteRefreshJob(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteRefreshJob(r.Context(), r.PathValue("id")); err != nil {
		writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
