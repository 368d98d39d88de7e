package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/flowmon/internal/diagram"
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/view"
	"github.com/rendis/flowmon/pkg/schema"
)

// handleLayout lays out a graph to completion and returns the final
// snapshot, or the results of a jq query over it.
func (s *FlowmonServer) handleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, errResult := s.resolveGraph(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	cfg := s.layout
	if seed := req.GetFloat("seed", -1); seed >= 0 {
		cfg.Seed = uint64(seed)
	}
	snap, err := layout.Simulate(ctx, g, cfg, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("layout failed: %v", err)), nil
	}

	query := req.GetString("query", "")
	if query == "" {
		return marshalResult(snap)
	}
	results, err := s.jq.Query(ctx, query, snap)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"results": results})
}

// handleDiagram renders a graph in the requested format.
func (s *FlowmonServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	switch format {
	case "ascii", "mermaid", "svg", "image":
	default:
		return mcp.NewToolResultError("format must be ascii, mermaid, svg, or image"), nil
	}

	g, errResult := s.resolveGraph(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(g)), nil
	case "image":
		png, imgErr := diagram.RenderImage(ctx, g)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultImage(g.WorkflowTitle, base64.StdEncoding.EncodeToString(png), "image/png"), nil
	}

	snap, err := layout.Simulate(ctx, g, s.layout, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("layout failed: %v", err)), nil
	}
	if format == "ascii" {
		return mcp.NewToolResultText(diagram.RenderASCII(g, snap)), nil
	}
	var buf bytes.Buffer
	if err := diagram.Render(&buf, g, snap, diagram.RenderOptions{}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("svg render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// handleQuery lists workflows, status events, or open views.
func (s *FlowmonServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}

	filter := mcp.ParseStringMap(req, "filter", nil)

	switch resource {
	case "workflows":
		return s.queryWorkflows(ctx, filter)
	case "events":
		return s.queryEvents(ctx, filter)
	case "views":
		return s.queryViews(filter)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource type: %s", resource)), nil
	}
}

// handleWatch starts or stops notifications for a workflow.
func (s *FlowmonServer) handleWatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	clientID, err := req.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("client_id is required"), nil
	}

	if req.GetBool("stop", false) {
		s.sessions.Unwatch(clientID, workflowID)
		return marshalResult(map[string]any{"client_id": clientID, "watching": s.sessions.Watching(clientID)})
	}

	if s.hub == nil {
		return mcp.NewToolResultError("event streaming is not enabled"), nil
	}
	if s.store != nil {
		if _, err := s.store.GetWorkflow(ctx, workflowID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow not found: %v", err)), nil
		}
	}
	s.captureSession(ctx, clientID)
	s.sessions.Watch(clientID, workflowID)
	return marshalResult(map[string]any{"client_id": clientID, "watching": s.sessions.Watching(clientID)})
}

// --- Query helpers ---

func (s *FlowmonServer) queryWorkflows(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no workflow store configured"), nil
	}
	wf := store.WorkflowFilter{
		Limit: extractInt(filter, "limit", 50),
	}
	if status, ok := filter["status"].(string); ok && status != "" {
		ws := schema.WorkflowStatus(status)
		wf.Status = &ws
	}
	if processID, ok := filter["process_id"].(string); ok {
		wf.ProcessID = processID
	}
	if since, ok := filter["since"].(string); ok && since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			wf.Since = &t
		}
	}

	workflows, err := s.store.ListWorkflows(ctx, wf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"workflows": workflows})
}

func (s *FlowmonServer) queryEvents(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no workflow store configured"), nil
	}
	workflowID, _ := filter["workflow_id"].(string)
	if workflowID == "" {
		return mcp.NewToolResultError("event query requires 'workflow_id' in filter"), nil
	}
	since := int64(extractInt(filter, "since", 0))
	events, err := s.store.GetEvents(ctx, workflowID, since)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if limit := extractInt(filter, "limit", 0); limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return marshalResult(map[string]any{"events": events})
}

func (s *FlowmonServer) queryViews(filter map[string]any) (*mcp.CallToolResult, error) {
	if s.views == nil {
		return mcp.NewToolResultError("no view manager configured"), nil
	}
	var views []*view.View
	if workflowID, ok := filter["workflow_id"].(string); ok && workflowID != "" {
		views = s.views.ForWorkflow(workflowID)
	} else {
		views = s.views.List()
	}
	infos := make([]view.Info, 0, len(views))
	for _, v := range views {
		info := v.Info()
		info.Snapshot = nil
		infos = append(infos, info)
	}
	return marshalResult(map[string]any{"views": infos})
}

// --- Internal helpers ---

// resolveGraph returns the graph named by the request: an inline graph
// document, or a stored workflow built with its recorded statuses.
func (s *FlowmonServer) resolveGraph(ctx context.Context, req mcp.CallToolRequest) (*schema.Graph, *mcp.CallToolResult) {
	if raw := mcp.ParseStringMap(req, "graph", nil); raw != nil {
		doc, err := json.Marshal(raw)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid graph: %v", err))
		}
		g, err := s.parseGraph(ctx, doc)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid graph: %v", err))
		}
		return g, nil
	}

	workflowID := req.GetString("workflow_id", "")
	if workflowID == "" {
		return nil, mcp.NewToolResultError("one of graph or workflow_id is required")
	}
	if s.store == nil {
		return nil, mcp.NewToolResultError("no workflow store configured")
	}
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("workflow not found: %v", err))
	}

	var states []*store.NodeState
	if req.GetString("include_status", "true") != "false" {
		if ns, err := s.store.ListNodeStates(ctx, workflowID); err == nil {
			states = ns
		}
	}
	g, err := diagram.Build(wf.ID, &wf.Definition, states)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("diagram build failed: %v", err))
	}
	if wf.Name != "" {
		g.WorkflowTitle = wf.Name
	}
	return g, nil
}

func (s *FlowmonServer) parseGraph(ctx context.Context, doc []byte) (*schema.Graph, error) {
	if s.validator != nil {
		return s.validator.ValidateGraphJSON(ctx, doc)
	}
	g := &schema.Graph{}
	if err := json.Unmarshal(doc, g); err != nil {
		return nil, err
	}
	return g, nil
}

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// captureSession maps the client ID to its current MCP session for notifications.
func (s *FlowmonServer) captureSession(ctx context.Context, clientID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(clientID, session.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
