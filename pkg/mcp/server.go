package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/flowmon/internal/expressions"
	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/streaming"
	"github.com/rendis/flowmon/internal/validation"
	"github.com/rendis/flowmon/internal/view"
	"github.com/rendis/flowmon/pkg/schema"
)

// FlowmonServerDeps holds the dependencies for creating a FlowmonServer.
// Store, Views and Hub are optional; tools that need a missing dependency
// report a tool error instead of failing the call.
type FlowmonServerDeps struct {
	Store     store.Store
	Views     *view.Manager
	Validator validation.Validator
	Hub       streaming.EventHub
	Layout    layout.Config
	Logger    *slog.Logger
}

// FlowmonServer wraps an MCP server with the diagram tool handlers.
type FlowmonServer struct {
	store     store.Store
	views     *view.Manager
	validator validation.Validator
	hub       streaming.EventHub
	layout    layout.Config
	jq        *expressions.GoJQEngine
	sessions  *SessionRegistry
	notifier  ClientNotifier
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewFlowmonServer creates a FlowmonServer with all 4 tools registered.
func NewFlowmonServer(deps FlowmonServerDeps) *FlowmonServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	validator := deps.Validator
	if validator == nil {
		gv, err := validation.NewGraphValidator()
		if err != nil {
			logger.Warn("graph validation disabled", "error", err)
		} else {
			validator = gv
		}
	}
	cfg := deps.Layout
	if cfg == (layout.Config{}) {
		cfg = layout.DefaultConfig()
	}

	s := &FlowmonServer{
		store:     deps.Store,
		views:     deps.Views,
		validator: validator,
		hub:       deps.Hub,
		layout:    cfg,
		jq:        expressions.NewGoJQEngine(),
		sessions:  NewSessionRegistry(),
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowmon",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Flowmon lays out and renders workflow diagrams. Use flowmon.layout to compute node positions for a graph or stored workflow, flowmon.diagram to render it as ascii, mermaid, svg or png, flowmon.query to list workflows, status events and open views, and flowmon.watch to receive notifications when a workflow's diagram changes."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s
}

// Serve forwards hub events to watching clients and runs the stdio
// transport until ctx is cancelled or stdin closes.
func (s *FlowmonServer) Serve(ctx context.Context) error {
	if s.hub != nil {
		fwdCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := s.Forward(fwdCtx); err != nil && fwdCtx.Err() == nil {
				s.logger.Warn("event forwarding stopped", "error", err)
			}
		}()
	}
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowmonServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// forwardedEvents are the hub events pushed to watching clients.
var forwardedEvents = []string{
	schema.EventLayoutConverged,
	schema.EventWorkflowRefreshed,
	schema.EventNodeStarted,
	schema.EventNodeCompleted,
	schema.EventNodeFailed,
	schema.EventNodeReset,
}

// Forward subscribes to the hub and notifies every client watching the
// workflow an event belongs to. It returns when ctx is cancelled.
func (s *FlowmonServer) Forward(ctx context.Context) error {
	ch, cancel, err := s.hub.Subscribe(ctx, streaming.EventFilter{EventTypes: forwardedEvents})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(ctx, ev)
		}
	}
}

func (s *FlowmonServer) dispatch(ctx context.Context, ev streaming.StreamEvent) {
	payload := map[string]any{
		"event_type":  ev.EventType,
		"workflow_id": ev.WorkflowID,
		"sequence":    ev.Sequence,
	}
	if ev.ViewID != "" {
		payload["view_id"] = ev.ViewID
	}
	if ev.NodeID != "" {
		payload["node_id"] = ev.NodeID
	}
	for _, clientID := range s.sessions.Watchers(ev.WorkflowID) {
		if err := s.notifier.Notify(ctx, clientID, payload); err != nil {
			s.logger.Warn("notify failed", "client_id", clientID, "workflow_id", ev.WorkflowID, "error", err)
		}
	}
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *FlowmonServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: layoutTool(), Handler: s.handleLayout},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: watchTool(), Handler: s.handleWatch},
	}
}

// --- Tool definitions ---

func layoutTool() mcp.Tool {
	return mcp.NewTool("flowmon.layout",
		mcp.WithDescription("Run the force-directed layout to completion and return node positions"),
		mcp.WithObject("graph", mcp.Description("Graph document with nodes and edges (use instead of workflow_id)")),
		mcp.WithString("workflow_id", mcp.Description("Stored workflow to lay out, with its current node statuses")),
		mcp.WithNumber("seed", mcp.Description("Seed for the initial jitter (default: configured seed)")),
		mcp.WithString("query", mcp.Description("jq expression applied to the final snapshot, e.g. .nodes[] | select(.kind == \"stage\")")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("flowmon.diagram",
		mcp.WithDescription("Render a workflow diagram. Returns ASCII art, Mermaid flowchart syntax, SVG markup or a PNG image"),
		mcp.WithObject("graph", mcp.Description("Graph document with nodes and edges (use instead of workflow_id)")),
		mcp.WithString("workflow_id", mcp.Description("Stored workflow to render")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "svg", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), svg (markup) or image (PNG)"),
		),
		mcp.WithString("include_status", mcp.Description("Overlay recorded node statuses for workflow_id (default: true)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("flowmon.query",
		mcp.WithDescription("Query workflows, status events, or open views"),
		mcp.WithString("resource", mcp.Required(),
			mcp.Enum("workflows", "events", "views"),
			mcp.Description("Type of resource to query"),
		),
		mcp.WithObject("filter", mcp.Description("Filter criteria (status, process_id, limit, workflow_id, since)")),
	)
}

func watchTool() mcp.Tool {
	return mcp.NewTool("flowmon.watch",
		mcp.WithDescription("Receive notifications when a workflow's layout converges or its node statuses change"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow to watch")),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Stable ID of the watching client")),
		mcp.WithBoolean("stop", mcp.Description("Stop watching instead of starting")),
	)
}
