package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/internal/streaming"
	"github.com/rendis/flowmon/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	workflows []*store.Workflow
	events    []*store.Event
	states    []*store.NodeState
}

func (m *mockStore) GetWorkflow(_ context.Context, id string) (*store.Workflow, error) {
	for _, wf := range m.workflows {
		if wf.ID == id {
			return wf, nil
		}
	}
	return nil, schema.NewError(schema.ErrCodeNotFound, "workflow not found")
}

func (m *mockStore) ListWorkflows(_ context.Context, filter store.WorkflowFilter) ([]*store.Workflow, error) {
	result := make([]*store.Workflow, 0)
	for _, wf := range m.workflows {
		if filter.Status != nil && wf.Status != *filter.Status {
			continue
		}
		if filter.ProcessID != "" && wf.ProcessID != filter.ProcessID {
			continue
		}
		result = append(result, wf)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockStore) GetEvents(_ context.Context, workflowID string, since int64) ([]*store.Event, error) {
	result := make([]*store.Event, 0)
	for _, e := range m.events {
		if e.WorkflowID == workflowID && e.Sequence > since {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockStore) ListNodeStates(_ context.Context, workflowID string) ([]*store.NodeState, error) {
	var result []*store.NodeState
	for _, s := range m.states {
		if s.WorkflowID == workflowID {
			result = append(result, s)
		}
	}
	return result, nil
}

func newMockStore() *mockStore {
	return &mockStore{
		workflows: []*store.Workflow{{
			ID:        "wf-pnl",
			Name:      "Daily PnL",
			ProcessID: "pnl",
			Status:    schema.WorkflowStatusInProgress,
			Definition: schema.WorkflowDefinition{
				ProcessID: "pnl",
				Stages: []schema.StageDefinition{
					{ID: 1, Name: "Ingest", Substages: []schema.SubstageDefinition{{ID: 10, Name: "Trades"}}},
					{ID: 2, Name: "Compute"},
				},
			},
		}, {
			ID:     "wf-other",
			Status: schema.WorkflowStatusPending,
		}},
		events: []*store.Event{
			{WorkflowID: "wf-pnl", NodeID: "substage-10", Type: schema.EventNodeStarted, Sequence: 1},
			{WorkflowID: "wf-pnl", NodeID: "substage-10", Type: schema.EventNodeFailed, Sequence: 2},
		},
		states: []*store.NodeState{
			{WorkflowID: "wf-pnl", NodeID: "substage-10", Status: schema.NodeStatusFailed},
		},
	}
}

func newTestServer(ms *mockStore) *FlowmonServer {
	cfg := layout.DefaultConfig()
	cfg.Seed = 5
	cfg.FrameInterval = 0
	deps := FlowmonServerDeps{Layout: cfg, Hub: streaming.NewMemoryHub()}
	if ms != nil {
		deps.Store = ms
	}
	return NewFlowmonServer(deps)
}

// --- Helper ---

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

var inlineGraph = map[string]any{
	"nodes": []any{
		map[string]any{"id": "start", "label": "Start"},
		map[string]any{"id": "stage-1", "label": "One", "status": "completed"},
		map[string]any{"id": "end", "label": "End"},
	},
	"edges": []any{
		map[string]any{"source": "start", "target": "stage-1"},
		map[string]any{"source": "stage-1", "target": "end"},
	},
}

// --- Tests ---

func TestLayoutTool_InlineGraph(t *testing.T) {
	s := newTestServer(nil)

	result, err := s.handleLayout(context.Background(), buildRequest("flowmon.layout", map[string]any{
		"graph": inlineGraph,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var snap layout.Snapshot
	unmarshalResult(t, result, &snap)
	assert.True(t, snap.Final)
	require.Len(t, snap.Nodes, 3)

	start, end := findNode(t, snap, "start"), findNode(t, snap, "end")
	assert.Less(t, start.Y, end.Y, "start sits above end")
}

func TestLayoutTool_SeedIsReproducible(t *testing.T) {
	s := newTestServer(nil)
	req := buildRequest("flowmon.layout", map[string]any{"graph": inlineGraph, "seed": float64(99)})

	first, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	second, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, extractText(t, first), extractText(t, second))
}

func TestLayoutTool_Query(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleLayout(context.Background(), buildRequest("flowmon.layout", map[string]any{
		"workflow_id": "wf-pnl",
		"query":       `[.nodes[] | select(.kind == "stage") | .id]`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out struct {
		Results [][]string `json:"results"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Results, 1)
	assert.ElementsMatch(t, []string{"stage-1", "stage-2"}, out.Results[0])
}

func TestLayoutTool_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no input", map[string]any{}, "one of graph or workflow_id is required"},
		{"unknown workflow", map[string]any{"workflow_id": "missing"}, "workflow not found"},
		{"invalid graph", map[string]any{"graph": map[string]any{"nodes": []any{map[string]any{"id": "a", "status": "odd"}}}}, "invalid graph"},
		{"bad query", map[string]any{"graph": inlineGraph, "query": ".nodes["}, "query failed"},
	}

	s := newTestServer(newMockStore())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleLayout(context.Background(), buildRequest("flowmon.layout", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestLayoutTool_NoStore(t *testing.T) {
	s := newTestServer(nil)
	result, err := s.handleLayout(context.Background(), buildRequest("flowmon.layout", map[string]any{"workflow_id": "wf-pnl"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "no workflow store")
}

func TestDiagramTool_Formats(t *testing.T) {
	s := newTestServer(newMockStore())

	tests := []struct {
		format string
		want   string
	}{
		{"mermaid", "graph TD\n"},
		{"ascii", "[FAIL]"},
		{"svg", `data-node-id="substage-10"`},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			result, err := s.handleDiagram(context.Background(), buildRequest("flowmon.diagram", map[string]any{
				"workflow_id": "wf-pnl",
				"format":      tc.format,
			}))
			require.NoError(t, err)
			require.False(t, result.IsError, extractText(t, result))
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestDiagramTool_WithoutStatus(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleDiagram(context.Background(), buildRequest("flowmon.diagram", map[string]any{
		"workflow_id":    "wf-pnl",
		"format":         "ascii",
		"include_status": "false",
	}))
	require.NoError(t, err)
	text := extractText(t, result)
	assert.NotContains(t, text, "[FAIL]")
	assert.Contains(t, text, "[PEND]")
}

func TestDiagramTool_InvalidFormat(t *testing.T) {
	s := newTestServer(nil)

	result, err := s.handleDiagram(context.Background(), buildRequest("flowmon.diagram", map[string]any{
		"graph":  inlineGraph,
		"format": "pdf",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleDiagram(context.Background(), buildRequest("flowmon.diagram", map[string]any{"graph": inlineGraph}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestQueryWorkflows(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleQuery(context.Background(), buildRequest("flowmon.query", map[string]any{
		"resource": "workflows",
		"filter":   map[string]any{"status": "in-progress"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Workflows []store.Workflow `json:"workflows"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Workflows, 1)
	assert.Equal(t, "wf-pnl", out.Workflows[0].ID)
}

func TestQueryEvents(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleQuery(context.Background(), buildRequest("flowmon.query", map[string]any{
		"resource": "events",
		"filter":   map[string]any{"workflow_id": "wf-pnl", "since": float64(1)},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Events []store.Event `json:"events"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Events, 1)
	assert.Equal(t, schema.EventNodeFailed, out.Events[0].Type)

	result, err = s.handleQuery(context.Background(), buildRequest("flowmon.query", map[string]any{"resource": "events"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestQueryViews_NoManager(t *testing.T) {
	s := newTestServer(nil)
	result, err := s.handleQuery(context.Background(), buildRequest("flowmon.query", map[string]any{"resource": "views"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestQueryUnknownResource(t *testing.T) {
	s := newTestServer(nil)

	result, err := s.handleQuery(context.Background(), buildRequest("flowmon.query", map[string]any{
		"resource": "invalid",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestWatchTool(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleWatch(context.Background(), buildRequest("flowmon.watch", map[string]any{
		"workflow_id": "wf-pnl",
		"client_id":   "client-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	assert.Equal(t, []string{"client-1"}, s.sessions.Watchers("wf-pnl"))

	result, err = s.handleWatch(context.Background(), buildRequest("flowmon.watch", map[string]any{
		"workflow_id": "missing",
		"client_id":   "client-1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleWatch(context.Background(), buildRequest("flowmon.watch", map[string]any{
		"workflow_id": "wf-pnl",
		"client_id":   "client-1",
		"stop":        true,
	}))
	require.NoError(t, err)
	var out struct {
		Watching []string `json:"watching"`
	}
	unmarshalResult(t, result, &out)
	assert.Empty(t, out.Watching)
	assert.Empty(t, s.sessions.Watchers("wf-pnl"))
}

func TestExtractInt(t *testing.T) {
	filter := map[string]any{"a": float64(3), "b": "7", "c": "x", "d": 4}
	assert.Equal(t, 3, extractInt(filter, "a", 0))
	assert.Equal(t, 7, extractInt(filter, "b", 0))
	assert.Equal(t, 9, extractInt(filter, "c", 9))
	assert.Equal(t, 4, extractInt(filter, "d", 0))
	assert.Equal(t, 1, extractInt(nil, "a", 1))
}

// --- Test helpers ---

func findNode(t *testing.T, snap layout.Snapshot, id string) layout.NodePosition {
	t.Helper()
	for _, n := range snap.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not in snapshot", id)
	return layout.NodePosition{}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(text)), target))
}
