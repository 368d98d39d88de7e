package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/pkg/schema"
)

const graphDoc = `{
  "workflow_id": "wf-cli",
  "workflow_title": "CLI",
  "nodes": [
    {"id": "start", "label": "Start"},
    {"id": "stage-1", "label": "Load", "status": "failed"},
    {"id": "substage-10", "label": "Trades", "status": "failed", "data": {"stageId": 1}},
    {"id": "end", "label": "End"}
  ],
  "edges": [
    {"source": "start", "target": "stage-1"},
    {"source": "stage-1", "target": "substage-10"},
    {"source": "stage-1", "target": "end"}
  ]
}`

func writeGraph(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	isolateHome(t)
	root, _ := newRoot(io.Discard)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestLayoutCmd(t *testing.T) {
	path := writeGraph(t, graphDoc)

	out, errOut, err := run(t, "", "layout", path, "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, errOut, "converged")

	var snap layout.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.True(t, snap.Final)
	assert.Len(t, snap.Nodes, 4)

	again, _, err := run(t, "", "layout", path, "--seed", "7", "--quiet")
	require.NoError(t, err)
	assert.Equal(t, out, again, "same seed, same output")
}

func TestLayoutCmd_QueryAndStdin(t *testing.T) {
	out, errOut, err := run(t, graphDoc, "layout", "-", "--quiet", "--query", `[.nodes[] | select(.kind == "substage") | .id]`)
	require.NoError(t, err)
	assert.Empty(t, errOut)

	var ids []string
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []string{"substage-10"}, ids)
}

func TestLayoutCmd_InvalidGraph(t *testing.T) {
	path := writeGraph(t, `{"nodes": [{"id": "a", "status": "broken"}]}`)

	_, _, err := run(t, "", "layout", path)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation), err.Error())

	_, _, err = run(t, "", "layout", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read graph")
}

func TestLayoutCmd_WarningsOnStderr(t *testing.T) {
	path := writeGraph(t, `{"nodes": [{"id": "a"}, {"id": "a"}, {"id": "b"}], "edges": [{"source": "a", "target": "ghost"}]}`)

	out, errOut, err := run(t, "", "layout", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, errOut, `warning nodes[1].id (a): duplicate node id "a"`)
	assert.Contains(t, errOut, "edges[0].target")

	var snap layout.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 1, snap.Stats.DuplicateNodes)
	assert.Equal(t, 1, snap.Stats.SkippedEdges)
}

func TestRenderCmd(t *testing.T) {
	path := writeGraph(t, graphDoc)

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
			out, _, err := run(t, "", "render", path, "--format", tc.format)
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestRenderCmd_HighlightToFile(t *testing.T) {
	path := writeGraph(t, graphDoc)
	dest := filepath.Join(t.TempDir(), "out.svg")

	_, errOut, err := run(t, "", "render", path, "-o", dest, "--highlight", `status == "failed"`, "--selected", "stage-1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "wrote")

	svg, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(svg), `class="highlight"`))
}

func TestRenderCmd_Errors(t *testing.T) {
	path := writeGraph(t, graphDoc)

	_, _, err := run(t, "", "render", path, "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = run(t, "", "render", path, "--highlight", "status +")
	assert.Error(t, err)

	_, _, err = run(t, "", "render")
	assert.Error(t, err)
}
