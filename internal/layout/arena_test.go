package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowmon/pkg/schema"
)

func TestNewArenaPlacement(t *testing.T) {
	cfg := testConfig()
	graph := graphOf([]schema.DiagramNode{
		node("start"),
		node("end"),
		node("stage-2"),
		{ID: "substage-5", Label: "calc", Data: map[string]any{"stageId": float64(2)}},
		{ID: "substage-6", Label: "orphan", Data: map[string]any{"stageId": "9"}},
		node("loose"),
	}, nil)

	a := NewArena(graph, cfg)
	require.Equal(t, 6, a.Len())

	start, _ := a.Body("start")
	assert.Equal(t, cfg.CenterX, start.X)
	assert.Equal(t, cfg.StartY, start.Y)

	end, _ := a.Body("end")
	assert.Equal(t, cfg.EndY, end.Y)

	stage, _ := a.Body("stage-2")
	assert.Equal(t, cfg.CenterX, stage.X)
	assert.Equal(t, 1, stage.Row, "the only stage takes the first row")
	assert.Equal(t, cfg.StageBaseY+cfg.StageSpacing, stage.Y)
	assert.Equal(t, 60.0, stage.Radius)

	sub, _ := a.Body("substage-5")
	assert.LessOrEqual(t, math.Abs(sub.X-stage.X), cfg.SubstageOffset)
	assert.LessOrEqual(t, math.Abs(sub.Y-stage.Y), cfg.SubstageOffset)
	assert.Equal(t, 40.0, sub.Radius)

	for _, id := range []string{"substage-6", "loose"} {
		b, ok := a.Body(id)
		require.True(t, ok)
		assert.LessOrEqual(t, math.Abs(b.X-cfg.CenterX), cfg.RandomSpread/2)
		assert.LessOrEqual(t, math.Abs(b.Y-cfg.CenterY), cfg.RandomSpread/2)
	}
}

func TestNewArenaRanksStagesByNumber(t *testing.T) {
	cfg := testConfig()
	graph := graphOf([]schema.DiagramNode{
		node("end"), node("stage-30"), node("stage-x"), node("stage-10"), node("stage-20"),
		node("stage-40"), node("stage-50"), node("start"),
	}, nil)

	a := NewArena(graph, cfg)

	for row, id := range []string{"stage-10", "stage-20", "stage-30", "stage-40", "stage-50"} {
		b, ok := a.Body(id)
		require.True(t, ok)
		assert.Equal(t, row+1, b.Row, id)
		assert.Equal(t, cfg.StageBaseY+float64(row+1)*cfg.StageSpacing, b.Y, id)
	}
	unnumbered, _ := a.Body("stage-x")
	assert.Zero(t, unnumbered.Row)

	wantEnd := cfg.StageBaseY + 6*cfg.StageSpacing
	assert.Equal(t, wantEnd, a.EndY, "end is anchored one row below the last stage")
	end, _ := a.Body("end")
	assert.Equal(t, wantEnd, end.Y)
}

func TestNewArenaResolvesEdgesToIndices(t *testing.T) {
	graph := graphOf(
		[]schema.DiagramNode{node("a"), node("b"), node("a")},
		[]schema.DiagramEdge{edge("a", "b"), edge("b", "missing"), edge("b", "b")},
	)
	a := NewArena(graph, testConfig())

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, a.Stats.DuplicateNodes)
	assert.Equal(t, 1, a.Stats.SkippedEdges)
	assert.Equal(t, []Spring{{From: 0, To: 1}, {From: 1, To: 1}}, a.Springs)
}

func TestNewArenaSeededPlacementIsDeterministic(t *testing.T) {
	cfg := testConfig()
	first := NewArena(chainGraph(5), cfg)
	second := NewArena(chainGraph(5), cfg)
	assert.Equal(t, first.Bodies, second.Bodies)
}

func TestCoincidentBodiesSeparate(t *testing.T) {
	cfg := testConfig()
	cfg.RandomSpread = 0
	a := NewArena(graphOf([]schema.DiagramNode{node("x"), node("y")}, nil), cfg)
	require.Equal(t, a.Bodies[0].X, a.Bodies[1].X)

	st := StateIdle
	for range 5 {
		st, _ = Step(st, a, cfg)
	}
	assert.Greater(t, a.Bodies[0].X, a.Bodies[1].X)
}
