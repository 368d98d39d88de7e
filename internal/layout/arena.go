package layout

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rendis/flowmon/pkg/schema"
)

// Body is the simulated state of one node. Bodies live contiguously in an
// Arena and refer to each other only by index.
type Body struct {
	ID         string
	Kind       NodeKind
	StageIndex int // numeric suffix of stage-/substage- ids, -1 otherwise
	Row        int // 1-based rank among the numbered stages present, 0 otherwise
	X, Y       float64
	VX, VY     float64
	Radius     float64
}

// Spring is an edge resolved to arena indices.
type Spring struct {
	From, To int
}

// Stats records what ingestion dropped.
type Stats struct {
	SkippedEdges   int `json:"skipped_edges"`
	DuplicateNodes int `json:"duplicate_nodes"`
}

// Arena owns all simulation state for one graph generation.
type Arena struct {
	Bodies    []Body
	Springs   []Spring
	Index     map[string]int
	Iteration int
	Energy    float64
	Stats     Stats

	// EndY is the anchor target of end: cfg.EndY, or one row below the
	// last stage when the stage ladder reaches further down.
	EndY float64
}

// NewArena ingests a graph: classifies every node once, resolves edges to
// index pairs and assigns initial positions. Edges naming unknown nodes are
// dropped here so the force loop never sees them. Repeated node ids keep
// their first occurrence.
func NewArena(g *schema.Graph, cfg Config) *Arena {
	a := &Arena{Index: make(map[string]int), EndY: cfg.EndY}
	if g == nil {
		return a
	}

	a.Bodies = make([]Body, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := a.Index[n.ID]; dup {
			a.Stats.DuplicateNodes++
			continue
		}
		kind, idx := ClassifyID(n.ID)
		a.Index[n.ID] = len(a.Bodies)
		a.Bodies = append(a.Bodies, Body{
			ID:         n.ID,
			Kind:       kind,
			StageIndex: idx,
			Radius:     kind.Radius(),
		})
	}

	a.Springs = make([]Spring, 0, len(g.Edges))
	for _, e := range g.Edges {
		from, okFrom := a.Index[e.Source]
		to, okTo := a.Index[e.Target]
		if !okFrom || !okTo {
			a.Stats.SkippedEdges++
			continue
		}
		a.Springs = append(a.Springs, Spring{From: from, To: to})
	}

	a.rankStages(cfg)
	place(a, g, cfg, newRand(cfg.Seed))
	return a
}

// rankStages orders the numbered stages by their number and gives each a
// row on the ladder, so stage ids need not be contiguous or start at 1.
func (a *Arena) rankStages(cfg Config) {
	var stages []int
	for i, b := range a.Bodies {
		if b.Kind == KindStage && b.StageIndex >= 0 {
			stages = append(stages, i)
		}
	}
	slices.SortStableFunc(stages, func(x, y int) int {
		return cmp.Compare(a.Bodies[x].StageIndex, a.Bodies[y].StageIndex)
	})
	for row, i := range stages {
		a.Bodies[i].Row = row + 1
	}
	a.EndY = max(cfg.EndY, stageY(cfg, len(stages))+cfg.StageSpacing)
}

// Len returns the number of bodies.
func (a *Arena) Len() int { return len(a.Bodies) }

// Body returns the body for id.
func (a *Arena) Body(id string) (Body, bool) {
	i, ok := a.Index[id]
	if !ok {
		return Body{}, false
	}
	return a.Bodies[i], true
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
