package layout

import "math"

// NodePosition is the published position of one node.
type NodePosition struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Bounds is the axis-aligned box containing every node circle.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Snapshot is an immutable copy of the simulation at one tick. Readers
// never share memory with the running simulation.
type Snapshot struct {
	WorkflowID string         `json:"workflow_id,omitempty"`
	Generation uint64         `json:"generation"`
	Iteration  int            `json:"iteration"`
	Energy     float64        `json:"energy"`
	State      string         `json:"state"`
	Final      bool           `json:"final"`
	Nodes      []NodePosition `json:"nodes"`
	Bounds     Bounds         `json:"bounds"`
	Stats      Stats          `json:"stats"`

	index map[string]int
}

// Position returns the published position of id.
func (s *Snapshot) Position(id string) (NodePosition, bool) {
	if s == nil {
		return NodePosition{}, false
	}
	if s.index == nil {
		for _, n := range s.Nodes {
			if n.ID == id {
				return n, true
			}
		}
		return NodePosition{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return NodePosition{}, false
	}
	return s.Nodes[i], true
}

// takeSnapshot copies the arena into a fresh Snapshot.
func takeSnapshot(a *Arena, st State, generation uint64) *Snapshot {
	snap := &Snapshot{
		Generation: generation,
		Iteration:  a.Iteration,
		Energy:     a.Energy,
		State:      st.String(),
		Final:      st.Terminal(),
		Nodes:      make([]NodePosition, len(a.Bodies)),
		Stats:      a.Stats,
		index:      make(map[string]int, len(a.Bodies)),
	}
	if len(a.Bodies) == 0 {
		return snap
	}

	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for i, body := range a.Bodies {
		snap.Nodes[i] = NodePosition{
			ID:     body.ID,
			Kind:   body.Kind.String(),
			X:      body.X,
			Y:      body.Y,
			Radius: body.Radius,
		}
		snap.index[body.ID] = i
		b.MinX = math.Min(b.MinX, body.X-body.Radius)
		b.MinY = math.Min(b.MinY, body.Y-body.Radius)
		b.MaxX = math.Max(b.MaxX, body.X+body.Radius)
		b.MaxY = math.Max(b.MaxY, body.Y+body.Radius)
	}
	snap.Bounds = b
	return snap
}
