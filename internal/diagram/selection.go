package diagram

import "sync"

// Selection tracks the single selected node of a diagram. Clicking a node
// selects it; clicking the selected node again clears the selection.
// Clicks outside nodes are not reported and never clear it.
type Selection struct {
	mu          sync.Mutex
	selected    string
	onNodeClick func(nodeID string)
}

// NewSelection returns an empty selection. onNodeClick may be nil.
func NewSelection(onNodeClick func(nodeID string)) *Selection {
	return &Selection{onNodeClick: onNodeClick}
}

// Click toggles nodeID and returns the resulting selection ("" when
// cleared). The click callback fires once per click, with the clicked id,
// outside the lock.
func (s *Selection) Click(nodeID string) string {
	s.mu.Lock()
	if s.selected == nodeID {
		s.selected = ""
	} else {
		s.selected = nodeID
	}
	current := s.selected
	cb := s.onNodeClick
	s.mu.Unlock()

	if cb != nil {
		cb(nodeID)
	}
	return current
}

// Selected returns the selected node id, or "".
func (s *Selection) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Clear drops the selection without invoking the callback. Used when the
// graph is replaced and the selected node may no longer exist.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}
