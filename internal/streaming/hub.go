package streaming

import "context"

// StreamEvent is a real-time event about a workflow diagram: a layout
// snapshot, a view interaction or a workflow refresh.
type StreamEvent struct {
	Sequence   uint64 `json:"sequence"`
	WorkflowID string `json:"workflow_id"`
	ViewID     string `json:"view_id,omitempty"`
	NodeID     string `json:"node_id,omitempty"`
	EventType  string `json:"event_type"`
	Payload    any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
// Empty fields match everything.
type EventFilter struct {
	WorkflowID string   `json:"workflow_id,omitempty"`
	ViewID     string   `json:"view_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for diagram events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
