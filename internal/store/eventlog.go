package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rendis/flowmon/pkg/schema"
)

// EventLog records node status transitions on top of a LibSQLStore and keeps
// the node_states view in step with them.
type EventLog struct {
	store *LibSQLStore
}

// NewEventLog wraps a LibSQLStore to provide event-sourcing operations.
func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// StatusPayload is the payload of a node status event.
type StatusPayload struct {
	Status  schema.NodeStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}

// RecordStatus appends a status event for nodeID and upserts its node state
// in the same transaction.
func (el *EventLog) RecordStatus(ctx context.Context, workflowID, nodeID string, status schema.NodeStatus, message string) (*Event, error) {
	payload, err := json.Marshal(StatusPayload{Status: status, Message: message})
	if err != nil {
		return nil, fmt.Errorf("marshal status payload: %w", err)
	}
	event := &Event{
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Type:       schema.StatusEventType(status),
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}

	tx, err := el.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, event); err != nil {
		return nil, err
	}

	var startedAt, completedAt any
	switch status {
	case schema.NodeStatusInProgress:
		startedAt = event.Timestamp
	case schema.NodeStatusCompleted, schema.NodeStatusFailed:
		completedAt = event.Timestamp
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO node_states (workflow_id, node_id, status, message, started_at, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(workflow_id, node_id) DO UPDATE SET
		   status=excluded.status, message=excluded.message,
		   started_at=COALESCE(excluded.started_at, node_states.started_at),
		   completed_at=excluded.completed_at, updated_at=excluded.updated_at`,
		workflowID, nodeID, string(status), nullStr(message), startedAt, completedAt, event.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert node state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status: %w", err)
	}
	return event, nil
}

// ReplayEvents rebuilds node states from the event log alone.
// Returns an error if sequence gaps are detected.
func (el *EventLog) ReplayEvents(ctx context.Context, workflowID string) (map[string]*NodeState, error) {
	events, err := el.store.GetEvents(ctx, workflowID, 0)
	if err != nil {
		return nil, fmt.Errorf("get events for replay: %w", err)
	}

	states := make(map[string]*NodeState)
	for i, e := range events {
		if expected := int64(i + 1); e.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in workflow %s: expected %d, got %d", workflowID, expected, e.Sequence)
		}
		if e.NodeID == "" {
			continue
		}

		ns, ok := states[e.NodeID]
		if !ok {
			ns = &NodeState{WorkflowID: workflowID, NodeID: e.NodeID, Status: schema.NodeStatusPending}
			states[e.NodeID] = ns
		}

		var p StatusPayload
		if len(e.Payload) > 0 {
			_ = json.Unmarshal(e.Payload, &p)
		}
		ts := e.Timestamp
		ns.UpdatedAt = ts
		ns.Message = p.Message

		switch e.Type {
		case schema.EventNodeStarted:
			ns.Status = schema.NodeStatusInProgress
			ns.StartedAt = &ts
			ns.CompletedAt = nil
		case schema.EventNodeCompleted:
			ns.Status = schema.NodeStatusCompleted
			ns.CompletedAt = &ts
		case schema.EventNodeFailed:
			ns.Status = schema.NodeStatusFailed
			ns.CompletedAt = &ts
		case schema.EventNodeReset:
			ns.Status = schema.NodeStatusPending
			ns.CompletedAt = nil
		}
	}
	return states, nil
}
