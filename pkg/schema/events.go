package schema

// Event type constants published on the streaming hub.
const (
	EventLayoutSnapshot  = "layout.snapshot"
	EventLayoutConverged = "layout.converged"
	EventLayoutCancelled = "layout.cancelled"

	EventViewOpened    = "view.opened"
	EventViewClosed    = "view.closed"
	EventViewSelection = "view.selection"
	EventViewViewport  = "view.viewport"

	EventWorkflowRefreshed = "workflow.refreshed"
)

// Node status event types recorded in the store's event log.
const (
	EventNodeStarted   = "node.started"
	EventNodeCompleted = "node.completed"
	EventNodeFailed    = "node.failed"
	EventNodeReset     = "node.reset"
)

// StatusEventType returns the event type that records a transition to status.
func StatusEventType(status NodeStatus) string {
	switch status {
	case NodeStatusInProgress:
		return EventNodeStarted
	case NodeStatusCompleted:
		return EventNodeCompleted
	case NodeStatusFailed:
		return EventNodeFailed
	default:
		return EventNodeReset
	}
}
