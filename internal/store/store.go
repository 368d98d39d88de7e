package store

import "context"

// Store defines the persistence layer contract for monitored workflows.
// Layouts are never stored; only the metadata diagrams are built from.
// All implementations must be safe for concurrent use.
type Store interface {
	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, update WorkflowUpdate) error
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	// Status events (append-only)
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, workflowID string, since int64) ([]*Event, error)

	// Node state (materialized view)
	UpsertNodeState(ctx context.Context, state *NodeState) error
	GetNodeState(ctx context.Context, workflowID, nodeID string) (*NodeState, error)
	ListNodeStates(ctx context.Context, workflowID string) ([]*NodeState, error)

	// Refresh jobs
	CreateRefreshJob(ctx context.Context, job *RefreshJob) error
	GetRefreshJob(ctx context.Context, id string) (*RefreshJob, error)
	UpdateRefreshJob(ctx context.Context, id string, update RefreshJobUpdate) error
	ListRefreshJobs(ctx context.Context, filter RefreshJobFilter) ([]*RefreshJob, error)
	DeleteRefreshJob(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
