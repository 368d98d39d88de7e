package store

import (
	"encoding/json"
	"time"

	"github.com/rendis/flowmon/pkg/schema"
)

// Workflow is a monitored workflow: its stage structure and overall status.
type Workflow struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name,omitempty"`
	ProcessID  string                    `json:"process_id,omitempty"`
	Definition schema.WorkflowDefinition `json:"definition"`
	Status     schema.WorkflowStatus     `json:"status"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// Event is an immutable node status transition.
type Event struct {
	ID         int64           `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	NodeID     string          `json:"node_id,omitempty"`
	Type       string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Sequence   int64           `json:"sequence"`
}

// NodeState is the materialized status of one diagram node.
type NodeState struct {
	WorkflowID  string            `json:"workflow_id"`
	NodeID      string            `json:"node_id"`
	Status      schema.NodeStatus `json:"status"`
	Message     string            `json:"message,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// RefreshJob re-reads a workflow and relayouts its open views on a cron schedule.
type RefreshJob struct {
	ID             string     `json:"id"`
	WorkflowID     string     `json:"workflow_id"`
	CronExpression string     `json:"cron_expression"`
	Enabled        bool       `json:"enabled"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// --- Filter and update types ---

// WorkflowFilter specifies criteria for listing workflows.
type WorkflowFilter struct {
	Status    *schema.WorkflowStatus `json:"status,omitempty"`
	ProcessID string                 `json:"process_id,omitempty"`
	Since     *time.Time             `json:"since,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
	Offset    int                    `json:"offset,omitempty"`
}

// WorkflowUpdate specifies mutable fields of a workflow.
type WorkflowUpdate struct {
	Name       *string                    `json:"name,omitempty"`
	Status     *schema.WorkflowStatus     `json:"status,omitempty"`
	Definition *schema.WorkflowDefinition `json:"definition,omitempty"`
}

// RefreshJobUpdate specifies mutable fields of a refresh job.
type RefreshJobUpdate struct {
	Enabled       *bool      `json:"enabled,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty"`
}

// RefreshJobFilter specifies criteria for listing refresh jobs.
type RefreshJobFilter struct {
	Enabled    *bool  `json:"enabled,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}
