package schema

// WorkflowDefinition describes the stage structure of a monitored workflow
// (for example a PnL pipeline). It is the stored shape the diagram builder
// turns into a Graph.
type WorkflowDefinition struct {
	ProcessID string            `json:"process_id,omitempty"`
	Stages    []StageDefinition `json:"stages"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// StageDefinition is one ordered stage of a workflow.
type StageDefinition struct {
	ID        int                  `json:"id"`
	Name      string               `json:"name"`
	Type      NodeType             `json:"type,omitempty"` // default: task
	Substages []SubstageDefinition `json:"substages,omitempty"`
}

// SubstageDefinition is a unit of work inside a stage.
type SubstageDefinition struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Type      NodeType `json:"type,omitempty"`       // default: task
	DependsOn []int    `json:"depends_on,omitempty"` // substage ids in the same stage
}

// WorkflowStatus is the overall status of a workflow run.
type WorkflowStatus string

const (
	WorkflowStatusPending    WorkflowStatus = "pending"
	WorkflowStatusInProgress WorkflowStatus = "in-progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFailed     WorkflowStatus = "failed"
)
