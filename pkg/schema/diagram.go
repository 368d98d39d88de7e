package schema

import "strconv"

// NodeType is the workflow state type of a diagram node. It only selects the icon.
type NodeType string

const (
	NodeTypeTask     NodeType = "task"
	NodeTypeChoice   NodeType = "choice"
	NodeTypeParallel NodeType = "parallel"
	NodeTypeMap      NodeType = "map"
	NodeTypeWait     NodeType = "wait"
	NodeTypePass     NodeType = "pass"
	NodeTypeFail     NodeType = "fail"
	NodeTypeSucceed  NodeType = "succeed"
)

// NodeStatus is the runtime status shown on a diagram node.
type NodeStatus string

const (
	NodeStatusCompleted  NodeStatus = "completed"
	NodeStatusInProgress NodeStatus = "in-progress"
	NodeStatusPending    NodeStatus = "pending"
	NodeStatusFailed     NodeStatus = "failed"
)

// EdgeType changes how an edge is drawn. It never affects layout.
type EdgeType string

const (
	EdgeTypeDefault   EdgeType = "default"
	EdgeTypeSuccess   EdgeType = "success"
	EdgeTypeFailure   EdgeType = "failure"
	EdgeTypeCondition EdgeType = "condition"
)

// DiagramNode is a node supplied to the layout engine.
//
// Ids follow a naming convention: "start", "end", "stage-<n>" and
// "substage-<n>" drive initial placement and sizing. Data may carry
// "stageId" and "processId" for placement and display only.
type DiagramNode struct {
	ID     string         `json:"id"`
	Type   NodeType       `json:"type,omitempty"`
	Label  string         `json:"label"`
	Status NodeStatus     `json:"status,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// DiagramEdge connects two diagram nodes by id.
type DiagramEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Label  string   `json:"label,omitempty"`
	Type   EdgeType `json:"type,omitempty"`
}

// Graph is the complete input of one diagram: the node and edge lists plus
// the workflow identity shown in the toolbar.
type Graph struct {
	WorkflowID    string        `json:"workflow_id"`
	WorkflowTitle string        `json:"workflow_title,omitempty"`
	Nodes         []DiagramNode `json:"nodes"`
	Edges         []DiagramEdge `json:"edges"`
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *DiagramNode {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// DataString returns a string-valued Data entry. Numbers are formatted
// without a fractional part so that {"stageId": 2} and {"stageId": "2"}
// resolve to the same stage.
func (n *DiagramNode) DataString(key string) string {
	if n.Data == nil {
		return ""
	}
	switch v := n.Data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
