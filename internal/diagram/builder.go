package diagram

import (
	"fmt"
	"strconv"

	"github.com/rendis/flowmon/internal/store"
	"github.com/rendis/flowmon/pkg/schema"
)

const (
	startID = "start"
	endID   = "end"
)

// Build turns a stored workflow definition and its node states into the
// node and edge lists the layout engine consumes. Stages become
// "stage-<id>" nodes chained from start to end; substages become
// "substage-<id>" nodes fanned out from their stage and carrying
// data.stageId so that they are placed next to it.
//
// Nodes without a recorded state derive their status: a stage from its
// substages, start and end from the stages.
func Build(workflowID string, def *schema.WorkflowDefinition, states []*store.NodeState) (*schema.Graph, error) {
	if def == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "diagram: workflow definition is nil")
	}
	if err := checkIDs(def); err != nil {
		return nil, err
	}

	stateMap := make(map[string]schema.NodeStatus, len(states))
	for _, s := range states {
		stateMap[s.NodeID] = s.Status
	}

	g := &schema.Graph{
		WorkflowID:    workflowID,
		WorkflowTitle: titleFromDef(def),
	}

	stageStatuses := make([]schema.NodeStatus, 0, len(def.Stages))
	stageNodes := make([]schema.DiagramNode, 0, len(def.Stages))
	var subNodes []schema.DiagramNode
	var subEdges []schema.DiagramEdge

	for _, stage := range def.Stages {
		stageNodeID := stageNodeID(stage.ID)
		data := map[string]any{"stageId": stage.ID}
		if def.ProcessID != "" {
			data["processId"] = def.ProcessID
		}

		var childStatuses []schema.NodeStatus
		for _, sub := range stage.Substages {
			subID := substageNodeID(sub.ID)
			status := statusOr(stateMap[subID], schema.NodeStatusPending)
			childStatuses = append(childStatuses, status)
			subData := map[string]any{"stageId": stage.ID}
			if def.ProcessID != "" {
				subData["processId"] = def.ProcessID
			}
			subNodes = append(subNodes, schema.DiagramNode{
				ID:     subID,
				Type:   typeOr(sub.Type),
				Label:  labelOr(sub.Name, subID),
				Status: status,
				Data:   subData,
			})
		}

		status := stateMap[stageNodeID]
		if status == "" {
			status = aggregate(childStatuses)
		}
		stageStatuses = append(stageStatuses, status)
		stageNodes = append(stageNodes, schema.DiagramNode{
			ID:     stageNodeID,
			Type:   typeOr(stage.Type),
			Label:  labelOr(stage.Name, stageNodeID),
			Status: status,
			Data:   data,
		})

		subEdges = append(subEdges, substageEdges(stage, stateMap)...)
	}

	start := schema.DiagramNode{
		ID: startID, Type: schema.NodeTypePass, Label: "Start", Status: startStatus(stageStatuses),
	}
	g.Nodes = append(g.Nodes, start)
	g.Nodes = append(g.Nodes, stageNodes...)
	g.Nodes = append(g.Nodes, subNodes...)
	g.Nodes = append(g.Nodes, schema.DiagramNode{
		ID: endID, Type: schema.NodeTypeSucceed, Label: "End", Status: endStatus(stageStatuses),
	})

	g.Edges = buildEdges(start, stageNodes)
	g.Edges = append(g.Edges, subEdges...)
	return g, nil
}

// buildEdges chains start -> stages -> end. The edge type follows the
// status of its source so the finished part of the pipeline reads green.
func buildEdges(start schema.DiagramNode, stages []schema.DiagramNode) []schema.DiagramEdge {
	chain := make([]schema.DiagramNode, 0, len(stages)+2)
	chain = append(chain, start)
	chain = append(chain, stages...)
	chain = append(chain, schema.DiagramNode{ID: endID})
	edges := make([]schema.DiagramEdge, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		from, to := chain[i-1], chain[i]
		edges = append(edges, schema.DiagramEdge{
			ID:     edgeID(from.ID, to.ID),
			Source: from.ID,
			Target: to.ID,
			Type:   edgeTypeFor(from.Status),
		})
	}
	return edges
}

// substageEdges links a stage to its root substages and each substage to
// the substages it depends on.
func substageEdges(stage schema.StageDefinition, stateMap map[string]schema.NodeStatus) []schema.DiagramEdge {
	stageNode := stageNodeID(stage.ID)
	known := make(map[int]bool, len(stage.Substages))
	for _, sub := range stage.Substages {
		known[sub.ID] = true
	}

	var edges []schema.DiagramEdge
	for _, sub := range stage.Substages {
		target := substageNodeID(sub.ID)
		roots := 0
		for _, dep := range sub.DependsOn {
			if !known[dep] {
				continue
			}
			roots++
			source := substageNodeID(dep)
			edges = append(edges, schema.DiagramEdge{
				ID:     edgeID(source, target),
				Source: source,
				Target: target,
				Type:   edgeTypeFor(stateMap[source]),
			})
		}
		if roots == 0 {
			edges = append(edges, schema.DiagramEdge{
				ID:     edgeID(stageNode, target),
				Source: stageNode,
				Target: target,
				Type:   schema.EdgeTypeDefault,
			})
		}
	}
	return edges
}

// checkIDs rejects repeated stage ids and repeated substage ids; both
// become node ids and must be unique across the workflow.
func checkIDs(def *schema.WorkflowDefinition) error {
	stages := make(map[int]bool, len(def.Stages))
	subs := make(map[int]bool)
	for _, st := range def.Stages {
		if stages[st.ID] {
			return schema.NewErrorf(schema.ErrCodeValidation, "diagram: duplicate stage id %d", st.ID).
				WithNode(stageNodeID(st.ID))
		}
		stages[st.ID] = true
		for _, sub := range st.Substages {
			if subs[sub.ID] {
				return schema.NewErrorf(schema.ErrCodeValidation, "diagram: duplicate substage id %d", sub.ID).
					WithNode(substageNodeID(sub.ID))
			}
			subs[sub.ID] = true
		}
	}
	return nil
}

// aggregate derives a parent status from its children: any failure wins,
// then all-complete, then any progress.
func aggregate(children []schema.NodeStatus) schema.NodeStatus {
	if len(children) == 0 {
		return schema.NodeStatusPending
	}
	completed, started := 0, 0
	for _, s := range children {
		switch s {
		case schema.NodeStatusFailed:
			return schema.NodeStatusFailed
		case schema.NodeStatusCompleted:
			completed++
			started++
		case schema.NodeStatusInProgress:
			started++
		}
	}
	switch {
	case completed == len(children):
		return schema.NodeStatusCompleted
	case started > 0:
		return schema.NodeStatusInProgress
	default:
		return schema.NodeStatusPending
	}
}

func startStatus(stages []schema.NodeStatus) schema.NodeStatus {
	for _, s := range stages {
		if s != schema.NodeStatusPending {
			return schema.NodeStatusCompleted
		}
	}
	return schema.NodeStatusPending
}

func endStatus(stages []schema.NodeStatus) schema.NodeStatus {
	if len(stages) == 0 {
		return schema.NodeStatusPending
	}
	agg := aggregate(stages)
	if agg == schema.NodeStatusCompleted || agg == schema.NodeStatusFailed {
		return agg
	}
	return schema.NodeStatusPending
}

func edgeTypeFor(sourceStatus schema.NodeStatus) schema.EdgeType {
	switch sourceStatus {
	case schema.NodeStatusCompleted:
		return schema.EdgeTypeSuccess
	case schema.NodeStatusFailed:
		return schema.EdgeTypeFailure
	default:
		return schema.EdgeTypeDefault
	}
}

func stageNodeID(id int) string    { return "stage-" + strconv.Itoa(id) }
func substageNodeID(id int) string { return "substage-" + strconv.Itoa(id) }

func edgeID(from, to string) string {
	return fmt.Sprintf("e-%s-%s", from, to)
}

func statusOr(s, def schema.NodeStatus) schema.NodeStatus {
	if s == "" {
		return def
	}
	return s
}

func typeOr(t schema.NodeType) schema.NodeType {
	if t == "" {
		return schema.NodeTypeTask
	}
	return t
}

func labelOr(label, id string) string {
	if label == "" {
		return id
	}
	return label
}

// titleFromDef generates a diagram title from workflow metadata.
func titleFromDef(def *schema.WorkflowDefinition) string {
	if def.Metadata != nil {
		if name, ok := def.Metadata["name"].(string); ok && name != "" {
			return name
		}
	}
	return "Workflow"
}
