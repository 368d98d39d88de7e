package validation

import (
	"fmt"
	"slices"

	"github.com/rendis/flowmon/pkg/schema"
)

// validateDAG runs cycle detection (Kahn's algorithm) over the substage
// dependencies of every stage. Only dependencies inside the same stage count.
func validateDAG(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for i, st := range def.Stages {
		if cyclic := substageCycle(st.Substages); len(cyclic) > 0 {
			result.AddError(fmt.Sprintf("stages[%d].substages", i), schema.ErrCodeValidation,
				fmt.Sprintf("stage %d substage dependencies contain a cycle through %v", st.ID, cyclic))
		}
	}
	return result
}

// substageCycle returns the sorted ids left unvisited by a topological sort,
// or nil when the dependencies are acyclic.
func substageCycle(subs []schema.SubstageDefinition) []int {
	known := make(map[int]bool, len(subs))
	for _, s := range subs {
		known[s.ID] = true
	}

	inDegree := make(map[int]int, len(subs))
	dependents := make(map[int][]int, len(subs))
	for _, s := range subs {
		if _, ok := inDegree[s.ID]; !ok {
			inDegree[s.ID] = 0
		}
		seen := make(map[int]bool, len(s.DependsOn))
		for _, dep := range s.DependsOn {
			if !known[dep] || seen[dep] || dep == s.ID {
				continue
			}
			seen[dep] = true
			inDegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	queue := make([]int, 0, len(inDegree))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := make(map[int]bool, len(inDegree))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited[id] = true
		for _, next := range dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(visited) == len(inDegree) {
		return nil
	}
	var cyclic []int
	for id := range inDegree {
		if !visited[id] {
			cyclic = append(cyclic, id)
		}
	}
	slices.Sort(cyclic)
	return cyclic
}
