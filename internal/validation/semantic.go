package validation

import (
	"fmt"

	"github.com/rendis/flowmon/pkg/schema"
)

// validateGraphSemantic reports the problems the layout engine tolerates but
// a caller probably did not intend: duplicate node ids (first occurrence
// wins), edges whose endpoints are unknown (skipped) and self-loops.
func validateGraphSemantic(g *schema.Graph) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	ids := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if first, dup := ids[n.ID]; dup {
			result.AddNodeWarning(fmt.Sprintf("nodes[%d].id", i), n.ID,
				fmt.Sprintf("duplicate node id %q, nodes[%d] is used", n.ID, first))
			continue
		}
		ids[n.ID] = i
	}

	for i, e := range g.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if _, ok := ids[e.Source]; !ok {
			result.AddWarning(path+".source", schema.ErrCodeValidation,
				fmt.Sprintf("edge references unknown node %q and is skipped", e.Source))
		}
		if _, ok := ids[e.Target]; !ok {
			result.AddWarning(path+".target", schema.ErrCodeValidation,
				fmt.Sprintf("edge references unknown node %q and is skipped", e.Target))
		}
		if e.Source == e.Target {
			result.AddNodeWarning(path, e.Source,
				fmt.Sprintf("edge %q is a self-loop", e.ID))
		}
	}

	return result
}

// validateDefinitionSemantic checks id uniqueness and substage dependency
// references. Dependencies on substages of another stage are not drawn.
func validateDefinitionSemantic(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	stages := make(map[int]bool, len(def.Stages))
	subs := make(map[int]bool)
	for i, st := range def.Stages {
		path := fmt.Sprintf("stages[%d]", i)
		if stages[st.ID] {
			result.AddError(path+".id", schema.ErrCodeValidation,
				fmt.Sprintf("duplicate stage id %d", st.ID))
		}
		stages[st.ID] = true

		local := make(map[int]bool, len(st.Substages))
		for _, sub := range st.Substages {
			local[sub.ID] = true
		}

		for j, sub := range st.Substages {
			subPath := fmt.Sprintf("%s.substages[%d]", path, j)
			if subs[sub.ID] {
				result.AddError(subPath+".id", schema.ErrCodeValidation,
					fmt.Sprintf("duplicate substage id %d", sub.ID))
			}
			subs[sub.ID] = true

			for k, dep := range sub.DependsOn {
				depPath := fmt.Sprintf("%s.depends_on[%d]", subPath, k)
				switch {
				case dep == sub.ID:
					result.AddError(depPath, schema.ErrCodeValidation,
						fmt.Sprintf("substage %d depends on itself", sub.ID))
				case !local[dep]:
					result.AddWarning(depPath, schema.ErrCodeValidation,
						fmt.Sprintf("substage %d is not in stage %d, dependency ignored", dep, st.ID))
				}
			}
		}
	}

	return result
}
