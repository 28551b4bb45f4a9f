package validate

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
)

// maxSubFlowDepth bounds the sub-flow traversal used to compute a
// branch's affected entity set.
const maxSubFlowDepth = 8

func validateParallelNonInterference(idx *index.Index, fl *ast.Flow) error {
	return walkParallelSteps(idx, fl.ID, fl.Prov, fl.Steps)
}

func walkParallelSteps(idx *index.Index, flowID string, prov ast.Provenance, steps map[string]*ast.Step) error {
	for stepID, s := range steps {
		if s.Kind != ast.StepParallel {
			continue
		}
		branchEntities := make([]map[string]bool, len(s.Parallel.Branches))
		for i, br := range s.Parallel.Branches {
			branchEntities[i] = collectAffectedEntities(idx, br.Steps, maxSubFlowDepth)
			if err := walkParallelSteps(idx, flowID, prov, br.Steps); err != nil {
				return err
			}
		}
		for i := 0; i < len(branchEntities); i++ {
			for j := i + 1; j < len(branchEntities); j++ {
				for e := range branchEntities[i] {
					if branchEntities[j][e] {
						return errs.Validate("flow", flowID, "parallel", prov.File, prov.Line,
							"flow %s: parallel step %s branches %s and %s both affect entity %q",
							flowID, stepID, s.Parallel.Branches[i].ID, s.Parallel.Branches[j].ID, e)
					}
				}
			}
		}
	}
	return nil
}

func collectAffectedEntities(idx *index.Index, steps map[string]*ast.Step, depth int) map[string]bool {
	out := map[string]bool{}
	if depth < 0 {
		return out
	}
	for _, s := range steps {
		switch s.Kind {
		case ast.StepOperation:
			if op, ok := idx.Operations[s.Operation.Op]; ok {
				for _, eff := range op.Effects {
					out[eff.EntityID] = true
				}
			}
		case ast.StepSubFlow:
			if nested, ok := idx.Flows[s.SubFlow.Flow]; ok {
				for e := range collectAffectedEntities(idx, nested.Steps, depth-1) {
					out[e] = true
				}
			}
		case ast.StepParallel:
			for _, br := range s.Parallel.Branches {
				for e := range collectAffectedEntities(idx, br.Steps, depth-1) {
					out[e] = true
				}
			}
		}
	}
	return out
}
