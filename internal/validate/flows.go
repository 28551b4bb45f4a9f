package validate

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
)

func validateFlows(idx *index.Index) error {
	for _, fl := range idx.Flows {
		if err := validateStepGraph(fl.ID, fl.Prov, fl.Steps, fl.Entry); err != nil {
			return err
		}
		if err := validateParallelNonInterference(idx, fl); err != nil {
			return err
		}
	}
	return validateSubFlowAcyclic(idx)
}

// validateStepGraph enforces: entry exists, every StepRef resolves,
// every OperationStep carries a failure handler, and the step-to-step
// transition graph is acyclic via Kahn's algorithm. Branches of a ParallelStep are validated recursively as
// self-contained local step graphs.
func validateStepGraph(flowID string, prov ast.Provenance, steps map[string]*ast.Step, entry string) error {
	if _, ok := steps[entry]; !ok {
		return errs.Validate("flow", flowID, "entry", prov.File, prov.Line,
			"flow %s: entry step %q does not exist", flowID, entry)
	}

	adj := map[string][]string{}
	for id := range steps {
		adj[id] = nil
	}

	checkTarget := func(stepID string, t ast.StepTarget) error {
		if t.Kind != ast.TargetStepRef {
			return nil
		}
		if _, ok := steps[t.StepRef]; !ok {
			return errs.Validate("flow", flowID, "steps", prov.File, prov.Line,
				"flow %s: step %s references unknown step %q", flowID, stepID, t.StepRef)
		}
		adj[stepID] = append(adj[stepID], t.StepRef)
		return nil
	}

	for id, step := range steps {
		switch step.Kind {
		case ast.StepOperation:
			if step.Operation.OnFailure == nil {
				return errs.Validate("flow", flowID, "steps", prov.File, prov.Line,
					"flow %s: operation step %s is missing a failure handler", flowID, id)
			}
			for _, t := range step.Operation.Outcomes {
				if err := checkTarget(id, t); err != nil {
					return err
				}
			}
			if err := checkFailureHandlerTargets(flowID, prov, id, steps, adj, step.Operation.OnFailure); err != nil {
				return err
			}
		case ast.StepBranch:
			if err := checkTarget(id, step.Branch.IfTrue); err != nil {
				return err
			}
			if err := checkTarget(id, step.Branch.IfFalse); err != nil {
				return err
			}
		case ast.StepHandoff:
			if err := checkTarget(id, step.Handoff.Next); err != nil {
				return err
			}
		case ast.StepSubFlow:
			if err := checkTarget(id, step.SubFlow.OnSuccess); err != nil {
				return err
			}
			if err := checkTarget(id, step.SubFlow.OnFailure); err != nil {
				return err
			}
		case ast.StepParallel:
			for _, br := range step.Parallel.Branches {
				if err := validateStepGraph(flowID+"/"+br.ID, prov, br.Steps, br.Entry); err != nil {
					return err
				}
			}
			for _, t := range []*ast.StepTarget{step.Parallel.Join.OnAllSuccess, step.Parallel.Join.OnAnyFailure, step.Parallel.Join.OnAllComplete} {
				if t == nil {
					continue
				}
				if err := checkTarget(id, *t); err != nil {
					return err
				}
			}
		}
	}

	return kahnAcyclic(flowID, prov, adj)
}

func checkFailureHandlerTargets(flowID string, prov ast.Provenance, stepID string, steps map[string]*ast.Step, adj map[string][]string, fh *ast.FailureHandler) error {
	switch fh.Kind {
	case ast.FailCompensate:
		if fh.Then != nil && fh.Then.Kind == ast.TargetStepRef {
			if _, ok := steps[fh.Then.StepRef]; !ok {
				return errs.Validate("flow", flowID, "steps", prov.File, prov.Line,
					"flow %s: step %s compensate.then references unknown step %q", flowID, stepID, fh.Then.StepRef)
			}
			adj[stepID] = append(adj[stepID], fh.Then.StepRef)
		}
	case ast.FailEscalate:
		if fh.Next != "" {
			if _, ok := steps[fh.Next]; !ok {
				return errs.Validate("flow", flowID, "steps", prov.File, prov.Line,
					"flow %s: step %s escalate.next references unknown step %q", flowID, stepID, fh.Next)
			}
			adj[stepID] = append(adj[stepID], fh.Next)
		}
	}
	return nil
}

// kahnAcyclic rejects a cyclic step-transition graph via Kahn's
// topological sort: if fewer nodes are consumed than
// exist, a cycle remains among the unconsumed nodes.
func kahnAcyclic(flowID string, prov ast.Provenance, adj map[string][]string) error {
	indeg := map[string]int{}
	for id := range adj {
		indeg[id] = 0
	}
	for _, targets := range adj {
		for _, t := range targets {
			indeg[t]++
		}
	}
	var queue []string
	for id, d := range indeg {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, t := range adj[n] {
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
	if visited != len(adj) {
		return errs.Validate("flow", flowID, "steps", prov.File, prov.Line,
			"flow %s: step-transition graph contains a cycle", flowID)
	}
	return nil
}

// validateSubFlowAcyclic rejects a cyclic sub-flow reference graph
// across all flows.
func validateSubFlowAcyclic(idx *index.Index) error {
	adj := map[string][]string{}
	for id, fl := range idx.Flows {
		adj[id] = subFlowTargets(fl.Steps)
	}
	inStack := map[string]bool{}
	visited := map[string]bool{}
	var dfs func(id string, path []string) error
	dfs = func(id string, path []string) error {
		if inStack[id] {
			return errs.Validate("flow", id, "steps", "", 0, "sub-flow reference cycle: %v -> %s", path, id)
		}
		if visited[id] {
			return nil
		}
		inStack[id] = true
		visited[id] = true
		for _, next := range adj[id] {
			if err := dfs(next, append(path, id)); err != nil {
				return err
			}
		}
		inStack[id] = false
		return nil
	}
	for id := range idx.Flows {
		if err := dfs(id, nil); err != nil {
			return err
		}
	}
	return nil
}

func subFlowTargets(steps map[string]*ast.Step) []string {
	var out []string
	for _, s := range steps {
		switch s.Kind {
		case ast.StepSubFlow:
			out = append(out, s.SubFlow.Flow)
		case ast.StepParallel:
			for _, br := range s.Parallel.Branches {
				out = append(out, subFlowTargets(br.Steps)...)
			}
		}
	}
	return out
}
