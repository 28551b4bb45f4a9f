// Package analyze implements the static analyzer: eight independent
// analyses (S1-S8) over an elaborated index, producing findings with
// severity and provenance. Analyses with no dependency between them
// run concurrently via golang.org/x/sync/errgroup.
package analyze

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
)

// Severity is the closed finding-severity enumeration.
type Severity string

const (
	SeverityWarning Severity = "Warning"
	SeverityInfo    Severity = "Info"
)

// Finding is one static-analysis observation.
type Finding struct {
	Analysis string
	Severity Severity
	Message  string
	Prov     ast.Provenance
}

// StateSpace is S1's per-entity output.
type StateSpace struct {
	States          []string `json:"states"`
	Initial         string   `json:"initial"`
	TransitionCount int      `json:"transition_count"`
}

// Reachability is S2's per-entity output.
type Reachability struct {
	Reachable   []string `json:"reachable"`
	Unreachable []string `json:"unreachable"`
	Dead        []string `json:"dead"` // unreachable AND no outgoing transitions
}

// AdmissibilityKey identifies one (entity, state, persona) cell of S3a.
type AdmissibilityKey struct {
	Entity, State, Persona string
}

// AuthorityEntry is one "which persona via which op" fact for S4.
type AuthorityEntry struct {
	Persona, Entity, FromState, Op string
}

// FlowPath is one enumerated path through a flow's step graph for S6.
type FlowPath struct {
	Flow    string   `json:"flow"`
	Steps   []string `json:"steps"`
	Outcome string   `json:"outcome"`
	Cyclic  bool     `json:"cyclic"`
}

// Complexity is S7's per-flow output.
type Complexity struct {
	Flow         string `json:"flow"`
	MaxPredDepth int    `json:"max_pred_depth"`
	MaxPredNodes int    `json:"max_pred_nodes"`
	MaxPathDepth int    `json:"max_path_depth"`
	HasCycle     bool   `json:"has_cycle"`
}

// Report collects every analysis' output.
type Report struct {
	StateSpace     map[string]StateSpace
	Reachability   map[string]Reachability
	Admissibility  map[AdmissibilityKey][]string
	Authority      []AuthorityEntry
	VerdictTypes   []string
	OperationOutcomes map[string][]string
	FlowPaths      map[string][]FlowPath
	UnreachableSteps map[string][]string
	Complexity     map[string]Complexity
	RulePredicateComplexity map[string]PredicateComplexity
	VerdictUnique  bool // S8 confirmation stub
	Findings       []Finding
}

// PredicateComplexity is S7's node/depth count for one predicate tree.
type PredicateComplexity struct {
	Nodes int `json:"nodes"`
	Depth int `json:"depth"`
}

// Run executes S1-S8 in dependency order, parallelizing independent
// analyses within each wave.
func Run(ctx context.Context, idx *index.Index) (*Report, error) {
	r := &Report{
		StateSpace:        map[string]StateSpace{},
		Reachability:      map[string]Reachability{},
		Admissibility:     map[AdmissibilityKey][]string{},
		FlowPaths:         map[string][]FlowPath{},
		UnreachableSteps:  map[string][]string{},
		Complexity:        map[string]Complexity{},
		OperationOutcomes: map[string][]string{},
		RulePredicateComplexity: map[string]PredicateComplexity{},
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { s1(idx, r); return nil })
	g.Go(func() error { s3a(idx, r); return nil })
	g.Go(func() error { s5(idx, r); return nil })
	g.Go(func() error { r.VerdictUnique = true; return nil }) // S8
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g2, _ := errgroup.WithContext(ctx)
	g2.Go(func() error { s2(idx, r); return nil })
	g2.Go(func() error { s4(idx, r); return nil })
	if err := g2.Wait(); err != nil {
		return nil, err
	}

	s6(idx, r)
	s7(idx, r)

	return r, nil
}

func s1(idx *index.Index, r *Report) {
	for id, e := range idx.Entities {
		r.StateSpace[id] = StateSpace{
			States:          e.States,
			Initial:         e.Initial,
			TransitionCount: len(e.Transitions),
		}
	}
}

func s2(idx *index.Index, r *Report) {
	for id, e := range idx.Entities {
		adj := map[string][]string{}
		for _, tr := range e.Transitions {
			adj[tr.From] = append(adj[tr.From], tr.To)
		}
		reached := map[string]bool{e.Initial: true}
		queue := []string{e.Initial}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range adj[cur] {
				if !reached[n] {
					reached[n] = true
					queue = append(queue, n)
				}
			}
		}
		var reachable, unreachable, dead []string
		for _, s := range e.States {
			if reached[s] {
				reachable = append(reachable, s)
			} else {
				unreachable = append(unreachable, s)
				if len(adj[s]) == 0 {
					dead = append(dead, s)
					r.Findings = append(r.Findings, Finding{
						Analysis: "S2", Severity: SeverityWarning, Prov: e.Prov,
						Message: "entity " + id + ": state " + s + " is dead (unreachable with no outgoing transitions)",
					})
				}
			}
		}
		r.Reachability[id] = Reachability{Reachable: reachable, Unreachable: unreachable, Dead: dead}
	}
}

func s3a(idx *index.Index, r *Report) {
	for opID, op := range idx.Operations {
		for _, eff := range op.Effects {
			for _, persona := range op.AllowedPersonas {
				k := AdmissibilityKey{Entity: eff.EntityID, State: eff.From, Persona: persona}
				r.Admissibility[k] = append(r.Admissibility[k], opID)
			}
		}
	}
	for opID, op := range idx.Operations {
		if len(op.Effects) == 0 {
			continue
		}
		admissible := false
		for _, eff := range op.Effects {
			for _, persona := range op.AllowedPersonas {
				k := AdmissibilityKey{Entity: eff.EntityID, State: eff.From, Persona: persona}
				if len(r.Admissibility[k]) > 0 {
					admissible = true
				}
			}
		}
		if !admissible {
			r.Findings = append(r.Findings, Finding{
				Analysis: "S3a", Severity: SeverityWarning, Prov: op.Prov,
				Message: "operation " + opID + " is admissible to no persona in any declared state",
			})
		}
	}
}

func s4(idx *index.Index, r *Report) {
	for opID, op := range idx.Operations {
		for _, eff := range op.Effects {
			for _, persona := range op.AllowedPersonas {
				r.Authority = append(r.Authority, AuthorityEntry{
					Persona: persona, Entity: eff.EntityID, FromState: eff.From, Op: opID,
				})
			}
		}
	}
}

func s5(idx *index.Index, r *Report) {
	for vt := range idx.VerdictRule {
		r.VerdictTypes = append(r.VerdictTypes, vt)
	}
	for opID, op := range idx.Operations {
		r.OperationOutcomes[opID] = op.Outcomes
	}
}

// s6 enumerates every path from a flow's entry to a terminal outcome,
// bounded by the number of steps in the flow (a cycle is structurally
// impossible post pass-5, but s6 still reports a defensive cycle flag).
func s6(idx *index.Index, r *Report) {
	for flowID, fl := range idx.Flows {
		visitedSteps := map[string]bool{}
		var paths []FlowPath
		var walk func(stepID string, trail []string)
		walk = func(stepID string, trail []string) {
			if contains(trail, stepID) {
				paths = append(paths, FlowPath{Flow: flowID, Steps: append(append([]string{}, trail...), stepID), Cyclic: true})
				return
			}
			visitedSteps[stepID] = true
			step, ok := fl.Steps[stepID]
			if !ok {
				return
			}
			trail = append(append([]string{}, trail...), stepID)
			targets, outcomes := stepTargetsWithOutcomes(step)
			if len(targets) == 0 {
				paths = append(paths, FlowPath{Flow: flowID, Steps: trail, Outcome: defaultOutcome(outcomes)})
				return
			}
			for i, t := range targets {
				if t.Kind == ast.TargetTerminal {
					paths = append(paths, FlowPath{Flow: flowID, Steps: trail, Outcome: t.Outcome})
					continue
				}
				_ = i
				walk(t.StepRef, trail)
			}
		}
		walk(fl.Entry, nil)
		r.FlowPaths[flowID] = paths

		var unreached []string
		for id := range fl.Steps {
			if !visitedSteps[id] {
				unreached = append(unreached, id)
				r.Findings = append(r.Findings, Finding{
					Analysis: "S6", Severity: SeverityWarning, Prov: fl.Prov,
					Message: "flow " + flowID + ": step " + id + " is unreachable from entry",
				})
			}
		}
		r.UnreachableSteps[flowID] = unreached
	}
}

func defaultOutcome(outcomes []string) string {
	for _, o := range outcomes {
		if o == "success" {
			return "success"
		}
	}
	if len(outcomes) > 0 {
		return outcomes[0]
	}
	return ""
}

func stepTargetsWithOutcomes(s *ast.Step) ([]ast.StepTarget, []string) {
	switch s.Kind {
	case ast.StepOperation:
		var targets []ast.StepTarget
		var outcomes []string
		for o, t := range s.Operation.Outcomes {
			targets = append(targets, t)
			outcomes = append(outcomes, o)
		}
		return targets, outcomes
	case ast.StepBranch:
		return []ast.StepTarget{s.Branch.IfTrue, s.Branch.IfFalse}, nil
	case ast.StepHandoff:
		return []ast.StepTarget{s.Handoff.Next}, nil
	case ast.StepSubFlow:
		return []ast.StepTarget{s.SubFlow.OnSuccess, s.SubFlow.OnFailure}, nil
	case ast.StepParallel:
		var targets []ast.StepTarget
		if s.Parallel.Join.OnAllSuccess != nil {
			targets = append(targets, *s.Parallel.Join.OnAllSuccess)
		}
		if s.Parallel.Join.OnAnyFailure != nil {
			targets = append(targets, *s.Parallel.Join.OnAnyFailure)
		}
		if s.Parallel.Join.OnAllComplete != nil {
			targets = append(targets, *s.Parallel.Join.OnAllComplete)
		}
		return targets, nil
	}
	return nil, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func s7(idx *index.Index, r *Report) {
	for id, rule := range idx.Rules {
		nodes, depth := predicateComplexity(rule.When)
		r.RulePredicateComplexity[id] = PredicateComplexity{Nodes: nodes, Depth: depth}
	}
	for flowID, fl := range idx.Flows {
		maxPredDepth, maxPredNodes := 0, 0
		for _, s := range fl.Steps {
			if s.Kind == ast.StepOperation {
				if op, ok := idx.Operations[s.Operation.Op]; ok && op.Precondition != nil {
					n, d := predicateComplexity(op.Precondition)
					if n > maxPredNodes {
						maxPredNodes = n
					}
					if d > maxPredDepth {
						maxPredDepth = d
					}
				}
			}
		}
		maxPathDepth := 0
		hasCycle := false
		for _, p := range r.FlowPaths[flowID] {
			if len(p.Steps) > maxPathDepth {
				maxPathDepth = len(p.Steps)
			}
			if p.Cyclic {
				hasCycle = true
			}
		}
		r.Complexity[flowID] = Complexity{
			Flow: flowID, MaxPredDepth: maxPredDepth, MaxPredNodes: maxPredNodes,
			MaxPathDepth: maxPathDepth, HasCycle: hasCycle,
		}
		if hasCycle {
			r.Findings = append(r.Findings, Finding{
				Analysis: "S7", Severity: SeverityWarning, Prov: fl.Prov,
				Message: "flow " + flowID + ": step graph contains a cycle",
			})
		}
	}
}

func predicateComplexity(e *ast.Expr) (nodes, depth int) {
	if e == nil {
		return 0, 0
	}
	switch e.Kind {
	case ast.ExprComparison, ast.ExprVerdictPresent:
		return 1, 1
	case ast.ExprAnd, ast.ExprOr:
		ln, ld := predicateComplexity(e.LHS)
		rn, rd := predicateComplexity(e.RHS)
		d := ld
		if rd > d {
			d = rd
		}
		return ln + rn + 1, d + 1
	case ast.ExprNot:
		n, d := predicateComplexity(e.Operand)
		return n + 1, d + 1
	case ast.ExprForall, ast.ExprExists:
		n, d := predicateComplexity(e.Body)
		return n + 1, d + 1
	}
	return 0, 0
}
