// Package flow implements the flow interpreter: a state machine over
// a flow's step graph, executed
// against a snapshot frozen at entry and a mutable multi-instance
// entity-state map.
package flow

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/predicate"
)

// defaultInstance is used for an entity with no explicit instance
// binding.
const defaultInstance = "_default"

// EntityKey identifies one (entity, instance) cell of an EntityStateMap.
type EntityKey struct {
	Entity   string
	Instance string
}

// EntityStateMap is the mutable (entity, instance) -> state map a flow
// executes against.
type EntityStateMap map[EntityKey]string

func (m EntityStateMap) clone() EntityStateMap {
	out := make(EntityStateMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StepResult records one executed step.
type StepResult struct {
	StepID           string
	StepType         ast.StepKind
	Result           string
	InstanceBindings map[string]string
}

// Result is a completed (or capped) flow execution.
type Result struct {
	ExecutionID   string
	Outcome       string
	Steps         []StepResult
	CycleDetected bool
}

// Interpreter executes flows from an elaborated index.
type Interpreter struct {
	Idx      *index.Index
	MaxSteps int64
	MaxDepth int
}

// New returns an Interpreter with the default step/recursion caps.
func New(idx *index.Index) *Interpreter {
	return &Interpreter{Idx: idx, MaxSteps: 10_000, MaxDepth: 256}
}

type execState struct {
	res      *Result
	steps    int64
	bindings map[string]string
	mu       sync.Mutex
}

// appendStep is safe to call from the concurrent branch goroutines
// execParallel spawns.
func (e *execState) appendStep(r StepResult) {
	e.mu.Lock()
	e.res.Steps = append(e.res.Steps, r)
	e.mu.Unlock()
}

func (e *execState) instanceOf(entityID string) string {
	if id, ok := e.bindings[entityID]; ok {
		return id
	}
	return defaultInstance
}

func (e *execState) tick(maxSteps int64) bool {
	n := atomic.AddInt64(&e.steps, 1)
	return n <= maxSteps
}

// Run executes the flow named flowID against snap and entities,
// starting with persona as the initiating persona. bindings maps
// entity id to the instance id it should operate against; entities
// absent from bindings use the default instance.
func (it *Interpreter) Run(flowID string, snap predicate.Snapshot, entities EntityStateMap, persona string, bindings map[string]string) (*Result, error) {
	fl, ok := it.Idx.Flows[flowID]
	if !ok {
		return nil, fmt.Errorf("flow: unknown flow %q", flowID)
	}
	if bindings == nil {
		bindings = map[string]string{}
	}
	st := &execState{res: &Result{ExecutionID: uuid.NewString()}, bindings: bindings}
	outcome, err := it.runGraph(fl.Steps, fl.Entry, snap, entities, persona, st, 0)
	if err != nil {
		return nil, err
	}
	st.res.Outcome = outcome
	return st.res, nil
}

// runGraph executes one self-contained step graph (a whole flow, or one
// ParallelStep branch) from entry until it reaches a terminal.
func (it *Interpreter) runGraph(steps map[string]*ast.Step, entry string, snap predicate.Snapshot, entities EntityStateMap, persona string, st *execState, depth int) (string, error) {
	if depth > it.MaxDepth {
		st.res.CycleDetected = true
		return "cycle_detected", nil
	}
	cur := entry
	for {
		if !st.tick(it.MaxSteps) {
			st.res.CycleDetected = true
			return "cycle_detected", nil
		}
		step, ok := steps[cur]
		if !ok {
			return "", fmt.Errorf("flow: step %q not found", cur)
		}

		outcome, next, terminal, err := it.execStep(step, snap, entities, persona, st, depth)
		if err != nil {
			return "", err
		}
		if terminal {
			return outcome, nil
		}
		cur = next
	}
}

func (it *Interpreter) execStep(step *ast.Step, snap predicate.Snapshot, entities EntityStateMap, persona string, st *execState, depth int) (outcome, next string, terminal bool, err error) {
	switch step.Kind {
	case ast.StepOperation:
		return it.execOperation(step, snap, entities, persona, st, depth)

	case ast.StepBranch:
		ok, _, err := predicate.Eval(step.Branch.Condition, snap)
		if err != nil {
			return "", "", false, err
		}
		target := step.Branch.IfFalse
		if ok {
			target = step.Branch.IfTrue
		}
		st.appendStep(StepResult{StepID: step.ID, StepType: step.Kind, Result: "dispatched"})
		return dispatch(target)

	case ast.StepHandoff:
		st.appendStep(StepResult{StepID: step.ID, StepType: step.Kind, Result: "handoff:" + step.Handoff.FromPersona + "->" + step.Handoff.ToPersona})
		return dispatch(step.Handoff.Next)

	case ast.StepSubFlow:
		nested, ok := it.Idx.Flows[step.SubFlow.Flow]
		if !ok {
			return "", "", false, fmt.Errorf("flow: sub-flow references unknown flow %q", step.SubFlow.Flow)
		}
		nestedOutcome, err := it.runGraph(nested.Steps, nested.Entry, snap, entities, step.SubFlow.Persona, st, depth+1)
		if err != nil {
			return "", "", false, err
		}
		st.appendStep(StepResult{StepID: step.ID, StepType: step.Kind, Result: "subflow:" + nestedOutcome})
		if nestedOutcome == "success" {
			return dispatch(step.SubFlow.OnSuccess)
		}
		return dispatch(step.SubFlow.OnFailure)

	case ast.StepParallel:
		return it.execParallel(step, snap, entities, persona, st, depth)

	default:
		return "", "", false, fmt.Errorf("flow: unknown step kind %q", step.Kind)
	}
}

func dispatch(t ast.StepTarget) (outcome, next string, terminal bool, err error) {
	if t.Kind == ast.TargetTerminal {
		return t.Outcome, "", true, nil
	}
	return "", t.StepRef, false, nil
}

func (it *Interpreter) execOperation(step *ast.Step, snap predicate.Snapshot, entities EntityStateMap, persona string, st *execState, depth int) (outcome, next string, terminal bool, err error) {
	os := step.Operation
	op, ok := it.Idx.Operations[os.Op]
	if !ok {
		return "", "", false, fmt.Errorf("flow: step %s references unknown operation %q", step.ID, os.Op)
	}

	record := func(result string, bindings map[string]string) {
		st.appendStep(StepResult{StepID: step.ID, StepType: step.Kind, Result: result, InstanceBindings: bindings})
	}

	fail := func(reason string) (string, string, bool, error) {
		record("failed:"+reason, nil)
		return it.runFailure(os.OnFailure, snap, entities, persona, st, depth)
	}

	if !personaAllowed(os.Persona, op.AllowedPersonas) {
		return fail("persona_not_authorized")
	}
	if op.Precondition != nil {
		ok, _, err := predicate.Eval(op.Precondition, snap)
		if err != nil {
			return "", "", false, err
		}
		if !ok {
			return fail("precondition_not_met")
		}
	}

	bindings := map[string]string{}
	for _, eff := range op.Effects {
		inst := st.instanceOf(eff.EntityID)
		bindings[eff.EntityID] = inst
		key := EntityKey{Entity: eff.EntityID, Instance: inst}
		if entities[key] != eff.From {
			return fail("entity_not_in_source_state")
		}
	}
	// apply every effect atomically: all from-state checks already
	// passed above, so committing cannot partially fail.
	outcomeName := "success"
	for _, eff := range op.Effects {
		key := EntityKey{Entity: eff.EntityID, Instance: bindings[eff.EntityID]}
		entities[key] = eff.To
		if eff.Outcome != "" {
			outcomeName = eff.Outcome
		}
	}

	record("success", bindings)
	target, ok := os.Outcomes[outcomeName]
	if !ok {
		return "", "", false, fmt.Errorf("flow: step %s has no dispatch target for outcome %q", step.ID, outcomeName)
	}
	return dispatch(target)
}

func personaAllowed(persona string, allowed []string) bool {
	for _, p := range allowed {
		if p == persona {
			return true
		}
	}
	return false
}

func (it *Interpreter) runFailure(fh *ast.FailureHandler, snap predicate.Snapshot, entities EntityStateMap, persona string, st *execState, depth int) (outcome, next string, terminal bool, err error) {
	switch fh.Kind {
	case ast.FailTerminate:
		return fh.Outcome, "", true, nil

	case ast.FailCompensate:
		for _, cs := range fh.CompSteps {
			st.appendStep(StepResult{StepID: "compensate:" + cs.Op, StepType: ast.StepOperation, Result: "compensated"})
		}
		if fh.Then == nil {
			return "", "", true, nil
		}
		return dispatch(*fh.Then)

	case ast.FailEscalate:
		st.appendStep(StepResult{StepID: "escalate", StepType: ast.StepOperation, Result: "escalated_to:" + fh.ToPersona})
		return "", fh.Next, false, nil

	default:
		return "", "", false, fmt.Errorf("flow: unknown failure handler kind %q", fh.Kind)
	}
}

// execParallel runs each branch against its own copy-on-write entity
// map. Branches are proven non-interfering
// at elaboration (pass 5), so they execute concurrently.
func (it *Interpreter) execParallel(step *ast.Step, snap predicate.Snapshot, entities EntityStateMap, persona string, st *execState, depth int) (outcome, next string, terminal bool, err error) {
	ps := step.Parallel
	outcomes := make([]string, len(ps.Branches))
	clones := make([]EntityStateMap, len(ps.Branches))
	errs := make([]error, len(ps.Branches))

	var wg sync.WaitGroup
	for i, br := range ps.Branches {
		clones[i] = entities.clone()
		wg.Add(1)
		go func(i int, br ast.Branch) {
			defer wg.Done()
			o, e := it.runGraph(br.Steps, br.Entry, snap, clones[i], persona, st, depth+1)
			outcomes[i] = o
			errs[i] = e
		}(i, br)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return "", "", false, e
		}
	}
	// Merge back only the cells a branch changed, so one branch's
	// untouched copy never overwrites another branch's write.
	base := entities.clone()
	for i, c := range clones {
		for k, v := range c {
			if base[k] != v {
				entities[k] = v
			}
		}
		st.appendStep(StepResult{
			StepID: step.ID, StepType: step.Kind,
			Result: "branch:" + ps.Branches[i].ID + ":" + outcomes[i],
		})
	}

	allSuccess := true
	anyFailure := false
	for _, o := range outcomes {
		if o != "success" {
			allSuccess = false
		}
		if o == "failure" {
			anyFailure = true
		}
	}

	switch {
	case allSuccess && ps.Join.OnAllSuccess != nil:
		return dispatch(*ps.Join.OnAllSuccess)
	case anyFailure && ps.Join.OnAnyFailure != nil:
		return dispatch(*ps.Join.OnAnyFailure)
	case ps.Join.OnAllComplete != nil:
		return dispatch(*ps.Join.OnAllComplete)
	case allSuccess:
		return "success", "", true, nil
	default:
		return "failure", "", true, nil
	}
}
