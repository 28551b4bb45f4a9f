package ast

// StepTargetKind distinguishes a dispatch to another step from a
// terminal outcome.
type StepTargetKind string

const (
	TargetStepRef  StepTargetKind = "step_ref"
	TargetTerminal StepTargetKind = "terminal"
)

// StepTarget is where a step dispatches control next.
type StepTarget struct {
	Kind    StepTargetKind
	StepRef string // TargetStepRef
	Outcome string // TargetTerminal
}

// FailureKind is the closed set of failure-handler shapes.
type FailureKind string

const (
	FailTerminate  FailureKind = "terminate"
	FailCompensate FailureKind = "compensate"
	FailEscalate   FailureKind = "escalate"
)

// CompStep names one compensating operation of a Compensate handler.
// The flow interpreter records one "compensated" step per CompStep, in
// order, and then dispatches the handler's Then target; it does not
// check Persona, apply the operation's effects, or read OnFailure.
type CompStep struct {
	Op        string
	Persona   string
	OnFailure string
}

// FailureHandler is attached to every OperationStep (enforced in pass
// 5) and dispatches when the operation's persona check, precondition,
// or from-state check fails.
type FailureHandler struct {
	Kind FailureKind

	Outcome string // FailTerminate

	CompSteps []CompStep  // FailCompensate
	Then      *StepTarget // FailCompensate

	ToPersona string // FailEscalate
	Next      string // FailEscalate: step id to re-dispatch to
}

// StepKind is the closed set of flow step shapes.
type StepKind string

const (
	StepOperation StepKind = "operation"
	StepBranch    StepKind = "branch"
	StepHandoff   StepKind = "handoff"
	StepSubFlow   StepKind = "subflow"
	StepParallel  StepKind = "parallel"
)

// OperationStep dispatches to an Operation, routing on its outcome.
type OperationStep struct {
	Op        string
	Persona   string
	Outcomes  map[string]StepTarget
	OnFailure *FailureHandler
}

// BranchStep evaluates a predicate against the flow's snapshot and
// dispatches accordingly.
type BranchStep struct {
	Condition *Expr
	Persona   string
	IfTrue    StepTarget
	IfFalse   StepTarget
}

// HandoffStep records a persona transfer with no state change.
type HandoffStep struct {
	FromPersona string
	ToPersona   string
	Next        StepTarget
}

// SubFlowStep recursively executes another flow against the same
// snapshot and entity map.
type SubFlowStep struct {
	Flow      string
	Persona   string
	OnSuccess StepTarget
	OnFailure StepTarget
}

// JoinPolicy names dispatch targets for a ParallelStep's three join
// conditions. OnAllComplete may be nil.
type JoinPolicy struct {
	OnAllSuccess  *StepTarget
	OnAnyFailure  *StepTarget
	OnAllComplete *StepTarget
}

// Branch is one concurrent arm of a ParallelStep, itself a small step
// graph with its own entry.
type Branch struct {
	ID    string
	Entry string
	Steps map[string]*Step
}

// ParallelStep executes each Branch against the shared entity map;
// elaboration proves branches touch disjoint entity sets.
type ParallelStep struct {
	Branches []Branch
	Join     JoinPolicy
}

// Step is a tagged union over the five step kinds.
type Step struct {
	ID   string
	Prov Provenance
	Kind StepKind

	Operation *OperationStep
	Branch    *BranchStep
	Handoff   *HandoffStep
	SubFlow   *SubFlowStep
	Parallel  *ParallelStep
}

// Flow declares a step graph, its entry point, and a snapshot policy
// label.
type Flow struct {
	ID       string
	Prov     Provenance
	Snapshot string
	Entry    string
	Steps    map[string]*Step
}
