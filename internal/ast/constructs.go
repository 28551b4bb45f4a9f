package ast

import "github.com/tenor-lang/tenor/internal/values"

// FactSource is either a free-text label or a structured source-id plus
// dotted field path.
type FactSource struct {
	Structured bool
	Freetext   string
	SourceID   string
	Path       string
}

// Fact declares a typed named input to evaluation.
type Fact struct {
	ID      string
	Prov    Provenance
	Type    *values.Type
	Source  FactSource
	Default *Literal // nil if no default
}

// Transition is a legal (from, to) pair in an Entity's state machine.
type Transition struct {
	From string
	To   string
}

// Entity declares a finite state machine.
type Entity struct {
	ID          string
	Prov        Provenance
	States      []string
	Initial     string
	Transitions []Transition
	Parent      string // empty if none
}

// Produce is a Rule's conclusion: a verdict-type name bound to a typed
// payload literal.
type Produce struct {
	VerdictType string
	PayloadType *values.Type
	Payload     *Literal
}

// Rule declares a stratified inference rule.
type Rule struct {
	ID      string
	Prov    Provenance
	Stratum int
	When    *Expr
	Produce Produce
}

// Effect is one (entity, from-state, to-state, optional outcome label)
// triple applied atomically by an Operation.
type Effect struct {
	EntityID string
	From     string
	To       string
	Outcome  string // empty means the effect is unconditional/default
}

// Operation declares authorized personas, an optional precondition, and
// an ordered list of state effects.
type Operation struct {
	ID              string
	Prov            Provenance
	AllowedPersonas []string
	Precondition    *Expr // nil if none
	Effects         []Effect
	Outcomes        []string
	ErrorContract   []string
}
