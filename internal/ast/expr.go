package ast

import "github.com/tenor-lang/tenor/internal/values"

// TermKind is the closed set of predicate operand shapes.
type TermKind string

const (
	TermFactRef TermKind = "fact_ref"
	TermLiteral TermKind = "literal"
	TermMul     TermKind = "mul"
)

// Term is a predicate operand. Exactly one field group applies,
// selected by Kind. FactRef additionally doubles as a reference to a
// quantifier-bound variable when it names an active binder rather than
// a declared fact id (resolved during pass 4 type-checking).
type Term struct {
	Kind TermKind
	Prov Provenance

	FactRef string // TermFactRef

	Literal *Literal // TermLiteral

	MulLeft  *Term // TermMul
	MulRight *Term
}

// Literal is a typed literal payload attached to a produce clause, a
// fact default, or a comparison operand. Raw holds the generically
// decoded value as parsed from source (bool, int64, decimal string,
// string, or nested maps/slices for Record/List/TaggedUnion literals);
// Value is filled in once pass 4 has a resolved Type to coerce against.
type Literal struct {
	Type  *values.Type
	Raw   interface{}
	Value *values.Value
}

// CompOp is the closed set of comparison operators.
type CompOp string

const (
	OpEq  CompOp = "="
	OpNeq CompOp = "!="
	OpLt  CompOp = "<"
	OpLte CompOp = "<="
	OpGt  CompOp = ">"
	OpGte CompOp = ">="
)

// ExprKind is the closed predicate-expression algebra: comparison | and | or | not | verdict_present | forall |
// exists.
type ExprKind string

const (
	ExprComparison     ExprKind = "comparison"
	ExprAnd            ExprKind = "and"
	ExprOr             ExprKind = "or"
	ExprNot            ExprKind = "not"
	ExprVerdictPresent ExprKind = "verdict_present"
	ExprForall         ExprKind = "forall"
	ExprExists         ExprKind = "exists"
)

// Expr is a predicate expression node. Exactly one field group applies,
// selected by Kind. Quantifier binders are lexically scoped: Body may
// reference Binder as a fact_ref Term, shadowing any outer fact of the
// same name only within Body.
type Expr struct {
	Kind ExprKind
	Prov Provenance

	// ExprComparison
	Left           *Term
	Op             CompOp
	Right          *Term
	ComparisonType *values.Type // resolved in pass 4

	// ExprAnd, ExprOr
	LHS *Expr
	RHS *Expr

	// ExprNot
	Operand *Expr

	// ExprVerdictPresent
	VerdictType string

	// ExprForall, ExprExists
	Binder string
	Domain string // fact id of a list-typed fact
	Body   *Expr
}
