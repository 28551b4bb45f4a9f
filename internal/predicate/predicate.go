// Package predicate evaluates the closed predicate-expression algebra
// against a snapshot of facts and verdicts-so-far.
// It is shared by the rule engine, the flow interpreter's BranchStep
// and operation preconditions, and the action-space computer; all
// three evaluate the same
// expression tree, just against different snapshots.
package predicate

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/values"
)

// Verdict is one produced verdict: a type name plus its typed payload
// and provenance.
type Verdict struct {
	Type         string
	Payload      values.Value
	Rule         string
	Stratum      int
	FactsUsed    []string
	VerdictsUsed []string
}

// Snapshot is the frozen (FactSet, VerdictSet) a flow or rule evaluates
// against.
type Snapshot struct {
	Facts    map[string]values.Value
	Verdicts map[string]Verdict // keyed by verdict type; verdict-type uniqueness guarantees at most one producer
}

// Trace accumulates which facts and verdicts a single evaluation
// touched, for provenance.
type Trace struct {
	Facts    map[string]bool
	Verdicts map[string]bool
}

func newTrace() *Trace {
	return &Trace{Facts: map[string]bool{}, Verdicts: map[string]bool{}}
}

func (t *Trace) FactList() []string    { return keys(t.Facts) }
func (t *Trace) VerdictList() []string { return keys(t.Verdicts) }

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// bindings maps an active quantifier binder name to its current value.
type bindings map[string]values.Value

// Eval evaluates e against snap, returning its boolean result and a
// trace of every fact/verdict it touched.
func Eval(e *ast.Expr, snap Snapshot) (bool, *Trace, error) {
	tr := newTrace()
	v, err := eval(e, snap, nil, tr)
	return v, tr, err
}

func eval(e *ast.Expr, snap Snapshot, bind bindings, tr *Trace) (bool, error) {
	if e == nil {
		return true, nil
	}
	switch e.Kind {
	case ast.ExprComparison:
		lv, err := evalTerm(e.Left, snap, bind, tr)
		if err != nil {
			return false, err
		}
		rv, err := evalTerm(e.Right, snap, bind, tr)
		if err != nil {
			return false, err
		}
		return compare(e.Op, lv, rv)

	case ast.ExprAnd:
		l, err := eval(e.LHS, snap, bind, tr)
		if err != nil || !l {
			return false, err
		}
		return eval(e.RHS, snap, bind, tr)

	case ast.ExprOr:
		l, err := eval(e.LHS, snap, bind, tr)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return eval(e.RHS, snap, bind, tr)

	case ast.ExprNot:
		v, err := eval(e.Operand, snap, bind, tr)
		if err != nil {
			return false, err
		}
		return !v, nil

	case ast.ExprVerdictPresent:
		tr.Verdicts[e.VerdictType] = true
		_, ok := snap.Verdicts[e.VerdictType]
		return ok, nil

	case ast.ExprForall, ast.ExprExists:
		domain, ok := snap.Facts[e.Domain]
		if !ok {
			return false, fmt.Errorf("predicate: quantifier domain fact %q not found", e.Domain)
		}
		tr.Facts[e.Domain] = true
		if domain.Kind != values.KindList {
			return false, fmt.Errorf("predicate: quantifier domain %q is not a List", e.Domain)
		}
		nested := bindings{}
		for k, v := range bind {
			nested[k] = v
		}
		for _, item := range domain.List {
			nested[e.Binder] = item
			v, err := eval(e.Body, snap, nested, tr)
			if err != nil {
				return false, err
			}
			if e.Kind == ast.ExprExists && v {
				return true, nil
			}
			if e.Kind == ast.ExprForall && !v {
				return false, nil
			}
		}
		return e.Kind == ast.ExprForall, nil

	default:
		return false, fmt.Errorf("predicate: unknown expr kind %q", e.Kind)
	}
}

func compare(op ast.CompOp, a, b values.Value) (bool, error) {
	switch op {
	case ast.OpEq:
		return values.Equal(a, b)
	case ast.OpNeq:
		eq, err := values.Equal(a, b)
		return !eq, err
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		c, err := values.Compare(a, b)
		if err != nil {
			return false, err
		}
		switch op {
		case ast.OpLt:
			return c < 0, nil
		case ast.OpLte:
			return c <= 0, nil
		case ast.OpGt:
			return c > 0, nil
		case ast.OpGte:
			return c >= 0, nil
		}
	}
	return false, fmt.Errorf("predicate: unknown comparison operator %q", op)
}

func evalTerm(t *ast.Term, snap Snapshot, bind bindings, tr *Trace) (values.Value, error) {
	switch t.Kind {
	case ast.TermFactRef:
		if v, ok := bind[t.FactRef]; ok {
			return v, nil
		}
		if v, ok := snap.Facts[t.FactRef]; ok {
			tr.Facts[t.FactRef] = true
			return v, nil
		}
		return values.Value{}, fmt.Errorf("predicate: unknown fact or binder %q", t.FactRef)

	case ast.TermLiteral:
		if t.Literal.Value == nil {
			return values.Value{}, fmt.Errorf("predicate: literal has no resolved value")
		}
		return *t.Literal.Value, nil

	case ast.TermMul:
		lv, err := evalTerm(t.MulLeft, snap, bind, tr)
		if err != nil {
			return values.Value{}, err
		}
		rv, err := evalTerm(t.MulRight, snap, bind, tr)
		if err != nil {
			return values.Value{}, err
		}
		return values.Multiply(lv, rv)

	default:
		return values.Value{}, fmt.Errorf("predicate: unknown term kind %q", t.Kind)
	}
}
