package predicate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/predicate"
	"github.com/tenor-lang/tenor/internal/values"
)

func litTerm(v values.Value) *ast.Term {
	return &ast.Term{Kind: ast.TermLiteral, Literal: &ast.Literal{Value: &v}}
}

func factTerm(id string) *ast.Term {
	return &ast.Term{Kind: ast.TermFactRef, FactRef: id}
}

func TestEvalComparison(t *testing.T) {
	snap := predicate.Snapshot{Facts: map[string]values.Value{"age": values.VInt(21)}}
	e := &ast.Expr{Kind: ast.ExprComparison, Left: factTerm("age"), Op: ast.OpGte, Right: litTerm(values.VInt(18))}
	ok, tr, err := predicate.Eval(e, snap)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, tr.FactList(), "age")
}

func TestEvalVerdictPresent(t *testing.T) {
	snap := predicate.Snapshot{Verdicts: map[string]predicate.Verdict{"approved": {Type: "approved"}}}
	e := &ast.Expr{Kind: ast.ExprVerdictPresent, VerdictType: "approved"}
	ok, tr, err := predicate.Eval(e, snap)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, tr.VerdictList(), "approved")

	e2 := &ast.Expr{Kind: ast.ExprVerdictPresent, VerdictType: "rejected"}
	ok2, _, err := predicate.Eval(e2, snap)
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestEvalForallExists(t *testing.T) {
	snap := predicate.Snapshot{Facts: map[string]values.Value{
		"items": values.VList([]values.Value{values.VInt(1), values.VInt(2), values.VInt(3)}),
	}}
	forall := &ast.Expr{
		Kind: ast.ExprForall, Binder: "x", Domain: "items",
		Body: &ast.Expr{Kind: ast.ExprComparison, Left: factTerm("x"), Op: ast.OpGt, Right: litTerm(values.VInt(0))},
	}
	ok, _, err := predicate.Eval(forall, snap)
	require.NoError(t, err)
	require.True(t, ok)

	exists := &ast.Expr{
		Kind: ast.ExprExists, Binder: "x", Domain: "items",
		Body: &ast.Expr{Kind: ast.ExprComparison, Left: factTerm("x"), Op: ast.OpEq, Right: litTerm(values.VInt(2))},
	}
	ok2, _, err := predicate.Eval(exists, snap)
	require.NoError(t, err)
	require.True(t, ok2)
}

func TestEvalAndShortCircuit(t *testing.T) {
	snap := predicate.Snapshot{Facts: map[string]values.Value{}}
	e := &ast.Expr{
		Kind: ast.ExprAnd,
		LHS:  &ast.Expr{Kind: ast.ExprComparison, Left: litTerm(values.VInt(1)), Op: ast.OpEq, Right: litTerm(values.VInt(2))},
		RHS:  &ast.Expr{Kind: ast.ExprComparison, Left: factTerm("missing"), Op: ast.OpEq, Right: litTerm(values.VInt(1))},
	}
	ok, _, err := predicate.Eval(e, snap)
	require.NoError(t, err)
	require.False(t, ok)
}
