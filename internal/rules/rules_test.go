package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/rules"
	"github.com/tenor-lang/tenor/internal/values"
)

func litPtr(v values.Value) *values.Value { return &v }

func TestInferStratifiedOrder(t *testing.T) {
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r0_base", Stratum: 0,
			When:    &ast.Expr{Kind: ast.ExprComparison, Left: &ast.Term{Kind: ast.TermFactRef, FactRef: "age"}, Op: ast.OpGte, Right: &ast.Term{Kind: ast.TermLiteral, Literal: &ast.Literal{Value: litPtr(values.VInt(18))}}},
			Produce: ast.Produce{VerdictType: "adult", Payload: &ast.Literal{Value: litPtr(values.VBool(true))}},
		}},
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r1_derived", Stratum: 1,
			When:    &ast.Expr{Kind: ast.ExprVerdictPresent, VerdictType: "adult"},
			Produce: ast.Produce{VerdictType: "eligible", Payload: &ast.Literal{Value: litPtr(values.VBool(true))}},
		}},
	})
	require.NoError(t, err)

	out, err := rules.Infer(idx, map[string]values.Value{"age": values.VInt(30)})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "adult", out[0].Type)
	require.Equal(t, "eligible", out[1].Type)
	require.Contains(t, out[1].VerdictsUsed, "adult")
}

func TestInferFalsePredicateProducesNoVerdict(t *testing.T) {
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r0", Stratum: 0,
			When:    &ast.Expr{Kind: ast.ExprComparison, Left: &ast.Term{Kind: ast.TermFactRef, FactRef: "age"}, Op: ast.OpGte, Right: &ast.Term{Kind: ast.TermLiteral, Literal: &ast.Literal{Value: litPtr(values.VInt(18))}}},
			Produce: ast.Produce{VerdictType: "adult"},
		}},
	})
	require.NoError(t, err)

	out, err := rules.Infer(idx, map[string]values.Value{"age": values.VInt(10)})
	require.NoError(t, err)
	require.Empty(t, out)
}
