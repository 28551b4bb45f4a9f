package typecheck_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/typecheck"
	"github.com/tenor-lang/tenor/internal/values"
)

func factTerm(id string) *ast.Term {
	return &ast.Term{Kind: ast.TermFactRef, FactRef: id}
}

func litTerm(raw interface{}) *ast.Term {
	return &ast.Term{Kind: ast.TermLiteral, Literal: &ast.Literal{Raw: raw}}
}

func buildIndex(t *testing.T, constructs []*ast.Construct) *index.Index {
	t.Helper()
	idx, err := index.Build(constructs)
	require.NoError(t, err)
	require.NoError(t, typecheck.ResolveTypes(idx))
	return idx
}

func TestCheckComparisonCoercesLiteral(t *testing.T) {
	constructs := []*ast.Construct{
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "balance", Type: values.Money("USD")}},
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r1", Stratum: 0,
			When: &ast.Expr{
				Kind: ast.ExprComparison, Op: ast.OpLte,
				Left:  factTerm("balance"),
				Right: litTerm(map[string]interface{}{"amount": "100", "currency": "USD"}),
			},
			Produce: ast.Produce{VerdictType: "within_limit", PayloadType: values.Bool(), Payload: &ast.Literal{Raw: true}},
		}},
	}
	idx := buildIndex(t, constructs)
	require.NoError(t, typecheck.CheckAll(idx))
	r := idx.Rules["r1"]
	require.Equal(t, values.KindMoney, r.When.ComparisonType.Base)
	require.NotNil(t, r.When.Right.Literal.Value)
}

func TestCheckRejectsVariableTimesVariable(t *testing.T) {
	minV, maxV := int64(0), int64(1000)
	constructs := []*ast.Construct{
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "a", Type: values.Int(&minV, &maxV)}},
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "b", Type: values.Int(&minV, &maxV)}},
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r1", Stratum: 0,
			When: &ast.Expr{
				Kind: ast.ExprComparison, Op: ast.OpGt,
				Left:  &ast.Term{Kind: ast.TermMul, MulLeft: factTerm("a"), MulRight: factTerm("b")},
				Right: litTerm(int64(100)),
			},
			Produce: ast.Produce{VerdictType: "v", PayloadType: values.Bool(), Payload: &ast.Literal{Raw: true}},
		}},
	}
	idx := buildIndex(t, constructs)
	err := typecheck.CheckAll(idx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "variable × variable")
}

func TestCheckVerdictPresentRequiresProducer(t *testing.T) {
	constructs := []*ast.Construct{
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r1", Stratum: 1,
			When:    &ast.Expr{Kind: ast.ExprVerdictPresent, VerdictType: "nonexistent"},
			Produce: ast.Produce{VerdictType: "v", PayloadType: values.Bool(), Payload: &ast.Literal{Raw: true}},
		}},
	}
	idx := buildIndex(t, constructs)
	err := typecheck.CheckAll(idx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown verdict type")
}

func TestResolveTypesReplacesTypeRef(t *testing.T) {
	constructs := []*ast.Construct{
		{Kind: ast.KindTypeDecl, TypeDecl: &ast.TypeDecl{ID: "Address", Type: &values.Type{
			Base: values.KindRecord, Fields: map[string]*values.Type{"city": values.Text()},
		}}},
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "addr", Type: &values.Type{Base: values.KindTypeRef, RefName: "Address"}}},
	}
	idx, err := index.Build(constructs)
	require.NoError(t, err)
	require.NoError(t, typecheck.ResolveTypes(idx))
	require.Equal(t, values.KindRecord, idx.Facts["addr"].Type.Base)
}
