package analyze_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/analyze"
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
)

func TestS2FindsDeadState(t *testing.T) {
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindEntity, Entity: &ast.Entity{
			ID: "Order", States: []string{"draft", "submitted", "orphan"}, Initial: "draft",
			Transitions: []ast.Transition{{From: "draft", To: "submitted"}},
		}},
	})
	require.NoError(t, err)

	r, err := analyze.Run(context.Background(), idx)
	require.NoError(t, err)

	rs := r.Reachability["Order"]
	require.Contains(t, rs.Dead, "orphan")
	require.Contains(t, rs.Reachable, "draft")
	require.Contains(t, rs.Reachable, "submitted")

	var found bool
	for _, f := range r.Findings {
		if f.Analysis == "S2" {
			found = true
		}
	}
	require.True(t, found)
}

func TestS3aAndS4RecordAdmissibleOperation(t *testing.T) {
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "clerk"}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{
			ID: "Order", States: []string{"draft", "submitted"}, Initial: "draft",
			Transitions: []ast.Transition{{From: "draft", To: "submitted"}},
		}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{
			ID: "submit", AllowedPersonas: []string{"clerk"},
			Effects: []ast.Effect{{EntityID: "Order", From: "draft", To: "submitted"}},
		}},
	})
	require.NoError(t, err)

	r, err := analyze.Run(context.Background(), idx)
	require.NoError(t, err)
	require.NotEmpty(t, r.Authority)
	k := analyze.AdmissibilityKey{Entity: "Order", State: "draft", Persona: "clerk"}
	require.Contains(t, r.Admissibility[k], "submit")
}

func TestS7RulePredicateComplexity(t *testing.T) {
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r0", Stratum: 0,
			When: &ast.Expr{Kind: ast.ExprAnd,
				LHS: &ast.Expr{Kind: ast.ExprComparison},
				RHS: &ast.Expr{Kind: ast.ExprComparison},
			},
			Produce: ast.Produce{VerdictType: "v0"},
		}},
	})
	require.NoError(t, err)

	r, err := analyze.Run(context.Background(), idx)
	require.NoError(t, err)
	require.Equal(t, 3, r.RulePredicateComplexity["r0"].Nodes)
	require.Equal(t, 2, r.RulePredicateComplexity["r0"].Depth)
}
