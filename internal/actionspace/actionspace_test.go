package actionspace_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/actionspace"
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/flow"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/values"
)

func litPtr(v values.Value) *values.Value { return &v }

// buildIdx declares one entity, one gated operation, and one flow
// entering at that operation, so every block reason is reachable by
// varying the runtime inputs.
func buildIdx(t *testing.T) *index.Index {
	t.Helper()
	steps := map[string]*ast.Step{
		"entry": {ID: "entry", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "submit", Persona: "clerk",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "submitted"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "rejected"},
		}},
	}
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "clerk"}},
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "is_active", Type: values.Bool()}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{
			ID: "Order", States: []string{"draft", "submitted"}, Initial: "draft",
			Transitions: []ast.Transition{{From: "draft", To: "submitted"}},
		}},
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "check_active", Stratum: 0,
			When: &ast.Expr{Kind: ast.ExprComparison,
				Left:  &ast.Term{Kind: ast.TermFactRef, FactRef: "is_active"},
				Op:    ast.OpEq,
				Right: &ast.Term{Kind: ast.TermLiteral, Literal: &ast.Literal{Value: litPtr(values.VBool(true))}}},
			Produce: ast.Produce{VerdictType: "account_active", Payload: &ast.Literal{Value: litPtr(values.VBool(true))}},
		}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{
			ID: "submit", AllowedPersonas: []string{"clerk"},
			Precondition: &ast.Expr{Kind: ast.ExprVerdictPresent, VerdictType: "account_active"},
			Effects:      []ast.Effect{{EntityID: "Order", From: "draft", To: "submitted"}},
		}},
		{Kind: ast.KindFlow, Flow: &ast.Flow{ID: "submit_flow", Entry: "entry", Steps: steps}},
	})
	require.NoError(t, err)
	return idx
}

func draftEntities() flow.EntityStateMap {
	return flow.EntityStateMap{{Entity: "Order", Instance: "_default"}: "draft"}
}

func TestComputeAvailable(t *testing.T) {
	idx := buildIdx(t)
	out, err := actionspace.Compute(idx, map[string]values.Value{"is_active": values.VBool(true)}, draftEntities(), nil, "clerk")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Available)
	require.Equal(t, "submit_flow", out[0].Flow)
	require.Contains(t, out[0].EnablingVerdicts, "account_active")
	require.Contains(t, out[0].AffectedEntities, "Order")
}

func TestComputePersonaNotAuthorized(t *testing.T) {
	idx := buildIdx(t)
	out, err := actionspace.Compute(idx, map[string]values.Value{"is_active": values.VBool(true)}, draftEntities(), nil, "auditor")
	require.NoError(t, err)
	require.False(t, out[0].Available)
	require.Equal(t, actionspace.ReasonPersonaNotAuthorized, out[0].Reason.Kind)
}

func TestComputePreconditionNotMet(t *testing.T) {
	idx := buildIdx(t)
	out, err := actionspace.Compute(idx, map[string]values.Value{"is_active": values.VBool(false)}, draftEntities(), nil, "clerk")
	require.NoError(t, err)
	require.False(t, out[0].Available)
	require.Equal(t, actionspace.ReasonPreconditionNotMet, out[0].Reason.Kind)
	require.Contains(t, out[0].Reason.MissingVerdicts, "account_active")
}

func TestComputeEntityNotInSourceState(t *testing.T) {
	idx := buildIdx(t)
	entities := flow.EntityStateMap{{Entity: "Order", Instance: "_default"}: "submitted"}
	out, err := actionspace.Compute(idx, map[string]values.Value{"is_active": values.VBool(true)}, entities, nil, "clerk")
	require.NoError(t, err)
	require.False(t, out[0].Available)
	require.Equal(t, actionspace.ReasonEntityNotInSourceState, out[0].Reason.Kind)
	require.Equal(t, "Order", out[0].Reason.Entity)
	require.Equal(t, "submitted", out[0].Reason.Current)
	require.Equal(t, "draft", out[0].Reason.Required)
}

func TestComputeHonorsInstanceBindings(t *testing.T) {
	idx := buildIdx(t)
	entities := flow.EntityStateMap{
		{Entity: "Order", Instance: "_default"}: "submitted",
		{Entity: "Order", Instance: "ord-7"}:    "draft",
	}
	bindings := map[string]string{"Order": "ord-7"}
	out, err := actionspace.Compute(idx, map[string]values.Value{"is_active": values.VBool(true)}, entities, bindings, "clerk")
	require.NoError(t, err)
	require.True(t, out[0].Available)
}
