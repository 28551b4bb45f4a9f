package flow_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/flow"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/predicate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func buildFlowIdx(t *testing.T) *index.Index {
	t.Helper()
	steps := map[string]*ast.Step{
		"submit": {ID: "submit", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "submitOrder", Persona: "clerk",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "submitted"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "rejected"},
		}},
	}
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "clerk"}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{
			ID: "Order", States: []string{"draft", "submitted"}, Initial: "draft",
			Transitions: []ast.Transition{{From: "draft", To: "submitted"}},
		}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{
			ID: "submitOrder", AllowedPersonas: []string{"clerk"},
			Effects: []ast.Effect{{EntityID: "Order", From: "draft", To: "submitted"}},
		}},
		{Kind: ast.KindFlow, Flow: &ast.Flow{ID: "submitFlow", Entry: "submit", Steps: steps}},
	})
	require.NoError(t, err)
	return idx
}

func TestRunOperationStepSuccess(t *testing.T) {
	idx := buildFlowIdx(t)
	it := flow.New(idx)
	entities := flow.EntityStateMap{{Entity: "Order", Instance: "_default"}: "draft"}

	res, err := it.Run("submitFlow", predicate.Snapshot{}, entities, "clerk", nil)
	require.NoError(t, err)
	require.Equal(t, "submitted", res.Outcome)
	require.Equal(t, "submitted", entities[flow.EntityKey{Entity: "Order", Instance: "_default"}])
}

func TestRunOperationStepPersonaDenied(t *testing.T) {
	idx := buildFlowIdx(t)
	// The step acts as its own declared persona; make it one that
	// submitOrder does not allow.
	idx.Flows["submitFlow"].Steps["submit"].Operation.Persona = "auditor"
	it := flow.New(idx)
	entities := flow.EntityStateMap{{Entity: "Order", Instance: "_default"}: "draft"}

	res, err := it.Run("submitFlow", predicate.Snapshot{}, entities, "auditor", nil)
	require.NoError(t, err)
	require.Equal(t, "rejected", res.Outcome)
	require.Equal(t, "draft", entities[flow.EntityKey{Entity: "Order", Instance: "_default"}])
}

func TestRunParallelDisjointBranches(t *testing.T) {
	branchA := map[string]*ast.Step{
		"a1": {ID: "a1", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "moveA", Persona: "clerk",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "success"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "failure"},
		}},
	}
	branchB := map[string]*ast.Step{
		"b1": {ID: "b1", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "moveB", Persona: "clerk",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "success"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "failure"},
		}},
	}
	allSuccess := ast.StepTarget{Kind: ast.TargetTerminal, Outcome: "both_done"}
	par := &ast.Step{ID: "par", Kind: ast.StepParallel, Parallel: &ast.ParallelStep{
		Branches: []ast.Branch{{ID: "A", Entry: "a1", Steps: branchA}, {ID: "B", Entry: "b1", Steps: branchB}},
		Join:     ast.JoinPolicy{OnAllSuccess: &allSuccess},
	}}

	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "clerk"}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{ID: "A", States: []string{"s", "t"}, Initial: "s", Transitions: []ast.Transition{{From: "s", To: "t"}}}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{ID: "B", States: []string{"s", "t"}, Initial: "s", Transitions: []ast.Transition{{From: "s", To: "t"}}}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{ID: "moveA", AllowedPersonas: []string{"clerk"}, Effects: []ast.Effect{{EntityID: "A", From: "s", To: "t"}}}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{ID: "moveB", AllowedPersonas: []string{"clerk"}, Effects: []ast.Effect{{EntityID: "B", From: "s", To: "t"}}}},
		{Kind: ast.KindFlow, Flow: &ast.Flow{ID: "parFlow", Entry: "par", Steps: map[string]*ast.Step{"par": par}}},
	})
	require.NoError(t, err)

	it := flow.New(idx)
	entities := flow.EntityStateMap{
		{Entity: "A", Instance: "_default"}: "s",
		{Entity: "B", Instance: "_default"}: "s",
	}
	res, err := it.Run("parFlow", predicate.Snapshot{}, entities, "clerk", nil)
	require.NoError(t, err)
	require.Equal(t, "both_done", res.Outcome)
	require.Equal(t, "t", entities[flow.EntityKey{Entity: "A", Instance: "_default"}])
	require.Equal(t, "t", entities[flow.EntityKey{Entity: "B", Instance: "_default"}])
}

func TestRunFailedOperationLeavesEntityMapUntouched(t *testing.T) {
	steps := map[string]*ast.Step{
		"move": {ID: "move", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "moveBoth", Persona: "clerk",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "moved"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "rejected"},
		}},
	}
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "clerk"}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{ID: "A", States: []string{"s", "t"}, Initial: "s", Transitions: []ast.Transition{{From: "s", To: "t"}}}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{ID: "B", States: []string{"s", "t"}, Initial: "s", Transitions: []ast.Transition{{From: "s", To: "t"}}}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{
			ID: "moveBoth", AllowedPersonas: []string{"clerk"},
			Effects: []ast.Effect{
				{EntityID: "A", From: "s", To: "t"},
				{EntityID: "B", From: "s", To: "t"},
			},
		}},
		{Kind: ast.KindFlow, Flow: &ast.Flow{ID: "moveFlow", Entry: "move", Steps: steps}},
	})
	require.NoError(t, err)

	// B is not in the effect's from-state, so the second from-state
	// check fails; A must not have moved either.
	entities := flow.EntityStateMap{
		{Entity: "A", Instance: "_default"}: "s",
		{Entity: "B", Instance: "_default"}: "t",
	}
	it := flow.New(idx)
	res, err := it.Run("moveFlow", predicate.Snapshot{}, entities, "clerk", nil)
	require.NoError(t, err)
	require.Equal(t, "rejected", res.Outcome)
	require.Equal(t, "s", entities[flow.EntityKey{Entity: "A", Instance: "_default"}])
	require.Equal(t, "t", entities[flow.EntityKey{Entity: "B", Instance: "_default"}])
}
