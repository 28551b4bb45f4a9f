package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/validate"
)

func buildIdx(t *testing.T, cs []*ast.Construct) *index.Index {
	t.Helper()
	idx, err := index.Build(cs)
	require.NoError(t, err)
	return idx
}

func TestValidateEntityBadInitial(t *testing.T) {
	idx := buildIdx(t, []*ast.Construct{
		{Kind: ast.KindEntity, Entity: &ast.Entity{ID: "Order", States: []string{"draft"}, Initial: "missing"}},
	})
	err := validate.Validate(idx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "initial state")
}

func TestValidateRuleStratumViolation(t *testing.T) {
	idx := buildIdx(t, []*ast.Construct{
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r0", Stratum: 0,
			When:    &ast.Expr{Kind: ast.ExprVerdictPresent, VerdictType: "v1"},
			Produce: ast.Produce{VerdictType: "v0"},
		}},
		{Kind: ast.KindRule, Rule: &ast.Rule{
			ID: "r1", Stratum: 0,
			Produce: ast.Produce{VerdictType: "v1"},
		}},
	})
	err := validate.Validate(idx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stratum")
}

func TestValidateFlowCyclicGraph(t *testing.T) {
	steps := map[string]*ast.Step{
		"a": {ID: "a", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "op", Persona: "p",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetStepRef, StepRef: "b"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "failure"},
		}},
		"b": {ID: "b", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "op", Persona: "p",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetStepRef, StepRef: "a"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "failure"},
		}},
	}
	idx := buildIdx(t, []*ast.Construct{
		{Kind: ast.KindOperation, Operation: &ast.Operation{ID: "op", AllowedPersonas: []string{"p"}}},
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "p"}},
		{Kind: ast.KindFlow, Flow: &ast.Flow{ID: "f1", Entry: "a", Steps: steps}},
	})
	err := validate.Validate(idx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestValidateParallelInterference(t *testing.T) {
	branchA := map[string]*ast.Step{
		"a1": {ID: "a1", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "touchOrder", Persona: "p",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "ok"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "failure"},
		}},
	}
	branchB := map[string]*ast.Step{
		"b1": {ID: "b1", Kind: ast.StepOperation, Operation: &ast.OperationStep{
			Op: "touchOrder", Persona: "p",
			Outcomes:  map[string]ast.StepTarget{"success": {Kind: ast.TargetTerminal, Outcome: "ok"}},
			OnFailure: &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: "failure"},
		}},
	}
	par := &ast.Step{ID: "par", Kind: ast.StepParallel, Parallel: &ast.ParallelStep{
		Branches: []ast.Branch{{ID: "A", Entry: "a1", Steps: branchA}, {ID: "B", Entry: "b1", Steps: branchB}},
	}}
	idx := buildIdx(t, []*ast.Construct{
		{Kind: ast.KindEntity, Entity: &ast.Entity{ID: "Order", States: []string{"s1", "s2"}, Initial: "s1",
			Transitions: []ast.Transition{{From: "s1", To: "s2"}}}},
		{Kind: ast.KindOperation, Operation: &ast.Operation{
			ID: "touchOrder", AllowedPersonas: []string{"p"},
			Effects: []ast.Effect{{EntityID: "Order", From: "s1", To: "s2"}},
		}},
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "p"}},
		{Kind: ast.KindFlow, Flow: &ast.Flow{ID: "f1", Entry: "par", Steps: map[string]*ast.Step{"par": par}}},
	})
	err := validate.Validate(idx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "both affect entity")
}
