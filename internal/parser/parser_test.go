package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/lexer"
	"github.com/tenor-lang/tenor/internal/parser"
)

func parse(t *testing.T, src string) (*ast.File, []error) {
	t.Helper()
	toks, err := lexer.Lex(src, "test.tenor")
	require.NoError(t, err)
	return parser.Parse(toks, "test.tenor", 0)
}

func TestParseFact(t *testing.T) {
	src := `
fact is_active {
  type: Bool
  source: "ledger.active"
}
fact balance {
  type: Money{currency: "USD"}
  default: money(0, "USD")
}
`
	f, errs := parse(t, src)
	require.Empty(t, errs)
	require.Len(t, f.Constructs, 2)
	require.Equal(t, ast.KindFact, f.Constructs[0].Kind)
	require.Equal(t, "is_active", f.Constructs[0].Fact.ID)
	require.Equal(t, "balance", f.Constructs[1].Fact.ID)
	require.NotNil(t, f.Constructs[1].Fact.Default)
}

func TestParseEntityAndOperation(t *testing.T) {
	src := `
entity Order {
  states: [draft, submitted, approved]
  initial: draft
  transitions: [(draft, submitted), (submitted -> approved)]
}
operation submit {
  personas: [clerk]
  precondition: verdict_present account_active
  effects: [(Order, draft, submitted)]
  outcomes: [success, failure]
}
`
	f, errs := parse(t, src)
	require.Empty(t, errs)
	require.Len(t, f.Constructs, 2)
	ent := f.Constructs[0].Entity
	require.Equal(t, []string{"draft", "submitted", "approved"}, ent.States)
	require.Len(t, ent.Transitions, 2)
	require.Equal(t, ast.Transition{From: "submitted", To: "approved"}, ent.Transitions[1])

	op := f.Constructs[1].Operation
	require.Equal(t, []string{"clerk"}, op.AllowedPersonas)
	require.NotNil(t, op.Precondition)
	require.Equal(t, ast.ExprVerdictPresent, op.Precondition.Kind)
	require.Equal(t, "account_active", op.Precondition.VerdictType)
}

func TestParseRuleWithLogicalAndQuantifier(t *testing.T) {
	src := `
rule can_process {
  stratum: 1
  when: verdict_present account_active ∧ verdict_present within_limit
  produce: order_processable : Bool = true
}
rule all_items_cheap {
  stratum: 0
  when: ∀ item ∈ items . item < 100
  produce: all_cheap : Bool = true
}
`
	f, errs := parse(t, src)
	require.Empty(t, errs)
	require.Len(t, f.Constructs, 2)
	r1 := f.Constructs[0].Rule
	require.Equal(t, 1, r1.Stratum)
	require.Equal(t, ast.ExprAnd, r1.When.Kind)
	require.Equal(t, "order_processable", r1.Produce.VerdictType)

	r2 := f.Constructs[1].Rule
	require.Equal(t, ast.ExprForall, r2.When.Kind)
	require.Equal(t, "item", r2.When.Binder)
	require.Equal(t, "items", r2.When.Domain)
}

func TestParseFlow(t *testing.T) {
	src := `
flow approval_flow {
  snapshot: default
  entry: step_submit
  steps: {
    step_submit: operation submit as clerk {
      success -> step_approve
      failure -> terminate(failure)
      on_failure: terminate(rejected)
    }
    step_approve: operation approve as clerk {
      success -> terminate(approved)
      failure -> terminate(failure)
      on_failure: terminate(rejected)
    }
  }
}
`
	f, errs := parse(t, src)
	require.Empty(t, errs)
	require.Len(t, f.Constructs, 1)
	fl := f.Constructs[0].Flow
	require.Equal(t, "step_submit", fl.Entry)
	require.Len(t, fl.Steps, 2)
	step := fl.Steps["step_submit"]
	require.Equal(t, ast.StepOperation, step.Kind)
	require.Equal(t, "submit", step.Operation.Op)
	require.Equal(t, ast.TargetStepRef, step.Operation.Outcomes["success"].Kind)
	require.Equal(t, ast.FailTerminate, step.Operation.OnFailure.Kind)
}

func TestParseMultiErrorRecovery(t *testing.T) {
	src := `
fact bad {
  bogus_field: 1
}
fact good {
  type: Bool
}
`
	f, errs := parse(t, src)
	require.Len(t, errs, 1)
	require.Len(t, f.Constructs, 1)
	require.Equal(t, "good", f.Constructs[0].Fact.ID)
}

func TestParseUnknownTopLevelKeyword(t *testing.T) {
	toks, err := lexer.Lex("bogus 1\nfact ok { type: Bool }", "test.tenor")
	require.NoError(t, err)
	f, errs := parser.Parse(toks, "test.tenor", 0)
	require.Len(t, errs, 1)
	require.Len(t, f.Constructs, 1)
}

func TestParseSystemOnlyFile(t *testing.T) {
	src := `
import "other.tenor"
system sys1 {
  members: [(c1, "c1.tenor")]
  shared_personas: [(clerk, [c1])]
  triggers: [(c1.flowA, success, c1.flowB, clerk)]
  shared_entities: [(Order, [c1])]
}
`
	f, errs := parse(t, src)
	require.Empty(t, errs)
	require.True(t, f.HasSystem)
	require.Len(t, f.Imports, 1)
	require.Len(t, f.Constructs, 1)
	sys := f.Constructs[0].System
	require.Equal(t, "c1", sys.Members[0].ID)
	require.Equal(t, "success", sys.Triggers[0].On)
}
