package elaborate_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/bundle"
	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/facts"
	"github.com/tenor-lang/tenor/internal/flow"
	"github.com/tenor-lang/tenor/internal/interchange"
	"github.com/tenor-lang/tenor/internal/predicate"
	"github.com/tenor-lang/tenor/internal/rules"
)

const accountContract = `
persona clerk

fact is_active {
  type: Bool
  source: "ledger.active"
}
fact balance {
  type: Money{currency: "USD"}
  source: "ledger.balance"
}
fact limit {
  type: Money{currency: "USD"}
  source: "policy.limit"
  default: money(10000, "USD")
}

rule check_active {
  stratum: 0
  when: is_active = true
  produce: account_active : Bool = true
}
rule check_balance {
  stratum: 0
  when: balance <= limit
  produce: within_limit : Bool = true
}
rule can_process {
  stratum: 1
  when: verdict_present account_active ∧ verdict_present within_limit
  produce: order_processable : Bool = true
}
`

func elaborateSource(t *testing.T, src string) *elaborate.Result {
	t.Helper()
	res, errList := elaborate.Source(src, "test.tenor")
	require.Empty(t, errList)
	return res
}

// An active account with an in-limit balance yields all three
// verdicts; order_processable's provenance records stratum 1 and both
// consumed verdict types.
func TestRulesOnlyActiveAccount(t *testing.T) {
	res := elaborateSource(t, accountContract)

	fs, err := facts.Assemble(res.Index, map[string]interface{}{
		"is_active": true,
		"balance":   map[string]interface{}{"amount": 5000, "currency": "USD"},
	})
	require.NoError(t, err)

	verdicts, err := rules.Infer(res.Index, fs)
	require.NoError(t, err)
	require.Len(t, verdicts, 3)

	byType := map[string]predicate.Verdict{}
	for _, v := range verdicts {
		byType[v.Type] = v
	}
	processable := byType["order_processable"]
	require.Equal(t, 1, processable.Stratum)
	require.Equal(t, "can_process", processable.Rule)
	require.ElementsMatch(t, []string{"account_active", "within_limit"}, processable.VerdictsUsed)
}

// An absent fact with a declared default still fires the rule.
func TestDefaultSubstitution(t *testing.T) {
	res := elaborateSource(t, `
fact flag {
  type: Bool
  source: "x"
  default: false
}
rule check_flag {
  stratum: 0
  when: flag = false
  produce: flag_is_false : Bool = true
}
`)
	fs, err := facts.Assemble(res.Index, map[string]interface{}{})
	require.NoError(t, err)

	verdicts, err := rules.Infer(res.Index, fs)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	require.Equal(t, "flag_is_false", verdicts[0].Type)
}

// A required fact with no default fails assembly with a missing-fact
// error naming the fact id.
func TestMissingRequiredFact(t *testing.T) {
	res := elaborateSource(t, `
fact required {
  type: Bool
  source: "x"
}
`)
	_, err := facts.Assemble(res.Index, map[string]interface{}{})
	require.Error(t, err)
	var diag *errs.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, errs.PassEval, diag.Pass)
	require.Equal(t, "missing_fact", diag.Kind)
	require.Contains(t, diag.Message, "required")
}

// Two-step approval flow, executed end to end from source.
func TestFlowExecutionApproval(t *testing.T) {
	res := elaborateSource(t, accountContract+`
entity Order {
  states: [draft, submitted, approved]
  initial: draft
  transitions: [(draft, submitted), (submitted, approved)]
}
operation submit {
  personas: [clerk]
  precondition: verdict_present account_active
  effects: [(Order, draft, submitted)]
  outcomes: [success, failure]
}
operation approve {
  personas: [clerk]
  effects: [(Order, submitted, approved)]
  outcomes: [success, failure]
}
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
`)
	fs, err := facts.Assemble(res.Index, map[string]interface{}{
		"is_active": true,
		"balance":   map[string]interface{}{"amount": 5000, "currency": "USD"},
	})
	require.NoError(t, err)
	verdictList, err := rules.Infer(res.Index, fs)
	require.NoError(t, err)
	verdicts := map[string]predicate.Verdict{}
	for _, v := range verdictList {
		verdicts[v.Type] = v
	}

	entities := flow.EntityStateMap{{Entity: "Order", Instance: "_default"}: "draft"}
	it := flow.New(res.Index)
	out, err := it.Run("approval_flow", predicate.Snapshot{Facts: fs, Verdicts: verdicts}, entities, "clerk", nil)
	require.NoError(t, err)
	require.Equal(t, "approved", out.Outcome)
	require.Len(t, out.Steps, 2)
	require.Equal(t, "approved", entities[flow.EntityKey{Entity: "Order", Instance: "_default"}])
}

// Variable × variable multiplication is rejected during elaboration.
func TestVariableTimesVariableRejected(t *testing.T) {
	_, errList := elaborate.Source(`
fact a {
  type: Int{min: 0, max: 1000}
  source: "x"
}
fact b {
  type: Int{min: 0, max: 1000}
  source: "x"
}
rule bad {
  stratum: 0
  when: a * b > 100
  produce: too_big : Bool = true
}
`, "test.tenor")
	require.Len(t, errList, 1)
	require.Contains(t, errList[0].Error(), "variable × variable multiplication is not permitted")
}

// Property 1: repeated emission is byte-identical, and decoding the
// bundle recovers the construct list (modulo pass-4 annotations, which
// the wire form deliberately omits).
func TestInterchangeRoundTrip(t *testing.T) {
	res1 := elaborateSource(t, accountContract)
	res2 := elaborateSource(t, accountContract)
	// Bundle ids differ (fresh uuid per emission), so compare via a
	// pinned id instead.
	data1, etag1, err := interchange.Emit(res1.Index, "pinned")
	require.NoError(t, err)
	data2, etag2, err := interchange.Emit(res2.Index, "pinned")
	require.NoError(t, err)
	require.Equal(t, string(data1), string(data2))
	require.Equal(t, etag1, etag2)

	dec, err := interchange.Decode(data1)
	require.NoError(t, err)
	require.Equal(t, "pinned", dec.ID)
	require.Equal(t, "1.0", dec.Tenor)

	diff := cmp.Diff(res1.Index.Order, dec.Constructs,
		cmpopts.IgnoreFields(ast.Expr{}, "Prov", "ComparisonType"),
		cmpopts.IgnoreFields(ast.Term{}, "Prov"),
		cmpopts.IgnoreFields(ast.Literal{}, "Raw", "Type"),
	)
	require.Empty(t, diff)
}

func TestRunResolvesImports(t *testing.T) {
	files := map[string]string{
		"/sandbox/root.tenor": `
import "personas.tenor"
fact flag {
  type: Bool
  source: "x"
  default: true
}
`,
		"/sandbox/personas.tenor": `
persona clerk
`,
	}
	loader := bundle.NewLoader("/sandbox", func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", &missingFile{path: path}
		}
		return src, nil
	})
	el := elaborate.New(loader)
	res, errList := el.Run("/sandbox/root.tenor")
	require.Empty(t, errList)
	require.Len(t, res.Index.Order, 2)
	require.NotEmpty(t, res.Etag)
	_, ok := res.Index.Personas["clerk"]
	require.True(t, ok)
}

func TestSourceRejectsImports(t *testing.T) {
	_, errList := elaborate.Source(`import "other.tenor"`, "test.tenor")
	require.Len(t, errList, 1)
	var diag *errs.Diagnostic
	require.ErrorAs(t, errList[0], &diag)
	require.Equal(t, errs.PassBundle, diag.Pass)
}

type missingFile struct{ path string }

func (m *missingFile) Error() string { return "no such file: " + m.path }
