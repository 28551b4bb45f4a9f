// Package rules implements the stratified forward inference engine:
// rules partitioned by stratum
// fire in ascending-stratum order, in stable id order within a stratum,
// against the accumulated (facts, verdicts-so-far) snapshot.
package rules

import (
	"sort"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/predicate"
	"github.com/tenor-lang/tenor/internal/values"
)

// Infer runs every rule in the index against facts, producing the
// final VerdictSet in insertion order.
func Infer(idx *index.Index, facts map[string]values.Value) ([]predicate.Verdict, error) {
	strata := map[int][]*ast.Rule{}
	maxStratum := -1
	for _, r := range idx.Rules {
		strata[r.Stratum] = append(strata[r.Stratum], r)
		if r.Stratum > maxStratum {
			maxStratum = r.Stratum
		}
	}
	for s := range strata {
		sort.Slice(strata[s], func(i, j int) bool { return strata[s][i].ID < strata[s][j].ID })
	}

	verdicts := map[string]predicate.Verdict{}
	var order []predicate.Verdict

	for s := 0; s <= maxStratum; s++ {
		for _, r := range strata[s] {
			snap := predicate.Snapshot{Facts: facts, Verdicts: verdicts}
			ok, tr, err := predicate.Eval(r.When, snap)
			if err != nil {
				return nil, errs.Eval("rule_eval", "rule %s: %s", r.ID, err)
			}
			if !ok {
				continue
			}
			payload := values.Value{}
			if r.Produce.Payload != nil && r.Produce.Payload.Value != nil {
				payload = *r.Produce.Payload.Value
			}
			v := predicate.Verdict{
				Type:         r.Produce.VerdictType,
				Payload:      payload,
				Rule:         r.ID,
				Stratum:      r.Stratum,
				FactsUsed:    tr.FactList(),
				VerdictsUsed: tr.VerdictList(),
			}
			verdicts[v.Type] = v
			order = append(order, v)
		}
	}
	return order, nil
}
