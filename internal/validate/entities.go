// Package validate implements pass 5, the structural validator:
// per-construct invariants not
// already covered by the type resolver — entity state-machine
// well-formedness, rule stratum monotonicity, operation effect
// closure, flow step/sub-flow acyclicity, parallel-branch
// non-interference, and System-level structural constraints.
package validate

import (
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
)

// Validate runs every pass-5 check and surfaces the first violation.
func Validate(idx *index.Index) error {
	if err := validateEntities(idx); err != nil {
		return err
	}
	if err := validateRules(idx); err != nil {
		return err
	}
	if err := validateOperations(idx); err != nil {
		return err
	}
	if err := validateFlows(idx); err != nil {
		return err
	}
	if err := validateSystems(idx); err != nil {
		return err
	}
	return nil
}

func validateEntities(idx *index.Index) error {
	for _, e := range idx.Entities {
		stateSet := map[string]bool{}
		for _, s := range e.States {
			if stateSet[s] {
				return errs.Validate("entity", e.ID, "states", e.Prov.File, e.Prov.Line,
					"entity %s declares duplicate state %q", e.ID, s)
			}
			stateSet[s] = true
		}
		if !stateSet[e.Initial] {
			return errs.Validate("entity", e.ID, "initial", e.Prov.File, e.Prov.Line,
				"entity %s: initial state %q is not a declared state", e.ID, e.Initial)
		}
		for _, tr := range e.Transitions {
			if !stateSet[tr.From] {
				return errs.Validate("entity", e.ID, "transitions", e.Prov.File, e.Prov.Line,
					"entity %s: transition from undeclared state %q", e.ID, tr.From)
			}
			if !stateSet[tr.To] {
				return errs.Validate("entity", e.ID, "transitions", e.Prov.File, e.Prov.Line,
					"entity %s: transition to undeclared state %q", e.ID, tr.To)
			}
		}
		if e.Parent != "" {
			if _, ok := idx.Entities[e.Parent]; !ok {
				return errs.Validate("entity", e.ID, "parent", e.Prov.File, e.Prov.Line,
					"entity %s: parent %q is not a declared entity", e.ID, e.Parent)
			}
		}
	}
	return entityInheritanceIsDAG(idx)
}

// entityInheritanceIsDAG walks each entity's parent chain, rejecting
// cycles (invariant: "the entity inheritance graph is a DAG").
func entityInheritanceIsDAG(idx *index.Index) error {
	for id := range idx.Entities {
		seen := map[string]bool{id: true}
		cur := idx.Entities[id].Parent
		for cur != "" {
			if seen[cur] {
				return errs.Validate("entity", id, "parent", idx.Entities[id].Prov.File, idx.Entities[id].Prov.Line,
					"entity inheritance cycle detected through %q", cur)
			}
			seen[cur] = true
			next, ok := idx.Entities[cur]
			if !ok {
				break
			}
			cur = next.Parent
		}
	}
	return nil
}

// legalTransition reports whether (from, to) is a declared transition
// of entity entityID.
func legalTransition(idx *index.Index, entityID, from, to string) bool {
	e, ok := idx.Entities[entityID]
	if !ok {
		return false
	}
	for _, tr := range e.Transitions {
		if tr.From == from && tr.To == to {
			return true
		}
	}
	return false
}
