package validate

import (
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
)

func validateOperations(idx *index.Index) error {
	for _, op := range idx.Operations {
		if len(op.AllowedPersonas) == 0 {
			return errs.Validate("operation", op.ID, "personas", op.Prov.File, op.Prov.Line,
				"operation %s: allowed_personas must be non-empty", op.ID)
		}
		for _, p := range op.AllowedPersonas {
			if _, ok := idx.Personas[p]; !ok {
				return errs.Validate("operation", op.ID, "personas", op.Prov.File, op.Prov.Line,
					"operation %s: persona %q is not declared", op.ID, p)
			}
		}
		outcomeSet := map[string]bool{}
		for _, o := range op.Outcomes {
			outcomeSet[o] = true
		}
		for _, eff := range op.Effects {
			entity, ok := idx.Entities[eff.EntityID]
			if !ok {
				return errs.Validate("operation", op.ID, "effects", op.Prov.File, op.Prov.Line,
					"operation %s: effect references undeclared entity %q", op.ID, eff.EntityID)
			}
			if !containsState(entity.States, eff.From) {
				return errs.Validate("operation", op.ID, "effects", op.Prov.File, op.Prov.Line,
					"operation %s: effect from-state %q is not declared on entity %s", op.ID, eff.From, eff.EntityID)
			}
			if !legalTransition(idx, eff.EntityID, eff.From, eff.To) {
				return errs.Validate("operation", op.ID, "effects", op.Prov.File, op.Prov.Line,
					"operation %s: effect (%s, %s -> %s) is not a declared transition", op.ID, eff.EntityID, eff.From, eff.To)
			}
			if eff.Outcome != "" && !outcomeSet[eff.Outcome] {
				return errs.Validate("operation", op.ID, "effects", op.Prov.File, op.Prov.Line,
					"operation %s: effect outcome %q is not declared in outcomes", op.ID, eff.Outcome)
			}
		}
	}
	return nil
}

func containsState(states []string, s string) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
