package validate

import (
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
)

var legalTriggerOutcomes = map[string]bool{"success": true, "failure": true, "escalation": true}

// validateSystems enforces the structural System constraints derivable
// from a single bundle: every member-
// referenced contract id appears in members, trigger outcomes are one
// of {success, failure, escalation}, no trigger is self-loopy on
// (contract, flow), and the trigger graph is acyclic. The deeper
// cross-contract checks (C-SYS-06, 09, 10, 12, 13, 14 by the source's
// numbering) require loading member-contract bodies and are out of
// scope for a single-bundle elaborator.
func validateSystems(idx *index.Index) error {
	for _, sys := range idx.Systems {
		members := map[string]bool{}
		for _, m := range sys.Members {
			members[m.ID] = true
		}
		for _, sp := range sys.SharedPersonas {
			for _, c := range sp.Contracts {
				if !members[c] {
					return errs.Validate("system", sys.ID, "shared_personas", sys.Prov.File, sys.Prov.Line,
						"system %s: shared_persona %s references undeclared member %q", sys.ID, sp.Persona, c)
				}
			}
		}
		for _, se := range sys.SharedEntities {
			for _, c := range se.Contracts {
				if !members[c] {
					return errs.Validate("system", sys.ID, "shared_entities", sys.Prov.File, sys.Prov.Line,
						"system %s: shared_entity %s references undeclared member %q", sys.ID, se.Entity, c)
				}
			}
		}

		type trigKey struct{ contract, flow string }
		adj := map[trigKey][]trigKey{}
		for _, tr := range sys.Triggers {
			if !members[tr.SourceContract] {
				return errs.Validate("system", sys.ID, "triggers", sys.Prov.File, sys.Prov.Line,
					"system %s: trigger references undeclared source member %q", sys.ID, tr.SourceContract)
			}
			if !members[tr.TargetContract] {
				return errs.Validate("system", sys.ID, "triggers", sys.Prov.File, sys.Prov.Line,
					"system %s: trigger references undeclared target member %q", sys.ID, tr.TargetContract)
			}
			if !legalTriggerOutcomes[tr.On] {
				return errs.Validate("system", sys.ID, "triggers", sys.Prov.File, sys.Prov.Line,
					"system %s: trigger outcome %q is not one of success|failure|escalation", sys.ID, tr.On)
			}
			src := trigKey{tr.SourceContract, tr.SourceFlow}
			dst := trigKey{tr.TargetContract, tr.TargetFlow}
			if src == dst {
				return errs.Validate("system", sys.ID, "triggers", sys.Prov.File, sys.Prov.Line,
					"system %s: trigger is self-loopy on (%s, %s)", sys.ID, tr.SourceContract, tr.SourceFlow)
			}
			adj[src] = append(adj[src], dst)
		}

		inStack := map[trigKey]bool{}
		visited := map[trigKey]bool{}
		var dfs func(k trigKey) error
		dfs = func(k trigKey) error {
			if inStack[k] {
				return errs.Validate("system", sys.ID, "triggers", sys.Prov.File, sys.Prov.Line,
					"system %s: trigger graph contains a cycle through (%s, %s)", sys.ID, k.contract, k.flow)
			}
			if visited[k] {
				return nil
			}
			inStack[k] = true
			visited[k] = true
			for _, next := range adj[k] {
				if err := dfs(next); err != nil {
					return err
				}
			}
			inStack[k] = false
			return nil
		}
		for k := range adj {
			if err := dfs(k); err != nil {
				return err
			}
		}
	}
	return nil
}
