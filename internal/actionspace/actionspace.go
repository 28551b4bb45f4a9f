// Package actionspace implements the action-space computer: given a
// contract, its current facts,
// entity-state map, and an acting persona, classifies every flow as
// Available or Blocked with a concrete reason.
package actionspace

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/flow"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/predicate"
	"github.com/tenor-lang/tenor/internal/rules"
	"github.com/tenor-lang/tenor/internal/values"
)

const defaultInstance = "_default"

// ReasonKind is the closed set of block reasons.
type ReasonKind string

const (
	ReasonPersonaNotAuthorized  ReasonKind = "PersonaNotAuthorized"
	ReasonPreconditionNotMet    ReasonKind = "PreconditionNotMet"
	ReasonEntityNotInSourceState ReasonKind = "EntityNotInSourceState"
	ReasonFactDependencyUnsatisfied ReasonKind = "FactDependencyUnsatisfied"
)

// BlockReason explains why a flow is currently unavailable.
type BlockReason struct {
	Kind ReasonKind

	MissingVerdicts []string // ReasonPreconditionNotMet

	Entity, Current, Required string // ReasonEntityNotInSourceState

	Detail string // ReasonFactDependencyUnsatisfied
}

// FlowStatus is one flow's classification.
type FlowStatus struct {
	Flow             string
	Available        bool
	EnablingVerdicts []string
	AffectedEntities []string
	Reason           *BlockReason
}

// Compute classifies every flow in idx.
func Compute(idx *index.Index, facts map[string]values.Value, entities flow.EntityStateMap, instanceBindings map[string]string, persona string) ([]FlowStatus, error) {
	verdictList, err := rules.Infer(idx, facts)
	if err != nil {
		return nil, err
	}
	verdicts := make(map[string]predicate.Verdict, len(verdictList))
	for _, v := range verdictList {
		verdicts[v.Type] = v
	}
	snap := predicate.Snapshot{Facts: facts, Verdicts: verdicts}

	var out []FlowStatus
	for _, fl := range idx.Flows {
		out = append(out, classifyFlow(idx, fl, snap, entities, instanceBindings, persona))
	}
	return out, nil
}

func instanceOf(bindings map[string]string, entityID string) string {
	if id, ok := bindings[entityID]; ok {
		return id
	}
	return defaultInstance
}

func classifyFlow(idx *index.Index, fl *ast.Flow, snap predicate.Snapshot, entities flow.EntityStateMap, bindings map[string]string, persona string) FlowStatus {
	status := FlowStatus{Flow: fl.ID}

	entry, ok := fl.Steps[fl.Entry]
	if !ok || entry.Kind != ast.StepOperation {
		status.Available = true
		return status
	}
	op, ok := idx.Operations[entry.Operation.Op]
	if !ok {
		status.Available = true
		return status
	}

	for _, eff := range op.Effects {
		status.AffectedEntities = append(status.AffectedEntities, eff.EntityID)
	}

	if !personaAllowed(persona, op.AllowedPersonas) {
		status.Reason = &BlockReason{Kind: ReasonPersonaNotAuthorized}
		return status
	}

	if op.Precondition != nil {
		ok, tr, err := predicate.Eval(op.Precondition, snap)
		if err != nil {
			status.Reason = &BlockReason{Kind: ReasonFactDependencyUnsatisfied, Detail: err.Error()}
			return status
		}
		if !ok {
			var missing []string
			for vt := range tr.Verdicts {
				if _, present := snap.Verdicts[vt]; !present {
					missing = append(missing, vt)
				}
			}
			status.Reason = &BlockReason{Kind: ReasonPreconditionNotMet, MissingVerdicts: missing}
			return status
		}
		for vt := range tr.Verdicts {
			if _, present := snap.Verdicts[vt]; present {
				status.EnablingVerdicts = append(status.EnablingVerdicts, vt)
			}
		}
	}

	for _, eff := range op.Effects {
		inst := instanceOf(bindings, eff.EntityID)
		cur := entities[flow.EntityKey{Entity: eff.EntityID, Instance: inst}]
		if cur != eff.From {
			status.Reason = &BlockReason{Kind: ReasonEntityNotInSourceState, Entity: eff.EntityID, Current: cur, Required: eff.From}
			return status
		}
	}

	status.Available = true
	return status
}

func personaAllowed(persona string, allowed []string) bool {
	for _, p := range allowed {
		if p == persona {
			return true
		}
	}
	return false
}
