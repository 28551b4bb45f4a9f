// Package interchange implements the interchange emitter: it
// serializes an elaborated, indexed bundle into the canonical JSON
// interchange form that every downstream consumer (analyzer, evaluator,
// trust signer) reads instead of re-parsing source.
//
// Canonical ordering falls out of encoding/json's own behavior rather
// than a hand-rolled sorter: Go sorts map[string]any keys alphabetically
// when marshaling, so building each construct as a string-keyed map and
// letting json.Marshal walk it gives "key-sorted at every object level"
// for free. Arrays are built directly from idx.Order, so source
// declaration order survives untouched.
package interchange

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
)

// SchemaVersion is the serialization-schema version, distinct from the
// surface-language version carried in every bundle as "tenor".
const SchemaVersion = "1"

// Bundle is the canonical interchange document:
// `{id, kind: "Bundle", tenor, tenor_version, constructs: [...]}`.
type Bundle struct {
	ID           string
	TenorVersion string
	Constructs   []*ast.Construct
}

// Emit builds the canonical JSON bytes and the bundle's etag (hex
// SHA-256 of those bytes) for an indexed construct set.
// id, when empty, is generated fresh.
func Emit(idx *index.Index, id string) ([]byte, string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	doc := map[string]interface{}{
		"id":            id,
		"kind":          "Bundle",
		"tenor":         "1.0",
		"tenor_version": SchemaVersion,
	}
	constructs := make([]interface{}, 0, len(idx.Order))
	for _, c := range idx.Order {
		w, err := constructWire(c)
		if err != nil {
			return nil, "", err
		}
		constructs = append(constructs, w)
	}
	doc["constructs"] = constructs

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("interchange: marshal bundle: %w", err)
	}
	sum := sha256.Sum256(b)
	return b, hex.EncodeToString(sum[:]), nil
}

func provWire(p ast.Provenance) map[string]interface{} {
	return map[string]interface{}{"file": p.File, "line": p.Line}
}

// constructWire lowers one raw-AST construct to its wire shape. Every
// kind carries "kind" and "id" plus its own declarative fields and a
// "provenance" object.
func constructWire(c *ast.Construct) (map[string]interface{}, error) {
	w := map[string]interface{}{
		"kind":       string(c.Kind),
		"id":         c.ID(),
		"provenance": provWire(c.Provenance()),
	}
	switch c.Kind {
	case ast.KindFact:
		f := c.Fact
		w["type"] = f.Type
		w["source"] = factSourceWire(f.Source)
		if f.Default != nil {
			w["default"] = literalWire(f.Default)
		}
	case ast.KindEntity:
		e := c.Entity
		w["states"] = e.States
		w["initial"] = e.Initial
		trs := make([]interface{}, len(e.Transitions))
		for i, tr := range e.Transitions {
			trs[i] = map[string]interface{}{"from": tr.From, "to": tr.To}
		}
		w["transitions"] = trs
		if e.Parent != "" {
			w["parent"] = e.Parent
		}
	case ast.KindRule:
		r := c.Rule
		w["stratum"] = r.Stratum
		if r.When != nil {
			w["when"] = exprWire(r.When)
		}
		produce := map[string]interface{}{"verdict_type": r.Produce.VerdictType}
		if r.Produce.PayloadType != nil {
			produce["payload_type"] = r.Produce.PayloadType
		}
		if r.Produce.Payload != nil {
			produce["payload"] = literalWire(r.Produce.Payload)
		}
		w["produce"] = produce
	case ast.KindOperation:
		op := c.Operation
		w["allowed_personas"] = op.AllowedPersonas
		if op.Precondition != nil {
			w["precondition"] = exprWire(op.Precondition)
		}
		effs := make([]interface{}, len(op.Effects))
		for i, eff := range op.Effects {
			m := map[string]interface{}{"entity": eff.EntityID, "from": eff.From, "to": eff.To}
			if eff.Outcome != "" {
				m["outcome"] = eff.Outcome
			}
			effs[i] = m
		}
		w["effects"] = effs
		w["outcomes"] = op.Outcomes
		w["error_contract"] = op.ErrorContract
	case ast.KindFlow:
		fl := c.Flow
		w["snapshot"] = fl.Snapshot
		w["entry"] = fl.Entry
		steps := map[string]interface{}{}
		for id, s := range fl.Steps {
			steps[id] = stepWire(s)
		}
		w["steps"] = steps
	case ast.KindPersona:
		// no fields beyond id/kind/provenance
	case ast.KindSystem:
		sys := c.System
		members := make([]interface{}, len(sys.Members))
		for i, m := range sys.Members {
			members[i] = map[string]interface{}{"id": m.ID, "path": m.Path}
		}
		w["members"] = members
		sp := make([]interface{}, len(sys.SharedPersonas))
		for i, s := range sys.SharedPersonas {
			sp[i] = map[string]interface{}{"persona": s.Persona, "contracts": s.Contracts}
		}
		w["shared_personas"] = sp
		se := make([]interface{}, len(sys.SharedEntities))
		for i, s := range sys.SharedEntities {
			se[i] = map[string]interface{}{"entity": s.Entity, "contracts": s.Contracts}
		}
		w["shared_entities"] = se
		trigs := make([]interface{}, len(sys.Triggers))
		for i, t := range sys.Triggers {
			trigs[i] = map[string]interface{}{
				"source_contract": t.SourceContract, "source_flow": t.SourceFlow,
				"on": t.On, "target_contract": t.TargetContract, "target_flow": t.TargetFlow,
				"persona": t.Persona,
			}
		}
		w["triggers"] = trigs
	case ast.KindTypeDecl:
		w["type"] = c.TypeDecl.Type
	case ast.KindSource:
		src := c.Source
		w["protocol"] = src.Protocol
		w["fields"] = src.Fields
	default:
		return nil, fmt.Errorf("interchange: unknown construct kind %q", c.Kind)
	}
	return w, nil
}

func factSourceWire(fs ast.FactSource) map[string]interface{} {
	if fs.Structured {
		return map[string]interface{}{"source_id": fs.SourceID, "path": fs.Path}
	}
	return map[string]interface{}{"freetext": fs.Freetext}
}

func literalWire(l *ast.Literal) interface{} {
	if l.Value != nil {
		return l.Value
	}
	return l.Raw
}

func termWire(t *ast.Term) map[string]interface{} {
	switch t.Kind {
	case ast.TermFactRef:
		return map[string]interface{}{"kind": "fact_ref", "fact": t.FactRef}
	case ast.TermLiteral:
		return map[string]interface{}{"kind": "literal", "literal": literalWire(t.Literal)}
	case ast.TermMul:
		return map[string]interface{}{"kind": "mul", "left": termWire(t.MulLeft), "right": termWire(t.MulRight)}
	default:
		return map[string]interface{}{"kind": string(t.Kind)}
	}
}

func exprWire(e *ast.Expr) map[string]interface{} {
	if e == nil {
		return nil
	}
	w := map[string]interface{}{"kind": string(e.Kind)}
	switch e.Kind {
	case ast.ExprComparison:
		w["left"] = termWire(e.Left)
		w["op"] = string(e.Op)
		w["right"] = termWire(e.Right)
	case ast.ExprAnd, ast.ExprOr:
		w["lhs"] = exprWire(e.LHS)
		w["rhs"] = exprWire(e.RHS)
	case ast.ExprNot:
		w["operand"] = exprWire(e.Operand)
	case ast.ExprVerdictPresent:
		w["verdict_type"] = e.VerdictType
	case ast.ExprForall, ast.ExprExists:
		w["binder"] = e.Binder
		w["domain"] = e.Domain
		w["body"] = exprWire(e.Body)
	}
	return w
}

func stepTargetWire(t ast.StepTarget) map[string]interface{} {
	if t.Kind == ast.TargetStepRef {
		return map[string]interface{}{"kind": "step_ref", "step_ref": t.StepRef}
	}
	return map[string]interface{}{"kind": "terminal", "outcome": t.Outcome}
}

func failureHandlerWire(fh *ast.FailureHandler) map[string]interface{} {
	if fh == nil {
		return nil
	}
	w := map[string]interface{}{"kind": string(fh.Kind)}
	switch fh.Kind {
	case ast.FailTerminate:
		w["outcome"] = fh.Outcome
	case ast.FailCompensate:
		steps := make([]interface{}, len(fh.CompSteps))
		for i, cs := range fh.CompSteps {
			steps[i] = map[string]interface{}{"op": cs.Op, "persona": cs.Persona, "on_failure": cs.OnFailure}
		}
		w["comp_steps"] = steps
		if fh.Then != nil {
			w["then"] = stepTargetWire(*fh.Then)
		}
	case ast.FailEscalate:
		w["to_persona"] = fh.ToPersona
		w["next"] = fh.Next
	}
	return w
}

func stepWire(s *ast.Step) map[string]interface{} {
	w := map[string]interface{}{"kind": string(s.Kind), "provenance": provWire(s.Prov)}
	switch s.Kind {
	case ast.StepOperation:
		outcomes := map[string]interface{}{}
		for k, t := range s.Operation.Outcomes {
			outcomes[k] = stepTargetWire(t)
		}
		w["op"] = s.Operation.Op
		w["persona"] = s.Operation.Persona
		w["outcomes"] = outcomes
		w["on_failure"] = failureHandlerWire(s.Operation.OnFailure)
	case ast.StepBranch:
		w["condition"] = exprWire(s.Branch.Condition)
		w["persona"] = s.Branch.Persona
		w["if_true"] = stepTargetWire(s.Branch.IfTrue)
		w["if_false"] = stepTargetWire(s.Branch.IfFalse)
	case ast.StepHandoff:
		w["from_persona"] = s.Handoff.FromPersona
		w["to_persona"] = s.Handoff.ToPersona
		w["next"] = stepTargetWire(s.Handoff.Next)
	case ast.StepSubFlow:
		w["flow"] = s.SubFlow.Flow
		w["persona"] = s.SubFlow.Persona
		w["on_success"] = stepTargetWire(s.SubFlow.OnSuccess)
		w["on_failure"] = stepTargetWire(s.SubFlow.OnFailure)
	case ast.StepParallel:
		branches := make([]interface{}, len(s.Parallel.Branches))
		for i, br := range s.Parallel.Branches {
			steps := map[string]interface{}{}
			for id, bs := range br.Steps {
				steps[id] = stepWire(bs)
			}
			branches[i] = map[string]interface{}{"id": br.ID, "entry": br.Entry, "steps": steps}
		}
		w["branches"] = branches
		join := map[string]interface{}{}
		if s.Parallel.Join.OnAllSuccess != nil {
			join["on_all_success"] = stepTargetWire(*s.Parallel.Join.OnAllSuccess)
		}
		if s.Parallel.Join.OnAnyFailure != nil {
			join["on_any_failure"] = stepTargetWire(*s.Parallel.Join.OnAnyFailure)
		}
		if s.Parallel.Join.OnAllComplete != nil {
			join["on_all_complete"] = stepTargetWire(*s.Parallel.Join.OnAllComplete)
		}
		w["join"] = join
	}
	return w
}
