package interchange

import (
	"encoding/json"
	"fmt"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/values"
)

// Decoded is a deserialized interchange bundle: the inverse of Emit,
// recovering the elaborated construct list modulo pass-4 annotations,
// which the wire form deliberately omits. External
// consumers — analyzer runs over a stored bundle, the evaluator, trust
// verification — decode through here rather than re-parsing source.
type Decoded struct {
	ID           string
	Tenor        string
	TenorVersion string
	Constructs   []*ast.Construct
}

// Decode deserializes canonical bundle JSON. A bundle that fails
// schema deserialization is the one case where analysis surfaces an
// error instead of findings.
func Decode(data []byte) (*Decoded, error) {
	var doc struct {
		ID           string            `json:"id"`
		Kind         string            `json:"kind"`
		Tenor        string            `json:"tenor"`
		TenorVersion string            `json:"tenor_version"`
		Constructs   []json.RawMessage `json:"constructs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Bundle("", 0, "malformed bundle JSON: %v", err)
	}
	if doc.Kind != "Bundle" {
		return nil, errs.Bundle("", 0, "top-level kind is %q, want \"Bundle\"", doc.Kind)
	}

	out := &Decoded{ID: doc.ID, Tenor: doc.Tenor, TenorVersion: doc.TenorVersion}
	for i, raw := range doc.Constructs {
		c, err := decodeConstruct(raw)
		if err != nil {
			return nil, errs.Bundle("", 0, "construct %d: %v", i, err)
		}
		out.Constructs = append(out.Constructs, c)
	}
	return out, nil
}

type rawObj map[string]json.RawMessage

func (o rawObj) str(key string) string {
	var s string
	if r, ok := o[key]; ok {
		_ = json.Unmarshal(r, &s)
	}
	return s
}

func (o rawObj) strs(key string) []string {
	var s []string
	if r, ok := o[key]; ok {
		_ = json.Unmarshal(r, &s)
	}
	return s
}

func (o rawObj) obj(key string) rawObj {
	var m rawObj
	if r, ok := o[key]; ok {
		_ = json.Unmarshal(r, &m)
	}
	return m
}

func (o rawObj) list(key string) []json.RawMessage {
	var l []json.RawMessage
	if r, ok := o[key]; ok {
		_ = json.Unmarshal(r, &l)
	}
	return l
}

func (o rawObj) prov() ast.Provenance {
	p := o.obj("provenance")
	if p == nil {
		return ast.Provenance{}
	}
	var line uint32
	if r, ok := p["line"]; ok {
		_ = json.Unmarshal(r, &line)
	}
	return ast.Provenance{File: p.str("file"), Line: line}
}

func decodeConstruct(raw json.RawMessage) (*ast.Construct, error) {
	var o rawObj
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	kind := ast.ConstructKind(o.str("kind"))
	id := o.str("id")
	prov := o.prov()

	c := &ast.Construct{Kind: kind}
	switch kind {
	case ast.KindFact:
		f := &ast.Fact{ID: id, Prov: prov}
		if r, ok := o["type"]; ok {
			f.Type = &values.Type{}
			if err := json.Unmarshal(r, f.Type); err != nil {
				return nil, fmt.Errorf("fact %s: %w", id, err)
			}
		}
		f.Source = decodeFactSource(o.obj("source"))
		if r, ok := o["default"]; ok {
			f.Default = decodeLiteral(r)
		}
		c.Fact = f
	case ast.KindEntity:
		e := &ast.Entity{ID: id, Prov: prov, States: o.strs("states"), Initial: o.str("initial"), Parent: o.str("parent")}
		for _, tr := range o.list("transitions") {
			var t rawObj
			if err := json.Unmarshal(tr, &t); err != nil {
				return nil, err
			}
			e.Transitions = append(e.Transitions, ast.Transition{From: t.str("from"), To: t.str("to")})
		}
		c.Entity = e
	case ast.KindRule:
		r := &ast.Rule{ID: id, Prov: prov}
		if raw, ok := o["stratum"]; ok {
			if err := json.Unmarshal(raw, &r.Stratum); err != nil {
				return nil, fmt.Errorf("rule %s: stratum: %w", id, err)
			}
		}
		var err error
		if r.When, err = decodeExpr(o["when"]); err != nil {
			return nil, fmt.Errorf("rule %s: %w", id, err)
		}
		produce := o.obj("produce")
		r.Produce.VerdictType = produce.str("verdict_type")
		if pt, ok := produce["payload_type"]; ok {
			r.Produce.PayloadType = &values.Type{}
			if err := json.Unmarshal(pt, r.Produce.PayloadType); err != nil {
				return nil, fmt.Errorf("rule %s: payload_type: %w", id, err)
			}
		}
		if p, ok := produce["payload"]; ok {
			r.Produce.Payload = decodeLiteral(p)
		}
		c.Rule = r
	case ast.KindOperation:
		op := &ast.Operation{
			ID: id, Prov: prov,
			AllowedPersonas: o.strs("allowed_personas"),
			Outcomes:        o.strs("outcomes"),
			ErrorContract:   o.strs("error_contract"),
		}
		var err error
		if op.Precondition, err = decodeExpr(o["precondition"]); err != nil {
			return nil, fmt.Errorf("operation %s: %w", id, err)
		}
		for _, er := range o.list("effects") {
			var eo rawObj
			if err := json.Unmarshal(er, &eo); err != nil {
				return nil, err
			}
			op.Effects = append(op.Effects, ast.Effect{
				EntityID: eo.str("entity"), From: eo.str("from"), To: eo.str("to"), Outcome: eo.str("outcome"),
			})
		}
		c.Operation = op
	case ast.KindFlow:
		fl := &ast.Flow{ID: id, Prov: prov, Snapshot: o.str("snapshot"), Entry: o.str("entry")}
		steps, err := decodeSteps(o["steps"])
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", id, err)
		}
		fl.Steps = steps
		c.Flow = fl
	case ast.KindPersona:
		c.Persona = &ast.Persona{ID: id, Prov: prov}
	case ast.KindSystem:
		sys := &ast.System{ID: id, Prov: prov}
		for _, mr := range o.list("members") {
			var mo rawObj
			if err := json.Unmarshal(mr, &mo); err != nil {
				return nil, err
			}
			sys.Members = append(sys.Members, ast.SystemMember{ID: mo.str("id"), Path: mo.str("path")})
		}
		for _, sr := range o.list("shared_personas") {
			var so rawObj
			if err := json.Unmarshal(sr, &so); err != nil {
				return nil, err
			}
			sys.SharedPersonas = append(sys.SharedPersonas, ast.SharedPersona{Persona: so.str("persona"), Contracts: so.strs("contracts")})
		}
		for _, sr := range o.list("shared_entities") {
			var so rawObj
			if err := json.Unmarshal(sr, &so); err != nil {
				return nil, err
			}
			sys.SharedEntities = append(sys.SharedEntities, ast.SharedEntity{Entity: so.str("entity"), Contracts: so.strs("contracts")})
		}
		for _, tr := range o.list("triggers") {
			var to rawObj
			if err := json.Unmarshal(tr, &to); err != nil {
				return nil, err
			}
			sys.Triggers = append(sys.Triggers, ast.FlowTrigger{
				SourceContract: to.str("source_contract"), SourceFlow: to.str("source_flow"),
				On: to.str("on"), TargetContract: to.str("target_contract"),
				TargetFlow: to.str("target_flow"), Persona: to.str("persona"),
			})
		}
		c.System = sys
	case ast.KindTypeDecl:
		td := &ast.TypeDecl{ID: id, Prov: prov}
		if r, ok := o["type"]; ok {
			td.Type = &values.Type{}
			if err := json.Unmarshal(r, td.Type); err != nil {
				return nil, fmt.Errorf("type %s: %w", id, err)
			}
		}
		c.TypeDecl = td
	case ast.KindSource:
		src := &ast.Source{ID: id, Prov: prov, Protocol: o.str("protocol")}
		if r, ok := o["fields"]; ok {
			if err := json.Unmarshal(r, &src.Fields); err != nil {
				return nil, fmt.Errorf("source %s: %w", id, err)
			}
		}
		c.Source = src
	default:
		return nil, fmt.Errorf("unknown construct kind %q", kind)
	}
	return c, nil
}

func decodeFactSource(o rawObj) ast.FactSource {
	if o == nil {
		return ast.FactSource{}
	}
	if _, ok := o["source_id"]; ok {
		return ast.FactSource{Structured: true, SourceID: o.str("source_id"), Path: o.str("path")}
	}
	return ast.FactSource{Freetext: o.str("freetext")}
}

// decodeLiteral recovers a literal payload. An elaborated bundle
// carries coerced tagged-kind values; anything else (an un-coerced raw
// literal) lands in Raw generically decoded.
func decodeLiteral(raw json.RawMessage) *ast.Literal {
	var v values.Value
	if err := json.Unmarshal(raw, &v); err == nil {
		return &ast.Literal{Value: &v}
	}
	var generic interface{}
	_ = json.Unmarshal(raw, &generic)
	return &ast.Literal{Raw: generic}
}

func decodeExpr(raw json.RawMessage) (*ast.Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var o rawObj
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	e := &ast.Expr{Kind: ast.ExprKind(o.str("kind"))}
	var err error
	switch e.Kind {
	case ast.ExprComparison:
		if e.Left, err = decodeTerm(o["left"]); err != nil {
			return nil, err
		}
		e.Op = ast.CompOp(o.str("op"))
		if e.Right, err = decodeTerm(o["right"]); err != nil {
			return nil, err
		}
	case ast.ExprAnd, ast.ExprOr:
		if e.LHS, err = decodeExpr(o["lhs"]); err != nil {
			return nil, err
		}
		if e.RHS, err = decodeExpr(o["rhs"]); err != nil {
			return nil, err
		}
	case ast.ExprNot:
		if e.Operand, err = decodeExpr(o["operand"]); err != nil {
			return nil, err
		}
	case ast.ExprVerdictPresent:
		e.VerdictType = o.str("verdict_type")
	case ast.ExprForall, ast.ExprExists:
		e.Binder = o.str("binder")
		e.Domain = o.str("domain")
		if e.Body, err = decodeExpr(o["body"]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown expression kind %q", e.Kind)
	}
	return e, nil
}

func decodeTerm(raw json.RawMessage) (*ast.Term, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var o rawObj
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	t := &ast.Term{Kind: ast.TermKind(o.str("kind"))}
	var err error
	switch t.Kind {
	case ast.TermFactRef:
		t.FactRef = o.str("fact")
	case ast.TermLiteral:
		t.Literal = decodeLiteral(o["literal"])
	case ast.TermMul:
		if t.MulLeft, err = decodeTerm(o["left"]); err != nil {
			return nil, err
		}
		if t.MulRight, err = decodeTerm(o["right"]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown term kind %q", t.Kind)
	}
	return t, nil
}

func decodeSteps(raw json.RawMessage) (map[string]*ast.Step, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(map[string]*ast.Step, len(m))
	for id, sr := range m {
		s, err := decodeStep(id, sr)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", id, err)
		}
		out[id] = s
	}
	return out, nil
}

func decodeStep(id string, raw json.RawMessage) (*ast.Step, error) {
	var o rawObj
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	s := &ast.Step{ID: id, Prov: o.prov(), Kind: ast.StepKind(o.str("kind"))}
	var err error
	switch s.Kind {
	case ast.StepOperation:
		op := &ast.OperationStep{Op: o.str("op"), Persona: o.str("persona"), Outcomes: map[string]ast.StepTarget{}}
		for label, tr := range o.obj("outcomes") {
			t, err := decodeTarget(tr)
			if err != nil {
				return nil, err
			}
			op.Outcomes[label] = t
		}
		if op.OnFailure, err = decodeFailureHandler(o["on_failure"]); err != nil {
			return nil, err
		}
		s.Operation = op
	case ast.StepBranch:
		br := &ast.BranchStep{Persona: o.str("persona")}
		if br.Condition, err = decodeExpr(o["condition"]); err != nil {
			return nil, err
		}
		if br.IfTrue, err = decodeTarget(o["if_true"]); err != nil {
			return nil, err
		}
		if br.IfFalse, err = decodeTarget(o["if_false"]); err != nil {
			return nil, err
		}
		s.Branch = br
	case ast.StepHandoff:
		h := &ast.HandoffStep{FromPersona: o.str("from_persona"), ToPersona: o.str("to_persona")}
		if h.Next, err = decodeTarget(o["next"]); err != nil {
			return nil, err
		}
		s.Handoff = h
	case ast.StepSubFlow:
		sf := &ast.SubFlowStep{Flow: o.str("flow"), Persona: o.str("persona")}
		if sf.OnSuccess, err = decodeTarget(o["on_success"]); err != nil {
			return nil, err
		}
		if sf.OnFailure, err = decodeTarget(o["on_failure"]); err != nil {
			return nil, err
		}
		s.SubFlow = sf
	case ast.StepParallel:
		p := &ast.ParallelStep{}
		for _, br := range o.list("branches") {
			var bo rawObj
			if err := json.Unmarshal(br, &bo); err != nil {
				return nil, err
			}
			steps, err := decodeSteps(bo["steps"])
			if err != nil {
				return nil, err
			}
			p.Branches = append(p.Branches, ast.Branch{ID: bo.str("id"), Entry: bo.str("entry"), Steps: steps})
		}
		join := o.obj("join")
		if p.Join.OnAllSuccess, err = decodeTargetPtr(join["on_all_success"]); err != nil {
			return nil, err
		}
		if p.Join.OnAnyFailure, err = decodeTargetPtr(join["on_any_failure"]); err != nil {
			return nil, err
		}
		if p.Join.OnAllComplete, err = decodeTargetPtr(join["on_all_complete"]); err != nil {
			return nil, err
		}
		s.Parallel = p
	default:
		return nil, fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return s, nil
}

func decodeTarget(raw json.RawMessage) (ast.StepTarget, error) {
	var o rawObj
	if err := json.Unmarshal(raw, &o); err != nil {
		return ast.StepTarget{}, err
	}
	if ast.StepTargetKind(o.str("kind")) == ast.TargetStepRef {
		return ast.StepTarget{Kind: ast.TargetStepRef, StepRef: o.str("step_ref")}, nil
	}
	return ast.StepTarget{Kind: ast.TargetTerminal, Outcome: o.str("outcome")}, nil
}

func decodeTargetPtr(raw json.RawMessage) (*ast.StepTarget, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	t, err := decodeTarget(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeFailureHandler(raw json.RawMessage) (*ast.FailureHandler, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var o rawObj
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	fh := &ast.FailureHandler{Kind: ast.FailureKind(o.str("kind"))}
	switch fh.Kind {
	case ast.FailTerminate:
		fh.Outcome = o.str("outcome")
	case ast.FailCompensate:
		for _, cr := range o.list("comp_steps") {
			var co rawObj
			if err := json.Unmarshal(cr, &co); err != nil {
				return nil, err
			}
			fh.CompSteps = append(fh.CompSteps, ast.CompStep{
				Op: co.str("op"), Persona: co.str("persona"), OnFailure: co.str("on_failure"),
			})
		}
		var err error
		if fh.Then, err = decodeTargetPtr(o["then"]); err != nil {
			return nil, err
		}
	case ast.FailEscalate:
		fh.ToPersona = o.str("to_persona")
		fh.Next = o.str("next")
	default:
		return nil, fmt.Errorf("unknown failure handler kind %q", fh.Kind)
	}
	return fh, nil
}
