package parser

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/lexer"
)

func (p *parser) parseFlow() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "flow"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	fl := &ast.Flow{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}, Steps: map[string]*ast.Step{}}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if !legalKeys["flow"][key] {
			return nil, errs.Parse(p.filename, p.line(), "flow %s: unknown field %q", id, key)
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "snapshot":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			fl.Snapshot = w
		case "entry":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			fl.Entry = w
		case "steps":
			steps, err := p.parseSteps()
			if err != nil {
				return nil, err
			}
			fl.Steps = steps
		}
	}
	p.advance()
	return &ast.Construct{Kind: ast.KindFlow, Flow: fl}, nil
}

// parseSteps parses `{ step_id: StepBody, ... }`.
func (p *parser) parseSteps() (map[string]*ast.Step, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	out := map[string]*ast.Step{}
	for p.cur().Token.Kind != lexer.RBrace {
		ln := p.line()
		id, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		step, err := p.parseStepBody(id, ln)
		if err != nil {
			return nil, err
		}
		out[id] = step
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseStepBody(id string, ln uint32) (*ast.Step, error) {
	kw, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	step := &ast.Step{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	switch kw {
	case "operation":
		opStep, err := p.parseOperationStep()
		if err != nil {
			return nil, err
		}
		step.Kind = ast.StepOperation
		step.Operation = opStep
	case "branch":
		bs, err := p.parseBranchStep()
		if err != nil {
			return nil, err
		}
		step.Kind = ast.StepBranch
		step.Branch = bs
	case "handoff":
		hs, err := p.parseHandoffStep()
		if err != nil {
			return nil, err
		}
		step.Kind = ast.StepHandoff
		step.Handoff = hs
	case "subflow":
		sf, err := p.parseSubFlowStep()
		if err != nil {
			return nil, err
		}
		step.Kind = ast.StepSubFlow
		step.SubFlow = sf
	case "parallel":
		ps, err := p.parseParallelStep()
		if err != nil {
			return nil, err
		}
		step.Kind = ast.StepParallel
		step.Parallel = ps
	default:
		return nil, errs.Parse(p.filename, p.line(), "step %s: unknown step kind %q", id, kw)
	}
	return step, nil
}

// parseOperationStep reads `OP_ID as PERSONA { outcome -> target ...
// on_failure: FailureHandler }`. Every OperationStep must carry a
// failure handler; its absence is a parse error
// here rather than deferred to structural validation, since the
// failure-handler slot is syntactically mandatory.
func (p *parser) parseOperationStep() (*ast.OperationStep, error) {
	op, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	persona, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	os := &ast.OperationStep{Op: op, Persona: persona, Outcomes: map[string]ast.StepTarget{}}
	for p.cur().Token.Kind != lexer.RBrace {
		if w, ok := p.peekWord(); ok && w == "on_failure" {
			p.advance()
			if err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			fh, err := p.parseFailureHandler()
			if err != nil {
				return nil, err
			}
			os.OnFailure = fh
			if p.cur().Token.Kind == lexer.Comma {
				p.advance()
			}
			continue
		}
		outcome, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Gt); err != nil {
			return nil, err
		}
		target, err := p.parseStepTarget()
		if err != nil {
			return nil, err
		}
		os.Outcomes[outcome] = target
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	if os.OnFailure == nil {
		return nil, errs.Parse(p.filename, p.line(), "operation step %s: missing required on_failure handler", op)
	}
	return os, nil
}

func (p *parser) expectKeyword(kw string) error {
	w, ok := p.peekWord()
	if !ok || w != kw {
		return errs.Parse(p.filename, p.line(), "expected keyword %q", kw)
	}
	p.advance()
	return nil
}

// parseStepTarget reads either `terminate(outcome)` or a bare step id.
func (p *parser) parseStepTarget() (ast.StepTarget, error) {
	if w, ok := p.peekWord(); ok && w == "terminate" {
		p.advance()
		if err := p.expect(lexer.LParen); err != nil {
			return ast.StepTarget{}, err
		}
		outcome, err := p.expectWord()
		if err != nil {
			return ast.StepTarget{}, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return ast.StepTarget{}, err
		}
		return ast.StepTarget{Kind: ast.TargetTerminal, Outcome: outcome}, nil
	}
	ref, err := p.expectWord()
	if err != nil {
		return ast.StepTarget{}, err
	}
	return ast.StepTarget{Kind: ast.TargetStepRef, StepRef: ref}, nil
}

func (p *parser) parseFailureHandler() (*ast.FailureHandler, error) {
	kw, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	switch kw {
	case "terminate":
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		outcome, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &ast.FailureHandler{Kind: ast.FailTerminate, Outcome: outcome}, nil
	case "compensate":
		if err := p.expect(lexer.LBrace); err != nil {
			return nil, err
		}
		fh := &ast.FailureHandler{Kind: ast.FailCompensate}
		for p.cur().Token.Kind != lexer.RBrace {
			key, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			if err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			switch key {
			case "steps":
				steps, err := p.parseCompSteps()
				if err != nil {
					return nil, err
				}
				fh.CompSteps = steps
			case "then":
				t, err := p.parseStepTarget()
				if err != nil {
					return nil, err
				}
				fh.Then = &t
			default:
				return nil, errs.Parse(p.filename, p.line(), "compensate: unknown field %q", key)
			}
			if p.cur().Token.Kind == lexer.Comma {
				p.advance()
			}
		}
		p.advance()
		return fh, nil
	case "escalate":
		if err := p.expect(lexer.LBrace); err != nil {
			return nil, err
		}
		fh := &ast.FailureHandler{Kind: ast.FailEscalate}
		for p.cur().Token.Kind != lexer.RBrace {
			key, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			if err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			switch key {
			case "to":
				w, err := p.expectWord()
				if err != nil {
					return nil, err
				}
				fh.ToPersona = w
			case "next":
				w, err := p.expectWord()
				if err != nil {
					return nil, err
				}
				fh.Next = w
			default:
				return nil, errs.Parse(p.filename, p.line(), "escalate: unknown field %q", key)
			}
			if p.cur().Token.Kind == lexer.Comma {
				p.advance()
			}
		}
		p.advance()
		return fh, nil
	default:
		return nil, errs.Parse(p.filename, p.line(), "unknown failure handler kind %q", kw)
	}
}

func (p *parser) parseCompSteps() ([]ast.CompStep, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.CompStep
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		op, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		persona, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		onFailure, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, ast.CompStep{Op: op, Persona: persona, OnFailure: onFailure})
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseBranchStep() (*ast.BranchStep, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	bs := &ast.BranchStep{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "condition":
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			bs.Condition = e
		case "persona":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			bs.Persona = w
		case "if_true":
			t, err := p.parseStepTarget()
			if err != nil {
				return nil, err
			}
			bs.IfTrue = t
		case "if_false":
			t, err := p.parseStepTarget()
			if err != nil {
				return nil, err
			}
			bs.IfFalse = t
		default:
			return nil, errs.Parse(p.filename, p.line(), "branch: unknown field %q", key)
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return bs, nil
}

func (p *parser) parseHandoffStep() (*ast.HandoffStep, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	hs := &ast.HandoffStep{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "from":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			hs.FromPersona = w
		case "to":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			hs.ToPersona = w
		case "next":
			t, err := p.parseStepTarget()
			if err != nil {
				return nil, err
			}
			hs.Next = t
		default:
			return nil, errs.Parse(p.filename, p.line(), "handoff: unknown field %q", key)
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return hs, nil
}

func (p *parser) parseSubFlowStep() (*ast.SubFlowStep, error) {
	flowID, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	persona, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	sf := &ast.SubFlowStep{Flow: flowID, Persona: persona}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "on_success":
			t, err := p.parseStepTarget()
			if err != nil {
				return nil, err
			}
			sf.OnSuccess = t
		case "on_failure":
			t, err := p.parseStepTarget()
			if err != nil {
				return nil, err
			}
			sf.OnFailure = t
		default:
			return nil, errs.Parse(p.filename, p.line(), "subflow: unknown field %q", key)
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return sf, nil
}

func (p *parser) parseParallelStep() (*ast.ParallelStep, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	ps := &ast.ParallelStep{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "branches":
			branches, err := p.parseBranches()
			if err != nil {
				return nil, err
			}
			ps.Branches = branches
		case "join":
			jp, err := p.parseJoinPolicy()
			if err != nil {
				return nil, err
			}
			ps.Join = jp
		default:
			return nil, errs.Parse(p.filename, p.line(), "parallel: unknown field %q", key)
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return ps, nil
}

func (p *parser) parseBranches() ([]ast.Branch, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.Branch
	for p.cur().Token.Kind != lexer.RBracket {
		id, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.LBrace); err != nil {
			return nil, err
		}
		br := ast.Branch{ID: id}
		for p.cur().Token.Kind != lexer.RBrace {
			key, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			if err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			switch key {
			case "entry":
				w, err := p.expectWord()
				if err != nil {
					return nil, err
				}
				br.Entry = w
			case "steps":
				steps, err := p.parseSteps()
				if err != nil {
					return nil, err
				}
				br.Steps = steps
			default:
				return nil, errs.Parse(p.filename, p.line(), "branch %s: unknown field %q", id, key)
			}
			if p.cur().Token.Kind == lexer.Comma {
				p.advance()
			}
		}
		p.advance()
		out = append(out, br)
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseJoinPolicy() (ast.JoinPolicy, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return ast.JoinPolicy{}, err
	}
	jp := ast.JoinPolicy{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return ast.JoinPolicy{}, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return ast.JoinPolicy{}, err
		}
		t, err := p.parseStepTarget()
		if err != nil {
			return ast.JoinPolicy{}, err
		}
		switch key {
		case "on_all_success":
			jp.OnAllSuccess = &t
		case "on_any_failure":
			jp.OnAnyFailure = &t
		case "on_all_complete":
			jp.OnAllComplete = &t
		default:
			return ast.JoinPolicy{}, errs.Parse(p.filename, p.line(), "join: unknown field %q", key)
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return jp, nil
}
