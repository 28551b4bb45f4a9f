package parser

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/lexer"
)

// legalKeys is the fixed key schema per construct kind.
var legalKeys = map[string]map[string]bool{
	"fact":      {"type": true, "source": true, "default": true},
	"entity":    {"states": true, "initial": true, "transitions": true, "parent": true},
	"rule":      {"stratum": true, "when": true, "produce": true},
	"operation": {"personas": true, "precondition": true, "effects": true, "outcomes": true, "errors": true},
	"flow":      {"snapshot": true, "entry": true, "steps": true},
	"type":      {}, // type body is a bare type expression, not keyed
	"source":    {}, // source fields are free-form
	"system":    {"members": true, "shared_personas": true, "triggers": true, "shared_entities": true},
}

func (p *parser) parseFact() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "fact"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	f := &ast.Fact{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	seen := map[string]bool{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if !legalKeys["fact"][key] {
			return nil, errs.Parse(p.filename, p.line(), "fact %s: unknown field %q", id, key)
		}
		if seen[key] {
			return nil, errs.Parse(p.filename, p.line(), "fact %s: duplicate field %q", id, key)
		}
		seen[key] = true
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "type":
			t, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			f.Type = t
		case "source":
			src, err := p.parseFactSource()
			if err != nil {
				return nil, err
			}
			f.Source = src
		case "default":
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			f.Default = lit
		}
	}
	p.advance() // RBrace
	return &ast.Construct{Kind: ast.KindFact, Fact: f}, nil
}

func (p *parser) parseFactSource() (ast.FactSource, error) {
	if p.cur().Token.Kind == lexer.Str {
		s := p.cur().Token.StrVal
		p.advance()
		return ast.FactSource{Freetext: s}, nil
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return ast.FactSource{}, err
	}
	fs := ast.FactSource{Structured: true}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return ast.FactSource{}, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return ast.FactSource{}, err
		}
		switch key {
		case "source":
			id, err := p.expectWord()
			if err != nil {
				return ast.FactSource{}, err
			}
			fs.SourceID = id
		case "path":
			if p.cur().Token.Kind != lexer.Str {
				return ast.FactSource{}, errs.Parse(p.filename, p.line(), "source path must be a string")
			}
			fs.Path = p.cur().Token.StrVal
			p.advance()
		default:
			return ast.FactSource{}, errs.Parse(p.filename, p.line(), "unknown fact source field %q", key)
		}
	}
	p.advance()
	return fs, nil
}

func (p *parser) parseEntity() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "entity"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	e := &ast.Entity{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	seen := map[string]bool{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if !legalKeys["entity"][key] {
			return nil, errs.Parse(p.filename, p.line(), "entity %s: unknown field %q", id, key)
		}
		seen[key] = true
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "states":
			states, err := p.parseWordList()
			if err != nil {
				return nil, err
			}
			e.States = states
		case "initial":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			e.Initial = w
		case "transitions":
			ts, err := p.parseTransitions()
			if err != nil {
				return nil, err
			}
			e.Transitions = ts
		case "parent":
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			e.Parent = w
		}
	}
	p.advance()
	return &ast.Construct{Kind: ast.KindEntity, Entity: e}, nil
}

func (p *parser) parseWordList() ([]string, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []string
	for p.cur().Token.Kind != lexer.RBracket {
		w, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

// parseTransitions reads `[(from, to), (from -> to), ...]`; the arrow
// sugar lexes identically to Gt (internal/lexer/lexer.go), so `,` and
// `>` are accepted interchangeably as the from/to separator.
func (p *parser) parseTransitions() ([]ast.Transition, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.Transition
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		from, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if p.cur().Token.Kind == lexer.Comma || p.cur().Token.Kind == lexer.Gt {
			p.advance()
		} else {
			return nil, errs.Parse(p.filename, p.line(), "transition: expected ',' or '->' between states")
		}
		to, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, ast.Transition{From: from, To: to})
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseRule() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "rule"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	r := &ast.Rule{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if !legalKeys["rule"][key] {
			return nil, errs.Parse(p.filename, p.line(), "rule %s: unknown field %q", id, key)
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "stratum":
			if p.cur().Token.Kind != lexer.Int {
				return nil, errs.Parse(p.filename, p.line(), "rule %s: stratum must be an integer", id)
			}
			r.Stratum = int(p.cur().Token.IntVal)
			p.advance()
		case "when":
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			r.When = expr
		case "produce":
			prod, err := p.parseProduce()
			if err != nil {
				return nil, err
			}
			r.Produce = prod
		}
	}
	p.advance()
	return &ast.Construct{Kind: ast.KindRule, Rule: r}, nil
}

// parseProduce reads `verdict_id : Type = literal`.
func (p *parser) parseProduce() (ast.Produce, error) {
	verdict, err := p.expectWord()
	if err != nil {
		return ast.Produce{}, err
	}
	if err := p.expect(lexer.Colon); err != nil {
		return ast.Produce{}, err
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return ast.Produce{}, err
	}
	if err := p.expect(lexer.Eq); err != nil {
		return ast.Produce{}, err
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return ast.Produce{}, err
	}
	lit.Type = t
	return ast.Produce{VerdictType: verdict, PayloadType: t, Payload: lit}, nil
}

func (p *parser) parseOperation() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "operation"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	op := &ast.Operation{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if !legalKeys["operation"][key] {
			return nil, errs.Parse(p.filename, p.line(), "operation %s: unknown field %q", id, key)
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "personas":
			personas, err := p.parseWordList()
			if err != nil {
				return nil, err
			}
			op.AllowedPersonas = personas
		case "precondition":
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			op.Precondition = expr
		case "effects":
			effects, err := p.parseEffects()
			if err != nil {
				return nil, err
			}
			op.Effects = effects
		case "outcomes":
			outcomes, err := p.parseWordList()
			if err != nil {
				return nil, err
			}
			op.Outcomes = outcomes
		case "errors":
			errors, err := p.parseWordList()
			if err != nil {
				return nil, err
			}
			op.ErrorContract = errors
		}
	}
	p.advance()
	return &ast.Construct{Kind: ast.KindOperation, Operation: op}, nil
}

// parseEffects reads `[(EntityID, from, to), (EntityID, from, to, outcome), ...]`.
func (p *parser) parseEffects() ([]ast.Effect, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.Effect
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		entity, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		from, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		to, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		eff := ast.Effect{EntityID: entity, From: from, To: to}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
			outcome, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			eff.Outcome = outcome
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, eff)
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseTypeDecl() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "type"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Construct{Kind: ast.KindTypeDecl, TypeDecl: &ast.TypeDecl{
		ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}, Type: t,
	}}, nil
}

func (p *parser) parseSource() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "source"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	src := &ast.Source{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}, Fields: map[string]string{}}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		var val string
		if p.cur().Token.Kind == lexer.Str {
			val = p.cur().Token.StrVal
			p.advance()
		} else {
			w, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			val = w
		}
		if key == "protocol" {
			src.Protocol = val
		} else {
			src.Fields[key] = val
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return &ast.Construct{Kind: ast.KindSource, Source: src}, nil
}

func (p *parser) parseSystem() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "system"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	sys := &ast.System{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if !legalKeys["system"][key] {
			return nil, errs.Parse(p.filename, p.line(), "system %s: unknown field %q", id, key)
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "members":
			members, err := p.parseSystemMembers()
			if err != nil {
				return nil, err
			}
			sys.Members = members
		case "shared_personas":
			sp, err := p.parseSharedPersonas()
			if err != nil {
				return nil, err
			}
			sys.SharedPersonas = sp
		case "triggers":
			tr, err := p.parseTriggers()
			if err != nil {
				return nil, err
			}
			sys.Triggers = tr
		case "shared_entities":
			se, err := p.parseSharedEntities()
			if err != nil {
				return nil, err
			}
			sys.SharedEntities = se
		}
	}
	p.advance()
	return &ast.Construct{Kind: ast.KindSystem, System: sys}, nil
}

func (p *parser) parseSystemMembers() ([]ast.SystemMember, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.SystemMember
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		id, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		if p.cur().Token.Kind != lexer.Str {
			return nil, errs.Parse(p.filename, p.line(), "system member path must be a string")
		}
		path := p.cur().Token.StrVal
		p.advance()
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, ast.SystemMember{ID: id, Path: path})
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseSharedPersonas() ([]ast.SharedPersona, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.SharedPersona
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		persona, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		contracts, err := p.parseWordList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, ast.SharedPersona{Persona: persona, Contracts: contracts})
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseSharedEntities() ([]ast.SharedEntity, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.SharedEntity
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		entity, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		contracts, err := p.parseWordList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, ast.SharedEntity{Entity: entity, Contracts: contracts})
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

// parseTriggers reads `[(srcContract.srcFlow, on, dstContract.dstFlow, persona), ...]`.
func (p *parser) parseTriggers() ([]ast.FlowTrigger, error) {
	if err := p.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []ast.FlowTrigger
	for p.cur().Token.Kind != lexer.RBracket {
		if err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		srcContract, srcFlow, err := p.parseDottedPair()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		on, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		dstContract, dstFlow, err := p.parseDottedPair()
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
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		out = append(out, ast.FlowTrigger{
			SourceContract: srcContract, SourceFlow: srcFlow,
			On: on, TargetContract: dstContract, TargetFlow: dstFlow, Persona: persona,
		})
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

func (p *parser) parseDottedPair() (string, string, error) {
	a, err := p.expectWord()
	if err != nil {
		return "", "", err
	}
	if err := p.expect(lexer.Dot); err != nil {
		return "", "", err
	}
	b, err := p.expectWord()
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}
