package parser

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/lexer"
	"github.com/tenor-lang/tenor/internal/values"
)

// parseExpr parses a predicate expression with fixed precedence:
// not > and > or; comparisons are leaves. The
// logical connectives and quantifier keywords are exclusively the
// Unicode code points the lexer recognizes (∧ ∨ ¬ ∀ ∃ ∈) — there is no
// ASCII alias, matching internal/lexer/lexer.go.
func (p *parser) parseExpr() (*ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (*ast.Expr, error) {
	ln := p.line()
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Token.Kind == lexer.Or {
		p.advance()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.ExprOr, Prov: ast.Provenance{File: p.filename, Line: ln}, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAnd() (*ast.Expr, error) {
	ln := p.line()
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Token.Kind == lexer.And {
		p.advance()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.ExprAnd, Prov: ast.Provenance{File: p.filename, Line: ln}, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseNot() (*ast.Expr, error) {
	if p.cur().Token.Kind == lexer.Not {
		ln := p.line()
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprNot, Prov: ast.Provenance{File: p.filename, Line: ln}, Operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (*ast.Expr, error) {
	ln := p.line()

	if p.cur().Token.Kind == lexer.LParen {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return e, nil
	}

	if p.cur().Token.Kind == lexer.Forall || p.cur().Token.Kind == lexer.Exists {
		kind := ast.ExprForall
		if p.cur().Token.Kind == lexer.Exists {
			kind = ast.ExprExists
		}
		p.advance()
		binder, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.In); err != nil {
			return nil, err
		}
		domain, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Dot); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{
			Kind: kind, Prov: ast.Provenance{File: p.filename, Line: ln},
			Binder: binder, Domain: domain, Body: body,
		}, nil
	}

	if w, ok := p.peekWord(); ok && w == "verdict_present" {
		p.advance()
		verdict, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{
			Kind: ast.ExprVerdictPresent, Prov: ast.Provenance{File: p.filename, Line: ln},
			VerdictType: verdict,
		}, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (*ast.Expr, error) {
	ln := p.line()
	left, err := p.parseMulTerm()
	if err != nil {
		return nil, err
	}
	op, err := p.parseCompOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseMulTerm()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{
		Kind: ast.ExprComparison, Prov: ast.Provenance{File: p.filename, Line: ln},
		Left: left, Op: op, Right: right,
	}, nil
}

func (p *parser) parseCompOp() (ast.CompOp, error) {
	switch p.cur().Token.Kind {
	case lexer.Eq:
		p.advance()
		return ast.OpEq, nil
	case lexer.Neq:
		p.advance()
		return ast.OpNeq, nil
	case lexer.Lt:
		p.advance()
		return ast.OpLt, nil
	case lexer.Lte:
		p.advance()
		return ast.OpLte, nil
	case lexer.Gt:
		p.advance()
		return ast.OpGt, nil
	case lexer.Gte:
		p.advance()
		return ast.OpGte, nil
	default:
		return "", errs.Parse(p.filename, p.line(), "expected comparison operator, found %v", p.cur().Token.Kind)
	}
}

// parseMulTerm parses the restricted multiplication `left * right`;
// a bare factor is returned unwrapped when no '*' follows.
func (p *parser) parseMulTerm() (*ast.Term, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	if p.cur().Token.Kind == lexer.Star {
		ln := p.line()
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.Term{Kind: ast.TermMul, Prov: ast.Provenance{File: p.filename, Line: ln}, MulLeft: left, MulRight: right}, nil
	}
	return left, nil
}

func (p *parser) parseFactor() (*ast.Term, error) {
	ln := p.line()
	if p.cur().Token.Kind == lexer.LParen {
		p.advance()
		t, err := p.parseMulTerm()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return t, nil
	}
	if p.cur().Token.Kind == lexer.Word {
		w := p.cur().Token.WordVal
		if w == "true" || w == "false" {
			p.advance()
			return &ast.Term{Kind: ast.TermLiteral, Prov: ast.Provenance{File: p.filename, Line: ln},
				Literal: &ast.Literal{Raw: w == "true"}}, nil
		}
		p.advance()
		return &ast.Term{Kind: ast.TermFactRef, Prov: ast.Provenance{File: p.filename, Line: ln}, FactRef: w}, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &ast.Term{Kind: ast.TermLiteral, Prov: ast.Provenance{File: p.filename, Line: ln}, Literal: lit}, nil
}

// parseLiteral parses a typed literal value.
// Raw is left generically decoded (bool, int64, decimal string,
// string, or nested maps/slices); the type resolver (pass 4) assigns
// Type and coerces it into Value once the declared type is known.
func (p *parser) parseLiteral() (*ast.Literal, error) {
	t := p.cur().Token
	switch t.Kind {
	case lexer.Int:
		p.advance()
		return &ast.Literal{Raw: t.IntVal}, nil
	case lexer.Float:
		p.advance()
		return &ast.Literal{Raw: t.FloatVal}, nil
	case lexer.Str:
		p.advance()
		return &ast.Literal{Raw: t.StrVal}, nil
	case lexer.LBracket:
		return p.parseListLiteral()
	case lexer.LBrace:
		return p.parseRecordLiteral()
	case lexer.Word:
		switch t.WordVal {
		case "true":
			p.advance()
			return &ast.Literal{Raw: true}, nil
		case "false":
			p.advance()
			return &ast.Literal{Raw: false}, nil
		case "money":
			return p.parseMoneyLiteral()
		case "duration":
			return p.parseDurationLiteral()
		case "union":
			return p.parseUnionLiteral()
		default:
			// Bare identifier: an Enum value or a TypeRef literal
			// reference resolved structurally downstream.
			p.advance()
			return &ast.Literal{Raw: t.WordVal}, nil
		}
	default:
		return nil, errs.Parse(p.filename, p.line(), "expected literal, found %v", t.Kind)
	}
}

func (p *parser) parseMoneyLiteral() (*ast.Literal, error) {
	p.advance() // "money"
	if err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	amount, err := p.parseNumericString()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Comma); err != nil {
		return nil, err
	}
	if p.cur().Token.Kind != lexer.Str {
		return nil, errs.Parse(p.filename, p.line(), "money: currency must be a string")
	}
	currency := p.cur().Token.StrVal
	p.advance()
	if err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.Literal{Raw: map[string]interface{}{"amount": amount, "currency": currency}}, nil
}

func (p *parser) parseDurationLiteral() (*ast.Literal, error) {
	p.advance() // "duration"
	if err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	if p.cur().Token.Kind != lexer.Int {
		return nil, errs.Parse(p.filename, p.line(), "duration: magnitude must be an integer")
	}
	mag := p.cur().Token.IntVal
	p.advance()
	if err := p.expect(lexer.Comma); err != nil {
		return nil, err
	}
	if p.cur().Token.Kind != lexer.Str {
		return nil, errs.Parse(p.filename, p.line(), "duration: unit must be a string")
	}
	unit := p.cur().Token.StrVal
	p.advance()
	if err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.Literal{Raw: map[string]interface{}{"value": mag, "unit": unit}}, nil
}

func (p *parser) parseUnionLiteral() (*ast.Literal, error) {
	p.advance() // "union"
	if err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	tag, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	m := map[string]interface{}{"tag": tag}
	if p.cur().Token.Kind == lexer.Comma {
		p.advance()
		payload, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		m["payload"] = payload.Raw
	}
	if err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.Literal{Raw: m}, nil
}

func (p *parser) parseNumericString() (string, error) {
	switch p.cur().Token.Kind {
	case lexer.Int:
		s := p.cur().Token.IntVal
		p.advance()
		return values.DecimalFromInt(s).String(), nil
	case lexer.Float:
		s := p.cur().Token.FloatVal
		p.advance()
		return s, nil
	default:
		return "", errs.Parse(p.filename, p.line(), "expected numeric literal, found %v", p.cur().Token.Kind)
	}
}

func (p *parser) parseListLiteral() (*ast.Literal, error) {
	p.advance() // "["
	var items []interface{}
	for p.cur().Token.Kind != lexer.RBracket {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, lit.Raw)
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return &ast.Literal{Raw: items}, nil
}

func (p *parser) parseRecordLiteral() (*ast.Literal, error) {
	p.advance() // "{"
	m := map[string]interface{}{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		m[key] = lit.Raw
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return &ast.Literal{Raw: m}, nil
}

// parseTypeExpr parses a type reference or inline type body from the
// closed type enumeration. A bare identifier not matching
// one of the base kind names is a TypeRef, resolved in pass 3.
func (p *parser) parseTypeExpr() (*values.Type, error) {
	name, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	switch name {
	case "Bool":
		return values.Bool(), nil
	case "Text":
		t := values.Text()
		if p.cur().Token.Kind == lexer.LBrace {
			fields, err := p.parseTypeFields()
			if err != nil {
				return nil, err
			}
			if ml, ok := fields["max_length"].(int64); ok {
				t.MaxLength = &ml
			}
		}
		return t, nil
	case "Date":
		return values.Date(), nil
	case "DateTime":
		return values.DateTime(), nil
	case "Int":
		t := &values.Type{Base: values.KindInt}
		if p.cur().Token.Kind == lexer.LBrace {
			fields, err := p.parseTypeFields()
			if err != nil {
				return nil, err
			}
			if v, ok := fields["min"].(int64); ok {
				t.Min = &v
			}
			if v, ok := fields["max"].(int64); ok {
				t.Max = &v
			}
		}
		return t, nil
	case "Decimal":
		t := &values.Type{Base: values.KindDecimal}
		if p.cur().Token.Kind == lexer.LBrace {
			fields, err := p.parseTypeFields()
			if err != nil {
				return nil, err
			}
			if v, ok := fields["precision"].(int64); ok {
				p32 := int32(v)
				t.Precision = &p32
			}
			if v, ok := fields["scale"].(int64); ok {
				s32 := int32(v)
				t.Scale = &s32
			}
		}
		return t, nil
	case "Money":
		t := &values.Type{Base: values.KindMoney}
		if p.cur().Token.Kind == lexer.LBrace {
			fields, err := p.parseTypeFields()
			if err != nil {
				return nil, err
			}
			if v, ok := fields["currency"].(string); ok {
				t.Currency = &v
			}
		}
		return t, nil
	case "Duration":
		t := &values.Type{Base: values.KindDuration}
		if p.cur().Token.Kind == lexer.LBrace {
			fields, err := p.parseTypeFields()
			if err != nil {
				return nil, err
			}
			if v, ok := fields["unit"].(string); ok {
				t.Unit = &v
			}
			if v, ok := fields["min"].(int64); ok {
				t.DurMin = &v
			}
			if v, ok := fields["max"].(int64); ok {
				t.DurMax = &v
			}
		}
		return t, nil
	case "Enum":
		t := &values.Type{Base: values.KindEnum}
		fields, err := p.parseTypeFields()
		if err != nil {
			return nil, err
		}
		if vs, ok := fields["values"].([]string); ok {
			t.Values = vs
		}
		return t, nil
	case "List":
		t := &values.Type{Base: values.KindList}
		if err := p.expect(lexer.LBrace); err != nil {
			return nil, err
		}
		for p.cur().Token.Kind != lexer.RBrace {
			key, err := p.expectWord()
			if err != nil {
				return nil, err
			}
			if err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			switch key {
			case "element":
				elemT, err := p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
				t.Element = elemT
			case "max":
				if p.cur().Token.Kind != lexer.Int {
					return nil, errs.Parse(p.filename, p.line(), "List.max must be an integer")
				}
				v := p.cur().Token.IntVal
				t.MaxItems = &v
				p.advance()
			default:
				return nil, errs.Parse(p.filename, p.line(), "List: unknown field %q", key)
			}
			if p.cur().Token.Kind == lexer.Comma {
				p.advance()
			}
		}
		p.advance()
		return t, nil
	case "Record":
		t := &values.Type{Base: values.KindRecord, Fields: map[string]*values.Type{}}
		if err := p.expect(lexer.LBrace); err != nil {
			return nil, err
		}
		if err := p.expectFieldKey("fields"); err != nil {
			return nil, err
		}
		fields, err := p.parseTypeMap()
		if err != nil {
			return nil, err
		}
		t.Fields = fields
		if err := p.expect(lexer.RBrace); err != nil {
			return nil, err
		}
		return t, nil
	case "TaggedUnion":
		t := &values.Type{Base: values.KindTaggedUnion, Variants: map[string]*values.Type{}}
		if err := p.expect(lexer.LBrace); err != nil {
			return nil, err
		}
		if err := p.expectFieldKey("variants"); err != nil {
			return nil, err
		}
		variants, err := p.parseTypeMap()
		if err != nil {
			return nil, err
		}
		t.Variants = variants
		if err := p.expect(lexer.RBrace); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return &values.Type{Base: values.KindTypeRef, RefName: name}, nil
	}
}

func (p *parser) expectFieldKey(name string) error {
	key, err := p.expectWord()
	if err != nil {
		return err
	}
	if key != name {
		return errs.Parse(p.filename, p.line(), "expected field %q, found %q", name, key)
	}
	return p.expect(lexer.Colon)
}

// parseTypeMap parses `{ name: TypeExpr, name: TypeExpr, ... }`.
func (p *parser) parseTypeMap() (map[string]*values.Type, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	out := map[string]*values.Type{}
	for p.cur().Token.Kind != lexer.RBrace {
		name, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		out[name] = t
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}

// parseTypeFields parses a generic `{ key: value, ... }` body used by
// scalar type bodies (Int/Decimal/Money/Text/Duration/Enum), returning
// raw decoded values keyed by field name.
func (p *parser) parseTypeFields() (map[string]interface{}, error) {
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	for p.cur().Token.Kind != lexer.RBrace {
		key, err := p.expectWord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		switch key {
		case "values":
			vs, err := p.parseWordList()
			if err != nil {
				return nil, err
			}
			out[key] = vs
		default:
			switch p.cur().Token.Kind {
			case lexer.Int:
				out[key] = p.cur().Token.IntVal
				p.advance()
			case lexer.Str:
				out[key] = p.cur().Token.StrVal
				p.advance()
			case lexer.Word:
				out[key] = p.cur().Token.WordVal
				p.advance()
			default:
				return nil, errs.Parse(p.filename, p.line(), "unexpected value for field %q", key)
			}
		}
		if p.cur().Token.Kind == lexer.Comma {
			p.advance()
		}
	}
	p.advance()
	return out, nil
}
