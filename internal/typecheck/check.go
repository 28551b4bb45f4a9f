package typecheck

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/values"
)

// checker carries the per-rule context pass 4 needs while walking a
// predicate tree: the fact/verdict index, lexically-scoped quantifier
// bindings, and (when checking a rule's own "when" clause) that rule's
// produce-payload Int range, consulted only for the restricted
// multiplication's overflow check.
type checker struct {
	idx          *index.Index
	produceRange *values.Type // enclosing rule's Produce.PayloadType, if Int-based
}

// CheckAll is pass 4: type-check every rule predicate/produce clause
// and every operation's precondition. It surfaces
// the first violation it finds.
func CheckAll(idx *index.Index) error {
	for _, r := range idx.Rules {
		c := &checker{idx: idx}
		if r.Produce.PayloadType != nil && r.Produce.PayloadType.Base == values.KindInt {
			c.produceRange = r.Produce.PayloadType
		}
		if r.When != nil {
			if err := c.checkExpr(r.When, map[string]*values.Type{}, r.Stratum); err != nil {
				return errs.Type(r.ID, "when", r.Prov.File, r.Prov.Line, "%v", err)
			}
		}
		if r.Produce.Payload != nil {
			v, err := values.Coerce(r.Produce.Payload.Raw, r.Produce.PayloadType)
			if err != nil {
				return errs.Type(r.ID, "produce", r.Prov.File, r.Prov.Line, "produce payload: %v", err)
			}
			r.Produce.Payload.Value = &v
			r.Produce.Payload.Type = r.Produce.PayloadType
		}
	}
	for _, op := range idx.Operations {
		if op.Precondition == nil {
			continue
		}
		c := &checker{idx: idx}
		if err := c.checkExpr(op.Precondition, map[string]*values.Type{}, -1); err != nil {
			return errs.Type(op.ID, "precondition", op.Prov.File, op.Prov.Line, "%v", err)
		}
	}
	return nil
}

// checkExpr type-checks one predicate node. stratum is the enclosing
// rule's stratum (or -1 for operation preconditions, which have no
// stratum and therefore no below-stratum restriction to enforce here;
// the stratification invariant itself is enforced in
// internal/validate).
func (c *checker) checkExpr(e *ast.Expr, bindings map[string]*values.Type, stratum int) error {
	switch e.Kind {
	case ast.ExprComparison:
		return c.checkComparison(e, bindings)
	case ast.ExprAnd, ast.ExprOr:
		if err := c.checkExpr(e.LHS, bindings, stratum); err != nil {
			return err
		}
		return c.checkExpr(e.RHS, bindings, stratum)
	case ast.ExprNot:
		return c.checkExpr(e.Operand, bindings, stratum)
	case ast.ExprVerdictPresent:
		if _, ok := c.idx.VerdictRule[e.VerdictType]; !ok {
			return fmt.Errorf("verdict_present references unknown verdict type %q", e.VerdictType)
		}
		return nil
	case ast.ExprForall, ast.ExprExists:
		domainFact, ok := c.idx.Facts[e.Domain]
		if !ok {
			return fmt.Errorf("quantifier domain %q is not a declared fact", e.Domain)
		}
		if domainFact.Type == nil || domainFact.Type.Base != values.KindList {
			return fmt.Errorf("quantifier domain %q must be list-typed", e.Domain)
		}
		inner := map[string]*values.Type{}
		for k, v := range bindings {
			inner[k] = v
		}
		inner[e.Binder] = domainFact.Type.Element
		return c.checkExpr(e.Body, inner, stratum)
	default:
		return fmt.Errorf("unknown predicate kind %q", e.Kind)
	}
}

// compSupported is the per-type operator support matrix: Bool supports only = and !=; all other ordered kinds support
// the full comparison set.
func compSupported(k values.Kind, op ast.CompOp) bool {
	if k == values.KindBool {
		return op == ast.OpEq || op == ast.OpNeq
	}
	switch k {
	case values.KindList, values.KindRecord, values.KindTaggedUnion:
		return op == ast.OpEq || op == ast.OpNeq
	default:
		return true
	}
}

func (c *checker) checkComparison(e *ast.Expr, bindings map[string]*values.Type) error {
	leftType, err := c.termType(e.Left, bindings)
	if err != nil {
		return err
	}
	rightType, err := c.termType(e.Right, bindings)
	if err != nil {
		return err
	}

	resolved := leftType
	if resolved == nil {
		resolved = rightType
	}
	if resolved == nil {
		return fmt.Errorf("comparison between two untyped literals has no inferrable type")
	}

	if err := c.coerceLiteralTerm(e.Left, resolved); err != nil {
		return err
	}
	if err := c.coerceLiteralTerm(e.Right, resolved); err != nil {
		return err
	}

	if leftType != nil && rightType != nil {
		if leftType.Base != rightType.Base {
			return fmt.Errorf("comparison between %s and %s", leftType.Base, rightType.Base)
		}
		if leftType.Base == values.KindMoney {
			if leftType.Currency == nil || rightType.Currency == nil || *leftType.Currency != *rightType.Currency {
				return fmt.Errorf("money comparison requires identical currency codes")
			}
		}
		if leftType.Base == values.KindDuration {
			if leftType.Unit == nil || rightType.Unit == nil || *leftType.Unit != *rightType.Unit {
				return fmt.Errorf("duration comparison requires identical units")
			}
		}
		if leftType.Base == values.KindDecimal {
			if !samePrecScale(leftType, rightType) {
				return fmt.Errorf("decimal comparison requires compatible precision/scale")
			}
		}
	}

	if !compSupported(resolved.Base, e.Op) {
		return fmt.Errorf("operator %s is not supported for type %s", e.Op, resolved.Base)
	}

	e.ComparisonType = resolved
	return nil
}

func samePrecScale(a, b *values.Type) bool {
	if a.Precision == nil || b.Precision == nil || a.Scale == nil || b.Scale == nil {
		return true
	}
	return *a.Precision == *b.Precision && *a.Scale == *b.Scale
}

// coerceLiteralTerm assigns a literal term's Type/Value once the
// comparison's resolved type is known; non-literal terms are no-ops.
func (c *checker) coerceLiteralTerm(t *ast.Term, resolved *values.Type) error {
	if t.Kind != ast.TermLiteral {
		return nil
	}
	v, err := values.Coerce(t.Literal.Raw, resolved)
	if err != nil {
		return fmt.Errorf("literal operand: %w", err)
	}
	t.Literal.Type = resolved
	t.Literal.Value = &v
	return nil
}

// termType resolves a Term's static type. A bare TermLiteral has no
// intrinsic type (nil, nil) until the comparison's other operand fixes
// it; TermMul computes a type from its operands and enforces the
// variable×variable rejection and, for Int*Int, the overflow check
// against the enclosing rule's produce payload range.
func (c *checker) termType(t *ast.Term, bindings map[string]*values.Type) (*values.Type, error) {
	switch t.Kind {
	case ast.TermFactRef:
		if bt, ok := bindings[t.FactRef]; ok {
			return bt, nil
		}
		if f, ok := c.idx.Facts[t.FactRef]; ok {
			return f.Type, nil
		}
		return nil, fmt.Errorf("reference to unknown fact or bound variable %q", t.FactRef)
	case ast.TermLiteral:
		return nil, nil
	case ast.TermMul:
		return c.mulType(t, bindings)
	default:
		return nil, fmt.Errorf("unknown term kind %q", t.Kind)
	}
}

func isVariableTerm(t *ast.Term) bool { return t.Kind == ast.TermFactRef }

func (c *checker) mulType(t *ast.Term, bindings map[string]*values.Type) (*values.Type, error) {
	if isVariableTerm(t.MulLeft) && isVariableTerm(t.MulRight) {
		return nil, fmt.Errorf("variable × variable multiplication is not permitted")
	}

	leftType, err := c.termType(t.MulLeft, bindings)
	if err != nil {
		return nil, err
	}
	rightType, err := c.termType(t.MulRight, bindings)
	if err != nil {
		return nil, err
	}

	varType := leftType
	if varType == nil {
		varType = rightType
	}
	if varType == nil {
		return nil, fmt.Errorf("multiplication requires at least one typed operand")
	}

	switch varType.Base {
	case values.KindInt:
		if err := c.checkIntOverflow(t, varType, bindings); err != nil {
			return nil, err
		}
		return varType, nil
	case values.KindDecimal:
		// Decimal×Decimal and Decimal×Int are accepted under
		// exact-decimal rules with no static range check, since
		// Decimal carries no static min/max.
		return varType, nil
	default:
		return nil, fmt.Errorf("multiplication is not defined for type %s", varType.Base)
	}
}

// checkIntOverflow performs the symbolic range check for Int
// products: if the variable operand has a declared Int range and
// the enclosing rule's produce payload is also Int-ranged, the
// product's endpoint range must fit inside it.
func (c *checker) checkIntOverflow(mul *ast.Term, varType *values.Type, bindings map[string]*values.Type) error {
	if c.produceRange == nil || varType.Min == nil || varType.Max == nil {
		return nil
	}
	litTerm := mul.MulLeft
	if isVariableTerm(litTerm) {
		litTerm = mul.MulRight
	}
	if litTerm.Kind != ast.TermLiteral {
		return nil
	}
	lit, ok := litTerm.Literal.Raw.(int64)
	if !ok {
		return nil
	}
	lo := *varType.Min * lit
	hi := *varType.Max * lit
	if lo > hi {
		lo, hi = hi, lo
	}
	if c.produceRange.Min != nil && lo < *c.produceRange.Min {
		return fmt.Errorf("multiplication range [%d, %d] overflows produce payload range [min=%d]", lo, hi, *c.produceRange.Min)
	}
	if c.produceRange.Max != nil && hi > *c.produceRange.Max {
		return fmt.Errorf("multiplication range [%d, %d] overflows produce payload range [max=%d]", lo, hi, *c.produceRange.Max)
	}
	return nil
}
