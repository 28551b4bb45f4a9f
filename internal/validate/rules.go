package validate

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
)

// validateRules enforces stratum monotonicity: a rule in stratum k may only
// reference (via verdict_present) verdict types produced by rules in
// strata strictly less than k.
func validateRules(idx *index.Index) error {
	for _, r := range idx.Rules {
		if r.When == nil {
			continue
		}
		var bad string
		walkVerdictRefs(r.When, func(vt string) {
			if bad != "" {
				return
			}
			producer, ok := idx.VerdictRule[vt]
			if !ok {
				bad = vt
				return
			}
			if producer.Stratum >= r.Stratum {
				bad = vt
			}
		})
		if bad != "" {
			return errs.Validate("rule", r.ID, "when", r.Prov.File, r.Prov.Line,
				"rule %s (stratum %d) references verdict %q from a stratum not strictly below its own", r.ID, r.Stratum, bad)
		}
	}
	return nil
}

func walkVerdictRefs(e *ast.Expr, visit func(string)) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprVerdictPresent:
		visit(e.VerdictType)
	case ast.ExprAnd, ast.ExprOr:
		walkVerdictRefs(e.LHS, visit)
		walkVerdictRefs(e.RHS, visit)
	case ast.ExprNot:
		walkVerdictRefs(e.Operand, visit)
	case ast.ExprForall, ast.ExprExists:
		walkVerdictRefs(e.Body, visit)
	}
}
