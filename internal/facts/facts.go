// Package facts implements the fact assembler: given a contract's
// declared facts and a raw fact object, coerces each present value
// according to its declared type,
// substitutes declared defaults for absent ones, and fails on the
// first offending fact with a precise type-mismatch error.
package facts

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/values"
)

// Set is an assembled, typed fact set keyed by fact id.
type Set map[string]values.Value

// Assemble coerces raw against idx's declared facts, in the bundle's
// declaration order, so the first mismatch reported is deterministic.
func Assemble(idx *index.Index, raw map[string]interface{}) (Set, error) {
	out := make(Set, len(idx.Facts))
	for _, c := range idx.Order {
		if c.Kind != ast.KindFact {
			continue
		}
		f := c.Fact
		v, present := raw[f.ID]
		switch {
		case present:
			cv, err := values.Coerce(v, f.Type)
			if err != nil {
				return nil, errs.Eval("type_mismatch", "fact %s: %s", f.ID, err)
			}
			out[f.ID] = cv
		case f.Default != nil:
			if f.Default.Value != nil {
				out[f.ID] = *f.Default.Value
				continue
			}
			cv, err := values.Coerce(f.Default.Raw, f.Type)
			if err != nil {
				return nil, errs.Eval("type_mismatch", "fact %s: invalid default: %s", f.ID, err)
			}
			out[f.ID] = cv
		default:
			return nil, errs.Eval("missing_fact", "fact %s: no value supplied and no default declared", f.ID)
		}
	}
	return out, nil
}
