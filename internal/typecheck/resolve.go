// Package typecheck implements passes 3-4: pass 3 resolves every
// TypeRef to its declared TypeDecl body; pass 4 type-checks every rule
// predicate, operation precondition, and produce clause against the
// per-type operator support matrices.
package typecheck

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/values"
)

// ResolveTypes is pass 3: it walks every type attached to a Fact,
// TypeDecl, or Rule produce clause and replaces TypeRef nodes in place
// with the resolved declaration's type, rejecting unknown references.
// Every cyclic TypeRef, including one that passes through a List,
// Record or TaggedUnion body, is rejected as a cyclic type reference;
// an in-progress set per top-level resolution detects it.
func ResolveTypes(idx *index.Index) error {
	for _, td := range idx.TypeDecls {
		if err := resolveInPlace(td.Type, idx, map[string]bool{}); err != nil {
			return errs.Type(td.ID, "type", td.Prov.File, td.Prov.Line, "%v", err)
		}
	}
	for _, f := range idx.Facts {
		if err := resolveInPlace(f.Type, idx, map[string]bool{}); err != nil {
			return errs.Type(f.ID, "type", f.Prov.File, f.Prov.Line, "%v", err)
		}
	}
	for _, r := range idx.Rules {
		if err := resolveInPlace(r.Produce.PayloadType, idx, map[string]bool{}); err != nil {
			return errs.Type(r.ID, "produce", r.Prov.File, r.Prov.Line, "%v", err)
		}
	}
	return nil
}

func resolveInPlace(t *values.Type, idx *index.Index, seen map[string]bool) error {
	if t == nil {
		return nil
	}
	switch t.Base {
	case values.KindTypeRef:
		if seen[t.RefName] {
			return fmt.Errorf("cyclic type reference through %q", t.RefName)
		}
		decl, ok := idx.TypeDecls[t.RefName]
		if !ok {
			return fmt.Errorf("unknown type %q", t.RefName)
		}
		seen2 := map[string]bool{}
		for k := range seen {
			seen2[k] = true
		}
		seen2[t.RefName] = true
		if err := resolveInPlace(decl.Type, idx, seen2); err != nil {
			return err
		}
		*t = *decl.Type
		return nil
	case values.KindList:
		return resolveInPlace(t.Element, idx, seen)
	case values.KindRecord:
		for _, ft := range t.Fields {
			if err := resolveInPlace(ft, idx, seen); err != nil {
				return err
			}
		}
		return nil
	case values.KindTaggedUnion:
		for _, vt := range t.Variants {
			if err := resolveInPlace(vt, idx, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
