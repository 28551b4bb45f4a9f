// Package index implements pass 2: it
// walks the flattened construct list once, builds an id -> (kind,
// location) table per kind namespace, rejects duplicate ids within a
// namespace, and builds the satellite indices later passes need
// (states-of-entity, allowed-personas-of-operation, verdict-producing
// rule by verdict type, source-id set). System members are not indexed
// separately; later passes read them from each System construct.
package index

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
)

// Index is the id->construct table plus satellite indices built from
// one flat construct list.
type Index struct {
	Facts      map[string]*ast.Fact
	Entities   map[string]*ast.Entity
	Rules      map[string]*ast.Rule
	Operations map[string]*ast.Operation
	Flows      map[string]*ast.Flow
	Personas   map[string]*ast.Persona
	Systems    map[string]*ast.System
	TypeDecls  map[string]*ast.TypeDecl
	Sources    map[string]*ast.Source

	// VerdictRule maps a verdict-type name to the single rule that
	// produces it. At most one rule may produce a verdict type,
	// enforced as a hard error here, so the S8 analysis is a
	// confirmation stub.
	VerdictRule map[string]*ast.Rule

	// Order preserves the original flattened declaration order, for
	// deterministic iteration in later passes (stable id order within
	// a stratum, canonical emission order, etc).
	Order []*ast.Construct
}

func empty() *Index {
	return &Index{
		Facts:       map[string]*ast.Fact{},
		Entities:    map[string]*ast.Entity{},
		Rules:       map[string]*ast.Rule{},
		Operations:  map[string]*ast.Operation{},
		Flows:       map[string]*ast.Flow{},
		Personas:    map[string]*ast.Persona{},
		Systems:     map[string]*ast.System{},
		TypeDecls:   map[string]*ast.TypeDecl{},
		Sources:     map[string]*ast.Source{},
		VerdictRule: map[string]*ast.Rule{},
	}
}

// Build walks constructs once, failing on the first duplicate id
// within a kind's namespace or the first duplicate verdict-type
// producer.
func Build(constructs []*ast.Construct) (*Index, error) {
	idx := empty()
	idx.Order = constructs

	for _, c := range constructs {
		prov := c.Provenance()
		switch c.Kind {
		case ast.KindFact:
			if _, dup := idx.Facts[c.Fact.ID]; dup {
				return nil, errs.Index(c.Fact.ID, prov.File, prov.Line, "duplicate fact id %q", c.Fact.ID)
			}
			idx.Facts[c.Fact.ID] = c.Fact
		case ast.KindEntity:
			if _, dup := idx.Entities[c.Entity.ID]; dup {
				return nil, errs.Index(c.Entity.ID, prov.File, prov.Line, "duplicate entity id %q", c.Entity.ID)
			}
			idx.Entities[c.Entity.ID] = c.Entity
		case ast.KindRule:
			if _, dup := idx.Rules[c.Rule.ID]; dup {
				return nil, errs.Index(c.Rule.ID, prov.File, prov.Line, "duplicate rule id %q", c.Rule.ID)
			}
			idx.Rules[c.Rule.ID] = c.Rule
			vt := c.Rule.Produce.VerdictType
			if existing, dup := idx.VerdictRule[vt]; dup {
				return nil, errs.Index(c.Rule.ID, prov.File, prov.Line,
					"verdict type %q is already produced by rule %q", vt, existing.ID)
			}
			idx.VerdictRule[vt] = c.Rule
		case ast.KindOperation:
			if _, dup := idx.Operations[c.Operation.ID]; dup {
				return nil, errs.Index(c.Operation.ID, prov.File, prov.Line, "duplicate operation id %q", c.Operation.ID)
			}
			idx.Operations[c.Operation.ID] = c.Operation
		case ast.KindFlow:
			if _, dup := idx.Flows[c.Flow.ID]; dup {
				return nil, errs.Index(c.Flow.ID, prov.File, prov.Line, "duplicate flow id %q", c.Flow.ID)
			}
			idx.Flows[c.Flow.ID] = c.Flow
		case ast.KindPersona:
			if _, dup := idx.Personas[c.Persona.ID]; dup {
				return nil, errs.Index(c.Persona.ID, prov.File, prov.Line, "duplicate persona id %q", c.Persona.ID)
			}
			idx.Personas[c.Persona.ID] = c.Persona
		case ast.KindSystem:
			if _, dup := idx.Systems[c.System.ID]; dup {
				return nil, errs.Index(c.System.ID, prov.File, prov.Line, "duplicate system id %q", c.System.ID)
			}
			idx.Systems[c.System.ID] = c.System
		case ast.KindTypeDecl:
			if _, dup := idx.TypeDecls[c.TypeDecl.ID]; dup {
				return nil, errs.Index(c.TypeDecl.ID, prov.File, prov.Line, "duplicate type id %q", c.TypeDecl.ID)
			}
			idx.TypeDecls[c.TypeDecl.ID] = c.TypeDecl
		case ast.KindSource:
			if _, dup := idx.Sources[c.Source.ID]; dup {
				return nil, errs.Index(c.Source.ID, prov.File, prov.Line, "duplicate source id %q", c.Source.ID)
			}
			idx.Sources[c.Source.ID] = c.Source
		}
	}

	return idx, nil
}

// StatesOf returns an entity's declared state set, nil if unknown.
func (idx *Index) StatesOf(entityID string) []string {
	if e, ok := idx.Entities[entityID]; ok {
		return e.States
	}
	return nil
}

// PersonasOf returns an operation's allowed-personas list, nil if unknown.
func (idx *Index) PersonasOf(opID string) []string {
	if op, ok := idx.Operations[opID]; ok {
		return op.AllowedPersonas
	}
	return nil
}
