// Package ast defines the raw construct tree produced by the parser
// and consumed by the bundle loader, indexer, type
// resolver, and structural validator (components C-F). It carries no
// behavior of its own: every later pass narrows or annotates this tree
// rather than replacing it, so provenance survives end to end into the
// interchange emitter.
package ast

import "github.com/tenor-lang/tenor/internal/values"

// Provenance records where a construct or sub-term came from in source,
// carried through every pass into the interchange bundle.
type Provenance struct {
	File string
	Line uint32
}

// ConstructKind is the closed enumeration of top-level construct kinds.
type ConstructKind string

const (
	KindFact      ConstructKind = "Fact"
	KindEntity    ConstructKind = "Entity"
	KindRule      ConstructKind = "Rule"
	KindOperation ConstructKind = "Operation"
	KindFlow      ConstructKind = "Flow"
	KindPersona   ConstructKind = "Persona"
	KindSystem    ConstructKind = "System"
	KindTypeDecl  ConstructKind = "TypeDecl"
	KindSource    ConstructKind = "Source"
)

// Construct is a tagged union over the nine construct kinds. Exactly one
// of the pointer fields is non-nil, selected by Kind.
type Construct struct {
	Kind ConstructKind

	Fact      *Fact
	Entity    *Entity
	Rule      *Rule
	Operation *Operation
	Flow      *Flow
	Persona   *Persona
	System    *System
	TypeDecl  *TypeDecl
	Source    *Source
}

// ID returns the identifier of the wrapped construct.
func (c *Construct) ID() string {
	switch c.Kind {
	case KindFact:
		return c.Fact.ID
	case KindEntity:
		return c.Entity.ID
	case KindRule:
		return c.Rule.ID
	case KindOperation:
		return c.Operation.ID
	case KindFlow:
		return c.Flow.ID
	case KindPersona:
		return c.Persona.ID
	case KindSystem:
		return c.System.ID
	case KindTypeDecl:
		return c.TypeDecl.ID
	case KindSource:
		return c.Source.ID
	default:
		return ""
	}
}

// Provenance returns the wrapped construct's source location.
func (c *Construct) Provenance() Provenance {
	switch c.Kind {
	case KindFact:
		return c.Fact.Prov
	case KindEntity:
		return c.Entity.Prov
	case KindRule:
		return c.Rule.Prov
	case KindOperation:
		return c.Operation.Prov
	case KindFlow:
		return c.Flow.Prov
	case KindPersona:
		return c.Persona.Prov
	case KindSystem:
		return c.System.Prov
	case KindTypeDecl:
		return c.TypeDecl.Prov
	case KindSource:
		return c.Source.Prov
	default:
		return Provenance{}
	}
}

// Import is a parsed `import "path"` edge (pass 1 input).
type Import struct {
	Path string
	Prov Provenance
}

// File is the direct output of parsing one source file: zero or more
// imports plus the constructs it declares directly. A file declaring
// `system` may declare only `system` plus imports.
type File struct {
	Filename   string
	Imports    []Import
	Constructs []*Construct
	HasSystem  bool
}

// Persona has no body beyond its id.
type Persona struct {
	ID   string
	Prov Provenance
}

// TypeDecl names a Record or TaggedUnion body for reference by TypeRef.
type TypeDecl struct {
	ID   string
	Prov Provenance
	Type *values.Type
}

// Source declares a fact-source's infrastructure metadata; it is opaque
// to the core beyond its protocol tag.
type Source struct {
	ID       string
	Prov     Provenance
	Protocol string
	Fields   map[string]string
}
