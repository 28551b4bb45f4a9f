// Package elaborate composes the full pipeline — lexer through
// interchange emitter — into the single entry
// point external callers use: source in, validated index plus
// canonical interchange bundle out. Lex/parse diagnostics accumulate
// across files; every later pass stops at its first violation.
package elaborate

import (
	"go.uber.org/zap"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/bundle"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/interchange"
	"github.com/tenor-lang/tenor/internal/lexer"
	"github.com/tenor-lang/tenor/internal/parser"
	"github.com/tenor-lang/tenor/internal/typecheck"
	"github.com/tenor-lang/tenor/internal/validate"
)

// Result is a completed elaboration: the validated index (the in-
// process view every evaluator component consumes) plus the canonical
// bundle bytes and their etag (the interchange artifact).
type Result struct {
	Index  *index.Index
	Bundle []byte
	Etag   string
}

// Elaborator runs the full pipeline against a bundle loader.
type Elaborator struct {
	Loader *bundle.Loader

	// BundleID, when empty, is generated fresh per Run.
	BundleID string

	Log *zap.Logger
}

// New returns an Elaborator over loader with no fixed bundle id.
func New(loader *bundle.Loader) *Elaborator {
	return &Elaborator{Loader: loader, Log: zap.NewNop()}
}

// Run elaborates the import graph rooted at rootPath. Parse
// diagnostics, when present, are returned together as the error list;
// a single-error pass failure comes back as a one-element list.
func (e *Elaborator) Run(rootPath string) (*Result, []error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	loaded, err := e.Loader.Load(rootPath)
	if err != nil {
		return nil, []error{err}
	}
	if len(loaded.Errors) > 0 {
		return nil, loaded.Errors
	}
	log.Debug("pass 1 complete", zap.String("root", rootPath), zap.Int("constructs", len(loaded.Constructs)))

	return finish(loaded.Constructs, e.BundleID, log)
}

// Source elaborates a single in-memory source string, with no import
// resolution. A file that declares imports needs a filesystem-rooted
// Elaborator instead.
func Source(src, filename string) (*Result, []error) {
	toks, err := lexer.Lex(src, filename)
	if err != nil {
		return nil, []error{err}
	}
	file, perrs := parser.Parse(toks, filename, 0)
	if len(perrs) > 0 {
		return nil, perrs
	}
	if len(file.Imports) > 0 {
		return nil, []error{errs.Bundle(filename, file.Imports[0].Prov.Line,
			"import %q requires a file-rooted elaborator", file.Imports[0].Path)}
	}
	return finish(file.Constructs, "", zap.NewNop())
}

func finish(constructs []*ast.Construct, bundleID string, log *zap.Logger) (*Result, []error) {
	idx, err := index.Build(constructs)
	if err != nil {
		return nil, []error{err}
	}
	log.Debug("pass 2 complete", zap.Int("verdict_types", len(idx.VerdictRule)))

	if err := typecheck.ResolveTypes(idx); err != nil {
		return nil, []error{err}
	}
	if err := typecheck.CheckAll(idx); err != nil {
		return nil, []error{err}
	}
	log.Debug("passes 3-4 complete")

	if err := validate.Validate(idx); err != nil {
		return nil, []error{err}
	}
	log.Debug("pass 5 complete")

	data, etag, err := interchange.Emit(idx, bundleID)
	if err != nil {
		return nil, []error{err}
	}
	log.Debug("interchange emitted", zap.String("etag", etag), zap.Int("bytes", len(data)))

	return &Result{Index: idx, Bundle: data, Etag: etag}, nil
}
