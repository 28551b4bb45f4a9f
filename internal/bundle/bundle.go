// Package bundle implements the import loader: it follows `import`
// edges from a root file, resolving
// each path relative to its importing file, canonicalizing and
// deduplicating visited files, detecting cycles, and rejecting imports
// that resolve outside a supplied sandbox root. The output is a single
// flat construct list in deterministic depth-first, children-before-
// siblings order: the root's own constructs first, then each import's
// constructs (and transitively its own imports) in declaration order.
package bundle

import (
	"path/filepath"
	"strings"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/lexer"
	"github.com/tenor-lang/tenor/internal/parser"
)

// FileReader abstracts source retrieval so the loader can be tested
// without touching a real filesystem.
type FileReader func(path string) (string, error)

// Loader resolves import graphs under a fixed sandbox root.
type Loader struct {
	SandboxRoot    string
	MaxParseErrors int
	ReadFile       FileReader
}

// NewLoader returns a Loader rooted at sandboxRoot using a real
// filesystem reader.
func NewLoader(sandboxRoot string, readFile FileReader) *Loader {
	return &Loader{SandboxRoot: canon(sandboxRoot), ReadFile: readFile}
}

// Result is the flattened output of loading one root file's import
// graph, plus every parse diagnostic accumulated across every visited
// file.
type Result struct {
	Constructs []*ast.Construct
	Errors     []error
}

// Load follows rootPath's import graph and returns the flattened
// construct list. A cyclic import graph, or an
// import resolving outside the sandbox root, is a definite bundle
// error returned immediately; only lex/parse diagnostics accumulate.
func (l *Loader) Load(rootPath string) (*Result, error) {
	ld := &loading{
		loader:    l,
		visited:   map[string]bool{},
		inStack:   map[string]bool{},
		stackList: nil,
	}
	if err := ld.process(rootPath); err != nil {
		return nil, err
	}
	return &Result{Constructs: ld.constructs, Errors: ld.parseErrs}, nil
}

type loading struct {
	loader     *Loader
	visited    map[string]bool
	inStack    map[string]bool
	stackList  []string
	constructs []*ast.Construct
	parseErrs  []error
}

func (ld *loading) process(path string) error {
	c := canon(path)
	if !withinSandbox(c, ld.loader.SandboxRoot) {
		return errs.Bundle(path, 0, "import %q resolves outside the sandbox root %q", path, ld.loader.SandboxRoot)
	}
	if ld.inStack[c] {
		return ld.cycleError(c)
	}
	if ld.visited[c] {
		return nil
	}

	ld.inStack[c] = true
	ld.stackList = append(ld.stackList, c)
	defer func() {
		delete(ld.inStack, c)
		ld.stackList = ld.stackList[:len(ld.stackList)-1]
	}()

	src, err := ld.loader.ReadFile(c)
	if err != nil {
		return errs.Bundle(c, 0, "cannot read import %q: %v", c, err)
	}

	toks, err := lexer.Lex(src, c)
	if err != nil {
		return err
	}
	file, perrs := parser.Parse(toks, c, ld.loader.MaxParseErrors)
	ld.parseErrs = append(ld.parseErrs, perrs...)

	ld.constructs = append(ld.constructs, file.Constructs...)
	ld.visited[c] = true

	dir := filepath.Dir(c)
	for _, imp := range file.Imports {
		childPath := imp.Path
		if !filepath.IsAbs(childPath) {
			childPath = filepath.Join(dir, childPath)
		}
		if err := ld.process(childPath); err != nil {
			return err
		}
	}
	return nil
}

func (ld *loading) cycleError(c string) error {
	idx := 0
	for i, p := range ld.stackList {
		if p == c {
			idx = i
			break
		}
	}
	cycle := append(append([]string{}, ld.stackList[idx:]...), c)
	return errs.Bundle(c, 0, "cyclic import: %s", strings.Join(cycle, " -> "))
}

func canon(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

func withinSandbox(path, sandboxRoot string) bool {
	if sandboxRoot == "" {
		return true
	}
	rel, err := filepath.Rel(sandboxRoot, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
