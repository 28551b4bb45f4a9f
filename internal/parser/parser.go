// Package parser builds a raw ast.File from a lexer token stream
// It is a recursive-descent parser over
// the nine construct kinds with multi-error recovery at construct
// boundaries: on error it skips tokens until the matching closing brace
// at the current depth or the next top-level construct keyword, then
// resumes, collecting up to DefaultMaxErrors diagnostics before giving
// up (grounded on the lexer's own error-construction style in
// internal/lexer/lexer.go).
package parser

import (
	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/errs"
	"github.com/tenor-lang/tenor/internal/lexer"
)

// DefaultMaxErrors bounds how many parse diagnostics accumulate before
// Parse stops attempting recovery.
const DefaultMaxErrors = 10

var topLevelKeywords = map[string]bool{
	"fact": true, "entity": true, "rule": true, "operation": true,
	"flow": true, "type": true, "persona": true, "system": true,
	"import": true, "source": true,
}

type parser struct {
	toks      []lexer.Spanned
	pos       int
	filename  string
	maxErrors int
	errs      []error
}

// Parse tokenizes is assumed already done; Parse consumes toks (as
// produced by lexer.Lex) and returns the raw construct list for one
// file, plus any accumulated parse diagnostics. Parse never returns a
// nil File on error: partial recovery keeps whatever constructs parsed
// cleanly.
func Parse(toks []lexer.Spanned, filename string, maxErrors int) (*ast.File, []error) {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	p := &parser{toks: toks, filename: filename, maxErrors: maxErrors}
	f := &ast.File{Filename: filename}

	for !p.atEOF() {
		if p.peekIsEOF() {
			break
		}
		word, ok := p.peekWord()
		if !ok || !topLevelKeywords[word] {
			p.fail(p.line(), "expected a top-level construct keyword, found %v", p.cur().Token.Kind)
			p.recover()
			if len(p.errs) >= p.maxErrors {
				break
			}
			continue
		}

		switch word {
		case "import":
			imp, err := p.parseImport()
			if err != nil {
				p.fail2(err)
				p.recover()
			} else {
				f.Imports = append(f.Imports, *imp)
			}
		case "system":
			f.HasSystem = true
			c, err := p.parseConstruct(word)
			if err != nil {
				p.fail2(err)
				p.recover()
			} else {
				f.Constructs = append(f.Constructs, c)
			}
		default:
			c, err := p.parseConstruct(word)
			if err != nil {
				p.fail2(err)
				p.recover()
			} else {
				f.Constructs = append(f.Constructs, c)
			}
		}

		if len(p.errs) >= p.maxErrors {
			break
		}
	}

	if f.HasSystem {
		for _, c := range f.Constructs {
			if c.Kind != ast.KindSystem {
				p.errs = append(p.errs, errs.Parse(filename, 0,
					"a file declaring system may contain only system and import constructs"))
				break
			}
		}
	}

	return f, p.errs
}

func (p *parser) parseConstruct(keyword string) (*ast.Construct, error) {
	switch keyword {
	case "fact":
		return p.parseFact()
	case "entity":
		return p.parseEntity()
	case "rule":
		return p.parseRule()
	case "operation":
		return p.parseOperation()
	case "flow":
		return p.parseFlow()
	case "type":
		return p.parseTypeDecl()
	case "persona":
		return p.parsePersona()
	case "system":
		return p.parseSystem()
	case "source":
		return p.parseSource()
	default:
		return nil, errs.Parse(p.filename, p.line(), "unknown construct keyword %q", keyword)
	}
}

func (p *parser) parseImport() (*ast.Import, error) {
	ln := p.line()
	p.advance() // "import"
	if p.cur().Token.Kind != lexer.Str {
		return nil, errs.Parse(p.filename, ln, "import: expected string path")
	}
	path := p.cur().Token.StrVal
	p.advance()
	return &ast.Import{Path: path, Prov: ast.Provenance{File: p.filename, Line: ln}}, nil
}

func (p *parser) parsePersona() (*ast.Construct, error) {
	ln := p.line()
	p.advance() // "persona"
	id, err := p.expectWord()
	if err != nil {
		return nil, err
	}
	// A persona has no fields; an empty `{ }` body is accepted but optional.
	if p.cur().Token.Kind == lexer.LBrace {
		p.advance()
		if err := p.expect(lexer.RBrace); err != nil {
			return nil, err
		}
	}
	per := &ast.Persona{ID: id, Prov: ast.Provenance{File: p.filename, Line: ln}}
	return &ast.Construct{Kind: ast.KindPersona, Persona: per}, nil
}

// --- shared low-level helpers ---

func (p *parser) cur() lexer.Spanned {
	if p.pos >= len(p.toks) {
		return lexer.Spanned{Token: lexer.Token{Kind: lexer.Eof}}
	}
	return p.toks[p.pos]
}

func (p *parser) peek(off int) lexer.Spanned {
	i := p.pos + off
	if i >= len(p.toks) {
		return lexer.Spanned{Token: lexer.Token{Kind: lexer.Eof}}
	}
	return p.toks[i]
}

func (p *parser) advance() lexer.Spanned {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool { return p.cur().Token.Kind == lexer.Eof }
func (p *parser) peekIsEOF() bool { return p.cur().Token.Kind == lexer.Eof }
func (p *parser) line() uint32 { return p.cur().Line }

func (p *parser) peekWord() (string, bool) {
	t := p.cur().Token
	if t.Kind != lexer.Word {
		return "", false
	}
	return t.WordVal, true
}

func (p *parser) expectWord() (string, error) {
	if p.cur().Token.Kind != lexer.Word {
		return "", errs.Parse(p.filename, p.line(), "expected identifier, found %v", p.cur().Token.Kind)
	}
	w := p.cur().Token.WordVal
	p.advance()
	return w, nil
}

func (p *parser) expect(k lexer.Kind) error {
	if p.cur().Token.Kind != k {
		return errs.Parse(p.filename, p.line(), "expected %v, found %v", k, p.cur().Token.Kind)
	}
	p.advance()
	return nil
}

func (p *parser) fail(line uint32, format string, args ...interface{}) {
	p.errs = append(p.errs, errs.Parse(p.filename, line, format, args...))
}

func (p *parser) fail2(err error) {
	p.errs = append(p.errs, err)
}

// recover implements construct-boundary recovery: skip to the matching closing brace at depth 0, or the
// next top-level keyword, whichever comes first. It never consumes the
// following keyword.
func (p *parser) recover() {
	depth := 0
	for !p.atEOF() {
		t := p.cur().Token
		if depth == 0 {
			if t.Kind == lexer.Word && topLevelKeywords[t.WordVal] {
				return
			}
		}
		switch t.Kind {
		case lexer.LBrace:
			depth++
		case lexer.RBrace:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}
