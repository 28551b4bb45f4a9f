// Package lexer tokenizes Tenor source text into a flat, line-tracked
// token stream.
package lexer

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/errs"
)

// Kind is the closed set of lexical token kinds.
type Kind string

const (
	Word    Kind = "word"
	Str     Kind = "str"
	Int     Kind = "int"
	Float   Kind = "float" // decimal literal, kept as its source string
	LBrace  Kind = "lbrace"
	RBrace  Kind = "rbrace"
	LBracket Kind = "lbracket"
	RBracket Kind = "rbracket"
	LParen  Kind = "lparen"
	RParen  Kind = "rparen"
	Colon   Kind = "colon"
	Comma   Kind = "comma"
	Dot     Kind = "dot"
	Eq      Kind = "eq"
	Neq     Kind = "neq"
	Lt      Kind = "lt"
	Lte     Kind = "lte"
	Gt      Kind = "gt"
	Gte     Kind = "gte"
	Star    Kind = "star"
	And     Kind = "and"
	Or      Kind = "or"
	Not     Kind = "not"
	Forall  Kind = "forall"
	Exists  Kind = "exists"
	In      Kind = "in"
	Eof     Kind = "eof"
)

// Token is a single lexical unit. WordVal/StrVal hold the decoded text
// for Word/Str; IntVal holds the parsed integer; FloatVal holds the
// decimal literal exactly as it appeared in source (never parsed as a
// float) so the parser can hand it to values.ParseDecimal unchanged.
type Token struct {
	Kind     Kind
	WordVal  string
	StrVal   string
	IntVal   int64
	FloatVal string
}

// Spanned pairs a Token with its 1-based source line.
type Spanned struct {
	Token Token
	Line  uint32
}

// Lex tokenizes src, which came from filename (used only for error
// messages). It returns the full token stream including a trailing Eof,
// or the first lexical error encountered.
func Lex(src string, filename string) ([]Spanned, error) {
	runes := []rune(src)
	var tokens []Spanned
	pos := 0
	line := uint32(1)
	n := len(runes)

	push := func(k Kind, ln uint32) {
		tokens = append(tokens, Spanned{Token: Token{Kind: k}, Line: ln})
	}

	for pos < n {
		c := runes[pos]

		// Line comment.
		if c == '/' && pos+1 < n && runes[pos+1] == '/' {
			for pos < n && runes[pos] != '\n' {
				pos++
			}
			continue
		}

		// Block comment.
		if c == '/' && pos+1 < n && runes[pos+1] == '*' {
			pos += 2
			for {
				if pos >= n {
					return nil, errs.Lex(filename, line, "unterminated block comment")
				}
				if runes[pos] == '\n' {
					line++
				}
				if runes[pos] == '*' && pos+1 < n && runes[pos+1] == '/' {
					pos += 2
					break
				}
				pos++
			}
			continue
		}

		// Whitespace.
		if isSpace(c) {
			if c == '\n' {
				line++
			}
			pos++
			continue
		}

		tokLine := line

		// String literal.
		if c == '"' {
			pos++
			var sb []rune
			for {
				if pos >= n {
					return nil, errs.Lex(filename, tokLine, "unterminated string literal")
				}
				sc := runes[pos]
				if sc == '"' {
					pos++
					break
				}
				if sc == '\\' {
					pos++
					if pos >= n {
						return nil, errs.Lex(filename, tokLine, "unterminated escape in string")
					}
					switch runes[pos] {
					case '"':
						sb = append(sb, '"')
					case '\\':
						sb = append(sb, '\\')
					case 'n':
						sb = append(sb, '\n')
					case 't':
						sb = append(sb, '\t')
					default:
						sb = append(sb, '\\', runes[pos])
					}
					pos++
					continue
				}
				if sc == '\n' {
					return nil, errs.Lex(filename, tokLine, "unterminated string literal")
				}
				sb = append(sb, sc)
				pos++
			}
			tokens = append(tokens, Spanned{Token: Token{Kind: Str, StrVal: string(sb)}, Line: tokLine})
			continue
		}

		// Number (integer or decimal; a leading '-' only starts a number
		// when immediately followed by a digit).
		if isDigit(c) || (c == '-' && pos+1 < n && isDigit(runes[pos+1])) {
			start := pos
			if c == '-' {
				pos++
			}
			for pos < n && isDigit(runes[pos]) {
				pos++
			}
			if pos < n && runes[pos] == '.' && pos+1 < n && isDigit(runes[pos+1]) {
				pos++
				for pos < n && isDigit(runes[pos]) {
					pos++
				}
				s := string(runes[start:pos])
				tokens = append(tokens, Spanned{Token: Token{Kind: Float, FloatVal: s}, Line: tokLine})
			} else {
				s := string(runes[start:pos])
				var iv int64
				if _, err := fmt.Sscanf(s, "%d", &iv); err != nil {
					return nil, errs.Lex(filename, tokLine, "invalid integer %q", s)
				}
				tokens = append(tokens, Spanned{Token: Token{Kind: Int, IntVal: iv}, Line: tokLine})
			}
			continue
		}

		switch c {
		case '=':
			push(Eq, tokLine)
			pos++
			continue
		case '<':
			if pos+1 < n && runes[pos+1] == '=' {
				push(Lte, tokLine)
				pos += 2
			} else {
				push(Lt, tokLine)
				pos++
			}
			continue
		case '>':
			if pos+1 < n && runes[pos+1] == '=' {
				push(Gte, tokLine)
				pos += 2
			} else {
				push(Gt, tokLine)
				pos++
			}
			continue
		case '-':
			// ASCII spelling of the arrow sugar; a '-' starting a
			// number was consumed above.
			if pos+1 < n && runes[pos+1] == '>' {
				push(Gt, tokLine)
				pos += 2
				continue
			}
			return nil, errs.Lex(filename, tokLine, "unexpected character %q", c)
		case '!':
			if pos+1 < n && runes[pos+1] == '=' {
				push(Neq, tokLine)
				pos += 2
				continue
			}
			return nil, errs.Lex(filename, tokLine, "unexpected character %q", c)
		case '*':
			push(Star, tokLine)
			pos++
			continue
		case '{':
			push(LBrace, tokLine)
			pos++
			continue
		case '}':
			push(RBrace, tokLine)
			pos++
			continue
		case '[':
			push(LBracket, tokLine)
			pos++
			continue
		case ']':
			push(RBracket, tokLine)
			pos++
			continue
		case '(':
			push(LParen, tokLine)
			pos++
			continue
		case ')':
			push(RParen, tokLine)
			pos++
			continue
		case ':':
			push(Colon, tokLine)
			pos++
			continue
		case ',':
			push(Comma, tokLine)
			pos++
			continue
		case '.':
			push(Dot, tokLine)
			pos++
			continue
		}

		// Unicode logical operators, and the arrow sugar which lexes as
		// the same token as ASCII '>'.
		switch c {
		case '∀':
			push(Forall, tokLine)
			pos++
			continue
		case '∃':
			push(Exists, tokLine)
			pos++
			continue
		case '∈':
			push(In, tokLine)
			pos++
			continue
		case '∧':
			push(And, tokLine)
			pos++
			continue
		case '∨':
			push(Or, tokLine)
			pos++
			continue
		case '¬':
			push(Not, tokLine)
			pos++
			continue
		case '→':
			push(Gt, tokLine)
			pos++
			continue
		}

		if isAlpha(c) || c == '_' {
			start := pos
			for pos < n && (isAlnum(runes[pos]) || runes[pos] == '_') {
				pos++
			}
			word := string(runes[start:pos])
			tokens = append(tokens, Spanned{Token: Token{Kind: Word, WordVal: word}, Line: tokLine})
			continue
		}

		return nil, errs.Lex(filename, tokLine, "unexpected character %q", c)
	}

	tokens = append(tokens, Spanned{Token: Token{Kind: Eof}, Line: line})
	return tokens, nil
}

func isSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c > 127 && isUnicodeLetter(c)
}

func isAlnum(c rune) bool { return isAlpha(c) || isDigit(c) }

// isUnicodeLetter is a minimal fallback for non-ASCII identifier
// characters; Tenor source is expected to be ASCII-identifier in
// practice but the original lexer uses Rust's char::is_alphabetic,
// which is Unicode-aware.
func isUnicodeLetter(c rune) bool {
	return c >= 0x00C0
}
