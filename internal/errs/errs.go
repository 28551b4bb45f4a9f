// Package errs defines the pass-tagged diagnostic type shared by every
// stage of the elaboration and evaluation pipeline.
package errs

import "fmt"

// Pass identifies which stage of the pipeline raised a Diagnostic.
type Pass string

const (
	PassLex      Pass = "lex"
	PassParse    Pass = "parse"
	PassBundle   Pass = "bundle"
	PassIndex    Pass = "index"
	PassType     Pass = "type"
	PassValidate Pass = "validate"
	PassEval     Pass = "eval"
	PassStorage  Pass = "storage"
)

// Diagnostic is the single error shape produced by every pass. Lex and
// parse passes accumulate these (up to a cap) before returning; every
// other pass surfaces the first one it encounters.
type Diagnostic struct {
	Pass    Pass
	Kind    string
	ID      string
	Field   string
	File    string
	Line    uint32
	Message string
}

func (d *Diagnostic) Error() string {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", d.Pass, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Pass, loc, d.Message)
}

func new(pass Pass, file string, line uint32, msg string) *Diagnostic {
	return &Diagnostic{Pass: pass, File: file, Line: line, Message: msg}
}

func Lex(file string, line uint32, format string, args ...interface{}) *Diagnostic {
	return new(PassLex, file, line, fmt.Sprintf(format, args...))
}

func Parse(file string, line uint32, format string, args ...interface{}) *Diagnostic {
	return new(PassParse, file, line, fmt.Sprintf(format, args...))
}

func Bundle(file string, line uint32, format string, args ...interface{}) *Diagnostic {
	return new(PassBundle, file, line, fmt.Sprintf(format, args...))
}

func Index(id, file string, line uint32, format string, args ...interface{}) *Diagnostic {
	d := new(PassIndex, file, line, fmt.Sprintf(format, args...))
	d.ID = id
	return d
}

func Type(id, field, file string, line uint32, format string, args ...interface{}) *Diagnostic {
	d := new(PassType, file, line, fmt.Sprintf(format, args...))
	d.ID = id
	d.Field = field
	return d
}

func Validate(kind, id, field, file string, line uint32, format string, args ...interface{}) *Diagnostic {
	d := new(PassValidate, file, line, fmt.Sprintf(format, args...))
	d.Kind = kind
	d.ID = id
	d.Field = field
	return d
}

func Eval(kind string, format string, args ...interface{}) *Diagnostic {
	d := new(PassEval, "", 0, fmt.Sprintf(format, args...))
	d.Kind = kind
	return d
}

func Storage(kind string, format string, args ...interface{}) *Diagnostic {
	d := new(PassStorage, "", 0, fmt.Sprintf(format, args...))
	d.Kind = kind
	return d
}
