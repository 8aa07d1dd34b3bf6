// macro.go implements the macro table: definition, removal, lookup, and
// the built-in callback macros.
package cpp

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// BuiltinFunc produces the replacement tokens of a built-in macro at
// expansion time.
type BuiltinFunc func() []Token

// Macro is a single preprocessor macro.
//
// Params distinguishes the three definition shapes: nil for an object-like
// macro, an empty slice for NAME(), a non-empty slice for NAME(a, b).
type Macro struct {
	Name        string
	Replacement []Token
	Params      []string
	IsVariadic  bool
	Builtin     BuiltinFunc
}

// IsFunctionLike reports whether the macro was defined with parentheses.
func (m *Macro) IsFunctionLike() bool {
	return m.Params != nil
}

// MacroTable maps macro names to their definitions for one translation
// unit.
type MacroTable struct {
	macros map[string]*Macro
	diag   io.Writer
}

// NewMacroTable creates an empty macro table. Redefinition warnings are
// written to diag.
func NewMacroTable(diag io.Writer) *MacroTable {
	return &MacroTable{
		macros: make(map[string]*Macro),
		diag:   diag,
	}
}

// Define inserts or replaces a macro. C99 permits only identical
// redefinitions; replacing an existing definition warns and proceeds.
func (t *MacroTable) Define(m *Macro) {
	if _, ok := t.macros[m.Name]; ok {
		fmt.Fprintf(t.diag, "cpre: warning: %q redefined\n", m.Name)
	}
	t.macros[m.Name] = m
}

// DefineText defines a macro whose replacement is given as source text.
func (t *MacroTable) DefineText(name, replacement string) error {
	lex := NewLexer(replacement, t.diag)
	tokens, err := lex.Tokenize()
	if err != nil {
		return err
	}
	tokens = dropNewlines(tokens)
	t.Define(&Macro{Name: name, Replacement: tokens})
	return nil
}

// DefineBuiltin registers a callback macro. The callback supplies the
// replacement at each expansion, so __FILE__ and __LINE__ stay fresh.
func (t *MacroTable) DefineBuiltin(name string, fn BuiltinFunc) {
	t.macros[name] = &Macro{Name: name, Builtin: fn}
}

// Undefine removes a macro; removing an unknown name is a no-op.
func (t *MacroTable) Undefine(name string) {
	delete(t.macros, name)
}

// Lookup returns the macro named name, or nil.
func (t *MacroTable) Lookup(name string) *Macro {
	return t.macros[name]
}

// IsDefined reports whether name is a key in the table, without expanding.
func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Len returns the number of defined macros.
func (t *MacroTable) Len() int {
	return len(t.macros)
}

// ApplyCmdlineDefines applies -D and -U style definitions in order:
// defines first, then undefines. A define of the form NAME=value uses
// value as the replacement; bare NAME defines it as 1.
func (t *MacroTable) ApplyCmdlineDefines(defines, undefines []string) error {
	for _, d := range defines {
		name, value, found := strings.Cut(d, "=")
		if !found {
			value = "1"
		}
		if err := t.DefineText(name, value); err != nil {
			return fmt.Errorf("-D %s: %w", d, err)
		}
	}
	for _, u := range undefines {
		t.Undefine(u)
	}
	return nil
}

// dateTokens and timeTokens follow the strftime layouts "%b %d %Y" and
// "%H:%M:%S" used for __DATE__ and __TIME__.
func dateTokens() []Token {
	return []Token{{Kind: PP_STRING, Text: `"` + time.Now().Format("Jan 02 2006") + `"`}}
}

func timeTokens() []Token {
	return []Token{{Kind: PP_STRING, Text: `"` + time.Now().Format("15:04:05") + `"`}}
}

func dropNewlines(tokens []Token) []Token {
	var out []Token
	for _, tok := range tokens {
		if tok.Kind != PP_NEWLINE {
			out = append(out, tok)
		}
	}
	return out
}
