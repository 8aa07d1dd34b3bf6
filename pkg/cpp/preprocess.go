// preprocess.go implements the preprocessor facade: it owns the macro
// table, include resolver, and expander, and drives the translation
// phases for a file.
package cpp

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options configures a Preprocessor.
type Options struct {
	// StdlibPaths is the ordered list of directories searched for <...>
	// headers and as a fallback for "..." headers. Empty defaults to
	// ["stdlib/"].
	StdlibPaths []string
	// KeepComments leaves comment text in the buffer instead of
	// replacing each comment with a space.
	KeepComments bool
	// Debug traces grammar-rule reductions to the diagnostics writer.
	Debug bool
	// Defines and Undefines are applied at construction, in -D/-U style.
	Defines   []string
	Undefines []string
	// Diagnostics receives warnings and lexical diagnostics. Defaults to
	// os.Stderr.
	Diagnostics io.Writer
}

// Preprocessor executes the C99 translation phases that precede proper
// compilation for one translation unit at a time.
type Preprocessor struct {
	opts     Options
	diag     io.Writer
	macros   *MacroTable
	expander *Expander
	resolver *IncludeResolver

	currentFile string
	currentLine int
}

// NewPreprocessor creates a preprocessor and registers the built-in
// macros.
func NewPreprocessor(opts Options) (*Preprocessor, error) {
	diag := opts.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}

	macros := NewMacroTable(diag)
	pp := &Preprocessor{
		opts:     opts,
		diag:     diag,
		macros:   macros,
		expander: NewExpander(macros),
		resolver: NewIncludeResolver(opts.StdlibPaths),
	}

	// __FILE__ and __LINE__ read the live engine state at each
	// expansion rather than the values at construction.
	macros.DefineBuiltin("__DATE__", dateTokens)
	macros.DefineBuiltin("__TIME__", timeTokens)
	macros.DefineBuiltin("__FILE__", func() []Token {
		return []Token{{Kind: PP_STRING, Text: strconv.Quote(pp.currentFile), Line: pp.currentLine}}
	})
	macros.DefineBuiltin("__LINE__", func() []Token {
		return []Token{{
			Kind:  PP_CONSTANT,
			Text:  strconv.Itoa(pp.currentLine),
			Value: int64(pp.currentLine),
			Line:  pp.currentLine,
		}}
	})

	if err := macros.ApplyCmdlineDefines(opts.Defines, opts.Undefines); err != nil {
		return nil, err
	}
	return pp, nil
}

// Macros exposes the macro table for inspection.
func (pp *Preprocessor) Macros() *MacroTable {
	return pp.macros
}

// Process preprocesses the file at path and returns the resulting text.
func (pp *Preprocessor) Process(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := pp.resolver.Push(path); err != nil {
		return "", err
	}
	defer pp.resolver.Pop()

	pp.currentFile = path
	out, err := pp.processBuffer(string(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// ProcessString preprocesses source text under the given name.
func (pp *Preprocessor) ProcessString(src, name string) (string, error) {
	pp.currentFile = name
	out, err := pp.processBuffer(src)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (pp *Preprocessor) processBuffer(src string) (string, error) {
	return pp.parseBuffer(PhaseFilter(src, pp.opts.KeepComments))
}

// parseBuffer runs the directive parser over an already-filtered buffer.
// Recursive parses (selected conditional branches, included headers) come
// back through here with their own lexer state.
func (pp *Preprocessor) parseBuffer(src string) (string, error) {
	return newParser(pp, src).run()
}

// DefineMacro registers an object-like macro from replacement text.
func (pp *Preprocessor) DefineMacro(name, replacement string) error {
	return pp.macros.DefineText(name, replacement)
}

// DefineFunctionMacro registers a function-like macro from replacement
// text. An empty params slice defines NAME().
func (pp *Preprocessor) DefineFunctionMacro(name, replacement string, params []string, variadic bool) error {
	lex := NewLexer(replacement, pp.diag)
	tokens, err := lex.Tokenize()
	if err != nil {
		return err
	}
	if params == nil {
		params = []string{}
	}
	pp.macros.Define(&Macro{
		Name:        name,
		Replacement: dropNewlines(tokens),
		Params:      params,
		IsVariadic:  variadic,
	})
	return nil
}

// UndefMacro removes a macro; unknown names are ignored.
func (pp *Preprocessor) UndefMacro(name string) {
	pp.macros.Undefine(name)
}

// ExpandMacro expands a macro by name with optional textual arguments and
// returns the replacement text. A nil args on a function-like macro and
// any args on a callback macro are errors.
func (pp *Preprocessor) ExpandMacro(name string, args []string) (string, error) {
	m := pp.macros.Lookup(name)
	if m == nil {
		return "", &MacroError{Name: name, Reason: "not defined"}
	}

	if m.Builtin != nil {
		if len(args) > 0 {
			return "", &MacroError{Name: name, Reason: "callback macro can't be called with a user argument list"}
		}
		return spliceTokens(m.Builtin()), nil
	}

	if m.IsFunctionLike() && args == nil {
		return "", &MacroError{Name: name, Reason: "function-like macro needs an argument list"}
	}
	if !m.IsFunctionLike() && len(args) > 0 {
		return "", &MacroError{Name: name, Reason: "object-like macro takes no arguments"}
	}

	invocation := []Token{{Kind: PP_IDENTIFIER, Text: name}}
	if m.IsFunctionLike() {
		invocation = append(invocation, Token{Kind: PP_LPAREN, Text: "("})
		for i, arg := range args {
			if i > 0 {
				invocation = append(invocation, Token{Kind: PP_LITERAL, Text: ","})
			}
			lex := NewLexer(arg, pp.diag)
			tokens, err := lex.Tokenize()
			if err != nil {
				return "", err
			}
			invocation = append(invocation, dropNewlines(tokens)...)
		}
		invocation = append(invocation, Token{Kind: PP_LITERAL, Text: ")"})
	}

	expanded, err := pp.expander.Expand(invocation)
	if err != nil {
		return "", err
	}
	return spliceTokens(expanded), nil
}

// Include resolves a header name (with its <> or "" delimiters), runs the
// preprocessor over the file, and returns its text. Results are memoized
// per spelled name so a header is read at most once per translation unit.
func (pp *Preprocessor) Include(headerName string) (string, error) {
	if len(headerName) < 2 {
		return "", fmt.Errorf("malformed header name %q", headerName)
	}
	headerPath := headerName[1 : len(headerName)-1]

	if text, ok := pp.resolver.Cached(headerPath); ok {
		return text, nil
	}

	kind := IncludeAngled
	if headerName[0] == '"' {
		kind = IncludeQuoted
	}

	path, err := pp.resolver.Resolve(headerPath, kind, pp.currentFile)
	if err != nil {
		return "", err
	}

	if pp.resolver.IsOnced(path) {
		return "", nil
	}

	saved := pp.currentFile
	content, err := pp.Process(path)
	pp.currentFile = saved
	if err != nil {
		return "", err
	}

	// The trailing newline keeps the include from fusing with the line
	// that follows it in the outer buffer.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	pp.resolver.StoreCached(headerPath, content)
	return content, nil
}

// pragmaDirective is the execution hook for #pragma and _Pragma. Only
// "once" has behavior; everything else is accepted and dropped.
func (pp *Preprocessor) pragmaDirective(tokens []Token) {
	if len(tokens) == 0 {
		return
	}
	text := tokens[0].Text
	if text == "once" || text == `"once"` {
		pp.resolver.MarkOnce(pp.currentFile)
	}
}

// lineDirective is the execution hook for #line. Line tracking stays with
// the lexer; the directive is accepted and dropped.
func (pp *Preprocessor) lineDirective(tokens []Token) {
	_ = tokens
}

func (pp *Preprocessor) trace(rule string) {
	if pp.opts.Debug {
		fmt.Fprintf(pp.diag, "cpre: %s:%d: reduce %s\n", pp.currentFile, pp.currentLine, rule)
	}
}
