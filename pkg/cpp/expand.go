// expand.go implements macro expansion: token-level argument substitution,
// stringification, token pasting, and re-scan with a hide-set.
package cpp

import (
	"fmt"
	"io"
	"strings"
)

// MacroError reports a failed macro operation.
type MacroError struct {
	Name   string
	Reason string
}

func (e *MacroError) Error() string {
	return fmt.Sprintf("macro %s: %s", e.Name, e.Reason)
}

// Expander rewrites identifier tokens through the macro table. Names on
// the hide-set are skipped while their own expansion is in flight, which
// stops recursive definitions from looping.
type Expander struct {
	macros  *MacroTable
	hideset map[string]bool
}

// NewExpander creates an expander over macros.
func NewExpander(macros *MacroTable) *Expander {
	return &Expander{
		macros:  macros,
		hideset: make(map[string]bool),
	}
}

// Expand expands every macro in the token stream.
func (e *Expander) Expand(tokens []Token) ([]Token, error) {
	return e.expandTokens(tokens)
}

func (e *Expander) expandTokens(tokens []Token) ([]Token, error) {
	var result []Token
	i := 0

	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind != PP_IDENTIFIER {
			result = append(result, tok)
			i++
			continue
		}

		macro := e.macros.Lookup(tok.Text)
		if macro == nil || e.hideset[tok.Text] {
			result = append(result, tok)
			i++
			continue
		}

		if macro.Builtin != nil {
			result = append(result, macro.Builtin()...)
			i++
			continue
		}

		if macro.IsFunctionLike() {
			if i+1 >= len(tokens) || !isOpenParen(tokens[i+1]) {
				// No '(' follows, so this is not an invocation.
				result = append(result, tok)
				i++
				continue
			}
			args, endIdx, err := parseArguments(tokens, i+1)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", tok.Line, err)
			}
			if err := validateArgCount(macro, args); err != nil {
				return nil, fmt.Errorf("line %d: %w", tok.Line, err)
			}
			expanded, err := e.expandFunctionMacro(macro, args, tok.Line)
			if err != nil {
				return nil, err
			}
			result = append(result, expanded...)
			i = endIdx + 1
			continue
		}

		expanded, err := e.expandObjectMacro(macro, tok.Line)
		if err != nil {
			return nil, err
		}
		result = append(result, expanded...)
		i++
	}

	return result, nil
}

func (e *Expander) expandObjectMacro(macro *Macro, line int) ([]Token, error) {
	e.hideset[macro.Name] = true
	defer delete(e.hideset, macro.Name)

	replacement := relocate(macro.Replacement, line)

	replacement, err := e.pasteTokens(replacement)
	if err != nil {
		return nil, &MacroError{Name: macro.Name, Reason: err.Error()}
	}

	return e.expandTokens(replacement)
}

func (e *Expander) expandFunctionMacro(macro *Macro, args [][]Token, line int) ([]Token, error) {
	e.hideset[macro.Name] = true
	defer delete(e.hideset, macro.Name)

	paramMap := make(map[string][]Token)
	for i, param := range macro.Params {
		if i < len(args) {
			paramMap[param] = args[i]
		} else {
			paramMap[param] = nil
		}
	}
	if macro.IsVariadic {
		paramMap["__VA_ARGS__"] = buildVAArgs(args, len(macro.Params))
	}

	var result []Token
	replacement := macro.Replacement
	i := 0

	for i < len(replacement) {
		tok := replacement[i]

		// Stringification: '#' followed by a parameter, or the fused
		// '#param' spelling the lexer produces for an unrecognized
		// directive token.
		if tok.Kind == PP_LITERAL && tok.Text == "#" && i+1 < len(replacement) {
			next := replacement[i+1]
			if next.Kind == PP_IDENTIFIER {
				if argTokens, ok := paramMap[next.Text]; ok {
					result = append(result, stringify(argTokens, line))
					i += 2
					continue
				}
			}
		}
		if tok.Kind == PP_DIRECTIVE {
			if argTokens, ok := paramMap[tok.Text[1:]]; ok {
				result = append(result, stringify(argTokens, line))
				i++
				continue
			}
		}

		if tok.Kind == PP_IDENTIFIER {
			if argTokens, ok := paramMap[tok.Text]; ok {
				adjacentPaste := (i > 0 && replacement[i-1].Kind == PP_HASH_HASH) ||
					(i+1 < len(replacement) && replacement[i+1].Kind == PP_HASH_HASH)
				if adjacentPaste {
					// Paste operands are substituted unexpanded.
					result = append(result, relocate(argTokens, line)...)
				} else {
					expanded, err := e.expandTokens(argTokens)
					if err != nil {
						return nil, err
					}
					result = append(result, relocate(expanded, line)...)
				}
				i++
				continue
			}
		}

		result = append(result, relocate([]Token{tok}, line)...)
		i++
	}

	result, err := e.pasteTokens(result)
	if err != nil {
		return nil, &MacroError{Name: macro.Name, Reason: err.Error()}
	}

	return e.expandTokens(result)
}

// parseArguments reads a function-like macro's argument list starting at
// the opening paren. It returns the argument token lists and the index of
// the closing paren.
func parseArguments(tokens []Token, startIdx int) ([][]Token, int, error) {
	i := startIdx + 1
	var args [][]Token
	var currentArg []Token
	parenDepth := 1

	for i < len(tokens) {
		tok := tokens[i]

		switch {
		case isOpenParen(tok):
			parenDepth++
			currentArg = append(currentArg, tok)
		case tok.Kind == PP_LITERAL && tok.Text == ")":
			parenDepth--
			if parenDepth == 0 {
				if len(currentArg) > 0 || len(args) > 0 {
					args = append(args, currentArg)
				}
				return args, i, nil
			}
			currentArg = append(currentArg, tok)
		case tok.Kind == PP_LITERAL && tok.Text == ",":
			if parenDepth == 1 {
				args = append(args, currentArg)
				currentArg = nil
			} else {
				currentArg = append(currentArg, tok)
			}
		case tok.Kind == PP_NEWLINE:
			return nil, 0, fmt.Errorf("unterminated macro argument list")
		default:
			currentArg = append(currentArg, tok)
		}
		i++
	}

	return nil, 0, fmt.Errorf("unterminated macro argument list")
}

func validateArgCount(macro *Macro, args [][]Token) error {
	expected := len(macro.Params)
	if macro.IsVariadic {
		if len(args) < expected {
			return &MacroError{
				Name:   macro.Name,
				Reason: fmt.Sprintf("requires at least %d arguments, got %d", expected, len(args)),
			}
		}
		return nil
	}
	if len(args) != expected {
		return &MacroError{
			Name:   macro.Name,
			Reason: fmt.Sprintf("requires %d arguments, got %d", expected, len(args)),
		}
	}
	return nil
}

// buildVAArgs joins the arguments past the named parameters into the
// __VA_ARGS__ replacement.
func buildVAArgs(args [][]Token, numParams int) []Token {
	if len(args) <= numParams {
		return nil
	}
	var result []Token
	for i, arg := range args[numParams:] {
		if i > 0 {
			result = append(result, Token{Kind: PP_LITERAL, Text: ","})
		}
		result = append(result, arg...)
	}
	return result
}

// stringify applies the # operator: the argument tokens become a single
// string literal with embedded quotes and backslashes escaped.
func stringify(tokens []Token, line int) Token {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if tok.Kind == PP_STRING || (tok.Kind == PP_CONSTANT && strings.ContainsAny(tok.Text, "'\"")) {
			for _, c := range tok.Text {
				if c == '"' || c == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteRune(c)
			}
			continue
		}
		sb.WriteString(tok.Text)
	}
	sb.WriteByte('"')
	return Token{Kind: PP_STRING, Text: sb.String(), Line: line}
}

// pasteTokens applies the ## operator, re-tokenizing each fused spelling.
func (e *Expander) pasteTokens(tokens []Token) ([]Token, error) {
	var result []Token
	i := 0

	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind != PP_HASH_HASH {
			result = append(result, tok)
			i++
			continue
		}

		if len(result) == 0 {
			return nil, fmt.Errorf("## cannot appear at start of replacement list")
		}
		if i+1 >= len(tokens) {
			return nil, fmt.Errorf("## cannot appear at end of replacement list")
		}

		left := result[len(result)-1]
		right := tokens[i+1]
		result = result[:len(result)-1]

		fused := retokenize(left.Text+right.Text, left.Line)
		result = append(result, fused...)
		i += 2
	}

	return result, nil
}

// retokenize scans a pasted spelling back into tokens.
func retokenize(text string, line int) []Token {
	if text == "" {
		return nil
	}
	lex := NewLexer(text, io.Discard)
	var tokens []Token
	for {
		tok := lex.Next()
		if tok.Kind == PP_EOF || tok.Kind == PP_NEWLINE {
			break
		}
		tok.Line = line
		tokens = append(tokens, tok)
	}
	return tokens
}

func isOpenParen(tok Token) bool {
	return tok.Kind == PP_LPAREN || (tok.Kind == PP_LITERAL && tok.Text == "(")
}

// relocate stamps line onto copies of tokens so diagnostics point at the
// expansion site.
func relocate(tokens []Token, line int) []Token {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		tok.Line = line
		out[i] = tok
	}
	return out
}

// spliceTokens renders tokens back to source text, separating them with
// single spaces. An LPAREN re-attaches to the preceding token so the text
// re-lexes with the same shape.
func spliceTokens(tokens []Token) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 && tok.Kind != PP_LPAREN {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Text)
	}
	return sb.String()
}
