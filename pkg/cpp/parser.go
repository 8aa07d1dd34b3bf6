// parser.go drives directive execution over the token stream. Lines are
// classified as control lines, if-sections, text lines, or unknown
// directives; if-sections capture the raw text of each branch and re-parse
// only the branch that was selected, so directives inside an undecided
// branch never execute early.
package cpp

import (
	"fmt"
	"strings"
)

type parser struct {
	pp  *Preprocessor
	lex *Lexer
	tok Token
}

func newParser(pp *Preprocessor, src string) *parser {
	p := &parser{pp: pp, lex: NewLexer(src, pp.diag)}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.lex.Next()
	if p.tok.Kind != PP_EOF {
		p.pp.currentLine = p.tok.Line
	}
}

// run processes the whole buffer and returns the preprocessed text.
func (p *parser) run() (string, error) {
	var out strings.Builder

	for {
		if err := p.lex.Err(); err != nil {
			return "", err
		}

		switch p.tok.Kind {
		case PP_EOF:
			return out.String(), nil

		case PP_NEWLINE:
			out.WriteString(p.tok.Text)
			p.next()

		case PP_IF, PP_IFDEF, PP_IFNDEF:
			p.pp.trace("if_section")
			s, err := p.ifSection()
			if err != nil {
				return "", err
			}
			out.WriteString(s)

		case PP_ELIF:
			return "", fmt.Errorf("line %d: #elif without matching #if", p.tok.Line)
		case PP_ELSE:
			return "", fmt.Errorf("line %d: #else without matching #if", p.tok.Line)

		case PP_DEFINE:
			p.pp.trace("define_directive")
			if err := p.defineDirective(); err != nil {
				return "", err
			}
			out.WriteString("\n")

		case PP_UNDEF:
			p.pp.trace("undef_directive")
			if err := p.undefDirective(); err != nil {
				return "", err
			}
			out.WriteString("\n")

		case PP_INCLUDE:
			p.pp.trace("include_directive")
			s, err := p.includeDirective()
			if err != nil {
				return "", err
			}
			out.WriteString(s)
			out.WriteString("\n")

		case PP_ERROR:
			p.next()
			msg := spliceTokens(p.collectLine())
			if msg == "" {
				return "", fmt.Errorf("#error")
			}
			return "", fmt.Errorf("#error %s", msg)

		case PP_LINE:
			p.pp.trace("line_directive")
			p.next()
			p.pp.lineDirective(p.collectLine())
			out.WriteString("\n")

		case PP_PRAGMA:
			p.pp.trace("pragma_directive")
			p.next()
			p.pp.pragmaDirective(p.collectLine())
			out.WriteString("\n")

		case PP_PRAGMA_OPERATOR:
			p.pp.trace("pragma_directive")
			if err := p.pragmaOperator(); err != nil {
				return "", err
			}
			out.WriteString("\n")

		case PP_DIRECTIVE:
			p.unknownDirective()
			out.WriteString("\n")

		default:
			p.pp.trace("text_line")
			s, err := p.textLine()
			if err != nil {
				return "", err
			}
			out.WriteString(s)
		}
	}
}

// collectLine gathers the remaining tokens of the current line and
// consumes the terminating newline.
func (p *parser) collectLine() []Token {
	var tokens []Token
	for p.tok.Kind != PP_NEWLINE && p.tok.Kind != PP_EOF {
		tokens = append(tokens, p.tok)
		p.next()
	}
	if p.tok.Kind == PP_NEWLINE {
		p.next()
	}
	return tokens
}

// skipLine discards the rest of the current line.
func (p *parser) skipLine() {
	for p.tok.Kind != PP_NEWLINE && p.tok.Kind != PP_EOF {
		p.next()
	}
	if p.tok.Kind == PP_NEWLINE {
		p.next()
	}
}

func (p *parser) defineDirective() error {
	line := p.tok.Line
	p.next()

	if p.tok.Kind != PP_IDENTIFIER {
		return fmt.Errorf("line %d: #define expects an identifier, got %s", line, p.tok.Kind)
	}
	name := p.tok.Text
	p.next()

	var params []string
	variadic := false

	// A parameter list opens only with an LPAREN: '#define F(x)' is
	// function-like, '#define F (x)' is object-like with '(x)' as
	// replacement.
	if p.tok.Kind == PP_LPAREN {
		p.next()
		params = []string{}
		for {
			if p.tok.Kind == PP_LITERAL && p.tok.Text == ")" {
				p.next()
				break
			}
			if p.tok.Kind == PP_ELLIPSIS {
				variadic = true
				p.next()
				if p.tok.Kind != PP_LITERAL || p.tok.Text != ")" {
					return fmt.Errorf("line %d: '...' must be the last parameter", line)
				}
				p.next()
				break
			}
			if p.tok.Kind != PP_IDENTIFIER {
				return fmt.Errorf("line %d: expected parameter name, got %s", line, p.tok.Kind)
			}
			params = append(params, p.tok.Text)
			p.next()
			if p.tok.Kind == PP_LITERAL && p.tok.Text == "," {
				p.next()
			}
		}
	}

	replacement := p.collectLine()
	p.pp.macros.Define(&Macro{
		Name:        name,
		Replacement: replacement,
		Params:      params,
		IsVariadic:  variadic,
	})
	return nil
}

func (p *parser) undefDirective() error {
	line := p.tok.Line
	p.next()
	if p.tok.Kind != PP_IDENTIFIER {
		return fmt.Errorf("line %d: #undef expects an identifier, got %s", line, p.tok.Kind)
	}
	p.pp.macros.Undefine(p.tok.Text)
	p.next()
	p.skipLine()
	return nil
}

func (p *parser) includeDirective() (string, error) {
	line := p.tok.Line
	p.next()

	var headerName string
	if p.tok.Kind == PP_HEADER_NAME {
		headerName = p.tok.Text
		p.next()
		p.skipLine()
	} else {
		// The header name may come from macro expansion.
		tokens := p.collectLine()
		expanded, err := p.pp.expander.Expand(tokens)
		if err != nil {
			return "", fmt.Errorf("line %d: expanding #include: %w", line, err)
		}
		headerName = strings.TrimSpace(spliceTokens(expanded))
	}

	if len(headerName) < 2 {
		return "", fmt.Errorf("line %d: #include expects a header name", line)
	}

	content, err := p.pp.Include(headerName)
	if err != nil {
		return "", fmt.Errorf("line %d: #include %s: %w", line, headerName, err)
	}
	return content, nil
}

func (p *parser) pragmaOperator() error {
	line := p.tok.Line
	p.next()
	if !isOpenParen(p.tok) {
		return fmt.Errorf("line %d: _Pragma expects a parenthesized string literal", line)
	}
	p.next()
	if p.tok.Kind != PP_STRING {
		return fmt.Errorf("line %d: _Pragma expects a string literal", line)
	}
	str := p.tok.Text
	p.next()
	if p.tok.Kind != PP_LITERAL || p.tok.Text != ")" {
		return fmt.Errorf("line %d: missing ) after _Pragma", line)
	}
	p.next()
	p.skipLine()
	p.pp.pragmaDirective([]Token{{Kind: PP_STRING, Text: str, Line: line}})
	return nil
}

// unknownDirective handles any #identifier outside the recognized set.
// The directive is dropped; #warning additionally reports its message.
func (p *parser) unknownDirective() {
	name := p.tok.Text
	line := p.tok.Line
	p.next()
	tokens := p.collectLine()
	if name == "#warning" {
		fmt.Fprintf(p.pp.diag, "%s:%d: warning: %s\n", p.pp.currentFile, line, spliceTokens(tokens))
	}
}

func (p *parser) textLine() (string, error) {
	var tokens []Token
	for p.tok.Kind != PP_NEWLINE && p.tok.Kind != PP_EOF {
		if p.tok.Kind.isDirectiveIntroducer() {
			return "", fmt.Errorf("line %d: unexpected %s inside a text line", p.tok.Line, p.tok.Text)
		}
		tokens = append(tokens, p.tok)
		p.next()
	}
	// Expand before stepping past the newline so __LINE__ still reads
	// this line.
	expanded, err := p.pp.expander.Expand(tokens)
	if err != nil {
		return "", err
	}

	newline := "\n"
	if p.tok.Kind == PP_NEWLINE {
		newline = p.tok.Text
		p.next()
	}
	return spliceTokens(expanded) + newline, nil
}

// ifSection processes one #if/#ifdef/#ifndef ... #endif section. Branch
// bodies are captured as raw source spans; once the section closes, the
// selected span is re-parsed through a fresh lexer. Conditions after the
// selected branch are skipped without evaluation.
func (p *parser) ifSection() (string, error) {
	openLine := p.tok.Line

	taken, err := p.conditionLine()
	if err != nil {
		return "", err
	}

	selected := false
	var selText string
	start := p.tok.Pos
	depth := 1
	seenElse := false

	for depth > 0 {
		switch p.tok.Kind {
		case PP_EOF:
			if err := p.lex.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("line %d: unterminated conditional directive", openLine)

		case PP_IF, PP_IFDEF, PP_IFNDEF:
			depth++
			p.next()

		case PP_ENDIF:
			depth--
			if depth > 0 {
				p.next()
				continue
			}
			if taken && !selected {
				selected = true
				selText = p.lex.input[start:p.tok.Pos]
			}
			p.next()
			p.skipLine()

		case PP_ELIF:
			if depth > 1 {
				p.next()
				continue
			}
			if seenElse {
				return "", fmt.Errorf("line %d: #elif after #else", p.tok.Line)
			}
			if taken && !selected {
				selected = true
				selText = p.lex.input[start:p.tok.Pos]
			}
			if selected {
				p.next()
				p.skipLine()
				taken = false
			} else {
				taken, err = p.conditionLine()
				if err != nil {
					return "", err
				}
			}
			start = p.tok.Pos

		case PP_ELSE:
			if depth > 1 {
				p.next()
				continue
			}
			if seenElse {
				return "", fmt.Errorf("line %d: duplicate #else", p.tok.Line)
			}
			seenElse = true
			if taken && !selected {
				selected = true
				selText = p.lex.input[start:p.tok.Pos]
			}
			taken = !selected
			p.next()
			p.skipLine()
			start = p.tok.Pos

		default:
			p.next()
		}
	}

	if !selected {
		return "\n", nil
	}
	return p.pp.parseBuffer(selText)
}

// conditionLine consumes an #if/#ifdef/#ifndef/#elif line and evaluates
// its condition.
func (p *parser) conditionLine() (bool, error) {
	kind := p.tok.Kind
	line := p.tok.Line
	p.next()

	switch kind {
	case PP_IF, PP_ELIF:
		condToks := p.collectLine()
		if len(condToks) == 0 {
			return false, fmt.Errorf("line %d: %s expects an expression", line, kind)
		}
		ok, err := evalCondition(condToks, p.pp.macros, p.pp.expander)
		if err != nil {
			return false, fmt.Errorf("line %d: %s: %w", line, kind, err)
		}
		return ok, nil

	case PP_IFDEF, PP_IFNDEF:
		if p.tok.Kind != PP_IDENTIFIER {
			return false, fmt.Errorf("line %d: %s expects an identifier, got %s", line, kind, p.tok.Kind)
		}
		defined := p.pp.macros.IsDefined(p.tok.Text)
		p.next()
		p.skipLine()
		if kind == PP_IFNDEF {
			return !defined, nil
		}
		return defined, nil
	}
	return false, fmt.Errorf("line %d: unexpected %s", line, kind)
}
