// Package cpp implements the preprocessing phases of a C99 translation
// pipeline: digraph/trigraph replacement, line splicing, comment stripping,
// and tokenization with directive execution.
package cpp

// TokenKind classifies a preprocessing token.
type TokenKind int

const (
	PP_EOF TokenKind = iota

	// Directive introducers, recognized by literal spelling.
	PP_DEFINE
	PP_DEFINED
	PP_ELIF
	PP_ELSE
	PP_ENDIF
	PP_ERROR
	PP_IF
	PP_IFDEF
	PP_IFNDEF
	PP_INCLUDE
	PP_LINE
	PP_PRAGMA
	PP_PRAGMA_OPERATOR // _Pragma
	PP_UNDEF

	PP_CONSTANT
	PP_HEADER_NAME
	PP_DIRECTIVE // any #identifier outside the recognized set
	PP_IDENTIFIER
	PP_STRING
	PP_NEWLINE

	// Operators.
	PP_ELLIPSIS
	PP_LEFT_ASSIGN
	PP_RIGHT_ASSIGN
	PP_ADD_ASSIGN
	PP_SUB_ASSIGN
	PP_MUL_ASSIGN
	PP_DIV_ASSIGN
	PP_MOD_ASSIGN
	PP_AND_ASSIGN
	PP_XOR_ASSIGN
	PP_OR_ASSIGN
	PP_LEFT_OP
	PP_RIGHT_OP
	PP_INC_OP
	PP_DEC_OP
	PP_PTR_OP
	PP_AND_OP
	PP_OR_OP
	PP_LE_OP
	PP_GE_OP
	PP_EQ_OP
	PP_NE_OP
	PP_HASH_HASH

	// A '(' not preceded by whitespace. The distinction matters in
	// #define: F(x) declares a parameter, F (x) is replacement text.
	PP_LPAREN

	// Single-character punctuation; Text holds the character.
	PP_LITERAL
)

var kindNames = map[TokenKind]string{
	PP_EOF:             "EOF",
	PP_DEFINE:          "DEFINE",
	PP_DEFINED:         "DEFINED",
	PP_ELIF:            "ELIF",
	PP_ELSE:            "ELSE",
	PP_ENDIF:           "ENDIF",
	PP_ERROR:           "ERROR",
	PP_IF:              "IF",
	PP_IFDEF:           "IFDEF",
	PP_IFNDEF:          "IFNDEF",
	PP_INCLUDE:         "INCLUDE",
	PP_LINE:            "LINE",
	PP_PRAGMA:          "PRAGMA",
	PP_PRAGMA_OPERATOR: "_PRAGMA",
	PP_UNDEF:           "UNDEF",
	PP_CONSTANT:        "CONSTANT",
	PP_HEADER_NAME:     "HEADER_NAME",
	PP_DIRECTIVE:       "DIRECTIVE",
	PP_IDENTIFIER:      "IDENTIFIER",
	PP_STRING:          "STRING_LITERAL",
	PP_NEWLINE:         "NEWLINE",
	PP_ELLIPSIS:        "ELLIPSIS",
	PP_LEFT_ASSIGN:     "LEFT_ASSIGN",
	PP_RIGHT_ASSIGN:    "RIGHT_ASSIGN",
	PP_ADD_ASSIGN:      "ADD_ASSIGN",
	PP_SUB_ASSIGN:      "SUB_ASSIGN",
	PP_MUL_ASSIGN:      "MUL_ASSIGN",
	PP_DIV_ASSIGN:      "DIV_ASSIGN",
	PP_MOD_ASSIGN:      "MOD_ASSIGN",
	PP_AND_ASSIGN:      "AND_ASSIGN",
	PP_XOR_ASSIGN:      "XOR_ASSIGN",
	PP_OR_ASSIGN:       "OR_ASSIGN",
	PP_LEFT_OP:         "LEFT_OP",
	PP_RIGHT_OP:        "RIGHT_OP",
	PP_INC_OP:          "INC_OP",
	PP_DEC_OP:          "DEC_OP",
	PP_PTR_OP:          "PTR_OP",
	PP_AND_OP:          "AND_OP",
	PP_OR_OP:           "OR_OP",
	PP_LE_OP:           "LE_OP",
	PP_GE_OP:           "GE_OP",
	PP_EQ_OP:           "EQ_OP",
	PP_NE_OP:           "NE_OP",
	PP_HASH_HASH:       "HASH_HASH",
	PP_LPAREN:          "LPAREN",
	PP_LITERAL:         "LITERAL",
}

func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// directiveKinds maps the literal directive spellings to their kinds.
// Any other #identifier lexes as PP_DIRECTIVE.
var directiveKinds = map[string]TokenKind{
	"#define":  PP_DEFINE,
	"#elif":    PP_ELIF,
	"#else":    PP_ELSE,
	"#endif":   PP_ENDIF,
	"#error":   PP_ERROR,
	"#if":      PP_IF,
	"#ifdef":   PP_IFDEF,
	"#ifndef":  PP_IFNDEF,
	"#include": PP_INCLUDE,
	"#line":    PP_LINE,
	"#pragma":  PP_PRAGMA,
	"#undef":   PP_UNDEF,
}

// Token is a preprocessing token.
type Token struct {
	Kind TokenKind
	Text string
	// Value is the evaluated value of an integer or character CONSTANT.
	Value int64
	// IsFloat marks a floating CONSTANT; such tokens carry only text and
	// are rejected by the conditional-expression evaluator.
	IsFloat bool
	// Line is the 1-based source line the token starts on.
	Line int
	// Pos is the byte offset of the token start within its buffer.
	Pos int
}

// isDirectiveIntroducer reports whether k opens a preprocessing directive.
func (k TokenKind) isDirectiveIntroducer() bool {
	switch k {
	case PP_DEFINE, PP_ELIF, PP_ELSE, PP_ENDIF, PP_ERROR, PP_IF, PP_IFDEF,
		PP_IFNDEF, PP_INCLUDE, PP_LINE, PP_PRAGMA, PP_UNDEF:
		return true
	}
	return false
}
