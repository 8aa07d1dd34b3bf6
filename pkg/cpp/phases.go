// phases.go implements the text transforms that precede tokenization:
// digraph/trigraph replacement, backslash-newline splicing, and comment
// stripping.
package cpp

import (
	"regexp"
	"strings"
)

// diTrigraph is the replacement table for translation phase 1. Digraphs
// first, then trigraphs. Replacement is applied to the whole buffer,
// string-literal interiors included.
var diTrigraph = []struct {
	seq string
	rep string
}{
	// Digraphs
	{"<:", "["},
	{":>", "]"},
	{"<%", "{"},
	{"%>", "}"},
	{"%:", "#"},
	// Trigraphs
	{"??=", "#"},
	{"??/", "\\"},
	{"??'", "^"},
	{"??(", "["},
	{"??)", "]"},
	{"??!", "|"},
	{"??<", "{"},
	{"??>", "}"},
	{"??-", "~"},
}

var commentRE = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)

// ReplaceDiTrigraphs rewrites every digraph and trigraph to its
// single-character equivalent.
func ReplaceDiTrigraphs(src string) string {
	for _, e := range diTrigraph {
		src = strings.ReplaceAll(src, e.seq, e.rep)
	}
	return src
}

// SpliceLines removes every backslash-newline pair, joining the two
// physical lines.
func SpliceLines(src string) string {
	return strings.ReplaceAll(src, "\\\n", "")
}

// StripComments replaces block and line comments with a single space.
func StripComments(src string) string {
	return commentRE.ReplaceAllString(src, " ")
}

// PhaseFilter applies the pre-tokenization translation phases in order and
// guarantees the result ends with a newline.
func PhaseFilter(src string, keepComments bool) string {
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	src = ReplaceDiTrigraphs(src)
	src = SpliceLines(src)
	if !keepComments {
		src = StripComments(src)
	}
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	return src
}
