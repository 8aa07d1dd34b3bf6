package cpp

import (
	"io"
	"strings"
	"testing"
)

func newTestExpander(t *testing.T, defines map[string]string) *Expander {
	t.Helper()
	table := NewMacroTable(io.Discard)
	for name, replacement := range defines {
		if err := table.DefineText(name, replacement); err != nil {
			t.Fatalf("define %s: %v", name, err)
		}
	}
	return NewExpander(table)
}

func expandString(t *testing.T, e *Expander, input string) string {
	t.Helper()
	tokens := lexAll(t, input)
	expanded, err := e.Expand(tokens)
	if err != nil {
		t.Fatalf("Expand(%q): %v", input, err)
	}
	return spliceTokens(expanded)
}

func TestExpandObjectMacro(t *testing.T) {
	e := newTestExpander(t, map[string]string{"FOO": "42"})
	if got := expandString(t, e, "x = FOO ;"); got != "x = 42 ;" {
		t.Errorf("got %q, want %q", got, "x = 42 ;")
	}
}

func TestExpandChainedObjectMacros(t *testing.T) {
	e := newTestExpander(t, map[string]string{"A": "B", "B": "7"})
	if got := expandString(t, e, "A"); got != "7" {
		t.Errorf("got %q, want 7", got)
	}
}

func TestExpandSelfReferenceStops(t *testing.T) {
	e := newTestExpander(t, map[string]string{"X": "X + 1"})
	if got := expandString(t, e, "X"); got != "X + 1" {
		t.Errorf("got %q, want X + 1", got)
	}
}

func TestExpandMutualRecursionStops(t *testing.T) {
	e := newTestExpander(t, map[string]string{"A": "B", "B": "A"})
	// The hide-set stops the loop; the inner A survives unexpanded.
	if got := expandString(t, e, "A"); got != "A" {
		t.Errorf("got %q, want A", got)
	}
}

func TestExpandFunctionMacro(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "ADD",
		Params:      []string{"a", "b"},
		Replacement: lexAll(t, "a + b"),
	})
	e := NewExpander(table)

	if got := expandString(t, e, "ADD(1, 2)"); got != "1 + 2" {
		t.Errorf("got %q, want 1 + 2", got)
	}
}

func TestExpandFunctionMacroNestedParens(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "ID",
		Params:      []string{"x"},
		Replacement: lexAll(t, "x"),
	})
	e := NewExpander(table)

	if got := expandString(t, e, "ID(f(1, 2))"); got != "f( 1 , 2 )" {
		t.Errorf("got %q, want f( 1 , 2 )", got)
	}
}

func TestExpandFunctionMacroWithoutParens(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "F",
		Params:      []string{"x"},
		Replacement: lexAll(t, "x"),
	})
	e := NewExpander(table)

	// Without an argument list the name is not an invocation.
	if got := expandString(t, e, "F + 1"); got != "F + 1" {
		t.Errorf("got %q, want F + 1", got)
	}
}

func TestExpandArityMismatch(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "PAIR",
		Params:      []string{"a", "b"},
		Replacement: lexAll(t, "a b"),
	})
	e := NewExpander(table)

	_, err := e.Expand(lexAll(t, "PAIR(1)"))
	if err == nil {
		t.Fatal("expected arity error")
	}
	if !strings.Contains(err.Error(), "requires 2 arguments") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExpandVariadic(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "LOG",
		Params:      []string{"fmt"},
		IsVariadic:  true,
		Replacement: lexAll(t, "log(fmt, __VA_ARGS__)"),
	})
	e := NewExpander(table)

	got := expandString(t, e, "LOG(msg, 1, 2)")
	if !strings.Contains(got, "msg") || !strings.Contains(got, "1 , 2") {
		t.Errorf("got %q, want msg and 1 , 2 in output", got)
	}
}

func TestExpandStringify(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "STR",
		Params:      []string{"x"},
		Replacement: lexAll(t, "#x"),
	})
	e := NewExpander(table)

	if got := expandString(t, e, "STR(hello)"); got != "\"hello\"" {
		t.Errorf("got %q, want \"hello\"", got)
	}
}

func TestExpandStringifySpacedHash(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "STR",
		Params:      []string{"x"},
		Replacement: lexAll(t, "# x"),
	})
	e := NewExpander(table)

	if got := expandString(t, e, "STR(a + b)"); got != "\"a + b\"" {
		t.Errorf("got %q, want \"a + b\"", got)
	}
}

func TestExpandTokenPasting(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "CAT",
		Params:      []string{"a", "b"},
		Replacement: lexAll(t, "a##b"),
	})
	e := NewExpander(table)

	tokens, err := e.Expand(lexAll(t, "CAT(foo, bar)"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != PP_IDENTIFIER || tokens[0].Text != "foobar" {
		t.Errorf("got %v, want single identifier foobar", tokens)
	}
}

func TestExpandPastingMakesNumber(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.Define(&Macro{
		Name:        "NUM",
		Params:      []string{"a", "b"},
		Replacement: lexAll(t, "a##b"),
	})
	e := NewExpander(table)

	tokens, err := e.Expand(lexAll(t, "NUM(1, 2)"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != PP_CONSTANT || tokens[0].Value != 12 {
		t.Errorf("got %v, want CONSTANT 12", tokens)
	}
}

func TestExpandBuiltin(t *testing.T) {
	table := NewMacroTable(io.Discard)
	table.DefineBuiltin("__ANSWER__", func() []Token {
		return []Token{{Kind: PP_CONSTANT, Text: "42", Value: 42}}
	})
	e := NewExpander(table)

	if got := expandString(t, e, "__ANSWER__"); got != "42" {
		t.Errorf("got %q, want 42", got)
	}
}
