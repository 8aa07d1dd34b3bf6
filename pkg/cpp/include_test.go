package cpp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIncludeQuotedRelative(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "header.h"), "int from_header;\n")
	writeFile(t, filepath.Join(dir, "main.c"), "#include \"header.h\"\nint main_code;\n")

	pp := newTestPP(t, Options{})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "from_header") {
		t.Errorf("missing included content: %q", result)
	}
	if !strings.Contains(result, "main_code") {
		t.Errorf("missing main content: %q", result)
	}
}

func TestIncludeAngledSearchPath(t *testing.T) {
	dir := t.TempDir()
	sysDir := filepath.Join(dir, "sys")
	writeFile(t, filepath.Join(sysDir, "sysheader.h"), "int sys_content;\n")
	writeFile(t, filepath.Join(dir, "main.c"), "#include <sysheader.h>\nint main_code;\n")

	pp := newTestPP(t, Options{StdlibPaths: []string{sysDir}})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "sys_content") {
		t.Errorf("missing included content: %q", result)
	}
}

func TestIncludeSearchOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeFile(t, filepath.Join(first, "pick.h"), "int first_wins;\n")
	writeFile(t, filepath.Join(second, "pick.h"), "int second_wins;\n")
	writeFile(t, filepath.Join(dir, "main.c"), "#include <pick.h>\n")

	pp := newTestPP(t, Options{StdlibPaths: []string{first, second}})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "first_wins") || strings.Contains(result, "second_wins") {
		t.Errorf("search order violated: %q", result)
	}
}

func TestIncludeCacheReadsFileOnce(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "h.h")
	writeFile(t, header, "int cached_content;\n")
	writeFile(t, filepath.Join(dir, "main.c"),
		"#include \"h.h\"\n#include \"h.h\"\n")

	pp := newTestPP(t, Options{})

	// Both inclusions happen in one Process call, so first check that
	// the header text is inserted twice; the file is then removed so
	// that a later include can only succeed from the cache.
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(result, "cached_content"); got != 2 {
		t.Errorf("header text inserted %d times, want 2: %q", got, result)
	}

	// A second include through the public API after deleting the file
	// must still succeed from the cache.
	if err := os.Remove(header); err != nil {
		t.Fatal(err)
	}
	text, err := pp.Include("\"h.h\"")
	if err != nil {
		t.Fatalf("cached include failed after file removal: %v", err)
	}
	if !strings.Contains(text, "cached_content") {
		t.Errorf("cache returned %q", text)
	}
}

func TestIncludeEndsWithNewline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tail.h"), "int tail")
	writeFile(t, filepath.Join(dir, "main.c"), "#include \"tail.h\"\nint next;\n")

	pp := newTestPP(t, Options{})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The include must not fuse with the following line.
	if strings.Contains(result, "tail int next") {
		t.Errorf("include fused with the next line: %q", result)
	}
}

func TestIncludeRestoresCurrentFile(t *testing.T) {
	// outer.c includes sub/inner.h, which includes "deep.h" next to it.
	// After returning, outer.c includes "local.h" next to itself; if the
	// engine kept the nested directory as current, this lookup would
	// fail.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "deep.h"), "int deep_content;\n")
	writeFile(t, filepath.Join(dir, "sub", "inner.h"), "#include \"deep.h\"\nint inner_content;\n")
	writeFile(t, filepath.Join(dir, "local.h"), "int local_content;\n")
	writeFile(t, filepath.Join(dir, "outer.c"),
		"#include \"sub/inner.h\"\n#include \"local.h\"\n")

	pp := newTestPP(t, Options{})
	result, err := pp.Process(filepath.Join(dir, "outer.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"deep_content", "inner_content", "local_content"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %s: %q", want, result)
		}
	}
}

func TestIncludeMacrosShareTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "defs.h"), "#define WIDTH 80\n")
	writeFile(t, filepath.Join(dir, "main.c"), "#include \"defs.h\"\nWIDTH\n")

	pp := newTestPP(t, Options{})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "80") {
		t.Errorf("macro defined in header not visible after include: %q", result)
	}
}

func TestPragmaOnceSuppressesSecondSpelling(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "once.h"), "#pragma once\nint once_content;\n")
	writeFile(t, filepath.Join(dir, "sub", "again.h"), "#include \"once.h\"\n")
	writeFile(t, filepath.Join(dir, "main.c"),
		"#include \"sub/once.h\"\n#include \"sub/again.h\"\n")

	pp := newTestPP(t, Options{})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(result, "once_content"); got != 1 {
		t.Errorf("pragma once body appeared %d times, want 1: %q", got, result)
	}
}

func TestCircularIncludeFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.h"), "#include \"b.h\"\n")
	writeFile(t, filepath.Join(dir, "b.h"), "#include \"a.h\"\n")
	writeFile(t, filepath.Join(dir, "main.c"), "#include \"a.h\"\n")

	pp := newTestPP(t, Options{})
	_, err := pp.Process(filepath.Join(dir, "main.c"))
	if err == nil {
		t.Fatal("expected circular include error")
	}
	if !strings.Contains(err.Error(), "circular include") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolverDefaults(t *testing.T) {
	r := NewIncludeResolver(nil)
	paths := r.SearchPaths()
	if len(paths) != 1 || paths[0] != "stdlib/" {
		t.Errorf("default search paths = %v, want [stdlib/]", paths)
	}
}

func TestIncludeViaMacroExpansion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "target.h"), "int via_macro;\n")
	writeFile(t, filepath.Join(dir, "main.c"),
		"#define HDR \"target.h\"\n#include HDR\n")

	pp := newTestPP(t, Options{})
	result, err := pp.Process(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "via_macro") {
		t.Errorf("macro-expanded include failed: %q", result)
	}
}
