// include.go resolves #include header names and caches preprocessed
// headers.
package cpp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxIncludeDepth is the maximum allowed include nesting.
const MaxIncludeDepth = 200

// IncludeKind distinguishes "file" from <file> includes.
type IncludeKind int

const (
	IncludeQuoted IncludeKind = iota
	IncludeAngled
)

// IncludeError indicates that a header was not found in any search
// directory.
type IncludeError struct {
	Name string
	Kind IncludeKind
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("%s: not found in any include directory", e.Name)
}

// CircularIncludeError indicates an include cycle.
type CircularIncludeError struct {
	Path  string
	Stack []string
}

func (e *CircularIncludeError) Error() string {
	var sb strings.Builder
	sb.WriteString("circular include detected: ")
	sb.WriteString(e.Path)
	sb.WriteString("\ninclude stack:\n")
	for _, f := range e.Stack {
		sb.WriteString("  ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return sb.String()
}

// IncludeResolver locates headers and memoizes their preprocessed text.
// The cache key is the header name as spelled, so two spellings of the
// same file are processed independently.
type IncludeResolver struct {
	searchPaths  []string
	headers      map[string]string
	includeStack []string
	oncedFiles   map[string]bool
}

// NewIncludeResolver creates a resolver searching paths in order. An
// empty list defaults to "stdlib/".
func NewIncludeResolver(paths []string) *IncludeResolver {
	if len(paths) == 0 {
		paths = []string{"stdlib/"}
	}
	return &IncludeResolver{
		searchPaths: paths,
		headers:     make(map[string]string),
		oncedFiles:  make(map[string]bool),
	}
}

// SearchPaths returns the configured search directories.
func (r *IncludeResolver) SearchPaths() []string {
	return r.searchPaths
}

// Cached returns the memoized preprocessed text for a header name.
func (r *IncludeResolver) Cached(name string) (string, bool) {
	text, ok := r.headers[name]
	return text, ok
}

// StoreCached memoizes the preprocessed text for a header name.
func (r *IncludeResolver) StoreCached(name, text string) {
	r.headers[name] = text
}

// Resolve finds the file for a header name. Quoted includes try the
// directory of the including file first; both forms then walk the search
// paths in order.
func (r *IncludeResolver) Resolve(name string, kind IncludeKind, currentFile string) (string, error) {
	if kind == IncludeQuoted && currentFile != "" {
		candidate := filepath.Join(filepath.Dir(currentFile), name)
		if isFile(candidate) {
			return candidate, nil
		}
	}
	for _, dir := range r.searchPaths {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", &IncludeError{Name: name, Kind: kind}
}

// Push marks path as being processed. It fails on include cycles and on
// exceeding MaxIncludeDepth.
func (r *IncludeResolver) Push(path string) error {
	if len(r.includeStack) >= MaxIncludeDepth {
		return fmt.Errorf("#include nested too deeply (%d levels)", len(r.includeStack))
	}
	for _, f := range r.includeStack {
		if f == path {
			return &CircularIncludeError{Path: path, Stack: r.includeStack}
		}
	}
	r.includeStack = append(r.includeStack, path)
	return nil
}

// Pop removes the innermost file from the include stack.
func (r *IncludeResolver) Pop() {
	if len(r.includeStack) > 0 {
		r.includeStack = r.includeStack[:len(r.includeStack)-1]
	}
}

// MarkOnce records a #pragma once file.
func (r *IncludeResolver) MarkOnce(path string) {
	r.oncedFiles[path] = true
}

// IsOnced reports whether path declared #pragma once.
func (r *IncludeResolver) IsOnced(path string) bool {
	return r.oncedFiles[path]
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
