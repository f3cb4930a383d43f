// Package script wires the pipeline together: extract the embedded
// manifest, synthesize a buildable package, derive the cache key, consult
// the store, build on a miss and execute the cached binary.
package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Input is a script to run: a file, an inline expression or stdin content.
// Immutable for the duration of one invocation.
type Input struct {
	// Path is the script's absolute path, empty for inline/stdin input.
	Path string

	// Source is the raw script content.
	Source []byte

	// Label names the input in diagnostics and cache metadata: the path
	// for files, "<expr>" or "<stdin>" otherwise.
	Label string

	// ForceExpression marks inline -e input, which is always treated as
	// an expression regardless of structural inference.
	ForceExpression bool
}

// FromFile reads a script from disk.
func FromFile(path string) (*Input, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	return &Input{Path: abs, Source: source, Label: abs}, nil
}

// FromStdin reads a script from the given reader, normally os.Stdin.
func FromStdin(r io.Reader) (*Input, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read script from stdin: %w", err)
	}

	return &Input{Source: source, Label: "<stdin>"}, nil
}

// FromExpr wraps an inline expression supplied on the command line.
func FromExpr(expr string) *Input {
	return &Input{
		Source:          []byte(expr),
		Label:           "<expr>",
		ForceExpression: true,
	}
}
