// Package synth turns an extracted script into a complete, standalone
// buildable module: a module manifest, a single source file and a LineMap
// relating synthesized lines back to the script.
//
// Synthesis is pure textual composition. The body is never parsed or
// rewritten, so the line mapping stays a constant offset and diagnostics
// remap exactly.
package synth

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gsx/internal/manifest"
)

// TemplateVersion identifies the wrapper templates. It participates in cache
// key derivation so template changes invalidate existing entries.
const TemplateVersion = "gsx-templates-1"

// goDirective is the language version declared in synthesized module files.
const goDirective = "1.24"

// SourceFile is the name of the synthesized source file inside an entry.
const SourceFile = "main.go"

// Package is a synthesized, buildable unit.
type Package struct {
	// Name is the filesystem-safe package identity, used for the module
	// path and the binary name.
	Name string

	// GoMod is the synthesized module manifest text.
	GoMod string

	// Source is the synthesized source text.
	Source string

	// LineMap relates Source lines to original script lines.
	LineMap LineMap
}

const barePreamble = `package main

import "fmt"

var _ = fmt.Sprint

func main() {
`

const exprPreamble = `package main

import "fmt"

func main() {
	fmt.Println(
`

// Synthesize composes a buildable package for the given script body.
// scriptName is the script's identity (its base filename, or a stable label
// for inline/stdin input) and only influences naming, never content hashing.
func Synthesize(m manifest.Manifest, kind manifest.Kind, body, scriptName string) *Package {
	name := SafeName(scriptName)

	var source string
	var lm LineMap

	switch kind {
	case manifest.KindFull:
		source = body
		lm = Identity(countLines(body))

	case manifest.KindBare:
		source, lm = wrap(barePreamble, body, "}\n")

	case manifest.KindExpression:
		source, lm = wrap(exprPreamble, body, "\t)\n}\n")
	}

	return &Package{
		Name:    name,
		GoMod:   renderGoMod(name, m),
		Source:  source,
		LineMap: lm,
	}
}

// wrap injects the body verbatim between a fixed preamble and trailer and
// records the resulting constant line offset.
func wrap(preamble, body, trailer string) (string, LineMap) {
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	offset := strings.Count(preamble, "\n")
	n := countLines(body)

	lm := LineMap{
		Start:  offset + 1,
		End:    offset + n,
		Offset: offset,
	}

	return preamble + body + trailer, lm
}

// renderGoMod builds the synthesized module manifest from the extracted
// dependency set. Requirements are emitted sorted so identical manifests
// always render identical text.
func renderGoMod(name string, m manifest.Manifest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "module gsx.script/%s\n\ngo %s\n", name, goDirective)

	if len(m.Require) > 0 {
		paths := make([]string, 0, len(m.Require))
		for path := range m.Require {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		b.WriteString("\nrequire (\n")
		for _, path := range paths {
			fmt.Fprintf(&b, "\t%s %s\n", path, m.Require[path])
		}
		b.WriteString(")\n")
	}

	return b.String()
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// SafeName derives a stable, filesystem-safe package name from a script
// path or label.
func SafeName(scriptName string) string {
	base := filepath.Base(scriptName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeChars.ReplaceAllString(strings.ToLower(base), "-")
	base = strings.Trim(base, "-")

	if base == "" || base == "." {
		return "script"
	}

	return base
}

func countLines(s string) int {
	if s == "" {
		return 0
	}

	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}

	return n
}
