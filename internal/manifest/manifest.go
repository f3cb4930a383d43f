// Package manifest extracts the embedded dependency manifest from a script
// and classifies the script's structural kind.
//
// Two embedding conventions are recognized, both living in the leading
// comment lines of the script:
//
//  1. A fenced block delimited by a pair of "// ---" lines, whose interior
//     (comment markers stripped) is parsed as YAML:
//
//     // ---
//     // require:
//     //   github.com/fatih/color: v1.18.0
//     // profile: release
//     // ---
//
//  2. A single-line shorthand listing name = "version" pairs:
//
//     // gsx-deps: github.com/fatih/color = "v1.18.0", rsc.io/quote = "v1.5.2"
//
// A script with neither convention is always valid input and yields an empty
// Manifest. Extraction is pure: identical bytes yield identical results.
package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fence is the comment line that opens and closes a manifest block.
const Fence = "// ---"

// ShorthandPrefix introduces the single-line dependency form.
const ShorthandPrefix = "// gsx-deps:"

// Kind classifies how a script body must be wrapped to become buildable.
type Kind int

const (
	// KindExpression is a single expression to be evaluated and printed.
	KindExpression Kind = iota

	// KindBare is a statement sequence with no entry point of its own.
	KindBare

	// KindFull is a complete program used verbatim.
	KindFull
)

func (k Kind) String() string {
	switch k {
	case KindExpression:
		return "expression"
	case KindBare:
		return "bare"
	case KindFull:
		return "full"
	}

	return "unknown"
}

// Manifest is the structured dependency/build declaration embedded in a
// script. An absent manifest is represented by the zero value.
type Manifest struct {
	// Require maps module paths to version specs, handed verbatim to the
	// toolchain's module resolution.
	Require map[string]string `yaml:"require,omitempty"`

	// Profile optionally overrides the build profile for this script.
	Profile string `yaml:"profile,omitempty"`

	// Kind optionally overrides structural kind inference
	// ("expression", "bare" or "full").
	Kind string `yaml:"kind,omitempty"`
}

// Canonical returns a normalized serialization of the manifest, used for
// cache key derivation. yaml.v3 emits map keys sorted, so two manifests that
// differ only in declaration order or block whitespace canonicalize equal.
func (m Manifest) Canonical() []byte {
	data, err := yaml.Marshal(m)
	if err != nil {
		// Marshalling a map[string]string cannot fail
		panic(fmt.Sprintf("manifest: canonicalize: %v", err))
	}

	return data
}

// ExtractionError reports a malformed embedded manifest.
type ExtractionError struct {
	Line   int // 1-based line of the offending construct
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("invalid embedded manifest at line %d: %s", e.Line, e.Reason)
}

// Extraction is the result of parsing a script's leading content.
type Extraction struct {
	Manifest Manifest
	Kind     Kind

	// Body is the script with manifest lines blanked out. Line numbers are
	// preserved: body line N is original script line N.
	Body string
}

var shorthandPair = regexp.MustCompile(`^\s*([^\s=,]+)\s*=\s*"([^"]*)"\s*$`)

// Extract parses raw script bytes into a Manifest, a Kind and the body with
// the manifest removed. It fails only when a manifest block is present but
// malformed.
func Extract(src []byte) (*Extraction, error) {
	lines := strings.Split(string(src), "\n")

	m := Manifest{}
	found := false

	// Scan the leading comment/blank lines for a manifest. The first
	// convention encountered wins; anything after the first code line is
	// ordinary source.
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, "//") {
			break
		}

		if !found && trimmed == Fence {
			end, err := parseBlock(lines, i, &m)
			if err != nil {
				return nil, err
			}

			blankLines(lines, i, end)
			found = true
			i = end
			continue
		}

		if !found && strings.HasPrefix(trimmed, ShorthandPrefix) {
			if err := parseShorthand(trimmed, i+1, &m); err != nil {
				return nil, err
			}

			lines[i] = ""
			found = true
		}
	}

	body := strings.Join(lines, "\n")

	kind, err := resolveKind(m, body)
	if err != nil {
		return nil, err
	}

	return &Extraction{
		Manifest: m,
		Kind:     kind,
		Body:     body,
	}, nil
}

// parseBlock parses a fenced manifest block starting at lines[start] and
// returns the index of the closing fence.
func parseBlock(lines []string, start int, m *Manifest) (int, error) {
	var interior []string

	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if trimmed == Fence {
			raw := strings.Join(interior, "\n")
			if err := yaml.Unmarshal([]byte(raw), m); err != nil {
				return 0, &ExtractionError{
					Line:   start + 1,
					Reason: fmt.Sprintf("invalid manifest syntax: %v", err),
				}
			}

			return i, nil
		}

		if !strings.HasPrefix(trimmed, "//") {
			return 0, &ExtractionError{
				Line:   i + 1,
				Reason: "manifest block interrupted by non-comment line",
			}
		}

		interior = append(interior, strings.TrimPrefix(strings.TrimPrefix(trimmed, "//"), " "))
	}

	return 0, &ExtractionError{Line: start + 1, Reason: "unterminated manifest block"}
}

// parseShorthand parses the single-line name = "version" list.
func parseShorthand(line string, lineNo int, m *Manifest) error {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ShorthandPrefix))
	if rest == "" {
		return nil
	}

	for _, pair := range strings.Split(rest, ",") {
		match := shorthandPair.FindStringSubmatch(pair)
		if match == nil {
			return &ExtractionError{
				Line:   lineNo,
				Reason: fmt.Sprintf("malformed dependency %q, want name = \"version\"", strings.TrimSpace(pair)),
			}
		}

		if m.Require == nil {
			m.Require = make(map[string]string)
		}

		m.Require[match[1]] = match[2]
	}

	return nil
}

func blankLines(lines []string, from, to int) {
	for i := from; i <= to; i++ {
		lines[i] = ""
	}
}

// resolveKind applies an explicit manifest override or falls back to
// structural inference.
func resolveKind(m Manifest, body string) (Kind, error) {
	switch m.Kind {
	case "":
		return inferKind(body), nil
	case "expression", "expr":
		return KindExpression, nil
	case "bare", "main":
		return KindBare, nil
	case "full", "file":
		return KindFull, nil
	}

	return 0, &ExtractionError{
		Line:   1,
		Reason: fmt.Sprintf("unknown kind %q, want expression, bare or full", m.Kind),
	}
}

// statementKeywords open constructs that cannot be a bare expression.
var statementKeywords = []string{
	"var ", "const ", "type ", "func ", "import ",
	"for ", "for{", "if ", "switch ", "select ", "select{",
	"go ", "defer ", "return", "break", "continue",
}

// inferKind classifies a body with no explicit override. A package clause
// means the script is a complete program; a single logical line that does
// not look like a statement is an expression; everything else is a bare
// statement sequence.
func inferKind(body string) Kind {
	var code []string

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if strings.HasPrefix(trimmed, "package ") {
			return KindFull
		}

		code = append(code, trimmed)
	}

	if len(code) == 1 && isExpression(code[0]) {
		return KindExpression
	}

	return KindBare
}

func isExpression(line string) bool {
	if strings.Contains(line, ";") || strings.Contains(line, ":=") {
		return false
	}

	if strings.HasSuffix(line, "{") {
		return false
	}

	for _, kw := range statementKeywords {
		if strings.HasPrefix(line, kw) || line == strings.TrimSpace(kw) {
			return false
		}
	}

	return true
}
