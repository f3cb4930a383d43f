package compiler

import (
	"fmt"
	"regexp"
	"strconv"

	"gsx/internal/synth"
)

// diagPattern matches file:line[:column] tokens the toolchain reports
// against the synthesized source, in both "./main.go:3:5" and "main.go:3"
// forms.
var diagPattern = regexp.MustCompile(
	`(?m)^(?:\./)?` + regexp.QuoteMeta(synth.SourceFile) + `:(\d+)(?::(\d+))?`,
)

// Remap rewrites every diagnostic position reported against the synthesized
// source through the line map, substituting the original script path so the
// user never sees generated file names. Positions on boilerplate lines the
// synthesizer injected have no original line and are reported against the
// script as a whole.
func Remap(output, scriptPath string, lm synth.LineMap) string {
	return diagPattern.ReplaceAllStringFunc(output, func(token string) string {
		groups := diagPattern.FindStringSubmatch(token)

		line, err := strconv.Atoi(groups[1])
		if err != nil {
			return scriptPath
		}

		orig, ok := lm.Map(line)
		if !ok {
			return scriptPath
		}

		if groups[2] != "" {
			return fmt.Sprintf("%s:%d:%s", scriptPath, orig, groups[2])
		}

		return fmt.Sprintf("%s:%d", scriptPath, orig)
	})
}
