package synth

// LineMap translates line numbers in a synthesized source file back to line
// numbers in the original script. Synthesis is pure textual composition, so
// the mapping is a single contiguous span at a constant offset: synthesized
// lines [Start, End] correspond to original lines [Start-Offset, End-Offset].
// Lines outside the span are wrapper boilerplate with no original position.
type LineMap struct {
	Start  int // first synthesized line backed by the script
	End    int // last synthesized line backed by the script
	Offset int // original line = synthesized line - Offset
}

// Identity returns the map for a source used verbatim, n lines long.
func Identity(n int) LineMap {
	return LineMap{Start: 1, End: n, Offset: 0}
}

// Map translates a synthesized line to the original script line. The second
// return is false for boilerplate lines the synthesizer injected.
func (m LineMap) Map(line int) (int, bool) {
	if line < m.Start || line > m.End {
		return 0, false
	}

	orig := line - m.Offset
	if orig < 1 {
		return 0, false
	}

	return orig, true
}
