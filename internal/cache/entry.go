package cache

import (
	"time"

	"gsx/internal/synth"
)

// Entry is the on-disk unit of reuse, identified by its cache key. Entries
// are content-addressed: once built they are never edited, a changed script
// simply produces a new key and a new entry.
type Entry struct {
	// Key is the cache key this entry is stored under.
	Key string `json:"key"`

	// Name is the synthesized package name, also the binary's base name.
	Name string `json:"name"`

	// Script is the original script path or label, kept for diagnostics.
	Script string `json:"script"`

	// Kind is the script's structural classification.
	Kind string `json:"kind"`

	// Profile is the build profile the entry was synthesized for.
	Profile string `json:"profile"`

	// Toolchain is the toolchain identity captured at creation.
	Toolchain string `json:"toolchain"`

	// LineMap relates synthesized source lines to script lines.
	LineMap synth.LineMap `json:"line_map"`

	// Binary is the built artifact's path relative to the entry directory.
	// It is the sole truth source for "built": empty means the entry has
	// never completed a successful build.
	Binary string `json:"binary,omitempty"`

	// Builds counts successful builds of this entry.
	Builds int `json:"builds"`

	// CreatedAt is when the entry directory was first populated.
	CreatedAt time.Time `json:"created_at"`

	// BuiltAt is when the entry was last promoted to built.
	BuiltAt time.Time `json:"built_at,omitempty"`

	// Dir is the entry's directory, resolved by the store on load.
	Dir string `json:"-"`
}

// Built reports whether the entry holds a successfully built binary.
func (e *Entry) Built() bool {
	return e.Binary != ""
}
