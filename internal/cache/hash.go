package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"gsx/internal/manifest"
)

// KeyInput gathers everything that affects build output. Any change to any
// field yields a different key; equal inputs always yield equal keys.
type KeyInput struct {
	// Body is the script body with the manifest removed.
	Body string

	// Manifest is the extracted dependency declaration. It is folded in via
	// its canonical serialization, so whitespace-only edits inside the
	// manifest block do not change the key.
	Manifest manifest.Manifest

	// Kind is the script's structural classification.
	Kind manifest.Kind

	// TemplateVersion identifies the synthesizer's wrapper templates.
	TemplateVersion string

	// Toolchain is the external toolchain's identity string.
	Toolchain string

	// Profile is the requested build profile.
	Profile string
}

// Key computes the cache key for the given inputs: a SHA-256 digest over
// the length-framed fields. Length framing keeps field boundaries
// unambiguous regardless of field content.
func Key(in KeyInput) string {
	h := sha256.New()

	writeField(h, []byte(in.Body))
	writeField(h, in.Manifest.Canonical())
	writeField(h, []byte(in.Kind.String()))
	writeField(h, []byte(in.TemplateVersion))
	writeField(h, []byte(in.Toolchain))
	writeField(h, []byte(in.Profile))

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, field []byte) {
	fmt.Fprintf(h, "%d\x00", len(field))
	h.Write(field)
}
