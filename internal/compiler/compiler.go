// Package compiler orchestrates the external Go toolchain against a cache
// entry's synthesized package. It is the only package permitted to spawn
// the toolchain process.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"gsx/internal/cache"
)

// Profiles supported by the build command.
const (
	ProfileDebug   = "debug"
	ProfileRelease = "release"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// Builder invokes the toolchain to compile synthesized packages.
type Builder struct {
	// Toolchain is the toolchain executable, usually "go".
	Toolchain string

	// Verbose streams toolchain output as it is produced. When false the
	// output is captured and replayed only on failure, so errors are never
	// silently lost.
	Verbose bool

	// LogTo receives streamed verbose output. Defaults to os.Stderr.
	LogTo io.Writer

	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// New creates a builder driving the given toolchain executable.
func New(toolchain string) *Builder {
	return &Builder{
		Toolchain: toolchain,
		LogTo:     os.Stderr,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// BuildError reports a failed toolchain invocation. Output holds the
// diagnostic text with positions already remapped to the original script.
type BuildError struct {
	ExitCode int
	Output   string
}

func (e *BuildError) Error() string {
	out := strings.TrimRight(e.Output, "\n")
	if out == "" {
		return fmt.Sprintf("build failed (exit code %d)", e.ExitCode)
	}

	return fmt.Sprintf("build failed (exit code %d)\n%s", e.ExitCode, out)
}

// Build compiles the entry's synthesized package. On success the produced
// binary's path is returned and the entry is promoted via MarkBuilt. On
// failure the entry stays unbuilt and the returned error carries the
// remapped diagnostics. The toolchain's exit code is authoritative
// regardless of captured output content.
func (b *Builder) Build(ctx context.Context, store *cache.Store, entry *cache.Entry) (string, error) {
	binary := store.BinaryPath(entry)

	args := append([]string{"build"}, ProfileArgs(entry.Profile)...)
	args = append(args, "-o", binary, ".")

	var captured bytes.Buffer
	out := io.Writer(&captured)
	if b.Verbose {
		logTo := b.LogTo
		if logTo == nil {
			logTo = os.Stderr
		}
		out = io.MultiWriter(&captured, logTo)
	}

	c := b.execCommand(ctx, b.Toolchain, args...)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Dir = entry.Dir
		cmd.Stdout = out
		cmd.Stderr = out
		// The synthesized module has no go.sum; let the toolchain resolve
		// and record the declared requirements itself.
		cmd.Env = append(os.Environ(), "GOFLAGS=-mod=mod")
	}

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &BuildError{
				ExitCode: exitErr.ExitCode(),
				Output:   Remap(captured.String(), entry.Script, entry.LineMap),
			}
		}

		return "", fmt.Errorf("failed to run %s: %w", b.Toolchain, err)
	}

	if _, err := os.Stat(binary); err != nil {
		return "", fmt.Errorf("toolchain reported success but produced no binary at %s: %w", binary, err)
	}

	if err := store.MarkBuilt(entry, binary); err != nil {
		return "", err
	}

	return binary, nil
}

// ProfileArgs translates a build profile into toolchain flags.
func ProfileArgs(profile string) []string {
	switch profile {
	case ProfileRelease:
		return []string{"-trimpath", "-ldflags", "-s -w"}
	default:
		return nil
	}
}

// ValidProfile reports whether profile names a known build profile.
func ValidProfile(profile string) bool {
	return profile == ProfileDebug || profile == ProfileRelease
}

// Identity returns the toolchain's identity string, the first line of its
// version report. It participates in cache key derivation so a toolchain
// upgrade invalidates existing entries without an explicit migration.
func (b *Builder) Identity(ctx context.Context) (string, error) {
	var captured bytes.Buffer

	c := b.execCommand(ctx, b.Toolchain, "version")
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Stdout = &captured
	}

	if err := c.Run(); err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", b.Toolchain, err)
	}

	line, _, _ := strings.Cut(captured.String(), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s version produced no output", b.Toolchain)
	}

	return line, nil
}
