// Package runner executes a cached binary, forwarding arguments, standard
// streams and environment, and propagating the exit status unchanged.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"gsx/internal/cache"
)

// ErrArtifactMissing is returned when an entry is marked built but its
// binary is gone, e.g. externally deleted. Callers treat it as a cache miss
// and retrigger a build.
var ErrArtifactMissing = errors.New("cached binary is missing")

// Options control how the binary is executed. Zero values inherit the
// invoking process's streams, environment and working directory.
type Options struct {
	Args   []string
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the entry's binary and returns its exit status. Output is
// passed through untouched. Cancelling ctx kills the child so no orphaned
// process outlives the invocation.
func Run(ctx context.Context, store *cache.Store, entry *cache.Entry, opts Options) (int, error) {
	binary := store.BinaryPath(entry)

	if _, err := os.Stat(binary); err != nil {
		if os.IsNotExist(err) {
			return 0, ErrArtifactMissing
		}

		return 0, fmt.Errorf("failed to stat %s: %w", binary, err)
	}

	cmd := exec.CommandContext(ctx, binary, opts.Args...)
	cmd.Dir = opts.Dir

	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	cmd.Stdin = opts.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}

	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Shell convention for abnormal termination
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}

		return exitErr.ExitCode(), nil
	}

	if os.IsNotExist(err) {
		return 0, ErrArtifactMissing
	}

	return 0, fmt.Errorf("failed to launch %s: %w", binary, err)
}
