package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsx/internal/cache"
	"gsx/internal/manifest"
	"gsx/internal/synth"
)

// builtEntry stores an executable shell stub as the entry's binary so the
// runner can be exercised without a real toolchain build.
func builtEntry(t *testing.T, script string) (*cache.Store, *cache.Entry) {
	t.Helper()

	store, err := cache.New(filepath.Join(t.TempDir(), "gsx"))
	require.NoError(t, err)

	pkg := synth.Synthesize(manifest.Manifest{}, manifest.KindBare, "fmt.Println(42)\n", "test.go")

	key := cache.Key(cache.KeyInput{
		Body:            script,
		Kind:            manifest.KindBare,
		TemplateVersion: synth.TemplateVersion,
		Toolchain:       "go version test",
		Profile:         "debug",
	})

	entry, err := store.Create(key, pkg, "/tmp/test.go", manifest.KindBare, "debug", "go version test")
	require.NoError(t, err)

	binary := store.BinaryPath(entry)
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"+script), 0o755))
	require.NoError(t, store.MarkBuilt(entry, binary))

	return store, entry
}

func TestRun_ExitStatusForwarded(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"success", "exit 0", 0},
		{"explicit status", "exit 7", 7},
		{"failure", "exit 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, entry := builtEntry(t, tt.script)

			status, err := Run(context.Background(), store, entry, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestRun_ForwardsArgumentsAndStreams(t *testing.T) {
	store, entry := builtEntry(t, `echo "got:$1:$2"`)

	var stdout, stderr bytes.Buffer
	status, err := Run(context.Background(), store, entry, Options{
		Args:   []string{"alpha", "beta"},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, status)
	assert.Equal(t, "got:alpha:beta\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRun_ForwardsStdin(t *testing.T) {
	store, entry := builtEntry(t, "cat")

	var stdout bytes.Buffer
	status, err := Run(context.Background(), store, entry, Options{
		Stdin:  bytes.NewBufferString("pass through\n"),
		Stdout: &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, status)
	assert.Equal(t, "pass through\n", stdout.String())
}

func TestRun_ForwardsEnvironment(t *testing.T) {
	store, entry := builtEntry(t, `echo "$GSX_TEST_VALUE"`)

	var stdout bytes.Buffer
	status, err := Run(context.Background(), store, entry, Options{
		Env:    []string{"GSX_TEST_VALUE=marker"},
		Stdout: &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, status)
	assert.Equal(t, "marker\n", stdout.String())
}

func TestRun_ArtifactMissing(t *testing.T) {
	store, entry := builtEntry(t, "exit 0")

	require.NoError(t, os.Remove(store.BinaryPath(entry)))

	_, err := Run(context.Background(), store, entry, Options{})
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestRun_WorkingDirectory(t *testing.T) {
	store, entry := builtEntry(t, "pwd")
	dir := t.TempDir()

	var stdout bytes.Buffer
	status, err := Run(context.Background(), store, entry, Options{
		Dir:    dir,
		Stdout: &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, status)
	assert.Contains(t, stdout.String(), filepath.Base(dir))
}
