package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsx/internal/cache"
	"gsx/internal/manifest"
	"gsx/internal/synth"
)

// mockCommander implements Commander interface for testing
type mockCommander struct {
	runFunc func() error
}

func (m *mockCommander) Run() error {
	return m.runFunc()
}

func testEntry(t *testing.T) (*cache.Store, *cache.Entry) {
	t.Helper()

	store, err := cache.New(filepath.Join(t.TempDir(), "gsx"))
	require.NoError(t, err)

	pkg := synth.Synthesize(manifest.Manifest{}, manifest.KindBare, "fmt.Println(42)\n", "test.go")

	key := cache.Key(cache.KeyInput{
		Body:            "fmt.Println(42)\n",
		Kind:            manifest.KindBare,
		TemplateVersion: synth.TemplateVersion,
		Toolchain:       "go version test",
		Profile:         "debug",
	})

	entry, err := store.Create(key, pkg, "/tmp/test.go", manifest.KindBare, "debug", "go version test")
	require.NoError(t, err)

	return store, entry
}

func TestProfileArgs(t *testing.T) {
	assert.Empty(t, ProfileArgs(ProfileDebug))
	assert.Equal(t, []string{"-trimpath", "-ldflags", "-s -w"}, ProfileArgs(ProfileRelease))
}

func TestValidProfile(t *testing.T) {
	assert.True(t, ValidProfile("debug"))
	assert.True(t, ValidProfile("release"))
	assert.False(t, ValidProfile("fast"))
	assert.False(t, ValidProfile(""))
}

func TestBuild_Success(t *testing.T) {
	store, entry := testEntry(t)
	b := New("go")

	// Fake a toolchain that produces the binary and exits zero
	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		return &mockCommander{
			runFunc: func() error {
				return os.WriteFile(store.BinaryPath(entry), []byte("bin"), 0o755)
			},
		}
	}

	binary, err := b.Build(context.Background(), store, entry)
	require.NoError(t, err)
	assert.Equal(t, store.BinaryPath(entry), binary)

	reloaded, err := store.Lookup(entry.Key)
	require.NoError(t, err)
	assert.True(t, reloaded.Built(), "successful build must promote the entry")
}

func TestBuild_SuccessWithoutBinaryIsAnError(t *testing.T) {
	store, entry := testEntry(t)
	b := New("go")

	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		return &mockCommander{runFunc: func() error { return nil }}
	}

	_, err := b.Build(context.Background(), store, entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no binary")

	reloaded, err := store.Lookup(entry.Key)
	require.NoError(t, err)
	assert.False(t, reloaded.Built())
}

func TestBuild_FailureExitCodeIsAuthoritative(t *testing.T) {
	store, entry := testEntry(t)
	b := New("go")

	// A real subprocess with a non-zero exit; output content is irrelevant
	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		return exec.CommandContext(ctx, "sh", "-c", "exit 1")
	}

	_, err := b.Build(context.Background(), store, entry)
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, 1, buildErr.ExitCode)

	reloaded, lookupErr := store.Lookup(entry.Key)
	require.NoError(t, lookupErr)
	assert.False(t, reloaded.Built(), "failed build must leave the entry unbuilt")
}

func TestBuild_FailureRemapsDiagnostics(t *testing.T) {
	store, entry := testEntry(t)
	b := New("go")

	// The bare wrapper puts body line 1 at synthesized line Offset+1
	synthLine := entry.LineMap.Offset + 1

	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		script := fmt.Sprintf("echo './main.go:%d:5: undefined: foo' >&2; exit 1", synthLine)
		return exec.CommandContext(ctx, "sh", "-c", script)
	}

	_, err := b.Build(context.Background(), store, entry)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)

	assert.Contains(t, buildErr.Output, "/tmp/test.go:1:5: undefined: foo")
	assert.NotContains(t, buildErr.Output, "main.go", "generated file names must never surface")
}

func TestBuild_LaunchFailure(t *testing.T) {
	store, entry := testEntry(t)
	b := New("go")

	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		return &mockCommander{
			runFunc: func() error { return fmt.Errorf("command not found") },
		}
	}

	_, err := b.Build(context.Background(), store, entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")

	// A launch failure is not a BuildFailure: there is no exit code to
	// treat as authoritative.
	var buildErr *BuildError
	assert.False(t, errors.As(err, &buildErr))
}

func TestIdentity(t *testing.T) {
	b := New("go")

	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		require.Equal(t, []string{"version"}, args)
		return exec.CommandContext(ctx, "echo", "go version go1.24.0 linux/amd64")
	}

	id, err := b.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "go version go1.24.0 linux/amd64", id)
}

func TestIdentity_NoOutput(t *testing.T) {
	b := New("go")

	b.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		return &mockCommander{runFunc: func() error { return nil }}
	}

	_, err := b.Identity(context.Background())
	require.Error(t, err)
}
