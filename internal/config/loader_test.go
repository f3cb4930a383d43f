package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCommand mirrors the flag set the real commands register.
func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("profile", "p", "", "")
	cmd.Flags().BoolP("verbose", "v", false, "")
	cmd.Flags().Bool("force", false, "")
	cmd.Flags().Bool("no-cache", false, "")
	cmd.Flags().String("toolchain", "", "")
	cmd.Flags().String("cache-dir", "", "")

	return cmd
}

func TestLoadForScript_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := NewLoader().LoadForScript(testCommand(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultToolchain, cfg.ToolchainPath)
	assert.Equal(t, DefaultProfile, cfg.Profile)
}

func TestLoadForScript_FlagOverridesDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Set("profile", "release"))
	require.NoError(t, cmd.Flags().Set("toolchain", "/opt/go/bin/go"))

	cfg, err := NewLoader().LoadForScript(cmd, "")
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Profile)
	assert.Equal(t, "/opt/go/bin/go", cfg.ToolchainPath)
}

func TestLoadForScript_LocalConfigNextToScript(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ".gsx.yml"),
		[]byte("profile: release\n"),
		0o644,
	))

	script := filepath.Join(dir, "demo.go")
	require.NoError(t, os.WriteFile(script, []byte("1 + 1\n"), 0o644))

	cfg, err := NewLoader().LoadForScript(testCommand(), script)
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Profile)
}

func TestLoadForScript_FlagOutranksLocalConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ".gsx.yml"),
		[]byte("profile: release\n"),
		0o644,
	))

	script := filepath.Join(dir, "demo.go")
	require.NoError(t, os.WriteFile(script, []byte("1 + 1\n"), 0o644))

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Set("profile", "debug"))

	cfg, err := NewLoader().LoadForScript(cmd, script)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Profile)
}
