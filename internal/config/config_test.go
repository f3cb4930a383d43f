package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultToolchain, cfg.ToolchainPath)
	assert.Equal(t, DefaultProfile, cfg.Profile)
	assert.Equal(t, DefaultLockWait, cfg.LockWait)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.CacheDir)
}

func TestLoad_FromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("toolchain_path", "/usr/local/go/bin/go")
	viper.Set("profile", "release")
	viper.Set("verbose", true)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/go/bin/go", cfg.ToolchainPath)
	assert.Equal(t, "release", cfg.Profile)
	assert.True(t, cfg.Verbose)
}

func TestLoad_InvalidProfile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("profile", "fast")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build profile")
}

func TestValidate_ResolvesCacheDir(t *testing.T) {
	cfg := &Config{
		Profile:  "debug",
		CacheDir: "relative/cache",
	}

	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.CacheDir))
}
