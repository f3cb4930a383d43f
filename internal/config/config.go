package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"gsx/internal/compiler"
)

// Default configuration values
const (
	DefaultToolchain = "go"
	DefaultProfile   = compiler.ProfileDebug
	DefaultVerbose   = false
	DefaultLockWait  = 2 * time.Minute
)

// Holds the configuration options for gsx
type Config struct {
	// Toolchain executable used to build synthesized packages
	ToolchainPath string

	// Cache root directory; empty means the platform default
	CacheDir string

	// Build profile (debug, release)
	Profile string

	// How long to wait on another process's build lock
	LockWait time.Duration

	// Enable verbose output
	Verbose bool

	// Skip cache lookup and always rebuild
	NoCache bool

	// Purge the entry and rebuild even on a hit
	Force bool
}

func Load() (*Config, error) {
	cfg := &Config{
		ToolchainPath: viper.GetString("toolchain_path"),
		CacheDir:      viper.GetString("cache_dir"),
		Profile:       viper.GetString("profile"),
		LockWait:      viper.GetDuration("lock_wait"),
		Verbose:       viper.GetBool("verbose"),
		NoCache:       viper.GetBool("no-cache"),
		Force:         viper.GetBool("force"),
	}

	// Apply defaults if not set
	if cfg.ToolchainPath == "" {
		cfg.ToolchainPath = DefaultToolchain
	}

	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}

	if cfg.LockWait <= 0 {
		cfg.LockWait = DefaultLockWait
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if !compiler.ValidProfile(c.Profile) {
		return fmt.Errorf("invalid build profile: %s", c.Profile)
	}

	// Resolve cache dir if explicitly set
	if c.CacheDir != "" {
		abs, err := filepath.Abs(c.CacheDir)
		if err != nil {
			return fmt.Errorf("invalid cache directory: %v", err)
		}

		c.CacheDir = abs
	}

	return nil
}
