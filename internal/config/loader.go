package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForScript loads configuration for running or building a script.
// scriptPath may be empty for inline or stdin input, in which case local
// config discovery starts from the working directory.
func (l *Loader) LoadForScript(cmd *cobra.Command, scriptPath string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(scriptPath)
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("toolchain_path", DefaultToolchain)
	viper.SetDefault("profile", DefaultProfile)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("lock_wait", DefaultLockWait)
}

// loadGlobalConfig loads global configuration from the user config dir
func (l *Loader) loadGlobalConfig() {
	base, err := os.UserConfigDir()
	if err != nil {
		return
	}

	globalDir := filepath.Join(base, "gsx")

	for _, ext := range configExts {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig loads local configuration from the script's directory
func (l *Loader) loadLocalConfig(scriptPath string) {
	dir := ""

	if scriptPath != "" {
		abs, err := filepath.Abs(scriptPath)
		if err != nil {
			return // silently ignore, Load() will handle validation
		}

		dir = filepath.Dir(abs)
	} else if cwd, err := os.Getwd(); err == nil {
		dir = cwd
	}

	if dir == "" {
		return
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.ReadInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("toolchain_path", cmd.Flags().Lookup("toolchain"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("profile", cmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	_ = viper.BindPFlag("no-cache", cmd.Flags().Lookup("no-cache"))
	_ = viper.BindPFlag("force", cmd.Flags().Lookup("force"))
}
