package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gsx/internal/cache"
	"gsx/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the build cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Remove all cached builds",
	RunE:         runCacheClean,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show cache entry count and size",
	RunE:         runCacheStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func openStore(cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := config.NewLoader().LoadForScript(cmd, "")
	if err != nil {
		return nil, err
	}

	root := cfg.CacheDir
	if root == "" {
		root, err = cache.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}

	return cache.New(root)
}

func runCacheClean(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	if err := store.Clear(); err != nil {
		return err
	}

	fmt.Printf("Cleared cache at %s\n", store.Root())

	return nil
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	count, size, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Cache root: %s\nEntries: %d\nSize: %.1f MiB\n",
		store.Root(), count, float64(size)/(1024*1024))

	return nil
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}
