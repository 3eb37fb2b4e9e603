package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ispc-build/ispcb/internal/cache"
	"github.com/ispc-build/ispcb/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the build cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show build cache statistics",
	RunE:         runCacheStats,
	SilenceUsage: true,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove all build cache metadata",
	RunE:         runCacheClear,
	SilenceUsage: true,
}

func init() {
	cacheCmd.PersistentFlags().StringP("out", "o", config.DefaultOutDir, "Build directory holding the cache")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openCache(cmd *cobra.Command) (*cache.Cache, error) {
	out, _ := cmd.Flags().GetString("out")

	return cache.New(filepath.Join(out, cache.DefaultCacheDir))
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	c, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	count, size, err := c.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("artifacts: %d\n", count)
	fmt.Printf("db size:   %d bytes\n", size)

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Clear(); err != nil {
		return err
	}

	fmt.Println("cache cleared")

	return nil
}
