package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prism-dev/prism/internal/discovery"
	"github.com/prism-dev/prism/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the context discovery cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Show cache statistics for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := openProjectCache(projectArg(args))
		stats := cache.Stats()
		fmt.Printf("Context cache: %d entries, %d hits, %d misses\n", stats.Entries, stats.Hits, stats.Misses)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [path]",
	Short: "Drop every cached project scan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		openProjectCache(projectArg(args)).Clear()
		fmt.Println("Context cache cleared.")
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [path]",
	Short: "Drop cached scans for one project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := projectArg(args)
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		openProjectCache(root).Invalidate(abs)
		fmt.Println("Cached scans for this project dropped.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}

func projectArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// openProjectCache opens the cache where discovery would write it for
// the given project root
func openProjectCache(root string) *discovery.ContextCache {
	logger := newLogger()
	cfg := discovery.LoadProjectConfig(root, logger)
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(root, storage.DirName, "cache")
	}
	return discovery.NewContextCache(cacheDir, logger)
}

// writeResultJSON pretty-prints a discovery result
func writeResultJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
