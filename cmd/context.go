package cmd

import (
	gocontext "context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/prism-dev/prism/internal/discovery"
	"github.com/prism-dev/prism/internal/storage"
)

var (
	contextQuery     string
	contextMaxTokens int
	contextChunks    bool
	contextStrategy  string
	contextNoCache   bool
	contextJSON      bool
)

var contextCmd = &cobra.Command{
	Use:   "context [path]",
	Short: "Preview the context Prism would select for a project",
	Long: `Scans a project, scores every file for relevance, and shows which
files fit the token budget. No model call is made.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		return runContext(root)
	},
}

func init() {
	contextCmd.Flags().StringVarP(&contextQuery, "query", "q", "", "re-rank files for a specific question")
	contextCmd.Flags().IntVar(&contextMaxTokens, "max-tokens", 0, "token budget override")
	contextCmd.Flags().BoolVar(&contextChunks, "chunks", false, "split the project into chunks instead of one selection")
	contextCmd.Flags().StringVar(&contextStrategy, "strategy", "", "chunking strategy (module, functional, token, hierarchical)")
	contextCmd.Flags().BoolVar(&contextNoCache, "no-cache", false, "force a fresh scan")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "emit the raw result as JSON")

	rootCmd.AddCommand(contextCmd)
}

func runContext(root string) error {
	logger := newLogger()

	cfg := discovery.LoadProjectConfig(root, logger)
	if contextMaxTokens > 0 {
		cfg.MaxTokens = contextMaxTokens
	}
	if contextStrategy != "" {
		strategy, err := discovery.ParseChunkStrategy(contextStrategy)
		if err != nil {
			return err
		}
		cfg.ChunkStrategy = strategy
	}
	if contextNoCache {
		cfg.CacheEnabled = false
	}

	opts := []discovery.Option{discovery.WithLogger(logger)}
	if cfg.CacheEnabled {
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(root, storage.DirName, "cache")
		}
		opts = append(opts, discovery.WithCache(discovery.NewContextCache(cacheDir, logger)))
	}
	smart := discovery.New(cfg, opts...)

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 60*time.Second)
	defer cancel()

	var res *discovery.Result
	var err error
	if contextChunks {
		res, err = smart.DiscoverChunks(ctx, root, contextQuery)
	} else {
		res, err = smart.Discover(ctx, root, contextQuery)
	}
	if err != nil {
		return err
	}

	if contextJSON {
		return writeResultJSON(os.Stdout, res)
	}
	fmt.Print(discovery.FormatPreview(res, cfg.MaxTokens))
	return nil
}
