package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// SmartContext orchestrates the discovery pipeline: detect project →
// collect candidates → analyze/score → cache → query filter →
// optimize/chunk → materialize. Data flows downstream only; a cache hit
// short-circuits the detect/collect/score stages.
type SmartContext struct {
	cfg       Config
	analyzer  *FileAnalyzer
	optimizer *TokenOptimizer
	chunker   *ContextChunker
	cache     *ContextCache
	logger    *zap.Logger

	// collect is swappable so tests can count walk invocations
	collect func(root string, project *ProjectInfo, cfg Config) ([]string, error)
}

// Option customizes a SmartContext
type Option func(*SmartContext)

// WithLogger injects a logger; the default is a nop logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *SmartContext) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache attaches a context cache. Without one (or with caching
// disabled in the config) every call performs a full scan.
func WithCache(cache *ContextCache) Option {
	return func(s *SmartContext) { s.cache = cache }
}

// withCollector replaces the candidate collector (test hook)
func withCollector(fn func(string, *ProjectInfo, Config) ([]string, error)) Option {
	return func(s *SmartContext) { s.collect = fn }
}

// New creates a SmartContext for the given configuration
func New(cfg Config, opts ...Option) *SmartContext {
	s := &SmartContext{
		cfg:     cfg,
		logger:  zap.NewNop(),
		collect: CollectCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.analyzer = NewFileAnalyzer(cfg, s.logger)
	s.optimizer = NewTokenOptimizer(OptimizationConfig{
		MaxTokens: cfg.MaxTokens,
		Strategy:  StrategyTruncate,
	})
	s.chunker = NewContextChunker(cfg.ChunkTokens, s.logger)
	return s
}

// Cache exposes the attached cache for diagnostics; may be nil
func (s *SmartContext) Cache() *ContextCache { return s.cache }

// Config returns the configuration the engine was built with
func (s *SmartContext) Config() Config { return s.cfg }

// Discover runs the full pipeline and materializes the selected files.
// query may be empty. A bad root is the only fatal input error; everything
// else degrades: unreadable files are dropped with a warning in the
// result, cache failures fall back to a full scan.
func (s *SmartContext) Discover(ctx context.Context, root, query string) (*Result, error) {
	res, ranked, err := s.score(ctx, root, query)
	if err != nil {
		return nil, err
	}

	for _, sel := range s.optimizer.OptimizeFiles(ranked) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := loadSelected(res.Project.RootPath, sel)
		if err != nil {
			warning := fmt.Sprintf("skipping unreadable file %s", sel.Path)
			res.Warnings = append(res.Warnings, warning)
			s.logger.Warn(warning, zap.Error(err))
			continue
		}
		res.Files = append(res.Files, content)
		res.TotalTokens += content.Tokens
	}
	return res, nil
}

// DiscoverChunks runs the pipeline in chunked mode: the ranked score set
// is handed to the chunker instead of the single-budget optimizer
func (s *SmartContext) DiscoverChunks(ctx context.Context, root, query string) (*Result, error) {
	strategy, err := ParseChunkStrategy(string(s.cfg.ChunkStrategy))
	if err != nil {
		return nil, err // caller input error, surfaced before any discovery work
	}

	res, ranked, err := s.score(ctx, root, query)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunker.Chunk(res.Project.RootPath, strategy, ranked, res.Project)
	if err != nil {
		return nil, err
	}
	res.Chunks = chunks
	for _, chunk := range chunks {
		res.TotalTokens += chunk.EstimatedTokens
	}
	return res, nil
}

// score runs the shared front half of the pipeline and returns the result
// shell plus the query-ranked scores
func (s *SmartContext) score(ctx context.Context, root, query string) (*Result, []FileScore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve project root: %w", err)
	}
	stat, err := os.Stat(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("project root: %w", err)
	}
	if !stat.IsDir() {
		return nil, nil, fmt.Errorf("project root %s is not a directory", absRoot)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	hash := s.cfg.Fingerprint()

	var (
		project   *ProjectInfo
		scores    []FileScore
		fromCache bool
	)
	if s.cache != nil && s.cfg.CacheEnabled {
		if entry := s.cache.Get(absRoot, hash); entry != nil {
			project = entry.Project
			scores = entry.Scores
			fromCache = true
		}
	}

	if !fromCache {
		project, err = DetectProject(absRoot)
		if err != nil {
			return nil, nil, err
		}
		candidates, err := s.collect(absRoot, project, s.cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("collect candidates: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		scores = s.analyzer.AnalyzeFiles(absRoot, candidates, project)
		s.analyzer.AnalyzeDependencies(absRoot, scores)

		// Cache writes happen only here, after a full successful
		// analysis pass; an abandoned call never persists partial state
		if s.cache != nil && s.cfg.CacheEnabled {
			s.cache.Put(absRoot, hash, project, scores)
		}
	}

	ranked := s.analyzer.FilterByQuery(scores, query)

	res := &Result{
		Project:   project,
		Scores:    ranked,
		FromCache: fromCache,
	}
	return res, ranked, nil
}
