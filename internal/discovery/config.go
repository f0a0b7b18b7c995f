package discovery

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ChunkStrategy selects how oversized projects are split into chunks
type ChunkStrategy string

const (
	ChunkByModule     ChunkStrategy = "module"
	ChunkByFunction   ChunkStrategy = "functional"
	ChunkByToken      ChunkStrategy = "token"
	ChunkHierarchical ChunkStrategy = "hierarchical"
)

// ParseChunkStrategy validates a strategy name from user input.
// An unknown name is a caller error, surfaced before any discovery work.
func ParseChunkStrategy(name string) (ChunkStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "module":
		return ChunkByModule, nil
	case "functional":
		return ChunkByFunction, nil
	case "token":
		return ChunkByToken, nil
	case "hierarchical", "":
		return ChunkHierarchical, nil
	default:
		return "", fmt.Errorf("unknown chunk strategy %q (valid: module, functional, token, hierarchical)", name)
	}
}

// ProjectConfigFile is the project-local configuration file name
const ProjectConfigFile = ".prism.yaml"

// Config controls one discovery call. It is an explicit value passed down
// the call chain; the engine never reads global state.
type Config struct {
	MaxTokens        int           `yaml:"max_tokens"`
	IncludePatterns  []string      `yaml:"include"`
	ExcludePatterns  []string      `yaml:"exclude"`
	PriorityPatterns []string      `yaml:"priority"`
	CacheEnabled     bool          `yaml:"cache"`
	CacheDir         string        `yaml:"cache_dir"`
	ChunkingEnabled  bool          `yaml:"chunking"`
	ChunkStrategy    ChunkStrategy `yaml:"chunk_strategy"`
	ChunkTokens      int           `yaml:"chunk_tokens"`
	MaxDepth         int           `yaml:"max_depth"`
	MaxFileSize      int64         `yaml:"max_file_size"`
}

// DefaultConfig returns the configuration used when a project has no
// .prism.yaml of its own
func DefaultConfig() Config {
	return Config{
		MaxTokens:       32000,
		CacheEnabled:    true,
		ChunkStrategy:   ChunkHierarchical,
		ChunkTokens:     8000,
		MaxDepth:        8,
		MaxFileSize:     1 << 20, // 1 MB ceiling, filtered before scoring
	}
}

// Fingerprint hashes the scoring-relevant configuration fields: max tokens
// and the include/exclude/priority patterns. Changing any of these must
// invalidate cached scores; changing anything else must not.
func (c Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "max_tokens=%d\n", c.MaxTokens)
	fmt.Fprintf(h, "include=%s\n", strings.Join(c.IncludePatterns, ","))
	fmt.Fprintf(h, "exclude=%s\n", strings.Join(c.ExcludePatterns, ","))
	fmt.Fprintf(h, "priority=%s\n", strings.Join(c.PriorityPatterns, ","))
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// LoadProjectConfig merges a project-local .prism.yaml over the defaults.
// A missing file is normal; an unparseable one degrades to defaults.
func LoadProjectConfig(root string, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := DefaultConfig()

	path := filepath.Join(root, ProjectConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	// Booleans are pointers so "absent" and "false" stay distinguishable.
	var overlay struct {
		MaxTokens        int      `yaml:"max_tokens"`
		IncludePatterns  []string `yaml:"include"`
		ExcludePatterns  []string `yaml:"exclude"`
		PriorityPatterns []string `yaml:"priority"`
		CacheEnabled     *bool    `yaml:"cache"`
		CacheDir         string   `yaml:"cache_dir"`
		ChunkingEnabled  *bool    `yaml:"chunking"`
		ChunkStrategy    string   `yaml:"chunk_strategy"`
		ChunkTokens      int      `yaml:"chunk_tokens"`
		MaxDepth         int      `yaml:"max_depth"`
		MaxFileSize      int64    `yaml:"max_file_size"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		logger.Warn("ignoring unparseable project config",
			zap.String("path", path), zap.Error(err))
		return cfg
	}

	if overlay.MaxTokens > 0 {
		cfg.MaxTokens = overlay.MaxTokens
	}
	if len(overlay.IncludePatterns) > 0 {
		cfg.IncludePatterns = overlay.IncludePatterns
	}
	if len(overlay.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = overlay.ExcludePatterns
	}
	if len(overlay.PriorityPatterns) > 0 {
		cfg.PriorityPatterns = overlay.PriorityPatterns
	}
	if overlay.ChunkTokens > 0 {
		cfg.ChunkTokens = overlay.ChunkTokens
	}
	if overlay.MaxDepth > 0 {
		cfg.MaxDepth = overlay.MaxDepth
	}
	if overlay.MaxFileSize > 0 {
		cfg.MaxFileSize = overlay.MaxFileSize
	}
	if overlay.ChunkStrategy != "" {
		if strategy, err := ParseChunkStrategy(overlay.ChunkStrategy); err == nil {
			cfg.ChunkStrategy = strategy
		} else {
			logger.Warn("ignoring invalid chunk strategy in project config", zap.Error(err))
		}
	}
	if overlay.CacheDir != "" {
		cfg.CacheDir = overlay.CacheDir
	}
	if overlay.CacheEnabled != nil {
		cfg.CacheEnabled = *overlay.CacheEnabled
	}
	if overlay.ChunkingEnabled != nil {
		cfg.ChunkingEnabled = *overlay.ChunkingEnabled
	}

	return cfg
}
