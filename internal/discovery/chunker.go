package discovery

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// bucketCap limits how many files a functional bucket may hold
const bucketCap = 10

// functionalBuckets defines the fixed bucket order and priorities of the
// functional strategy: Core > Config > Docs > Utils > Tests
var functionalBuckets = []struct {
	typ      ChunkType
	name     string
	desc     string
	priority float64
}{
	{ChunkCore, "core", "Core source files", 1.0},
	{ChunkConfig, "config", "Configuration and manifests", 0.8},
	{ChunkDocs, "docs", "Documentation", 0.6},
	{ChunkUtils, "utils", "Utilities and helpers", 0.4},
	{ChunkTests, "tests", "Test files", 0.2},
}

// ContextChunker splits a scored file set into an ordered chunk sequence
// when the project cannot fit a single selection. The strategy is chosen
// once per discovery call; there are no runtime transitions.
type ContextChunker struct {
	chunkTokens int
	logger      *zap.Logger
}

// NewContextChunker creates a chunker with the given per-chunk token budget
func NewContextChunker(chunkTokens int, logger *zap.Logger) *ContextChunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextChunker{chunkTokens: chunkTokens, logger: logger}
}

// Chunk builds the chunk sequence for the given strategy. The returned
// order is the delivery order: highest priority (or the overview) first.
func (c *ContextChunker) Chunk(root string, strategy ChunkStrategy, scores []FileScore, project *ProjectInfo) ([]ContextChunk, error) {
	switch strategy {
	case ChunkByModule:
		return c.moduleChunks(root, scores), nil
	case ChunkByFunction:
		return c.functionalChunks(root, scores, 0), nil
	case ChunkByToken:
		return c.tokenChunks(root, scores), nil
	case ChunkHierarchical:
		return c.hierarchicalChunks(root, scores, project), nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", strategy)
	}
}

// moduleChunks groups files by directory, one chunk per directory, each
// internally budget-constrained. Module priority is the average relevance,
// boosted when the module contains an entry point.
func (c *ContextChunker) moduleChunks(root string, scores []FileScore) []ContextChunk {
	groups := make(map[string][]FileScore)
	for _, score := range scores {
		dir := filepath.ToSlash(filepath.Dir(score.Path))
		if dir == "." {
			dir = "root"
		}
		groups[dir] = append(groups[dir], score)
	}

	type module struct {
		name     string
		priority float64
		files    []FileScore
	}
	modules := make([]module, 0, len(groups))
	for dir, group := range groups {
		var sum float64
		hasEntry := false
		for _, score := range group {
			sum += score.Relevance
			if score.HasFactor(FactorEntryPoint) {
				hasEntry = true
			}
		}
		priority := sum / float64(len(group))
		if hasEntry {
			priority += 0.25
		}
		modules = append(modules, module{name: dir, priority: priority, files: group})
	}
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].priority != modules[j].priority {
			return modules[i].priority > modules[j].priority
		}
		return modules[i].name < modules[j].name
	})

	var chunks []ContextChunk
	for i, mod := range modules {
		chunk := c.buildChunk(root, chunkSpec{
			id:       fmt.Sprintf("module-%02d", i+1),
			name:     mod.name,
			desc:     fmt.Sprintf("Files under %s/", mod.name),
			typ:      ChunkCore,
			priority: mod.priority,
		}, mod.files)
		if chunk != nil {
			chunks = append(chunks, *chunk)
		}
	}
	return chunks
}

// functionalChunks partitions files into fixed buckets by file type and
// importance factors, capping each bucket to its top files by relevance.
// priorityShift lowers all bucket priorities uniformly so a caller can
// slot an overview chunk above them.
func (c *ContextChunker) functionalChunks(root string, scores []FileScore, priorityShift float64) []ContextChunk {
	buckets := make(map[ChunkType][]FileScore)
	for _, score := range scores {
		buckets[functionalBucket(score)] = append(buckets[functionalBucket(score)], score)
	}

	var chunks []ContextChunk
	for i, spec := range functionalBuckets {
		group := buckets[spec.typ]
		if len(group) == 0 {
			continue
		}
		sortScores(group)
		if len(group) > bucketCap {
			group = group[:bucketCap]
		}
		chunk := c.buildChunk(root, chunkSpec{
			id:       fmt.Sprintf("functional-%02d", i+1),
			name:     spec.name,
			desc:     spec.desc,
			typ:      spec.typ,
			priority: spec.priority - priorityShift,
		}, group)
		if chunk != nil {
			chunks = append(chunks, *chunk)
		}
	}
	return chunks
}

func functionalBucket(score FileScore) ChunkType {
	switch score.Type {
	case FileTest:
		return ChunkTests
	case FileConfig:
		return ChunkConfig
	case FileDoc:
		return ChunkDocs
	}
	lower := strings.ToLower(score.Path)
	if strings.Contains(lower, "util") || strings.Contains(lower, "helper") ||
		strings.Contains(lower, "common") {
		return ChunkUtils
	}
	return ChunkCore
}

// tokenChunks greedily packs files, highest relevance first, into
// fixed-size chunks. Priority decreases monotonically by chunk index: the
// first chunk is authoritative.
func (c *ContextChunker) tokenChunks(root string, scores []FileScore) []ContextChunk {
	ordered := make([]FileScore, len(scores))
	copy(ordered, scores)
	sortScores(ordered)

	var chunks []ContextChunk
	var current []FileScore
	remaining := c.chunkTokens

	flush := func() {
		if len(current) == 0 {
			return
		}
		idx := len(chunks)
		chunk := c.buildChunk(root, chunkSpec{
			id:       fmt.Sprintf("part-%02d", idx+1),
			name:     fmt.Sprintf("part %d", idx+1),
			desc:     fmt.Sprintf("Token-packed chunk %d", idx+1),
			typ:      ChunkCore,
			priority: tokenChunkPriority(idx),
		}, current)
		if chunk != nil {
			chunks = append(chunks, *chunk)
		}
		current = nil
		remaining = c.chunkTokens
	}

	for _, score := range ordered {
		cost := EstimateFileTokens(score.SizeBytes)
		if cost > remaining && len(current) > 0 {
			flush()
		}
		// A file larger than a whole chunk becomes its own chunk and is
		// truncated by buildChunk rather than dropped
		current = append(current, score)
		if cost >= remaining {
			flush()
			continue
		}
		remaining -= cost
	}
	flush()
	return chunks
}

func tokenChunkPriority(idx int) float64 {
	p := 1.0 - 0.1*float64(idx)
	if p < 0.1 {
		p = 0.1
	}
	return p
}

// hierarchicalChunks always emits one overview chunk first — README,
// manifests, entry points, chosen by a dedicated pass — then applies the
// functional strategy to the remaining files.
func (c *ContextChunker) hierarchicalChunks(root string, scores []FileScore, project *ProjectInfo) []ContextChunk {
	overview, rest := splitOverviewFiles(scores, project)

	var chunks []ContextChunk
	if chunk := c.buildChunk(root, chunkSpec{
		id:       "overview-01",
		name:     "overview",
		desc:     "Project overview: README, manifests, entry points",
		typ:      ChunkOverview,
		priority: 1.2,
	}, overview); chunk != nil {
		chunks = append(chunks, *chunk)
	}

	return append(chunks, c.functionalChunks(root, rest, 0.2)...)
}

// splitOverviewFiles selects the overview set independently of the other
// strategies: READMEs, ecosystem manifests, and detected entry points
func splitOverviewFiles(scores []FileScore, project *ProjectInfo) (overview, rest []FileScore) {
	entrySet := make(map[string]bool)
	if project != nil {
		for _, rel := range project.EntryPoints {
			entrySet[filepath.ToSlash(rel)] = true
		}
	}

	for _, score := range scores {
		base := strings.ToLower(filepath.Base(score.Path))
		_, isManifest := manifestScores[base]
		switch {
		case entrySet[score.Path],
			score.HasFactor(FactorEntryPoint),
			score.HasFactor(FactorReadme),
			isManifest:
			overview = append(overview, score)
		default:
			rest = append(rest, score)
		}
	}
	return overview, rest
}

type chunkSpec struct {
	id       string
	name     string
	desc     string
	typ      ChunkType
	priority float64
}

// buildChunk budget-constrains a file group exactly like the optimizer
// does and materializes the survivors. A single file too large for the
// whole chunk is truncated with an explicit marker, never dropped
// silently. Returns nil when nothing could be materialized.
func (c *ContextChunker) buildChunk(root string, spec chunkSpec, group []FileScore) *ContextChunk {
	opt := NewTokenOptimizer(OptimizationConfig{
		MaxTokens: c.chunkTokens,
		Strategy:  StrategyTruncate,
	})

	var files []FileContent
	total := 0
	for _, sel := range opt.OptimizeFiles(group) {
		content, err := loadSelected(root, sel)
		if err != nil {
			c.logger.Warn("dropping unreadable file from chunk",
				zap.String("chunk", spec.id), zap.Error(err))
			continue
		}
		files = append(files, content)
		total += content.Tokens
	}
	if len(files) == 0 {
		return nil
	}

	return &ContextChunk{
		ID:              spec.id,
		Name:            spec.name,
		Description:     spec.desc,
		Files:           files,
		EstimatedTokens: total,
		Type:            spec.typ,
		Priority:        spec.priority,
	}
}
