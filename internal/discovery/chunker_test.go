package discovery

import (
	"os"
	"strings"
	"testing"
)

func chunkFixture(t *testing.T, dir string, strategy ChunkStrategy, chunkTokens int) []ContextChunk {
	info, err := DetectProject(dir)
	if err != nil {
		t.Fatalf("DetectProject failed: %v", err)
	}
	candidates, err := CollectCandidates(dir, info, DefaultConfig())
	if err != nil {
		t.Fatalf("CollectCandidates failed: %v", err)
	}
	analyzer := NewFileAnalyzer(DefaultConfig(), nil)
	scores := analyzer.AnalyzeFiles(dir, candidates, info)
	analyzer.AnalyzeDependencies(dir, scores)

	chunker := NewContextChunker(chunkTokens, nil)
	chunks, err := chunker.Chunk(dir, strategy, scores, info)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	return chunks
}

func TestHierarchicalEmitsOverviewFirst(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)
	writeTestFile(t, dir, "README.md", "# demo project\n")

	chunks := chunkFixture(t, dir, ChunkHierarchical, 1000)
	if len(chunks) == 0 {
		t.Fatal("Expected at least one chunk")
	}
	if chunks[0].Type != ChunkOverview {
		t.Errorf("First chunk must be overview, got %s", chunks[0].Type)
	}

	overviewPaths := make(map[string]bool)
	for _, file := range chunks[0].Files {
		overviewPaths[file.Path] = true
	}
	if !overviewPaths["README.md"] {
		t.Errorf("Overview should contain README.md: %v", chunks[0].Files)
	}
	if !overviewPaths["Cargo.toml"] {
		t.Errorf("Overview should contain Cargo.toml: %v", chunks[0].Files)
	}
}

func TestHierarchicalUnionCoversSingleSelection(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)
	writeTestFile(t, dir, "README.md", "# demo project\n")

	chunkTokens := 500
	chunks := chunkFixture(t, dir, ChunkHierarchical, chunkTokens)

	union := make(map[string]bool)
	for _, chunk := range chunks {
		for _, file := range chunk.Files {
			union[file.Path] = true
		}
	}

	// A single non-chunked selection with budget = chunk budget × chunk
	// count must be a subset of the chunk union
	info, _ := DetectProject(dir)
	candidates, _ := CollectCandidates(dir, info, DefaultConfig())
	analyzer := NewFileAnalyzer(DefaultConfig(), nil)
	scores := analyzer.AnalyzeFiles(dir, candidates, info)
	analyzer.AnalyzeDependencies(dir, scores)

	opt := NewTokenOptimizer(OptimizationConfig{
		MaxTokens: chunkTokens * len(chunks),
		Strategy:  StrategyTruncate,
	})
	for _, sel := range opt.OptimizeFiles(scores) {
		if !union[sel.Path] {
			t.Errorf("File %s selected flat but missing from chunk union", sel.Path)
		}
	}
}

func TestModuleChunksGroupByDirectory(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	chunks := chunkFixture(t, dir, ChunkByModule, 1000)

	byName := make(map[string]*ContextChunk)
	for i := range chunks {
		byName[chunks[i].Name] = &chunks[i]
	}
	src, ok := byName["src"]
	if !ok {
		t.Fatalf("Expected a src module chunk, got %v", byName)
	}
	for _, file := range src.Files {
		if !strings.HasPrefix(file.Path, "src/") {
			t.Errorf("src chunk contains foreign file %s", file.Path)
		}
	}

	// The module holding the entry point outranks the manifest-only root
	if root, ok := byName["root"]; ok && src.Priority <= root.Priority {
		t.Errorf("src (entry point) priority %f should beat root %f", src.Priority, root.Priority)
	}
}

func TestTokenChunkPrioritiesDecrease(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	// Budget fits roughly one file per chunk
	chunks := chunkFixture(t, dir, ChunkByToken, 60)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple token chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Priority > chunks[i-1].Priority {
			t.Errorf("Chunk %d priority %f exceeds previous %f",
				i, chunks[i].Priority, chunks[i-1].Priority)
		}
	}
}

func TestFunctionalBucketsAndPriorities(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)
	writeTestFile(t, dir, "README.md", "# demo\n")
	writeTestFile(t, dir, "config.yaml", "debug: false\n")

	chunks := chunkFixture(t, dir, ChunkByFunction, 1000)

	var last float64 = 2.0
	for _, chunk := range chunks {
		if chunk.Priority > last {
			t.Errorf("Functional chunks out of priority order: %s at %f after %f",
				chunk.Name, chunk.Priority, last)
		}
		last = chunk.Priority
	}
	if chunks[0].Type != ChunkCore {
		t.Errorf("Core bucket should come first, got %s", chunks[0].Type)
	}
}

func TestOversizedFileTruncatedWithMarker(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeTestFile(t, dir, "Cargo.toml", "[package]\n")
	writePadded(t, dir, "src/main.rs", "fn main() {}\n", 4000) // 1000 tokens

	chunks := chunkFixture(t, dir, ChunkByModule, 100)

	found := false
	for _, chunk := range chunks {
		for _, file := range chunk.Files {
			if file.Path != "src/main.rs" {
				continue
			}
			found = true
			if !file.Truncated {
				t.Error("Oversized file must be flagged truncated")
			}
			if !strings.Contains(file.Content, "...[truncated, 4000 chars total]") {
				t.Errorf("Missing truncation marker in %q", file.Content[len(file.Content)-80:])
			}
			if file.Tokens > 100 {
				t.Errorf("Post-truncation estimate %d exceeds chunk budget", file.Tokens)
			}
		}
	}
	if !found {
		t.Error("Oversized important file was silently dropped")
	}
}
