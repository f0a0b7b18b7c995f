package discovery

import (
	"os"
	"reflect"
	"strings"
	"testing"
)

// writeRustFixture builds the project used by most analyzer tests:
// an entry point, a lib that references util, and an unrelated file
// with the same base score as util.
func writeRustFixture(t *testing.T, dir string) {
	writeTestFile(t, dir, "Cargo.toml", "[package]\nname = \"demo\"\n")
	writePadded(t, dir, "src/main.rs", "fn main() {}\n", 200)
	writePadded(t, dir, "src/lib.rs", "mod util;\npub use crate::util::helper;\n", 200)
	writePadded(t, dir, "src/util.rs", "pub fn helper() {}\n", 200)
	writePadded(t, dir, "src/other.rs", "pub fn unrelated() {}\n", 200)
}

// writePadded writes content padded with comment lines to an exact size
func writePadded(t *testing.T, root, rel, content string, size int) {
	if len(content) > size {
		t.Fatalf("content for %s exceeds target size", rel)
	}
	padded := content + strings.Repeat("/", size-len(content))
	writeTestFile(t, root, rel, padded)
}

func analyzeFixture(t *testing.T, dir string) []FileScore {
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
	return scores
}

func scoreFor(t *testing.T, scores []FileScore, path string) FileScore {
	for _, s := range scores {
		if s.Path == path {
			return s
		}
	}
	t.Fatalf("No score for %s in %v", path, scores)
	return FileScore{}
}

func TestScoringIsDeterministic(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	first := analyzeFixture(t, dir)
	second := analyzeFixture(t, dir)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Two scoring passes differ:\n%v\n%v", first, second)
	}
}

func TestEntryPointScoresHighest(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	scores := analyzeFixture(t, dir)

	main := scoreFor(t, scores, "src/main.rs")
	other := scoreFor(t, scores, "src/other.rs")
	if main.Relevance <= other.Relevance {
		t.Errorf("Entry point %f should outscore plain source %f", main.Relevance, other.Relevance)
	}
	if !main.HasFactor(FactorEntryPoint) {
		t.Errorf("main.rs missing entry_point factor: %v", main.Factors)
	}
}

func TestDependencyBoostIsAdditiveAndBounded(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	scores := analyzeFixture(t, dir)

	util := scoreFor(t, scores, "src/util.rs")
	other := scoreFor(t, scores, "src/other.rs")

	if !util.HasFactor(FactorReferenced) {
		t.Errorf("util.rs should carry the referenced factor: %v", util.Factors)
	}
	if util.Relevance <= other.Relevance {
		t.Errorf("Referenced util.rs (%f) should outscore unrelated (%f)", util.Relevance, other.Relevance)
	}
	diff := util.Relevance - other.Relevance
	if diff < depBoost-0.01 || diff > depBoost+0.01 {
		t.Errorf("Boost should be %f, measured %f", depBoost, diff)
	}
	if util.Relevance > 1.0 {
		t.Errorf("Relevance must stay clamped to 1.0, got %f", util.Relevance)
	}
}

func TestScoresStayInRange(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)
	writeTestFile(t, dir, "src/deep/a/b/c/d/leaf.rs", "// deep\n")

	for _, score := range analyzeFixture(t, dir) {
		if score.Relevance < 0 || score.Relevance > 1 {
			t.Errorf("Score out of range for %s: %f", score.Path, score.Relevance)
		}
	}
}

func TestFilterByQueryReranksWithoutDropping(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	scores := analyzeFixture(t, dir)
	analyzer := NewFileAnalyzer(DefaultConfig(), nil)
	ranked := analyzer.FilterByQuery(scores, "util")

	if len(ranked) != len(scores) {
		t.Fatalf("Query filter dropped files: %d -> %d", len(scores), len(ranked))
	}
	if ranked[0].Path != "src/util.rs" {
		t.Errorf("Query 'util' should rank util.rs first, got %s", ranked[0].Path)
	}
	if !ranked[0].HasFactor(FactorQueryMatch) {
		t.Errorf("Top match should carry query_match factor: %v", ranked[0].Factors)
	}

	// The boosted copy must not leak into the input scores
	util := scoreFor(t, scores, "src/util.rs")
	if util.HasFactor(FactorQueryMatch) {
		t.Error("FilterByQuery mutated its input")
	}
}

func TestFilterByEmptyQueryIsIdentity(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	scores := analyzeFixture(t, dir)
	analyzer := NewFileAnalyzer(DefaultConfig(), nil)
	ranked := analyzer.FilterByQuery(scores, "")

	if !reflect.DeepEqual(scores, ranked) {
		t.Error("Empty query should return identical ranking")
	}
}

func TestPriorityPatternBonus(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)
	writeRustFixture(t, dir)

	cfg := DefaultConfig()
	cfg.PriorityPatterns = []string{"other.rs"}

	info, _ := DetectProject(dir)
	candidates, _ := CollectCandidates(dir, info, cfg)
	analyzer := NewFileAnalyzer(cfg, nil)
	scores := analyzer.AnalyzeFiles(dir, candidates, info)

	other := scoreFor(t, scores, "src/other.rs")
	if !other.HasFactor(FactorPriority) {
		t.Errorf("Priority pattern should tag other.rs: %v", other.Factors)
	}
}

func TestClassifyFileType(t *testing.T) {
	cases := map[string]FileType{
		"src/main.go":      FileSource,
		"src/app_test.go":  FileTest,
		"tests/helper.py":  FileTest,
		"config/app.yaml":  FileConfig,
		"Cargo.toml":       FileConfig,
		"README.md":        FileDoc,
		"docs/guide.md":    FileDoc,
		"data/records.csv": FileOther,
	}
	for path, want := range cases {
		if got := classifyFileType(path); got != want {
			t.Errorf("classifyFileType(%s) = %s, want %s", path, got, want)
		}
	}
}
