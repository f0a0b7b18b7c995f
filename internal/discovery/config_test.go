package discovery

import (
	"os"
	"testing"
)

func TestFingerprintSensitiveFields(t *testing.T) {
	base := DefaultConfig()

	changed := base
	changed.MaxTokens = base.MaxTokens + 1
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("Changing max_tokens must change the fingerprint")
	}

	changed = base
	changed.IncludePatterns = []string{"*.proto"}
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("Changing include patterns must change the fingerprint")
	}

	changed = base
	changed.ExcludePatterns = []string{"*.gen.go"}
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("Changing exclude patterns must change the fingerprint")
	}

	changed = base
	changed.PriorityPatterns = []string{"core/*"}
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("Changing priority patterns must change the fingerprint")
	}
}

func TestFingerprintIgnoresScoringIrrelevantFields(t *testing.T) {
	base := DefaultConfig()

	changed := base
	changed.ChunkTokens = 1234
	changed.ChunkStrategy = ChunkByToken
	changed.ChunkingEnabled = true
	changed.CacheEnabled = false
	changed.CacheDir = "/elsewhere"

	if base.Fingerprint() != changed.Fingerprint() {
		t.Error("Scoring-irrelevant fields must not change the fingerprint")
	}
}

func TestFingerprintIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludePatterns = []string{"a", "b"}
	if cfg.Fingerprint() != cfg.Fingerprint() {
		t.Error("Fingerprint must be stable across calls")
	}
}

func TestLoadProjectConfigOverlay(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	writeTestFile(t, dir, ProjectConfigFile,
		"max_tokens: 5000\npriority:\n  - \"core/*\"\ncache: false\nchunk_strategy: token\n")

	cfg := LoadProjectConfig(dir, nil)
	if cfg.MaxTokens != 5000 {
		t.Errorf("Expected max_tokens 5000, got %d", cfg.MaxTokens)
	}
	if len(cfg.PriorityPatterns) != 1 || cfg.PriorityPatterns[0] != "core/*" {
		t.Errorf("Priority patterns not applied: %v", cfg.PriorityPatterns)
	}
	if cfg.CacheEnabled {
		t.Error("cache: false should disable caching")
	}
	if cfg.ChunkStrategy != ChunkByToken {
		t.Errorf("Expected token strategy, got %s", cfg.ChunkStrategy)
	}
	// Untouched fields keep their defaults
	if cfg.MaxFileSize != DefaultConfig().MaxFileSize {
		t.Errorf("Default max_file_size lost: %d", cfg.MaxFileSize)
	}
}

func TestLoadProjectConfigFallsBackOnGarbage(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	writeTestFile(t, dir, ProjectConfigFile, ": this is : not yaml : at all [")

	cfg := LoadProjectConfig(dir, nil)
	if cfg.MaxTokens != DefaultConfig().MaxTokens {
		t.Error("Unparseable config must fall back to defaults")
	}
}

func TestLoadProjectConfigMissingFile(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cfg := LoadProjectConfig(dir, nil)
	if cfg.MaxTokens != DefaultConfig().MaxTokens {
		t.Error("Missing config file must produce defaults")
	}
}

func TestParseChunkStrategy(t *testing.T) {
	valid := map[string]ChunkStrategy{
		"module":       ChunkByModule,
		"functional":   ChunkByFunction,
		"token":        ChunkByToken,
		"hierarchical": ChunkHierarchical,
		"":             ChunkHierarchical,
	}
	for name, want := range valid {
		got, err := ParseChunkStrategy(name)
		if err != nil || got != want {
			t.Errorf("ParseChunkStrategy(%q) = %v, %v; want %v", name, got, err, want)
		}
	}

	if _, err := ParseChunkStrategy("bogus"); err == nil {
		t.Error("Invalid strategy name must be rejected")
	}
}
