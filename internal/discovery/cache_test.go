package discovery

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleScores() []FileScore {
	return []FileScore{
		{
			Path:      "src/main.rs",
			Relevance: 0.95,
			Type:      FileSource,
			Factors:   []ImportanceFactor{FactorEntryPoint, FactorReferenced},
			SizeBytes: 200,
		},
		{
			Path:      "Cargo.toml",
			Relevance: 0.7,
			Type:      FileConfig,
			Factors:   []ImportanceFactor{FactorManifest},
			SizeBytes: 40,
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cache := NewContextCache(dir, nil)
	project := &ProjectInfo{Type: ProjectRust, RootPath: "/proj", Confidence: 0.9}
	cache.Put("/proj", "abc123", project, sampleScores())

	// A fresh cache instance must load the persisted entry from disk,
	// with file types and importance factor sets intact
	fresh := NewContextCache(dir, nil)
	entry := fresh.Get("/proj", "abc123")
	if entry == nil {
		t.Fatal("Expected persisted entry, got miss")
	}
	if !reflect.DeepEqual(entry.Scores, sampleScores()) {
		t.Errorf("Scores did not round-trip: %v", entry.Scores)
	}
	if entry.Project == nil || entry.Project.Type != ProjectRust {
		t.Errorf("Project info did not round-trip: %v", entry.Project)
	}
}

func TestCacheMissIsNotAnError(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cache := NewContextCache(dir, nil)
	if entry := cache.Get("/proj", "nope"); entry != nil {
		t.Errorf("Expected miss, got %v", entry)
	}

	stats := cache.Stats()
	if stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("Expected 1 miss / 0 hits, got %+v", stats)
	}
}

func TestCacheKeyedByConfigHash(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cache := NewContextCache(dir, nil)
	cache.Put("/proj", "hash-a", nil, sampleScores())

	if entry := cache.Get("/proj", "hash-b"); entry != nil {
		t.Error("Different config hash must miss")
	}
	if entry := cache.Get("/proj", "hash-a"); entry == nil {
		t.Error("Same config hash must hit")
	}
}

func TestCacheInvalidateDropsAllFingerprints(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cache := NewContextCache(dir, nil)
	cache.Put("/proj", "hash-a", nil, sampleScores())
	cache.Put("/proj", "hash-b", nil, sampleScores())
	cache.Put("/other", "hash-a", nil, sampleScores())

	cache.Invalidate("/proj")

	if cache.Get("/proj", "hash-a") != nil || cache.Get("/proj", "hash-b") != nil {
		t.Error("Invalidate left entries for the project behind")
	}
	if cache.Get("/other", "hash-a") == nil {
		t.Error("Invalidate must not touch other projects")
	}
}

func TestCacheClear(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cache := NewContextCache(dir, nil)
	cache.Put("/proj", "hash-a", nil, sampleScores())
	cache.Clear()

	if cache.Get("/proj", "hash-a") != nil {
		t.Error("Clear left an entry behind")
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) != 0 {
		t.Errorf("Clear left files on disk: %v", files)
	}
}

func TestCorruptCacheFileDegradesToMiss(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cache := NewContextCache(dir, nil)
	cache.Put("/proj", "hash-a", nil, sampleScores())

	// Corrupt the persisted entry, then read through a fresh instance
	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) != 1 {
		t.Fatalf("Expected one cache file, got %v", files)
	}
	os.WriteFile(files[0], []byte("{not json"), 0644)

	fresh := NewContextCache(dir, nil)
	if entry := fresh.Get("/proj", "hash-a"); entry != nil {
		t.Error("Corrupt entry must degrade to a miss, not an error")
	}
}

func TestDeletedCacheDirBehavesLikeMiss(t *testing.T) {
	dir := setupTestDir(t)
	defer os.RemoveAll(dir)

	cacheDir := filepath.Join(dir, "cache")
	cache := NewContextCache(cacheDir, nil)
	cache.Put("/proj", "hash-a", nil, sampleScores())
	os.RemoveAll(cacheDir)

	fresh := NewContextCache(cacheDir, nil)
	if entry := fresh.Get("/proj", "hash-a"); entry != nil {
		t.Error("Deleted cache dir must look like a permanent miss")
	}
}
