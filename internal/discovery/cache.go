package discovery

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheStats is a diagnostic summary of cache behavior
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// ContextCache persists project scan outcomes keyed by (project path,
// config fingerprint). Validity is solely a function of that key — there
// is no mtime or content-hash check on the scanned files, so a hit on an
// unchanged config serves the cached scores even when files changed on
// disk. Known staleness window, kept deliberately.
//
// Reads are safe for concurrent use; writes are atomic per key via a
// temp-file rename, and overlapping writes for the same key resolve as
// last-write-wins (both writers computed the same deterministic result).
type ContextCache struct {
	dir    string
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*CacheEntry
	hits    int
	misses  int
}

// NewContextCache creates a cache persisting under dir. The directory is
// created lazily on the first write; load and save failures degrade to
// cache misses, never abort discovery.
func NewContextCache(dir string, logger *zap.Logger) *ContextCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextCache{
		dir:     dir,
		logger:  logger,
		entries: make(map[string]*CacheEntry),
	}
}

// cacheKey derives the deterministic on-disk identifier for one entry
func cacheKey(projectPath, configHash string) string {
	sum := sha256.Sum256([]byte(projectPath + "\x00" + configHash))
	return fmt.Sprintf("%x", sum)[:24]
}

// Get returns the cached entry for the key, or nil on a miss. A miss is
// not an error.
func (c *ContextCache) Get(projectPath, configHash string) *CacheEntry {
	key := cacheKey(projectPath, configHash)

	c.mu.RLock()
	entry := c.entries[key]
	c.mu.RUnlock()

	if entry == nil {
		entry = c.loadFromDisk(key, projectPath, configHash)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry == nil {
		c.misses++
		return nil
	}
	c.entries[key] = entry
	c.hits++
	return entry
}

func (c *ContextCache) loadFromDisk(key, projectPath, configHash string) *CacheEntry {
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil // missing or unreadable file is a plain miss
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	if entry.ProjectPath != projectPath || entry.ConfigHash != configHash {
		return nil // hash collision or stale rename, treat as miss
	}
	return &entry
}

// Put stores a freshly computed scan outcome. Disk persistence is
// best-effort; a write failure leaves the in-memory entry intact.
func (c *ContextCache) Put(projectPath, configHash string, project *ProjectInfo, scores []FileScore) {
	entry := &CacheEntry{
		ProjectPath: projectPath,
		ConfigHash:  configHash,
		Project:     project,
		Scores:      scores,
		CreatedAt:   time.Now().UTC(),
	}
	key := cacheKey(projectPath, configHash)

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if err := c.saveToDisk(key, entry); err != nil {
		c.logger.Warn("cache save failed, continuing uncached",
			zap.String("project", projectPath), zap.Error(err))
	}
}

func (c *ContextCache) saveToDisk(key string, entry *CacheEntry) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	tmp := c.entryPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.entryPath(key))
}

// Invalidate drops every entry for the given project path, across all
// config fingerprints
func (c *ContextCache) Invalidate(projectPath string) {
	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.ProjectPath == projectPath {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.ProjectPath == projectPath {
			os.Remove(file)
		}
	}
}

// Clear drops every entry, in memory and on disk
func (c *ContextCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return
	}
	for _, file := range files {
		os.Remove(file)
	}
}

// Stats returns a diagnostic summary for display. Entries counts both
// in-memory and on-disk entries, deduplicated by key.
func (c *ContextCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make(map[string]bool, len(c.entries))
	for key := range c.entries {
		keys[key] = true
	}
	if files, err := filepath.Glob(filepath.Join(c.dir, "*.json")); err == nil {
		for _, file := range files {
			name := filepath.Base(file)
			keys[strings.TrimSuffix(name, ".json")] = true
		}
	}

	return CacheStats{Entries: len(keys), Hits: c.hits, Misses: c.misses}
}

func (c *ContextCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}
