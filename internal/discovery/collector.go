package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// excludedDirs are directory names never descended into during collection
var excludedDirs = map[string]bool{
	".git":             true,
	".prism":           true,
	"node_modules":     true,
	"vendor":           true,
	"__pycache__":      true,
	".venv":            true,
	"venv":             true,
	".idea":            true,
	".vscode":          true,
	"dist":             true,
	"build":            true,
	"out":              true,
	"target":           true,
	".next":            true,
	"coverage":         true,
	".cache":           true,
	".pytest_cache":    true,
	".mypy_cache":      true,
	".tox":             true,
	"bower_components": true,
	".terraform":       true,
	".gradle":          true,
}

// binaryExtensions are known binary/media/archive formats excluded before
// scoring; analyzing them would be wasted work
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".bmp": true, ".webp": true, ".svg": false, // svg is text, keep it
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".bz2": true,
	".xz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".obj": true, ".bin": true, ".wasm": true,
	".jar": true, ".class": true, ".pyc": true, ".pyo": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".wav": true, ".flac": true, ".ogg": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
	".lock": true, ".sum": true,
	".min.js": true, ".min.css": true, ".map": true,
}

// testDirNames are directory components that mark a path as test code
var testDirNames = map[string]bool{
	"test":      true,
	"tests":     true,
	"__tests__": true,
	"spec":      true,
	"testdata":  true,
}

// CollectCandidates gathers the files worth scoring: the detector's entry
// points and important files plus a bounded-depth walk of root. Hidden
// entries, binary/media/archive extensions, oversized files, and test
// files are all excluded here, before scoring; an include pattern is the
// only way to pull an excluded file back in. Unreadable entries are
// skipped silently. The result is deduplicated and sorted.
func CollectCandidates(root string, project *ProjectInfo, cfg Config) ([]string, error) {
	seen := make(map[string]bool)

	if project != nil {
		for _, rel := range project.EntryPoints {
			addCandidate(root, rel, cfg, seen)
		}
		for _, rel := range project.ImportantFiles {
			addCandidate(root, rel, cfg, seen)
		}
	}

	if err := walkCandidates(root, root, 0, cfg, seen); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(seen))
	for rel := range seen {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths, nil
}

func walkCandidates(root, dir string, depth int, cfg Config, seen map[string]bool) error {
	if cfg.MaxDepth > 0 && depth >= cfg.MaxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if depth == 0 {
			return err
		}
		return nil // unreadable subtree, skip
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		rel, err := filepath.Rel(root, full)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if excludedDirs[name] {
				continue
			}
			if strings.HasPrefix(name, ".") && !matchesAny(rel, cfg.IncludePatterns) {
				continue
			}
			if err := walkCandidates(root, full, depth+1, cfg, seen); err != nil {
				return err
			}
			continue
		}

		addCandidate(root, rel, cfg, seen)
	}
	return nil
}

// addCandidate applies the pre-scoring exclusion filter to one file and
// records it when it survives
func addCandidate(root, rel string, cfg Config, seen map[string]bool) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || seen[rel] {
		return
	}

	stat, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil || stat.IsDir() {
		return
	}

	included := matchesAny(rel, cfg.IncludePatterns)
	if !included {
		if isHiddenPath(rel) || isBinaryName(rel) || isTestPath(rel) {
			return
		}
		if cfg.MaxFileSize > 0 && stat.Size() > cfg.MaxFileSize {
			return
		}
	}
	if matchesAny(rel, cfg.ExcludePatterns) {
		return
	}

	seen[rel] = true
}

func isHiddenPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func isBinaryName(rel string) bool {
	base := strings.ToLower(filepath.Base(rel))
	if strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return true
	}
	return binaryExtensions[filepath.Ext(base)]
}

// isTestPath recognizes test files by common naming conventions
func isTestPath(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, part := range parts[:len(parts)-1] {
		if testDirNames[strings.ToLower(part)] {
			return true
		}
	}

	base := strings.ToLower(parts[len(parts)-1])
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, "_test.py"),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.HasSuffix(base, ".test.js"),
		strings.HasSuffix(base, ".test.ts"),
		strings.HasSuffix(base, ".test.tsx"),
		strings.HasSuffix(base, ".spec.js"),
		strings.HasSuffix(base, ".spec.ts"),
		strings.HasSuffix(base, "test.kt"),
		strings.HasSuffix(base, "test.java"):
		return true
	}
	return false
}

// matchesAny reports whether rel matches any of the glob patterns, tried
// against both the full relative path and the base name
func matchesAny(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
