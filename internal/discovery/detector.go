package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// detectors are consulted in this fixed priority order; the first positive
// match wins and short-circuits the rest. A directory matching two
// ecosystems (a Rust crate vendored inside a JS monorepo, say) is
// classified by this order, not by comparing confidences.
var detectors = []struct {
	typ    ProjectType
	detect func(root string) *ProjectInfo
}{
	{ProjectRust, detectRust},
	{ProjectJavaScript, detectJavaScript},
	{ProjectPython, detectPython},
	{ProjectGo, detectGo},
	{ProjectKotlin, detectKotlin},
	{ProjectJava, detectJava},
	{ProjectGit, detectGit},
}

// DetectProject classifies the project at root. A missing ecosystem marker
// is a normal miss, never an error; only an unreadable root fails. When no
// detector matches, the project is classified as Generic.
func DetectProject(root string) (*ProjectInfo, error) {
	stat, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("read project root: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	for _, d := range detectors {
		if info := d.detect(root); info != nil {
			info.Type = d.typ
			info.RootPath = root
			return info, nil
		}
	}

	return &ProjectInfo{
		Type:           ProjectGeneric,
		RootPath:       root,
		ImportantFiles: existingFiles(root, "README.md", "README", "Makefile"),
		Confidence:     0.3,
	}, nil
}

func detectRust(root string) *ProjectInfo {
	if !fileExists(root, "Cargo.toml") {
		return nil
	}
	info := &ProjectInfo{
		EntryPoints:    existingFiles(root, "src/main.rs", "src/lib.rs"),
		ImportantFiles: existingFiles(root, "Cargo.toml", "build.rs", "README.md"),
		Confidence:     0.9,
	}
	if fileExists(root, "Cargo.lock") {
		info.Confidence = 0.95
	}
	return info
}

func detectJavaScript(root string) *ProjectInfo {
	if !fileExists(root, "package.json") {
		return nil
	}
	return &ProjectInfo{
		EntryPoints: existingFiles(root,
			"index.js", "index.ts", "src/index.js", "src/index.ts",
			"src/index.tsx", "src/main.ts", "src/main.js", "src/app.ts", "src/app.js"),
		ImportantFiles: existingFiles(root, "package.json", "tsconfig.json", "README.md"),
		Confidence:     0.9,
	}
}

func detectPython(root string) *ProjectInfo {
	if !fileExists(root, "pyproject.toml") && !fileExists(root, "setup.py") &&
		!fileExists(root, "requirements.txt") {
		return nil
	}
	return &ProjectInfo{
		EntryPoints: existingFiles(root, "main.py", "app.py", "src/main.py", "manage.py"),
		ImportantFiles: existingFiles(root,
			"pyproject.toml", "setup.py", "requirements.txt", "README.md"),
		Confidence: 0.85,
	}
}

func detectGo(root string) *ProjectInfo {
	if !fileExists(root, "go.mod") {
		return nil
	}
	entries := existingFiles(root, "main.go")
	entries = append(entries, globRelative(root, "cmd/*/main.go")...)
	return &ProjectInfo{
		EntryPoints:    entries,
		ImportantFiles: existingFiles(root, "go.mod", "Makefile", "README.md"),
		Confidence:     0.9,
	}
}

func detectKotlin(root string) *ProjectInfo {
	if !fileExists(root, "build.gradle.kts") && !fileExists(root, "settings.gradle.kts") {
		return nil
	}
	return &ProjectInfo{
		EntryPoints: existingFiles(root,
			"src/main/kotlin/Main.kt", "app/src/main/kotlin/Main.kt"),
		ImportantFiles: existingFiles(root,
			"build.gradle.kts", "settings.gradle.kts", "README.md"),
		Confidence: 0.85,
	}
}

func detectJava(root string) *ProjectInfo {
	if !fileExists(root, "pom.xml") && !fileExists(root, "build.gradle") {
		return nil
	}
	return &ProjectInfo{
		EntryPoints:    existingFiles(root, "src/main/java/Main.java"),
		ImportantFiles: existingFiles(root, "pom.xml", "build.gradle", "README.md"),
		Confidence:     0.85,
	}
}

func detectGit(root string) *ProjectInfo {
	if !dirExists(root, ".git") {
		return nil
	}
	return &ProjectInfo{
		ImportantFiles: existingFiles(root, "README.md", "README", "Makefile"),
		Confidence:     0.5,
	}
}

func fileExists(root, rel string) bool {
	stat, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil && !stat.IsDir()
}

func dirExists(root, rel string) bool {
	stat, err := os.Stat(filepath.Join(root, rel))
	return err == nil && stat.IsDir()
}

// existingFiles returns the subset of candidate relative paths that exist
// under root, preserving candidate order
func existingFiles(root string, candidates ...string) []string {
	var found []string
	for _, rel := range candidates {
		if fileExists(root, rel) {
			found = append(found, rel)
		}
	}
	return found
}

// globRelative expands a glob under root and returns sorted relative paths
func globRelative(root, pattern string) []string {
	matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
	if err != nil {
		return nil
	}
	var rels []string
	for _, m := range matches {
		if rel, err := filepath.Rel(root, m); err == nil {
			rels = append(rels, filepath.ToSlash(rel))
		}
	}
	sort.Strings(rels)
	return rels
}
