package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/prism-dev/prism/internal/assistant"
	"github.com/prism-dev/prism/internal/storage"
)

// skipDirNames are directories never offered for completion or expansion
var skipDirNames = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// isInitializedProject reports whether PRISM.md and .prism/ both exist
func isInitializedProject(workingDir string) bool {
	if _, err := os.Stat(filepath.Join(workingDir, assistant.ContextFileName)); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(workingDir, storage.DirName)); err != nil {
		return false
	}
	return true
}

// FileCompleter implements readline.AutoCompleter for @ file references
type FileCompleter struct {
	workingDir string
}

// NewFileCompleter creates a file completer rooted at the working directory
func NewFileCompleter(workingDir string) *FileCompleter {
	return &FileCompleter{workingDir: workingDir}
}

// Do implements the readline.AutoCompleter interface
func (f *FileCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	if !isInitializedProject(f.workingDir) {
		return nil, 0
	}

	lineStr := string(line[:pos])
	lastAtIdx := strings.LastIndex(lineStr, "@")
	if lastAtIdx == -1 {
		return nil, 0
	}
	prefix := lineStr[lastAtIdx+1:]

	items, err := walkProject(f.workingDir, true)
	if err != nil || len(items) == 0 {
		return nil, 0
	}

	var candidates [][]rune
	prefixLower := strings.ToLower(prefix)
	for _, item := range items {
		if prefix == "" || strings.HasPrefix(strings.ToLower(item), prefixLower) {
			candidates = append(candidates, []rune(item[len(prefix):]))
		}
	}
	return candidates, len(prefix)
}

// walkProject lists project paths relative to root, skipping hidden and
// dependency directories. Directories carry a trailing slash; pass
// includeDirs=false to get files only.
func walkProject(root string, includeDirs bool) ([]string, error) {
	var items []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != "." {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() && skipDirNames[base] {
			return filepath.SkipDir
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}

		if info.IsDir() {
			if includeDirs {
				items = append(items, relPath+"/")
			}
			return nil
		}
		items = append(items, relPath)
		return nil
	})
	return items, err
}

// selectFile shows an interactive fuzzy file picker
func selectFile(workingDir string) (string, error) {
	files, err := walkProject(workingDir, false)
	if err != nil {
		return "", fmt.Errorf("list project files: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no files found in directory")
	}

	searcher := func(input string, index int) bool {
		return strings.Contains(strings.ToLower(files[index]), strings.ToLower(input))
	}

	prompt := promptui.Select{
		Label:             "Select a file",
		Items:             files,
		Size:              20,
		Searcher:          searcher,
		StartInSearchMode: true,
		HideSelected:      true,
	}

	_, result, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return result, nil
}

// renderFileBlock formats one file as a fenced markdown block
func renderFileBlock(relPath string, content []byte) string {
	ext := strings.TrimPrefix(filepath.Ext(relPath), ".")
	return fmt.Sprintf("\n**File: `%s`**\n```%s\n%s\n```\n", relPath, ext, string(content))
}

// expandDirectoryReference inlines every readable file under a directory
func expandDirectoryReference(dirPath, workingDir string) (string, error) {
	fullPath := filepath.Join(workingDir, dirPath)

	files, err := walkProject(fullPath, false)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dirPath, err)
	}
	if len(files) == 0 {
		return fmt.Sprintf("\n\n**Directory: `%s`** (empty or no readable files)\n", dirPath), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "\n\n**Directory: `%s`** (%d files)\n", dirPath, len(files))
	for _, file := range files {
		content, err := os.ReadFile(filepath.Join(fullPath, file))
		if err != nil {
			continue
		}
		result.WriteString(renderFileBlock(filepath.Join(dirPath, file), content))
	}
	return result.String(), nil
}

// expandFileReferences replaces @path references with inline file content.
// A bare trailing @ opens the interactive picker.
func expandFileReferences(message, workingDir string) (string, error) {
	if !strings.Contains(message, "@") || !isInitializedProject(workingDir) {
		return message, nil
	}

	parts := strings.Split(message, "@")
	result := parts[0]

	for i := 1; i < len(parts); i++ {
		part := parts[i]
		words := strings.Fields(part)

		var filePath, remainingText string
		if len(words) == 0 {
			fmt.Println("\nSelect a file (or use Tab after @ for completion):")
			selected, err := selectFile(workingDir)
			if err != nil {
				return "", fmt.Errorf("file selection cancelled: %w", err)
			}
			filePath = selected
		} else {
			filePath = words[0]
			remainingText = strings.TrimPrefix(part, filePath)
		}

		fullPath := filepath.Join(workingDir, filePath)
		info, err := os.Stat(fullPath)
		if err != nil {
			return "", fmt.Errorf("access %s: %w", filePath, err)
		}

		if info.IsDir() {
			expanded, err := expandDirectoryReference(filePath, workingDir)
			if err != nil {
				return "", err
			}
			result += expanded + remainingText
			continue
		}

		content, err := os.ReadFile(fullPath)
		if err != nil {
			return "", fmt.Errorf("read file %s: %w", filePath, err)
		}
		result += renderFileBlock(filePath, content) + remainingText
	}

	return result, nil
}
