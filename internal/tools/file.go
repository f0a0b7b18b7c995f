package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolvePath makes relative tool paths absolute against the working directory
func resolvePath(path, workingDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workingDir, path)
}

// ReadFile reads a file, optionally restricted to a 1-indexed line range
func ReadFile(params Params, workingDir string) (string, error) {
	filePath, err := params.String("file_path")
	if err != nil {
		return "", err
	}
	filePath = resolvePath(filePath, workingDir)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	start, hasStart := params.Int("start_line")
	end, hasEnd := params.Int("end_line")
	if !hasStart && !hasEnd {
		return string(content), nil
	}

	lines := strings.Split(string(content), "\n")
	total := len(lines)
	if !hasStart {
		start = 1
	}
	if !hasEnd {
		end = total
	}
	if start < 1 || start > total {
		return "", fmt.Errorf("start_line %d is out of range (file has %d lines)", start, total)
	}
	if end < start || end > total {
		return "", fmt.Errorf("end_line %d is invalid (must be between %d and %d)", end, start, total)
	}

	var result strings.Builder
	fmt.Fprintf(&result, "=== %s (lines %d-%d of %d) ===\n", filepath.Base(filePath), start, end, total)
	for i, line := range lines[start-1 : end] {
		fmt.Fprintf(&result, "%4d: %s\n", start+i, line)
	}
	return result.String(), nil
}

// WriteFile creates or overwrites a file, making parent directories as needed
func WriteFile(params Params, workingDir string) (string, error) {
	filePath, err := params.String("file_path")
	if err != nil {
		return "", err
	}
	content, ok := params["content"].(string)
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}
	filePath = resolvePath(filePath, workingDir)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("create directories: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("Wrote %s", filePath), nil
}

// EditFile replaces an exact text match in a file
func EditFile(params Params, workingDir string) (string, error) {
	filePath, err := params.String("file_path")
	if err != nil {
		return "", err
	}
	oldString, ok := params["old_string"].(string)
	if !ok {
		return "", fmt.Errorf("old_string parameter is required")
	}
	if oldString == "" {
		return "", fmt.Errorf("old_string cannot be empty; use write_file to rewrite a file completely")
	}
	newString, ok := params["new_string"].(string)
	if !ok {
		return "", fmt.Errorf("new_string parameter is required")
	}
	filePath = resolvePath(filePath, workingDir)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text := string(content)

	count := strings.Count(text, oldString)
	if count == 0 {
		return "", fmt.Errorf("old_string not found in file; match the exact text including whitespace")
	}

	var updated string
	if params.Bool("replace_all") {
		updated = strings.ReplaceAll(text, oldString, newString)
	} else {
		if count > 1 {
			return "", fmt.Errorf("old_string appears %d times; use replace_all=true or add context to make it unique", count)
		}
		updated = strings.Replace(text, oldString, newString, 1)
	}

	if err := os.WriteFile(filePath, []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if params.Bool("replace_all") && count > 1 {
		return fmt.Sprintf("Replaced %d occurrences in %s", count, filePath), nil
	}
	return fmt.Sprintf("Edited %s", filePath), nil
}

// ListFiles lists a directory, recursively when asked
func ListFiles(params Params, workingDir string) (string, error) {
	directory := resolvePath(params.OptionalString("directory", "."), workingDir)

	var result strings.Builder
	if params.Bool("recursive") {
		err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			relPath, _ := filepath.Rel(directory, path)
			if relPath == "." {
				return nil
			}
			if info.IsDir() {
				fmt.Fprintf(&result, "[DIR]  %s\n", relPath)
			} else {
				fmt.Fprintf(&result, "[FILE] %s (%d bytes)\n", relPath, info.Size())
			}
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("walk directory: %w", err)
		}
		return result.String(), nil
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return "", fmt.Errorf("read directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&result, "[DIR]  %s\n", entry.Name())
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(&result, "[FILE] %s (%d bytes)\n", entry.Name(), info.Size())
	}
	return result.String(), nil
}
