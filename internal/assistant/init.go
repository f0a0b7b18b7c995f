package assistant

import (
	gocontext "context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/prism-dev/prism/internal/discovery"
	"github.com/prism-dev/prism/internal/storage"
)

// initFileLimit caps how many files PRISM.md lists per section
const initFileLimit = 15

// InitProject scans the project with the discovery engine and writes
// PRISM.md, the guidance file loaded into every system prompt.
func InitProject(workingDir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	fmt.Println("Analyzing project structure...")

	// creates the .prism/ state directory alongside PRISM.md
	store, err := storage.Open(workingDir)
	if err != nil {
		return fmt.Errorf("initialize state directory: %w", err)
	}
	defer store.Close()

	cfg := discovery.LoadProjectConfig(workingDir, logger)
	smart := discovery.New(cfg, discovery.WithLogger(logger))

	res, err := smart.Discover(gocontext.Background(), workingDir, "")
	if err != nil {
		return fmt.Errorf("discover project context: %w", err)
	}

	content := generateContextFile(workingDir, res)
	path := filepath.Join(workingDir, ContextFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", ContextFileName, err)
	}

	printInitSummary(res)
	return nil
}

// generateContextFile renders PRISM.md from a discovery result
func generateContextFile(workingDir string, res *discovery.Result) string {
	var sb strings.Builder

	sb.WriteString("# " + ContextFileName + "\n\n")
	sb.WriteString("This file provides project context to Prism. Auto-generated by `/init`.\n\n")

	sb.WriteString("## Project Overview\n\n")
	if res.Project != nil {
		fmt.Fprintf(&sb, "**Type:** %s (confidence %.0f%%)\n", res.Project.Type, res.Project.Confidence*100)
		if len(res.Project.EntryPoints) > 0 {
			fmt.Fprintf(&sb, "**Entry points:** %s\n", strings.Join(res.Project.EntryPoints, ", "))
		}
	}
	sb.WriteString("\n")

	if len(res.Scores) > 0 {
		sb.WriteString("## Key Files\n\n")
		limit := len(res.Scores)
		if limit > initFileLimit {
			limit = initFileLimit
		}
		for _, score := range res.Scores[:limit] {
			fmt.Fprintf(&sb, "- `%s` (%s, relevance %.2f)\n", score.Path, score.Type, score.Relevance)
		}
		sb.WriteString("\n")
	}

	if res.Project != nil && len(res.Project.ImportantFiles) > 0 {
		sb.WriteString("## Project Files\n\n")
		for _, f := range res.Project.ImportantFiles {
			fmt.Fprintf(&sb, "- `%s`\n", f)
		}
		sb.WriteString("\n")
	}

	if branch, lastCommit := gitSummary(workingDir); branch != "" {
		sb.WriteString("## Git Info\n\n")
		fmt.Fprintf(&sb, "- **Branch:** %s\n", branch)
		if lastCommit != "" {
			fmt.Fprintf(&sb, "- **Last commit:** %s\n", lastCommit)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n*Edit this file to add custom instructions for Prism.*\n")
	return sb.String()
}

// gitSummary reads the current branch and last commit, empty outside a repo
func gitSummary(workingDir string) (branch, lastCommit string) {
	if _, err := os.Stat(filepath.Join(workingDir, ".git")); err != nil {
		return "", ""
	}
	if out, err := exec.Command("git", "-C", workingDir, "branch", "--show-current").Output(); err == nil {
		branch = strings.TrimSpace(string(out))
	}
	if out, err := exec.Command("git", "-C", workingDir, "log", "-1", "--format=%h %s").Output(); err == nil {
		lastCommit = strings.TrimSpace(string(out))
	}
	return branch, lastCommit
}

// printInitSummary reports what the scan found
func printInitSummary(res *discovery.Result) {
	fmt.Println()
	fmt.Println("✓ Project initialized")
	fmt.Println()
	if res.Project != nil {
		fmt.Printf("  Type: %s\n", res.Project.Type)
	}
	fmt.Printf("  Files scored: %d\n", len(res.Scores))
	fmt.Printf("  Context files selected: %d (~%d tokens)\n", len(res.Files), res.TotalTokens)
	fmt.Println()
	fmt.Println("  Created:")
	fmt.Printf("    - %s (project context for the assistant)\n", ContextFileName)
	fmt.Printf("    - %s/ (sessions, cache, state)\n", storage.DirName)
	fmt.Println()
	fmt.Printf("Edit %s to add custom instructions.\n", ContextFileName)
}
