package tools

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// runGit executes git with the given args in the working directory
func runGit(workingDir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\n%s", args[0], err, stderr.String())
	}
	return stdout.String(), nil
}

// GitStatus shows the repository status in porcelain form
func GitStatus(params Params, workingDir string) (string, error) {
	output, err := runGit(workingDir, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if output == "" {
		return "Working tree clean - no changes to commit", nil
	}
	return "Git Status:\n" + output, nil
}

// GitDiff shows changes, optionally staged or scoped to one file
func GitDiff(params Params, workingDir string) (string, error) {
	args := []string{"diff"}
	if params.Bool("staged") {
		args = append(args, "--staged")
	}
	if filePath := params.OptionalString("file_path", ""); filePath != "" {
		args = append(args, filePath)
	}

	output, err := runGit(workingDir, args...)
	if err != nil {
		return "", err
	}
	if output == "" {
		return "No changes to show", nil
	}
	return output, nil
}

// GitLog shows recent commit history
func GitLog(params Params, workingDir string) (string, error) {
	limit := 10
	if l, ok := params.Int("limit"); ok && l > 0 {
		limit = l
	}
	return runGit(workingDir, "log", fmt.Sprintf("-n%d", limit), "--pretty=format:%h - %s (%an, %ar)")
}

// GitAdd stages files for commit
func GitAdd(params Params, workingDir string) (string, error) {
	files := params.Strings("files")
	if len(files) == 0 {
		return "", fmt.Errorf("files parameter is required and must be an array")
	}
	if _, err := runGit(workingDir, append([]string{"add"}, files...)...); err != nil {
		return "", err
	}
	return fmt.Sprintf("Staged %d files for commit", len(files)), nil
}

// GitCommit creates a commit with staged changes
func GitCommit(params Params, workingDir string) (string, error) {
	message, err := params.String("message")
	if err != nil {
		return "", err
	}
	output, err := runGit(workingDir, "commit", "-m", message)
	if err != nil {
		return "", err
	}
	return "Commit created:\n" + strings.TrimSpace(output), nil
}

// GitBranch lists all branches
func GitBranch(params Params, workingDir string) (string, error) {
	return runGit(workingDir, "branch", "-a")
}
