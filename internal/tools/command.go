package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const defaultCommandTimeout = 60 * time.Second

// ExecuteCommand runs a shell command in the working directory with a timeout
func ExecuteCommand(params Params, workingDir string) (string, error) {
	command, err := params.String("command")
	if err != nil {
		return "", err
	}

	timeout := defaultCommandTimeout
	if t, ok := params.Int("timeout"); ok && t > 0 {
		timeout = time.Duration(t) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var result bytes.Buffer
	fmt.Fprintf(&result, "Command: %s\n\n", command)
	if stdout.Len() > 0 {
		result.WriteString("STDOUT:\n")
		result.Write(stdout.Bytes())
		result.WriteString("\n")
	}
	if stderr.Len() > 0 {
		result.WriteString("STDERR:\n")
		result.Write(stderr.Bytes())
		result.WriteString("\n")
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result.String(), fmt.Errorf("command timed out after %v", timeout)
	}
	if runErr != nil {
		fmt.Fprintf(&result, "Exit: %v\n", runErr)
	} else {
		result.WriteString("Exit: 0\n")
	}
	return result.String(), nil
}

// SearchFiles greps for a pattern under a directory
func SearchFiles(params Params, workingDir string) (string, error) {
	pattern, err := params.String("pattern")
	if err != nil {
		return "", err
	}
	directory := resolvePath(params.OptionalString("directory", "."), workingDir)

	args := []string{"-r", "-n", "-H"}
	if params.Bool("regex") {
		args = append(args, "-E")
	}
	for _, dir := range params.Strings("exclude_dirs") {
		args = append(args, "--exclude-dir="+dir)
	}
	args = append(args, pattern, directory)

	cmd := exec.Command("grep", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Exit code 1 means no matches, not a failure
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "No matches found", nil
		}
		return "", fmt.Errorf("grep failed: %w\n%s", err, stderr.String())
	}
	return stdout.String(), nil
}
