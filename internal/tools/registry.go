// Package tools implements the filesystem, search, command, and git tools
// the assistant can invoke. Tools take loosely-typed params (decoded from
// model output JSON) and return plain-text results for the conversation.
package tools

import (
	"fmt"
	"sort"
	"strings"
)

// Params holds tool arguments as decoded from JSON
type Params map[string]interface{}

// String returns a string argument, or an error naming the missing key
func (p Params) String(key string) (string, error) {
	val, ok := p[key].(string)
	if !ok || val == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return val, nil
}

// OptionalString returns a string argument or the fallback
func (p Params) OptionalString(key, fallback string) string {
	if val, ok := p[key].(string); ok && val != "" {
		return val
	}
	return fallback
}

// Int returns a numeric argument; JSON decoding yields float64
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Bool returns a boolean argument, false when absent
func (p Params) Bool(key string) bool {
	val, _ := p[key].(bool)
	return val
}

// Strings returns a string-array argument
func (p Params) Strings(key string) []string {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Handler executes a tool against the working directory
type Handler func(params Params, workingDir string) (string, error)

// Tool pairs a handler with the usage line shown to the model
type Tool struct {
	Name    string
	Usage   string // one-line JSON example
	Summary string
	Handler Handler
}

// Registry holds the available tools
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry with the full tool set
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}

	r.Register(Tool{
		Name:    "read_file",
		Summary: "Read file contents, optionally a line range",
		Usage:   `{"tool": "read_file", "params": {"file_path": "path", "start_line": 10, "end_line": 20}}`,
		Handler: ReadFile,
	})
	r.Register(Tool{
		Name:    "write_file",
		Summary: "Create a file or overwrite it completely",
		Usage:   `{"tool": "write_file", "params": {"file_path": "path", "content": "full content"}}`,
		Handler: WriteFile,
	})
	r.Register(Tool{
		Name:    "edit_file",
		Summary: "Exact find-and-replace in a file (old_string must match exactly)",
		Usage:   `{"tool": "edit_file", "params": {"file_path": "path", "old_string": "exact text", "new_string": "replacement", "replace_all": false}}`,
		Handler: EditFile,
	})
	r.Register(Tool{
		Name:    "list_files",
		Summary: "List directory contents",
		Usage:   `{"tool": "list_files", "params": {"directory": ".", "recursive": false}}`,
		Handler: ListFiles,
	})
	r.Register(Tool{
		Name:    "search_files",
		Summary: "Search for a pattern in files (grep)",
		Usage:   `{"tool": "search_files", "params": {"pattern": "term", "directory": "."}}`,
		Handler: SearchFiles,
	})
	r.Register(Tool{
		Name:    "execute_command",
		Summary: "Run a shell command in the project directory",
		Usage:   `{"tool": "execute_command", "params": {"command": "go build ./..."}}`,
		Handler: ExecuteCommand,
	})
	r.Register(Tool{
		Name:    "git_status",
		Summary: "Show repository status",
		Usage:   `{"tool": "git_status", "params": {}}`,
		Handler: GitStatus,
	})
	r.Register(Tool{
		Name:    "git_diff",
		Summary: "Show changes, optionally staged or for one file",
		Usage:   `{"tool": "git_diff", "params": {"file_path": "main.go", "staged": false}}`,
		Handler: GitDiff,
	})
	r.Register(Tool{
		Name:    "git_log",
		Summary: "Show recent commits",
		Usage:   `{"tool": "git_log", "params": {"limit": 10}}`,
		Handler: GitLog,
	})
	r.Register(Tool{
		Name:    "git_add",
		Summary: "Stage files for commit",
		Usage:   `{"tool": "git_add", "params": {"files": ["file1.go"]}}`,
		Handler: GitAdd,
	})
	r.Register(Tool{
		Name:    "git_commit",
		Summary: "Create a commit from staged changes",
		Usage:   `{"tool": "git_commit", "params": {"message": "fix: handle empty input"}}`,
		Handler: GitCommit,
	})
	r.Register(Tool{
		Name:    "git_branch",
		Summary: "List branches",
		Usage:   `{"tool": "git_branch", "params": {}}`,
		Handler: GitBranch,
	})

	return r
}

// Register adds or replaces a tool
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name] = tool
}

// Execute runs the named tool
func (r *Registry) Execute(name string, params Params, workingDir string) (string, error) {
	tool, exists := r.tools[name]
	if !exists {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Handler(params, workingDir)
}

// Describe renders the tool catalog for the system prompt, sorted by name
func (r *Registry) Describe() string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		tool := r.tools[name]
		fmt.Fprintf(&sb, "%d. %s - %s\n   %s\n", i+1, tool.Name, tool.Summary, tool.Usage)
	}
	return sb.String()
}
