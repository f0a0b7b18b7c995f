package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "prism-tools-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestWriteAndReadFile(t *testing.T) {
	dir := setupTestDir(t)

	_, err := WriteFile(Params{
		"file_path": "sub/hello.txt",
		"content":   "line one\nline two\nline three",
	}, dir)
	if err != nil {
		t.Fatalf("write_file failed: %v", err)
	}

	out, err := ReadFile(Params{"file_path": "sub/hello.txt"}, dir)
	if err != nil {
		t.Fatalf("read_file failed: %v", err)
	}
	if out != "line one\nline two\nline three" {
		t.Errorf("unexpected content: %q", out)
	}
}

func TestReadFileLineRange(t *testing.T) {
	dir := setupTestDir(t)
	path := filepath.Join(dir, "ranged.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\nd\ne"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := ReadFile(Params{
		"file_path":  "ranged.txt",
		"start_line": float64(2),
		"end_line":   float64(4),
	}, dir)
	if err != nil {
		t.Fatalf("read_file failed: %v", err)
	}
	if !strings.Contains(out, "lines 2-4 of 5") {
		t.Errorf("missing range header: %q", out)
	}
	if !strings.Contains(out, "   3: c") {
		t.Errorf("missing numbered line: %q", out)
	}
	if strings.Contains(out, "e") && strings.Contains(out, "   5:") {
		t.Errorf("line outside range included: %q", out)
	}
}

func TestReadFileRangeOutOfBounds(t *testing.T) {
	dir := setupTestDir(t)
	path := filepath.Join(dir, "short.txt")
	if err := os.WriteFile(path, []byte("only\ntwo"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadFile(Params{"file_path": "short.txt", "start_line": float64(9)}, dir)
	if err == nil {
		t.Error("expected error for start_line past end of file")
	}
}

func TestEditFileSingleMatch(t *testing.T) {
	dir := setupTestDir(t)
	path := filepath.Join(dir, "edit.go")
	if err := os.WriteFile(path, []byte("func old() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := EditFile(Params{
		"file_path":  "edit.go",
		"old_string": "func old()",
		"new_string": "func renamed()",
	}, dir)
	if err != nil {
		t.Fatalf("edit_file failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "func renamed() {}\n" {
		t.Errorf("unexpected content after edit: %q", content)
	}
}

func TestEditFileAmbiguousMatchRejected(t *testing.T) {
	dir := setupTestDir(t)
	path := filepath.Join(dir, "dup.txt")
	if err := os.WriteFile(path, []byte("x\nx\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := EditFile(Params{
		"file_path":  "dup.txt",
		"old_string": "x",
		"new_string": "y",
	}, dir)
	if err == nil {
		t.Fatal("expected error for ambiguous match without replace_all")
	}

	out, err := EditFile(Params{
		"file_path":   "dup.txt",
		"old_string":  "x",
		"new_string":  "y",
		"replace_all": true,
	}, dir)
	if err != nil {
		t.Fatalf("replace_all edit failed: %v", err)
	}
	if !strings.Contains(out, "2 occurrences") {
		t.Errorf("expected occurrence count in result: %q", out)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "y\ny\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestEditFileEmptyOldStringRejected(t *testing.T) {
	dir := setupTestDir(t)
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := EditFile(Params{
		"file_path":  "f.txt",
		"old_string": "",
		"new_string": "anything",
	}, dir)
	if err == nil {
		t.Error("expected error for empty old_string")
	}
}

func TestListFilesRecursive(t *testing.T) {
	dir := setupTestDir(t)
	if err := os.MkdirAll(filepath.Join(dir, "pkg"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pkg", "a.go"), []byte("package pkg"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "top.md"), []byte("# top"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := ListFiles(Params{"recursive": true}, dir)
	if err != nil {
		t.Fatalf("list_files failed: %v", err)
	}
	if !strings.Contains(out, "[DIR]  pkg") {
		t.Errorf("missing directory entry: %q", out)
	}
	if !strings.Contains(out, filepath.Join("pkg", "a.go")) {
		t.Errorf("missing nested file entry: %q", out)
	}

	flat, err := ListFiles(Params{}, dir)
	if err != nil {
		t.Fatalf("list_files failed: %v", err)
	}
	if strings.Contains(flat, "a.go") {
		t.Errorf("non-recursive listing descended into subdirectory: %q", flat)
	}
}

func TestSearchFiles(t *testing.T) {
	dir := setupTestDir(t)
	if err := os.WriteFile(filepath.Join(dir, "code.go"), []byte("func Target() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := SearchFiles(Params{"pattern": "Target"}, dir)
	if err != nil {
		t.Fatalf("search_files failed: %v", err)
	}
	if !strings.Contains(out, "code.go") || !strings.Contains(out, "Target") {
		t.Errorf("expected match line, got: %q", out)
	}

	out, err = SearchFiles(Params{"pattern": "Nonexistent"}, dir)
	if err != nil {
		t.Fatalf("search_files failed: %v", err)
	}
	if out != "No matches found" {
		t.Errorf("expected no-match message, got: %q", out)
	}
}

func TestExecuteCommand(t *testing.T) {
	dir := setupTestDir(t)

	out, err := ExecuteCommand(Params{"command": "echo hello"}, dir)
	if err != nil {
		t.Fatalf("execute_command failed: %v", err)
	}
	if !strings.Contains(out, "STDOUT:") || !strings.Contains(out, "hello") {
		t.Errorf("missing stdout section: %q", out)
	}
	if !strings.Contains(out, "Exit: 0") {
		t.Errorf("missing exit status: %q", out)
	}
}

func TestExecuteCommandNonZeroExit(t *testing.T) {
	dir := setupTestDir(t)

	out, err := ExecuteCommand(Params{"command": "exit 3"}, dir)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if strings.Contains(out, "Exit: 0") {
		t.Errorf("exit status should reflect failure: %q", out)
	}
}

func TestGitWorkflow(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := setupTestDir(t)
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("v1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := GitStatus(Params{}, dir)
	if err != nil {
		t.Fatalf("git_status failed: %v", err)
	}
	if !strings.Contains(out, "tracked.txt") {
		t.Errorf("untracked file not reported: %q", out)
	}

	if _, err := GitAdd(Params{"files": []interface{}{"tracked.txt"}}, dir); err != nil {
		t.Fatalf("git_add failed: %v", err)
	}
	if _, err := GitCommit(Params{"message": "add tracked file"}, dir); err != nil {
		t.Fatalf("git_commit failed: %v", err)
	}

	out, err = GitStatus(Params{}, dir)
	if err != nil {
		t.Fatalf("git_status failed: %v", err)
	}
	if !strings.Contains(out, "clean") {
		t.Errorf("expected clean tree after commit: %q", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("v2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = GitDiff(Params{}, dir)
	if err != nil {
		t.Fatalf("git_diff failed: %v", err)
	}
	if !strings.Contains(out, "+v2") {
		t.Errorf("diff missing change: %q", out)
	}

	out, err = GitLog(Params{"limit": float64(5)}, dir)
	if err != nil {
		t.Fatalf("git_log failed: %v", err)
	}
	if !strings.Contains(out, "add tracked file") {
		t.Errorf("log missing commit: %q", out)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute("not_a_tool", Params{}, ".")
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("expected unknown tool error, got: %v", err)
	}
}

func TestRegistryDescribeListsAllTools(t *testing.T) {
	r := NewRegistry()
	catalog := r.Describe()
	for _, name := range []string{
		"read_file", "write_file", "edit_file", "list_files",
		"search_files", "execute_command",
		"git_status", "git_diff", "git_log", "git_add", "git_commit", "git_branch",
	} {
		if !strings.Contains(catalog, name) {
			t.Errorf("catalog missing %s", name)
		}
	}
}

func TestParamsHelpers(t *testing.T) {
	p := Params{
		"name":  "value",
		"count": float64(7),
		"flag":  true,
		"items": []interface{}{"a", "b"},
	}

	if v, err := p.String("name"); err != nil || v != "value" {
		t.Errorf("String = %q, %v", v, err)
	}
	if _, err := p.String("missing"); err == nil {
		t.Error("String should error on missing key")
	}
	if v := p.OptionalString("missing", "fallback"); v != "fallback" {
		t.Errorf("OptionalString fallback = %q", v)
	}
	if n, ok := p.Int("count"); !ok || n != 7 {
		t.Errorf("Int = %d, %v", n, ok)
	}
	if !p.Bool("flag") || p.Bool("missing") {
		t.Error("Bool mismatch")
	}
	if items := p.Strings("items"); len(items) != 2 || items[0] != "a" {
		t.Errorf("Strings = %v", items)
	}
}
