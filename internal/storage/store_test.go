package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "prism-store-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	store, err := Open(dir)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("Failed to open store: %v", err)
	}
	return store, dir
}

func TestCreateAndLoadSession(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	session, err := store.CreateSession("refactor")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ActiveBranch != MainBranch {
		t.Errorf("New session should start on %s, got %s", MainBranch, session.ActiveBranch)
	}

	if _, err := store.AddMessage(session.ID, "user", "hello", TokenUsage{PromptTokens: 10}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if _, err := store.AddMessage(session.ID, "assistant", "hi there", TokenUsage{CompletionTokens: 5}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	loaded, err := store.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != "user" || loaded.Messages[1].Role != "assistant" {
		t.Errorf("Messages out of order: %s, %s", loaded.Messages[0].Role, loaded.Messages[1].Role)
	}
	if loaded.Name != "refactor" {
		t.Errorf("Expected name 'refactor', got %q", loaded.Name)
	}
}

func TestActiveSessionSurvivesReopen(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)

	session, err := store.CreateSession("")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.AddMessage(session.ID, "user", "persist me", TokenUsage{}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	store.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	active, err := reopened.GetActiveSession()
	if err != nil {
		t.Fatalf("GetActiveSession failed: %v", err)
	}
	if active == nil || active.ID != session.ID {
		t.Fatal("Active session not restored after reopen")
	}
	if len(active.Messages) != 1 || active.Messages[0].Content != "persist me" {
		t.Errorf("Messages not persisted: %+v", active.Messages)
	}
}

func TestGetActiveSessionEmptyStore(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	active, err := store.GetActiveSession()
	if err != nil {
		t.Fatalf("GetActiveSession failed: %v", err)
	}
	if active != nil {
		t.Errorf("Expected nil session in empty store, got %s", active.ID)
	}
}

func TestBranchForksAndDiverges(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	session, err := store.CreateSession("")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.AddMessage(session.ID, "user", "shared history", TokenUsage{}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	branch, err := store.CreateBranch(session.ID, "experiment")
	if err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}
	if branch.Name != "experiment" {
		t.Errorf("Expected branch name 'experiment', got %q", branch.Name)
	}

	// New branch is active and carries the copied history
	loaded, err := store.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if loaded.ActiveBranch != "experiment" {
		t.Errorf("Expected active branch 'experiment', got %s", loaded.ActiveBranch)
	}
	if len(loaded.Messages) != 1 {
		t.Fatalf("Branch should start with copied history, got %d messages", len(loaded.Messages))
	}

	// Messages on the fork stay off main
	if _, err := store.AddMessage(session.ID, "user", "only on fork", TokenUsage{}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := store.SwitchBranch(session.ID, MainBranch); err != nil {
		t.Fatalf("SwitchBranch failed: %v", err)
	}
	onMain, err := store.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(onMain.Messages) != 1 {
		t.Errorf("Main branch should be untouched by fork, got %d messages", len(onMain.Messages))
	}

	branches, err := store.ListBranches(session.ID)
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}
	if len(branches) != 2 {
		t.Errorf("Expected 2 branches, got %d", len(branches))
	}
}

func TestSwitchToMissingBranch(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	session, err := store.CreateSession("")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.SwitchBranch(session.ID, "nope"); err == nil {
		t.Error("Switching to a missing branch should fail")
	}
}

func TestSessionUsageRollup(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	session, err := store.CreateSession("")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	store.AddMessage(session.ID, "user", "q1", TokenUsage{PromptTokens: 100})
	store.AddMessage(session.ID, "assistant", "a1", TokenUsage{CompletionTokens: 40})
	store.AddMessage(session.ID, "user", "q2", TokenUsage{PromptTokens: 60})

	usage, err := store.SessionUsage(session.ID)
	if err != nil {
		t.Fatalf("SessionUsage failed: %v", err)
	}
	if usage.PromptTokens != 160 || usage.CompletionTokens != 40 || usage.TotalTokens != 200 {
		t.Errorf("Wrong rollup: %+v", usage)
	}
}

func TestListSessionsOrder(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	first, _ := store.CreateSession("first")
	second, _ := store.CreateSession("second")
	// Touch the first session so it sorts to the top
	if _, err := store.AddMessage(first.ID, "user", "bump", TokenUsage{}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Errorf("Most recently updated session should come first")
	}
	_ = second

	if sessions[0].MessageCount != 1 {
		t.Errorf("Expected message count 1, got %d", sessions[0].MessageCount)
	}
}

func TestStoreCreatesStateDir(t *testing.T) {
	store, dir := setupStore(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	if _, err := os.Stat(filepath.Join(dir, DirName, "prism.db")); err != nil {
		t.Errorf("Expected database file under %s: %v", DirName, err)
	}
}
