// Package storage provides the SQLite-backed session store. Conversations
// live in .prism/prism.db inside the project directory: sessions hold named
// branches, branches hold messages, and token usage is rolled up from the
// per-message counts.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// DirName is the per-project state directory
	DirName = ".prism"

	dbFileName = "prism.db"

	// MainBranch is the branch every session starts on
	MainBranch = "main"

	activeSessionKey = "active_session"

	timeFormat = time.RFC3339Nano
)

// Session is a conversation session with the messages of its active branch.
type Session struct {
	ID           string
	Name         string
	ActiveBranch string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Messages     []Message
}

// SessionMetadata is the listing view of a session.
type SessionMetadata struct {
	ID           string
	Name         string
	ActiveBranch string
	MessageCount int
	UpdatedAt    time.Time
}

// Branch is a named conversation branch within a session.
type Branch struct {
	ID        string
	SessionID string
	Name      string
	ParentID  string
	CreatedAt time.Time
}

// Message is a single chat message on a branch.
type Message struct {
	ID               string
	SessionID        string
	BranchID         string
	Role             string
	Content          string
	PromptTokens     int
	CompletionTokens int
	CreatedAt        time.Time
}

// TokenUsage aggregates token counts over a session or branch.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Store manages the .prism/prism.db database.
type Store struct {
	db      *sql.DB
	rootDir string
}

// Open opens or creates the store under projectDir/.prism.
func Open(projectDir string) (*Store, error) {
	rootDir := filepath.Join(projectDir, DirName)
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(rootDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{db: db, rootDir: rootDir}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RootDir returns the .prism directory path.
func (s *Store) RootDir() string {
	return s.rootDir
}

// CreateSession creates a session with a main branch and marks it active.
func (s *Store) CreateSession(name string) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:           uuid.New().String(),
		Name:         name,
		ActiveBranch: MainBranch,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO sessions (id, name, active_branch, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		session.ID, session.Name, session.ActiveBranch,
		now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO branches (id, session_id, name, parent_id, created_at) VALUES (?, ?, ?, '', ?)",
		uuid.New().String(), session.ID, MainBranch, now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert main branch: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
		activeSessionKey, session.ID)
	if err != nil {
		return nil, fmt.Errorf("set active session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return session, nil
}

// GetSession loads a session and the messages of its active branch.
func (s *Store) GetSession(id string) (*Session, error) {
	session := &Session{ID: id}
	var created, updated string
	err := s.db.QueryRow(
		"SELECT name, active_branch, created_at, updated_at FROM sessions WHERE id = ?", id).
		Scan(&session.Name, &session.ActiveBranch, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	session.CreatedAt, _ = time.Parse(timeFormat, created)
	session.UpdatedAt, _ = time.Parse(timeFormat, updated)

	branch, err := s.branchByName(id, session.ActiveBranch)
	if err != nil {
		return nil, err
	}
	session.Messages, err = s.branchMessages(branch.ID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetActiveSession returns the last active session, or nil if none exists.
func (s *Store) GetActiveSession() (*Session, error) {
	var id string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", activeSessionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active session id: %w", err)
	}
	session, err := s.GetSession(id)
	if err != nil {
		// Stale pointer, e.g. the session row was deleted
		return nil, nil
	}
	return session, nil
}

// SetActiveSession marks a session as the one to resume.
func (s *Store) SetActiveSession(id string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
		activeSessionKey, id)
	if err != nil {
		return fmt.Errorf("set active session: %w", err)
	}
	return nil
}

// ListSessions returns metadata for all sessions, most recent first.
func (s *Store) ListSessions() ([]SessionMetadata, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.name, s.active_branch, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count
		FROM sessions s
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		var updated string
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.ActiveBranch, &updated, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		meta.UpdatedAt, _ = time.Parse(timeFormat, updated)
		out = append(out, meta)
	}
	return out, rows.Err()
}

// CreateBranch forks a new branch off the session's active branch, copying
// its messages so the histories diverge independently.
func (s *Store) CreateBranch(sessionID, name string) (*Branch, error) {
	if name == "" || name == MainBranch {
		return nil, fmt.Errorf("invalid branch name %q", name)
	}
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	parent, err := s.branchByName(sessionID, session.ActiveBranch)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	branch := &Branch{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Name:      name,
		ParentID:  parent.ID,
		CreatedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO branches (id, session_id, name, parent_id, created_at) VALUES (?, ?, ?, ?, ?)",
		branch.ID, branch.SessionID, branch.Name, branch.ParentID, now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert branch: %w", err)
	}
	for _, msg := range session.Messages {
		_, err = tx.Exec(`
			INSERT INTO messages (id, session_id, branch_id, role, content, prompt_tokens, completion_tokens, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), sessionID, branch.ID, msg.Role, msg.Content,
			msg.PromptTokens, msg.CompletionTokens, msg.CreatedAt.Format(timeFormat))
		if err != nil {
			return nil, fmt.Errorf("copy message: %w", err)
		}
	}
	_, err = tx.Exec("UPDATE sessions SET active_branch = ?, updated_at = ? WHERE id = ?",
		name, now.Format(timeFormat), sessionID)
	if err != nil {
		return nil, fmt.Errorf("switch branch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return branch, nil
}

// SwitchBranch makes an existing branch the session's active branch.
func (s *Store) SwitchBranch(sessionID, name string) error {
	if _, err := s.branchByName(sessionID, name); err != nil {
		return err
	}
	_, err := s.db.Exec("UPDATE sessions SET active_branch = ?, updated_at = ? WHERE id = ?",
		name, time.Now().Format(timeFormat), sessionID)
	if err != nil {
		return fmt.Errorf("switch branch: %w", err)
	}
	return nil
}

// ListBranches returns all branches of a session, oldest first.
func (s *Store) ListBranches(sessionID string) ([]Branch, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, name, parent_id, created_at FROM branches WHERE session_id = ? ORDER BY created_at",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var b Branch
		var created string
		if err := rows.Scan(&b.ID, &b.SessionID, &b.Name, &b.ParentID, &created); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		b.CreatedAt, _ = time.Parse(timeFormat, created)
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddMessage appends a message to the session's active branch.
func (s *Store) AddMessage(sessionID, role, content string, usage TokenUsage) (*Message, error) {
	session := struct {
		activeBranch string
	}{}
	err := s.db.QueryRow("SELECT active_branch FROM sessions WHERE id = ?", sessionID).
		Scan(&session.activeBranch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	branch, err := s.branchByName(sessionID, session.activeBranch)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &Message{
		ID:               uuid.New().String(),
		SessionID:        sessionID,
		BranchID:         branch.ID,
		Role:             role,
		Content:          content,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CreatedAt:        now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO messages (id, session_id, branch_id, role, content, prompt_tokens, completion_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.BranchID, msg.Role, msg.Content,
		msg.PromptTokens, msg.CompletionTokens, now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	_, err = tx.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?",
		now.Format(timeFormat), sessionID)
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return msg, nil
}

// SessionUsage rolls up token usage across all branches of a session.
func (s *Store) SessionUsage(sessionID string) (*TokenUsage, error) {
	var usage TokenUsage
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM messages WHERE session_id = ?`, sessionID).
		Scan(&usage.PromptTokens, &usage.CompletionTokens)
	if err != nil {
		return nil, fmt.Errorf("sum usage: %w", err)
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return &usage, nil
}

func (s *Store) branchByName(sessionID, name string) (*Branch, error) {
	var b Branch
	var created string
	err := s.db.QueryRow(
		"SELECT id, session_id, name, parent_id, created_at FROM branches WHERE session_id = ? AND name = ?",
		sessionID, name).
		Scan(&b.ID, &b.SessionID, &b.Name, &b.ParentID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("branch %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("load branch: %w", err)
	}
	b.CreatedAt, _ = time.Parse(timeFormat, created)
	return &b, nil
}

func (s *Store) branchMessages(branchID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, branch_id, role, content, prompt_tokens, completion_tokens, created_at
		FROM messages WHERE branch_id = ? ORDER BY created_at`, branchID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var created string
		err := rows.Scan(&m.ID, &m.SessionID, &m.BranchID, &m.Role, &m.Content,
			&m.PromptTokens, &m.CompletionTokens, &created)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(timeFormat, created)
		out = append(out, m)
	}
	return out, rows.Err()
}
