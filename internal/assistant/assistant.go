package assistant

import (
	gocontext "context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prism-dev/prism/internal/discovery"
	"github.com/prism-dev/prism/internal/provider"
	"github.com/prism-dev/prism/internal/storage"
	"github.com/prism-dev/prism/internal/tools"
	"github.com/prism-dev/prism/internal/ui"
)

// Timeout and retry constants
const (
	providerInitTimeout = 2 * time.Minute
	apiResponseTimeout  = 5 * time.Minute
	maxToolIterations   = 10
	maxRetries          = 3
	initialBackoff      = 1 * time.Second
	maxBackoff          = 30 * time.Second
)

// ContextFileName is the project guidance file loaded into the system prompt
const ContextFileName = "PRISM.md"

// isRetryable checks whether an error is transient and worth retrying
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "temporary failure")
}

// withRetry executes fn with exponential backoff for transient errors
func withRetry[T any](ctx gocontext.Context, operation string, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt < maxRetries {
			fmt.Printf("  ↻ %s failed, retrying in %v (%d/%d)...\n",
				operation, backoff, attempt, maxRetries)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
	return result, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// Options configures a new Assistant
type Options struct {
	Vendor        string // provider vendor ("openai", "anthropic", "compatible", "auto")
	Host          string // base URL override
	APIKey        string
	Model         string // preferred model; auto-detected when empty
	Streaming     bool
	EnableSpinner bool
	WorkingDir    string // defaults to the process working directory
	Logger        *zap.Logger
}

// Assistant drives the conversation loop: provider calls, tool execution,
// session persistence, and context discovery.
type Assistant struct {
	provider      provider.Provider
	conversation  []provider.Message
	toolRegistry  *tools.Registry
	workingDir    string
	streaming     bool
	enableSpinner bool
	renderer      *ui.Renderer
	logger        *zap.Logger

	store   *storage.Store
	session *storage.Session

	smart *discovery.SmartContext
}

// New creates an assistant: connects the provider, picks a model, opens
// session storage, and wires the context discovery engine.
func New(opts Options) (*Assistant, error) {
	renderer := ui.NewRenderer()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), providerInitTimeout)
	defer cancel()

	prov, err := provider.New(opts.Vendor, opts.Host, opts.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	model, err := selectModel(ctx, prov, opts.Model, renderer)
	if err != nil {
		return nil, err
	}
	prov.SetModel(model)

	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	// Storage failure is non-fatal: the REPL works without persistence
	var store *storage.Store
	var session *storage.Session
	store, err = storage.Open(workingDir)
	if err != nil {
		fmt.Println(renderer.WarningMessage(fmt.Sprintf("Could not open session storage: %v", err)))
		store = nil
	} else {
		session, _ = store.GetActiveSession()
		if session == nil {
			session, _ = store.CreateSession("")
		}
	}

	cfg := discovery.LoadProjectConfig(workingDir, logger)
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(workingDir, storage.DirName, "cache")
	}
	smart := discovery.New(cfg,
		discovery.WithLogger(logger),
		discovery.WithCache(discovery.NewContextCache(cacheDir, logger)),
	)

	registry := tools.NewRegistry()

	a := &Assistant{
		provider:      prov,
		toolRegistry:  registry,
		workingDir:    workingDir,
		streaming:     opts.Streaming,
		enableSpinner: opts.EnableSpinner,
		renderer:      renderer,
		logger:        logger,
		store:         store,
		session:       session,
		smart:         smart,
	}
	a.resetConversation()
	if session != nil {
		a.appendHistory(session.Messages)
	}
	return a, nil
}

// selectModel picks the model to use, preferring what the server reports
func selectModel(ctx gocontext.Context, prov provider.Provider, configModel string, renderer *ui.Renderer) (string, error) {
	models, err := withRetry(ctx, "model detection", func() ([]string, error) {
		return prov.ListModels(ctx)
	})
	if err != nil || len(models) == 0 {
		if configModel != "" {
			if err != nil {
				fmt.Println(renderer.WarningMessage(fmt.Sprintf("Could not list models (%v), using configured model: %s", err, configModel)))
			}
			return configModel, nil
		}
		if err != nil {
			return "", fmt.Errorf("detect model with no fallback configured: %w", err)
		}
		return "", fmt.Errorf("no models available and no fallback configured")
	}

	if configModel != "" {
		for _, m := range models {
			if m == configModel {
				return configModel, nil
			}
		}
		fmt.Println(renderer.InfoMessage(fmt.Sprintf("Configured model %q not served. Using: %s", configModel, models[0])))
	}
	return models[0], nil
}

// resetConversation rebuilds the conversation down to the system prompt
func (a *Assistant) resetConversation() {
	a.conversation = []provider.Message{{
		Role:    provider.RoleSystem,
		Content: a.buildSystemPrompt(),
	}}
}

// appendHistory replays persisted messages into the conversation
func (a *Assistant) appendHistory(messages []storage.Message) {
	for _, msg := range messages {
		role := provider.RoleUser
		if msg.Role == provider.RoleAssistant {
			role = provider.RoleAssistant
		}
		a.conversation = append(a.conversation, provider.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
}

// buildSystemPrompt assembles the system prompt: behavior rules, the tool
// catalog, project guidance from PRISM.md, and the working directory.
func (a *Assistant) buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(`You are Prism, an AI assistant for software development running in the user's terminal.
You have full access to the project filesystem and can execute commands.

You are PROJECT-AWARE and AUTONOMOUS. When the user asks about the project, explore the codebase with your tools before answering. Never give up after one failed attempt.

## TOOLS

`)
	sb.WriteString(a.toolRegistry.Describe())
	sb.WriteString(`
## TOOL USAGE

To use a tool, output ONLY the JSON object:
{"tool": "tool_name", "params": {"param1": "value1"}}

You may output several JSON objects (or one JSON array of them) to run multiple tools in one turn; results come back together.

## RULES

- Output ONLY JSON when using a tool, no surrounding text or code fences
- read_file before edit_file; old_string must match the file exactly
- If a search finds nothing, try different terms or read files directly
- After gathering information, give a complete answer`)

	if content, err := os.ReadFile(filepath.Join(a.workingDir, ContextFileName)); err == nil {
		fmt.Fprintf(&sb, "\n\n## PROJECT CONTEXT\nProject-specific guidance from %s:\n\n%s", ContextFileName, string(content))
	}

	fmt.Fprintf(&sb, "\n\nCurrent working directory: %s", a.workingDir)
	return sb.String()
}

// HasProjectContext reports whether PRISM.md exists in the working directory
func (a *Assistant) HasProjectContext() bool {
	_, err := os.Stat(filepath.Join(a.workingDir, ContextFileName))
	return err == nil
}

// Session returns the active session, nil without storage
func (a *Assistant) Session() *storage.Session {
	return a.session
}

// Store returns the session store, nil when persistence is unavailable
func (a *Assistant) Store() *storage.Store {
	return a.store
}

// ProviderInfo returns metadata about the connected provider
func (a *Assistant) ProviderInfo() *provider.Info {
	if a.provider == nil {
		return nil
	}
	return a.provider.Info()
}

// Discovery returns the context discovery engine
func (a *Assistant) Discovery() *discovery.SmartContext {
	return a.smart
}

// WorkingDir returns the project root the assistant operates in
func (a *Assistant) WorkingDir() string {
	return a.workingDir
}

// Usage returns the cumulative token usage for the active session
func (a *Assistant) Usage() (*storage.TokenUsage, error) {
	if a.store == nil || a.session == nil {
		return &storage.TokenUsage{}, nil
	}
	return a.store.SessionUsage(a.session.ID)
}

// ListSessions returns all stored sessions
func (a *Assistant) ListSessions() ([]storage.SessionMetadata, error) {
	if a.store == nil {
		return nil, fmt.Errorf("session storage not available")
	}
	return a.store.ListSessions()
}

// NewSession starts a fresh session and resets the conversation
func (a *Assistant) NewSession(name string) error {
	if a.store == nil {
		return fmt.Errorf("session storage not available")
	}
	session, err := a.store.CreateSession(name)
	if err != nil {
		return err
	}
	a.session = session
	a.resetConversation()
	return nil
}

// LoadSession switches to a stored session and replays its history
func (a *Assistant) LoadSession(id string) error {
	if a.store == nil {
		return fmt.Errorf("session storage not available")
	}
	session, err := a.store.GetSession(id)
	if err != nil {
		return err
	}
	if err := a.store.SetActiveSession(id); err != nil {
		return err
	}
	a.session = session
	a.resetConversation()
	a.appendHistory(session.Messages)
	return nil
}

// NewBranch forks the active session's conversation under a new branch
func (a *Assistant) NewBranch(name string) error {
	if a.store == nil || a.session == nil {
		return fmt.Errorf("session storage not available")
	}
	if _, err := a.store.CreateBranch(a.session.ID, name); err != nil {
		return err
	}
	return a.reloadActiveBranch()
}

// SwitchBranch moves the active session to an existing branch
func (a *Assistant) SwitchBranch(name string) error {
	if a.store == nil || a.session == nil {
		return fmt.Errorf("session storage not available")
	}
	if err := a.store.SwitchBranch(a.session.ID, name); err != nil {
		return err
	}
	return a.reloadActiveBranch()
}

// ListBranches returns the active session's branches
func (a *Assistant) ListBranches() ([]storage.Branch, error) {
	if a.store == nil || a.session == nil {
		return nil, fmt.Errorf("session storage not available")
	}
	return a.store.ListBranches(a.session.ID)
}

func (a *Assistant) reloadActiveBranch() error {
	session, err := a.store.GetSession(a.session.ID)
	if err != nil {
		return err
	}
	a.session = session
	a.resetConversation()
	a.appendHistory(session.Messages)
	return nil
}

// DiscoverContext runs context discovery against the working directory
func (a *Assistant) DiscoverContext(ctx gocontext.Context, query string) (*discovery.Result, error) {
	return a.smart.Discover(ctx, a.workingDir, query)
}

// recordMessage persists a message, ignoring storage failures
func (a *Assistant) recordMessage(role, content string, usage storage.TokenUsage) {
	if a.store == nil || a.session == nil {
		return
	}
	if _, err := a.store.AddMessage(a.session.ID, role, content, usage); err != nil {
		a.logger.Warn("failed to persist message", zap.Error(err))
	}
}

// ProcessMessage runs one user turn: sends the conversation to the model,
// executes any requested tools, and loops until the model answers in prose.
func (a *Assistant) ProcessMessage(userMessage string) error {
	a.recordMessage(provider.RoleUser, userMessage, storage.TokenUsage{})
	a.conversation = append(a.conversation, provider.Message{
		Role:    provider.RoleUser,
		Content: userMessage,
	})

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), apiResponseTimeout)
	defer cancel()

	for i := 0; i < maxToolIterations; i++ {
		var spinner *ui.Spinner
		if a.enableSpinner {
			spinner = ui.NewSpinner()
			spinner.Start("Thinking...")
		}

		req := provider.ChatRequest{Messages: a.conversation}

		var response string
		var usage provider.Usage
		var err error
		if a.streaming {
			// Buffered streaming: the filter strips <think> blocks while
			// the full response accumulates for tool call parsing
			filter := NewStreamFilter()
			_, usage, err = a.provider.ChatStream(ctx, req, func(delta string) {
				filter.Process(delta)
			})
			response = filter.FullContent()
		} else {
			response, usage, err = a.provider.Chat(ctx, req)
		}

		if spinner != nil {
			spinner.Stop()
		}
		if err != nil {
			return fmt.Errorf("provider request: %w", err)
		}

		toolCalls, displayText := parseToolCalls(response)

		a.conversation = append(a.conversation, provider.Message{
			Role:    provider.RoleAssistant,
			Content: response,
		})
		a.recordMessage(provider.RoleAssistant, response, storage.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		})

		if len(toolCalls) == 0 {
			if text := cleanResponse(response); text != "" {
				fmt.Println(ui.RenderMarkdown(text))
			}
			return nil
		}

		if displayText != "" {
			fmt.Println(ui.RenderMarkdown(displayText))
		}

		results := a.executeToolCalls(toolCalls)
		a.conversation = append(a.conversation, provider.Message{
			Role:    provider.RoleUser,
			Content: results,
		})
		a.recordMessage(provider.RoleUser, results, storage.TokenUsage{})
	}

	return fmt.Errorf("tool loop exceeded %d iterations", maxToolIterations)
}

// executeToolCalls runs each tool, prints its status, and aggregates the
// results into one message for the model
func (a *Assistant) executeToolCalls(calls []*ToolCall) string {
	var all strings.Builder
	total := len(calls)

	for idx, call := range calls {
		var spinner *ui.Spinner
		if a.enableSpinner {
			spinner = ui.NewSpinner()
			if total > 1 {
				spinner.Start(fmt.Sprintf("Running %s (%d/%d)...", call.Tool, idx+1, total))
			} else {
				spinner.Start(fmt.Sprintf("Running %s...", call.Tool))
			}
		}

		start := time.Now()
		result, err := a.toolRegistry.Execute(call.Tool, call.Params, a.workingDir)
		isError := err != nil
		if isError {
			result = fmt.Sprintf("Error: %v", err)
		}

		if spinner != nil {
			spinner.Stop()
		}

		fmt.Println(a.renderer.FormatToolStatus(call.Tool, call.Params, result, isError))
		a.logger.Debug("tool executed",
			zap.String("tool", call.Tool),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("error", isError))

		if total > 1 {
			fmt.Fprintf(&all, "[%d] %s result:\n%s\n\n", idx+1, call.Tool, result)
		} else {
			fmt.Fprintf(&all, "Tool result:\n%s", result)
		}
	}
	return all.String()
}
