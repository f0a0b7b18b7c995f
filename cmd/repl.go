package cmd

import (
	gocontext "context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/viper"

	"github.com/prism-dev/prism/internal/assistant"
	"github.com/prism-dev/prism/internal/discovery"
	"github.com/prism-dev/prism/internal/ui"
)

// assistantOptions builds the assistant configuration from viper state
func assistantOptions(workingDir string) assistant.Options {
	return assistant.Options{
		Vendor:        viper.GetString("vendor"),
		Host:          viper.GetString("host"),
		APIKey:        viper.GetString("key"),
		Model:         viper.GetString("model"),
		Streaming:     !viper.GetBool("no_stream"),
		EnableSpinner: !viper.GetBool("no_spinner"),
		WorkingDir:    workingDir,
		Logger:        newLogger(),
	}
}

func startREPL() {
	workingDir, _ := os.Getwd()
	renderer := ui.NewRenderer()

	fmt.Print(renderer.WelcomeMessage())

	opts := assistantOptions(workingDir)
	asst, err := assistant.New(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
		fmt.Fprintln(os.Stderr, "Configure a provider via:")
		fmt.Fprintln(os.Stderr, "  - Environment: export ANTHROPIC_API_KEY=... (or OPENAI_API_KEY)")
		fmt.Fprintln(os.Stderr, "  - Config file: ~/.prism/config.yaml")
		fmt.Fprintln(os.Stderr, "  - Flags: --vendor, --host, --key")
		os.Exit(1)
	}

	fmt.Print(renderer.ProjectContextMessage(asst.HasProjectContext()))

	if info := asst.ProviderInfo(); info != nil {
		fmt.Print(renderer.ProviderMessage(info))
	}
	if session := asst.Session(); session != nil && len(session.Messages) > 0 {
		fmt.Print(renderer.SessionResumeMessage(session.Name, len(session.Messages)))
	}
	fmt.Println()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36m❯\033[0m ",
		HistoryFile:     filepath.Join(os.Getenv("HOME"), ".prism", "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    NewFileCompleter(workingDir),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or Ctrl+C
			fmt.Println("\nGoodbye!")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// expand @path references into file content
		if strings.Contains(line, "@") {
			if !isInitializedProject(workingDir) {
				fmt.Println(renderer.InfoMessage("Run /init to enable @ file references with Tab completion"))
			} else {
				expanded, err := expandFileReferences(line, workingDir)
				if err != nil {
					fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
					continue
				}
				line = expanded
			}
		}

		if strings.HasPrefix(line, "/") {
			handleCommand(line, workingDir, &asst)
			continue
		}

		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye!")
			break
		}

		if err := asst.ProcessMessage(line); err != nil {
			fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
		}
		fmt.Println()
	}
}

func handleCommand(cmd string, workingDir string, asst **assistant.Assistant) {
	renderer := ui.NewRenderer()
	parts := strings.Fields(cmd)
	baseCmd := parts[0]
	args := parts[1:]

	switch baseCmd {
	case "/init":
		if err := assistant.InitProject(workingDir, newLogger()); err != nil {
			fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
			return
		}
		reloadAssistant(workingDir, asst, "Assistant reloaded with project context.")

	case "/reload":
		reloadAssistant(workingDir, asst, "Project context reloaded.")

	case "/help":
		printHelp()

	case "/context":
		handleContext(*asst, strings.Join(args, " "))

	case "/usage":
		usage, err := (*asst).Usage()
		if err != nil {
			fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
			return
		}
		fmt.Println(renderer.FormatUsage(usage))

	case "/cache":
		handleCacheCommand(*asst, args)

	case "/clear":
		if err := (*asst).NewSession(""); err != nil {
			fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
			return
		}
		fmt.Println("Conversation cleared. Started new session.")
		fmt.Println()

	case "/session":
		handleSession(*asst, args)

	case "/sessions":
		handleListSessions(*asst)

	case "/branch":
		handleBranch(*asst, args)

	case "/branches":
		handleListBranches(*asst)

	case "/status":
		handleStatus(*asst, workingDir)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type '/help' for available commands.")
		fmt.Println()
	}
}

func reloadAssistant(workingDir string, asst **assistant.Assistant, doneMsg string) {
	newAsst, err := assistant.New(assistantOptions(workingDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reinitializing assistant: %v\n", err)
		return
	}
	*asst = newAsst
	fmt.Println(doneMsg)
	fmt.Println()
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println()
	fmt.Println("  Project:")
	fmt.Println("    /init             - Initialize project (creates PRISM.md and .prism/)")
	fmt.Println("    /reload           - Reload project context from PRISM.md")
	fmt.Println("    /context [query]  - Preview discovered context, optionally query-ranked")
	fmt.Println("    /status           - Show project and session status")
	fmt.Println()
	fmt.Println("  Sessions:")
	fmt.Println("    /session             - Show current session info")
	fmt.Println("    /sessions            - List all conversation sessions")
	fmt.Println("    /session new [name]  - Start a new conversation session")
	fmt.Println("    /session load <id>   - Load a previous session")
	fmt.Println("    /clear               - Clear current conversation (start new session)")
	fmt.Println()
	fmt.Println("  Branches:")
	fmt.Println("    /branch <name>       - Fork the conversation into a new branch")
	fmt.Println("    /branch switch <name> - Switch to an existing branch")
	fmt.Println("    /branches            - List branches of the current session")
	fmt.Println()
	fmt.Println("  Cache:")
	fmt.Println("    /cache               - Show context cache statistics")
	fmt.Println("    /cache clear         - Drop all cached project scans")
	fmt.Println("    /cache invalidate    - Drop cached scans for this project")
	fmt.Println()
	fmt.Println("  Other:")
	fmt.Println("    /usage               - Show token usage statistics")
	fmt.Println("    /help                - Show this help message")
	fmt.Println("    exit                 - Exit Prism")
	fmt.Println()
	fmt.Println("  File References (requires /init):")
	fmt.Println("    @<Tab>   - Show file completion list")
	fmt.Println("    @path    - Include specific file (e.g., @src/main.go)")
	fmt.Println()
}

// handleContext previews the discovered context without a model call
func handleContext(asst *assistant.Assistant, query string) {
	renderer := ui.NewRenderer()

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 30*time.Second)
	defer cancel()

	res, err := asst.DiscoverContext(ctx, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
		return
	}
	fmt.Println(renderer.ContextMessage(len(res.Files), res.TotalTokens, res.FromCache))
	fmt.Print(discovery.FormatPreview(res, asst.Discovery().Config().MaxTokens))
	fmt.Println()
}

func handleCacheCommand(asst *assistant.Assistant, args []string) {
	cache := asst.Discovery().Cache()
	if cache == nil {
		fmt.Println("Context cache is disabled.")
		fmt.Println()
		return
	}

	action := "stats"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "stats":
		stats := cache.Stats()
		fmt.Printf("Context cache: %d entries, %d hits, %d misses\n", stats.Entries, stats.Hits, stats.Misses)
	case "clear":
		cache.Clear()
		fmt.Println("Context cache cleared.")
	case "invalidate":
		cache.Invalidate(asst.WorkingDir())
		fmt.Println("Cached scans for this project dropped.")
	default:
		fmt.Println("Usage: /cache [stats|clear|invalidate]")
	}
	fmt.Println()
}

func handleSession(asst *assistant.Assistant, args []string) {
	switch {
	case len(args) == 0:
		session := asst.Session()
		if session == nil {
			fmt.Println("No active session.")
			fmt.Println()
			return
		}
		fmt.Println("Current Session:")
		fmt.Printf("  ID: %s\n", session.ID[:8])
		if session.Name != "" {
			fmt.Printf("  Name: %s\n", session.Name)
		}
		fmt.Printf("  Branch: %s\n", session.ActiveBranch)
		fmt.Printf("  Messages: %d\n", len(session.Messages))
		fmt.Printf("  Created: %s\n", session.CreatedAt.Format(time.RFC3339))
		fmt.Printf("  Updated: %s\n", session.UpdatedAt.Format(time.RFC3339))
		fmt.Println()

	case args[0] == "new":
		name := ""
		if len(args) > 1 {
			name = strings.Join(args[1:], " ")
		}
		if err := asst.NewSession(name); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
			return
		}
		fmt.Println("Started new conversation session.")
		fmt.Println()

	case args[0] == "load" && len(args) > 1:
		if err := asst.LoadSession(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading session: %v\n", err)
			return
		}
		fmt.Printf("Loaded session with %d messages.\n", len(asst.Session().Messages))
		fmt.Println()

	default:
		fmt.Println("Usage: /session [new [name]|load <id>]")
		fmt.Println()
	}
}

func handleListSessions(asst *assistant.Assistant) {
	sessions, err := asst.ListSessions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing sessions: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("No saved sessions.")
		fmt.Println()
		return
	}

	current := asst.Session()
	fmt.Println("Sessions:")
	for _, s := range sessions {
		active := ""
		if current != nil && s.ID == current.ID {
			active = " (active)"
		}
		label := s.ID[:8]
		if s.Name != "" {
			label += " " + s.Name
		}
		fmt.Printf("  %s - %d messages - %s%s\n",
			label, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"), active)
	}
	fmt.Println()
	fmt.Println("Use '/session load <id>' to load a session.")
	fmt.Println()
}

func handleBranch(asst *assistant.Assistant, args []string) {
	renderer := ui.NewRenderer()
	switch {
	case len(args) == 0:
		session := asst.Session()
		if session == nil {
			fmt.Println("No active session.")
			fmt.Println()
			return
		}
		fmt.Println(renderer.BranchMessage(session.ActiveBranch))
		fmt.Println()

	case args[0] == "switch" && len(args) > 1:
		if err := asst.SwitchBranch(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
			return
		}
		fmt.Println(renderer.SuccessMessage("Switched to branch " + args[1]))
		fmt.Println()

	default:
		name := args[0]
		if err := asst.NewBranch(name); err != nil {
			fmt.Fprintln(os.Stderr, renderer.ErrorMessage(err))
			return
		}
		fmt.Println(renderer.SuccessMessage("Forked conversation into branch " + name))
		fmt.Println()
	}
}

func handleListBranches(asst *assistant.Assistant) {
	branches, err := asst.ListBranches()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing branches: %v\n", err)
		return
	}

	current := asst.Session()
	fmt.Println("Branches:")
	for _, b := range branches {
		active := ""
		if current != nil && b.Name == current.ActiveBranch {
			active = " (active)"
		}
		fmt.Printf("  %s %s - created %s%s\n",
			ui.IconBranch, b.Name, b.CreatedAt.Format("2006-01-02 15:04"), active)
	}
	fmt.Println()
}

func handleStatus(asst *assistant.Assistant, workingDir string) {
	fmt.Println("Status:")
	fmt.Println()

	if info := asst.ProviderInfo(); info != nil {
		fmt.Printf("  Provider: %s (%s)\n", info.Name, info.Type)
		if info.Host != "" {
			fmt.Printf("  Host: %s\n", info.Host)
		}
		fmt.Printf("  Model: %s\n", info.Model)
	}

	if asst.HasProjectContext() {
		fmt.Println("  Project: Initialized")
	} else {
		fmt.Println("  Project: Not initialized (run /init)")
	}

	if session := asst.Session(); session != nil {
		fmt.Printf("  Session: %s (%d messages, branch %s)\n",
			session.ID[:8], len(session.Messages), session.ActiveBranch)
	} else {
		fmt.Println("  Session: None")
	}

	if store := asst.Store(); store != nil {
		fmt.Printf("  Storage: %s\n", store.RootDir())
	} else {
		fmt.Println("  Storage: Not available")
	}

	if cache := asst.Discovery().Cache(); cache != nil {
		stats := cache.Stats()
		fmt.Printf("  Cache: %d entries (%d hits / %d misses)\n", stats.Entries, stats.Hits, stats.Misses)
	}

	fmt.Println()
}
