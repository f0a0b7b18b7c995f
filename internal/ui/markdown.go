package ui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const defaultWrapWidth = 100

var (
	markdownMu       sync.Mutex
	markdownRenderer *glamour.TermRenderer
)

func init() {
	setupMarkdown(defaultWrapWidth)
}

// setupMarkdown builds the glamour renderer; on failure rendering
// degrades to plain text
func setupMarkdown(width int) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		markdownRenderer = nil
		return
	}
	markdownRenderer = r
}

// RenderMarkdown renders markdown with terminal styling, falling back
// to the raw text when the renderer is unavailable
func RenderMarkdown(content string) string {
	markdownMu.Lock()
	r := markdownRenderer
	markdownMu.Unlock()
	if r == nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// RenderMarkdownToWriter renders markdown to stdout with a trailing newline
func RenderMarkdownToWriter(content string) {
	os.Stdout.WriteString(RenderMarkdown(content))
	os.Stdout.WriteString("\n")
}

// SetWordWrap reinitializes the renderer with a new wrap width
func SetWordWrap(width int) {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	setupMarkdown(width)
}

// DisableMarkdown switches to plain-text output
func DisableMarkdown() {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	markdownRenderer = nil
}

// IsMarkdownEnabled reports whether styled rendering is active
func IsMarkdownEnabled() bool {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	return markdownRenderer != nil
}
