package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary = lipgloss.Color("#06B6D4") // Cyan
	Accent  = lipgloss.Color("#8B5CF6") // Violet
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#EF4444") // Red
	Warning = lipgloss.Color("#EAB308") // Yellow
	Muted   = lipgloss.Color("#71717A") // Gray
)

// Text styles
var (
	Bold   = lipgloss.NewStyle().Bold(true)
	Subtle = lipgloss.NewStyle().Foreground(Muted)
)

// Tool status styles
var (
	ToolRead  = lipgloss.NewStyle().Foreground(Muted)
	ToolWrite = lipgloss.NewStyle().Foreground(Success)
	ToolError = lipgloss.NewStyle().Foreground(Error)
)

// UI element styles
var (
	PromptStyle  = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	SpinnerStyle = lipgloss.NewStyle().Foreground(Accent)
	SessionStyle = lipgloss.NewStyle().Foreground(Accent)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ContextStyle = lipgloss.NewStyle().Foreground(Primary)
)

// Icon constants
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconArrow   = "→"
	IconWarning = "⚠"
	IconInfo    = "ℹ"
	IconContext = "◈"
	IconBranch  = "⎇"
)
