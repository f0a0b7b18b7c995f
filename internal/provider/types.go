package provider

import "context"

// Type represents the LLM provider type
type Type string

const (
	TypeOpenAI     Type = "openai"
	TypeAnthropic  Type = "anthropic"
	TypeCompatible Type = "compatible"
	TypeUnknown    Type = "unknown"
)

// String returns the string representation of the provider type
func (t Type) String() string {
	return string(t)
}

// DisplayName returns a human-readable name for the provider type
func (t Type) DisplayName() string {
	switch t {
	case TypeOpenAI:
		return "OpenAI"
	case TypeAnthropic:
		return "Anthropic"
	case TypeCompatible:
		return "OpenAI-compatible"
	default:
		return "Unknown"
	}
}

// Info holds provider metadata
type Info struct {
	Type   Type     // Provider type (openai, anthropic, compatible)
	Name   string   // Display name (e.g., "Anthropic")
	Host   string   // Base URL ("" for the vendor default)
	Model  string   // Selected model
	Models []string // Available models
}

// Message roles shared by all providers
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-neutral chat message
type Message struct {
	Role    string
	Content string
}

// Usage holds token counts reported by the provider for one exchange
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatRequest is a single completion request
type ChatRequest struct {
	Model     string
	Messages  []Message // system messages are lifted out for vendors that need it
	MaxTokens int       // 0 means the provider default
}

// Provider interface for LLM operations
type Provider interface {
	// Info returns provider metadata
	Info() *Info

	// ListModels queries available models from the vendor or server
	ListModels(ctx context.Context) ([]string, error)

	// Chat performs a blocking completion and returns the full response
	Chat(ctx context.Context, req ChatRequest) (string, Usage, error)

	// ChatStream streams a completion, invoking onDelta for each text chunk,
	// and returns the full response once the stream ends
	ChatStream(ctx context.Context, req ChatRequest, onDelta func(string)) (string, Usage, error)

	// SetModel sets the active model
	SetModel(model string)
}
