package provider

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for the Anthropic Messages API
type AnthropicProvider struct {
	info   *Info
	client anthropic.Client
}

// NewAnthropicProvider creates a provider for the Anthropic API. An empty
// host targets api.anthropic.com.
func NewAnthropicProvider(host, apiKey string) *AnthropicProvider {
	opts := []aoption.RequestOption{
		aoption.WithAPIKey(apiKey),
		aoption.WithHTTPClient(newHTTPClient()),
	}
	if host != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSuffix(host, "/")))
	}

	return &AnthropicProvider{
		info: &Info{
			Type: TypeAnthropic,
			Name: TypeAnthropic.DisplayName(),
			Host: host,
		},
		client: anthropic.NewClient(opts...),
	}
}

// Info returns provider metadata
func (p *AnthropicProvider) Info() *Info {
	return p.info
}

// SetModel sets the active model
func (p *AnthropicProvider) SetModel(model string) {
	p.info.Model = model
}

// ListModels queries the /v1/models endpoint
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	models := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, string(m.ID))
	}
	p.info.Models = models
	return models, nil
}

// Chat performs a blocking completion
func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (string, Usage, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return "", Usage{}, fmt.Errorf("message completion: %w", err)
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			full.WriteString(text.Text)
		}
	}
	return full.String(), usageFromMessage(msg), nil
}

// ChatStream streams a completion, invoking onDelta for each text delta
func (p *AnthropicProvider) ChatStream(ctx context.Context, req ChatRequest, onDelta func(string)) (string, Usage, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

	msg := anthropic.Message{}
	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return full.String(), usageFromMessage(&msg), fmt.Errorf("accumulate event: %w", err)
		}
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
				full.WriteString(text.Text)
				if onDelta != nil {
					onDelta(text.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), usageFromMessage(&msg), fmt.Errorf("stream error: %w", err)
	}
	return full.String(), usageFromMessage(&msg), nil
}

// buildParams maps a ChatRequest onto the Messages API: system messages
// become the top-level system prompt, the rest alternate user/assistant.
func (p *AnthropicProvider) buildParams(req ChatRequest) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}

func usageFromMessage(msg *anthropic.Message) Usage {
	if msg == nil {
		return Usage{}
	}
	usage := Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}
