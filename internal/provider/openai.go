package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible servers
// (vLLM, Ollama, llama.cpp and anything else speaking /v1/chat/completions).
type OpenAIProvider struct {
	info   *Info
	client *openai.Client
}

// NewOpenAIProvider creates a provider for the OpenAI API or a compatible
// server. An empty host targets api.openai.com.
func NewOpenAIProvider(providerType Type, host, apiKey string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = newHTTPClient()
	if host != "" {
		config.BaseURL = strings.TrimSuffix(host, "/") + "/v1"
	}

	return &OpenAIProvider{
		info: &Info{
			Type: providerType,
			Name: providerType.DisplayName(),
			Host: host,
		},
		client: openai.NewClientWithConfig(config),
	}
}

// Info returns provider metadata
func (p *OpenAIProvider) Info() *Info {
	return p.info
}

// SetModel sets the active model
func (p *OpenAIProvider) SetModel(model string) {
	p.info.Model = model
}

// ListModels queries the /v1/models endpoint
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.ID)
	}
	p.info.Models = models
	return models, nil
}

// Chat performs a blocking completion
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (string, Usage, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no response choices returned")
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// ChatStream streams a completion, invoking onDelta for each content chunk
func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest, onDelta func(string)) (string, Usage, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("create stream: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	var usage Usage
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), usage, fmt.Errorf("stream error: %w", err)
		}

		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta.Content
			if delta != "" {
				full.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
		}
		// Usage arrives on the final chunk when IncludeUsage is set
		if chunk.Usage != nil {
			usage.PromptTokens += chunk.Usage.PromptTokens
			usage.CompletionTokens += chunk.Usage.CompletionTokens
			usage.TotalTokens += chunk.Usage.TotalTokens
		}
	}
	return full.String(), usage, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
