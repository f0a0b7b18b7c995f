package provider

import (
	"fmt"
	"os"
)

// New creates a provider from the vendor configuration. If vendor is empty
// or "auto" the type is detected from the host URL and environment.
func New(vendor, host, apiKey string) (Provider, error) {
	providerType := Detect(vendor, host)

	switch providerType {
	case TypeAnthropic:
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicProvider(host, apiKey), nil

	case TypeOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(TypeOpenAI, host, apiKey), nil

	case TypeCompatible:
		// Local servers usually take no key
		return NewOpenAIProvider(TypeCompatible, host, apiKey), nil

	default:
		return nil, fmt.Errorf("no provider configured: set --vendor, --host, or an API key")
	}
}

// NewWithType creates a provider with an explicit type (no auto-detection)
func NewWithType(providerType Type, host, apiKey string) (Provider, error) {
	switch providerType {
	case TypeAnthropic:
		return NewAnthropicProvider(host, apiKey), nil
	case TypeOpenAI:
		return NewOpenAIProvider(TypeOpenAI, host, apiKey), nil
	case TypeCompatible:
		return NewOpenAIProvider(TypeCompatible, host, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", providerType)
	}
}
