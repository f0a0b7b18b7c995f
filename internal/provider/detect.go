package provider

import (
	"os"
	"strings"
)

// Detect picks a provider type from the vendor string, host URL, and
// available API keys, in that order. An empty result of every check falls
// back to OpenAI-compatible, which covers local servers.
func Detect(vendor, host string) Type {
	if t := ParseVendorConfig(vendor); t != TypeUnknown {
		return t
	}

	hostLower := strings.ToLower(host)
	switch {
	case strings.Contains(hostLower, "anthropic.com"):
		return TypeAnthropic
	case strings.Contains(hostLower, "openai.com"):
		return TypeOpenAI
	case host != "":
		// Any explicit non-vendor host is treated as OpenAI-compatible
		return TypeCompatible
	}

	// No host: choose by which key is configured
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return TypeAnthropic
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return TypeOpenAI
	}
	return TypeUnknown
}

// ParseVendorConfig parses a vendor string from config into a Type
// Returns TypeUnknown if the vendor should be auto-detected
func ParseVendorConfig(vendor string) Type {
	vendor = strings.ToLower(strings.TrimSpace(vendor))

	switch vendor {
	case "openai":
		return TypeOpenAI
	case "anthropic", "claude":
		return TypeAnthropic
	case "compatible", "vllm", "ollama", "llama.cpp", "llamacpp":
		return TypeCompatible
	case "", "auto":
		return TypeUnknown // Will trigger auto-detection
	default:
		return TypeUnknown
	}
}
