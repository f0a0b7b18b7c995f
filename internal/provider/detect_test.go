package provider

import "testing"

func TestParseVendorConfig(t *testing.T) {
	cases := map[string]Type{
		"openai":     TypeOpenAI,
		"OpenAI":     TypeOpenAI,
		"anthropic":  TypeAnthropic,
		"claude":     TypeAnthropic,
		"compatible": TypeCompatible,
		"ollama":     TypeCompatible,
		"vllm":       TypeCompatible,
		"llama.cpp":  TypeCompatible,
		"":           TypeUnknown,
		"auto":       TypeUnknown,
		"gibberish":  TypeUnknown,
	}
	for vendor, want := range cases {
		if got := ParseVendorConfig(vendor); got != want {
			t.Errorf("ParseVendorConfig(%q) = %s, want %s", vendor, got, want)
		}
	}
}

func TestDetectFromHost(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if got := Detect("", "https://api.anthropic.com"); got != TypeAnthropic {
		t.Errorf("anthropic host detected as %s", got)
	}
	if got := Detect("", "https://api.openai.com/v1"); got != TypeOpenAI {
		t.Errorf("openai host detected as %s", got)
	}
	if got := Detect("", "http://localhost:11434"); got != TypeCompatible {
		t.Errorf("local host detected as %s", got)
	}
	if got := Detect("", ""); got != TypeUnknown {
		t.Errorf("empty environment detected as %s", got)
	}
}

func TestDetectVendorBeatsHost(t *testing.T) {
	if got := Detect("anthropic", "http://localhost:8000"); got != TypeAnthropic {
		t.Errorf("explicit vendor should win, got %s", got)
	}
}

func TestDetectFromEnvKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	if got := Detect("", ""); got != TypeAnthropic {
		t.Errorf("anthropic key should select anthropic, got %s", got)
	}
}
