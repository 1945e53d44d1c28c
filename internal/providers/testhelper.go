package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenAIAPIKey  string
	MistralAPIKey string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		MistralAPIKey: os.Getenv("MISTRAL_API_KEY"),
	}
}

// HasOpenAI returns true if an OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasMistral returns true if a Mistral API key is configured.
func (c TestConfig) HasMistral() bool {
	return c.MistralAPIKey != ""
}

// NewOpenAIClient creates an OpenAI client from test config.
// Returns nil if not configured.
func (c TestConfig) NewOpenAIClient() *OpenAIClient {
	if !c.HasOpenAI() {
		return nil
	}
	return NewOpenAIClient(OpenAIConfig{APIKey: c.OpenAIAPIKey})
}

// NewMistralOCRClient creates a Mistral OCR client from test config.
// Returns nil if not configured.
func (c TestConfig) NewMistralOCRClient() *MistralOCRClient {
	if !c.HasMistral() {
		return nil
	}
	return NewMistralOCRClient(MistralOCRConfig{APIKey: c.MistralAPIKey})
}

// ToRegistryConfig converts test config to a RegistryConfig.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		OCRProviders: make(map[string]OCRProviderConfig),
		LLMProviders: make(map[string]LLMProviderConfig),
	}

	if c.HasOpenAI() {
		cfg.LLMProviders["openai"] = LLMProviderConfig{
			Type:    "openai",
			APIKey:  c.OpenAIAPIKey,
			Enabled: true,
		}
	}

	if c.HasMistral() {
		cfg.OCRProviders["mistral"] = OCRProviderConfig{
			Type:      "mistral-ocr",
			APIKey:    c.MistralAPIKey,
			RateLimit: 6,
			Enabled:   true,
		}
	}

	return cfg
}
