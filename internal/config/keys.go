package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned when a config key is not set.
var ErrUnknownKey = errors.New("unknown config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Entry is a documented configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries lists the documented configuration keys.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Providers
		// ===================
		{
			Key:         "ocr_providers.mistral.api_key",
			Value:       d.OCRProviders["mistral"].APIKey,
			Description: "Mistral API key (uses environment variable)",
		},
		{
			Key:         "ocr_providers.mistral.rate_limit",
			Value:       d.OCRProviders["mistral"].RateLimit,
			Description: "Rate limit in requests per second for Mistral OCR",
		},
		{
			Key:         "ocr_providers.mistral.upload",
			Value:       d.OCRProviders["mistral"].Upload,
			Description: "Upload each chunk through the files API instead of inlining it",
		},
		{
			Key:         "llm_providers.openai.model",
			Value:       d.LLMProviders["openai"].Model,
			Description: "Model used for semantic splitting and document pairing",
		},
		{
			Key:         "llm_providers.openai.base_url",
			Value:       d.LLMProviders["openai"].BaseURL,
			Description: "OpenAI-compatible endpoint (empty for api.openai.com)",
		},
		{
			Key:         "defaults.ocr_provider",
			Value:       d.Defaults.OCRProvider,
			Description: "OCR provider used by run and inspect",
		},
		{
			Key:         "defaults.llm_provider",
			Value:       d.Defaults.LLMProvider,
			Description: "LLM provider used by the llm alignment strategies",
		},

		// ===================
		// Pipeline
		// ===================
		{
			Key:         "pipeline.pages_per_batch",
			Value:       d.Pipeline.PagesPerBatch,
			Description: "Pages per OCR request",
		},
		{
			Key:         "pipeline.noise_patterns",
			Value:       d.Pipeline.NoisePatterns,
			Description: "Regular expressions; a line matching any of them is dropped",
		},
		{
			Key:         "pipeline.flatten_tables",
			Value:       d.Pipeline.FlattenTables,
			Description: "Rewrite markdown tables in OCR output as one 'cell | cell' line per row",
		},
		{
			Key:         "pipeline.alignment.recto_verso",
			Value:       d.Pipeline.Alignment.RectoVerso,
			Description: "Default recto-verso strategy: positional, anchor or llm",
		},
		{
			Key:         "pipeline.alignment.combined",
			Value:       d.Pipeline.Alignment.Combined,
			Description: "Default combined strategy: interleave, llm, pipe or colon",
		},

		// ===================
		// Store and Anki
		// ===================
		{
			Key:         "store.path",
			Value:       d.Store.Path,
			Description: "Flashcard workbook (empty for {home}/flashcards.xlsx)",
		},
		{
			Key:         "store.sheet",
			Value:       d.Store.Sheet,
			Description: "Sheet name written to the workbook",
		},
		{
			Key:         "anki.url",
			Value:       d.Anki.URL,
			Description: "AnkiConnect endpoint",
		},
		{
			Key:         "anki.deck",
			Value:       d.Anki.Deck,
			Description: "Deck receiving synced notes",
		},
		{
			Key:         "anki.model",
			Value:       d.Anki.Model,
			Description: "Note type of synced notes",
		},
		{
			Key:         "anki.field_front",
			Value:       d.Anki.FieldFront,
			Description: "Note field receiving the front side",
		},
		{
			Key:         "anki.field_back",
			Value:       d.Anki.FieldBack,
			Description: "Note field receiving the back side",
		},
		{
			Key:         "anki.tags",
			Value:       d.Anki.Tags,
			Description: "Tags added to every synced note",
		},
		{
			Key:         "log_level",
			Value:       d.LogLevel,
			Description: "debug, info, warn or error",
		},
	}
}

// GetDefault returns the documented default for a config key.
// Returns nil if the key is not documented.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}
