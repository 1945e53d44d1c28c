package config

import "github.com/jackzampolin/rectoverso/internal/anki"

// Config holds rectoverso configuration.
// Stored at: {home}/config.yaml
type Config struct {
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers" json:"ocr_providers"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Store        StoreCfg                  `mapstructure:"store" yaml:"store" json:"store"`
	Anki         AnkiCfg                   `mapstructure:"anki" yaml:"anki" json:"anki"`
	LogLevel     string                    `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type" json:"type"`                         // "mistral-ocr"
	Model          string  `mapstructure:"model" yaml:"model" json:"model"`                      // defaults to mistral-ocr-latest
	APIKey         string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`                // supports ${ENV_VAR} syntax
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`             // override the API endpoint
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`       // Requests per second
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	Upload         bool    `mapstructure:"upload" yaml:"upload" json:"upload"` // send chunks through the files API
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type" json:"type"` // "openai", "openai-compatible"
	Model          string `mapstructure:"model" yaml:"model" json:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key" json:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL        string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider" json:"ocr_provider"`
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider" json:"llm_provider"`
}

// PipelineCfg configures extraction, cleaning and alignment.
type PipelineCfg struct {
	PagesPerBatch int          `mapstructure:"pages_per_batch" yaml:"pages_per_batch" json:"pages_per_batch"`
	NoisePatterns []string     `mapstructure:"noise_patterns" yaml:"noise_patterns" json:"noise_patterns"`
	FlattenTables bool         `mapstructure:"flatten_tables" yaml:"flatten_tables" json:"flatten_tables"`
	Alignment     AlignmentCfg `mapstructure:"alignment" yaml:"alignment" json:"alignment"`
}

// AlignmentCfg selects the default strategy per mode.
type AlignmentCfg struct {
	RectoVerso string `mapstructure:"recto_verso" yaml:"recto_verso" json:"recto_verso"` // positional, anchor, llm
	Combined   string `mapstructure:"combined" yaml:"combined" json:"combined"`          // interleave, llm, pipe, colon
}

// StoreCfg locates the flashcard workbook.
type StoreCfg struct {
	Path  string `mapstructure:"path" yaml:"path" json:"path"` // empty means {home}/flashcards.xlsx
	Sheet string `mapstructure:"sheet" yaml:"sheet" json:"sheet"`
}

// AnkiCfg configures the AnkiConnect sync.
type AnkiCfg struct {
	URL            string   `mapstructure:"url" yaml:"url" json:"url"`
	Deck           string   `mapstructure:"deck" yaml:"deck" json:"deck"`
	Model          string   `mapstructure:"model" yaml:"model" json:"model"`
	FieldFront     string   `mapstructure:"field_front" yaml:"field_front" json:"field_front"`
	FieldBack      string   `mapstructure:"field_back" yaml:"field_back" json:"field_back"`
	Tags           []string `mapstructure:"tags" yaml:"tags" json:"tags"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
}

// DefaultNoisePatterns drop layout lines common in scanned worksheets.
var DefaultNoisePatterns = []string{
	`# THÈME`,
	`# CORRIGÉ`,
	`(?i)exercice`,
	`partie`,
	`VOCABULAIRE`,
	`Chapitre`,
	`^#{1,6}\s`,
	`^\$=\$$`,
	`^[-=_*]{3,}$`,
	`^!\[.*\]\(.*\)$`,
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {
				Type:           "mistral-ocr",
				APIKey:         "${MISTRAL_API_KEY}",
				RateLimit:      6.0,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			OCRProvider: "mistral",
			LLMProvider: "openai",
		},
		Pipeline: PipelineCfg{
			PagesPerBatch: 10,
			NoisePatterns: append([]string(nil), DefaultNoisePatterns...),
			FlattenTables: true,
			Alignment: AlignmentCfg{
				RectoVerso: "anchor",
				Combined:   "interleave",
			},
		},
		Store: StoreCfg{
			Sheet: "Flashcards",
		},
		Anki: AnkiCfg{
			URL:            anki.DefaultURL,
			Deck:           anki.DefaultDeck,
			Model:          anki.DefaultModel,
			FieldFront:     anki.DefaultFieldFront,
			FieldBack:      anki.DefaultFieldBack,
			Tags:           []string{anki.DefaultTag},
			TimeoutSeconds: 10,
		},
		LogLevel: "info",
	}
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// AnkiTarget returns the note target described by the anki section.
func (c *Config) AnkiTarget() anki.Target {
	return anki.Target{
		Deck:       c.Anki.Deck,
		Model:      c.Anki.Model,
		FieldFront: c.Anki.FieldFront,
		FieldBack:  c.Anki.FieldBack,
		Tags:       c.Anki.Tags,
	}.WithDefaults()
}
