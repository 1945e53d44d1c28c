package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds the configured LLM clients and OCR providers by name.
// It is safe for concurrent use and can be reloaded when the config changes.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	ocrProviders map[string]OCRProvider
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		ocrProviders: make(map[string]OCRProvider),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	r.logger.Debug("registered LLM client", "name", name)
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocrProviders[name] = provider
	r.logger.Debug("registered OCR provider", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ocrProviders[name]
	if !ok {
		return nil, fmt.Errorf("OCR provider not found: %s", name)
	}
	return provider, nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListOCR returns all registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ocrProviders))
	for name := range r.ocrProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	OCRProviders map[string]OCRProviderConfig
	LLMProviders map[string]LLMProviderConfig
	Logger       *slog.Logger
}

// OCRProviderConfig matches config.OCRProviderCfg with a resolved API key.
type OCRProviderConfig struct {
	Type      string // "mistral-ocr"
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit float64 // Requests per second
	Timeout   time.Duration
	Upload    bool
	Enabled   bool
}

// LLMProviderConfig matches config.LLMProviderCfg with a resolved API key.
type LLMProviderConfig struct {
	Type    string // "openai"
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Enabled bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with an API key are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	if cfg.Logger != nil {
		r.logger = cfg.Logger
	}
	r.Reload(cfg)
	return r
}

// Reload replaces the registered providers with the ones described by cfg.
// Providers missing from cfg, disabled, or without an API key are removed.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	llm := make(map[string]LLMClient)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		client, err := createLLMClient(provCfg)
		if err != nil {
			r.logger.Warn("skipping LLM provider", "name", name, "error", err)
			continue
		}
		llm[name] = client
	}

	ocr := make(map[string]OCRProvider)
	for name, provCfg := range cfg.OCRProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		provider, err := createOCRProvider(provCfg, r.logger)
		if err != nil {
			r.logger.Warn("skipping OCR provider", "name", name, "error", err)
			continue
		}
		ocr[name] = provider
	}

	r.llmClients = llm
	r.ocrProviders = ocr
	r.logger.Debug("provider registry loaded", "llm", len(llm), "ocr", len(ocr))
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) (LLMClient, error) {
	switch cfg.Type {
	case "openai", "openai-compatible":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type %q", cfg.Type)
	}
}

// createOCRProvider creates an OCR provider based on provider type.
func createOCRProvider(cfg OCRProviderConfig, logger *slog.Logger) (OCRProvider, error) {
	switch cfg.Type {
	case "mistral-ocr":
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
			Timeout:   cfg.Timeout,
			Upload:    cfg.Upload,
			Logger:    logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider type %q", cfg.Type)
	}
}
