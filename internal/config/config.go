package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/rectoverso/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. RECTOVERSO_PIPELINE_PAGES_PER_BATCH.
const EnvPrefix = "RECTOVERSO"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches for config.yaml in the working directory and
// in the given search paths.
func NewManager(cfgFile string, searchPaths ...string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile, searchPaths); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string, searchPaths []string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("ocr_providers", defaults.OCRProviders)
	v.SetDefault("llm_providers", defaults.LLMProviders)
	v.SetDefault("defaults.ocr_provider", defaults.Defaults.OCRProvider)
	v.SetDefault("defaults.llm_provider", defaults.Defaults.LLMProvider)
	v.SetDefault("pipeline.pages_per_batch", defaults.Pipeline.PagesPerBatch)
	v.SetDefault("pipeline.noise_patterns", defaults.Pipeline.NoisePatterns)
	v.SetDefault("pipeline.flatten_tables", defaults.Pipeline.FlattenTables)
	v.SetDefault("pipeline.alignment.recto_verso", defaults.Pipeline.Alignment.RectoVerso)
	v.SetDefault("pipeline.alignment.combined", defaults.Pipeline.Alignment.Combined)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("store.sheet", defaults.Store.Sheet)
	v.SetDefault("anki.url", defaults.Anki.URL)
	v.SetDefault("anki.deck", defaults.Anki.Deck)
	v.SetDefault("anki.model", defaults.Anki.Model)
	v.SetDefault("anki.field_front", defaults.Anki.FieldFront)
	v.SetDefault("anki.field_back", defaults.Anki.FieldBack)
	v.SetDefault("anki.tags", defaults.Anki.Tags)
	v.SetDefault("anki.timeout_seconds", defaults.Anki.TimeoutSeconds)
	v.SetDefault("log_level", defaults.LogLevel)

	// Environment variables with RECTOVERSO_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
		v.AddConfigPath("$HOME/.rectoverso")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a validated Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// Lookup returns the raw value of a dotted key, e.g. "pipeline.pages_per_batch".
func (cm *Manager) Lookup(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.v.IsSet(key) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return cm.v.Get(key), nil
}

// ConfigFile returns the file the configuration was read from, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Invalid edits are
// ignored and the previous configuration stays active.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		OCRProviders: make(map[string]providers.OCRProviderConfig),
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, ocr := range c.OCRProviders {
		cfg.OCRProviders[name] = providers.OCRProviderConfig{
			Type:      ocr.Type,
			Model:     ocr.Model,
			APIKey:    ResolveEnvVars(ocr.APIKey),
			BaseURL:   ocr.BaseURL,
			RateLimit: ocr.RateLimit,
			Timeout:   seconds(ocr.TimeoutSeconds),
			Upload:    ocr.Upload,
			Enabled:   ocr.Enabled,
		}
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:    llm.Type,
			Model:   llm.Model,
			APIKey:  ResolveEnvVars(llm.APIKey),
			BaseURL: llm.BaseURL,
			Timeout: seconds(llm.TimeoutSeconds),
			Enabled: llm.Enabled,
		}
	}

	return cfg
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# rectoverso configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export MISTRAL_API_KEY=xxx OPENAI_API_KEY=xxx
# Any key can be overridden with RECTOVERSO_<SECTION>_<KEY>, e.g. RECTOVERSO_PIPELINE_PAGES_PER_BATCH=5

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
