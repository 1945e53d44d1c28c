package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OCRProviders["mistral"].APIKey != "${MISTRAL_API_KEY}" {
		t.Error("expected mistral API key placeholder")
	}
	if cfg.Pipeline.PagesPerBatch != 10 {
		t.Errorf("PagesPerBatch = %d, want 10", cfg.Pipeline.PagesPerBatch)
	}
	if cfg.Pipeline.Alignment.RectoVerso != "anchor" || cfg.Pipeline.Alignment.Combined != "interleave" {
		t.Errorf("Alignment = %+v", cfg.Pipeline.Alignment)
	}
	if len(cfg.Pipeline.NoisePatterns) != len(DefaultNoisePatterns) {
		t.Errorf("NoisePatterns = %v", cfg.Pipeline.NoisePatterns)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}

	target := cfg.AnkiTarget()
	if target.Deck != "RectoVerso" || target.FieldFront != "Recto" || target.Tags[0] != "auto_import" {
		t.Errorf("AnkiTarget() = %+v", target)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_MISTRAL_KEY", "m-key")

	cfg := &Config{
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {Type: "mistral-ocr", APIKey: "${TEST_MISTRAL_KEY}", RateLimit: 3, TimeoutSeconds: 30, Upload: true, Enabled: true},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"local": {Type: "openai-compatible", APIKey: "direct-key", BaseURL: "http://localhost:11434/v1", Enabled: true},
		},
	}

	reg := cfg.ToProviderRegistryConfig()

	ocr := reg.OCRProviders["mistral"]
	if ocr.APIKey != "m-key" || ocr.RateLimit != 3 || ocr.Timeout != 30*time.Second || !ocr.Upload {
		t.Errorf("OCR provider = %+v", ocr)
	}
	llm := reg.LLMProviders["local"]
	if llm.APIKey != "direct-key" || llm.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("LLM provider = %+v", llm)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		mgr, err := NewManager("", t.TempDir())
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		if mgr.Get().Pipeline.PagesPerBatch != 10 {
			t.Errorf("PagesPerBatch = %d", mgr.Get().Pipeline.PagesPerBatch)
		}
	})

	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
pipeline:
  pages_per_batch: 4
  alignment:
    recto_verso: positional
anki:
  deck: French
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Pipeline.PagesPerBatch != 4 {
			t.Errorf("PagesPerBatch = %d, want 4", cfg.Pipeline.PagesPerBatch)
		}
		if cfg.Pipeline.Alignment.RectoVerso != "positional" {
			t.Errorf("RectoVerso = %q", cfg.Pipeline.Alignment.RectoVerso)
		}
		if cfg.Pipeline.Alignment.Combined != "interleave" {
			t.Errorf("Combined default lost: %q", cfg.Pipeline.Alignment.Combined)
		}
		if cfg.Anki.Deck != "French" || cfg.Anki.Model != "Basic" {
			t.Errorf("Anki = %+v", cfg.Anki)
		}
		if !cfg.Pipeline.FlattenTables {
			t.Error("FlattenTables default lost")
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("ConfigFile() = %q", mgr.ConfigFile())
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("RECTOVERSO_PIPELINE_PAGES_PER_BATCH", "7")

		mgr, err := NewManager(writeConfig(t, "log_level: debug\n"))
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		if got := mgr.Get().Pipeline.PagesPerBatch; got != 7 {
			t.Errorf("PagesPerBatch = %d, want 7", got)
		}
		if mgr.Get().LogLevel != "debug" {
			t.Errorf("LogLevel = %q", mgr.Get().LogLevel)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"zero batch size", "pipeline:\n  pages_per_batch: 0\n"},
			{"unknown strategy", "pipeline:\n  alignment:\n    combined: zigzag\n"},
			{"bad log level", "log_level: verbose\n"},
			{"bad anki url", "anki:\n  url: localhost:8765\n"},
			{"same anki fields", "anki:\n  field_front: Front\n  field_back: Front\n"},
			{"anki back defaults to front", "anki:\n  field_front: verso\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := NewManager(writeConfig(t, tt.content)); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})
}

func TestManager_Lookup(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "store:\n  sheet: Cards\n"))
	if err != nil {
		t.Fatal(err)
	}

	v, err := mgr.Lookup("store.sheet")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if v != "Cards" {
		t.Errorf("Lookup() = %v", v)
	}

	if _, err := mgr.Lookup("store.nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
	if _, err := mgr.Lookup("bad key!"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log_level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log_level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Pipeline.PagesPerBatch
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "pipeline:\n  pages_per_batch: 3\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if mgr.Get().Pipeline.PagesPerBatch != 3 {
		t.Fatalf("initial value mismatch: %d", mgr.Get().Pipeline.PagesPerBatch)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int64

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int64(cfg.Pipeline.PagesPerBatch))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("pipeline:\n  pages_per_batch: 8\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lastValue.Load() == 8 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Pipeline.PagesPerBatch; got != 8 {
		t.Errorf("config not updated: expected 8, got %d", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# rectoverso configuration") {
		t.Error("expected header comment")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written defaults do not load: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Pipeline.PagesPerBatch != 10 || cfg.Anki.Deck != "RectoVerso" {
		t.Errorf("round-tripped config = %+v", cfg)
	}
	if cfg.OCRProviders["mistral"].Type != "mistral-ocr" {
		t.Errorf("OCRProviders = %+v", cfg.OCRProviders)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"pipeline.pages_per_batch", false},
		{"ocr_providers.mistral-eu.api_key", false},
		{"", true},
		{".leading", true},
		{"trailing.", true},
		{"has space", true},
		{"semi;colon", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()
	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	for _, e := range entries {
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("entry %q: %v", e.Key, err)
		}
		if e.Description == "" {
			t.Errorf("entry %q has no description", e.Key)
		}
	}

	entry := GetDefault("pipeline.pages_per_batch")
	if entry == nil || entry.Value != 10 {
		t.Errorf("GetDefault() = %+v", entry)
	}
	if GetDefault("does.not.exist") != nil {
		t.Error("expected nil for undocumented key")
	}
}
