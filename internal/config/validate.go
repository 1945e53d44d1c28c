package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("config.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile config schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks cfg against the embedded JSON schema and the rules the
// schema cannot express.
func Validate(cfg *Config) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config for validation: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.AnkiTarget().WithDefaults().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: anki: %w", err)
	}
	return nil
}
