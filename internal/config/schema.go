package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://focusgate.local/schema/config-v1.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Schema returns the embedded configuration JSON schema.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a raw config document against the schema. It
// catches unknown keys and mistyped values that decoding into Config would
// silently drop. An empty format auto-detects.
func ValidateDocument(data []byte, format string) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	instance, err := documentTree(data, format)
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateFile reads path and validates it against the schema.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return ValidateDocument(data, formatOf(path))
}

// documentTree decodes data generically and normalizes it through JSON so
// the schema sees the same value types for every format.
func documentTree(data []byte, format string) (any, error) {
	var raw map[string]any
	var err error
	switch format {
	case "toml":
		_, err = toml.Decode(string(data), &raw)
	case "json":
		err = json.Unmarshal(data, &raw)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		if _, err = toml.Decode(string(data), &raw); err != nil {
			raw = nil
			if err = json.Unmarshal(data, &raw); err != nil {
				raw = nil
				err = yaml.Unmarshal(data, &raw)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	return instance, nil
}
