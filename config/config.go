// Package config loads dispatcher configuration from YAML or JSON files so
// deployments can tune the batch size without recompiling. Unset fields keep
// the dispatcher defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/eventmesh/dispatcher"
)

// fileConfig is the on-disk shape. IdleInterval is a Go duration string
// ("10ms", "1s").
type fileConfig struct {
	BatchSize    int    `yaml:"batch_size" json:"batch_size"`
	IdleInterval string `yaml:"idle_interval" json:"idle_interval"`
}

// FromFile loads a dispatcher configuration from a file, auto-detecting the
// format by extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (dispatcher.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dispatcher.Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return dispatcher.Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a dispatcher.Config.
func FromYAML(data []byte) (dispatcher.Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return dispatcher.Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return build(fc)
}

// FromJSON parses JSON data into a dispatcher.Config.
func FromJSON(data []byte) (dispatcher.Config, error) {
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return dispatcher.Config{}, fmt.Errorf("parse json: %w", err)
	}
	return build(fc)
}

// build validates the parsed file and fills unset fields with defaults.
func build(fc fileConfig) (dispatcher.Config, error) {
	cfg := dispatcher.DefaultConfig

	if fc.BatchSize < 0 {
		return dispatcher.Config{}, fmt.Errorf("batch_size must be positive, got %d", fc.BatchSize)
	}
	if fc.BatchSize > 0 {
		cfg.BatchSize = fc.BatchSize
	}

	if fc.IdleInterval != "" {
		d, err := time.ParseDuration(fc.IdleInterval)
		if err != nil {
			return dispatcher.Config{}, fmt.Errorf("parse idle_interval: %w", err)
		}
		if d <= 0 {
			return dispatcher.Config{}, fmt.Errorf("idle_interval must be positive, got %s", d)
		}
		cfg.IdleInterval = d
	}

	return cfg, nil
}
