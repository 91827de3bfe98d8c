package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imamik/kinstall/internal/failure"
)

// LoadFile reads, completes and validates the configuration at path.
// Relative paths inside the file are resolved against its directory.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Validation("load config", fmt.Errorf("failed to read config file: %w", err))
	}

	baseDir := filepath.Dir(path)
	return Parse(data, baseDir)
}

// Parse decodes data, applies defaults and environment overrides and
// validates the result. Unknown keys are rejected.
func Parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, failure.Validation("load config", fmt.Errorf("failed to unmarshal yaml: %w", err))
	}

	cfg.baseDir = baseDir
	cfg.applyDefaults()
	cfg.Timeouts.applyEnv()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, failure.Validation("load config", fmt.Errorf("configuration validation failed: %w", err))
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.FieldManager == "" {
		c.FieldManager = DefaultFieldManager
	}
	c.Timeouts.applyDefaults()
}

// resolvePaths makes file references relative to the config file.
func (c *Config) resolvePaths() {
	for i := range c.Steps {
		step := &c.Steps[i]
		for j, m := range step.Manifests {
			step.Manifests[j] = c.resolve(m)
		}
		if step.Release == nil {
			continue
		}
		for j, f := range step.Release.ValuesFiles {
			step.Release.ValuesFiles[j] = c.resolve(f)
		}
		if step.Release.Repository == "" && isLocalChart(step.Release.Chart) {
			step.Release.Chart = c.resolve(step.Release.Chart)
		}
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// isLocalChart reports whether chart is a filesystem path rather than a
// chart name.
func isLocalChart(chart string) bool {
	return strings.HasPrefix(chart, ".") || strings.HasPrefix(chart, "/") || strings.Contains(chart, string(filepath.Separator))
}

// StepNames returns the configured step names in order.
func (c *Config) StepNames() []string {
	names := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		names[i] = s.Name
	}
	return names
}
