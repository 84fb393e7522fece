// Package config loads, validates and writes the call center configuration
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
	"github.com/poltergeist/callcenter/pkg/validation"
)

// DefaultConfigFile is the file name `init` writes and `run` looks for
const DefaultConfigFile = "callcenter.yaml"

// Manager handles configuration operations
type Manager struct {
	logger logger.Logger
}

// NewManager creates a new configuration manager. log may be nil.
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{logger: log.WithComponent("config")}
}

// LoadConfig reads a YAML or JSON file over the defaults, then normalizes it.
// JSON is parsed by the YAML decoder, which also understands "1s"-style durations.
func (m *Manager) LoadConfig(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := m.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes over the defaults and normalizes the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func (m *Manager) Parse(data []byte) (*types.Config, error) {
	cfg := types.DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse config as JSON or YAML: %w", types.ErrInvalidConfig, err)
	}

	if err := m.Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates cfg in place. Errors wrap types.ErrInvalidConfig;
// an agent count above the cap is clamped and logged as a warning.
func (m *Manager) Normalize(cfg *types.Config) error {
	result := validation.ValidateConfiguration(cfg)
	if err := result.Err(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	for _, w := range result.Warnings() {
		m.logger.Warn(w.Message, logger.WithField("field", w.Field))
	}

	if cfg.Agents > types.MaxAgentCount {
		cfg.Agents = types.MaxAgentCount
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = types.LogLevelInfo
	}
	return nil
}

// ValidateConfig reports the first invalid value in cfg without changing it
func (m *Manager) ValidateConfig(cfg *types.Config) error {
	if err := validation.ValidateConfiguration(cfg).Err(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}
	return nil
}

// SaveConfig writes cfg as YAML
func (m *Manager) SaveConfig(path string, cfg *types.Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultConfig returns the stock configuration
func (m *Manager) GetDefaultConfig() *types.Config {
	return types.DefaultConfig()
}

// Marshal renders cfg as YAML
func Marshal(cfg *types.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
