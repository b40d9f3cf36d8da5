// Package config provides configuration management for the harvest worker.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoProviders           = errors.New("at least one provider is required")
	ErrProviderMissingURL    = errors.New("provider url is required")
	ErrProviderMissingPath   = errors.New("static provider path is required")
	ErrNoEnabledProviders    = errors.New("at least one provider must be enabled")
	ErrNoSequences           = errors.New("at least one action sequence is required")
	ErrSequenceMissingInput  = errors.New("sequence input prefix is required")
	ErrSequenceNoActions     = errors.New("sequence must declare at least one action")
	ErrUnknownActionType     = errors.New("action type must be one of: split, strip, transform, save")
	ErrTransformMissingFile  = errors.New("transform action requires a stylesheet file")
	ErrInvalidMode           = errors.New("cycle.mode must be one of: normal, retry, refresh")
	ErrInvalidScenario       = errors.New("cycle.scenario must be ListIdentifiers or ListRecords")
	ErrInvalidLimit          = errors.New("cycle.limit must be at least 1")
	ErrInvalidTimeout        = errors.New("provider timeout must be non-negative")
	ErrInvalidRetries        = errors.New("provider retries must be non-negative")
	ErrMissingOutputDir      = errors.New("output.dir is required")
	ErrMissingOverviewFile   = errors.New("overview.file is required")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidFromDate       = errors.New("cycle.from must be an ISO-8601 date-time")
	ErrUnsupportedConfigFile = errors.New("config file must be .xml, .yaml or .yml")
)

// Config represents the complete harvester configuration.
type Config struct {
	XMLName   xml.Name         `xml:"config" yaml:"-"`
	Cycle     CycleConfig      `xml:"cycle" yaml:"cycle"`
	Output    OutputConfig     `xml:"output" yaml:"output"`
	Overview  OverviewConfig   `xml:"overview" yaml:"overview"`
	Logging   LoggingConfig    `xml:"logging" yaml:"logging"`
	Providers []ProviderConfig `xml:"providers>provider" yaml:"providers"`
	Sequences []SequenceConfig `xml:"sequences>sequence" yaml:"sequences"`
}

// CycleConfig contains cycle-wide harvesting properties.
type CycleConfig struct {
	Mode     string `xml:"mode,attr" yaml:"mode"`
	Scenario string `xml:"scenario,attr" yaml:"scenario"`
	Limit    int    `xml:"limit,attr" yaml:"limit"`
	From     string `xml:"from,attr,omitempty" yaml:"from,omitempty"`
}

// OutputConfig defines where harvested records are written.
type OutputConfig struct {
	Dir string `xml:"dir,attr" yaml:"dir"`
}

// OverviewConfig names the persistent endpoint overview file.
type OverviewConfig struct {
	File string `xml:"file,attr" yaml:"file"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `xml:"level,attr" yaml:"level"`
}

// ProviderConfig declares one OAI-PMH endpoint, live or static.
type ProviderConfig struct {
	Name       string   `xml:"name,attr,omitempty" yaml:"name,omitempty"`
	URL        string   `xml:"url,attr" yaml:"url"`
	Group      string   `xml:"group,attr,omitempty" yaml:"group,omitempty"`
	Static     bool     `xml:"static,attr,omitempty" yaml:"static,omitempty"`
	Path       string   `xml:"path,attr,omitempty" yaml:"path,omitempty"`
	TimeoutSec int      `xml:"timeout,attr,omitempty" yaml:"timeout,omitempty"`
	MaxRetries int      `xml:"retries,attr,omitempty" yaml:"retries,omitempty"`
	Disabled   bool     `xml:"disabled,attr,omitempty" yaml:"disabled,omitempty"`
	Prefixes   []string `xml:"prefix" yaml:"prefixes,omitempty"`
}

// IsStatic returns true when the provider is backed by a local archive.
func (p *ProviderConfig) IsStatic() bool {
	return p.Static
}

// GetTimeout returns the per-endpoint request timeout.
func (p *ProviderConfig) GetTimeout() time.Duration {
	if p.TimeoutSec <= 0 {
		return 60 * time.Second
	}

	return time.Duration(p.TimeoutSec) * time.Second
}

// SequenceConfig declares one ordered action sequence.
type SequenceConfig struct {
	Input   FormatConfig   `xml:"input" yaml:"input"`
	Actions []ActionConfig `xml:"action" yaml:"actions"`
}

// FormatConfig describes the metadata format a sequence consumes.
type FormatConfig struct {
	Prefix string `xml:"prefix,attr" yaml:"prefix"`
	Schema string `xml:"schema,attr,omitempty" yaml:"schema,omitempty"`
	Type   string `xml:"type,attr,omitempty" yaml:"type,omitempty"`
}

// ActionConfig declares a single action within a sequence.
type ActionConfig struct {
	Type string `xml:"type,attr" yaml:"type"`
	File string `xml:"file,attr,omitempty" yaml:"file,omitempty"`
}

// LoadConfig loads configuration from an XML or YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		if err := xml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConfigFile, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return ErrNoProviders
	}

	enabledCount := 0

	for i, p := range c.Providers {
		if p.URL == "" {
			return fmt.Errorf("%w: provider[%d]", ErrProviderMissingURL, i)
		}

		if p.Static && p.Path == "" {
			return fmt.Errorf("%w: provider[%d]", ErrProviderMissingPath, i)
		}

		if p.TimeoutSec < 0 {
			return fmt.Errorf("%w: provider[%d]", ErrInvalidTimeout, i)
		}

		if p.MaxRetries < 0 {
			return fmt.Errorf("%w: provider[%d]", ErrInvalidRetries, i)
		}

		if !p.Disabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledProviders
	}

	if len(c.Sequences) == 0 {
		return ErrNoSequences
	}

	for i, seq := range c.Sequences {
		if seq.Input.Prefix == "" {
			return fmt.Errorf("%w: sequence[%d]", ErrSequenceMissingInput, i)
		}

		if len(seq.Actions) == 0 {
			return fmt.Errorf("%w: sequence[%d]", ErrSequenceNoActions, i)
		}

		for j, act := range seq.Actions {
			switch act.Type {
			case "split", "strip", "save":
			case "transform":
				if act.File == "" {
					return fmt.Errorf("%w: sequence[%d] action[%d]", ErrTransformMissingFile, i, j)
				}
			default:
				return fmt.Errorf("%w: sequence[%d] action[%d] %q", ErrUnknownActionType, i, j, act.Type)
			}
		}
	}

	switch c.Cycle.Mode {
	case "normal", "retry", "refresh":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Cycle.Mode)
	}

	switch c.Cycle.Scenario {
	case "ListIdentifiers", "ListRecords":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScenario, c.Cycle.Scenario)
	}

	if c.Cycle.Limit < 1 {
		return ErrInvalidLimit
	}

	if c.Cycle.From != "" {
		if _, err := time.Parse(time.RFC3339, c.Cycle.From); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidFromDate, c.Cycle.From)
		}
	}

	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}

	if c.Overview.File == "" {
		return ErrMissingOverviewFile
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// EnabledProviders returns only providers not marked disabled.
func (c *Config) EnabledProviders() []ProviderConfig {
	var enabled []ProviderConfig

	for _, p := range c.Providers {
		if !p.Disabled {
			enabled = append(enabled, p)
		}
	}

	return enabled
}

// FromDate returns the parsed cycle-wide from override, zero when unset.
func (c *Config) FromDate() time.Time {
	if c.Cycle.From == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, c.Cycle.From)
	if err != nil {
		return time.Time{}
	}

	return t
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Providers: %d, Sequences: %d, Mode: %s, Limit: %d}",
		len(c.Providers),
		len(c.Sequences),
		c.Cycle.Mode,
		c.Cycle.Limit,
	)
}
