// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads calltrace CLI configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/calltrace/internal/log"
	"github.com/tombee/calltrace/internal/tracing"
	"github.com/tombee/calltrace/internal/tracing/redact"
	cterrors "github.com/tombee/calltrace/pkg/errors"
)

// ErrInvalidConfig is returned by Validate when any field is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete calltrace configuration.
type Config struct {
	Log     log.Config     `yaml:"log"`
	Tracing tracing.Config `yaml:"tracing"`
	Demo    DemoConfig     `yaml:"demo"`
}

// DemoConfig controls the sample workload run by "calltrace demo".
type DemoConfig struct {
	// Workers is the number of goroutines running the workload concurrently.
	Workers int `yaml:"workers"`

	// ResumeDelay is how long suspending calls wait before resuming.
	ResumeDelay time.Duration `yaml:"resume_delay"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Log:     *log.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
		Demo: DemoConfig{
			Workers:     4,
			ResumeDelay: 5 * time.Millisecond,
		},
	}
}

// Load loads configuration from an optional YAML file, applies defaults to
// unset fields, overlays environment variables, and validates the result.
// Environment variables take precedence over the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &cterrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &cterrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Log.Output == nil {
		c.Log.Output = defaults.Log.Output
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = defaults.Tracing.ServiceVersion
	}
	if c.Tracing.BatchSize == 0 {
		c.Tracing.BatchSize = defaults.Tracing.BatchSize
	}
	if c.Tracing.BatchInterval == 0 {
		c.Tracing.BatchInterval = defaults.Tracing.BatchInterval
	}
	if c.Tracing.SyncInterval == 0 {
		c.Tracing.SyncInterval = defaults.Tracing.SyncInterval
	}
	if c.Tracing.Redaction.Level == "" {
		c.Tracing.Redaction.Level = defaults.Tracing.Redaction.Level
	}

	if c.Demo.Workers == 0 {
		c.Demo.Workers = defaults.Demo.Workers
	}
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return cterrors.Wrap(err, "failed to get home directory")
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cterrors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return cterrors.Wrap(err, "failed to parse YAML")
	}

	return nil
}

// loadFromEnv overlays environment variables. Logging variables are shared
// with log.FromEnv.
func (c *Config) loadFromEnv() {
	log.ApplyEnv(&c.Log)

	if val := os.Getenv("CALLTRACE_TRACING_ENABLED"); val != "" {
		c.Tracing.Enabled = val == "1" || strings.ToLower(val) == "true"
	}
	if val := os.Getenv("CALLTRACE_SERVICE_NAME"); val != "" {
		c.Tracing.ServiceName = val
	}
	if val := os.Getenv("CALLTRACE_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Exporters = append(c.Tracing.Exporters, tracing.ExporterConfig{
			Type:     "otlp",
			Endpoint: val,
		})
	}
	if val := os.Getenv("CALLTRACE_REDACTION"); val != "" {
		c.Tracing.Redaction.Level = strings.ToLower(val)
	}
	if val := os.Getenv("CALLTRACE_DEMO_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Demo.Workers = n
		}
	}
}

var validExporterTypes = map[string]bool{
	"console": true, "otlp": true, "otlp-http": true, "otlp_http": true, "none": true,
}

// Validate checks that the configuration is valid. The returned error wraps
// ErrInvalidConfig and one *errors.ValidationError per problem.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &cterrors.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !log.ValidLevel(c.Log.Level) {
		invalid("log.level", "must be one of [trace, debug, info, warn, error], got %q", c.Log.Level)
	}
	if c.Log.Format != log.FormatJSON && c.Log.Format != log.FormatText {
		invalid("log.format", "must be one of [json, text], got %q", c.Log.Format)
	}

	if c.Tracing.BatchSize < 0 {
		invalid("tracing.batch_size", "must be non-negative, got %d", c.Tracing.BatchSize)
	}
	if c.Tracing.SyncInterval < 0 {
		invalid("tracing.sync_interval", "must be non-negative, got %v", c.Tracing.SyncInterval)
	}
	for i, exp := range c.Tracing.Exporters {
		field := fmt.Sprintf("tracing.exporters[%d]", i)
		if !validExporterTypes[exp.Type] {
			invalid(field+".type", "unknown exporter type %q", exp.Type)
			continue
		}
		if strings.HasPrefix(exp.Type, "otlp") && exp.Endpoint == "" {
			errs = append(errs, &cterrors.ValidationError{
				Field:      field + ".endpoint",
				Message:    fmt.Sprintf("is required for %s exporters", exp.Type),
				Suggestion: "set endpoint in the config file or CALLTRACE_OTLP_ENDPOINT",
			})
		}
	}
	if _, err := redact.ParseMode(c.Tracing.Redaction.Level); err != nil {
		invalid("tracing.redaction.level", "%v", err)
	}
	for i, p := range c.Tracing.Redaction.Patterns {
		if _, err := redact.CompilePattern(p.Name, p.Regex, p.Replacement); err != nil {
			invalid(fmt.Sprintf("tracing.redaction.patterns[%d]", i), "%v", err)
		}
	}

	if c.Demo.Workers < 1 {
		invalid("demo.workers", "must be at least 1, got %d", c.Demo.Workers)
	}
	if c.Demo.ResumeDelay < 0 {
		invalid("demo.resume_delay", "must be non-negative, got %v", c.Demo.ResumeDelay)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
