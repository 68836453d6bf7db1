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

package tracing

import (
	"time"
)

// Config holds observability configuration for the call bridge.
type Config struct {
	// Enabled controls whether recorded calls are exported as spans.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in traces.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the application version.
	ServiceVersion string `yaml:"service_version"`

	// Exporters configures span export destinations.
	Exporters []ExporterConfig `yaml:"exporters"`

	// BatchSize is the maximum number of spans per export batch (default: 512).
	BatchSize int `yaml:"batch_size"`

	// BatchInterval is how often to flush spans (default: 5s).
	BatchInterval time.Duration `yaml:"batch_interval"`

	// SyncInterval is how often a running Bridge polls the event log (default: 1s).
	SyncInterval time.Duration `yaml:"sync_interval"`

	// Redaction configures sensitive data handling.
	Redaction RedactionConfig `yaml:"redaction"`
}

// ExporterConfig defines a span export destination.
type ExporterConfig struct {
	// Type is the exporter type: "otlp", "otlp-http", "console", or "none".
	Type string `yaml:"type"`

	// Endpoint is the OTLP receiver address.
	Endpoint string `yaml:"endpoint"`

	// Headers are additional headers, usually for authentication.
	Headers map[string]string `yaml:"headers"`

	// TLS configures secure connections.
	TLS TLSConfig `yaml:"tls"`

	// Timeout is the export timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// TLSConfig configures TLS for exporters.
type TLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	VerifyCertificate bool   `yaml:"verify_certificate"`
	CACertPath        string `yaml:"ca_cert_path"`
}

// RedactionConfig controls redaction of argument, return, and error text.
type RedactionConfig struct {
	// Level is the redaction mode: "none", "standard", or "strict".
	Level string `yaml:"level"`

	// Patterns are extra redaction patterns applied after the standard set.
	Patterns []RedactionPattern `yaml:"patterns"`
}

// RedactionPattern defines a sensitive data pattern.
type RedactionPattern struct {
	Name        string `yaml:"name"`
	Regex       string `yaml:"regex"`
	Replacement string `yaml:"replacement"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "calltrace",
		ServiceVersion: "unknown",
		BatchSize:      512,
		BatchInterval:  5 * time.Second,
		SyncInterval:   time.Second,
		Redaction: RedactionConfig{
			Level: "standard",
		},
	}
}
