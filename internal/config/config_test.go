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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/calltrace/internal/log"
	"github.com/tombee/calltrace/internal/tracing"
	cterrors "github.com/tombee/calltrace/pkg/errors"
)

var configEnvVars = []string{
	"CALLTRACE_DEBUG", "CALLTRACE_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE",
	"CALLTRACE_TRACING_ENABLED", "CALLTRACE_SERVICE_NAME", "CALLTRACE_OTLP_ENDPOINT",
	"CALLTRACE_REDACTION", "CALLTRACE_DEMO_WORKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, log.FormatJSON, cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "calltrace", cfg.Tracing.ServiceName)
	assert.Equal(t, "standard", cfg.Tracing.Redaction.Level)
	assert.Equal(t, 4, cfg.Demo.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Tracing, cfg.Tracing)
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
log:
  level: debug
  format: text
tracing:
  enabled: true
  service_name: orders
  batch_interval: 2s
  exporters:
    - type: otlp-http
      endpoint: localhost:4318
      headers:
        x-team: payments
  redaction:
    level: strict
    patterns:
      - name: order
        regex: 'ORD-\d+'
demo:
  workers: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, log.FormatText, cfg.Log.Format)
	assert.NotNil(t, cfg.Log.Output)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "orders", cfg.Tracing.ServiceName)
	assert.Equal(t, 2*time.Second, cfg.Tracing.BatchInterval)
	assert.Equal(t, 512, cfg.Tracing.BatchSize)
	require.Len(t, cfg.Tracing.Exporters, 1)
	assert.Equal(t, "payments", cfg.Tracing.Exporters[0].Headers["x-team"])
	assert.Equal(t, "strict", cfg.Tracing.Redaction.Level)
	require.Len(t, cfg.Tracing.Redaction.Patterns, 1)
	assert.Equal(t, 8, cfg.Demo.Workers)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALLTRACE_LOG_LEVEL", "WARN")
	t.Setenv("CALLTRACE_TRACING_ENABLED", "true")
	t.Setenv("CALLTRACE_SERVICE_NAME", "from-env")
	t.Setenv("CALLTRACE_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("CALLTRACE_DEMO_WORKERS", "2")

	path := writeConfig(t, "log:\n  level: debug\ntracing:\n  service_name: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "from-env", cfg.Tracing.ServiceName)
	assert.Equal(t, []tracing.ExporterConfig{{Type: "otlp", Endpoint: "collector:4317"}}, cfg.Tracing.Exporters)
	assert.Equal(t, 2, cfg.Demo.Workers)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)

		var cfgErr *cterrors.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "config_file", cfgErr.Key)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config_file")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
		require.Error(t, err)

		var cfgErr *cterrors.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "validation", cfgErr.Key)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "log level", modify: func(c *Config) { c.Log.Level = "verbose" }, field: "log.level"},
		{name: "log format", modify: func(c *Config) { c.Log.Format = "xml" }, field: "log.format"},
		{name: "batch size", modify: func(c *Config) { c.Tracing.BatchSize = -1 }, field: "tracing.batch_size"},
		{
			name:   "exporter type",
			modify: func(c *Config) { c.Tracing.Exporters = []tracing.ExporterConfig{{Type: "zipkin"}} },
			field:  "tracing.exporters[0].type",
		},
		{
			name:   "otlp endpoint",
			modify: func(c *Config) { c.Tracing.Exporters = []tracing.ExporterConfig{{Type: "otlp"}} },
			field:  "tracing.exporters[0].endpoint",
		},
		{name: "redaction level", modify: func(c *Config) { c.Tracing.Redaction.Level = "loud" }, field: "tracing.redaction.level"},
		{
			name: "redaction pattern",
			modify: func(c *Config) {
				c.Tracing.Redaction.Patterns = []tracing.RedactionPattern{{Name: "bad", Regex: "("}}
			},
			field: "tracing.redaction.patterns[0]",
		},
		{name: "workers", modify: func(c *Config) { c.Demo.Workers = 0 }, field: "demo.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var vErr *cterrors.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, "/explicit.yaml", ResolvePath("/explicit.yaml"))
	assert.Empty(t, ResolvePath(""))

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "calltrace", "config.yaml"), path)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	assert.Equal(t, path, ResolvePath(""))
}
