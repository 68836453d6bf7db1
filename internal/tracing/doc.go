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

/*
Package tracing exports recorded calls to OpenTelemetry.

The calltrace event log is the source of truth. A Bridge reads it
incrementally, pairs each Started event with the Success or Failure event
sharing its call ID, and emits one span per completed call using the
recorded timestamps. A call that suspends on one goroutine and resumes on
another still produces a single span; its start and end goroutines are
kept as attributes.

# Quick Start

	cfg := tracing.DefaultConfig()
	cfg.Exporters = []tracing.ExporterConfig{{Type: "console"}}

	provider, err := tracing.NewOTelProviderWithConfig(ctx, cfg)
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	bridge := tracing.NewBridge(calltrace.Default(), provider.TracerProvider(),
	    tracing.WithMetrics(provider.MetricsCollector()))
	bridge.Sync(ctx)

# Metrics

MetricsCollector exposes:

  - calltrace_calls_total{function, outcome}
  - calltrace_call_duration_seconds{function, outcome}
  - calltrace_cross_goroutine_calls_total{function}
  - calltrace_open_calls

OTelProvider.MetricsHandler serves them in Prometheus format.

# Redaction

Argument, return, and error text pass through a redact.Redactor before
being attached to spans. See RedactionConfig.
*/
package tracing
