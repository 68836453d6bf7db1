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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for call metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector records call counts, durations, and the number of calls
// that have started but not yet finished.
type MetricsCollector struct {
	meter metric.Meter

	callsTotal          metric.Int64Counter
	crossGoroutineTotal metric.Int64Counter
	callDuration        metric.Float64Histogram

	openCalls   int64
	openCallsMu sync.RWMutex
}

// NewMetricsCollector creates a new metrics collector using the given meter provider.
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("calltrace")

	mc := &MetricsCollector{meter: meter}

	var err error

	mc.callsTotal, err = meter.Int64Counter(
		"calltrace_calls_total",
		metric.WithDescription("Total number of completed traced calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	mc.crossGoroutineTotal, err = meter.Int64Counter(
		"calltrace_cross_goroutine_calls_total",
		metric.WithDescription("Completed calls that finished on a different goroutine than they started on"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	mc.callDuration, err = meter.Float64Histogram(
		"calltrace_call_duration_seconds",
		metric.WithDescription("Traced call duration in seconds, including time spent suspended"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"calltrace_open_calls",
		metric.WithDescription("Number of calls started but not yet completed"),
		metric.WithUnit("{call}"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			observer.Observe(mc.OpenCalls())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordCallStart records that a call has started.
func (mc *MetricsCollector) RecordCallStart(ctx context.Context, function string) {
	mc.openCallsMu.Lock()
	mc.openCalls++
	mc.openCallsMu.Unlock()
}

// RecordCallEnd records a completed call. crossGoroutine reports whether the
// call finished on a different goroutine than it started on.
func (mc *MetricsCollector) RecordCallEnd(ctx context.Context, function, outcome string, duration time.Duration, crossGoroutine bool) {
	mc.openCallsMu.Lock()
	if mc.openCalls > 0 {
		mc.openCalls--
	}
	mc.openCallsMu.Unlock()

	attrs := metric.WithAttributes(
		attribute.String("function", function),
		attribute.String("outcome", outcome),
	)

	mc.callsTotal.Add(ctx, 1, attrs)
	mc.callDuration.Record(ctx, duration.Seconds(), attrs)
	if crossGoroutine {
		mc.crossGoroutineTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("function", function)))
	}
}

// OpenCalls returns the number of calls started but not yet completed.
func (mc *MetricsCollector) OpenCalls() int64 {
	mc.openCallsMu.RLock()
	defer mc.openCallsMu.RUnlock()
	return mc.openCalls
}
