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
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	internallog "github.com/tombee/calltrace/internal/log"
	"github.com/tombee/calltrace/internal/tracing/redact"
	"github.com/tombee/calltrace/pkg/calltrace"
)

// Span attribute keys set by the Bridge.
const (
	AttrCallID         = attribute.Key("calltrace.call_id")
	AttrStartGoroutine = attribute.Key("calltrace.start_goroutine")
	AttrEndGoroutine   = attribute.Key("calltrace.end_goroutine")
	AttrArgs           = attribute.Key("calltrace.args")
	AttrArgTypes       = attribute.Key("calltrace.arg_types")
	AttrReturn         = attribute.Key("calltrace.return")
	AttrReturnType     = attribute.Key("calltrace.return_type")
	AttrErrorKind      = attribute.Key("calltrace.error_kind")
	AttrStartSeq       = attribute.Key("calltrace.start_seq")
	AttrEndSeq         = attribute.Key("calltrace.end_seq")
)

// Bridge turns events from a calltrace.Log into OpenTelemetry spans. Each
// completed call becomes one span carrying the recorded start and end times.
// Calls that have started but not finished are held until their terminal
// event arrives.
type Bridge struct {
	log      *calltrace.Log
	tracer   trace.Tracer
	metrics  *MetricsCollector
	redactor *redact.Redactor
	logger   *slog.Logger

	mu     sync.Mutex
	cursor uint64
	open   map[string]calltrace.Event
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithMetrics records call metrics alongside spans.
func WithMetrics(mc *MetricsCollector) BridgeOption {
	return func(b *Bridge) { b.metrics = mc }
}

// WithRedactor sets the redactor applied to argument, return, and error text.
func WithRedactor(r *redact.Redactor) BridgeOption {
	return func(b *Bridge) { b.redactor = r }
}

// WithLogger sets the logger used for bridge diagnostics.
func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = l }
}

// NewBridge creates a Bridge reading from log and emitting spans through tp.
// A nil log reads the process-wide default.
func NewBridge(log *calltrace.Log, tp trace.TracerProvider, opts ...BridgeOption) *Bridge {
	if log == nil {
		log = calltrace.Default()
	}
	b := &Bridge{
		log:      log,
		tracer:   tp.Tracer("github.com/tombee/calltrace"),
		redactor: redact.NewRedactor(redact.ModeStandard),
		logger:   slog.Default(),
		open:     make(map[string]calltrace.Event),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewRedactor builds the redactor described by cfg.
func NewRedactor(cfg RedactionConfig) (*redact.Redactor, error) {
	mode, err := redact.ParseMode(cfg.Level)
	if err != nil {
		return nil, err
	}
	patterns := make([]redact.Pattern, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		compiled, err := redact.CompilePattern(p.Name, p.Regex, p.Replacement)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, compiled)
	}
	return redact.NewRedactorWithPatterns(mode, patterns), nil
}

// Sync processes every event appended since the previous Sync and returns
// the number of spans emitted.
func (b *Bridge) Sync(ctx context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	emitted := 0
	for _, ev := range b.log.Since(b.cursor) {
		b.cursor = ev.Seq

		switch ev.Kind {
		case calltrace.KindStarted:
			b.open[ev.CallID] = ev
			if b.metrics != nil {
				b.metrics.RecordCallStart(ctx, string(ev.Func))
			}
		case calltrace.KindSuccess, calltrace.KindFailure:
			start, ok := b.open[ev.CallID]
			if !ok {
				internallog.WithCall(b.logger, string(ev.Func), ev.CallID).
					DebugContext(ctx, "terminal event without start", "seq", ev.Seq)
				continue
			}
			delete(b.open, ev.CallID)
			b.emit(ctx, start, ev)
			emitted++
		}
	}
	return emitted
}

// Open returns the number of calls seen starting whose terminal event has
// not arrived yet.
func (b *Bridge) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

// Run calls Sync every interval until ctx is done, then performs a final Sync.
func (b *Bridge) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Sync(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			b.Sync(ctx)
		}
	}
}

func (b *Bridge) emit(ctx context.Context, start, end calltrace.Event) {
	args := make([]string, len(start.Args))
	argTypes := make([]string, len(start.Args))
	for i, a := range start.Args {
		args[i] = a.Expression
		argTypes[i] = a.Type
	}

	attrs := []attribute.KeyValue{
		semconv.CodeFunction(string(start.Func)),
		AttrCallID.String(start.CallID),
		AttrStartGoroutine.String(start.ExecutionName),
		AttrEndGoroutine.String(end.ExecutionName),
		AttrStartSeq.Int64(int64(start.Seq)),
		AttrEndSeq.Int64(int64(end.Seq)),
		AttrArgs.StringSlice(b.redactor.RedactStrings(args)),
		AttrArgTypes.StringSlice(argTypes),
	}

	outcome := OutcomeSuccess
	status, message := codes.Ok, ""
	if end.Kind == calltrace.KindSuccess {
		attrs = append(attrs,
			AttrReturn.String(b.redactor.RedactString(end.Return.Expression)),
			AttrReturnType.String(end.Return.Type),
		)
	} else {
		outcome = OutcomeFailure
		status, message = codes.Error, b.redactor.RedactString(end.Error.Message)
		attrs = append(attrs, AttrErrorKind.String(end.Error.Kind))
	}

	_, span := b.tracer.Start(ctx, start.Func.Short(),
		trace.WithNewRoot(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start.Time),
		trace.WithAttributes(attrs...),
	)
	span.SetStatus(status, message)
	span.End(trace.WithTimestamp(end.Time))

	internallog.Trace(internallog.WithCall(b.logger, string(start.Func), start.CallID), "span emitted",
		slog.String("outcome", outcome),
		internallog.Duration("elapsed", end.Time.Sub(start.Time).Milliseconds()),
	)

	if b.metrics != nil {
		b.metrics.RecordCallEnd(ctx, string(start.Func), outcome, end.Time.Sub(start.Time),
			start.ExecutionName != end.ExecutionName)
	}
}
