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

package log

import (
	"context"
	"log/slog"

	"github.com/tombee/calltrace/pkg/calltrace"
)

// LogEvent writes one call event to logger. Started and Success events are
// logged at trace level; Failure events at warn.
func LogEvent(logger *slog.Logger, ev calltrace.Event) {
	attrs := []slog.Attr{
		slog.String(EventKey, ev.Kind.String()),
		slog.Uint64(SeqKey, ev.Seq),
		slog.String(FunctionKey, string(ev.Func)),
		slog.String(CallIDKey, ev.CallID),
		slog.String(GoroutineKey, ev.ExecutionName),
	}

	level := LevelTrace
	message := "call started"

	switch ev.Kind {
	case calltrace.KindStarted:
		args := make([]string, len(ev.Args))
		for i, a := range ev.Args {
			args[i] = a.Expression
		}
		attrs = append(attrs, slog.Any("args", args))
	case calltrace.KindSuccess:
		message = "call returned"
		attrs = append(attrs, slog.String("return", ev.Return.Expression))
	case calltrace.KindFailure:
		level = slog.LevelWarn
		message = "call failed"
		attrs = append(attrs,
			slog.String("error", ev.Error.Message),
			slog.String("error_kind", ev.Error.Kind),
		)
	}

	logger.LogAttrs(context.Background(), level, message, attrs...)
}

// EventLogger forwards events appended to a calltrace.Log into a logger.
// It keeps a cursor so each event is written once.
type EventLogger struct {
	logger *slog.Logger
	log    *calltrace.Log
	cursor uint64
}

// NewEventLogger creates an EventLogger reading from log. A nil log reads the
// process-wide default.
func NewEventLogger(logger *slog.Logger, log *calltrace.Log) *EventLogger {
	if log == nil {
		log = calltrace.Default()
	}
	return &EventLogger{
		logger: logger,
		log:    log,
	}
}

// Flush logs every event recorded since the previous Flush and returns how
// many were written. It is not safe for concurrent use.
func (l *EventLogger) Flush() int {
	events := l.log.Since(l.cursor)
	for _, ev := range events {
		LogEvent(l.logger, ev)
		l.cursor = ev.Seq
	}
	return len(events)
}
