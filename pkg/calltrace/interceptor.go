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

package calltrace

import (
	"context"
	"errors"
	"log/slog"
)

// ErrGoexit is recorded as the failure of a call whose goroutine exited
// through runtime.Goexit before the call returned.
var ErrGoexit = errors.New("calltrace: goroutine exited during call")

// CallKind tells the interceptor how a call completes.
// It is decided once, when the call is attached, never inferred per call.
type CallKind uint8

const (
	// CallSync is a call that runs to completion.
	CallSync CallKind = iota
	// CallSuspending is a call whose trailing argument is a Continuation.
	CallSuspending
)

// String returns the string representation of CallKind.
func (k CallKind) String() string {
	switch k {
	case CallSync:
		return "sync"
	case CallSuspending:
		return "suspending"
	default:
		return "unknown"
	}
}

// Call describes one pending invocation of an instrumented function.
type Call struct {
	// Func identifies the called function.
	Func FuncID

	// Kind selects the synchronous or suspending path.
	Kind CallKind

	// Args are the call arguments. For CallSuspending the last element is
	// the continuation slot.
	Args []any

	// Invoke runs the real function with the given arguments.
	Invoke func(args []any) (any, error)
}

// Interceptor records trace events around instrumented calls.
// An Interceptor is safe for concurrent use.
type Interceptor struct {
	log    *Log
	logger *slog.Logger
	marks  *Marks
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLog sets the log events are recorded into (default: Default()).
func WithLog(log *Log) Option {
	return func(i *Interceptor) {
		if log != nil {
			i.log = log
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMarks restricts Attach to the marked functions.
func WithMarks(marks *Marks) Option {
	return func(i *Interceptor) {
		i.marks = marks
	}
}

// NewInterceptor creates an Interceptor.
func NewInterceptor(opts ...Option) *Interceptor {
	i := &Interceptor{
		log:    defaultLog,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var defaultInterceptor = NewInterceptor()

// DefaultInterceptor returns the interceptor recording into Default().
func DefaultInterceptor() *Interceptor {
	return defaultInterceptor
}

// Intercept runs call through the default interceptor.
func Intercept(call Call) (any, error) {
	return defaultInterceptor.Intercept(call)
}

// Log returns the log this interceptor records into.
func (i *Interceptor) Log() *Log {
	return i.log
}

// Attach runs call through Intercept when its function is marked, and
// invokes it directly otherwise. An interceptor without marks traces
// every call.
func (i *Interceptor) Attach(call Call) (any, error) {
	if i.marks != nil && !i.marks.IsMarked(call.Func) {
		return call.Invoke(call.Args)
	}
	return i.Intercept(call)
}

// Intercept invokes call and records its start and completion.
// It returns exactly what call.Invoke returns and re-panics with the
// original value if call.Invoke panics.
func (i *Interceptor) Intercept(call Call) (any, error) {
	if call.Kind == CallSuspending {
		return i.interceptSuspending(call)
	}
	return i.interceptSync(call)
}

func (i *Interceptor) interceptSync(call Call) (any, error) {
	scope := NewScope(i.log, call.Func, call.Args)
	returned := false
	defer func() {
		if !returned {
			endAbnormally(scope, recover())
		}
	}()

	result, err := call.Invoke(call.Args)
	returned = true
	if err != nil {
		scope.EndWithError(err)
	} else {
		scope.EndWithReturnValue(result)
	}
	return result, err
}

func (i *Interceptor) interceptSuspending(call Call) (any, error) {
	args, wrapped, ok := i.replaceContinuation(call)
	if !ok {
		return call.Invoke(call.Args)
	}

	scope := NewScope(i.log, call.Func, args)
	wrapped.scope = scope
	returned := false
	defer func() {
		if !returned {
			endAbnormally(scope, recover())
		}
	}()

	result, err := call.Invoke(args)
	returned = true
	if err == nil && IsSuspended(result) {
		// The wrapper ends the scope when the call resumes.
		return result, nil
	}

	// Completed without suspending.
	if err != nil {
		scope.EndWithError(err)
	} else {
		scope.EndWithReturnValue(result)
	}
	return result, err
}

// replaceContinuation returns a copy of the call arguments with the trailing
// continuation replaced by a TracingContinuation. It reports false when the
// trailing argument is missing or must not be wrapped; the call then runs
// untraced.
func (i *Interceptor) replaceContinuation(call Call) ([]any, *TracingContinuation, bool) {
	if len(call.Args) == 0 {
		i.skip(call, "no trailing continuation")
		return nil, nil, false
	}

	last := len(call.Args) - 1
	k, ok := call.Args[last].(Continuation)
	if !ok || k == nil {
		i.skip(call, "trailing argument is not a continuation")
		return nil, nil, false
	}

	if !wrappable(k, call.Func) {
		i.skip(call, "continuation not wrappable")
		return nil, nil, false
	}

	wrapped := &TracingContinuation{original: k}
	args := make([]any, len(call.Args))
	copy(args, call.Args)
	args[last] = wrapped

	return args, wrapped, true
}

// skip never touches the continuation, which may be a typed nil.
func (i *Interceptor) skip(call Call, reason string) {
	i.logger.DebugContext(context.Background(), "instrumentation skipped",
		slog.String("function", string(call.Func)),
		slog.String("reason", reason))
}

// endAbnormally ends the scope of a call that did not return. A nil r means
// the goroutine is exiting through runtime.Goexit; otherwise the call
// panicked and the original value is re-panicked.
func endAbnormally(scope *Scope, r any) {
	if r == nil {
		scope.EndWithError(ErrGoexit)
		return
	}
	scope.EndWithError(&PanicError{Value: r})
	panic(r)
}
