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
	"fmt"
	"time"
)

// Kind identifies the variant of a trace event.
type Kind uint8

const (
	// KindStarted marks the entry of an instrumented call.
	KindStarted Kind = iota + 1
	// KindSuccess marks a call that completed with a value.
	KindSuccess
	// KindFailure marks a call that completed with an error or panic.
	KindFailure
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether the kind ends a call.
func (k Kind) Terminal() bool {
	return k == KindSuccess || k == KindFailure
}

// Value is a best-effort textual snapshot of an argument or return value.
// Value keeps the original for in-process consumers; it is not a deep copy.
type Value struct {
	// Expression is the fmt %v rendering of the value.
	Expression string

	// Type is the dynamic Go type, empty for untyped nil.
	Type string

	// Value is the original value.
	Value any
}

// ErrorInfo describes the error a call failed with.
type ErrorInfo struct {
	// Message is err.Error().
	Message string

	// Kind is the dynamic Go type of the error (e.g. "*fs.PathError").
	Kind string

	// Err is the original error, identity preserved.
	Err error
}

// Event is an immutable record of a call's start, success, or failure.
// Slices reachable from an Event are shared with the log and must not be modified.
type Event struct {
	Seq           uint64    // position in the log, starting at 1
	Kind          Kind      // event variant
	Func          FuncID    // called function
	CallID        string    // shared by the Started and terminal events of one call
	ExecutionName string    // goroutine that recorded the event
	Time          time.Time // wall-clock timestamp

	Args   []Value   // KindStarted only
	Return Value     // KindSuccess only
	Error  ErrorInfo // KindFailure only
}

// PanicError is recorded as the failure of a call that panicked.
// The original panic value is re-raised to the caller; PanicError only
// appears in the log.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func describeValue(v any) Value {
	if v == nil {
		return Value{Expression: "<nil>"}
	}
	return Value{
		Expression: fmt.Sprintf("%v", v),
		Type:       fmt.Sprintf("%T", v),
		Value:      v,
	}
}

func describeArgs(args []any) []Value {
	if len(args) == 0 {
		return nil
	}
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = describeValue(a)
	}
	return out
}

func describeError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Message: "<nil>"}
	}
	return ErrorInfo{
		Message: err.Error(),
		Kind:    fmt.Sprintf("%T", err),
		Err:     err,
	}
}
