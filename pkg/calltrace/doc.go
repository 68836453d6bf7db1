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
Package calltrace records the start and completion of instrumented function
calls into an ordered, goroutine-safe event log.

Two kinds of calls are supported:

  - Synchronous calls run to completion and return a value, an error, or panic.
  - Suspending calls receive a Continuation as their trailing argument. They
    either complete immediately, or return Suspended and later deliver their
    outcome through Continuation.Resume, possibly from another goroutine.

Tracing never changes what the caller observes: return values and errors are
passed through untouched and panics are re-raised with the original value.

# Quick Start

Wrap a function once and call the wrapper everywhere:

	fetch := calltrace.Wrap1(nil, store.Fetch)
	user, err := fetch("alice")

	for _, ev := range calltrace.Default().Snapshot() {
	    fmt.Print(string(calltrace.FormatEvent(ev, calltrace.FormatText)))
	}

Suspending functions take their continuation last:

	load := calltrace.WrapSuspend(nil, func(args []any, k calltrace.Continuation) (any, error) {
	    go func() { k.Resume(calltrace.Success(expensive(args[0]))) }()
	    return calltrace.Suspended, nil
	})

	v, err := calltrace.Await(ctx, load, "key")

# Events

Every call produces a Started event followed by at most one terminal event,
Success or Failure. Both carry the same CallID. A suspending call that is
never resumed keeps an open Started event forever.

Events are stamped with the name of the goroutine that recorded them. For a
suspending call the terminal event carries the name of the goroutine that
resumed it.

# Key Components

  - Log: append-only event log with Snapshot and Since readers
  - Scope: per-call accounting that emits exactly one terminal event
  - TracingContinuation: continuation wrapper that ends the scope on resume
  - Interceptor: dispatches synchronous and suspending calls
  - Marks: the set of functions selected for tracing
*/
package calltrace
