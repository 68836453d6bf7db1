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
	"fmt"
)

// Outcome is the result a suspended call resumes with.
type Outcome struct {
	Value any
	Err   error
}

// Success builds a successful Outcome.
func Success(v any) Outcome {
	return Outcome{Value: v}
}

// Failure builds a failed Outcome.
func Failure(err error) Outcome {
	return Outcome{Err: err}
}

// Succeeded reports whether the outcome carries no error.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Continuation is the resumption handle of a suspending call.
//
// A suspending function receives a Continuation as its trailing argument.
// If it cannot finish immediately it returns Suspended and later calls
// Resume exactly once, from any goroutine.
type Continuation interface {
	// Context returns the execution context the call belongs to.
	Context() context.Context

	// Resume delivers the call's outcome.
	Resume(o Outcome)
}

// OwnedContinuation is implemented by continuations that belong to a
// function's own internal suspension points, for example the continuation a
// function passes to itself when it re-enters after a suspension. The
// interceptor never wraps a continuation owned by the function being called.
type OwnedContinuation interface {
	Continuation

	// OwnedBy returns the function that created the continuation.
	OwnedBy() FuncID
}

type suspendedMarker struct{}

func (suspendedMarker) String() string { return "calltrace.Suspended" }

// Suspended is returned by a suspending function that will deliver its
// outcome later through its Continuation.
var Suspended any = suspendedMarker{}

// IsSuspended reports whether v is the Suspended sentinel.
func IsSuspended(v any) bool {
	_, ok := v.(suspendedMarker)
	return ok
}

// TracingContinuation wraps the continuation of a traced suspending call.
// Resuming it ends the call's scope with the outcome and then forwards the
// identical outcome to the original continuation.
type TracingContinuation struct {
	original Continuation
	scope    *Scope
}

// Context delegates to the original continuation.
func (c *TracingContinuation) Context() context.Context {
	return c.original.Context()
}

// Resume ends the scope and resumes the original continuation.
func (c *TracingContinuation) Resume(o Outcome) {
	if c.scope != nil {
		if o.Err != nil {
			c.scope.EndWithError(o.Err)
		} else {
			c.scope.EndWithReturnValue(o.Value)
		}
	}
	c.original.Resume(o)
}

// Original returns the wrapped continuation.
func (c *TracingContinuation) Original() Continuation {
	return c.original
}

// Scope returns the scope this continuation terminates.
func (c *TracingContinuation) Scope() *Scope {
	return c.scope
}

func (c *TracingContinuation) String() string {
	if c.scope == nil {
		return fmt.Sprintf("TracingContinuation(original=%T)", c.original)
	}
	return fmt.Sprintf("TracingContinuation(original=%T, %s)", c.original, c.scope)
}

// wrappable reports whether k may be wrapped for a call to fn.
func wrappable(k Continuation, fn FuncID) bool {
	if _, ok := k.(*TracingContinuation); ok {
		return false
	}
	if owned, ok := k.(OwnedContinuation); ok && owned.OwnedBy() == fn {
		return false
	}
	return true
}
