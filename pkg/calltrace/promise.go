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
	"sync"
)

// Promise is a Continuation that stores the first outcome it receives and
// lets callers block until it arrives.
type Promise struct {
	ctx     context.Context
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// NewPromise creates an unresolved Promise bound to ctx.
func NewPromise(ctx context.Context) *Promise {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Promise{
		ctx:  ctx,
		done: make(chan struct{}),
	}
}

// Context returns the context the promise was created with.
func (p *Promise) Context() context.Context {
	return p.ctx
}

// Resume resolves the promise. Only the first outcome is kept.
func (p *Promise) Resume(o Outcome) {
	p.once.Do(func() {
		p.outcome = o
		close(p.done)
	})
}

// Done is closed once the promise is resolved.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise is resolved and returns its outcome.
func (p *Promise) Await() (any, error) {
	<-p.done
	return p.outcome.Value, p.outcome.Err
}

// Await calls a suspending function and blocks until it produces a result,
// whether it completes immediately or resumes later.
func Await(ctx context.Context, f SuspendFunc, args ...any) (any, error) {
	p := NewPromise(ctx)
	v, err := f(args, p)
	if err != nil {
		return v, err
	}
	if IsSuspended(v) {
		return p.Await()
	}
	return v, nil
}
