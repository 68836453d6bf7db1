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
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope tracks a single invocation from start to end.
//
// The Started event is recorded when the scope is created. The first call to
// EndWithReturnValue or EndWithError records the terminal event; every later
// call on either method is a no-op.
type Scope struct {
	log    *Log
	fn     FuncID
	callID string
	ended  atomic.Bool
}

// NewScope records a Started event for fn in log and returns the open scope.
// A nil log means the process-wide Default log.
func NewScope(log *Log, fn FuncID, args []any) *Scope {
	if log == nil {
		log = defaultLog
	}

	s := &Scope{
		log:    log,
		fn:     fn,
		callID: uuid.NewString(),
	}
	log.RecordStarted(fn, s.callID, args)
	return s
}

// EndWithReturnValue records a Success event unless the scope already ended.
func (s *Scope) EndWithReturnValue(v any) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.log.RecordSuccess(s.fn, s.callID, v)
}

// EndWithError records a Failure event unless the scope already ended.
func (s *Scope) EndWithError(err error) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.log.RecordFailure(s.fn, s.callID, err)
}

// Ended reports whether a terminal event has been recorded.
func (s *Scope) Ended() bool {
	return s.ended.Load()
}

// Func returns the traced function.
func (s *Scope) Func() FuncID {
	return s.fn
}

// CallID returns the identifier shared by this call's events.
func (s *Scope) CallID() string {
	return s.callID
}

func (s *Scope) String() string {
	return fmt.Sprintf("Scope(func=%s, call=%s)", s.fn, s.callID)
}
