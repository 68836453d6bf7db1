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
	"sync"
	"time"
)

// Log is an append-only, goroutine-safe sequence of trace events.
// There is no way to remove events; a Log lives as long as its owner.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// defaultLog is the process-wide log used by the package-level helpers.
var defaultLog = NewLog()

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Default returns the process-wide Log.
func Default() *Log {
	return defaultLog
}

// RecordStarted appends a Started event for fn.
func (l *Log) RecordStarted(fn FuncID, callID string, args []any) Event {
	return l.append(Event{
		Kind:   KindStarted,
		Func:   fn,
		CallID: callID,
		Args:   describeArgs(args),
	})
}

// RecordSuccess appends a Success event for fn.
func (l *Log) RecordSuccess(fn FuncID, callID string, returnValue any) Event {
	return l.append(Event{
		Kind:   KindSuccess,
		Func:   fn,
		CallID: callID,
		Return: describeValue(returnValue),
	})
}

// RecordFailure appends a Failure event for fn.
func (l *Log) RecordFailure(fn FuncID, callID string, err error) Event {
	return l.append(Event{
		Kind:   KindFailure,
		Func:   fn,
		CallID: callID,
		Error:  describeError(err),
	})
}

// append stamps ev with the calling goroutine and the next sequence number.
// The sequence number is assigned under the lock so Seq always matches the
// append order.
func (l *Log) append(ev Event) Event {
	ev.ExecutionName = ExecutionName()
	ev.Time = time.Now()

	l.mu.Lock()
	ev.Seq = uint64(len(l.events)) + 1
	l.events = append(l.events, ev)
	l.mu.Unlock()

	return ev
}

// Snapshot returns a copy of all events recorded so far in append order.
// It does not clear the log.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]Event, len(l.events))
	copy(result, l.events)
	return result
}

// Since returns the events whose Seq is greater than seq.
func (l *Log) Since(seq uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq >= uint64(len(l.events)) {
		return nil
	}
	result := make([]Event, uint64(len(l.events))-seq)
	copy(result, l.events[seq:])
	return result
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
