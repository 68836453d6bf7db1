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
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// FuncID identifies a function by its fully-qualified Go name,
// e.g. "github.com/acme/app/store.(*Repo).Get".
type FuncID string

// FuncIDOf returns the FuncID of a func value. Method values lose their
// "-fm" suffix so they match the method's name. Non-func values yield "".
func FuncIDOf(fn any) FuncID {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return FuncID(strings.TrimSuffix(f.Name(), "-fm"))
}

// Short returns the name without its import path, e.g. "store.(*Repo).Get".
func (id FuncID) Short() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Marks is the set of functions selected for tracing.
type Marks struct {
	mu  sync.RWMutex
	ids map[FuncID]struct{}
}

// NewMarks creates a set containing ids.
func NewMarks(ids ...FuncID) *Marks {
	m := &Marks{ids: make(map[FuncID]struct{}, len(ids))}
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return m
}

// Mark selects id for tracing.
func (m *Marks) Mark(id FuncID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = struct{}{}
}

// MarkFunc selects a func value for tracing and returns its FuncID.
func (m *Marks) MarkFunc(fn any) FuncID {
	id := FuncIDOf(fn)
	if id != "" {
		m.Mark(id)
	}
	return id
}

// Unmark removes id from the set.
func (m *Marks) Unmark(id FuncID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, id)
}

// IsMarked reports whether id is selected for tracing.
func (m *Marks) IsMarked(id FuncID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[id]
	return ok
}
