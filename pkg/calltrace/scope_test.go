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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewScope_RecordsStarted(t *testing.T) {
	log := NewLog()

	s := NewScope(log, "pkg.F", []any{1, "two"})
	assert.False(t, s.Ended())
	assert.Equal(t, FuncID("pkg.F"), s.Func())

	events := log.Snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, KindStarted, events[0].Kind)
	assert.Equal(t, s.CallID(), events[0].CallID)
	require.Len(t, events[0].Args, 2)
	assert.Equal(t, "two", events[0].Args[1].Expression)
	assert.Contains(t, s.String(), "pkg.F")
}

func TestScope_EndIsIdempotent(t *testing.T) {
	errFirst := errors.New("first")

	tests := []struct {
		name string
		ends func(s *Scope)
		want Kind
	}{
		{
			name: "return then error",
			ends: func(s *Scope) {
				s.EndWithReturnValue(1)
				s.EndWithError(errFirst)
			},
			want: KindSuccess,
		},
		{
			name: "error then return",
			ends: func(s *Scope) {
				s.EndWithError(errFirst)
				s.EndWithReturnValue(1)
			},
			want: KindFailure,
		},
		{
			name: "return twice",
			ends: func(s *Scope) {
				s.EndWithReturnValue(1)
				s.EndWithReturnValue(2)
			},
			want: KindSuccess,
		},
		{
			name: "error twice",
			ends: func(s *Scope) {
				s.EndWithError(errFirst)
				s.EndWithError(errors.New("second"))
			},
			want: KindFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewLog()
			s := NewScope(log, "pkg.F", nil)

			tt.ends(s)

			events := log.Snapshot()
			require.Len(t, events, 2)
			assert.Equal(t, tt.want, events[1].Kind)
			assert.True(t, s.Ended())

			switch tt.want {
			case KindSuccess:
				assert.Equal(t, 1, events[1].Return.Value)
			case KindFailure:
				assert.Same(t, errFirst, events[1].Error.Err)
			}
		})
	}
}

func TestScope_ConcurrentEndRecordsOnce(t *testing.T) {
	for run := 0; run < 50; run++ {
		log := NewLog()
		s := NewScope(log, "pkg.F", nil)

		g, _ := errgroup.WithContext(context.Background())
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				if i%2 == 0 {
					s.EndWithReturnValue(i)
				} else {
					s.EndWithError(errors.New("racing"))
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		events := log.Snapshot()
		require.Len(t, events, 2)
		assert.True(t, events[1].Kind.Terminal())
	}
}

func TestNewScope_NilLogUsesDefault(t *testing.T) {
	before := Default().Len()
	s := NewScope(nil, "calltrace.test.default", nil)
	s.EndWithReturnValue(nil)

	events := Default().Since(uint64(before))
	var mine []Event
	for _, ev := range events {
		if ev.CallID == s.CallID() {
			mine = append(mine, ev)
		}
	}
	assert.Equal(t, []Kind{KindStarted, KindSuccess}, kinds(mine))
}
