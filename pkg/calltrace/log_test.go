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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLog_RecordAndSnapshot(t *testing.T) {
	log := NewLog()
	errBad := errors.New("bad")

	started := log.RecordStarted("pkg.F", "call-1", []any{"x", nil})
	log.RecordSuccess("pkg.F", "call-1", 10)
	log.RecordFailure("pkg.G", "call-2", errBad)

	assert.Equal(t, uint64(1), started.Seq)
	assert.Equal(t, ExecutionName(), started.ExecutionName)
	assert.False(t, started.Time.IsZero())

	events := log.Snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, []Kind{KindStarted, KindSuccess, KindFailure}, kinds(events))

	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}

	require.Len(t, events[0].Args, 2)
	assert.Equal(t, "<nil>", events[0].Args[1].Expression)
	assert.Empty(t, events[0].Args[1].Type)

	assert.Equal(t, "10", events[1].Return.Expression)
	assert.Equal(t, "bad", events[2].Error.Message)
	assert.Same(t, errBad, events[2].Error.Err)
}

func TestLog_SnapshotDoesNotClear(t *testing.T) {
	log := NewLog()
	log.RecordStarted("pkg.F", "c", nil)

	first := log.Snapshot()
	second := log.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, 1, log.Len())

	// A snapshot is a copy; later appends do not show up in it.
	log.RecordSuccess("pkg.F", "c", nil)
	assert.Len(t, first, 1)
	assert.Len(t, log.Snapshot(), 2)
}

func TestLog_Since(t *testing.T) {
	log := NewLog()
	for i := 0; i < 5; i++ {
		log.RecordStarted("pkg.F", fmt.Sprintf("c%d", i), nil)
	}

	tests := []struct {
		name string
		seq  uint64
		want []uint64
	}{
		{name: "from start", seq: 0, want: []uint64{1, 2, 3, 4, 5}},
		{name: "middle", seq: 3, want: []uint64{4, 5}},
		{name: "caught up", seq: 5, want: nil},
		{name: "past end", seq: 9, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []uint64
			for _, ev := range log.Since(tt.seq) {
				got = append(got, ev.Seq)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLog_ConcurrentAppends(t *testing.T) {
	log := NewLog()
	const workers = 16
	const perWorker = 200

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				log.RecordStarted("pkg.F", fmt.Sprintf("w%d-%d", w, i), []any{i})
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	events := log.Snapshot()
	require.Len(t, events, workers*perWorker)

	seen := make(map[string]bool, len(events))
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.False(t, seen[ev.CallID], "duplicate event %s", ev.CallID)
		seen[ev.CallID] = true
	}
}

func TestDefault_IsProcessWide(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Same(t, Default(), DefaultInterceptor().Log())
}
