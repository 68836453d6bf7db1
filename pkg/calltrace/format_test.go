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
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Event{
		{
			Seq: 1, Kind: KindStarted, Func: "example.com/app/svc.Load", CallID: "c1",
			ExecutionName: "goroutine 7", Time: at,
			Args: describeArgs([]any{"user", 3}),
		},
		{
			Seq: 2, Kind: KindSuccess, Func: "example.com/app/svc.Load", CallID: "c1",
			ExecutionName: "goroutine 9", Time: at,
			Return: describeValue(true),
		},
		{
			Seq: 3, Kind: KindFailure, Func: "example.com/app/svc.Save", CallID: "c2",
			ExecutionName: "goroutine 7", Time: at,
			Error: describeError(errors.New("disk full")),
		},
	}
}

func TestFormatEvent_Text(t *testing.T) {
	events := sampleEvents()

	want := []string{
		"#1 [goroutine 7] → svc.Load(user, 3)\n",
		"#2 [goroutine 9] ← svc.Load = true\n",
		"#3 [goroutine 7] ✗ svc.Save ! disk full\n",
	}
	for i, ev := range events {
		assert.Equal(t, want[i], string(FormatEvent(ev, FormatText)))
	}
}

func TestFormatEvent_TextEscapesLineBreaks(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "argument",
			ev: Event{Seq: 1, Kind: KindStarted, Func: "example.com/pkg.F", ExecutionName: "goroutine 1", Time: at,
				Args: describeArgs([]any{"a\nb"})},
			want: "#1 [goroutine 1] → pkg.F(a\\nb)\n",
		},
		{
			name: "return value",
			ev: Event{Seq: 2, Kind: KindSuccess, Func: "example.com/pkg.F", ExecutionName: "goroutine 1", Time: at,
				Return: describeValue("line1\r\nline2")},
			want: "#2 [goroutine 1] ← pkg.F = line1\\r\\nline2\n",
		},
		{
			name: "error message",
			ev: Event{Seq: 3, Kind: KindFailure, Func: "example.com/pkg.F", ExecutionName: "goroutine 1", Time: at,
				Error: describeError(errors.New("first\nsecond"))},
			want: "#3 [goroutine 1] ✗ pkg.F ! first\\nsecond\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(FormatEvent(tt.ev, FormatText))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, strings.Count(got, "\n"))
		})
	}
}

func TestFormatEvent_NDJSON(t *testing.T) {
	events := sampleEvents()

	var started map[string]any
	line := FormatEvent(events[0], FormatNDJSON)
	require.Equal(t, byte('\n'), line[len(line)-1])
	require.NoError(t, json.Unmarshal(line, &started))
	assert.Equal(t, "started", started["kind"])
	assert.Equal(t, "c1", started["call_id"])
	assert.Equal(t, "goroutine 7", started["goroutine"])
	assert.Equal(t, "2025-03-01T12:00:00Z", started["time"])
	assert.Len(t, started["args"], 2)
	assert.NotContains(t, started, "return")

	var failed map[string]any
	require.NoError(t, json.Unmarshal(FormatEvent(events[2], FormatNDJSON), &failed))
	assert.Equal(t, "disk full", failed["error"])
	assert.Equal(t, "*errors.errorString", failed["error_kind"])
	assert.NotContains(t, failed, "args")
}

func TestFormat_String(t *testing.T) {
	assert.Equal(t, "text", FormatText.String())
	assert.Equal(t, "ndjson", FormatNDJSON.String())
	assert.Equal(t, "unknown", Format(9).String())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "started", KindStarted.String())
	assert.False(t, KindStarted.Terminal())
	assert.True(t, KindFailure.Terminal())
}

func TestPanicError(t *testing.T) {
	inner := errors.New("inner")
	pe := &PanicError{Value: inner}
	assert.Equal(t, "panic: inner", pe.Error())
	assert.ErrorIs(t, pe, inner)
	assert.Nil(t, (&PanicError{Value: "text"}).Unwrap())
}
