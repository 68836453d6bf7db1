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
	"strconv"
	"strings"
	"time"
)

// Format is the output format for FormatEvent.
type Format uint8

const (
	FormatText   Format = iota // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatNDJSON:
		return "ndjson"
	default:
		return "unknown"
	}
}

// FormatEvent renders an event as a single newline-terminated line.
func FormatEvent(ev Event, format Format) []byte {
	if format == FormatNDJSON {
		return formatNDJSON(ev)
	}
	return formatText(ev)
}

type jsonValue struct {
	Expression string `json:"expr"`
	Type       string `json:"type,omitempty"`
}

type jsonEvent struct {
	Seq       uint64      `json:"seq"`
	Time      string      `json:"time"`
	Kind      string      `json:"kind"`
	Func      string      `json:"func"`
	CallID    string      `json:"call_id"`
	Goroutine string      `json:"goroutine"`
	Args      []jsonValue `json:"args,omitempty"`
	Return    *jsonValue  `json:"return,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
}

func formatNDJSON(ev Event) []byte {
	j := jsonEvent{
		Seq:       ev.Seq,
		Time:      ev.Time.Format(time.RFC3339Nano),
		Kind:      ev.Kind.String(),
		Func:      string(ev.Func),
		CallID:    ev.CallID,
		Goroutine: ev.ExecutionName,
	}

	switch ev.Kind {
	case KindStarted:
		for _, a := range ev.Args {
			j.Args = append(j.Args, jsonValue{Expression: a.Expression, Type: a.Type})
		}
	case KindSuccess:
		j.Return = &jsonValue{Expression: ev.Return.Expression, Type: ev.Return.Type}
	case KindFailure:
		j.Error = ev.Error.Message
		j.ErrorKind = ev.Error.Kind
	}

	data, _ := json.Marshal(j)
	return append(data, '\n')
}

// lineBreaks escapes characters that would split a text event over lines.
var lineBreaks = strings.NewReplacer("\n", `\n`, "\r", `\r`)

func oneLine(s string) string {
	return lineBreaks.Replace(s)
}

// formatText renders: #seq [goroutine] →/←/✗ func(args) = result
func formatText(ev Event) []byte {
	var sb strings.Builder

	sb.WriteString("#")
	sb.WriteString(strconv.FormatUint(ev.Seq, 10))
	sb.WriteString(" [")
	sb.WriteString(ev.ExecutionName)
	sb.WriteString("] ")

	switch ev.Kind {
	case KindStarted:
		sb.WriteString("→ ")
		sb.WriteString(ev.Func.Short())
		sb.WriteString("(")
		for i, a := range ev.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(oneLine(a.Expression))
		}
		sb.WriteString(")")
	case KindSuccess:
		sb.WriteString("← ")
		sb.WriteString(ev.Func.Short())
		sb.WriteString(" = ")
		sb.WriteString(oneLine(ev.Return.Expression))
	case KindFailure:
		sb.WriteString("✗ ")
		sb.WriteString(ev.Func.Short())
		sb.WriteString(" ! ")
		sb.WriteString(oneLine(ev.Error.Message))
	default:
		sb.WriteString("? ")
		sb.WriteString(ev.Func.Short())
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
