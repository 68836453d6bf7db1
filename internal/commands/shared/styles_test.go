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

package shared

import (
	"errors"
	"strings"
	"testing"

	"github.com/tombee/calltrace/pkg/calltrace"
)

func TestRenderEvent(t *testing.T) {
	log := calltrace.NewLog()
	started := log.RecordStarted("example.com/pkg.Fetch", "c1", []any{"url"})
	failed := log.RecordFailure("example.com/pkg.Fetch", "c1", errors.New("timeout"))

	got := RenderEvent(started)
	if !strings.Contains(got, "pkg.Fetch(url)") {
		t.Errorf("expected call in started line, got %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("expected no trailing newline")
	}

	got = RenderEvent(failed)
	if !strings.Contains(got, "timeout") {
		t.Errorf("expected error in failure line, got %q", got)
	}
}

func TestRenderOKAndError(t *testing.T) {
	if got := RenderOK("done"); !strings.Contains(got, SymbolOK) || !strings.Contains(got, "done") {
		t.Errorf("unexpected RenderOK output %q", got)
	}
	if got := RenderError("failed"); !strings.Contains(got, SymbolError) || !strings.Contains(got, "failed") {
		t.Errorf("unexpected RenderError output %q", got)
	}
}
