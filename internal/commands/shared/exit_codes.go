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
	"fmt"
	"io"
	"os"
	"strings"

	cterrors "github.com/tombee/calltrace/pkg/errors"
)

// Exit codes for calltrace commands
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitInvalidUsage  = 2
	ExitInvalidConfig = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for a command that failed while running
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitFailure, Message: msg, Cause: cause}
}

// NewUsageError creates an error for invalid flags or arguments
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidUsage, Message: msg, Cause: cause}
}

// NewConfigError creates an error for configuration that failed to load or validate
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidConfig, Message: msg, Cause: cause}
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// HandleExitError prints err and exits with the matching code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	printError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, RenderError(err.Error()))

	vErrs := cterrors.ValidationErrors(err)
	if len(vErrs) == 0 {
		if root := cterrors.RootCause(err); root != nil && !strings.Contains(err.Error(), root.Error()) {
			fmt.Fprintf(w, "  %s\n", root.Error())
		}
		return
	}

	for _, vErr := range vErrs {
		fmt.Fprintf(w, "  - %s: %s\n", vErr.Field, vErr.Message)
	}
	for _, vErr := range vErrs {
		if vErr.Suggestion != "" {
			fmt.Fprintf(w, "\nSuggestion: %s\n", vErr.Suggestion)
		}
	}
}
