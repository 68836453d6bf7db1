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

// Package redact masks sensitive text in recorded arguments, return values,
// and error messages before they leave the process.
package redact

import (
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// RedactionMode determines the level of redaction applied to exported values.
type RedactionMode string

const (
	// ModeNone disables redaction (not recommended for production).
	ModeNone RedactionMode = "none"

	// ModeStandard applies pattern-based redaction for common secrets.
	ModeStandard RedactionMode = "standard"

	// ModeStrict redacts all values (only keys preserved).
	ModeStrict RedactionMode = "strict"
)

// ParseMode converts a configuration string into a RedactionMode. An empty
// string selects ModeStandard.
func ParseMode(s string) (RedactionMode, error) {
	switch RedactionMode(strings.ToLower(s)) {
	case "", ModeStandard:
		return ModeStandard, nil
	case ModeNone:
		return ModeNone, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown redaction mode %q", s)
	}
}

// Pattern defines a redaction pattern with a name and regular expression.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// StandardPatterns returns the default set of redaction patterns.
func StandardPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "api_key",
			Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)["\s:=]+([a-zA-Z0-9_\-]{16,})`),
			Replacement: "$1=[REDACTED]",
		},
		{
			Name:        "bearer_token",
			Regex:       regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9_\-\.]{20,})`),
			Replacement: "$1[REDACTED]",
		},
		{
			Name:        "password",
			Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["\s:=]+([^\s"]+)`),
			Replacement: "$1=[REDACTED]",
		},
		{
			Name:        "aws_key",
			Regex:       regexp.MustCompile(`(AKIA[0-9A-Z]{16})`),
			Replacement: "[REDACTED-AWS-KEY]",
		},
		{
			Name:        "private_key",
			Regex:       regexp.MustCompile(`(?s)(-----BEGIN (RSA |EC |DSA )?PRIVATE KEY-----).*?(-----END (RSA |EC |DSA )?PRIVATE KEY-----)`),
			Replacement: "$1[REDACTED]$3",
		},
		{
			Name:        "email",
			Regex:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			Replacement: "[REDACTED-EMAIL]",
		},
		{
			Name:        "ssn",
			Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Replacement: "[REDACTED-SSN]",
		},
		{
			Name:        "credit_card",
			Regex:       regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
			Replacement: "[REDACTED-CC]",
		},
		{
			Name:        "jwt",
			Regex:       regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
			Replacement: "[REDACTED-JWT]",
		},
		{
			Name:        "generic_secret",
			Regex:       regexp.MustCompile(`(?i)(secret|token)["\s:=]+([a-zA-Z0-9_\-]{16,})`),
			Replacement: "$1=[REDACTED]",
		},
	}
}

// CompilePattern builds a Pattern from a configured name, regular expression,
// and replacement. An empty replacement becomes "[REDACTED]".
func CompilePattern(name, expr, replacement string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %s: %w", name, err)
	}
	if replacement == "" {
		replacement = "[REDACTED]"
	}
	return Pattern{Name: name, Regex: re, Replacement: replacement}, nil
}

// Redactor applies redaction rules to sensitive text.
type Redactor struct {
	mode     RedactionMode
	patterns []Pattern
}

// NewRedactor creates a new redactor with the specified mode.
func NewRedactor(mode RedactionMode) *Redactor {
	return &Redactor{
		mode:     mode,
		patterns: StandardPatterns(),
	}
}

// NewRedactorWithPatterns creates a redactor that applies the standard
// patterns followed by extra.
func NewRedactorWithPatterns(mode RedactionMode, extra []Pattern) *Redactor {
	return &Redactor{
		mode:     mode,
		patterns: append(StandardPatterns(), extra...),
	}
}

// Mode returns the redactor's mode.
func (r *Redactor) Mode() RedactionMode {
	return r.mode
}

// RedactString applies redaction patterns to a string value.
func (r *Redactor) RedactString(s string) string {
	if r.mode == ModeNone {
		return s
	}

	if r.mode == ModeStrict {
		return "[REDACTED]"
	}

	result := s
	for _, pattern := range r.patterns {
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

// RedactStrings applies RedactString to each element, returning a new slice.
func (r *Redactor) RedactStrings(values []string) []string {
	if r.mode == ModeNone || len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = r.RedactString(v)
	}
	return out
}

// RedactAttributes applies redaction to span attributes.
func (r *Redactor) RedactAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	if r.mode == ModeNone {
		return attrs
	}

	redacted := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		key := string(attr.Key)
		value := attr.Value.AsInterface()

		if r.shouldRedactKey(key) {
			redacted[i] = attribute.String(key, "[REDACTED]")
			continue
		}

		if strVal, ok := value.(string); ok {
			redacted[i] = attribute.String(key, r.RedactString(strVal))
		} else if attr.Value.Type() == attribute.STRINGSLICE {
			redacted[i] = attribute.StringSlice(key, r.RedactStrings(attr.Value.AsStringSlice()))
		} else if r.mode == ModeStrict {
			redacted[i] = attribute.String(key, "[REDACTED]")
		} else {
			redacted[i] = attr
		}
	}
	return redacted
}

// shouldRedactKey checks if an attribute key indicates sensitive data.
func (r *Redactor) shouldRedactKey(key string) bool {
	lowerKey := strings.ToLower(key)
	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token",
		"api_key", "apikey",
		"private_key", "private",
		"authorization", "auth",
		"cookie", "session",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}
