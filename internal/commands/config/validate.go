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

package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/calltrace/internal/commands/shared"
	"github.com/tombee/calltrace/internal/config"
	cterrors "github.com/tombee/calltrace/pkg/errors"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	shared.JSONResponse
	Path     string   `json:"path,omitempty"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the 'config validate' subcommand.
func NewValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate configuration file",
		Long: `Validate a configuration file together with environment overrides.

Checks performed:
  - YAML syntax and structure
  - Log level and format
  - Exporter types and required endpoints
  - Redaction level and custom patterns
  - Demo worker settings

With --strict, warnings are treated as errors.`,
		Example: `  # Validate the default configuration file
  calltrace config validate

  # Validate a specific file with warnings as errors
  calltrace config validate ./calltrace.yaml --strict

  # Get validation result as JSON
  calltrace config validate --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := shared.GetConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			result := validateFile(config.ResolvePath(path))
			return outputValidationResult(cmd.OutOrStdout(), result, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

// validateFile loads path (or only the environment when path is empty) and
// collects every problem found.
func validateFile(path string) ValidationResult {
	result := ValidationResult{
		JSONResponse: shared.NewJSONResponse("config validate"),
		Path:         path,
	}

	cfg, err := config.Load(path)
	if err != nil {
		result.Errors = validationMessages(err)
		result.Success = false
		return result
	}

	result.Valid = true
	result.Warnings = warnings(cfg)
	return result
}

// validationMessages flattens a load error into one message per problem.
func validationMessages(err error) []string {
	var msgs []string
	for _, vErr := range cterrors.ValidationErrors(err) {
		msgs = append(msgs, fmt.Sprintf("%s: %s", vErr.Field, vErr.Message))
	}
	if len(msgs) == 0 {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

func warnings(cfg *config.Config) []string {
	var warns []string

	exporting := 0
	for _, exp := range cfg.Tracing.Exporters {
		if exp.Type != "none" && exp.Type != "" {
			exporting++
		}
	}

	if cfg.Tracing.Enabled && exporting == 0 {
		warns = append(warns, "Tracing is enabled but no exporters are configured; spans will be dropped.")
	}
	if !cfg.Tracing.Enabled && exporting > 0 {
		warns = append(warns, "Exporters are configured but tracing is disabled.")
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Redaction.Level == "none" {
		warns = append(warns, "Redaction is disabled; argument and return values are exported verbatim.")
	}
	for i, exp := range cfg.Tracing.Exporters {
		if (exp.Type == "otlp" || exp.Type == "otlp-http" || exp.Type == "otlp_http") && !exp.TLS.Enabled {
			warns = append(warns, fmt.Sprintf("Exporter %d (%s) sends spans without TLS.", i, exp.Endpoint))
		}
	}

	return warns
}

// outputValidationResult writes the result and returns an error when
// validation failed.
func outputValidationResult(out io.Writer, result ValidationResult, strict bool) error {
	if strict && len(result.Warnings) > 0 {
		result.Success = false
	}

	if shared.GetJSON() {
		if err := shared.EmitJSON(out, result); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	} else {
		if result.Valid {
			fmt.Fprintln(out, shared.RenderOK("Configuration is valid"))
		} else {
			fmt.Fprintln(out, shared.RenderError("Configuration validation failed"))
		}
		fmt.Fprintln(out)

		if len(result.Errors) > 0 {
			fmt.Fprintln(out, shared.Header.Render("Errors:"))
			for _, err := range result.Errors {
				fmt.Fprintf(out, "  %s %s\n", shared.StatusError.Render(shared.SymbolError), err)
			}
			fmt.Fprintln(out)
		}

		if len(result.Warnings) > 0 {
			fmt.Fprintln(out, shared.Header.Render("Warnings:"))
			for _, warn := range result.Warnings {
				fmt.Fprintf(out, "  %s %s\n", shared.StatusWarn.Render(shared.SymbolWarn), warn)
			}
			fmt.Fprintln(out)
		}

		if result.Valid && len(result.Warnings) == 0 {
			fmt.Fprintln(out, "No issues found.")
		}
	}

	if !result.Valid {
		return shared.NewConfigError("configuration is invalid", nil)
	}
	if strict && len(result.Warnings) > 0 {
		return shared.NewConfigError("validation failed (strict mode: warnings treated as errors)", nil)
	}
	return nil
}
