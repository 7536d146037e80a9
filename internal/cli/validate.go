package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/navbridge/internal/config"
	"github.com/roach88/navbridge/internal/harness"
)

// File kinds accepted by validate.
const (
	KindAuto     = "auto"
	KindConfig   = "config"
	KindScenario = "scenario"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Kind   string                   `json:"kind"`
	Valid  bool                     `json:"valid"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a config or scenario file",
		Long: `Validate a navbridge configuration file or a conformance scenario.

Configuration files are decoded strictly and checked against the CUE
schema. Scenarios are checked for well-formed steps, aliases and
assertions. With --kind auto (the default) a file with a top-level
"steps" key is treated as a scenario.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, kind, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", KindAuto, "file kind (auto|config|scenario)")

	return cmd
}

func runValidate(opts *RootOptions, kind, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
	}

	if kind == KindAuto {
		kind, err = detectKind(data)
		if err != nil {
			return outputValidationErrors(formatter, KindConfig, config.Errors{{Code: config.ErrCodeDecode, Message: err.Error()}})
		}
	}
	formatter.VerboseLog("Validating %s as %s", path, kind)

	var errs config.Errors
	switch kind {
	case KindConfig:
		errs = validateConfig(data)
	case KindScenario:
		errs = validateScenario(data)
	default:
		return outputValidateError(formatter, ErrCodeGeneric, fmt.Sprintf("unknown kind %q: must be auto, config or scenario", kind), nil)
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, kind, errs)
	}
	return outputValidateSuccess(formatter, kind)
}

// detectKind reports scenario for documents with a top-level steps key.
func detectKind(data []byte) (string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	if _, ok := doc["steps"]; ok {
		return KindScenario, nil
	}
	return KindConfig, nil
}

func validateConfig(data []byte) config.Errors {
	_, err := config.Parse(data)
	if err == nil {
		return nil
	}
	var errs config.Errors
	if errors.As(err, &errs) {
		return errs
	}
	return config.Errors{{Code: ErrCodeGeneric, Message: err.Error()}}
}

func validateScenario(data []byte) config.Errors {
	if _, err := harness.ParseScenario(data); err != nil {
		return config.Errors{{Field: "scenario", Code: ErrCodeScenario, Message: err.Error()}}
	}
	return nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, kind string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Kind: kind, Valid: true})
	}

	markLine(formatter.Writer, true, "Valid "+kind)
	return nil
}

// outputValidateError outputs a single command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, kind string, errs config.Errors) error {
	if formatter.Format == "json" {
		response := Respond(
			ValidationResult{Kind: kind, Valid: false, Errors: errs},
			&CLIError{Code: errs[0].Code, Message: errs[0].Message},
		)
		if err := writeResponse(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	markLine(formatter.Writer, false, "Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
