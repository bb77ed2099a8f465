package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/condsql/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid         bool                       `json:"valid"`
	Tables        int                        `json:"tables"`
	Programmables int                        `json:"programmables"`
	Dialects      []string                   `json:"dialects,omitempty"`
	Errors        []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a CUE schema directory",
		Long: `Load a CUE schema directory and check it for consistency: unknown
columns in keys and indexes, dangling foreign keys, duplicate names and
identities, malformed programmable objects.

Exit codes:
  0 - Schema valid
  1 - Validation errors
  2 - Schema could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, err := compiler.LoadDir(dir)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, err.Error())
		}
		return outputValidateError(formatter, compiler.ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Loaded %s", dir)

	result := ValidationResult{
		Tables:        len(res.Database.Tables),
		Programmables: len(res.Database.Programmables),
	}
	for _, d := range res.Dialects {
		result.Dialects = append(result.Dialects, d.Name)
	}

	result.Errors = compiler.Validate(res.Database)
	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	result.Valid = true

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d table(s), %d programmable(s)", result.Tables, result.Programmables)
	if len(result.Dialects) > 0 {
		fmt.Fprintf(formatter.Writer, ", dialects %v", result.Dialects)
	}
	fmt.Fprintln(formatter.Writer)
	return nil
}

// outputValidateError reports a schema that could not be loaded.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}
	return failure
}
