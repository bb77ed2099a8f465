package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/condsql/internal/ast"
)

// ExpectationError describes a case whose outcome differs from the
// scenario.
type ExpectationError struct {
	Case     string
	Expected string
	Actual   string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s:\n  expected: %s\n  actual:   %s", e.Case, e.Expected, e.Actual)
}

func fail(result *Result, label, expected, actual string) {
	result.AddError((&ExpectationError{Case: label, Expected: expected, Actual: actual}).Error())
}

func checkSQL(result *Result, label, want, wantErr, got string) {
	if wantErr != "" {
		fail(result, label, fmt.Sprintf("error containing %q", wantErr), got)
		return
	}
	if want != "" && want != got {
		fail(result, label, want, got)
	}
}

func checkError(result *Result, label, want string, err error) {
	if want == "" {
		fail(result, label, "no error", err.Error())
		return
	}
	if !strings.Contains(err.Error(), want) {
		fail(result, label, fmt.Sprintf("error containing %q", want), err.Error())
	}
}

// checkValues evaluates cond against each value; want says whether the
// values must be accepted or refused.
func checkValues(result *Result, label string, cond ast.Condition, values []any, want bool) {
	verb := "match"
	if !want {
		verb = "reject"
	}
	for _, v := range values {
		got, err := ast.EvaluateCondition(cond, ast.ValueNamespace{Value: v})
		if err != nil {
			fail(result, label, fmt.Sprintf("%s %v", verb, v), err.Error())
			continue
		}
		if got != want {
			fail(result, label, fmt.Sprintf("%s %v", verb, v), fmt.Sprintf("evaluated to %t", got))
		}
	}
}
