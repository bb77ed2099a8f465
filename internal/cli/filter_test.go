package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCommand(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"number", []string{"filter", "--kind", "number", ">5"}, "Value > 5\n"},
		{"quoted column", []string{"filter", "--dialect", "mssql", "--column", "Order", "=x"}, "[Order] = 'x'\n"},
		{"postgres", []string{"filter", "-d", "postgres", "-c", "Name", "NULL"}, "Name IS NULL\n"},
		{"evaluated", []string{"filter", "-k", "number", "--eval", "3", "--eval", "7", "--eval", "NULL", "1-4"},
			"Value BETWEEN 1 AND 4\n✓ 3\n✗ 7\n✗ NULL\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestFilterCommand_DateTime(t *testing.T) {
	out, err := execute(t, "filter", "--kind", "datetime", "--now", "2024-03-06T14:30:00Z",
		"--eval", "2024-03-06 10:00", "--eval", "2024-03-07", "TODAY")
	require.NoError(t, err)
	assert.Contains(t, out, "Value >= '2024-03-06 00:00:00'")
	assert.Contains(t, out, "Value < '2024-03-07 00:00:00'")
	assert.Contains(t, out, "✓ 2024-03-06 10:00\n")
	assert.Contains(t, out, "✗ 2024-03-07\n")
}

func TestFilterCommand_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "filter", "--kind", "logical", "--eval", "yes", "--eval", "0", "true")
	require.NoError(t, err)

	status, data, _ := decode[FilterResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "logical", data.Kind)
	assert.Equal(t, "sqlite", data.Dialect)
	assert.NotEmpty(t, data.SQL)
	assert.Equal(t, []EvalResult{{Value: "yes", Match: true}, {Value: "0", Match: false}}, data.Evals)
}

func TestFilterCommand_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		exit     int
		contains string
	}{
		{"rejected filter", []string{"filter", "--kind", "number", "abc"}, ExitFailure, `Error [E101]: number filter "abc": at 0: "abc" is not a number`},
		{"unknown kind", []string{"filter", "--kind", "money", "1"}, ExitCommandError, `unknown filter kind "money"`},
		{"unknown dialect", []string{"filter", "--dialect", "oracle", "x"}, ExitCommandError, "Error [E103]"},
		{"bad now", []string{"filter", "--kind", "datetime", "--now", "noon", "TODAY"}, ExitCommandError, "--now"},
		{"bad eval", []string{"filter", "--kind", "datetime", "--eval", "later", "TODAY"}, ExitCommandError, `--eval "later"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.exit, GetExitCode(err))
			assert.Contains(t, out, tc.contains)
		})
	}
}
