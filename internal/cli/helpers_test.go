package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	salesSchema  = filepath.Join("..", "harness", "testdata", "schemas", "sales")
	scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir    = filepath.Join("..", "harness", "testdata", "golden")
)

// execute runs the root command with args and returns what it wrote to
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// decode parses a JSON response whose data has type T.
func decode[T any](t *testing.T, out string) (string, T, *CLIError) {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Status, resp.Data, resp.Error
}

// writeSchema writes a single-file CUE schema directory.
func writeSchema(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(content), 0o644))
	return dir
}
