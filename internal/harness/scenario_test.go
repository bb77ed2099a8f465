package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "schema"), 0o755))
	path := writeScenario(t, dir, "s.yaml", `
name: basic
description: one of each
dialect: postgres
now: "2024-01-02T03:04:05Z"
schema: schema
filters:
  - filter: ">5"
    kind: number
    sql: Value > 5
    matches: [6, "7"]
    rejects: [~]
commands:
  - op: select
    table: Orders
    where: ["Amount=>5"]
    columns: [Id]
`)

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "basic", sc.Name)
	assert.Equal(t, "postgres", sc.Dialect)
	assert.Equal(t, filepath.Join(dir, "schema"), sc.Schema)
	assert.Equal(t, path, sc.Path)
	require.Len(t, sc.Filters, 1)
	assert.Equal(t, []any{6, "7"}, sc.Filters[0].Matches)
	assert.Equal(t, []any{nil}, sc.Filters[0].Rejects)
	require.Len(t, sc.Commands, 1)
	assert.Equal(t, []string{"Amount=>5"}, sc.Commands[0].Where)
}

func TestLoadScenario_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		contains string
	}{
		{"unknown field", "name: x\ndescription: y\nfilter: [a]\n", "field filter not found"},
		{"missing name", "description: y\nfilters: [{filter: a}]\n", "name is required"},
		{"missing description", "name: x\nfilters: [{filter: a}]\n", "description is required"},
		{"no cases", "name: x\ndescription: y\n", "at least one filter or command case is required"},
		{"bad kind", "name: x\ndescription: y\nfilters: [{filter: a, kind: money}]\n", `unknown filter kind "money"`},
		{"sql and error", "name: x\ndescription: y\nfilters: [{filter: a, sql: b, error: c}]\n", "sql and error are exclusive"},
		{"empty filter", "name: x\ndescription: y\nfilters: [{filter: ' '}]\n", "filters[0]: filter is required"},
		{"unknown op", "name: x\ndescription: y\ncommands: [{op: merge, table: T}]\n", `unknown op "merge"`},
		{"missing op", "name: x\ndescription: y\ncommands: [{table: T}]\n", "commands[0]: op is required"},
		{"missing table", "name: x\ndescription: y\ncommands: [{op: delete}]\n", "table is required"},
		{"update without set", "name: x\ndescription: y\ncommands: [{op: update, table: T}]\n", "set is required for update"},
		{"bad now", "name: x\ndescription: y\nnow: tomorrow\nfilters: [{filter: a}]\n", "now:"},
		{"missing schema", "name: x\ndescription: y\nschema: nowhere\nfilters: [{filter: a}]\n", "schema directory not found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tc.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yml", "name: beta\ndescription: b\nfilters: [{filter: b}]\n")
	writeScenario(t, dir, "a.yaml", "name: alpha\ndescription: a\nfilters: [{filter: a}]\n")
	writeScenario(t, dir, "notes.txt", "not a scenario")

	all, err := LoadScenarios(dir, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "beta", all[1].Name)

	some, err := LoadScenarios(dir, "b*")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "beta", some[0].Name)

	_, err = LoadScenarios(dir, "[")
	assert.Error(t, err)
}
