package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condsql/internal/compiler"
	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/testutil"
)

func quietRunner(opts ...Option) *Runner {
	return NewRunner(append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)...)
}

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, sc)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_RecordsFailedExpectations(t *testing.T) {
	sc := &Scenario{
		Name:        "failing",
		Description: "expectations that do not hold",
		Filters: []FilterCase{
			{Filter: "^Ac", SQL: "Value = 'Ac'"},
			{Filter: "=Acme", Matches: []any{"Zeta"}},
			{Filter: "=Acme", Rejects: []any{"ACME"}},
			{Filter: "^", SQL: "anything"},
			{Filter: ">5", Kind: "number", Error: "not a number"},
			{Filter: "x", Kind: "number", Error: "empty clause"},
		},
		Commands: []CommandCase{
			{Op: OpDelete, Table: "Invoices"},
		},
	}

	result, err := quietRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], "expected: Value = 'Ac'")
	assert.Contains(t, result.Errors[0], "actual:   Value LIKE 'Ac%'")
	assert.Contains(t, result.Errors[1], "match Zeta")
	assert.Contains(t, result.Errors[2], "reject ACME")
	assert.Contains(t, result.Errors[3], "expected: no error")
	assert.Contains(t, result.Errors[4], `error containing "not a number"`)
	assert.Contains(t, result.Errors[5], `"x" is not a number`)
	assert.Contains(t, result.Errors[6], "unknown table Invoices")
}

func TestRun_Transcript(t *testing.T) {
	sc := &Scenario{
		Name:        "transcript",
		Description: "rendered lines",
		Dialect:     "mssql",
		Filters:     []FilterCase{{Filter: "=1", Kind: "number", Column: "Order"}},
	}
	result, err := quietRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "# transcript (sqlserver)\nfilter number Order: =1\n  [Order] = 1\n", result.TranscriptText())
}

func TestRun_SetupErrors(t *testing.T) {
	_, err := quietRunner().Run(context.Background(), &Scenario{Name: "x", Dialect: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dialect "oracle"`)

	_, err = quietRunner().Run(context.Background(), &Scenario{Name: "x", Now: "soon"})
	assert.Error(t, err)

	_, err = quietRunner().Run(context.Background(), &Scenario{Name: "x", Schema: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files found")
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := quietRunner().Run(ctx, &Scenario{Name: "x", Filters: []FilterCase{{Filter: "a"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll(t *testing.T) {
	var scenarios []*Scenario
	for _, name := range []string{"one", "two", "three", "four"} {
		scenarios = append(scenarios, &Scenario{
			Name:        name,
			Description: name,
			Filters:     []FilterCase{{Filter: "=" + name, SQL: "Value = '" + name + "'"}},
		})
	}

	results, err := quietRunner(WithConcurrency(2)).RunAll(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, scenarios[i].Name, r.Scenario)
		assert.True(t, r.Pass, r.Errors)
	}
}

func TestRunAll_StopsOnSetupError(t *testing.T) {
	scenarios := []*Scenario{
		{Name: "ok", Filters: []FilterCase{{Filter: "a"}}},
		{Name: "broken", Dialect: "db2", Filters: []FilterCase{{Filter: "a"}}},
	}
	_, err := quietRunner().RunAll(context.Background(), scenarios)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario broken")
}

// tableShape flattens what scenario SQL depends on.
func tableShape(db *schema.Database) []string {
	var out []string
	for _, t := range db.Tables {
		out = append(out, t.FullName.String()+" "+t.GroupID)
		for _, c := range t.Columns {
			out = append(out, fmt.Sprintf("  %s %s %s notnull=%t identity=%t", c.Name, c.GroupID, c.DataType, c.NotNull, c.AutoIncrement))
		}
		for _, fk := range t.ForeignKeys {
			out = append(out, fmt.Sprintf("  %s %v -> %s %v", fk.Name, fk.Columns, fk.RefTable.String(), fk.RefColumns))
		}
		for _, ix := range t.Indexes {
			out = append(out, fmt.Sprintf("  %s %v", ix.Name, ix.Columns))
		}
	}
	return out
}

func TestDefaultSchema_MatchesFixture(t *testing.T) {
	res, err := compiler.CompileString(salesSchema, "sales.cue")
	require.NoError(t, err)
	assert.Empty(t, compiler.Validate(res.Database))
	assert.Equal(t, tableShape(testutil.Fixture()), tableShape(res.Database))
}

func TestRun_DefaultSchemaResolvesPaths(t *testing.T) {
	sc := &Scenario{
		Name:        "default schema",
		Description: "commands against the built-in sales tables",
		Commands: []CommandCase{{
			Op:    OpDelete,
			Table: "Orders",
			Where: []string{"CustomerId.CountryId.Name==Peru"},
			SQL: "DELETE FROM Orders WHERE rowid IN ( SELECT basetbl.rowid FROM Orders basetbl " +
				"LEFT JOIN Customers _REF_CustomerId ON basetbl.CustomerId = _REF_CustomerId.Id " +
				"LEFT JOIN Countries _REF_CustomerId_CountryId ON _REF_CustomerId.CountryId = _REF_CustomerId_CountryId.Id " +
				"WHERE _REF_CustomerId_CountryId.Name = 'Peru' )",
		}},
	}
	result, err := quietRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}
