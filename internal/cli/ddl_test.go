package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDDLCommand(t *testing.T) {
	out, err := execute(t, "--format", "json", "ddl", salesSchema, "--dialect", "postgres", "--one-line")
	require.NoError(t, err)

	status, data, _ := decode[ScriptResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "postgres", data.Dialect)
	require.Len(t, data.Statements, 4)
	assert.True(t, strings.HasPrefix(data.Statements[0], "CREATE TABLE Countries ("), data.Statements[0])
	assert.True(t, strings.HasPrefix(data.Statements[1], "CREATE TABLE Customers ("), data.Statements[1])
	assert.Equal(t, "CREATE INDEX IX_Customers_Name ON Customers (Name)", data.Statements[2])
	assert.True(t, strings.HasPrefix(data.Statements[3], "CREATE TABLE Orders ("), data.Statements[3])
	assert.Contains(t, data.Statements[3], "CONSTRAINT FK_Orders_Customer FOREIGN KEY (CustomerId) REFERENCES Customers (Id) ON DELETE CASCADE")
}

func TestDDLCommand_SingleTableInTransaction(t *testing.T) {
	out, err := execute(t, "--format", "json", "ddl", salesSchema, "--table", "Orders", "--transaction", "--one-line")
	require.NoError(t, err)

	_, data, _ := decode[ScriptResult](t, out)
	assert.Equal(t, "sqlite", data.Dialect)
	require.Len(t, data.Statements, 3)
	assert.True(t, strings.HasPrefix(data.Statements[1], "CREATE TABLE Orders ("), data.Statements[1])
	assert.Equal(t, "COMMIT", data.Statements[2])
}

func TestDDLCommand_CustomDialect(t *testing.T) {
	out, err := execute(t, "ddl", salesSchema, "--dialect", "turso", "--table", "Countries")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "create table Countries ("), out)
	assert.True(t, strings.HasSuffix(out, ");\n"), out)
}

func TestDDLCommand_Errors(t *testing.T) {
	out, err := execute(t, "ddl", salesSchema, "--table", "Invoices")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unknown table Invoices")

	out, err = execute(t, "ddl", "/nonexistent/schema")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
