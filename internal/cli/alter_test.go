package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/store"
)

const itemsV1 = `package shop

table: Items: {
	columns: {
		Id:   {type: "int", notNull: true}
		Note: {type: "varchar(50)"}
	}
	primaryKey: {name: "PK_Items", columns: ["Id"]}
}
`

const itemsV2 = `package shop

table: Items: {
	columns: {
		Id:     {type: "int", notNull: true}
		Remark: {type: "varchar(50)", id: "items.note"}
		Qty:    {type: "int"}
	}
	primaryKey: {name: "PK_Items", columns: ["Id"]}
}
`

func TestAlterCommand_Script(t *testing.T) {
	v1, v2 := writeSchema(t, itemsV1), writeSchema(t, itemsV2)

	out, err := execute(t, "--format", "json", "alter", v1, v2, "--dialect", "postgres", "--one-line")
	require.NoError(t, err)

	status, data, _ := decode[ScriptResult](t, out)
	assert.Equal(t, "ok", status)
	assert.False(t, data.Applied)
	assert.Equal(t, []string{
		"ALTER TABLE Items RENAME COLUMN Note TO Remark",
		"ALTER TABLE Items ADD Qty INT NULL",
	}, data.Statements)
}

func TestAlterCommand_NoChanges(t *testing.T) {
	v1 := writeSchema(t, itemsV1)

	out, err := execute(t, "alter", v1, v1)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAlterCommand_AppliesToSQLite(t *testing.T) {
	ctx := context.Background()
	v1, v2 := writeSchema(t, itemsV1), writeSchema(t, itemsV2)
	dsn := filepath.Join(t.TempDir(), "shop.db")

	st, err := store.Open(ctx, dialect.SQLite, dsn)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, "CREATE TABLE Items (Id INT NOT NULL PRIMARY KEY, Note VARCHAR(50) NULL)")
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, "INSERT INTO Items (Id, Note) VALUES (1, 'first'), (2, 'second')")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "alter", v1, v2, "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Applied")

	st, err = store.Open(ctx, dialect.SQLite, dsn)
	require.NoError(t, err)
	defer st.Close()

	rows, err := st.Query(ctx, "SELECT Id, Remark, Qty FROM Items ORDER BY Id")
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var id int
		var remark string
		var qty *int
		require.NoError(t, rows.Scan(&id, &remark, &qty))
		assert.Nil(t, qty)
		got = append(got, remark)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestAlterCommand_Errors(t *testing.T) {
	v1, v2 := writeSchema(t, itemsV1), writeSchema(t, itemsV2)

	out, err := execute(t, "alter", v1, v2, "--dialect", "sqlserver", "--dsn", "server=nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E105]")
	assert.Contains(t, out, "has no database driver")

	_, err = execute(t, "alter", v1, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
