package sqldump

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/testutil"
)

// commands runs fn against a fresh dumper and returns the emitted commands.
func commands(t *testing.T, dl *dialect.Dialect, fn func(d *Dumper) error) []string {
	t.Helper()
	var s StringStream
	d := New(&s, dl, WithNamer(NewTempTableNamer()), WithFormat(FormatOptions{OneLine: true}))
	require.NoError(t, fn(d))
	require.NoError(t, d.Err())
	return s.Commands()
}

func fixtureTable(name string) *schema.Table {
	return testutil.Fixture().FindTable(schema.NewName("", name))
}

func TestCreateTable_SQLite(t *testing.T) {
	var s StringStream
	d := New(&s, dialect.SQLite)
	require.NoError(t, d.CreateTable(fixtureTable("Orders")))

	want := "CREATE TABLE Orders (\n" +
		"  Id INT NOT NULL,\n" +
		"  CustomerId INT NOT NULL,\n" +
		"  Amount DECIMAL(10,2) NULL,\n" +
		"  Note VARCHAR(200) NULL,\n" +
		"  CONSTRAINT PK_Orders PRIMARY KEY (Id),\n" +
		"  CONSTRAINT FK_Orders_Customer FOREIGN KEY (CustomerId) REFERENCES Customers (Id) ON DELETE CASCADE\n" +
		");\n"
	assert.Equal(t, want, s.String())
}

func TestCreateTable_Identity(t *testing.T) {
	testCases := []struct {
		dl     *dialect.Dialect
		column string
	}{
		{dialect.SQLServer, "Id INT IDENTITY NOT NULL"},
		{dialect.MySQL, "Id INT AUTO_INCREMENT NOT NULL"},
		{dialect.Postgres, "Id INT GENERATED BY DEFAULT AS IDENTITY NOT NULL"},
		{dialect.SQLite, "Id INT NOT NULL"},
	}

	for _, tc := range testCases {
		t.Run(tc.dl.Name, func(t *testing.T) {
			cmds := commands(t, tc.dl, func(d *Dumper) error {
				return d.CreateTable(fixtureTable("Customers"))
			})
			require.Len(t, cmds, 2)
			assert.Contains(t, cmds[0], "CREATE TABLE Customers ( "+tc.column+",")
			assert.Contains(t, cmds[0], "FOREIGN KEY (CountryId) REFERENCES Countries )")
			assert.Equal(t, "CREATE INDEX IX_Customers_Name ON Customers (Name)", cmds[1])
		})
	}
}

func TestCreateTable_AnonymousPrimaryKey(t *testing.T) {
	table := &schema.Table{
		FullName:   schema.NewName("", "T"),
		Columns:    []*schema.Column{{Name: "Id", DataType: "int", NotNull: true}},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"Id"}},
		Checks:     []*schema.Check{{Name: "CK_T_Id", Definition: "Id > 0"}},
	}
	table.Link()

	cmds := commands(t, dialect.SQLite, func(d *Dumper) error { return d.CreateTable(table) })
	assert.Equal(t, []string{"CREATE TABLE T ( Id INT NOT NULL, PRIMARY KEY (Id), CONSTRAINT CK_T_Id CHECK (Id > 0) )"}, cmds)

	cmds = commands(t, dialect.SQLServer, func(d *Dumper) error { return d.CreateTable(table) })
	assert.Equal(t, []string{"CREATE TABLE T ( Id INT NOT NULL, CONSTRAINT PK_T PRIMARY KEY (Id), CONSTRAINT CK_T_Id CHECK (Id > 0) )"}, cmds)
}

func TestRenameTable(t *testing.T) {
	orders := schema.NewName("", "Orders")
	testCases := []struct {
		dl   *dialect.Dialect
		want string
	}{
		{dialect.SQLite, "ALTER TABLE Orders RENAME TO Sales"},
		{dialect.Postgres, "ALTER TABLE Orders RENAME TO Sales"},
		{dialect.MySQL, "RENAME TABLE Orders TO Sales"},
		{dialect.SQLServer, "EXECUTE sp_rename 'Orders', 'Sales'"},
	}
	for _, tc := range testCases {
		t.Run(tc.dl.Name, func(t *testing.T) {
			cmds := commands(t, tc.dl, func(d *Dumper) error { return d.RenameTable(orders, "Sales") })
			assert.Equal(t, []string{tc.want}, cmds)
		})
	}
}

func TestColumnOperations(t *testing.T) {
	orders := schema.NewName("", "Orders")
	oldNote := &schema.Column{Name: "Note", DataType: "varchar(200)"}
	newNote := &schema.Column{Name: "Remark", DataType: "varchar(300)", NotNull: true}

	t.Run("add column", func(t *testing.T) {
		col := &schema.Column{Name: "Discount", DataType: "decimal(5,2)", NotNull: true, DefaultValue: "0"}
		cmds := commands(t, dialect.Postgres, func(d *Dumper) error { return d.AddColumn(orders, col) })
		assert.Equal(t, []string{"ALTER TABLE Orders ADD Discount DECIMAL(5,2) NOT NULL DEFAULT 0"}, cmds)
	})

	t.Run("drop column", func(t *testing.T) {
		cmds := commands(t, dialect.MySQL, func(d *Dumper) error { return d.DropColumn(orders, "Note") })
		assert.Equal(t, []string{"ALTER TABLE Orders DROP COLUMN Note"}, cmds)
	})

	t.Run("rename column sqlserver", func(t *testing.T) {
		cmds := commands(t, dialect.SQLServer, func(d *Dumper) error { return d.RenameColumn(orders, "Note", "Remark") })
		assert.Equal(t, []string{"EXECUTE sp_rename 'Orders.Note', 'Remark', 'COLUMN'"}, cmds)
	})

	t.Run("change column mysql", func(t *testing.T) {
		cmds := commands(t, dialect.MySQL, func(d *Dumper) error { return d.ChangeColumn(orders, oldNote, newNote) })
		assert.Equal(t, []string{"ALTER TABLE Orders CHANGE COLUMN Note Remark VARCHAR(300) NOT NULL"}, cmds)
	})

	t.Run("change column postgres", func(t *testing.T) {
		cmds := commands(t, dialect.Postgres, func(d *Dumper) error { return d.ChangeColumn(orders, oldNote, newNote) })
		assert.Equal(t, []string{
			"ALTER TABLE Orders RENAME COLUMN Note TO Remark",
			"ALTER TABLE Orders ALTER COLUMN Remark TYPE VARCHAR(300)",
			"ALTER TABLE Orders ALTER COLUMN Remark SET NOT NULL",
		}, cmds)
	})

	t.Run("change column sqlserver", func(t *testing.T) {
		cmds := commands(t, dialect.SQLServer, func(d *Dumper) error { return d.ChangeColumn(orders, oldNote, newNote) })
		assert.Equal(t, []string{
			"EXECUTE sp_rename 'Orders.Note', 'Remark', 'COLUMN'",
			"ALTER TABLE Orders ALTER COLUMN Remark VARCHAR(300) NOT NULL",
		}, cmds)
	})

	t.Run("unsupported on sqlite", func(t *testing.T) {
		var s StringStream
		d := New(&s, dialect.SQLite)
		err := d.DropColumn(orders, "Note")

		var unsupported *UnsupportedOperationError
		require.True(t, errors.As(err, &unsupported))
		assert.Equal(t, "drop column", unsupported.Operation)
		assert.Equal(t, err, d.Err())
		assert.Empty(t, s.Commands())
	})
}

func TestConstraintOperations(t *testing.T) {
	orders := fixtureTable("Orders")
	fk := orders.FindForeignKey("FK_Orders_Customer")
	require.NotNil(t, fk)

	cmds := commands(t, dialect.MySQL, func(d *Dumper) error {
		if err := d.DropConstraint(fk); err != nil {
			return err
		}
		return d.DropConstraint(orders.PrimaryKey)
	})
	assert.Equal(t, []string{
		"ALTER TABLE Orders DROP FOREIGN KEY FK_Orders_Customer",
		"ALTER TABLE Orders DROP PRIMARY KEY",
	}, cmds)

	cmds = commands(t, dialect.Postgres, func(d *Dumper) error {
		if err := d.DropConstraint(fk); err != nil {
			return err
		}
		return d.CreateConstraint(fk)
	})
	assert.Equal(t, []string{
		"ALTER TABLE Orders DROP CONSTRAINT FK_Orders_Customer",
		"ALTER TABLE Orders ADD CONSTRAINT FK_Orders_Customer FOREIGN KEY (CustomerId) REFERENCES Customers (Id) ON DELETE CASCADE",
	}, cmds)

	unique := &schema.Unique{Name: "UQ_Orders_Note", Columns: []string{"Note"}, Table: orders}
	cmds = commands(t, dialect.SQLServer, func(d *Dumper) error { return d.CreateConstraint(unique) })
	assert.Equal(t, []string{"ALTER TABLE Orders ADD CONSTRAINT UQ_Orders_Note UNIQUE (Note)"}, cmds)
}

func TestIndexOperations(t *testing.T) {
	customers := fixtureTable("Customers")
	ix := customers.Indexes[0]

	cmds := commands(t, dialect.MySQL, func(d *Dumper) error { return d.DropIndex(ix) })
	assert.Equal(t, []string{"DROP INDEX IX_Customers_Name ON Customers"}, cmds)

	cmds = commands(t, dialect.Postgres, func(d *Dumper) error { return d.DropIndex(ix) })
	assert.Equal(t, []string{"DROP INDEX IX_Customers_Name"}, cmds)

	unique := &schema.Index{Name: "UX_Customers_Name", Columns: []string{"Name", "CountryId"}, Unique: true, Table: customers}
	cmds = commands(t, dialect.SQLite, func(d *Dumper) error { return d.CreateIndex(unique) })
	assert.Equal(t, []string{"CREATE UNIQUE INDEX UX_Customers_Name ON Customers (Name, CountryId)"}, cmds)
}

func TestProgrammables(t *testing.T) {
	old := &schema.Programmable{Kind: schema.KindView, FullName: schema.NewName("", "v"), CreateSQL: "CREATE VIEW v AS SELECT 1;"}
	updated := &schema.Programmable{Kind: schema.KindView, FullName: schema.NewName("", "v"), CreateSQL: "create  view v AS SELECT 2"}

	cmds := commands(t, dialect.SQLServer, func(d *Dumper) error { return d.AlterProgrammable(old, updated) })
	assert.Equal(t, []string{"ALTER  view v AS SELECT 2"}, cmds)

	cmds = commands(t, dialect.Postgres, func(d *Dumper) error { return d.AlterProgrammable(old, updated) })
	assert.Equal(t, []string{"DROP VIEW v", "create  view v AS SELECT 2"}, cmds)

	cmds = commands(t, dialect.SQLite, func(d *Dumper) error { return d.CreateProgrammable(old) })
	assert.Equal(t, []string{"CREATE VIEW v AS SELECT 1"}, cmds)

	cmds = commands(t, dialect.Postgres, func(d *Dumper) error { return d.RenameProgrammable(old, "w") })
	assert.Equal(t, []string{"ALTER VIEW v RENAME TO w"}, cmds)

	cmds = commands(t, dialect.SQLServer, func(d *Dumper) error { return d.RenameProgrammable(old, "w") })
	assert.Equal(t, []string{"EXECUTE sp_rename 'v', 'w'"}, cmds)

	var s StringStream
	err := New(&s, dialect.MySQL).RenameProgrammable(old, "w")
	var unsupported *UnsupportedOperationError
	assert.True(t, errors.As(err, &unsupported))
}

func TestTransactionsAndIdentityInsert(t *testing.T) {
	orders := schema.NewName("", "Orders")
	script := func(d *Dumper) error {
		d.BeginTransaction()
		d.AllowIdentityInsert(orders, true)
		d.AllowIdentityInsert(orders, false)
		d.CommitTransaction()
		return nil
	}

	assert.Equal(t, []string{
		"BEGIN TRANSACTION",
		"SET IDENTITY_INSERT Orders ON",
		"SET IDENTITY_INSERT Orders OFF",
		"COMMIT",
	}, commands(t, dialect.SQLServer, script))

	assert.Equal(t, []string{"START TRANSACTION", "COMMIT"}, commands(t, dialect.MySQL, script))
	assert.Equal(t, []string{"BEGIN TRANSACTION", "COMMIT"}, commands(t, dialect.SQLite, script))
}
