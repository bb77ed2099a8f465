package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/changeset"
	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/sqldump"
	"github.com/roach88/condsql/internal/testutil"
)

var oneLine = sqldump.WithFormat(sqldump.FormatOptions{OneLine: true})

func newMock(t *testing.T, dl *dialect.Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(db, dl, WithLogger(discardLogger())), mock
}

func expectExec(mock sqlmock.Sqlmock, query string) {
	mock.ExpectExec(regexp.QuoteMeta(query)).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestApply_PostgresAlter(t *testing.T) {
	s, mock := newMock(t, dialect.Postgres)

	db := testutil.Fixture()
	old := db.FindTable(schema.NewName("", "Orders"))
	nt := old.Clone()
	nt.FindColumn("Note").Name = "Remark"
	nt.Columns = append(nt.Columns, &schema.Column{Name: "Discount", DataType: "int", GroupID: "orders.discount", Table: nt})

	mock.ExpectBegin()
	expectExec(mock, "ALTER TABLE Orders RENAME COLUMN Note TO Remark")
	expectExec(mock, "ALTER TABLE Orders ADD Discount INT NULL")
	mock.ExpectCommit()

	err := s.Apply(context.Background(), func(d *sqldump.Dumper) error {
		return d.AlterTable(db, old, nt)
	}, oneLine)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_MySQLDeleteFrom(t *testing.T) {
	s, mock := newMock(t, dialect.MySQL)
	db := testutil.Fixture()

	del, err := changeset.NewBuilder(db).Delete(changeset.Item{
		Table:      schema.NewName("", "Orders"),
		Conditions: []changeset.Condition{{Path: "CustomerId.Name", Filter: "=Acme"}},
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	expectExec(mock, "DELETE basetbl FROM Orders basetbl "+
		"LEFT JOIN Customers _REF_CustomerId ON basetbl.CustomerId = _REF_CustomerId.Id "+
		"WHERE _REF_CustomerId.Name = 'Acme'")
	mock.ExpectCommit()

	err = s.Apply(context.Background(), func(d *sqldump.Dumper) error {
		if err := d.Delete(del); err != nil {
			return err
		}
		d.EndCommand()
		return d.Err()
	}, oneLine)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RollsBackOnDriverError(t *testing.T) {
	s, mock := newMock(t, dialect.MySQL)
	boom := errors.New("lock wait timeout")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE Orders")).WillReturnError(boom)
	mock.ExpectRollback()

	err := s.Apply(context.Background(), func(d *sqldump.Dumper) error {
		if err := d.DropTable(schema.NewName("", "Orders"), false); err != nil {
			return err
		}
		return d.DropTable(schema.NewName("", "Customers"), false)
	}, oneLine)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RollsBackOnRenderError(t *testing.T) {
	s, mock := newMock(t, dialect.MySQL)
	db := testutil.Fixture()

	upd, err := changeset.NewBuilder(db).Update(
		changeset.Item{
			Table:      schema.NewName("", "Orders"),
			Conditions: []changeset.Condition{{Path: "CustomerId.Name", Filter: "=Acme"}},
		},
		ast.UpdateField{Column: "Note", Expr: &ast.StringLit{Value: "x"}},
	)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = s.Apply(context.Background(), func(d *sqldump.Dumper) error {
		return d.Update(upd)
	})
	var unsupported *sqldump.UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor(t *testing.T) {
	s, mock := newMock(t, dialect.Postgres)
	ex := s.Executor(context.Background())

	ex.WriteRaw("  \n")
	ex.EndCommand()

	expectExec(mock, "DELETE FROM Orders WHERE Amount IS NULL")
	ex.WriteRaw("DELETE FROM Orders\n")
	ex.WriteRaw("WHERE Amount IS NULL")
	ex.EndCommand()

	require.NoError(t, ex.Err())
	assert.Equal(t, 1, ex.Executed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_StopsAfterFailure(t *testing.T) {
	s, mock := newMock(t, dialect.Postgres)
	ex := s.Executor(context.Background())

	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE a")).WillReturnError(errors.New("no such table"))
	ex.WriteRaw("DROP TABLE a")
	ex.EndCommand()
	ex.WriteRaw("DROP TABLE b")
	ex.EndCommand()

	var execErr *ExecError
	require.ErrorAs(t, ex.Err(), &execErr)
	assert.True(t, strings.HasPrefix(execErr.Error(), `executing "DROP TABLE a"`))
	assert.Zero(t, ex.Executed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_CanceledContext(t *testing.T) {
	s, mock := newMock(t, dialect.Postgres)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := s.Executor(ctx)
	ex.WriteRaw("DROP TABLE a")
	ex.EndCommand()

	assert.ErrorIs(t, ex.Err(), context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
