package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/sqldump"
)

// Store is a database connection paired with the dialect used to render
// SQL for it.
type Store struct {
	db      *sql.DB
	dialect *dialect.Dialect
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger executed commands are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects to dsn with the driver of dl and verifies the connection.
//
// For SQLite the connection pool is limited to one connection and the
// pragmas listed in the package documentation are applied.
func Open(ctx context.Context, dl *dialect.Dialect, dsn string, opts ...Option) (*Store, error) {
	if dl.DriverName == "" {
		return nil, fmt.Errorf("dialect %s has no database driver", dl.Name)
	}
	db, err := sql.Open(dl.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dl.DriverName == "sqlite3" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return OpenDB(db, dl, opts...), nil
}

// OpenDB wraps an existing connection.
func OpenDB(db *sql.DB, dl *dialect.Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dl, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the dialect the store renders with.
func (s *Store) Dialect() *dialect.Dialect {
	return s.dialect
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Executor returns an executor that runs commands outside a transaction.
func (s *Store) Executor(ctx context.Context) *Executor {
	return newExecutor(ctx, s.db, s.logger)
}

// Apply renders fn into a transaction and commits it when every command
// succeeded. The dumper passed to fn writes straight to the transaction.
//
// Foreign keys are enforced as configured, so deletes cascade. Schema
// changes that recreate referenced tables belong in Migrate.
func (s *Store) Apply(ctx context.Context, fn func(d *sqldump.Dumper) error, opts ...sqldump.Option) error {
	return s.apply(ctx, s.db, fn, nil, opts...)
}

// Migrate is Apply for schema changes. On SQLite, foreign key enforcement is
// off while the transaction runs, so recreating a table leaves the rows of
// tables referencing it alone, and PRAGMA foreign_key_check must come back
// empty before the transaction commits.
func (s *Store) Migrate(ctx context.Context, fn func(d *sqldump.Dumper) error, opts ...sqldump.Option) error {
	if s.dialect.DriverName != "sqlite3" {
		return s.apply(ctx, s.db, fn, nil, opts...)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// A no-op inside a transaction, so it is switched before BEGIN.
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); err != nil {
			s.logger.Warn("enable foreign keys failed", "error", err)
		}
	}()

	return s.apply(ctx, conn, fn, checkForeignKeys, opts...)
}

type txStarter interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (s *Store) apply(ctx context.Context, conn txStarter, fn func(d *sqldump.Dumper) error,
	check func(ctx context.Context, tx *sql.Tx) error, opts ...sqldump.Option) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	ex := newExecutor(ctx, tx, s.logger)
	opts = append([]sqldump.Option{sqldump.WithLogger(s.logger)}, opts...)
	d := sqldump.New(ex, s.dialect, opts...)

	err = fn(d)
	if ex.Err() != nil {
		err = ex.Err()
	}
	if err == nil && check != nil {
		err = check(ctx, tx)
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Debug("transaction committed", "commands", ex.Executed())
	return nil
}

// ForeignKeyError reports a row whose reference has no parent after a
// migration.
type ForeignKeyError struct {
	Table  string
	RowID  int64
	Parent string
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("foreign key check: %s row %d references a missing %s row", e.Table, e.RowID, e.Parent)
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var (
			table, parent string
			rowID         sql.NullInt64
			fkID          int
		)
		if err := rows.Scan(&table, &rowID, &parent, &fkID); err != nil {
			return fmt.Errorf("foreign key check: %w", err)
		}
		return &ForeignKeyError{Table: table, RowID: rowID.Int64, Parent: parent}
	}
	return rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
