// Package store executes rendered SQL on a live database.
//
// An Executor is an sqldump.OutputStream: every command the dumper closes
// is sent to the connection with ExecContext. The first failure is kept and
// later commands are skipped, so a dumper can run to completion and the
// caller checks Err once.
//
// # Drivers
//
// Opening by dialect picks the database/sql driver the dialect names:
//
//   - sqlite:   github.com/mattn/go-sqlite3
//   - postgres: github.com/lib/pq
//   - mysql:    github.com/go-sql-driver/mysql
//
// SQL Server and custom dialects without a linked driver can still render
// scripts but cannot be opened here.
//
// # SQLite configuration
//
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - one open connection, so ":memory:" databases survive between commands
//
// Migrate runs with foreign_keys=OFF on its connection, so tables that other
// tables reference can be rebuilt, and commits only when
// PRAGMA foreign_key_check reports nothing.
package store
