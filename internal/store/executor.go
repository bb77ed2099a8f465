package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/condsql/internal/sqldump"
)

var _ sqldump.OutputStream = (*Executor)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecError is a command the database rejected.
type ExecError struct {
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.SQL, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor runs each finished command on a connection or transaction.
type Executor struct {
	ctx      context.Context
	conn     execer
	logger   *slog.Logger
	buf      strings.Builder
	executed int
	err      error
}

func newExecutor(ctx context.Context, conn execer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{ctx: ctx, conn: conn, logger: logger}
}

func (e *Executor) WriteRaw(s string) {
	if e.err != nil {
		return
	}
	e.buf.WriteString(s)
}

// EndCommand executes the buffered command. Empty commands are skipped.
func (e *Executor) EndCommand() {
	query := strings.TrimSpace(e.buf.String())
	e.buf.Reset()
	if e.err != nil || query == "" {
		return
	}

	if err := e.ctx.Err(); err != nil {
		e.err = err
		return
	}
	if _, err := e.conn.ExecContext(e.ctx, query); err != nil {
		e.err = &ExecError{SQL: query, Err: err}
		e.logger.Error("command failed", "sql", query, "error", err)
		return
	}
	e.executed++
	e.logger.Debug("executed", "sql", query)
}

// Err returns the first failure, or nil.
func (e *Executor) Err() error { return e.err }

// Executed returns the number of commands that succeeded.
func (e *Executor) Executed() int { return e.executed }
