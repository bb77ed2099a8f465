package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/sqldump"
	"github.com/roach88/condsql/internal/store"
)

// AlterOptions holds flags for the alter command.
type AlterOptions struct {
	*RootOptions
	Dialect string
	DSN     string
	OneLine bool
}

// NewAlterCommand creates the alter command.
func NewAlterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AlterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "alter <old-schema-dir> <new-schema-dir>",
		Short: "Render or apply the changes between two CUE schemas",
		Long: `Compare two CUE schema directories and render the statements turning
the old shape into the new one. Tables and columns are paired by their
identity (the CUE "id" field), so renames keep data. Changes the dialect
cannot express in place rebuild the table and copy its rows.

With --dsn the statements run in one transaction on the database instead
of being printed; a failing statement rolls everything back.

Examples:
  condsql alter ./v1 ./v2 --dialect postgres
  condsql alter ./v1 ./v2 --dsn file:app.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlter(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect, built-in or defined in either schema (default sqlite)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "apply the changes to this database")
	cmd.Flags().BoolVar(&opts.OneLine, "one-line", false, "render each statement on one line")

	return cmd
}

func runAlter(ctx context.Context, opts *AlterOptions, oldDir, newDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	oldRes, err := loadSchema(f, oldDir)
	if err != nil {
		return err
	}
	newRes, err := loadSchema(f, newDir)
	if err != nil {
		return err
	}
	custom := append(append([]*dialect.Dialect(nil), newRes.Dialects...), oldRes.Dialects...)
	dl, err := resolveDialect(f, opts.Dialect, custom...)
	if err != nil {
		return err
	}

	format := sqldump.WithFormat(sqldump.FormatOptions{OneLine: opts.OneLine})
	alter := func(d *sqldump.Dumper) error {
		return d.AlterDatabase(oldRes.Database, newRes.Database)
	}

	// The reported script and the applied one share temp table names.
	started := time.Now()
	stamp := func() time.Time { return started }

	var out sqldump.StringStream
	d := sqldump.New(&out, dl, sqldump.WithLogger(slog.Default()), format,
		sqldump.WithNamer(&sqldump.TempTableNamer{Stamp: stamp}))
	if err := alter(d); err != nil {
		return f.Fail(ExitFailure, ErrCodeRender, err)
	}
	f.VerboseLog("%d statement(s) for %s", len(out.Commands()), dl.Name)

	if opts.DSN == "" {
		return writeScript(f, dl.Name, &out)
	}
	return applyScript(ctx, f, dl, opts.DSN, &out, alter, format,
		sqldump.WithNamer(&sqldump.TempTableNamer{Stamp: stamp}))
}

// applyScript runs fn against the database at dsn. out holds the same
// statements rendered beforehand and is what gets reported.
func applyScript(ctx context.Context, f *OutputFormatter, dl *dialect.Dialect, dsn string,
	out *sqldump.StringStream, fn func(*sqldump.Dumper) error, opts ...sqldump.Option) error {
	st, err := store.Open(ctx, dl, dsn, store.WithLogger(slog.Default()))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("error closing database", "error", cerr)
		}
	}()

	if err := st.Migrate(ctx, fn, opts...); err != nil {
		return f.Fail(ExitFailure, ErrCodeDatabase, err)
	}

	stmts := nonNil(out.Commands())
	if f.JSON() {
		return f.Success(ScriptResult{Dialect: dl.Name, Statements: stmts, Applied: true})
	}
	_, err = fmt.Fprintf(f.Writer, "✓ Applied %d statement(s)\n", len(stmts))
	return err
}
