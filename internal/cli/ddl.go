package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/sqldump"
)

// DDLOptions holds flags for the ddl command.
type DDLOptions struct {
	*RootOptions
	Dialect     string
	Table       string
	Transaction bool
	OneLine     bool
}

// ScriptResult is the JSON payload of commands that produce a script.
type ScriptResult struct {
	Dialect    string   `json:"dialect"`
	Statements []string `json:"statements"`
	Applied    bool     `json:"applied,omitempty"`
}

// NewDDLCommand creates the ddl command.
func NewDDLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DDLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ddl <schema-dir>",
		Short: "Render CREATE statements for a CUE schema",
		Long: `Render the tables, indexes and programmable objects of a CUE schema
directory as a script for the chosen dialect. Referenced tables are created
before the tables that reference them.

Examples:
  condsql ddl ./schema
  condsql ddl ./schema --dialect postgres --table sales.Orders
  condsql ddl ./schema --dialect turso --transaction`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect, built-in or defined in the schema (default sqlite)")
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "render a single table")
	cmd.Flags().BoolVar(&opts.Transaction, "transaction", false, "wrap the script in a transaction")
	cmd.Flags().BoolVar(&opts.OneLine, "one-line", false, "render each statement on one line")

	return cmd
}

func runDDL(opts *DDLOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	res, err := loadSchema(f, dir)
	if err != nil {
		return err
	}
	dl, err := resolveDialect(f, opts.Dialect, res.Dialects...)
	if err != nil {
		return err
	}

	var table *schema.Table
	if opts.Table != "" {
		table = res.Database.FindTable(schema.ParseName(opts.Table))
		if table == nil {
			return f.Fail(ExitCommandError, ErrCodeChangeset, fmt.Errorf("unknown table %s", opts.Table))
		}
	}

	var out sqldump.StringStream
	d := sqldump.New(&out, dl,
		sqldump.WithLogger(slog.Default()),
		sqldump.WithFormat(sqldump.FormatOptions{OneLine: opts.OneLine}))
	if opts.Transaction {
		d.BeginTransaction()
	}
	if table != nil {
		err = d.CreateTable(table)
	} else {
		err = d.CreateDatabase(res.Database)
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeRender, err)
	}
	if opts.Transaction {
		d.CommitTransaction()
	}
	if err := d.Err(); err != nil {
		return f.Fail(ExitFailure, ErrCodeRender, err)
	}

	return writeScript(f, dl.Name, &out)
}

func writeScript(f *OutputFormatter, dialectName string, out *sqldump.StringStream) error {
	if f.JSON() {
		return f.Success(ScriptResult{Dialect: dialectName, Statements: nonNil(out.Commands())})
	}
	_, err := fmt.Fprint(f.Writer, out.String())
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
