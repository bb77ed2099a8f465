package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/condsql/internal/changeset"
	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/sqldump"
	"github.com/roach88/condsql/internal/store"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	Table   string
	Where   []string
	Columns []string
	Dialect string
	Now     string
	DSN     string
}

// SelectResult is the JSON payload of the select command.
type SelectResult struct {
	Dialect string           `json:"dialect"`
	SQL     string           `json:"sql"`
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select <schema-dir>",
		Short: "Build a SELECT from path=filter conditions",
		Long: `Build a SELECT over one table of a CUE schema. Each --where is a
"path=filter" pair: the path walks single-column foreign keys
(CustomerId.CountryId.Name) and the filter grammar follows the column type.
Conditions are ANDed.

With --dsn the query runs and its rows are printed.

Examples:
  condsql select ./schema --table Orders --where "Amount=>100"
  condsql select ./schema --table Orders --where "CustomerId.Name=^A" --column Id --column Amount
  condsql select ./schema --table Orders --where "Note=EMPTY" --dsn file:app.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "table to select from (required)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, `condition "path=filter" (repeatable)`)
	cmd.Flags().StringArrayVar(&opts.Columns, "column", nil, "column path to select (repeatable, default *)")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect, built-in or defined in the schema (default sqlite)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "reference time for relative dates (RFC 3339)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "run the query against this database")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runSelect(ctx context.Context, opts *SelectOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	res, err := loadSchema(f, dir)
	if err != nil {
		return err
	}
	dl, err := resolveDialect(f, opts.Dialect, res.Dialects...)
	if err != nil {
		return err
	}
	fopts, err := filterOptions(f, opts.Now)
	if err != nil {
		return err
	}

	item := changeset.Item{Table: schema.ParseName(opts.Table)}
	for _, w := range opts.Where {
		c, err := changeset.ParseCondition(w)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeArgument, err)
		}
		item.Conditions = append(item.Conditions, c)
	}

	sel, err := changeset.NewBuilder(res.Database, fopts...).Select(item, opts.Columns...)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeChangeset, err)
	}
	query, err := sqldump.RenderCommand(dl, sel,
		sqldump.WithLogger(slog.Default()),
		sqldump.WithFormat(sqldump.FormatOptions{OneLine: true}))
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeRender, err)
	}

	result := SelectResult{Dialect: dl.Name, SQL: query}
	if opts.DSN != "" {
		st, err := store.Open(ctx, dl, opts.DSN, store.WithLogger(slog.Default()))
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				slog.Error("error closing database", "error", cerr)
			}
		}()
		result.Columns, result.Rows, err = queryRows(ctx, st, query)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeDatabase, err)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintln(f.Writer, result.SQL)
	if opts.DSN != "" {
		return printRows(f, result)
	}
	return nil
}

func queryRows(ctx context.Context, st *store.Store, query string) ([]string, []map[string]any, error) {
	rows, err := st.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func printRows(f *OutputFormatter, r SelectResult) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			if row[c] == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(row[c])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(tw, "(%d row(s))\n", len(r.Rows))
	return tw.Flush()
}
