package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/filter"
	"github.com/roach88/condsql/internal/sqldump"
)

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Kind    string
	Dialect string
	Column  string
	Eval    []string
	Now     string
}

// FilterResult is the JSON payload of the filter command.
type FilterResult struct {
	Kind    string       `json:"kind"`
	Dialect string       `json:"dialect"`
	SQL     string       `json:"sql"`
	Evals   []EvalResult `json:"evals,omitempty"`
}

// EvalResult reports whether the compiled condition accepts a value.
type EvalResult struct {
	Value string `json:"value"`
	Match bool   `json:"match"`
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter <filter>",
		Short: "Compile filter text into a SQL condition",
		Long: `Compile a user filter into a SQL condition on one column.

Kinds: string, number, datetime, logical. --eval evaluates the condition
against sample values in memory; "NULL" stands for a missing value.

Examples:
  condsql filter "^ab, NOT x"
  condsql filter --kind number --dialect postgres ">5 <10"
  condsql filter --kind datetime --now 2024-03-06T14:30:00Z "THIS WEEK"
  condsql filter --kind number --eval 3 --eval 7 "1-4"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", "string", "filter kind (string|number|datetime|logical)")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect (default sqlite)")
	cmd.Flags().StringVarP(&opts.Column, "column", "c", "Value", "column the condition applies to")
	cmd.Flags().StringArrayVar(&opts.Eval, "eval", nil, "value to evaluate the condition against (repeatable)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "reference time for relative dates (RFC 3339)")

	return cmd
}

func runFilter(opts *FilterOptions, text string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	kind, err := filter.ParseKind(opts.Kind)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeArgument, err)
	}
	dl, err := resolveDialect(f, opts.Dialect)
	if err != nil {
		return err
	}
	fopts, err := filterOptions(f, opts.Now)
	if err != nil {
		return err
	}

	cond, err := filter.Compile(kind, &ast.ColumnRef{Column: opts.Column}, text, fopts...)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeFilter, err)
	}
	sql, err := sqldump.RenderCondition(dl, cond, sqldump.WithLogger(slog.Default()))
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeRender, err)
	}

	result := FilterResult{Kind: kind.String(), Dialect: dl.Name, SQL: sql}
	for _, raw := range opts.Eval {
		v, err := parseEvalValue(kind, raw)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeArgument, err)
		}
		ok, err := ast.EvaluateCondition(cond, ast.ValueNamespace{Value: v})
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeFilter, fmt.Errorf("evaluating %q: %w", raw, err))
		}
		result.Evals = append(result.Evals, EvalResult{Value: raw, Match: ok})
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintln(f.Writer, result.SQL)
	for _, e := range result.Evals {
		mark := "✗"
		if e.Match {
			mark = "✓"
		}
		fmt.Fprintf(f.Writer, "%s %s\n", mark, e.Value)
	}
	return nil
}

var evalTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseEvalValue turns a command-line sample into the value a column of
// kind would hold. Numbers stay strings; the evaluator coerces them.
func parseEvalValue(kind filter.Kind, raw string) (any, error) {
	if strings.EqualFold(raw, "null") {
		return nil, nil
	}
	switch kind {
	case filter.KindLogical:
		switch strings.ToLower(raw) {
		case "true", "yes":
			return true, nil
		case "false", "no":
			return false, nil
		}
		return raw, nil
	case filter.KindDateTime:
	default:
		return raw, nil
	}
	for _, layout := range evalTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("--eval %q is not a date or time", raw)
}
