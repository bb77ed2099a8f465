package harness

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/changeset"
	"github.com/roach88/condsql/internal/compiler"
	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/filter"
	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/sqldump"
)

// DefaultColumn is the column filter cases apply to when none is named.
const DefaultColumn = "Value"

// salesSchema is the schema of scenarios that do not name one:
// Countries, Customers and Orders linked by foreign keys.
//
//go:embed sales.cue
var salesSchema string

// Runner executes scenarios.
type Runner struct {
	logger      *slog.Logger
	concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithConcurrency limits how many scenarios RunAll executes at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = n }
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: slog.Default(), concurrency: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// scenarioEnv is everything a scenario's cases share.
type scenarioEnv struct {
	dialect *dialect.Dialect
	db      *schema.Database
	opts    []filter.Option
}

// Run executes a scenario. Failed expectations are recorded in the result;
// the error is reserved for scenarios that cannot run at all (unknown
// dialect, broken schema, canceled context).
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	env, err := r.prepare(sc)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("running scenario", "name", sc.Name, "dialect", env.dialect.Name,
		"filters", len(sc.Filters), "commands", len(sc.Commands))

	result := NewResult(sc.Name)
	result.AddLine(fmt.Sprintf("# %s (%s)", sc.Name, env.dialect.Name))

	for i, c := range sc.Filters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.runFilter(result, env, fmt.Sprintf("filters[%d]", i), c)
	}

	builder := changeset.NewBuilder(env.db, env.opts...)
	for i, c := range sc.Commands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.runCommand(result, env, builder, fmt.Sprintf("commands[%d]", i), c)
	}

	if !result.Pass {
		r.logger.Info("scenario failed", "name", sc.Name, "errors", len(result.Errors))
	}
	return result, nil
}

// RunAll executes scenarios concurrently. Results keep the input order.
// The first scenario that cannot run cancels the rest.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := r.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) prepare(sc *Scenario) (*scenarioEnv, error) {
	now := DefaultNow
	if sc.Now != "" {
		t, err := time.Parse(time.RFC3339, sc.Now)
		if err != nil {
			return nil, fmt.Errorf("now: %w", err)
		}
		now = t
	}
	env := &scenarioEnv{opts: []filter.Option{filter.WithNow(func() time.Time { return now })}}

	name := sc.Dialect
	if name == "" {
		name = dialect.SQLiteName
	}

	var res *compiler.Result
	var err error
	if sc.Schema != "" {
		res, err = compiler.LoadDir(sc.Schema)
	} else {
		res, err = compiler.CompileString(salesSchema, "sales.cue")
	}
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(res.Database); len(errs) > 0 {
		return nil, fmt.Errorf("schema %s: %w", sc.Schema, errs[0])
	}
	env.db = res.Database

	for _, d := range res.Dialects {
		if strings.EqualFold(d.Name, name) {
			env.dialect = d
		}
	}
	if env.dialect == nil {
		d, err := dialect.Lookup(name)
		if err != nil {
			return nil, err
		}
		env.dialect = d
	}
	return env, nil
}

func (r *Runner) runFilter(result *Result, env *scenarioEnv, label string, c FilterCase) {
	kind := filter.KindString
	if c.Kind != "" {
		k, err := filter.ParseKind(c.Kind)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: %v", label, err))
			return
		}
		kind = k
	}
	column := c.Column
	if column == "" {
		column = DefaultColumn
	}
	result.AddLine(fmt.Sprintf("filter %s %s: %s", kind, column, c.Filter))

	cond, err := filter.Compile(kind, &ast.ColumnRef{Column: column}, c.Filter, env.opts...)
	if err == nil {
		var sql string
		sql, err = sqldump.RenderCondition(env.dialect, cond, sqldump.WithLogger(r.logger))
		if err == nil {
			result.AddLine("  " + sql)
			checkSQL(result, label, c.SQL, c.Error, sql)
			checkValues(result, label, cond, c.Matches, true)
			checkValues(result, label, cond, c.Rejects, false)
			return
		}
	}
	result.AddLine("  error: " + err.Error())
	checkError(result, label, c.Error, err)
}

func (r *Runner) runCommand(result *Result, env *scenarioEnv, b *changeset.Builder, label string, c CommandCase) {
	line := c.Op + " " + c.Table
	if len(c.Where) > 0 {
		line += ": " + strings.Join(c.Where, "; ")
	}
	result.AddLine(line)

	sql, err := r.renderCommand(env, b, c)
	if err != nil {
		result.AddLine("  error: " + err.Error())
		checkError(result, label, c.Error, err)
		return
	}
	result.AddLine("  " + sql)
	checkSQL(result, label, c.SQL, c.Error, sql)
}

func (r *Runner) renderCommand(env *scenarioEnv, b *changeset.Builder, c CommandCase) (string, error) {
	item := changeset.Item{Table: schema.ParseName(c.Table)}
	for _, w := range c.Where {
		cond, err := changeset.ParseCondition(w)
		if err != nil {
			return "", err
		}
		item.Conditions = append(item.Conditions, cond)
	}

	opts := []sqldump.Option{
		sqldump.WithLogger(r.logger),
		sqldump.WithFormat(sqldump.FormatOptions{OneLine: true}),
	}

	var cmd ast.Command
	switch c.Op {
	case OpSelect:
		sel, err := b.Select(item, c.Columns...)
		if err != nil {
			return "", err
		}
		cmd = sel
	case OpUpdate:
		var fields []ast.UpdateField
		for _, s := range c.Set {
			col, val, ok := strings.Cut(s, "=")
			if !ok {
				return "", fmt.Errorf("set %q: missing '='", s)
			}
			fields = append(fields, ast.UpdateField{
				Column: strings.TrimSpace(col),
				Expr:   &ast.StringLit{Value: strings.TrimSpace(val)},
			})
		}
		upd, err := b.Update(item, fields...)
		if err != nil {
			return "", err
		}
		cmd = upd
	case OpDelete:
		del, err := b.Delete(item)
		if err != nil {
			return "", err
		}
		cmd = del
	case OpExists, OpNotExists:
		ex, err := b.Exists(item, c.Op == OpNotExists)
		if err != nil {
			return "", err
		}
		return sqldump.RenderCondition(env.dialect, ex, opts...)
	default:
		return "", fmt.Errorf("unknown op %q", c.Op)
	}
	return sqldump.RenderCommand(env.dialect, cmd, opts...)
}
