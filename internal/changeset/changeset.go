// Package changeset builds the condition prefix of a change: the SELECT,
// UPDATE or DELETE that addresses the rows of one table through conditions
// that may reach related tables along foreign keys.
//
// The target table is always aliased as "basetbl". Each condition names a
// dotted column path relative to it ("CustomerId.CountryId.Name") and a
// filter string. Paths become LEFT joins through ast.FromItem.ResolvePath;
// the filter grammar is picked from the resolved column's data type.
package changeset

import (
	"fmt"
	"strings"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/filter"
	"github.com/roach88/condsql/internal/schema"
)

// BaseAlias is the alias of the target table in every built command.
const BaseAlias = "basetbl"

// Condition is one "path = filter" entry.
type Condition struct {
	Path   string `yaml:"path" json:"path"`
	Filter string `yaml:"filter" json:"filter"`
}

// ParseCondition splits "path=filter" at the first "=". The filter keeps
// any further operator, so "Amount=>5" is the path Amount with filter ">5"
// and "Name==x" compares for equality.
func ParseCondition(s string) (Condition, error) {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return Condition{}, fmt.Errorf("condition %q: expected path=filter", s)
	}
	c := Condition{Path: strings.TrimSpace(s[:i]), Filter: strings.TrimSpace(s[i+1:])}
	if c.Path == "" {
		return Condition{}, fmt.Errorf("condition %q: empty path", s)
	}
	if c.Filter == "" {
		return Condition{}, fmt.Errorf("condition %q: empty filter", s)
	}
	return c, nil
}

// Item addresses rows of Table matching all Conditions.
type Item struct {
	Table      schema.NameWithSchema
	Conditions []Condition
}

// UnknownTableError reports an item whose table is not in the schema.
type UnknownTableError struct {
	Table schema.NameWithSchema
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %s", e.Table)
}

// ConditionError wraps a failure to resolve or compile one condition.
type ConditionError struct {
	Condition Condition
	Err       error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %s=%s: %v", e.Condition.Path, e.Condition.Filter, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// Builder turns items into commands over one schema.
type Builder struct {
	db   *schema.Database
	opts []filter.Option
}

// NewBuilder creates a builder. opts are passed to every filter compile,
// typically filter.WithNow.
func NewBuilder(db *schema.Database, opts ...filter.Option) *Builder {
	return &Builder{db: db, opts: opts}
}

// Prefix is the resolved part shared by all command shapes.
type Prefix struct {
	Table  *schema.Table
	Source *ast.Source
	From   *ast.FromItem
	Where  *ast.And
}

// Prefix resolves item into its target source, joins and WHERE conditions.
func (b *Builder) Prefix(item Item) (*Prefix, error) {
	table := b.db.FindTable(item.Table)
	if table == nil {
		return nil, &UnknownTableError{Table: item.Table}
	}
	src := ast.TableSource(table.FullName, BaseAlias)
	p := &Prefix{Table: table, Source: src, From: ast.NewFromItem(src), Where: &ast.And{}}
	for _, c := range item.Conditions {
		cond, err := b.condition(p, c)
		if err != nil {
			return nil, &ConditionError{Condition: c, Err: err}
		}
		p.Where.Add(cond)
	}
	return p, nil
}

func (b *Builder) condition(p *Prefix, c Condition) (ast.Condition, error) {
	ref, col, err := p.From.ResolveColumn(b.db, p.Table, p.Source, schema.ParseIdentifier(c.Path))
	if err != nil {
		return nil, err
	}
	return filter.Compile(filter.KindForDataType(col.DataType), ref, c.Filter, b.opts...)
}

// Column resolves a column path against the prefix, adding joins as needed.
func (p *Prefix) Column(db *schema.Database, path string) (*ast.ColumnRef, error) {
	ref, _, err := p.From.ResolveColumn(db, p.Table, p.Source, schema.ParseIdentifier(path))
	return ref, err
}

// Select builds a SELECT of the given column paths; none selects *.
func (b *Builder) Select(item Item, columns ...string) (*ast.Select, error) {
	p, err := b.Prefix(item)
	if err != nil {
		return nil, err
	}
	sel := &ast.Select{From: []*ast.FromItem{p.From}, Where: p.Where}
	for _, path := range columns {
		ref, err := p.Column(b.db, path)
		if err != nil {
			return nil, err
		}
		sel.Columns = append(sel.Columns, ast.ResultField{Expr: ref})
	}
	return sel, nil
}

// Update builds an UPDATE of the target table. Field columns belong to the
// target; related tables are only read.
func (b *Builder) Update(item Item, fields ...ast.UpdateField) (*ast.Update, error) {
	p, err := b.Prefix(item)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("update %s: no fields", p.Table.FullName)
	}
	for _, f := range fields {
		if p.Table.FindColumn(f.Column) == nil {
			return nil, &ast.UnresolvedReferenceError{Table: p.Table.FullName, Path: f.Column, Segment: f.Column}
		}
	}
	return &ast.Update{Target: p.Source, Fields: fields, From: []*ast.FromItem{p.From}, Where: p.Where}, nil
}

// Delete builds a DELETE of the target table.
func (b *Builder) Delete(item Item) (*ast.Delete, error) {
	p, err := b.Prefix(item)
	if err != nil {
		return nil, err
	}
	return &ast.Delete{Target: p.Source, From: []*ast.FromItem{p.From}, Where: p.Where}, nil
}

// Exists builds an [NOT] EXISTS condition over the item's rows, for use in
// another command.
func (b *Builder) Exists(item Item, not bool) (*ast.Exists, error) {
	sel, err := b.Select(item)
	if err != nil {
		return nil, err
	}
	sel.Columns = []ast.ResultField{{Expr: ast.Lit(1)}}
	return &ast.Exists{Select: sel, Not: not}, nil
}
