package ast

import (
	"strings"

	"github.com/roach88/condsql/internal/schema"
)

// JoinType is the kind of a relation join.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
	CrossJoin JoinType = "CROSS"
)

// Source is something rows are read from: a table or view, a sub-select, or
// a verbatim sub-query, optionally aliased.
type Source struct {
	Alias        string
	Table        *schema.NameWithSchema
	LinkedServer string
	SubSelect    *Select
	SubQuery     string
}

// TableSource references a table under an optional alias.
func TableSource(name schema.NameWithSchema, alias string) *Source {
	n := name
	return &Source{Alias: alias, Table: &n}
}

// Name returns the name the source is referenced by in SQL: its alias, or
// the bare table name when unaliased.
func (s *Source) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	if s.Table != nil {
		return s.Table.Name
	}
	return ""
}

// Relation is a joined source with its ON conditions.
type Relation struct {
	JoinType   JoinType
	Reference  *Source
	Conditions []Condition
}

// FromItem is a base source plus ordered joins. Relations are only ever
// added, never removed.
type FromItem struct {
	Source    *Source
	Relations []*Relation
}

// NewFromItem creates a FromItem over src.
func NewFromItem(src *Source) *FromItem {
	return &FromItem{Source: src}
}

// FindRelation returns the relation whose joined source has the given alias.
func (f *FromItem) FindRelation(alias string) *Relation {
	for _, r := range f.Relations {
		if r.Reference != nil && strings.EqualFold(r.Reference.Alias, alias) {
			return r
		}
	}
	return nil
}

// ResultField is one selected expression.
type ResultField struct {
	Expr  Expression
	Alias string
}

// SortItem is one ORDER BY entry.
type SortItem struct {
	Expr Expression
	Desc bool
}

// Command is a renderable statement.
type Command interface {
	commandNode()
}

// Select is a SELECT statement.
type Select struct {
	Distinct   bool
	TopRecords int
	SelectAll  bool
	Columns    []ResultField
	From       []*FromItem
	Where      *And
	GroupBy    []Expression
	Having     *And
	OrderBy    []SortItem
}

// NewSelect creates a select over one source.
func NewSelect(src *Source) *Select {
	return &Select{From: []*FromItem{NewFromItem(src)}, Where: &And{}}
}

// AddAndCondition ANDs c into the WHERE clause.
func (s *Select) AddAndCondition(c Condition) {
	if s.Where == nil {
		s.Where = &And{}
	}
	s.Where.Add(c)
}

// SingleFrom returns the only FromItem, or nil when there are none or many.
func (s *Select) SingleFrom() *FromItem {
	if len(s.From) != 1 {
		return nil
	}
	return s.From[0]
}

func (*Select) Tag() string { return TagSelect }

func (s *Select) Children() []Node {
	var nodes []Node
	for _, c := range s.Columns {
		nodes = append(nodes, c.Expr)
	}
	for _, f := range s.From {
		for _, r := range f.Relations {
			nodes = append(nodes, condNodes(r.Conditions)...)
		}
	}
	if s.Where != nil {
		nodes = append(nodes, s.Where)
	}
	for _, g := range s.GroupBy {
		nodes = append(nodes, g)
	}
	if s.Having != nil {
		nodes = append(nodes, s.Having)
	}
	for _, o := range s.OrderBy {
		nodes = append(nodes, o.Expr)
	}
	return nodes
}

// UpdateField assigns Expr to Column.
type UpdateField struct {
	Column string
	Expr   Expression
}

// Update is an UPDATE statement. From lists the target (first) and any joined
// sources; Target names which source is updated.
type Update struct {
	Target *Source
	Fields []UpdateField
	From   []*FromItem
	Where  *And
}

// AddAndCondition ANDs c into the WHERE clause.
func (u *Update) AddAndCondition(c Condition) {
	if u.Where == nil {
		u.Where = &And{}
	}
	u.Where.Add(c)
}

// Delete is a DELETE statement, shaped like Update.
type Delete struct {
	Target *Source
	From   []*FromItem
	Where  *And
}

// AddAndCondition ANDs c into the WHERE clause.
func (d *Delete) AddAndCondition(c Condition) {
	if d.Where == nil {
		d.Where = &And{}
	}
	d.Where.Add(c)
}

// Insert is INSERT INTO table (columns) SELECT ...
type Insert struct {
	Table   schema.NameWithSchema
	Columns []string
	Select  *Select
}

func (*Select) commandNode() {}
func (*Update) commandNode() {}
func (*Delete) commandNode() {}
func (*Insert) commandNode() {}
