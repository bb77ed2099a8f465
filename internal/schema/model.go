// Package schema holds the read-only table model that filters, the join
// resolver and the SQL dumper operate on.
//
// The model is supplied by an external collaborator (a CUE loader in this
// repository, live introspection elsewhere). Nothing in the query core
// mutates it; DDL generation receives old and new shapes as separate values.
package schema

import (
	"strings"

	"github.com/google/uuid"
)

// FKAction is the referential action of a foreign key.
type FKAction string

const (
	NoAction FKAction = ""
	Cascade  FKAction = "CASCADE"
	Restrict FKAction = "RESTRICT"
	SetNull  FKAction = "SET NULL"
)

// ProgrammableKind enumerates SQL objects defined by a CREATE statement body.
type ProgrammableKind string

const (
	KindView      ProgrammableKind = "VIEW"
	KindProcedure ProgrammableKind = "PROCEDURE"
	KindFunction  ProgrammableKind = "FUNCTION"
	KindTrigger   ProgrammableKind = "TRIGGER"
)

// NewGroupID returns a fresh identity for a table or column.
//
// Group identities survive renames: the recreate algorithm matches old and
// new columns by GroupID, never by name.
func NewGroupID() string {
	return uuid.NewString()
}

// Database is a set of tables and programmable objects.
type Database struct {
	Tables        []*Table
	Programmables []*Programmable
}

// FindTable returns the table with the given name, or nil.
func (db *Database) FindTable(name NameWithSchema) *Table {
	if db == nil {
		return nil
	}
	for _, t := range db.Tables {
		if t.FullName.Matches(name) {
			return t
		}
	}
	return nil
}

// FindProgrammable returns the view/procedure/function/trigger with the given
// kind and name, or nil.
func (db *Database) FindProgrammable(kind ProgrammableKind, name NameWithSchema) *Programmable {
	for _, p := range db.Programmables {
		if p.Kind == kind && p.FullName.Matches(name) {
			return p
		}
	}
	return nil
}

// ReferencesTo returns foreign keys of all tables that point at name.
func (db *Database) ReferencesTo(name NameWithSchema) []*ForeignKey {
	if db == nil {
		return nil
	}
	var refs []*ForeignKey
	for _, t := range db.Tables {
		for _, fk := range t.ForeignKeys {
			if fk.RefTable.Matches(name) {
				refs = append(refs, fk)
			}
		}
	}
	return refs
}

// Link sets owner pointers and assigns identities to tables and columns
// that have none. Call it after building or loading a model.
func (db *Database) Link() {
	for _, t := range db.Tables {
		t.Link()
	}
}

// Table is a table shape.
type Table struct {
	FullName    NameWithSchema
	GroupID     string
	Comment     string
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
	Uniques     []*Unique
	Checks      []*Check
	Indexes     []*Index
}

// Link sets owner pointers of columns and constraints and assigns missing
// group identities.
func (t *Table) Link() {
	if t.GroupID == "" {
		t.GroupID = NewGroupID()
	}
	for _, c := range t.Columns {
		c.Table = t
		if c.GroupID == "" {
			c.GroupID = NewGroupID()
		}
	}
	if t.PrimaryKey != nil {
		t.PrimaryKey.Table = t
	}
	for _, fk := range t.ForeignKeys {
		fk.Table = t
	}
	for _, u := range t.Uniques {
		u.Table = t
	}
	for _, c := range t.Checks {
		c.Table = t
	}
	for _, ix := range t.Indexes {
		ix.Table = t
	}
}

// FindColumn returns the column with the given name (case-insensitive), or nil.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// FindColumnByGroup returns the column with the given identity, or nil.
func (t *Table) FindColumnByGroup(groupID string) *Column {
	if groupID == "" {
		return nil
	}
	for _, c := range t.Columns {
		if c.GroupID == groupID {
			return c
		}
	}
	return nil
}

// FindForeignKey returns the foreign key constraint with the given name
// (case-insensitive), or nil.
func (t *Table) FindForeignKey(name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if fk.Name != "" && strings.EqualFold(fk.Name, name) {
			return fk
		}
	}
	return nil
}

// Constraints returns primary key, foreign keys, uniques and checks, in that
// order.
func (t *Table) Constraints() []Constraint {
	var res []Constraint
	if t.PrimaryKey != nil {
		res = append(res, t.PrimaryKey)
	}
	for _, fk := range t.ForeignKeys {
		res = append(res, fk)
	}
	for _, u := range t.Uniques {
		res = append(res, u)
	}
	for _, c := range t.Checks {
		res = append(res, c)
	}
	return res
}

// Clone returns a deep copy of the table with identities preserved. The
// usual way to describe a new table shape is to clone the old one and edit
// the clone.
func (t *Table) Clone() *Table {
	nt := &Table{
		FullName: t.FullName,
		GroupID:  t.GroupID,
		Comment:  t.Comment,
	}
	for _, c := range t.Columns {
		cc := *c
		nt.Columns = append(nt.Columns, &cc)
	}
	if t.PrimaryKey != nil {
		pk := *t.PrimaryKey
		pk.Columns = append([]string(nil), pk.Columns...)
		nt.PrimaryKey = &pk
	}
	for _, fk := range t.ForeignKeys {
		c := *fk
		c.Columns = append([]string(nil), fk.Columns...)
		c.RefColumns = append([]string(nil), fk.RefColumns...)
		nt.ForeignKeys = append(nt.ForeignKeys, &c)
	}
	for _, u := range t.Uniques {
		c := *u
		c.Columns = append([]string(nil), u.Columns...)
		nt.Uniques = append(nt.Uniques, &c)
	}
	for _, ch := range t.Checks {
		c := *ch
		nt.Checks = append(nt.Checks, &c)
	}
	for _, ix := range t.Indexes {
		c := *ix
		c.Columns = append([]string(nil), ix.Columns...)
		nt.Indexes = append(nt.Indexes, &c)
	}
	nt.Link()
	return nt
}

// Column is a table column.
type Column struct {
	Name          string
	DataType      string
	NotNull       bool
	AutoIncrement bool
	DefaultValue  string // raw SQL expression, empty for none
	Computed      string // raw SQL expression of a computed column
	Persisted     bool
	Sparse        bool
	Comment       string
	GroupID       string
	Table         *Table
}

// ForeignKeys returns the owner table's foreign keys that include this column.
func (c *Column) ForeignKeys() []*ForeignKey {
	if c.Table == nil {
		return nil
	}
	var res []*ForeignKey
	for _, fk := range c.Table.ForeignKeys {
		for _, col := range fk.Columns {
			if strings.EqualFold(col, c.Name) {
				res = append(res, fk)
				break
			}
		}
	}
	return res
}

// SingleForeignKey returns the only single-column foreign key that starts at
// this column, or nil when there is none or more than one.
func (c *Column) SingleForeignKey() *ForeignKey {
	var found *ForeignKey
	for _, fk := range c.ForeignKeys() {
		if len(fk.Columns) != 1 {
			continue
		}
		if found != nil {
			return nil
		}
		found = fk
	}
	return found
}

// Constraint is implemented by all table constraints.
type Constraint interface {
	ConstraintName() string
	OwnerTable() *Table
	constraint()
}

type PrimaryKey struct {
	Name    string
	Columns []string
	Table   *Table
}

type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   NameWithSchema
	RefColumns []string
	OnDelete   FKAction
	OnUpdate   FKAction
	Table      *Table
}

type Unique struct {
	Name    string
	Columns []string
	Table   *Table
}

type Check struct {
	Name       string
	Definition string
	Table      *Table
}

// Index is a non-constraint index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Table   *Table
}

func (c *PrimaryKey) ConstraintName() string { return c.Name }
func (c *PrimaryKey) OwnerTable() *Table     { return c.Table }
func (c *PrimaryKey) constraint()            {}
func (c *ForeignKey) ConstraintName() string { return c.Name }
func (c *ForeignKey) OwnerTable() *Table     { return c.Table }
func (c *ForeignKey) constraint()            {}
func (c *Unique) ConstraintName() string     { return c.Name }
func (c *Unique) OwnerTable() *Table         { return c.Table }
func (c *Unique) constraint()                {}
func (c *Check) ConstraintName() string      { return c.Name }
func (c *Check) OwnerTable() *Table          { return c.Table }
func (c *Check) constraint()                 {}

// Programmable is a view, procedure, function or trigger whose definition
// is kept as its verbatim CREATE statement.
type Programmable struct {
	Kind      ProgrammableKind
	FullName  NameWithSchema
	CreateSQL string
}
