package sqldump

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/schema"
)

var createProgrammableRe = regexp.MustCompile(`(?i)\bcreate(\s+)(view|procedure|proc|function|trigger)\b`)

// CreateTable emits CREATE TABLE with inline constraints, followed by one
// CREATE INDEX per index.
func (d *Dumper) CreateTable(t *schema.Table) error {
	if d.err != nil {
		return d.err
	}
	if !d.dialect.Caps.CreateTable {
		return d.unsupported("create table", t.FullName.String())
	}
	d.logger.Debug("create table", "table", t.FullName.String())

	d.Put("^create ^table %f (&>", t.FullName)
	first := true
	item := func() {
		if !first {
			d.write(",")
		}
		first = false
		d.Put("&n")
	}
	for _, c := range t.Columns {
		item()
		d.columnDefinition(c, true)
	}
	if pk := t.PrimaryKey; pk != nil && len(pk.Columns) > 0 {
		item()
		d.constraintName(pk.Name, "PK_"+t.FullName.Name)
		d.Put("^primary ^key (%,i)", pk.Columns)
	}
	if d.dialect.Caps.ForeignKeys {
		for _, fk := range t.ForeignKeys {
			item()
			d.constraintName(fk.Name, "")
			d.foreignKeyBody(fk)
		}
	}
	if d.dialect.Caps.Uniques {
		for _, u := range t.Uniques {
			item()
			d.constraintName(u.Name, "")
			d.Put("^unique (%,i)", u.Columns)
		}
	}
	for _, ch := range t.Checks {
		item()
		d.constraintName(ch.Name, "")
		d.Put("^check (%s)", ch.Definition)
	}
	d.Put("&<&n)")
	d.EndCommand()

	if d.dialect.Caps.AddIndex {
		for _, ix := range t.Indexes {
			d.createIndex(t.FullName, ix)
		}
	}
	return d.err
}

// constraintName writes "CONSTRAINT name " when the constraint is named or
// the dialect cannot leave it anonymous.
func (d *Dumper) constraintName(name, fallback string) {
	if name == "" && !d.dialect.Caps.AnonymousPrimaryKey {
		name = fallback
	}
	if name != "" {
		d.Put("^constraint %i ", name)
	}
}

func (d *Dumper) foreignKeyBody(fk *schema.ForeignKey) {
	d.Put("^foreign ^key (%,i) ^references %f", fk.Columns, fk.RefTable)
	if len(fk.RefColumns) > 0 {
		d.Put(" (%,i)", fk.RefColumns)
	}
	if fk.OnDelete != schema.NoAction {
		d.Put(" ^on ^delete %k", string(fk.OnDelete))
	}
	if fk.OnUpdate != schema.NoAction {
		d.Put(" ^on ^update %k", string(fk.OnUpdate))
	}
}

// columnDefinition writes name, type and attributes. withDefault is false
// where the dialect changes defaults separately.
func (d *Dumper) columnDefinition(c *schema.Column, withDefault bool) {
	d.Put("%i", c.Name)
	if c.Computed != "" && d.dialect.Caps.ComputedColumns {
		d.Put(" ^as (%s)", c.Computed)
		if c.Persisted {
			d.Put(" ^persisted")
		}
		return
	}
	d.Put(" %k", c.DataType)
	if c.Sparse && d.dialect.Caps.SparseColumns {
		d.Put(" ^sparse")
	}
	if c.AutoIncrement && d.dialect.Identity != "" {
		d.Put(" " + d.dialect.Identity)
	}
	if c.NotNull {
		d.Put(" ^not ^null")
	} else if !c.AutoIncrement {
		d.Put(" ^null")
	}
	if withDefault && c.DefaultValue != "" {
		d.Put(" ^default %s", c.DefaultValue)
	}
}

// DropTable emits DROP TABLE.
func (d *Dumper) DropTable(name schema.NameWithSchema, ifExists bool) error {
	if !d.dialect.Caps.DropTable {
		return d.unsupported("drop table", name.String())
	}
	if ifExists {
		d.PutCmd("^drop ^table ^if ^exists %f", name)
	} else {
		d.PutCmd("^drop ^table %f", name)
	}
	return d.err
}

// RenameTable renames a table within its schema.
func (d *Dumper) RenameTable(name schema.NameWithSchema, newName string) error {
	if !d.dialect.Caps.RenameTable {
		return d.unsupported("rename table", name.String())
	}
	switch d.dialect.Rename {
	case dialect.RenameStatement:
		d.PutCmd("^rename ^table %f ^to %f", name, schema.NewName(name.Schema, newName))
	case dialect.RenameProcedure:
		d.PutCmd("^execute sp_rename %v, %v", name.String(), newName)
	default:
		d.PutCmd("^alter ^table %f ^rename ^to %i", name, newName)
	}
	return d.err
}

// AddColumn emits ALTER TABLE ... ADD.
func (d *Dumper) AddColumn(table schema.NameWithSchema, c *schema.Column) error {
	if !d.dialect.Caps.AddColumn {
		return d.unsupported("add column", table.String()+"."+c.Name)
	}
	d.Put("^alter ^table %f ^add ", table)
	d.columnDefinition(c, true)
	d.EndCommand()
	return d.err
}

// DropColumn emits ALTER TABLE ... DROP COLUMN.
func (d *Dumper) DropColumn(table schema.NameWithSchema, column string) error {
	if !d.dialect.Caps.DropColumn {
		return d.unsupported("drop column", table.String()+"."+column)
	}
	d.PutCmd("^alter ^table %f ^drop ^column %i", table, column)
	return d.err
}

// RenameColumn renames a column.
func (d *Dumper) RenameColumn(table schema.NameWithSchema, column, newName string) error {
	if !d.dialect.Caps.RenameColumn {
		return d.unsupported("rename column", table.String()+"."+column)
	}
	if d.dialect.Rename == dialect.RenameProcedure {
		d.PutCmd("^execute sp_rename %v, %v, %v", table.String()+"."+column, newName, "COLUMN")
	} else {
		d.PutCmd("^alter ^table %f ^rename ^column %i ^to %i", table, column, newName)
	}
	return d.err
}

// ChangeColumn changes type, nullability, default and name of a column in
// place.
func (d *Dumper) ChangeColumn(table schema.NameWithSchema, old, c *schema.Column) error {
	if !d.dialect.Caps.ChangeColumn {
		return d.unsupported("change column", table.String()+"."+old.Name)
	}
	switch d.dialect.ChangeColumn {
	case dialect.ChangeColumnChange:
		d.Put("^alter ^table %f ^change ^column %i ", table, old.Name)
		d.columnDefinition(c, true)
		d.EndCommand()
		return d.err
	}

	name := old.Name
	if !strings.EqualFold(old.Name, c.Name) {
		if err := d.RenameColumn(table, old.Name, c.Name); err != nil {
			return err
		}
		name = c.Name
	}
	if d.dialect.ChangeColumn == dialect.ChangeColumnAlter {
		// identity cannot be changed in place
		cc := *c
		cc.AutoIncrement = false
		d.Put("^alter ^table %f ^alter ^column ", table)
		d.columnDefinition(&cc, false)
		d.EndCommand()
		return d.err
	}

	// ALTER COLUMN ... TYPE with separate nullability and default clauses
	if !strings.EqualFold(old.DataType, c.DataType) {
		d.PutCmd("^alter ^table %f ^alter ^column %i ^type %k", table, name, c.DataType)
	}
	if old.NotNull != c.NotNull {
		if c.NotNull {
			d.PutCmd("^alter ^table %f ^alter ^column %i ^set ^not ^null", table, name)
		} else {
			d.PutCmd("^alter ^table %f ^alter ^column %i ^drop ^not ^null", table, name)
		}
	}
	if old.DefaultValue != c.DefaultValue {
		if c.DefaultValue == "" {
			d.PutCmd("^alter ^table %f ^alter ^column %i ^drop ^default", table, name)
		} else {
			d.PutCmd("^alter ^table %f ^alter ^column %i ^set ^default %s", table, name, c.DefaultValue)
		}
	}
	return d.err
}

// CreateConstraint adds a constraint to an existing table.
func (d *Dumper) CreateConstraint(c schema.Constraint) error {
	table := c.OwnerTable()
	if table == nil {
		d.fail(fmt.Errorf("constraint %q has no owner table", c.ConstraintName()))
		return d.err
	}
	if !d.dialect.Caps.AddConstraint {
		return d.unsupported("add constraint", c.ConstraintName())
	}
	d.Put("^alter ^table %f ^add ", table.FullName)
	switch x := c.(type) {
	case *schema.PrimaryKey:
		d.constraintName(x.Name, "PK_"+table.FullName.Name)
		d.Put("^primary ^key (%,i)", x.Columns)
	case *schema.ForeignKey:
		d.constraintName(x.Name, "")
		d.foreignKeyBody(x)
	case *schema.Unique:
		d.constraintName(x.Name, "")
		d.Put("^unique (%,i)", x.Columns)
	case *schema.Check:
		d.constraintName(x.Name, "")
		d.Put("^check (%s)", x.Definition)
	default:
		d.fail(fmt.Errorf("unsupported constraint type: %T", c))
		return d.err
	}
	d.EndCommand()
	return d.err
}

// DropConstraint removes a constraint. Dialects with ExplicitDropConstraint
// name the constraint kind.
func (d *Dumper) DropConstraint(c schema.Constraint) error {
	table := c.OwnerTable()
	if table == nil {
		d.fail(fmt.Errorf("constraint %q has no owner table", c.ConstraintName()))
		return d.err
	}
	if !d.dialect.Caps.DropConstraint {
		return d.unsupported("drop constraint", c.ConstraintName())
	}
	if d.dialect.Caps.ExplicitDropConstraint {
		switch c.(type) {
		case *schema.PrimaryKey:
			d.PutCmd("^alter ^table %f ^drop ^primary ^key", table.FullName)
		case *schema.ForeignKey:
			d.PutCmd("^alter ^table %f ^drop ^foreign ^key %i", table.FullName, c.ConstraintName())
		case *schema.Unique:
			d.PutCmd("^alter ^table %f ^drop ^index %i", table.FullName, c.ConstraintName())
		default:
			d.PutCmd("^alter ^table %f ^drop ^check %i", table.FullName, c.ConstraintName())
		}
		return d.err
	}
	name := c.ConstraintName()
	if _, ok := c.(*schema.PrimaryKey); ok && name == "" {
		name = "PK_" + table.FullName.Name
	}
	d.PutCmd("^alter ^table %f ^drop ^constraint %i", table.FullName, name)
	return d.err
}

// CreateIndex emits CREATE [UNIQUE] INDEX.
func (d *Dumper) CreateIndex(ix *schema.Index) error {
	if ix.Table == nil {
		d.fail(fmt.Errorf("index %q has no owner table", ix.Name))
		return d.err
	}
	if !d.dialect.Caps.AddIndex {
		return d.unsupported("create index", ix.Name)
	}
	d.createIndex(ix.Table.FullName, ix)
	return d.err
}

func (d *Dumper) createIndex(table schema.NameWithSchema, ix *schema.Index) {
	if ix.Unique {
		d.PutCmd("^create ^unique ^index %i ^on %f (%,i)", ix.Name, table, ix.Columns)
	} else {
		d.PutCmd("^create ^index %i ^on %f (%,i)", ix.Name, table, ix.Columns)
	}
}

// DropIndex emits DROP INDEX in the dialect's form.
func (d *Dumper) DropIndex(ix *schema.Index) error {
	if ix.Table == nil {
		d.fail(fmt.Errorf("index %q has no owner table", ix.Name))
		return d.err
	}
	if !d.dialect.Caps.DropIndex {
		return d.unsupported("drop index", ix.Name)
	}
	if d.dialect.DropIndex == dialect.DropIndexOnTable {
		d.PutCmd("^drop ^index %i ^on %f", ix.Name, ix.Table.FullName)
	} else {
		d.PutCmd("^drop ^index %f", schema.NewName(ix.Table.FullName.Schema, ix.Name))
	}
	return d.err
}

// CreateProgrammable emits the stored CREATE statement verbatim.
func (d *Dumper) CreateProgrammable(p *schema.Programmable) error {
	d.logger.Debug("create programmable", "kind", string(p.Kind), "name", p.FullName.String())
	d.PutCmd("%s", strings.TrimRight(strings.TrimSpace(p.CreateSQL), ";"))
	return d.err
}

// DropProgrammable emits DROP VIEW/PROCEDURE/FUNCTION/TRIGGER.
func (d *Dumper) DropProgrammable(p *schema.Programmable) error {
	d.PutCmd("^drop %k %f", string(p.Kind), p.FullName)
	return d.err
}

// AlterProgrammable replaces the definition of old with that of p: an
// ALTER statement derived from p's CREATE text when the dialect supports
// it, otherwise drop and create.
func (d *Dumper) AlterProgrammable(old, p *schema.Programmable) error {
	body := strings.TrimRight(strings.TrimSpace(p.CreateSQL), ";")
	if d.dialect.Caps.AlterProgrammable && old.FullName.Matches(p.FullName) {
		if loc := createProgrammableRe.FindStringSubmatchIndex(body); loc != nil {
			altered := body[:loc[0]] + d.dialect.Keyword("alter") + body[loc[2]:]
			d.PutCmd("%s", altered)
			return d.err
		}
	}
	if err := d.DropProgrammable(old); err != nil {
		return err
	}
	return d.CreateProgrammable(p)
}

// RenameProgrammable renames a view, procedure, function or trigger.
func (d *Dumper) RenameProgrammable(p *schema.Programmable, newName string) error {
	if !d.dialect.Caps.RenameProgrammable {
		return d.unsupported("rename "+strings.ToLower(string(p.Kind)), p.FullName.String())
	}
	switch d.dialect.Rename {
	case dialect.RenameProcedure:
		d.PutCmd("^execute sp_rename %v, %v", p.FullName.String(), newName)
	case dialect.RenameStatement:
		d.PutCmd("^rename %k %f ^to %f", string(p.Kind), p.FullName, schema.NewName(p.FullName.Schema, newName))
	default:
		d.PutCmd("^alter %k %f ^rename ^to %i", string(p.Kind), p.FullName, newName)
	}
	return d.err
}

// BeginTransaction opens a transaction.
func (d *Dumper) BeginTransaction() {
	if d.dialect.BeginTransaction != "" {
		d.PutCmd(d.dialect.BeginTransaction)
		return
	}
	d.PutCmd("^begin ^transaction")
}

// CommitTransaction commits the open transaction.
func (d *Dumper) CommitTransaction() {
	d.PutCmd("^commit")
}

// AllowIdentityInsert toggles explicit inserts into identity columns on
// dialects that require it. A no-op elsewhere.
func (d *Dumper) AllowIdentityInsert(table schema.NameWithSchema, allow bool) {
	if !d.dialect.IdentityInsert {
		return
	}
	if allow {
		d.PutCmd("^set ^identity_insert %f ^on", table)
	} else {
		d.PutCmd("^set ^identity_insert %f ^off", table)
	}
}

// Comment writes line comments between commands when the stream supports
// them.
func (d *Dumper) Comment(text string) {
	cw, ok := d.out.(CommentWriter)
	if d.err != nil || !ok {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		cw.WriteComment(line)
	}
}
