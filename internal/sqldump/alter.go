package sqldump

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/schema"
)

// IdentityMismatchError is returned when old and new table shapes passed to
// AlterTable or RecreateTable do not share a group identity.
type IdentityMismatchError struct {
	Old, New schema.NameWithSchema
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("tables %s and %s do not share a group identity", e.Old, e.New)
}

type columnChange struct {
	old, new *schema.Column
}

// tableDiff is what AlterTable must do to turn one shape into another.
// Columns are paired by GroupID; constraints and indexes by name.
type tableDiff struct {
	rename      bool
	dropColumns []*schema.Column
	addColumns  []*schema.Column
	renames     []columnChange
	changes     []columnChange

	dropConstraints []schema.Constraint
	addConstraints  []schema.Constraint
	dropIndexes     []*schema.Index
	addIndexes      []*schema.Index
}

func diffTables(oldT, newT *schema.Table) *tableDiff {
	diff := &tableDiff{rename: oldT.FullName.Name != newT.FullName.Name}
	for _, oc := range oldT.Columns {
		if newT.FindColumnByGroup(oc.GroupID) == nil {
			diff.dropColumns = append(diff.dropColumns, oc)
		}
	}
	for _, nc := range newT.Columns {
		oc := oldT.FindColumnByGroup(nc.GroupID)
		switch {
		case oc == nil:
			diff.addColumns = append(diff.addColumns, nc)
		case !sameColumnShape(oc, nc):
			diff.changes = append(diff.changes, columnChange{oc, nc})
		case oc.Name != nc.Name:
			diff.renames = append(diff.renames, columnChange{oc, nc})
		}
	}

	oldCons, newCons := oldT.Constraints(), newT.Constraints()
	for _, oc := range oldCons {
		if !slices.ContainsFunc(newCons, func(nc schema.Constraint) bool { return sameConstraint(oc, nc) }) {
			diff.dropConstraints = append(diff.dropConstraints, oc)
		}
	}
	for _, nc := range newCons {
		if !slices.ContainsFunc(oldCons, func(oc schema.Constraint) bool { return sameConstraint(oc, nc) }) {
			diff.addConstraints = append(diff.addConstraints, nc)
		}
	}
	for _, oi := range oldT.Indexes {
		if !slices.ContainsFunc(newT.Indexes, func(ni *schema.Index) bool { return sameIndex(oi, ni) }) {
			diff.dropIndexes = append(diff.dropIndexes, oi)
		}
	}
	for _, ni := range newT.Indexes {
		if !slices.ContainsFunc(oldT.Indexes, func(oi *schema.Index) bool { return sameIndex(oi, ni) }) {
			diff.addIndexes = append(diff.addIndexes, ni)
		}
	}
	return diff
}

func (diff *tableDiff) empty() bool {
	return !diff.rename && len(diff.dropColumns) == 0 && len(diff.addColumns) == 0 &&
		len(diff.renames) == 0 && len(diff.changes) == 0 &&
		len(diff.dropConstraints) == 0 && len(diff.addConstraints) == 0 &&
		len(diff.dropIndexes) == 0 && len(diff.addIndexes) == 0
}

// blocker returns the first operation the dialect cannot emit directly, or
// "" when the whole diff can be applied in place.
func (d *Dumper) blocker(diff *tableDiff) string {
	caps := d.dialect.Caps
	switch {
	case diff.rename && !caps.RenameTable:
		return "rename table"
	case len(diff.dropColumns) > 0 && !caps.DropColumn:
		return "drop column"
	case len(diff.addColumns) > 0 && !caps.AddColumn:
		return "add column"
	case len(diff.renames) > 0 && !caps.RenameColumn:
		return "rename column"
	case len(diff.changes) > 0 && !caps.ChangeColumn:
		return "change column"
	case len(diff.dropConstraints) > 0 && !caps.DropConstraint:
		return "drop constraint"
	case len(diff.addConstraints) > 0 && !caps.AddConstraint:
		return "add constraint"
	case len(diff.dropIndexes) > 0 && !caps.DropIndex:
		return "drop index"
	case len(diff.addIndexes) > 0 && !caps.AddIndex:
		return "add index"
	}
	for _, ch := range diff.changes {
		if ch.old.AutoIncrement != ch.new.AutoIncrement {
			return "change identity"
		}
	}
	return ""
}

func sameColumnShape(a, b *schema.Column) bool {
	return strings.EqualFold(a.DataType, b.DataType) &&
		a.NotNull == b.NotNull &&
		a.AutoIncrement == b.AutoIncrement &&
		a.DefaultValue == b.DefaultValue &&
		a.Computed == b.Computed &&
		a.Persisted == b.Persisted &&
		a.Sparse == b.Sparse
}

func sameConstraint(a, b schema.Constraint) bool {
	if !strings.EqualFold(a.ConstraintName(), b.ConstraintName()) {
		return false
	}
	switch x := a.(type) {
	case *schema.PrimaryKey:
		y, ok := b.(*schema.PrimaryKey)
		return ok && slices.Equal(x.Columns, y.Columns)
	case *schema.ForeignKey:
		y, ok := b.(*schema.ForeignKey)
		return ok && slices.Equal(x.Columns, y.Columns) && x.RefTable.Matches(y.RefTable) &&
			slices.Equal(x.RefColumns, y.RefColumns) && x.OnDelete == y.OnDelete && x.OnUpdate == y.OnUpdate
	case *schema.Unique:
		y, ok := b.(*schema.Unique)
		return ok && slices.Equal(x.Columns, y.Columns)
	case *schema.Check:
		y, ok := b.(*schema.Check)
		return ok && x.Definition == y.Definition
	}
	return false
}

func sameIndex(a, b *schema.Index) bool {
	return strings.EqualFold(a.Name, b.Name) && a.Unique == b.Unique && slices.Equal(a.Columns, b.Columns)
}

// AlterTable emits the statements turning oldT into newT. When every step
// has a direct form in the dialect they are emitted in place; otherwise the
// table is rebuilt with RecreateTable. db supplies foreign keys of other
// tables that reference the altered one.
func (d *Dumper) AlterTable(db *schema.Database, oldT, newT *schema.Table) error {
	if d.err != nil {
		return d.err
	}
	if oldT.GroupID != newT.GroupID {
		d.fail(&IdentityMismatchError{Old: oldT.FullName, New: newT.FullName})
		return d.err
	}
	diff := diffTables(oldT, newT)
	if diff.empty() {
		return nil
	}
	if op := d.blocker(diff); op != "" {
		if !d.dialect.Caps.RecreateTable {
			return d.unsupported(op, oldT.FullName.String())
		}
		d.logger.Debug("alter needs recreate", "table", oldT.FullName.String(), "operation", op)
		return d.RecreateTable(db, oldT, newT)
	}

	table := oldT.FullName
	for _, c := range diff.dropConstraints {
		d.DropConstraint(c)
	}
	for _, ix := range diff.dropIndexes {
		d.DropIndex(ix)
	}
	for _, c := range diff.dropColumns {
		d.DropColumn(table, c.Name)
	}
	if diff.rename {
		d.RenameTable(table, newT.FullName.Name)
		table = schema.NewName(table.Schema, newT.FullName.Name)
	}
	for _, ch := range diff.renames {
		d.RenameColumn(table, ch.old.Name, ch.new.Name)
	}
	for _, ch := range diff.changes {
		d.ChangeColumn(table, ch.old, ch.new)
	}
	for _, c := range diff.addColumns {
		d.AddColumn(table, c)
	}
	for _, c := range diff.addConstraints {
		d.CreateConstraint(c)
	}
	for _, ix := range diff.addIndexes {
		d.CreateIndex(ix)
	}
	return d.err
}

// RecreateTable rebuilds a table in the shape of newT and copies the rows
// over:
//
//  1. drop foreign keys referencing the table and its own constraints and
//     indexes (where the dialect can)
//  2. rename the table to a temporary name; on engines whose rename would
//     retarget references that could not be dropped, the rename is wrapped
//     in the dialect's KeepReferences statements
//  3. create the new shape
//  4. copy rows, pairing columns by GroupID; new columns get their default
//     or NULL
//  5. restore the dropped references and drop the temporary table
//
// Identity inserts are switched on around the copy where required.
func (d *Dumper) RecreateTable(db *schema.Database, oldT, newT *schema.Table) error {
	if d.err != nil {
		return d.err
	}
	if oldT.GroupID != newT.GroupID {
		d.fail(&IdentityMismatchError{Old: oldT.FullName, New: newT.FullName})
		return d.err
	}
	caps := d.dialect.Caps
	if !caps.RecreateTable || !caps.RenameTable || !caps.CreateTable || !caps.DropTable {
		return d.unsupported("recreate table", oldT.FullName.String())
	}

	var refs []*schema.ForeignKey
	for _, fk := range db.ReferencesTo(oldT.FullName) {
		if fk.Table != nil && !fk.Table.FullName.Matches(oldT.FullName) {
			refs = append(refs, fk)
		}
	}
	keep := caps.RenameRewritesReferences && !caps.DropConstraint && len(refs) > 0
	if keep && d.dialect.KeepReferences[0] == "" {
		return d.unsupported("recreate referenced table", oldT.FullName.String())
	}

	tempName := d.namer.NextName()
	temp := schema.NewName(oldT.FullName.Schema, tempName)
	d.logger.Debug("recreate table", "table", oldT.FullName.String(), "temp", temp.String(), "references", len(refs))

	if caps.DropConstraint {
		for _, fk := range refs {
			d.DropConstraint(fk)
		}
		for _, c := range oldT.Constraints() {
			d.DropConstraint(c)
		}
	}
	if caps.DropIndex {
		for _, ix := range oldT.Indexes {
			d.DropIndex(ix)
		}
	}

	if keep {
		d.PutCmd(d.dialect.KeepReferences[0])
	}
	d.RenameTable(oldT.FullName, tempName)
	if keep && d.dialect.KeepReferences[1] != "" {
		d.PutCmd(d.dialect.KeepReferences[1])
	}
	d.CreateTable(newT)

	var columns []string
	copySel := ast.NewSelect(ast.TableSource(temp, ""))
	identity := false
	for _, nc := range newT.Columns {
		if nc.Computed != "" {
			continue
		}
		var expr ast.Expression
		switch oc := oldT.FindColumnByGroup(nc.GroupID); {
		case oc != nil && oc.Computed == "":
			expr = ast.Col(nil, oc.Name)
			identity = identity || nc.AutoIncrement
		case nc.DefaultValue != "":
			expr = &ast.RawValue{SQL: nc.DefaultValue}
		case nc.AutoIncrement:
			continue
		default:
			expr = ast.Lit(nil)
		}
		columns = append(columns, nc.Name)
		copySel.Columns = append(copySel.Columns, ast.ResultField{Expr: expr})
	}

	if identity {
		d.AllowIdentityInsert(newT.FullName, true)
	}
	if len(columns) > 0 {
		d.Insert(&ast.Insert{Table: newT.FullName, Columns: columns, Select: copySel})
		d.EndCommand()
	}
	if identity {
		d.AllowIdentityInsert(newT.FullName, false)
	}

	if caps.DropConstraint && caps.AddConstraint {
		for _, fk := range refs {
			d.CreateConstraint(fk)
		}
	}
	d.DropTable(temp, false)
	return d.err
}
