package ast

import (
	"fmt"

	"github.com/roach88/condsql/internal/schema"
)

// refAliasPrefix starts every synthesized join alias.
const refAliasPrefix = "_REF"

// UnresolvedReferenceError reports a relationship path segment that names
// neither a foreign key nor a column with a single outgoing foreign key.
type UnresolvedReferenceError struct {
	Table   schema.NameWithSchema
	Path    string
	Segment string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("cannot resolve %q in path %q from table %s", e.Segment, e.Path, e.Table)
}

// ResolvePath walks a dotted relationship path from base (a source reading
// table) and returns the source the path ends at together with its table.
//
// Each segment is looked up as a foreign key constraint name on the current
// table, then as a column carrying exactly one single-column foreign key.
// Every step adds a LEFT join aliased by the consumed prefix of the path, or
// reuses the join already registered under that alias. An empty path
// returns base and table unchanged. On failure nothing is added for the
// failing segment and ok is false.
func (f *FromItem) ResolvePath(db *schema.Database, table *schema.Table, base *Source, path schema.Identifier) (*Source, *schema.Table, bool) {
	src, cur := base, table
	alias := refAliasPrefix
	for _, seg := range path.Items() {
		fk := cur.FindForeignKey(seg)
		if fk == nil {
			if col := cur.FindColumn(seg); col != nil {
				fk = col.SingleForeignKey()
			}
		}
		if fk == nil {
			return nil, nil, false
		}
		ref := db.FindTable(fk.RefTable)
		if ref == nil {
			return nil, nil, false
		}

		alias += "_" + seg
		rel := f.FindRelation(alias)
		if rel == nil {
			refCols := fk.RefColumns
			if len(refCols) == 0 && ref.PrimaryKey != nil {
				refCols = ref.PrimaryKey.Columns
			}
			if len(refCols) != len(fk.Columns) {
				return nil, nil, false
			}
			joined := TableSource(ref.FullName, alias)
			rel = &Relation{JoinType: LeftJoin, Reference: joined}
			for i, col := range fk.Columns {
				rel.Conditions = append(rel.Conditions, Cmp(Col(src, col), OpEq, Col(joined, refCols[i])))
			}
			f.Relations = append(f.Relations, rel)
		}
		src, cur = rel.Reference, ref
	}
	return src, cur, true
}

// ResolveColumn resolves a column path ("Customer.Country.Name") to a column
// reference. All segments but the last form the relationship path; the last
// names the column on the table the path ends at.
func (f *FromItem) ResolveColumn(db *schema.Database, table *schema.Table, base *Source, columnPath schema.Identifier) (*ColumnRef, *schema.Column, error) {
	if columnPath.IsEmpty() {
		return nil, nil, &UnresolvedReferenceError{Table: table.FullName, Path: ""}
	}
	src, t, ok := f.ResolvePath(db, table, base, columnPath.WithoutLast())
	if !ok {
		return nil, nil, &UnresolvedReferenceError{
			Table:   table.FullName,
			Path:    columnPath.String(),
			Segment: firstUnresolved(db, table, columnPath.WithoutLast()),
		}
	}
	col := t.FindColumn(columnPath.Last())
	if col == nil {
		return nil, nil, &UnresolvedReferenceError{Table: table.FullName, Path: columnPath.String(), Segment: columnPath.Last()}
	}
	return Col(src, col.Name), col, nil
}

// firstUnresolved finds the path segment resolution stopped at, for error
// messages.
func firstUnresolved(db *schema.Database, table *schema.Table, path schema.Identifier) string {
	cur := table
	for _, seg := range path.Items() {
		fk := cur.FindForeignKey(seg)
		if fk == nil {
			if col := cur.FindColumn(seg); col != nil {
				fk = col.SingleForeignKey()
			}
		}
		if fk == nil {
			return seg
		}
		if cur = db.FindTable(fk.RefTable); cur == nil {
			return seg
		}
	}
	return path.Last()
}
