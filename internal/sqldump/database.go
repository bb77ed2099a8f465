package sqldump

import (
	"strings"

	"github.com/roach88/condsql/internal/schema"
)

// CreateDatabase emits every table of db, referenced tables before the
// tables that reference them, followed by the programmable objects in
// declaration order.
func (d *Dumper) CreateDatabase(db *schema.Database) error {
	for _, t := range DependencyOrder(db.Tables) {
		if err := d.CreateTable(t); err != nil {
			return err
		}
	}
	for _, p := range db.Programmables {
		if err := d.CreateProgrammable(p); err != nil {
			return err
		}
	}
	return d.err
}

// AlterDatabase emits the statements turning oldDB into newDB. Tables are
// paired by GroupID, programmables by kind and name. Removed objects are
// dropped first, then new tables are created, paired tables altered, and
// new or changed programmables written last.
func (d *Dumper) AlterDatabase(oldDB, newDB *schema.Database) error {
	if d.err != nil {
		return d.err
	}

	for _, p := range oldDB.Programmables {
		if newDB.FindProgrammable(p.Kind, p.FullName) == nil {
			if err := d.DropProgrammable(p); err != nil {
				return err
			}
		}
	}

	oldOrder := DependencyOrder(oldDB.Tables)
	for i := len(oldOrder) - 1; i >= 0; i-- {
		t := oldOrder[i]
		if findByGroup(newDB, t.GroupID) == nil {
			if err := d.DropTable(t.FullName, false); err != nil {
				return err
			}
		}
	}

	newOrder := DependencyOrder(newDB.Tables)
	for _, t := range newOrder {
		if findByGroup(oldDB, t.GroupID) == nil {
			if err := d.CreateTable(t); err != nil {
				return err
			}
		}
	}
	for _, t := range newOrder {
		if old := findByGroup(oldDB, t.GroupID); old != nil {
			if err := d.AlterTable(oldDB, old, t); err != nil {
				return err
			}
		}
	}

	for _, p := range newDB.Programmables {
		old := oldDB.FindProgrammable(p.Kind, p.FullName)
		switch {
		case old == nil:
			if err := d.CreateProgrammable(p); err != nil {
				return err
			}
		case normalizeBody(old.CreateSQL) != normalizeBody(p.CreateSQL):
			if err := d.AlterProgrammable(old, p); err != nil {
				return err
			}
		}
	}
	return d.err
}

// DependencyOrder sorts tables so that every table follows the tables its
// foreign keys reference. Self references and cycles keep declaration
// order.
func DependencyOrder(tables []*schema.Table) []*schema.Table {
	byName := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		byName[strings.ToLower(t.FullName.String())] = t
	}

	out := make([]*schema.Table, 0, len(tables))
	state := make(map[*schema.Table]int, len(tables)) // 1 visiting, 2 done
	var visit func(t *schema.Table)
	visit = func(t *schema.Table) {
		if state[t] != 0 {
			return
		}
		state[t] = 1
		for _, fk := range t.ForeignKeys {
			if ref, ok := byName[strings.ToLower(fk.RefTable.String())]; ok && ref != t {
				visit(ref)
			}
		}
		state[t] = 2
		out = append(out, t)
	}
	for _, t := range tables {
		visit(t)
	}
	return out
}

func findByGroup(db *schema.Database, groupID string) *schema.Table {
	for _, t := range db.Tables {
		if t.GroupID == groupID {
			return t
		}
	}
	return nil
}

func normalizeBody(s string) string {
	return strings.Join(strings.Fields(strings.TrimRight(strings.TrimSpace(s), ";")), " ")
}
