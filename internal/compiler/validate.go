package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/condsql/internal/schema"
)

// Validation error codes (E200-E299)
const (
	ErrTableNoColumns      = "E201" // table without columns
	ErrDuplicateName       = "E202" // duplicate table, column or constraint name
	ErrUnknownColumn       = "E203" // key or index names a missing column
	ErrUnknownRefTable     = "E204" // foreign key references a missing table
	ErrKeyShapeMismatch    = "E205" // foreign key and referenced key differ in width
	ErrEmptyDataType       = "E206" // column without a data type
	ErrDuplicateIdentity   = "E207" // two columns share a group identity
	ErrInvalidProgrammable = "E208" // programmable body is not a CREATE of its kind
	ErrInvalidIdentity     = "E209" // identity column that is computed or defaulted
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled model for consistency.
// Returns all errors found (does not fail-fast).
func Validate(db *schema.Database) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	tableNames := make(map[string]bool)
	constraintNames := make(map[string]string)
	for _, t := range db.Tables {
		tf := "table." + t.FullName.String()

		key := strings.ToLower(t.FullName.String())
		if tableNames[key] {
			add(ErrDuplicateName, tf, "duplicate table name %q", t.FullName.String())
		}
		tableNames[key] = true

		// E201: at least one column
		if len(t.Columns) == 0 {
			add(ErrTableNoColumns, tf+".columns", "table %q has no columns", t.FullName.String())
		}

		columnNames := make(map[string]bool)
		identities := make(map[string]string)
		for _, c := range t.Columns {
			cf := tf + ".columns." + c.Name
			if columnNames[strings.ToLower(c.Name)] {
				add(ErrDuplicateName, cf, "duplicate column name %q", c.Name)
			}
			columnNames[strings.ToLower(c.Name)] = true

			if strings.TrimSpace(c.DataType) == "" && c.Computed == "" {
				add(ErrEmptyDataType, cf+".type", "column %q has no data type", c.Name)
			}
			if other, ok := identities[c.GroupID]; ok && c.GroupID != "" {
				add(ErrDuplicateIdentity, cf+".id", "column %q shares identity %q with %q", c.Name, c.GroupID, other)
			}
			identities[c.GroupID] = c.Name

			if c.AutoIncrement && (c.Computed != "" || c.DefaultValue != "") {
				add(ErrInvalidIdentity, cf+".identity", "identity column %q cannot have a default or computed value", c.Name)
			}
		}

		checkColumns := func(field string, cols []string) {
			for _, col := range cols {
				if t.FindColumn(col) == nil {
					add(ErrUnknownColumn, field, "unknown column %q", col)
				}
			}
		}

		for _, c := range t.Constraints() {
			name := c.ConstraintName()
			if name == "" {
				continue
			}
			lower := strings.ToLower(name)
			if owner, ok := constraintNames[lower]; ok {
				add(ErrDuplicateName, tf+".constraints."+name, "constraint name %q already used by %s", name, owner)
			}
			constraintNames[lower] = t.FullName.String()
		}

		if t.PrimaryKey != nil {
			checkColumns(tf+".primaryKey", t.PrimaryKey.Columns)
		}
		for _, u := range t.Uniques {
			checkColumns(tf+".uniques."+u.Name, u.Columns)
		}
		for _, ix := range t.Indexes {
			checkColumns(tf+".indexes."+ix.Name, ix.Columns)
		}
		for _, fk := range t.ForeignKeys {
			ff := tf + ".foreignKeys." + fk.Name
			checkColumns(ff, fk.Columns)
			errs = append(errs, validateReference(db, ff, fk)...)
		}
	}

	for _, p := range db.Programmables {
		field := strings.ToLower(string(p.Kind)) + "." + p.FullName.String()
		if !createsKind(p) {
			add(ErrInvalidProgrammable, field+".sql", "definition must start with CREATE %s", p.Kind)
		}
	}

	return errs
}

func validateReference(db *schema.Database, field string, fk *schema.ForeignKey) []ValidationError {
	ref := db.FindTable(fk.RefTable)
	if ref == nil {
		return []ValidationError{{
			Field:   field + ".references",
			Message: fmt.Sprintf("unknown table %q", fk.RefTable.String()),
			Code:    ErrUnknownRefTable,
		}}
	}

	refCols := fk.RefColumns
	if len(refCols) == 0 {
		if ref.PrimaryKey == nil {
			return []ValidationError{{
				Field:   field + ".refColumns",
				Message: fmt.Sprintf("table %q has no primary key; name the referenced columns", ref.FullName.String()),
				Code:    ErrKeyShapeMismatch,
			}}
		}
		refCols = ref.PrimaryKey.Columns
	}

	var errs []ValidationError
	if len(refCols) != len(fk.Columns) {
		errs = append(errs, ValidationError{
			Field:   field + ".columns",
			Message: fmt.Sprintf("%d columns reference %d columns of %q", len(fk.Columns), len(refCols), ref.FullName.String()),
			Code:    ErrKeyShapeMismatch,
		})
	}
	for _, col := range refCols {
		if ref.FindColumn(col) == nil {
			errs = append(errs, ValidationError{
				Field:   field + ".refColumns",
				Message: fmt.Sprintf("unknown column %q in %q", col, ref.FullName.String()),
				Code:    ErrUnknownColumn,
			})
		}
	}
	return errs
}

var createKindRe = regexp.MustCompile(`(?is)^\s*create\s+(or\s+replace\s+|or\s+alter\s+)?(view|procedure|proc|function|trigger)\b`)

func createsKind(p *schema.Programmable) bool {
	m := createKindRe.FindStringSubmatch(p.CreateSQL)
	if m == nil {
		return false
	}
	kind := strings.ToUpper(m[2])
	if kind == "PROC" {
		kind = string(schema.KindProcedure)
	}
	return kind == string(p.Kind)
}
