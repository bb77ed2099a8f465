// Package compiler turns CUE schema definitions into the table model and
// custom dialects, and validates the resulting model.
//
// A schema directory holds top-level structs keyed by object kind:
//
//	table: Orders: {
//		columns: {
//			Id:         {type: "int", notNull: true, identity: true}
//			CustomerId: {type: "int", notNull: true}
//		}
//		primaryKey: {name: "PK_Orders", columns: ["Id"]}
//		foreignKeys: FK_Orders_Customer: {columns: ["CustomerId"], references: "Customers"}
//	}
//	view: ActiveOrders: sql: "CREATE VIEW ActiveOrders AS ..."
//	dialect: turso: {base: "sqlite", caps: {dropColumn: true}}
//
// Column and table identities default to the lower-cased names
// ("orders", "orders.customerid"). A renamed column keeps its identity by
// setting id explicitly, which is what lets alter tell a rename from a
// drop and add.
package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/schema"
)

//go:embed schema.cue
var schemaDefinition string

// Result is a compiled schema directory.
type Result struct {
	Database *schema.Database
	Dialects []*dialect.Dialect
}

type columnDef struct {
	Type      string `json:"type"`
	NotNull   bool   `json:"notNull"`
	Identity  bool   `json:"identity"`
	Default   string `json:"default"`
	Computed  string `json:"computed"`
	Persisted bool   `json:"persisted"`
	Sparse    bool   `json:"sparse"`
	Comment   string `json:"comment"`
	ID        string `json:"id"`
}

type keyDef struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type foreignKeyDef struct {
	Columns    []string `json:"columns"`
	References string   `json:"references"`
	RefColumns []string `json:"refColumns"`
	OnDelete   string   `json:"onDelete"`
	OnUpdate   string   `json:"onUpdate"`
}

type programmableDef struct {
	Schema string `json:"schema"`
	SQL    string `json:"sql"`
}

var programmableSections = []struct {
	label string
	kind  schema.ProgrammableKind
}{
	{"view", schema.KindView},
	{"procedure", schema.KindProcedure},
	{"function", schema.KindFunction},
	{"trigger", schema.KindTrigger},
}

// CompileString compiles CUE source text. filename is used in positions.
func CompileString(src, filename string) (*Result, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// Compile checks v against the schema definition and builds the model.
func Compile(v cue.Value) (*Result, error) {
	def := v.Context().CompileString(schemaDefinition, cue.Filename("schema.cue"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition: %w", err)
	}
	v = def.LookupPath(cue.ParsePath("#Schema")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	res := &Result{Database: &schema.Database{}}
	if err := eachField(v, "table", func(name string, tv cue.Value) error {
		t, err := compileTable(name, tv)
		if err != nil {
			return err
		}
		res.Database.Tables = append(res.Database.Tables, t)
		return nil
	}); err != nil {
		return nil, err
	}

	for _, sec := range programmableSections {
		kind := sec.kind
		if err := eachField(v, sec.label, func(name string, pv cue.Value) error {
			var pd programmableDef
			if err := pv.Decode(&pd); err != nil {
				return formatCUEError(err)
			}
			res.Database.Programmables = append(res.Database.Programmables, &schema.Programmable{
				Kind:      kind,
				FullName:  schema.NewName(pd.Schema, name),
				CreateSQL: strings.TrimSpace(pd.SQL),
			})
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := eachField(v, "dialect", func(name string, dv cue.Value) error {
		d, err := compileDialect(name, dv)
		if err != nil {
			return err
		}
		res.Dialects = append(res.Dialects, d)
		return nil
	}); err != nil {
		return nil, err
	}

	res.Database.Link()
	return res, nil
}

// eachField calls fn for every regular field of the struct at path, in
// declaration order. A missing path is not an error.
func eachField(v cue.Value, path string, fn func(label string, v cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func lookupString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func compileTable(name string, v cue.Value) (*schema.Table, error) {
	schemaName, err := lookupString(v, "schema")
	if err != nil {
		return nil, err
	}
	t := &schema.Table{FullName: schema.NewName(schemaName, name)}
	if t.GroupID, err = lookupString(v, "id"); err != nil {
		return nil, err
	}
	if t.GroupID == "" {
		t.GroupID = strings.ToLower(name)
	}
	if t.Comment, err = lookupString(v, "comment"); err != nil {
		return nil, err
	}

	if err := eachField(v, "columns", func(col string, cv cue.Value) error {
		var cd columnDef
		if err := cv.Decode(&cd); err != nil {
			return formatCUEError(err)
		}
		c := &schema.Column{
			Name:          col,
			DataType:      cd.Type,
			NotNull:       cd.NotNull,
			AutoIncrement: cd.Identity,
			DefaultValue:  cd.Default,
			Computed:      cd.Computed,
			Persisted:     cd.Persisted,
			Sparse:        cd.Sparse,
			Comment:       cd.Comment,
			GroupID:       cd.ID,
		}
		if c.GroupID == "" {
			c.GroupID = t.GroupID + "." + strings.ToLower(col)
		}
		t.Columns = append(t.Columns, c)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, &CompileError{
			Field:   fmt.Sprintf("table.%s.columns", name),
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}

	if pkv := v.LookupPath(cue.ParsePath("primaryKey")); pkv.Exists() {
		var pk keyDef
		if err := pkv.Decode(&pk); err != nil {
			return nil, formatCUEError(err)
		}
		t.PrimaryKey = &schema.PrimaryKey{Name: pk.Name, Columns: pk.Columns}
	}

	if err := eachField(v, "foreignKeys", func(fkName string, fv cue.Value) error {
		var fd foreignKeyDef
		if err := fv.Decode(&fd); err != nil {
			return formatCUEError(err)
		}
		t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
			Name:       fkName,
			Columns:    fd.Columns,
			RefTable:   schema.ParseName(fd.References),
			RefColumns: fd.RefColumns,
			OnDelete:   fkAction(fd.OnDelete),
			OnUpdate:   fkAction(fd.OnUpdate),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "uniques", func(uqName string, uv cue.Value) error {
		var kd keyDef
		if err := uv.Decode(&kd); err != nil {
			return formatCUEError(err)
		}
		t.Uniques = append(t.Uniques, &schema.Unique{Name: uqName, Columns: kd.Columns})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "checks", func(ckName string, cv cue.Value) error {
		def, err := cv.String()
		if err != nil {
			return formatCUEError(err)
		}
		t.Checks = append(t.Checks, &schema.Check{Name: ckName, Definition: def})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "indexes", func(ixName string, iv cue.Value) error {
		var kd keyDef
		if err := iv.Decode(&kd); err != nil {
			return formatCUEError(err)
		}
		t.Indexes = append(t.Indexes, &schema.Index{Name: ixName, Columns: kd.Columns, Unique: kd.Unique})
		return nil
	}); err != nil {
		return nil, err
	}

	return t, nil
}

func fkAction(s string) schema.FKAction {
	if strings.EqualFold(s, "NO ACTION") {
		return schema.NoAction
	}
	return schema.FKAction(strings.ToUpper(s))
}
