package dialect

// Capabilities is the flat feature set of a backend. The dumper reads it to
// pick a code path; it never changes after a dialect is registered.
type Capabilities struct {
	// Engine features.
	MultipleSchema            bool   `json:"multipleSchema"`
	MultipleDatabase          bool   `json:"multipleDatabase"`
	ForeignKeys               bool   `json:"foreignKeys"`
	Uniques                   bool   `json:"uniques"`
	ComputedColumns           bool   `json:"computedColumns"`
	SparseColumns             bool   `json:"sparseColumns"`
	AnonymousPrimaryKey       bool   `json:"anonymousPrimaryKey"`
	ExplicitDropConstraint    bool   `json:"explicitDropConstraint"`
	EnableConstraintsPerTable bool   `json:"enableConstraintsPerTable"`
	RangeSelect               bool   `json:"rangeSelect"`
	AllowDeleteFrom           bool   `json:"allowDeleteFrom"`
	AllowUpdateFrom           bool   `json:"allowUpdateFrom"`
	RowID                     string `json:"rowId,omitempty"`
	// RenameRewritesReferences is set when renaming a table also retargets
	// the foreign keys of other tables to the new name.
	RenameRewritesReferences bool `json:"renameRewritesReferences"`

	// DDL operations the dumper may emit directly.
	CreateTable        bool `json:"createTable"`
	DropTable          bool `json:"dropTable"`
	RenameTable        bool `json:"renameTable"`
	AddColumn          bool `json:"addColumn"`
	DropColumn         bool `json:"dropColumn"`
	RenameColumn       bool `json:"renameColumn"`
	ChangeColumn       bool `json:"changeColumn"`
	AddConstraint      bool `json:"addConstraint"`
	DropConstraint     bool `json:"dropConstraint"`
	AddIndex           bool `json:"addIndex"`
	DropIndex          bool `json:"dropIndex"`
	RecreateTable      bool `json:"recreateTable"`
	AlterProgrammable  bool `json:"alterProgrammable"`
	RenameProgrammable bool `json:"renameProgrammable"`
}

// fullDDL is the dumper capability set of engines that can alter everything
// in place.
func fullDDL(c Capabilities) Capabilities {
	c.CreateTable = true
	c.DropTable = true
	c.RenameTable = true
	c.AddColumn = true
	c.DropColumn = true
	c.RenameColumn = true
	c.ChangeColumn = true
	c.AddConstraint = true
	c.DropConstraint = true
	c.AddIndex = true
	c.DropIndex = true
	c.RecreateTable = true
	c.AlterProgrammable = true
	c.RenameProgrammable = true
	return c
}
