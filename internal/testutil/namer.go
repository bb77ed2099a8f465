package testutil

// FixedNamer returns the same temporary table name every time.
//
// Scripts rendered with it are byte-identical across runs, which golden
// comparisons rely on. Only use it where a single table is recreated per
// script.
//
// Thread-safety: FixedNamer is stateless and safe for concurrent use.
type FixedNamer struct {
	name string
}

// NewFixedNamer creates a namer. If name is empty, NextName returns
// "temp_table".
func NewFixedNamer(name string) *FixedNamer {
	if name == "" {
		name = "temp_table"
	}
	return &FixedNamer{name: name}
}

// NextName returns the fixed name.
//
// Implements sqldump.NameGenerator.
func (n *FixedNamer) NextName() string {
	return n.name
}
