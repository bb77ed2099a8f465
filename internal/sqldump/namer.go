package sqldump

import (
	"fmt"
	"sync/atomic"
	"time"
)

// NameGenerator supplies names for temporary tables.
type NameGenerator interface {
	NextName() string
}

// TempTableNamer hands out temp_table_<n> names from a monotonic counter.
//
// When Stamp is set its unix-nano value is appended so names from separate
// runs against the same database do not collide. Tests leave Stamp nil (or
// pin it) for reproducible scripts.
//
// Safe for concurrent use.
type TempTableNamer struct {
	seq   atomic.Int64
	Stamp func() time.Time
}

// sharedNamer is the namer of every Dumper built without WithNamer, so
// recreates issued through separate dumpers in one process never reuse a
// name.
var sharedNamer = &TempTableNamer{Stamp: time.Now}

// SharedNamer returns the process-wide default namer.
func SharedNamer() *TempTableNamer {
	return sharedNamer
}

// NewTempTableNamer creates a namer starting at 1 with no stamp.
func NewTempTableNamer() *TempTableNamer {
	return &TempTableNamer{}
}

// NewTempTableNamerAt creates a namer whose next name uses start+1.
func NewTempTableNamerAt(start int64) *TempTableNamer {
	n := &TempTableNamer{}
	n.seq.Store(start)
	return n
}

// NextName returns the next unique name.
func (n *TempTableNamer) NextName() string {
	seq := n.seq.Add(1)
	if n.Stamp == nil {
		return fmt.Sprintf("temp_table_%d", seq)
	}
	return fmt.Sprintf("temp_table_%d_%d", seq, n.Stamp().UnixNano())
}

// Current returns the last sequence number handed out.
func (n *TempTableNamer) Current() int64 {
	return n.seq.Load()
}
