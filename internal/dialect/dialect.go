// Package dialect describes SQL backends as plain values: capability flags,
// identifier quoting, reserved words and the handful of statement shapes
// that differ between engines.
//
// Adding a backend means building a Dialect value and calling Register. No
// code in the dumper switches on a dialect name.
package dialect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// KeywordCase controls how keywords are spelled in rendered SQL.
type KeywordCase int

const (
	UpperKeywords KeywordCase = iota
	LowerKeywords
)

// RenameStyle selects the statements used to rename tables and columns.
type RenameStyle int

const (
	// RenameAlterTable: ALTER TABLE t RENAME TO n, ALTER TABLE t RENAME COLUMN c TO n
	RenameAlterTable RenameStyle = iota
	// RenameStatement: RENAME TABLE t TO n; columns as RenameAlterTable
	RenameStatement
	// RenameProcedure: EXECUTE sp_rename 't', 'n'
	RenameProcedure
)

// ChangeColumnStyle selects the statement used to change a column definition.
type ChangeColumnStyle int

const (
	// ChangeColumnAlter: ALTER TABLE t ALTER COLUMN c <definition>
	ChangeColumnAlter ChangeColumnStyle = iota
	// ChangeColumnChange: ALTER TABLE t CHANGE COLUMN old <new definition>
	ChangeColumnChange
	// ChangeColumnAlterType: ALTER TABLE t ALTER COLUMN c TYPE x, plus
	// separate SET/DROP NOT NULL and DEFAULT clauses
	ChangeColumnAlterType
)

// DropIndexStyle selects the statement used to drop an index.
type DropIndexStyle int

const (
	// DropIndexPlain: DROP INDEX [schema.]i
	DropIndexPlain DropIndexStyle = iota
	// DropIndexOnTable: DROP INDEX i ON t
	DropIndexOnTable
)

// LimitStyle selects how a row limit is written.
type LimitStyle int

const (
	LimitClause LimitStyle = iota // SELECT ... LIMIT n
	LimitTop                      // SELECT TOP n ...
)

// Dialect is one SQL backend.
type Dialect struct {
	Name       string
	DriverName string // database/sql driver, empty when none is linked

	QuoteBegin string
	QuoteEnd   string
	// BackslashEscapes makes string literals escape ' and \ with a backslash
	// instead of doubling the quote.
	BackslashEscapes bool
	KeywordCase      KeywordCase

	TrueLiteral  string
	FalseLiteral string
	// DateTimeLayout is the Go time layout used inside date/time literals.
	DateTimeLayout string
	// Identity is a mini-language fragment appended to identity column
	// definitions, e.g. "^auto_increment". Empty when the engine infers it.
	Identity string

	Rename         RenameStyle
	ChangeColumn   ChangeColumnStyle
	DropIndex      DropIndexStyle
	Limit          LimitStyle
	IdentityInsert bool
	// BeginTransaction is the mini-language form of the statement opening a
	// transaction.
	BeginTransaction string
	// KeepReferences holds the statements placed before and after a table
	// rename so foreign keys of other tables stay on the old name. Only
	// read when Caps.RenameRewritesReferences is set.
	KeepReferences [2]string

	// Functions maps an upper-case function name to a raw SQL template with
	// "{}" standing for the single argument. Missing names render as
	// NAME(args).
	Functions map[string]string

	Caps Capabilities

	reserved map[string]struct{}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsReserved reports whether word is a reserved keyword of the dialect.
func (d *Dialect) IsReserved(word string) bool {
	_, ok := d.reserved[strings.ToUpper(word)]
	return ok
}

// SetReserved replaces the reserved-word set.
func (d *Dialect) SetReserved(words []string) {
	d.reserved = make(map[string]struct{}, len(words))
	for _, w := range words {
		d.reserved[strings.ToUpper(w)] = struct{}{}
	}
}

// ReservedWords returns the reserved words in sorted order.
func (d *Dialect) ReservedWords() []string {
	words := make([]string, 0, len(d.reserved))
	for w := range d.reserved {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// NeedsQuoting reports whether an identifier must be quoted: it collides with
// a reserved word or holds characters outside [A-Za-z0-9_].
func (d *Dialect) NeedsQuoting(ident string) bool {
	return !identRe.MatchString(ident) || d.IsReserved(ident)
}

// Quote wraps ident in the dialect's quote characters, doubling any
// embedded closing quote.
func (d *Dialect) Quote(ident string) string {
	return d.QuoteBegin + strings.ReplaceAll(ident, d.QuoteEnd, d.QuoteEnd+d.QuoteEnd) + d.QuoteEnd
}

// QuoteIfNeeded quotes ident only when NeedsQuoting says so.
func (d *Dialect) QuoteIfNeeded(ident string) string {
	if d.NeedsQuoting(ident) {
		return d.Quote(ident)
	}
	return ident
}

// StringLiteral renders s as a quoted SQL string literal.
func (d *Dialect) StringLiteral(s string) string {
	if d.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `'`, `\'`)
	} else {
		s = strings.ReplaceAll(s, `'`, `''`)
	}
	return "'" + s + "'"
}

// Keyword applies the dialect's keyword casing.
func (d *Dialect) Keyword(word string) string {
	if d.KeywordCase == LowerKeywords {
		return strings.ToLower(word)
	}
	return strings.ToUpper(word)
}

// Clone returns a copy that can be modified and registered under a new name.
func (d *Dialect) Clone() *Dialect {
	c := *d
	c.Functions = make(map[string]string, len(d.Functions))
	for k, v := range d.Functions {
		c.Functions[k] = v
	}
	c.reserved = make(map[string]struct{}, len(d.reserved))
	for k := range d.reserved {
		c.reserved[k] = struct{}{}
	}
	return &c
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Dialect{}
)

// Register adds d under its name and the given aliases. Names are
// case-insensitive; registering an existing name replaces it.
func Register(d *Dialect, aliases ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(d.Name)] = d
	for _, a := range aliases {
		registry[strings.ToLower(a)] = d
	}
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (*Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
	return d, nil
}

// Names returns the canonical names of all registered dialects.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	seen := map[string]bool{}
	var names []string
	for _, d := range registry {
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}
