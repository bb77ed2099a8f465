package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/condsql/internal/dialect"
)

type dialectDef struct {
	Base        string            `json:"base"`
	Quote       []string          `json:"quote"`
	KeywordCase string            `json:"keywordCase"`
	Reserved    []string          `json:"reserved"`
	Functions   map[string]string `json:"functions"`
	Caps        map[string]bool   `json:"caps"`
	RowID       *string           `json:"rowId"`
}

// compileDialect derives a custom dialect from a registered base. Caps
// entries are named like the Capabilities JSON keys and override the base.
func compileDialect(name string, v cue.Value) (*dialect.Dialect, error) {
	var dd dialectDef
	if err := v.Decode(&dd); err != nil {
		return nil, formatCUEError(err)
	}
	base, err := dialect.Lookup(dd.Base)
	if err != nil {
		return nil, &CompileError{Field: fmt.Sprintf("dialect.%s.base", name), Message: err.Error(), Pos: v.Pos()}
	}

	d := base.Clone()
	d.Name = name
	if len(dd.Quote) == 2 {
		d.QuoteBegin, d.QuoteEnd = dd.Quote[0], dd.Quote[1]
	}
	switch dd.KeywordCase {
	case "lower":
		d.KeywordCase = dialect.LowerKeywords
	case "upper":
		d.KeywordCase = dialect.UpperKeywords
	}
	if len(dd.Reserved) > 0 {
		d.SetReserved(append(d.ReservedWords(), dd.Reserved...))
	}
	for fn, tmpl := range dd.Functions {
		d.Functions[strings.ToUpper(fn)] = tmpl
	}
	if dd.RowID != nil {
		d.Caps.RowID = *dd.RowID
	}
	if len(dd.Caps) > 0 {
		caps, err := overlayCaps(d.Caps, dd.Caps)
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("dialect.%s.caps", name), Message: err.Error(), Pos: v.Pos()}
		}
		d.Caps = caps
	}
	return d, nil
}

// overlayCaps sets the named boolean flags on a copy of caps. Unknown names
// are rejected.
func overlayCaps(caps dialect.Capabilities, flags map[string]bool) (dialect.Capabilities, error) {
	data, err := json.Marshal(caps)
	if err != nil {
		return caps, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return caps, err
	}
	for k, on := range flags {
		cur, ok := fields[k]
		if _, isBool := cur.(bool); !ok || !isBool {
			return caps, fmt.Errorf("unknown capability %q", k)
		}
		fields[k] = on
	}
	if data, err = json.Marshal(fields); err != nil {
		return caps, err
	}
	var out dialect.Capabilities
	err = json.Unmarshal(data, &out)
	return out, err
}
