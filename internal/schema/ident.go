package schema

import "strings"

// NameWithSchema is a schema-qualified object name.
// Schema may be empty for engines without schemas (SQLite) or when the
// default schema is meant.
type NameWithSchema struct {
	Schema string `json:"schema,omitempty" msgpack:"schema,omitempty"`
	Name   string `json:"name" msgpack:"name"`
}

// NewName builds a NameWithSchema from an optional schema and a name.
func NewName(schemaName, name string) NameWithSchema {
	return NameWithSchema{Schema: schemaName, Name: name}
}

// ParseName splits "schema.name" into its parts. A name without a dot has
// an empty schema.
func ParseName(s string) NameWithSchema {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return NameWithSchema{Schema: s[:i], Name: s[i+1:]}
	}
	return NameWithSchema{Name: s}
}

func (n NameWithSchema) String() string {
	if n.Schema == "" {
		return n.Name
	}
	return n.Schema + "." + n.Name
}

// Matches compares names case-insensitively. An empty schema on either side
// matches any schema.
func (n NameWithSchema) Matches(other NameWithSchema) bool {
	if !strings.EqualFold(n.Name, other.Name) {
		return false
	}
	if n.Schema == "" || other.Schema == "" {
		return true
	}
	return strings.EqualFold(n.Schema, other.Schema)
}

// Identifier is an immutable dotted path of name segments, such as a
// column reached through a chain of foreign keys ("Customer.Country.Name").
type Identifier struct {
	items []string
}

// NewIdentifier builds an Identifier from segments. Empty segments are kept
// as given.
func NewIdentifier(items ...string) Identifier {
	return Identifier{items: append([]string(nil), items...)}
}

// ParseIdentifier splits a dotted path. Surrounding whitespace of each
// segment is trimmed; an empty string yields an empty identifier.
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identifier{}
	}
	parts := strings.Split(s, ".")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return Identifier{items: parts}
}

func (id Identifier) Items() []string { return append([]string(nil), id.items...) }
func (id Identifier) Len() int        { return len(id.items) }
func (id Identifier) IsEmpty() bool   { return len(id.items) == 0 }

// First returns the first segment, or "" for an empty identifier.
func (id Identifier) First() string {
	if len(id.items) == 0 {
		return ""
	}
	return id.items[0]
}

// Last returns the last segment, or "" for an empty identifier.
func (id Identifier) Last() string {
	if len(id.items) == 0 {
		return ""
	}
	return id.items[len(id.items)-1]
}

func (id Identifier) WithoutFirst() Identifier {
	if len(id.items) == 0 {
		return id
	}
	return NewIdentifier(id.items[1:]...)
}

func (id Identifier) WithoutLast() Identifier {
	if len(id.items) == 0 {
		return id
	}
	return NewIdentifier(id.items[:len(id.items)-1]...)
}

// Append returns a new identifier with name added at the end.
func (id Identifier) Append(name string) Identifier {
	items := make([]string, 0, len(id.items)+1)
	items = append(items, id.items...)
	return Identifier{items: append(items, name)}
}

// Join returns a new identifier consisting of id followed by other.
func (id Identifier) Join(other Identifier) Identifier {
	items := make([]string, 0, len(id.items)+len(other.items))
	items = append(items, id.items...)
	return Identifier{items: append(items, other.items...)}
}

func (id Identifier) Equal(other Identifier) bool {
	if len(id.items) != len(other.items) {
		return false
	}
	for i := range id.items {
		if !strings.EqualFold(id.items[i], other.items[i]) {
			return false
		}
	}
	return true
}

func (id Identifier) String() string {
	return strings.Join(id.items, ".")
}
