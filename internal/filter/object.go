package filter

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
)

// ObjectFilter selects schema objects (tables, columns, views, ...) by name
// or by an auxiliary content text.
type ObjectFilter struct {
	clauses [][]objectTerm
}

type objectTermKind int

const (
	objectNameContains objectTermKind = iota
	objectNameEquals
	objectContentContains
)

type objectTerm struct {
	kind   objectTermKind
	value  string
	negate bool
}

// CompileObject parses an object filter.
//
//	text     name contains text; an all-caps token such as TN also matches
//	         the initials of the camel-case words of the name (TableName)
//	=text    name equals text
//	#text    content text contains text
//	NOT term negation
func CompileObject(text string) (*ObjectFilter, error) {
	clauses, err := scan(KindString, text)
	if err != nil {
		return nil, err
	}
	f := &ObjectFilter{}
	for _, cl := range clauses {
		var terms []objectTerm
		negate := false
		for _, t := range cl {
			if !t.quoted && strings.EqualFold(t.text, "NOT") {
				negate = !negate
				continue
			}
			ot := objectTerm{negate: negate}
			negate = false
			switch {
			case strings.HasPrefix(t.text, "=="):
				ot.kind, ot.value = objectNameEquals, t.text[2:]
			case strings.HasPrefix(t.text, "="):
				ot.kind, ot.value = objectNameEquals, t.text[1:]
			case strings.HasPrefix(t.text, "#"):
				ot.kind, ot.value = objectContentContains, t.text[1:]
			default:
				ot.kind, ot.value = objectNameContains, t.text
			}
			ot.value, _ = unquote(ot.value)
			if ot.value == "" {
				return nil, &CompileError{Kind: KindString, Text: text, Pos: t.pos, Message: "empty object filter term"}
			}
			terms = append(terms, ot)
		}
		if negate {
			return nil, &CompileError{Kind: KindString, Text: text, Pos: len(text), Message: "NOT without operand"}
		}
		f.clauses = append(f.clauses, terms)
	}
	return f, nil
}

// Match reports whether an object with the given name and content text
// passes the filter.
func (f *ObjectFilter) Match(name, content string) bool {
	for _, cl := range f.clauses {
		ok := true
		for _, t := range cl {
			if t.match(name, content) == t.negate {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (t objectTerm) match(name, content string) bool {
	fold := cases.Fold()
	switch t.kind {
	case objectNameEquals:
		return fold.String(name) == fold.String(t.value)
	case objectContentContains:
		return strings.Contains(fold.String(content), fold.String(t.value))
	}
	if strings.Contains(fold.String(name), fold.String(t.value)) {
		return true
	}
	return isInitials(t.value) && strings.HasPrefix(Acronym(name), t.value)
}

// Acronym returns the upper-cased initials of the camel-case (or snake-case)
// words of name: TableName -> TN.
func Acronym(name string) string {
	var sb strings.Builder
	for _, w := range strings.Split(inflect.Underscore(name), "_") {
		for _, r := range w {
			sb.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return sb.String()
}

func isInitials(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
