// Package filter compiles human-authored filter strings into condition trees.
//
// There is one grammar per value domain (string, number, date/time, logical)
// plus an object filter that selects schema objects by name. All grammars
// share the outer shape: comma separated clauses are OR'd, whitespace
// separated terms inside a clause are AND'd. A clause that cannot be parsed
// fails the whole filter; nothing is silently dropped.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/condsql/internal/ast"
)

// Kind selects a filter grammar.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDateTime
	KindLogical
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindNumber:   "number",
	KindDateTime: "datetime",
	KindLogical:  "logical",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a name ("string", "number", "datetime", "logical") to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown filter kind %q", s)
}

// KindForDataType picks the grammar for a SQL column type.
func KindForDataType(dataType string) Kind {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "bit", "bool", "boolean":
		return KindLogical
	case "int", "integer", "smallint", "tinyint", "mediumint", "bigint", "int2",
		"int4", "int8", "serial", "bigserial", "decimal", "numeric", "number",
		"real", "float", "double", "double precision", "money", "smallmoney":
		return KindNumber
	case "date", "datetime", "datetime2", "smalldatetime", "timestamp",
		"timestamptz", "timestamp with time zone", "timestamp without time zone",
		"time", "datetimeoffset":
		return KindDateTime
	}
	return KindString
}

// CompileError reports a filter string that its grammar cannot parse.
type CompileError struct {
	Kind    Kind
	Text    string
	Pos     int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s filter %q: at %d: %s", e.Kind, e.Text, e.Pos, e.Message)
}

// Option configures compilation.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithNow sets the clock relative keywords (TODAY, NEXT WEEK, ...) and
// year-less dates resolve against. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile parses text with the grammar of kind. expr is the value under
// test, typically an *ast.Placeholder or a column reference.
func Compile(kind Kind, expr ast.Expression, text string, opts ...Option) (ast.Condition, error) {
	switch kind {
	case KindString:
		return CompileString(expr, text)
	case KindNumber:
		return CompileNumber(expr, text)
	case KindDateTime:
		return CompileDateTime(expr, text, opts...)
	case KindLogical:
		return CompileLogical(expr, text)
	}
	return nil, fmt.Errorf("unsupported filter kind %v", kind)
}

// Match compiles text and evaluates it against a single value.
func Match(kind Kind, text string, value any, opts ...Option) (bool, error) {
	cond, err := Compile(kind, &ast.Placeholder{}, text, opts...)
	if err != nil {
		return false, err
	}
	return ast.EvaluateCondition(cond, ast.ValueNamespace{Value: value})
}

// termParser turns one term of a clause into a condition. It may consume
// following terms and returns how many it used.
type termParser func(terms []term, i int) (ast.Condition, int, error)

// compileClauses applies the shared clause/term structure: NOT prefixes,
// AND inside a clause, OR between clauses.
func compileClauses(kind Kind, text string, parse termParser) (ast.Condition, error) {
	clauses, err := scan(kind, text)
	if err != nil {
		return nil, err
	}
	or := &ast.Or{}
	for _, cl := range clauses {
		and := &ast.And{}
		for i := 0; i < len(cl); {
			negate := false
			if strings.EqualFold(cl[i].text, "NOT") && !cl[i].quoted {
				if i+1 >= len(cl) {
					return nil, &CompileError{Kind: kind, Text: text, Pos: cl[i].pos, Message: "NOT without operand"}
				}
				negate = true
				i++
			}
			cond, n, err := parse(cl, i)
			if err != nil {
				var ce *CompileError
				if errors.As(err, &ce) {
					ce.Kind, ce.Text = kind, text
					return nil, ce
				}
				return nil, err
			}
			if negate {
				cond = negateCondition(cond)
			}
			and.Add(cond)
			i += n
		}
		if len(and.Conditions) == 1 {
			or.Add(and.Conditions[0])
		} else {
			or.Add(and)
		}
	}
	if len(or.Conditions) == 1 {
		return or.Conditions[0], nil
	}
	return or, nil
}

func negateCondition(c ast.Condition) ast.Condition {
	switch x := c.(type) {
	case *ast.IsNull:
		return &ast.IsNotNull{Expr: x.Expr}
	case *ast.IsNotNull:
		return &ast.IsNull{Expr: x.Expr}
	case *ast.Not:
		return x.Cond
	}
	return &ast.Not{Cond: c}
}

func errAt(t term, format string, args ...any) error {
	return &CompileError{Pos: t.pos, Message: fmt.Sprintf(format, args...)}
}
