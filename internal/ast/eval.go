package ast

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotEvaluable is returned for node kinds that only make sense as SQL
// (raw fragments, sub-selects, EXISTS, IN) and for unknown functions.
var ErrNotEvaluable = errors.New("not evaluable in memory")

// Namespace supplies values during in-memory evaluation.
type Namespace interface {
	// Placeholder returns the value under test.
	Placeholder() (any, bool)
	// Column returns the value of column read through the source named
	// source (an alias or table name).
	Column(source, column string) (any, bool)
}

// ValueNamespace holds a single value under test. Column references resolve
// to the same value, so a condition built over a column can be checked
// against one candidate.
type ValueNamespace struct {
	Value any
}

func (n ValueNamespace) Placeholder() (any, bool)       { return n.Value, true }
func (n ValueNamespace) Column(_, _ string) (any, bool) { return n.Value, true }

// RecordNamespace maps column names to values. Keys are either "column" or
// "source.column"; lookups are case-insensitive and prefer the qualified key.
type RecordNamespace map[string]any

func (n RecordNamespace) Placeholder() (any, bool) { return nil, false }

func (n RecordNamespace) Column(source, column string) (any, bool) {
	if source != "" {
		if v, ok := n.lookup(source + "." + column); ok {
			return v, true
		}
	}
	return n.lookup(column)
}

func (n RecordNamespace) lookup(key string) (any, bool) {
	if v, ok := n[key]; ok {
		return v, true
	}
	for k, v := range n {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Evaluate computes the value of e.
func Evaluate(e Expression, ns Namespace) (any, error) {
	switch x := e.(type) {
	case *Literal:
		return x.Value, nil
	case *StringLit:
		return x.Value, nil
	case *Placeholder:
		v, ok := ns.Placeholder()
		if !ok {
			return nil, fmt.Errorf("%w: namespace has no placeholder value", ErrNotEvaluable)
		}
		return v, nil
	case *ColumnRef:
		name := ""
		if x.Source != nil {
			name = x.Source.Name()
		}
		v, ok := ns.Column(name, x.Column)
		if !ok {
			return nil, fmt.Errorf("%w: column %q not in namespace", ErrNotEvaluable, x.Column)
		}
		return v, nil
	case *FuncCall:
		return evalFunc(x, ns)
	case *RawIdent, *RawValue, *Count, *SubSelect:
		return nil, fmt.Errorf("%w: %s expression", ErrNotEvaluable, e.Tag())
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

// EvaluateCondition computes c. Operands that cannot be brought into a common
// domain make the comparison false; errors are reserved for node kinds that
// cannot be evaluated.
func EvaluateCondition(c Condition, ns Namespace) (bool, error) {
	switch x := c.(type) {
	case *IsNull:
		v, err := Evaluate(x.Expr, ns)
		return v == nil, err
	case *IsNotNull:
		v, err := Evaluate(x.Expr, ns)
		return v != nil, err
	case *Not:
		v, err := EvaluateCondition(x.Cond, ns)
		return !v, err
	case *Binary:
		return evalBinary(x, ns)
	case *Between:
		return evalBetween(x, ns)
	case *StringTest:
		v, err := Evaluate(x.Expr, ns)
		if err != nil || v == nil {
			return false, err
		}
		s, pattern := fold(toString(v)), fold(x.Value)
		switch x.Kind {
		case StartsWith:
			return strings.HasPrefix(s, pattern), nil
		case EndsWith:
			return strings.HasSuffix(s, pattern), nil
		case Contains:
			return strings.Contains(s, pattern), nil
		}
		return false, fmt.Errorf("unsupported string test %q", x.Kind)
	case *And:
		res := true
		for _, child := range x.Conditions {
			v, err := EvaluateCondition(child, ns)
			if err != nil {
				return false, err
			}
			res = res && v
		}
		return res, nil
	case *Or:
		res := false
		for _, child := range x.Conditions {
			v, err := EvaluateCondition(child, ns)
			if err != nil {
				return false, err
			}
			res = res || v
		}
		return res, nil
	case *False:
		return false, nil
	case *Exists, *RawCondition:
		return false, fmt.Errorf("%w: %s condition", ErrNotEvaluable, c.Tag())
	default:
		return false, fmt.Errorf("unsupported condition type: %T", c)
	}
}

func evalBinary(b *Binary, ns Namespace) (bool, error) {
	if b.Op == OpIn || b.Op == OpNotIn {
		return false, fmt.Errorf("%w: %s", ErrNotEvaluable, b.Op)
	}
	left, err := Evaluate(b.Left, ns)
	if err != nil {
		return false, err
	}
	right, err := Evaluate(b.Right, ns)
	if err != nil {
		return false, err
	}
	switch b.Op {
	case OpLike, OpNotLike:
		if left == nil || right == nil {
			return false, nil
		}
		m := likeMatch(toString(right), toString(left))
		if b.Op == OpNotLike {
			m = !m
		}
		return m, nil
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return Compare(b.Op, left, right), nil
	}
	return false, fmt.Errorf("unsupported operator %q", b.Op)
}

func evalBetween(b *Between, ns Namespace) (bool, error) {
	v, err := Evaluate(b.Expr, ns)
	if err != nil {
		return false, err
	}
	lo, err := Evaluate(b.Lower, ns)
	if err != nil {
		return false, err
	}
	hi, err := Evaluate(b.Upper, ns)
	if err != nil {
		return false, err
	}
	if v == nil || lo == nil || hi == nil {
		return false, nil
	}
	if b.Not {
		return Compare(OpLt, v, lo) || Compare(OpGt, v, hi), nil
	}
	return Compare(OpGe, v, lo) && Compare(OpLe, v, hi), nil
}

// likeMatch matches s against a SQL LIKE pattern, case-insensitively.
func likeMatch(pattern, s string) bool {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
