package ast

import "time"

// Node is any tree element.
type Node interface {
	// Tag is the stable type tag used for serialization.
	Tag() string
	// Children returns direct child nodes in order.
	Children() []Node
}

// Expression is a node that produces a value.
type Expression interface {
	Node
	exprNode()
}

// Condition is a node that produces a boolean.
type Condition interface {
	Node
	condNode()
}

// Node tags.
const (
	TagColumn      = "col"
	TagLiteral     = "lit"
	TagPlaceholder = "placeholder"
	TagIdent       = "ident"
	TagValue       = "val"
	TagString      = "str"
	TagCount       = "count"
	TagFunc        = "func"
	TagSubSelect   = "subselect"

	TagIsNull     = "isnull"
	TagIsNotNull  = "isnotnull"
	TagNot        = "not"
	TagBinary     = "bin"
	TagBetween    = "between"
	TagStringTest = "strtest"
	TagAnd        = "and"
	TagOr         = "or"
	TagFalse      = "false"
	TagExists     = "exists"
	TagRaw        = "sqlcond"

	TagSelect = "select"
)

// ColumnRef points at a column of a resolved source.
type ColumnRef struct {
	Source *Source
	Column string
}

// Literal is a typed scalar: nil, bool, int64, float64, string or time.Time.
type Literal struct {
	Value any
}

// Placeholder stands for the value under test.
type Placeholder struct{}

// RawIdent is an identifier rendered with dialect quoting but otherwise
// verbatim, such as a DATEPART unit.
type RawIdent struct {
	Name string
}

// RawValue is a verbatim SQL fragment.
type RawValue struct {
	SQL string
}

// StringLit is always rendered as a string literal.
type StringLit struct {
	Value string
}

// Count is COUNT(*).
type Count struct{}

// FuncCall is a function applied to ordered arguments.
type FuncCall struct {
	Name string
	Args []Expression
}

// SubSelect is a parenthesized select used as an expression (IN lists).
type SubSelect struct {
	Select *Select
}

func (*ColumnRef) exprNode()   {}
func (*Literal) exprNode()     {}
func (*Placeholder) exprNode() {}
func (*RawIdent) exprNode()    {}
func (*RawValue) exprNode()    {}
func (*StringLit) exprNode()   {}
func (*Count) exprNode()       {}
func (*FuncCall) exprNode()    {}
func (*SubSelect) exprNode()   {}

func (*ColumnRef) Tag() string   { return TagColumn }
func (*Literal) Tag() string     { return TagLiteral }
func (*Placeholder) Tag() string { return TagPlaceholder }
func (*RawIdent) Tag() string    { return TagIdent }
func (*RawValue) Tag() string    { return TagValue }
func (*StringLit) Tag() string   { return TagString }
func (*Count) Tag() string       { return TagCount }
func (*FuncCall) Tag() string    { return TagFunc }
func (*SubSelect) Tag() string   { return TagSubSelect }

func (*ColumnRef) Children() []Node   { return nil }
func (*Literal) Children() []Node     { return nil }
func (*Placeholder) Children() []Node { return nil }
func (*RawIdent) Children() []Node    { return nil }
func (*RawValue) Children() []Node    { return nil }
func (*StringLit) Children() []Node   { return nil }
func (*Count) Children() []Node       { return nil }

func (f *FuncCall) Children() []Node {
	nodes := make([]Node, len(f.Args))
	for i, a := range f.Args {
		nodes[i] = a
	}
	return nodes
}

func (s *SubSelect) Children() []Node { return []Node{s.Select} }

// BinaryOp is a relational operator.
type BinaryOp string

const (
	OpEq      BinaryOp = "="
	OpNe      BinaryOp = "<>"
	OpLt      BinaryOp = "<"
	OpLe      BinaryOp = "<="
	OpGt      BinaryOp = ">"
	OpGe      BinaryOp = ">="
	OpLike    BinaryOp = "LIKE"
	OpNotLike BinaryOp = "NOT LIKE"
	OpIn      BinaryOp = "IN"
	OpNotIn   BinaryOp = "NOT IN"
)

// Valid reports whether op is one of the known operators.
func (op BinaryOp) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLike, OpNotLike, OpIn, OpNotIn:
		return true
	}
	return false
}

// StringTestKind selects the string test performed by StringTest.
type StringTestKind string

const (
	StartsWith StringTestKind = "starts"
	EndsWith   StringTestKind = "ends"
	Contains   StringTestKind = "contains"
)

type IsNull struct {
	Expr Expression
}

type IsNotNull struct {
	Expr Expression
}

type Not struct {
	Cond Condition
}

// Binary is a relational comparison between two expressions.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Between is an inclusive range test. Not negates it.
type Between struct {
	Expr  Expression
	Lower Expression
	Upper Expression
	Not   bool
}

// StringTest matches an expression against a literal string.
type StringTest struct {
	Kind  StringTestKind
	Expr  Expression
	Value string
}

// And is true when all conditions are; empty And is true.
type And struct {
	Conditions []Condition
}

// Or is true when any condition is; empty Or is false.
type Or struct {
	Conditions []Condition
}

// False never matches.
type False struct{}

// Exists tests a sub-select for rows. Not negates it.
type Exists struct {
	Select *Select
	Not    bool
}

// RawCondition is a verbatim SQL predicate.
type RawCondition struct {
	SQL string
}

func (*IsNull) condNode()       {}
func (*IsNotNull) condNode()    {}
func (*Not) condNode()          {}
func (*Binary) condNode()       {}
func (*Between) condNode()      {}
func (*StringTest) condNode()   {}
func (*And) condNode()          {}
func (*Or) condNode()           {}
func (*False) condNode()        {}
func (*Exists) condNode()       {}
func (*RawCondition) condNode() {}

func (*IsNull) Tag() string       { return TagIsNull }
func (*IsNotNull) Tag() string    { return TagIsNotNull }
func (*Not) Tag() string          { return TagNot }
func (*Binary) Tag() string       { return TagBinary }
func (*Between) Tag() string      { return TagBetween }
func (*StringTest) Tag() string   { return TagStringTest }
func (*And) Tag() string          { return TagAnd }
func (*Or) Tag() string           { return TagOr }
func (*False) Tag() string        { return TagFalse }
func (*Exists) Tag() string       { return TagExists }
func (*RawCondition) Tag() string { return TagRaw }

func (c *IsNull) Children() []Node     { return []Node{c.Expr} }
func (c *IsNotNull) Children() []Node  { return []Node{c.Expr} }
func (c *Not) Children() []Node        { return []Node{c.Cond} }
func (c *Binary) Children() []Node     { return []Node{c.Left, c.Right} }
func (c *Between) Children() []Node    { return []Node{c.Expr, c.Lower, c.Upper} }
func (c *StringTest) Children() []Node { return []Node{c.Expr} }
func (c *And) Children() []Node        { return condNodes(c.Conditions) }
func (c *Or) Children() []Node         { return condNodes(c.Conditions) }
func (*False) Children() []Node        { return nil }
func (c *Exists) Children() []Node     { return []Node{c.Select} }
func (*RawCondition) Children() []Node { return nil }

func condNodes(conds []Condition) []Node {
	nodes := make([]Node, len(conds))
	for i, c := range conds {
		nodes[i] = c
	}
	return nodes
}

// Add appends c unless it is nil.
func (a *And) Add(c Condition) {
	if c != nil {
		a.Conditions = append(a.Conditions, c)
	}
}

// Add appends c unless it is nil.
func (o *Or) Add(c Condition) {
	if c != nil {
		o.Conditions = append(o.Conditions, c)
	}
}

// Lit wraps a Go value as a Literal, widening integer and float types to
// int64 and float64.
func Lit(v any) *Literal {
	return &Literal{Value: normalizeValue(v)}
}

// Col references column of src.
func Col(src *Source, column string) *ColumnRef {
	return &ColumnRef{Source: src, Column: column}
}

// Cmp builds a relational comparison.
func Cmp(left Expression, op BinaryOp, right Expression) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// AndOf builds an And skipping nil conditions.
func AndOf(conds ...Condition) *And {
	a := &And{}
	for _, c := range conds {
		a.Add(c)
	}
	return a
}

// OrOf builds an Or skipping nil conditions.
func OrOf(conds ...Condition) *Or {
	o := &Or{}
	for _, c := range conds {
		o.Add(c)
	}
	return o
}

// Call builds a function call.
func Call(name string, args ...Expression) *FuncCall {
	return &FuncCall{Name: name, Args: args}
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}
