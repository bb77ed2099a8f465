package sqldump

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/dialect"
)

var opFormats = map[ast.BinaryOp]string{
	ast.OpEq:      "=",
	ast.OpNe:      "<>",
	ast.OpLt:      "<",
	ast.OpLe:      "<=",
	ast.OpGt:      ">",
	ast.OpGe:      ">=",
	ast.OpLike:    "^like",
	ast.OpNotLike: "^not ^like",
	ast.OpIn:      "^in",
	ast.OpNotIn:   "^not ^in",
}

var joinFormats = map[ast.JoinType]string{
	ast.InnerJoin: "^inner ^join ",
	ast.LeftJoin:  "^left ^join ",
	ast.RightJoin: "^right ^join ",
	ast.FullJoin:  "^full ^join ",
	ast.CrossJoin: "^cross ^join ",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `[`, `\[`)

// Condition renders a condition. An empty And renders as an always-true
// predicate; an empty Or and False as an always-false one.
func (d *Dumper) Condition(c ast.Condition) {
	if d.err != nil {
		return
	}
	switch x := c.(type) {
	case *ast.IsNull:
		d.Put("%e ^is ^null", x.Expr)
	case *ast.IsNotNull:
		d.Put("%e ^is ^not ^null", x.Expr)
	case *ast.Not:
		d.Put("^not (%c)", x.Cond)
	case *ast.Binary:
		op, ok := opFormats[x.Op]
		if !ok {
			d.fail(fmt.Errorf("unknown operator %q", x.Op))
			return
		}
		d.Put("%e "+op+" %e", x.Left, x.Right)
	case *ast.Between:
		if x.Not {
			d.Put("%e ^not ^between %e ^and %e", x.Expr, x.Lower, x.Upper)
		} else {
			d.Put("%e ^between %e ^and %e", x.Expr, x.Lower, x.Upper)
		}
	case *ast.StringTest:
		d.stringTest(x)
	case *ast.And:
		d.compound(x.Conditions, "^and", "(1=1)")
	case *ast.Or:
		d.compound(x.Conditions, "^or", "(1=0)")
	case *ast.False:
		d.write("(1=0)")
	case *ast.Exists:
		if x.Not {
			d.Put("^not ")
		}
		d.Put("^exists (")
		d.Select(x.Select)
		d.write(")")
	case *ast.RawCondition:
		d.write(x.SQL)
	default:
		d.fail(fmt.Errorf("unsupported condition type: %T", c))
	}
}

func (d *Dumper) compound(conds []ast.Condition, kw, empty string) {
	switch len(conds) {
	case 0:
		d.write(empty)
	case 1:
		d.Condition(conds[0])
	default:
		d.write("(")
		for i, c := range conds {
			if i > 0 {
				d.Put(" " + kw + " ")
			}
			d.Condition(c)
		}
		d.write(")")
	}
}

func (d *Dumper) stringTest(x *ast.StringTest) {
	escaped := likeEscaper.Replace(x.Value)
	var pattern string
	switch x.Kind {
	case ast.StartsWith:
		pattern = escaped + "%"
	case ast.EndsWith:
		pattern = "%" + escaped
	case ast.Contains:
		pattern = "%" + escaped + "%"
	default:
		d.fail(fmt.Errorf("unknown string test %q", x.Kind))
		return
	}
	d.Put("%e ^like %v", x.Expr, pattern)
	if escaped != x.Value {
		d.Put(" ^escape %v", `\`)
	}
}

// Expression renders an expression.
func (d *Dumper) Expression(e ast.Expression) {
	if d.err != nil {
		return
	}
	switch x := e.(type) {
	case *ast.ColumnRef:
		d.columnRef(x)
	case *ast.Literal:
		s, ok := d.value(x.Value)
		if !ok {
			d.fail(fmt.Errorf("cannot render literal of type %T", x.Value))
			return
		}
		d.write(s)
	case *ast.Placeholder:
		d.write("?")
	case *ast.RawIdent:
		d.write(d.ident(x.Name))
	case *ast.RawValue:
		d.write(x.SQL)
	case *ast.StringLit:
		d.write(d.dialect.StringLiteral(x.Value))
	case *ast.Count:
		d.Put("^count(*)")
	case *ast.FuncCall:
		d.funcCall(x)
	case *ast.SubSelect:
		d.write("(")
		d.Select(x.Select)
		d.write(")")
	default:
		d.fail(fmt.Errorf("unsupported expression type: %T", e))
	}
}

func (d *Dumper) columnRef(x *ast.ColumnRef) {
	src := x.Source
	switch {
	case src == nil:
		d.write(d.ident(x.Column))
	case d.bareAlias != "" && strings.EqualFold(src.Name(), d.bareAlias):
		d.write(d.ident(x.Column))
	case src.Alias != "":
		d.Put("%i.%i", src.Alias, x.Column)
	case src.Table != nil:
		d.Put("%f.%i", *src.Table, x.Column)
	default:
		d.write(d.ident(x.Column))
	}
}

// funcCall renders through the dialect's template when it has one.
// DATEPART(unit, x) is rewritten to the unit's function first.
func (d *Dumper) funcCall(x *ast.FuncCall) {
	name, args := strings.ToUpper(x.Name), x.Args
	if name == ast.FuncDatePart && len(args) == 2 {
		if part, ok := ast.CanonicalDatePart(partText(args[0])); ok {
			if _, ok := d.dialect.Functions[part]; ok {
				name, args = part, args[1:]
			}
		}
	}
	if tmpl, ok := d.dialect.Functions[name]; ok && len(args) == 1 {
		before, after, _ := strings.Cut(tmpl, "{}")
		d.write(before)
		d.Expression(args[0])
		d.write(after)
		return
	}
	d.Put("%s(%,e)", x.Name, args)
}

func partText(e ast.Expression) string {
	switch x := e.(type) {
	case *ast.RawIdent:
		return x.Name
	case *ast.StringLit:
		return x.Value
	case *ast.Literal:
		if s, ok := x.Value.(string); ok {
			return s
		}
	}
	return ""
}

// Command renders a statement without closing it.
func (d *Dumper) Command(cmd ast.Command) {
	switch x := cmd.(type) {
	case *ast.Select:
		d.Select(x)
	case *ast.Update:
		d.Update(x)
	case *ast.Delete:
		d.Delete(x)
	case *ast.Insert:
		d.Insert(x)
	default:
		d.fail(fmt.Errorf("unsupported command type: %T", cmd))
	}
}

// Select renders a SELECT statement.
func (d *Dumper) Select(s *ast.Select) {
	if d.err != nil {
		return
	}
	if s == nil {
		d.fail(errors.New("nil select"))
		return
	}
	d.Put("^select ")
	if s.Distinct {
		d.Put("^distinct ")
	}
	if s.TopRecords > 0 && d.dialect.Limit == dialect.LimitTop {
		d.Put("^top %s ", s.TopRecords)
	}
	if s.SelectAll || len(s.Columns) == 0 {
		d.write("*")
	}
	for i, c := range s.Columns {
		if i > 0 {
			d.write(", ")
		}
		d.Expression(c.Expr)
		if c.Alias != "" {
			d.Put(" ^as %i", c.Alias)
		}
	}
	if len(s.From) > 0 {
		d.Put("&n^from ")
		d.fromItems(s.From)
	}
	if hasConditions(s.Where) {
		d.Put("&n^where %c", s.Where)
	}
	if len(s.GroupBy) > 0 {
		d.Put("&n^group ^by %,e", s.GroupBy)
	}
	if hasConditions(s.Having) {
		d.Put("&n^having %c", s.Having)
	}
	for i, o := range s.OrderBy {
		if i == 0 {
			d.Put("&n^order ^by ")
		} else {
			d.write(", ")
		}
		d.Expression(o.Expr)
		if o.Desc {
			d.Put(" ^desc")
		}
	}
	if s.TopRecords > 0 && d.dialect.Limit == dialect.LimitClause {
		d.Put("&n^limit %s", s.TopRecords)
	}
}

func (d *Dumper) fromItems(items []*ast.FromItem) {
	for i, f := range items {
		if i > 0 {
			d.write(", ")
		}
		d.source(f.Source)
		for _, r := range f.Relations {
			kw, ok := joinFormats[r.JoinType]
			if !ok {
				d.fail(fmt.Errorf("unknown join type %q", r.JoinType))
				return
			}
			d.Put("&n" + kw)
			d.source(r.Reference)
			if r.JoinType != ast.CrossJoin && len(r.Conditions) > 0 {
				d.Put(" ^on %c", &ast.And{Conditions: r.Conditions})
			}
		}
	}
}

func (d *Dumper) source(src *ast.Source) {
	if src == nil {
		d.fail(errors.New("nil source"))
		return
	}
	switch {
	case src.Table != nil:
		d.Put("%l%f", src.LinkedServer, *src.Table)
	case src.SubSelect != nil:
		d.write("(")
		d.Select(src.SubSelect)
		d.write(")")
	case src.SubQuery != "":
		d.Put("(%s)", src.SubQuery)
	default:
		d.fail(errors.New("source has neither table nor query"))
		return
	}
	if src.Alias != "" {
		d.Put(" %i", src.Alias)
	}
}

func hasConditions(a *ast.And) bool {
	return a != nil && len(a.Conditions) > 0
}

func hasJoins(from []*ast.FromItem) bool {
	return len(from) > 1 || len(from) == 1 && len(from[0].Relations) > 0
}

func (d *Dumper) withBareAlias(alias string, fn func()) {
	prev := d.bareAlias
	d.bareAlias = alias
	fn()
	d.bareAlias = prev
}

func (d *Dumper) setList(fields []ast.UpdateField) {
	for i, f := range fields {
		if i > 0 {
			d.write(", ")
		}
		d.Put("%i = %e", f.Column, f.Expr)
	}
}

// Update renders an UPDATE. Without joins the plain form is used. With
// joins the dialect needs UPDATE ... FROM or a row id to select target
// rows through a sub-select; otherwise UnsupportedOperationError.
func (d *Dumper) Update(u *ast.Update) error {
	if d.err != nil {
		return d.err
	}
	if u.Target == nil || u.Target.Table == nil {
		d.fail(errors.New("update target must be a table"))
		return d.err
	}
	target, caps := u.Target, d.dialect.Caps
	switch {
	case !hasJoins(u.From):
		d.withBareAlias(target.Name(), func() {
			d.Put("^update %f ^set ", *target.Table)
			d.setList(u.Fields)
			if hasConditions(u.Where) {
				d.Put("&n^where %c", u.Where)
			}
		})
	case caps.AllowUpdateFrom:
		d.Put("^update %i ^set ", target.Name())
		d.setList(u.Fields)
		d.Put("&n^from ")
		d.fromItems(u.From)
		if hasConditions(u.Where) {
			d.Put("&n^where %c", u.Where)
		}
	case caps.RowID != "":
		d.withBareAlias(target.Name(), func() {
			d.Put("^update %f ^set ", *target.Table)
			d.setList(u.Fields)
		})
		d.rowIDFilter(target, u.From, u.Where)
	default:
		return d.unsupported("update with joins", target.Table.String())
	}
	return d.err
}

// Delete renders a DELETE, choosing its form like Update.
func (d *Dumper) Delete(x *ast.Delete) error {
	if d.err != nil {
		return d.err
	}
	if x.Target == nil || x.Target.Table == nil {
		d.fail(errors.New("delete target must be a table"))
		return d.err
	}
	target, caps := x.Target, d.dialect.Caps
	switch {
	case !hasJoins(x.From):
		d.withBareAlias(target.Name(), func() {
			d.Put("^delete ^from %f", *target.Table)
			if hasConditions(x.Where) {
				d.Put("&n^where %c", x.Where)
			}
		})
	case caps.AllowDeleteFrom:
		d.Put("^delete %i&n^from ", target.Name())
		d.fromItems(x.From)
		if hasConditions(x.Where) {
			d.Put("&n^where %c", x.Where)
		}
	case caps.RowID != "":
		d.Put("^delete ^from %f", *target.Table)
		d.rowIDFilter(target, x.From, x.Where)
	default:
		return d.unsupported("delete with joins", target.Table.String())
	}
	return d.err
}

func (d *Dumper) rowIDFilter(target *ast.Source, from []*ast.FromItem, where *ast.And) {
	rowID := d.dialect.Caps.RowID
	d.Put("&n^where %i ^in (&>&n^select %i.%i&n^from ", rowID, target.Name(), rowID)
	d.fromItems(from)
	if hasConditions(where) {
		d.Put("&n^where %c", where)
	}
	d.Put("&<&n)")
}

// Insert renders INSERT INTO ... SELECT.
func (d *Dumper) Insert(x *ast.Insert) {
	if d.err != nil {
		return
	}
	d.Put("^insert ^into %f", x.Table)
	if len(x.Columns) > 0 {
		d.Put(" (%,i)", x.Columns)
	}
	d.Put("&n")
	d.Select(x.Select)
}
