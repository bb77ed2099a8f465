package filter

import (
	"strings"

	"github.com/roach88/condsql/internal/ast"
)

// CompileString parses a string filter.
//
//	val, 'val'    contains
//	=val, ='v w'  equals; <>, !=, <, <=, >, >= compare
//	^val          starts with
//	$val          ends with
//	EMPTY         null or blank
//	NULL          null
//	NOT term      negation
func CompileString(expr ast.Expression, text string) (ast.Condition, error) {
	return compileClauses(KindString, text, func(terms []term, i int) (ast.Condition, int, error) {
		t := terms[i]
		if !t.quoted {
			switch strings.ToUpper(t.text) {
			case "EMPTY":
				return emptyCondition(expr), 1, nil
			case "NULL":
				return &ast.IsNull{Expr: expr}, 1, nil
			}
		}

		if op, rest := splitOperator(t.text); op != "" {
			value, _ := unquote(rest)
			return ast.Cmp(expr, relOp(op), &ast.StringLit{Value: value}), 1, nil
		}

		switch {
		case strings.HasPrefix(t.text, "^") || strings.HasPrefix(t.text, "$"):
			value, _ := unquote(t.text[1:])
			if value == "" {
				return nil, 0, errAt(t, "%q needs a value", t.text[:1])
			}
			kind := ast.StartsWith
			if t.text[0] == '$' {
				kind = ast.EndsWith
			}
			return &ast.StringTest{Kind: kind, Expr: expr, Value: value}, 1, nil
		}

		value, _ := unquote(t.text)
		return &ast.StringTest{Kind: ast.Contains, Expr: expr, Value: value}, 1, nil
	})
}

// emptyCondition is true for null and for values that are blank after
// trimming.
func emptyCondition(expr ast.Expression) ast.Condition {
	return ast.OrOf(
		&ast.IsNull{Expr: expr},
		ast.Cmp(ast.Call(ast.FuncTrim, expr), ast.OpEq, &ast.StringLit{Value: ""}),
	)
}

func relOp(op string) ast.BinaryOp {
	switch op {
	case "=", "==":
		return ast.OpEq
	case "<>", "!=":
		return ast.OpNe
	case "<":
		return ast.OpLt
	case "<=":
		return ast.OpLe
	case ">":
		return ast.OpGt
	case ">=":
		return ast.OpGe
	}
	return ast.OpEq
}
