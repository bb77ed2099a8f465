package filter

import (
	"strings"

	"github.com/roach88/condsql/internal/ast"
)

// CompileLogical parses a logical filter: TRUE/1/YES and FALSE/0/NO compare
// against 1 and 0, NULL tests for null.
func CompileLogical(expr ast.Expression, text string) (ast.Condition, error) {
	return compileClauses(KindLogical, text, func(terms []term, i int) (ast.Condition, int, error) {
		t := terms[i]
		op, rest := splitOperator(t.text)
		if op != "" && op != "=" && op != "==" {
			return nil, 0, errAt(t, "operator %q not allowed in logical filter", op)
		}
		value, _ := unquote(rest)
		switch strings.ToUpper(value) {
		case "TRUE", "1", "YES":
			return ast.Cmp(expr, ast.OpEq, ast.Lit(int64(1))), 1, nil
		case "FALSE", "0", "NO":
			return ast.Cmp(expr, ast.OpEq, ast.Lit(int64(0))), 1, nil
		case "NULL":
			return &ast.IsNull{Expr: expr}, 1, nil
		}
		return nil, 0, errAt(t, "%q is not a logical value", t.text)
	})
}
