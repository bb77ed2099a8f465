package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/condsql/internal/ast"
)

var (
	numberRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	rangeRe  = regexp.MustCompile(`^([+-]?\d+(?:\.\d+)?)-([+-]?\d+(?:\.\d+)?)$`)
)

// CompileNumber parses a number filter.
//
//	5, =5, ='5'   equals; <>, !=, <, <=, >, >= compare
//	1-4, -5--1    inclusive range
//	NULL          null
func CompileNumber(expr ast.Expression, text string) (ast.Condition, error) {
	return compileClauses(KindNumber, text, func(terms []term, i int) (ast.Condition, int, error) {
		t := terms[i]
		if strings.EqualFold(t.text, "NULL") {
			return &ast.IsNull{Expr: expr}, 1, nil
		}

		// "1 - 4" is the range 1-4
		used := 1
		text := t.text
		if i+2 < len(terms) && terms[i+1].text == "-" && numberRe.MatchString(text) {
			text = text + "-" + terms[i+2].text
			used = 3
		}

		op, rest := splitOperator(text)
		value, _ := unquote(rest)
		if op == "" {
			if m := rangeRe.FindStringSubmatch(value); m != nil {
				lo, _ := parseNumber(m[1])
				hi, _ := parseNumber(m[2])
				return &ast.Between{Expr: expr, Lower: ast.Lit(lo), Upper: ast.Lit(hi)}, used, nil
			}
		}
		n, ok := parseNumber(value)
		if !ok {
			return nil, 0, errAt(t, "%q is not a number", t.text)
		}
		return ast.Cmp(expr, relOp(op), ast.Lit(n)), used, nil
	})
}

// parseNumber returns an int64 for integral input and a float64 otherwise.
func parseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if !numberRe.MatchString(s) {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}
