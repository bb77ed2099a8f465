package ast

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var numberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// timeLayouts are tried in order when a string has to be read as a date/time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Compare applies a relational operator to two evaluated values.
//
// Null on either side is false. When either side is numeric (by type or by
// its string form) and both parse as numbers, they compare as float64. When
// either side is a time.Time and the other parses as one, they compare as
// instants. Everything else compares as case-folded strings.
func Compare(op BinaryOp, left, right any) bool {
	left, right = normalizeValue(left), normalizeValue(right)
	if left == nil || right == nil {
		return false
	}

	if isNumeric(left) || isNumeric(right) {
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		if lok && rok {
			return ordered(op, cmpFloat(lf, rf))
		}
	}

	lt, lIsTime := left.(time.Time)
	rt, rIsTime := right.(time.Time)
	if lIsTime || rIsTime {
		ok := true
		if !lIsTime {
			lt, ok = toTime(left, rt.Location())
		}
		if !rIsTime {
			rt, ok = toTime(right, lt.Location())
		}
		if ok {
			return ordered(op, lt.Compare(rt))
		}
	}

	return ordered(op, strings.Compare(fold(toString(left)), fold(toString(right))))
}

func ordered(op BinaryOp, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNumeric(v any) bool {
	switch x := v.(type) {
	case int64, float64, bool:
		return true
	case string:
		return numberRe.MatchString(strings.TrimSpace(x))
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if !numberRe.MatchString(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// toTime reads v as an instant; strings without a zone are taken in loc.
func toTime(v any, loc *time.Location) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999999")
	}
	return fmt.Sprint(v)
}

// fold is the case-insensitive comparison key of s.
func fold(s string) string {
	return cases.Fold().String(s)
}
