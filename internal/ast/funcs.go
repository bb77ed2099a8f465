package ast

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Built-in function names understood by the evaluator and by dialect
// function templates.
const (
	FuncLTrim    = "LTRIM"
	FuncRTrim    = "RTRIM"
	FuncTrim     = "TRIM"
	FuncDatePart = "DATEPART"
	FuncYear     = "YEAR"
	FuncMonth    = "MONTH"
	FuncDay      = "DAY"
	FuncHour     = "HOUR"
	FuncMinute   = "MINUTE"
	FuncSecond   = "SECOND"
	FuncWeekday  = "WEEKDAY"
)

// CanonicalDatePart maps a DATEPART unit spelling (case-insensitive) to
// one of the YEAR..WEEKDAY function names.
func CanonicalDatePart(part string) (string, bool) {
	switch strings.ToUpper(part) {
	case FuncYear, "YY", "YYYY":
		return FuncYear, true
	case FuncMonth, "MM", "M":
		return FuncMonth, true
	case FuncDay, "DD", "D":
		return FuncDay, true
	case FuncHour, "HH":
		return FuncHour, true
	case FuncMinute, "MI", "N":
		return FuncMinute, true
	case FuncSecond, "SS", "S":
		return FuncSecond, true
	case FuncWeekday, "DW", "W":
		return FuncWeekday, true
	}
	return "", false
}

// DatePart extracts a calendar component. Part names go through
// CanonicalDatePart. Weekday counts from Sunday = 0.
func DatePart(part string, t time.Time) (int64, bool) {
	name, ok := CanonicalDatePart(part)
	if !ok {
		return 0, false
	}
	switch name {
	case FuncYear:
		return int64(t.Year()), true
	case FuncMonth:
		return int64(t.Month()), true
	case FuncDay:
		return int64(t.Day()), true
	case FuncHour:
		return int64(t.Hour()), true
	case FuncMinute:
		return int64(t.Minute()), true
	case FuncSecond:
		return int64(t.Second()), true
	}
	return int64(t.Weekday()), true
}

func evalFunc(f *FuncCall, ns Namespace) (any, error) {
	name := strings.ToUpper(f.Name)
	switch name {
	case FuncLTrim, FuncRTrim, FuncTrim:
		if len(f.Args) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(f.Args))
		}
		v, err := Evaluate(f.Args[0], ns)
		if err != nil || v == nil {
			return nil, err
		}
		s := toString(v)
		switch name {
		case FuncLTrim:
			return strings.TrimLeftFunc(s, unicode.IsSpace), nil
		case FuncRTrim:
			return strings.TrimRightFunc(s, unicode.IsSpace), nil
		}
		return strings.TrimSpace(s), nil

	case FuncDatePart:
		if len(f.Args) != 2 {
			return nil, fmt.Errorf("%s expects 2 arguments, got %d", name, len(f.Args))
		}
		part, err := partName(f.Args[0], ns)
		if err != nil {
			return nil, err
		}
		return evalDatePart(part, f.Args[1], ns)

	case FuncYear, FuncMonth, FuncDay, FuncHour, FuncMinute, FuncSecond, FuncWeekday:
		if len(f.Args) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(f.Args))
		}
		return evalDatePart(name, f.Args[0], ns)
	}
	return nil, fmt.Errorf("%w: function %s", ErrNotEvaluable, f.Name)
}

func partName(e Expression, ns Namespace) (string, error) {
	if id, ok := e.(*RawIdent); ok {
		return id.Name, nil
	}
	v, err := Evaluate(e, ns)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// evalDatePart returns nil for null input and for values that are not
// date/times.
func evalDatePart(part string, arg Expression, ns Namespace) (any, error) {
	v, err := Evaluate(arg, ns)
	if err != nil || v == nil {
		return nil, err
	}
	t, ok := toTime(v, time.Local)
	if !ok {
		return nil, nil
	}
	n, ok := DatePart(part, t)
	if !ok {
		return nil, fmt.Errorf("unknown date part %q", part)
	}
	return n, nil
}
