package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/condsql/internal/ast"
)

var (
	dateYMDRe  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dateDMYRe  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})?$`)
	dateMDYRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	yearMonRe  = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	yearRe     = regexp.MustCompile(`^\d{4}$`)
	timeRe     = regexp.MustCompile(`^(\d{1,2}):(\d{2}|\*)(?::(\d{2})(?:\.(\d{1,9}))?)?$`)
	isoSplitRe = regexp.MustCompile(`^(\d{4}-\d{1,2}-\d{1,2})[Tt](.+)$`)
)

var weekdays = map[string]time.Weekday{
	"SUN": time.Sunday, "SUNDAY": time.Sunday,
	"MON": time.Monday, "MONDAY": time.Monday,
	"TUE": time.Tuesday, "TUESDAY": time.Tuesday,
	"WED": time.Wednesday, "WEDNESDAY": time.Wednesday,
	"THU": time.Thursday, "THURSDAY": time.Thursday,
	"FRI": time.Friday, "FRIDAY": time.Friday,
	"SAT": time.Saturday, "SATURDAY": time.Saturday,
}

var months = map[string]time.Month{
	"JAN": time.January, "JANUARY": time.January,
	"FEB": time.February, "FEBRUARY": time.February,
	"MAR": time.March, "MARCH": time.March,
	"APR": time.April, "APRIL": time.April,
	"MAY": time.May,
	"JUN": time.June, "JUNE": time.June,
	"JUL": time.July, "JULY": time.July,
	"AUG": time.August, "AUGUST": time.August,
	"SEP": time.September, "SEPTEMBER": time.September,
	"OCT": time.October, "OCTOBER": time.October,
	"NOV": time.November, "NOVEMBER": time.November,
	"DEC": time.December, "DECEMBER": time.December,
}

// window is a half-open [start, end) interval.
type window struct {
	start, end time.Time
}

// CompileDateTime parses a date/time filter.
//
//	TODAY, YESTERDAY, TOMORROW
//	THIS|NEXT|LAST HOUR|DAY|WEEK|MONTH|YEAR
//	2016-03-05, 5.3.2016, 5.3., 3/5/2016, 2016-03   optionally followed by
//	10:01, 10:01:33, 10:01:33.25, 10:*
//	MON..SUN, JAN..DEC, 2017                        calendar components
//	NULL
//
// A term without an operator tests the window [start, end). With an
// operator the boundary is used instead: >= start, > end, < start, <= end.
func CompileDateTime(expr ast.Expression, text string, opts ...Option) (ast.Condition, error) {
	o := buildOptions(opts)
	now := o.now()
	p := &dateParser{expr: expr, now: now, loc: now.Location()}
	return compileClauses(KindDateTime, text, p.term)
}

type dateParser struct {
	expr ast.Expression
	now  time.Time
	loc  *time.Location
}

func (p *dateParser) term(terms []term, i int) (ast.Condition, int, error) {
	t := terms[i]
	op, body := splitOperator(t.text)
	body, _ = unquote(body)
	up := strings.ToUpper(body)

	switch up {
	case "NULL":
		if op != "" {
			return nil, 0, errAt(t, "operator not allowed before NULL")
		}
		return &ast.IsNull{Expr: p.expr}, 1, nil
	case "TODAY":
		return p.windowCond(op, p.dayWindow(0)), 1, nil
	case "YESTERDAY":
		return p.windowCond(op, p.dayWindow(-1)), 1, nil
	case "TOMORROW":
		return p.windowCond(op, p.dayWindow(1)), 1, nil
	case "THIS", "NEXT", "LAST":
		if i+1 >= len(terms) {
			return nil, 0, errAt(t, "%s needs a unit", up)
		}
		shift := map[string]int{"THIS": 0, "NEXT": 1, "LAST": -1}[up]
		w, ok := p.periodWindow(strings.ToUpper(terms[i+1].text), shift)
		if !ok {
			return nil, 0, errAt(terms[i+1], "unknown unit %q", terms[i+1].text)
		}
		return p.windowCond(op, w), 2, nil
	}

	if wd, ok := weekdays[up]; ok {
		return p.componentCond(t, op, ast.FuncWeekday, int64(wd))
	}
	if m, ok := months[up]; ok {
		return p.componentCond(t, op, ast.FuncMonth, int64(m))
	}
	if yearRe.MatchString(body) {
		y, _ := strconv.Atoi(body)
		if op == "" || op == "=" || op == "==" {
			return p.componentCond(t, "", ast.FuncYear, int64(y))
		}
		start := time.Date(y, 1, 1, 0, 0, 0, 0, p.loc)
		return p.windowCond(op, window{start, start.AddDate(1, 0, 0)}), 1, nil
	}
	if m := yearMonRe.FindStringSubmatch(body); m != nil {
		y, _ := strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		if mon < 1 || mon > 12 {
			return nil, 0, errAt(t, "invalid month in %q", body)
		}
		start := time.Date(y, time.Month(mon), 1, 0, 0, 0, 0, p.loc)
		return p.windowCond(op, window{start, start.AddDate(0, 1, 0)}), 1, nil
	}

	datePart, timePart := body, ""
	if m := isoSplitRe.FindStringSubmatch(body); m != nil {
		datePart, timePart = m[1], m[2]
	}

	used := 1
	day, ok, err := p.parseDate(datePart)
	if err != nil {
		return nil, 0, errAt(t, "%v", err)
	}
	if !ok {
		// a bare time of day applies to today
		if !timeRe.MatchString(body) {
			return nil, 0, errAt(t, "cannot parse %q as date or time", t.text)
		}
		day, timePart = p.dayWindow(0).start, body
	} else if timePart == "" && i+1 < len(terms) && timeRe.MatchString(terms[i+1].text) {
		timePart = terms[i+1].text
		used = 2
	}

	w := window{day, day.AddDate(0, 0, 1)}
	if timePart != "" {
		if w, err = timeWindow(day, timePart); err != nil {
			return nil, 0, errAt(t, "%v", err)
		}
	}
	return p.windowCond(op, w), used, nil
}

// parseDate reads the date forms. ok is false when s is not a date at all;
// err is set when it looks like one but is invalid.
func (p *dateParser) parseDate(s string) (time.Time, bool, error) {
	var y, m, d int
	switch {
	case dateYMDRe.MatchString(s):
		g := dateYMDRe.FindStringSubmatch(s)
		y, m, d = atoi(g[1]), atoi(g[2]), atoi(g[3])
	case dateDMYRe.MatchString(s):
		g := dateDMYRe.FindStringSubmatch(s)
		d, m = atoi(g[1]), atoi(g[2])
		y = p.now.Year()
		if g[3] != "" {
			y = atoi(g[3])
		}
	case dateMDYRe.MatchString(s):
		g := dateMDYRe.FindStringSubmatch(s)
		m, d, y = atoi(g[1]), atoi(g[2]), atoi(g[3])
	default:
		return time.Time{}, false, nil
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, p.loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, true, &dateError{s}
	}
	return t, true, nil
}

type dateError struct{ text string }

func (e *dateError) Error() string { return "invalid date " + strconv.Quote(e.text) }

// timeWindow narrows a day to the precision written in s.
func timeWindow(day time.Time, s string) (window, error) {
	g := timeRe.FindStringSubmatch(s)
	if g == nil {
		return window{}, &dateError{s}
	}
	h := atoi(g[1])
	if h > 23 {
		return window{}, &dateError{s}
	}
	start := day.Add(time.Duration(h) * time.Hour)
	if g[2] == "*" {
		if g[3] != "" {
			return window{}, &dateError{s}
		}
		return window{start, start.Add(time.Hour)}, nil
	}
	mi := atoi(g[2])
	if mi > 59 {
		return window{}, &dateError{s}
	}
	start = start.Add(time.Duration(mi) * time.Minute)
	if g[3] == "" {
		return window{start, start.Add(time.Minute)}, nil
	}
	sec := atoi(g[3])
	if sec > 59 {
		return window{}, &dateError{s}
	}
	start = start.Add(time.Duration(sec) * time.Second)
	if g[4] == "" {
		return window{start, start.Add(time.Second)}, nil
	}
	// the digit count sets the width: .35 is [350ms, 360ms)
	frac := g[4]
	unit := time.Duration(math.Pow10(9 - len(frac)))
	start = start.Add(time.Duration(atoi(frac)) * unit)
	return window{start, start.Add(unit)}, nil
}

func (p *dateParser) dayWindow(offset int) window {
	y, m, d := p.now.Date()
	start := time.Date(y, m, d+offset, 0, 0, 0, 0, p.loc)
	return window{start, start.AddDate(0, 0, 1)}
}

// periodWindow returns the unit-long period containing now, shifted by
// shift units. Weeks start on Monday.
func (p *dateParser) periodWindow(unit string, shift int) (window, bool) {
	y, m, d := p.now.Date()
	switch unit {
	case "HOUR":
		start := time.Date(y, m, d, p.now.Hour()+shift, 0, 0, 0, p.loc)
		return window{start, start.Add(time.Hour)}, true
	case "DAY":
		return p.dayWindow(shift), true
	case "WEEK":
		back := (int(p.now.Weekday()) + 6) % 7
		start := time.Date(y, m, d-back+7*shift, 0, 0, 0, 0, p.loc)
		return window{start, start.AddDate(0, 0, 7)}, true
	case "MONTH":
		start := time.Date(y, m+time.Month(shift), 1, 0, 0, 0, 0, p.loc)
		return window{start, start.AddDate(0, 1, 0)}, true
	case "YEAR":
		start := time.Date(y+shift, 1, 1, 0, 0, 0, 0, p.loc)
		return window{start, start.AddDate(1, 0, 0)}, true
	}
	return window{}, false
}

func (p *dateParser) windowCond(op string, w window) ast.Condition {
	start, end := ast.Lit(w.start), ast.Lit(w.end)
	switch op {
	case ">=":
		return ast.Cmp(p.expr, ast.OpGe, start)
	case ">":
		return ast.Cmp(p.expr, ast.OpGe, end)
	case "<":
		return ast.Cmp(p.expr, ast.OpLt, start)
	case "<=":
		return ast.Cmp(p.expr, ast.OpLt, end)
	case "<>", "!=":
		return ast.OrOf(ast.Cmp(p.expr, ast.OpLt, start), ast.Cmp(p.expr, ast.OpGe, end))
	}
	return ast.AndOf(ast.Cmp(p.expr, ast.OpGe, start), ast.Cmp(p.expr, ast.OpLt, end))
}

func (p *dateParser) componentCond(t term, op, fn string, value int64) (ast.Condition, int, error) {
	if op != "" && op != "=" && op != "==" {
		return nil, 0, errAt(t, "operator %q not allowed before %s", op, strings.ToLower(fn))
	}
	return ast.Cmp(ast.Call(fn, p.expr), ast.OpEq, ast.Lit(value)), 1, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
