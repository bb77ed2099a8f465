// Package sqldump renders query trees and schema changes as SQL text for a
// dialect.
//
// All output goes through Put, a small format language:
//
//	^word   keyword, cased by the dialect
//	%i      identifier (string), quoted when needed
//	%f      qualified name (schema.NameWithSchema)
//	%l      linked server prefix (string), nothing when empty
//	%s      raw text
//	%k      raw text cased as a keyword (data types)
//	%v      literal value
//	%e      ast.Expression
//	%c      ast.Condition
//	%,X     comma separated list of the above for X in i f s v e
//	&n      line break (a space in one-line mode)
//	&> &<   indent, outdent
//	%% &&   literal % and &
//
// A Dumper writes into an OutputStream and keeps the first error it hits.
// Once an error is recorded every later call is a no-op; check Err after a
// batch of calls.
package sqldump

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/schema"
)

// FormatOptions control layout, never semantics.
type FormatOptions struct {
	// OneLine renders line breaks as single spaces.
	OneLine bool
	// QuoteAll quotes every identifier, not just those that need it.
	QuoteAll bool
	// Indent is one indentation step. Defaults to two spaces.
	Indent string
}

// Dumper renders SQL for one dialect. Not safe for concurrent use; create
// one per goroutine.
type Dumper struct {
	out     OutputStream
	dialect *dialect.Dialect
	format  FormatOptions
	namer   NameGenerator
	logger  *slog.Logger

	depth     int
	lineStart bool
	// bareAlias: column references through this alias render unqualified.
	bareAlias string
	err       error
}

// Option configures a Dumper.
type Option func(*Dumper)

// WithFormat sets layout options.
func WithFormat(f FormatOptions) Option {
	return func(d *Dumper) { d.format = f }
}

// WithNamer sets the temp table name source used by RecreateTable. The
// default is SharedNamer.
func WithNamer(n NameGenerator) Option {
	return func(d *Dumper) { d.namer = n }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dumper) { d.logger = l }
}

// New creates a Dumper writing to out.
func New(out OutputStream, dl *dialect.Dialect, opts ...Option) *Dumper {
	d := &Dumper{
		out:     out,
		dialect: dl,
		namer:   sharedNamer,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.format.Indent == "" {
		d.format.Indent = "  "
	}
	return d
}

// Dialect returns the dialect the dumper renders for.
func (d *Dumper) Dialect() *dialect.Dialect { return d.dialect }

// Err returns the first error recorded, or nil.
func (d *Dumper) Err() error { return d.err }

func (d *Dumper) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Dumper) unsupported(op, object string) error {
	err := &UnsupportedOperationError{Dialect: d.dialect.Name, Operation: op, Object: object}
	d.fail(err)
	return err
}

// EndCommand closes the current command.
func (d *Dumper) EndCommand() {
	if d.err != nil {
		return
	}
	d.out.EndCommand()
	d.depth = 0
	d.lineStart = false
}

// PutCmd renders format and closes the command.
func (d *Dumper) PutCmd(format string, args ...any) {
	d.Put(format, args...)
	d.EndCommand()
}

// Put renders format with args into the current command.
func (d *Dumper) Put(format string, args ...any) {
	if d.err != nil {
		return
	}
	next := 0
	for i := 0; i < len(format); i++ {
		switch c := format[i]; c {
		case '^':
			j := i + 1
			for j < len(format) && isWordByte(format[j]) {
				j++
			}
			if j == i+1 {
				d.write("^")
				continue
			}
			d.write(d.dialect.Keyword(format[i+1 : j]))
			i = j - 1
		case '%':
			if i+1 >= len(format) {
				d.fail(&FormatError{Format: format, Pos: i, Message: "dangling %"})
				return
			}
			i++
			verb, list := format[i], false
			if verb == '%' {
				d.write("%")
				continue
			}
			if verb == ',' {
				if i+1 >= len(format) {
					d.fail(&FormatError{Format: format, Pos: i, Message: "dangling %,"})
					return
				}
				i++
				verb, list = format[i], true
			}
			if next >= len(args) {
				d.fail(&FormatError{Format: format, Pos: i, Message: "missing argument"})
				return
			}
			arg := args[next]
			next++
			ok := false
			if list {
				ok = d.putList(verb, arg)
			} else {
				ok = d.putArg(verb, arg)
			}
			if !ok {
				d.fail(&FormatError{Format: format, Pos: i, Message: fmt.Sprintf("cannot use %T with verb %c", arg, verb)})
				return
			}
			if d.err != nil {
				return
			}
		case '&':
			if i+1 >= len(format) {
				d.fail(&FormatError{Format: format, Pos: i, Message: "dangling &"})
				return
			}
			i++
			switch format[i] {
			case 'n':
				d.newline()
			case '>':
				d.depth++
			case '<':
				if d.depth > 0 {
					d.depth--
				}
			case '&':
				d.write("&")
			default:
				d.fail(&FormatError{Format: format, Pos: i, Message: "unknown layout directive"})
				return
			}
		default:
			j := i
			for j < len(format) && format[j] != '^' && format[j] != '%' && format[j] != '&' {
				j++
			}
			d.write(format[i:j])
			i = j - 1
		}
	}
	if next < len(args) {
		d.fail(&FormatError{Format: format, Pos: len(format), Message: "too many arguments"})
	}
}

func (d *Dumper) putArg(verb byte, arg any) bool {
	switch verb {
	case 'i':
		s, ok := arg.(string)
		if ok {
			d.write(d.ident(s))
		}
		return ok
	case 'f':
		switch n := arg.(type) {
		case schema.NameWithSchema:
			d.write(d.fullName(n))
			return true
		case *schema.NameWithSchema:
			if n == nil {
				return false
			}
			d.write(d.fullName(*n))
			return true
		}
		return false
	case 'l':
		s, ok := arg.(string)
		if ok && s != "" {
			d.write(d.ident(s) + ".")
		}
		return ok
	case 's':
		d.write(fmt.Sprint(arg))
		return true
	case 'k':
		s, ok := arg.(string)
		if ok {
			d.write(d.dialect.Keyword(s))
		}
		return ok
	case 'v':
		s, ok := d.value(arg)
		if ok {
			d.write(s)
		}
		return ok
	case 'e':
		e, ok := arg.(ast.Expression)
		if ok {
			d.Expression(e)
		}
		return ok
	case 'c':
		c, ok := arg.(ast.Condition)
		if ok {
			d.Condition(c)
		}
		return ok
	}
	return false
}

func (d *Dumper) putList(verb byte, arg any) bool {
	switch xs := arg.(type) {
	case []string:
		if verb != 'i' && verb != 's' && verb != 'k' {
			return false
		}
		for i, x := range xs {
			if i > 0 {
				d.write(", ")
			}
			d.putArg(verb, x)
		}
		return true
	case []schema.NameWithSchema:
		if verb != 'f' {
			return false
		}
		for i, x := range xs {
			if i > 0 {
				d.write(", ")
			}
			d.putArg(verb, x)
		}
		return true
	case []any:
		for i, x := range xs {
			if i > 0 {
				d.write(", ")
			}
			if !d.putArg(verb, x) {
				return false
			}
		}
		return true
	case []ast.Expression:
		if verb != 'e' {
			return false
		}
		for i, x := range xs {
			if i > 0 {
				d.write(", ")
			}
			d.Expression(x)
		}
		return true
	}
	return false
}

func (d *Dumper) write(s string) {
	if s == "" {
		return
	}
	if d.lineStart {
		d.out.WriteRaw(strings.Repeat(d.format.Indent, d.depth))
		d.lineStart = false
	}
	d.out.WriteRaw(s)
}

func (d *Dumper) newline() {
	if d.format.OneLine {
		d.write(" ")
		return
	}
	d.out.WriteRaw("\n")
	d.lineStart = true
}

func (d *Dumper) ident(s string) string {
	if d.format.QuoteAll {
		return d.dialect.Quote(s)
	}
	return d.dialect.QuoteIfNeeded(s)
}

func (d *Dumper) fullName(n schema.NameWithSchema) string {
	if n.Schema == "" {
		return d.ident(n.Name)
	}
	return d.ident(n.Schema) + "." + d.ident(n.Name)
}

func (d *Dumper) value(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return d.dialect.Keyword("null"), true
	case bool:
		if x {
			return d.dialect.TrueLiteral, true
		}
		return d.dialect.FalseLiteral, true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case string:
		return d.dialect.StringLiteral(x), true
	case time.Time:
		return d.dialect.StringLiteral(x.Format(d.dialect.DateTimeLayout)), true
	}
	return "", false
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// RenderCondition renders c as a one-line string.
func RenderCondition(dl *dialect.Dialect, c ast.Condition, opts ...Option) (string, error) {
	var s StringStream
	d := New(&s, dl, append([]Option{WithFormat(FormatOptions{OneLine: true})}, opts...)...)
	d.Condition(c)
	return s.String(), d.Err()
}

// RenderCommand renders cmd as a single command without terminator.
func RenderCommand(dl *dialect.Dialect, cmd ast.Command, opts ...Option) (string, error) {
	var s StringStream
	d := New(&s, dl, opts...)
	d.Command(cmd)
	return s.String(), d.Err()
}
