package filter

import (
	"strings"
	"unicode"
)

// term is one whitespace separated unit of a clause. Quoted sections keep
// their quotes so grammars can tell 'x' from x.
type term struct {
	text   string
	pos    int
	quoted bool
}

var operators = []string{">=", "<=", "<>", "!=", "==", "=", ">", "<"}

// splitOperator separates a leading relational operator from the rest of s.
func splitOperator(s string) (op, rest string) {
	for _, o := range operators {
		if strings.HasPrefix(s, o) {
			return o, s[len(o):]
		}
	}
	return "", s
}

// scan splits text into clauses of terms. A term consisting of an operator
// alone is glued to the following term, so "> 5" reads as ">5".
func scan(kind Kind, text string) ([][]term, error) {
	fail := func(pos int, msg string) error {
		return &CompileError{Kind: kind, Text: text, Pos: pos, Message: msg}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fail(0, "empty filter")
	}

	var (
		clauses [][]term
		clause  []term
		cur     strings.Builder
		start   = -1
		quote   rune
		quoted  bool
	)
	flushTerm := func() {
		if start >= 0 {
			clause = append(clause, term{text: cur.String(), pos: start, quoted: quoted})
		}
		cur.Reset()
		start, quoted = -1, false
	}
	flushClause := func(pos int) error {
		flushTerm()
		if len(clause) == 0 {
			return fail(pos, "empty clause")
		}
		clauses = append(clauses, glueOperators(clause))
		clause = nil
		return nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					cur.WriteRune(r)
					i++
					continue
				}
				quote = 0
			}
		case r == '\'' || r == '"':
			if start < 0 {
				start = i
			}
			quote, quoted = r, true
			cur.WriteRune(r)
		case r == ',':
			if err := flushClause(i); err != nil {
				return nil, err
			}
		case unicode.IsSpace(r):
			flushTerm()
		default:
			if start < 0 {
				start = i
			}
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fail(start, "unterminated quoted string")
	}
	if err := flushClause(len(runes)); err != nil {
		return nil, err
	}
	return clauses, nil
}

func glueOperators(terms []term) []term {
	var out []term
	for i := 0; i < len(terms); i++ {
		t := terms[i]
		if op, rest := splitOperator(t.text); op != "" && rest == "" && i+1 < len(terms) {
			next := terms[i+1]
			t = term{text: op + next.text, pos: t.pos, quoted: next.quoted}
			i++
		}
		out = append(out, t)
	}
	return out
}

// unquote strips one level of matching quotes and collapses doubled quotes.
func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		q := string(s[0])
		return strings.ReplaceAll(s[1:len(s)-1], q+q, q), true
	}
	return s, false
}
