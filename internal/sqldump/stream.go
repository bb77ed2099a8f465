package sqldump

import "strings"

// OutputStream receives rendered SQL. WriteRaw appends text to the current
// command; EndCommand closes it. The stream decides what a command boundary
// means: a separator in a script, a round trip to a database.
type OutputStream interface {
	WriteRaw(s string)
	EndCommand()
}

// CommentWriter is implemented by streams that can carry comments between
// commands. Streams without it drop comments.
type CommentWriter interface {
	WriteComment(line string)
}

// StringStream collects a script in memory. Commands are terminated with
// ";" and a newline.
type StringStream struct {
	buf      strings.Builder
	cur      strings.Builder
	commands []string
}

func (s *StringStream) WriteRaw(text string) {
	s.buf.WriteString(text)
	s.cur.WriteString(text)
}

func (s *StringStream) EndCommand() {
	s.buf.WriteString(";\n")
	s.commands = append(s.commands, strings.TrimSpace(s.cur.String()))
	s.cur.Reset()
}

func (s *StringStream) WriteComment(line string) {
	s.buf.WriteString("-- " + line + "\n")
}

// String returns the whole script, including text written after the last
// EndCommand.
func (s *StringStream) String() string {
	return s.buf.String()
}

// Commands returns the completed commands without terminators.
func (s *StringStream) Commands() []string {
	return append([]string(nil), s.commands...)
}
