package sqldump

import "fmt"

// UnsupportedOperationError is returned when the dialect has no way to
// express an operation, neither directly nor through a fallback.
type UnsupportedOperationError struct {
	Dialect   string
	Operation string
	Object    string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("%s: %s is not supported", e.Dialect, e.Operation)
	}
	return fmt.Sprintf("%s: %s is not supported (%s)", e.Dialect, e.Operation, e.Object)
}

// FormatError is a malformed Put format or an argument of the wrong type.
type FormatError struct {
	Format  string
	Pos     int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %q at %d: %s", e.Format, e.Pos, e.Message)
}
