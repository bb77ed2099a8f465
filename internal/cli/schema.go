package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/condsql/internal/compiler"
	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/filter"
)

// loadSchema loads and validates a CUE schema directory. Load errors keep
// their compiler code; the first validation error is reported with its
// own code.
func loadSchema(f *OutputFormatter, dir string) (*compiler.Result, error) {
	res, err := compiler.LoadDir(dir)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return nil, f.Fail(ExitCommandError, loadErr.Code, err)
		}
		return nil, f.Fail(ExitCommandError, compiler.ErrCodeGeneric, err)
	}
	f.VerboseLog("Loaded %s: %d table(s), %d programmable(s), %d dialect(s)",
		dir, len(res.Database.Tables), len(res.Database.Programmables), len(res.Dialects))

	if errs := compiler.Validate(res.Database); len(errs) > 0 {
		return nil, f.Fail(ExitFailure, errs[0].Code,
			fmt.Errorf("schema %s has %d error(s), first: %w", dir, len(errs), errs[0]))
	}
	return res, nil
}

// resolveDialect finds name among the schema's custom dialects, then in the
// registry. An empty name selects sqlite.
func resolveDialect(f *OutputFormatter, name string, custom ...*dialect.Dialect) (*dialect.Dialect, error) {
	if name == "" {
		name = dialect.SQLiteName
	}
	for _, d := range custom {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	d, err := dialect.Lookup(name)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDialect, err)
	}
	return d, nil
}

// filterOptions pins the clock when now is set (RFC 3339).
func filterOptions(f *OutputFormatter, now string) ([]filter.Option, error) {
	if now == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeArgument, fmt.Errorf("--now: %w", err))
	}
	return []filter.Option{filter.WithNow(func() time.Time { return t })}, nil
}
