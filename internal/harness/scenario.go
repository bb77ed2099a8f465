package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/condsql/internal/filter"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect renders the SQL. Defaults to sqlite.
	Dialect string `yaml:"dialect,omitempty"`

	// Now pins the clock relative datetime filters resolve against
	// (RFC 3339). Defaults to DefaultNow.
	Now string `yaml:"now,omitempty"`

	// Schema is a CUE schema directory, relative to the scenario file.
	// Empty uses the built-in sales schema (Countries, Customers, Orders).
	Schema string `yaml:"schema,omitempty"`

	Filters  []FilterCase  `yaml:"filters,omitempty"`
	Commands []CommandCase `yaml:"commands,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// DefaultNow is a Wednesday afternoon.
var DefaultNow = time.Date(2024, 3, 6, 14, 30, 0, 0, time.UTC)

// FilterCase compiles a single filter.
type FilterCase struct {
	Filter string `yaml:"filter"`

	// Kind is string, number, datetime or logical. Defaults to string.
	Kind string `yaml:"kind,omitempty"`

	// Column is the unqualified column the filter applies to. Defaults to
	// "Value".
	Column string `yaml:"column,omitempty"`

	// SQL is the expected one-line condition.
	SQL string `yaml:"sql,omitempty"`

	// Error is a substring of the expected compile error.
	Error string `yaml:"error,omitempty"`

	// Matches and Rejects are values the condition must accept and refuse.
	Matches []any `yaml:"matches,omitempty"`
	Rejects []any `yaml:"rejects,omitempty"`
}

// CommandCase builds a statement over a changeset item.
type CommandCase struct {
	// Op is select, update, delete, exists or not_exists.
	Op    string `yaml:"op"`
	Table string `yaml:"table"`

	// Where holds "path=filter" conditions, ANDed together.
	Where []string `yaml:"where,omitempty"`

	// Columns are the selected column paths (select only).
	Columns []string `yaml:"columns,omitempty"`

	// Set holds "column=text" assignments of string values (update only).
	Set []string `yaml:"set,omitempty"`

	SQL   string `yaml:"sql,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Command operation constants.
const (
	OpSelect    = "select"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpExists    = "exists"
	OpNotExists = "not_exists"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "filter:" vs "filters:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Path = path

	// Resolve the schema path relative to the scenario BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file of dir, sorted by file name.
// pattern, when not empty, is a glob the scenario name must match.
func LoadScenarios(dir, pattern string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var scenarios []*Scenario
	for _, name := range names {
		sc, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if pattern != "" {
			ok, err := filepath.Match(pattern, sc.Name)
			if err != nil {
				return nil, fmt.Errorf("bad scenario pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Filters) == 0 && len(s.Commands) == 0 {
		return fmt.Errorf("at least one filter or command case is required")
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	if s.Schema != "" {
		if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
			return fmt.Errorf("schema directory not found: %s", s.Schema)
		}
	}

	for i, c := range s.Filters {
		if strings.TrimSpace(c.Filter) == "" && c.Error == "" {
			return fmt.Errorf("filters[%d]: filter is required", i)
		}
		if c.Kind != "" {
			if _, err := filter.ParseKind(c.Kind); err != nil {
				return fmt.Errorf("filters[%d]: %w", i, err)
			}
		}
		if c.SQL != "" && c.Error != "" {
			return fmt.Errorf("filters[%d]: sql and error are exclusive", i)
		}
	}

	for i, c := range s.Commands {
		switch c.Op {
		case OpSelect, OpDelete, OpExists, OpNotExists:
		case OpUpdate:
			if len(c.Set) == 0 && c.Error == "" {
				return fmt.Errorf("commands[%d]: set is required for update", i)
			}
		case "":
			return fmt.Errorf("commands[%d]: op is required", i)
		default:
			return fmt.Errorf("commands[%d]: unknown op %q", i, c.Op)
		}
		if c.Table == "" {
			return fmt.Errorf("commands[%d]: table is required", i)
		}
		if c.SQL != "" && c.Error != "" {
			return fmt.Errorf("commands[%d]: sql and error are exclusive", i)
		}
	}

	return nil
}
