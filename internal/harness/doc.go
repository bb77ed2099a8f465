// Package harness runs filter conformance scenarios.
//
// A scenario is a YAML file naming a dialect, a schema and a list of cases.
// Filter cases compile one filter string against a column of a given kind
// and check the rendered condition, the compile error, or which values the
// condition accepts. Command cases build SELECT, UPDATE, DELETE and
// [NOT] EXISTS statements through the changeset builder and check the
// rendered SQL.
//
//	name: number_filters
//	description: ranges and comparisons
//	dialect: postgres
//	filters:
//	  - filter: "1-4"
//	    kind: number
//	    sql: Value BETWEEN 1 AND 4
//	    matches: [1, 2.5, 4]
//	    rejects: [0, 5]
//
// Every run also produces a transcript of all rendered SQL. RunWithGolden
// compares it against testdata/golden/<name>.golden:
//
//	go test ./internal/harness -update
//
// Scenarios are independent. RunAll executes them concurrently, each with
// its own clock and dumper.
package harness
