// Package ast defines the dialect-independent condition and expression tree.
//
// The tree is a set of tagged variants sealed by unexported marker methods:
//
//   - Expression: ColumnRef, Literal, Placeholder, RawIdent, RawValue,
//     StringLit, Count, FuncCall, SubSelect
//   - Condition: IsNull, IsNotNull, Not, Binary, Between, StringTest, And,
//     Or, False, Exists, RawCondition
//
// Nodes carry data only. The two behaviors over the tree live apart:
// sqldump renders nodes to SQL text, and Evaluate/EvaluateCondition in this
// package compute values in memory against a Namespace. Both dispatch with an
// exhaustive type switch and report unknown kinds as errors.
//
// Commands (Select, Update, Delete, Insert) combine conditions with sources.
// A FromItem owns its joined relations; FromItem.ResolvePath adds LEFT joins
// for dotted foreign-key paths and reuses them by synthesized alias.
//
// Every node has a stable Tag used by the JSON and msgpack codecs in
// codec.go.
package ast
