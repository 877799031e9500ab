// Package table defines the columnar result table shared by the agent's
// window builder and the latest-value extractor.
//
// A Table is an ordered set of typed columns keyed by a unique string. Every
// column holds exactly Len() values, index-aligned with every other column.
// Column data lives in a slice whose element type is fixed by the column's
// Type tag:
//
//	Numeric → []float64   (NaN marks a missing reading)
//	String  → []string
//	Time    → []time.Time (the zero time marks an undefined timestamp)
//	Boolean → []bool
//
// Keys are iterated in insertion order so callers see a deterministic layout.
// Tables are built once and then treated as read-only.
package table
