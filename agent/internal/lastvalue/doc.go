// Package lastvalue extracts the most recently observed numeric value(s) from
// a columnar result table.
//
// columns.go decides which columns carry metric values (numeric, not one of
// the structural columns _start, _stop, _time, table, result or "") and orders
// them so keys containing "_value" come first.
//
// timekey.go picks the timestamps used to rank rows: _time, falling back to
// _stop when an aggregation dropped the point-in-time column.
//
// maxima.go provides MaxFunc, a generic tie-aware arg-max that returns every
// element attaining the maximum rank, in input order.
//
// extract.go composes the above into Extract and Latest. Both are pure
// functions of an immutable table: no I/O, no locks, no errors. Degenerate
// input (no value columns, or a multi-row table without a time key) yields an
// empty result, which callers should read as "no value available".
package lastvalue
