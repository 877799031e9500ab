// Package compute turns scrape rows into latest-value results.
//
// engine.go provides the stateful Engine. Each source keeps a rolling window
// of up to N scrape rows; after every scrape the window is laid out as a
// table and lastvalue.Extract picks the newest non-NaN values from it.
// Engine.Process accepts an injectable time.Time so tests are deterministic.
//
// window.go builds the table. Raw windows carry _start, _stop, _time, table,
// result and one numeric column per series. With Options.AggregateEvery set
// the rows are bucketed into NaN-ignoring means and the table keeps only the
// bucket bounds, so the extractor ranks buckets on _stop.
//
// Result states: ok (values present), no_data (nothing extractable),
// unknown (scrape failed).
package compute
