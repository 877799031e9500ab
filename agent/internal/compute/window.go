package compute

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/obsidianstack/singlestat/pkg/table"
)

// resultName is the value of the result column, as in a Flux result table.
const resultName = "_result"

// sample is one scrape row: a timestamp and a value per series key.
type sample struct {
	at     time.Time
	values map[string]float64
}

// buildTable lays out rows as a columnar table.
//
// Raw tables carry _start/_stop (the window bounds), _time, table, result and
// one numeric column per series. Aggregated tables carry one row per bucket
// with _start/_stop bucket bounds and no _time. Series missing from a row
// are NaN. The series named by opts.ValueMetric is keyed _value.
func buildTable(rows []sample, opts Options) *table.Table {
	if opts.AggregateEvery > 0 {
		return aggregateTable(rows, opts)
	}

	n := len(rows)
	tbl := table.New(n)
	if n == 0 {
		return tbl
	}

	lo, hi := rows[0].at, rows[0].at
	times := make([]time.Time, n)
	for i, r := range rows {
		times[i] = r.at
		if r.at.Before(lo) {
			lo = r.at
		}
		if r.at.After(hi) {
			hi = r.at
		}
	}

	tbl.MustAdd(table.KeyStart, table.NewTime(table.KeyStart, fill(lo, n)))
	tbl.MustAdd(table.KeyStop, table.NewTime(table.KeyStop, fill(hi, n)))
	tbl.MustAdd(table.KeyTime, table.NewTime(table.KeyTime, times))
	addMeta(tbl, n)
	addSeries(tbl, seriesKeys(rows), opts.ValueMetric, func(key string, i int) float64 {
		if v, ok := rows[i].values[key]; ok {
			return v
		}
		return math.NaN()
	})
	return tbl
}

// bucket accumulates the NaN-ignoring sum and count of each series.
type bucket struct {
	start  time.Time
	sums   map[string]float64
	counts map[string]int
}

func aggregateTable(rows []sample, opts Options) *table.Table {
	every := opts.AggregateEvery
	byStart := make(map[time.Time]*bucket)
	var order []*bucket
	for _, r := range rows {
		start := r.at.Truncate(every)
		b, ok := byStart[start]
		if !ok {
			b = &bucket{start: start, sums: make(map[string]float64), counts: make(map[string]int)}
			byStart[start] = b
			order = append(order, b)
		}
		for k, v := range r.values {
			if math.IsNaN(v) {
				continue
			}
			b.sums[k] += v
			b.counts[k]++
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].start.Before(order[j].start) })

	n := len(order)
	tbl := table.New(n)
	if n == 0 {
		return tbl
	}

	starts := make([]time.Time, n)
	stops := make([]time.Time, n)
	for i, b := range order {
		starts[i] = b.start
		stops[i] = b.start.Add(every)
	}
	tbl.MustAdd(table.KeyStart, table.NewTime(table.KeyStart, starts))
	tbl.MustAdd(table.KeyStop, table.NewTime(table.KeyStop, stops))
	addMeta(tbl, n)
	addSeries(tbl, seriesKeys(rows), opts.ValueMetric, func(key string, i int) float64 {
		c := order[i].counts[key]
		if c == 0 {
			return math.NaN()
		}
		return order[i].sums[key] / float64(c)
	})
	return tbl
}

// addMeta adds the table and result columns every Flux table carries.
func addMeta(tbl *table.Table, n int) {
	tbl.MustAdd(table.KeyTable, table.NewNumeric(table.KeyTable, make([]float64, n)))
	tbl.MustAdd(table.KeyResult, table.NewString(table.KeyResult, fill(resultName, n)))
}

func addSeries(tbl *table.Table, keys []string, valueMetric string, at func(key string, row int) float64) {
	n := tbl.Len()
	for _, k := range keys {
		data := make([]float64, n)
		for i := range data {
			data[i] = at(k, i)
		}
		colKey := k
		if valueMetric != "" && k == valueMetric {
			colKey = table.KeyValue
		}
		// A series named like a structural column collides and is dropped.
		if err := tbl.Add(colKey, table.NewNumeric(colKey, data)); err != nil {
			slog.Debug("compute: series skipped", "series", k, "err", err)
		}
	}
}

// seriesKeys returns the sorted union of series keys across rows.
func seriesKeys(rows []sample) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r.values {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fill[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
