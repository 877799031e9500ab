package lastvalue

import (
	"math"
	"time"

	"github.com/obsidianstack/singlestat/pkg/table"
)

// Point is one extracted value together with where it came from.
type Point struct {
	// Key is the column key the value was read from.
	Key string
	// Row is the winning row index.
	Row int
	// Time is the ranking timestamp of the row; zero when the table has none.
	Time  time.Time
	Value float64
}

// Latest returns the most recent non-NaN numeric values of t.
//
// Rows are ranked by _time (or _stop when _time is absent). Every row tied at
// the newest timestamp contributes one value per value column, rows first and
// columns in extraction order. A single-row table needs no time key.
func Latest(t *table.Table) []float64 {
	pts := Extract(t)
	if len(pts) == 0 {
		return nil
	}
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

// Extract is like Latest but reports the column, row and timestamp of every
// value.
func Extract(t *table.Table) []Point {
	keys := valueColumns(t)
	if len(keys) == 0 {
		return nil
	}

	cols := make([][]float64, len(keys))
	for i, k := range keys {
		col, _ := t.Column(k)
		cols[i] = col.Floats()
	}

	times, hasTime := timeSequence(t)
	if !hasTime && t.Len() != 1 {
		return nil
	}

	var rows []int
	if t.Len() == 1 {
		rows = []int{0}
	} else {
		rows = MaxFunc(rowIndices(t.Len()), func(i int) (time.Time, bool) {
			if times[i].IsZero() || !anyValue(cols, i) {
				return time.Time{}, false
			}
			return times[i], true
		}, time.Time.Compare)
	}

	out := make([]Point, 0, len(rows)*len(cols))
	for _, row := range rows {
		var ts time.Time
		if hasTime {
			ts = times[row]
		}
		for i, col := range cols {
			v := col[row]
			if math.IsNaN(v) {
				continue
			}
			out = append(out, Point{Key: keys[i], Row: row, Time: ts, Value: v})
		}
	}
	return out
}

// anyValue reports whether at least one column holds a non-NaN value at row.
func anyValue(cols [][]float64, row int) bool {
	for _, col := range cols {
		if !math.IsNaN(col[row]) {
			return true
		}
	}
	return false
}

func rowIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
