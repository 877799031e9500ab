package lastvalue

import (
	"time"

	"github.com/obsidianstack/singlestat/pkg/table"
)

// timeKeys is the preference order for the row ranking column. Aggregations
// usually drop _time but keep the window boundary in _stop.
var timeKeys = []string{table.KeyTime, table.KeyStop}

// timeSequence returns the timestamps used to rank rows, or false when the
// table has no Time column under any of timeKeys.
func timeSequence(t *table.Table) ([]time.Time, bool) {
	for _, k := range timeKeys {
		if col, ok := t.Column(k); ok && col.Type == table.Time {
			return col.Times(), true
		}
	}
	return nil, false
}
