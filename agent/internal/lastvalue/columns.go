package lastvalue

import (
	"sort"
	"strings"

	"github.com/obsidianstack/singlestat/pkg/table"
)

// structural lists the column names that describe the table itself.
var structural = map[string]struct{}{
	table.KeyStart:  {},
	table.KeyStop:   {},
	table.KeyTime:   {},
	table.KeyTable:  {},
	table.KeyResult: {},
	"":              {},
}

// isValueColumn reports whether the column under key is numeric and not a
// structural column.
func isValueColumn(t *table.Table, key string) bool {
	col, ok := t.Column(key)
	if !ok || col.Type != table.Numeric {
		return false
	}
	_, skip := structural[col.Name]
	return !skip
}

// valueColumns returns the eligible value column keys in extraction order.
func valueColumns(t *table.Table) []string {
	var keys []string
	for _, k := range t.Keys() {
		if isValueColumn(t, k) {
			keys = append(keys, k)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return valueFirst(keys[i], keys[j])
	})
	return keys
}

// valueFirst orders keys containing "_value" ahead of all others and falls
// back to lexical order. Two "_value" keys compare equal so a stable sort
// keeps their table order.
func valueFirst(a, b string) bool {
	av := strings.Contains(a, table.KeyValue)
	bv := strings.Contains(b, table.KeyValue)
	switch {
	case av && bv:
		return false
	case av:
		return true
	case bv:
		return false
	default:
		return a < b
	}
}
