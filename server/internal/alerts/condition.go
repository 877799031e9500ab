package alerts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/obsidianstack/singlestat/pkg/types"
)

// condition is a parsed "field op threshold" rule expression.
//
// Supported fields:
//
//	value       first latest value (the single stat)
//	max         largest latest value
//	min         smallest latest value
//	count       number of latest values
//	age_s       seconds since the snapshot timestamp
//	uptime_pct  scrape success ratio
//	state       ok | no_data | unknown (== and != only)
type condition struct {
	field     string
	op        string
	threshold float64
	text      string // right-hand side for state comparisons
}

var numericFields = map[string]bool{
	"value":      true,
	"max":        true,
	"min":        true,
	"count":      true,
	"age_s":      true,
	"uptime_pct": true,
}

// parseCondition parses expressions such as "value > 90" or "state == no_data".
func parseCondition(expr string) (condition, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	c := condition{field: parts[0], op: parts[1]}

	if c.field == "state" {
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("condition %q: state supports == and != only", expr)
		}
		c.text = parts[2]
		return c, nil
	}

	if !numericFields[c.field] {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", expr, c.field)
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, c.op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: threshold: %w", expr, err)
	}
	c.threshold = v
	return c, nil
}

// eval reports whether the condition holds for snap at now, and the value
// that was compared. A field with no value (value/max/min on an empty
// snapshot) never fires.
func (c condition) eval(snap *types.Snapshot, now time.Time) (bool, float64) {
	if c.field == "state" {
		eq := snap.State == c.text
		if c.op == "!=" {
			return !eq, 0
		}
		return eq, 0
	}

	v, ok := fieldValue(c.field, snap, now)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

// fieldValue maps a numeric field name to its value in the snapshot.
func fieldValue(field string, snap *types.Snapshot, now time.Time) (float64, bool) {
	switch field {
	case "value":
		return snap.First()
	case "max", "min":
		if len(snap.Values) == 0 {
			return 0, false
		}
		v := snap.Values[0]
		for _, x := range snap.Values[1:] {
			if field == "max" {
				v = math.Max(v, x)
			} else {
				v = math.Min(v, x)
			}
		}
		return v, true
	case "count":
		return float64(len(snap.Values)), true
	case "age_s":
		if snap.TimestampUnix == 0 {
			return 0, false
		}
		return now.Sub(time.Unix(snap.TimestampUnix, 0)).Seconds(), true
	case "uptime_pct":
		return snap.UptimePct, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
