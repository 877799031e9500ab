package api

import (
	"fmt"
	"time"

	"github.com/obsidianstack/singlestat/pkg/types"
)

// DiagnosticHint is one human-readable note about a source's latest value,
// shown next to the single stat.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level  string   `json:"level"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

// staleAfter is how old a sample may be before it is flagged.
const staleAfter = 5 * time.Minute

// computeDiagnostics derives hints from a snapshot at now, most severe first.
func computeDiagnostics(snap *types.Snapshot, now time.Time) []DiagnosticHint {
	if snap.ErrorMessage != "" || snap.State == "unknown" {
		return []DiagnosticHint{{
			Key:   "scrape_failed",
			Level: "critical",
			Title: "Can't reach source",
			Detail: fmt.Sprintf("The last scrape failed: %q. The values shown are empty until "+
				"the endpoint answers again.", snap.ErrorMessage),
		}}
	}

	if snap.State == "no_data" || len(snap.Values) == 0 {
		detail := "The window holds no numeric value with a timestamp. Check that the " +
			"endpoint exports the configured metric and that samples are not all NaN."
		if snap.Rows == 0 {
			detail = "No rows have been collected yet. Values appear after the first successful scrape."
		}
		return []DiagnosticHint{{Key: "no_data", Level: "warning", Title: "No value", Detail: detail}}
	}

	var hints []DiagnosticHint

	if snap.TimestampUnix > 0 {
		age := now.Sub(time.Unix(snap.TimestampUnix, 0))
		if age > staleAfter {
			secs := age.Seconds()
			hints = append(hints, DiagnosticHint{
				Key:   "stale",
				Level: "warning",
				Title: fmt.Sprintf("%s old", age.Truncate(time.Second)),
				Detail: "The newest sample is older than expected. The source may have " +
					"stopped updating or its timestamps are behind.",
				Value: &secs,
			})
		}
	}

	if snap.UptimePct > 0 && snap.UptimePct < 100 {
		v := snap.UptimePct
		level := "info"
		switch {
		case v < 70:
			level = "critical"
		case v < 90:
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "uptime",
			Level: level,
			Title: fmt.Sprintf("%.0f%% uptime", v),
			Detail: fmt.Sprintf("The source answered %.0f%% of the last 20 scrapes. "+
				"Values keep the newest successful sample in the meantime.", v),
			Value: &v,
		})
	}

	if len(snap.Points) > 0 && snap.Points[0].Series != "_value" {
		hints = append(hints, DiagnosticHint{
			Key:   "no_value_metric",
			Level: "info",
			Title: "Fallback series",
			Detail: fmt.Sprintf("No _value series is present, so the single stat shows %q, "+
				"the first series in name order. Set value_metric to pick one.", snap.Points[0].Series),
		})
	}

	if len(snap.Values) > 1 {
		n := float64(len(snap.Values))
		hints = append(hints, DiagnosticHint{
			Key:    "multiple_values",
			Level:  "info",
			Title:  fmt.Sprintf("%d values", len(snap.Values)),
			Detail: "Several values share the latest timestamp. The single stat shows the first one.",
			Value:  &n,
		})
	}

	if len(hints) == 0 {
		v := snap.Values[0]
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: "The latest value is current and the source is answering every scrape.",
			Value:  &v,
		})
	}
	return hints
}
