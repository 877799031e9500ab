package api

import (
	"testing"
	"time"

	"github.com/obsidianstack/singlestat/pkg/types"
)

func TestComputeDiagnostics(t *testing.T) {
	now := time.Unix(100_000, 0)
	fresh := now.Add(-10 * time.Second).Unix()

	tests := []struct {
		name    string
		snap    *types.Snapshot
		wantKey string
	}{
		{"scrape failed", &types.Snapshot{State: "unknown", ErrorMessage: "connection refused"}, "scrape_failed"},
		{"no data", &types.Snapshot{State: "no_data", Rows: 5}, "no_data"},
		{"stale", &types.Snapshot{State: "ok", TimestampUnix: now.Add(-time.Hour).Unix(), Values: []float64{1},
			Points: []types.Point{{Series: "_value", Value: 1}}}, "stale"},
		{"flaky", &types.Snapshot{State: "ok", TimestampUnix: fresh, UptimePct: 60, Values: []float64{1},
			Points: []types.Point{{Series: "_value", Value: 1}}}, "uptime"},
		{"fallback series", &types.Snapshot{State: "ok", TimestampUnix: fresh, UptimePct: 100, Values: []float64{3},
			Points: []types.Point{{Series: "queue_depth", Value: 3}}}, "no_value_metric"},
		{"all clear", &types.Snapshot{State: "ok", TimestampUnix: fresh, UptimePct: 100, Values: []float64{3},
			Points: []types.Point{{Series: "_value", Value: 3}}}, "healthy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hints := computeDiagnostics(tc.snap, now)
			if len(hints) == 0 || hints[0].Key != tc.wantKey {
				t.Errorf("hints = %+v, want first key %q", hints, tc.wantKey)
			}
		})
	}
}

func TestComputeDiagnostics_UptimeLevels(t *testing.T) {
	now := time.Unix(100_000, 0)
	for _, tc := range []struct {
		uptime float64
		level  string
	}{{95, "info"}, {80, "warning"}, {50, "critical"}} {
		snap := &types.Snapshot{State: "ok", TimestampUnix: now.Unix(), UptimePct: tc.uptime, Values: []float64{1},
			Points: []types.Point{{Series: "_value", Value: 1}}}
		hints := computeDiagnostics(snap, now)
		if hints[0].Level != tc.level {
			t.Errorf("uptime %.0f: level %q, want %q", tc.uptime, hints[0].Level, tc.level)
		}
	}
}
