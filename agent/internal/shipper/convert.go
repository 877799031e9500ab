package shipper

import (
	"log/slog"
	"math"

	"github.com/obsidianstack/singlestat/agent/internal/compute"
	"github.com/obsidianstack/singlestat/pkg/types"
)

// toSnapshot converts a compute.Result into the snapshot pushed to the server.
//
// JSON has no encoding for ±Inf, so infinite values are left out of the
// snapshot. NaN never reaches here; the extractor already removed it.
func toSnapshot(r *compute.Result) *types.Snapshot {
	snap := &types.Snapshot{
		SourceID:      r.SourceID,
		SourceType:    r.SourceType,
		TimestampUnix: r.Timestamp.Unix(),
		State:         r.State,
		Values:        make([]float64, 0, len(r.Points)),
		Rows:          r.Rows,
		UptimePct:     r.UptimePct,
		ErrorMessage:  r.ErrorMessage,
	}

	for _, p := range r.Points {
		if math.IsInf(p.Value, 0) {
			slog.Debug("shipper: dropping infinite value", "source", r.SourceID, "series", p.Key)
			continue
		}
		pt := types.Point{Series: p.Key, Row: p.Row, Value: p.Value}
		if !p.Time.IsZero() {
			pt.TimeUnixMs = p.Time.UnixMilli()
		}
		snap.Values = append(snap.Values, p.Value)
		snap.Points = append(snap.Points, pt)
	}

	return snap
}
