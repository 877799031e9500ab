package api

import "github.com/obsidianstack/singlestat/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is ok when every live source has values, degraded when at least
	// one has none, and unknown when no source is live.
	State        string `json:"state"`
	SourceCount  int    `json:"source_count"`
	OKCount      int    `json:"ok_count"`
	NoDataCount  int    `json:"no_data_count"`
	UnknownCount int    `json:"unknown_count"`
	AlertCount   int    `json:"alert_count"`
}

// ValueResponse is one source entry in GET /api/v1/values or
// GET /api/v1/values/{id}.
type ValueResponse struct {
	SourceID   string `json:"source_id"`
	SourceType string `json:"source_type"`
	State      string `json:"state"`

	// Value is the single stat: the first latest value, or null.
	Value  *float64      `json:"value"`
	Values []float64     `json:"values"`
	Points []types.Point `json:"points"`

	Rows         int              `json:"rows"`
	UptimePct    float64          `json:"uptime_pct"`
	ErrorMessage string           `json:"error_message,omitempty"`
	SampleTime   string           `json:"sample_time,omitempty"` // RFC3339
	LastSeen     string           `json:"last_seen"`             // RFC3339
	Pushes       int              `json:"pushes"`
	Diagnostics  []DiagnosticHint `json:"diagnostics"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Sources     []ValueResponse `json:"sources"`
	GeneratedAt string          `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
