package types

// Snapshot is the latest-value state of one source after a scrape cycle.
type Snapshot struct {
	SourceID      string `json:"source_id"`
	SourceType    string `json:"source_type"`
	TimestampUnix int64  `json:"timestamp_unix"`

	// State is one of: ok | no_data | unknown.
	State string `json:"state"`

	// Values are the latest numeric values, in extraction order. Empty when
	// no value is available.
	Values []float64 `json:"values"`

	// Points describe where each entry of Values came from.
	Points []Point `json:"points,omitempty"`

	// Rows is the number of rows in the window the values were read from.
	Rows int `json:"rows"`

	UptimePct    float64 `json:"uptime_pct"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Point is one latest value with its series key and timestamp.
type Point struct {
	Series     string  `json:"series"`
	Row        int     `json:"row"`
	TimeUnixMs int64   `json:"time_unix_ms,omitempty"`
	Value      float64 `json:"value"`
}

// PushResponse acknowledges a pushed Snapshot.
type PushResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// First returns the first value of the snapshot, the one a single-stat
// display shows.
func (s *Snapshot) First() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[0], true
}
