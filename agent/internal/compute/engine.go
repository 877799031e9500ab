package compute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/obsidianstack/singlestat/agent/internal/lastvalue"
	"github.com/obsidianstack/singlestat/agent/internal/scraper"
)

// uptimeWindow is the number of recent scrape outcomes tracked for uptime %.
const uptimeWindow = 20

// State constants reported in Result.State.
const (
	StateOK      = "ok"
	StateNoData  = "no_data"
	StateUnknown = "unknown"
)

// Options control how a source's window is turned into a table.
type Options struct {
	// ValueMetric is the series key stored under the _value column.
	ValueMetric string

	// AggregateEvery buckets the window into mean values per interval.
	// Zero keeps raw rows.
	AggregateEvery time.Duration
}

// Result is the latest-value snapshot for one source, ready to be handed to
// the shipper.
type Result struct {
	SourceID     string
	SourceType   string
	Timestamp    time.Time
	State        string
	Values       []float64
	Points       []lastvalue.Point
	Rows         int // rows in the table the values were extracted from
	UptimePct    float64
	ErrorMessage string // non-empty when the scrape failed
}

// Engine keeps a rolling window of scrape rows per source and extracts the
// latest values from it after every scrape.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	window int

	mu     sync.Mutex
	states map[string]*sourceState
}

// NewEngine returns an Engine that keeps up to window rows per source.
func NewEngine(window int) *Engine {
	if window < 1 {
		window = 1
	}
	return &Engine{window: window, states: make(map[string]*sourceState)}
}

// Configure sets the table options for a source. It may be called at any
// time; the next Process call for the source uses the new options.
func (e *Engine) Configure(sourceID string, opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateFor(sourceID).opts = opts
}

// Process appends the samples of res to the source's window and returns
// the latest values of the resulting table.
//
// now is passed explicitly so callers (and tests) control the clock without
// sleeping. Use time.Now() in production.
//
// A failed scrape appends nothing and returns a Result with State "unknown".
func (e *Engine) Process(res *scraper.ScrapeResult, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(res.SourceID)
	success := res.Err == nil
	st.recordScrape(success)

	out := &Result{
		SourceID:   res.SourceID,
		SourceType: res.SourceType,
		Timestamp:  now,
		UptimePct:  st.uptimePct(),
	}

	if !success {
		slog.Warn("compute: scrape failed, marking unknown",
			"source", res.SourceID, "err", res.Err)
		out.State = StateUnknown
		out.ErrorMessage = res.Err.Error()
		return out
	}

	at := res.SampleTime
	if at.IsZero() {
		at = now
	}
	st.push(sample{at: at, values: res.Samples}, e.window)

	tbl := buildTable(st.rows, st.opts)
	out.Rows = tbl.Len()
	out.Points = lastvalue.Extract(tbl)
	out.Values = make([]float64, len(out.Points))
	for i, p := range out.Points {
		out.Values[i] = p.Value
	}

	if len(out.Values) == 0 {
		out.State = StateNoData
	} else {
		out.State = StateOK
	}
	return out
}

// Forget drops all state for a source, e.g. after it was removed from the
// configuration.
func (e *Engine) Forget(sourceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, sourceID)
}

// sourceState holds the sample window and uptime history of one source.
type sourceState struct {
	opts    Options
	rows    []sample // oldest first
	history []bool   // circular buffer of scrape outcomes, newest last
}

func (e *Engine) stateFor(id string) *sourceState {
	if st, ok := e.states[id]; ok {
		return st
	}
	st := &sourceState{}
	e.states[id] = st
	return st
}

// push appends s, replacing the newest row when it carries the same sample
// time (an exporter that has not produced new data), and trims the window.
func (st *sourceState) push(s sample, window int) {
	if n := len(st.rows); n > 0 && st.rows[n-1].at.Equal(s.at) {
		st.rows[n-1] = s
		return
	}
	st.rows = append(st.rows, s)
	if len(st.rows) > window {
		st.rows = st.rows[len(st.rows)-window:]
	}
}

func (st *sourceState) recordScrape(success bool) {
	if len(st.history) >= uptimeWindow {
		st.history = st.history[1:]
	}
	st.history = append(st.history, success)
}

func (st *sourceState) uptimePct() float64 {
	if len(st.history) == 0 {
		return 100 // assume up before first observation
	}
	var ok int
	for _, s := range st.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(st.history)) * 100
}
