package scraper

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/obsidianstack/singlestat/agent/internal/config"
)

// nodeMetrics is a realistic subset of node_exporter output.
const nodeMetrics = `
# HELP node_load1 1m load average.
# TYPE node_load1 gauge
node_load1 0.42

# HELP node_network_receive_bytes_total Network device statistic receive_bytes.
# TYPE node_network_receive_bytes_total counter
node_network_receive_bytes_total{device="eth0"} 123456
node_network_receive_bytes_total{device="lo"} 789

# HELP node_scrape_collector_duration_seconds Duration of a collector scrape.
# TYPE node_scrape_collector_duration_seconds summary
node_scrape_collector_duration_seconds_sum{collector="cpu"} 0.25
node_scrape_collector_duration_seconds_count{collector="cpu"} 10

# HELP http_request_duration_seconds Request latency.
# TYPE http_request_duration_seconds histogram
http_request_duration_seconds_bucket{le="0.1"} 3
http_request_duration_seconds_bucket{le="+Inf"} 5
http_request_duration_seconds_sum 1.5
http_request_duration_seconds_count 5

# TYPE temperature_celsius untyped
temperature_celsius NaN
`

var fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(src config.Source, client *http.Client) *expositionScraper {
	s := newExpositionScraper(src, client)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestExpositionScraper_Scrape(t *testing.T) {
	srv := serve(t, nodeMetrics)
	s := newTestScraper(config.Source{ID: "node", Type: "prometheus", Endpoint: srv.URL}, srv.Client())

	res, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if res.Err != nil {
		t.Fatalf("res.Err = %v", res.Err)
	}

	want := map[string]float64{
		`node_load1`: 0.42,
		`node_network_receive_bytes_total{device="eth0"}`:                 123456,
		`node_network_receive_bytes_total{device="lo"}`:                   789,
		`node_scrape_collector_duration_seconds_sum{collector="cpu"}`:     0.25,
		`node_scrape_collector_duration_seconds_count{collector="cpu"}`:   10,
		`http_request_duration_seconds_sum`:                               1.5,
		`http_request_duration_seconds_count`:                             5,
	}
	for k, v := range want {
		got, ok := res.Samples[k]
		if !ok {
			t.Errorf("Samples[%s] missing", k)
			continue
		}
		if got != v {
			t.Errorf("Samples[%s] = %v, want %v", k, got, v)
		}
	}
	if v, ok := res.Samples["temperature_celsius"]; !ok || !math.IsNaN(v) {
		t.Errorf("Samples[temperature_celsius] = %v, %v; want NaN, true", v, ok)
	}
	if !res.SampleTime.Equal(fixedNow) {
		t.Errorf("SampleTime = %v, want scrape time %v", res.SampleTime, fixedNow)
	}
}

func TestExpositionScraper_AllowList(t *testing.T) {
	srv := serve(t, nodeMetrics)
	src := config.Source{ID: "node", Type: "prometheus", Endpoint: srv.URL, Metrics: []string{"node_load1"}}
	s := newTestScraper(src, srv.Client())

	res, _ := s.Scrape(context.Background())
	if len(res.Samples) != 1 {
		t.Fatalf("Samples = %v, want only node_load1", res.Samples)
	}
	if _, ok := res.Samples["node_load1"]; !ok {
		t.Error("Samples[node_load1] missing")
	}
}

func TestExpositionScraper_OtelcolPrefix(t *testing.T) {
	body := `
otelcol_exporter_queue_size{exporter="otlp"} 12
otelcol_process_uptime 3600
go_goroutines 42
`
	srv := serve(t, body)
	s := newTestScraper(config.Source{ID: "otel", Type: "otelcol", Endpoint: srv.URL}, srv.Client())

	res, _ := s.Scrape(context.Background())
	if len(res.Samples) != 2 {
		t.Fatalf("Samples = %v, want the two otelcol_ series", res.Samples)
	}
	if _, ok := res.Samples["go_goroutines"]; ok {
		t.Error("non-otelcol family should be skipped")
	}
}

func TestExpositionScraper_SampleTimestamps(t *testing.T) {
	body := `
queue_depth{q="a"} 5 1767268800000
queue_depth{q="b"} 7 1767268805000
`
	srv := serve(t, body)
	s := newTestScraper(config.Source{ID: "q", Type: "prometheus", Endpoint: srv.URL}, srv.Client())

	res, _ := s.Scrape(context.Background())
	want := time.UnixMilli(1767268805000).UTC()
	if !res.SampleTime.Equal(want) {
		t.Errorf("SampleTime = %v, want newest sample timestamp %v", res.SampleTime, want)
	}
	if !res.ScrapedAt.Equal(fixedNow) {
		t.Errorf("ScrapedAt = %v, want %v", res.ScrapedAt, fixedNow)
	}
}

func TestExpositionScraper_ConnectFailure(t *testing.T) {
	s := newTestScraper(config.Source{ID: "down", Type: "prometheus", Endpoint: "http://127.0.0.1:1"}, &http.Client{})
	res, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() should not return err, got: %v", err)
	}
	if res.Err == nil {
		t.Fatal("res.Err should be set when endpoint is unreachable")
	}
	if len(res.Samples) != 0 {
		t.Errorf("Samples = %v, want empty", res.Samples)
	}
}

func TestExpositionScraper_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newTestScraper(config.Source{ID: "busy", Type: "prometheus", Endpoint: srv.URL}, srv.Client())
	res, _ := s.Scrape(context.Background())
	if res.Err == nil {
		t.Fatal("res.Err should be set on HTTP 503")
	}
}

func TestSeriesKey(t *testing.T) {
	name := "up"
	job, inst := "job", "instance"
	jobVal, instVal := "node", "a:9100"

	tests := []struct {
		labels []*dto.LabelPair
		want   string
	}{
		{nil, `up`},
		{[]*dto.LabelPair{{Name: &job, Value: &jobVal}}, `up{job="node"}`},
		{[]*dto.LabelPair{{Name: &job, Value: &jobVal}, {Name: &inst, Value: &instVal}}, `up{instance="a:9100", job="node"}`},
	}
	for _, tc := range tests {
		if got := SeriesKey(name, tc.labels); got != tc.want {
			t.Errorf("SeriesKey = %q, want %q", got, tc.want)
		}
	}
}
