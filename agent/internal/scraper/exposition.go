package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/model"

	"github.com/obsidianstack/singlestat/agent/internal/config"
)

// otelcolPrefix is the family prefix sampled from an OTel Collector when no
// explicit metric list is configured.
const otelcolPrefix = "otelcol_"

type expositionScraper struct {
	src    config.Source
	client *http.Client
	allow  map[string]bool
	now    func() time.Time
}

func newExpositionScraper(src config.Source, client *http.Client) *expositionScraper {
	s := &expositionScraper{src: src, client: client, now: time.Now}
	if len(src.Metrics) > 0 {
		s.allow = make(map[string]bool, len(src.Metrics))
		for _, name := range src.Metrics {
			s.allow[name] = true
		}
	}
	return s
}

// Scrape fetches the endpoint and flattens every selected metric family
// into one sample per series.
func (s *expositionScraper) Scrape(ctx context.Context) (*ScrapeResult, error) {
	res := &ScrapeResult{
		SourceID:   s.src.ID,
		SourceType: s.src.Type,
		Samples:    make(map[string]float64),
	}

	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	res.ScrapedAt = s.now().UTC()
	res.SampleTime = res.ScrapedAt
	if err != nil {
		res.Err = fmt.Errorf("%s scrape %q: %w", s.src.Type, s.src.ID, err)
		slog.Warn("scraper: fetch failed", "source", s.src.ID, "err", err)
		return res, nil
	}

	var newest int64
	for name, mf := range mfs {
		if !s.wants(name) {
			continue
		}
		for _, m := range mf.GetMetric() {
			addSamples(res.Samples, name, m)
			if ms := m.GetTimestampMs(); ms > newest {
				newest = ms
			}
		}
	}
	if newest > 0 {
		res.SampleTime = time.UnixMilli(newest).UTC()
	}

	slog.Debug("scraper: sampled", "source", s.src.ID, "series", len(res.Samples))
	return res, nil
}

func (s *expositionScraper) wants(family string) bool {
	if s.allow != nil {
		return s.allow[family]
	}
	if s.src.Type == "otelcol" {
		return strings.HasPrefix(family, otelcolPrefix)
	}
	return true
}

// addSamples stores the value(s) of m. Summaries and histograms contribute
// their _sum and _count series.
func addSamples(into map[string]float64, name string, m *dto.Metric) {
	labels := m.GetLabel()
	switch {
	case m.Counter != nil:
		into[SeriesKey(name, labels)] = m.Counter.GetValue()
	case m.Gauge != nil:
		into[SeriesKey(name, labels)] = m.Gauge.GetValue()
	case m.Untyped != nil:
		into[SeriesKey(name, labels)] = m.Untyped.GetValue()
	case m.Summary != nil:
		into[SeriesKey(name+"_sum", labels)] = m.Summary.GetSampleSum()
		into[SeriesKey(name+"_count", labels)] = float64(m.Summary.GetSampleCount())
	case m.Histogram != nil:
		into[SeriesKey(name+"_sum", labels)] = m.Histogram.GetSampleSum()
		into[SeriesKey(name+"_count", labels)] = float64(m.Histogram.GetSampleCount())
	}
}

// SeriesKey renders a series identity in the usual name{label="value"} form
// with labels sorted by name.
func SeriesKey(name string, labels []*dto.LabelPair) string {
	metric := make(model.Metric, len(labels)+1)
	metric[model.MetricNameLabel] = model.LabelValue(name)
	for _, lp := range labels {
		metric[model.LabelName(lp.GetName())] = model.LabelValue(lp.GetValue())
	}
	return metric.String()
}
