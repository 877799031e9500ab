// Package scraper samples Prometheus-format metrics endpoints.
//
// Each scrape returns a ScrapeResult holding one value per series, keyed by
// the series identity (name{label="value"}). The compute engine appends that
// row to a per-source window and extracts the latest value from it.
//
// Supported source types: prometheus (every family, or the configured
// allow-list) and otelcol (otelcol_* families unless an allow-list is set).
// Counters, gauges and untyped metrics contribute their value; summaries
// and histograms contribute _sum and _count.
//
// Authentication (mTLS, API key, bearer token, basic) is handled by the
// shared authRoundTripper in base.go; scrapers receive a pre-configured
// *http.Client from New().
package scraper
