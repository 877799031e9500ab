package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
agent:
  server_endpoint: "localhost:50051"
  scrape_interval: 10s
  ship_interval: 5s
  buffer_size: 500
  window_size: 12
  sources:
    - id: node-prod
      type: prometheus
      endpoint: "http://localhost:9100/metrics"
      value_metric: node_load1
      metrics: [node_load1, node_load5]
      aggregate_every: 1m
      auth:
        mode: none
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.ServerEndpoint != "localhost:50051" {
		t.Errorf("server_endpoint: got %q", cfg.Agent.ServerEndpoint)
	}
	if cfg.Agent.ScrapeInterval != 10*time.Second {
		t.Errorf("scrape_interval: got %v", cfg.Agent.ScrapeInterval)
	}
	if cfg.Agent.BufferSize != 500 {
		t.Errorf("buffer_size: got %d", cfg.Agent.BufferSize)
	}
	if cfg.Agent.WindowSize != 12 {
		t.Errorf("window_size: got %d", cfg.Agent.WindowSize)
	}
	if len(cfg.Agent.Sources) != 1 {
		t.Fatalf("sources: got %d, want 1", len(cfg.Agent.Sources))
	}
	src := cfg.Agent.Sources[0]
	if src.ID != "node-prod" {
		t.Errorf("source id: got %q", src.ID)
	}
	if src.ValueMetric != "node_load1" {
		t.Errorf("value_metric: got %q", src.ValueMetric)
	}
	if len(src.Metrics) != 2 {
		t.Errorf("metrics: got %v", src.Metrics)
	}
	if src.AggregateEvery != time.Minute {
		t.Errorf("aggregate_every: got %v", src.AggregateEvery)
	}
}

func TestLoad_Defaults(t *testing.T) {
	yaml := `
agent:
  server_endpoint: "localhost:50051"
  sources:
    - id: prom
      type: prometheus
      endpoint: "http://localhost:9090/metrics"
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.ScrapeInterval != DefaultScrapeInterval {
		t.Errorf("default scrape_interval: got %v, want %v", cfg.Agent.ScrapeInterval, DefaultScrapeInterval)
	}
	if cfg.Agent.ShipInterval != DefaultShipInterval {
		t.Errorf("default ship_interval: got %v, want %v", cfg.Agent.ShipInterval, DefaultShipInterval)
	}
	if cfg.Agent.BufferSize != DefaultBufferSize {
		t.Errorf("default buffer_size: got %d, want %d", cfg.Agent.BufferSize, DefaultBufferSize)
	}
	if cfg.Agent.WindowSize != DefaultWindowSize {
		t.Errorf("default window_size: got %d, want %d", cfg.Agent.WindowSize, DefaultWindowSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing server endpoint",
			yaml: `
agent:
  sources:
    - id: prom
      type: prometheus
      endpoint: "http://localhost:9090/metrics"
`,
		},
		{
			name: "unknown source type",
			yaml: `
agent:
  server_endpoint: "localhost:50051"
  sources:
    - id: mystery
      type: loki
      endpoint: "http://localhost:3100/metrics"
`,
		},
		{
			name: "unknown auth mode",
			yaml: `
agent:
  server_endpoint: "localhost:50051"
  sources:
    - id: otel
      type: otelcol
      endpoint: "http://localhost:8888/metrics"
      auth:
        mode: magictoken
`,
		},
		{
			name: "duplicate source id",
			yaml: `
agent:
  server_endpoint: "localhost:50051"
  sources:
    - id: a
      type: prometheus
      endpoint: "http://one/metrics"
    - id: a
      type: prometheus
      endpoint: "http://two/metrics"
`,
		},
		{
			name: "non-positive window",
			yaml: `
agent:
  server_endpoint: "localhost:50051"
  window_size: 0
`,
		},
		{
			name: "negative aggregate window",
			yaml: `
agent:
  server_endpoint: "localhost:50051"
  sources:
    - id: a
      type: prometheus
      endpoint: "http://one/metrics"
      aggregate_every: -1m
`,
		},
		{
			name: "unknown server auth mode",
			yaml: `
agent:
  server_endpoint: "localhost:50051"
  server_auth:
    mode: bearer
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestAuthConfig_Secrets(t *testing.T) {
	t.Setenv("TEST_API_KEY", "supersecret")
	t.Setenv("TEST_BEARER_TOKEN", "mytoken")
	t.Setenv("TEST_PASSWORD", "hunter2")

	a := AuthConfig{KeyEnv: "TEST_API_KEY", TokenEnv: "TEST_BEARER_TOKEN", PasswordEnv: "TEST_PASSWORD"}
	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q, want %q", got, "supersecret")
	}
	if got := a.Token(); got != "mytoken" {
		t.Errorf("Token(): got %q, want %q", got, "mytoken")
	}
	if got := a.Password(); got != "hunter2" {
		t.Errorf("Password(): got %q, want %q", got, "hunter2")
	}

	var empty AuthConfig
	if empty.Key() != "" || empty.Token() != "" || empty.Password() != "" {
		t.Error("unset env names should resolve to empty strings")
	}
}

func TestAuthConfig_EffectiveHeader(t *testing.T) {
	if got := (AuthConfig{}).EffectiveHeader(); got != "x-api-key" {
		t.Errorf("default header: got %q", got)
	}
	if got := (AuthConfig{Header: "x-token"}).EffectiveHeader(); got != "x-token" {
		t.Errorf("custom header: got %q", got)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(endpoint string) {
		t.Helper()
		body := "agent:\n  server_endpoint: \"" + endpoint + "\"\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("first:1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c })
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	write("second:2")

	select {
	case c := <-got:
		if c.Agent.ServerEndpoint != "second:2" {
			t.Errorf("reloaded endpoint = %q, want second:2", c.Agent.ServerEndpoint)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
