package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/obsidianstack/singlestat/agent/internal/compute"
	"github.com/obsidianstack/singlestat/agent/internal/config"
	"github.com/obsidianstack/singlestat/agent/internal/scraper"
	"github.com/obsidianstack/singlestat/agent/internal/shipper"
)

// pipeline pairs a configured source with its scraper.
type pipeline struct {
	src config.Source
	s   scraper.Scraper
}

// registry holds the active pipelines and rebuilds them on config reload.
type registry struct {
	engine *compute.Engine

	mu        sync.Mutex
	pipelines []pipeline
}

// apply replaces the pipeline set with the sources in cfg. Unchanged
// sources keep their scraper and their window; removed sources are
// forgotten by the engine.
func (r *registry) apply(sources []config.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := make(map[string]pipeline, len(r.pipelines))
	for _, p := range r.pipelines {
		old[p.src.ID] = p
	}

	next := make([]pipeline, 0, len(sources))
	for _, src := range sources {
		if p, ok := old[src.ID]; ok && reflect.DeepEqual(p.src, src) {
			next = append(next, p)
			delete(old, src.ID)
			continue
		}
		s, err := scraper.New(src)
		if err != nil {
			slog.Error("skipping source, could not build scraper", "source", src.ID, "err", err)
			continue
		}
		delete(old, src.ID)
		r.engine.Configure(src.ID, compute.Options{
			ValueMetric:    src.ValueMetric,
			AggregateEvery: src.AggregateEvery,
		})
		next = append(next, pipeline{src: src, s: s})
		slog.Info("registered source", "id", src.ID, "type", src.Type, "endpoint", src.Endpoint)
	}

	for id := range old {
		r.engine.Forget(id)
		slog.Info("removed source", "id", id)
	}
	r.pipelines = next
}

func (r *registry) snapshot() []pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pipeline(nil), r.pipelines...)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("singlestat-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"sources", len(cfg.Agent.Sources),
		"scrape_interval", cfg.Agent.ScrapeInterval,
		"window_size", cfg.Agent.WindowSize,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := &registry{engine: compute.NewEngine(cfg.Agent.WindowSize)}
	reg.apply(cfg.Agent.Sources)
	if len(reg.snapshot()) == 0 {
		slog.Warn("no sources configured, agent will idle")
	}

	// Source changes apply on the next tick. Server endpoint, window size
	// and intervals need a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			reg.apply(updated.Agent.Sources)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ship := shipper.New(cfg.Agent)
	go ship.Run(ctx)

	ticker := time.NewTicker(cfg.Agent.ScrapeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("singlestat-agent shutting down")
			return
		case t := <-ticker.C:
			for _, p := range reg.snapshot() {
				res, err := p.s.Scrape(ctx)
				if err != nil {
					slog.Warn("scrape error", "source", p.src.ID, "err", err)
					continue
				}
				result := reg.engine.Process(res, t)
				ship.Ship(result)
				slog.Debug("shipped snapshot",
					"source", p.src.ID,
					"state", result.State,
					"values", len(result.Values),
				)
			}
		}
	}
}
