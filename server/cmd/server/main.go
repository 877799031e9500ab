package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/obsidianstack/singlestat/pkg/valuesvc"
	"github.com/obsidianstack/singlestat/server/internal/alerts"
	"github.com/obsidianstack/singlestat/server/internal/api"
	"github.com/obsidianstack/singlestat/server/internal/auth"
	"github.com/obsidianstack/singlestat/server/internal/config"
	"github.com/obsidianstack/singlestat/server/internal/receiver"
	"github.com/obsidianstack/singlestat/server/internal/store"
	"github.com/obsidianstack/singlestat/server/internal/ws"
)

// broadcastInterval is how often the WebSocket hub pushes values and the
// alert engine re-checks clock-based rules.
const broadcastInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	slog.Info("singlestat-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"snapshot_ttl", cfg.Server.Snapshot.TTL,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	alertEngine, err := alerts.New(cfg.Server.Alerts)
	if err != nil {
		slog.Error("failed to load alert rules", "err", err)
		os.Exit(1)
	}

	// Silent sources stay visible to age_s rules until evicted; eviction
	// resolves whatever is still firing for them.
	st := store.New(cfg.Server.Snapshot.TTL)
	st.OnEvict(alertEngine.Forget)
	go st.Run(ctx)
	go alertEngine.Run(ctx, broadcastInterval, st.Snapshots)

	a := cfg.Server.Auth
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(auth.APIKeyInterceptor(a.Mode, a.EffectiveHeader(), a.Key())))
	valuesvc.RegisterValueServiceServer(grpcSrv, receiver.New(st, alertEngine))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port", "port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("gRPC receiver listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	hub := ws.New(st, broadcastInterval)
	go hub.Run(ctx)

	requireKey := auth.Middleware(a.Mode, a.EffectiveHeader(), a.Key())
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", requireKey(api.New(st, alertEngine)))
	httpMux.Handle("/ws/stream", requireKey(hub))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("singlestat-server shutting down")
	grpcSrv.GracefulStop()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
