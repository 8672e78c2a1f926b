package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/ngjudge/internal/api"
	"github.com/gyaneshwarpardhi/ngjudge/internal/app"
	"github.com/gyaneshwarpardhi/ngjudge/internal/config"
	"github.com/gyaneshwarpardhi/ngjudge/internal/logging"
	"github.com/gyaneshwarpardhi/ngjudge/internal/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/judge.yaml", "Path to judge YAML config")
	logLevel := flag.String("log-level", "", "Log level (overrides NGJUDGE_LOG_LEVEL)")
	flag.Parse()

	logger := logging.Configure()
	if *logLevel != "" {
		logging.SetLevel(logging.ParseLevel(*logLevel))
	}

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath, logger)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg, false); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	eng, err := app.BuildEngine(cfg, logger)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	// ── Run store ─────────────────────────────────────────────────────────────
	var st *store.Store
	if cfg.Output.StorePath != "" {
		st, err = store.Open(cfg.Output.StorePath)
		if err != nil {
			slog.Error("failed to open run store", "path", cfg.Output.StorePath, "err", err)
			os.Exit(1)
		}
		defer st.Close()
	}

	handler := api.New(eng, loader, st, logger)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.JudgeConfig) {
		if _, err := handler.Rebuild(newCfg); err != nil {
			slog.Warn("hot-reload skipped, keeping current engine", "err", err)
			return
		}
		slog.Info("engine hot-reloaded")
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("shutdown incomplete", "err", err)
	}
	slog.Info("goodbye")
}
