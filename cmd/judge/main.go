package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gyaneshwarpardhi/ngjudge/internal/app"
	"github.com/gyaneshwarpardhi/ngjudge/internal/config"
	"github.com/gyaneshwarpardhi/ngjudge/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "configs/judge.yaml", "Path to judge YAML config")
	video := flag.String("video", "", "Video id to judge (overrides video_id in the config)")
	watch := flag.Bool("watch", false, "Re-run whenever the config file changes")
	logLevel := flag.String("log-level", "", "Log level (overrides NGJUDGE_LOG_LEVEL)")
	flag.Parse()

	logger := logging.Configure()
	if *logLevel != "" {
		logging.SetLevel(logging.ParseLevel(*logLevel))
	}

	loader, err := config.NewLoader(*cfgPath, logger)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runOnce(ctx, loader.Config(), *video, logger); err != nil {
		if errors.Is(err, config.ErrConfiguration) {
			slog.Error("configuration error, nothing judged", "err", err)
		} else {
			slog.Error("run failed", "err", err)
		}
		stop()
		os.Exit(1)
	}
	if !*watch {
		return
	}

	changed := make(chan *config.JudgeConfig, 1)
	loader.OnChange(func(cfg *config.JudgeConfig) {
		// Keep only the latest config if runs fall behind.
		select {
		case <-changed:
		default:
		}
		changed <- cfg
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Error("config watcher unavailable", "err", err)
		stop()
		os.Exit(1)
	}
	defer stopWatch()
	slog.Info("watching config for changes", "path", *cfgPath)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return
		case cfg := <-changed:
			if err := runOnce(ctx, cfg, *video, logger); err != nil {
				slog.Warn("re-run failed, waiting for next change", "err", err)
			}
		}
	}
}

// runOnce validates cfg and judges its session once.
func runOnce(ctx context.Context, cfg *config.JudgeConfig, video string, logger *slog.Logger) error {
	if video != "" {
		c := *cfg
		c.VideoID = video
		cfg = &c
	}
	if err := config.Validate(cfg, true); err != nil {
		return err
	}
	r, err := app.NewRunner(cfg, logger)
	if err != nil {
		return err
	}
	_, err = r.Run(ctx)
	return err
}
