// Package app assembles the judgement pipeline from a JudgeConfig.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/ngjudge/internal/config"
	"github.com/gyaneshwarpardhi/ngjudge/internal/corpus"
	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
	"github.com/gyaneshwarpardhi/ngjudge/internal/ingest"
	"github.com/gyaneshwarpardhi/ngjudge/internal/judge"
	"github.com/gyaneshwarpardhi/ngjudge/internal/lang"
	"github.com/gyaneshwarpardhi/ngjudge/internal/metrics"
	"github.com/gyaneshwarpardhi/ngjudge/internal/result"
	"github.com/gyaneshwarpardhi/ngjudge/internal/store"
)

// BuildEngine loads the corpus named by cfg and returns a ready engine.
// Every failure wraps config.ErrConfiguration.
func BuildEngine(cfg *config.JudgeConfig, logger *slog.Logger) (*judge.Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := cfg.Judgement

	strategy, err := judge.NewStrategy(j.Strategy, j.Threshold, logger)
	if err != nil {
		return nil, configErr(err)
	}

	var catalog *corpus.Catalog
	if j.Strategy == judge.StrategyNormalized {
		catalog, err = corpus.LoadFileCatalog(cfg.PatternDir())
	} else {
		catalog, err = corpus.LoadPhraseCatalog(cfg.PatternDir())
	}
	if err != nil {
		return nil, configErr(err)
	}
	if catalog.Len() > j.MaxPatterns {
		return nil, configErr(fmt.Errorf("corpus: %d patterns exceed max_patterns %d", catalog.Len(), j.MaxPatterns))
	}
	if !j.PrenormalizedPatterns {
		catalog = catalog.Map(strategy.Prepare)
	}

	blocklist, err := corpus.LoadBlocklist(cfg.Input.NGChannelDir)
	if err != nil {
		return nil, configErr(err)
	}

	opts := judge.Options{
		Strategy:        strategy,
		Catalog:         catalog,
		Blocklist:       blocklist,
		BlockKey:        judge.BlockKey(j.BlockKey),
		Workers:         cfg.Engine.Workers,
		MaxCompareRunes: j.MaxCompareRunes,
		Logger:          logger,
	}
	if j.CommentLenWarn {
		policy, err := lang.LoadPolicy(cfg.Input.LangLenPath)
		if err != nil {
			return nil, configErr(err)
		}
		opts.Classifier = lang.Detector{}
		opts.Policy = policy
	}

	eng, err := judge.New(opts)
	if err != nil {
		return nil, configErr(err)
	}
	metrics.CatalogPatterns.Set(float64(catalog.Len()))
	logger.Info("engine ready",
		"strategy", strategy.Name(),
		"threshold", strategy.Threshold(),
		"patterns", catalog.Len(),
		"blocked_channels", blocklist.Len(),
		"warn", eng.WarnEnabled(),
	)
	return eng, nil
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
}

// Judge runs eng over events and partitions the outcome under a fresh run id.
func Judge(ctx context.Context, eng *judge.Engine, videoID string, events []*event.ChatEvent) (*result.ResultSet, []judge.Judgement, error) {
	judgements, err := eng.Judge(ctx, events)
	if err != nil {
		return nil, nil, err
	}
	rs, err := result.Partition(uuid.NewString(), videoID, events, judgements)
	if err != nil {
		return nil, nil, err
	}
	return rs, judgements, nil
}

// Runner executes batch runs for one configuration.
type Runner struct {
	cfg    *config.JudgeConfig
	eng    *judge.Engine
	logger *slog.Logger
}

// NewRunner builds the engine for cfg. cfg must already be validated.
func NewRunner(cfg *config.JudgeConfig, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	eng, err := BuildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, eng: eng, logger: logger}, nil
}

// Engine returns the runner's engine.
func (r *Runner) Engine() *judge.Engine { return r.eng }

// Run judges the configured session and writes every configured sink.
func (r *Runner) Run(ctx context.Context) (*result.ResultSet, error) {
	started := time.Now()
	logger := r.logger.With("video_id", r.cfg.VideoID)

	events, err := ingest.LoadSession(ctx, r.cfg.SessionDir(), logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return nil, configErr(err)
	}
	logger.Info("session loaded", "events", len(events))

	rs, judgements, err := Judge(ctx, r.eng, r.cfg.VideoID, events)
	if err != nil {
		return nil, fmt.Errorf("app: judge: %w", err)
	}
	logger = logger.With("run_id", rs.RunID)

	w := result.NewWriter(r.cfg.Output.Dir, r.eng.WarnEnabled())
	if err := w.Write(rs); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	finished := time.Now()
	if r.cfg.Output.StorePath != "" {
		if err := r.save(ctx, rs, judgements, started, finished); err != nil {
			return nil, err
		}
	}

	metrics.RunDuration.Observe(finished.Sub(started).Seconds())
	if path := r.cfg.Output.MetricsTextfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn("metrics textfile not written", "path", path, "err", err)
		}
	}

	logger.Info("run complete",
		"total", rs.Counts.Total,
		"ok", rs.Counts.OK,
		"ng", rs.Counts.NG,
		"warn", rs.Counts.Warn,
		"unclassified", rs.Counts.Unclassified,
		"ng_channels", len(rs.NGChannels),
		"duration", finished.Sub(started),
	)
	return rs, nil
}

func (r *Runner) save(ctx context.Context, rs *result.ResultSet, judgements []judge.Judgement, started, finished time.Time) error {
	st, err := store.Open(r.cfg.Output.StorePath)
	if err != nil {
		return fmt.Errorf("app: store: %w", err)
	}
	defer st.Close()

	run := store.Run{
		RunID:      rs.RunID,
		VideoID:    rs.VideoID,
		Strategy:   r.eng.Strategy().Name(),
		Threshold:  r.eng.Strategy().Threshold(),
		StartedAt:  started,
		FinishedAt: finished,
		Counts:     rs.Counts,
	}
	if err := st.SaveRun(ctx, run, judgements); err != nil {
		return fmt.Errorf("app: store: %w", err)
	}
	return nil
}
