package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/ngjudge/internal/app"
	"github.com/gyaneshwarpardhi/ngjudge/internal/config"
	"github.com/gyaneshwarpardhi/ngjudge/internal/ingest"
	"github.com/gyaneshwarpardhi/ngjudge/internal/judge"
	"github.com/gyaneshwarpardhi/ngjudge/internal/store"
)

const (
	maxBatchSize = 5000
	maxBodyBytes = 32 << 20
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    atomic.Pointer[judge.Engine]
	loader *config.Loader
	store  *store.Store // nil disables run history
	logger *slog.Logger
	mux    *http.ServeMux
	root   http.Handler
}

// New creates an HTTP handler and registers all routes. st may be nil.
func New(eng *judge.Engine, loader *config.Loader, st *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{loader: loader, store: st, logger: logger, mux: http.NewServeMux()}
	h.eng.Store(eng)

	h.mux.HandleFunc("POST /v1/judge", h.judgeBatch)
	h.mux.HandleFunc("GET /v1/runs/{run_id}", h.getRun)
	h.mux.HandleFunc("GET /v1/config", h.getConfig)
	h.mux.HandleFunc("GET /v1/corpus", h.getCorpus)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	h.root = loggingMiddleware(logger, h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// SwapEngine atomically replaces the engine used by subsequent requests.
func (h *Handler) SwapEngine(eng *judge.Engine) {
	h.eng.Store(eng)
}

// Rebuild validates cfg, builds a new engine from it and swaps it in.
// The running engine is kept on any failure.
func (h *Handler) Rebuild(cfg *config.JudgeConfig) (*judge.Engine, error) {
	if err := config.Validate(cfg, false); err != nil {
		return nil, err
	}
	eng, err := app.BuildEngine(cfg, h.logger)
	if err != nil {
		return nil, err
	}
	h.SwapEngine(eng)
	return eng, nil
}

// POST /v1/judge: judge one batch of chat items synchronously.
func (h *Handler) judgeBatch(w http.ResponseWriter, r *http.Request) {
	events, err := ingest.DecodeItems(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one item")
		return
	}
	if len(events) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(events), maxBatchSize))
		return
	}
	sess := ingest.NewSession()
	sess.Add(events)

	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		videoID = h.loader.Config().VideoID
	}

	eng := h.eng.Load()
	started := timeNow()
	rs, judgements, err := app.Judge(r.Context(), eng, videoID, sess.Events())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if h.store != nil {
		run := store.Run{
			RunID:      rs.RunID,
			VideoID:    rs.VideoID,
			Strategy:   eng.Strategy().Name(),
			Threshold:  eng.Strategy().Threshold(),
			StartedAt:  started,
			FinishedAt: timeNow(),
			Counts:     rs.Counts,
		}
		if err := h.store.SaveRun(r.Context(), run, judgements); err != nil {
			h.logger.Error("run not stored", "run_id", rs.RunID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, rs)
}

// GET /v1/runs/{run_id}: stored run header and verdicts.
func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "run store is not configured")
		return
	}
	runID := r.PathValue("run_id")
	run, err := h.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", runID))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	verdicts, err := h.store.RunVerdicts(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: newRunView(run), Verdicts: verdicts})
}

// GET /v1/config: active judgement settings.
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Config()
	eng := h.eng.Load()
	writeJSON(w, http.StatusOK, configResponse{
		Version:         cfg.Version,
		VideoID:         cfg.VideoID,
		Strategy:        eng.Strategy().Name(),
		Threshold:       eng.Strategy().Threshold(),
		BlockKey:        cfg.Judgement.BlockKey,
		Patterns:        eng.Catalog().Len(),
		BlockedChannels: eng.Blocklist().Len(),
		Warn:            eng.WarnEnabled(),
	})
}

// GET /v1/corpus: patterns and blocked channels of the active engine, in load order.
func (h *Handler) getCorpus(w http.ResponseWriter, r *http.Request) {
	eng := h.eng.Load()
	writeJSON(w, http.StatusOK, corpusResponse{
		Strategy:        eng.Strategy().Name(),
		Patterns:        eng.Catalog().Patterns(),
		BlockedChannels: eng.Blocklist().IDs(),
	})
}

// POST /v1/config/reload: re-read config and corpus from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	eng, err := h.Rebuild(cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":         true,
		"patterns":         eng.Catalog().Len(),
		"blocked_channels": eng.Blocklist().Len(),
	})
}

// GET /healthz: always 200 (liveness check).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
