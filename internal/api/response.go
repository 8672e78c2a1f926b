package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gyaneshwarpardhi/ngjudge/internal/corpus"
	"github.com/gyaneshwarpardhi/ngjudge/internal/judge"
	"github.com/gyaneshwarpardhi/ngjudge/internal/result"
	"github.com/gyaneshwarpardhi/ngjudge/internal/store"
)

var timeNow = time.Now

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type configResponse struct {
	Version         string  `json:"version"`
	VideoID         string  `json:"video_id,omitempty"`
	Strategy        string  `json:"strategy"`
	Threshold       float64 `json:"threshold"`
	BlockKey        string  `json:"block_key"`
	Patterns        int     `json:"patterns"`
	BlockedChannels int     `json:"blocked_channels"`
	Warn            bool    `json:"warn"`
}

type corpusResponse struct {
	Strategy        string           `json:"strategy"`
	Patterns        []corpus.Pattern `json:"patterns"`
	BlockedChannels []string         `json:"blocked_channels"`
}

type runView struct {
	RunID      string        `json:"run_id"`
	VideoID    string        `json:"video_id"`
	Strategy   string        `json:"strategy"`
	Threshold  float64       `json:"threshold"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Counts     result.Counts `json:"counts"`
}

func newRunView(r *store.Run) runView {
	return runView{
		RunID:      r.RunID,
		VideoID:    r.VideoID,
		Strategy:   r.Strategy,
		Threshold:  r.Threshold,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Counts:     r.Counts,
	}
}

type runResponse struct {
	Run      runView           `json:"run"`
	Verdicts []judge.Judgement `json:"verdicts"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs method, path, status and latency of every request.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
