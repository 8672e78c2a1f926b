package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/gyaneshwarpardhi/ngjudge/internal/judge"
	"github.com/gyaneshwarpardhi/ngjudge/internal/result"
)

// Run describes one judgement pass over a session.
type Run struct {
	RunID      string
	VideoID    string
	Strategy   string
	Threshold  float64
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     result.Counts
}

// SaveRun stores run and every judgement in one transaction. A locked database is
// retried with exponential backoff.
func (s *Store) SaveRun(ctx context.Context, run Run, judgements []judge.Judgement) error {
	if run.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	b := retry.NewExponential(50 * time.Millisecond)
	return retry.Do(ctx, retry.WithMaxRetries(4, b), func(ctx context.Context) error {
		err := s.saveRun(ctx, run, judgements)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) saveRun(ctx context.Context, run Run, judgements []judge.Judgement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const runQuery = `
	INSERT INTO runs
	(run_id, video_id, strategy, threshold, started_at, finished_at, total, ok, ng, warn, unclassified)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, runQuery,
		run.RunID,
		run.VideoID,
		run.Strategy,
		run.Threshold,
		run.StartedAt.UTC().Format(TimeFormat),
		run.FinishedAt.UTC().Format(TimeFormat),
		run.Counts.Total,
		run.Counts.OK,
		run.Counts.NG,
		run.Counts.Warn,
		run.Counts.Unclassified,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	const verdictQuery = `
	INSERT INTO verdicts
	(run_id, seq, event_id, channel, verdict, reasons, pattern_key, similarity, language, length, limit_len, event_type)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, verdictQuery)
	if err != nil {
		return fmt.Errorf("prepare verdict insert: %w", err)
	}
	defer stmt.Close()

	for i, j := range judgements {
		reasons := make([]string, len(j.Evidence.Reasons))
		for k, r := range j.Evidence.Reasons {
			reasons[k] = string(r)
		}
		if _, err := stmt.ExecContext(ctx,
			run.RunID,
			i,
			j.EventID,
			nullString(j.Channel),
			string(j.Verdict),
			nullString(strings.Join(reasons, ",")),
			nullString(j.Evidence.PatternKey),
			j.Evidence.Similarity,
			nullString(j.Evidence.Language),
			j.Evidence.Length,
			j.Evidence.Limit,
			nullString(j.Evidence.EventType),
		); err != nil {
			return fmt.Errorf("insert verdict %s: %w", j.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// GetRun returns the stored run header.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	const query = `
	SELECT run_id, video_id, strategy, threshold, started_at, finished_at, total, ok, ng, warn, unclassified
	FROM runs WHERE run_id = ?
	`
	var (
		r                 Run
		started, finished string
	)
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&r.RunID, &r.VideoID, &r.Strategy, &r.Threshold, &started, &finished,
		&r.Counts.Total, &r.Counts.OK, &r.Counts.NG, &r.Counts.Warn, &r.Counts.Unclassified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if r.StartedAt, err = time.Parse(TimeFormat, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(TimeFormat, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &r, nil
}

// RunVerdicts returns the judgements of a run in their original order.
func (s *Store) RunVerdicts(ctx context.Context, runID string) ([]judge.Judgement, error) {
	const query = `
	SELECT event_id, channel, verdict, reasons, pattern_key, similarity, language, length, limit_len, event_type
	FROM verdicts WHERE run_id = ? ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []judge.Judgement
	for rows.Next() {
		var (
			j                                          judge.Judgement
			verdict                                    string
			channel, reasons, pattern, lang, eventType sql.NullString
		)
		if err := rows.Scan(&j.EventID, &channel, &verdict, &reasons, &pattern,
			&j.Evidence.Similarity, &lang, &j.Evidence.Length, &j.Evidence.Limit, &eventType); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		j.Verdict = judge.Verdict(verdict)
		j.Channel = channel.String
		j.Evidence.PatternKey = pattern.String
		j.Evidence.Language = lang.String
		j.Evidence.EventType = eventType.String
		if reasons.String != "" {
			for _, r := range strings.Split(reasons.String, ",") {
				j.Evidence.Reasons = append(j.Evidence.Reasons, judge.Reason(r))
			}
		}
		if j.Evidence.Has(judge.ReasonChannelBlock) {
			j.Evidence.Channel = j.Channel
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
