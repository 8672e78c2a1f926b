package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/gyaneshwarpardhi/ngjudge/internal/corpus"
	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
	"github.com/gyaneshwarpardhi/ngjudge/internal/extract"
	"github.com/gyaneshwarpardhi/ngjudge/internal/lang"
	"github.com/gyaneshwarpardhi/ngjudge/internal/metrics"
)

// BlockKey selects which author field is compared against the blocklist.
type BlockKey string

const (
	BlockByChannelURL BlockKey = "channel_url"
	BlockByChannelID  BlockKey = "channel_id"
)

// Options configures an Engine. Catalog texts must already be in the strategy's
// prepared form.
type Options struct {
	Strategy  Strategy
	Catalog   *corpus.Catalog
	Blocklist *corpus.Blocklist
	BlockKey  BlockKey

	// Classifier and Policy enable WARN; leave Classifier nil to disable it.
	Classifier lang.Classifier
	Policy     lang.Policy

	Workers int

	// MaxCompareRunes truncates prepared text before scoring. 0 disables it.
	MaxCompareRunes int
	Logger          *slog.Logger
}

// Engine judges a closed batch of chat events.
type Engine struct {
	strategy  Strategy
	catalog   *corpus.Catalog
	blocklist *corpus.Blocklist
	blockKey  BlockKey
	langs     *lang.Safe
	policy    lang.Policy
	workers   int
	maxRunes  int
	logger    *slog.Logger
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Strategy == nil {
		return nil, errors.New("judge: strategy is required")
	}
	if err := ValidateThreshold(opts.Strategy.Threshold()); err != nil {
		return nil, err
	}
	if opts.Catalog == nil {
		return nil, errors.New("judge: pattern catalog is required")
	}
	if opts.Blocklist == nil {
		return nil, errors.New("judge: blocklist is required")
	}
	switch opts.BlockKey {
	case "":
		opts.BlockKey = BlockByChannelURL
	case BlockByChannelURL, BlockByChannelID:
	default:
		return nil, fmt.Errorf("judge: unknown block key %q", opts.BlockKey)
	}
	if opts.MaxCompareRunes < 0 {
		return nil, fmt.Errorf("judge: max compare runes must not be negative")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Engine{
		strategy:  opts.Strategy,
		catalog:   opts.Catalog,
		blocklist: opts.Blocklist,
		blockKey:  opts.BlockKey,
		workers:   opts.Workers,
		maxRunes:  opts.MaxCompareRunes,
		logger:    opts.Logger,
	}
	if opts.Classifier != nil {
		if err := opts.Policy.Validate(); err != nil {
			return nil, err
		}
		e.langs = lang.NewSafe(opts.Classifier, opts.Logger)
		e.policy = opts.Policy
	}
	return e, nil
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Catalog returns the prepared pattern catalog.
func (e *Engine) Catalog() *corpus.Catalog { return e.catalog }

// Blocklist returns the channel blocklist.
func (e *Engine) Blocklist() *corpus.Blocklist { return e.blocklist }

// WarnEnabled reports whether length-based WARN verdicts can be produced.
func (e *Engine) WarnEnabled() bool { return e.langs != nil }

// Judge returns one Judgement per event, in input order.
// It only fails when ctx is cancelled before every event is judged.
func (e *Engine) Judge(ctx context.Context, events []*event.ChatEvent) ([]Judgement, error) {
	pool := newWorkerPool[*event.ChatEvent, Judgement](ctx, e.workers, len(events), e.JudgeOne)
	for i, ev := range events {
		if !pool.Submit(ctx, i, ev) {
			pool.Drain()
			return nil, fmt.Errorf("judge: %w", ctx.Err())
		}
	}
	out := pool.Drain()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	for _, j := range out {
		metrics.EventsJudged.WithLabelValues(string(j.Verdict)).Inc()
		if j.Evidence.Has(ReasonPatternMatch) {
			metrics.PatternMatches.Inc()
		}
		if j.Evidence.Has(ReasonChannelBlock) {
			metrics.ChannelBlocks.Inc()
		}
	}
	return out, nil
}

// JudgeOne applies the NG, WARN, OK precedence to a single event.
func (e *Engine) JudgeOne(ev *event.ChatEvent) Judgement {
	j := Judgement{EventID: ev.ID, Channel: e.channelOf(ev)}

	text, err := extract.Text(ev)
	if err != nil {
		e.logger.Warn("unclassified event type", "event_id", ev.ID, "event_type", ev.Type)
		j.Verdict = Unclassified
		j.Evidence = Evidence{EventType: ev.Type}
		return j
	}

	var found Evidence
	if key, score, ok := e.matchPattern(ev.ID, text); ok {
		found.Reasons = append(found.Reasons, ReasonPatternMatch)
		found.PatternKey = key
		found.Similarity = score
	}
	if e.blocklist.Contains(j.Channel) {
		found.Reasons = append(found.Reasons, ReasonChannelBlock)
		found.Channel = j.Channel
	}
	if len(found.Reasons) > 0 {
		j.Verdict = NG
		j.Evidence = found
		return j
	}

	if e.langs != nil {
		code := e.langs.Apply(text)
		if limit, ok := e.policy.Limit(code); ok {
			if n := utf8.RuneCountInString(text); n > limit {
				j.Verdict = Warn
				j.Evidence = Evidence{
					Reasons:  []Reason{ReasonExcessLength},
					Language: code,
					Length:   n,
					Limit:    limit,
				}
				return j
			}
		}
	}

	j.Verdict = OK
	return j
}

// matchPattern returns the first pattern in catalog order scoring above threshold.
// Empty text never matches.
func (e *Engine) matchPattern(eventID, text string) (string, float64, bool) {
	prepared := e.strategy.PrepareEvent(eventID, text)
	if prepared == "" {
		return "", 0, false
	}
	if e.maxRunes > 0 && utf8.RuneCountInString(prepared) > e.maxRunes {
		prepared = string([]rune(prepared)[:e.maxRunes])
	}
	threshold := e.strategy.Threshold()
	for i := 0; i < e.catalog.Len(); i++ {
		if score := e.catalog.Score(i, prepared); score > threshold {
			return e.catalog.At(i).Key, score, true
		}
	}
	return "", 0, false
}

func (e *Engine) channelOf(ev *event.ChatEvent) string {
	if e.blockKey == BlockByChannelID {
		return ev.ChannelID
	}
	return ev.ChannelURL
}
