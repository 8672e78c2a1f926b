package judge_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/ngjudge/internal/corpus"
	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
	"github.com/gyaneshwarpardhi/ngjudge/internal/judge"
	"github.com/gyaneshwarpardhi/ngjudge/internal/lang"
)

func textEvent(id, channel, text string) *event.ChatEvent {
	return &event.ChatEvent{
		ID:         id,
		Type:       "textMessageEvent",
		ChannelID:  channel,
		ChannelURL: "http://www.youtube.com/channel/" + channel,
		Snippet: map[string]interface{}{
			"type":               "textMessageEvent",
			"textMessageDetails": map[string]interface{}{"messageText": text},
		},
	}
}

func patterns(texts ...string) *corpus.Catalog {
	ps := make([]corpus.Pattern, len(texts))
	for i, t := range texts {
		ps[i] = corpus.Pattern{Key: "p" + string(rune('1'+i)), Text: t}
	}
	return corpus.NewCatalog(ps)
}

type fixedLang string

func (f fixedLang) Classify(string) (string, error) { return string(f), nil }

func newEngine(t *testing.T, opts judge.Options) *judge.Engine {
	t.Helper()
	if opts.Strategy == nil {
		opts.Strategy = judge.Raw(0.3)
	}
	if opts.Catalog == nil {
		opts.Catalog = patterns()
	}
	if opts.Blocklist == nil {
		opts.Blocklist = corpus.NewBlocklist(nil)
	}
	if opts.BlockKey == "" {
		opts.BlockKey = judge.BlockByChannelID
	}
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	e, err := judge.New(opts)
	if err != nil {
		t.Fatalf("judge.New: %v", err)
	}
	return e
}

func judgeAll(t *testing.T, e *judge.Engine, events ...*event.ChatEvent) []judge.Judgement {
	t.Helper()
	out, err := e.Judge(context.Background(), events)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if len(out) != len(events) {
		t.Fatalf("got %d judgements for %d events", len(out), len(events))
	}
	return out
}

func TestJudge_Scenario(t *testing.T) {
	e := newEngine(t, judge.Options{
		Catalog:   patterns("buy followers now"),
		Blocklist: corpus.NewBlocklist([]string{"chan-X"}),
	})
	out := judgeAll(t, e,
		textEvent("e1", "chan-Y", "buy followers now please"),
		textEvent("e2", "chan-X", "hello!"),
		textEvent("e3", "chan-Y", "nice stream"),
	)

	if out[0].Verdict != judge.NG || !reflect.DeepEqual(out[0].Evidence.Reasons, []judge.Reason{judge.ReasonPatternMatch}) {
		t.Errorf("e1: got %+v", out[0])
	}
	if out[0].Evidence.PatternKey != "p1" {
		t.Errorf("e1: pattern key = %q, want p1", out[0].Evidence.PatternKey)
	}
	if out[1].Verdict != judge.NG || !reflect.DeepEqual(out[1].Evidence.Reasons, []judge.Reason{judge.ReasonChannelBlock}) {
		t.Errorf("e2: got %+v", out[1])
	}
	if out[1].Evidence.Channel != "chan-X" {
		t.Errorf("e2: channel = %q", out[1].Evidence.Channel)
	}
	if out[2].Verdict != judge.OK || len(out[2].Evidence.Reasons) != 0 {
		t.Errorf("e3: got %+v", out[2])
	}
}

func TestJudge_ThresholdIsStrict(t *testing.T) {
	// Ratio("abcd", "bcde") is exactly 0.75.
	cases := []struct {
		threshold float64
		want      judge.Verdict
	}{
		{0.75, judge.OK},
		{0.75 - 1e-9, judge.NG},
		{0.5, judge.NG},
		{0.9, judge.OK},
	}
	for _, tc := range cases {
		e := newEngine(t, judge.Options{Strategy: judge.Raw(tc.threshold), Catalog: patterns("bcde")})
		out := judgeAll(t, e, textEvent("e1", "c", "abcd"))
		if out[0].Verdict != tc.want {
			t.Errorf("threshold %v: got %s, want %s", tc.threshold, out[0].Verdict, tc.want)
		}
	}
}

func TestJudge_FirstMatchWins(t *testing.T) {
	e := newEngine(t, judge.Options{Catalog: patterns("buy followers", "buy followers now")})
	out := judgeAll(t, e, textEvent("e1", "c", "buy followers now"))
	if out[0].Evidence.PatternKey != "p1" {
		t.Errorf("expected earlier pattern p1, got %q (score %v)", out[0].Evidence.PatternKey, out[0].Evidence.Similarity)
	}
	if out[0].Evidence.Similarity >= 1.0 {
		t.Errorf("evidence should carry p1's score, got %v", out[0].Evidence.Similarity)
	}
}

func TestJudge_BothReasons(t *testing.T) {
	e := newEngine(t, judge.Options{
		Catalog:   patterns("free gift card"),
		Blocklist: corpus.NewBlocklist([]string{"spammer"}),
	})
	out := judgeAll(t, e, textEvent("e1", "spammer", "free gift card"))
	want := []judge.Reason{judge.ReasonPatternMatch, judge.ReasonChannelBlock}
	if out[0].Verdict != judge.NG || !reflect.DeepEqual(out[0].Evidence.Reasons, want) {
		t.Errorf("got %+v, want reasons %v", out[0], want)
	}
}

func TestJudge_ChannelBlockWithoutPattern(t *testing.T) {
	e := newEngine(t, judge.Options{
		Catalog:   patterns("zzzz"),
		Blocklist: corpus.NewBlocklist([]string{"chan-X"}),
	})
	out := judgeAll(t, e, textEvent("e1", "chan-X", "good morning"))
	if out[0].Evidence.Has(judge.ReasonPatternMatch) {
		t.Errorf("pattern-match must not be recorded: %+v", out[0].Evidence)
	}
	if out[0].Evidence.PatternKey != "" || out[0].Evidence.Similarity != 0 {
		t.Errorf("pattern evidence must be empty: %+v", out[0].Evidence)
	}
}

func TestJudge_BlockByChannelURL(t *testing.T) {
	e := newEngine(t, judge.Options{
		BlockKey:  judge.BlockByChannelURL,
		Blocklist: corpus.NewBlocklist([]string{"http://www.youtube.com/channel/chan-X"}),
	})
	out := judgeAll(t, e, textEvent("e1", "chan-X", "hi"), textEvent("e2", "chan-Y", "hi"))
	if out[0].Verdict != judge.NG || out[1].Verdict != judge.OK {
		t.Errorf("got %s, %s", out[0].Verdict, out[1].Verdict)
	}
	if out[0].Channel != "http://www.youtube.com/channel/chan-X" {
		t.Errorf("channel = %q", out[0].Channel)
	}
}

func TestJudge_MissingCommentJudgedOnChannelOnly(t *testing.T) {
	superChat := func(id, channel string) *event.ChatEvent {
		return &event.ChatEvent{
			ID:        id,
			Type:      "superChatEvent",
			ChannelID: channel,
			Snippet: map[string]interface{}{
				"type":             "superChatEvent",
				"superChatDetails": map[string]interface{}{"amountMicros": "5000000"},
			},
		}
	}
	e := newEngine(t, judge.Options{
		Catalog:   patterns("a"),
		Blocklist: corpus.NewBlocklist([]string{"chan-X"}),
	})
	out := judgeAll(t, e, superChat("e1", "chan-X"), superChat("e2", "chan-Y"))
	if out[0].Verdict != judge.NG || !reflect.DeepEqual(out[0].Evidence.Reasons, []judge.Reason{judge.ReasonChannelBlock}) {
		t.Errorf("e1: got %+v", out[0])
	}
	if out[1].Verdict != judge.OK {
		t.Errorf("e2: got %+v", out[1])
	}
}

func TestJudge_WarnOnExcessLength(t *testing.T) {
	e := newEngine(t, judge.Options{
		Catalog:    patterns("buy followers now"),
		Classifier: fixedLang("en"),
		Policy:     lang.Policy{"en": 10},
	})
	long := strings.Repeat("x", 11)
	out := judgeAll(t, e,
		textEvent("e1", "c", long),
		textEvent("e2", "c", strings.Repeat("x", 10)),
		textEvent("e3", "c", "buy followers now, buy followers now"),
	)
	if out[0].Verdict != judge.Warn {
		t.Fatalf("e1: got %+v", out[0])
	}
	want := judge.Evidence{Reasons: []judge.Reason{judge.ReasonExcessLength}, Language: "en", Length: 11, Limit: 10}
	if !reflect.DeepEqual(out[0].Evidence, want) {
		t.Errorf("e1 evidence = %+v, want %+v", out[0].Evidence, want)
	}
	if out[1].Verdict != judge.OK {
		t.Errorf("e2: limit is inclusive, got %s", out[1].Verdict)
	}
	if out[2].Verdict != judge.NG {
		t.Errorf("e3: NG must take precedence over WARN, got %s", out[2].Verdict)
	}
}

func TestJudge_UnknownLanguageNeverWarns(t *testing.T) {
	e := newEngine(t, judge.Options{
		Classifier: fixedLang(lang.Unknown),
		Policy:     lang.Policy{"en": 1},
	})
	out := judgeAll(t, e, textEvent("e1", "c", "a very long message indeed"))
	if out[0].Verdict != judge.OK {
		t.Errorf("got %s", out[0].Verdict)
	}
}

func TestJudge_Unclassified(t *testing.T) {
	e := newEngine(t, judge.Options{Blocklist: corpus.NewBlocklist([]string{"chan-X"})})
	ev := &event.ChatEvent{ID: "e1", Type: "pollEvent", ChannelID: "chan-X"}
	out := judgeAll(t, e, ev, textEvent("e2", "chan-Y", "hi"))
	if out[0].Verdict != judge.Unclassified || out[0].Evidence.EventType != "pollEvent" {
		t.Errorf("e1: got %+v", out[0])
	}
	if out[1].Verdict != judge.OK {
		t.Errorf("e2: batch must continue, got %+v", out[1])
	}
}

type failingNormalizer struct{}

func (failingNormalizer) Normalize(string) (string, error) { return "", errors.New("broken") }

func TestJudge_NormalizationFailureFallsBack(t *testing.T) {
	s := judge.Normalized(0.8, failingNormalizer{}, nil)
	e := newEngine(t, judge.Options{Strategy: s, Catalog: patterns("spam spam spam")})
	out := judgeAll(t, e, textEvent("e1", "c", "spam spam spam"))
	if out[0].Verdict != judge.NG {
		t.Errorf("raw text should still be scored, got %+v", out[0])
	}
}

func TestJudge_NormalizationFailureLogsEventID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := judge.Normalized(0.8, failingNormalizer{}, logger)
	e := newEngine(t, judge.Options{Strategy: s, Catalog: patterns("spam")})
	judgeAll(t, e, textEvent("evt-42", "c", "hello"))
	if !strings.Contains(buf.String(), "event_id=evt-42") {
		t.Errorf("fallback log should name the event, got %q", buf.String())
	}
}

func TestJudge_MaxCompareRunes(t *testing.T) {
	// Ratio over the full text is 34/235; over the first 17 runes it is 1.
	long := "buy followers now " + strings.Repeat("z", 200)
	cases := []struct {
		name     string
		maxRunes int
		text     string
		want     judge.Verdict
	}{
		{"uncapped", 0, long, judge.OK},
		{"cap covers the match", 17, long, judge.NG},
		{"cap cuts the match", 2, long, judge.OK},
		{"runes not bytes", 3, "スパム" + strings.Repeat("あ", 100), judge.NG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, judge.Options{
				Catalog:         patterns("buy followers now", "スパム"),
				MaxCompareRunes: tc.maxRunes,
			})
			out := judgeAll(t, e, textEvent("e1", "c", tc.text))
			if out[0].Verdict != tc.want {
				t.Errorf("got %s (score %v), want %s", out[0].Verdict, out[0].Evidence.Similarity, tc.want)
			}
		})
	}
}

func TestJudge_Idempotent(t *testing.T) {
	events := []*event.ChatEvent{
		textEvent("e1", "chan-Y", "buy followers now please"),
		textEvent("e2", "chan-X", "hello!"),
		textEvent("e3", "chan-Y", "nice stream"),
		{ID: "e4", Type: "mystery"},
	}
	for i := 0; i < 20; i++ {
		events = append(events, textEvent("n"+string(rune('a'+i)), "chan-Z", strings.Repeat("ok ", i)))
	}
	build := func(workers int) []judge.Judgement {
		e := newEngine(t, judge.Options{
			Catalog:   patterns("buy followers now"),
			Blocklist: corpus.NewBlocklist([]string{"chan-X"}),
			Workers:   workers,
		})
		return judgeAll(t, e, events...)
	}
	first := build(1)
	second := build(8)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between runs")
	}
}

func TestJudge_Cancelled(t *testing.T) {
	e := newEngine(t, judge.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Judge(ctx, []*event.ChatEvent{textEvent("e1", "c", "hi")}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNew_Validation(t *testing.T) {
	cases := map[string]judge.Options{
		"no strategy":   {Catalog: patterns(), Blocklist: corpus.NewBlocklist(nil)},
		"threshold 0":   {Strategy: judge.Raw(0), Catalog: patterns(), Blocklist: corpus.NewBlocklist(nil)},
		"threshold 1":   {Strategy: judge.Raw(1), Catalog: patterns(), Blocklist: corpus.NewBlocklist(nil)},
		"no catalog":    {Strategy: judge.Raw(0.3), Blocklist: corpus.NewBlocklist(nil)},
		"no blocklist":  {Strategy: judge.Raw(0.3), Catalog: patterns()},
		"bad block key": {Strategy: judge.Raw(0.3), Catalog: patterns(), Blocklist: corpus.NewBlocklist(nil), BlockKey: "name"},
		"negative max compare runes": {
			Strategy: judge.Raw(0.3), Catalog: patterns(), Blocklist: corpus.NewBlocklist(nil),
			MaxCompareRunes: -1,
		},
		"bad policy": {
			Strategy: judge.Raw(0.3), Catalog: patterns(), Blocklist: corpus.NewBlocklist(nil),
			Classifier: fixedLang("en"), Policy: lang.Policy{"en": 0},
		},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := judge.New(opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewStrategy(t *testing.T) {
	s, err := judge.NewStrategy(judge.StrategyRaw, 0.3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != judge.StrategyRaw || s.Threshold() != 0.3 || s.Prepare("x y") != "x y" {
		t.Errorf("unexpected raw strategy %v", s.Name())
	}
	if _, err := judge.NewStrategy("fuzzy", 0.3, nil); err == nil {
		t.Error("expected error for unknown strategy")
	}
	if _, err := judge.NewStrategy(judge.StrategyRaw, 1.5, nil); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}
