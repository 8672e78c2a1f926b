// Package normalize turns chat text into the surface form used for similarity scoring.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"golang.org/x/text/unicode/norm"

	"github.com/gyaneshwarpardhi/ngjudge/internal/metrics"
)

// Normalizer maps text to a comparable form. Implementations must be deterministic.
type Normalizer interface {
	Normalize(text string) (string, error)
}

// Identity returns text unchanged.
type Identity struct{}

func (Identity) Normalize(text string) (string, error) { return text, nil }

// Linguistic folds compatibility characters with NFKC and replaces each morpheme with
// its dictionary base form, so inflected phrasings of the same words compare closely.
type Linguistic struct {
	tok *tokenizer.Tokenizer
}

// NewLinguistic loads the IPA dictionary tokenizer.
func NewLinguistic() (*Linguistic, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("normalize: tokenizer: %w", err)
	}
	return &Linguistic{tok: t}, nil
}

func (l *Linguistic) Normalize(text string) (out string, err error) {
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("normalize: invalid UTF-8 input")
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("normalize: tokenizer panic: %v", r)
		}
	}()
	folded := norm.NFKC.String(text)
	tokens := l.tok.Tokenize(folded)
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t.Surface) == "" {
			continue
		}
		if base, ok := t.BaseForm(); ok && base != "" && base != "*" {
			words = append(words, base)
			continue
		}
		words = append(words, t.Surface)
	}
	return strings.Join(words, " "), nil
}

// Safe wraps a Normalizer so that a failure logs and yields the original text.
type Safe struct {
	inner  Normalizer
	logger *slog.Logger
}

// NewSafe returns a failure-tolerant wrapper around n.
func NewSafe(n Normalizer, logger *slog.Logger) *Safe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Safe{inner: n, logger: logger}
}

// Apply never fails; on error it returns text as given. attrs are added to the
// failure log line.
func (s *Safe) Apply(text string, attrs ...any) string {
	out, err := s.inner.Normalize(text)
	if err != nil {
		metrics.NormalizeFailures.Inc()
		args := append([]any{"err", err, "text_len", len(text)}, attrs...)
		s.logger.Warn("normalization failed, using raw text", args...)
		return text
	}
	return out
}
