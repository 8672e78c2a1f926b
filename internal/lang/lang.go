// Package lang detects message language and holds per-language length limits.
package lang

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/gyaneshwarpardhi/ngjudge/internal/metrics"
)

// Unknown is returned when no confident language could be detected.
// It never appears in a Policy.
const Unknown = "un"

// Classifier maps text to an ISO 639-1 language code.
type Classifier interface {
	Classify(text string) (string, error)
}

// Detector classifies with trigram and script statistics.
type Detector struct{}

func (Detector) Classify(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return Unknown, nil
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return Unknown, nil
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return Unknown, nil
	}
	return code, nil
}

// Safe wraps a Classifier so that failures log and yield Unknown.
type Safe struct {
	inner  Classifier
	logger *slog.Logger
}

func NewSafe(c Classifier, logger *slog.Logger) *Safe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Safe{inner: c, logger: logger}
}

// Apply never fails.
func (s *Safe) Apply(text string) (code string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ClassifyFailures.Inc()
			s.logger.Warn("language classification panicked, using unknown", "err", r)
			code = Unknown
		}
	}()
	code, err := s.inner.Classify(text)
	if err != nil {
		metrics.ClassifyFailures.Inc()
		s.logger.Warn("language classification failed, using unknown", "err", err)
		return Unknown
	}
	if code == "" {
		return Unknown
	}
	return code
}

// Policy maps a language code to the longest tolerated message, in runes.
type Policy map[string]int

// Limit returns the configured limit for code.
func (p Policy) Limit(code string) (int, bool) {
	if code == Unknown {
		return 0, false
	}
	n, ok := p[code]
	return n, ok
}

// Validate rejects non-positive limits and the reserved unknown code.
func (p Policy) Validate() error {
	for code, n := range p {
		if code == "" || code == Unknown {
			return fmt.Errorf("lang policy: invalid language code %q", code)
		}
		if n <= 0 {
			return fmt.Errorf("lang policy: limit for %q must be positive, got %d", code, n)
		}
	}
	return nil
}

// LoadPolicy reads a tab-separated "code<TAB>limit" file. Blank lines are ignored.
func LoadPolicy(path string) (Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lang policy: %w", err)
	}
	defer f.Close()

	p := make(Policy)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("lang policy %s:%d: expected code<TAB>limit", path, lineNo)
		}
		n, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("lang policy %s:%d: limit %q: %w", path, lineNo, fields[1], err)
		}
		p[strings.TrimSpace(fields[0])] = n
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lang policy: read %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
