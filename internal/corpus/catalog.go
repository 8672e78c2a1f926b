package corpus

import (
	"github.com/gyaneshwarpardhi/ngjudge/internal/similarity"
)

// Pattern is one known-bad reference text. Key identifies its origin.
type Pattern struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Catalog is an ordered, immutable list of patterns with pre-built matchers.
// Order is significant: the first pattern over threshold wins.
type Catalog struct {
	patterns []Pattern
	matchers []*similarity.Matcher
}

// NewCatalog indexes patterns in the given order.
func NewCatalog(patterns []Pattern) *Catalog {
	c := &Catalog{
		patterns: make([]Pattern, len(patterns)),
		matchers: make([]*similarity.Matcher, len(patterns)),
	}
	copy(c.patterns, patterns)
	for i, p := range c.patterns {
		c.matchers[i] = similarity.NewMatcher(p.Text)
	}
	return c
}

// Len returns the number of patterns.
func (c *Catalog) Len() int { return len(c.patterns) }

// At returns the i-th pattern.
func (c *Catalog) At(i int) Pattern { return c.patterns[i] }

// Score returns the similarity of text against the i-th pattern.
func (c *Catalog) Score(i int, text string) float64 {
	return c.matchers[i].Ratio(text)
}

// Patterns returns a copy of the patterns in catalog order.
func (c *Catalog) Patterns() []Pattern {
	out := make([]Pattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// Map returns a new catalog with fn applied to every pattern text. Keys are kept.
func (c *Catalog) Map(fn func(string) string) *Catalog {
	mapped := make([]Pattern, len(c.patterns))
	for i, p := range c.patterns {
		mapped[i] = Pattern{Key: p.Key, Text: fn(p.Text)}
	}
	return NewCatalog(mapped)
}

// Blocklist is a deduplicated set of channel identifiers.
type Blocklist struct {
	set   map[string]struct{}
	order []string
}

// NewBlocklist dedupes ids, keeping first-seen order.
func NewBlocklist(ids []string) *Blocklist {
	b := &Blocklist{set: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := b.set[id]; ok {
			continue
		}
		b.set[id] = struct{}{}
		b.order = append(b.order, id)
	}
	return b
}

// Contains reports whether id is blocklisted. The empty id never matches.
func (b *Blocklist) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := b.set[id]
	return ok
}

func (b *Blocklist) Len() int { return len(b.order) }

// IDs returns the identifiers in load order.
func (b *Blocklist) IDs() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}
