// Package categorize assigns categories to transaction descriptions using
// deterministic keyword rules. No ML, no probabilities: every assignment is
// explainable by the keyword that produced it.
package categorize

import (
	"strings"
	"unicode"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// FallbackCategory is assigned when no keyword matches.
const FallbackCategory = "Uncategorized"

// Match is the outcome of categorizing one description.
type Match struct {
	Category   string
	Keyword    string // the keyword that matched, empty for fallback
	Confidence domain.Confidence
}

// Options tunes matching behavior.
type Options struct {
	// FirstMatch reproduces the original first-declared-keyword-wins
	// behavior instead of preferring the longest matching keyword across
	// all categories. Longest-match avoids collisions like "uber" claiming
	// "UBER EATS" before "uber eats" is tested.
	FirstMatch bool
}

// Categorizer matches descriptions against an immutable category taxonomy.
// It is safe for concurrent use.
type Categorizer struct {
	categories []category
	opts       Options
}

type category struct {
	name     string
	keywords []string // normalized, declaration order preserved
}

// New builds a categorizer with longest-match-wins semantics.
func New(categories []domain.Category) *Categorizer {
	return NewWithOptions(categories, Options{})
}

// NewWithOptions builds a categorizer with explicit matching options.
func NewWithOptions(categories []domain.Category, opts Options) *Categorizer {
	c := &Categorizer{opts: opts}
	for _, dc := range categories {
		kw := make([]string, 0, len(dc.Keywords))
		for _, k := range dc.Keywords {
			if n := Normalize(k); n != "" {
				kw = append(kw, n)
			}
		}
		c.categories = append(c.categories, category{name: dc.Name, keywords: kw})
	}
	return c
}

// Categorize maps a description to a category name and confidence. It is a
// pure function of the description: it always returns a category, falling
// back to FallbackCategory when nothing matches.
func (c *Categorizer) Categorize(description string) (string, domain.Confidence) {
	m := c.Match(description)
	return m.Category, m.Confidence
}

// Match returns the full match outcome, including the winning keyword.
func (c *Categorizer) Match(description string) Match {
	norm := Normalize(description)
	if norm == "" {
		return Match{Category: FallbackCategory, Confidence: domain.ConfidenceFallback}
	}

	best := Match{Category: FallbackCategory, Confidence: domain.ConfidenceFallback}
	for _, cat := range c.categories {
		for _, kw := range cat.keywords {
			if !contains(norm, kw) {
				continue
			}
			m := Match{Category: cat.name, Keyword: kw, Confidence: domain.ConfidencePartial}
			if norm == kw {
				m.Confidence = domain.ConfidenceExact
			}
			if c.opts.FirstMatch {
				return m
			}
			// Longest keyword across all categories wins; declaration
			// order breaks exact length ties.
			if len(kw) > len(best.Keyword) {
				best = m
			}
		}
	}
	return best
}

// contains reports whether keyword occurs in norm on token boundaries for
// single-token keywords, or as a plain substring for multi-word keywords.
func contains(norm, keyword string) bool {
	// Multi-word keywords ("uber eats") already carry their own boundary.
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(norm, keyword)
	}
	// Require word boundaries on both sides so "rent" claims neither
	// "parents" nor "current".
	for at := 0; ; at++ {
		idx := strings.Index(norm[at:], keyword)
		if idx < 0 {
			return false
		}
		at += idx
		end := at + len(keyword)
		startOK := at == 0 || norm[at-1] == ' '
		endOK := end == len(norm) || norm[end] == ' '
		if startOK && endOK {
			return true
		}
	}
}

// Normalize lowercases a description and replaces every non-alphanumeric
// rune with a space, collapsing runs of spaces. "NETFLIX.COM" becomes
// "netflix com".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
