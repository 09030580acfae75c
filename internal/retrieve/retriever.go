// Package retrieve embeds a natural-language question and runs filtered
// similarity search against the vector index, degrading to unfiltered
// search when the filters strangle the result set.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/categorize"
	"github.com/finleyapp/finance-advisor/internal/domain"
	"github.com/finleyapp/finance-advisor/internal/embed"
	"github.com/finleyapp/finance-advisor/internal/vector"
)

const (
	// DefaultK is the default result size.
	DefaultK = 20
	// DefaultMinResults is the threshold below which a filtered search
	// falls back to an unfiltered one. Without this a wrong date guess
	// turns into a conversational dead end.
	DefaultMinResults = 3
)

// Retriever turns a question into ranked retrieval results. The Embedder
// must be the same one used at index time.
type Retriever struct {
	Embedder    embed.Embedder
	Index       vector.Index
	Categorizer *categorize.Categorizer

	K           int
	MinResults  int
	ParsePeriod PeriodParser
	Now         func() time.Time
}

// New creates a Retriever with default limits and the calendar period
// parser.
func New(e embed.Embedder, idx vector.Index, c *categorize.Categorizer) *Retriever {
	return &Retriever{
		Embedder:    e,
		Index:       idx,
		Categorizer: c,
		K:           DefaultK,
		MinResults:  DefaultMinResults,
		ParsePeriod: CalendarPeriods,
		Now:         time.Now,
	}
}

// Retrieve embeds the question, extracts filters from its text, and returns
// results ordered by descending score with ties broken by more recent date.
// The returned Query carries the filters that were actually applied.
func (r *Retriever) Retrieve(ctx context.Context, text string) ([]domain.RetrievalResult, domain.Query, error) {
	query := domain.Query{Text: text, Filters: r.extractFilters(text)}

	vec, err := r.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, query, fmt.Errorf("Retrieve: embed query: %w", err)
	}

	k := r.K
	if k <= 0 {
		k = DefaultK
	}

	filter := toFilter(query.Filters)
	hits, err := r.Index.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, query, fmt.Errorf("Retrieve: search: %w", err)
	}

	// Filtered search starving the result set is degradation, not an
	// error: retry without filters so the user still gets an answer.
	if filter != nil && len(hits) < r.minResults() {
		hits, err = r.Index.Search(ctx, vec, k, nil)
		if err != nil {
			return nil, query, fmt.Errorf("Retrieve: unfiltered fallback: %w", err)
		}
		query.Filters = domain.Filters{}
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		tx, err := transactionFromHit(h)
		if err != nil {
			continue // malformed payload, skip rather than fail the query
		}
		results = append(results, domain.RetrievalResult{Transaction: tx, Score: h.Score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Transaction.Date.After(results[j].Transaction.Date)
	})

	return results, query, nil
}

func (r *Retriever) minResults() int {
	if r.MinResults > 0 {
		return r.MinResults
	}
	return DefaultMinResults
}

// extractFilters derives structured constraints from the query text: a date
// range when the text names a period, and a category when the text itself
// matches the category taxonomy (the categorizer's own matching logic,
// reused against the question).
func (r *Retriever) extractFilters(text string) domain.Filters {
	var f domain.Filters

	parse := r.ParsePeriod
	if parse == nil {
		parse = CalendarPeriods
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	f.Range = parse(text, now())

	if r.Categorizer != nil {
		if m := r.Categorizer.Match(text); m.Confidence != domain.ConfidenceFallback {
			f.Category = m.Category
		}
	}
	return f
}

func toFilter(f domain.Filters) *vector.Filter {
	if f.Empty() {
		return nil
	}
	vf := &vector.Filter{Category: f.Category}
	if f.Range != nil {
		vf.From = f.Range.From
		vf.To = f.Range.To
	}
	return vf
}

func transactionFromHit(h vector.Hit) (domain.Transaction, error) {
	date, err := time.Parse("2006-01-02", h.Payload.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse payload date %q: %w", h.Payload.Date, err)
	}
	amount := decimal.NewFromFloat(h.Payload.Amount)
	return domain.Transaction{
		ID:          h.ID,
		Date:        date,
		Description: h.Payload.Description,
		Amount:      amount,
		Direction:   domain.Direction(h.Payload.Direction),
		Category:    h.Payload.Category,
		FileID:      h.Payload.FileID,
	}, nil
}
