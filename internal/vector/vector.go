// Package vector defines the vector index consumed by ingestion and
// retrieval. The index holds a derived, rebuildable projection of the
// transaction corpus: it can always be reconstructed from the transactions
// plus the embedding function, and is never treated as authoritative.
package vector

import (
	"context"
	"math"
	"time"
)

// Payload is the structured metadata stored next to each vector. It is what
// query-time filters run against, and it carries enough to rebuild a
// transaction view without consulting another store.
type Payload struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"` // YYYY-MM-DD
	DateKey     int64   `json:"date_key"`
	Amount      float64 `json:"amount"` // signed
	Direction   string  `json:"direction"`
	FileID      string  `json:"file_id"`
}

// DateKeyOf renders a date as a sortable integer (YYYYMMDD) for range
// filtering in backends without native date ranges.
func DateKeyOf(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// Point is one indexed entry, keyed by transaction id.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Filter restricts a search to matching payloads. Zero fields are ignored.
// From and To are inclusive.
type Filter struct {
	Category string
	From     time.Time
	To       time.Time
	FileID   string
}

// Matches reports whether a payload satisfies the filter.
func (f *Filter) Matches(p Payload) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.FileID != "" && p.FileID != f.FileID {
		return false
	}
	if !f.From.IsZero() && p.DateKey < DateKeyOf(f.From) {
		return false
	}
	if !f.To.IsZero() && p.DateKey > DateKeyOf(f.To) {
		return false
	}
	return true
}

// Hit is one search result. Score is a similarity: higher is better, and
// every Index implementation must return hits in non-increasing score order.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Index is the vector index service. Upsert is idempotent by point id:
// re-indexing the same id replaces the entry. Implementations must be safe
// for concurrent upsert and search.
type Index interface {
	Upsert(ctx context.Context, points ...Point) error
	Search(ctx context.Context, vec []float32, k int, filter *Filter) ([]Hit, error)
	DeleteByFileID(ctx context.Context, fileID string) error
	Count(ctx context.Context) (int, error)
}

// Cosine computes the cosine similarity of two vectors. Mismatched lengths
// or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
