package vector

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Index. It backs tests and local development and is
// safe for concurrent use; a search may transiently miss a point being
// upserted concurrently but never observes a partial write.
type Memory struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{points: make(map[string]Point)}
}

// Upsert implements Index. Same id replaces, never duplicates.
func (m *Memory) Upsert(ctx context.Context, points ...Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.ID] = p
	}
	return nil
}

// Search implements Index: cosine similarity over all points, filtered,
// sorted by descending score. Ties are broken by more recent date, then id
// for determinism.
func (m *Memory) Search(ctx context.Context, vec []float32, k int, filter *Filter) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	hits := make([]Hit, 0, len(m.points))
	for _, p := range m.points {
		if !filter.Matches(p.Payload) {
			continue
		}
		hits = append(hits, Hit{ID: p.ID, Score: Cosine(vec, p.Vector), Payload: p.Payload})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Payload.DateKey != hits[j].Payload.DateKey {
			return hits[i].Payload.DateKey > hits[j].Payload.DateKey
		}
		return hits[i].ID < hits[j].ID
	})

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByFileID implements Index.
func (m *Memory) DeleteByFileID(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if p.Payload.FileID == fileID {
			delete(m.points, id)
		}
	}
	return nil
}

// Count implements Index.
func (m *Memory) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}
