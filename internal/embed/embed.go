// Package embed defines the embedding capability consumed by indexing and
// retrieval. The same Embedder must be used at index time and query time so
// both sides live in one embedding space.
package embed

import "context"

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension is the length of every vector this embedder produces.
	Dimension() int
}
