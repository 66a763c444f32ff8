package interfaces

import (
	"context"

	"github.com/corvus-labs/gnosis/internal/models"
)

// VectorStore wraps the external similarity index. Writes are additive
// upserts keyed by chunk identity; stored vectors are never mutated.
// Search results are restricted to records tagged with the given owner at
// the query layer, never post-filtered.
type VectorStore interface {
	// EnsureCollection creates the backing collection if missing.
	EnsureCollection(ctx context.Context) error

	// Upsert stores one vector per chunk. chunks and vectors must be the
	// same length.
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error

	// Search returns up to limit hits ordered by descending similarity,
	// restricted to records owned by userID. An empty corpus yields an
	// empty result, never an error.
	Search(ctx context.Context, vector []float32, userID string, limit int) ([]models.ScoredChunk, error)
}
