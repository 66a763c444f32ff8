package interfaces

import "context"

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// EmbedBatch converts a batch of text chunks into fixed-length vectors.
	// The batch fails as a single unit if any item fails.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates the embedding for a search query (may use a
	// different prompt than document embedding)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimension returns the fixed vector dimensionality of this deployment
	Dimension() int
}
