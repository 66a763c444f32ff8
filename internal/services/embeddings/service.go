// -----------------------------------------------------------------------
// Embedding Service - Batched text embedding via Google Gemini
// -----------------------------------------------------------------------

package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// Service converts text into fixed-length vectors using the Gemini
// embedding endpoint. The dimensionality is fixed per deployment and must
// match the vector store collection.
type Service struct {
	client    *genai.Client
	model     string
	dimension int
	timeout   time.Duration
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.EmbeddingService = (*Service)(nil)

// NewService creates the embedding service.
func NewService(config *common.GeminiConfig, dimension int, logger arbor.ILogger) (*Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required for embedding (set GEMINI_API_KEY or gemini.api_key)", models.ErrConfiguration)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", models.ErrConfiguration, dimension)
	}

	model := config.EmbedModel
	if model == "" {
		model = "gemini-embedding-001"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gemini timeout %q: %v", models.ErrConfiguration, config.Timeout, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", model).
		Int("dimension", dimension).
		Msg("Embedding service initialized")

	return &Service{
		client:    client,
		model:     model,
		dimension: dimension,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// EmbedBatch embeds a batch of chunk texts in one call. The batch fails as
// a single unit: a short or mismatched response is an error, never a
// partial result.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	outputDim := int32(s.dimension)
	result, err := s.client.Models.EmbedContent(timeoutCtx, s.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: batch embedding failed: %w", models.ErrEmbeddingService, err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", models.ErrEmbeddingService, len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) != s.dimension {
			return nil, fmt.Errorf("%w: embedding %d has wrong dimension", models.ErrEmbeddingService, i)
		}
		vectors[i] = embedding.Values
	}

	s.logger.Debug().
		Int("batch_size", len(texts)).
		Msg("Embedded chunk batch")

	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the fixed vector dimensionality of this deployment.
func (s *Service) Dimension() int {
	return s.dimension
}
