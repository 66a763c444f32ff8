// -----------------------------------------------------------------------
// Query Service - Retrieval-augmented answering with source attribution
// -----------------------------------------------------------------------

package query

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// defaultInstruction is used when the request carries no persona.
const defaultInstruction = "You are a helpful AI assistant that answers questions based on the provided context. " +
	"Use the context to provide accurate and relevant answers. " +
	"If the answer cannot be found in the context, say so clearly."

// Service runs the query pipeline: embed the query, retrieve owner-filtered
// candidates, rerank, assemble context, generate. Failures surface in the
// result's Error field with empty sources; no error crosses the caller
// boundary.
type Service struct {
	embedder   interfaces.EmbeddingService
	vectors    interfaces.VectorStore
	generator  interfaces.GenerationService
	candidates int
	topK       int
	budget     int
	snippetLen int
	logger     arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.QueryService = (*Service)(nil)

// NewService creates the query orchestrator.
func NewService(
	embedder interfaces.EmbeddingService,
	vectors interfaces.VectorStore,
	generator interfaces.GenerationService,
	cfg common.RetrievalConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		embedder:   embedder,
		vectors:    vectors,
		generator:  generator,
		candidates: cfg.Candidates,
		topK:       cfg.TopK,
		budget:     cfg.ContextBudget,
		snippetLen: cfg.SnippetLength,
		logger:     logger,
	}
}

// Run answers one query against the caller's knowledge base. An empty
// corpus is graceful degradation, not an error: the generator is still
// invoked with an empty context and the response carries no sources.
func (s *Service) Run(ctx context.Context, req *models.QueryRequest) *models.QueryResult {
	if req.UserID == "" {
		return &models.QueryResult{Error: "user_id is required"}
	}
	if strings.TrimSpace(req.Query) == "" {
		return &models.QueryResult{Error: "query text is required"}
	}

	start := time.Now()

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Query embedding failed")
		return &models.QueryResult{Error: err.Error()}
	}

	hits, err := s.vectors.Search(ctx, vector, req.UserID, s.candidates)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Similarity search failed")
		return &models.QueryResult{Error: err.Error()}
	}

	top := rerank(req.Query, hits, s.topK)
	contextBlock, included := assembleContext(top, s.budget)

	instruction := defaultInstruction
	if req.UsePersona && strings.TrimSpace(req.Persona) != "" {
		instruction = req.Persona
	}

	answer, err := s.generator.Generate(ctx, instruction, contextBlock, req.Query)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Answer generation failed")
		return &models.QueryResult{Error: err.Error()}
	}

	sources := make([]models.QuerySource, 0, len(included))
	for _, chunk := range included {
		sources = append(sources, models.QuerySource{
			Text:     snippet(chunk.Chunk.Text, s.snippetLen),
			Metadata: chunk.Chunk.Metadata,
		})
	}

	s.logger.Info().
		Str("user_id", req.UserID).
		Int("candidates", len(hits)).
		Int("sources", len(sources)).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("Query answered")

	return &models.QueryResult{
		Answer:  answer,
		Sources: sources,
	}
}

// snippet truncates source text for the result payload. Rune based so a
// multi-byte character is never cut in half.
func snippet(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
