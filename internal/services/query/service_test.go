package query

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/models"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubEmbedder) Dimension() int { return 4 }

type stubVectorStore struct {
	hits     []models.ScoredChunk
	err      error
	gotUser  string
	gotLimit int
}

func (s *stubVectorStore) EnsureCollection(context.Context) error { return nil }

func (s *stubVectorStore) Upsert(context.Context, []models.Chunk, [][]float32) error { return nil }

func (s *stubVectorStore) Search(_ context.Context, _ []float32, userID string, limit int) ([]models.ScoredChunk, error) {
	s.gotUser = userID
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type stubGenerator struct {
	answer         string
	err            error
	gotInstruction string
	gotContext     string
	gotQuery       string
}

func (s *stubGenerator) Generate(_ context.Context, instruction, contextBlock, query string) (string, error) {
	s.gotInstruction = instruction
	s.gotContext = contextBlock
	s.gotQuery = query
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubGenerator) HealthCheck(context.Context) error { return nil }
func (s *stubGenerator) Close() error                      { return nil }

func retrievalConfig() common.RetrievalConfig {
	return common.RetrievalConfig{
		Candidates:    20,
		TopK:          5,
		ContextBudget: 8000,
		SnippetLength: 200,
	}
}

func newQueryService(store *stubVectorStore, gen *stubGenerator) *Service {
	return NewService(&stubEmbedder{}, store, gen, retrievalConfig(), common.GetLogger())
}

func TestRun_HappyPathWithSources(t *testing.T) {
	var hits []models.ScoredChunk
	for i := 0; i < 20; i++ {
		hits = append(hits, models.ScoredChunk{
			Chunk: models.Chunk{
				DocumentID: fmt.Sprintf("doc_%d", i),
				UserID:     "user-a",
				Index:      i,
				Text:       fmt.Sprintf("billing answer number %d", i),
				Metadata:   models.ChunkMetadata{Source: fmt.Sprintf("file_%d.txt", i)},
			},
			Score: 1 - float32(i)/100,
		})
	}
	store := &stubVectorStore{hits: hits}
	gen := &stubGenerator{answer: "Here is the billing answer."}

	result := newQueryService(store, gen).Run(context.Background(), &models.QueryRequest{
		UserID: "user-a",
		Query:  "billing answer",
	})

	assert.Empty(t, result.Error)
	assert.Equal(t, "Here is the billing answer.", result.Answer)

	// 20 candidates reranked to the configured top 5.
	assert.Equal(t, "user-a", store.gotUser)
	assert.Equal(t, 20, store.gotLimit)
	require.Len(t, result.Sources, 5)

	// Sources follow context assembly order and carry the chunk metadata.
	assert.Equal(t, "billing answer", gen.gotQuery)
	for i, source := range result.Sources {
		pos := strings.Index(gen.gotContext, "[Source: "+source.Metadata.Source+"]")
		assert.GreaterOrEqual(t, pos, 0, "source %d missing from context", i)
		if i > 0 {
			prev := strings.Index(gen.gotContext, "[Source: "+result.Sources[i-1].Metadata.Source+"]")
			assert.Greater(t, pos, prev, "context order must match source order")
		}
	}
}

func TestRun_EmptyCorpusStillGenerates(t *testing.T) {
	store := &stubVectorStore{}
	gen := &stubGenerator{answer: "I have no information about that yet."}

	result := newQueryService(store, gen).Run(context.Background(), &models.QueryRequest{
		UserID: "user-new",
		Query:  "anything at all?",
	})

	assert.Empty(t, result.Error)
	assert.Equal(t, "I have no information about that yet.", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Empty(t, gen.gotContext, "generator receives an empty context, not no call")
	assert.Equal(t, defaultInstruction, gen.gotInstruction)
}

func TestRun_PersonaInstruction(t *testing.T) {
	store := &stubVectorStore{}
	gen := &stubGenerator{answer: "ok"}
	svc := newQueryService(store, gen)

	svc.Run(context.Background(), &models.QueryRequest{
		UserID:     "user-a",
		Query:      "q",
		Persona:    "You are a terse accountant.",
		UsePersona: true,
	})
	assert.Equal(t, "You are a terse accountant.", gen.gotInstruction)

	// Persona supplied but not enabled: default applies.
	svc.Run(context.Background(), &models.QueryRequest{
		UserID:  "user-a",
		Query:   "q",
		Persona: "You are a terse accountant.",
	})
	assert.Equal(t, defaultInstruction, gen.gotInstruction)

	// Enabled but blank persona falls back to the default.
	svc.Run(context.Background(), &models.QueryRequest{
		UserID:     "user-a",
		Query:      "q",
		Persona:    "   ",
		UsePersona: true,
	})
	assert.Equal(t, defaultInstruction, gen.gotInstruction)
}

func TestRun_SnippetCapped(t *testing.T) {
	store := &stubVectorStore{hits: []models.ScoredChunk{{
		Chunk: models.Chunk{
			UserID:   "user-a",
			Text:     strings.Repeat("billing ", 100),
			Metadata: models.ChunkMetadata{Source: "big.txt"},
		},
	}}}
	gen := &stubGenerator{answer: "ok"}

	result := newQueryService(store, gen).Run(context.Background(), &models.QueryRequest{
		UserID: "user-a",
		Query:  "billing",
	})

	require.Len(t, result.Sources, 1)
	assert.Len(t, []rune(result.Sources[0].Text), 200)
}

func TestRun_GenerationFailure(t *testing.T) {
	store := &stubVectorStore{hits: []models.ScoredChunk{{
		Chunk: models.Chunk{UserID: "user-a", Text: "text", Metadata: models.ChunkMetadata{Source: "a.txt"}},
	}}}
	gen := &stubGenerator{err: fmt.Errorf("%w: model overloaded", models.ErrGenerationService)}

	result := newQueryService(store, gen).Run(context.Background(), &models.QueryRequest{
		UserID: "user-a",
		Query:  "q",
	})

	assert.Contains(t, result.Error, "model overloaded")
	assert.Empty(t, result.Answer)
	assert.Empty(t, result.Sources)
}

func TestRun_SearchFailure(t *testing.T) {
	store := &stubVectorStore{err: fmt.Errorf("%w: connection refused", models.ErrVectorStore)}
	gen := &stubGenerator{answer: "never used"}

	result := newQueryService(store, gen).Run(context.Background(), &models.QueryRequest{
		UserID: "user-a",
		Query:  "q",
	})

	assert.Contains(t, result.Error, "connection refused")
	assert.Empty(t, result.Sources)
	assert.Empty(t, gen.gotQuery, "generator must not run after a retrieval failure")
}

func TestRun_ValidatesRequest(t *testing.T) {
	svc := newQueryService(&stubVectorStore{}, &stubGenerator{})

	result := svc.Run(context.Background(), &models.QueryRequest{Query: "q"})
	assert.NotEmpty(t, result.Error)

	result = svc.Run(context.Background(), &models.QueryRequest{UserID: "user-a", Query: "  "})
	assert.NotEmpty(t, result.Error)
}
