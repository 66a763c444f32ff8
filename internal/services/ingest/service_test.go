package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/models"
	"github.com/corvus-labs/gnosis/internal/services/chunker"
	"github.com/corvus-labs/gnosis/internal/services/extractors"
	"github.com/corvus-labs/gnosis/internal/services/workers"
)

// memoryStorage is an in-memory DocumentStorage recording the status
// history of every save.
type memoryStorage struct {
	mu      sync.Mutex
	docs    map[string]models.Document
	history map[string][]models.DocumentStatus
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		docs:    make(map[string]models.Document),
		history: make(map[string][]models.DocumentStatus),
	}
}

func (m *memoryStorage) SaveDocument(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.UpdatedAt = time.Now()
	m.docs[doc.ID] = *doc
	m.history[doc.ID] = append(m.history[doc.ID], doc.Status)
	return nil
}

func (m *memoryStorage) GetDocument(id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return &doc, nil
}

func (m *memoryStorage) ListDocumentsByUser(userID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Document
	for id := range m.docs {
		doc := m.docs[id]
		if doc.UserID == userID {
			result = append(result, &doc)
		}
	}
	return result, nil
}

func (m *memoryStorage) ListDocumentsByStatus(status models.DocumentStatus) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Document
	for id := range m.docs {
		doc := m.docs[id]
		if doc.Status == status {
			result = append(result, &doc)
		}
	}
	return result, nil
}

func (m *memoryStorage) statusHistory(id string) []models.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DocumentStatus(nil), m.history[id]...)
}

// mockExtractor returns canned units or an error, and captures the request.
// With blockUntilCancel set it parks until the job context is cancelled and
// returns the error shape a cancelled crawl produces.
type mockExtractor struct {
	mu               sync.Mutex
	result           *extractors.Result
	err              error
	gotReq           *models.IngestRequest
	blockUntilCancel bool
	active           bool
}

func (m *mockExtractor) Extract(ctx context.Context, req *models.IngestRequest) (*extractors.Result, error) {
	m.mu.Lock()
	m.gotReq = req
	m.active = true
	block := m.blockUntilCancel
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: seed page %s: %w", models.ErrCrawlFetch, req.URL, ctx.Err())
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockExtractor) extracting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// mockEmbedder returns one fixed-size vector per text. The optional hook
// runs before each batch, inside the processing pass.
type mockEmbedder struct {
	err  error
	hook func()
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.hook != nil {
		m.hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0, 0}
	}
	return vectors, nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) Dimension() int { return 4 }

// mockVectorStore records upserted chunks.
type mockVectorStore struct {
	mu     sync.Mutex
	err    error
	chunks []models.Chunk
}

func (m *mockVectorStore) EnsureCollection(context.Context) error { return nil }

func (m *mockVectorStore) Upsert(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) Search(context.Context, []float32, string, int) ([]models.ScoredChunk, error) {
	return nil, nil
}

func (m *mockVectorStore) stored() []models.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Chunk(nil), m.chunks...)
}

type fixture struct {
	service   *Service
	storage   *memoryStorage
	extractor *mockExtractor
	embedder  *mockEmbedder
	vectors   *mockVectorStore
	pool      *workers.Pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		storage:   newMemoryStorage(),
		extractor: &mockExtractor{},
		embedder:  &mockEmbedder{},
		vectors:   &mockVectorStore{},
	}

	split, err := chunker.New(1000, 200)
	require.NoError(t, err)

	f.pool = workers.NewPool(2, common.GetLogger())
	f.pool.Start()
	t.Cleanup(f.pool.Shutdown)

	f.service = NewService(
		f.storage, f.extractor, split, f.embedder, f.vectors, f.pool,
		common.CrawlerConfig{MaxDepth: 3}, common.GetLogger(),
	)
	return f
}

func (f *fixture) waitTerminal(t *testing.T, docID string) *models.Document {
	t.Helper()
	var doc *models.Document
	require.Eventually(t, func() bool {
		var err error
		doc, err = f.storage.GetDocument(docID)
		return err == nil && doc.Status.Terminal()
	}, 3*time.Second, 5*time.Millisecond)
	return doc
}

func textRequest(text string) *models.IngestRequest {
	return &models.IngestRequest{
		UserID:    "user-a",
		SessionID: "sess-1",
		Type:      models.ContentTypeText,
		Source:    "notes.txt",
		Payload:   []byte(text),
	}
}

func TestSubmit_CompletesWithStatusSequence(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{Units: []extractors.Unit{
		{Text: "some document text", Meta: models.ChunkMetadata{Source: "notes.txt"}},
	}}

	docID, err := f.service.Submit(context.Background(), textRequest("some document text"))
	require.NoError(t, err)
	assert.Contains(t, docID, "doc_")

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, 1, doc.ChunkCount)
	assert.Empty(t, doc.Error)
	require.NotNil(t, doc.CompletedAt)

	assert.Equal(t, []models.DocumentStatus{
		models.StatusPending, models.StatusProcessing, models.StatusCompleted,
	}, f.storage.statusHistory(docID))
}

func TestSubmit_ChunkIndicesDenseAcrossUnits(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{Units: []extractors.Unit{
		{Text: "page one text", Meta: models.ChunkMetadata{Source: "a.pdf", Page: 1}},
		{Text: "page two text", Meta: models.ChunkMetadata{Source: "a.pdf", Page: 2}},
	}}

	req := textRequest("x")
	docID, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)
	doc := f.waitTerminal(t, docID)
	require.Equal(t, models.StatusCompleted, doc.Status)

	chunks := f.vectors.stored()
	require.Len(t, chunks, 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, docID, chunk.DocumentID)
		assert.Equal(t, "user-a", chunk.UserID)
		assert.Equal(t, "sess-1", chunk.Metadata.SessionID)
	}
	assert.Equal(t, 1, chunks[0].Metadata.Page)
	assert.Equal(t, 2, chunks[1].Metadata.Page)
}

func TestSubmit_ExtractionFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = fmt.Errorf("%w: corrupt input", models.ErrExtraction)

	docID, err := f.service.Submit(context.Background(), textRequest("x"))
	require.NoError(t, err)

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "extraction failed")
	assert.Contains(t, doc.Error, "corrupt input")
	assert.Empty(t, f.vectors.stored(), "no chunks may reach the vector store")
}

func TestSubmit_EmbeddingFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{Units: []extractors.Unit{
		{Text: "text", Meta: models.ChunkMetadata{Source: "notes.txt"}},
	}}
	f.embedder.err = fmt.Errorf("%w: endpoint down", models.ErrEmbeddingService)

	docID, err := f.service.Submit(context.Background(), textRequest("x"))
	require.NoError(t, err)

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "embedding failed")
}

func TestSubmit_VectorStoreFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{Units: []extractors.Unit{
		{Text: "text", Meta: models.ChunkMetadata{Source: "notes.txt"}},
	}}
	f.vectors.err = fmt.Errorf("%w: unreachable", models.ErrVectorStore)

	docID, err := f.service.Submit(context.Background(), textRequest("x"))
	require.NoError(t, err)

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "vector storage failed")
}

func TestSubmit_SweptDocumentStaysFailed(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{Units: []extractors.Unit{
		{Text: "text", Meta: models.ChunkMetadata{Source: "notes.txt"}},
	}}

	// A sweep lands mid-pass: the document goes failed between the
	// processing save and the completion save.
	f.embedder.hook = func() {
		docs, err := f.storage.ListDocumentsByStatus(models.StatusProcessing)
		require.NoError(t, err)
		for _, d := range docs {
			d.Status = models.StatusFailed
			d.Error = "processing interrupted: document orphaned by a service restart"
			require.NoError(t, f.storage.SaveDocument(d))
		}
	}

	docID, err := f.service.Submit(context.Background(), textRequest("text"))
	require.NoError(t, err)

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusFailed, doc.Status)

	// Wait for the pass itself to finish before inspecting the history.
	require.Eventually(t, func() bool {
		f.service.mu.Lock()
		defer f.service.mu.Unlock()
		return !f.service.inflight[docID]
	}, 3*time.Second, 5*time.Millisecond)

	doc, err = f.storage.GetDocument(docID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "interrupted")
	assert.NotContains(t, f.storage.statusHistory(docID), models.StatusCompleted,
		"a failed document must never be rewritten to completed")
}

func TestSubmit_ShutdownMidExtractionRecordsCancellation(t *testing.T) {
	storage := newMemoryStorage()
	extractor := &mockExtractor{blockUntilCancel: true}

	split, err := chunker.New(1000, 200)
	require.NoError(t, err)

	pool := workers.NewPool(1, common.GetLogger())
	pool.Start()

	svc := NewService(
		storage, extractor, split, &mockEmbedder{}, &mockVectorStore{}, pool,
		common.CrawlerConfig{MaxDepth: 3}, common.GetLogger(),
	)

	docID, err := svc.Submit(context.Background(), &models.IngestRequest{
		UserID:    "user-a",
		SessionID: "sess-1",
		Type:      models.ContentTypeURL,
		URL:       "https://e.com/",
		MaxDepth:  2,
	})
	require.NoError(t, err)

	require.Eventually(t, extractor.extracting, 3*time.Second, 5*time.Millisecond)
	pool.Shutdown()

	doc, err := storage.GetDocument(docID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "ingestion cancelled during extraction")
}

func TestFailureMessage_CancellationSurvivesStageWrapping(t *testing.T) {
	crawl := fmt.Errorf("%w: seed page %s: %w", models.ErrCrawlFetch, "https://e.com/", context.Canceled)
	assert.Contains(t, failureMessage("extraction", crawl), "ingestion cancelled during extraction")

	embed := fmt.Errorf("%w: batch embedding failed: %w", models.ErrEmbeddingService, context.DeadlineExceeded)
	assert.Contains(t, failureMessage("embedding", embed), "ingestion cancelled during embedding")

	store := fmt.Errorf("%w: upsert 3 points: %w", models.ErrVectorStore, context.Canceled)
	assert.Contains(t, failureMessage("vector storage", store), "ingestion cancelled during vector storage")

	plain := fmt.Errorf("%w: endpoint down", models.ErrEmbeddingService)
	assert.Equal(t, "embedding failed: embedding service error: endpoint down", failureMessage("embedding", plain))
}

func TestSubmit_EmptyExtractionCompletesWithZeroChunks(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{}

	docID, err := f.service.Submit(context.Background(), textRequest("   "))
	require.NoError(t, err)

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, 0, doc.ChunkCount)
}

func TestSubmit_CrawlPageErrorsRecorded(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{
		Units:      []extractors.Unit{{Text: "page", Meta: models.ChunkMetadata{URL: "https://e.com/"}}},
		PageErrors: []string{"https://e.com/broken: HTTP 404"},
	}

	docID, err := f.service.Submit(context.Background(), &models.IngestRequest{
		UserID:    "user-a",
		SessionID: "sess-1",
		Type:      models.ContentTypeURL,
		URL:       "https://e.com/",
		MaxDepth:  2,
	})
	require.NoError(t, err)

	doc := f.waitTerminal(t, docID)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, []string{"https://e.com/broken: HTTP 404"}, doc.PageErrors)
}

func TestSubmit_RejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  *models.IngestRequest
	}{
		{"missing user", &models.IngestRequest{SessionID: "s", Type: models.ContentTypeText, Payload: []byte("x")}},
		{"missing session", &models.IngestRequest{UserID: "u", Type: models.ContentTypeText, Payload: []byte("x")}},
		{"bad type", &models.IngestRequest{UserID: "u", SessionID: "s", Type: "audio", Payload: []byte("x")}},
		{"missing payload", &models.IngestRequest{UserID: "u", SessionID: "s", Type: models.ContentTypePDF}},
		{"missing url", &models.IngestRequest{UserID: "u", SessionID: "s", Type: models.ContentTypeURL}},
		{"depth too deep", &models.IngestRequest{UserID: "u", SessionID: "s", Type: models.ContentTypeURL, URL: "https://e.com", MaxDepth: 11}},
		{"negative depth", &models.IngestRequest{UserID: "u", SessionID: "s", Type: models.ContentTypeURL, URL: "https://e.com", MaxDepth: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}

	// No invalid request may leave a document behind.
	docs, err := f.service.ListDocuments(context.Background(), "u")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSubmit_DefaultDepthApplied(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = &extractors.Result{}

	docID, err := f.service.Submit(context.Background(), &models.IngestRequest{
		UserID:    "user-a",
		SessionID: "sess-1",
		Type:      models.ContentTypeURL,
		URL:       "https://e.com/",
	})
	require.NoError(t, err)
	f.waitTerminal(t, docID)

	f.extractor.mu.Lock()
	defer f.extractor.mu.Unlock()
	require.NotNil(t, f.extractor.gotReq)
	assert.Equal(t, 3, f.extractor.gotReq.MaxDepth)
}

func TestSweeper_FailsOnlyStaleProcessingDocuments(t *testing.T) {
	storage := newMemoryStorage()

	stale := &models.Document{ID: "doc_stale", UserID: "u", Status: models.StatusProcessing}
	require.NoError(t, storage.SaveDocument(stale))
	storage.mu.Lock()
	doc := storage.docs["doc_stale"]
	doc.UpdatedAt = time.Now().Add(-time.Hour)
	storage.docs["doc_stale"] = doc
	storage.mu.Unlock()

	fresh := &models.Document{ID: "doc_fresh", UserID: "u", Status: models.StatusProcessing}
	require.NoError(t, storage.SaveDocument(fresh))

	done := &models.Document{ID: "doc_done", UserID: "u", Status: models.StatusCompleted}
	require.NoError(t, storage.SaveDocument(done))

	sweeper, err := NewSweeper(storage, common.ProcessingConfig{StaleAfter: "15m"}, common.GetLogger())
	require.NoError(t, err)
	sweeper.Sweep()

	got, err := storage.GetDocument("doc_stale")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "interrupted")

	got, err = storage.GetDocument("doc_fresh")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)

	got, err = storage.GetDocument("doc_done")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}
