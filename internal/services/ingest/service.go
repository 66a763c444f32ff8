// -----------------------------------------------------------------------
// Ingest Service - Document state machine and ingestion pipeline
// -----------------------------------------------------------------------

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
	"github.com/corvus-labs/gnosis/internal/services/chunker"
	"github.com/corvus-labs/gnosis/internal/services/extractors"
	"github.com/corvus-labs/gnosis/internal/services/workers"
)

// Extractor turns one ingestion request into normalized text units.
type Extractor interface {
	Extract(ctx context.Context, req *models.IngestRequest) (*extractors.Result, error)
}

// Service owns the document status state machine and sequences extraction,
// chunking, embedding, and vector storage per document. Submission returns
// immediately; processing runs on the worker pool. At most one processing
// pass is ever active per document ID.
type Service struct {
	storage      interfaces.DocumentStorage
	extractor    Extractor
	chunker      *chunker.Chunker
	embedder     interfaces.EmbeddingService
	vectors      interfaces.VectorStore
	pool         *workers.Pool
	defaultDepth int
	logger       arbor.ILogger

	mu       sync.Mutex
	inflight map[string]bool
}

// Compile-time interface assertion
var _ interfaces.IngestService = (*Service)(nil)

// NewService creates the ingestion orchestrator.
func NewService(
	storage interfaces.DocumentStorage,
	extractor Extractor,
	chunkSplitter *chunker.Chunker,
	embedder interfaces.EmbeddingService,
	vectors interfaces.VectorStore,
	pool *workers.Pool,
	cfg common.CrawlerConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		storage:      storage,
		extractor:    extractor,
		chunker:      chunkSplitter,
		embedder:     embedder,
		vectors:      vectors,
		pool:         pool,
		defaultDepth: cfg.MaxDepth,
		logger:       logger,
		inflight:     make(map[string]bool),
	}
}

// Submit validates the request, creates the document with status pending,
// and queues processing. The document ID is returned immediately so status
// polling never races with work admission. Configuration errors are
// rejected here, before any document exists.
func (s *Service) Submit(ctx context.Context, req *models.IngestRequest) (string, error) {
	if err := s.validateRequest(req); err != nil {
		return "", err
	}

	doc := &models.Document{
		ID:        common.NewDocumentID(),
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Source:    sourceDescriptor(req),
		Type:      req.Type,
		MaxDepth:  req.MaxDepth,
		Status:    models.StatusPending,
	}
	if err := s.storage.SaveDocument(doc); err != nil {
		return "", fmt.Errorf("failed to create document record: %w", err)
	}

	if err := s.pool.Submit(func(jobCtx context.Context) error {
		return s.process(jobCtx, doc.ID, req)
	}); err != nil {
		s.failDocument(doc, fmt.Sprintf("ingestion not queued: %v", err))
		return "", err
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("user_id", req.UserID).
		Str("content_type", string(req.Type)).
		Str("source", doc.Source).
		Msg("Ingestion accepted")

	return doc.ID, nil
}

// GetDocument returns the status record for a document.
func (s *Service) GetDocument(_ context.Context, id string) (*models.Document, error) {
	return s.storage.GetDocument(id)
}

// ListDocuments returns the status records for all of a user's documents.
func (s *Service) ListDocuments(_ context.Context, userID string) ([]*models.Document, error) {
	return s.storage.ListDocumentsByUser(userID)
}

// validateRequest rejects malformed requests before any work starts. A url
// request without an explicit depth gets the configured default; explicit
// depths outside [1,10] are configuration errors.
func (s *Service) validateRequest(req *models.IngestRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrConfiguration)
	}
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", models.ErrConfiguration)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unsupported content type %q", models.ErrConfiguration, req.Type)
	}

	if req.Type == models.ContentTypeURL {
		if req.URL == "" {
			return fmt.Errorf("%w: url is required for url content", models.ErrConfiguration)
		}
		if req.MaxDepth == 0 {
			req.MaxDepth = s.defaultDepth
		}
		if req.MaxDepth < 1 || req.MaxDepth > 10 {
			return fmt.Errorf("%w: crawl depth must be between 1 and 10, got %d", models.ErrConfiguration, req.MaxDepth)
		}
		return nil
	}

	if len(req.Payload) == 0 {
		return fmt.Errorf("%w: payload is required for %s content", models.ErrConfiguration, req.Type)
	}
	return nil
}

func sourceDescriptor(req *models.IngestRequest) string {
	if req.Type == models.ContentTypeURL {
		return req.URL
	}
	return req.Source
}

// process runs one ingestion pass: extract, chunk, embed, store. Pipeline
// failures are captured into the document's failed status and never
// propagate past this method. Partial vector writes are left in place;
// re-ingestion mints a new document ID rather than resuming this one.
func (s *Service) process(ctx context.Context, docID string, req *models.IngestRequest) error {
	if !s.begin(docID) {
		s.logger.Warn().Str("document_id", docID).Msg("Skipping re-entrant processing pass")
		return nil
	}
	defer s.end(docID)

	doc, err := s.storage.GetDocument(docID)
	if err != nil {
		return err
	}
	if !doc.Status.CanTransition(models.StatusProcessing) {
		return nil
	}
	doc.Status = models.StatusProcessing
	if err := s.storage.SaveDocument(doc); err != nil {
		return err
	}

	start := time.Now()

	result, err := s.extractor.Extract(ctx, req)
	if err != nil {
		s.failDocument(doc, failureMessage("extraction", err))
		return nil
	}
	doc.PageErrors = result.PageErrors

	var chunks []models.Chunk
	for _, unit := range result.Units {
		for _, span := range s.chunker.Split(unit.Text) {
			meta := unit.Meta
			meta.SessionID = req.SessionID
			chunks = append(chunks, models.Chunk{
				DocumentID: doc.ID,
				UserID:     doc.UserID,
				Index:      len(chunks),
				Text:       span,
				Metadata:   meta,
			})
		}
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			s.failDocument(doc, failureMessage("embedding", err))
			return nil
		}

		if err := s.vectors.Upsert(ctx, chunks, vectors); err != nil {
			s.failDocument(doc, failureMessage("vector storage", err))
			return nil
		}
	}

	// Re-fetch before the terminal save: a long pass may have been swept to
	// failed in the meantime, and a terminal status is never left.
	latest, err := s.storage.GetDocument(docID)
	if err != nil {
		return err
	}
	if !latest.Status.CanTransition(models.StatusCompleted) {
		s.logger.Warn().
			Str("document_id", docID).
			Str("status", string(latest.Status)).
			Msg("Document reached a terminal status during processing, completion discarded")
		return nil
	}

	now := time.Now()
	latest.Status = models.StatusCompleted
	latest.ChunkCount = len(chunks)
	latest.PageErrors = doc.PageErrors
	latest.CompletedAt = &now
	if err := s.storage.SaveDocument(latest); err != nil {
		return err
	}
	doc = latest

	s.logger.Info().
		Str("document_id", doc.ID).
		Int("chunks", len(chunks)).
		Int("page_errors", len(doc.PageErrors)).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("Ingestion completed")

	return nil
}

// failDocument transitions a document to failed with a message. Terminal
// documents are left untouched.
func (s *Service) failDocument(doc *models.Document, message string) {
	if !doc.Status.CanTransition(models.StatusFailed) {
		return
	}

	now := time.Now()
	doc.Status = models.StatusFailed
	doc.Error = message
	doc.CompletedAt = &now
	if err := s.storage.SaveDocument(doc); err != nil {
		s.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to record document failure")
		return
	}

	s.logger.Warn().
		Str("document_id", doc.ID).
		Str("error", message).
		Msg("Ingestion failed")
}

// failureMessage renders a stage failure for the status record, with a
// distinct message when the job was cancelled mid-pipeline.
func failureMessage(stage string, err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("ingestion cancelled during %s: %v", stage, err)
	}
	return fmt.Sprintf("%s failed: %v", stage, err)
}

// begin claims the processing slot for a document. It returns false if a
// pass is already active for that ID.
func (s *Service) begin(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[docID] {
		return false
	}
	s.inflight[docID] = true
	return true
}

func (s *Service) end(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, docID)
}
