package interfaces

import (
	"context"

	"github.com/corvus-labs/gnosis/internal/models"
)

// IngestService owns the document-status state machine and sequences
// extraction, chunking, embedding, and vector storage per document.
type IngestService interface {
	// Submit accepts an ingestion request and returns the new document ID
	// immediately. The document's status starts at pending before any
	// extraction work runs.
	Submit(ctx context.Context, req *models.IngestRequest) (string, error)

	// GetDocument returns the status record for a document
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// ListDocuments returns the status records for all of a user's documents
	ListDocuments(ctx context.Context, userID string) ([]*models.Document, error)
}
