package interfaces

import (
	"github.com/corvus-labs/gnosis/internal/models"
)

// DocumentStorage persists document status records. Records must survive
// process restarts; the ingestion orchestrator relies on read-your-writes
// consistency for a single document.
type DocumentStorage interface {
	SaveDocument(doc *models.Document) error
	GetDocument(id string) (*models.Document, error)
	ListDocumentsByUser(userID string) ([]*models.Document, error)
	ListDocumentsByStatus(status models.DocumentStatus) ([]*models.Document, error)
}
