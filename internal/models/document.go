package models

import "time"

// ContentType identifies the format of an ingested payload. The set is
// closed: dispatch over it happens in a single switch at the ingestion
// orchestrator boundary.
type ContentType string

const (
	ContentTypePDF        ContentType = "pdf"
	ContentTypeText       ContentType = "text"
	ContentTypeStructured ContentType = "structured"
	ContentTypeURL        ContentType = "url"
)

// Valid reports whether the content type is one of the supported formats.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypePDF, ContentTypeText, ContentTypeStructured, ContentTypeURL:
		return true
	}
	return false
}

// DocumentStatus is the processing state of a document. Transitions are
// monotonic: pending -> processing -> completed|failed. Terminal states are
// never left.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal transition
// of the document state machine.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Document is a unit of ingestion. It is created with status pending when an
// ingestion request is accepted and mutated only by the ingestion
// orchestrator. Documents are never physically deleted by the core.
type Document struct {
	ID        string      `json:"id"` // doc_<uuid>, immutable once assigned
	UserID    string      `json:"user_id"`
	SessionID string      `json:"session_id"`
	Source    string      `json:"source"` // filename or URL
	Type      ContentType `json:"content_type"`
	MaxDepth  int         `json:"max_depth,omitempty"` // crawl depth bound, url documents only

	Status DocumentStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
	// PageErrors records per-page crawl failures that did not abort the run.
	PageErrors []string `json:"page_errors,omitempty"`
	ChunkCount int      `json:"chunk_count"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
