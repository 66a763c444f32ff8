package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix.
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewPointID generates a vector store point identifier. Qdrant requires bare
// UUIDs for point IDs, so no prefix is applied.
func NewPointID() string {
	return uuid.New().String()
}

// NewSessionID generates a session identifier for callers that do not supply
// one. Format: session_<uuid>
func NewSessionID() string {
	return "session_" + uuid.New().String()
}
