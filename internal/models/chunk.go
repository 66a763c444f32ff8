package models

// ChunkMetadata carries the source attribution for one chunk. Which fields
// are populated depends on the originating content type: Page for pdf,
// URL/Depth/ParentURL for crawled pages, RecordPath for structured records.
type ChunkMetadata struct {
	Source     string `json:"source"` // filename or URL of the originating document
	Title      string `json:"title,omitempty"`
	Page       int    `json:"page,omitempty"`
	URL        string `json:"url,omitempty"`
	Depth      int    `json:"depth,omitempty"`
	ParentURL  string `json:"parent_url,omitempty"`
	RecordPath string `json:"record_path,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// Chunk is a bounded span of normalized text derived from one document.
// Index is dense and zero-based per document. Chunks become immutable once
// embedded and are owner-tagged permanently to their creating user.
type Chunk struct {
	DocumentID string        `json:"document_id"`
	UserID     string        `json:"user_id"`
	Index      int           `json:"index"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// ScoredChunk is a chunk returned from similarity search together with its
// coarse similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}
