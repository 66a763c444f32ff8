package models

// IngestRequest is the upstream request to ingest one document. Payload holds
// the raw bytes for pdf/text/structured content; URL is set for url content.
type IngestRequest struct {
	UserID    string      `json:"user_id" validate:"required"`
	SessionID string      `json:"session_id" validate:"required"`
	Type      ContentType `json:"content_type" validate:"required"`
	Source    string      `json:"source"` // filename, empty for url requests
	Payload   []byte      `json:"-"`
	URL       string      `json:"url,omitempty"`
	MaxDepth  int         `json:"max_depth,omitempty"`
}

// QueryRequest is the upstream request to answer a question against the
// caller's knowledge base.
type QueryRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	SessionID  string `json:"session_id,omitempty"`
	Query      string `json:"query" validate:"required"`
	Persona    string `json:"persona,omitempty"`
	UsePersona bool   `json:"use_persona"`
}

// QuerySource is one attributed context chunk in a query result.
type QuerySource struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// QueryResult is the outcome of one query. It is constructed fresh per query
// and never persisted. Failures populate Error instead of crossing the caller
// boundary as an exception; Sources is empty in that case.
type QueryResult struct {
	Answer  string        `json:"answer"`
	Sources []QuerySource `json:"sources"`
	Error   string        `json:"error,omitempty"`
}
