package models

import "errors"

// Error kinds for the ingestion and query pipelines. Call sites wrap these
// with fmt.Errorf("...: %w", Err...) so callers can classify with errors.Is.
var (
	// ErrConfiguration marks invalid depth or chunk parameters, rejected
	// before any work starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrExtraction marks unreadable or corrupt input.
	ErrExtraction = errors.New("extraction error")

	// ErrCrawlFetch marks a page fetch failure. Non-fatal per page; fatal
	// only when the seed page itself is unreachable.
	ErrCrawlFetch = errors.New("crawl fetch error")

	// ErrEmbeddingService marks a failure of the external embedding endpoint.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrVectorStore marks a failure of the external similarity index.
	ErrVectorStore = errors.New("vector store error")

	// ErrGenerationService marks a failure of the LLM generation endpoint.
	ErrGenerationService = errors.New("generation service error")

	// ErrIsolationViolation marks a search result tagged to a foreign user.
	// This must never occur; it is a fatal internal-invariant failure.
	ErrIsolationViolation = errors.New("isolation violation")
)
