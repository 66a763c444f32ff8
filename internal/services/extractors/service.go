// -----------------------------------------------------------------------
// Extractor Service - Content-type dispatch for document extraction
// -----------------------------------------------------------------------

package extractors

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// Unit is one extracted span of normalized text with its source metadata.
// A pdf yields one unit per page, a crawl one unit per fetched page, text
// and structured content one or more units for the whole payload.
type Unit struct {
	Text string
	Meta models.ChunkMetadata
}

// Result is the outcome of extracting one ingestion request. PageErrors is
// populated only for url content, carrying non-fatal per-page crawl failures.
type Result struct {
	Units      []Unit
	PageErrors []string
}

// Service dispatches extraction over the closed content-type set
// {pdf, text, structured, url}. Dispatch happens in exactly one place; there
// is no open-ended extractor registration.
type Service struct {
	crawler interfaces.CrawlerService
	pdf     *pdfExtractor
	logger  arbor.ILogger
}

// NewService creates the extractor service. The crawler handles url content;
// the other three types are extracted in-process.
func NewService(crawler interfaces.CrawlerService, logger arbor.ILogger) *Service {
	return &Service{
		crawler: crawler,
		pdf:     newPDFExtractor(logger),
		logger:  logger,
	}
}

// Extract turns one ingestion request into normalized text units. Extraction
// failures are reported as errors wrapped with models.ErrExtraction; per-page
// crawl failures land in Result.PageErrors instead.
func (s *Service) Extract(ctx context.Context, req *models.IngestRequest) (*Result, error) {
	switch req.Type {
	case models.ContentTypePDF:
		units, err := s.pdf.extract(ctx, req.Payload, req.Source)
		if err != nil {
			return nil, err
		}
		return &Result{Units: units}, nil

	case models.ContentTypeText:
		return &Result{Units: extractText(req.Payload, req.Source)}, nil

	case models.ContentTypeStructured:
		units, err := extractStructured(req.Payload, req.Source)
		if err != nil {
			return nil, err
		}
		return &Result{Units: units}, nil

	case models.ContentTypeURL:
		crawl, err := s.crawler.Crawl(ctx, req.URL, req.MaxDepth)
		if err != nil {
			return nil, err
		}
		result := &Result{PageErrors: crawl.PageErrors}
		for _, page := range crawl.Pages {
			result.Units = append(result.Units, Unit{
				Text: page.Text,
				Meta: models.ChunkMetadata{
					Source:    page.URL,
					Title:     page.Title,
					URL:       page.URL,
					Depth:     page.Depth,
					ParentURL: page.ParentURL,
				},
			})
		}
		s.logger.Info().
			Str("url", req.URL).
			Int("pages", len(crawl.Pages)).
			Int("page_errors", len(crawl.PageErrors)).
			Msg("Crawl extraction complete")
		return result, nil

	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", models.ErrConfiguration, req.Type)
	}
}
