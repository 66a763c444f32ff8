package interfaces

import (
	"context"

	"github.com/corvus-labs/gnosis/internal/models"
)

// CrawlerService performs a depth-bounded, same-domain, rate-limited
// breadth-first crawl from a seed URL. Depth bounds outside [1,10] are
// rejected before any network activity. Per-page failures are recorded in
// the result; only seed unreachability is returned as an error.
type CrawlerService interface {
	Crawl(ctx context.Context, seedURL string, maxDepth int) (*models.CrawlResult, error)
}
