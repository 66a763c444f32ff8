// -----------------------------------------------------------------------
// Crawler Service - Depth-bounded same-domain breadth-first crawling
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// Service crawls breadth-first from a seed URL, restricted to the seed's
// domain and bounded by depth. Depth 1 is the seed page itself. Traversal
// state (visited set, per-host limiters) is scoped to a single Crawl call so
// concurrent crawls are fully independent.
type Service struct {
	client      *http.Client
	userAgent   string
	maxLinks    int
	delay       time.Duration
	maxBodySize int64
	logger      arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.CrawlerService = (*Service)(nil)

// NewService creates the crawler service from validated configuration.
func NewService(cfg common.CrawlerConfig, logger arbor.ILogger) *Service {
	timeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}
	delay, err := time.ParseDuration(cfg.RequestDelay)
	if err != nil || delay < 0 {
		delay = 500 * time.Millisecond
	}

	return &Service{
		client:      &http.Client{Timeout: timeout},
		userAgent:   cfg.UserAgent,
		maxLinks:    cfg.MaxLinksPerPage,
		delay:       delay,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger,
	}
}

// frontierEntry is one URL queued for fetching, with its depth and the page
// that linked to it. Entries live only for the duration of one crawl run.
type frontierEntry struct {
	url    *url.URL
	depth  int
	parent string
}

// pageOutcome is the fetch result for one frontier entry.
type pageOutcome struct {
	page  *models.CrawlPage
	links []*url.URL
	err   error
}

// Crawl runs the breadth-first traversal. The depth bound is validated
// before any network activity; seed unreachability is the only fatal fetch
// error, every other page failure is recorded and skipped.
func (s *Service) Crawl(ctx context.Context, seedURL string, maxDepth int) (*models.CrawlResult, error) {
	if maxDepth < 1 || maxDepth > 10 {
		return nil, fmt.Errorf("%w: crawl depth must be between 1 and 10, got %d", models.ErrConfiguration, maxDepth)
	}

	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" || (seed.Scheme != "http" && seed.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid seed URL %q", models.ErrConfiguration, seedURL)
	}

	limiters := newHostLimiters(s.delay)
	visited := map[string]bool{normalizeURL(seed): true}
	frontier := []frontierEntry{{url: seed, depth: 1}}

	result := &models.CrawlResult{}
	start := time.Now()

	for len(frontier) > 0 {
		outcomes := s.fetchLevel(ctx, frontier, limiters, seed.Host)

		var next []frontierEntry
		for i, entry := range frontier {
			outcome := outcomes[i]
			if outcome.err != nil {
				if entry.depth == 1 {
					return nil, fmt.Errorf("%w: seed page %s: %w", models.ErrCrawlFetch, entry.url, outcome.err)
				}
				result.PageErrors = append(result.PageErrors, fmt.Sprintf("%s: %v", entry.url, outcome.err))
				continue
			}

			result.Pages = append(result.Pages, *outcome.page)

			if entry.depth+1 > maxDepth {
				continue
			}
			for _, link := range outcome.links {
				key := normalizeURL(link)
				if visited[key] {
					continue
				}
				visited[key] = true
				next = append(next, frontierEntry{
					url:    link,
					depth:  entry.depth + 1,
					parent: entry.url.String(),
				})
			}
		}
		frontier = next
	}

	s.logger.Info().
		Str("seed", seedURL).
		Int("max_depth", maxDepth).
		Int("pages", len(result.Pages)).
		Int("page_errors", len(result.PageErrors)).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("Crawl completed")

	return result, nil
}

// fetchLevel fetches one frontier level. Fetches run concurrently; the
// per-host limiter serializes requests to the same host while distinct hosts
// proceed in parallel. Outcomes are indexed by frontier position so the
// traversal order stays deterministic.
func (s *Service) fetchLevel(ctx context.Context, frontier []frontierEntry, limiters *hostLimiters, seedHost string) []pageOutcome {
	outcomes := make([]pageOutcome, len(frontier))

	var wg sync.WaitGroup
	for i, entry := range frontier {
		wg.Add(1)
		go func(i int, entry frontierEntry) {
			defer wg.Done()
			outcomes[i] = s.fetchPage(ctx, entry, limiters, seedHost)
		}(i, entry)
	}
	wg.Wait()

	return outcomes
}
